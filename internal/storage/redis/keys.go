package redis

import "fmt"

func linkKey(code string) string {
	return "link:" + code
}

func ownerKey(owner string) string {
	return "owner:" + owner + ":links"
}

func clickKey(code string, ordinal int64) string {
	return fmt.Sprintf("click:%s:%d", code, ordinal)
}

func watchChannel(code string) string {
	return "watch:" + linkKey(code)
}

func sessionKey(id string) string {
	return "session:" + id
}
