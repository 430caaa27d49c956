package constants

// Plain-text response bodies.
const (
	MsgNotFound         = "Not found"
	MsgMissingLongURL   = "Missing longUrl"
	MsgInvalidLongURL   = "Invalid longUrl"
	MsgInvalidForm      = "Invalid form"
	MsgInvalidState     = "Invalid OAuth state"
	MsgRateLimited      = "Too many requests"
	MsgOK               = "OK"
	MsgUnauthorized     = "You must be signed in to view this page."
	MsgLinkNotFound     = "This short link does not exist."
	MsgInternalFallback = "Internal server error"
)
