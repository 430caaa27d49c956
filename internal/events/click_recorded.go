package events

import (
	"time"

	"github.com/google/uuid"
)

// ClickRecorded is emitted after a redirect click has been counted. Ordinal
// is the click's position in the link's history, starting at 1.
type ClickRecorded struct {
	EventID    string    `json:"eventId"`
	ShortCode  string    `json:"shortCode"`
	Ordinal    int64     `json:"ordinal"`
	IPAddress  string    `json:"ipAddress"`
	UserAgent  string    `json:"userAgent"`
	Country    string    `json:"country"`
	OccurredAt time.Time `json:"occurredAt"`
}

func NewClickRecorded(shortCode string, ordinal int64, ip, userAgent, country string, at time.Time) ClickRecorded {
	return ClickRecorded{
		EventID:    uuid.NewString(),
		ShortCode:  shortCode,
		Ordinal:    ordinal,
		IPAddress:  ip,
		UserAgent:  userAgent,
		Country:    country,
		OccurredAt: at.UTC(),
	}
}

// Key partitions events by link.
func (e ClickRecorded) Key() []byte {
	return []byte(e.ShortCode)
}
