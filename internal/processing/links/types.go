package links

import "time"

const UnknownValue = "Unknown"

type ShortLink struct {
	ShortCode  string    `json:"shortCode"`
	LongURL    string    `json:"longUrl"`
	Owner      string    `json:"userId"`
	ClickCount int64     `json:"clickCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

type ClickMetadata struct {
	IPAddress string `json:"ipAddress"`
	UserAgent string `json:"userAgent"`
	Country   string `json:"country"`
}

// Normalize replaces missing values with UnknownValue.
func (m ClickMetadata) Normalize() ClickMetadata {
	if m.IPAddress == "" {
		m.IPAddress = UnknownValue
	}
	if m.UserAgent == "" {
		m.UserAgent = UnknownValue
	}
	if m.Country == "" {
		m.Country = UnknownValue
	}
	return m
}

type ClickEvent struct {
	ShortCode string    `json:"shortCode"`
	Ordinal   int64     `json:"ordinal"`
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
	Country   string    `json:"country"`
	CreatedAt time.Time `json:"timestamp"`
}

// NewClickEvent builds the event stored at ordinal for a tracked visit.
func NewClickEvent(shortCode string, ordinal int64, meta ClickMetadata, at time.Time) ClickEvent {
	meta = meta.Normalize()
	return ClickEvent{
		ShortCode: shortCode,
		Ordinal:   ordinal,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Country:   meta.Country,
		CreatedAt: at.UTC(),
	}
}

// FeedUpdate is the payload of one live feed event.
type FeedUpdate struct {
	ClickCount     int64       `json:"clickCount"`
	ClickAnalytics *ClickEvent `json:"clickAnalytics"`
}
