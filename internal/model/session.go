package model

import (
	"encoding/json"
	"time"
)

// Session is an anonymous browsing identity. It never expires server-side.
type Session struct {
	ID        string    `json:"sessionId"`
	UserAgent string    `json:"-"`
	IPHash    string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// SessionRequest is the API request body for creating a session.
type SessionRequest struct {
	UserAgent string `json:"userAgent,omitempty"`
}

// ViewRequest is the API request body for recording a substantial view.
type ViewRequest struct {
	MediaID string `json:"mediaId"`
}

// ViewResponse reports the session's depth after a view was recorded.
type ViewResponse struct {
	Viewed int64 `json:"viewed"`
	Depth  int   `json:"depth"`
}

// Feedback is a free-form satisfaction note left by a session.
type Feedback struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	SessionID *string   `json:"sessionId,omitempty"`
	Score     int       `json:"score"`
	Notes     *string   `json:"notes,omitempty"`
}

// FeedbackRequest is the API request body for leaving feedback.
type FeedbackRequest struct {
	SessionID string `json:"sessionId"`
	Score     int    `json:"score"`
	Notes     string `json:"notes,omitempty"`
}

// EventType names an analytics event.
type EventType string

const (
	EventPageView     EventType = "page_view"
	EventDepthReached EventType = "depth_reached"
)

// Event is one row of the analytics log.
type Event struct {
	SessionID *string
	Path      string
	Type      EventType
	Meta      json.RawMessage
}

// EventRequest is the API request body for recording an analytics event.
type EventRequest struct {
	SessionID string          `json:"sessionId"`
	Path      string          `json:"path"`
	EventType EventType       `json:"eventType"`
	Meta      json.RawMessage `json:"meta,omitempty"`
}
