package model

import "time"

// Rating is one session's judgment of one media item.
type Rating struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	MediaID   string    `json:"mediaId"`
	Value     int       `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
}

// RateRequest is the API request body for submitting a rating.
type RateRequest struct {
	SessionID string `json:"sessionId"`
	MediaID   string `json:"mediaId"`
	Rating    int    `json:"rating"`
}

// RateResponse is the API response after a rating is accepted.
type RateResponse struct {
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Status     Status  `json:"status"`
}
