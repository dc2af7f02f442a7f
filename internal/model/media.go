package model

import (
	"encoding/json"
	"io"
	"time"
)

// Status is the visibility lifecycle state of a media item.
type Status string

const (
	StatusActive    Status = "active"
	StatusGraveyard Status = "graveyard"
	StatusRemoved   Status = "removed"
)

// Valid reports whether s is a known lifecycle state.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusGraveyard, StatusRemoved:
		return true
	}
	return false
}

// Kind is the media type of a submission.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Moments are the running first and second moments of every rating an item has received.
type Moments struct {
	Count int64 `json:"ratingCount"`
	Sum   int64 `json:"ratingSum"`
	SumSq int64 `json:"ratingSumSquares"`
}

// Reputation is the published scoring state of a media item.
type Reputation struct {
	Moments
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Status     Status  `json:"status"`
}

// Media represents one submitted piece of content in the database.
type Media struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"createdAt"`
	Kind        Kind      `json:"kind"`
	AssetURL    string    `json:"assetUrl"`
	Caption     *string   `json:"caption,omitempty"`
	Origin      *string   `json:"origin,omitempty"`
	ModelName   *string   `json:"modelName,omitempty"`
	Prompt      *string   `json:"prompt,omitempty"`
	Year        *int      `json:"year,omitempty"`
	AIGenerated bool      `json:"aiGenerated"`
	UploaderID  *string   `json:"uploaderId,omitempty"`
	SizeBytes   int64     `json:"sizeBytes"`
	Reputation
	Hidden bool `json:"isHidden"`
}

// MediaResponse is the public view of a media item served in the feed.
type MediaResponse struct {
	ID          string  `json:"id"`
	Kind        Kind    `json:"kind"`
	AssetURL    string  `json:"assetUrl"`
	Caption     *string `json:"caption,omitempty"`
	Origin      *string `json:"origin,omitempty"`
	RatingCount int64   `json:"ratingCount"`
	Score       float64 `json:"score"`
	Confidence  float64 `json:"confidence"`
}

// ToResponse strips moderation and moment fields from m.
func (m Media) ToResponse() MediaResponse {
	return MediaResponse{
		ID:          m.ID,
		Kind:        m.Kind,
		AssetURL:    m.AssetURL,
		Caption:     m.Caption,
		Origin:      m.Origin,
		RatingCount: m.Count,
		Score:       m.Score,
		Confidence:  m.Confidence,
	}
}

// FeedQuery selects one page of the primary feed.
type FeedQuery struct {
	MinScore      float64
	MinConfidence float64
	Offset        int
	Limit         int
}

// FeedResponse is the API response for one feed page.
type FeedResponse struct {
	Items       []MediaResponse `json:"items"`
	HasMore     bool            `json:"hasMore"`
	Page        int             `json:"page"`
	Depth       int             `json:"depth"`
	AdMilestone *int            `json:"adMilestone,omitempty"`
}

// GraveyardResponse is the API response for one graveyard page.
type GraveyardResponse struct {
	Items   []MediaResponse `json:"items"`
	HasMore bool            `json:"hasMore"`
	Page    int             `json:"page"`
}

// MediaSubmitRequest holds the form fields sent with an uploaded asset.
type MediaSubmitRequest struct {
	ModelName   string `json:"modelName"`
	Prompt      string `json:"prompt,omitempty"`
	Year        *int   `json:"year,omitempty"`
	AIGenerated bool   `json:"aiGenerated"`
}

// Upload is one asset received from a signed-in uploader.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// MediaFilter narrows the admin media listing.
type MediaFilter struct {
	Status Status
	Hidden *bool
	Search string
	Offset int
	Limit  int
}

// MediaPatch holds the columns a moderation action may change. Nil fields are left untouched.
type MediaPatch struct {
	Hidden      *bool
	Status      *Status
	Caption     *string
	ModelName   *string
	Prompt      *string
	Year        *int
	AIGenerated *bool
	Origin      *string
}

// Empty reports whether the patch changes nothing.
func (p MediaPatch) Empty() bool {
	return p.Hidden == nil && p.Status == nil && p.Caption == nil && p.ModelName == nil &&
		p.Prompt == nil && p.Year == nil && p.AIGenerated == nil && p.Origin == nil
}

// BatchMediaRequest is the API request body for editing several items at once.
type BatchMediaRequest struct {
	IDs     []string                   `json:"ids"`
	Updates map[string]json.RawMessage `json:"updates"`
}

// BatchMediaResult lists the items a batch edit changed and the ids it could not find.
type BatchMediaResult struct {
	Updated []Media  `json:"updated"`
	Missing []string `json:"missing"`
}
