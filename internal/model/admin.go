package model

import "time"

// AdminUser is a roster entry granting moderation rights.
type AdminUser struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// AdminUserRequest is the API request body for adding a roster entry.
type AdminUserRequest struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role,omitempty"`
}

// WipeMode selects how much a bulk wipe removes.
type WipeMode string

const (
	WipeMediaOnly       WipeMode = "media_only"
	WipeMediaAndRatings WipeMode = "media_and_ratings"
)

// WipeRequest is the API request body for a bulk wipe.
type WipeRequest struct {
	Mode    WipeMode `json:"mode"`
	Confirm string   `json:"confirm"`
}

// WipeResult counts the rows and blobs a wipe removed.
type WipeResult struct {
	Reports int64 `json:"reports"`
	Ratings int64 `json:"ratings"`
	Media   int64 `json:"media"`
	Blobs   int   `json:"blobs"`
}

// ExportRequest is the API request body for a backup export.
type ExportRequest struct {
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
	AllTime bool   `json:"allTime"`
	Limit   int    `json:"limit,omitempty"`
	Page    int    `json:"page,omitempty"`
}

// ExportRange is a validated, inclusive creation-time window. Zero times mean all time.
type ExportRange struct {
	From time.Time
	To   time.Time
}

// AllTime reports whether the range is unbounded.
func (r ExportRange) AllTime() bool {
	return r.From.IsZero() && r.To.IsZero()
}

// ManifestEntry is one item of the exported metadata.json.
type ManifestEntry struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	AssetURL    string    `json:"asset_url"`
	Kind        Kind      `json:"kind"`
	Caption     *string   `json:"caption"`
	Origin      *string   `json:"origin"`
	ModelName   *string   `json:"model_name"`
	Prompt      *string   `json:"prompt"`
	Year        *int      `json:"year"`
	AIGenerated bool      `json:"ai_generated"`
	RatingCount int64     `json:"rating_count"`
	RatingSum   int64     `json:"rating_sum"`
	RatingSumSq int64     `json:"rating_sum_sq"`
	Score       float64   `json:"score"`
	Confidence  float64   `json:"confidence"`
	Status      Status    `json:"status"`
	Hidden      bool      `json:"is_hidden"`
}

// NewManifestEntry copies the exportable fields of m.
func NewManifestEntry(m Media) ManifestEntry {
	return ManifestEntry{
		ID:          m.ID,
		CreatedAt:   m.CreatedAt,
		AssetURL:    m.AssetURL,
		Kind:        m.Kind,
		Caption:     m.Caption,
		Origin:      m.Origin,
		ModelName:   m.ModelName,
		Prompt:      m.Prompt,
		Year:        m.Year,
		AIGenerated: m.AIGenerated,
		RatingCount: m.Count,
		RatingSum:   m.Sum,
		RatingSumSq: m.SumSq,
		Score:       m.Score,
		Confidence:  m.Confidence,
		Status:      m.Status,
		Hidden:      m.Hidden,
	}
}
