package model

import (
	"encoding/json"
	"time"
)

// Recognised settings keys.
const (
	SettingAdsEnabled        = "ads_enabled"
	SettingAdMilestones      = "ad_milestones"
	SettingAdCooldownSeconds = "ad_cooldown_seconds"
	SettingUploadsEnabled    = "uploads_enabled"
	SettingUploadMaxTotal    = "upload_max_total"
	SettingUploadMaxMB       = "upload_max_mb"
	SettingRatingsEnabled    = "ratings_enabled"
	SettingReportsEnabled    = "reports_enabled"
)

// SettingRow is one row of the app_settings table.
type SettingRow struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updatedAt"`
	UpdatedBy *string         `json:"updatedBy,omitempty"`
}

// Settings is an immutable snapshot of the recognised settings for one request.
type Settings struct {
	AdsEnabled        bool  `json:"adsEnabled"`
	AdMilestones      []int `json:"adMilestones"`
	AdCooldownSeconds int   `json:"adCooldownSeconds"`
	UploadsEnabled    bool  `json:"uploadsEnabled"`
	UploadMaxTotal    int   `json:"uploadMaxTotal"`
	UploadMaxMB       int   `json:"uploadMaxMb"`
	RatingsEnabled    bool  `json:"ratingsEnabled"`
	ReportsEnabled    bool  `json:"reportsEnabled"`
}

// DefaultSettings returns the values used when a key is absent or malformed.
func DefaultSettings() Settings {
	return Settings{
		AdsEnabled:        true,
		AdMilestones:      []int{25, 50, 75},
		AdCooldownSeconds: 120,
		UploadsEnabled:    true,
		UploadMaxTotal:    0,
		UploadMaxMB:       0,
		RatingsEnabled:    true,
		ReportsEnabled:    true,
	}
}

// SettingUpdateRequest is the API request body for changing one setting.
type SettingUpdateRequest struct {
	Value json.RawMessage `json:"value"`
}
