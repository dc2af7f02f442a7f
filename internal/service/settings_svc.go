package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cursedai/cursed-go/internal/model"
)

// SettingsStore is the persistence the settings service needs.
type SettingsStore interface {
	List(ctx context.Context) ([]model.SettingRow, error)
	Upsert(ctx context.Context, key string, value json.RawMessage, updatedBy string) (model.SettingRow, error)
}

// SettingsSource yields the settings snapshot for one request.
type SettingsSource interface {
	Snapshot(ctx context.Context) model.Settings
}

type SettingsService struct {
	repo  SettingsStore
	cache *CacheService
	log   zerolog.Logger
}

func NewSettingsService(repo SettingsStore, cache *CacheService, log zerolog.Logger) *SettingsService {
	return &SettingsService{repo: repo, cache: cache, log: log}
}

// Snapshot returns the current settings. A storage failure yields the
// defaults so the feed keeps working.
func (s *SettingsService) Snapshot(ctx context.Context) model.Settings {
	if cached, ok := s.cache.GetSettings(ctx); ok {
		return cached
	}
	rows, err := s.repo.List(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("settings: load failed, using defaults")
		return model.DefaultSettings()
	}
	snap := ParseSettings(rows)
	s.cache.SetSettings(ctx, snap)
	return snap
}

// List returns the raw stored rows for the admin console.
func (s *SettingsService) List(ctx context.Context) ([]model.SettingRow, error) {
	return s.repo.List(ctx)
}

// Update validates and stores one setting, then drops the cached snapshot.
func (s *SettingsService) Update(ctx context.Context, key string, value json.RawMessage, updatedBy string) (model.SettingRow, error) {
	key = strings.TrimSpace(key)
	if key == "" || len(key) > 64 {
		return model.SettingRow{}, invalid("INVALID_SETTING", "setting key must be 1-64 characters")
	}
	if len(value) == 0 || !json.Valid(value) {
		return model.SettingRow{}, invalid("INVALID_SETTING", "setting value must be valid JSON")
	}
	if err := validateSetting(key, value); err != nil {
		return model.SettingRow{}, err
	}

	row, err := s.repo.Upsert(ctx, key, value, updatedBy)
	if err != nil {
		return model.SettingRow{}, err
	}
	s.cache.InvalidateSettings(ctx)
	s.log.Info().Str("key", key).Str("admin", updatedBy).Msg("setting updated")
	return row, nil
}

// validateSetting rejects values of the wrong shape for recognised keys.
// Unrecognised keys are stored as-is.
func validateSetting(key string, value json.RawMessage) error {
	switch key {
	case model.SettingAdsEnabled, model.SettingUploadsEnabled, model.SettingRatingsEnabled, model.SettingReportsEnabled:
		if _, ok := parseBool(value); !ok {
			return invalid("INVALID_SETTING", "%s must be a boolean", key)
		}
	case model.SettingAdCooldownSeconds, model.SettingUploadMaxTotal, model.SettingUploadMaxMB:
		if _, ok := parseNonNegative(value); !ok {
			return invalid("INVALID_SETTING", "%s must be a non-negative integer", key)
		}
	case model.SettingAdMilestones:
		if _, ok := parseMilestones(value); !ok {
			return invalid("INVALID_SETTING", "%s must be an array of integers between 1 and 100", key)
		}
	}
	return nil
}

// ParseSettings folds stored rows over the defaults. Unknown keys are
// ignored and malformed values keep their default.
func ParseSettings(rows []model.SettingRow) model.Settings {
	s := model.DefaultSettings()
	for _, row := range rows {
		switch row.Key {
		case model.SettingAdsEnabled:
			if v, ok := parseBool(row.Value); ok {
				s.AdsEnabled = v
			}
		case model.SettingAdMilestones:
			if v, ok := parseMilestones(row.Value); ok {
				s.AdMilestones = v
			}
		case model.SettingAdCooldownSeconds:
			if v, ok := parseNonNegative(row.Value); ok {
				s.AdCooldownSeconds = v
			}
		case model.SettingUploadsEnabled:
			if v, ok := parseBool(row.Value); ok {
				s.UploadsEnabled = v
			}
		case model.SettingUploadMaxTotal:
			if v, ok := parseNonNegative(row.Value); ok {
				s.UploadMaxTotal = v
			}
		case model.SettingUploadMaxMB:
			if v, ok := parseNonNegative(row.Value); ok {
				s.UploadMaxMB = v
			}
		case model.SettingRatingsEnabled:
			if v, ok := parseBool(row.Value); ok {
				s.RatingsEnabled = v
			}
		case model.SettingReportsEnabled:
			if v, ok := parseBool(row.Value); ok {
				s.ReportsEnabled = v
			}
		}
	}
	return s
}

func parseBool(raw json.RawMessage) (bool, bool) {
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, false
	}
	return v, true
}

func parseNonNegative(raw json.RawMessage) (int, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	if f < 0 || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

// parseMilestones accepts an array of depths in [1,100] and returns it sorted and de-duplicated.
func parseMilestones(raw json.RawMessage) ([]int, bool) {
	var vals []int
	if err := json.Unmarshal(raw, &vals); err != nil {
		return nil, false
	}
	seen := make(map[int]bool, len(vals))
	out := make([]int, 0, len(vals))
	for _, v := range vals {
		if v < 1 || v > MaxDepth {
			return nil, false
		}
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out, true
}
