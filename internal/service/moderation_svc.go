package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cursedai/cursed-go/internal/model"
	"github.com/cursedai/cursed-go/internal/repository"
)

const (
	maxReportDetailsLen = 1000
	maxBatchSize        = 100
)

// resolveFields are the media columns a report resolution may change.
var resolveFields = map[string]bool{
	"is_hidden": true,
	"status":    true,
}

// editableFields are the media columns the moderation console may change.
var editableFields = map[string]bool{
	"is_hidden":    true,
	"status":       true,
	"caption":      true,
	"model_name":   true,
	"prompt":       true,
	"year":         true,
	"ai_generated": true,
	"origin":       true,
}

type ReportStore interface {
	Create(ctx context.Context, sessionID, mediaID, reason string, details *string) (model.Report, error)
	List(ctx context.Context, f model.ReportFilter) ([]model.ReportWithMedia, error)
	Resolve(ctx context.Context, in repository.ResolveInput) (model.ResolveResult, error)
}

type MediaAdminStore interface {
	List(ctx context.Context, f model.MediaFilter) ([]model.Media, error)
	Update(ctx context.Context, id string, patch model.MediaPatch, check func(model.Media) error) (model.Media, error)
	BatchUpdate(ctx context.Context, ids []string, patch model.MediaPatch, check func(model.Media) error) ([]model.Media, []string, error)
}

type ModerationService struct {
	reports  ReportStore
	media    MediaAdminStore
	settings SettingsSource
	obs      Observer
	log      zerolog.Logger
}

func NewModerationService(reports ReportStore, media MediaAdminStore, settings SettingsSource, obs Observer, log zerolog.Logger) *ModerationService {
	if obs == nil {
		obs = nopObserver{}
	}
	return &ModerationService{reports: reports, media: media, settings: settings, obs: obs, log: log}
}

// Report flags an item for moderator review.
func (s *ModerationService) Report(ctx context.Context, req model.ReportRequest) (model.Report, error) {
	if err := requireUUID("sessionId", req.SessionID); err != nil {
		return model.Report{}, err
	}
	if err := requireUUID("mediaId", req.MediaID); err != nil {
		return model.Report{}, err
	}
	if !model.ReportReasons[req.Reason] {
		return model.Report{}, invalid("INVALID_REASON", "unknown report reason %q", req.Reason)
	}
	var details *string
	if d := strings.TrimSpace(req.Details); d != "" {
		if len(d) > maxReportDetailsLen {
			return model.Report{}, invalid("INVALID_DETAILS", "details must be at most %d characters", maxReportDetailsLen)
		}
		details = &d
	}
	if !s.settings.Snapshot(ctx).ReportsEnabled {
		return model.Report{}, ErrFeatureDisabled
	}

	rep, err := s.reports.Create(ctx, req.SessionID, req.MediaID, req.Reason, details)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return model.Report{}, ErrItemNotFound
	case errors.Is(err, repository.ErrMissingReference):
		return model.Report{}, ErrSessionNotFound
	}
	return rep, err
}

func (s *ModerationService) ListReports(ctx context.Context, f model.ReportFilter) ([]model.ReportWithMedia, error) {
	switch f.Status {
	case "", model.ReportOpen, model.ReportResolved:
	default:
		return nil, invalid("INVALID_STATUS", "unknown report status %q", f.Status)
	}
	return s.reports.List(ctx, f)
}

// Resolve closes a report and optionally applies a moderation action to its
// item, atomically. Only is_hidden and status may change here.
func (s *ModerationService) Resolve(ctx context.Context, reportID, adminID string, req model.ResolveRequest) (model.ResolveResult, error) {
	if err := requireUUID("reportId", reportID); err != nil {
		return model.ResolveResult{}, err
	}

	in := repository.ResolveInput{ReportID: reportID, ResolvedBy: adminID, Note: trimmedOrNil(req.ResolutionNote)}
	var trace transitionTrace
	if up := req.MediaUpdate; up != nil && len(up.Updates) > 0 {
		patch, err := ParseMediaPatch(up.Updates, resolveFields)
		if err != nil {
			return model.ResolveResult{}, err
		}
		if up.MediaID != "" {
			if err := requireUUID("mediaId", up.MediaID); err != nil {
				return model.ResolveResult{}, err
			}
		}
		in.MediaID = up.MediaID
		in.Patch = &patch
		in.Check = trace.check(patch)
	}

	res, err := s.reports.Resolve(ctx, in)
	if errors.Is(err, repository.ErrNotFound) {
		return model.ResolveResult{}, ErrReportNotFound
	}
	if err != nil {
		return model.ResolveResult{}, err
	}
	if res.MediaUpdated {
		trace.observe(s.obs)
	}
	s.log.Info().
		Str("report_id", reportID).
		Str("admin", adminID).
		Bool("media_updated", res.MediaUpdated).
		Bool("media_missing", res.MediaMissing).
		Msg("report resolved")
	return res, nil
}

func (s *ModerationService) ListMedia(ctx context.Context, f model.MediaFilter) ([]model.Media, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, invalid("INVALID_STATUS", "unknown status %q", f.Status)
	}
	return s.media.List(ctx, f)
}

// UpdateMedia applies a moderation edit to one item.
func (s *ModerationService) UpdateMedia(ctx context.Context, id string, updates map[string]json.RawMessage) (model.Media, error) {
	if err := requireUUID("mediaId", id); err != nil {
		return model.Media{}, err
	}
	patch, err := ParseMediaPatch(updates, editableFields)
	if err != nil {
		return model.Media{}, err
	}
	if patch.Empty() {
		return model.Media{}, invalid("INVALID_UPDATE", "no updates given")
	}

	var trace transitionTrace
	m, err := s.media.Update(ctx, id, patch, trace.check(patch))
	if errors.Is(err, repository.ErrNotFound) {
		return model.Media{}, ErrItemNotFound
	}
	if err != nil {
		return model.Media{}, err
	}
	trace.observe(s.obs)
	return m, nil
}

// BatchUpdateMedia applies the same edit to several items in one transaction.
func (s *ModerationService) BatchUpdateMedia(ctx context.Context, req model.BatchMediaRequest) (model.BatchMediaResult, error) {
	if len(req.IDs) == 0 || len(req.IDs) > maxBatchSize {
		return model.BatchMediaResult{}, invalid("INVALID_BATCH", "ids must contain 1-%d entries", maxBatchSize)
	}
	for _, id := range req.IDs {
		if err := requireUUID("ids", id); err != nil {
			return model.BatchMediaResult{}, err
		}
	}
	patch, err := ParseMediaPatch(req.Updates, editableFields)
	if err != nil {
		return model.BatchMediaResult{}, err
	}
	if patch.Empty() {
		return model.BatchMediaResult{}, invalid("INVALID_UPDATE", "no updates given")
	}

	var trace transitionTrace
	updated, missing, err := s.media.BatchUpdate(ctx, req.IDs, patch, trace.check(patch))
	if err != nil {
		return model.BatchMediaResult{}, err
	}
	trace.observe(s.obs)
	if updated == nil {
		updated = []model.Media{}
	}
	if missing == nil {
		missing = []string{}
	}
	return model.BatchMediaResult{Updated: updated, Missing: missing}, nil
}

// transitionTrace validates manual status changes against the locked row and
// counts the graveyard entries it allowed.
type transitionTrace struct {
	toGraveyard int
}

func (t *transitionTrace) check(patch model.MediaPatch) func(model.Media) error {
	return func(cur model.Media) error {
		if patch.Status == nil {
			return nil
		}
		if err := ManualTransition(cur.Status, *patch.Status); err != nil {
			return err
		}
		if cur.Status != model.StatusGraveyard && *patch.Status == model.StatusGraveyard {
			t.toGraveyard++
		}
		return nil
	}
}

func (t *transitionTrace) observe(obs Observer) {
	for i := 0; i < t.toGraveyard; i++ {
		obs.ObserveGraveyard("manual")
	}
}

// ParseMediaPatch decodes raw column updates, accepting only allowed keys.
func ParseMediaPatch(updates map[string]json.RawMessage, allowed map[string]bool) (model.MediaPatch, error) {
	var p model.MediaPatch

	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		raw := updates[key]
		if !allowed[key] {
			return model.MediaPatch{}, invalid("INVALID_UPDATE", "field %q cannot be updated", key)
		}
		if len(raw) == 0 || string(raw) == "null" {
			return model.MediaPatch{}, invalid("INVALID_UPDATE", "field %q must not be null", key)
		}

		var err error
		switch key {
		case "is_hidden":
			p.Hidden = new(bool)
			err = json.Unmarshal(raw, p.Hidden)
		case "ai_generated":
			p.AIGenerated = new(bool)
			err = json.Unmarshal(raw, p.AIGenerated)
		case "status":
			var st model.Status
			if err = json.Unmarshal(raw, &st); err == nil && !st.Valid() {
				return model.MediaPatch{}, invalid("INVALID_STATUS", "unknown status %q", st)
			}
			p.Status = &st
		case "caption":
			p.Caption = new(string)
			err = json.Unmarshal(raw, p.Caption)
		case "model_name":
			p.ModelName = new(string)
			err = json.Unmarshal(raw, p.ModelName)
		case "prompt":
			p.Prompt = new(string)
			err = json.Unmarshal(raw, p.Prompt)
		case "origin":
			p.Origin = new(string)
			err = json.Unmarshal(raw, p.Origin)
		case "year":
			p.Year = new(int)
			if err = json.Unmarshal(raw, p.Year); err == nil && (*p.Year < 1900 || *p.Year > 2100) {
				return model.MediaPatch{}, invalid("INVALID_UPDATE", "year must be between 1900 and 2100")
			}
		}
		if err != nil {
			return model.MediaPatch{}, invalid("INVALID_UPDATE", "field %q has the wrong type", key)
		}
	}
	return p, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
