package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cursedai/cursed-go/internal/model"
	"github.com/cursedai/cursed-go/internal/storage"
)

const (
	bytesPerMB      = 1 << 20
	maxModelNameLen = 120
	maxPromptLen    = 2000
)

var (
	uploaderRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	extRe      = regexp.MustCompile(`^[a-z0-9]{1,8}$`)
)

type MediaStore interface {
	Create(ctx context.Context, m model.Media) (model.Media, error)
	Count(ctx context.Context) (int64, error)
}

// BlobWriter stores uploaded assets.
type BlobWriter interface {
	Put(ctx context.Context, key string, r io.Reader, maxBytes int64) (int64, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

type MediaService struct {
	repo     MediaStore
	blobs    BlobWriter
	settings SettingsSource
	log      zerolog.Logger
}

func NewMediaService(repo MediaStore, blobs BlobWriter, settings SettingsSource, log zerolog.Logger) *MediaService {
	return &MediaService{repo: repo, blobs: blobs, settings: settings, log: log}
}

// Submit stores an uploaded asset under uploads/<uploader>/ and registers it
// as a new active, unrated item. Upload toggles and caps come from settings.
func (s *MediaService) Submit(ctx context.Context, uploaderID string, req model.MediaSubmitRequest, up model.Upload) (model.Media, error) {
	if !uploaderRe.MatchString(uploaderID) {
		return model.Media{}, invalid("INVALID_UPLOADER", "uploader id is not usable")
	}
	modelName := strings.TrimSpace(req.ModelName)
	if modelName == "" || len(modelName) > maxModelNameLen {
		return model.Media{}, invalid("INVALID_MODEL_NAME", "modelName must be 1-%d characters", maxModelNameLen)
	}
	prompt := strings.TrimSpace(req.Prompt)
	if len(prompt) > maxPromptLen {
		return model.Media{}, invalid("INVALID_PROMPT", "prompt must be at most %d characters", maxPromptLen)
	}
	if !req.AIGenerated {
		return model.Media{}, invalid("AI_CONFIRMATION_REQUIRED", "submissions must be confirmed as AI-generated")
	}
	if req.Year != nil && (*req.Year < 1900 || *req.Year > 2100) {
		return model.Media{}, invalid("INVALID_YEAR", "year must be between 1900 and 2100")
	}
	kind, ok := uploadKind(up.ContentType)
	if !ok {
		return model.Media{}, invalid("INVALID_MEDIA_TYPE", "only image and video uploads are accepted")
	}

	settings := s.settings.Snapshot(ctx)
	if !settings.UploadsEnabled {
		return model.Media{}, ErrFeatureDisabled
	}
	var maxBytes int64
	if settings.UploadMaxMB > 0 {
		maxBytes = int64(settings.UploadMaxMB) * bytesPerMB
		if up.Size > maxBytes {
			return model.Media{}, fmt.Errorf("%w: file exceeds %d MB", ErrUploadLimit, settings.UploadMaxMB)
		}
	}
	if settings.UploadMaxTotal > 0 {
		n, err := s.repo.Count(ctx)
		if err != nil {
			return model.Media{}, err
		}
		if n >= int64(settings.UploadMaxTotal) {
			return model.Media{}, fmt.Errorf("%w: uploads are capped right now", ErrUploadLimit)
		}
	}

	key := fmt.Sprintf("%s/%s/%s.%s", uploadsPrefix, uploaderID, uuid.NewString(), uploadExt(up.Filename))
	size, err := s.blobs.Put(ctx, key, up.Body, maxBytes)
	if errors.Is(err, storage.ErrTooLarge) {
		return model.Media{}, fmt.Errorf("%w: file exceeds %d MB", ErrUploadLimit, settings.UploadMaxMB)
	}
	if err != nil {
		return model.Media{}, fmt.Errorf("store upload: %w", err)
	}

	m := model.Media{
		Kind:        kind,
		AssetURL:    s.blobs.URL(key),
		ModelName:   &modelName,
		Year:        req.Year,
		AIGenerated: true,
		UploaderID:  &uploaderID,
		SizeBytes:   size,
	}
	origin := "model: " + modelName
	if prompt != "" {
		m.Prompt = &prompt
		m.Caption = &prompt
		origin += " / prompt: " + prompt
	}
	m.Origin = &origin

	created, err := s.repo.Create(ctx, m)
	if err != nil {
		if derr := s.blobs.Delete(ctx, key); derr != nil {
			s.log.Warn().Err(derr).Str("key", key).Msg("upload: orphaned blob")
		}
		return model.Media{}, err
	}
	s.log.Info().Str("media_id", created.ID).Str("kind", string(kind)).Int64("bytes", size).Msg("media submitted")
	return created, nil
}

func uploadKind(contentType string) (model.Kind, bool) {
	switch {
	case strings.HasPrefix(contentType, "video/"):
		return model.KindVideo, true
	case strings.HasPrefix(contentType, "image/"):
		return model.KindImage, true
	}
	return "", false
}

func uploadExt(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if !extRe.MatchString(ext) {
		return "bin"
	}
	return ext
}
