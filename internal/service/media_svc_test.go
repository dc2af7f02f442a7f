package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cursedai/cursed-go/internal/model"
)

type stubMediaStore struct {
	count   int64
	created []model.Media
	err     error
}

func (s *stubMediaStore) Create(_ context.Context, m model.Media) (model.Media, error) {
	if s.err != nil {
		return model.Media{}, s.err
	}
	m.ID = uuid.NewString()
	m.Status = model.StatusActive
	s.created = append(s.created, m)
	return m, nil
}

func (s *stubMediaStore) Count(context.Context) (int64, error) { return s.count, nil }

type memBlobs struct {
	objects map[string]string
}

func (b *memBlobs) Put(_ context.Context, key string, r io.Reader, _ int64) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	b.objects[key] = string(data)
	return int64(len(data)), nil
}

func (b *memBlobs) Delete(_ context.Context, key string) error {
	delete(b.objects, key)
	return nil
}

func (b *memBlobs) URL(key string) string { return "https://media.test/" + key }

func upload(body, contentType, name string) model.Upload {
	return model.Upload{Filename: name, ContentType: contentType, Size: int64(len(body)), Body: strings.NewReader(body)}
}

func validSubmit() model.MediaSubmitRequest {
	return model.MediaSubmitRequest{ModelName: " sora ", Prompt: "a cat with too many legs", AIGenerated: true}
}

func TestMediaService_Submit(t *testing.T) {
	store := &stubMediaStore{}
	blobs := &memBlobs{objects: map[string]string{}}
	svc := NewMediaService(store, blobs, fixedSettings(model.DefaultSettings()), zerolog.Nop())

	m, err := svc.Submit(context.Background(), "user-1", validSubmit(), upload("frames", "video/mp4", "Clip.MP4"))
	require.NoError(t, err)

	assert.Equal(t, model.KindVideo, m.Kind)
	assert.Equal(t, "sora", *m.ModelName)
	assert.Equal(t, "model: sora / prompt: a cat with too many legs", *m.Origin)
	assert.Equal(t, "a cat with too many legs", *m.Caption)
	assert.EqualValues(t, 6, m.SizeBytes)
	require.Len(t, blobs.objects, 1)
	for key := range blobs.objects {
		assert.True(t, strings.HasPrefix(key, "uploads/user-1/"), key)
		assert.True(t, strings.HasSuffix(key, ".mp4"), key)
		assert.Equal(t, "https://media.test/"+key, m.AssetURL)
	}
}

func TestMediaService_SubmitRejects(t *testing.T) {
	noAI := validSubmit()
	noAI.AIGenerated = false
	noModel := validSubmit()
	noModel.ModelName = "  "

	tests := []struct {
		name string
		uid  string
		req  model.MediaSubmitRequest
		up   model.Upload
		code string
	}{
		{"not confirmed ai", "user-1", noAI, upload("x", "image/png", "a.png"), "AI_CONFIRMATION_REQUIRED"},
		{"missing model", "user-1", noModel, upload("x", "image/png", "a.png"), "INVALID_MODEL_NAME"},
		{"not media", "user-1", validSubmit(), upload("x", "application/pdf", "a.pdf"), "INVALID_MEDIA_TYPE"},
		{"path in uploader", "../etc", validSubmit(), upload("x", "image/png", "a.png"), "INVALID_UPLOADER"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blobs := &memBlobs{objects: map[string]string{}}
			svc := NewMediaService(&stubMediaStore{}, blobs, fixedSettings(model.DefaultSettings()), zerolog.Nop())
			_, err := svc.Submit(context.Background(), tt.uid, tt.req, tt.up)
			ve, ok := IsValidation(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tt.code, ve.Code)
			assert.Empty(t, blobs.objects)
		})
	}
}

func TestMediaService_UploadGating(t *testing.T) {
	blobs := &memBlobs{objects: map[string]string{}}

	off := model.DefaultSettings()
	off.UploadsEnabled = false
	svc := NewMediaService(&stubMediaStore{}, blobs, fixedSettings(off), zerolog.Nop())
	_, err := svc.Submit(context.Background(), "u", validSubmit(), upload("x", "image/png", "a.png"))
	assert.ErrorIs(t, err, ErrFeatureDisabled)

	capped := model.DefaultSettings()
	capped.UploadMaxTotal = 10
	svc = NewMediaService(&stubMediaStore{count: 10}, blobs, fixedSettings(capped), zerolog.Nop())
	_, err = svc.Submit(context.Background(), "u", validSubmit(), upload("x", "image/png", "a.png"))
	assert.ErrorIs(t, err, ErrUploadLimit)

	small := model.DefaultSettings()
	small.UploadMaxMB = 1
	svc = NewMediaService(&stubMediaStore{}, blobs, fixedSettings(small), zerolog.Nop())
	big := model.Upload{Filename: "a.png", ContentType: "image/png", Size: 2 << 20, Body: strings.NewReader("")}
	_, err = svc.Submit(context.Background(), "u", validSubmit(), big)
	assert.ErrorIs(t, err, ErrUploadLimit)

	assert.Empty(t, blobs.objects)
}

func TestMediaService_CleansUpBlobOnInsertFailure(t *testing.T) {
	blobs := &memBlobs{objects: map[string]string{}}
	svc := NewMediaService(&stubMediaStore{err: errors.New("db down")}, blobs, fixedSettings(model.DefaultSettings()), zerolog.Nop())

	_, err := svc.Submit(context.Background(), "u", validSubmit(), upload("x", "image/png", "a.png"))
	require.Error(t, err)
	assert.Empty(t, blobs.objects)
}
