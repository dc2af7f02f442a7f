package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDisk(t *testing.T) *Disk {
	t.Helper()
	d, err := NewDisk(t.TempDir(), "http://localhost:8080/media/")
	require.NoError(t, err)
	return d
}

func TestDisk_PutOpenDelete(t *testing.T) {
	d := newDisk(t)
	ctx := context.Background()

	n, err := d.Put(ctx, "uploads/u1/a.png", strings.NewReader("pixels"), 0)
	require.NoError(t, err)
	assert.EqualValues(t, 6, n)

	rc, err := d.Open("uploads/u1/a.png")
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "pixels", string(body))

	assert.Equal(t, "http://localhost:8080/media/uploads/u1/a.png", d.URL("uploads/u1/a.png"))

	require.NoError(t, d.Delete(ctx, "uploads/u1/a.png"))
	require.NoError(t, d.Delete(ctx, "uploads/u1/a.png"), "deleting twice is fine")
	_, err = os.Stat(filepath.Join(d.Root(), "uploads", "u1", "a.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestDisk_PutEnforcesLimit(t *testing.T) {
	d := newDisk(t)

	_, err := d.Put(context.Background(), "uploads/u1/big.bin", strings.NewReader("0123456789"), 4)
	assert.ErrorIs(t, err, ErrTooLarge)
	_, err = d.Open("uploads/u1/big.bin")
	assert.Error(t, err, "oversized uploads leave nothing behind")

	n, err := d.Put(context.Background(), "uploads/u1/ok.bin", strings.NewReader("0123"), 4)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
}

func TestDisk_RejectsEscapingKeys(t *testing.T) {
	d := newDisk(t)
	for _, key := range []string{"", "../x", "/etc/passwd", "uploads/../../x"} {
		_, err := d.Put(context.Background(), key, strings.NewReader("x"), 0)
		assert.ErrorIs(t, err, ErrBadKey, key)
	}
}

func TestDisk_DeletePrefix(t *testing.T) {
	d := newDisk(t)
	ctx := context.Background()
	for _, key := range []string{"uploads/a/1.png", "uploads/a/2.png", "uploads/b/3.mp4", "keep/4.png"} {
		_, err := d.Put(ctx, key, strings.NewReader("x"), 0)
		require.NoError(t, err)
	}

	n, err := d.DeletePrefix(ctx, "uploads")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = d.Open("keep/4.png")
	assert.NoError(t, err)

	n, err = d.DeletePrefix(ctx, "uploads")
	require.NoError(t, err)
	assert.Zero(t, n, "missing prefix is empty")
}

func TestDisk_KeyFor(t *testing.T) {
	d := newDisk(t)

	key, ok := d.KeyFor("http://localhost:8080/media/uploads/u/a.png?v=2")
	assert.True(t, ok)
	assert.Equal(t, "uploads/u/a.png", key)

	_, ok = d.KeyFor("https://elsewhere.example/uploads/u/a.png")
	assert.False(t, ok)
}

func TestFetcher_ReadsLocalAssets(t *testing.T) {
	d := newDisk(t)
	_, err := d.Put(context.Background(), "uploads/u/a.png", strings.NewReader("local"), 0)
	require.NoError(t, err)

	body, err := NewFetcher(d).Fetch(context.Background(), d.URL("uploads/u/a.png"))
	require.NoError(t, err)
	assert.Equal(t, "local", string(body))
}

func TestDisk_Ping(t *testing.T) {
	d := newDisk(t)
	require.NoError(t, d.Ping(context.Background()))
	entries, err := os.ReadDir(d.Root())
	require.NoError(t, err)
	assert.Empty(t, entries, "ping leaves nothing behind")

	require.NoError(t, os.RemoveAll(d.Root()))
	assert.Error(t, d.Ping(context.Background()))
}
