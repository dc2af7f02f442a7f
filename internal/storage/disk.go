package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrTooLarge is returned by Put when the body exceeds maxBytes.
	ErrTooLarge = errors.New("object too large")
	// ErrBadKey rejects keys that would escape the root.
	ErrBadKey = errors.New("invalid object key")
)

// Disk is a blob store rooted at a local directory and served under baseURL.
type Disk struct {
	root    string
	baseURL string
}

// NewDisk creates root if needed. baseURL is the public prefix objects are served from.
func NewDisk(root, baseURL string) (*Disk, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}
	return &Disk{root: abs, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root returns the directory objects are written under.
func (d *Disk) Root() string { return d.root }

// Ping checks that the root is still a writable directory.
func (d *Disk) Ping(context.Context) error {
	f, err := os.CreateTemp(d.root, ".ping-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func (d *Disk) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == "." || strings.HasPrefix(clean, "..") {
		return "", ErrBadKey
	}
	return filepath.Join(d.root, clean), nil
}

// Put writes r to key. A non-positive maxBytes means no limit.
func (d *Disk) Put(ctx context.Context, key string, r io.Reader, maxBytes int64) (int64, error) {
	p, err := d.path(key)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}
	n, err := io.Copy(tmp, src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, err
	}
	if maxBytes > 0 && n > maxBytes {
		return 0, ErrTooLarge
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return 0, err
	}
	return n, nil
}

// Open returns a reader for key.
func (d *Disk) Open(key string) (io.ReadCloser, error) {
	p, err := d.path(key)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

// Delete removes key. Missing objects are not an error.
func (d *Disk) Delete(_ context.Context, key string) error {
	p, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// DeletePrefix removes every object under prefix and returns how many files went.
func (d *Disk) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	dir, err := d.path(prefix)
	if err != nil {
		return 0, err
	}
	n := 0
	err = filepath.WalkDir(dir, func(p string, e fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if !e.IsDir() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if err := os.RemoveAll(dir); err != nil {
		return 0, err
	}
	return n, nil
}

// URL returns the public URL of key.
func (d *Disk) URL(key string) string {
	return d.baseURL + "/" + strings.TrimLeft(key, "/")
}

// KeyFor maps a public URL back to a key, if it points into this store.
func (d *Disk) KeyFor(assetURL string) (string, bool) {
	prefix := d.baseURL + "/"
	if !strings.HasPrefix(assetURL, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(assetURL, prefix)
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	return key, key != ""
}
