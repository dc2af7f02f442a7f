package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/valyala/fasthttp"
)

const (
	defaultFetchTimeout = 10 * time.Second
	maxAssetBytes       = 512 << 20
)

// Fetcher downloads export assets. URLs served by the local disk store are
// read straight from disk.
type Fetcher struct {
	client *fasthttp.Client
	local  *Disk
}

func NewFetcher(local *Disk) *Fetcher {
	return &Fetcher{
		client: &fasthttp.Client{
			Name:                "cursed-export",
			MaxResponseBodySize: maxAssetBytes,
			ReadTimeout:         defaultFetchTimeout,
			WriteTimeout:        defaultFetchTimeout,
		},
		local: local,
	}
}

// Fetch returns the body at assetURL. The ctx deadline bounds the request.
func (f *Fetcher) Fetch(ctx context.Context, assetURL string) ([]byte, error) {
	if f.local != nil {
		if key, ok := f.local.KeyFor(assetURL); ok {
			rc, err := f.local.Open(key)
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(io.LimitReader(rc, maxAssetBytes))
		}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(assetURL)
	req.Header.SetMethod(fasthttp.MethodGet)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultFetchTimeout)
	}
	if err := f.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", assetURL, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return nil, fmt.Errorf("fetch %s: status %d", assetURL, code)
	}
	return append([]byte(nil), resp.Body()...), nil
}
