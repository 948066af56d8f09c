// Package fetch reads remote module sources over http(s), with an optional
// on-disk body cache so repeated transforms of the same remote graph do not
// re-download. Cached bodies are stored zstd-compressed.
package fetch

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/blake2b"

	"remod/internal/logging"
)

// Fetcher downloads module sources.
type Fetcher struct {
	client    *http.Client
	cacheDir  string // empty disables the body cache
	userAgent string
	logger    *logging.Logger
}

// New creates a Fetcher. cacheDir may be empty to disable body caching.
func New(timeout time.Duration, cacheDir, userAgent string, logger *logging.Logger) *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		cacheDir:  cacheDir,
		userAgent: userAgent,
		logger:    logger,
	}
}

// Fetch returns the body of a remote module. Cache hits never touch the
// network. A non-2xx status is a fetch failure: the engine treats it as
// terminal for that module.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if f.cacheDir != "" {
		if body, ok := f.readCached(url); ok {
			f.logger.Debug("Remote fetch cache hit", map[string]interface{}{"url": url})
			return body, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("invalid url %s: %w", url, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("failed to fetch %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", url, err)
	}

	if f.cacheDir != "" {
		if err := f.writeCached(url, body); err != nil {
			f.logger.Warn("Failed to cache remote body", map[string]interface{}{
				"url":   url,
				"error": err.Error(),
			})
		}
	}

	return string(body), nil
}

func (f *Fetcher) cachePath(url string) string {
	sum := blake2b.Sum256([]byte(url))
	return filepath.Join(f.cacheDir, "remote", hex.EncodeToString(sum[:])+".zst")
}

func (f *Fetcher) readCached(url string) (string, bool) {
	data, err := os.ReadFile(f.cachePath(url))
	if err != nil {
		return "", false
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return "", false
	}
	defer dec.Close()

	body, err := dec.DecodeAll(data, nil)
	if err != nil {
		return "", false
	}
	return string(body), true
}

func (f *Fetcher) writeCached(url string, body []byte) error {
	path := f.cachePath(url)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return err
	}
	compressed := enc.EncodeAll(body, nil)
	if err := enc.Close(); err != nil {
		return err
	}

	return os.WriteFile(path, compressed, 0644)
}
