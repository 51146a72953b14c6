// Package fetch downloads remote assets over HTTP into local storage.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Static errors for fetch operations.
var (
	// ErrBadStatus is returned when the remote server responds with a non-2xx status.
	ErrBadStatus = errors.New("unexpected HTTP status")
)

// imageExtensions are the extensions that trigger post-download normalization.
var imageExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"webp": true,
}

// IsImageExtension reports whether ext names a supported image type.
func IsImageExtension(ext string) bool {
	return imageExtensions[ext]
}

// Normalizer prepares a downloaded image file for encoding.
type Normalizer interface {
	// EnsureEvenDimensions rewrites the image in place so both pixel
	// dimensions are even, as required by the H.264 encoder.
	EnsureEvenDimensions(path string) error
}

// Fetcher downloads remote resources into a target directory, assigning each
// file a UUID-based name so concurrent requests cannot collide.
type Fetcher struct {
	client     *http.Client
	uploadDir  string
	normalizer Normalizer
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the HTTP client used for downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithTimeout sets the per-download timeout on the default client.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.client.Timeout = d
		}
	}
}

// New creates a Fetcher that stores downloads under uploadDir.
// The normalizer is applied to every downloaded image file; it may be nil,
// in which case images are stored as received.
func New(uploadDir string, normalizer Normalizer, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:     &http.Client{Timeout: 60 * time.Second},
		uploadDir:  uploadDir,
		normalizer: normalizer,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads the resource at url into the upload directory, streaming
// the body to disk, and returns the local path. The stored filename is
// "<uuid>.<ext>". When ext names an image type, the file is normalized to
// even pixel dimensions before the path is returned.
//
// Any network error, non-2xx status, write error, or normalization failure
// returns an error with no file left behind; callers decide whether that is
// fatal (audio) or a per-item skip (image).
func (f *Fetcher) Fetch(ctx context.Context, url, ext string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %d from %s", ErrBadStatus, resp.StatusCode, url)
	}

	filename := fmt.Sprintf("%s.%s", uuid.NewString(), ext)
	path := filepath.Join(f.uploadDir, filename)

	if err := f.writeBody(path, resp.Body); err != nil {
		return "", err
	}

	if f.normalizer != nil && IsImageExtension(ext) {
		if err := f.normalizer.EnsureEvenDimensions(path); err != nil {
			_ = os.Remove(path)
			return "", fmt.Errorf("normalize image: %w", err)
		}
	}

	return path, nil
}

// writeBody streams body to path, removing the partial file on failure.
func (f *Fetcher) writeBody(path string, body io.Reader) error {
	out, err := os.Create(path) // #nosec G304 - path is built from a generated UUID
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	if _, err := io.Copy(out, body); err != nil {
		_ = out.Close()
		_ = os.Remove(path)
		return fmt.Errorf("write file: %w", err)
	}

	if err := out.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("close file: %w", err)
	}

	return nil
}
