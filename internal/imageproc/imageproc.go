// Package imageproc provides the image operations backing the pipeline:
// even-dimension fixup for codec compatibility and exact-fit resizing.
package imageproc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	// Register the webp decoder; imaging handles the other formats.
	_ "golang.org/x/image/webp"
)

// Static errors for image operations.
var (
	// ErrInvalidDimensions is returned when the provided dimensions are not positive.
	ErrInvalidDimensions = errors.New("invalid dimensions: width and height must be positive")
	// ErrBadStatus is returned when an image download yields a non-2xx status.
	ErrBadStatus = errors.New("unexpected HTTP status")
)

// Processor implements the image normalizer operations using the imaging
// library. Output files are written into uploadDir under UUID-based names.
type Processor struct {
	client    *http.Client
	uploadDir string
}

// Option configures a Processor.
type Option func(*Processor)

// WithHTTPClient overrides the HTTP client used for image downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Processor) {
		if c != nil {
			p.client = c
		}
	}
}

// NewProcessor creates a Processor writing outputs under uploadDir.
func NewProcessor(uploadDir string, opts ...Option) *Processor {
	p := &Processor{
		client:    &http.Client{Timeout: 60 * time.Second},
		uploadDir: uploadDir,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// EnsureEvenDimensions rewrites the image at path so both width and height
// are even, rounding each odd dimension up by one pixel. The one-pixel
// stretch is a deliberate distortion: H.264 with yuv420p requires dimensions
// divisible by 2. Images that are already even are left untouched.
func (p *Processor) EnsureEvenDimensions(path string) error {
	img, err := imaging.Open(path)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	evenW, evenH := roundUpToEven(width), roundUpToEven(height)
	if evenW == width && evenH == height {
		return nil
	}

	resized := imaging.Resize(img, evenW, evenH, imaging.Lanczos)
	if err := imaging.Save(resized, path); err != nil {
		return fmt.Errorf("save image: %w", err)
	}

	return nil
}

// FitExact downloads the image at url and crops-and-scales it to exactly
// width x height: the image is scaled to fill the target box preserving
// aspect ratio, excess content is cropped centered on both axes, and the
// result is resampled with the Lanczos filter. The output keeps the source
// format when it is encodable, falling back to JPEG otherwise, and is
// written to a uniquely named file in the upload directory.
func (p *Processor) FitExact(ctx context.Context, url string, width, height int) (string, error) {
	if width <= 0 || height <= 0 {
		return "", fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, width, height)
	}

	data, err := p.download(ctx, url)
	if err != nil {
		return "", err
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	fitted := imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)

	// imaging.Save infers the encoder from the extension.
	ext := outputExtension(format)
	outPath := filepath.Join(p.uploadDir, fmt.Sprintf("%s_resized.%s", uuid.NewString(), ext))

	if err := imaging.Save(fitted, outPath, imaging.JPEGQuality(95)); err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}

	return outPath, nil
}

// download fetches url into memory.
func (p *Processor) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d from %s", ErrBadStatus, resp.StatusCode, url)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return data, nil
}

// outputExtension maps a decoded format name to the output file extension.
// Formats the imaging library cannot encode (webp) fall back to JPEG.
func outputExtension(decoded string) string {
	switch decoded {
	case "png":
		return "png"
	case "gif":
		return "gif"
	case "bmp":
		return "bmp"
	case "tiff":
		return "tif"
	default:
		return "jpg"
	}
}

// roundUpToEven rounds n up to the nearest even integer.
func roundUpToEven(n int) int {
	if n%2 != 0 {
		return n + 1
	}
	return n
}
