// Package slideshow orchestrates the convert pipeline: fetch assets, probe
// the audio duration, plan the image sequence, and invoke the encoder, with
// unconditional cleanup of every intermediate file.
package slideshow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/slidecast/slidecast-api/internal/media"
	"github.com/slidecast/slidecast-api/internal/sequence"
	"github.com/slidecast/slidecast-api/internal/storage"
)

// Static errors for the convert pipeline. Handlers map these to HTTP statuses.
var (
	// ErrAudioDownload is returned when the audio asset cannot be fetched.
	ErrAudioDownload = errors.New("failed to download audio file")
	// ErrNoImages is returned when no image asset could be fetched.
	ErrNoImages = errors.New("no valid images downloaded")
	// ErrAudioDuration is returned when the audio duration cannot be determined.
	ErrAudioDuration = errors.New("could not determine audio duration")
)

// Fetcher downloads a remote resource into local storage.
type Fetcher interface {
	Fetch(ctx context.Context, url, ext string) (string, error)
}

// ConvertInput contains the parameters for one convert request.
type ConvertInput struct {
	// AudioURL is the source URL of the audio track.
	AudioURL string
	// ImageURLs are the source URLs of the slideshow images, in display order.
	ImageURLs []string
}

// Service runs the convert pipeline. Each call is independent; the only
// shared state is the managed directory namespace, collision-avoided by
// UUID filenames.
type Service struct {
	fetcher Fetcher
	prober  media.Prober
	encoder media.Encoder
	store   *storage.Local
	logger  *slog.Logger

	// encodeTimeout bounds the encoder child process.
	encodeTimeout time.Duration
	// maxConcurrentFetches limits parallel image downloads per request.
	maxConcurrentFetches int
}

// Option configures a Service.
type Option func(*Service)

// WithEncodeTimeout bounds the duration of one encoder invocation.
func WithEncodeTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.encodeTimeout = d
		}
	}
}

// WithMaxConcurrentFetches limits parallel image downloads per request.
func WithMaxConcurrentFetches(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxConcurrentFetches = n
		}
	}
}

// NewService creates a Service with the given collaborators.
func NewService(fetcher Fetcher, prober media.Prober, encoder media.Encoder, store *storage.Local, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		fetcher:              fetcher,
		prober:               prober,
		encoder:              encoder,
		store:                store,
		logger:               logger,
		encodeTimeout:        10 * time.Minute,
		maxConcurrentFetches: 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Convert runs the full pipeline and returns the path of the produced video
// inside the videos directory. Every intermediate file (audio, images,
// sequence plan) is removed before Convert returns, on success and on every
// failure path; only the output video outlives the request.
func (s *Service) Convert(ctx context.Context, input ConvertInput) (string, error) {
	var tempPaths []string
	defer func() {
		s.store.Cleanup(s.logger, tempPaths)
	}()

	audioPath, err := s.fetcher.Fetch(ctx, input.AudioURL, "mp3")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAudioDownload, err)
	}
	tempPaths = append(tempPaths, audioPath)

	imagePaths := s.fetchImages(ctx, input.ImageURLs)
	tempPaths = append(tempPaths, imagePaths...)

	if len(imagePaths) == 0 {
		return "", ErrNoImages
	}

	duration, err := s.prober.ProbeDuration(ctx, audioPath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAudioDuration, err)
	}
	if duration == 0 {
		return "", ErrAudioDuration
	}

	plan := sequence.Plan(imagePaths, duration)
	planPath, err := sequence.WriteFile(plan, s.store.UploadDir())
	if err != nil {
		return "", fmt.Errorf("write sequence plan: %w", err)
	}
	tempPaths = append(tempPaths, planPath)

	outPath := s.store.VideoPath(fmt.Sprintf("%s_output.mp4", uuid.NewString()))

	s.logger.Info("encoding slideshow",
		slog.Int("images", len(imagePaths)),
		slog.Int("planned_entries", len(plan)),
		slog.Float64("duration_sec", duration),
		slog.String("output", outPath),
	)

	// Once the encoder starts, an aborted client connection must not stop
	// the encode; only the configured timeout bounds it.
	encodeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.encodeTimeout)
	defer cancel()

	if err := s.encoder.EncodeSlideshow(encodeCtx, planPath, audioPath, outPath, duration); err != nil {
		return "", fmt.Errorf("encode slideshow: %w", err)
	}

	return outPath, nil
}

// fetchImages downloads the images with bounded concurrency, preserving the
// request order in the returned list. Individual failures are logged and the
// image is skipped; the sequence plan stays deterministic because results are
// gathered by index.
func (s *Service) fetchImages(ctx context.Context, urls []string) []string {
	results := make([]string, len(urls))
	sem := make(chan struct{}, s.maxConcurrentFetches)

	var wg sync.WaitGroup
	for i, url := range urls {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			path, err := s.fetcher.Fetch(ctx, url, "jpg")
			if err != nil {
				s.logger.Warn("image download skipped",
					slog.String("url", url),
					slog.String("error", err.Error()),
				)
				return
			}
			results[i] = path
		}(i, url)
	}
	wg.Wait()

	paths := make([]string, 0, len(urls))
	for _, p := range results {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}
