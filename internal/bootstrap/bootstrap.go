// Package bootstrap provides dependency initialization for the slideshow API.
package bootstrap

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/slidecast/slidecast-api/internal/config"
	"github.com/slidecast/slidecast-api/internal/fetch"
	"github.com/slidecast/slidecast-api/internal/imageproc"
	"github.com/slidecast/slidecast-api/internal/media"
	"github.com/slidecast/slidecast-api/internal/slideshow"
	"github.com/slidecast/slidecast-api/internal/storage"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	ConvertService *slideshow.Service
	ImageProcessor *imageproc.Processor
	Store          *storage.Local
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	store, err := storage.NewLocal(cfg.UploadDir, cfg.VideoDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("upload_dir", store.UploadDir()),
		slog.String("video_dir", store.VideoDir()),
	)

	httpClient := &http.Client{Timeout: cfg.FetchTimeout}

	processor := imageproc.NewProcessor(store.UploadDir(), imageproc.WithHTTPClient(httpClient))
	fetcher := fetch.New(store.UploadDir(), processor, fetch.WithHTTPClient(httpClient))
	ffmpeg := media.NewFFmpeg(cfg.FFmpegPath)

	svc := slideshow.NewService(
		fetcher,
		ffmpeg,
		ffmpeg,
		store,
		logger,
		slideshow.WithEncodeTimeout(cfg.EncodeTimeout),
		slideshow.WithMaxConcurrentFetches(cfg.MaxConcurrentFetches),
	)

	return &Dependencies{
		ConvertService: svc,
		ImageProcessor: processor,
		Store:          store,
	}, nil
}
