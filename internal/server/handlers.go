package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/slidecast/slidecast-api/internal/slideshow"
	"github.com/slidecast/slidecast-api/internal/storage"
)

// Converter runs the convert pipeline and returns the produced video path.
type Converter interface {
	Convert(ctx context.Context, input slideshow.ConvertInput) (string, error)
}

// Resizer produces an exact-fit resized copy of a remote image.
type Resizer interface {
	FitExact(ctx context.Context, url string, width, height int) (string, error)
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	converter Converter
	resizer   Resizer
	store     *storage.Local
	validator *validator.Validate
	logger    *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(converter Converter, resizer Resizer, store *storage.Local, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		converter: converter,
		resizer:   resizer,
		store:     store,
		validator: validator.New(),
		logger:    logger,
	}
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Convert handles POST /convert requests: it downloads the audio and image
// assets, assembles them into a slideshow video, and returns the video file
// as an attachment. The produced video stays in the videos directory until
// deleted via /delete.
func (h *Handlers) Convert(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("convert validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "audio_url and image_urls are required")
		return
	}

	videoPath, err := h.converter.Convert(r.Context(), slideshow.ConvertInput{
		AudioURL:  req.AudioURL,
		ImageURLs: req.ImageURLs,
	})
	if err != nil {
		h.logger.Error("convert failed",
			slog.String("error", err.Error()),
		)
		switch {
		case errors.Is(err, slideshow.ErrAudioDownload):
			writeError(w, http.StatusBadRequest, "failed to download audio file")
		case errors.Is(err, slideshow.ErrNoImages):
			writeError(w, http.StatusBadRequest, "no valid images downloaded")
		case errors.Is(err, slideshow.ErrAudioDuration):
			writeError(w, http.StatusInternalServerError, "could not determine the audio duration")
		default:
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("error during video generation: %v", err))
		}
		return
	}

	h.logger.Info("video generated",
		slog.String("path", videoPath),
	)

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(videoPath)))
	http.ServeFile(w, r, videoPath)
}

// Delete handles POST /delete and DELETE /delete requests, removing a
// previously generated video by filename.
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStatus(w, http.StatusBadRequest, "error", "filename is required")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeStatus(w, http.StatusBadRequest, "error", "filename is required")
		return
	}

	if err := h.store.DeleteVideo(req.Filename); err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidFilename), errors.Is(err, storage.ErrNotRegularFile):
			writeStatus(w, http.StatusBadRequest, "error", fmt.Sprintf("'%s' is not a valid file", req.Filename))
		case errors.Is(err, storage.ErrVideoNotFound):
			writeStatus(w, http.StatusNotFound, "error", fmt.Sprintf("video file '%s' not found", req.Filename))
		default:
			h.logger.Error("delete failed",
				slog.String("filename", req.Filename),
				slog.String("error", err.Error()),
			)
			writeStatus(w, http.StatusInternalServerError, "error", fmt.Sprintf("failed to delete video file: %v", err))
		}
		return
	}

	h.logger.Info("video deleted",
		slog.String("filename", req.Filename),
	)
	writeStatus(w, http.StatusOK, "success", fmt.Sprintf("video file '%s' has been deleted successfully", req.Filename))
}

// ResizeImage handles GET /resize-image?width=&height=&url= requests: it
// downloads the image, crops-and-scales it to the exact target dimensions,
// and returns the result. The resized file is removed once served.
func (h *Handlers) ResizeImage(w http.ResponseWriter, r *http.Request) {
	width, errW := strconv.Atoi(r.URL.Query().Get("width"))
	height, errH := strconv.Atoi(r.URL.Query().Get("height"))
	url := r.URL.Query().Get("url")

	if errW != nil || errH != nil || width <= 0 || height <= 0 || url == "" {
		writeStatus(w, http.StatusBadRequest, "error", "width, height and url are required")
		return
	}

	outPath, err := h.resizer.FitExact(r.Context(), url, width, height)
	if err != nil {
		h.logger.Error("resize failed",
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
		writeStatus(w, http.StatusInternalServerError, "error", "failed to resize image")
		return
	}
	defer func() {
		if err := os.Remove(outPath); err != nil {
			h.logger.Warn("cleanup of resized image failed",
				slog.String("path", outPath),
				slog.String("error", err.Error()),
			)
		}
	}()

	http.ServeFile(w, r, outPath)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error in the convert endpoint's {"error": ...} format.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeStatus writes a {"status": ..., "message": ...} response as used by
// the delete and resize endpoints.
func writeStatus(w http.ResponseWriter, httpStatus int, status, message string) {
	writeJSON(w, httpStatus, StatusResponse{Status: status, Message: message})
}
