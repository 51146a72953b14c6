// Package storage manages the two on-disk directories used by the service:
// a transient uploads directory for downloaded assets and sequence-plan files,
// and a durable videos directory for encoder output.
package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Static errors for storage operations.
var (
	// ErrVideoNotFound is returned when the requested video file does not exist.
	ErrVideoNotFound = errors.New("video file not found")
	// ErrNotRegularFile is returned when the delete target is not a regular file.
	ErrNotRegularFile = errors.New("not a regular file")
	// ErrInvalidFilename is returned when a filename is empty or contains path components.
	ErrInvalidFilename = errors.New("invalid filename")
)

// Local manages the uploads and videos directories on local disk.
// Filenames within the directories are collision-avoided by the callers
// (UUID-based names), so no locking is needed.
type Local struct {
	uploadDir string
	videoDir  string
}

// NewLocal creates a Local store, creating both directories if absent.
func NewLocal(uploadDir, videoDir string) (*Local, error) {
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	if videoDir == "" {
		videoDir = "videos"
	}

	if err := os.MkdirAll(uploadDir, 0750); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	if err := os.MkdirAll(videoDir, 0750); err != nil {
		return nil, fmt.Errorf("create video directory: %w", err)
	}

	return &Local{uploadDir: uploadDir, videoDir: videoDir}, nil
}

// UploadDir returns the uploads directory path.
func (s *Local) UploadDir() string {
	return s.uploadDir
}

// VideoDir returns the videos directory path.
func (s *Local) VideoDir() string {
	return s.videoDir
}

// UploadPath joins name into the uploads directory.
func (s *Local) UploadPath(name string) string {
	return filepath.Join(s.uploadDir, name)
}

// VideoPath joins name into the videos directory.
func (s *Local) VideoPath(name string) string {
	return filepath.Join(s.videoDir, name)
}

// SanitizeFilename reduces a user-supplied filename to its base name.
// It returns ErrInvalidFilename when the name is empty or carries directory
// components, so a traversal attempt like "../../etc/passwd" is rejected
// outright instead of being silently rewritten.
func SanitizeFilename(name string) (string, error) {
	if name == "" {
		return "", ErrInvalidFilename
	}
	// Normalize both separator styles before taking the base name.
	cleaned := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if cleaned != name || cleaned == "." || cleaned == ".." || cleaned == string(filepath.Separator) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	return cleaned, nil
}

// DeleteVideo removes a previously generated video by filename.
// The filename is sanitized against directory traversal before the path is
// constructed. Returns ErrVideoNotFound if the file is absent and
// ErrNotRegularFile if the target exists but is not a regular file.
func (s *Local) DeleteVideo(filename string) error {
	name, err := SanitizeFilename(filename)
	if err != nil {
		return err
	}

	path := filepath.Join(s.videoDir, name)

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrVideoNotFound, name)
		}
		return fmt.Errorf("stat video file: %w", err)
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrNotRegularFile, name)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove video file: %w", err)
	}

	return nil
}

// Cleanup removes the given files, ignoring those that no longer exist.
// Failures are logged and never returned so that cleanup cannot mask the
// error that ended the request.
func (s *Local) Cleanup(logger *slog.Logger, paths []string) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			logger.Warn("cleanup failed",
				slog.String("path", p),
				slog.String("error", err.Error()),
			)
		}
	}
}
