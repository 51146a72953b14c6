// Package sequence builds the timed image plan that drives the video's
// visual track and serializes it for ffmpeg's concat demuxer.
package sequence

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ImageDisplaySeconds is the fixed display duration of every image.
const ImageDisplaySeconds = 3

// ErrNoImages is returned when a plan is requested for an empty image list.
var ErrNoImages = errors.New("no images to plan")

// Plan returns the ordered image list to display, with each image shown for
// ImageDisplaySeconds. When the supplied images cannot cover duration, the
// whole list is repeated floor(duration/3)+1 times. The result may cover
// more than duration; the encoder caps the final video to the audio length,
// so over-provisioning is harmless.
func Plan(images []string, duration float64) []string {
	if float64(len(images)*ImageDisplaySeconds) >= duration {
		return images
	}

	repeat := int(duration/ImageDisplaySeconds) + 1
	planned := make([]string, 0, len(images)*repeat)
	for i := 0; i < repeat; i++ {
		planned = append(planned, images...)
	}
	return planned
}

// WriteFile serializes a plan into a concat-demuxer script in dir and
// returns its path. Each entry is an absolute, quote-escaped file line
// followed by its display duration:
//
//	file '/abs/path/to/image.jpg'
//	duration 3
func WriteFile(plan []string, dir string) (string, error) {
	if len(plan) == 0 {
		return "", ErrNoImages
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_sequence.txt", uuid.NewString()))

	var b strings.Builder
	for _, img := range plan {
		absPath, err := filepath.Abs(img)
		if err != nil {
			return "", fmt.Errorf("get absolute path for %s: %w", img, err)
		}
		// Escape single quotes so paths with spaces or quotes survive.
		escaped := strings.ReplaceAll(absPath, "'", "'\\''")
		fmt.Fprintf(&b, "file '%s'\n", escaped)
		fmt.Fprintf(&b, "duration %d\n", ImageDisplaySeconds)
	}

	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return "", fmt.Errorf("write sequence file: %w", err)
	}

	return path, nil
}
