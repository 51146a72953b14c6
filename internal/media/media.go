// Package media wraps the external ffmpeg tool for the two invocations the
// pipeline needs: probing audio duration and encoding the slideshow video.
package media

import "context"

// Prober reports metadata about a media file without producing output.
type Prober interface {
	// ProbeDuration returns the duration in seconds of the audio file at path.
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

// Encoder merges a timed image sequence with an audio track into a video.
type Encoder interface {
	// EncodeSlideshow reads the concat-demuxer script at planPath, mixes in
	// audioPath, and writes the video to outPath, capping the output length
	// to duration seconds. Any pre-existing file at outPath is overwritten.
	EncodeSlideshow(ctx context.Context, planPath, audioPath, outPath string, duration float64) error
}
