package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
)

// Encoding parameters shared by every slideshow invocation. The fixed
// portrait resolution and yuv420p keep the output playable everywhere.
const (
	frameRate    = 25
	outputWidth  = 720
	outputHeight = 1280
	threadCount  = 4
	muxQueueSize = 1024
)

// ErrDurationNotFound is returned when ffmpeg's diagnostic output carries no
// recognizable duration marker.
var ErrDurationNotFound = errors.New("duration not found in ffmpeg output")

// durationRe matches ffmpeg's "Duration: HH:MM:SS.cc" diagnostic line.
var durationRe = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+(?:\.\d+)?)`)

// FFmpeg implements Prober and Encoder using the ffmpeg CLI.
type FFmpeg struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
}

// NewFFmpeg creates a new FFmpeg wrapper.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewFFmpeg(ffmpegPath string) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpeg{ffmpegPath: ffmpegPath}
}

// ProbeDuration runs ffmpeg in inspection mode (no output file) and parses
// the audio duration from its diagnostic stream. ffmpeg exits non-zero when
// no output is requested, so the exit status is ignored and only the
// presence of the duration marker decides success.
func (f *FFmpeg) ProbeDuration(ctx context.Context, path string) (float64, error) {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, f.ffmpegPath, "-i", path)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	// "At least one output file must be specified" makes this exit 1;
	// the diagnostics we need are already on stderr by then.
	runErr := cmd.Run()
	if ctx.Err() != nil {
		return 0, fmt.Errorf("ffmpeg probe cancelled: %w", ctx.Err())
	}
	if runErr != nil && stderr.Len() == 0 {
		// Nothing on stderr means ffmpeg never ran (e.g. binary not found).
		return 0, fmt.Errorf("run ffmpeg probe: %w", runErr)
	}

	return parseDuration(stderr.String())
}

// parseDuration extracts total seconds from ffmpeg diagnostic output
// containing a "Duration: HH:MM:SS.frac" marker.
func parseDuration(output string) (float64, error) {
	m := durationRe.FindStringSubmatch(output)
	if m == nil {
		return 0, ErrDurationNotFound
	}

	hours, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("parse hours: %w", err)
	}
	minutes, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, fmt.Errorf("parse minutes: %w", err)
	}
	seconds, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return 0, fmt.Errorf("parse seconds: %w", err)
	}

	return hours*3600 + minutes*60 + seconds, nil
}

// EncodeSlideshow builds and runs the encoder command line: the image
// sequence is read via the concat demuxer (absolute paths allowed), the
// audio is mixed in, and the output is H.264 at a fixed frame rate and
// portrait resolution, capped to the audio duration.
func (f *FFmpeg) EncodeSlideshow(ctx context.Context, planPath, audioPath, outPath string, duration float64) error {
	args := []string{
		"-y",           // Overwrite output file
		"-f", "concat", // Read the image sequence via the concat demuxer
		"-safe", "0", // Allow absolute paths in the sequence file
		"-i", planPath,
		"-i", audioPath,
		"-c:v", "libx264",
		"-preset", "medium",
		"-r", strconv.Itoa(frameRate),
		"-pix_fmt", "yuv420p", // Broad player compatibility
		"-vf", fmt.Sprintf("scale=%d:%d", outputWidth, outputHeight),
		"-t", strconv.FormatFloat(duration, 'f', -1, 64), // Cap to audio length
		"-threads", strconv.Itoa(threadCount),
		"-max_muxing_queue_size", strconv.Itoa(muxQueueSize), // Avoid interleaving stalls on long inputs
		outPath,
	}

	return f.runFFmpeg(ctx, args)
}

// runFFmpeg executes ffmpeg with the given arguments and returns an error
// containing stderr output if the command fails.
func (f *FFmpeg) runFFmpeg(ctx context.Context, args []string) error {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	return nil
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}
