package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// skipIfNoFFmpeg skips the test if ffmpeg is not available.
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH, skipping test")
	}
}

// createTestAudio synthesizes a silent audio file of the given length.
func createTestAudio(t *testing.T, path string, seconds float64) {
	t.Helper()

	cmd := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("anullsrc=r=44100:cl=mono:d=%.1f", seconds),
		path,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to create test audio: %v\noutput: %s", err, output)
	}
}

// createTestImage creates a simple solid color image using ffmpeg.
func createTestImage(t *testing.T, path string, width, height int) {
	t.Helper()

	cmd := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=red:s=%dx%d:d=1", width, height),
		"-frames:v", "1",
		path,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to create test image: %v\noutput: %s", err, output)
	}
}

func TestNewFFmpeg(t *testing.T) {
	t.Run("default path", func(t *testing.T) {
		f := NewFFmpeg("")
		assert.Equal(t, "ffmpeg", f.ffmpegPath)
	})

	t.Run("custom path", func(t *testing.T) {
		f := NewFFmpeg("/usr/local/bin/ffmpeg")
		assert.Equal(t, "/usr/local/bin/ffmpeg", f.ffmpegPath)
	})
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   float64
	}{
		{
			name:   "minute and fraction",
			output: "Input #0, mp3, from 'x.mp3':\n  Duration: 00:01:30.50, start: 0.000000, bitrate: 128 kb/s",
			want:   90.5,
		},
		{
			name:   "hours",
			output: "  Duration: 01:02:03.00, start: 0.0",
			want:   3723,
		},
		{
			name:   "seconds only",
			output: "  Duration: 00:00:07.25, start: 0.0",
			want:   7.25,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDuration(tt.output)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 0.0001)
		})
	}

	t.Run("missing marker", func(t *testing.T) {
		_, err := parseDuration("some unrelated ffmpeg noise")
		assert.ErrorIs(t, err, ErrDurationNotFound)
	})

	t.Run("empty output", func(t *testing.T) {
		_, err := parseDuration("")
		assert.ErrorIs(t, err, ErrDurationNotFound)
	})
}

func TestProbeDuration(t *testing.T) {
	skipIfNoFFmpeg(t)

	tmpDir := t.TempDir()
	f := NewFFmpeg("")

	t.Run("probes synthesized audio", func(t *testing.T) {
		audio := filepath.Join(tmpDir, "probe.wav")
		createTestAudio(t, audio, 3.0)

		got, err := f.ProbeDuration(context.Background(), audio)
		require.NoError(t, err)
		assert.InDelta(t, 3.0, got, 0.2)
	})

	t.Run("missing file has no duration", func(t *testing.T) {
		_, err := f.ProbeDuration(context.Background(), filepath.Join(tmpDir, "nope.wav"))
		assert.ErrorIs(t, err, ErrDurationNotFound)
	})
}

func TestEncodeSlideshow(t *testing.T) {
	skipIfNoFFmpeg(t)

	tmpDir := t.TempDir()
	f := NewFFmpeg("")
	ctx := context.Background()

	audio := filepath.Join(tmpDir, "track.wav")
	createTestAudio(t, audio, 2.0)

	img := filepath.Join(tmpDir, "frame.jpg")
	createTestImage(t, img, 64, 64)

	plan := filepath.Join(tmpDir, "sequence.txt")
	content := fmt.Sprintf("file '%s'\nduration 3\n", img)
	require.NoError(t, os.WriteFile(plan, []byte(content), 0600))

	t.Run("produces a video file", func(t *testing.T) {
		out := filepath.Join(tmpDir, "out.mp4")

		err := f.EncodeSlideshow(ctx, plan, audio, out, 2.0)
		require.NoError(t, err)

		info, err := os.Stat(out)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	})

	t.Run("missing plan file is a hard failure", func(t *testing.T) {
		out := filepath.Join(tmpDir, "fail.mp4")

		err := f.EncodeSlideshow(ctx, filepath.Join(tmpDir, "missing.txt"), audio, out, 2.0)
		require.Error(t, err)

		var ffErr *FFmpegError
		assert.ErrorAs(t, err, &ffErr)
		assert.NotEmpty(t, ffErr.Stderr)
	})
}
