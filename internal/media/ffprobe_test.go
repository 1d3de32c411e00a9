package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFFprobe writes a shell script standing in for ffprobe and returns its path.
func fakeFFprobe(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "ffprobe")
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

// skipIfNoFFmpeg skips the test if ffmpeg or ffprobe is not available.
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not found in PATH, skipping test", bin)
		}
	}
}

// createTestVideo creates a simple test video using ffmpeg.
func createTestVideo(t *testing.T, path string, duration float64) {
	t.Helper()

	cmd := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=blue:s=64x64:d=%.1f", duration),
		"-c:v", "libx264",
		"-preset", "ultrafast",
		path,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to create test video: %v\noutput: %s", err, output)
	}
}

func TestNewFFprobe(t *testing.T) {
	t.Run("default path", func(t *testing.T) {
		p := NewFFprobe("")
		assert.Equal(t, "ffprobe", p.path)
	})

	t.Run("custom path", func(t *testing.T) {
		p := NewFFprobe("/usr/local/bin/ffprobe")
		assert.Equal(t, "/usr/local/bin/ffprobe", p.path)
	})
}

func TestFFprobe_ProbeDuration_FakeBinary(t *testing.T) {
	ctx := context.Background()

	t.Run("parses duration", func(t *testing.T) {
		p := NewFFprobe(fakeFFprobe(t, `echo "12.345000"`))

		d, err := p.ProbeDuration(ctx, "/videos/clip.mp4")
		require.NoError(t, err)
		assert.InDelta(t, 12.345, d, 1e-9)
	})

	t.Run("passes the path as last argument", func(t *testing.T) {
		p := NewFFprobe(fakeFFprobe(t, `for last; do :; done; [ "$last" = "/videos/exact.mp4" ] && echo 3.0 || exit 9`))

		d, err := p.ProbeDuration(ctx, "/videos/exact.mp4")
		require.NoError(t, err)
		assert.InDelta(t, 3.0, d, 1e-9)
	})

	t.Run("non-zero exit yields ProbeError with stderr", func(t *testing.T) {
		p := NewFFprobe(fakeFFprobe(t, `echo "moov atom not found" >&2; exit 1`))

		_, err := p.ProbeDuration(ctx, "/videos/broken.mp4")
		require.Error(t, err)

		var probeErr *ProbeError
		require.True(t, errors.As(err, &probeErr))
		assert.Contains(t, probeErr.Stderr, "moov atom not found")
		assert.Contains(t, err.Error(), "moov atom not found")
	})

	t.Run("N/A is invalid", func(t *testing.T) {
		p := NewFFprobe(fakeFFprobe(t, `echo "N/A"`))

		_, err := p.ProbeDuration(ctx, "/videos/still.png")
		assert.ErrorIs(t, err, ErrInvalidDuration)
	})

	t.Run("garbage output fails to parse", func(t *testing.T) {
		p := NewFFprobe(fakeFFprobe(t, `echo "not-a-number"`))

		_, err := p.ProbeDuration(ctx, "/videos/clip.mp4")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse duration")
	})

	t.Run("context cancellation", func(t *testing.T) {
		p := NewFFprobe(fakeFFprobe(t, `exec sleep 5`))
		cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()

		_, err := p.ProbeDuration(cctx, "/videos/slow.mp4")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := NewFFprobe("").ProbeDuration(ctx, "")
		assert.ErrorIs(t, err, ErrEmptyPath)
	})
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    float64
		wantErr bool
	}{
		{"plain", "4.500000", 4.5, false},
		{"trailing newline", "10.0\n", 10, false},
		{"first line wins", "7.25\n8.0\n", 7.25, false},
		{"zero", "0.000000", 0, false},
		{"empty", "", 0, true},
		{"n/a", "N/A", 0, true},
		{"negative", "-1.0", 0, true},
		{"infinite", "inf", 0, true},
		{"nan", "NaN", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDuration(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestFFprobe_ProbeDuration_RealVideo(t *testing.T) {
	skipIfNoFFmpeg(t)

	path := filepath.Join(t.TempDir(), "two_seconds.mp4")
	createTestVideo(t, path, 2.0)

	d, err := NewFFprobe("").ProbeDuration(context.Background(), path)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, d, 0.2)
}

func TestFFprobe_ProbeDuration_NotAVideo(t *testing.T) {
	skipIfNoFFmpeg(t)

	path := filepath.Join(t.TempDir(), "notes.mp4")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a video"), 0o600))

	_, err := NewFFprobe("").ProbeDuration(context.Background(), path)
	assert.Error(t, err)
}
