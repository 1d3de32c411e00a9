package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// Static errors for media operations.
var (
	// ErrEmptyPath is returned when no file path is given.
	ErrEmptyPath = errors.New("media path is empty")
	// ErrInvalidDuration is returned when ffprobe reports a value that is not
	// a finite, non-negative number of seconds.
	ErrInvalidDuration = errors.New("invalid duration reported")
)

// Compile-time check that FFprobe implements DurationProber.
var _ DurationProber = (*FFprobe)(nil)

// FFprobe implements DurationProber using the ffprobe CLI.
type FFprobe struct {
	// path is the path to the ffprobe binary. Defaults to "ffprobe".
	path string
}

// NewFFprobe creates a new FFprobe.
// If path is empty, it defaults to "ffprobe" (found via PATH).
func NewFFprobe(path string) *FFprobe {
	if path == "" {
		path = "ffprobe"
	}
	return &FFprobe{path: path}
}

// ProbeDuration returns the duration in seconds of a media file.
// It reads the container-level duration from ffprobe's format section.
func (p *FFprobe) ProbeDuration(ctx context.Context, path string) (float64, error) {
	if path == "" {
		return 0, ErrEmptyPath
	}

	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	// #nosec G204 - binary path is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.path, args...)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return 0, &ProbeError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	return parseDuration(stdout.String())
}

// parseDuration reads the first line of ffprobe output as seconds.
func parseDuration(out string) (float64, error) {
	line := strings.TrimSpace(out)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}

	// ffprobe prints N/A for streams without a known duration.
	if line == "" || line == "N/A" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, line)
	}

	duration, err := strconv.ParseFloat(line, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration < 0 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidDuration, duration)
	}

	return duration, nil
}

// ProbeError represents a failed ffprobe run, including the stderr output.
type ProbeError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("ffprobe error: %v, stderr: %s", e.Err, strings.TrimSpace(e.Stderr))
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}
