package utils

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// GetMediaDuration returns the duration of an audio or video file in seconds
func GetMediaDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe error: %w, stderr: %s", err, stderr.String())
	}

	return ParseProbeDuration(string(output))
}

// ParseProbeDuration parses ffprobe's bare duration output.
func ParseProbeDuration(output string) (float64, error) {
	durationStr := strings.TrimSpace(output)
	duration, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration %q: %w", durationStr, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("non-positive duration %q", durationStr)
	}
	return duration, nil
}

// GetAudioDurationMs returns the duration of an audio file in whole milliseconds
func GetAudioDurationMs(ctx context.Context, path string) (int64, error) {
	seconds, err := GetMediaDuration(ctx, path)
	if err != nil {
		return 0, err
	}
	return SecondsToMs(seconds), nil
}
