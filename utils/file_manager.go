package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// ErrNotFound is returned by DownloadFile when the server answers 404.
var ErrNotFound = errors.New("remote file not found")

// CreateTempDir creates temporary directories for a job
func CreateTempDir(baseDir, jobID string) (string, error) {
	jobDir := filepath.Join(baseDir, jobID)

	dirs := []string{
		jobDir,
		filepath.Join(jobDir, "audio"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return jobDir, nil
}

// DownloadFile downloads a file from URL to destination path
func DownloadFile(ctx context.Context, client *http.Client, url, destPath string) error {
	destDir := filepath.Dir(destPath)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, url)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	// Write to a sibling temp file so a failed copy never leaves a truncated target
	tmp, err := os.CreateTemp(destDir, filepath.Base(destPath)+".part-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	return os.Rename(tmp.Name(), destPath)
}

// CleanupJobFiles removes all temporary files for a job
func CleanupJobFiles(baseDir, jobID string) error {
	jobDir := filepath.Join(baseDir, jobID)
	return os.RemoveAll(jobDir)
}

// ScheduleCleanup schedules automatic cleanup after a delay
func ScheduleCleanup(baseDir, jobID string, delay time.Duration) {
	go func() {
		time.Sleep(delay)
		_ = CleanupJobFiles(baseDir, jobID)
	}()
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
