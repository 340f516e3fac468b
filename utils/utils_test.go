package utils

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSRTTimestamp(t *testing.T) {
	tests := []struct {
		name     string
		input    int64
		expected string
	}{
		{"Zero", 0, "00:00:00,000"},
		{"Millis", 2500, "00:00:02,500"},
		{"Minutes", 61_001, "00:01:01,001"},
		{"Hours", 3_723_456, "01:02:03,456"},
		{"Negative clamps", -5, "00:00:00,000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatSRTTimestamp(tt.input))
		})
	}
}

func TestParseProbeDuration(t *testing.T) {
	d, err := ParseProbeDuration("12.345000\n")
	require.NoError(t, err)
	assert.InDelta(t, 12.345, d, 1e-9)
	assert.Equal(t, int64(12345), SecondsToMs(d))

	_, err = ParseProbeDuration("N/A")
	assert.Error(t, err)
	_, err = ParseProbeDuration("0")
	assert.Error(t, err)
}

func TestAPIKeyPoolRotation(t *testing.T) {
	pool := NewAPIKeyPool([]string{"a", "b"})
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	pool.now = func() time.Time { return now }

	first, err := pool.Acquire()
	require.NoError(t, err)
	second, err := pool.Acquire()
	require.NoError(t, err)
	assert.Equal(t, "a", first)
	assert.Equal(t, "b", second)

	pool.MarkFailed("a", time.Minute)
	pool.MarkFailed("b", time.Minute)
	assert.Equal(t, 0, pool.Available())
	_, err = pool.Acquire()
	assert.True(t, errors.Is(err, ErrNoAvailableKeys))

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 2, pool.Available())
	_, err = pool.Acquire()
	assert.NoError(t, err)
}

func TestNilAPIKeyPool(t *testing.T) {
	pool := NewAPIKeyPool(nil)
	key, err := pool.Acquire()
	require.NoError(t, err)
	assert.Empty(t, key)
	pool.MarkFailed("x", time.Second)
	assert.Equal(t, 0, pool.Available())
}

func TestDownloadFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.mp3" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ID3audio"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "audio", "001001.mp3")
	require.NoError(t, DownloadFile(context.Background(), srv.Client(), srv.URL+"/001001.mp3", dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "ID3audio", string(data))

	err = DownloadFile(context.Background(), srv.Client(), srv.URL+"/missing.mp3", filepath.Join(dir, "x.mp3"))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, FileExists(filepath.Join(dir, "x.mp3")))
}

func TestCreateAndCleanupTempDir(t *testing.T) {
	base := t.TempDir()
	dir, err := CreateTempDir(base, "job-1")
	require.NoError(t, err)
	assert.True(t, FileExists(filepath.Join(dir, "audio")))

	require.NoError(t, CleanupJobFiles(base, "job-1"))
	assert.False(t, FileExists(dir))
}

func TestLoggerRedactsSecrets(t *testing.T) {
	kv := redactKVs([]interface{}{"api_key", "abc", "ref", "2:255", "dangling"})
	assert.Equal(t, []interface{}{"api_key", "[REDACTED]", "ref", "2:255", "dangling"}, kv)
	NewNopLogger().Info("noop", "api_key", "abc")
}
