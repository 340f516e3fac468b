package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quranreels/models"
	"quranreels/utils"
)

func newQuranServer(t *testing.T, handler http.HandlerFunc) *QuranTextService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	qs := NewQuranTextService(srv.URL+"/", srv.URL, utils.NewAPIKeyPool([]string{"key-1"}), 5*time.Second, utils.NewNopLogger())
	qs.retryDelay = time.Millisecond
	return qs
}

func TestPrimaryText(t *testing.T) {
	qs := newQuranServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key-1", r.Header.Get("x-api-key"))
		assert.Equal(t, "text_uthmani,verse_key", r.URL.Query().Get("fields"))

		switch r.URL.Path {
		case "/verses/by_key/112:1":
			w.Write([]byte(`{"verse":{"verse_key":"112:1","text_uthmani":"قُلْ هُوَ ٱللَّهُ أَحَدٌ"}}`))
		case "/verses/by_key/112:2":
			w.Write([]byte(`{"verse":{"verse_key":"112:2","text_uthmani":" ٱللَّهُ ٱلصَّمَدُ "}}`))
		default:
			http.NotFound(w, r)
		}
	})

	ref, err := models.ParseRef("112:1-2")
	require.NoError(t, err)

	text, err := qs.PrimaryText(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "قُلْ هُوَ ٱللَّهُ أَحَدٌ ٱللَّهُ ٱلصَّمَدُ", text)

	_, err = qs.PrimaryText(context.Background(), models.VerseRef(112, 3))
	assert.ErrorIs(t, err, models.ErrPrimaryTextUnavailable)
}

func TestTranslationFallsBackToNextSource(t *testing.T) {
	qs := newQuranServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("translations") {
		case "131":
			http.NotFound(w, r)
		case "85":
			w.Write([]byte(`{"verse":{"translations":[{"resource_id":85,"text":"Say, <i>He</i> is Allah,<sup foot_note=1>1</sup> the One."}]}}`))
		default:
			w.Write([]byte(`{"verse":{"translations":[]}}`))
		}
	})

	text, err := qs.Translation(context.Background(), models.VerseRef(112, 1), "en")
	require.NoError(t, err)
	assert.Equal(t, "Say, He is Allah, the One.", text)

	_, err = qs.Translation(context.Background(), models.VerseRef(112, 1), "de")
	assert.ErrorIs(t, err, models.ErrTranslationNotFound)

	_, err = qs.Translation(context.Background(), models.VerseRef(112, 1), "xx")
	assert.ErrorIs(t, err, models.ErrTranslationNotFound)
}

func TestGetJSONRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	qs := newQuranServer(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"verse":{"verse_key":"1:1","text_uthmani":"بِسْمِ"}}`))
	})

	text, err := qs.PrimaryText(context.Background(), models.VerseRef(1, 1))
	require.NoError(t, err)
	assert.Equal(t, "بِسْمِ", text)
	assert.Equal(t, int32(2), hits.Load())
}

func TestGetJSONCoolsDownRateLimitedKey(t *testing.T) {
	qs := newQuranServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := qs.PrimaryText(context.Background(), models.VerseRef(1, 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrNoAvailableKeys)
	assert.Equal(t, 0, qs.keys.Available())
}

func TestCleanTranslation(t *testing.T) {
	assert.Equal(t, "All praise is due to Allah",
		CleanTranslation("All praise is <b>due</b> to Allah<sup foot_note=77>1</sup>"))
	assert.Equal(t, "plain text", CleanTranslation("  plain \n text "))
}

func newRecitationServer(t *testing.T) (*RecitationService, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if strings.HasPrefix(r.URL.Path, "/Alafasy_64kbps/") {
			w.Write([]byte("ID3 fake mp3"))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	rs, err := NewRecitationService(srv.URL, "mishary", t.TempDir(), 5*time.Second, utils.NewNopLogger())
	require.NoError(t, err)
	rs.probe = func(ctx context.Context, path string) (int64, error) {
		return 1500, nil
	}
	return rs, &hits
}

func TestRecitationDuration(t *testing.T) {
	rs, hits := newRecitationServer(t)

	ref, err := models.ParseRef("1:1-2")
	require.NoError(t, err)

	ms, err := rs.AudioDurationMs(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), ms)
	// First mirror misses, second serves, for each verse
	assert.Equal(t, int32(4), hits.Load())

	path := filepath.Join(rs.tempDir, "audio", "mishary_001001.mp3")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ID3 fake mp3", string(data))

	// Cached files are not downloaded again
	_, err = rs.AudioDurationMs(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, int32(4), hits.Load())
}

func TestRecitationProbeFailure(t *testing.T) {
	rs, _ := newRecitationServer(t)
	rs.probe = func(ctx context.Context, path string) (int64, error) {
		return 0, errors.New("ffprobe not found")
	}

	_, err := rs.AudioDurationMs(context.Background(), models.VerseRef(1, 1))
	assert.ErrorIs(t, err, models.ErrAudioDurationUnavailable)
}

func TestRecitationUnknownQari(t *testing.T) {
	_, err := NewRecitationService("http://localhost", "nobody", t.TempDir(), time.Second, utils.NewNopLogger())
	assert.ErrorIs(t, err, models.ErrInvalidConfig)
	assert.Contains(t, ReciterIDs(), "mishary")
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string]string
	fail bool
}

func (m *memoryCache) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return "", false, errors.New("connection refused")
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memoryCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("connection refused")
	}
	m.data[key] = value
	return nil
}

type countingProviders struct {
	text, translation, audio atomic.Int32
}

func (c *countingProviders) PrimaryText(ctx context.Context, ref models.ContentUnitRef) (string, error) {
	c.text.Add(1)
	return "text " + ref.String(), nil
}

func (c *countingProviders) Translation(ctx context.Context, ref models.ContentUnitRef, language string) (string, error) {
	c.translation.Add(1)
	if language == "xx" {
		return "", models.ErrTranslationNotFound
	}
	return language + " " + ref.String(), nil
}

func (c *countingProviders) AudioDurationMs(ctx context.Context, ref models.ContentUnitRef) (int64, error) {
	c.audio.Add(1)
	return 4321, nil
}

func TestCachedProviders(t *testing.T) {
	cache := &memoryCache{data: map[string]string{}}
	inner := &countingProviders{}
	cp := NewCachedProviders(cache, time.Hour, inner, inner, inner, "mishary", utils.NewNopLogger())
	ctx := context.Background()
	ref := models.VerseRef(2, 255)

	for range 2 {
		text, err := cp.PrimaryText(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, "text 2:255", text)

		tr, err := cp.Translation(ctx, ref, "en")
		require.NoError(t, err)
		assert.Equal(t, "en 2:255", tr)

		ms, err := cp.AudioDurationMs(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, int64(4321), ms)
	}

	assert.Equal(t, int32(1), inner.text.Load())
	assert.Equal(t, int32(1), inner.translation.Load())
	assert.Equal(t, int32(1), inner.audio.Load())
	assert.Equal(t, "4321", cache.data["duration:mishary:2:255"])

	// Failures are not cached
	for range 2 {
		_, err := cp.Translation(ctx, ref, "xx")
		assert.ErrorIs(t, err, models.ErrTranslationNotFound)
	}
	assert.Equal(t, int32(3), inner.translation.Load())
}

func TestCachedProvidersIgnoreCacheErrors(t *testing.T) {
	cache := &memoryCache{data: map[string]string{}, fail: true}
	inner := &countingProviders{}
	cp := NewCachedProviders(cache, time.Hour, inner, inner, inner, "mishary", utils.NewNopLogger())

	text, err := cp.PrimaryText(context.Background(), models.VerseRef(1, 1))
	require.NoError(t, err)
	assert.Equal(t, "text 1:1", text)
}

func TestWriteSRT(t *testing.T) {
	page := models.Page{Index: 1, PrimaryText: "الم", SecondaryText: "Alif Lam Meem"}
	tl := &models.Timeline{
		Segments: []models.TimelineSegment{
			{Kind: models.SegmentTitleCard, StartMs: 0, EndMs: 2500},
			{Kind: models.SegmentPage, StartMs: 2500, EndMs: 6500, Page: &page, TranslationStartMs: 2500},
		},
	}

	srt, err := NewSubtitleService().SRT(tl)
	require.NoError(t, err)

	want := "1\n00:00:00,000 --> 00:00:02,500\n" + TitleCardText + "\n\n" +
		"2\n00:00:02,500 --> 00:00:06,500\nالم\nAlif Lam Meem\n\n"
	assert.Equal(t, want, srt)

	_, err = NewSubtitleService().SRT(&models.Timeline{})
	assert.Error(t, err)
}
