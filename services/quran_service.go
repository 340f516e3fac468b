package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"quranreels/models"
	"quranreels/utils"
)

// TranslationSources lists translation resource ids per language, in order of preference.
var TranslationSources = map[string][]int{
	"en": {131, 85, 95, 20, 203},
	"de": {27},
	"bs": {25},
	"sq": {89},
	"fr": {31},
	"es": {83},
	"tr": {77},
}

var errNotFound = errors.New("not found")

// QuranTextService fetches verse text and translations over HTTP
type QuranTextService struct {
	textBaseURL        string
	translationBaseURL string
	httpClient         *http.Client
	keys               *utils.APIKeyPool
	sources            map[string][]int
	maxRetries         int
	retryDelay         time.Duration
	log                *utils.Logger
}

// NewQuranTextService creates a new text service
func NewQuranTextService(textBaseURL, translationBaseURL string, keys *utils.APIKeyPool, timeout time.Duration, log *utils.Logger) *QuranTextService {
	return &QuranTextService{
		textBaseURL:        strings.TrimRight(textBaseURL, "/"),
		translationBaseURL: strings.TrimRight(translationBaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		keys:       keys,
		sources:    TranslationSources,
		maxRetries: 3,
		retryDelay: time.Second,
		log:        log,
	}
}

type verseTextResponse struct {
	Verse struct {
		VerseKey    string `json:"verse_key"`
		TextUthmani string `json:"text_uthmani"`
	} `json:"verse"`
}

type verseTranslationResponse struct {
	Verse struct {
		Translations []struct {
			ResourceID int    `json:"resource_id"`
			Text       string `json:"text"`
		} `json:"translations"`
	} `json:"verse"`
}

// PrimaryText returns the Uthmani text of every verse in ref, joined by spaces.
func (qs *QuranTextService) PrimaryText(ctx context.Context, ref models.ContentUnitRef) (string, error) {
	texts := make([]string, 0, ref.MinorEnd-ref.MinorStart+1)

	for _, verse := range ref.Verses() {
		endpoint := fmt.Sprintf("%s/verses/by_key/%s?%s", qs.textBaseURL, verse.Key(), url.Values{
			"fields": {"text_uthmani,verse_key"},
		}.Encode())

		var resp verseTextResponse
		if err := qs.getJSON(ctx, endpoint, &resp); err != nil {
			return "", fmt.Errorf("%w: verse %s: %w", models.ErrPrimaryTextUnavailable, verse, err)
		}
		text := strings.TrimSpace(resp.Verse.TextUthmani)
		if text == "" {
			return "", fmt.Errorf("%w: verse %s has no text", models.ErrPrimaryTextUnavailable, verse)
		}
		texts = append(texts, text)
	}

	return strings.Join(texts, " "), nil
}

// Translation tries each translation source for language until one covers
// every verse of ref.
func (qs *QuranTextService) Translation(ctx context.Context, ref models.ContentUnitRef, language string) (string, error) {
	ids := qs.sources[language]
	if len(ids) == 0 {
		return "", fmt.Errorf("%w: no translation source for language %q", models.ErrTranslationNotFound, language)
	}

	var lastErr error
	for _, id := range ids {
		text, err := qs.translationFrom(ctx, ref, id)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %w", models.ErrTranslationNotFound, ctx.Err())
		}
		qs.log.Debug("translation source failed", "ref", ref.String(), "resource_id", id, "error", err)
		lastErr = err
	}

	return "", fmt.Errorf("%w: %s in %q: %w", models.ErrTranslationNotFound, ref, language, lastErr)
}

func (qs *QuranTextService) translationFrom(ctx context.Context, ref models.ContentUnitRef, resourceID int) (string, error) {
	texts := make([]string, 0, ref.MinorEnd-ref.MinorStart+1)

	for _, verse := range ref.Verses() {
		endpoint := fmt.Sprintf("%s/verses/by_key/%s?%s", qs.translationBaseURL, verse.Key(), url.Values{
			"translations": {strconv.Itoa(resourceID)},
		}.Encode())

		var resp verseTranslationResponse
		if err := qs.getJSON(ctx, endpoint, &resp); err != nil {
			return "", err
		}
		if len(resp.Verse.Translations) == 0 {
			return "", fmt.Errorf("resource %d has no text for %s", resourceID, verse)
		}
		text := CleanTranslation(resp.Verse.Translations[0].Text)
		if text == "" {
			return "", fmt.Errorf("resource %d has empty text for %s", resourceID, verse)
		}
		texts = append(texts, text)
	}

	return strings.Join(texts, " "), nil
}

var (
	footnotePattern = regexp.MustCompile(`(?s)<sup[^>]*>.*?</sup>`)
	tagPattern      = regexp.MustCompile(`<[^>]+>`)
)

// CleanTranslation drops footnote markers and HTML tags
func CleanTranslation(text string) string {
	text = footnotePattern.ReplaceAllString(text, "")
	text = tagPattern.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

// getJSON performs a GET with retry and decodes the body into out
func (qs *QuranTextService) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	var lastErr error

	for attempt := 0; attempt < qs.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * qs.retryDelay):
			}
		}

		key, err := qs.keys.Acquire()
		if err != nil {
			return err
		}

		body, status, err := qs.get(ctx, endpoint, key)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		switch {
		case status == http.StatusOK:
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
			return nil
		case status == http.StatusNotFound:
			return errNotFound
		case status == http.StatusTooManyRequests || status == http.StatusUnauthorized:
			qs.keys.MarkFailed(key, 60*time.Second)
			lastErr = fmt.Errorf("API returned status %d", status)
		case status >= 500:
			lastErr = fmt.Errorf("API returned status %d", status)
		default:
			return fmt.Errorf("API returned status %d", status)
		}
	}

	return fmt.Errorf("failed after %d retries: %w", qs.maxRetries, lastErr)
}

func (qs *QuranTextService) get(ctx context.Context, endpoint, apiKey string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if apiKey != "" {
		req.Header.Set("x-api-key", apiKey)
	}

	resp, err := qs.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.StatusCode, nil
}
