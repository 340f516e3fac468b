package services

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"quranreels/models"
	"quranreels/utils"
)

// Reciter describes one qari and the mirror folders holding their recitation.
type Reciter struct {
	Name    string
	Folders []string
}

// Reciters are keyed by short id.
var Reciters = map[string]Reciter{
	"mishary": {Name: "Mishary Rashid Alafasy", Folders: []string{"Alafasy_128kbps", "Alafasy_64kbps"}},
	"sudais":  {Name: "Abdul Rahman Al-Sudais", Folders: []string{"Abdurrahmaan_As-Sudais_192kbps", "Abdurrahmaan_As-Sudais_64kbps"}},
	"shuraim": {Name: "Saud Al-Shuraim", Folders: []string{"Saud_ash-Shuraym_128kbps", "Saud_ash-Shuraym_64kbps"}},
	"maher":   {Name: "Maher Al Muaiqly", Folders: []string{"MaherAlMuaiqly128kbps", "Maher_AlMuaiqly_64kbps"}},
	"husary":  {Name: "Mahmoud Khalil Al-Husary", Folders: []string{"Husary_128kbps", "Husary_64kbps"}},
}

// ReciterIDs returns the known reciter ids, sorted.
func ReciterIDs() []string {
	ids := make([]string, 0, len(Reciters))
	for id := range Reciters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DurationProbe measures an audio file in milliseconds.
type DurationProbe func(ctx context.Context, path string) (int64, error)

// RecitationService downloads per-verse recitation and reports its duration
type RecitationService struct {
	baseURL    string
	qari       string
	reciter    Reciter
	tempDir    string
	httpClient *http.Client
	probe      DurationProbe
	log        *utils.Logger
}

// NewRecitationService creates a new recitation service for one qari
func NewRecitationService(baseURL, qari, tempDir string, timeout time.Duration, log *utils.Logger) (*RecitationService, error) {
	reciter, ok := Reciters[qari]
	if !ok {
		return nil, fmt.Errorf("%w: unknown qari %q (known: %s)", models.ErrInvalidConfig, qari, strings.Join(ReciterIDs(), ", "))
	}

	return &RecitationService{
		baseURL: strings.TrimRight(baseURL, "/"),
		qari:    qari,
		reciter: reciter,
		tempDir: tempDir,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		probe: utils.GetAudioDurationMs,
		log:   log,
	}, nil
}

// Qari returns the reciter id the service downloads.
func (rs *RecitationService) Qari() string {
	return rs.qari
}

// AudioDurationMs sums the recitation length of every verse in ref.
func (rs *RecitationService) AudioDurationMs(ctx context.Context, ref models.ContentUnitRef) (int64, error) {
	var total int64
	for _, verse := range ref.Verses() {
		path, err := rs.DownloadVerse(ctx, verse)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %w", models.ErrAudioDurationUnavailable, verse, err)
		}

		ms, err := rs.probe(ctx, path)
		if err != nil {
			return 0, fmt.Errorf("%w: probe %s: %w", models.ErrAudioDurationUnavailable, verse, err)
		}
		total += ms
	}
	return total, nil
}

// DownloadVerse fetches one verse's recitation, trying each mirror folder in
// turn. A previously downloaded file is reused.
func (rs *RecitationService) DownloadVerse(ctx context.Context, verse models.ContentUnitRef) (string, error) {
	filename := fmt.Sprintf("%03d%03d.mp3", verse.Major, verse.MinorStart)
	path := filepath.Join(rs.tempDir, "audio", rs.qari+"_"+filename)
	if utils.FileExists(path) {
		return path, nil
	}

	var lastErr error
	for _, folder := range rs.reciter.Folders {
		url := fmt.Sprintf("%s/%s/%s", rs.baseURL, folder, filename)
		err := utils.DownloadFile(ctx, rs.httpClient, url, path)
		if err == nil {
			rs.log.Debug("recitation downloaded", "ref", verse.String(), "qari", rs.qari, "url", url)
			return path, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		rs.log.Debug("recitation mirror failed", "ref", verse.String(), "url", url, "error", err)
		lastErr = err
	}

	return "", fmt.Errorf("all mirrors failed for %s: %w", rs.reciter.Name, lastErr)
}
