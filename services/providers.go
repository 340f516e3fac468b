package services

import (
	"quranreels/config"
	"quranreels/utils"
)

// Providers bundles the inputs a series needs. Audio is per reciter and per
// download directory, so it is built on demand.
type Providers struct {
	Text        PrimaryTextProvider
	Translation TranslationProvider
	AudioFor    func(qari, dir string) (AudioDurationProvider, error)
}

// NewProviders wires the HTTP-backed providers from cfg. A nil cache disables caching.
func NewProviders(cfg *config.Config, cache Cache, log *utils.Logger) *Providers {
	keys := utils.NewAPIKeyPool(cfg.QuranAPIKeys)
	qs := NewQuranTextService(cfg.QuranAPIBaseURL, cfg.TranslationAPIBaseURL, keys, cfg.HTTPTimeout, log)

	p := &Providers{Text: qs, Translation: qs}
	if cache != nil {
		cp := NewCachedProviders(cache, cfg.CacheTTL, qs, qs, nil, "", log)
		p.Text, p.Translation = cp, cp
	}

	p.AudioFor = func(qari, dir string) (AudioDurationProvider, error) {
		if qari == "" {
			qari = cfg.DefaultQari
		}
		rs, err := NewRecitationService(cfg.RecitationBaseURL, qari, dir, cfg.HTTPTimeout, log)
		if err != nil {
			return nil, err
		}
		if cache == nil {
			return rs, nil
		}
		return NewCachedProviders(cache, cfg.CacheTTL, nil, nil, rs, qari, log), nil
	}

	return p
}

// Orchestrator builds a SeriesOrchestrator reciting with qari and downloading into dir.
func (p *Providers) Orchestrator(qari, dir string, timing config.TimingConfig, opts SeriesOptions, log *utils.Logger) (*SeriesOrchestrator, error) {
	audio, err := p.AudioFor(qari, dir)
	if err != nil {
		return nil, err
	}
	return NewSeriesOrchestrator(p.Text, p.Translation, audio, NewTimelineBuilder(), timing, opts, log), nil
}
