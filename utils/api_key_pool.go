package utils

import (
	"errors"
	"sync"
	"time"
)

// ErrNoAvailableKeys is returned when every key is cooling down.
var ErrNoAvailableKeys = errors.New("no available API keys")

// APIKeyPool rotates API keys, preferring the least used and skipping keys
// that are cooling down after a failure.
type APIKeyPool struct {
	keys      []string
	usage     map[string]int
	coolUntil map[string]time.Time
	now       func() time.Time
	mu        sync.Mutex
}

// NewAPIKeyPool creates a new API key pool. It returns nil for no keys, and a
// nil pool hands out no keys.
func NewAPIKeyPool(keys []string) *APIKeyPool {
	if len(keys) == 0 {
		return nil
	}

	return &APIKeyPool{
		keys:      append([]string(nil), keys...),
		usage:     make(map[string]int),
		coolUntil: make(map[string]time.Time),
		now:       time.Now,
	}
}

// Acquire returns the least used available key; ties go to configuration order.
func (p *APIKeyPool) Acquire() (string, error) {
	if p == nil {
		return "", nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	selected := ""
	for _, key := range p.keys {
		if until, ok := p.coolUntil[key]; ok {
			if now.Before(until) {
				continue
			}
			delete(p.coolUntil, key)
		}
		if selected == "" || p.usage[key] < p.usage[selected] {
			selected = key
		}
	}

	if selected == "" {
		return "", ErrNoAvailableKeys
	}
	p.usage[selected]++
	return selected, nil
}

// MarkFailed cools a key down for retryAfter
func (p *APIKeyPool) MarkFailed(key string, retryAfter time.Duration) {
	if p == nil || key == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.coolUntil[key] = p.now().Add(retryAfter)
}

// Available returns the number of keys not cooling down
func (p *APIKeyPool) Available() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	n := 0
	for _, key := range p.keys {
		if until, ok := p.coolUntil[key]; ok && now.Before(until) {
			continue
		}
		n++
	}
	return n
}
