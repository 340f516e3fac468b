package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"quranreels/models"
	"quranreels/utils"
)

// Cache stores provider answers by key.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// RedisCache is a Cache backed by Redis
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisCache{client: client, prefix: "quranreels:"}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+key, value, ttl).Err()
}

// Close closes the underlying Redis client
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// CachedProviders serves text, translation and audio duration from a cache,
// falling back to the wrapped providers. Cache failures are logged and ignored.
type CachedProviders struct {
	text        PrimaryTextProvider
	translation TranslationProvider
	audio       AudioDurationProvider
	// audioNamespace separates durations of different reciters.
	audioNamespace string

	cache Cache
	ttl   time.Duration
	log   *utils.Logger
}

// NewCachedProviders wraps the providers with cache.
func NewCachedProviders(cache Cache, ttl time.Duration, text PrimaryTextProvider, translation TranslationProvider, audio AudioDurationProvider, audioNamespace string, log *utils.Logger) *CachedProviders {
	return &CachedProviders{
		text:           text,
		translation:    translation,
		audio:          audio,
		audioNamespace: audioNamespace,
		cache:          cache,
		ttl:            ttl,
		log:            log,
	}
}

func (cp *CachedProviders) PrimaryText(ctx context.Context, ref models.ContentUnitRef) (string, error) {
	return cp.cached(ctx, "text:"+ref.String(), func() (string, error) {
		return cp.text.PrimaryText(ctx, ref)
	})
}

func (cp *CachedProviders) Translation(ctx context.Context, ref models.ContentUnitRef, language string) (string, error) {
	return cp.cached(ctx, "translation:"+language+":"+ref.String(), func() (string, error) {
		return cp.translation.Translation(ctx, ref, language)
	})
}

func (cp *CachedProviders) AudioDurationMs(ctx context.Context, ref models.ContentUnitRef) (int64, error) {
	raw, err := cp.cached(ctx, "duration:"+cp.audioNamespace+":"+ref.String(), func() (string, error) {
		ms, err := cp.audio.AudioDurationMs(ctx, ref)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(ms, 10), nil
	})
	if err != nil {
		return 0, err
	}

	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: cached duration %q: %w", models.ErrAudioDurationUnavailable, raw, err)
	}
	return ms, nil
}

func (cp *CachedProviders) cached(ctx context.Context, key string, load func() (string, error)) (string, error) {
	if val, ok, err := cp.cache.Get(ctx, key); err != nil {
		cp.log.Warn("cache read failed", "key", key, "error", err)
	} else if ok {
		return val, nil
	}

	val, err := load()
	if err != nil {
		return "", err
	}

	if err := cp.cache.Set(ctx, key, val, cp.ttl); err != nil {
		cp.log.Warn("cache write failed", "key", key, "error", err)
	}
	return val, nil
}
