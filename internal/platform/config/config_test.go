package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.LogLevel != slog.LevelInfo || cfg.LogFormat != "json" {
		t.Errorf("log defaults: level=%v format=%q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.IDOffset != 1000 {
		t.Errorf("IDOffset = %d", cfg.IDOffset)
	}
	if cfg.EncoderMinLength != 6 {
		t.Errorf("EncoderMinLength = %d", cfg.EncoderMinLength)
	}
	if cfg.GeneratorMaxRetries != 5 {
		t.Errorf("GeneratorMaxRetries = %d", cfg.GeneratorMaxRetries)
	}
	if cfg.IdempotencyTTL != 10*time.Second {
		t.Errorf("IdempotencyTTL = %v", cfg.IdempotencyTTL)
	}
	if cfg.CacheKeyPrefix != "urlshortener:" {
		t.Errorf("CacheKeyPrefix = %q", cfg.CacheKeyPrefix)
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.EncoderAlphabet == "" {
		t.Error("EncoderAlphabet empty")
	}
	if cfg.LinkCacheTTL != time.Hour || cfg.LinkCacheNegativeTTL != 30*time.Second {
		t.Errorf("link cache ttls: %v / %v", cfg.LinkCacheTTL, cfg.LinkCacheNegativeTTL)
	}
	if cfg.LocalCacheTTL != 5*time.Minute || cfg.LocalCacheNegativeTTL != 10*time.Second {
		t.Errorf("local cache ttls: %v / %v", cfg.LocalCacheTTL, cfg.LocalCacheNegativeTTL)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ID_OFFSET", "5000")
	t.Setenv("ENCODER_MIN_LENGTH", "8")
	t.Setenv("GENERATOR_MAX_RETRIES", "3")
	t.Setenv("IDEMPOTENCY_TTL", "30s")
	t.Setenv("CACHE_KEY_PREFIX", "short:")
	t.Setenv("BASE_URL", "https://s.example.com")
	t.Setenv("RATELIMIT_ENABLED", "false")
	t.Setenv("LINK_CACHE_TTL", "2h")
	t.Setenv("LOCAL_CACHE_NEGATIVE_TTL", "3s")

	cfg := Load()

	if cfg.Addr != ":9090" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
	if cfg.IDOffset != 5000 {
		t.Errorf("IDOffset = %d", cfg.IDOffset)
	}
	if cfg.EncoderMinLength != 8 {
		t.Errorf("EncoderMinLength = %d", cfg.EncoderMinLength)
	}
	if cfg.GeneratorMaxRetries != 3 {
		t.Errorf("GeneratorMaxRetries = %d", cfg.GeneratorMaxRetries)
	}
	if cfg.IdempotencyTTL != 30*time.Second {
		t.Errorf("IdempotencyTTL = %v", cfg.IdempotencyTTL)
	}
	if cfg.CacheKeyPrefix != "short:" {
		t.Errorf("CacheKeyPrefix = %q", cfg.CacheKeyPrefix)
	}
	if cfg.BaseURL != "https://s.example.com" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.RateLimitEnabled {
		t.Error("RateLimitEnabled should be false")
	}
	if cfg.LinkCacheTTL != 2*time.Hour {
		t.Errorf("LinkCacheTTL = %v", cfg.LinkCacheTTL)
	}
	if cfg.LocalCacheNegativeTTL != 3*time.Second {
		t.Errorf("LocalCacheNegativeTTL = %v", cfg.LocalCacheNegativeTTL)
	}
}

// 非法值回落到默认值，而不是让进程带着坏配置启动。
func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("ID_OFFSET", "not-a-number")
	t.Setenv("ENCODER_MIN_LENGTH", "0")
	t.Setenv("IDEMPOTENCY_TTL", "banana")
	t.Setenv("GENERATOR_MAX_RETRIES", "-2")

	cfg := Load()

	if cfg.IDOffset != 1000 {
		t.Errorf("IDOffset = %d, want default", cfg.IDOffset)
	}
	if cfg.EncoderMinLength != 6 {
		t.Errorf("EncoderMinLength = %d, want default", cfg.EncoderMinLength)
	}
	if cfg.IdempotencyTTL != 10*time.Second {
		t.Errorf("IdempotencyTTL = %v, want default", cfg.IdempotencyTTL)
	}
	if cfg.GeneratorMaxRetries != 5 {
		t.Errorf("GeneratorMaxRetries = %d, want default", cfg.GeneratorMaxRetries)
	}
}
