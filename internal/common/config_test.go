package common

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "fs", cfg.Cache.Driver)
	assert.Equal(t, 2*time.Minute, cfg.Pool.Timeout)
	assert.Equal(t, []string{"eng"}, cfg.OCR.Languages)
	assert.GreaterOrEqual(t, cfg.Queue.Concurrency, 1)
	assert.False(t, cfg.UsesDatabase())
}

func TestLoadConfig_YAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
vault_root: /vault
cache:
  driver: memory
queue:
  concurrency: 3
  shared: true
pool:
  timeout: 30s
  pacing_delay: 10s
ocr:
  languages: [deu, fra]
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	t.Setenv("QUEUE_CONCURRENCY", "5")
	t.Setenv("OCR_LANGUAGES", "eng, spa")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/vault", cfg.VaultRoot)
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.True(t, cfg.Queue.Shared)
	assert.Equal(t, 5, cfg.Queue.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.Pool.Timeout)
	assert.Equal(t, 10*time.Second, cfg.Pool.PacingDelay)
	assert.Equal(t, []string{"eng", "spa"}, cfg.OCR.Languages)
	// untouched sections keep their defaults
	assert.Equal(t, "fitz", cfg.OCR.PDFEngine)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadConfig_EmptyLanguagesFallBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ocr:\n  languages: []\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"eng"}, cfg.OCR.Languages)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"unknown cache driver", func(c *Config) { c.Cache.Driver = "etcd" }, "cache.driver"},
		{"zero concurrency", func(c *Config) { c.Queue.Concurrency = 0 }, "queue.concurrency"},
		{"zero timeout", func(c *Config) { c.Pool.Timeout = 0 }, "pool.timeout"},
		{"negative pacing", func(c *Config) { c.Pool.PacingDelay = -time.Second }, "pool.pacing_delay"},
		{"bad pdf engine", func(c *Config) { c.OCR.PDFEngine = "mupdf" }, "ocr.pdf_engine"},
		{"redis without addr", func(c *Config) { c.Cache.Driver = "redis"; c.Cache.Redis.Addr = "" }, "cache.redis.addr"},
		{"s3 without bucket", func(c *Config) { c.Cache.Driver = "s3" }, "cache.s3.bucket"},
		{"postgres without dsn", func(c *Config) { c.Jobs.Record = true; c.Database.Driver = "postgres" }, "database.dsn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))

			var appErr *AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, CodeConfig, appErr.Code)
			assert.Contains(t, appErr.Message, tt.field)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(LogConfig{Level: "warn", Format: "json"}, &buf)
	log.Info("hidden")
	log.Warn("shown", "path", "a.pdf")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"path":"a.pdf"`)

	buf.Reset()
	log = NewLogger(LogConfig{Level: "bogus", Format: "text"}, &buf)
	log.Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}
