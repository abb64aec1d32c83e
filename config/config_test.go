package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, BackendBadger, cfg.Storage.FullTextBackend)
	assert.Equal(t, 0.5, cfg.Search.Alpha)
	assert.Equal(t, 3.0, cfg.Search.Oversample)
	assert.Equal(t, Duration(5*time.Second), cfg.Search.Timeout)
	assert.Equal(t, 768, cfg.AI.Dimension)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), FileName))
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), FileName)
		content := `
[storage]
path = "/tmp/minutes"
fulltext_backend = "sqlite"

[ai]
embedding_model = "nomic-embed-text"
dimension = 384
translate = true

[search]
alpha = 0.7
timeout = "250ms"
canonical_language = "en"
similarity_threshold = 0.3

[ingestion]
retry_delay = "1s"
pool_size = 4
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "/tmp/minutes", cfg.Storage.Path)
		assert.Equal(t, BackendSQLite, cfg.Storage.FullTextBackend)
		assert.Equal(t, "nomic-embed-text", cfg.AI.EmbeddingModel)
		assert.Equal(t, "qwen2.5:3b", cfg.AI.TranslatorModel, "untouched keys keep defaults")
		assert.Equal(t, 384, cfg.AI.Dimension)
		assert.True(t, cfg.AI.Translate)
		assert.Equal(t, 0.7, cfg.Search.Alpha)
		assert.Equal(t, 3.0, cfg.Search.Oversample)
		assert.Equal(t, Duration(250*time.Millisecond), cfg.Search.Timeout)
		assert.Equal(t, "en", cfg.Search.CanonicalLanguage)
		require.NotNil(t, cfg.Search.SimilarityThreshold)
		assert.Equal(t, 0.3, *cfg.Search.SimilarityThreshold)
		assert.Equal(t, Duration(time.Second), cfg.Ingestion.RetryDelay)
		assert.Equal(t, 4, cfg.Ingestion.PoolSize)
		assert.Equal(t, 2, cfg.Ingestion.MaxRetries)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), FileName)
		require.NoError(t, os.WriteFile(path, []byte("[search\nalpha = "), 0600))

		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("bad duration", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), FileName)
		require.NoError(t, os.WriteFile(path, []byte("[search]\ntimeout = \"soon\"\n"), 0600))

		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)
	cfg := Default()
	cfg.Storage.Path = "/data"
	cfg.Search.Timeout = Duration(2 * time.Second)
	threshold := 0.25
	cfg.Search.SimilarityThreshold = &threshold

	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Storage.FullTextBackend = "lucene" }},
		{"sqlite without path", func(c *Config) { c.Storage.FullTextBackend = BackendSQLite }},
		{"alpha above one", func(c *Config) { c.Search.Alpha = 1.5 }},
		{"negative alpha", func(c *Config) { c.Search.Alpha = -0.1 }},
		{"oversample below one", func(c *Config) { c.Search.Oversample = 0.5 }},
		{"zero timeout", func(c *Config) { c.Search.Timeout = 0 }},
		{"threshold out of range", func(c *Config) { v := 2.0; c.Search.SimilarityThreshold = &v }},
		{"negative retries", func(c *Config) { c.Ingestion.MaxRetries = -1 }},
		{"negative retry delay", func(c *Config) { c.Ingestion.RetryDelay = -1 }},
		{"missing embedding model", func(c *Config) { c.AI.EmbeddingModel = "" }},
		{"zero dimension", func(c *Config) { c.AI.Dimension = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestAIConfig(t *testing.T) {
	cfg := Default()
	cfg.AI.EmbeddingHost = "http://gpu:11434"
	cfg.AI.APIKey = "secret"

	aiCfg := cfg.AIConfig()
	require.NoError(t, aiCfg.Validate())
	assert.Equal(t, "http://gpu:11434/v1", aiCfg.EmbeddingHost)
	assert.Equal(t, "secret", aiCfg.Token())
	assert.Equal(t, 768, aiCfg.Dimension)
}
