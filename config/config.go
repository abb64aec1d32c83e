// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package config loads the minutes configuration file.
//
// The file is TOML with one table per subsystem:
//
//	[storage]
//	path = "/var/lib/minutes"
//	fulltext_backend = "badger"   # or "sqlite"
//
//	[ai]
//	embedding_host = "http://localhost:11434/v1"
//	embedding_model = "embeddinggemma"
//	dimension = 768
//
//	[search]
//	alpha = 0.5
//	timeout = "5s"
//
// Keys missing from the file keep their defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/poiesic/minutes/ai"
)

// Full-text index backends.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
)

// FileName is the name of the configuration file inside a data directory.
const FileName = "minutes.toml"

// Duration is a time.Duration written as a string such as "5s" or "250ms".
type Duration time.Duration

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config is the complete configuration.
type Config struct {
	Storage   StorageConfig   `toml:"storage"`
	AI        AIConfig        `toml:"ai"`
	Search    SearchConfig    `toml:"search"`
	Ingestion IngestionConfig `toml:"ingestion"`
}

// StorageConfig selects where and how indices are stored.
type StorageConfig struct {
	// Path is the badger data directory. Empty keeps everything in memory.
	Path string `toml:"path"`
	// FullTextBackend is "badger" or "sqlite". The SQLite index lives in
	// Path and therefore needs one.
	FullTextBackend string `toml:"fulltext_backend"`
}

// AIConfig mirrors ai.Config.
type AIConfig struct {
	EmbeddingHost   string `toml:"embedding_host"`
	EmbeddingModel  string `toml:"embedding_model"`
	TranslatorHost  string `toml:"translator_host"`
	TranslatorModel string `toml:"translator_model"`
	APIKey          string `toml:"api_key,omitempty"`
	Dimension       int    `toml:"dimension"`
	// Translate enables query translation for cross-language search.
	Translate bool `toml:"translate"`
}

// SearchConfig holds hybrid search tuning.
type SearchConfig struct {
	Alpha               float64  `toml:"alpha"`
	Oversample          float64  `toml:"oversample"`
	Timeout             Duration `toml:"timeout"`
	CanonicalLanguage   string   `toml:"canonical_language,omitempty"`
	SimilarityThreshold *float64 `toml:"similarity_threshold,omitempty"`
}

// IngestionConfig holds indexing and embedding settings.
type IngestionConfig struct {
	MaxRetries int      `toml:"max_retries"`
	RetryDelay Duration `toml:"retry_delay"`
	PoolSize   int      `toml:"pool_size"`
	BatchSize  int      `toml:"batch_size"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	aiDefaults := ai.DefaultConfig()
	return &Config{
		Storage: StorageConfig{
			FullTextBackend: BackendBadger,
		},
		AI: AIConfig{
			EmbeddingHost:   aiDefaults.EmbeddingHost,
			EmbeddingModel:  aiDefaults.EmbeddingModel,
			TranslatorHost:  aiDefaults.TranslatorHost,
			TranslatorModel: aiDefaults.TranslatorModel,
			Dimension:       aiDefaults.Dimension,
		},
		Search: SearchConfig{
			Alpha:      0.5,
			Oversample: 3,
			Timeout:    Duration(5 * time.Second),
		},
		Ingestion: IngestionConfig{
			MaxRetries: 2,
			RetryDelay: Duration(100 * time.Millisecond),
			BatchSize:  8,
		},
	}
}

// Load reads the file at path over the defaults.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path with restricted permissions.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Validate checks ranges and combinations.
func (c *Config) Validate() error {
	switch c.Storage.FullTextBackend {
	case BackendBadger:
	case BackendSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("%w: the sqlite full-text backend needs a storage path", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown full-text backend %q", ErrInvalidConfig, c.Storage.FullTextBackend)
	}

	if c.Search.Alpha < 0 || c.Search.Alpha > 1 {
		return fmt.Errorf("%w: search alpha must be in [0,1], got %v", ErrInvalidConfig, c.Search.Alpha)
	}
	if c.Search.Oversample < 1 {
		return fmt.Errorf("%w: search oversample must be at least 1, got %v", ErrInvalidConfig, c.Search.Oversample)
	}
	if c.Search.Timeout <= 0 {
		return fmt.Errorf("%w: search timeout must be positive", ErrInvalidConfig)
	}
	if t := c.Search.SimilarityThreshold; t != nil && (*t < -1 || *t > 1) {
		return fmt.Errorf("%w: similarity threshold must be in [-1,1], got %v", ErrInvalidConfig, *t)
	}

	if c.Ingestion.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries cannot be negative", ErrInvalidConfig)
	}
	if c.Ingestion.RetryDelay < 0 {
		return fmt.Errorf("%w: retry delay cannot be negative", ErrInvalidConfig)
	}

	if err := c.AIConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// AIConfig converts the [ai] table into an ai.Config.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithTranslatorHost(c.AI.TranslatorHost),
		ai.WithTranslatorModel(c.AI.TranslatorModel),
		ai.WithAPIKey(c.AI.APIKey),
		ai.WithDimension(c.AI.Dimension),
	)
}
