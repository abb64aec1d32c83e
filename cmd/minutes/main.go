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


package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/minutes"
	"github.com/poiesic/minutes/ai"
	"github.com/poiesic/minutes/ai/openai"
	"github.com/poiesic/minutes/config"
	"github.com/urfave/cli/v2"
)

// newProvider builds the AI provider for a configuration.
var newProvider func(*ai.Config) (ai.AIProvider, error) = openai.NewProvider

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "minutes",
		Usage: "Hybrid keyword and semantic search over meeting records",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the configuration file (default: <db>/" + config.FileName + ")",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to the data directory; overrides the configuration file",
				EnvVars: []string{"MINUTES_DB"},
			},
			&cli.StringFlag{
				Name:  "fulltext",
				Usage: "Full-text index backend (badger, sqlite)",
			},
			&cli.StringFlag{
				Name:  "embedding-host",
				Usage: "Embedding service host URL",
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Embedding model name",
			},
			&cli.IntFlag{
				Name:  "dimension",
				Usage: "Embedding dimension of the model",
			},
			&cli.StringFlag{
				Name:  "translator-model",
				Usage: "Chat model used to translate queries",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Write a configuration file with the current settings",
				Action: initCommand,
			},
			{
				Name:      "add",
				Usage:     "Store and index a meeting",
				Action:    addCommand,
				ArgsUsage: " ",
				Flags: []cli.Flag{
					&cli.Uint64Flag{
						Name:  "id",
						Usage: "Stable meeting id; a new id is assigned when omitted",
					},
					&cli.StringFlag{
						Name:     "title",
						Aliases:  []string{"t"},
						Usage:    "Meeting title",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "transcript",
						Usage: "Transcript text",
					},
					&cli.PathFlag{
						Name:  "transcript-file",
						Usage: "Read the transcript from a file",
					},
					&cli.StringFlag{
						Name:  "summary",
						Usage: "Meeting summary",
					},
					&cli.StringSliceFlag{
						Name:  "decision",
						Usage: "Decision taken in the meeting (repeatable)",
					},
					&cli.StringFlag{
						Name:  "language",
						Usage: "BCP 47 language tag of the meeting",
						Value: "en",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Search indexed meetings",
				Action:    searchCommand,
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Maximum number of results",
						Value:   5,
					},
					&cli.StringFlag{
						Name:  "lang",
						Usage: "Language of the query, e.g. fr",
					},
					&cli.BoolFlag{
						Name:  "cross-language",
						Usage: "Translate the query to the canonical language",
					},
					&cli.BoolFlag{
						Name:  "trace",
						Usage: "Print each search step to stderr",
					},
				},
			},
			{
				Name:   "similar",
				Usage:  "Find meetings similar to a meeting",
				Action: similarCommand,
				Flags: []cli.Flag{
					&cli.Uint64Flag{
						Name:     "id",
						Usage:    "Meeting id",
						Required: true,
					},
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Maximum number of results",
						Value:   5,
					},
				},
			},
			{
				Name:   "delete",
				Usage:  "Delete a meeting and remove it from the index",
				Action: deleteCommand,
				Flags: []cli.Flag{
					&cli.Uint64Flag{
						Name:     "id",
						Usage:    "Meeting id",
						Required: true,
					},
				},
			},
			{
				Name:   "rebuild",
				Usage:  "Re-index every stored meeting",
				Action: rebuildCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of meetings to process in each batch",
						Value: 32,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N meetings",
						Value: 100,
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Re-index meetings whose content is unchanged",
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Show index statistics",
				Action: statsCommand,
			},
		},
	}
}

// loadConfig reads the configuration file and applies flag overrides.
func loadConfig(c *cli.Context) (*config.Config, string, error) {
	path := c.String("config")
	if path == "" && c.String("db") != "" {
		path = filepath.Join(c.String("db"), config.FileName)
	}

	cfg := config.Default()
	if path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load configuration: %w", err)
		}
	}

	if c.IsSet("db") {
		cfg.Storage.Path = c.String("db")
	}
	if c.IsSet("fulltext") {
		cfg.Storage.FullTextBackend = c.String("fulltext")
	}
	if c.IsSet("embedding-host") {
		cfg.AI.EmbeddingHost = c.String("embedding-host")
		cfg.AI.TranslatorHost = c.String("embedding-host")
	}
	if c.IsSet("embedding-model") {
		cfg.AI.EmbeddingModel = c.String("embedding-model")
	}
	if c.IsSet("dimension") {
		cfg.AI.Dimension = c.Int("dimension")
	}
	if c.IsSet("translator-model") {
		cfg.AI.TranslatorModel = c.String("translator-model")
		cfg.AI.Translate = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// openDatabase opens the database described by the flags.
func openDatabase(c *cli.Context, opts ...minutes.DatabaseOption) (*minutes.Database, error) {
	cfg, _, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	if cfg.Storage.Path == "" {
		return nil, fmt.Errorf("a data directory is required (--db or [storage] path)")
	}

	provider, err := newProvider(cfg.AIConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create AI provider: %w", err)
	}

	opts = append([]minutes.DatabaseOption{minutes.WithProvider(provider)}, opts...)
	db, err := minutes.NewDatabase(cfg, opts...)
	if err != nil {
		provider.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
