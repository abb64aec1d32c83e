package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/minutes/ai"
	"github.com/poiesic/minutes/ai/mock"
	"github.com/poiesic/minutes/config"
	"github.com/poiesic/minutes/core"
	"github.com/poiesic/minutes/lexical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

const testDimension = 16

// run executes the CLI with a mock AI provider and returns stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := newApp()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	err := app.Run(append([]string{"minutes", "--log-level", "error", "--dimension", "16"}, args...))
	return stdout.String(), stderr.String(), err
}

// topics maps vocabulary onto embedding axes so related meetings are close.
var topics = map[string]int{
	"budget": 0, "quarterly": 0, "approved": 0,
	"lunch": 1, "logistics": 1, "offsite": 1,
	"roadmap": 2, "planning": 2, "status": 2,
}

func topicVector(text string, dimension int) []float32 {
	v := make([]float32, dimension)
	v[dimension-1] = 0.1
	for _, tok := range lexical.Tokenize(text) {
		if axis, ok := topics[tok]; ok {
			v[axis]++
		}
	}
	return v
}

func TestMain(m *testing.M) {
	newProvider = func(cfg *ai.Config) (ai.AIProvider, error) {
		embedder := mock.NewMockEmbedder(cfg.Dimension)
		embedder.EmbedTextFunc = func(_ context.Context, text string) ([]float32, error) {
			return topicVector(text, cfg.Dimension), nil
		}
		embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
			vectors := make([][]float32, len(texts))
			for i, text := range texts {
				vectors[i] = topicVector(text, cfg.Dimension)
			}
			return vectors, nil
		}
		return mock.NewMockProviderWithServices(embedder, mock.NewMockTranslator()), nil
	}
	os.Exit(m.Run())
}

func TestAddSearchDelete(t *testing.T) {
	db := t.TempDir()

	out, _, err := run(t, "--db", db, "add", "--id", "7", "--title", "Budget review",
		"--transcript", "We walked through the quarterly budget.", "--summary", "Budget approved.")
	require.NoError(t, err)
	assert.Contains(t, out, "Stored meeting 7")

	_, err = os.Stat(filepath.Join(db, "MANIFEST"))
	require.NoError(t, err, "badger data directory is created")

	transcript := filepath.Join(t.TempDir(), "offsite.txt")
	require.NoError(t, os.WriteFile(transcript, []byte("Lunch logistics for the offsite."), 0644))
	out, _, err = run(t, "--db", db, "add", "--id", "8", "--title", "Offsite", "--transcript-file", transcript)
	require.NoError(t, err)
	assert.Contains(t, out, "Stored meeting 8")

	out, stderr, err := run(t, "--db", db, "search", "--trace", "-k", "1", "quarterly", "budget")
	require.NoError(t, err)
	assert.Contains(t, out, "Found 1 hits")
	assert.Contains(t, out, "#7 'Budget review'")
	assert.Contains(t, stderr, `query: "quarterly budget"`)
	assert.Contains(t, stderr, "keyword: 1 hits")
	assert.Contains(t, stderr, "merged: 1 results")

	out, _, err = run(t, "--db", db, "similar", "--id", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "#8 'Offsite'")

	out, _, err = run(t, "--db", db, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Meetings:   2")
	assert.Contains(t, out, "Documents:  2")
	assert.Contains(t, out, "en       2")

	out, _, err = run(t, "--db", db, "delete", "--id", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted meeting 7")

	out, _, err = run(t, "--db", db, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Documents:  1")
}

func TestRebuildCommand(t *testing.T) {
	db := t.TempDir()

	_, _, err := run(t, "--db", db, "add", "--title", "Standup", "--transcript", "Status round.")
	require.NoError(t, err)

	_, stderr, err := run(t, "--db", db, "rebuild", "--force")
	require.NoError(t, err)
	assert.Contains(t, stderr, "1/1")
	assert.Contains(t, stderr, "Indexed 1")

	_, _, err = run(t, "--db", db, "rebuild", "--batch-size", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch-size")
}

func TestCommandErrors(t *testing.T) {
	t.Run("search needs a query", func(t *testing.T) {
		_, _, err := run(t, "--db", t.TempDir(), "search")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "query is required")
	})

	t.Run("commands need a data directory", func(t *testing.T) {
		_, _, err := run(t, "stats")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "data directory")
	})

	t.Run("title is required", func(t *testing.T) {
		_, _, err := run(t, "--db", t.TempDir(), "add", "--transcript", "text")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "title")
	})

	t.Run("unknown meeting", func(t *testing.T) {
		_, _, err := run(t, "--db", t.TempDir(), "delete", "--id", "99")
		require.Error(t, err)
	})

	t.Run("invalid backend", func(t *testing.T) {
		_, _, err := run(t, "--db", t.TempDir(), "--fulltext", "lucene", "stats")
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})
}

func TestInitAndLoadConfig(t *testing.T) {
	db := t.TempDir()

	out, _, err := run(t, "--db", db, "--fulltext", "sqlite", "--embedding-model", "nomic-embed-text", "init")
	require.NoError(t, err)
	path := filepath.Join(db, config.FileName)
	assert.Contains(t, out, path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, db, cfg.Storage.Path)
	assert.Equal(t, config.BackendSQLite, cfg.Storage.FullTextBackend)
	assert.Equal(t, "nomic-embed-text", cfg.AI.EmbeddingModel)
	assert.Equal(t, testDimension, cfg.AI.Dimension)

	// The file is picked up from the data directory
	_, _, err = run(t, "--db", db, "add", "--title", "Planning", "--transcript", "Roadmap review.")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(db, "fulltext.db"))
}

func TestInitRequiresPath(t *testing.T) {
	_, _, err := run(t, "init")
	require.Error(t, err)
}

func TestTraceMonitor(t *testing.T) {
	var buf bytes.Buffer
	m := newTraceMonitor(&buf)

	m.Start(core.Query{Text: "décisions", LanguageHint: "fr"})
	m.AfterNormalization("decisions", true)
	m.AfterKeywordSearch([]core.ScoredID{{Id: 3, Score: 0.5}}, nil)
	m.AfterSemanticSearch(nil, assert.AnError)
	m.Finish(nil)

	output := buf.String()
	assert.Contains(t, output, `query: "décisions" lang=fr`)
	assert.Contains(t, output, `keyword query translated: "decisions"`)
	assert.Contains(t, output, "#3 0.5000")
	assert.Contains(t, output, "semantic: failed")
	assert.Contains(t, output, "merged: 0 results")
}

func TestSetupLogger(t *testing.T) {
	t.Run("valid log levels", func(t *testing.T) {
		for _, tc := range []string{"debug", "info", "warn", "error", "DEBUG"} {
			t.Run(tc, func(t *testing.T) {
				app := &cli.App{
					Name: "test",
					Flags: []cli.Flag{
						&cli.StringFlag{Name: "log-level", Value: "info"},
					},
					Before: setupLogger,
					Action: func(c *cli.Context) error { return nil },
				}
				require.NoError(t, app.Run([]string{"test", "--log-level", tc}))
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		_, _, err := run(t, "--log-level", "verbose", "stats")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("log-level flag has alias -l", func(t *testing.T) {
		app := newApp()
		app.Commands = nil
		app.Action = func(c *cli.Context) error {
			assert.Equal(t, "debug", c.String("log-level"))
			return nil
		}
		require.NoError(t, app.Run([]string{"minutes", "-l", "debug"}))
	})
}
