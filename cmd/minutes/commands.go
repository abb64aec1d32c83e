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
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/poiesic/minutes"
	"github.com/poiesic/minutes/core"
	"github.com/poiesic/minutes/reindex"
	"github.com/urfave/cli/v2"
)

func initCommand(c *cli.Context) error {
	cfg, path, err := loadConfig(c)
	if err != nil {
		return err
	}
	if path == "" {
		return errors.New("a data directory (--db) or configuration path (--config) is required")
	}
	if err := cfg.Save(path); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Wrote %s\n", path)
	return nil
}

func addCommand(c *cli.Context) error {
	ctx := context.Background()

	transcript := c.String("transcript")
	if file := c.Path("transcript-file"); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read transcript: %w", err)
		}
		transcript = string(data)
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	added, err := db.AddMeetings(ctx, &core.Meeting{
		Id:         core.ID(c.Uint64("id")),
		Title:      c.String("title"),
		Transcript: transcript,
		Summary:    c.String("summary"),
		Decisions:  c.StringSlice("decision"),
		Language:   c.String("language"),
	})
	if len(added) == 1 {
		fmt.Fprintf(c.App.Writer, "Stored meeting %d\n", added[0].Id)
	}
	if err != nil {
		return fmt.Errorf("failed to add meeting: %w", err)
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	ctx := context.Background()

	text := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(text) == "" {
		return errors.New("a query is required")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	query := core.Query{
		Text:          text,
		LanguageHint:  c.String("lang"),
		CrossLanguage: c.Bool("cross-language"),
	}

	var results []*core.RankedResult
	if c.Bool("trace") {
		results, err = db.Engine().SearchWithMonitor(ctx, query, c.Int("top-k"), newTraceMonitor(c.App.ErrWriter))
	} else {
		results, err = db.Search(ctx, query, c.Int("top-k"))
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	return printResults(ctx, c, db, results)
}

func similarCommand(c *cli.Context) error {
	ctx := context.Background()

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	results, err := db.Engine().FindSimilar(ctx, core.ID(c.Uint64("id")), c.Int("top-k"))
	if err != nil {
		return fmt.Errorf("similarity search failed: %w", err)
	}
	return printResults(ctx, c, db, results)
}

func printResults(ctx context.Context, c *cli.Context, db *minutes.Database, results []*core.RankedResult) error {
	ids := make([]core.ID, len(results))
	for i, r := range results {
		ids[i] = r.DocumentId
	}
	meetings, err := db.Meetings().GetMeetings(ctx, ids...)
	if err != nil {
		return err
	}
	titles := make(map[core.ID]string, len(meetings))
	for _, m := range meetings {
		titles[m.Id] = m.Title
	}

	fmt.Fprintf(c.App.Writer, "Found %d hits\n", len(results))
	for i, r := range results {
		fmt.Fprintf(c.App.Writer, "%d: #%d '%s' [%0.3f] (%s, keyword %.3f, semantic %.3f)\n",
			i+1, r.DocumentId, titles[r.DocumentId], r.Score, r.Source, r.KeywordScore, r.SemanticScore)
	}
	return nil
}

func deleteCommand(c *cli.Context) error {
	ctx := context.Background()

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	id := core.ID(c.Uint64("id"))
	if err := db.DeleteMeeting(ctx, id); err != nil {
		return fmt.Errorf("failed to delete meeting %d: %w", id, err)
	}
	fmt.Fprintf(c.App.Writer, "Deleted meeting %d\n", id)
	return nil
}

func rebuildCommand(c *cli.Context) error {
	ctx := context.Background()

	rebuildConfig := &reindex.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		Force:          c.Bool("force"),
	}
	if rebuildConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if rebuildConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	rebuilder, err := db.NewRebuilder(rebuildConfig, c.App.ErrWriter)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.ErrWriter, "Database: %s\n\n", c.String("db"))

	if _, err := rebuilder.Run(ctx); err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}
	return nil
}

func statsCommand(c *cli.Context) error {
	ctx := context.Background()

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := db.Stats(ctx)
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "Meetings:   %d\n", stats.Meetings)
	fmt.Fprintf(w, "Documents:  %d\n", stats.Documents)
	fmt.Fprintf(w, "Vectors:    %d\n", stats.Vectors)
	fmt.Fprintf(w, "Full-text:  %d\n", stats.FullText)
	for _, lang := range slices.Sorted(maps.Keys(stats.Languages)) {
		tag := lang
		if tag == "" {
			tag = "unknown"
		}
		fmt.Fprintf(w, "  %-8s %d\n", tag, stats.Languages[lang])
	}
	return nil
}
