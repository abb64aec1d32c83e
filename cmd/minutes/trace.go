package main

import (
	"fmt"
	"io"
	"time"

	"github.com/poiesic/minutes/core"
	"github.com/poiesic/minutes/search"
)

// traceMonitor prints each step of a search.
type traceMonitor struct {
	w     io.Writer
	start time.Time
}

var _ search.SearchMonitor = (*traceMonitor)(nil)

func newTraceMonitor(w io.Writer) *traceMonitor {
	return &traceMonitor{w: w}
}

func (m *traceMonitor) Start(query core.Query) {
	m.start = time.Now()
	fmt.Fprintf(m.w, "query: %q", query.Text)
	if query.LanguageHint != "" {
		fmt.Fprintf(m.w, " lang=%s", query.LanguageHint)
	}
	if query.CrossLanguage {
		fmt.Fprint(m.w, " cross-language")
	}
	fmt.Fprintln(m.w)
}

func (m *traceMonitor) AfterNormalization(keywordText string, translated bool) {
	if translated {
		fmt.Fprintf(m.w, "  keyword query translated: %q\n", keywordText)
	}
}

func (m *traceMonitor) AfterKeywordSearch(hits []core.ScoredID, err error) {
	m.subQuery("keyword", hits, err)
}

func (m *traceMonitor) AfterSemanticSearch(hits []core.ScoredID, err error) {
	m.subQuery("semantic", hits, err)
}

func (m *traceMonitor) subQuery(name string, hits []core.ScoredID, err error) {
	if err != nil {
		fmt.Fprintf(m.w, "  %s: failed: %v\n", name, err)
		return
	}
	fmt.Fprintf(m.w, "  %s: %d hits\n", name, len(hits))
	for _, hit := range hits {
		fmt.Fprintf(m.w, "    #%d %.4f\n", hit.Id, hit.Score)
	}
}

func (m *traceMonitor) Finish(results []*core.RankedResult) {
	fmt.Fprintf(m.w, "  merged: %d results in %v\n", len(results), time.Since(m.start).Round(time.Microsecond))
}
