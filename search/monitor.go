package search

import "github.com/poiesic/minutes/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query core.Query)
	AfterNormalization(keywordText string, translated bool)
	AfterKeywordSearch(hits []core.ScoredID, err error)
	AfterSemanticSearch(hits []core.ScoredID, err error)
	Finish(results []*core.RankedResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ core.Query)                             {}
func (n *noopMonitor) AfterNormalization(_ string, _ bool)            {}
func (n *noopMonitor) AfterKeywordSearch(_ []core.ScoredID, _ error)  {}
func (n *noopMonitor) AfterSemanticSearch(_ []core.ScoredID, _ error) {}
func (n *noopMonitor) Finish(_ []*core.RankedResult)                  {}
