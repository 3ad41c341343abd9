package search

import (
	"github.com/poiesic/gleaner/core"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string)
	AfterSemanticSearch(matches []*core.SearchResult)
	AfterTagSearch(terms []string, documentIDs []string)
	SemanticAndTagHit(result *core.SearchResult)
	SemanticHit(result *core.SearchResult)
	TagHit(result *core.SearchResult)
	Finish(results []*core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                            {}
func (n *noopMonitor) AfterSemanticSearch(_ []*core.SearchResult) {}
func (n *noopMonitor) AfterTagSearch(_ []string, _ []string)      {}
func (n *noopMonitor) SemanticAndTagHit(_ *core.SearchResult)     {}
func (n *noopMonitor) SemanticHit(_ *core.SearchResult)           {}
func (n *noopMonitor) TagHit(_ *core.SearchResult)                {}
func (n *noopMonitor) Finish(_ []*core.SearchResult)              {}
