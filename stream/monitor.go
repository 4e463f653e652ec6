package stream

import "github.com/poiesic/anthology/core"

// PipelineMonitor provides hooks to observe a search as it moves
// through the pipeline stages. Implement it to trace or instrument
// individual requests; pass nil to disable monitoring.
type PipelineMonitor interface {
	Start(query string)
	FilterParsed(parsed *core.ParsedQuery)
	Interpreted(interp *core.QueryInterpretation)
	Reformulated(subQueries []string)
	SearchCompleted(results []core.SearchResult)
	Finish()
}

// noopMonitor is a no-op implementation of PipelineMonitor.
type noopMonitor struct{}

var _ PipelineMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                          {}
func (n *noopMonitor) FilterParsed(_ *core.ParsedQuery)        {}
func (n *noopMonitor) Interpreted(_ *core.QueryInterpretation) {}
func (n *noopMonitor) Reformulated(_ []string)                 {}
func (n *noopMonitor) SearchCompleted(_ []core.SearchResult)   {}
func (n *noopMonitor) Finish()                                 {}
