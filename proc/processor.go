// Package proc defines the processor contract that every stage of a TCSPC
// pipeline implements, along with the shutdown protocol, error sentinels,
// and the Context/AccessTracker mechanism for reaching into a composed
// graph from outside.
//
// A pipeline is a directed graph of processors composed at construction
// time: each processor owns its downstream and delivers events to it as
// plain method calls, so the default composition is single-threaded and
// an event is fully processed end-to-end before Handle returns.
package proc

import "context"

// Processor is the interface every pipeline stage implements. Handle is
// called once per upstream event; Flush is called at most once, after the
// last Handle call, to signal there are no more events and let the
// processor propagate that fact downstream.
//
// A Processor that wants to end the stream early (e.g. a stop() gate that
// saw its trigger event) flushes its downstream itself and then returns an
// *EndOfProcessing from Handle or Flush. The driver that owns the
// top-level Handle/Flush calls (acquire.Run, or a caller feeding events by
// hand) must treat EndOfProcessing as success, not failure, and must not
// call Handle or Flush again afterward.
type Processor interface {
	// Handle processes one event. event's dynamic type determines what
	// the processor does with it; event types the processor does not
	// recognize are passed through unchanged to the next Processor.
	Handle(ctx context.Context, event any) error

	// Flush signals end of stream. Implementations must propagate the
	// flush to their downstream Processor(s) before returning, and must
	// not be called more than once.
	Flush(ctx context.Context) error
}

// NodeInfo describes one processor for introspection/debugging purposes.
type NodeInfo struct {
	Name string
	Addr any // identity of the underlying processor, for graph dedup
}

// GraphInfo is the ordered list of NodeInfo from sink to the point of
// introspection.
type GraphInfo struct {
	Nodes []NodeInfo
}

// PushEntryPoint appends node as a new entry point, returning the
// extended graph.
func (g GraphInfo) PushEntryPoint(node NodeInfo) GraphInfo {
	nodes := make([]NodeInfo, 0, len(g.Nodes)+1)
	nodes = append(nodes, g.Nodes...)
	nodes = append(nodes, node)
	return GraphInfo{Nodes: nodes}
}

// Introspectable is implemented by Processors that support graph
// introspection. Not all Processors need to; typeerased.Processor in
// particular forwards it only when the wrapped concrete processor
// supports it.
type Introspectable interface {
	IntrospectNode() NodeInfo
	IntrospectGraph() GraphInfo
}
