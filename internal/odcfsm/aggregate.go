package odcfsm

import "github.com/r3e-network/odc-core/internal/odcerr"

// Aggregate computes the aggregated state over path (spec.md §4.11). An
// empty path aggregates over every task. A path matching exactly one task
// returns that task's state; a path matching several returns their common
// state, or Mixed if they differ.
func Aggregate(topo Topology, path string) (AggregatedState, error) {
	states := topo.CurrentStates(path)
	if len(states) == 0 {
		return Undefined, odcerr.New(odcerr.CodeTopologyFailed, "no tasks matched the given path").
			WithDetail("path", path)
	}

	first := states[0].State
	for _, s := range states[1:] {
		if s.State != first {
			return Mixed, nil
		}
	}
	return AsAggregated(first), nil
}
