package odcfsm

import (
	"context"
	"time"

	"github.com/r3e-network/odc-core/internal/odcerr"
	"github.com/r3e-network/odc-core/internal/odclog"
	"github.com/r3e-network/odc-core/internal/odcsession"
)

// RecoveryFunc runs the nMin recovery procedure for a set of failed
// collections (spec.md §4.7), returning true if the session remains viable.
// Injected rather than imported directly to keep this package independent
// of the DDS adapter.
type RecoveryFunc func(ctx context.Context, failedCollections []string, deadline time.Duration) bool

// Engine drives one session's device topology through transitions.
type Engine struct {
	Session  *odcsession.Session
	Topology Topology
	Recover  RecoveryFunc
	Log      *odclog.Logger
}

// NewEngine constructs an Engine. recover may be nil, in which case any
// recoverable failure is treated as unrecovered.
func NewEngine(session *odcsession.Session, topo Topology, recover RecoveryFunc, log *odclog.Logger) *Engine {
	return &Engine{Session: session, Topology: topo, Recover: recover, Log: log}
}

// ChangeState issues transition over path and classifies/recovers from any
// failure (spec.md §4.6).
func (e *Engine) ChangeState(ctx context.Context, transition Transition, path string, deadline time.Duration) (bool, AggregatedState, error) {
	ok, agg, err := e.changeState(ctx, transition, path, deadline)
	if e.Log != nil {
		e.Log.LogTransition(ctx, string(transition), path, ok, err)
	}
	return ok, agg, err
}

func (e *Engine) changeState(ctx context.Context, transition Transition, path string, deadline time.Duration) (bool, AggregatedState, error) {
	if e.Topology == nil {
		return false, Undefined, odcerr.New(odcerr.CodeFairMQChangeStateFailed, "FairMQ topology is not initialized")
	}

	expected, ok := ExpectedState(transition)
	if !ok {
		return false, Undefined, odcerr.New(odcerr.CodeFairMQChangeStateFailed, "unexpected FairMQ transition").
			WithDetail("transition", string(transition))
	}

	err := e.Topology.ChangeState(ctx, transition, path, deadline)
	if err == nil {
		return true, AsAggregated(expected), nil
	}

	if odcerr.CodeOf(err) == odcerr.CodeDeviceChangeStateInvalidTransition {
		return false, Undefined, err
	}

	return e.recoverFromFailure(ctx, err, expected, path, deadline)
}

// WaitForState mirrors ChangeState's failure/recovery envelope but waits for
// a state rather than issuing a transition (spec.md §4.6).
func (e *Engine) WaitForState(ctx context.Context, expected DeviceState, path string, deadline time.Duration) (bool, AggregatedState, error) {
	ok, agg, err := e.waitForState(ctx, expected, path, deadline)
	if e.Log != nil {
		e.Log.LogTransition(ctx, "WaitForState:"+string(expected), path, ok, err)
	}
	return ok, agg, err
}

func (e *Engine) waitForState(ctx context.Context, expected DeviceState, path string, deadline time.Duration) (bool, AggregatedState, error) {
	if e.Topology == nil {
		return false, Undefined, odcerr.New(odcerr.CodeFairMQWaitForStateFailed, "FairMQ topology is not initialized")
	}

	err := e.Topology.WaitForState(ctx, expected, path, deadline)
	if err == nil {
		return true, AsAggregated(expected), nil
	}

	return e.recoverFromFailure(ctx, err, expected, path, deadline)
}

func (e *Engine) recoverFromFailure(ctx context.Context, original error, expected DeviceState, path string, deadline time.Duration) (bool, AggregatedState, error) {
	failed := classifyFailure(e.Topology, expected, path, e.Session.Expendable)

	if len(failed.Tasks) == 0 {
		return true, AsAggregated(expected), nil
	}

	if failed.Recoverable && len(failed.Collections) > 0 && e.Recover != nil {
		if e.Recover(ctx, failed.Collections, deadline) {
			if e.Log != nil {
				e.Log.LogRecovery(ctx, failed.Collections, true, "")
			}
			return true, AsAggregated(expected), nil
		}
		if e.Log != nil {
			e.Log.LogRecovery(ctx, failed.Collections, false, "nMin not satisfied")
		}
	}

	if odcerr.IsTimeout(original) {
		return false, Undefined, odcerr.New(odcerr.CodeRequestTimeout, "timed out waiting for expected state").
			WithDetail("expected", string(expected))
	}
	return false, Undefined, odcerr.Wrap(odcerr.CodeFairMQChangeStateFailed, "wait for state failed", original)
}

// classifyFailure scans the topology's current state over path, separating
// expendable-task failures (ignored in place) from real failures (spec.md
// §4.6 step 4).
func classifyFailure(topo Topology, expected DeviceState, path string, expendable map[string]struct{}) FailedTasksCollections {
	failed := FailedTasksCollections{Recoverable: true}
	seenCollections := make(map[string]struct{})

	for _, ts := range topo.CurrentStates(path) {
		if ts.Ignored || ts.State == expected {
			continue
		}

		if _, ok := expendable[ts.TaskID]; ok {
			topo.Ignore(ts.TaskID)
			continue
		}

		failed.Tasks = append(failed.Tasks, ts.TaskID)

		if ts.CollectionID == "" {
			failed.Recoverable = false
			continue
		}
		if _, ok := seenCollections[ts.CollectionID]; !ok {
			seenCollections[ts.CollectionID] = struct{}{}
			failed.Collections = append(failed.Collections, ts.CollectionID)
		}
	}

	return failed
}

// Configure runs the composite InitDevice -> CompleteInit -> Bind -> Connect
// -> InitTask sequence, aborting on the first failure (spec.md §4.6).
func (e *Engine) Configure(ctx context.Context, path string, deadline time.Duration) (bool, AggregatedState, error) {
	return e.runSequence(ctx, ConfigureSequence, path, deadline)
}

// Reset runs the composite ResetTask -> ResetDevice sequence (spec.md §4.6).
func (e *Engine) Reset(ctx context.Context, path string, deadline time.Duration) (bool, AggregatedState, error) {
	return e.runSequence(ctx, ResetSequence, path, deadline)
}

func (e *Engine) runSequence(ctx context.Context, sequence []Transition, path string, deadline time.Duration) (bool, AggregatedState, error) {
	var aggregated AggregatedState = Undefined
	for _, t := range sequence {
		ok, agg, err := e.ChangeState(ctx, t, path, deadline)
		if !ok {
			return false, Undefined, err
		}
		aggregated = agg
	}
	return true, aggregated, nil
}
