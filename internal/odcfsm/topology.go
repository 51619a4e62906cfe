package odcfsm

import (
	"context"
	"time"
)

// TaskState is one task's current state as reported by the device topology.
type TaskState struct {
	TaskID       string
	CollectionID string
	State        DeviceState
	Ignored      bool
}

// Topology is the device topology surface odcfsm depends on. The real
// implementation drives an external FairMQ-style state machine; Topology
// is the narrow contract this package needs from it.
type Topology interface {
	// ChangeState issues transition against every task matched by path (empty
	// path means all tasks) and blocks until DDS reports completion or ctx's
	// deadline elapses.
	ChangeState(ctx context.Context, transition Transition, path string, deadline time.Duration) error

	// WaitForState blocks until every non-ignored task matched by path
	// reaches expected, or the deadline elapses.
	WaitForState(ctx context.Context, expected DeviceState, path string, deadline time.Duration) error

	// CurrentStates returns the current state of every task matched by path.
	CurrentStates(path string) []TaskState

	// Ignore excludes taskID from future aggregation and transitions
	// (expendable tasks, spec.md §4.6).
	Ignore(taskID string)

	// IgnoreCollection excludes every task in collectionID from future
	// aggregation and transitions (nMin-recovered collections, spec.md §4.7
	// step 4).
	IgnoreCollection(collectionID string)

	// SetProperties pushes properties to every task matched by path.
	SetProperties(ctx context.Context, path string, properties map[string]string, deadline time.Duration) error
}

// FailedTasksCollections is the failure report built by scanning the
// topology after a failed transition (spec.md §4.6 step 4).
type FailedTasksCollections struct {
	Tasks       []string
	Collections []string
	Recoverable bool
}
