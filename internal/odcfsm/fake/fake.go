// Package fake provides an in-memory odcfsm.Topology double for tests.
package fake

import (
	"context"
	"time"

	"github.com/r3e-network/odc-core/internal/odcfsm"
)

// Topology is a controllable in-memory device topology. Tasks start in
// whatever state they are constructed with; ChangeState transitions every non-ignored task matched by path to
// the transition's expected state, except those listed in FailTasks, which
// stay put (simulating a stuck device).
type Topology struct {
	Tasks map[string]*odcfsm.TaskState

	// FailTasks lists task ids that never reach the expected state on
	// ChangeState, to exercise the failure/recovery envelope.
	FailTasks map[string]struct{}

	ChangeStateErr error
	WaitForStateErr error

	ignoredCollections map[string]struct{}
}

// New constructs a Topology with the given tasks (by id).
func New(tasks ...*odcfsm.TaskState) *Topology {
	m := make(map[string]*odcfsm.TaskState, len(tasks))
	for _, t := range tasks {
		m[t.TaskID] = t
	}
	return &Topology{Tasks: m, FailTasks: make(map[string]struct{}), ignoredCollections: make(map[string]struct{})}
}

func (t *Topology) matches(path string, ts *odcfsm.TaskState) bool {
	if path == "" {
		return true
	}
	return ts.TaskID == path || ts.CollectionID == path
}

func (t *Topology) ChangeState(ctx context.Context, transition odcfsm.Transition, path string, deadline time.Duration) error {
	if t.ChangeStateErr != nil {
		return t.ChangeStateErr
	}
	expected, _ := odcfsm.ExpectedState(transition)
	allOK := true
	for id, ts := range t.Tasks {
		if ts.Ignored || !t.matches(path, ts) {
			continue
		}
		if _, fail := t.FailTasks[id]; fail {
			allOK = false
			continue
		}
		ts.State = expected
	}
	if !allOK {
		return errTransitionFailed
	}
	return nil
}

func (t *Topology) WaitForState(ctx context.Context, expected odcfsm.DeviceState, path string, deadline time.Duration) error {
	if t.WaitForStateErr != nil {
		return t.WaitForStateErr
	}
	for _, ts := range t.Tasks {
		if ts.Ignored || !t.matches(path, ts) {
			continue
		}
		if ts.State != expected {
			return errTransitionFailed
		}
	}
	return nil
}

func (t *Topology) CurrentStates(path string) []odcfsm.TaskState {
	var out []odcfsm.TaskState
	for _, ts := range t.Tasks {
		if t.matches(path, ts) {
			out = append(out, *ts)
		}
	}
	return out
}

func (t *Topology) Ignore(taskID string) {
	if ts, ok := t.Tasks[taskID]; ok {
		ts.Ignored = true
	}
}

func (t *Topology) IgnoreCollection(collectionID string) {
	t.ignoredCollections[collectionID] = struct{}{}
	for _, ts := range t.Tasks {
		if ts.CollectionID == collectionID {
			ts.Ignored = true
		}
	}
}

func (t *Topology) SetProperties(ctx context.Context, path string, properties map[string]string, deadline time.Duration) error {
	return nil
}

type transitionFailedError struct{}

func (transitionFailedError) Error() string { return "fake: transition did not reach expected state" }

var errTransitionFailed = transitionFailedError{}
