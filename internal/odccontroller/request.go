// Package odccontroller is the facade composing the plugin, resource,
// topology, session, DDS, and transition-engine packages into the
// user-visible request verbs (spec.md §4.10, §4.11).
package odccontroller

import (
	"time"

	"github.com/r3e-network/odc-core/internal/odcerr"
	"github.com/r3e-network/odc-core/internal/odcfsm"
)

// CommonParams is the per-request context shared by every verb except
// Status (spec.md §3).
type CommonParams struct {
	PartitionID     string
	RunNr           uint64
	TimeoutOverride time.Duration
}

// RequestResult is the uniform reply every verb returns (spec.md §3).
type RequestResult struct {
	Status          string
	Message         string
	ExecTime        time.Duration
	Error           *odcerr.Error
	PartitionID     string
	RunNr           uint64
	SessionID       string
	AggregatedState odcfsm.AggregatedState
	DetailedState   []odcfsm.TaskState
}

func ok(common CommonParams, sessionID string, agg odcfsm.AggregatedState, start time.Time) RequestResult {
	return RequestResult{
		Status:          "ok",
		PartitionID:     common.PartitionID,
		RunNr:           common.RunNr,
		SessionID:       sessionID,
		AggregatedState: agg,
		ExecTime:        time.Since(start),
	}
}

func fail(common CommonParams, sessionID string, err *odcerr.Error, start time.Time) RequestResult {
	return RequestResult{
		Status:          "error",
		Message:         err.Error(),
		Error:           err,
		PartitionID:     common.PartitionID,
		RunNr:           common.RunNr,
		SessionID:       sessionID,
		AggregatedState: odcfsm.Undefined,
		ExecTime:        time.Since(start),
	}
}

// PartitionStatus is one Session's snapshot in a Status reply (spec.md
// §4.10 Status).
type PartitionStatus struct {
	PartitionID     string
	SessionID       string
	Running         bool
	AggregatedState odcfsm.AggregatedState
}

// StatusRequestResult is Status's reply shape (spec.md §6.1).
type StatusRequestResult struct {
	Status     string
	Message    string
	ExecTime   time.Duration
	Partitions []PartitionStatus
}

// TopoSource carries the three mutually-exclusive ways a topology may be
// supplied (spec.md §6.2). Exactly one field must be non-empty.
type TopoSource struct {
	File    string
	Content string
	Script  string
}
