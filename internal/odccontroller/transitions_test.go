package odccontroller_test

import (
	"context"
	"testing"

	"github.com/r3e-network/odc-core/internal/odccontroller"
	ddsfake "github.com/r3e-network/odc-core/internal/odcdds/fake"
	"github.com/r3e-network/odc-core/internal/odcfsm"
	topofake "github.com/r3e-network/odc-core/internal/odcfsm/fake"
)

// activatedSession brings up a session with a device topology built over a
// topoPath declaring one collection C with n tasks, ready for the
// transition verbs.
func activatedSession(t *testing.T, c *odccontroller.Controller, raw *ddsfake.Client, partitionID string, n, nMin int) string {
	t.Helper()
	topoPath := writeTopology(t, n, nMin)
	common := odccontroller.CommonParams{PartitionID: partitionID, RunNr: 1}

	if res := c.Initialize(context.Background(), common, ""); res.Status != "ok" {
		t.Fatalf("Initialize() = %+v, want ok", res)
	}
	if res := c.Activate(context.Background(), common, odccontroller.TopoSource{File: topoPath}); res.Status != "ok" {
		t.Fatalf("Activate() = %+v, want ok", res)
	}
	return topoPath
}

// Scenario 4 (spec.md §8): Expendable task failure. Topology marks task T
// with odc_expendable_T=true; during Configure, T's device does not reach
// the expected state. Expected: T is ignored by the device topology, the
// aggregated state is the expected terminal state, result ok.
func TestConfigure_ExpendableTaskFailureIsIgnored(t *testing.T) {
	raw := ddsfake.NewClient()
	c := newTestController(raw)
	activatedSession(t, c, raw, "p1", 2, 0)

	session := c.Sessions.Get("p1")
	topo, ok := session.DeviceTopology.(*topofake.Topology)
	if !ok {
		t.Fatal("expected the test double's concrete *topofake.Topology")
	}

	states := topo.CurrentStates("")
	if len(states) == 0 {
		t.Fatal("expected at least one task state")
	}
	expendableTaskID := states[0].TaskID
	session.Expendable[expendableTaskID] = struct{}{}
	topo.FailTasks[expendableTaskID] = struct{}{}

	common := odccontroller.CommonParams{PartitionID: "p1", RunNr: 1}
	result := c.Configure(context.Background(), common, "", false)
	if result.Status != "ok" {
		t.Fatalf("Configure() = %+v, want ok", result)
	}
	if result.AggregatedState != odcfsm.Ready {
		t.Errorf("AggregatedState = %v, want Ready", result.AggregatedState)
	}
}

// GetState with detailed=true returns the per-task state breakdown.
func TestGetState_Detailed(t *testing.T) {
	raw := ddsfake.NewClient()
	c := newTestController(raw)
	activatedSession(t, c, raw, "p1", 3, 0)

	common := odccontroller.CommonParams{PartitionID: "p1", RunNr: 1}
	result := c.GetState(context.Background(), common, "", true)
	if result.Status != "ok" {
		t.Fatalf("GetState() = %+v, want ok", result)
	}
	if len(result.DetailedState) != 3 {
		t.Errorf("DetailedState has %d entries, want 3", len(result.DetailedState))
	}
}
