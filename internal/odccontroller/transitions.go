package odccontroller

import (
	"context"
	"time"

	"github.com/r3e-network/odc-core/internal/odcerr"
	"github.com/r3e-network/odc-core/internal/odcfsm"
)

// Configure drives the composite InitDevice->CompleteInit->Bind->Connect->
// InitTask sequence (spec.md §4.6, §4.10).
func (c *Controller) Configure(ctx context.Context, common CommonParams, path string, detailed bool) RequestResult {
	return c.runComposite(ctx, "Configure", common, path, detailed, func(e *odcfsm.Engine, deadline time.Duration) (bool, odcfsm.AggregatedState, error) {
		return e.Configure(ctx, path, deadline)
	})
}

// Start issues the Run transition and records lastRunNr (spec.md §4.10).
func (c *Controller) Start(ctx context.Context, common CommonParams, path string, detailed bool) RequestResult {
	result := c.runComposite(ctx, "Start", common, path, detailed, func(e *odcfsm.Engine, deadline time.Duration) (bool, odcfsm.AggregatedState, error) {
		return e.ChangeState(ctx, odcfsm.RunTransition, path, deadline)
	})
	if result.Status == "ok" {
		if session := c.Sessions.Get(common.PartitionID); session != nil {
			session.SetLastRunNr(common.RunNr)
		}
	}
	return result
}

// Stop issues the Stop transition and clears lastRunNr (spec.md §4.10).
func (c *Controller) Stop(ctx context.Context, common CommonParams, path string, detailed bool) RequestResult {
	result := c.runComposite(ctx, "Stop", common, path, detailed, func(e *odcfsm.Engine, deadline time.Duration) (bool, odcfsm.AggregatedState, error) {
		return e.ChangeState(ctx, odcfsm.StopTransition, path, deadline)
	})
	if result.Status == "ok" {
		if session := c.Sessions.Get(common.PartitionID); session != nil {
			session.ClearLastRunNr()
		}
	}
	return result
}

// Reset drives the composite ResetTask->ResetDevice sequence (spec.md §4.6,
// §4.10).
func (c *Controller) Reset(ctx context.Context, common CommonParams, path string, detailed bool) RequestResult {
	return c.runComposite(ctx, "Reset", common, path, detailed, func(e *odcfsm.Engine, deadline time.Duration) (bool, odcfsm.AggregatedState, error) {
		return e.Reset(ctx, path, deadline)
	})
}

// Terminate issues the End transition (spec.md §4.6, §4.10).
func (c *Controller) Terminate(ctx context.Context, common CommonParams, path string, detailed bool) RequestResult {
	return c.runComposite(ctx, "Terminate", common, path, detailed, func(e *odcfsm.Engine, deadline time.Duration) (bool, odcfsm.AggregatedState, error) {
		return e.ChangeState(ctx, odcfsm.End, path, deadline)
	})
}

func (c *Controller) runComposite(ctx context.Context, verb string, common CommonParams, path string, detailed bool, run func(*odcfsm.Engine, time.Duration) (bool, odcfsm.AggregatedState, error)) RequestResult {
	start := time.Now()
	session := c.Sessions.GetOrCreate(common.PartitionID)
	deadline := c.requestTimeout(common)

	engine, err := c.engineFor(session)
	if err != nil {
		return c.finish(ctx, verb, common, fail(common, session.DDSSessionID, asError(err), start))
	}

	okTrans, agg, terr := run(engine, deadline)
	if !okTrans {
		if c.Metrics != nil {
			c.Metrics.RecordTransition(verb, "failed")
		}
		return c.finish(ctx, verb, common, fail(common, session.DDSSessionID, asError(terr), start))
	}
	if c.Metrics != nil {
		c.Metrics.RecordTransition(verb, "ok")
	}

	result := ok(common, session.DDSSessionID, agg, start)
	if detailed {
		if topo, tok := session.DeviceTopology.(odcfsm.Topology); tok && topo != nil {
			result.DetailedState = topo.CurrentStates(path)
		}
	}
	return c.finish(ctx, verb, common, result)
}

// GetState aggregates the current state over path without issuing any
// transition (spec.md §4.10 GetState, §4.11).
func (c *Controller) GetState(ctx context.Context, common CommonParams, path string, detailed bool) RequestResult {
	start := time.Now()
	session := c.Sessions.GetOrCreate(common.PartitionID)

	topo, tok := session.DeviceTopology.(odcfsm.Topology)
	if !tok || topo == nil {
		err := odcerr.New(odcerr.CodeFairMQGetStateFailed, "FairMQ topology is not initialized")
		return c.finish(ctx, "GetState", common, fail(common, session.DDSSessionID, err, start))
	}

	agg, err := odcfsm.Aggregate(topo, path)
	if err != nil {
		return c.finish(ctx, "GetState", common, fail(common, session.DDSSessionID, asError(err), start))
	}

	result := ok(common, session.DDSSessionID, agg, start)
	if detailed {
		result.DetailedState = topo.CurrentStates(path)
	}
	return c.finish(ctx, "GetState", common, result)
}

// SetProperties pushes properties to every task matched by path and applies
// the §4.6 failure/recovery envelope to any partial failure (spec.md §4.10
// SetProperties).
func (c *Controller) SetProperties(ctx context.Context, common CommonParams, path string, properties map[string]string) RequestResult {
	start := time.Now()
	session := c.Sessions.GetOrCreate(common.PartitionID)
	deadline := c.requestTimeout(common)

	topo, tok := session.DeviceTopology.(odcfsm.Topology)
	if !tok || topo == nil {
		err := odcerr.New(odcerr.CodeFairMQSetPropertiesFailed, "FairMQ topology is not initialized")
		return c.finish(ctx, "SetProperties", common, fail(common, session.DDSSessionID, err, start))
	}

	if err := topo.SetProperties(ctx, path, properties, deadline); err != nil {
		engine, eerr := c.engineFor(session)
		if eerr != nil {
			return c.finish(ctx, "SetProperties", common, fail(common, session.DDSSessionID, odcerr.Wrap(odcerr.CodeFairMQSetPropertiesFailed, "set properties failed", err), start))
		}
		states := topo.CurrentStates(path)
		var expected odcfsm.DeviceState
		if len(states) > 0 {
			expected = states[0].State
		}
		recovered, agg, rerr := engine.WaitForState(ctx, expected, path, deadline)
		if !recovered {
			return c.finish(ctx, "SetProperties", common, fail(common, session.DDSSessionID, asError(rerr), start))
		}
		return c.finish(ctx, "SetProperties", common, ok(common, session.DDSSessionID, agg, start))
	}

	agg, _ := odcfsm.Aggregate(topo, path)
	return c.finish(ctx, "SetProperties", common, ok(common, session.DDSSessionID, agg, start))
}
