package odccontroller

import (
	"context"
	"time"

	"github.com/r3e-network/odc-core/internal/odcdds"
	"github.com/r3e-network/odc-core/internal/odcerr"
	"github.com/r3e-network/odc-core/internal/odcfsm"
	"github.com/r3e-network/odc-core/internal/odcsession"
	"github.com/r3e-network/odc-core/internal/odctopology"
)

// Activate resolves the topology source, extracts its requirements, submits
// it to DDS for activation, and waits for the resulting devices to reach
// Idle (spec.md §4.10 Activate, §6.2).
func (c *Controller) Activate(ctx context.Context, common CommonParams, src TopoSource) RequestResult {
	start := time.Now()
	session := c.Sessions.GetOrCreate(common.PartitionID)
	deadline := c.requestTimeout(common)

	path, err := resolveTopoSource(ctx, src, deadline, c.Log)
	if err != nil {
		return c.finish(ctx, "Activate", common, fail(common, session.DDSSessionID, asError(err), start))
	}
	session.TopoFilePath = path

	if err := c.extractAndStore(session, path); err != nil {
		return c.finish(ctx, "Activate", common, fail(common, session.DDSSessionID, err, start))
	}

	if err := c.activateAndRebuild(ctx, session, path, odcdds.Activate, deadline); err != nil {
		return c.finish(ctx, "Activate", common, fail(common, session.DDSSessionID, err, start))
	}

	engine, err := c.engineFor(session)
	if err != nil {
		return c.finish(ctx, "Activate", common, fail(common, session.DDSSessionID, asError(err), start))
	}
	okTrans, agg, werr := engine.WaitForState(ctx, odcfsm.Idle, "", deadline)
	if !okTrans {
		return c.finish(ctx, "Activate", common, fail(common, session.DDSSessionID, asError(werr), start))
	}

	return c.finish(ctx, "Activate", common, ok(common, session.DDSSessionID, agg, start))
}

// Update re-activates a topology against an already-running session: reset
// the current devices, rebuild the device topology, activate with UPDATE,
// wait for Idle, then reconfigure (spec.md §4.10 Update).
func (c *Controller) Update(ctx context.Context, common CommonParams, src TopoSource) RequestResult {
	start := time.Now()
	session := c.Sessions.GetOrCreate(common.PartitionID)
	deadline := c.requestTimeout(common)

	path, err := resolveTopoSource(ctx, src, deadline, c.Log)
	if err != nil {
		return c.finish(ctx, "Update", common, fail(common, session.DDSSessionID, asError(err), start))
	}
	session.TopoFilePath = path

	if err := c.extractAndStore(session, path); err != nil {
		return c.finish(ctx, "Update", common, fail(common, session.DDSSessionID, err, start))
	}

	engine, err := c.engineFor(session)
	if err != nil {
		return c.finish(ctx, "Update", common, fail(common, session.DDSSessionID, asError(err), start))
	}
	if okTrans, _, rerr := engine.Reset(ctx, "", deadline); !okTrans {
		return c.finish(ctx, "Update", common, fail(common, session.DDSSessionID, asError(rerr), start))
	}

	session.DeviceTopology = nil

	if err := c.activateAndRebuild(ctx, session, path, odcdds.Update, deadline); err != nil {
		return c.finish(ctx, "Update", common, fail(common, session.DDSSessionID, err, start))
	}

	engine, err = c.engineFor(session)
	if err != nil {
		return c.finish(ctx, "Update", common, fail(common, session.DDSSessionID, asError(err), start))
	}
	if okTrans, _, werr := engine.WaitForState(ctx, odcfsm.Idle, "", deadline); !okTrans {
		return c.finish(ctx, "Update", common, fail(common, session.DDSSessionID, asError(werr), start))
	}

	okTrans, agg, cerr := engine.Configure(ctx, "", deadline)
	if !okTrans {
		return c.finish(ctx, "Update", common, fail(common, session.DDSSessionID, asError(cerr), start))
	}

	return c.finish(ctx, "Update", common, ok(common, session.DDSSessionID, agg, start))
}

// extractAndStore parses the topology at path and stores its derived
// requirements on session (spec.md §4.4).
func (c *Controller) extractAndStore(session *odcsession.Session, path string) *odcerr.Error {
	doc, err := odctopology.Parse(path)
	if err != nil {
		return odcerr.Wrap(odcerr.CodeTopologyFailed, "failed to parse topology", err)
	}
	res := odctopology.Extract(doc, nil)
	session.NInfo = res.NInfo
	session.ZoneInfos = res.ZoneInfos
	session.Expendable = res.Expendable
	return nil
}

// activateAndRebuild submits path to DDS for activation, records the
// resulting task/collection details on session (spec.md §4.5
// activateTopology), and rebuilds the device topology handle.
func (c *Controller) activateAndRebuild(ctx context.Context, session *odcsession.Session, path string, update odcdds.UpdateType, deadline time.Duration) *odcerr.Error {
	onTask := func(ta odcdds.TaskActivation) {
		session.Tasks[ta.TaskID] = odcsession.TaskDetail{
			AgentID:      ta.AgentID,
			SlotID:       ta.SlotID,
			CollectionID: ta.CollectionID,
			Path:         ta.Path,
			Host:         ta.Host,
			WrkDir:       ta.WrkDir,
		}
		// The collection is keyed by name, not by DDS's numeric runtime id,
		// because that's the key Recover uses to correlate a topology
		// collection back to the agent hosting it (spec.md §4.7, the name
		// also used as the odcsession.Session.NInfo key). A task's path is
		// slash-separated topology element names, so the collection's own
		// name is the last segment of its parent path.
		if ta.CollectionID > 0 {
			collPath := parentPath(ta.Path)
			session.Collections[baseName(collPath)] = odcsession.CollectionDetail{
				AgentID: ta.AgentID,
				SlotID:  ta.SlotID,
				Path:    collPath,
				Host:    ta.Host,
				WrkDir:  ta.WrkDir,
			}
		}
	}

	if err := c.DDS.ActivateTopology(ctx, session.DDSSessionID, path, update, onTask, deadline); err != nil {
		return asError(err)
	}

	if c.BuildTopology != nil {
		topo, err := c.BuildTopology(path)
		if err != nil {
			return odcerr.Wrap(odcerr.CodeFairMQCreateTopologyFailed, "failed to build device topology", err)
		}
		session.DeviceTopology = topo
	}
	return nil
}

// parentPath truncates s at its last '/' (spec.md §4.5 activateTopology:
// the collection's path is the parent path of its tasks' paths).
func parentPath(s string) string {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return s[:i]
		}
	}
	return s
}

// baseName returns the segment of s after its last '/'.
func baseName(s string) string {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return s[i+1:]
		}
	}
	return s
}
