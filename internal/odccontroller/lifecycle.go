package odccontroller

import (
	"context"
	"time"

	"github.com/r3e-network/odc-core/internal/odcdds"
	"github.com/r3e-network/odc-core/internal/odcerr"
	"github.com/r3e-network/odc-core/internal/odcfsm"
)

// Initialize creates or attaches a DDS session for the partition (spec.md
// §4.10). An empty ddsSessionID creates a fresh session, shutting down any
// existing one first; a non-empty one attaches to an existing session and,
// per the commander-info cache supplement (SPEC_FULL.md §5.2), seeds
// session.TopoFilePath and builds the device topology if the commander
// reports an active topology.
func (c *Controller) Initialize(ctx context.Context, common CommonParams, ddsSessionID string) RequestResult {
	start := time.Now()
	session := c.Sessions.GetOrCreate(common.PartitionID)
	deadline := c.requestTimeout(common)

	if ddsSessionID == "" {
		if err := c.shutdownDDSSession(ctx, session, deadline); err != nil {
			return c.finish(ctx, "Initialize", common, fail(common, "", asError(err), start))
		}

		sessID, err := c.DDS.CreateSession(ctx, deadline)
		if err != nil {
			return c.finish(ctx, "Initialize", common, fail(common, "", asError(err), start))
		}
		session.DDSSessionID = sessID

		if c.History != nil {
			_ = c.History.Record(time.Now(), common.PartitionID, sessID)
		}

		cancel, err := c.DDS.SubscribeTaskDone(ctx, sessID, c.onTaskDone(common.PartitionID), deadline)
		if err != nil {
			return c.finish(ctx, "Initialize", common, fail(common, sessID, asError(err), start))
		}
		session.OnTaskDoneSubscription = cancel
	} else {
		if err := c.DDS.AttachSession(ctx, ddsSessionID, deadline); err != nil {
			return c.finish(ctx, "Initialize", common, fail(common, "", asError(err), start))
		}
		session.DDSSessionID = ddsSessionID

		cancel, err := c.DDS.SubscribeTaskDone(ctx, ddsSessionID, c.onTaskDone(common.PartitionID), deadline)
		if err != nil {
			return c.finish(ctx, "Initialize", common, fail(common, ddsSessionID, asError(err), start))
		}
		session.OnTaskDoneSubscription = cancel

		if info, err := c.DDS.RequestCommanderInfo(ctx, ddsSessionID, deadline); err == nil && info.TopologyFilePath != "" {
			session.TopoFilePath = info.TopologyFilePath
			if c.BuildTopology != nil {
				if topo, berr := c.BuildTopology(info.TopologyFilePath); berr == nil {
					session.DeviceTopology = topo
				} else if c.Log != nil {
					c.Log.WithField("partitionId", common.PartitionID).WithError(berr).
						Warn("failed to rebuild device topology on attach")
				}
			}
		}
	}

	c.rewriteRestoreManifest()
	return c.finish(ctx, "Initialize", common, ok(common, session.DDSSessionID, odcfsm.Undefined, start))
}

// onTaskDone logs non-zero exit/signal task-done events (spec.md §4.5
// subscribeTaskDone).
func (c *Controller) onTaskDone(partitionID string) func(odcdds.TaskDoneEvent) {
	return func(ev odcdds.TaskDoneEvent) {
		if ev.ExitCode == 0 && ev.Signal == 0 {
			return
		}
		if c.Log != nil {
			c.Log.WithField("partitionId", partitionID).WithField("taskId", ev.TaskID).
				WithField("exitCode", ev.ExitCode).WithField("signal", ev.Signal).
				Error("task exited abnormally")
		}
	}
}

// Run is the one-shot composite Initialize + Submit + Activate verb
// (spec.md §4.10). A second Run on the same Session is refused. Unlike a
// standalone Submit, Run is handed the topology up front, so it resolves and
// extracts it before Submit runs: that's the only way Submit's per-group
// minAgents lookup (spec.md §4.10 Submit, §4.8) can see the topology's
// nMin/zone declarations. Activate then reuses the already-resolved (and, if
// attemptSubmitRecovery reduced it, rewritten) path.
func (c *Controller) Run(ctx context.Context, common CommonParams, plugin, resources string, topo TopoSource) RequestResult {
	start := time.Now()
	session := c.Sessions.GetOrCreate(common.PartitionID)

	if session.RunAttempted {
		err := odcerr.New(odcerr.CodeRequestNotSupported, "Run has already been attempted on this session").
			WithDetail("partitionId", common.PartitionID)
		return c.finish(ctx, "Run", common, fail(common, session.DDSSessionID, err, start))
	}
	session.RunAttempted = true

	if res := c.Initialize(ctx, common, ""); res.Status != "ok" {
		return res
	}

	deadline := c.requestTimeout(common)
	path, err := resolveTopoSource(ctx, topo, deadline, c.Log)
	if err != nil {
		return c.finish(ctx, "Run", common, fail(common, session.DDSSessionID, asError(err), start))
	}
	session.TopoFilePath = path
	if eerr := c.extractAndStore(session, path); eerr != nil {
		return c.finish(ctx, "Run", common, fail(common, session.DDSSessionID, eerr, start))
	}

	if res := c.Submit(ctx, common, plugin, resources); res.Status != "ok" {
		return res
	}

	return c.Activate(ctx, common, TopoSource{File: session.TopoFilePath})
}

// Shutdown tears down the partition's DDS session and removes its Session
// from the store (spec.md §4.10).
func (c *Controller) Shutdown(ctx context.Context, common CommonParams) RequestResult {
	start := time.Now()
	session := c.Sessions.Get(common.PartitionID)
	if session == nil {
		return c.finish(ctx, "Shutdown", common, ok(common, "", odcfsm.Undefined, start))
	}

	sessionID := session.DDSSessionID
	deadline := c.requestTimeout(common)

	if err := c.shutdownDDSSession(ctx, session, deadline); err != nil {
		return c.finish(ctx, "Shutdown", common, fail(common, sessionID, asError(err), start))
	}

	c.Sessions.Delete(common.PartitionID)
	c.rewriteRestoreManifest()

	return c.finish(ctx, "Shutdown", common, ok(common, sessionID, odcfsm.Undefined, start))
}

func asError(err error) *odcerr.Error {
	if e, ok := odcerr.As(err); ok {
		return e
	}
	return odcerr.Wrap(odcerr.CodeRequestTimeout, "unexpected error", err)
}
