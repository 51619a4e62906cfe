package odccontroller

import (
	"context"
	"time"

	"github.com/r3e-network/odc-core/internal/odcdds"
	"github.com/r3e-network/odc-core/internal/odcerr"
	"github.com/r3e-network/odc-core/internal/odcfsm"
	"github.com/r3e-network/odc-core/internal/odchistory"
	"github.com/r3e-network/odc-core/internal/odclog"
	"github.com/r3e-network/odc-core/internal/odcmetrics"
	"github.com/r3e-network/odc-core/internal/odcplugin"
	"github.com/r3e-network/odc-core/internal/odcrestore"
	"github.com/r3e-network/odc-core/internal/odcsession"
)

// TopologyBuilder constructs a device topology handle for a topology file
// already activated against DDS. It is the narrow surface this package
// needs from the device-topology library, kept out of scope per spec.md §1.
type TopologyBuilder func(topoFilePath string) (odcfsm.Topology, error)

// Controller is the facade composing the plugin, resource, topology,
// session, DDS, and transition-engine packages into the user-visible
// request verbs (spec.md §4.10, §4.11).
type Controller struct {
	Sessions        *odcsession.Store
	DDS             odcdds.Adapter
	ResourcePlugins *odcplugin.Registry
	RequestTriggers *odcplugin.Registry
	BuildTopology   TopologyBuilder
	Log             *odclog.Logger
	Metrics         *odcmetrics.Metrics
	History         *odchistory.Log

	// RestoreManifest, when non-nil, is rewritten on Initialize and Shutdown
	// only, matching spec.md §9's "Initialize and Shutdown are the only
	// lifecycle edges that change the manifest" note.
	RestoreManifest *odcrestore.Manifest

	// DefaultTimeout is used whenever a CommonParams carries no override.
	DefaultTimeout time.Duration
}

// New constructs a Controller. BuildTopology may be nil if the caller never
// exercises Activate/Update/Configure in this process.
func New(sessions *odcsession.Store, dds odcdds.Adapter, resourcePlugins, requestTriggers *odcplugin.Registry, buildTopology TopologyBuilder, log *odclog.Logger) *Controller {
	return &Controller{
		Sessions:        sessions,
		DDS:             dds,
		ResourcePlugins: resourcePlugins,
		RequestTriggers: requestTriggers,
		BuildTopology:   buildTopology,
		Log:             log,
		DefaultTimeout:  30 * time.Second,
	}
}

func (c *Controller) requestTimeout(common CommonParams) time.Duration {
	if common.TimeoutOverride > 0 {
		return common.TimeoutOverride
	}
	if c.DefaultTimeout > 0 {
		return c.DefaultTimeout
	}
	return 30 * time.Second
}

// finish runs the shared end-of-request envelope: stamp a trace ID, fire
// the matching request trigger, record metrics, and log the outcome
// (spec.md §4.10, §6.6). The trace ID correlates the trigger invocation
// with the final request log line across this one verb call.
func (c *Controller) finish(ctx context.Context, verb string, common CommonParams, result RequestResult) RequestResult {
	ctx = odclog.WithTraceID(ctx, odclog.NewTraceID())

	c.fireTrigger(ctx, verb, common)

	if c.Metrics != nil {
		c.Metrics.RecordRequest(verb, result.Status, result.ExecTime)
		if result.Error != nil {
			c.Metrics.RecordError(string(result.Error.Code))
		}
	}

	if c.Log != nil {
		lctx := odclog.WithRunNr(odclog.WithPartition(ctx, common.PartitionID), common.RunNr)
		var errForLog error
		if result.Error != nil {
			errForLog = result.Error
		}
		c.Log.LogRequest(lctx, verb, result.ExecTime, result.Status, errForLog)
	}

	return result
}

// fireTrigger invokes the request trigger registered for verb, if any
// (spec.md §6.6). Failures are logged and never fail the request.
func (c *Controller) fireTrigger(ctx context.Context, verb string, common CommonParams) {
	if c.RequestTriggers == nil || !c.RequestTriggers.IsRegistered(verb) {
		return
	}
	out, err := c.RequestTriggers.Exec(ctx, verb, "", common.PartitionID, common.RunNr, c.requestTimeout(common))
	if err != nil {
		if c.Log != nil {
			c.Log.WithField("partitionId", common.PartitionID).WithField("trigger", verb).
				WithError(err).Warn("request trigger failed")
		}
		return
	}
	if out != "" && c.Log != nil {
		c.Log.WithField("partitionId", common.PartitionID).WithField("trigger", verb).Info(out)
	}
}

// rewriteRestoreManifest snapshots every running session and rewrites the
// restore manifest under the sessions mutex (spec.md §5, §6.4). Called only
// from Initialize and Shutdown (spec.md §9 Open Questions).
func (c *Controller) rewriteRestoreManifest() {
	if c.RestoreManifest == nil {
		return
	}
	c.Sessions.WithLock(func(sessions []*odcsession.Session) {
		entries := make([]odcrestore.Entry, 0, len(sessions))
		for _, s := range sessions {
			if s.Running() {
				entries = append(entries, odcrestore.Entry{PartitionID: s.PartitionID, DDSSessionID: s.DDSSessionID})
			}
		}
		if err := c.RestoreManifest.Write(entries); err != nil && c.Log != nil {
			c.Log.WithError(err).Warn("failed to rewrite restore manifest")
		}
	})
}

// shutdownDDSSession tears down session's DDS session, if any, cancelling
// its task-done subscription and clearing per-session DDS-derived state
// (spec.md §4.5 shutdownSession).
func (c *Controller) shutdownDDSSession(ctx context.Context, session *odcsession.Session, deadline time.Duration) error {
	if !session.Running() {
		return nil
	}
	if session.OnTaskDoneSubscription != nil {
		session.OnTaskDoneSubscription()
		session.OnTaskDoneSubscription = nil
	}
	err := c.DDS.ShutdownSession(ctx, session.DDSSessionID, deadline)
	session.DDSSessionID = ""
	session.DDSTopologyID = ""
	session.DeviceTopology = nil
	session.Tasks = make(map[string]odcsession.TaskDetail)
	session.Collections = make(map[string]odcsession.CollectionDetail)
	if err != nil {
		return odcerr.Wrap(odcerr.CodeDDSShutdownSessionFailed, "shutdown failed", err)
	}
	return nil
}

// engineFor builds an odcfsm.Engine over session bound to the recovery
// procedure, so every transition verb gets the same failure/recovery
// envelope (spec.md §4.6, §4.7).
func (c *Controller) engineFor(session *odcsession.Session) (*odcfsm.Engine, error) {
	topo, ok := session.DeviceTopology.(odcfsm.Topology)
	if !ok || topo == nil {
		return nil, odcerr.New(odcerr.CodeFairMQChangeStateFailed, "FairMQ topology is not initialized")
	}
	recover := func(ctx context.Context, failedCollections []string, deadline time.Duration) bool {
		ok := odcfsm.Recover(ctx, session, topo, c.DDS, failedCollections, deadline, c.Log)
		if c.Metrics != nil {
			if ok {
				c.Metrics.RecordRecovery("recovered")
			} else {
				c.Metrics.RecordRecovery("failed")
			}
		}
		return ok
	}
	return odcfsm.NewEngine(session, topo, recover, c.Log), nil
}
