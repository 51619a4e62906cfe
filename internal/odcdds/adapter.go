// Package odcdds wraps a DDS cluster session into the request/timeout
// discipline every operation in spec.md §4.5 shares: build request, run it
// against a deadline, surface a stable error code on timeout or failure.
//
// The DDS client library itself (dds::tools_api in the original) is an
// external collaborator whose internals are out of scope; RawClient is the
// narrow surface this package needs from it, and Client adapts that surface
// into the Adapter contract the controller depends on.
package odcdds

import (
	"context"
	"strconv"
	"time"

	"github.com/r3e-network/odc-core/internal/odcerr"
)

// RawClient is the low-level session operations a concrete DDS binding
// would provide. Every method blocks until it has an answer or ctx is done;
// Client layers the deadline and error-code discipline on top.
type RawClient interface {
	CreateSession(ctx context.Context) (sessionID string, err error)
	AttachSession(ctx context.Context, sessionID string) error
	Subscribe(ctx context.Context, sessionID string, onTaskDone func(TaskDoneEvent)) (cancel func(), err error)
	Shutdown(ctx context.Context, sessionID string) error
	Submit(ctx context.Context, sessionID string, req SubmissionRequest) error
	NumSlots(ctx context.Context, sessionID string) (int, error)
	Activate(ctx context.Context, sessionID, topoFilePath string, update UpdateType, onTask func(TaskActivation)) error
	AgentInfo(ctx context.Context, sessionID string) ([]AgentInfo, error)
	CommanderInfo(ctx context.Context, sessionID string) (CommanderInfo, error)
	ShutdownAgent(ctx context.Context, sessionID string, agentID uint64) error
}

// Adapter is the contract the controller (and odcfsm's recovery procedure)
// depend on.
type Adapter interface {
	CreateSession(ctx context.Context, deadline time.Duration) (sessionID string, err error)
	AttachSession(ctx context.Context, sessionID string, deadline time.Duration) error
	SubscribeTaskDone(ctx context.Context, sessionID string, onDone func(TaskDoneEvent), deadline time.Duration) (cancel func(), err error)
	ShutdownSession(ctx context.Context, sessionID string, deadline time.Duration) error
	SubmitAgents(ctx context.Context, sessionID string, req SubmissionRequest, deadline time.Duration) error
	WaitForActiveSlots(ctx context.Context, sessionID string, n int, deadline time.Duration) error
	ActivateTopology(ctx context.Context, sessionID, topoFilePath string, update UpdateType, onTask func(TaskActivation), deadline time.Duration) error
	GetAgentInfo(ctx context.Context, sessionID string, deadline time.Duration) ([]AgentInfo, error)
	GetNumSlots(ctx context.Context, sessionID string, deadline time.Duration) (int, error)
	RequestCommanderInfo(ctx context.Context, sessionID string, deadline time.Duration) (CommanderInfo, error)
	ShutdownAgentByID(ctx context.Context, sessionID string, agentID uint64, deadline time.Duration) error
}

// Client adapts a RawClient into Adapter.
type Client struct {
	raw RawClient
}

// NewClient constructs a Client wrapping raw.
func NewClient(raw RawClient) *Client {
	return &Client{raw: raw}
}

func withDeadline(ctx context.Context, deadline time.Duration) (context.Context, context.CancelFunc) {
	if deadline <= 0 {
		deadline = 30 * time.Second
	}
	return context.WithTimeout(ctx, deadline)
}

func (c *Client) CreateSession(ctx context.Context, deadline time.Duration) (string, error) {
	runCtx, cancel := withDeadline(ctx, deadline)
	defer cancel()

	id, err := c.raw.CreateSession(runCtx)
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return "", odcerr.New(odcerr.CodeRequestTimeout, "timed out creating DDS session")
		}
		return "", odcerr.Wrap(odcerr.CodeDDSCreateSessionFailed, "failed to create a DDS session", err)
	}
	return id, nil
}

func (c *Client) AttachSession(ctx context.Context, sessionID string, deadline time.Duration) error {
	runCtx, cancel := withDeadline(ctx, deadline)
	defer cancel()

	if err := c.raw.AttachSession(runCtx, sessionID); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return odcerr.New(odcerr.CodeRequestTimeout, "timed out attaching to DDS session")
		}
		return odcerr.Wrap(odcerr.CodeDDSAttachToSessionFailed, "failed to attach to a DDS session", err)
	}
	return nil
}

func (c *Client) SubscribeTaskDone(ctx context.Context, sessionID string, onDone func(TaskDoneEvent), deadline time.Duration) (func(), error) {
	runCtx, cancel := withDeadline(ctx, deadline)
	defer cancel()

	cancelSub, err := c.raw.Subscribe(runCtx, sessionID, onDone)
	if err != nil {
		return nil, odcerr.Wrap(odcerr.CodeDDSSubscribeToSessionFailed, "failed to subscribe to task done events", err)
	}
	return cancelSub, nil
}

func (c *Client) ShutdownSession(ctx context.Context, sessionID string, deadline time.Duration) error {
	runCtx, cancel := withDeadline(ctx, deadline)
	defer cancel()

	if err := c.raw.Shutdown(runCtx, sessionID); err != nil {
		return odcerr.Wrap(odcerr.CodeDDSShutdownSessionFailed, "shutdown failed", err)
	}
	return nil
}

// SubmitAgents applies the slurm overbooking transform (spec.md §4.5) before
// delegating to the raw client: for RMSPlugin "slurm" with NumCores > 0 the
// only change is the SBATCH directive prepended to req.ConfigFile; no
// separate overbooking flag is carried on the request.
func (c *Client) SubmitAgents(ctx context.Context, sessionID string, req SubmissionRequest, deadline time.Duration) error {
	runCtx, cancel := withDeadline(ctx, deadline)
	defer cancel()

	if req.RMSPlugin == "slurm" && req.NumCores > 0 {
		req.ConfigFile = appendSBatchCPUsPerTask(req.ConfigFile, req.NumCores)
	}

	if err := c.raw.Submit(runCtx, sessionID, req); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return odcerr.New(odcerr.CodeRequestTimeout, "timed out waiting for agent submission")
		}
		return odcerr.Wrap(odcerr.CodeDDSSubmitAgentsFailed, "submit error", err)
	}
	return nil
}

// appendSBatchCPUsPerTask prepends an "#SBATCH --cpus-per-task=<n>" directive
// line to the slurm config file content and returns the result; it sets no
// other flag.
func appendSBatchCPUsPerTask(configFile string, numCores int) string {
	directive := "#SBATCH --cpus-per-task=" + strconv.Itoa(numCores) + "\n"
	return directive + configFile
}

func (c *Client) WaitForActiveSlots(ctx context.Context, sessionID string, n int, deadline time.Duration) error {
	runCtx, cancel := withDeadline(ctx, deadline)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		count, err := c.raw.NumSlots(runCtx, sessionID)
		if err == nil && count >= n {
			return nil
		}
		select {
		case <-runCtx.Done():
			return odcerr.New(odcerr.CodeRequestTimeout, "timed out waiting for DDS slots")
		case <-ticker.C:
		}
	}
}

func (c *Client) ActivateTopology(ctx context.Context, sessionID, topoFilePath string, update UpdateType, onTask func(TaskActivation), deadline time.Duration) error {
	runCtx, cancel := withDeadline(ctx, deadline)
	defer cancel()

	if err := c.raw.Activate(runCtx, sessionID, topoFilePath, update, onTask); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return odcerr.New(odcerr.CodeRequestTimeout, "timed out waiting for topology activation")
		}
		return odcerr.Wrap(odcerr.CodeDDSActivateTopologyFailed, "activate error", err)
	}
	return nil
}

func (c *Client) GetAgentInfo(ctx context.Context, sessionID string, deadline time.Duration) ([]AgentInfo, error) {
	runCtx, cancel := withDeadline(ctx, deadline)
	defer cancel()

	info, err := c.raw.AgentInfo(runCtx, sessionID)
	if err != nil {
		return nil, odcerr.Wrap(odcerr.CodeDDSCommanderInfoFailed, "failed getting agent info", err)
	}
	return info, nil
}

func (c *Client) GetNumSlots(ctx context.Context, sessionID string, deadline time.Duration) (int, error) {
	runCtx, cancel := withDeadline(ctx, deadline)
	defer cancel()
	return c.raw.NumSlots(runCtx, sessionID)
}

func (c *Client) RequestCommanderInfo(ctx context.Context, sessionID string, deadline time.Duration) (CommanderInfo, error) {
	runCtx, cancel := withDeadline(ctx, deadline)
	defer cancel()

	info, err := c.raw.CommanderInfo(runCtx, sessionID)
	if err != nil {
		return CommanderInfo{}, odcerr.Wrap(odcerr.CodeDDSCommanderInfoFailed, "error getting DDS commander info", err)
	}
	return info, nil
}

func (c *Client) ShutdownAgentByID(ctx context.Context, sessionID string, agentID uint64, deadline time.Duration) error {
	runCtx, cancel := withDeadline(ctx, deadline)
	defer cancel()
	return c.raw.ShutdownAgent(runCtx, sessionID, agentID)
}
