// Package fake provides an in-memory odcdds.RawClient double for tests that
// exercise odcdds.Client and the packages built on top of it without a real
// DDS cluster.
package fake

import (
	"context"
	"errors"
	"sync"

	"github.com/r3e-network/odc-core/internal/odcdds"
)

// Client is a single-session in-memory double. All operations succeed
// unless the corresponding FailXxx field is set, letting tests exercise the
// error paths odcdds.Client maps into stable codes.
type Client struct {
	mu sync.Mutex

	NextSessionID string

	FailCreateSession   error
	FailAttachSession   error
	FailSubscribe       error
	FailShutdown        error
	FailSubmit          error
	FailActivate        error
	FailAgentInfo       error
	FailCommanderInfo   error
	FailShutdownAgent   error

	// AgentsPerGroupOverride, when set for an agent group, forces Submit to
	// grant that many agents for descriptors targeting the group instead of
	// the requested NumAgents, simulating a partial allocation (spec.md §4.8).
	AgentsPerGroupOverride map[string]int

	submitted   []odcdds.SubmissionRequest
	numSlots    int
	agents      []odcdds.AgentInfo
	nextAgentID uint64
	commander   odcdds.CommanderInfo
	subscribed  bool
	shutdownIDs []uint64
}

// NewClient constructs a Client that will hand out NextSessionID ("fake-session"
// if unset) on CreateSession.
func NewClient() *Client {
	return &Client{NextSessionID: "fake-session"}
}

func (c *Client) CreateSession(ctx context.Context) (string, error) {
	if c.FailCreateSession != nil {
		return "", c.FailCreateSession
	}
	return c.NextSessionID, nil
}

func (c *Client) AttachSession(ctx context.Context, sessionID string) error {
	return c.FailAttachSession
}

func (c *Client) Subscribe(ctx context.Context, sessionID string, onTaskDone func(odcdds.TaskDoneEvent)) (func(), error) {
	if c.FailSubscribe != nil {
		return nil, c.FailSubscribe
	}
	c.mu.Lock()
	c.subscribed = true
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.subscribed = false
		c.mu.Unlock()
	}, nil
}

func (c *Client) Shutdown(ctx context.Context, sessionID string) error {
	return c.FailShutdown
}

// Submit records req, increments the in-memory slot count by
// numAgents*numSlots (or the AgentsPerGroupOverride count, if one is set for
// req.AgentGroup), and synthesizes that many AgentInfo entries tagged with
// req.AgentGroup so GetAgentInfo's post-submit tally (spec.md §4.8) can be
// exercised without a real DDS cluster.
func (c *Client) Submit(ctx context.Context, sessionID string, req odcdds.SubmissionRequest) error {
	if c.FailSubmit != nil {
		return c.FailSubmit
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitted = append(c.submitted, req)

	granted := int(req.NumAgents)
	if override, ok := c.AgentsPerGroupOverride[req.AgentGroup]; ok {
		granted = override
	}
	c.numSlots += granted * req.NumSlots
	for i := 0; i < granted; i++ {
		c.nextAgentID++
		c.agents = append(c.agents, odcdds.AgentInfo{
			AgentID:    c.nextAgentID,
			Slots:      req.NumSlots,
			AgentGroup: req.AgentGroup,
		})
	}
	return nil
}

func (c *Client) NumSlots(ctx context.Context, sessionID string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.numSlots, nil
}

func (c *Client) Activate(ctx context.Context, sessionID, topoFilePath string, update odcdds.UpdateType, onTask func(odcdds.TaskActivation)) error {
	if c.FailActivate != nil {
		return c.FailActivate
	}
	return nil
}

func (c *Client) AgentInfo(ctx context.Context, sessionID string) ([]odcdds.AgentInfo, error) {
	if c.FailAgentInfo != nil {
		return nil, c.FailAgentInfo
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.agents, nil
}

func (c *Client) CommanderInfo(ctx context.Context, sessionID string) (odcdds.CommanderInfo, error) {
	if c.FailCommanderInfo != nil {
		return odcdds.CommanderInfo{}, c.FailCommanderInfo
	}
	return c.commander, nil
}

func (c *Client) ShutdownAgent(ctx context.Context, sessionID string, agentID uint64) error {
	if c.FailShutdownAgent != nil {
		return c.FailShutdownAgent
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shutdownIDs = append(c.shutdownIDs, agentID)
	return nil
}

// SetAgents seeds the agent list returned by AgentInfo.
func (c *Client) SetAgents(agents []odcdds.AgentInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.agents = agents
}

// SetCommanderInfo seeds the response returned by CommanderInfo.
func (c *Client) SetCommanderInfo(info odcdds.CommanderInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commander = info
}

// SetNumSlots forces the slot count reported by NumSlots, used to simulate
// recovery's post-shutdown convergence polling.
func (c *Client) SetNumSlots(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.numSlots = n
}

// Submitted returns every SubmissionRequest passed to Submit, in order.
func (c *Client) Submitted() []odcdds.SubmissionRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]odcdds.SubmissionRequest(nil), c.submitted...)
}

// ShutdownAgentIDs returns every agent id passed to ShutdownAgent, in order.
func (c *Client) ShutdownAgentIDs() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint64(nil), c.shutdownIDs...)
}

// Subscribed reports whether a subscription is currently active.
func (c *Client) Subscribed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscribed
}

var errFake = errors.New("fake client failure")

// ErrFake is a sentinel failure tests can assign to any FailXxx field.
var ErrFake = errFake
