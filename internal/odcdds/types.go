package odcdds

// UpdateType distinguishes a fresh topology activation from an update of an
// already-active one (spec.md §4.5 activateTopology).
type UpdateType int

const (
	Activate UpdateType = iota
	Update
)

func (u UpdateType) String() string {
	if u == Update {
		return "UPDATE"
	}
	return "ACTIVATE"
}

// SubmissionRequest is what the resource planner hands the adapter for one
// submit call (spec.md §4.5 submitAgents).
type SubmissionRequest struct {
	RMSPlugin  string
	ConfigFile string
	EnvFile    string
	AgentGroup string
	NumAgents  int32
	NumSlots   int
	NumCores   int
}

// TaskActivation is reported by the response callback during
// activateTopology for every task that came up (spec.md §4.5).
type TaskActivation struct {
	TaskID       string
	AgentID      uint64
	SlotID       uint64
	CollectionID uint64
	Path         string
	Host         string
	WrkDir       string
}

// TaskDoneEvent is one message on the task-done event stream (spec.md §4.5
// subscribeTaskDone).
type TaskDoneEvent struct {
	TaskID   string
	ExitCode int
	Signal   int
}

// AgentInfo is one agent as reported by getAgentInfo (spec.md §4.5).
// AgentGroup is the submission descriptor's agent group this agent was
// granted under, used by Submit's post-submit tally (spec.md §4.8).
type AgentInfo struct {
	AgentID    uint64
	Slots      int
	Host       string
	AgentGroup string
}

// CommanderInfo is the response of requestCommanderInfo (spec.md §4.5),
// used on the Initialize-attach path to seed the session's topology file
// path (spec.md §5.2 supplement).
type CommanderInfo struct {
	TopologyFilePath string
	ActiveTopologyID string
}
