// Package odcsession holds the process-wide partition -> Session map and
// the per-partition mutable state it guards (spec.md §3, §5).
package odcsession

import (
	"sync"
	"sync/atomic"

	"github.com/r3e-network/odc-core/internal/odctopology"
)

// TaskDetail is one activated task (spec.md §3).
type TaskDetail struct {
	AgentID      uint64
	SlotID       uint64
	CollectionID uint64
	Path         string
	Host         string
	WrkDir       string
}

// CollectionDetail is one activated collection; Path is the parent path of
// its tasks' paths (spec.md §4.5 activateTopology).
type CollectionDetail struct {
	AgentID uint64
	SlotID  uint64
	Path    string
	Host    string
	WrkDir  string
}

// Session is the per-partition aggregate (spec.md §3). Its mutable fields
// are owned by whichever request handler currently holds the partition; the
// only field safe for concurrent access from outside that handler is
// LastRunNr, which is atomic (spec.md §5).
type Session struct {
	PartitionID string

	DDSSessionID  string
	DDSTopologyID string

	// DeviceTopology is the device topology handle, opaque to this package;
	// odcfsm type-asserts it into its own interface. Nil means "not built".
	DeviceTopology interface{}

	TopoFilePath string

	NInfo     map[string]odctopology.NInfoEntry
	ZoneInfos map[string][]odctopology.ZoneGroup

	Tasks       map[string]TaskDetail
	Collections map[string]CollectionDetail

	Expendable map[string]struct{}

	AgentSlots map[uint64]int
	TotalSlots int64

	RunAttempted bool

	OnTaskDoneSubscription func()

	lastRunNr uint64
}

// New constructs an empty Session for partitionID.
func New(partitionID string) *Session {
	return &Session{
		PartitionID: partitionID,
		NInfo:       make(map[string]odctopology.NInfoEntry),
		ZoneInfos:   make(map[string][]odctopology.ZoneGroup),
		Tasks:       make(map[string]TaskDetail),
		Collections: make(map[string]CollectionDetail),
		Expendable:  make(map[string]struct{}),
		AgentSlots:  make(map[uint64]int),
	}
}

// Running reports whether the session has a live DDS session id.
func (s *Session) Running() bool { return s.DDSSessionID != "" }

// LastRunNr atomically reads the last observed run number.
func (s *Session) LastRunNr() uint64 { return atomic.LoadUint64(&s.lastRunNr) }

// SetLastRunNr atomically sets the last observed run number (Start).
func (s *Session) SetLastRunNr(runNr uint64) { atomic.StoreUint64(&s.lastRunNr, runNr) }

// ClearLastRunNr atomically resets the last observed run number (Stop).
func (s *Session) ClearLastRunNr() { atomic.StoreUint64(&s.lastRunNr, 0) }

// Store is the process-wide partition id -> Session map, guarded by one
// mutex (spec.md §5 mSessionsMtx).
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// GetOrCreate returns the existing Session for partitionID, creating one if
// absent (spec.md §3 "Session is created lazily on first request").
func (st *Store) GetOrCreate(partitionID string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[partitionID]
	if !ok {
		s = New(partitionID)
		st.sessions[partitionID] = s
	}
	return s
}

// Get returns the existing Session for partitionID, or nil.
func (st *Store) Get(partitionID string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.sessions[partitionID]
}

// Delete removes partitionID's Session from the store.
func (st *Store) Delete(partitionID string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, partitionID)
}

// Snapshot returns every Session currently in the store, holding the store
// mutex only long enough to copy the pointers, not for the duration of
// per-session state reads.
func (st *Store) Snapshot() []*Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		out = append(out, s)
	}
	return out
}

// WithLock runs fn with the store mutex held, passing a snapshot of the
// current sessions. Used for operations that must observe a consistent view
// across insertion/removal and a side effect in the same critical section,
// such as restore manifest rewrites (spec.md §5).
func (st *Store) WithLock(fn func(sessions []*Session)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		out = append(out, s)
	}
	fn(out)
}
