package odcrestore

import (
	"os"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/r3e-network/odc-core/internal/odclog"
)

// IsActiveFunc reports whether partitionID still has a live Session. The
// sweeper uses it to decide whether a manifest entry is stale.
type IsActiveFunc func(partitionID string) bool

// Sweeper periodically prunes restore manifest entries for partitions whose
// Session no longer exists, e.g. because the process crashed between a
// Shutdown's session-store removal and its manifest rewrite (SPEC_FULL.md
// §5.4). Disabled by default: callers must call Start explicitly.
type Sweeper struct {
	dir      string
	isActive IsActiveFunc
	log      *odclog.Logger

	cron *cron.Cron
}

// NewSweeper constructs a Sweeper over every "*.restore" file in dir.
func NewSweeper(dir string, isActive IsActiveFunc, log *odclog.Logger) *Sweeper {
	return &Sweeper{dir: dir, isActive: isActive, log: log}
}

// Start schedules the sweep on spec (standard 5-field cron syntax, or a
// descriptor such as "@every 1m") and
// returns once scheduling succeeds; the sweep itself runs asynchronously.
func (s *Sweeper) Start(spec string) error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(spec, s.sweepOnce)
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the scheduler; any in-flight sweep is allowed to finish.
func (s *Sweeper) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
}

func (s *Sweeper) sweepOnce() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if s.log != nil {
			s.log.WithField("dir", s.dir).Warn("restore sweep: failed to list directory")
		}
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".restore") {
			continue
		}
		restoreID := strings.TrimSuffix(entry.Name(), ".restore")
		s.sweepManifest(restoreID)
	}
}

func (s *Sweeper) sweepManifest(restoreID string) {
	m, err := Open(s.dir, restoreID)
	if err != nil {
		return
	}
	current, err := m.Read()
	if err != nil {
		if s.log != nil {
			s.log.WithField("restoreId", restoreID).Warn("restore sweep: failed to read manifest")
		}
		return
	}

	live := current[:0]
	for _, e := range current {
		if s.isActive(e.PartitionID) {
			live = append(live, e)
		}
	}
	if len(live) == len(current) {
		return
	}

	if err := m.Write(live); err != nil && s.log != nil {
		s.log.WithField("restoreId", restoreID).Warn("restore sweep: failed to rewrite manifest")
	}
}
