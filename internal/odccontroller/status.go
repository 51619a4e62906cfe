package odccontroller

import (
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/r3e-network/odc-core/internal/odcfsm"
	"github.com/r3e-network/odc-core/internal/odcsession"
)

// Status snapshots every Session under the sessions mutex, then computes
// each one's current aggregated state concurrently (spec.md §4.10 Status,
// §5 "Status while a Run is in progress"). If running is true, sessions
// without a live DDS session are excluded. Status has no single partition
// id to hand a request trigger (spec.md §6.6 triggers fire with one
// --id/partitionId), so unlike every other verb it does not fire one.
func (c *Controller) Status(running bool) StatusRequestResult {
	start := time.Now()

	var sessions []*odcsession.Session
	c.Sessions.WithLock(func(s []*odcsession.Session) {
		sessions = s
	})

	statuses := make([]PartitionStatus, len(sessions))
	g := new(errgroup.Group)
	for i, s := range sessions {
		i, s := i, s
		g.Go(func() error {
			statuses[i] = c.snapshotStatus(s)
			return nil
		})
	}
	_ = g.Wait()

	filtered := statuses[:0]
	for _, st := range statuses {
		if !running || st.Running {
			filtered = append(filtered, st)
		}
	}

	execTime := time.Since(start)

	if c.Metrics != nil {
		var totalSlots int64
		for _, s := range sessions {
			totalSlots += s.TotalSlots
		}
		c.Metrics.SetSessionGauges(len(sessions), totalSlots)
		c.Metrics.RecordRequest("Status", "ok", execTime)
	}

	return StatusRequestResult{
		Status:     "ok",
		ExecTime:   execTime,
		Partitions: filtered,
	}
}

func (c *Controller) snapshotStatus(s *odcsession.Session) PartitionStatus {
	status := PartitionStatus{
		PartitionID:     s.PartitionID,
		SessionID:       s.DDSSessionID,
		Running:         s.Running(),
		AggregatedState: odcfsm.Undefined,
	}
	if topo, ok := s.DeviceTopology.(odcfsm.Topology); ok && topo != nil {
		if agg, err := odcfsm.Aggregate(topo, ""); err == nil {
			status.AggregatedState = agg
		}
	}
	return status
}
