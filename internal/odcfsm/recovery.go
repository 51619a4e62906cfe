package odcfsm

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/r3e-network/odc-core/internal/odcdds"
	"github.com/r3e-network/odc-core/internal/odclog"
	"github.com/r3e-network/odc-core/internal/odcsession"
)

// Recover implements the nMin recovery policy (spec.md §4.7): shrink the
// affected collections' nCurrent down to their actual surviving count,
// provided every collection stays at or above its nMin, then tear down the
// agents that hosted the failed collections and wait for the DDS slot count
// to converge.
//
// failedCollections names topology collections by the same string used as
// their session.NInfo key. No DDS runtime id to name mapping is applied:
// the caller (odccontroller) passes each failed task's CollectionID as
// reported by the topology, and a name missing from NInfo makes Recover
// return false.
func Recover(ctx context.Context, session *odcsession.Session, topo Topology, adapter odcdds.Adapter, failedCollections []string, deadline time.Duration, log *odclog.Logger) bool {
	if len(failedCollections) == 0 || len(session.NInfo) == 0 {
		return false
	}

	failedCount := make(map[string]int, len(failedCollections))
	for _, name := range failedCollections {
		if _, ok := session.NInfo[name]; !ok {
			return false
		}
		failedCount[name]++
	}

	updated := make(map[string]int, len(session.NInfo))
	for name, entry := range session.NInfo {
		remaining := entry.NCurrent - failedCount[name]
		if remaining < entry.NMin {
			return false
		}
		updated[name] = remaining
	}
	for name, remaining := range updated {
		entry := session.NInfo[name]
		entry.NCurrent = remaining
		session.NInfo[name] = entry
	}

	var shutdownAgentIDs []uint64
	var expectedSlotsDelta int
	for _, name := range failedCollections {
		topo.IgnoreCollection(name)
		if detail, ok := session.Collections[name]; ok {
			shutdownAgentIDs = append(shutdownAgentIDs, detail.AgentID)
			expectedSlotsDelta += session.AgentSlots[detail.AgentID]
		}
	}
	expectedSlots := session.TotalSlots - int64(expectedSlotsDelta)

	g, gCtx := errgroup.WithContext(ctx)
	for _, agentID := range shutdownAgentIDs {
		agentID := agentID
		g.Go(func() error {
			if err := adapter.ShutdownAgentByID(gCtx, session.DDSSessionID, agentID, deadline); err != nil && log != nil {
				log.WithField("agentId", agentID).Warn("failed to shut down agent during recovery")
			}
			return nil
		})
	}
	_ = g.Wait()

	pollCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	final := session.TotalSlots
	for {
		count, err := adapter.GetNumSlots(pollCtx, session.DDSSessionID, deadline)
		if err == nil {
			final = int64(count)
			if final == expectedSlots {
				break
			}
		}
		select {
		case <-pollCtx.Done():
			goto done
		case <-ticker.C:
		}
	}
done:
	session.TotalSlots = final
	if final != expectedSlots && log != nil {
		log.WithField("expected", expectedSlots).WithField("actual", final).
			Warn("slot count did not converge after recovery")
	}

	return true
}
