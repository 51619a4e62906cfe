package odccontroller

import (
	"context"
	"time"

	"github.com/r3e-network/odc-core/internal/odcdds"
	"github.com/r3e-network/odc-core/internal/odcerr"
	"github.com/r3e-network/odc-core/internal/odcfsm"
	"github.com/r3e-network/odc-core/internal/odcresource"
	"github.com/r3e-network/odc-core/internal/odcsession"
	"github.com/r3e-network/odc-core/internal/odctopology"
)

// Submit drives the resource planner and DDS submission loop, applying the
// post-hoc nMin recovery of spec.md §4.8 on a per-descriptor shortfall.
func (c *Controller) Submit(ctx context.Context, common CommonParams, plugin, resources string) RequestResult {
	start := time.Now()
	session := c.Sessions.GetOrCreate(common.PartitionID)
	deadline := c.requestTimeout(common)

	if !session.Running() {
		err := odcerr.New(odcerr.CodeDDSSubmitAgentsFailed, "no running DDS session for this partition")
		return c.finish(ctx, "Submit", common, fail(common, "", err, start))
	}

	descriptors, err := odcresource.MakeParams(ctx, c.ResourcePlugins, plugin, resources, common.PartitionID, common.RunNr, session.ZoneInfos, deadline)
	if err != nil {
		return c.finish(ctx, "Submit", common, fail(common, session.DDSSessionID, asError(err), start))
	}

	for i := range descriptors {
		if _, entry, found := nInfoForGroup(session.NInfo, descriptors[i].AgentGroup); found {
			descriptors[i].MinAgents = entry.NMin
		}
	}

	for _, d := range descriptors {
		req := odcdds.SubmissionRequest{
			RMSPlugin:  d.RMSPlugin,
			ConfigFile: d.ConfigFile,
			EnvFile:    d.EnvFile,
			AgentGroup: d.AgentGroup,
			NumAgents:  d.NumAgents,
			NumSlots:   d.NumSlots,
			NumCores:   d.NumCores,
		}
		if err := c.DDS.SubmitAgents(ctx, session.DDSSessionID, req, deadline); err != nil {
			return c.finish(ctx, "Submit", common, fail(common, session.DDSSessionID, asError(err), start))
		}
		session.TotalSlots += int64(d.NumAgents) * int64(d.NumSlots)
	}

	var totalRequested int
	for _, d := range descriptors {
		totalRequested += int(d.NumAgents)
	}
	if err := c.DDS.WaitForActiveSlots(ctx, session.DDSSessionID, totalRequested, deadline); err != nil && c.Log != nil {
		c.Log.WithField("partitionId", common.PartitionID).WithError(err).
			Warn("not every requested agent became active; judging submission by actual counts")
	}

	agents, err := c.DDS.GetAgentInfo(ctx, session.DDSSessionID, deadline)
	if err != nil {
		return c.finish(ctx, "Submit", common, fail(common, session.DDSSessionID, asError(err), start))
	}
	for _, a := range agents {
		session.AgentSlots[a.AgentID] = a.Slots
	}
	actualByGroup := make(map[string]int, len(descriptors))
	for _, a := range agents {
		actualByGroup[a.AgentGroup]++
	}

	// attemptSubmitRecovery runs unconditionally after the submit loop
	// finishes and is the sole judge of success (spec.md §4.8, §9 Open
	// Questions: it clears any prior accumulator state, so nothing upstream
	// of this point can fail the request once every descriptor's actual
	// count clears its own minAgents bar).
	if err := c.attemptSubmitRecovery(session, descriptors, actualByGroup, common); err != nil {
		return c.finish(ctx, "Submit", common, fail(common, session.DDSSessionID, err, start))
	}
	return c.finish(ctx, "Submit", common, ok(common, session.DDSSessionID, odcfsm.Undefined, start))
}

// attemptSubmitRecovery compares each descriptor's requested agent count to
// its actual post-submit tally (spec.md §4.8). An exact match needs no
// action. A descriptor with minAgents==0, or whose actual count falls below
// minAgents, is a hard failure. Otherwise the reduced count is accepted:
// nInfo[agentGroup].nCurrent is updated and, if any descriptor was reduced,
// the topology file is rewritten (spec.md §4.9).
func (c *Controller) attemptSubmitRecovery(session *odcsession.Session, descriptors []odcresource.Descriptor, actualByGroup map[string]int, common CommonParams) *odcerr.Error {
	reduced := false
	for _, d := range descriptors {
		actual := actualByGroup[d.AgentGroup]
		if int32(actual) == d.NumAgents {
			continue
		}
		if d.MinAgents == 0 || actual < d.MinAgents {
			return odcerr.New(odcerr.CodeDDSSubmitAgentsFailed, "submitted fewer agents than required").
				WithDetail("agentGroup", d.AgentGroup).
				WithDetail("requested", d.NumAgents).
				WithDetail("minAgents", d.MinAgents).
				WithDetail("actual", actual)
		}
		name, entry, found := nInfoForGroup(session.NInfo, d.AgentGroup)
		if !found {
			return odcerr.New(odcerr.CodeDDSSubmitAgentsFailed, "reduced agent group has no nMin policy").
				WithDetail("agentGroup", d.AgentGroup)
		}
		entry.NCurrent = actual
		session.NInfo[name] = entry
		reduced = true
	}
	if !reduced {
		return nil
	}

	newPath, err := odctopology.Rewrite(session.TopoFilePath, common.PartitionID, session.NInfo)
	if err != nil {
		return asError(err)
	}
	session.TopoFilePath = newPath
	return nil
}

// nInfoForGroup reverse-looks-up the nInfo entry (keyed by collection name,
// spec.md §3) whose AgentGroup matches agentGroup, since resource descriptors
// only carry the agent group, not the owning collection's name.
func nInfoForGroup(nInfo map[string]odctopology.NInfoEntry, agentGroup string) (string, odctopology.NInfoEntry, bool) {
	for name, entry := range nInfo {
		if entry.AgentGroup == agentGroup {
			return name, entry, true
		}
	}
	return "", odctopology.NInfoEntry{}, false
}
