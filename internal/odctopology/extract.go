package odctopology

import (
	"strconv"
	"strings"

	"github.com/r3e-network/odc-core/internal/odclog"
)

// NInfoEntry tracks a collection's replica bookkeeping for the nMin
// recovery policy (spec.md §3, §4.7).
type NInfoEntry struct {
	NOriginal  int
	NCurrent   int
	NMin       int
	AgentGroup string
}

// ZoneGroup is one group's contribution to a zone (spec.md §3, §4.3).
type ZoneGroup struct {
	N          int
	NCores     int
	AgentGroup string
}

// Result is everything the controller needs from a topology document beyond
// its raw task/collection structure.
type Result struct {
	Expendable map[string]struct{}
	NInfo      map[string]NInfoEntry
	ZoneInfos  map[string][]ZoneGroup
}

const (
	prefixExpendable = "odc_expendable_"
	prefixNCores     = "odc_ncores_"
	prefixZone       = "odc_zone_"
	prefixNMin       = "odc_nmin_"
)

// Extract walks doc and derives expendable tasks, per-collection nMin info,
// and per-zone group lists (spec.md §4.4). log receives per-task/per-group
// diagnostics; it may be nil.
func Extract(doc *Document, log *odclog.Logger) *Result {
	res := &Result{
		Expendable: make(map[string]struct{}),
		NInfo:      make(map[string]NInfoEntry),
		ZoneInfos:  make(map[string][]ZoneGroup),
	}

	extractExpendable(&doc.Main, res, log)
	walkCollections(&doc.Main, true, res, log)

	return res
}

func extractExpendable(g *Group, res *Result, log *odclog.Logger) {
	for _, c := range g.Collections {
		for _, t := range c.Tasks {
			for _, r := range t.Requirements {
				if !strings.HasPrefix(r.Name, prefixExpendable) {
					continue
				}
				switch r.Value {
				case "true":
					res.Expendable[t.ID] = struct{}{}
				case "false":
					// explicitly not expendable, nothing to record
				default:
					if log != nil {
						log.WithField("task", t.ID).
							WithField("value", r.Value).
							Error("task has odc_expendable_* requirement with unknown value")
					}
				}
			}
		}
	}
	for i := range g.Groups {
		extractExpendable(&g.Groups[i], res, log)
	}
}

// walkCollections recurses depth-first over group, processing each
// collection's requirements. isRoot is true only for the document's <main>
// group.
func walkCollections(g *Group, isRoot bool, res *Result, log *odclog.Logger) {
	for _, c := range g.Collections {
		processCollection(c, isRoot, res, log)
	}
	for i := range g.Groups {
		walkCollections(&g.Groups[i], false, res, log)
	}
}

func processCollection(c Collection, parentIsRoot bool, res *Result, log *odclog.Logger) {
	var (
		agentGroup string
		zone       string
		ncores     int
		nMin       = -1
	)

	for _, r := range c.Requirements {
		switch {
		case r.Name == "GroupName":
			agentGroup = r.Value
		case r.Name == "HostName", r.Name == "WnName", r.Name == "MaxInstancesPerHost":
			if log != nil {
				log.WithField("collection", c.Name).
					WithField("requirement", r.Name).
					Debug("requirement logged, not stored")
			}
		case strings.HasPrefix(r.Name, prefixNCores):
			if v, err := strconv.Atoi(r.Value); err == nil {
				ncores = v
			} else if log != nil {
				log.WithField("collection", c.Name).WithField("value", r.Value).
					Error("invalid odc_ncores_* value")
			}
		case strings.HasPrefix(r.Name, prefixZone):
			zone = r.Value
		case strings.HasPrefix(r.Name, prefixNMin):
			if !parentIsRoot {
				if v, err := strconv.Atoi(r.Value); err == nil {
					nMin = v
				} else if log != nil {
					log.WithField("collection", c.Name).WithField("value", r.Value).
						Error("invalid odc_nmin_* value")
				}
			}
		}
	}

	if agentGroup != "" && nMin >= 0 {
		if _, exists := res.NInfo[c.Name]; !exists {
			res.NInfo[c.Name] = NInfoEntry{
				NOriginal:  c.N,
				NCurrent:   c.N,
				NMin:       nMin,
				AgentGroup: agentGroup,
			}
		}
	}

	if agentGroup != "" && zone != "" {
		res.ZoneInfos[zone] = append(res.ZoneInfos[zone], ZoneGroup{
			N:          c.N,
			NCores:     ncores,
			AgentGroup: agentGroup,
		})
	}
}
