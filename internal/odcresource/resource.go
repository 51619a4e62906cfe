// Package odcresource implements the resource planner: invoking a named
// resource plugin and turning its XML output, merged with topology-derived
// zone information, into a list of submission descriptors (spec.md §4.3).
package odcresource

import (
	"context"
	"encoding/xml"
	"strconv"
	"strings"
	"time"

	"github.com/r3e-network/odc-core/internal/odcerr"
	"github.com/r3e-network/odc-core/internal/odcplugin"
	"github.com/r3e-network/odc-core/internal/odctopology"
)

// Descriptor is one plugin output row (spec.md §3 SubmissionDescriptor).
// NumAgents == -1 means "unset"; such descriptors never reach DDS.
type Descriptor struct {
	RMSPlugin  string
	Zone       string
	AgentGroup string
	ConfigFile string
	EnvFile    string
	NumAgents  int32
	MinAgents  int
	NumSlots   int
	NumCores   int
}

var validKeys = map[string]struct{}{
	"rms":        {},
	"configFile": {},
	"envFile":    {},
	"agents":     {},
	"slots":      {},
	"zone":       {},
}

// node is a generic XML element used to walk the plugin's output without
// committing to a fixed schema, mirroring the property tree the original
// implementation parses against.
type node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []node     `xml:",any"`
	Content  string     `xml:",chardata"`
}

// MakeParams invokes plugin through registry, parses its XML output, and
// merges in zoneInfos (spec.md §4.3).
func MakeParams(ctx context.Context, registry *odcplugin.Registry, plugin, resources, partitionID string, runNr uint64, zoneInfos map[string][]odctopology.ZoneGroup, deadline time.Duration) ([]Descriptor, error) {
	out, err := registry.Exec(ctx, plugin, resources, partitionID, runNr, deadline)
	if err != nil {
		if odcerr.CodeOf(err) == odcerr.CodePluginFailed || odcerr.CodeOf(err) == odcerr.CodePluginTimeout {
			return nil, odcerr.Wrap(odcerr.CodeResourcePluginFailed, "resource plugin failed", err)
		}
		return nil, err
	}

	var root node
	if err := xml.Unmarshal([]byte(out), &root); err != nil {
		return nil, odcerr.Wrap(odcerr.CodeResourcePluginFailed, "failed to parse resource plugin output", err)
	}

	descriptors, err := parseDescriptors(root)
	if err != nil {
		return nil, err
	}

	descriptors, err = mergeZones(descriptors, zoneInfos)
	if err != nil {
		return nil, err
	}

	return dropUnset(descriptors), nil
}

func parseDescriptors(root node) ([]Descriptor, error) {
	var submitNodes []node
	for _, child := range root.Children {
		if child.XMLName.Local == "submit" {
			submitNodes = append(submitNodes, child)
		}
	}

	if len(submitNodes) == 0 {
		d, err := parseOne(root)
		if err != nil {
			return nil, err
		}
		return []Descriptor{d}, nil
	}

	for _, child := range root.Children {
		if child.XMLName.Local != "submit" {
			return nil, odcerr.New(odcerr.CodeResourcePluginFailed, "unknown top level tag").
				WithDetail("tag", child.XMLName.Local)
		}
	}

	descriptors := make([]Descriptor, 0, len(submitNodes))
	for _, n := range submitNodes {
		d, err := parseOne(n)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, d)
	}
	return descriptors, nil
}

func parseOne(n node) (Descriptor, error) {
	d := Descriptor{NumAgents: -1}

	for _, child := range n.Children {
		key := child.XMLName.Local
		if _, ok := validKeys[key]; !ok {
			return Descriptor{}, odcerr.New(odcerr.CodeResourcePluginFailed, "unknown key").
				WithDetail("key", key)
		}
		value := strings.TrimSpace(child.Content)
		switch key {
		case "rms":
			d.RMSPlugin = value
		case "configFile":
			d.ConfigFile = value
		case "envFile":
			d.EnvFile = value
		case "zone":
			d.Zone = value
			// agentGroup is seeded from the zone value; only zones present in
			// zoneInfos later overwrite it (spec.md §9 open question).
			d.AgentGroup = value
		case "agents":
			n, err := strconv.ParseInt(value, 10, 32)
			if err != nil {
				return Descriptor{}, odcerr.Wrap(odcerr.CodeResourcePluginFailed, "invalid agents value", err)
			}
			d.NumAgents = int32(n)
		case "slots":
			n, err := strconv.Atoi(value)
			if err != nil {
				return Descriptor{}, odcerr.Wrap(odcerr.CodeResourcePluginFailed, "invalid slots value", err)
			}
			d.NumSlots = n
		}
	}

	return d, nil
}

func mergeZones(descriptors []Descriptor, zoneInfos map[string][]odctopology.ZoneGroup) ([]Descriptor, error) {
	for zoneName, groups := range zoneInfos {
		idx := -1
		for i := range descriptors {
			if descriptors[i].Zone == zoneName {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, odcerr.New(odcerr.CodeResourcePluginFailed, "zone not found").
				WithDetail("zone", zoneName)
		}

		descriptors[idx].NumCores = groups[0].NCores
		descriptors[idx].AgentGroup = groups[0].AgentGroup
		if descriptors[idx].NumCores != 0 {
			descriptors[idx].NumAgents = 1
		}

		template := descriptors[idx]
		for i := 1; i < len(groups); i++ {
			clone := template
			clone.NumCores = groups[i].NCores
			clone.AgentGroup = groups[i].AgentGroup
			descriptors = append(descriptors, clone)
		}
	}
	return descriptors, nil
}

func dropUnset(descriptors []Descriptor) []Descriptor {
	out := descriptors[:0]
	for _, d := range descriptors {
		if d.NumAgents != -1 {
			out = append(out, d)
		}
	}
	return out
}
