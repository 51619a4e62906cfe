package odctopology

import (
	"encoding/xml"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/r3e-network/odc-core/internal/odcerr"
)

// Rewrite loads the topology document at topoFilePath and, for every
// collection whose name is a key of nInfo, sets that collection's parent
// non-root group's n attribute to the collection's NCurrent (spec.md §4.9).
// The result is saved to a fresh temporary file
// "topo_<partitionID>_reduced.xml" under a unique directory; the original
// file is never modified. Returns the new file's path.
func Rewrite(topoFilePath, partitionID string, nInfo map[string]NInfoEntry) (string, error) {
	doc, err := Parse(topoFilePath)
	if err != nil {
		return "", odcerr.Wrap(odcerr.CodeTopologyFailed, "failed to load topology for reduction", err)
	}

	rewriteGroup(&doc.Main, true, nInfo)

	dir, err := os.MkdirTemp("", "odc-topo-reduced-"+uuid.New().String())
	if err != nil {
		return "", odcerr.Wrap(odcerr.CodeTopologyFailed, "failed to create a temporary directory", err)
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", odcerr.Wrap(odcerr.CodeTopologyFailed, "failed to marshal reduced topology", err)
	}

	path := filepath.Join(dir, "topo_"+partitionID+"_reduced.xml")
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return "", odcerr.Wrap(odcerr.CodeTopologyFailed, "failed to write reduced topology", err)
	}

	return path, nil
}

// rewriteGroup recurses depth-first, setting g.N to the NCurrent of any
// collection in g whose name is in nInfo, provided g is not the root group
// (spec.md §4.9). The collection's own n attribute is updated too, so that a
// later re-extraction of the rewritten file (Activate always re-extracts,
// spec.md §4.10) observes the same reduced count instead of reverting to the
// document's original n.
func rewriteGroup(g *Group, isRoot bool, nInfo map[string]NInfoEntry) {
	if !isRoot {
		for i := range g.Collections {
			if entry, ok := nInfo[g.Collections[i].Name]; ok {
				g.N = entry.NCurrent
				g.Collections[i].N = entry.NCurrent
			}
		}
	}
	for i := range g.Groups {
		rewriteGroup(&g.Groups[i], false, nInfo)
	}
}
