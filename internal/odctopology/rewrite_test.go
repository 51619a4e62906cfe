package odctopology

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"testing"
)

func writeSampleTopology(t *testing.T) string {
	t.Helper()
	out, err := xml.MarshalIndent(sampleDoc(), "", "  ")
	if err != nil {
		t.Fatalf("marshal sample topology: %v", err)
	}
	path := filepath.Join(t.TempDir(), "topo.xml")
	if err := os.WriteFile(path, out, 0o644); err != nil {
		t.Fatalf("write sample topology: %v", err)
	}
	return path
}

// A reduced collection's n must survive a re-extraction of the rewritten
// file: Activate always re-extracts (spec.md §4.10), and Extract reads a
// collection's own n attribute, not its parent group's.
func TestRewrite_SurvivesReExtraction(t *testing.T) {
	path := writeSampleTopology(t)
	nInfo := map[string]NInfoEntry{"C": {NOriginal: 4, NCurrent: 2, NMin: 2, AgentGroup: "G"}}

	reducedPath, err := Rewrite(path, "p1", nInfo)
	if err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}

	doc, err := Parse(reducedPath)
	if err != nil {
		t.Fatalf("Parse(reduced) error = %v", err)
	}

	res := Extract(doc, nil)
	entry, ok := res.NInfo["C"]
	if !ok {
		t.Fatal("expected NInfo[C] after re-extraction")
	}
	if entry.NCurrent != 2 {
		t.Errorf("NInfo[C].NCurrent = %d, want 2 (must not bounce back to the original 4)", entry.NCurrent)
	}

	group := doc.Main.Groups[0]
	if group.N != 2 {
		t.Errorf("parent group N = %d, want 2", group.N)
	}
	if group.Collections[0].N != 2 {
		t.Errorf("collection N = %d, want 2", group.Collections[0].N)
	}
}

// Rewrite leaves collections absent from nInfo untouched.
func TestRewrite_UnaffectedCollectionUnchanged(t *testing.T) {
	path := writeSampleTopology(t)
	nInfo := map[string]NInfoEntry{"C": {NOriginal: 4, NCurrent: 3, NMin: 2, AgentGroup: "G"}}

	reducedPath, err := Rewrite(path, "p1", nInfo)
	if err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}

	doc, err := Parse(reducedPath)
	if err != nil {
		t.Fatalf("Parse(reduced) error = %v", err)
	}

	if doc.Main.Collections[0].N != 2 {
		t.Errorf("root collection N = %d, want unchanged 2", doc.Main.Collections[0].N)
	}
}
