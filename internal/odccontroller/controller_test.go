package odccontroller_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/r3e-network/odc-core/internal/odccontroller"
	"github.com/r3e-network/odc-core/internal/odcdds"
	ddsfake "github.com/r3e-network/odc-core/internal/odcdds/fake"
	"github.com/r3e-network/odc-core/internal/odcfsm"
	topofake "github.com/r3e-network/odc-core/internal/odcfsm/fake"
	"github.com/r3e-network/odc-core/internal/odcplugin"
	"github.com/r3e-network/odc-core/internal/odcsession"
	"github.com/r3e-network/odc-core/internal/odctopology"
)

// writeTopology writes a topology document declaring one collection "C"
// (n agents, nMin, group "G", zone "Z") with n tasks, and returns its path.
func writeTopology(t *testing.T, n, nMin int) string {
	t.Helper()

	var tasks string
	for i := 1; i <= n; i++ {
		tasks += fmt.Sprintf("<task id=\"t%d\" name=\"T\"/>", i)
	}

	doc := fmt.Sprintf(`<topology><main name="main" n="1"><group name="G" n="%d"><collection name="C" n="%d"><requirements><requirement name="GroupName" value="G"/><requirement name="odc_nmin_C" value="%d"/><requirement name="odc_zone_C" value="Z"/></requirements>%s</collection></group></main></topology>`,
		n, n, nMin, tasks)

	path := filepath.Join(t.TempDir(), "topo.xml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write topology fixture: %v", err)
	}
	return path
}

// registerSubmitPlugin registers a resource plugin under name that always
// emits a single <submit> descriptor requesting agents for zone Z.
func registerSubmitPlugin(reg *odcplugin.Registry, name string, agents int) {
	xmlOut := fmt.Sprintf("<submit><rms>slurm</rms><zone>Z</zone><agents>%d</agents><slots>1</slots></submit>", agents)
	// trailing "#" turns everything Runner.Exec appends (--res/--id/--rn) into
	// a shell comment, so the plugin's output never depends on them.
	reg.Register(name, "echo '"+xmlOut+"' #")
}

// buildFakeTopology is the TopologyBuilder test double: it parses the
// topology file and reports every task Idle, keying each TaskState's
// CollectionID by the owning collection's declared name (the same string
// used as a session.NInfo key), matching what a real device topology
// builder is expected to report (odcfsm.Recover's doc comment).
func buildFakeTopology(path string) (odcfsm.Topology, error) {
	doc, err := odctopology.Parse(path)
	if err != nil {
		return nil, err
	}
	var states []*odcfsm.TaskState
	var walk func(g *odctopology.Group)
	walk = func(g *odctopology.Group) {
		for _, c := range g.Collections {
			for _, task := range c.Tasks {
				states = append(states, &odcfsm.TaskState{
					TaskID:       task.ID,
					CollectionID: c.Name,
					State:        odcfsm.Idle,
				})
			}
		}
		for i := range g.Groups {
			walk(&g.Groups[i])
		}
	}
	walk(&doc.Main)
	return topofake.New(states...), nil
}

// commanderInfoWithTopology builds a CommanderInfo reporting topoPath as the
// active topology, for the Initialize-attach commander-info cache supplement
// (SPEC_FULL.md §5.2).
func commanderInfoWithTopology(topoPath string) odcdds.CommanderInfo {
	return odcdds.CommanderInfo{TopologyFilePath: topoPath, ActiveTopologyID: "topo-1"}
}

// newTestController wires a Controller over raw with no logging or metrics,
// ready for request-verb scenario tests.
func newTestController(raw *ddsfake.Client) *odccontroller.Controller {
	sessions := odcsession.NewStore()
	adapter := odcdds.NewClient(raw)
	resourcePlugins := odcplugin.NewRegistry(odcplugin.NewRunner())
	requestTriggers := odcplugin.NewRegistry(odcplugin.NewRunner())
	c := odccontroller.New(sessions, adapter, resourcePlugins, requestTriggers, buildFakeTopology, nil)
	c.DefaultTimeout = 5 * time.Second
	return c
}
