package odcrestore

import "testing"

func TestSweeper_sweepManifest_PrunesInactivePartitions(t *testing.T) {
	dir := t.TempDir()
	m, err := Open(dir, "r1")
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	m.Write([]Entry{
		{PartitionID: "active", DDSSessionID: "s1"},
		{PartitionID: "stale", DDSSessionID: "s2"},
	})

	active := map[string]bool{"active": true}
	sweeper := NewSweeper(dir, func(id string) bool { return active[id] }, nil)
	sweeper.sweepManifest("r1")

	got, err := m.Read()
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if len(got) != 1 || got[0].PartitionID != "active" {
		t.Errorf("got = %v, want only the active partition", got)
	}
}

func TestSweeper_sweepManifest_NoOpWhenAllActive(t *testing.T) {
	dir := t.TempDir()
	m, _ := Open(dir, "r1")
	m.Write([]Entry{{PartitionID: "p1", DDSSessionID: "s1"}})

	sweeper := NewSweeper(dir, func(string) bool { return true }, nil)
	sweeper.sweepManifest("r1")

	got, _ := m.Read()
	if len(got) != 1 {
		t.Errorf("got = %v, want unchanged", got)
	}
}

func TestSweeper_StartAndStop(t *testing.T) {
	dir := t.TempDir()
	sweeper := NewSweeper(dir, func(string) bool { return true }, nil)
	if err := sweeper.Start("@every 1h"); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	sweeper.Stop()
}
