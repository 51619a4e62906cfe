package odcrestore

import (
	"path/filepath"
	"testing"
)

func TestManifest_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	m, err := Open(dir, "r1")
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}

	want := []Entry{
		{PartitionID: "p1", DDSSessionID: "s1"},
		{PartitionID: "p2", DDSSessionID: "s2"},
	}
	if err := m.Write(want); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	got, err := m.Read()
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("len(got) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestManifest_ReadMissingFile(t *testing.T) {
	dir := t.TempDir()
	m, err := Open(dir, "nonexistent")
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	got, err := m.Read()
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got = %v, want empty", got)
	}
}

func TestManifest_Path(t *testing.T) {
	dir := t.TempDir()
	m, _ := Open(dir, "r1")
	want := filepath.Join(dir, "r1.restore")
	if m.Path() != want {
		t.Errorf("Path() = %q, want %q", m.Path(), want)
	}
}

func TestManifest_WriteOverwrites(t *testing.T) {
	dir := t.TempDir()
	m, _ := Open(dir, "r1")

	m.Write([]Entry{{PartitionID: "p1", DDSSessionID: "s1"}})
	m.Write([]Entry{{PartitionID: "p2", DDSSessionID: "s2"}})

	got, err := m.Read()
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if len(got) != 1 || got[0].PartitionID != "p2" {
		t.Errorf("got = %v, want a single p2 entry", got)
	}
}
