package odcplugin

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRegistryFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plugins.yaml")
	content := []byte(`
resourcePlugins:
  same: odc-rp-same
  custom: /bin/custom-rp
requestTriggers:
  Submit: /bin/on-submit
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	rp := NewRegistry(NewRunner())
	rt := NewRegistry(NewRunner())

	if err := LoadRegistryFile(path, rp, rt); err != nil {
		t.Fatalf("LoadRegistryFile() error: %v", err)
	}

	if !rp.IsRegistered("same") || !rp.IsRegistered("custom") {
		t.Error("expected both resource plugins to be registered")
	}
	if !rt.IsRegistered("Submit") {
		t.Error("expected Submit trigger to be registered")
	}
}

func TestLoadRegistryFile_InvalidTriggerName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plugins.yaml")
	content := []byte(`
requestTriggers:
  NotAVerb: /bin/whatever
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	rp := NewRegistry(NewRunner())
	rt := NewRegistry(NewRunner())

	if err := LoadRegistryFile(path, rp, rt); err == nil {
		t.Fatal("expected an error for an invalid trigger name")
	}
}

func TestLoadRegistryFile_MissingFile(t *testing.T) {
	rp := NewRegistry(NewRunner())
	rt := NewRegistry(NewRunner())
	if err := LoadRegistryFile("/nonexistent/plugins.yaml", rp, rt); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
