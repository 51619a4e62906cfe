package odcconfig

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
	if cfg.Host != "localhost:50051" {
		t.Errorf("Host = %v, want localhost:50051", cfg.Host)
	}
}

func TestBindFlagsAndResolveTimeout(t *testing.T) {
	cfg := Default()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.BindFlags(fs)

	if err := fs.Parse([]string{"--timeout", "45", "--rp", "same:odc-rp-same", "--restore", "abc123"}); err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	cfg.ResolveTimeout()

	if cfg.Timeout != 45*time.Second {
		t.Errorf("Timeout = %v, want 45s", cfg.Timeout)
	}
	if cfg.RestoreID != "abc123" {
		t.Errorf("RestoreID = %v, want abc123", cfg.RestoreID)
	}
	if len(cfg.ResourcePlugins) != 1 || cfg.ResourcePlugins[0] != "same:odc-rp-same" {
		t.Errorf("ResourcePlugins = %v", cfg.ResourcePlugins)
	}
}

func TestParsePluginPairs(t *testing.T) {
	pairs := []string{"same:odc-rp-same", "custom:/bin/custom-rp", "malformed"}
	got := ParsePluginPairs(pairs)

	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
	if got["same"] != "odc-rp-same" {
		t.Errorf("got[same] = %v", got["same"])
	}
	if got["custom"] != "/bin/custom-rp" {
		t.Errorf("got[custom] = %v", got["custom"])
	}
}

func TestParsePluginPairsLastWriteWins(t *testing.T) {
	pairs := []string{"same:first-cmd", "same:second-cmd"}
	got := ParsePluginPairs(pairs)
	if got["same"] != "second-cmd" {
		t.Errorf("got[same] = %v, want second-cmd", got["same"])
	}
}
