package odcplugin

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/r3e-network/odc-core/internal/odcerr"
)

func TestRunner_Exec_Success(t *testing.T) {
	r := NewRunner()
	out, err := r.Exec(context.Background(), "echo -n hello", "<res/>", "part1", 7, time.Second)
	if err != nil {
		t.Fatalf("Exec() error: %v", err)
	}
	if out != "hello" {
		t.Errorf("out = %q, want %q", out, "hello")
	}
}

func TestRunner_Exec_ReceivesArgs(t *testing.T) {
	r := NewRunner()
	out, err := r.Exec(context.Background(), "echo -n", "<res zone='a'/>", "part<1>", 3, time.Second)
	if err != nil {
		t.Fatalf("Exec() error: %v", err)
	}
	if !strings.Contains(out, "--res") || !strings.Contains(out, "<res zone='a'/>") {
		t.Errorf("out = %q, want it to contain the res arg", out)
	}
	if !strings.Contains(out, "part<1>") {
		t.Errorf("out = %q, want it to contain the partition id", out)
	}
	if !strings.Contains(out, "--rn 3") {
		t.Errorf("out = %q, want it to contain --rn 3", out)
	}
}

func TestRunner_Exec_NonZeroExit(t *testing.T) {
	r := NewRunner()
	_, err := r.Exec(context.Background(), "sh -c 'exit 1' #", "", "p", 1, time.Second)
	if err == nil {
		t.Fatal("expected an error")
	}
	if odcerr.CodeOf(err) != odcerr.CodePluginFailed {
		t.Errorf("CodeOf(err) = %v, want CodePluginFailed", odcerr.CodeOf(err))
	}
}

func TestRunner_Exec_Timeout(t *testing.T) {
	r := NewRunner()
	_, err := r.Exec(context.Background(), "sleep 5", "", "p", 1, 20*time.Millisecond)
	if err == nil {
		t.Fatal("expected an error")
	}
	if odcerr.CodeOf(err) != odcerr.CodePluginTimeout {
		t.Errorf("CodeOf(err) = %v, want CodePluginTimeout", odcerr.CodeOf(err))
	}
}

func TestShellQuote(t *testing.T) {
	got := shellQuote("it's a test")
	want := `'it'\''s a test'`
	if got != want {
		t.Errorf("shellQuote() = %q, want %q", got, want)
	}
}
