// Package odcplugin implements the resource/trigger plugin runner and
// registries (spec.md §4.1, §4.2, §6.5, §6.6).
package odcplugin

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/r3e-network/odc-core/internal/odcerr"
)

// Runner executes a registered plugin command with the fixed
// "--res/--id/--rn" argv contract and captures its stdout.
type Runner struct{}

// NewRunner constructs a Runner.
func NewRunner() *Runner { return &Runner{} }

// Exec spawns the shell command `<cmd> --res "<resources>" --id
// "<partitionID>" --rn <runNr>`, waiting up to deadline. It returns the
// trimmed stdout on success.
func (r *Runner) Exec(ctx context.Context, cmd, resources, partitionID string, runNr uint64, deadline time.Duration) (string, error) {
	if deadline <= 0 {
		deadline = 30 * time.Second
	}

	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	shellLine := cmd + " --res " + shellQuote(resources) +
		" --id " + shellQuote(partitionID) +
		" --rn " + strconv.FormatUint(runNr, 10)

	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(runCtx, "sh", "-c", shellLine)
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return "", odcerr.New(odcerr.CodePluginTimeout, "plugin exceeded deadline").
			WithDetail("cmd", cmd).WithDetail("deadline", deadline.String())
	}
	if err != nil {
		return "", odcerr.Wrap(odcerr.CodePluginFailed, "plugin exited with an error", err).
			WithDetail("cmd", cmd).
			WithDetail("stderr", strings.TrimSpace(stderr.String()))
	}

	return strings.TrimSpace(stdout.String()), nil
}

// shellQuote wraps s in single quotes for safe interpolation into a sh -c
// command line, escaping any embedded single quotes.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
