package odccontroller

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/r3e-network/odc-core/internal/odcerr"
	"github.com/r3e-network/odc-core/internal/odclog"
)

// resolveTopoSource implements spec.md §6.2: exactly one of File, Content,
// Script must be set. Script is executed via a shell under deadline; its
// stdout becomes the content. Content (direct or from a script) is written
// to a fresh unique path and that path is returned; File is returned as-is.
func resolveTopoSource(ctx context.Context, src TopoSource, deadline time.Duration, log *odclog.Logger) (string, error) {
	set := 0
	if src.File != "" {
		set++
	}
	if src.Content != "" {
		set++
	}
	if src.Script != "" {
		set++
	}
	if set != 1 {
		return "", odcerr.New(odcerr.CodeTopologyFailed, "exactly one of topoFile, topoContent, topoScript must be supplied")
	}

	if src.File != "" {
		return src.File, nil
	}

	content := src.Content
	if src.Script != "" {
		out, err := runTopoScript(ctx, src.Script, deadline, log)
		if err != nil {
			return "", err
		}
		content = out
	}

	return writeTopoContent(content)
}

func runTopoScript(ctx context.Context, script string, deadline time.Duration, log *odclog.Logger) (string, error) {
	if deadline <= 0 {
		deadline = 30 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, "bash", "-c", script)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		head := stdout.String()
		if len(head) > 75 {
			head = head[:75]
		}
		if log != nil {
			log.WithField("stdout_head", head).WithField("stderr", stderr.String()).
				Error("topology script exited with an error")
		}
		return "", odcerr.Wrap(odcerr.CodeTopologyFailed, "topology script failed", err)
	}

	return stdout.String(), nil
}

func writeTopoContent(content string) (string, error) {
	dir, err := os.MkdirTemp("", "odc-topo-")
	if err != nil {
		return "", odcerr.Wrap(odcerr.CodeTopologyFailed, "failed to create a temporary directory", err)
	}
	path := filepath.Join(dir, "topology.xml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", odcerr.Wrap(odcerr.CodeTopologyFailed, "failed to write topology content", err)
	}
	return path, nil
}
