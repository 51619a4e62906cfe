package odcplugin

import (
	"context"
	"sync"
	"time"

	"github.com/r3e-network/odc-core/internal/odcerr"
)

// TriggerNames is the fixed verb whitelist a request trigger may be
// registered under (spec.md §6.6).
var TriggerNames = map[string]struct{}{
	"Initialize":     {},
	"Submit":         {},
	"Activate":       {},
	"Run":            {},
	"Update":         {},
	"Configure":      {},
	"SetProperties":  {},
	"GetState":       {},
	"Start":          {},
	"Stop":           {},
	"Reset":          {},
	"Terminate":      {},
	"Shutdown":       {},
	"Status":         {},
}

// IsValidTriggerName reports whether name is in the request trigger
// whitelist.
func IsValidTriggerName(name string) bool {
	_, ok := TriggerNames[name]
	return ok
}

// Registry is a name -> command mapping used for both the resource plugin
// registry and the request trigger registry (spec.md §4.2). The two are
// distinct Registry instances owned by the controller; this type does not
// distinguish between them.
type Registry struct {
	mu      sync.RWMutex
	runner  *Runner
	plugins map[string]string
}

// NewRegistry constructs an empty Registry bound to runner.
func NewRegistry(runner *Runner) *Registry {
	return &Registry{runner: runner, plugins: make(map[string]string)}
}

// Register stores name -> cmd. A later call for the same name overwrites the
// earlier one (last write wins).
func (r *Registry) Register(name, cmd string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins[name] = cmd
}

// IsRegistered reports whether name has a registered command.
func (r *Registry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.plugins[name]
	return ok
}

// Exec looks up name's registered command and runs it through the bound
// Runner. It returns RequestNotSupported if name is not registered.
func (r *Registry) Exec(ctx context.Context, name, resources, partitionID string, runNr uint64, deadline time.Duration) (string, error) {
	r.mu.RLock()
	cmd, ok := r.plugins[name]
	r.mu.RUnlock()
	if !ok {
		return "", odcerr.New(odcerr.CodeRequestNotSupported, "plugin not registered").
			WithDetail("name", name)
	}
	return r.runner.Exec(ctx, cmd, resources, partitionID, runNr, deadline)
}

// RegisterTrigger is like Register but rejects names outside the verb
// whitelist (spec.md §6.6).
func (r *Registry) RegisterTrigger(name, cmd string) error {
	if !IsValidTriggerName(name) {
		return odcerr.New(odcerr.CodeRequestNotSupported, "not a valid trigger name").
			WithDetail("name", name)
	}
	r.Register(name, cmd)
	return nil
}
