// Package odcconfig defines the flag schema shared by the CLI and RPC
// front-ends (spec.md §6.3). The front-ends themselves are out of scope;
// this package is the contract they bind into before handing a Config to
// the controller.
package odcconfig

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
)

// Config holds the flags common to both front-ends.
type Config struct {
	// Timeout is the default per-request timeout. Individual requests may
	// override it (spec.md §3 CommonParams.timeout override).
	Timeout time.Duration

	// ResourcePlugins is "name:cmd" pairs registered into the resource
	// plugin registry at startup.
	ResourcePlugins []string

	// RequestTriggers is "name:cmd" pairs registered into the request
	// trigger registry at startup. Names must be in the verb whitelist
	// (spec.md §6.6).
	RequestTriggers []string

	// RegistryFile, when non-empty, names a YAML file of bulk resource
	// plugin / request trigger registrations loaded via
	// odcplugin.LoadRegistryFile in addition to any --rp/--rt pairs
	// (spec.md §5.3 supplemented feature).
	RegistryFile string

	// RestoreID, when non-empty, causes the controller to reattach sessions
	// recorded under this ID at startup.
	RestoreID string

	RestoreDir string
	HistoryDir string

	// RPC-only, carried here because both front-ends share this struct.
	Host string
	Sync bool

	timeoutSeconds int
}

// Default returns the flag defaults named in spec.md §6.3.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Timeout:    30 * time.Second,
		RestoreDir: filepath.Join(home, ".ODC", "restore"),
		HistoryDir: filepath.Join(home, ".ODC", "history"),
		Host:       "localhost:50051",
	}
}

// BindFlags registers the shared flags on fs, seeding them with c's current
// values as defaults. Call ResolveTimeout after fs.Parse returns.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	c.timeoutSeconds = int(c.Timeout / time.Second)
	fs.IntVar(&c.timeoutSeconds, "timeout", c.timeoutSeconds, "default request timeout in seconds")
	fs.StringArrayVar(&c.ResourcePlugins, "rp", c.ResourcePlugins, "resource plugin registration as name:cmd")
	fs.StringArrayVar(&c.RequestTriggers, "rt", c.RequestTriggers, "request trigger registration as name:cmd")
	fs.StringVar(&c.RegistryFile, "rp-file", c.RegistryFile, "YAML file of bulk resourcePlugins/requestTriggers registrations")
	fs.StringVar(&c.RestoreID, "restore", c.RestoreID, "restore ID to reattach previously recorded sessions")
	fs.StringVar(&c.RestoreDir, "restore-dir", c.RestoreDir, "directory holding restore manifests")
	fs.StringVar(&c.HistoryDir, "history-dir", c.HistoryDir, "directory holding the session history log")
	fs.StringVar(&c.Host, "host", c.Host, "RPC listen address (RPC front-end only)")
	fs.BoolVar(&c.Sync, "sync", c.Sync, "use the synchronous RPC controller adapter (RPC front-end only)")
}

// ResolveTimeout must be called after the owning FlagSet has been parsed; it
// copies the parsed --timeout seconds back into c.Timeout.
func (c *Config) ResolveTimeout() {
	c.Timeout = time.Duration(c.timeoutSeconds) * time.Second
}

// ParsePluginPairs splits "name:cmd" pairs (as accepted by --rp/--rt) into a
// name->cmd map. Last write wins for duplicate names, matching the
// registry's own register() semantics (spec.md §4.2).
func ParsePluginPairs(pairs []string) map[string]string {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, cmd, ok := splitOnce(pair, ':')
		if !ok {
			continue
		}
		out[name] = cmd
	}
	return out
}

func splitOnce(s string, sep byte) (before, after string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}
