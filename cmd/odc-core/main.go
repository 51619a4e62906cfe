// Command odc-core is a thin demonstration entry point: it wires the
// session store, DDS adapter, plugin registries, restore manifest, history
// log and metrics into a Controller and drives one request verb from the
// command line. It is not the RPC/CLI front end described in spec.md §6
// (out of scope per spec.md §1); those front ends would replace the
// flag-driven single-verb dispatch below with a long-running server loop
// over the same Controller.
//
// The real DDS binding and device-topology library are external to this
// module (spec.md §1), so this binary wires the in-memory fake DDS client
// and a fake device-topology builder — enough to exercise the full
// request-verb facade end to end without a live cluster.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/r3e-network/odc-core/internal/odcconfig"
	"github.com/r3e-network/odc-core/internal/odcdds"
	ddsfake "github.com/r3e-network/odc-core/internal/odcdds/fake"
	"github.com/r3e-network/odc-core/internal/odccontroller"
	"github.com/r3e-network/odc-core/internal/odcfsm"
	topofake "github.com/r3e-network/odc-core/internal/odcfsm/fake"
	"github.com/r3e-network/odc-core/internal/odchistory"
	"github.com/r3e-network/odc-core/internal/odclog"
	"github.com/r3e-network/odc-core/internal/odcmetrics"
	"github.com/r3e-network/odc-core/internal/odcplugin"
	"github.com/r3e-network/odc-core/internal/odcrestore"
	"github.com/r3e-network/odc-core/internal/odcsession"
	"github.com/r3e-network/odc-core/internal/odctopology"
)

func main() {
	cfg := odcconfig.Default()
	fs := pflag.NewFlagSet("odc-core", pflag.ExitOnError)
	cfg.BindFlags(fs)
	logLevel := fs.String("log-level", "info", "log level")
	logFormat := fs.String("log-format", "text", "log format: text or json")
	sweepSpec := fs.String("sweep", "", "cron spec for the restore manifest sweeper, e.g. \"@every 1m\" (disabled when empty)")
	fs.Parse(os.Args[1:])
	cfg.ResolveTimeout()

	args := fs.Args()
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: odc-core [flags] <verb> <partitionId> [verb arguments...]")
		fs.PrintDefaults()
		os.Exit(2)
	}
	verb, partitionID := args[0], args[1]

	log := odclog.New("odc-core", *logLevel, *logFormat)
	metrics := odcmetrics.New()

	restoreManifest, err := odcrestore.Open(cfg.RestoreDir, orDefault(cfg.RestoreID, "default"))
	if err != nil {
		log.WithError(err).Fatal("open restore manifest")
	}
	history, err := odchistory.Open(cfg.HistoryDir)
	if err != nil {
		log.WithError(err).Fatal("open history log")
	}

	resourcePlugins := odcplugin.NewRegistry(odcplugin.NewRunner())
	for name, cmd := range odcconfig.ParsePluginPairs(cfg.ResourcePlugins) {
		resourcePlugins.Register(name, cmd)
	}
	requestTriggers := odcplugin.NewRegistry(odcplugin.NewRunner())
	for name, cmd := range odcconfig.ParsePluginPairs(cfg.RequestTriggers) {
		if err := requestTriggers.RegisterTrigger(name, cmd); err != nil {
			log.WithError(err).WithField("trigger", name).Fatal("register request trigger")
		}
	}
	if cfg.RegistryFile != "" {
		if err := odcplugin.LoadRegistryFile(cfg.RegistryFile, resourcePlugins, requestTriggers); err != nil {
			log.WithError(err).WithField("file", cfg.RegistryFile).Fatal("load registry file")
		}
	}

	sessions := odcsession.NewStore()
	dds := odcdds.NewClient(ddsfake.NewClient())

	c := odccontroller.New(sessions, dds, resourcePlugins, requestTriggers, buildDeviceTopology, log)
	c.DefaultTimeout = cfg.Timeout
	c.Metrics = metrics
	c.History = history
	c.RestoreManifest = restoreManifest

	var sweeper *odcrestore.Sweeper
	if *sweepSpec != "" {
		sweeper = odcrestore.NewSweeper(cfg.RestoreDir, func(partitionID string) bool {
			return sessions.Get(partitionID) != nil
		}, log)
		if err := sweeper.Start(*sweepSpec); err != nil {
			log.WithError(err).Fatal("start restore sweeper")
		}
		defer sweeper.Stop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("signal received, cancelling in-flight request")
		cancel()
	}()

	if cfg.RestoreID != "" {
		entries, err := restoreManifest.Read()
		if err != nil {
			log.WithError(err).Fatal("read restore manifest")
		}
		for _, e := range entries {
			res := c.Initialize(ctx, odccontroller.CommonParams{PartitionID: e.PartitionID}, e.DDSSessionID)
			if res.Status != "ok" {
				log.WithField("partitionId", e.PartitionID).Warn("failed to reattach recorded session")
			}
		}
	}

	result := dispatch(ctx, c, verb, partitionID, args[2:])
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.WithError(err).Fatal("encode result")
	}
}

// dispatch runs one named verb against the controller. rest holds the
// verb's own arguments: <plugin> <topology-file> for run, <plugin> for
// submit, <topology-file> for activate/update, an optional DDS session id
// for initialize; the other verbs take none.
func dispatch(ctx context.Context, c *odccontroller.Controller, verb, partitionID string, rest []string) any {
	common := odccontroller.CommonParams{PartitionID: partitionID, RunNr: uint64(time.Now().Unix())}

	switch verb {
	case "run":
		if len(rest) < 2 {
			return errorResult("run requires <plugin> <topology-file>")
		}
		return c.Run(ctx, common, rest[0], "", odccontroller.TopoSource{File: rest[1]})
	case "initialize":
		var existing string
		if len(rest) > 0 {
			existing = rest[0]
		}
		return c.Initialize(ctx, common, existing)
	case "submit":
		if len(rest) < 1 {
			return errorResult("submit requires <plugin>")
		}
		return c.Submit(ctx, common, rest[0], "")
	case "activate":
		if len(rest) < 1 {
			return errorResult("activate requires <topology-file>")
		}
		return c.Activate(ctx, common, odccontroller.TopoSource{File: rest[0]})
	case "update":
		if len(rest) < 1 {
			return errorResult("update requires <topology-file>")
		}
		return c.Update(ctx, common, odccontroller.TopoSource{File: rest[0]})
	case "configure":
		return c.Configure(ctx, common, "", true)
	case "start":
		return c.Start(ctx, common, "", true)
	case "stop":
		return c.Stop(ctx, common, "", true)
	case "reset":
		return c.Reset(ctx, common, "", true)
	case "terminate":
		return c.Terminate(ctx, common, "", true)
	case "getstate":
		return c.GetState(ctx, common, "", true)
	case "shutdown":
		return c.Shutdown(ctx, common)
	case "status":
		return c.Status(false)
	default:
		return errorResult(fmt.Sprintf("unknown verb %q", verb))
	}
}

func errorResult(message string) map[string]string {
	return map[string]string{"status": "error", "message": message}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// buildDeviceTopology parses a topology file and reports every task Idle,
// standing in for the external device-topology library (spec.md §1) so
// this demo binary can drive the full Configure/Start/Stop state-machine
// surface without a live cluster.
func buildDeviceTopology(topoFilePath string) (odcfsm.Topology, error) {
	doc, err := odctopology.Parse(topoFilePath)
	if err != nil {
		return nil, err
	}
	var states []*odcfsm.TaskState
	var walk func(g *odctopology.Group)
	walk = func(g *odctopology.Group) {
		for _, coll := range g.Collections {
			for _, task := range coll.Tasks {
				states = append(states, &odcfsm.TaskState{
					TaskID:       task.ID,
					CollectionID: coll.Name,
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
