package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.gazette.dev/core/task"

	"github.com/asjadnft/sui-indexer/go/events"
	"github.com/asjadnft/sui-indexer/go/fullnode"
	"github.com/asjadnft/sui-indexer/go/indexer"
	"github.com/asjadnft/sui-indexer/go/store"
)

// config is the top-level configuration object of the indexer binary.
type config struct {
	Indexer indexer.Config `group:"indexer" namespace:"indexer" env-namespace:"INDEXER"`

	Log struct {
		Level  string `long:"level" env:"LEVEL" default:"info" choice:"trace" choice:"debug" choice:"info" choice:"warn" choice:"error" description:"Logging level"`
		Format string `long:"format" env:"FORMAT" default:"text" choice:"json" choice:"text" description:"Logging output format"`
	} `group:"log" namespace:"log" env-namespace:"LOG"`
}

var Config = new(config)

type cmdServe struct{}

func (cmdServe) Execute(_ []string) error {
	initLog()

	log.WithFields(log.Fields{
		"rpcEndpoint":  Config.Indexer.RPCEndpoint,
		"dbPath":       Config.Indexer.DBPath,
		"skipDBCommit": Config.Indexer.SkipDBCommit,
	}).Info("sui-indexer configuration")

	var tasks = task.NewGroup(context.Background())

	state, err := store.OpenSQLite(tasks.Context(), Config.Indexer.DBPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer state.Close()

	var registry = prometheus.NewRegistry()
	var hub = events.NewHub()
	var client = fullnode.NewClient(Config.Indexer.RPCEndpoint, nil)

	indexer.NewCheckpointHandler(state, client, hub, registry, Config.Indexer).QueueTasks(tasks)

	var mux = http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/subscribe", hub)
	var server = &http.Server{
		Addr:    fmt.Sprintf(":%d", Config.Indexer.MetricsPort),
		Handler: mux,
	}
	tasks.Queue("metrics-server", func() error {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	tasks.Queue("metrics-server-shutdown", func() error {
		<-tasks.Context().Done()
		return server.Shutdown(context.Background())
	})

	// Install signal handler & start pipeline tasks.
	var signalCh = make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGTERM, syscall.SIGINT)

	tasks.Queue("watch signalCh", func() error {
		select {
		case sig := <-signalCh:
			log.WithField("signal", sig).Info("caught signal")
			tasks.Cancel()
			return nil
		case <-tasks.Context().Done():
			return nil
		}
	})
	tasks.GoRun()

	// Block until all tasks complete.
	if err = tasks.Wait(); err != nil {
		return fmt.Errorf("task failed: %w", err)
	}

	log.Info("goodbye")
	return nil
}

func initLog() {
	if Config.Log.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	}
	if level, err := log.ParseLevel(Config.Log.Level); err == nil {
		log.SetLevel(level)
	}
}

func main() {
	var parser = flags.NewParser(Config, flags.Default)

	_, _ = parser.AddCommand("serve", "Serve as Sui checkpoint indexer", `
Serve the checkpoint indexer with the provided configuration, until
signaled to exit (via SIGTERM).
`, &cmdServe{})

	if _, err := parser.Parse(); err != nil {
		os.Exit(1)
	}
}
