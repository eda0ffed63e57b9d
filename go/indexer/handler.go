// Package indexer hosts the checkpoint ingestion pipeline: a download
// and index stage, a checkpoint commit stage, and an epoch commit
// stage, connected by two bounded queues.
package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"go.gazette.dev/core/task"

	"github.com/asjadnft/sui-indexer/go/events"
	"github.com/asjadnft/sui-indexer/go/fullnode"
	"github.com/asjadnft/sui-indexer/go/store"
)

const (
	// Interval between restarts of a failed pipeline stage.
	downloadRetryInterval = 10 * time.Second
	// Interval between retries of a failed store commit.
	dbCommitRetryInterval = 100 * time.Millisecond
	// Interval between polls for a checkpoint the node hasn't sealed yet.
	rpcAvailabilityPollInterval = 100 * time.Millisecond
	// Interval between re-polls of a drained epoch queue.
	epochEmptyPollInterval = time.Second
	// Upper bound on digests or object requests per multi-get call.
	multiGetChunkSize = 500
	// Checkpoint queue capacity; the pipeline's backpressure signal.
	checkpointQueueLimit = 10
	// Epoch queue capacity.
	epochQueueLimit = 2
)

// Config is the indexer's runtime configuration.
type Config struct {
	RPCEndpoint  string `long:"rpc-endpoint" env:"RPC_ENDPOINT" default:"http://127.0.0.1:9000" description:"Full node JSON-RPC endpoint to index from"`
	DBPath       string `long:"db-path" env:"DB_PATH" default:"sui_indexer.db" description:"Path of the SQLite database"`
	MetricsPort  uint16 `long:"metrics-port" env:"METRICS_PORT" default:"9184" description:"Port of the Prometheus metrics endpoint"`
	SkipDBCommit bool   `long:"skip-db-commit" env:"SKIP_DB_COMMIT" description:"Download and index but skip checkpoint DB commits (dry runs and benchmarks)"`
}

// CheckpointHandler runs the pipeline. Construct with
// NewCheckpointHandler and start with QueueTasks.
type CheckpointHandler struct {
	state        store.IndexerStore
	assembler    *Assembler
	eventHandler events.Handler
	metrics      *CheckpointMetrics
	config       Config

	checkpointCh chan *store.TemporaryCheckpointStore
	epochCh      chan *store.TemporaryEpochStore
}

// NewCheckpointHandler wires the pipeline's collaborators. Both queue
// endpoints are owned by exactly one stage each once QueueTasks runs.
func NewCheckpointHandler(
	state store.IndexerStore,
	api fullnode.ReadAPI,
	eventHandler events.Handler,
	registry *prometheus.Registry,
	config Config,
) *CheckpointHandler {
	var metrics = NewCheckpointMetrics(registry)
	return &CheckpointHandler{
		state:        state,
		assembler:    NewAssembler(api, metrics),
		eventHandler: eventHandler,
		metrics:      metrics,
		config:       config,
		checkpointCh: make(chan *store.TemporaryCheckpointStore, checkpointQueueLimit),
		epochCh:      make(chan *store.TemporaryEpochStore, epochQueueLimit),
	}
}

// QueueTasks spawns the three pipeline stages onto the task group.
// Each stage restarts on failure after downloadRetryInterval and exits
// cleanly on group cancellation.
func (h *CheckpointHandler) QueueTasks(tasks *task.Group) {
	log.Info("indexer checkpoint handler started")
	tasks.Queue("checkpoint-download-and-index", func() error {
		return h.supervise(tasks.Context(), "checkpoint download & index", h.downloadAndIndex)
	})
	tasks.Queue("checkpoint-commit", func() error {
		return h.supervise(tasks.Context(), "checkpoint commit", h.checkpointCommit)
	})
	tasks.Queue("epoch-commit", func() error {
		return h.supervise(tasks.Context(), "epoch commit", h.epochCommit)
	})
}

// supervise restarts body until the context is cancelled. Stage bodies
// only return on error (or cancellation), so every return but
// cancellation is logged and retried.
func (h *CheckpointHandler) supervise(ctx context.Context, name string, body func(context.Context) error) error {
	for {
		var err = body(ctx)
		if ctx.Err() != nil {
			return nil
		}
		log.WithFields(log.Fields{
			"task":     name,
			"error":    err,
			"interval": downloadRetryInterval,
		}).Warn("indexer task failed, restarting")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(downloadRetryInterval):
		}
	}
}

// downloadAndIndex is the first stage: assemble the next checkpoint,
// transform it, hand the result to the commit stages, and fan events
// out to subscribers. Strictly serial and in sequence order.
func (h *CheckpointHandler) downloadAndIndex(ctx context.Context) error {
	log.Info("indexer checkpoint download & index task started")

	var lastSeq, err = h.state.GetLatestCheckpointSequenceNumber(ctx)
	if err != nil {
		return fmt.Errorf("reading latest committed checkpoint: %w", err)
	}
	if lastSeq >= 0 {
		log.WithField("checkpoint", lastSeq).Info("resuming from last committed checkpoint")
	}
	// The store returns -1 when empty. The +1 must happen on the signed
	// value, or the genesis checkpoint is skipped.
	var next = lastSeq + 1

	for {
		h.metrics.TotalCheckpointRequested.Inc()
		data, err := h.assembler.Assemble(ctx, uint64(next))
		if err != nil {
			return fmt.Errorf("downloading checkpoint %d: %w", next, err)
		}
		h.metrics.TotalCheckpointReceived.Inc()

		var indexTimer = prometheus.NewTimer(h.metrics.CheckpointIndexLatency)
		checkpointStore, epochStore, err := IndexCheckpoint(data)
		indexTimer.ObserveDuration()
		if err != nil {
			return err
		}

		// Genesis: the first epoch row must be in place before its
		// checkpoint commits, so it can't ride the (racing) epoch
		// queue and is committed inline ahead of the enqueue.
		if epochStore != nil && epochStore.LastEpoch == nil {
			var epochTimer = prometheus.NewTimer(h.metrics.EpochDBCommitLatency)
			if err = h.state.PersistEpoch(ctx, epochStore); err != nil {
				return fmt.Errorf("persisting genesis epoch: %w", err)
			}
			epochTimer.ObserveDuration()
			h.metrics.TotalEpochCommitted.Inc()
		}

		select {
		case h.checkpointCh <- checkpointStore:
		case <-ctx.Done():
			return ctx.Err()
		}

		if epochStore != nil && epochStore.LastEpoch != nil {
			select {
			case h.epochCh <- epochStore:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		var wsTimer = prometheus.NewTimer(h.metrics.SubscriptionProcessLatency)
		for _, tx := range data.Transactions {
			if err = h.eventHandler.ProcessEvents(ctx, tx.Effects, tx.Events); err != nil {
				return fmt.Errorf("processing events of %s: %w", tx.Digest, err)
			}
		}
		wsTimer.ObserveDuration()

		next++
	}
}

// checkpointCommit is the second stage: drain the checkpoint queue and
// commit each staged checkpoint, retrying each commit until it lands.
func (h *CheckpointHandler) checkpointCommit(ctx context.Context) error {
	log.Info("indexer checkpoint commit task started")
	for {
		var checkpoint *store.TemporaryCheckpointStore
		var ok bool
		select {
		case checkpoint, ok = <-h.checkpointCh:
		case <-ctx.Done():
			return ctx.Err()
		}
		if !ok {
			// The queue can't actually close while the download task
			// runs; re-poll rather than treating it as fatal.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(dbCommitRetryInterval):
			}
			continue
		}

		if h.config.SkipDBCommit {
			log.WithField("checkpoint", checkpoint.Checkpoint.SequenceNumber).
				Info("downloaded and indexed checkpoint, skipping DB commit")
			continue
		}

		var commitTimer = prometheus.NewTimer(h.metrics.CheckpointDBCommitLatency)
		if err := h.persistForever(ctx, "checkpoint", func() error {
			return h.state.PersistCheckpoint(ctx, checkpoint)
		}); err != nil {
			return err
		}
		commitTimer.ObserveDuration()

		h.metrics.TotalCheckpointCommitted.Inc()
		h.metrics.TotalTransactionCommitted.Add(float64(len(checkpoint.Transactions)))
		h.metrics.TransactionPerCheckpoint.Observe(float64(len(checkpoint.Transactions)))
		log.WithFields(log.Fields{
			"checkpoint":    checkpoint.Checkpoint.SequenceNumber,
			"transactions":  len(checkpoint.Transactions),
			"objectChanges": len(checkpoint.ObjectChanges),
		}).Info("checkpoint committed")
	}
}

// epochCommit is the third stage: drain the epoch queue and commit each
// non-genesis boundary. Genesis never reaches this queue.
func (h *CheckpointHandler) epochCommit(ctx context.Context) error {
	log.Info("indexer epoch commit task started")
	for {
		var epoch *store.TemporaryEpochStore
		var ok bool
		select {
		case epoch, ok = <-h.epochCh:
		case <-ctx.Done():
			return ctx.Err()
		}
		if !ok {
			// Boundaries arrive roughly once a day; poll lazily.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(epochEmptyPollInterval):
			}
			continue
		}
		if epoch.LastEpoch == nil {
			continue
		}

		var commitTimer = prometheus.NewTimer(h.metrics.EpochDBCommitLatency)
		if err := h.persistForever(ctx, "epoch", func() error {
			return h.state.PersistEpoch(ctx, epoch)
		}); err != nil {
			return err
		}
		commitTimer.ObserveDuration()

		h.metrics.TotalEpochCommitted.Inc()
		log.WithField("epoch", epoch.NewEpoch.Epoch).Info("epoch committed")
	}
}

// persistForever retries persist every dbCommitRetryInterval until it
// succeeds. A dequeued store must not be discarded on a store error;
// only cancellation ends the loop.
func (h *CheckpointHandler) persistForever(ctx context.Context, what string, persist func() error) error {
	for {
		var err = persist()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithFields(log.Fields{
			"kind":     what,
			"error":    err,
			"interval": dbCommitRetryInterval,
		}).Warn("indexer commit failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(dbCommitRetryInterval):
		}
	}
}
