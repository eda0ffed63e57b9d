package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/asjadnft/sui-indexer/go/fullnode"
	"github.com/asjadnft/sui-indexer/go/store"
	"github.com/asjadnft/sui-indexer/go/sui"
)

// Assembler downloads one checkpoint's complete bundle from the full
// node: the envelope, full transactions, and the post-state of every
// changed object.
type Assembler struct {
	api     fullnode.ReadAPI
	metrics *CheckpointMetrics
}

// NewAssembler returns an Assembler over the given read API.
func NewAssembler(api fullnode.ReadAPI, metrics *CheckpointMetrics) *Assembler {
	return &Assembler{api: api, metrics: metrics}
}

// Assemble fetches everything needed to index checkpoint seq.
//
// The envelope fetch polls until the node has the checkpoint: the node
// answers "future" sequence numbers with an error, and the indexer is
// routinely caught up and waiting for the next one. Every error past
// the envelope fetch fails the assembly; the stage supervisor retries.
func (a *Assembler) Assemble(ctx context.Context, seq uint64) (*store.CheckpointData, error) {
	var waitTimer = prometheus.NewTimer(a.metrics.FullnodeCheckpointWaitAndDownloadLatency)
	checkpoint, err := a.api.GetCheckpoint(ctx, seq)
	for err != nil {
		log.WithFields(log.Fields{
			"checkpoint": seq,
			"error":      err,
			"interval":   rpcAvailabilityPollInterval,
		}).Debug("checkpoint not yet available, polling")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(rpcAvailabilityPollInterval):
		}
		checkpoint, err = a.api.GetCheckpoint(ctx, seq)
	}
	waitTimer.ObserveDuration()

	var txTimer = prometheus.NewTimer(a.metrics.FullnodeTransactionDownloadLatency)
	transactions, err := a.fetchTransactions(ctx, checkpoint.Transactions)
	if err != nil {
		return nil, fmt.Errorf("checkpoint %d transactions: %w", seq, err)
	}
	txTimer.ObserveDuration()

	var objectTimer = prometheus.NewTimer(a.metrics.FullnodeObjectDownloadLatency)
	var changes []ObjectChange
	for _, tx := range transactions {
		if tx.Effects == nil {
			return nil, fmt.Errorf("checkpoint %d: transaction %s has no effects", seq, tx.Digest)
		}
		changes = append(changes, ObjectChanges(tx.Effects)...)
	}
	changedObjects, err := fetchChangedObjects(ctx, a.api, changes)
	if err != nil {
		return nil, fmt.Errorf("checkpoint %d changed objects: %w", seq, err)
	}
	objectTimer.ObserveDuration()

	var data = &store.CheckpointData{
		Checkpoint:     checkpoint,
		Transactions:   transactions,
		ChangedObjects: changedObjects,
	}

	// Epoch synthesis needs the system state. The node can't serve the
	// state as of an arbitrary past checkpoint, so this is only correct
	// when the indexer runs near the head; it is fetched eagerly here so
	// the index step stays free of I/O.
	if checkpoint.SequenceNumber == 0 || checkpoint.EndOfEpochData != nil {
		systemState, err := a.api.GetLatestSystemState(ctx)
		if err != nil {
			return nil, fmt.Errorf("checkpoint %d system state: %w", seq, err)
		}
		data.SystemState = systemState
	}
	return data, nil
}

// fetchTransactions downloads full transaction payloads in chunks of at
// most multiGetChunkSize digests, all chunks in flight concurrently,
// concatenated back in chunk order.
func (a *Assembler) fetchTransactions(ctx context.Context, digests []string) ([]*sui.TransactionBlock, error) {
	var chunks = chunk(digests, multiGetChunkSize)
	var results = make([][]*sui.TransactionBlock, len(chunks))

	var group, groupCtx = errgroup.WithContext(ctx)
	for i, c := range chunks {
		var i, c = i, c
		group.Go(func() error {
			var blocks, err = a.api.MultiGetTransactionBlocks(groupCtx, c)
			if err != nil {
				return fmt.Errorf("fetching %d transactions: %w", len(c), err)
			}
			results[i] = blocks
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var out = make([]*sui.TransactionBlock, 0, len(digests))
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}
