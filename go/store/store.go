// Package store defines the durable-store contract the indexer commits
// to, the temporary in-memory stores that stage one checkpoint (or one
// epoch) of normalized rows, and a SQLite implementation of the
// contract.
package store

import (
	"context"

	"github.com/asjadnft/sui-indexer/go/models"
	"github.com/asjadnft/sui-indexer/go/sui"
)

// ChangedObject pairs a fetched post-state with the status that
// produced it.
type ChangedObject struct {
	Status models.ObjectStatus
	Object *sui.ObjectData
}

// CheckpointData is the self-consistent bundle assembled for one
// checkpoint: the envelope, every transaction it contains, and the
// post-state of every object those transactions created, mutated, or
// unwrapped. SystemState is set only when the checkpoint is genesis or
// carries end-of-epoch data.
type CheckpointData struct {
	Checkpoint     *sui.Checkpoint
	Transactions   []*sui.TransactionBlock
	ChangedObjects []ChangedObject
	SystemState    *sui.SystemStateSummary
}

// TransactionObjectChanges groups one transaction's object rows.
type TransactionObjectChanges struct {
	Changed []models.Object
	Deleted []models.DeletedObject
}

// TemporaryCheckpointStore stages every normalized row of one
// checkpoint for a single commit.
type TemporaryCheckpointStore struct {
	Checkpoint    models.Checkpoint
	Transactions  []models.Transaction
	Events        []models.Event
	ObjectChanges []TransactionObjectChanges
	Addresses     []models.Address
	Packages      []models.Package
	InputObjects  []models.InputObject
	MoveCalls     []models.MoveCall
	Recipients    []models.Recipient
}

// TemporaryEpochStore stages the rows of one epoch boundary.
// LastEpoch is nil exactly at genesis.
type TemporaryEpochStore struct {
	LastEpoch   *models.EpochInfo
	NewEpoch    models.EpochInfo
	SystemState models.SystemState
	Validators  []models.Validator
}

// IndexerStore is the durable store the pipeline commits to. Persist
// calls must upsert on primary key: the pipeline is at-least-once and
// re-presents rows after a crash.
type IndexerStore interface {
	// GetLatestCheckpointSequenceNumber returns -1 when no checkpoint
	// has been committed, so that +1 yields the genesis cursor.
	GetLatestCheckpointSequenceNumber(ctx context.Context) (int64, error)
	PersistCheckpoint(ctx context.Context, data *TemporaryCheckpointStore) error
	PersistEpoch(ctx context.Context, data *TemporaryEpochStore) error
}
