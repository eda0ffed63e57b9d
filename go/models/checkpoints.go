package models

import (
	"github.com/asjadnft/sui-indexer/go/sui"
)

// Checkpoint is the normalized checkpoint row.
type Checkpoint struct {
	SequenceNumber           int64
	CheckpointDigest         string
	Epoch                    int64
	Transactions             []string
	PreviousCheckpointDigest string
	EndOfEpoch               bool
	TotalGasCost             int64
	ComputationCost          int64
	StorageCost              int64
	StorageRebate            int64
	NonRefundableStorageFee  int64
	TotalTransactions        int64
	NetworkTotalTransactions int64
	TimestampMs              int64
	ValidatorSignature       string
}

// NewCheckpoint builds the checkpoint row from its envelope plus the
// summed per-transaction count.
func NewCheckpoint(c *sui.Checkpoint, totalTransactions int64) Checkpoint {
	var gas = c.EpochRollingGasCostSummary
	var row = Checkpoint{
		SequenceNumber:           int64(c.SequenceNumber),
		CheckpointDigest:         c.Digest,
		Epoch:                    int64(c.Epoch),
		Transactions:             c.Transactions,
		EndOfEpoch:               c.EndOfEpochData != nil,
		ComputationCost:          int64(gas.ComputationCost),
		StorageCost:              int64(gas.StorageCost),
		StorageRebate:            int64(gas.StorageRebate),
		NonRefundableStorageFee:  int64(gas.NonRefundableStorageFee),
		TotalTransactions:        totalTransactions,
		NetworkTotalTransactions: int64(c.NetworkTotalTransactions),
		TimestampMs:              int64(c.TimestampMs),
		ValidatorSignature:       c.ValidatorSignature,
	}
	row.TotalGasCost = row.ComputationCost + row.StorageCost - row.StorageRebate
	if c.PreviousDigest != nil {
		row.PreviousCheckpointDigest = *c.PreviousDigest
	}
	return row
}
