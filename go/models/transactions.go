package models

import (
	"encoding/json"
	"fmt"

	"github.com/asjadnft/sui-indexer/go/sui"
)

// Transaction is the normalized per-transaction row.
type Transaction struct {
	TransactionDigest       string
	Sender                  string
	CheckpointSequenceNum   int64
	TimestampMs             int64
	TransactionKind         string
	TransactionCount        int64
	ExecutionSuccess        bool
	Created                 []string
	Mutated                 []string
	Deleted                 []string
	Unwrapped               []string
	Wrapped                 []string
	MoveCalls               []string
	GasObjectID             string
	GasObjectSequence       int64
	GasObjectDigest         string
	GasBudget               int64
	TotalGasCost            int64
	ComputationCost         int64
	StorageCost             int64
	StorageRebate           int64
	NonRefundableStorageFee int64
	GasPrice                int64
	RawTransaction          string
	TransactionContent      string
	TransactionEffects      string
}

// NewTransaction flattens a full transaction block into its row.
// A block without input data or effects cannot be indexed and is a hard
// error; the caller's supervisor handles it.
func NewTransaction(tx *sui.TransactionBlock) (Transaction, error) {
	if tx.Transaction == nil {
		return Transaction{}, fmt.Errorf("transaction %s has no input data", tx.Digest)
	}
	if tx.Effects == nil {
		return Transaction{}, fmt.Errorf("transaction %s has no effects", tx.Digest)
	}
	var data = &tx.Transaction.Data
	var effects = tx.Effects

	content, err := json.Marshal(tx.Transaction)
	if err != nil {
		return Transaction{}, fmt.Errorf("encoding transaction %s content: %w", tx.Digest, err)
	}
	effectsContent, err := json.Marshal(effects)
	if err != nil {
		return Transaction{}, fmt.Errorf("encoding transaction %s effects: %w", tx.Digest, err)
	}
	moveCalls, err := data.Transaction.MoveCalls()
	if err != nil {
		return Transaction{}, fmt.Errorf("transaction %s: %w", tx.Digest, err)
	}
	var moveCallNames = make([]string, 0, len(moveCalls))
	for _, mc := range moveCalls {
		moveCallNames = append(moveCallNames, fmt.Sprintf("%s::%s::%s", mc.Package, mc.Module, mc.Function))
	}

	var row = Transaction{
		TransactionDigest:       tx.Digest,
		Sender:                  data.Sender,
		TransactionKind:         data.Transaction.Kind,
		TransactionCount:        1,
		ExecutionSuccess:        effects.Status.Status == "success",
		Created:                 objectIDs(effects.Created),
		Mutated:                 objectIDs(effects.Mutated),
		Deleted:                 refIDs(effects.Deleted),
		Unwrapped:               objectIDs(effects.Unwrapped),
		Wrapped:                 refIDs(effects.Wrapped),
		MoveCalls:               moveCallNames,
		GasObjectID:             effects.GasObject.Reference.ObjectID,
		GasObjectSequence:       int64(effects.GasObject.Reference.Version),
		GasObjectDigest:         effects.GasObject.Reference.Digest,
		GasBudget:               int64(data.GasData.Budget),
		ComputationCost:         int64(effects.GasUsed.ComputationCost),
		StorageCost:             int64(effects.GasUsed.StorageCost),
		StorageRebate:           int64(effects.GasUsed.StorageRebate),
		NonRefundableStorageFee: int64(effects.GasUsed.NonRefundableStorageFee),
		GasPrice:                int64(data.GasData.Price),
		RawTransaction:          tx.RawTransaction,
		TransactionContent:      string(content),
		TransactionEffects:      string(effectsContent),
	}
	row.TotalGasCost = row.ComputationCost + row.StorageCost - row.StorageRebate
	if tx.TimestampMs != nil {
		row.TimestampMs = int64(*tx.TimestampMs)
	}
	if tx.Checkpoint != nil {
		row.CheckpointSequenceNum = int64(*tx.Checkpoint)
	}
	return row, nil
}

func objectIDs(refs []sui.OwnedObjectRef) []string {
	var out = make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.Reference.ObjectID)
	}
	return out
}

func refIDs(refs []sui.ObjectRef) []string {
	var out = make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.ObjectID)
	}
	return out
}
