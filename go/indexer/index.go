package indexer

import (
	"encoding/base64"
	"fmt"

	"github.com/asjadnft/sui-indexer/go/models"
	"github.com/asjadnft/sui-indexer/go/store"
	"github.com/asjadnft/sui-indexer/go/sui"
)

// IndexCheckpoint transforms one assembled bundle into the staged rows
// of its checkpoint, plus the staged epoch when the checkpoint is an
// epoch boundary (genesis included). Pure; everything derives from the
// input.
func IndexCheckpoint(data *store.CheckpointData) (*store.TemporaryCheckpointStore, *store.TemporaryEpochStore, error) {
	var checkpoint = data.Checkpoint
	var epoch = uint64(checkpoint.Epoch)
	var seq = uint64(checkpoint.SequenceNumber)

	var transactions = make([]models.Transaction, 0, len(data.Transactions))
	for _, tx := range data.Transactions {
		row, err := models.NewTransaction(tx)
		if err != nil {
			return nil, nil, fmt.Errorf("indexing checkpoint %d: %w", seq, err)
		}
		transactions = append(transactions, row)
	}

	var events []models.Event
	for _, tx := range data.Transactions {
		for _, e := range tx.Events {
			events = append(events, models.NewEvent(e))
		}
	}

	// Group fetched post-states by the transaction that produced them.
	var txObjects = make(map[string][]store.ChangedObject)
	for _, c := range data.ChangedObjects {
		if c.Object.PreviousTransaction == "" {
			return nil, nil, fmt.Errorf(
				"indexing checkpoint %d: object %s@%d has no previous transaction",
				seq, c.Object.ObjectID, c.Object.Version)
		}
		var digest = c.Object.PreviousTransaction
		txObjects[digest] = append(txObjects[digest], c)
	}

	var objectChanges = make([]store.TransactionObjectChanges, 0, len(data.Transactions))
	for _, tx := range data.Transactions {
		var changed = make([]models.Object, 0, len(txObjects[tx.Digest]))
		for _, c := range txObjects[tx.Digest] {
			changed = append(changed, models.NewObject(epoch, seq, c.Status, c.Object))
		}
		objectChanges = append(objectChanges, store.TransactionObjectChanges{
			Changed: changed,
			Deleted: DeletedObjects(tx.Effects, epoch, seq),
		})
	}

	packages, err := indexPackages(data.Transactions, data.ChangedObjects)
	if err != nil {
		return nil, nil, fmt.Errorf("indexing checkpoint %d packages: %w", seq, err)
	}

	var inputObjects []models.InputObject
	var moveCalls []models.MoveCall
	var recipients []models.Recipient
	var addresses []models.Address
	for _, tx := range data.Transactions {
		ins, err := models.InputObjects(tx, epoch, seq)
		if err != nil {
			return nil, nil, fmt.Errorf("indexing checkpoint %d: %w", seq, err)
		}
		inputObjects = append(inputObjects, ins...)
		moveCalls = append(moveCalls, models.MoveCalls(tx, epoch, seq)...)
		recipients = append(recipients, models.Recipients(tx, epoch, seq)...)
		addresses = append(addresses, models.Addresses(tx, epoch, seq)...)
	}

	epochStore, err := indexEpoch(data)
	if err != nil {
		return nil, nil, fmt.Errorf("indexing checkpoint %d epoch: %w", seq, err)
	}

	var totalTransactions int64
	for _, t := range transactions {
		totalTransactions += t.TransactionCount
	}

	return &store.TemporaryCheckpointStore{
		Checkpoint:    models.NewCheckpoint(checkpoint, totalTransactions),
		Transactions:  transactions,
		Events:        events,
		ObjectChanges: objectChanges,
		Addresses:     addresses,
		Packages:      packages,
		InputObjects:  inputObjects,
		MoveCalls:     moveCalls,
		Recipients:    recipients,
	}, epochStore, nil
}

// indexPackages joins each transaction's created object refs against
// the changed objects whose raw data is the package variant. Non-package
// creations yield no row.
func indexPackages(transactions []*sui.TransactionBlock, changedObjects []store.ChangedObject) ([]models.Package, error) {
	var packageMap = make(map[string]*sui.RawData)
	for _, c := range changedObjects {
		if c.Object.Bcs.IsPackage() {
			packageMap[c.Object.ObjectID] = c.Object.Bcs
		}
	}

	var out []models.Package
	for _, tx := range transactions {
		for _, created := range tx.Effects.Created {
			var raw, ok = packageMap[created.Reference.ObjectID]
			if !ok {
				continue
			}
			if tx.Transaction == nil {
				return nil, fmt.Errorf("package publisher %s has no input data", tx.Digest)
			}
			pkg, err := models.NewPackage(tx.Transaction.Data.Sender, raw)
			if err != nil {
				return nil, err
			}
			out = append(out, pkg)
		}
	}
	return out, nil
}

// indexEpoch synthesizes the epoch boundary record. Exactly one of
// three branches applies: genesis, end-of-epoch, or mid-epoch (nil).
func indexEpoch(data *store.CheckpointData) (*store.TemporaryEpochStore, error) {
	var checkpoint = data.Checkpoint

	if checkpoint.Epoch == 0 && checkpoint.SequenceNumber == 0 {
		var systemState, err = requireSystemState(data)
		if err != nil {
			return nil, err
		}
		return &store.TemporaryEpochStore{
			LastEpoch: nil,
			NewEpoch: models.EpochInfo{
				Epoch:               0,
				FirstCheckpointID:   0,
				EpochStartTimestamp: int64(systemState.EpochStartTimestampMs),
			},
			SystemState: models.NewSystemState(systemState),
			Validators:  epochValidators(systemState),
		}, nil
	}

	if checkpoint.EndOfEpochData == nil {
		return nil, nil
	}

	var endOfEpoch = checkpoint.EndOfEpochData
	systemState, err := requireSystemState(data)
	if err != nil {
		return nil, err
	}

	var lastEpoch = models.EpochInfo{
		Epoch:             int64(systemState.Epoch) - 1,
		LastCheckpointID:  i64(int64(checkpoint.SequenceNumber)),
		EpochEndTimestamp: i64(int64(checkpoint.TimestampMs)),
		NextEpochVersion:  i64(int64(endOfEpoch.NextEpochProtocolVersion)),
	}

	for _, member := range endOfEpoch.NextEpochCommittee {
		name, err := base64.StdEncoding.DecodeString(member.Name)
		if err != nil {
			return nil, fmt.Errorf("decoding committee member name %q: %w", member.Name, err)
		}
		lastEpoch.NextEpochCommittee = append(lastEpoch.NextEpochCommittee, name)
		lastEpoch.NextEpochCommitteeStake = append(lastEpoch.NextEpochCommitteeStake, i64(int64(member.Stake)))
	}

	for _, commitment := range endOfEpoch.EpochCommitments {
		if commitment.ECMHLiveObjectSetDigest != nil {
			lastEpoch.EpochCommitments = append(lastEpoch.EpochCommitments,
				[]byte(commitment.ECMHLiveObjectSetDigest.Digest))
		}
	}

	// The system epoch event is nominally always emitted at a boundary,
	// but a node-side omission must not fail the checkpoint: the
	// event-derived fields stay null.
	if event := findEpochEvent(data.Transactions); event != nil {
		parsed, err := sui.ParseSystemEpochInfoEvent(event)
		if err != nil {
			return nil, err
		}
		lastEpoch.ApplyEpochEvent(parsed)
	}

	return &store.TemporaryEpochStore{
		LastEpoch: &lastEpoch,
		NewEpoch: models.EpochInfo{
			Epoch:               int64(systemState.Epoch),
			FirstCheckpointID:   int64(checkpoint.SequenceNumber) + 1,
			EpochStartTimestamp: int64(systemState.EpochStartTimestampMs),
		},
		SystemState: models.NewSystemState(systemState),
		Validators:  epochValidators(systemState),
	}, nil
}

func requireSystemState(data *store.CheckpointData) (*sui.SystemStateSummary, error) {
	if data.SystemState == nil {
		return nil, fmt.Errorf("checkpoint %d is an epoch boundary but carries no system state",
			data.Checkpoint.SequenceNumber)
	}
	return data.SystemState, nil
}

func epochValidators(systemState *sui.SystemStateSummary) []models.Validator {
	var out = make([]models.Validator, 0, len(systemState.ActiveValidators))
	for _, v := range systemState.ActiveValidators {
		out = append(out, models.NewValidator(systemState.Epoch, v))
	}
	return out
}

func findEpochEvent(transactions []*sui.TransactionBlock) *sui.Event {
	for _, tx := range transactions {
		for i := range tx.Events {
			if sui.IsSystemEpochInfoEvent(&tx.Events[i]) {
				return &tx.Events[i]
			}
		}
	}
	return nil
}

func i64(v int64) *int64 { return &v }
