package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/asjadnft/sui-indexer/go/store"
	"github.com/asjadnft/sui-indexer/go/sui"
)

func objRef(id string, version uint64) sui.ObjectRef {
	return sui.ObjectRef{ObjectID: id, Version: sui.Uint64(version), Digest: "digest-" + id}
}

func ownedRef(id string, version uint64, owner string) sui.OwnedObjectRef {
	var ref = sui.OwnedObjectRef{Reference: objRef(id, version)}
	if owner != "" {
		ref.Owner = sui.Owner{AddressOwner: &owner}
	} else {
		ref.Owner = sui.Owner{Immutable: true}
	}
	return ref
}

func testEffects(digest string) *sui.TransactionEffects {
	return &sui.TransactionEffects{
		MessageVersion:    "v1",
		Status:            sui.ExecutionStatus{Status: "success"},
		TransactionDigest: digest,
		GasObject:         ownedRef("0xgas", 1, "0xaaa"),
	}
}

func testTx(digest, sender string, effects *sui.TransactionEffects) *sui.TransactionBlock {
	return &sui.TransactionBlock{
		Digest: digest,
		Transaction: &sui.SenderSignedData{
			Data: sui.TransactionData{
				MessageVersion: "v1",
				Transaction:    sui.TransactionKind{Kind: "ProgrammableTransaction"},
				Sender:         sender,
				GasData: sui.GasData{
					Payment: []sui.ObjectRef{objRef("0xgas", 1)},
					Owner:   sender,
					Price:   1000,
					Budget:  50000,
				},
			},
		},
		Effects: effects,
	}
}

func testCheckpoint(seq, epoch uint64, txDigests []string) *sui.Checkpoint {
	return &sui.Checkpoint{
		Epoch:          sui.Uint64(epoch),
		SequenceNumber: sui.Uint64(seq),
		Digest:         fmt.Sprintf("ckpt-%d", seq),
		TimestampMs:    sui.Uint64(1_700_000_000_000 + seq),
		Transactions:   txDigests,
	}
}

func testSystemState(epoch uint64) *sui.SystemStateSummary {
	return &sui.SystemStateSummary{
		Epoch:                 sui.Uint64(epoch),
		ProtocolVersion:       4,
		EpochStartTimestampMs: sui.Uint64(1_700_000_000_000),
		TotalStake:            12345,
		ActiveValidators: []sui.ValidatorSummary{
			{SuiAddress: "0xv1", Name: "validator-one", VotingPower: 5000},
			{SuiAddress: "0xv2", Name: "validator-two", VotingPower: 5000},
		},
	}
}

func epochEvent(txDigest string) sui.Event {
	var payload, _ = json.Marshal(map[string]string{
		"epoch":                           "7",
		"protocol_version":                "4",
		"reference_gas_price":             "1000",
		"total_stake":                     "12345",
		"storage_fund_reinvestment":       "1",
		"storage_charge":                  "2",
		"storage_rebate":                  "3",
		"storage_fund_balance":            "4",
		"stake_subsidy_amount":            "5",
		"total_gas_fees":                  "6",
		"total_stake_rewards_distributed": "7",
		"leftover_storage_fund_inflow":    "8",
	})
	return sui.Event{
		ID:                sui.EventID{TxDigest: txDigest, EventSeq: 0},
		PackageID:         "0x3",
		TransactionModule: "sui_system",
		Sender:            "0x0",
		Type:              "0x3::sui_system_state_inner::SystemEpochInfoEvent",
		ParsedJSON:        payload,
	}
}

// fakeAPI is an in-memory ReadAPI that records every call.
type fakeAPI struct {
	mu sync.Mutex

	checkpoints  map[uint64]*sui.Checkpoint
	transactions map[string]*sui.TransactionBlock
	objects      map[string]*sui.ObjectData
	systemState  *sui.SystemStateSummary

	// checkpointFailures[seq] errors remain before GetCheckpoint(seq)
	// starts succeeding.
	checkpointFailures map[uint64]int

	checkpointCalls []uint64
	txCalls         [][]string
	objectCalls     [][]sui.GetPastObjectRequest
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		checkpoints:        make(map[uint64]*sui.Checkpoint),
		transactions:       make(map[string]*sui.TransactionBlock),
		objects:            make(map[string]*sui.ObjectData),
		checkpointFailures: make(map[uint64]int),
	}
}

func (f *fakeAPI) addObject(o *sui.ObjectData) {
	f.objects[fmt.Sprintf("%s@%d", o.ObjectID, o.Version)] = o
}

func (f *fakeAPI) GetCheckpoint(_ context.Context, seq uint64) (*sui.Checkpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkpointCalls = append(f.checkpointCalls, seq)

	if f.checkpointFailures[seq] > 0 {
		f.checkpointFailures[seq]--
		return nil, fmt.Errorf("checkpoint %d is unavailable", seq)
	}
	var c, ok = f.checkpoints[seq]
	if !ok {
		return nil, fmt.Errorf("verified checkpoint not found for sequence number %d", seq)
	}
	return c, nil
}

func (f *fakeAPI) MultiGetTransactionBlocks(_ context.Context, digests []string) ([]*sui.TransactionBlock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txCalls = append(f.txCalls, digests)

	var out = make([]*sui.TransactionBlock, 0, len(digests))
	for _, d := range digests {
		var tx, ok = f.transactions[d]
		if !ok {
			return nil, fmt.Errorf("transaction %s not found", d)
		}
		out = append(out, tx)
	}
	return out, nil
}

func (f *fakeAPI) TryMultiGetPastObjects(_ context.Context, reqs []sui.GetPastObjectRequest, _ sui.ObjectDataOptions) ([]sui.PastObjectResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objectCalls = append(f.objectCalls, reqs)

	var out = make([]sui.PastObjectResponse, 0, len(reqs))
	for _, req := range reqs {
		var o, ok = f.objects[fmt.Sprintf("%s@%d", req.ObjectID, req.Version)]
		if !ok {
			return nil, fmt.Errorf("past object %s@%d not found", req.ObjectID, req.Version)
		}
		var details, err = json.Marshal(o)
		if err != nil {
			return nil, err
		}
		out = append(out, sui.PastObjectResponse{Status: "VersionFound", Details: details})
	}
	return out, nil
}

func (f *fakeAPI) GetLatestSystemState(context.Context) (*sui.SystemStateSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.systemState == nil {
		return nil, fmt.Errorf("no system state fixture")
	}
	return f.systemState, nil
}

func (f *fakeAPI) requestedCheckpoints() []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint64(nil), f.checkpointCalls...)
}

func (f *fakeAPI) maxRequestedCheckpoint() int64 {
	var max = int64(-1)
	for _, seq := range f.requestedCheckpoints() {
		if int64(seq) > max {
			max = int64(seq)
		}
	}
	return max
}

// fakeStore is an in-memory IndexerStore recording the order of
// persist operations.
type fakeStore struct {
	mu sync.Mutex

	latest int64
	// ops records "epoch:N" and "checkpoint:N" in call order.
	ops         []string
	checkpoints []*store.TemporaryCheckpointStore
	epochs      []*store.TemporaryEpochStore

	// checkpointErrs errors are returned before PersistCheckpoint
	// starts succeeding.
	checkpointErrs int
	// checkpointAttempts counts every PersistCheckpoint call,
	// including failed and blocked ones.
	checkpointAttempts int
	// If non-nil, PersistCheckpoint blocks until the channel closes.
	blockCheckpoint chan struct{}
}

func newFakeStore(latest int64) *fakeStore {
	return &fakeStore{latest: latest}
}

func (f *fakeStore) GetLatestCheckpointSequenceNumber(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest, nil
}

func (f *fakeStore) PersistCheckpoint(ctx context.Context, data *store.TemporaryCheckpointStore) error {
	f.mu.Lock()
	f.checkpointAttempts++
	var block = f.blockCheckpoint
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.checkpointErrs > 0 {
		f.checkpointErrs--
		return fmt.Errorf("store is unavailable")
	}
	f.ops = append(f.ops, fmt.Sprintf("checkpoint:%d", data.Checkpoint.SequenceNumber))
	f.checkpoints = append(f.checkpoints, data)
	if data.Checkpoint.SequenceNumber > f.latest {
		f.latest = data.Checkpoint.SequenceNumber
	}
	return nil
}

func (f *fakeStore) PersistEpoch(_ context.Context, data *store.TemporaryEpochStore) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, fmt.Sprintf("epoch:%d", data.NewEpoch.Epoch))
	f.epochs = append(f.epochs, data)
	return nil
}

func (f *fakeStore) attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checkpointAttempts
}

func (f *fakeStore) unblockCheckpoints() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.blockCheckpoint != nil {
		close(f.blockCheckpoint)
		f.blockCheckpoint = nil
	}
}

func (f *fakeStore) operations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ops...)
}

func (f *fakeStore) committedCheckpoints() []*store.TemporaryCheckpointStore {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*store.TemporaryCheckpointStore(nil), f.checkpoints...)
}

func (f *fakeStore) committedEpochs() []*store.TemporaryEpochStore {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*store.TemporaryEpochStore(nil), f.epochs...)
}

// nopEvents satisfies events.Handler without doing anything.
type nopEvents struct{}

func (nopEvents) ProcessEvents(context.Context, *sui.TransactionEffects, []sui.Event) error {
	return nil
}
