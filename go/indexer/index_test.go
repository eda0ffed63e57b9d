package indexer

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/asjadnft/sui-indexer/go/models"
	"github.com/asjadnft/sui-indexer/go/store"
	"github.com/asjadnft/sui-indexer/go/sui"
)

func TestIndexCheckpointRows(t *testing.T) {
	var effectsA = testEffects("tx-a")
	effectsA.Created = []sui.OwnedObjectRef{ownedRef("0x1", 1, "0xaaa")}
	effectsA.Deleted = []sui.ObjectRef{objRef("0x9", 2)}
	var txA = testTx("tx-a", "0xsender", effectsA)
	txA.Events = []sui.Event{{
		ID:        sui.EventID{TxDigest: "tx-a", EventSeq: 0},
		PackageID: "0x2",
		Sender:    "0xsender",
		Type:      "0x2::coin::CoinEvent",
	}}

	var effectsB = testEffects("tx-b")
	effectsB.Mutated = []sui.OwnedObjectRef{ownedRef("0x2", 7, "0xbbb")}
	var txB = testTx("tx-b", "0xother", effectsB)

	var data = &store.CheckpointData{
		Checkpoint:   testCheckpoint(42, 3, []string{"tx-a", "tx-b"}),
		Transactions: []*sui.TransactionBlock{txA, txB},
		ChangedObjects: []store.ChangedObject{
			{Status: models.ObjectStatusCreated, Object: &sui.ObjectData{
				ObjectID: "0x1", Version: 1, PreviousTransaction: "tx-a"}},
			{Status: models.ObjectStatusMutated, Object: &sui.ObjectData{
				ObjectID: "0x2", Version: 7, PreviousTransaction: "tx-b"}},
		},
	}

	var checkpoint, epoch, err = IndexCheckpoint(data)
	require.NoError(t, err)
	require.Nil(t, epoch) // Mid-epoch.

	require.Equal(t, int64(42), checkpoint.Checkpoint.SequenceNumber)
	require.Equal(t, int64(2), checkpoint.Checkpoint.TotalTransactions)
	require.Len(t, checkpoint.Transactions, 2)
	require.Len(t, checkpoint.Events, 1)

	// Object changes group by producing transaction, in input order.
	require.Len(t, checkpoint.ObjectChanges, 2)
	require.Len(t, checkpoint.ObjectChanges[0].Changed, 1)
	require.Equal(t, "0x1", checkpoint.ObjectChanges[0].Changed[0].ObjectID)
	require.Len(t, checkpoint.ObjectChanges[0].Deleted, 1)
	require.Equal(t, "0x9", checkpoint.ObjectChanges[0].Deleted[0].ObjectID)
	require.Len(t, checkpoint.ObjectChanges[1].Changed, 1)
	require.Equal(t, "0x2", checkpoint.ObjectChanges[1].Changed[0].ObjectID)
	require.Empty(t, checkpoint.ObjectChanges[1].Deleted)

	// Recipients and addresses pick up owners and senders.
	require.Len(t, checkpoint.Recipients, 2)
	var addresses = make(map[string]struct{})
	for _, a := range checkpoint.Addresses {
		addresses[a.AccountAddress] = struct{}{}
	}
	require.Contains(t, addresses, "0xsender")
	require.Contains(t, addresses, "0xaaa")
}

func TestIndexGenesisEpoch(t *testing.T) {
	var data = &store.CheckpointData{
		Checkpoint:  testCheckpoint(0, 0, nil),
		SystemState: testSystemState(0),
	}

	var _, epoch, err = IndexCheckpoint(data)
	require.NoError(t, err)
	require.NotNil(t, epoch)

	require.Nil(t, epoch.LastEpoch)
	require.Equal(t, int64(0), epoch.NewEpoch.Epoch)
	require.Equal(t, int64(0), epoch.NewEpoch.FirstCheckpointID)
	require.Equal(t, int64(1_700_000_000_000), epoch.NewEpoch.EpochStartTimestamp)
	require.Len(t, epoch.Validators, 2)
	require.Equal(t, int64(0), epoch.Validators[0].Epoch)
}

func TestIndexEpochBoundary(t *testing.T) {
	var checkpoint = testCheckpoint(1000, 6, []string{"tx-a"})
	checkpoint.EndOfEpochData = &sui.EndOfEpochData{
		NextEpochCommittee: []sui.CommitteeMember{
			{Name: base64.StdEncoding.EncodeToString([]byte("validator-one")), Stake: 5000},
			{Name: base64.StdEncoding.EncodeToString([]byte("validator-two")), Stake: 7000},
		},
		NextEpochProtocolVersion: 5,
		EpochCommitments: []sui.CheckpointCommitment{
			{ECMHLiveObjectSetDigest: &sui.ECMHLiveObjectSetDigest{Digest: "commitment-digest"}},
		},
	}
	var tx = testTx("tx-a", "0xsender", testEffects("tx-a"))
	tx.Events = []sui.Event{epochEvent("tx-a")}

	var data = &store.CheckpointData{
		Checkpoint:   checkpoint,
		Transactions: []*sui.TransactionBlock{tx},
		SystemState:  testSystemState(7),
	}

	var _, epoch, err = IndexCheckpoint(data)
	require.NoError(t, err)
	require.NotNil(t, epoch)
	require.NotNil(t, epoch.LastEpoch)

	var last = epoch.LastEpoch
	require.Equal(t, int64(6), last.Epoch)
	require.Equal(t, int64(1000), *last.LastCheckpointID)
	require.Equal(t, int64(1_700_000_001_000), *last.EpochEndTimestamp)
	require.Equal(t, int64(5), *last.NextEpochVersion)

	// Committee names and stakes stay positionally aligned.
	require.Len(t, last.NextEpochCommittee, 2)
	require.Len(t, last.NextEpochCommitteeStake, 2)
	require.Equal(t, []byte("validator-one"), last.NextEpochCommittee[0])
	require.Equal(t, int64(5000), *last.NextEpochCommitteeStake[0])
	require.Equal(t, []byte("validator-two"), last.NextEpochCommittee[1])
	require.Equal(t, int64(7000), *last.NextEpochCommitteeStake[1])

	require.Equal(t, [][]byte{[]byte("commitment-digest")}, last.EpochCommitments)

	// Event-derived fields are populated.
	require.Equal(t, int64(1000), *last.ReferenceGasPrice)
	require.Equal(t, int64(5), *last.StakeSubsidyAmount)
	require.Equal(t, int64(6), *last.TotalGasFees)
	require.Equal(t, int64(7), *last.TotalStakeRewardsDistributed)

	require.Equal(t, int64(7), epoch.NewEpoch.Epoch)
	require.Equal(t, int64(1001), epoch.NewEpoch.FirstCheckpointID)
	require.Equal(t, int64(7), epoch.SystemState.Epoch)
	require.Len(t, epoch.Validators, 2)
}

// A node-side omission of the epoch event leaves the event-derived
// fields null rather than failing the checkpoint.
func TestIndexEpochBoundaryWithoutEvent(t *testing.T) {
	var checkpoint = testCheckpoint(1000, 6, []string{"tx-a"})
	checkpoint.EndOfEpochData = &sui.EndOfEpochData{NextEpochProtocolVersion: 5}

	var data = &store.CheckpointData{
		Checkpoint:   checkpoint,
		Transactions: []*sui.TransactionBlock{testTx("tx-a", "0xsender", testEffects("tx-a"))},
		SystemState:  testSystemState(7),
	}

	var _, epoch, err = IndexCheckpoint(data)
	require.NoError(t, err)
	require.NotNil(t, epoch.LastEpoch)
	require.Nil(t, epoch.LastEpoch.ReferenceGasPrice)
	require.Nil(t, epoch.LastEpoch.TotalGasFees)
	require.NotNil(t, epoch.LastEpoch.NextEpochVersion)
}

func TestIndexEpochBoundaryRequiresSystemState(t *testing.T) {
	var checkpoint = testCheckpoint(1000, 6, nil)
	checkpoint.EndOfEpochData = &sui.EndOfEpochData{}

	var _, _, err = IndexCheckpoint(&store.CheckpointData{Checkpoint: checkpoint})
	require.Error(t, err)
	require.Contains(t, err.Error(), "system state")
}

func TestIndexPackages(t *testing.T) {
	var effects = testEffects("tx-a")
	effects.Created = []sui.OwnedObjectRef{
		ownedRef("0xpkg", 1, ""),
		ownedRef("0xcoin", 1, "0xaaa"),
	}
	var data = &store.CheckpointData{
		Checkpoint:   testCheckpoint(5, 3, []string{"tx-a"}),
		Transactions: []*sui.TransactionBlock{testTx("tx-a", "0xsender", effects)},
		ChangedObjects: []store.ChangedObject{
			{Status: models.ObjectStatusCreated, Object: &sui.ObjectData{
				ObjectID:            "0xpkg",
				Version:             1,
				PreviousTransaction: "tx-a",
				Bcs: &sui.RawData{
					DataType:  "package",
					ID:        "0xpkg",
					Version:   1,
					ModuleMap: map[string]string{"counter": "AAEC"},
				},
			}},
			{Status: models.ObjectStatusCreated, Object: &sui.ObjectData{
				ObjectID:            "0xcoin",
				Version:             1,
				PreviousTransaction: "tx-a",
				Bcs:                 &sui.RawData{DataType: "moveObject", BcsBytes: "AAEC"},
			}},
		},
	}

	var checkpoint, _, err = IndexCheckpoint(data)
	require.NoError(t, err)

	// The package creation yields one row; the coin creation none.
	require.Len(t, checkpoint.Packages, 1)
	require.Equal(t, "0xpkg", checkpoint.Packages[0].PackageID)
	require.Equal(t, "0xsender", checkpoint.Packages[0].Author)
	require.Equal(t, map[string]string{"counter": "AAEC"}, checkpoint.Packages[0].ModuleMap)
}
