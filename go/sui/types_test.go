package sui

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUint64AcceptsStringAndNumber(t *testing.T) {
	var v Uint64
	require.NoError(t, json.Unmarshal([]byte(`"18446744073709551615"`), &v))
	require.Equal(t, Uint64(18446744073709551615), v)

	require.NoError(t, json.Unmarshal([]byte(`42`), &v))
	require.Equal(t, Uint64(42), v)

	require.Error(t, json.Unmarshal([]byte(`"not-a-number"`), &v))

	var out, err = json.Marshal(Uint64(7))
	require.NoError(t, err)
	require.Equal(t, `"7"`, string(out))
}

func TestCheckpointDecoding(t *testing.T) {
	var raw = `{
		"epoch": "7",
		"sequenceNumber": "1000",
		"digest": "ckpt-digest",
		"networkTotalTransactions": "5000",
		"previousDigest": "prev-digest",
		"epochRollingGasCostSummary": {
			"computationCost": "100",
			"storageCost": "200",
			"storageRebate": "50",
			"nonRefundableStorageFee": "2"
		},
		"timestampMs": "1700000000000",
		"endOfEpochData": {
			"nextEpochCommittee": [["a2V5LW9uZQ==", "5000"], ["a2V5LXR3bw==", "7000"]],
			"nextEpochProtocolVersion": "5",
			"epochCommitments": [{"ECMHLiveObjectSetDigest": {"digest": "set-digest"}}]
		},
		"transactions": ["tx-a", "tx-b"],
		"checkpointCommitments": [],
		"validatorSignature": "sig"
	}`

	var c Checkpoint
	require.NoError(t, json.Unmarshal([]byte(raw), &c))

	require.Equal(t, Uint64(7), c.Epoch)
	require.Equal(t, Uint64(1000), c.SequenceNumber)
	require.Equal(t, "prev-digest", *c.PreviousDigest)
	require.Equal(t, Uint64(50), c.EpochRollingGasCostSummary.StorageRebate)

	require.NotNil(t, c.EndOfEpochData)
	require.Equal(t, Uint64(5), c.EndOfEpochData.NextEpochProtocolVersion)
	require.Len(t, c.EndOfEpochData.NextEpochCommittee, 2)
	require.Equal(t, "a2V5LW9uZQ==", c.EndOfEpochData.NextEpochCommittee[0].Name)
	require.Equal(t, Uint64(5000), c.EndOfEpochData.NextEpochCommittee[0].Stake)
	require.Equal(t, "set-digest", c.EndOfEpochData.EpochCommitments[0].ECMHLiveObjectSetDigest.Digest)
}

func TestOwnerVariants(t *testing.T) {
	var owner Owner
	require.NoError(t, json.Unmarshal([]byte(`{"AddressOwner": "0xaaa"}`), &owner))
	require.Equal(t, "0xaaa", *owner.AddressOwner)
	require.False(t, owner.Immutable)

	owner = Owner{}
	require.NoError(t, json.Unmarshal([]byte(`{"Shared": {"initial_shared_version": "6"}}`), &owner))
	require.Equal(t, Uint64(6), owner.Shared.InitialSharedVersion)

	owner = Owner{}
	require.NoError(t, json.Unmarshal([]byte(`"Immutable"`), &owner))
	require.True(t, owner.Immutable)

	require.Error(t, json.Unmarshal([]byte(`"Unknown"`), &owner))

	var out, err = json.Marshal(Owner{Immutable: true})
	require.NoError(t, err)
	require.Equal(t, `"Immutable"`, string(out))
}

func TestEffectsDecoding(t *testing.T) {
	var raw = `{
		"messageVersion": "v1",
		"status": {"status": "success"},
		"executedEpoch": "7",
		"transactionDigest": "tx-a",
		"gasUsed": {
			"computationCost": "100",
			"storageCost": "200",
			"storageRebate": "50",
			"nonRefundableStorageFee": "2"
		},
		"created": [
			{"owner": {"AddressOwner": "0xaaa"}, "reference": {"objectId": "0x1", "version": 1, "digest": "d1"}}
		],
		"deleted": [{"objectId": "0x2", "version": 3, "digest": "d2"}],
		"gasObject": {"owner": {"AddressOwner": "0xaaa"}, "reference": {"objectId": "0xgas", "version": 9, "digest": "d3"}}
	}`

	var effects TransactionEffects
	require.NoError(t, json.Unmarshal([]byte(raw), &effects))
	require.Equal(t, "success", effects.Status.Status)
	require.Len(t, effects.Created, 1)
	require.Equal(t, "0x1", effects.Created[0].Reference.ObjectID)
	require.Equal(t, "0xaaa", *effects.Created[0].Owner.AddressOwner)
	require.Len(t, effects.Deleted, 1)
	require.Empty(t, effects.Mutated)
}

func TestMoveCallExtraction(t *testing.T) {
	var raw = `{
		"kind": "ProgrammableTransaction",
		"inputs": [
			{"type": "object", "objectType": "immOrOwnedObject", "objectId": "0x1", "version": "4", "digest": "d1"},
			{"type": "pure", "valueType": "u64", "value": "100"}
		],
		"transactions": [
			{"MoveCall": {"package": "0x2", "module": "coin", "function": "transfer"}},
			{"TransferObjects": [["Result", 0], {"Input": 1}]}
		]
	}`

	var kind TransactionKind
	require.NoError(t, json.Unmarshal([]byte(raw), &kind))

	calls, err := kind.MoveCalls()
	require.NoError(t, err)
	require.Len(t, calls, 1)
	require.Equal(t, "coin", calls[0].Module)

	var inputs = kind.ObjectInputs()
	require.Len(t, inputs, 1)
	require.Equal(t, "0x1", inputs[0].ObjectID)
}

func TestSystemEpochInfoEventMatching(t *testing.T) {
	var event = Event{
		Type:       "0x0000000000000000000000000000000000000000000000000000000000000003::sui_system_state_inner::SystemEpochInfoEvent",
		ParsedJSON: json.RawMessage(`{"epoch": "7", "total_gas_fees": "123"}`),
	}
	require.True(t, IsSystemEpochInfoEvent(&event))

	var parsed, err = ParseSystemEpochInfoEvent(&event)
	require.NoError(t, err)
	require.Equal(t, Uint64(7), parsed.Epoch)
	require.Equal(t, Uint64(123), parsed.TotalGasFees)

	require.False(t, IsSystemEpochInfoEvent(&Event{Type: "0x2::coin::CoinEvent"}))
	require.False(t, IsSystemEpochInfoEvent(&Event{Type: "0x3::sui_system::ValidatorEpochInfoEvent"}))

	_, err = ParseSystemEpochInfoEvent(&Event{Type: "0x3::sui_system_state_inner::SystemEpochInfoEvent"})
	require.Error(t, err)
}

func TestPastObjectResponse(t *testing.T) {
	var found = PastObjectResponse{
		Status:  "VersionFound",
		Details: json.RawMessage(`{"objectId": "0x1", "version": "4", "digest": "d1"}`),
	}
	var object, err = found.IntoObject()
	require.NoError(t, err)
	require.Equal(t, "0x1", object.ObjectID)

	var missing = PastObjectResponse{
		Status:  "VersionNotFound",
		Details: json.RawMessage(`["0x1", "4"]`),
	}
	_, err = missing.IntoObject()
	require.Error(t, err)
	require.Contains(t, err.Error(), "VersionNotFound")
}
