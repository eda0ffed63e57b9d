// Package sui holds the JSON wire types returned by a Sui full node's
// JSON-RPC read API, limited to the surface the indexer consumes:
// checkpoints, transaction blocks, effects, events, object data, and the
// system-state summary.
package sui

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// The package address under which the system module publishes epoch events.
const SystemAddress = "0x3"

// Uint64 is a u64 as the node encodes it: usually a decimal string,
// occasionally a bare JSON number in older node versions.
type Uint64 uint64

func (u Uint64) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(uint64(u), 10))
}

func (u *Uint64) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return fmt.Errorf("parsing u64 %q: %w", s, err)
		}
		*u = Uint64(v)
		return nil
	}
	var v uint64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*u = Uint64(v)
	return nil
}

// GasCostSummary is the gas accounting attached to effects and checkpoints.
type GasCostSummary struct {
	ComputationCost         Uint64 `json:"computationCost"`
	StorageCost             Uint64 `json:"storageCost"`
	StorageRebate           Uint64 `json:"storageRebate"`
	NonRefundableStorageFee Uint64 `json:"nonRefundableStorageFee"`
}

// ECMHLiveObjectSetDigest commits to the epoch's live object set.
type ECMHLiveObjectSetDigest struct {
	Digest string `json:"digest"`
}

// CheckpointCommitment is the node's tagged commitment enum. Only the
// live-object-set digest variant exists today.
type CheckpointCommitment struct {
	ECMHLiveObjectSetDigest *ECMHLiveObjectSetDigest `json:"ECMHLiveObjectSetDigest,omitempty"`
}

// CommitteeMember is one (authority name, stake) pair of the next epoch's
// committee. The node encodes it as a two-element JSON array.
type CommitteeMember struct {
	Name  string
	Stake Uint64
}

func (m *CommitteeMember) UnmarshalJSON(b []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("committee member: expected [name, stake], got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &m.Name); err != nil {
		return fmt.Errorf("committee member name: %w", err)
	}
	if err := json.Unmarshal(pair[1], &m.Stake); err != nil {
		return fmt.Errorf("committee member stake: %w", err)
	}
	return nil
}

func (m CommitteeMember) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{m.Name, m.Stake})
}

// EndOfEpochData rides on the final checkpoint of an epoch.
type EndOfEpochData struct {
	NextEpochCommittee       []CommitteeMember      `json:"nextEpochCommittee"`
	NextEpochProtocolVersion Uint64                 `json:"nextEpochProtocolVersion"`
	EpochCommitments         []CheckpointCommitment `json:"epochCommitments"`
}

// Checkpoint is the signed checkpoint envelope.
type Checkpoint struct {
	Epoch                      Uint64                 `json:"epoch"`
	SequenceNumber             Uint64                 `json:"sequenceNumber"`
	Digest                     string                 `json:"digest"`
	NetworkTotalTransactions   Uint64                 `json:"networkTotalTransactions"`
	PreviousDigest             *string                `json:"previousDigest,omitempty"`
	EpochRollingGasCostSummary GasCostSummary         `json:"epochRollingGasCostSummary"`
	TimestampMs                Uint64                 `json:"timestampMs"`
	EndOfEpochData             *EndOfEpochData        `json:"endOfEpochData,omitempty"`
	Transactions               []string               `json:"transactions"`
	CheckpointCommitments      []CheckpointCommitment `json:"checkpointCommitments"`
	ValidatorSignature         string                 `json:"validatorSignature"`
}

// Owner is the node's tagged object-owner enum. "Immutable" is a bare
// string; the others are single-key objects.
type Owner struct {
	AddressOwner *string `json:"AddressOwner,omitempty"`
	ObjectOwner  *string `json:"ObjectOwner,omitempty"`
	Shared       *struct {
		InitialSharedVersion Uint64 `json:"initial_shared_version"`
	} `json:"Shared,omitempty"`
	Immutable bool `json:"-"`
}

func (o *Owner) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s != "Immutable" {
			return fmt.Errorf("unknown owner variant %q", s)
		}
		o.Immutable = true
		return nil
	}
	type plain Owner
	return json.Unmarshal(b, (*plain)(o))
}

func (o Owner) MarshalJSON() ([]byte, error) {
	if o.Immutable {
		return json.Marshal("Immutable")
	}
	type plain Owner
	return json.Marshal(plain(o))
}

// ObjectRef names an exact object version.
type ObjectRef struct {
	ObjectID string `json:"objectId"`
	Version  Uint64 `json:"version"`
	Digest   string `json:"digest"`
}

// OwnedObjectRef is an ObjectRef plus the owner it ended up with.
type OwnedObjectRef struct {
	Owner     Owner     `json:"owner"`
	Reference ObjectRef `json:"reference"`
}

// ExecutionStatus reports transaction success or the abort error.
type ExecutionStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// TransactionEffects is the post-execution summary of one transaction.
type TransactionEffects struct {
	MessageVersion       string           `json:"messageVersion"`
	Status               ExecutionStatus  `json:"status"`
	ExecutedEpoch        Uint64           `json:"executedEpoch"`
	GasUsed              GasCostSummary   `json:"gasUsed"`
	SharedObjects        []ObjectRef      `json:"sharedObjects,omitempty"`
	TransactionDigest    string           `json:"transactionDigest"`
	Created              []OwnedObjectRef `json:"created,omitempty"`
	Mutated              []OwnedObjectRef `json:"mutated,omitempty"`
	Unwrapped            []OwnedObjectRef `json:"unwrapped,omitempty"`
	Deleted              []ObjectRef      `json:"deleted,omitempty"`
	Wrapped              []ObjectRef      `json:"wrapped,omitempty"`
	UnwrappedThenDeleted []ObjectRef      `json:"unwrappedThenDeleted,omitempty"`
	GasObject            OwnedObjectRef   `json:"gasObject"`
	EventsDigest         *string          `json:"eventsDigest,omitempty"`
	Dependencies         []string         `json:"dependencies,omitempty"`
}

// EventID locates an event within its emitting transaction.
type EventID struct {
	TxDigest string `json:"txDigest"`
	EventSeq Uint64 `json:"eventSeq"`
}

// Event is one Move event, with both its raw BCS payload and the node's
// JSON rendering of the payload.
type Event struct {
	ID                EventID         `json:"id"`
	PackageID         string          `json:"packageId"`
	TransactionModule string          `json:"transactionModule"`
	Sender            string          `json:"sender"`
	Type              string          `json:"type"`
	ParsedJSON        json.RawMessage `json:"parsedJson,omitempty"`
	Bcs               string          `json:"bcs,omitempty"`
	TimestampMs       *Uint64         `json:"timestampMs,omitempty"`
}

// TypeParts splits the event's "address::module::name" type tag.
// Returns empty strings if the tag is malformed.
func (e *Event) TypeParts() (addr, module, name string) {
	var parts = strings.SplitN(e.Type, "::", 3)
	if len(parts) != 3 {
		return "", "", ""
	}
	return parts[0], parts[1], parts[2]
}

// AddressEq compares two hex addresses ignoring zero-padding width,
// so "0x3" matches "0x0000000000000000000000000000000000000000000000000000000000000003".
func AddressEq(a, b string) bool {
	return normalizeAddress(a) == normalizeAddress(b)
}

func normalizeAddress(a string) string {
	a = strings.ToLower(strings.TrimPrefix(a, "0x"))
	return strings.TrimLeft(a, "0")
}
