package models

import (
	"fmt"

	"github.com/asjadnft/sui-indexer/go/sui"
)

// InputObject is one object consumed as a transaction input.
type InputObject struct {
	TransactionDigest string
	CheckpointSeq     int64
	Epoch             int64
	ObjectID          string
	ObjectVersion     *int64
}

// MoveCall is one Move call issued by a transaction.
type MoveCall struct {
	TransactionDigest string
	CheckpointSeq     int64
	Epoch             int64
	Sender            string
	MoveCall          string
}

// Recipient is one address receiving an object from a transaction.
type Recipient struct {
	TransactionDigest string
	CheckpointSeq     int64
	Epoch             int64
	Sender            string
	Recipient         string
}

// Address is an account address with its first appearance.
type Address struct {
	AccountAddress      string
	FirstAppearanceTx   string
	FirstAppearanceTime int64
}

// InputObjects projects the object-typed inputs of a transaction.
// A transaction block without input data cannot be projected.
func InputObjects(tx *sui.TransactionBlock, epoch, checkpoint uint64) ([]InputObject, error) {
	if tx.Transaction == nil {
		return nil, fmt.Errorf("transaction %s has no input data", tx.Digest)
	}
	var inputs = tx.Transaction.Data.Transaction.ObjectInputs()
	var out = make([]InputObject, 0, len(inputs))
	for _, in := range inputs {
		var row = InputObject{
			TransactionDigest: tx.Digest,
			CheckpointSeq:     int64(checkpoint),
			Epoch:             int64(epoch),
			ObjectID:          in.ObjectID,
		}
		// Shared inputs pin an initial version rather than an exact one.
		if in.ObjectType == "immOrOwnedObject" {
			var v = int64(in.Version)
			row.ObjectVersion = &v
		}
		out = append(out, row)
	}
	return out, nil
}

// MoveCalls projects the Move calls of a transaction. Blocks without
// input data (or with undecodable commands) project to nothing; the
// row conversion surfaces those as errors instead.
func MoveCalls(tx *sui.TransactionBlock, epoch, checkpoint uint64) []MoveCall {
	if tx.Transaction == nil {
		return nil
	}
	calls, err := tx.Transaction.Data.Transaction.MoveCalls()
	if err != nil {
		return nil
	}
	var out = make([]MoveCall, 0, len(calls))
	for _, mc := range calls {
		out = append(out, MoveCall{
			TransactionDigest: tx.Digest,
			CheckpointSeq:     int64(checkpoint),
			Epoch:             int64(epoch),
			Sender:            tx.Transaction.Data.Sender,
			MoveCall:          fmt.Sprintf("%s::%s::%s", mc.Package, mc.Module, mc.Function),
		})
	}
	return out
}

// Recipients projects the addresses that received objects created,
// mutated, or unwrapped by the transaction, deduplicated in first-seen
// order.
func Recipients(tx *sui.TransactionBlock, epoch, checkpoint uint64) []Recipient {
	if tx.Effects == nil {
		return nil
	}
	var sender string
	if tx.Transaction != nil {
		sender = tx.Transaction.Data.Sender
	}
	var seen = make(map[string]struct{})
	var out []Recipient
	for _, refs := range [][]sui.OwnedObjectRef{tx.Effects.Created, tx.Effects.Mutated, tx.Effects.Unwrapped} {
		for _, ref := range refs {
			if ref.Owner.AddressOwner == nil {
				continue
			}
			var addr = *ref.Owner.AddressOwner
			if _, ok := seen[addr]; ok {
				continue
			}
			seen[addr] = struct{}{}
			out = append(out, Recipient{
				TransactionDigest: tx.Digest,
				CheckpointSeq:     int64(checkpoint),
				Epoch:             int64(epoch),
				Sender:            sender,
				Recipient:         addr,
			})
		}
	}
	return out
}

// Addresses projects every address the transaction touched (sender and
// recipients), deduplicated, stamped with the transaction as the
// candidate first appearance.
func Addresses(tx *sui.TransactionBlock, epoch, checkpoint uint64) []Address {
	var timestamp int64
	if tx.TimestampMs != nil {
		timestamp = int64(*tx.TimestampMs)
	}
	var seen = make(map[string]struct{})
	var out []Address
	var add = func(addr string) {
		if addr == "" {
			return
		}
		if _, ok := seen[addr]; ok {
			return
		}
		seen[addr] = struct{}{}
		out = append(out, Address{
			AccountAddress:      addr,
			FirstAppearanceTx:   tx.Digest,
			FirstAppearanceTime: timestamp,
		})
	}
	if tx.Transaction != nil {
		add(tx.Transaction.Data.Sender)
	}
	for _, r := range Recipients(tx, epoch, checkpoint) {
		add(r.Recipient)
	}
	return out
}
