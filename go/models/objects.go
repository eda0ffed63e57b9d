// Package models holds the normalized relational rows the indexer
// derives from full-node payloads, and their conversions.
package models

import (
	"github.com/asjadnft/sui-indexer/go/sui"
)

// ObjectStatus tags how an object's version moved during a transaction.
type ObjectStatus string

const (
	ObjectStatusCreated              ObjectStatus = "created"
	ObjectStatusMutated              ObjectStatus = "mutated"
	ObjectStatusUnwrapped            ObjectStatus = "unwrapped"
	ObjectStatusDeleted              ObjectStatus = "deleted"
	ObjectStatusWrapped              ObjectStatus = "wrapped"
	ObjectStatusUnwrappedThenDeleted ObjectStatus = "unwrapped_then_deleted"
)

// Object is one object version present after its transaction.
type Object struct {
	Epoch                int64
	CheckpointSeq        int64
	ObjectID             string
	Version              int64
	ObjectDigest         string
	ObjectType           string
	OwnerType            string
	OwnerAddress         string
	InitialSharedVersion *int64
	PreviousTransaction  string
	ObjectStatus         ObjectStatus
	HasPublicTransfer    bool
	StorageRebate        int64
	BcsBytes             string
}

// NewObject builds an Object row from a fetched post-state.
func NewObject(epoch, checkpoint uint64, status ObjectStatus, o *sui.ObjectData) Object {
	var row = Object{
		Epoch:               int64(epoch),
		CheckpointSeq:       int64(checkpoint),
		ObjectID:            o.ObjectID,
		Version:             int64(o.Version),
		ObjectDigest:        o.Digest,
		ObjectType:          o.Type,
		PreviousTransaction: o.PreviousTransaction,
		ObjectStatus:        status,
	}
	if o.StorageRebate != nil {
		row.StorageRebate = int64(*o.StorageRebate)
	}
	if o.Owner != nil {
		row.OwnerType, row.OwnerAddress, row.InitialSharedVersion = ownerColumns(o.Owner)
	}
	if o.Bcs != nil && !o.Bcs.IsPackage() {
		row.HasPublicTransfer = o.Bcs.HasPublicTransfer
		row.BcsBytes = o.Bcs.BcsBytes
	}
	return row
}

func ownerColumns(o *sui.Owner) (ownerType, ownerAddress string, initialSharedVersion *int64) {
	switch {
	case o.AddressOwner != nil:
		return "address_owner", *o.AddressOwner, nil
	case o.ObjectOwner != nil:
		return "object_owner", *o.ObjectOwner, nil
	case o.Shared != nil:
		var v = int64(o.Shared.InitialSharedVersion)
		return "shared", "", &v
	case o.Immutable:
		return "immutable", "", nil
	}
	return "", "", nil
}

// DeletedObject is one object version absent after its transaction.
type DeletedObject struct {
	Epoch               int64
	CheckpointSeq       int64
	ObjectID            string
	Version             int64
	ObjectDigest        string
	PreviousTransaction string
	ObjectStatus        ObjectStatus
}

// NewDeletedObject builds a DeletedObject row from an effects object ref.
func NewDeletedObject(epoch, checkpoint uint64, oref sui.ObjectRef, txDigest string, status ObjectStatus) DeletedObject {
	return DeletedObject{
		Epoch:               int64(epoch),
		CheckpointSeq:       int64(checkpoint),
		ObjectID:            oref.ObjectID,
		Version:             int64(oref.Version),
		ObjectDigest:        oref.Digest,
		PreviousTransaction: txDigest,
		ObjectStatus:        status,
	}
}
