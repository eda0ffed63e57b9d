package indexer

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/asjadnft/sui-indexer/go/fullnode"
	"github.com/asjadnft/sui-indexer/go/models"
	"github.com/asjadnft/sui-indexer/go/store"
	"github.com/asjadnft/sui-indexer/go/sui"
)

// ObjectChange is one (id, version, status) extracted from effects for
// a status under which the object still exists.
type ObjectChange struct {
	ObjectID string
	Version  sui.Uint64
	Status   models.ObjectStatus
}

// ObjectChanges extracts the present-after object footprint of one
// transaction's effects: created, then mutated, then unwrapped.
func ObjectChanges(effects *sui.TransactionEffects) []ObjectChange {
	var out = make([]ObjectChange, 0, len(effects.Created)+len(effects.Mutated)+len(effects.Unwrapped))
	var add = func(refs []sui.OwnedObjectRef, status models.ObjectStatus) {
		for _, r := range refs {
			out = append(out, ObjectChange{
				ObjectID: r.Reference.ObjectID,
				Version:  r.Reference.Version,
				Status:   status,
			})
		}
	}
	add(effects.Created, models.ObjectStatusCreated)
	add(effects.Mutated, models.ObjectStatusMutated)
	add(effects.Unwrapped, models.ObjectStatusUnwrapped)
	return out
}

// DeletedObjects extracts the absent-after object footprint of one
// transaction's effects: deleted, then wrapped, then
// unwrapped-then-deleted. Together with ObjectChanges it partitions the
// effects' object-mutation footprint.
func DeletedObjects(effects *sui.TransactionEffects, epoch, checkpoint uint64) []models.DeletedObject {
	var out = make([]models.DeletedObject, 0, len(effects.Deleted)+len(effects.Wrapped)+len(effects.UnwrappedThenDeleted))
	var add = func(refs []sui.ObjectRef, status models.ObjectStatus) {
		for _, r := range refs {
			out = append(out, models.NewDeletedObject(epoch, checkpoint, r, effects.TransactionDigest, status))
		}
	}
	add(effects.Deleted, models.ObjectStatusDeleted)
	add(effects.Wrapped, models.ObjectStatusWrapped)
	add(effects.UnwrappedThenDeleted, models.ObjectStatusUnwrappedThenDeleted)
	return out
}

// fetchChangedObjects fetches the post-state of every extracted object
// change, issuing chunked past-object lookups concurrently. The result
// pairs each fetched object positionally with its originating status.
func fetchChangedObjects(ctx context.Context, api fullnode.ReadAPI, changes []ObjectChange) ([]store.ChangedObject, error) {
	var chunks = chunk(changes, multiGetChunkSize)
	var results = make([][]store.ChangedObject, len(chunks))

	var group, groupCtx = errgroup.WithContext(ctx)
	for i, c := range chunks {
		var i, c = i, c
		group.Go(func() error {
			var requests = make([]sui.GetPastObjectRequest, 0, len(c))
			for _, change := range c {
				requests = append(requests, sui.GetPastObjectRequest{
					ObjectID: change.ObjectID,
					Version:  change.Version,
				})
			}
			responses, err := api.TryMultiGetPastObjects(groupCtx, requests, sui.BcsLosslessOptions())
			if err != nil {
				return fmt.Errorf("fetching %d past objects: %w", len(requests), err)
			}
			var paired = make([]store.ChangedObject, 0, len(responses))
			for j, resp := range responses {
				data, err := resp.IntoObject()
				if err != nil {
					return fmt.Errorf("object %s@%d: %w", c[j].ObjectID, c[j].Version, err)
				}
				paired = append(paired, store.ChangedObject{Status: c[j].Status, Object: data})
			}
			results[i] = paired
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var out = make([]store.ChangedObject, 0, len(changes))
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

func chunk[T any](items []T, size int) [][]T {
	var out [][]T
	for len(items) > size {
		out = append(out, items[:size])
		items = items[size:]
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}
