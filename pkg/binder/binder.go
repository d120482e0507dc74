// Package binder maintains a local ordered projection of one owner-scoped
// remote collection and routes mutations back to the store. It is the one
// pattern the whole dashboard repeats: each entity view is an instantiation
// of Binder with its own record type and decoder.
package binder

import (
	"context"
	"fmt"
	"log"

	"github.com/sparkybotassistant-commits/meka-command-center/pkg/store"
)

// DecodeFunc turns a raw document into a typed record. A decode error means
// the document doesn't conform to the collection's shape; the binder logs
// and skips it instead of guessing.
type DecodeFunc[T any] func(store.Document) (T, error)

// Binder binds a local list of T to the remote collection's documents owned
// by one user.
type Binder[T any] struct {
	store      store.Store
	collection string
	orderBy    string
	decode     DecodeFunc[T]
}

// New creates a binder for collection. An empty orderBy means the
// collection has no ordering requirement; otherwise snapshots arrive
// newest-first by that field.
func New[T any](st store.Store, collection, orderBy string, decode DecodeFunc[T]) *Binder[T] {
	return &Binder[T]{store: st, collection: collection, orderBy: orderBy, decode: decode}
}

// Subscription is a cancellable live stream of full snapshots. Whoever
// starts the subscription owns it and must Close it (or cancel the parent
// context) to release the server-side watch.
type Subscription[T any] struct {
	snapshots chan []T
	cancel    context.CancelFunc
}

// Snapshots delivers the full ordered record list every time the remote
// collection changes. The channel closes when the subscription ends.
func (s *Subscription[T]) Snapshots() <-chan []T {
	return s.snapshots
}

// Close ends the subscription and closes the server-side watch.
func (s *Subscription[T]) Close() {
	s.cancel()
}

// Subscribe opens an independent live watch for records owned by ownerID.
// With no signed-in owner it opens no watch at all: a single empty snapshot
// is delivered and the stream ends, so consumers are never left in a
// loading state.
func (b *Binder[T]) Subscribe(ctx context.Context, ownerID string) (*Subscription[T], error) {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription[T]{snapshots: make(chan []T, 1), cancel: cancel}

	if ownerID == "" {
		sub.snapshots <- []T{}
		close(sub.snapshots)
		return sub, nil
	}

	w, err := b.store.Watch(ctx, store.Query{
		Collection: b.collection,
		OwnerID:    ownerID,
		OrderBy:    b.orderBy,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("unable to watch collection %q: %w", b.collection, err)
	}

	go func() {
		defer close(sub.snapshots)
		for docs := range w.Snapshots() {
			records := make([]T, 0, len(docs))
			for _, doc := range docs {
				record, err := b.decode(doc)
				if err != nil {
					log.Printf("skipping malformed document in %q: %v", b.collection, err)
					continue
				}
				records = append(records, record)
			}

			// Coalesce: a consumer that falls behind sees the latest
			// state, never a stale intermediate list.
			for {
				select {
				case sub.snapshots <- records:
				case <-ctx.Done():
					return
				default:
					select {
					case <-sub.snapshots:
					default:
					}
					continue
				}
				break
			}
		}
	}()

	return sub, nil
}

// Create writes a new record with the owner and server-side creation and
// update timestamps stamped in. The caller observes the effect through the
// subscription stream, not through this call's return.
func (b *Binder[T]) Create(ctx context.Context, ownerID string, fields map[string]any) (string, error) {
	if ownerID == "" {
		return "", &store.WriteError{Op: "create", Collection: b.collection, Err: fmt.Errorf("no signed-in user")}
	}

	data := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		data[k] = v
	}
	data[store.OwnerField] = ownerID
	data["createdAt"] = store.ServerTimestamp
	data["updatedAt"] = store.ServerTimestamp

	return b.store.Create(ctx, b.collection, data)
}

// Update merges the given fields into an existing record and refreshes its
// update timestamp. Whatever field set each writer sends wins wholesale;
// there is no compare-and-swap.
func (b *Binder[T]) Update(ctx context.Context, id string, fields map[string]any) error {
	data := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		data[k] = v
	}
	data["updatedAt"] = store.ServerTimestamp

	return b.store.Update(ctx, b.collection, id, data)
}

// Delete removes a record. Deleting an id that is already gone succeeds.
func (b *Binder[T]) Delete(ctx context.Context, id string) error {
	return b.store.Delete(ctx, b.collection, id)
}
