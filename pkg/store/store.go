package store

import (
	"context"
	"fmt"
)

// OwnerField is the document field that scopes every record to the user
// that owns it. It is stamped at creation and never changed afterwards.
const OwnerField = "userId"

// serverTimestamp is an unexported marker type so callers can't forge
// additional sentinel values.
type serverTimestamp struct{}

// ServerTimestamp is a sentinel field value that each Store implementation
// replaces with the store's own notion of "now" when the write is applied.
var ServerTimestamp = serverTimestamp{}

// Document is a single record read from a collection. Data holds the raw
// decoded fields; callers are expected to validate shape before use.
type Document struct {
	ID   string
	Data map[string]any
}

// Query selects the documents a Watch delivers: all documents in Collection
// whose owner field equals OwnerID, optionally sorted newest-first by the
// OrderBy field (empty means no ordering requirement).
type Query struct {
	Collection string
	OwnerID    string
	OrderBy    string
}

// Watch is a live, server-driven view of a Query. Every time a matching
// document is added, changed or removed, a full snapshot of the matching
// set is delivered on Snapshots. The channel is closed when the context
// passed to Store.Watch is cancelled or the watch terminates.
type Watch struct {
	snapshots chan []Document
}

func newWatch() *Watch {
	// Buffer one snapshot so a slow consumer always ends up observing the
	// latest state rather than blocking the producer.
	return &Watch{snapshots: make(chan []Document, 1)}
}

// Snapshots returns the channel full snapshots are delivered on.
func (w *Watch) Snapshots() <-chan []Document {
	return w.snapshots
}

// send delivers a snapshot, coalescing with any undelivered predecessor.
func (w *Watch) send(ctx context.Context, docs []Document) bool {
	for {
		select {
		case w.snapshots <- docs:
			return true
		case <-ctx.Done():
			return false
		default:
		}
		// Channel full: drop the stale snapshot and retry with the new one.
		select {
		case <-w.snapshots:
		default:
		}
	}
}

// Store is the document-database boundary: owner-scoped live watches plus
// create, partial update and delete by id. The remote store is the single
// source of truth; no implementation caches across watches.
type Store interface {
	// Watch opens a live watch for q. Cancelling ctx closes the
	// server-side watch and the snapshot channel.
	Watch(ctx context.Context, q Query) (*Watch, error)

	// Create adds a new document and returns its generated id.
	Create(ctx context.Context, collection string, fields map[string]any) (string, error)

	// Update merges fields into an existing document. Updating a missing
	// document fails with *NotFoundError.
	Update(ctx context.Context, collection, id string, fields map[string]any) error

	// Delete removes a document. Deleting a missing id is not an error.
	Delete(ctx context.Context, collection, id string) error
}

// WriteError reports a failed create, update or delete (transport or
// permission). Writes are never retried automatically.
type WriteError struct {
	Op         string
	Collection string
	Err        error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s on collection %q failed: %v", e.Op, e.Collection, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// NotFoundError reports that the target of an update vanished server-side.
// Consumers treat it as a no-op outcome, not a fatal condition.
type NotFoundError struct {
	Collection string
	ID         string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("document %s/%s not found", e.Collection, e.ID)
}
