package store

import (
	"context"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	"golang.org/x/oauth2"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore is the production Store backed by Google Cloud Firestore.
// Reconnection after transient disconnects is handled by the Firestore
// client itself; a watch channel only closes when the watch context is
// cancelled or the stream terminates for good.
type Firestore struct {
	client *firestore.Client
}

// NewFirestore connects to the given Firestore project using the signed-in
// user's token source.
func NewFirestore(ctx context.Context, projectID string, ts oauth2.TokenSource) (*Firestore, error) {
	client, err := firestore.NewClient(ctx, projectID, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("unable to create Firestore client for project %q: %w", projectID, err)
	}
	return &Firestore{client: client}, nil
}

// Close releases the underlying client connection.
func (s *Firestore) Close() error {
	return s.client.Close()
}

func (s *Firestore) Watch(ctx context.Context, q Query) (*Watch, error) {
	query := s.client.Collection(q.Collection).Where(OwnerField, "==", q.OwnerID)
	if q.OrderBy != "" {
		query = query.OrderBy(q.OrderBy, firestore.Desc)
	}

	iter := query.Snapshots(ctx)
	w := newWatch()

	go func() {
		defer iter.Stop()
		defer close(w.snapshots)

		for {
			snap, err := iter.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled && ctx.Err() == nil {
					log.Printf("watch on %q terminated: %v", q.Collection, err)
				}
				return
			}

			docs := make([]Document, 0, snap.Size)
			docIter := snap.Documents
			for {
				d, err := docIter.Next()
				if err == iterator.Done {
					break
				}
				if err != nil {
					log.Printf("reading snapshot of %q: %v", q.Collection, err)
					break
				}
				docs = append(docs, Document{ID: d.Ref.ID, Data: d.Data()})
			}

			if !w.send(ctx, docs) {
				return
			}
		}
	}()

	return w, nil
}

func (s *Firestore) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	data := make(map[string]any, len(fields))
	for k, v := range fields {
		if _, ok := v.(serverTimestamp); ok {
			v = firestore.ServerTimestamp
		}
		data[k] = v
	}

	ref, _, err := s.client.Collection(collection).Add(ctx, data)
	if err != nil {
		return "", &WriteError{Op: "create", Collection: collection, Err: err}
	}
	return ref.ID, nil
}

func (s *Firestore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	updates := make([]firestore.Update, 0, len(fields))
	for k, v := range fields {
		if _, ok := v.(serverTimestamp); ok {
			v = firestore.ServerTimestamp
		}
		updates = append(updates, firestore.Update{Path: k, Value: v})
	}

	_, err := s.client.Collection(collection).Doc(id).Update(ctx, updates)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return &NotFoundError{Collection: collection, ID: id}
		}
		return &WriteError{Op: "update", Collection: collection, Err: err}
	}
	return nil
}

func (s *Firestore) Delete(ctx context.Context, collection, id string) error {
	// Firestore deletes are idempotent: removing a missing document
	// succeeds, matching the contract.
	_, err := s.client.Collection(collection).Doc(id).Delete(ctx)
	if err != nil {
		return &WriteError{Op: "delete", Collection: collection, Err: err}
	}
	return nil
}
