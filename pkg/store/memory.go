package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store with the same watch semantics as the
// Firestore implementation. It backs the test suite and the --demo mode.
type Memory struct {
	mu          sync.Mutex
	now         func() time.Time
	collections map[string]map[string]map[string]any
	watchers    map[*memWatcher]struct{}
}

type memWatcher struct {
	q     Query
	ctx   context.Context
	watch *Watch
}

func NewMemory() *Memory {
	return &Memory{
		now:         time.Now,
		collections: make(map[string]map[string]map[string]any),
		watchers:    make(map[*memWatcher]struct{}),
	}
}

func (m *Memory) Watch(ctx context.Context, q Query) (*Watch, error) {
	w := &memWatcher{q: q, ctx: ctx, watch: newWatch()}

	m.mu.Lock()
	m.watchers[w] = struct{}{}
	w.watch.send(ctx, m.snapshotLocked(q))
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		if _, ok := m.watchers[w]; ok {
			delete(m.watchers, w)
			close(w.watch.snapshots)
		}
		m.mu.Unlock()
	}()

	return w.watch, nil
}

func (m *Memory) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &WriteError{Op: "create", Collection: collection, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	docs, ok := m.collections[collection]
	if !ok {
		docs = make(map[string]map[string]any)
		m.collections[collection] = docs
	}

	id := uuid.NewString()
	docs[id] = m.applyLocked(make(map[string]any, len(fields)), fields)
	m.notifyLocked(collection)
	return id, nil
}

func (m *Memory) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return &WriteError{Op: "update", Collection: collection, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.collections[collection][id]
	if !ok {
		return &NotFoundError{Collection: collection, ID: id}
	}

	m.applyLocked(doc, fields)
	m.notifyLocked(collection)
	return nil
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return &WriteError{Op: "delete", Collection: collection, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.collections[collection][id]; !ok {
		return nil // deletes are idempotent
	}

	delete(m.collections[collection], id)
	m.notifyLocked(collection)
	return nil
}

// applyLocked merges fields into doc, resolving server-timestamp sentinels
// against the store clock.
func (m *Memory) applyLocked(doc, fields map[string]any) map[string]any {
	for k, v := range fields {
		if _, ok := v.(serverTimestamp); ok {
			v = m.now()
		}
		doc[k] = v
	}
	return doc
}

func (m *Memory) notifyLocked(collection string) {
	for w := range m.watchers {
		if w.q.Collection != collection {
			continue
		}
		w.watch.send(w.ctx, m.snapshotLocked(w.q))
	}
}

func (m *Memory) snapshotLocked(q Query) []Document {
	docs := make([]Document, 0)
	for id, data := range m.collections[q.Collection] {
		if owner, _ := data[OwnerField].(string); owner != q.OwnerID {
			continue
		}
		copied := make(map[string]any, len(data))
		for k, v := range data {
			copied[k] = v
		}
		docs = append(docs, Document{ID: id, Data: copied})
	}

	if q.OrderBy != "" {
		sort.Slice(docs, func(i, j int) bool {
			ti, _ := docs[i].Data[q.OrderBy].(time.Time)
			tj, _ := docs[j].Data[q.OrderBy].(time.Time)
			if ti.Equal(tj) {
				return docs[i].ID < docs[j].ID
			}
			return ti.After(tj)
		})
	}
	return docs
}
