package binder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sparkybotassistant-commits/meka-command-center/pkg/model"
	"github.com/sparkybotassistant-commits/meka-command-center/pkg/store"
)

func newTaskBinder(m *store.Memory) *Binder[model.Task] {
	return New(m, model.TasksCollection, "createdAt", model.DecodeTask)
}

func awaitTasks(t *testing.T, sub *Subscription[model.Task], ok func([]model.Task) bool) []model.Task {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case tasks, open := <-sub.Snapshots():
			if !open {
				t.Fatal("subscription closed before expected snapshot")
			}
			if ok(tasks) {
				return tasks
			}
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
		}
	}
}

func TestSubscribeWithoutOwner(t *testing.T) {
	b := newTaskBinder(store.NewMemory())

	sub, err := b.Subscribe(context.Background(), "")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Close()

	tasks, open := <-sub.Snapshots()
	if !open {
		t.Fatal("Expected one empty snapshot before the stream closes")
	}
	if len(tasks) != 0 {
		t.Errorf("Expected empty snapshot, got %d tasks", len(tasks))
	}

	if _, open := <-sub.Snapshots(); open {
		t.Error("Expected stream to close after the empty snapshot")
	}
}

func TestCreateAppearsInNextSnapshot(t *testing.T) {
	ctx := context.Background()
	b := newTaskBinder(store.NewMemory())

	sub, err := b.Subscribe(ctx, "alice")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Close()

	before := time.Now()
	id, err := b.Create(ctx, "alice", map[string]any{
		"title":    "Buy milk",
		"category": "want",
		"status":   "pending",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	tasks := awaitTasks(t, sub, func(tasks []model.Task) bool { return len(tasks) == 1 })
	task := tasks[0]
	if task.ID != id {
		t.Errorf("Expected id %s, got %s", id, task.ID)
	}
	if task.Title != "Buy milk" || task.Category != model.CategoryWant || task.Status != model.StatusPending {
		t.Errorf("Unexpected task fields: %+v", task)
	}
	if task.CreatedAt.After(task.UpdatedAt) {
		t.Errorf("Expected createdAt <= updatedAt, got %v > %v", task.CreatedAt, task.UpdatedAt)
	}
	if task.CreatedAt.Before(before.Add(-time.Second)) {
		t.Errorf("createdAt %v is earlier than the call", task.CreatedAt)
	}
}

func TestCreateWithoutOwnerFails(t *testing.T) {
	b := newTaskBinder(store.NewMemory())

	_, err := b.Create(context.Background(), "", map[string]any{"title": "x"})
	var writeErr *store.WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("Expected WriteError, got %v", err)
	}
}

func TestSnapshotsNeverLeakOtherOwners(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	b := newTaskBinder(m)

	for _, owner := range []string{"alice", "bob", "alice"} {
		if _, err := b.Create(ctx, owner, map[string]any{
			"title":    "task for " + owner,
			"category": "have",
			"status":   "pending",
		}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	sub, err := b.Subscribe(ctx, "alice")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Close()

	tasks := awaitTasks(t, sub, func(tasks []model.Task) bool { return len(tasks) == 2 })
	for _, task := range tasks {
		if task.Title != "task for alice" {
			t.Errorf("Snapshot leaked a foreign record: %+v", task)
		}
	}
}

func TestMalformedDocumentsAreSkipped(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	b := newTaskBinder(m)

	if _, err := b.Create(ctx, "alice", map[string]any{
		"title":    "well formed",
		"category": "want",
		"status":   "pending",
	}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	// Bypass the binder to plant a document that doesn't conform.
	if _, err := m.Create(ctx, model.TasksCollection, map[string]any{
		store.OwnerField: "alice",
		"category":       "want",
	}); err != nil {
		t.Fatalf("raw Create failed: %v", err)
	}

	sub, err := b.Subscribe(ctx, "alice")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Close()

	tasks := awaitTasks(t, sub, func(tasks []model.Task) bool { return len(tasks) > 0 })
	if len(tasks) != 1 {
		t.Fatalf("Expected the malformed document to be skipped, got %d tasks", len(tasks))
	}
	if tasks[0].Title != "well formed" {
		t.Errorf("Expected the conforming task, got %+v", tasks[0])
	}
}

func TestPartialUpdatePreservesOtherFields(t *testing.T) {
	ctx := context.Background()
	b := newTaskBinder(store.NewMemory())

	sub, err := b.Subscribe(ctx, "alice")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Close()

	id, err := b.Create(ctx, "alice", map[string]any{
		"title":    "Water plants",
		"category": "have",
		"status":   "pending",
		"project":  "home",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	awaitTasks(t, sub, func(tasks []model.Task) bool { return len(tasks) == 1 })

	if err := b.Update(ctx, id, map[string]any{"status": string(model.StatusCompleted)}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	tasks := awaitTasks(t, sub, func(tasks []model.Task) bool {
		return len(tasks) == 1 && tasks[0].Status == model.StatusCompleted
	})
	firstUpdate := tasks[0].UpdatedAt

	if err := b.Update(ctx, id, map[string]any{"status": string(model.StatusPending)}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	tasks = awaitTasks(t, sub, func(tasks []model.Task) bool {
		return len(tasks) == 1 && tasks[0].Status == model.StatusPending
	})

	task := tasks[0]
	if task.Title != "Water plants" || task.Category != model.CategoryHave || task.Project != "home" {
		t.Errorf("Partial update clobbered unrelated fields: %+v", task)
	}
	if task.UpdatedAt.Before(firstUpdate) {
		t.Errorf("updatedAt should reflect the later call: %v < %v", task.UpdatedAt, firstUpdate)
	}
}

func TestUpdateMissingRecord(t *testing.T) {
	b := newTaskBinder(store.NewMemory())

	err := b.Update(context.Background(), "gone", map[string]any{"status": "completed"})
	var notFound *store.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected NotFoundError, got %v", err)
	}
}

func TestDeleteRemovesRecordFromStream(t *testing.T) {
	ctx := context.Background()
	b := newTaskBinder(store.NewMemory())

	sub, err := b.Subscribe(ctx, "alice")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Close()

	id, err := b.Create(ctx, "alice", map[string]any{
		"title":    "Ephemeral",
		"category": "want",
		"status":   "pending",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	awaitTasks(t, sub, func(tasks []model.Task) bool { return len(tasks) == 1 })

	if err := b.Delete(ctx, id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	awaitTasks(t, sub, func(tasks []model.Task) bool { return len(tasks) == 0 })

	// Deleting again is not an error.
	if err := b.Delete(ctx, id); err != nil {
		t.Errorf("Second delete should succeed, got %v", err)
	}
}
