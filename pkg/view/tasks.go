// Package view instantiates the live collection binder once per entity
// type and adds the type-specific mutation helpers the dashboard uses.
package view

import (
	"context"

	"github.com/sparkybotassistant-commits/meka-command-center/pkg/binder"
	"github.com/sparkybotassistant-commits/meka-command-center/pkg/model"
	"github.com/sparkybotassistant-commits/meka-command-center/pkg/store"
)

// Tasks is the live view over the user's tasks, newest first.
type Tasks struct {
	binder *binder.Binder[model.Task]
}

func NewTasks(st store.Store) *Tasks {
	return &Tasks{
		binder: binder.New(st, model.TasksCollection, "createdAt", model.DecodeTask),
	}
}

func (v *Tasks) Subscribe(ctx context.Context, ownerID string) (*binder.Subscription[model.Task], error) {
	return v.binder.Subscribe(ctx, ownerID)
}

// Add creates a pending task with the given title and category.
func (v *Tasks) Add(ctx context.Context, ownerID, title string, category model.Category) error {
	_, err := v.binder.Create(ctx, ownerID, map[string]any{
		"title":    title,
		"category": string(category),
		"status":   string(model.StatusPending),
	})
	return err
}

// ToggleStatus flips a task between completed and pending. The in-progress
// state is only reachable through Update.
func (v *Tasks) ToggleStatus(ctx context.Context, id string, current model.Status) error {
	next := model.StatusCompleted
	if current == model.StatusCompleted {
		next = model.StatusPending
	}
	return v.binder.Update(ctx, id, map[string]any{"status": string(next)})
}

func (v *Tasks) Update(ctx context.Context, id string, fields map[string]any) error {
	return v.binder.Update(ctx, id, fields)
}

func (v *Tasks) Delete(ctx context.Context, id string) error {
	return v.binder.Delete(ctx, id)
}
