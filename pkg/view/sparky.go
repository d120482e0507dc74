package view

import (
	"context"

	"github.com/sparkybotassistant-commits/meka-command-center/pkg/binder"
	"github.com/sparkybotassistant-commits/meka-command-center/pkg/model"
	"github.com/sparkybotassistant-commits/meka-command-center/pkg/store"
)

// Sparky is the live view over assistant-reported tasks. Entries are
// normally created by the assistant, but the mutation path is open to any
// caller.
type Sparky struct {
	binder *binder.Binder[model.SparkyTask]
}

func NewSparky(st store.Store) *Sparky {
	return &Sparky{
		binder: binder.New(st, model.SparkyCollection, "createdAt", model.DecodeSparkyTask),
	}
}

func (v *Sparky) Subscribe(ctx context.Context, ownerID string) (*binder.Subscription[model.SparkyTask], error) {
	return v.binder.Subscribe(ctx, ownerID)
}

// Add creates a pending assistant task. An empty priority defaults to
// medium.
func (v *Sparky) Add(ctx context.Context, ownerID, description string, priority model.Priority) error {
	if priority == "" {
		priority = model.PriorityMedium
	}
	_, err := v.binder.Create(ctx, ownerID, map[string]any{
		"description": description,
		"priority":    string(priority),
		"status":      string(model.StatusPending),
	})
	return err
}

func (v *Sparky) Update(ctx context.Context, id string, fields map[string]any) error {
	return v.binder.Update(ctx, id, fields)
}

func (v *Sparky) Delete(ctx context.Context, id string) error {
	return v.binder.Delete(ctx, id)
}
