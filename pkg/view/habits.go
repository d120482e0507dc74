package view

import (
	"context"

	"github.com/sparkybotassistant-commits/meka-command-center/pkg/binder"
	"github.com/sparkybotassistant-commits/meka-command-center/pkg/model"
	"github.com/sparkybotassistant-commits/meka-command-center/pkg/store"
)

// Habits is the live view over the user's habits. The collection has no
// ordering requirement.
type Habits struct {
	binder *binder.Binder[model.Habit]
}

func NewHabits(st store.Store) *Habits {
	return &Habits{
		binder: binder.New(st, model.HabitsCollection, "", model.DecodeHabit),
	}
}

func (v *Habits) Subscribe(ctx context.Context, ownerID string) (*binder.Subscription[model.Habit], error) {
	return v.binder.Subscribe(ctx, ownerID)
}

// Add creates a habit with a zero streak.
func (v *Habits) Add(ctx context.Context, ownerID, name string) error {
	_, err := v.binder.Create(ctx, ownerID, map[string]any{
		"name":   name,
		"streak": 0,
	})
	return err
}

// Complete records a completion: streak becomes currentStreak+1 and
// lastCompleted is stamped with server time. The caller supplies the
// streak it last observed; this is a read-then-write, not a server-side
// increment, so two completions racing from the same stale read both land
// on the same next value and one increment is lost.
func (v *Habits) Complete(ctx context.Context, id string, currentStreak int) error {
	return v.binder.Update(ctx, id, map[string]any{
		"streak":        currentStreak + 1,
		"lastCompleted": store.ServerTimestamp,
	})
}

func (v *Habits) Delete(ctx context.Context, id string) error {
	return v.binder.Delete(ctx, id)
}
