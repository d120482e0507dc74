// Package analytics derives dashboard numbers from already-loaded lists.
// Everything here is a pure function recomputed on render; nothing is
// persisted and no queries are issued.
package analytics

import (
	"math"

	"github.com/sparkybotassistant-commits/meka-command-center/pkg/model"
)

// TaskStats summarizes a loaded task list.
type TaskStats struct {
	Total     int
	Completed int
	Want      int
	Have      int

	// CompletionPercentage is round(100*Completed/Total), 0 for an empty
	// list.
	CompletionPercentage int
}

// Summarize computes stats over the given task list.
func Summarize(tasks []model.Task) TaskStats {
	stats := TaskStats{Total: len(tasks)}

	for _, t := range tasks {
		if t.Status == model.StatusCompleted {
			stats.Completed++
		}
		switch t.Category {
		case model.CategoryWant:
			stats.Want++
		case model.CategoryHave:
			stats.Have++
		}
	}

	if stats.Total > 0 {
		stats.CompletionPercentage = int(math.Round(100 * float64(stats.Completed) / float64(stats.Total)))
	}
	return stats
}

// ByCategory filters tasks to one category, preserving order.
func ByCategory(tasks []model.Task, category model.Category) []model.Task {
	filtered := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Category == category {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

// LongestStreak returns the largest streak across habits, 0 when there are
// none.
func LongestStreak(habits []model.Habit) int {
	longest := 0
	for _, h := range habits {
		if h.Streak > longest {
			longest = h.Streak
		}
	}
	return longest
}
