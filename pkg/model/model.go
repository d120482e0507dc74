package model

import (
	"fmt"
	"time"

	"github.com/sparkybotassistant-commits/meka-command-center/pkg/store"
)

// Collection names in the remote store.
const (
	TasksCollection  = "tasks"
	HabitsCollection = "habits"
	SparkyCollection = "sparkyTasks"
)

// Category splits tasks into things the user wants to do and things they
// have to do.
type Category string

const (
	CategoryWant Category = "want"
	CategoryHave Category = "have"
)

// Status is the lifecycle state of a task. StatusError is only meaningful
// for Sparky tasks, where the assistant reports failures.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Priority of an assistant-reported task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Task is a user-created task. Owned by exactly one user; the owner field
// is stamped at creation and never mutated.
type Task struct {
	ID        string
	Title     string
	Category  Category
	Status    Status
	Project   string
	DueDate   *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Habit is a recurring practice with a streak counter. The streak only
// ever grows; there is no reset mechanism.
type Habit struct {
	ID            string
	Name          string
	Streak        int
	LastCompleted *time.Time
	CreatedAt     time.Time
}

// SparkyTask is a status entry written by the assistant. The update path is
// open to any caller, but creation normally happens on the assistant side.
type SparkyTask struct {
	ID          string
	Description string
	Status      Status
	Priority    Priority
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DecodeTask validates and decodes a raw document from the tasks
// collection. Documents missing required fields or carrying unknown enum
// values are rejected rather than guessed at.
func DecodeTask(doc store.Document) (Task, error) {
	t := Task{ID: doc.ID}

	title, err := requiredString(doc, "title")
	if err != nil {
		return Task{}, err
	}
	t.Title = title

	category, err := requiredString(doc, "category")
	if err != nil {
		return Task{}, err
	}
	switch Category(category) {
	case CategoryWant, CategoryHave:
		t.Category = Category(category)
	default:
		return Task{}, fmt.Errorf("document %s: unknown category %q", doc.ID, category)
	}

	status, err := requiredString(doc, "status")
	if err != nil {
		return Task{}, err
	}
	switch Status(status) {
	case StatusPending, StatusInProgress, StatusCompleted:
		t.Status = Status(status)
	default:
		return Task{}, fmt.Errorf("document %s: unknown task status %q", doc.ID, status)
	}

	t.Project, _ = doc.Data["project"].(string)
	t.DueDate = optionalTime(doc, "dueDate")
	t.CreatedAt, err = requiredTime(doc, "createdAt")
	if err != nil {
		return Task{}, err
	}
	t.UpdatedAt, err = requiredTime(doc, "updatedAt")
	if err != nil {
		return Task{}, err
	}
	return t, nil
}

// DecodeHabit validates and decodes a raw document from the habits
// collection.
func DecodeHabit(doc store.Document) (Habit, error) {
	h := Habit{ID: doc.ID}

	name, err := requiredString(doc, "name")
	if err != nil {
		return Habit{}, err
	}
	h.Name = name

	streak, ok := intField(doc.Data["streak"])
	if !ok || streak < 0 {
		return Habit{}, fmt.Errorf("document %s: missing or invalid streak %v", doc.ID, doc.Data["streak"])
	}
	h.Streak = streak

	h.LastCompleted = optionalTime(doc, "lastCompleted")
	h.CreatedAt, err = requiredTime(doc, "createdAt")
	if err != nil {
		return Habit{}, err
	}
	return h, nil
}

// DecodeSparkyTask validates and decodes a raw document from the
// sparkyTasks collection.
func DecodeSparkyTask(doc store.Document) (SparkyTask, error) {
	s := SparkyTask{ID: doc.ID}

	description, err := requiredString(doc, "description")
	if err != nil {
		return SparkyTask{}, err
	}
	s.Description = description

	status, err := requiredString(doc, "status")
	if err != nil {
		return SparkyTask{}, err
	}
	switch Status(status) {
	case StatusPending, StatusInProgress, StatusCompleted, StatusError:
		s.Status = Status(status)
	default:
		return SparkyTask{}, fmt.Errorf("document %s: unknown sparky status %q", doc.ID, status)
	}

	priority, err := requiredString(doc, "priority")
	if err != nil {
		return SparkyTask{}, err
	}
	switch Priority(priority) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		s.Priority = Priority(priority)
	default:
		return SparkyTask{}, fmt.Errorf("document %s: unknown priority %q", doc.ID, priority)
	}

	s.Notes, _ = doc.Data["notes"].(string)
	s.CreatedAt, err = requiredTime(doc, "createdAt")
	if err != nil {
		return SparkyTask{}, err
	}
	s.UpdatedAt, err = requiredTime(doc, "updatedAt")
	if err != nil {
		return SparkyTask{}, err
	}
	return s, nil
}

func requiredString(doc store.Document, key string) (string, error) {
	s, ok := doc.Data[key].(string)
	if !ok || s == "" {
		return "", fmt.Errorf("document %s: missing or invalid %s", doc.ID, key)
	}
	return s, nil
}

func requiredTime(doc store.Document, key string) (time.Time, error) {
	t, ok := doc.Data[key].(time.Time)
	if !ok {
		return time.Time{}, fmt.Errorf("document %s: missing or invalid %s", doc.ID, key)
	}
	return t, nil
}

func optionalTime(doc store.Document, key string) *time.Time {
	if t, ok := doc.Data[key].(time.Time); ok {
		return &t
	}
	return nil
}

// intField accepts the integer encodings different store clients produce.
func intField(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
