// Package ui is the terminal dashboard: four tabs (Tasks, Habits, Sparky,
// Analytics) over the live entity views. The bubbletea event loop is the
// single consumer of every subscription; mutations run as commands and the
// rendered lists only ever change when the next snapshot arrives.
package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/textinput"

	"github.com/sparkybotassistant-commits/meka-command-center/pkg/auth"
	"github.com/sparkybotassistant-commits/meka-command-center/pkg/binder"
	"github.com/sparkybotassistant-commits/meka-command-center/pkg/colors"
	"github.com/sparkybotassistant-commits/meka-command-center/pkg/model"
	"github.com/sparkybotassistant-commits/meka-command-center/pkg/store"
	"github.com/sparkybotassistant-commits/meka-command-center/pkg/view"
)

// Authenticator is the slice of the identity session the dashboard needs.
type Authenticator interface {
	Observe(ctx context.Context) <-chan auth.State
	SignIn(ctx context.Context) error
	SignOut(ctx context.Context) error
}

// StoreFactory defers store construction until a principal exists, since
// the Firestore client needs the signed-in user's token source.
type StoreFactory func(ctx context.Context) (store.Store, error)

type Tab int

const (
	TabTasks Tab = iota
	TabHabits
	TabSparky
	TabAnalytics
)

var tabNames = []string{"Tasks", "Habits", "Sparky", "Analytics"}

// Run starts the dashboard and blocks until the user quits.
func Run(ctx context.Context, session Authenticator, newStore StoreFactory, projectColors *colors.Cache) error {
	app := NewApp(ctx, session, newStore, projectColors)
	_, err := tea.NewProgram(app, tea.WithAltScreen()).Run()
	if saveErr := projectColors.Save(); saveErr != nil && err == nil {
		err = saveErr
	}
	return err
}

// App is the bubbletea model for the whole dashboard.
type App struct {
	ctx      context.Context
	session  Authenticator
	newStore StoreFactory
	colors   *colors.Cache

	authCh    <-chan auth.State
	authKnown bool
	principal *auth.Principal

	st         store.Store
	tasksView  *view.Tasks
	habitsView *view.Habits
	sparkyView *view.Sparky

	subCancel context.CancelFunc
	taskSub   *binder.Subscription[model.Task]
	habitSub  *binder.Subscription[model.Habit]
	sparkySub *binder.Subscription[model.SparkyTask]

	tasks  []model.Task
	habits []model.Habit
	sparky []model.SparkyTask

	tab      Tab
	cursor   int
	entering bool
	input    textinput.Model
	category model.Category

	width  int
	height int
	status string
}

func NewApp(ctx context.Context, session Authenticator, newStore StoreFactory, projectColors *colors.Cache) *App {
	input := textinput.New()
	input.Placeholder = "What needs to be done?"
	input.CharLimit = 200

	return &App{
		ctx:      ctx,
		session:  session,
		newStore: newStore,
		colors:   projectColors,
		input:    input,
		category: model.CategoryWant,
	}
}

type authMsg struct {
	state auth.State
	ok    bool
}

type storeMsg struct {
	st store.Store
}

type tasksMsg struct {
	tasks []model.Task
	ok    bool
}

type habitsMsg struct {
	habits []model.Habit
	ok     bool
}

type sparkyMsg struct {
	tasks []model.SparkyTask
	ok    bool
}

type errMsg struct {
	err error
}

func (a *App) Init() tea.Cmd {
	a.authCh = a.session.Observe(a.ctx)
	return tea.Batch(textinput.Blink, a.waitAuth())
}

func (a *App) waitAuth() tea.Cmd {
	ch := a.authCh
	return func() tea.Msg {
		state, ok := <-ch
		return authMsg{state: state, ok: ok}
	}
}

func waitTasks(sub *binder.Subscription[model.Task]) tea.Cmd {
	return func() tea.Msg {
		tasks, ok := <-sub.Snapshots()
		return tasksMsg{tasks: tasks, ok: ok}
	}
}

func waitHabits(sub *binder.Subscription[model.Habit]) tea.Cmd {
	return func() tea.Msg {
		habits, ok := <-sub.Snapshots()
		return habitsMsg{habits: habits, ok: ok}
	}
}

func waitSparky(sub *binder.Subscription[model.SparkyTask]) tea.Cmd {
	return func() tea.Msg {
		tasks, ok := <-sub.Snapshots()
		return sparkyMsg{tasks: tasks, ok: ok}
	}
}

// do runs a mutation off the event loop; failures land in the status line.
func (a *App) do(fn func(context.Context) error) tea.Cmd {
	ctx := a.ctx
	return func() tea.Msg {
		if err := fn(ctx); err != nil {
			return errMsg{err: err}
		}
		return nil
	}
}

func (a *App) openStore() tea.Cmd {
	ctx := a.ctx
	factory := a.newStore
	return func() tea.Msg {
		st, err := factory(ctx)
		if err != nil {
			return errMsg{err: err}
		}
		return storeMsg{st: st}
	}
}

// resubscribe tears down the previous watches and opens fresh ones for the
// current principal. The old watches are cancelled first so a stale watch
// can never deliver another user's data.
func (a *App) resubscribe() tea.Cmd {
	if a.subCancel != nil {
		a.subCancel()
		a.subCancel = nil
	}
	a.tasks, a.habits, a.sparky = nil, nil, nil
	a.cursor = 0

	if a.st == nil {
		return nil
	}

	owner := ""
	if a.principal != nil {
		owner = a.principal.ID
	}

	subCtx, cancel := context.WithCancel(a.ctx)
	a.subCancel = cancel

	var err error
	if a.taskSub, err = a.tasksView.Subscribe(subCtx, owner); err != nil {
		a.status = err.Error()
		return nil
	}
	if a.habitSub, err = a.habitsView.Subscribe(subCtx, owner); err != nil {
		a.status = err.Error()
		return nil
	}
	if a.sparkySub, err = a.sparkyView.Subscribe(subCtx, owner); err != nil {
		a.status = err.Error()
		return nil
	}

	return tea.Batch(waitTasks(a.taskSub), waitHabits(a.habitSub), waitSparky(a.sparkySub))
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		return a, nil

	case authMsg:
		if !msg.ok {
			return a, nil
		}
		a.authKnown = true
		previous := a.principal
		a.principal = msg.state.Principal

		cmds := []tea.Cmd{a.waitAuth()}
		switch {
		case a.principal == nil:
			if cmd := a.resubscribe(); cmd != nil {
				cmds = append(cmds, cmd)
			}
		case ownerID(previous) != ownerID(a.principal):
			// New or different user: rebuild the store with their
			// credentials.
			cmds = append(cmds, a.openStore())
		}
		return a, tea.Batch(cmds...)

	case storeMsg:
		if a.subCancel != nil {
			a.subCancel()
			a.subCancel = nil
		}
		if closer, ok := a.st.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				a.status = err.Error()
			}
		}
		a.st = msg.st
		a.tasksView = view.NewTasks(a.st)
		a.habitsView = view.NewHabits(a.st)
		a.sparkyView = view.NewSparky(a.st)
		return a, a.resubscribe()

	case tasksMsg:
		if !msg.ok {
			return a, nil
		}
		a.tasks = msg.tasks
		a.clampCursor()
		return a, waitTasks(a.taskSub)

	case habitsMsg:
		if !msg.ok {
			return a, nil
		}
		a.habits = msg.habits
		a.clampCursor()
		return a, waitHabits(a.habitSub)

	case sparkyMsg:
		if !msg.ok {
			return a, nil
		}
		a.sparky = msg.tasks
		a.clampCursor()
		return a, waitSparky(a.sparkySub)

	case errMsg:
		a.status = msg.err.Error()
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	if a.entering {
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	if a.entering {
		return a.handleFormKey(msg)
	}

	switch msg.String() {
	case "q":
		return a, tea.Quit

	case "s":
		if a.authKnown && a.principal == nil {
			return a, a.do(a.session.SignIn)
		}

	case "ctrl+l":
		if a.principal != nil {
			return a, a.do(a.session.SignOut)
		}

	case "tab", "right":
		a.tab = (a.tab + 1) % Tab(len(tabNames))
		a.cursor = 0
	case "shift+tab", "left":
		a.tab = (a.tab + Tab(len(tabNames)) - 1) % Tab(len(tabNames))
		a.cursor = 0
	case "1", "2", "3", "4":
		a.tab = Tab(int(msg.String()[0] - '1'))
		a.cursor = 0

	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
	case "down", "j":
		if a.cursor < a.listLen()-1 {
			a.cursor++
		}

	case "a":
		if a.principal == nil || a.st == nil {
			break
		}
		switch a.tab {
		case TabTasks:
			a.startEntry("What needs to be done?")
		case TabHabits:
			a.startEntry("New habit (e.g. Gym, Read, Meditate)")
		}

	case " ", "enter":
		return a, a.activate()

	case "d", "x":
		return a, a.deleteSelected()
	}

	return a, nil
}

func (a *App) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.entering = false
		a.input.Blur()
		a.input.SetValue("")
		return a, nil

	case "ctrl+t":
		if a.tab == TabTasks {
			if a.category == model.CategoryWant {
				a.category = model.CategoryHave
			} else {
				a.category = model.CategoryWant
			}
		}
		return a, nil

	case "enter":
		text := a.input.Value()
		a.entering = false
		a.input.Blur()
		a.input.SetValue("")
		if text == "" {
			return a, nil
		}

		owner := ownerID(a.principal)
		switch a.tab {
		case TabTasks:
			category := a.category
			return a, a.do(func(ctx context.Context) error {
				return a.tasksView.Add(ctx, owner, text, category)
			})
		case TabHabits:
			return a, a.do(func(ctx context.Context) error {
				return a.habitsView.Add(ctx, owner, text)
			})
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) startEntry(placeholder string) {
	a.entering = true
	a.input.Placeholder = placeholder
	a.input.Focus()
}

// activate is the per-item primary action: toggle a task, complete a habit.
func (a *App) activate() tea.Cmd {
	switch a.tab {
	case TabTasks:
		if a.cursor >= len(a.tasks) {
			return nil
		}
		task := a.tasks[a.cursor]
		return a.do(func(ctx context.Context) error {
			return a.tasksView.ToggleStatus(ctx, task.ID, task.Status)
		})

	case TabHabits:
		if a.cursor >= len(a.habits) {
			return nil
		}
		habit := a.habits[a.cursor]
		return a.do(func(ctx context.Context) error {
			return a.habitsView.Complete(ctx, habit.ID, habit.Streak)
		})
	}
	return nil
}

func (a *App) deleteSelected() tea.Cmd {
	switch a.tab {
	case TabTasks:
		if a.cursor >= len(a.tasks) {
			return nil
		}
		id := a.tasks[a.cursor].ID
		return a.do(func(ctx context.Context) error {
			return a.tasksView.Delete(ctx, id)
		})

	case TabHabits:
		if a.cursor >= len(a.habits) {
			return nil
		}
		id := a.habits[a.cursor].ID
		return a.do(func(ctx context.Context) error {
			return a.habitsView.Delete(ctx, id)
		})
	}
	return nil
}

func (a *App) listLen() int {
	switch a.tab {
	case TabTasks:
		return len(a.tasks)
	case TabHabits:
		return len(a.habits)
	case TabSparky:
		return len(a.sparky)
	}
	return 0
}

func (a *App) clampCursor() {
	if n := a.listLen(); a.cursor >= n {
		a.cursor = n - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
}

func ownerID(p *auth.Principal) string {
	if p == nil {
		return ""
	}
	return p.ID
}
