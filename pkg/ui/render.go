package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sparkybotassistant-commits/meka-command-center/pkg/analytics"
	"github.com/sparkybotassistant-commits/meka-command-center/pkg/model"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("27")).
			Padding(0, 2)
	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Padding(0, 2)

	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230"))
	doneStyle     = lipgloss.NewStyle().Strikethrough(true).Foreground(lipgloss.Color("242"))

	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))

	statusColors = map[model.Status]string{
		model.StatusPending:    "245",
		model.StatusInProgress: "39",
		model.StatusCompleted:  "42",
		model.StatusError:      "203",
	}
	priorityColors = map[model.Priority]string{
		model.PriorityLow:    "42",
		model.PriorityMedium: "220",
		model.PriorityHigh:   "203",
	}
)

func badge(text, color string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("[" + text + "]")
}

func (a *App) View() string {
	switch {
	case !a.authKnown:
		return "\n  Loading session...\n"
	case a.principal == nil:
		return a.signInView()
	}

	var b strings.Builder
	b.WriteString("  " + titleStyle.Render("MEKA Command Center"))
	b.WriteString(dimStyle.Render("  |  " + a.principal.DisplayName))
	b.WriteString("\n\n")
	b.WriteString("  " + a.tabBar() + "\n\n")

	switch a.tab {
	case TabTasks:
		b.WriteString(a.tasksTab())
	case TabHabits:
		b.WriteString(a.habitsTab())
	case TabSparky:
		b.WriteString(a.sparkyTab())
	case TabAnalytics:
		b.WriteString(a.analyticsTab())
	}

	if a.entering {
		b.WriteString("\n  " + a.input.View())
		if a.tab == TabTasks {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  (%s, ctrl+t to switch)", categoryLabel(a.category))))
		}
		b.WriteString("\n")
	}

	if a.status != "" {
		b.WriteString("\n  " + errorStyle.Render(a.status) + "\n")
	}

	b.WriteString("\n  " + dimStyle.Render(a.helpLine()) + "\n")
	return b.String()
}

func (a *App) signInView() string {
	var b strings.Builder
	b.WriteString("\n  " + titleStyle.Render("MEKA Command Center") + "\n")
	b.WriteString(dimStyle.Render("  Your personal task and project management dashboard") + "\n\n")
	b.WriteString("  Press " + selectedStyle.Render("s") + " to sign in with Google, q to quit.\n")
	if a.status != "" {
		b.WriteString("\n  " + errorStyle.Render(a.status) + "\n")
	}
	return b.String()
}

func (a *App) tabBar() string {
	rendered := make([]string, len(tabNames))
	for i, name := range tabNames {
		if Tab(i) == a.tab {
			rendered[i] = activeTabStyle.Render(name)
		} else {
			rendered[i] = inactiveTabStyle.Render(name)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (a *App) tasksTab() string {
	var b strings.Builder

	sections := []struct {
		heading string
		color   string
		items   []model.Task
	}{
		{"Want to Do", "39", analytics.ByCategory(a.tasks, model.CategoryWant)},
		{"Have to Do", "208", analytics.ByCategory(a.tasks, model.CategoryHave)},
	}

	for _, section := range sections {
		heading := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(section.color)).Render(section.heading)
		b.WriteString("  " + heading + "\n")
		if len(section.items) == 0 {
			b.WriteString(dimStyle.Render("    No tasks yet. Press a to add one.") + "\n")
		}
		for _, task := range section.items {
			b.WriteString(a.taskLine(task) + "\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (a *App) taskLine(task model.Task) string {
	check := "[ ]"
	if task.Status == model.StatusCompleted {
		check = "[x]"
	}

	title := task.Title
	if task.Status == model.StatusCompleted {
		title = doneStyle.Render(title)
	}

	line := fmt.Sprintf("    %s %s", check, title)
	if task.Status == model.StatusInProgress {
		line += " " + badge("in-progress", statusColors[model.StatusInProgress])
	}
	if task.Project != "" {
		line += " " + badge(task.Project, a.colors.Color(task.Project))
	}
	if task.DueDate != nil {
		line += " " + dimStyle.Render("due "+task.DueDate.Format("Jan 2"))
	}

	if a.isSelected(task.ID) {
		return selectedStyle.Render("  >") + line[3:]
	}
	return line
}

func (a *App) habitsTab() string {
	if len(a.habits) == 0 {
		return dimStyle.Render("  No habits yet. Press a to add one.") + "\n"
	}

	var b strings.Builder
	for i, habit := range a.habits {
		marker := "  "
		if a.tab == TabHabits && i == a.cursor {
			marker = selectedStyle.Render("> ")
		}
		streak := dimStyle.Render(fmt.Sprintf("streak %d", habit.Streak))
		last := ""
		if habit.LastCompleted != nil {
			last = dimStyle.Render("  last " + habit.LastCompleted.Format("Jan 2"))
		}
		b.WriteString(fmt.Sprintf("  %s%s  %s%s\n", marker, habit.Name, streak, last))
	}
	b.WriteString("\n" + dimStyle.Render("  enter marks the selected habit complete") + "\n")
	return b.String()
}

func (a *App) sparkyTab() string {
	if len(a.sparky) == 0 {
		return dimStyle.Render("  No active Sparky tasks. New ones show up here as the assistant works.") + "\n"
	}

	var b strings.Builder
	for i, task := range a.sparky {
		marker := "  "
		if a.tab == TabSparky && i == a.cursor {
			marker = selectedStyle.Render("> ")
		}
		b.WriteString(fmt.Sprintf("  %s%s %s  %s\n",
			marker,
			badge(string(task.Status), statusColors[task.Status]),
			badge(string(task.Priority), priorityColors[task.Priority]),
			task.Description))
		if task.Notes != "" {
			b.WriteString(dimStyle.Render("      "+task.Notes) + "\n")
		}
	}
	return b.String()
}

func (a *App) analyticsTab() string {
	stats := analytics.Summarize(a.tasks)

	var b strings.Builder
	b.WriteString(fmt.Sprintf("  Total tasks      %d\n", stats.Total))
	b.WriteString(fmt.Sprintf("  Completed        %d\n", stats.Completed))
	b.WriteString(fmt.Sprintf("  Want / Have      %d / %d\n", stats.Want, stats.Have))
	b.WriteString(fmt.Sprintf("  Active habits    %d\n", len(a.habits)))
	if longest := analytics.LongestStreak(a.habits); longest > 0 {
		b.WriteString(fmt.Sprintf("  Longest streak   %d\n", longest))
	}

	b.WriteString("\n  Completion rate\n")
	b.WriteString("  " + progressBar(stats.CompletionPercentage, 40) + fmt.Sprintf("  %d%%\n", stats.CompletionPercentage))
	return b.String()
}

func progressBar(percent, width int) string {
	filled := percent * width / 100
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Render(bar)
}

func (a *App) isSelected(taskID string) bool {
	if a.tab != TabTasks || a.cursor >= len(a.tasks) {
		return false
	}
	return a.tasks[a.cursor].ID == taskID
}

func (a *App) helpLine() string {
	switch a.tab {
	case TabTasks:
		return "a add  space toggle  d delete  tab switch  ctrl+l sign out  q quit"
	case TabHabits:
		return "a add  enter complete  d delete  tab switch  ctrl+l sign out  q quit"
	case TabSparky:
		return "tab switch  ctrl+l sign out  q quit"
	}
	return "tab switch  ctrl+l sign out  q quit"
}

func categoryLabel(c model.Category) string {
	if c == model.CategoryHave {
		return "Have to Do"
	}
	return "Want to Do"
}
