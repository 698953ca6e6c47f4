package bot

import (
	"errors"
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"task-manager/internal/client"
	"task-manager/internal/model"
	"task-manager/internal/service"
)

const (
	btnSkip             = "⏭️ Skip"
	btnConfirm          = "✅ Confirm"
	btnCancel           = "↩️ Cancel"
	btnCancelDialog     = "⏪ Cancel input"
	iconDefault         = "🟢"
	iconDue             = "⏳"
	iconOverdue         = "⚠️"
	iconDone            = "✔️"
	menuLabelNewTask    = "➕ New task"
	menuLabelTasks      = "📋 Tasks"
	menuLabelCategories = "📂 Categories"
	menuLabelHelp       = "ℹ️ Help"
)

const helpText = `<b>Account</b>
/register · create an account
/login · sign in
/logout · sign out
/me · who am I

<b>Tasks</b>
/tasks [status] · open tasks, or those with a status
/search text · find tasks by title or description
/newtask · add a task step by step
/done 12 · complete task 12
/status 12 in_progress · change the status
/delete 12 · delete task 12
/due · overdue and due in the next 3 days
/stats · statistics

<b>Categories</b>
/categories · categories with counts
/newcategory name · add a category
/delcategory 3 · delete an empty category

/cancel · abort the current input`

// dateLayouts are accepted for due dates typed into the chat.
var dateLayouts = []string{"2006-01-02 15:04", "2006-01-02", "02.01.2006 15:04", "02.01.2006"}

func escape(s string) string {
	return html.EscapeString(s)
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	clean = normalizeTitle(clean)
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func categoryLabel(name string) string {
	base := strings.TrimSpace(name)
	var icon string
	switch strings.ToLower(base) {
	case "study":
		icon = "🎓"
	case "work":
		icon = "💼"
	case "shopping":
		icon = "🛒"
	case "health":
		icon = "🩺"
	case "personal":
		icon = "🧩"
	case strings.ToLower(client.UncategorizedName):
		icon = "📁"
	default:
		icon = "🏷️"
	}
	return fmt.Sprintf("%s %s", icon, escape(normalizeTitle(base)))
}

func statusLabel(s model.Status) string {
	return strings.ReplaceAll(string(s), "_", " ")
}

func parseTaskID(data, prefix string) (uint, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(data, prefix))
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	if value == 0 {
		return 0, errors.New("id must be positive")
	}
	return uint(value), nil
}

// parseDate reads a due date typed in local time.
func parseDate(text string) (time.Time, error) {
	text = strings.TrimSpace(text)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, text, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", text)
}

type taskGroup struct {
	name  string
	tasks []model.Task
}

// groupByCategory groups tasks under their category names sorted
// alphabetically, with uncategorized tasks last. Tasks inside a group are
// ordered by due date.
func groupByCategory(tasks []model.Task, categories []model.Category) []taskGroup {
	byKey := make(map[string]*taskGroup)
	var keys []string
	for _, task := range tasks {
		name := client.CategoryName(categories, task.CategoryID)
		key := strings.ToLower(name)
		group, ok := byKey[key]
		if !ok {
			group = &taskGroup{name: name}
			byKey[key] = group
			keys = append(keys, key)
		}
		group.tasks = append(group.tasks, task)
	}

	uncategorized := strings.ToLower(client.UncategorizedName)
	sort.Slice(keys, func(i, j int) bool {
		if keys[i] == uncategorized {
			return false
		}
		if keys[j] == uncategorized {
			return true
		}
		return keys[i] < keys[j]
	})

	out := make([]taskGroup, 0, len(keys))
	for _, key := range keys {
		group := byKey[key]
		group.tasks = client.SortTasks(group.tasks, client.TaskSort{Field: "due_date", Direction: "asc"})
		out = append(out, *group)
	}
	return out
}

func formatTask(task model.Task, now time.Time) string {
	var b strings.Builder
	icon := iconDefault
	switch {
	case task.Status == model.StatusCompleted:
		icon = iconDone
	case task.DueDate != nil && task.DueDate.Before(now):
		icon = iconOverdue
	case task.DueDate != nil && task.DueDate.Sub(now) <= service.DueSoonWindow:
		icon = iconDue
	}
	b.WriteString(fmt.Sprintf("%s <b>#%d</b> %s", icon, task.ID, escape(normalizeTitle(task.Title))))
	if task.Priority == model.PriorityHigh {
		b.WriteString(" ❗")
	}
	b.WriteByte('\n')
	if task.Status == model.StatusInProgress {
		b.WriteString("   🔄 In progress\n")
	}
	if task.DueDate != nil {
		d := task.DueDate.In(now.Location())
		if task.Status != model.StatusCompleted && now.After(d) {
			b.WriteString(fmt.Sprintf("   ⏰ Due: %s, <b>overdue</b>\n", d.Format("2006-01-02 15:04")))
		} else {
			b.WriteString(fmt.Sprintf("   ⏰ Due: %s\n", d.Format("2006-01-02 15:04")))
		}
	}
	if task.Description != nil && strings.TrimSpace(*task.Description) != "" {
		b.WriteString(fmt.Sprintf("   📝 %s\n", escape(*task.Description)))
	}
	return b.String()
}

func formatStats(st service.Statistics) string {
	var b strings.Builder
	b.WriteString("📊 <b>Statistics</b>\n\n")
	b.WriteString(fmt.Sprintf("Total: %d\n", st.TotalTasks))
	b.WriteString(fmt.Sprintf("Pending: %d\n", st.PendingTasks))
	b.WriteString(fmt.Sprintf("In progress: %d\n", st.InProgressTasks))
	b.WriteString(fmt.Sprintf("Completed: %d\n", st.CompletedTasks))
	b.WriteString(fmt.Sprintf("High priority: %d\n", st.HighPriorityTasks))
	b.WriteString(fmt.Sprintf("%s Due soon: %d\n", iconDue, st.DueSoonTasks))
	b.WriteString(fmt.Sprintf("%s Overdue: %d\n", iconOverdue, st.OverdueTasks))
	b.WriteString(fmt.Sprintf("\nCompletion rate: <b>%.2f%%</b>", st.CompletionRate))
	return b.String()
}

func formatCategories(categories []client.CategoryCount) string {
	if len(categories) == 0 {
		return "You have no categories yet. Add one with /newcategory."
	}
	var b strings.Builder
	b.WriteString("📂 <b>Categories</b>\n\n")
	for _, c := range categories {
		b.WriteString(fmt.Sprintf("#%d %s · %d/%d done (%.0f%%)\n", c.ID, categoryLabel(c.Name), c.CompletedCount, c.TaskCount, c.CompletionRate))
	}
	return strings.TrimSpace(b.String())
}

// formatResult joins a failed result's message with its field errors.
func formatResult(res client.Result) string {
	if len(res.Errors) == 0 {
		return res.Message
	}
	fields := make([]string, 0, len(res.Errors))
	for field := range res.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	lines := []string{res.Message}
	for _, field := range fields {
		lines = append(lines, res.Errors[field]...)
	}
	return strings.Join(lines, "\n")
}

// apiMessage is the user-facing text of a failed API call.
func apiMessage(err error) string {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		return "The task service is unreachable. Try again later."
	}
	if apiErr.TasksCount > 0 {
		return fmt.Sprintf("%s (%d tasks still use it)", apiErr.Message, apiErr.TasksCount)
	}
	if apiErr.Message == "" {
		return fmt.Sprintf("Request failed with status %d.", apiErr.Status)
	}
	return formatResult(client.Result{Message: apiErr.Message, Errors: apiErr.Errors})
}

func confirmKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnConfirm),
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNewTask),
			tgbotapi.NewKeyboardButton(menuLabelTasks),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelCategories),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func skipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func priorityKeyboard() tgbotapi.ReplyKeyboardMarkup {
	row := make([]tgbotapi.KeyboardButton, 0, len(model.Priorities))
	for _, p := range model.Priorities {
		row = append(row, tgbotapi.NewKeyboardButton(string(p)))
	}
	kb := tgbotapi.NewReplyKeyboard(
		row,
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

// categoryKeyboard offers the user's categories two per row.
func categoryKeyboard(categories []model.Category) tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	for i := 0; i < len(categories); i += 2 {
		row := []tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButton(categories[i].Name)}
		if i+1 < len(categories) {
			row = append(row, tgbotapi.NewKeyboardButton(categories[i+1].Name))
		}
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(btnSkip),
		tgbotapi.NewKeyboardButton(btnCancelDialog),
	))
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func isSkipInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "-" || value == strings.ToLower(btnSkip) || value == "skip"
}

func isConfirmInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnConfirm) || value == "confirm" || value == "yes"
}

func isCancelInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancel) || value == "cancel" || value == "no"
}

func isCancelDialogInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancelDialog) || value == "cancel input"
}
