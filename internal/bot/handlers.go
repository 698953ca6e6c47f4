package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"task-manager/internal/client"
	"task-manager/internal/model"
)

const (
	cbCompletePrefix = "complete:"
	cbDeletePrefix   = "delete:"
)

type confirmationAction int

const (
	actionComplete confirmationAction = iota
	actionDelete
	actionDeleteCategory
)

type confirmationRequest struct {
	id     uint
	action confirmationAction
}

// commandsNeedingLogin are rejected with a hint until the chat has a token.
var commandsNeedingLogin = map[string]bool{
	"tasks": true, "search": true, "newtask": true, "done": true, "status": true,
	"delete": true, "categories": true, "newcategory": true, "delcategory": true,
	"stats": true, "due": true, "logout": true, "me": true,
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	chatID := msg.Chat.ID

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(chatID)
		b.clearConfirmation(chatID)
		return b.sendText(chatID, "⏪ Input cancelled.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		log.Printf("[info] command from %d: /%s", msg.From.ID, msg.Command())
		return b.handleCommand(ctx, msg)
	}

	if pending, ok := b.getConfirmation(chatID); ok {
		return b.handleConfirmationResponse(ctx, msg, pending)
	}

	if state := b.getConversation(chatID); state != nil {
		return b.handleConversation(ctx, msg, state)
	}

	return b.sendText(chatID, "I did not get that. Try /newtask or /help.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())

	if commandsNeedingLogin[cmd] && !b.chat(chatID).session.IsAuthenticated() {
		return b.sendText(chatID, "Please /login or /register first.")
	}

	switch cmd {
	case "start":
		return b.handleStart(msg)
	case "help":
		return b.handleHelp(chatID)
	case "register":
		return b.startConversation(chatID, flowRegister)
	case "login":
		return b.startConversation(chatID, flowLogin)
	case "logout":
		return b.handleLogout(ctx, chatID)
	case "me":
		return b.handleMe(ctx, chatID)
	case "tasks":
		return b.handleListTasks(ctx, chatID, args)
	case "search":
		return b.handleSearch(ctx, chatID, args)
	case "due":
		return b.handleDue(ctx, chatID)
	case "newtask":
		return b.startConversation(chatID, flowNewTask)
	case "done":
		return b.handleDone(ctx, chatID, args)
	case "status":
		return b.handleStatus(ctx, chatID, args)
	case "delete":
		return b.handleDelete(ctx, chatID, args)
	case "categories":
		return b.handleCategories(ctx, chatID)
	case "newcategory":
		return b.handleNewCategory(ctx, chatID, args)
	case "delcategory":
		return b.handleDeleteCategory(ctx, chatID, args)
	case "stats":
		return b.handleStats(ctx, chatID)
	case "cancel":
		b.clearConversation(chatID)
		b.clearConfirmation(chatID)
		return b.sendText(chatID, "⏪ Input cancelled.")
	default:
		return b.sendText(chatID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}
	text := fmt.Sprintf("👋 Hi, %s!\n<b>I keep your tasks in sync with your task manager account.</b>\n\n", escape(name))
	if b.chat(msg.Chat.ID).session.IsAuthenticated() {
		text += "You are signed in. Try /tasks or /newtask."
	} else {
		text += "Sign in with /login or create an account with /register."
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(chatID int64) error {
	return b.sendText(chatID, helpText)
}

func (b *Bot) handleLogout(ctx context.Context, chatID int64) error {
	cs := b.chat(chatID)
	res := cs.session.Logout(ctx)
	cs.tasks.Reset()
	cs.categories.Reset()
	return b.sendText(chatID, "👋 "+escape(res.Message))
}

func (b *Bot) handleMe(ctx context.Context, chatID int64) error {
	cs := b.chat(chatID)
	if res := cs.session.FetchUser(ctx); !res.Success {
		return b.sendText(chatID, "⚠️ "+escape(res.Message))
	}
	user := cs.session.User()
	return b.sendText(chatID, fmt.Sprintf("👤 <b>%s</b>\n%s", escape(user.Name), escape(user.Email)))
}

// refresh reloads the chat's cached tasks and categories.
func (b *Bot) refresh(ctx context.Context, cs *chatSession) error {
	if err := cs.categories.Fetch(ctx); err != nil {
		return err
	}
	return cs.tasks.Fetch(ctx)
}

func (b *Bot) handleListTasks(ctx context.Context, chatID int64, args string) error {
	cs := b.chat(chatID)
	if err := b.refresh(ctx, cs); err != nil {
		return b.reportError(chatID, cs, err)
	}

	filters := client.TaskFilters{}
	if args != "" {
		status := model.Status(strings.ToLower(args))
		if !status.Valid() {
			return b.sendText(chatID, "Status must be one of: pending, in_progress, completed.")
		}
		filters.Status = status
	}
	tasks := client.FilterTasks(cs.tasks.Tasks(), filters)
	if args == "" {
		tasks = openTasks(tasks)
	}
	return b.sendTaskList(chatID, tasks, cs.categories.Categories(), "📋 <b>Tasks</b>")
}

func (b *Bot) handleSearch(ctx context.Context, chatID int64, term string) error {
	if term == "" {
		return b.sendText(chatID, "Usage: /search milk")
	}
	cs := b.chat(chatID)
	if err := b.refresh(ctx, cs); err != nil {
		return b.reportError(chatID, cs, err)
	}
	tasks := client.FilterTasks(cs.tasks.Tasks(), client.TaskFilters{Search: term})
	return b.sendTaskList(chatID, tasks, cs.categories.Categories(), fmt.Sprintf("🔎 <b>Matching “%s”</b>", escape(term)))
}

func (b *Bot) handleDue(ctx context.Context, chatID int64) error {
	cs := b.chat(chatID)
	if err := b.refresh(ctx, cs); err != nil {
		return b.reportError(chatID, cs, err)
	}
	now := time.Now()
	categories := cs.categories.Categories()
	if err := b.sendTaskList(chatID, cs.tasks.Overdue(now), categories, iconOverdue+" <b>Overdue</b>"); err != nil {
		return err
	}
	return b.sendTaskList(chatID, cs.tasks.DueSoon(now), categories, iconDue+" <b>Due in the next 3 days</b>")
}

func (b *Bot) handleDone(ctx context.Context, chatID int64, args string) error {
	id, err := parseTaskID(args, "")
	if err != nil {
		return b.sendText(chatID, "Give the task number: /done 12")
	}
	return b.askConfirmation(ctx, chatID, id, actionComplete)
}

func (b *Bot) handleStatus(ctx context.Context, chatID int64, args string) error {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return b.sendText(chatID, "Usage: /status 12 in_progress")
	}
	id, err := parseTaskID(fields[0], "")
	if err != nil {
		return b.sendText(chatID, "Task number must be numeric.")
	}
	cs := b.chat(chatID)
	task, err := cs.tasks.UpdateStatus(ctx, id, model.Status(strings.ToLower(fields[1])))
	if err != nil {
		return b.reportError(chatID, cs, err)
	}
	return b.sendText(chatID, fmt.Sprintf("🔄 “%s” is now %s.", escape(normalizeTitle(task.Title)), statusLabel(task.Status)))
}

func (b *Bot) handleDelete(ctx context.Context, chatID int64, args string) error {
	id, err := parseTaskID(args, "")
	if err != nil {
		return b.sendText(chatID, "Give the task number: /delete 12")
	}
	return b.askConfirmation(ctx, chatID, id, actionDelete)
}

func (b *Bot) handleCategories(ctx context.Context, chatID int64) error {
	cs := b.chat(chatID)
	if err := b.refresh(ctx, cs); err != nil {
		return b.reportError(chatID, cs, err)
	}
	return b.sendText(chatID, formatCategories(cs.categories.WithCounts(cs.tasks.Tasks())))
}

func (b *Bot) handleNewCategory(ctx context.Context, chatID int64, name string) error {
	if name == "" {
		return b.sendText(chatID, "Usage: /newcategory Groceries")
	}
	cs := b.chat(chatID)
	category, err := cs.categories.Create(ctx, client.Fields{"name": name})
	if err != nil {
		return b.reportError(chatID, cs, err)
	}
	return b.sendText(chatID, fmt.Sprintf("🏷 Category “%s” created (#%d).", escape(category.Name), category.ID))
}

func (b *Bot) handleDeleteCategory(ctx context.Context, chatID int64, args string) error {
	id, err := parseTaskID(args, "")
	if err != nil {
		return b.sendText(chatID, "Give the category number: /delcategory 3")
	}
	cs := b.chat(chatID)
	category, err := cs.categories.FetchOne(ctx, id)
	if err != nil {
		return b.reportError(chatID, cs, err)
	}
	b.setConfirmation(chatID, confirmationRequest{id: category.ID, action: actionDeleteCategory})
	return b.sendWithReplyMarkup(chatID, fmt.Sprintf("Delete category “%s” (#%d)?", escape(category.Name), category.ID), confirmKeyboard())
}

func (b *Bot) handleStats(ctx context.Context, chatID int64) error {
	cs := b.chat(chatID)
	stats, err := cs.session.API().Statistics(ctx)
	if err != nil {
		return b.reportError(chatID, cs, err)
	}
	return b.sendText(chatID, formatStats(stats))
}

func (b *Bot) askConfirmation(ctx context.Context, chatID int64, id uint, action confirmationAction) error {
	cs := b.chat(chatID)
	task, err := cs.tasks.FetchOne(ctx, id)
	if err != nil {
		return b.reportError(chatID, cs, err)
	}

	var text string
	switch action {
	case actionComplete:
		if task.Status == model.StatusCompleted {
			return b.sendText(chatID, "That task is already completed.")
		}
		text = fmt.Sprintf("Mark “%s” (#%d) as completed?", escape(normalizeTitle(task.Title)), task.ID)
	case actionDelete:
		text = fmt.Sprintf("Delete “%s” (#%d)?", escape(normalizeTitle(task.Title)), task.ID)
	}
	b.setConfirmation(chatID, confirmationRequest{id: task.ID, action: action})
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, req confirmationRequest) error {
	chatID := msg.Chat.ID
	switch {
	case isConfirmInput(msg.Text):
		b.clearConfirmation(chatID)
	case isCancelInput(msg.Text):
		b.clearConfirmation(chatID)
		return b.sendText(chatID, "Okay, nothing changed.")
	default:
		return b.sendWithReplyMarkup(chatID, "Please confirm or cancel.", confirmKeyboard())
	}

	cs := b.chat(chatID)
	switch req.action {
	case actionComplete:
		task, err := cs.tasks.UpdateStatus(ctx, req.id, model.StatusCompleted)
		if err != nil {
			return b.reportError(chatID, cs, err)
		}
		log.Printf("[info] chat %d completed task %d", chatID, task.ID)
		return b.sendText(chatID, fmt.Sprintf("✅ “%s” completed.", escape(normalizeTitle(task.Title))))
	case actionDelete:
		if err := cs.tasks.Delete(ctx, req.id); err != nil {
			return b.reportError(chatID, cs, err)
		}
		return b.sendText(chatID, fmt.Sprintf("🗑 Task #%d deleted.", req.id))
	case actionDeleteCategory:
		if err := cs.categories.Delete(ctx, req.id); err != nil {
			return b.reportError(chatID, cs, err)
		}
		return b.sendText(chatID, fmt.Sprintf("🗑 Category #%d deleted.", req.id))
	}
	return nil
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	b.ackCallback(cb.ID)
	chatID := cb.Message.Chat.ID

	switch {
	case strings.HasPrefix(cb.Data, cbCompletePrefix):
		id, err := parseTaskID(cb.Data, cbCompletePrefix)
		if err != nil {
			return nil
		}
		return b.askConfirmation(ctx, chatID, id, actionComplete)
	case strings.HasPrefix(cb.Data, cbDeletePrefix):
		id, err := parseTaskID(cb.Data, cbDeletePrefix)
		if err != nil {
			return nil
		}
		return b.askConfirmation(ctx, chatID, id, actionDelete)
	}
	return nil
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	chatID := msg.Chat.ID
	needLogin := func(fn func() error) error {
		if !b.chat(chatID).session.IsAuthenticated() {
			return b.sendText(chatID, "Please /login or /register first.")
		}
		return fn()
	}

	switch strings.TrimSpace(strings.ToLower(msg.Text)) {
	case strings.ToLower(menuLabelNewTask):
		return true, needLogin(func() error { return b.startConversation(chatID, flowNewTask) })
	case strings.ToLower(menuLabelTasks):
		return true, needLogin(func() error { return b.handleListTasks(ctx, chatID, "") })
	case strings.ToLower(menuLabelCategories):
		return true, needLogin(func() error { return b.handleCategories(ctx, chatID) })
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(chatID)
	default:
		return false, nil
	}
}

// reportError tells the user why an API call failed. A rejected token
// also ends the chat session.
func (b *Bot) reportError(chatID int64, cs *chatSession, err error) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Unauthenticated() {
		cs.session.Logout(context.Background())
		cs.tasks.Reset()
		cs.categories.Reset()
		return b.sendText(chatID, "Your session has expired. Please /login again.")
	}
	log.Printf("[warn] chat %d: %v", chatID, err)
	return b.sendText(chatID, "⚠️ "+escape(apiMessage(err)))
}

func (b *Bot) sendTaskList(chatID int64, tasks []model.Task, categories []model.Category, title string) error {
	if len(tasks) == 0 {
		return b.sendText(chatID, title+"\nNothing here. Add one with /newtask.")
	}

	now := time.Now()
	var builder strings.Builder
	builder.WriteString(title)
	builder.WriteString("\n\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, group := range groupByCategory(tasks, categories) {
		builder.WriteString(fmt.Sprintf("<b>%s</b>\n", categoryLabel(group.name)))
		for _, task := range group.tasks {
			builder.WriteString(formatTask(task, now))
			if task.Status == model.StatusCompleted {
				continue
			}
			buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ #%d · %s", task.ID, shortTitle(task.Title, 20)), fmt.Sprintf("%s%d", cbCompletePrefix, task.ID)),
				tgbotapi.NewInlineKeyboardButtonData("🗑", fmt.Sprintf("%s%d", cbDeletePrefix, task.ID)),
			))
		}
		builder.WriteByte('\n')
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ParseMode = tgbotapi.ModeHTML
	if len(buttons) > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	}
	_, err := b.api.Send(msg)
	return err
}

func openTasks(tasks []model.Task) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status != model.StatusCompleted {
			out = append(out, t)
		}
	}
	return out
}
