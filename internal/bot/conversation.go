package bot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"task-manager/internal/client"
	"task-manager/internal/model"
)

type conversationFlow int

const (
	flowRegister conversationFlow = iota
	flowLogin
	flowNewTask
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageName
	stageEmail
	stagePassword
	stagePasswordConfirm
	stageTitle
	stageDescription
	stageCategory
	stageDueDate
	stagePriority
)

type conversationState struct {
	flow  conversationFlow
	stage conversationStage

	name     string
	email    string
	password string

	fields client.Fields
}

func (b *Bot) startConversation(chatID int64, flow conversationFlow) error {
	b.clearConfirmation(chatID)
	state := &conversationState{flow: flow}

	var text string
	switch flow {
	case flowRegister:
		state.stage = stageName
		text = "📝 Creating an account.\n<b>Step 1:</b> what is your name?"
	case flowLogin:
		state.stage = stageEmail
		text = "🔑 Signing in.\n<b>Step 1:</b> your email?"
	case flowNewTask:
		state.stage = stageTitle
		state.fields = client.Fields{}
		text = "🆕 Creating a new task.\n<b>Step 1:</b> what should it be called?"
	}

	log.Printf("[info] start conversation flow=%d chat=%d", flow, chatID)
	b.setConversation(chatID, state)
	return b.sendWithReplyMarkup(chatID, text, cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	switch state.flow {
	case flowRegister, flowLogin:
		return b.handleAuthStep(ctx, msg, state)
	case flowNewTask:
		return b.handleTaskStep(ctx, msg, state)
	}
	b.clearConversation(msg.Chat.ID)
	return nil
}

func (b *Bot) handleAuthStep(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	switch state.stage {
	case stageName:
		if text == "" {
			return b.sendWithReplyMarkup(chatID, "The name can not be empty.", cancelKeyboard())
		}
		state.name = text
		state.stage = stageEmail
		return b.sendWithReplyMarkup(chatID, "📧 Your email?", cancelKeyboard())
	case stageEmail:
		state.email = text
		state.stage = stagePassword
		return b.sendWithReplyMarkup(chatID, "🔒 Your password? I will delete the message right away.", cancelKeyboard())
	case stagePassword:
		b.deleteMessage(chatID, msg.MessageID)
		state.password = msg.Text
		if state.flow == flowLogin {
			return b.finishLogin(ctx, chatID, state)
		}
		state.stage = stagePasswordConfirm
		return b.sendWithReplyMarkup(chatID, "🔒 Repeat the password.", cancelKeyboard())
	case stagePasswordConfirm:
		b.deleteMessage(chatID, msg.MessageID)
		return b.finishRegister(ctx, chatID, state, msg.Text)
	default:
		b.clearConversation(chatID)
		return b.sendText(chatID, "Dialog reset. Try again.")
	}
}

func (b *Bot) finishLogin(ctx context.Context, chatID int64, state *conversationState) error {
	b.clearConversation(chatID)
	cs := b.chat(chatID)
	res := cs.session.Login(ctx, state.email, state.password, false)
	if !res.Success {
		return b.sendText(chatID, "⚠️ "+escape(res.Message)+"\nTry /login again.")
	}
	cs.tasks.Reset()
	cs.categories.Reset()
	return b.sendText(chatID, fmt.Sprintf("✅ Welcome back, %s!", escape(cs.session.User().Name)))
}

func (b *Bot) finishRegister(ctx context.Context, chatID int64, state *conversationState, confirmation string) error {
	b.clearConversation(chatID)
	cs := b.chat(chatID)
	res := cs.session.Register(ctx, state.name, state.email, state.password, confirmation)
	if !res.Success {
		return b.sendText(chatID, "⚠️ "+escape(formatResult(res))+"\nTry /register again.")
	}
	return b.sendText(chatID, fmt.Sprintf("🎉 Account created. Hi, %s!", escape(cs.session.User().Name)))
}

func (b *Bot) handleTaskStep(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)
	cs := b.chat(chatID)

	switch state.stage {
	case stageTitle:
		if text == "" {
			return b.sendWithReplyMarkup(chatID, "The title can not be empty.", cancelKeyboard())
		}
		state.fields["title"] = text
		state.stage = stageDescription
		return b.sendWithReplyMarkup(chatID, "✏️ Add a short description (or press “Skip”).", skipKeyboard())
	case stageDescription:
		if !isSkipInput(text) {
			state.fields["description"] = text
		}
		state.stage = stageCategory
		if err := cs.categories.Fetch(ctx); err != nil {
			return b.reportError(chatID, cs, err)
		}
		return b.sendWithReplyMarkup(chatID, "🏷 Pick a category (or “Skip”). A new name creates it.", categoryKeyboard(cs.categories.Categories()))
	case stageCategory:
		if !isSkipInput(text) {
			id, err := b.resolveCategory(ctx, cs, text)
			if err != nil {
				return b.reportError(chatID, cs, err)
			}
			state.fields["category_id"] = id
		}
		state.stage = stageDueDate
		return b.sendWithReplyMarkup(chatID, "⏰ Due date as <code>2025-11-30</code> or <code>2025-11-30 18:00</code> (or “Skip”).", skipKeyboard())
	case stageDueDate:
		if !isSkipInput(text) {
			due, err := parseDate(text)
			if err != nil {
				return b.sendWithReplyMarkup(chatID, "I can not read that date. Use <code>2025-11-30</code> or “Skip”.", skipKeyboard())
			}
			state.fields["due_date"] = due.Format(time.RFC3339)
		}
		state.stage = stagePriority
		return b.sendWithReplyMarkup(chatID, "⚡ Priority?", priorityKeyboard())
	case stagePriority:
		if !isSkipInput(text) {
			priority := model.Priority(strings.ToLower(text))
			if !priority.Valid() {
				return b.sendWithReplyMarkup(chatID, "Choose low, medium or high.", priorityKeyboard())
			}
			state.fields["priority"] = priority
		}
		b.clearConversation(chatID)
		return b.finishTaskCreation(ctx, chatID, cs, state.fields)
	default:
		b.clearConversation(chatID)
		return b.sendText(chatID, "Dialog reset. Try again with /newtask.")
	}
}

// resolveCategory finds a category by case-insensitive name, creating it
// when the user has none by that name.
func (b *Bot) resolveCategory(ctx context.Context, cs *chatSession, name string) (uint, error) {
	for _, c := range cs.categories.Categories() {
		if strings.EqualFold(strings.TrimSpace(c.Name), name) {
			return c.ID, nil
		}
	}
	created, err := cs.categories.Create(ctx, client.Fields{"name": name})
	if err != nil {
		return 0, err
	}
	return created.ID, nil
}

func (b *Bot) finishTaskCreation(ctx context.Context, chatID int64, cs *chatSession, fields client.Fields) error {
	task, err := cs.tasks.Create(ctx, fields)
	if err != nil {
		return b.reportError(chatID, cs, err)
	}
	log.Printf("[info] chat %d created task %d", chatID, task.ID)
	return b.sendText(chatID, fmt.Sprintf("✅ Task #%d “%s” saved.", task.ID, escape(normalizeTitle(task.Title))))
}
