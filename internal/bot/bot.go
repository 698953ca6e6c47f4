package bot

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"task-manager/internal/client"
	"task-manager/internal/config"
)

// chatSession is the API session of one Telegram chat.
type chatSession struct {
	session    *client.Session
	tasks      *client.TaskState
	categories *client.CategoryState
}

// Bot is a Telegram front end to the task API. Each chat gets its own
// client session whose token survives restarts in the token file.
type Bot struct {
	api        *tgbotapi.BotAPI
	baseURL    string
	httpClient *http.Client
	tokens     *client.TokenFile

	sessions      map[int64]*chatSession
	conversations map[int64]*conversationState
	confirmations map[int64]confirmationRequest
	mu            sync.Mutex
}

func New(cfg config.Config) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	return &Bot{
		api:           api,
		baseURL:       cfg.APIBaseURL,
		httpClient:    &http.Client{Timeout: cfg.RequestTimeout + 5*time.Second},
		tokens:        client.NewTokenFile(cfg.TokenFile),
		sessions:      make(map[int64]*chatSession),
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]confirmationRequest),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.Printf("[warn] handle callback: %v", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Printf("[warn] handle message: %v", err)
			}
		}
	}

	return nil
}

// chat returns the session of chatID, restoring its token on first use.
func (b *Bot) chat(chatID int64) *chatSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cs, ok := b.sessions[chatID]; ok {
		return cs
	}
	api := client.New(b.baseURL, b.httpClient)
	store := b.tokens.Store(client.DefaultTokenKey + ":" + strconv.FormatInt(chatID, 10))
	cs := &chatSession{
		session:    client.NewSession(api, store),
		tasks:      client.NewTaskState(api),
		categories: client.NewCategoryState(api),
	}
	b.sessions[chatID] = cs
	return cs
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

// deleteMessage removes a message holding a secret, such as a password.
func (b *Bot) deleteMessage(chatID int64, messageID int) {
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		log.Printf("[warn] delete message: %v", err)
	}
}

func (b *Bot) ackCallback(id string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(id, "")); err != nil {
		log.Printf("[warn] callback ack: %v", err)
	}
}

func (b *Bot) getConfirmation(chatID int64) (confirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.confirmations[chatID]
	return req, ok
}

func (b *Bot) setConfirmation(chatID int64, req confirmationRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[chatID] = req
}

func (b *Bot) clearConfirmation(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, chatID)
}

func (b *Bot) setConversation(chatID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[chatID] = state
}

func (b *Bot) getConversation(chatID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[chatID]
}

func (b *Bot) clearConversation(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, chatID)
}
