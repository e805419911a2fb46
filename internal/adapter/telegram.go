package adapter

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/harunnryd/nightowl/internal/config"
	owlErrors "github.com/harunnryd/nightowl/internal/errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type telegramBot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetMe() (tgbotapi.User, error)
}

type TelegramAdapter struct {
	token         string
	updateTimeout int
	eventHandler  EventHandler
	bot           telegramBot
	updates       tgbotapi.UpdatesChannel
}

func NewTelegramAdapter(token string, eventHandler EventHandler, updateTimeout int) *TelegramAdapter {
	if updateTimeout <= 0 {
		updateTimeout = config.DefaultTelegramUpdateTimeout
	}
	return &TelegramAdapter{
		token:         token,
		updateTimeout: updateTimeout,
		eventHandler:  eventHandler,
	}
}

func (t *TelegramAdapter) Name() string {
	return "telegram"
}

func (t *TelegramAdapter) Start(ctx context.Context) error {
	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return owlErrors.Wrap(err, "failed to init telegram bot")
	}
	t.bot = bot

	slog.Info("Telegram Adapter started", "user", bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = t.updateTimeout

	t.updates = bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				bot.StopReceivingUpdates()
				return
			case update := <-t.updates:
				t.handleUpdate(ctx, update)
			}
		}
	}()

	return nil
}

func (t *TelegramAdapter) Stop(ctx context.Context) error {
	return nil
}

func (t *TelegramAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil || msg.Text == "" {
		return
	}

	// UpdateID is unique per bot, which makes it the idempotency key;
	// MessageID is only unique within a chat.
	in := Inbound{
		Source:    "telegram",
		MessageID: strconv.Itoa(update.UpdateID),
		UserID:    strconv.FormatInt(msg.From.ID, 10),
		ReplyTo:   strconv.FormatInt(msg.Chat.ID, 10),
		Text:      msg.Text,
		Metadata: map[string]string{
			"user_name": msg.From.UserName,
			"msg_id":    strconv.Itoa(msg.MessageID),
		},
	}

	if t.eventHandler != nil {
		if err := t.eventHandler(ctx, in); err != nil {
			slog.Error("Failed to handle Telegram message", "update_id", update.UpdateID, "error", err)
		}
	}
}

// Send sends a reply back to Telegram
func (t *TelegramAdapter) Send(ctx context.Context, replyTo string, content string) error {
	if t.bot == nil {
		return owlErrors.Transient("Telegram bot not initialized")
	}
	chatID, err := strconv.ParseInt(replyTo, 10, 64)
	if err != nil {
		return owlErrors.InvalidInput("invalid telegram chat ID: " + err.Error())
	}

	msg := tgbotapi.NewMessage(chatID, content)
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return owlErrors.Wrap(err, "failed to send telegram message")
	}

	slog.Debug("Telegram message sent", "chat_id", replyTo)
	return nil
}

func (t *TelegramAdapter) Health(ctx context.Context) error {
	if t.bot == nil {
		return owlErrors.Transient("Telegram bot not initialized")
	}

	if _, err := t.bot.GetMe(); err != nil {
		return owlErrors.Transient("Telegram connection failed: " + err.Error())
	}

	return nil
}
