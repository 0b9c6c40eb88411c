package notifier

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/pfrederiksen/connpass-notify/internal/event"
)

// telegramAPI is the subset of tgbotapi.BotAPI used for delivery.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier sends notifications to a Telegram chat
type TelegramNotifier struct {
	api    telegramAPI
	chatID int64
}

// NewTelegramNotifier authenticates the bot and targets chatID.
func NewTelegramNotifier(token, chatID string) (*TelegramNotifier, error) {
	if token == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	id, err := parseChatID(chatID)
	if err != nil {
		return nil, err
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}
	return &TelegramNotifier{api: api, chatID: id}, nil
}

func parseChatID(chatID string) (int64, error) {
	if chatID == "" {
		return 0, fmt.Errorf("chat ID is required")
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat ID %q: %w", chatID, err)
	}
	return id, nil
}

// Notify sends a captioned photo when image is present, otherwise an HTML message.
func (n *TelegramNotifier) Notify(ctx context.Context, evt *event.Event, image event.Optional[string]) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	text := formatHTML(evt)

	var msg tgbotapi.Chattable
	if imageURL, ok := image.Get(); ok && imageURL != "" {
		photo := tgbotapi.NewPhoto(n.chatID, tgbotapi.FileURL(imageURL))
		photo.Caption = text
		photo.ParseMode = tgbotapi.ModeHTML
		msg = photo
	} else {
		m := tgbotapi.NewMessage(n.chatID, text)
		m.ParseMode = tgbotapi.ModeHTML
		msg = m
	}

	if _, err := n.api.Send(msg); err != nil {
		return &DeliveryError{Channel: "telegram", Err: err}
	}
	return nil
}
