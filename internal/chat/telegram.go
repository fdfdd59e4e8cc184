package chat

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/kagebridge/gravitybridge/internal/format"
)

// TelegramTransport is a ChatTransport backed by go-telegram/bot, proving
// ChatTransport is a genuine capability boundary rather than something only
// Discord can satisfy.
type TelegramTransport struct {
	bot            *bot.Bot
	allowedUserIDs map[int64]bool

	mu         sync.RWMutex
	onIncoming func(IncomingMessage)
	onButton   func(ButtonClick)
}

// telegramMessageRef is the MessageHandle TelegramTransport hands back:
// EditMessageText needs both the chat and message ID.
type telegramMessageRef struct {
	chatID    int64
	messageID int
}

// NewTelegramTransport builds a transport around a long-poll bot.Bot.
// allowedUserIDs restricts both direct messages and button clicks when
// non-empty, mirroring the teacher's allowlist.
func NewTelegramTransport(token string, allowedUserIDs []int64) (*TelegramTransport, error) {
	t := &TelegramTransport{allowedUserIDs: make(map[int64]bool, len(allowedUserIDs))}
	for _, id := range allowedUserIDs {
		t.allowedUserIDs[id] = true
	}

	b, err := bot.New(token, bot.WithDefaultHandler(t.handleUpdate))
	if err != nil {
		return nil, fmt.Errorf("chat: create telegram bot: %w", err)
	}
	t.bot = b
	return t, nil
}

func (t *TelegramTransport) Start(ctx context.Context) error {
	go t.bot.Start(ctx)
	return nil
}

func (t *TelegramTransport) Stop() error {
	_, err := t.bot.Close(context.Background())
	return err
}

func (t *TelegramTransport) SendMessage(ctx context.Context, channel, content string) (MessageHandle, error) {
	chatID, err := parseChatID(channel)
	if err != nil {
		return nil, err
	}
	msg, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      format.ToTelegramHTML(content),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return nil, fmt.Errorf("chat: telegram send: %w", err)
	}
	return telegramMessageRef{chatID: chatID, messageID: msg.ID}, nil
}

func (t *TelegramTransport) EditMessage(ctx context.Context, handle MessageHandle, content string) error {
	ref, ok := handle.(telegramMessageRef)
	if !ok {
		return fmt.Errorf("chat: telegram edit: handle %v is not a telegram message reference", handle)
	}
	_, err := t.bot.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    ref.chatID,
		MessageID: ref.messageID,
		Text:      format.ToTelegramHTML(content),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("chat: telegram edit: %w", err)
	}
	return nil
}

func (t *TelegramTransport) SendRich(ctx context.Context, channel string, embed Embed, buttons []Button) (MessageHandle, error) {
	chatID, err := parseChatID(channel)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>%s</b>\n", format.EscapeHTML(embed.Title)))
	if embed.Description != "" {
		sb.WriteString(format.EscapeHTML(embed.Description) + "\n")
	}
	for _, f := range embed.Fields {
		sb.WriteString(fmt.Sprintf("\n<b>%s</b>: %s", format.EscapeHTML(f.Name), format.EscapeHTML(f.Value)))
	}

	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      sb.String(),
		ParseMode: models.ParseModeHTML,
	}
	if len(buttons) > 0 {
		row := make([]models.InlineKeyboardButton, 0, len(buttons))
		for _, b := range buttons {
			row = append(row, models.InlineKeyboardButton{Text: b.Label, CallbackData: b.Data})
		}
		params.ReplyMarkup = &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{row}}
	}

	msg, err := t.bot.SendMessage(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat: telegram send rich: %w", err)
	}
	return telegramMessageRef{chatID: chatID, messageID: msg.ID}, nil
}

func (t *TelegramTransport) OnIncomingMessage(handler func(IncomingMessage)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onIncoming = handler
}

func (t *TelegramTransport) OnButtonClick(handler func(ButtonClick)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onButton = handler
}

func (t *TelegramTransport) handleUpdate(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery != nil {
		t.handleCallback(ctx, b, update.CallbackQuery)
		return
	}
	if update.Message != nil {
		t.handleMessage(update.Message)
	}
}

func (t *TelegramTransport) handleMessage(message *models.Message) {
	userID := message.From.ID
	if !t.allowed(userID, message.Chat.ID) {
		return
	}

	t.mu.RLock()
	handler := t.onIncoming
	t.mu.RUnlock()
	if handler == nil {
		return
	}
	handler(IncomingMessage{
		Channel: strconv.FormatInt(message.Chat.ID, 10),
		UserID:  strconv.FormatInt(userID, 10),
		Text:    message.Text,
	})
}

func (t *TelegramTransport) handleCallback(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery) {
	chatID := callback.Message.Message.Chat.ID
	userID := callback.From.ID
	if !t.allowed(userID, chatID) {
		return
	}

	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: callback.ID})

	t.mu.RLock()
	handler := t.onButton
	t.mu.RUnlock()
	if handler == nil {
		return
	}
	handler(ButtonClick{
		Channel: strconv.FormatInt(chatID, 10),
		UserID:  strconv.FormatInt(userID, 10),
		Data:    callback.Data,
		Message: telegramMessageRef{chatID: chatID, messageID: callback.Message.Message.ID},
	})
}

func (t *TelegramTransport) allowed(userID, chatID int64) bool {
	if len(t.allowedUserIDs) == 0 {
		return true
	}
	return t.allowedUserIDs[userID] || t.allowedUserIDs[chatID]
}

func parseChatID(channel string) (int64, error) {
	chatID, err := strconv.ParseInt(channel, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("chat: telegram channel %q is not a numeric chat ID: %w", channel, err)
	}
	return chatID, nil
}
