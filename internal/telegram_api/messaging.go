package telegram_api

import (
	"context"
	"strings"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"go.uber.org/zap"

	"quickearn/internal/formatters"
	"quickearn/internal/rewards"
)

// SendOrEditMessage tries to edit messageIDToTryEdit and falls back to a new message.
func SendOrEditMessage(
	client Sender,
	log *zap.Logger,
	chatID int64,
	messageIDToTryEdit int,
	text string,
	keyboard *tgbotapi.InlineKeyboardMarkup,
) (tgbotapi.Message, error) {
	if messageIDToTryEdit != 0 {
		var editMsgConfig tgbotapi.EditMessageTextConfig
		if keyboard != nil {
			editMsgConfig = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageIDToTryEdit, text, *keyboard)
		} else {
			editMsgConfig = tgbotapi.NewEditMessageText(chatID, messageIDToTryEdit, text)
		}
		editMsgConfig.ParseMode = tgbotapi.ModeMarkdown

		_, err := client.Request(editMsgConfig)
		if err == nil || strings.Contains(err.Error(), "message is not modified") {
			var msg tgbotapi.Message
			msg.Chat.ID = chatID
			msg.MessageID = messageIDToTryEdit
			msg.Text = text
			return msg, nil
		}
		log.Warn("SendOrEditMessage: edit failed, sending new message",
			zap.Int64("chat_id", chatID), zap.Int("message_id", messageIDToTryEdit), zap.Error(err))
	}

	newMsg := tgbotapi.NewMessage(chatID, text)
	newMsg.ParseMode = tgbotapi.ModeMarkdown
	if keyboard != nil {
		newMsg.ReplyMarkup = keyboard
	}
	sent, err := client.Send(newMsg)
	if err != nil {
		log.Error("SendOrEditMessage: send failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return tgbotapi.Message{}, err
	}
	return sent, nil
}

// Notifier posts reconciliation results to the admin chats.
type Notifier struct {
	client  Sender
	chatIDs []int64
	log     *zap.Logger
}

// NewNotifier builds a Notifier for the given admin chats.
func NewNotifier(client Sender, chatIDs []int64, log *zap.Logger) *Notifier {
	return &Notifier{client: client, chatIDs: chatIDs, log: log}
}

// OnReconciled implements rewards.Notifier. Delivery failures are logged
// only; chats not reached before ctx is done are skipped.
func (n *Notifier) OnReconciled(ctx context.Context, req rewards.Request, res rewards.Result) {
	text := formatters.FormatReconciliationNotice(req, res)
	for i, chatID := range n.chatIDs {
		if err := ctx.Err(); err != nil {
			n.log.Warn("Notifier.OnReconciled: giving up on remaining admin chats",
				zap.String("click_id", req.ClickID), zap.Int("skipped", len(n.chatIDs)-i), zap.Error(err))
			return
		}
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = tgbotapi.ModeMarkdown
		if _, err := n.client.Send(msg); err != nil {
			n.log.Warn("Notifier.OnReconciled: admin chat not notified",
				zap.Int64("chat_id", chatID), zap.String("click_id", req.ClickID), zap.Error(err))
		}
	}
}
