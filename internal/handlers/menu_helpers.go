package handlers

import (
	"fmt"
	"strings"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"go.uber.org/zap"

	"quickearn/internal/constants"
	"quickearn/internal/models"
	"quickearn/internal/telegram_api"
)

// BuildReconcileCallback encodes a reconcile button: rc:<status>:<clickID>.
func BuildReconcileCallback(status models.ClickStatus, clickID string) string {
	return strings.Join([]string{constants.CALLBACK_PREFIX_RECONCILE, string(status), clickID}, constants.CALLBACK_SEPARATOR)
}

// ParseReconcileCallback decodes data built by BuildReconcileCallback.
func ParseReconcileCallback(data string) (models.ClickStatus, string, error) {
	parts := strings.SplitN(data, constants.CALLBACK_SEPARATOR, 3)
	if len(parts) != 3 || parts[0] != constants.CALLBACK_PREFIX_RECONCILE || parts[2] == "" {
		return "", "", fmt.Errorf("malformed reconcile callback %q", data)
	}
	status, err := models.ParseClickStatus(parts[1])
	if err != nil || !status.IsTerminal() {
		return "", "", fmt.Errorf("reconcile callback %q: bad status", data)
	}
	return status, parts[2], nil
}

// pendingKeyboard has one confirm/reject row per click that belongs to a user.
// Anonymous clicks cannot be reconciled and get no buttons.
func pendingKeyboard(clicks []models.Click) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, c := range clicks {
		if !c.UserID.Valid {
			continue
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ %d", i+1), BuildReconcileCallback(models.ClickConfirmed, c.ID)),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("❌ %d", i+1), BuildReconcileCallback(models.ClickRejected, c.ID)),
		))
	}
	if len(rows) == 0 {
		return nil
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &keyboard
}

func (bh *BotHandler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := bh.Deps.BotClient.Send(msg); err != nil {
		bh.log.Error("sendMessage: send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (bh *BotHandler) sendOrEditMessageHelper(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	if _, err := telegram_api.SendOrEditMessage(bh.Deps.BotClient, bh.log, chatID, messageID, text, keyboard); err != nil {
		bh.log.Error("sendOrEditMessageHelper: failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
