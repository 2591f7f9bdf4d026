package handlers

import (
	"context"
	"errors"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"go.uber.org/zap"

	"quickearn/internal/db"
	"quickearn/internal/rewards"
)

// HandleCallback handles incoming callback queries from Telegram.
func (bh *BotHandler) HandleCallback(update tgbotapi.Update) {
	query := update.CallbackQuery
	if query == nil {
		return
	}

	chatID := query.Message.Chat.ID
	originalMessageID := query.Message.MessageID
	data := query.Data

	bh.log.Info("HandleCallback", zap.Int64("chat_id", chatID), zap.String("data", data))

	answerText := "⛔ Not allowed."
	if bh.isAdminChat(chatID) {
		answerText = bh.reconcileFromCallback(context.Background(), chatID, originalMessageID, data)
	}

	callbackAns := tgbotapi.NewCallback(query.ID, answerText)
	if _, err := bh.Deps.BotClient.Request(callbackAns); err != nil {
		bh.log.Warn("HandleCallback: could not answer callback", zap.String("callback_id", query.ID), zap.Error(err))
	}
}

// reconcileFromCallback applies a reconcile button press and refreshes the
// pending list in messageID. It returns the toast text for the admin.
func (bh *BotHandler) reconcileFromCallback(ctx context.Context, chatID int64, messageID int, data string) string {
	status, clickID, err := ParseReconcileCallback(data)
	if err != nil {
		bh.log.Warn("reconcileFromCallback: bad callback data", zap.Error(err))
		return "❌ Unknown action."
	}

	click, err := bh.Deps.Clicks.GetClick(ctx, clickID)
	if errors.Is(err, db.ErrNotFound) {
		return "❌ Click not found."
	}
	if err != nil {
		return "❌ Could not load the click."
	}
	if !click.UserID.Valid {
		return "⚠️ Anonymous clicks cannot be reconciled."
	}

	res, err := bh.Deps.Workflow.Apply(ctx, rewards.Request{
		ClickID: click.ID,
		UserID:  click.UserID.String,
		Status:  string(status),
		AppName: click.App,
	})

	var toast string
	switch {
	case err == nil:
		toast = "✅ " + res.Message
	case errors.Is(err, rewards.ErrConflict):
		toast = "⚠️ This click was already reconciled."
	case errors.Is(err, rewards.ErrNotFound):
		toast = "❌ Click not found."
	default:
		bh.log.Error("reconcileFromCallback: reconcile failed", zap.String("click_id", clickID), zap.Error(err))
		toast = "❌ Reconciliation failed, try again later."
	}

	bh.sendPendingList(ctx, chatID, messageID)
	return truncateToast(toast)
}

// Telegram rejects callback answers longer than 200 characters.
func truncateToast(s string) string {
	const limit = 200
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
