package handlers

import (
	"context"
	"strings"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"go.uber.org/zap"

	"quickearn/internal/constants"
	"quickearn/internal/formatters"
	"quickearn/internal/models"
)

const helpText = "🛠 *QuickEarn admin bot*\n" +
	"/pending - clicks awaiting review\n" +
	"/stats - click counts per status\n" +
	"/export - recent clicks as an Excel file"

// HandleMessage handles incoming messages from Telegram.
func (bh *BotHandler) HandleMessage(update tgbotapi.Update) {
	if update.Message == nil {
		return
	}
	message := update.Message
	chatID := message.Chat.ID

	bh.log.Debug("HandleMessage", zap.Int64("chat_id", chatID), zap.String("text", strings.TrimSpace(message.Text)))

	if !bh.isAdminChat(chatID) {
		bh.log.Warn("HandleMessage: message from non-admin chat ignored", zap.Int64("chat_id", chatID))
		bh.sendMessage(chatID, "⛔ This bot is for QuickEarn administrators only.")
		return
	}
	if !message.IsCommand() {
		bh.sendMessage(chatID, helpText)
		return
	}

	ctx := context.Background()
	switch message.Command() {
	case "start", "help":
		bh.sendMessage(chatID, helpText)
	case "pending":
		bh.sendPendingList(ctx, chatID, 0)
	case "stats":
		bh.sendStats(ctx, chatID)
	case "export":
		bh.generateAndSendClicksExcel(ctx, chatID)
	default:
		bh.sendMessage(chatID, "Unknown command.\n\n"+helpText)
	}
}

// sendPendingList posts (or refreshes, when messageID != 0) the pending review list.
func (bh *BotHandler) sendPendingList(ctx context.Context, chatID int64, messageID int) {
	clicks, err := bh.Deps.Clicks.ListClicks(ctx, models.ClickPending, constants.BOT_PENDING_LIST_LIMIT)
	if err != nil {
		bh.log.Error("sendPendingList: could not load pending clicks", zap.Error(err))
		bh.sendMessage(chatID, "❌ Could not load pending clicks.")
		return
	}
	bh.sendOrEditMessageHelper(chatID, messageID, formatters.FormatPendingClicks(clicks), pendingKeyboard(clicks))
}

func (bh *BotHandler) sendStats(ctx context.Context, chatID int64) {
	counts, err := bh.Deps.Clicks.ClickStatusCounts(ctx)
	if err != nil {
		bh.log.Error("sendStats: could not count clicks", zap.Error(err))
		bh.sendMessage(chatID, "❌ Could not load statistics.")
		return
	}
	bh.sendMessage(chatID, formatters.FormatStats(counts))
}
