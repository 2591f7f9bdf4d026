package handlers

import (
	"bytes"
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"go.uber.org/zap"

	"quickearn/internal/constants"
	"quickearn/internal/reports"
)

// generateAndSendClicksExcel sends the recent clicks as an xlsx document.
func (bh *BotHandler) generateAndSendClicksExcel(ctx context.Context, chatID int64) {
	clicks, err := bh.Deps.Clicks.ListClicks(ctx, "", constants.EXPORT_CLICKS_LIMIT)
	if err != nil {
		bh.log.Error("generateAndSendClicksExcel: could not load clicks", zap.Error(err))
		bh.sendMessage(chatID, "❌ Could not load clicks for the report.")
		return
	}

	var buf bytes.Buffer
	if err := reports.WriteClicksReport(&buf, clicks); err != nil {
		bh.log.Error("generateAndSendClicksExcel: could not build report", zap.Error(err))
		bh.sendMessage(chatID, "❌ Could not create the Excel file.")
		return
	}

	now := time.Now()
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("clicks_report_%s.xlsx", now.Format("20060102_150405")),
		Bytes: buf.Bytes(),
	})
	doc.Caption = fmt.Sprintf("Clicks report, %d rows, %s", len(clicks), now.Format("02.01.2006"))
	if _, err := bh.Deps.BotClient.Send(doc); err != nil {
		bh.log.Error("generateAndSendClicksExcel: could not send document", zap.Int64("chat_id", chatID), zap.Error(err))
		bh.sendMessage(chatID, "❌ Could not send the Excel file.")
	}
}
