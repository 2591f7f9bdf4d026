package handlers

import (
	"context"

	"go.uber.org/zap"

	"quickearn/internal/models"
	"quickearn/internal/rewards"
	"quickearn/internal/telegram_api"
)

// ClickReader is the read side of the click store used by the bot.
type ClickReader interface {
	GetClick(ctx context.Context, clickID string) (models.Click, error)
	ListClicks(ctx context.Context, status models.ClickStatus, limit int) ([]models.Click, error)
	ClickStatusCounts(ctx context.Context) ([]models.ClickStatusCount, error)
}

// Reconciler applies a reconciliation for a trusted caller.
type Reconciler interface {
	Apply(ctx context.Context, req rewards.Request) (rewards.Result, error)
}

// HandlerDependencies contains all dependencies required for handlers.
type HandlerDependencies struct {
	BotClient    telegram_api.Sender
	Clicks       ClickReader
	Workflow     Reconciler
	AdminChatIDs []int64
}

// BotHandler serves the admin Telegram bot.
type BotHandler struct {
	Deps   HandlerDependencies
	admins map[int64]bool
	log    *zap.Logger
}

// NewBotHandler creates a new instance of BotHandler.
func NewBotHandler(deps HandlerDependencies, log *zap.Logger) *BotHandler {
	if deps.BotClient == nil || deps.Clicks == nil || deps.Workflow == nil {
		panic("not all BotHandler dependencies were provided")
	}
	admins := make(map[int64]bool, len(deps.AdminChatIDs))
	for _, id := range deps.AdminChatIDs {
		admins[id] = true
	}
	return &BotHandler{Deps: deps, admins: admins, log: log}
}

func (bh *BotHandler) isAdminChat(chatID int64) bool {
	return bh.admins[chatID]
}
