package telegram_api

import (
	"fmt"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"go.uber.org/zap"
)

// Sender is the part of the Bot API the rest of the service uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// BotClient represents a wrapper for the Telegram Bot API.
type BotClient struct {
	api   *tgbotapi.BotAPI
	Debug bool
	log   *zap.Logger
}

// NewBotClient authorizes the bot and switches it to long polling.
func NewBotClient(token string, debug bool, log *zap.Logger) (*BotClient, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram API token not provided")
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("init Telegram Bot API: %w", err)
	}
	api.Debug = debug

	log.Info("Authorized on Telegram", zap.String("account", api.Self.UserName))

	// Disable webhook if active (important for getUpdates)
	_, err = api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true})
	if err != nil {
		// No webhook set is reported as an error too.
		log.Warn("Could not delete webhook", zap.Error(err))
	}

	return &BotClient{api: api, Debug: debug, log: log}, nil
}

// GetUpdatesChan returns the update channel from Telegram.
func (bc *BotClient) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	if bc.Debug {
		bc.log.Debug("Requesting update channel", zap.Int("timeout", config.Timeout))
	}
	return bc.api.GetUpdatesChan(config)
}

// StopReceivingUpdates ends the long-polling loop.
func (bc *BotClient) StopReceivingUpdates() {
	bc.api.StopReceivingUpdates()
}

// Send sends a message via BotClient.
func (bc *BotClient) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if bc == nil || bc.api == nil {
		return tgbotapi.Message{}, fmt.Errorf("BotClient is not initialized")
	}
	if bc.Debug {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			bc.log.Debug("Sending message", zap.Int64("chat_id", msg.ChatID), zap.Int("text_len", len(msg.Text)))
		} else {
			bc.log.Debug("Sending chattable", zap.String("type", fmt.Sprintf("%T", c)))
		}
	}
	return bc.api.Send(c)
}

// Request performs a request via BotClient.
func (bc *BotClient) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if bc == nil || bc.api == nil {
		return nil, fmt.Errorf("BotClient is not initialized")
	}
	if bc.Debug {
		if cbAns, ok := c.(tgbotapi.CallbackConfig); ok {
			bc.log.Debug("Answering callback", zap.String("callback_id", cbAns.CallbackQueryID))
		} else {
			bc.log.Debug("Performing request", zap.String("type", fmt.Sprintf("%T", c)))
		}
	}
	return bc.api.Request(c)
}
