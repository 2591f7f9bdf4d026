// internal/config/config.go
package config

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const (
	defaultPort            = "8080"
	defaultSiteURL         = "http://localhost:8080"
	defaultPayoutThreshold = 100.0
	defaultClickRateLimit  = 5
	defaultClickRateBurst  = 10
)

// Config holds every configurable parameter of the service.
type Config struct {
	Port     string
	AppEnv   string
	LogLevel string
	SiteURL  string

	DatabaseURL string
	DBHost      string
	DBPort      string
	DBName      string

	// AdminAPIKey is the server-held secret expected in the
	// Authorization header of /sync-rewards.
	AdminAPIKey string
	// JWTSecret verifies access tokens issued by the hosted auth provider.
	JWTSecret string

	GA4MeasurementID string
	GA4APISecret     string

	TelegramToken string
	AdminChatIDs  []int64

	PayoutThreshold float64
	// PayoutEncryptionKey encrypts payout destinations at rest. Nil means clear text.
	PayoutEncryptionKey []byte

	ClickRateLimit int
	ClickRateBurst int
}

// IsDev reports whether the service runs in development mode.
func (c *Config) IsDev() bool {
	return c.AppEnv == "dev" || c.AppEnv == "development"
}

// TelemetryEnabled reports whether GA4 credentials are both present.
func (c *Config) TelemetryEnabled() bool {
	return c.GA4MeasurementID != "" && c.GA4APISecret != ""
}

// LoadConfig loads configuration from environment variables.
func LoadConfig(log *zap.Logger) (*Config, error) {
	cfg := &Config{
		Port:             os.Getenv("PORT"),
		AppEnv:           os.Getenv("ENV"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		SiteURL:          strings.TrimSuffix(os.Getenv("SITE_URL"), "/"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		AdminAPIKey:      os.Getenv("ADMIN_API_KEY"),
		JWTSecret:        os.Getenv("SUPABASE_JWT_SECRET"),
		GA4MeasurementID: os.Getenv("GA4_MEASUREMENT_ID"),
		GA4APISecret:     os.Getenv("GA4_API_SECRET"),
		TelegramToken:    os.Getenv("TELEGRAM_APITOKEN"),
	}

	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.AppEnv == "" {
		cfg.AppEnv = "prod"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.SiteURL == "" {
		cfg.SiteURL = defaultSiteURL
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}
	parsedURL, err := url.Parse(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	cfg.DBHost = parsedURL.Hostname()
	cfg.DBPort = parsedURL.Port()
	if cfg.DBPort == "" {
		cfg.DBPort = "5432"
	}
	cfg.DBName = strings.TrimPrefix(parsedURL.Path, "/")

	if cfg.AdminAPIKey == "" {
		log.Warn("ADMIN_API_KEY is not set, /sync-rewards will answer with a configuration error")
	}
	if cfg.JWTSecret == "" {
		log.Warn("SUPABASE_JWT_SECRET is not set, every caller is treated as anonymous")
	}
	if !cfg.TelemetryEnabled() {
		log.Warn("GA4_MEASUREMENT_ID or GA4_API_SECRET not set, server-side events are disabled")
	}

	cfg.AdminChatIDs = parseChatIDs(log, os.Getenv("ADMIN_CHAT_IDS"))
	if cfg.TelegramToken != "" && len(cfg.AdminChatIDs) == 0 {
		log.Warn("TELEGRAM_APITOKEN is set but ADMIN_CHAT_IDS is empty, the bot will ignore everyone")
	}

	cfg.PayoutThreshold = defaultPayoutThreshold
	if raw := os.Getenv("PAYOUT_THRESHOLD"); raw != "" {
		threshold, errParse := strconv.ParseFloat(raw, 64)
		if errParse != nil || threshold <= 0 {
			log.Warn("invalid PAYOUT_THRESHOLD, using default",
				zap.String("value", raw), zap.Float64("default", defaultPayoutThreshold))
		} else {
			cfg.PayoutThreshold = threshold
		}
	}

	if keyHex := os.Getenv("PAYOUT_ENCRYPTION_KEY_HEX"); keyHex != "" {
		key, errDecode := hex.DecodeString(keyHex)
		if errDecode != nil {
			return nil, fmt.Errorf("PAYOUT_ENCRYPTION_KEY_HEX is not hex: %w", errDecode)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("PAYOUT_ENCRYPTION_KEY_HEX must be 32 bytes, got %d", len(key))
		}
		cfg.PayoutEncryptionKey = key
	} else {
		log.Warn("PAYOUT_ENCRYPTION_KEY_HEX is not set, UPI ids are stored in clear text")
	}

	cfg.ClickRateLimit = intFromEnv(log, "CLICK_RATE_LIMIT", defaultClickRateLimit)
	cfg.ClickRateBurst = intFromEnv(log, "CLICK_RATE_BURST", defaultClickRateBurst)

	log.Info("configuration loaded",
		zap.String("env", cfg.AppEnv),
		zap.String("db_host", cfg.DBHost),
		zap.String("db_name", cfg.DBName),
		zap.Bool("bot_enabled", cfg.TelegramToken != ""))
	return cfg, nil
}

func parseChatIDs(log *zap.Logger, raw string) []int64 {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			log.Warn("skipping invalid ADMIN_CHAT_IDS entry", zap.String("value", part), zap.Error(err))
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func intFromEnv(log *zap.Logger, key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		log.Warn("invalid integer setting, using default", zap.String("key", key), zap.String("value", raw), zap.Int("default", def))
		return def
	}
	return v
}
