package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"quickearn/internal/api"
	"quickearn/internal/clicks"
	"quickearn/internal/config"
	"quickearn/internal/db"
	"quickearn/internal/handlers"
	"quickearn/internal/logger"
	"quickearn/internal/metrics"
	"quickearn/internal/payments"
	"quickearn/internal/rewards"
	"quickearn/internal/telegram_api"
	"quickearn/internal/telemetry"
	"quickearn/internal/utils"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// --- Initialization ---
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: no .env file loaded, relying on the process environment.")
	}

	zlog, err := logger.New(logger.Config{
		Environment: os.Getenv("ENV"),
		Level:       os.Getenv("LOG_LEVEL"),
		Service:     "quickearn",
	})
	if err != nil {
		log.Fatalf("Fatal: could not build logger: %v", err)
	}
	defer zlog.Sync()

	cfg, err := config.LoadConfig(zlog)
	if err != nil {
		zlog.Fatal("Could not load configuration", zap.Error(err))
	}

	var cipher *utils.Cipher
	if cfg.PayoutEncryptionKey != nil {
		cipher, err = utils.NewCipher(cfg.PayoutEncryptionKey)
		if err != nil {
			zlog.Fatal("Could not initialize payout cipher", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := db.Open(ctx, cfg.DatabaseURL, cipher, zlog)
	if err != nil {
		zlog.Fatal("Could not connect to database", zap.Error(err))
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		zlog.Fatal("Database migration failed", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var sink telemetry.Sink = telemetry.Nop{}
	if cfg.TelemetryEnabled() {
		sink = telemetry.NewGA4(cfg.GA4MeasurementID, cfg.GA4APISecret, "", zlog)
	}

	engine := rewards.NewPayoutEngine(store, store, payments.NewSimulator(store, zlog), cfg.PayoutThreshold, zlog)
	workflowDeps := rewards.WorkflowDeps{
		Clicks:      store,
		Engine:      engine,
		Sink:        sink,
		Metrics:     m,
		AdminSecret: cfg.AdminAPIKey,
	}

	// The bot is optional; without a token only the HTTP API runs.
	var bot *telegram_api.BotClient
	if cfg.TelegramToken != "" {
		bot, err = telegram_api.NewBotClient(cfg.TelegramToken, cfg.IsDev(), zlog)
		if err != nil {
			zlog.Fatal("Could not initialize Telegram bot", zap.Error(err))
		}
		workflowDeps.Notifier = telegram_api.NewNotifier(bot, cfg.AdminChatIDs, zlog)
	}
	workflow := rewards.NewWorkflow(workflowDeps, zlog)

	// --- Router and middleware ---
	router := chi.NewRouter()

	// Global middlewares must come before api.SetupRoutes.
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	api.SetupRoutes(router, api.ApiDependencies{
		Config:   cfg,
		Store:    store,
		Recorder: clicks.NewRecorder(store, sink, m, zlog),
		Workflow: workflow,
		Payouts:  engine,
		Metrics:  m,
		Log:      zlog,
	})
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zlog.Info("Starting HTTP server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	if bot != nil {
		botHandler := handlers.NewBotHandler(handlers.HandlerDependencies{
			BotClient:    bot,
			Clicks:       store,
			Workflow:     workflow,
			AdminChatIDs: cfg.AdminChatIDs,
		}, zlog)
		go runBot(ctx, bot, botHandler, zlog)
	}

	zlog.Info("QuickEarn is up")
	<-ctx.Done()

	zlog.Info("Shutting down")
	if bot != nil {
		bot.StopReceivingUpdates()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("HTTP server shutdown failed", zap.Error(err))
	}
	// Let in-flight admin notifications finish.
	workflow.Wait()
}

// runBot dispatches Telegram updates until ctx is cancelled.
func runBot(ctx context.Context, bot *telegram_api.BotClient, botHandler *handlers.BotHandler, zlog *zap.Logger) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := bot.GetUpdatesChan(u)

	zlog.Info("Bot is listening for updates")
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message != nil {
				zlog.Debug("Message received", zap.Int64("chat_id", update.Message.Chat.ID), zap.String("text", update.Message.Text))
				go botHandler.HandleMessage(update)
			} else if update.CallbackQuery != nil {
				zlog.Debug("Callback received", zap.String("data", update.CallbackQuery.Data))
				go botHandler.HandleCallback(update)
			}
		}
	}
}
