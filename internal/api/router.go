package api

import (
	"context"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"quickearn/internal/attribution"
	"quickearn/internal/clicks"
	"quickearn/internal/config"
	"quickearn/internal/metrics"
	"quickearn/internal/models"
	"quickearn/internal/rewards"
)

// Store is the data access the HTTP handlers need. *db.Store implements it.
type Store interface {
	ListApps(ctx context.Context, category string) ([]models.App, error)
	GetApp(ctx context.Context, id string) (models.App, error)
	ListCategories(ctx context.Context) ([]string, error)

	ListClicks(ctx context.Context, status models.ClickStatus, limit int) ([]models.Click, error)
	ListClicksByUser(ctx context.Context, userID string, limit int) ([]models.Click, error)

	GetBalance(ctx context.Context, userID string) (float64, error)
	GetPayoutDestination(ctx context.Context, userID string) (string, error)
	SetPayoutDestination(ctx context.Context, userID, upiID string) error

	IsAdmin(ctx context.Context, userID string) (bool, error)
	UpsertApp(ctx context.Context, a models.App) error
}

// ThresholdReader exposes the payout threshold. *rewards.PayoutEngine implements it.
type ThresholdReader interface {
	Threshold() float64
}

// ClickRecorder records app card activations. *clicks.Recorder implements it.
type ClickRecorder interface {
	Record(ctx context.Context, act clicks.Activation, store attribution.Store) (clicks.Result, error)
}

// Reconciler is the admin reconciliation workflow. *rewards.Workflow implements it.
type Reconciler interface {
	Authorize(authHeader string) error
	Apply(ctx context.Context, req rewards.Request) (rewards.Result, error)
}

// ApiDependencies groups what the API handlers need.
type ApiDependencies struct {
	Config   *config.Config
	Store    Store
	Recorder ClickRecorder
	Workflow Reconciler
	Payouts  ThresholdReader
	Metrics  *metrics.Metrics
	Log      *zap.Logger
}

// SetupRoutes mounts every API route on r.
func SetupRoutes(r *chi.Mux, deps ApiDependencies) {
	h := &Handler{deps: deps, log: deps.Log}
	limiter := NewRateLimiter(deps.Config.ClickRateLimit, deps.Config.ClickRateBurst, deps.Log)

	r.Use(deps.Metrics.Middleware)
	r.Use(IdentityMiddleware(deps.Config.JWTSecret, deps.Log))

	r.Get("/healthz", h.Health)

	// Public catalog.
	r.Get("/api/apps", h.ListApps)
	r.Get("/api/categories", h.ListCategories)
	r.Get("/api/apps/{id}/qr", h.AppQRCode)

	// Click tracking, identity optional.
	r.Group(func(r chi.Router) {
		r.Use(limiter.Handler)
		r.Post("/api/clicks", h.RecordClick)
		r.Get("/go/{id}", h.FollowLink)
	})

	// Admin secret is checked inside the handler.
	r.Post("/api/sync-rewards", h.SyncRewards)
	r.Post("/sync-rewards", h.SyncRewards)

	r.Group(func(r chi.Router) {
		r.Use(RequireUser(deps.Log))

		r.Post("/api/update-upi", h.UpdateUPI)
		r.Get("/api/user/dashboard", h.Dashboard)

		r.Route("/api/admin", func(r chi.Router) {
			r.Use(RequireAdmin(deps.Store, deps.Log))

			r.Post("/apps", h.UpsertApp)
			r.Get("/clicks", h.AdminClicks)
			r.Get("/clicks/export", h.ExportClicks)
		})
	})
}

// Handler serves the JSON API.
type Handler struct {
	deps ApiDependencies
	log  *zap.Logger
}
