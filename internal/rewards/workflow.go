// Package rewards reconciles referral clicks and decides payouts.
package rewards

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"quickearn/internal/constants"
	"quickearn/internal/db"
	"quickearn/internal/metrics"
	"quickearn/internal/models"
	"quickearn/internal/telemetry"
)

// ClickStore moves clicks out of pending. It returns db.ErrNotFound for an
// unknown (click, user) pair and db.ErrNotPending for a reconciled click.
type ClickStore interface {
	TransitionClick(ctx context.Context, clickID, userID string, status models.ClickStatus) (models.ClickTransition, error)
}

// Notifier is told about every successful reconciliation, after the result
// is returned, and should give up once ctx is done.
type Notifier interface {
	OnReconciled(ctx context.Context, req Request, res Result)
}

// Request is the input of a reconciliation.
type Request struct {
	ClickID string `json:"clickId"`
	UserID  string `json:"userId"`
	Status  string `json:"status"`
	AppName string `json:"appName,omitempty"`
}

// Result is the outcome of a successful reconciliation.
type Result struct {
	Message  string
	Click    models.Click
	Credited float64
	Decision *Decision // nil for rejections
}

// WorkflowDeps groups the collaborators of a Workflow.
type WorkflowDeps struct {
	Clicks      ClickStore
	Engine      *PayoutEngine
	Sink        telemetry.Sink
	Notifier    Notifier
	Metrics     *metrics.Metrics
	AdminSecret string
}

// Workflow is the admin reconciliation state machine: pending -> confirmed
// or pending -> rejected, nothing else.
type Workflow struct {
	clicks      ClickStore
	engine      *PayoutEngine
	sink        telemetry.Sink
	notifier    Notifier
	metrics     *metrics.Metrics
	adminSecret string
	pending     sync.WaitGroup
	log         *zap.Logger
}

const notifyTimeout = 15 * time.Second

// NewWorkflow builds a Workflow.
func NewWorkflow(deps WorkflowDeps, log *zap.Logger) *Workflow {
	sink := deps.Sink
	if sink == nil {
		sink = telemetry.Nop{}
	}
	return &Workflow{
		clicks:      deps.Clicks,
		engine:      deps.Engine,
		sink:        sink,
		notifier:    deps.Notifier,
		metrics:     deps.Metrics,
		adminSecret: deps.AdminSecret,
		log:         log,
	}
}

// Authorize checks an Authorization header against the admin secret.
func (w *Workflow) Authorize(authHeader string) error {
	if w.adminSecret == "" {
		w.log.Error("Workflow.Authorize: admin secret is not configured")
		return ErrServerMisconfigured
	}
	expected := "Bearer " + w.adminSecret
	if subtle.ConstantTimeCompare([]byte(authHeader), []byte(expected)) != 1 {
		w.log.Warn("Workflow.Authorize: rejected admin credential")
		return ErrUnauthorized
	}
	return nil
}

// Reconcile authorizes the caller, then applies req.
func (w *Workflow) Reconcile(ctx context.Context, authHeader string, req Request) (Result, error) {
	if err := w.Authorize(authHeader); err != nil {
		return Result{}, err
	}
	return w.Apply(ctx, req)
}

// Validate checks req without touching any state.
func (req Request) Validate() (models.ClickStatus, error) {
	status, err := models.ParseClickStatus(req.Status)
	if req.ClickID == "" || req.UserID == "" || err != nil || !status.IsTerminal() {
		return "", fmt.Errorf("%w: clickId, userId and status ('confirmed' or 'rejected') are required", ErrInvalidRequest)
	}
	return status, nil
}

// Apply reconciles req for a caller that is already trusted.
func (w *Workflow) Apply(ctx context.Context, req Request) (Result, error) {
	status, err := req.Validate()
	if err != nil {
		return Result{}, err
	}

	tr, err := w.clicks.TransitionClick(ctx, req.ClickID, req.UserID, status)
	switch {
	case errors.Is(err, db.ErrNotFound):
		return Result{}, fmt.Errorf("%w for id: %s and user: %s", ErrNotFound, req.ClickID, req.UserID)
	case errors.Is(err, db.ErrNotPending):
		return Result{}, fmt.Errorf("%w: click %s is no longer pending", ErrConflict, req.ClickID)
	case err != nil:
		w.log.Error("Workflow.Apply: transition failed", zap.String("click_id", req.ClickID), zap.Error(err))
		return Result{}, fmt.Errorf("%w: could not update click status", ErrUpstream)
	}
	w.log.Info("Workflow.Apply: click status updated",
		zap.String("click_id", req.ClickID), zap.String("user_id", req.UserID), zap.String("status", string(status)))

	appName := req.AppName
	if appName == "" {
		appName = tr.Click.App
	}
	if appName == "" {
		appName = constants.UNKNOWN_APP_NAME
	}

	w.sink.Emit(ctx, constants.EVENT_REFERRAL_SYNC, map[string]string{
		telemetry.AttrUserID: req.UserID,
		"click_id":           req.ClickID,
		"user_id_param":      req.UserID,
		"referral_status":    string(status),
		"app_name":           appName,
	})

	res := Result{Click: tr.Click, Credited: tr.Credited}
	payoutMessage := ""
	outcome := ""
	if status == models.ClickConfirmed {
		d := w.engine.Decide(ctx, req.UserID, appName, req.ClickID)
		res.Decision = &d
		payoutMessage = d.Message
		outcome = string(d.Outcome)
	}
	res.Message = strings.TrimSpace(fmt.Sprintf("Click status updated to %s. %s", status, payoutMessage))
	w.metrics.Reconciled(string(status), outcome)

	w.notify(ctx, req, res)
	return res, nil
}

// notify hands res to the notifier in the background. The notifier gets a
// context that survives the request but expires after notifyTimeout.
func (w *Workflow) notify(ctx context.Context, req Request, res Result) {
	if w.notifier == nil {
		return
	}
	w.pending.Add(1)
	go func() {
		defer w.pending.Done()
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		w.notifier.OnReconciled(nctx, req, res)
	}()
}

// Wait blocks until every notification started so far has returned.
func (w *Workflow) Wait() {
	w.pending.Wait()
}
