package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"quickearn/internal/attribution"
	"quickearn/internal/clicks"
	"quickearn/internal/constants"
	"quickearn/internal/db"
	"quickearn/internal/models"
	"quickearn/internal/reports"
	"quickearn/internal/rewards"
	"quickearn/internal/session"
	"quickearn/internal/utils"
)

const (
	dashboardClicksLimit = 50
	qrCodeSize           = 256
	xlsxContentType      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxJSONBodyBytes     = 64 << 10
)

// ClickRequest is the body of POST /api/clicks.
type ClickRequest struct {
	AppID          string `json:"app_id"`
	UseOwnReferral bool   `json:"use_own_referral"`
}

// ClickResponse tells the browser where to go. ClickID is empty when the
// click could not be stored.
type ClickResponse struct {
	ClickID     string `json:"click_id"`
	RedirectURL string `json:"redirect_url"`
	Attributed  bool   `json:"attributed"`
}

// UpdateUPIRequest is the body of POST /api/update-upi.
type UpdateUPIRequest struct {
	UPIID string `json:"upiId"`
}

// AdminClicksResponse is the body of GET /api/admin/clicks.
type AdminClicksResponse struct {
	Status string         `json:"status"`
	Count  int            `json:"count"`
	Clicks []models.Click `json:"clicks"`
}

// --- JSON response helpers ---

func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

func writeJSONMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

// decodeJSONBody reads at most maxJSONBodyBytes of the body into v.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)).Decode(v)
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// Health answers liveness checks.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListApps returns the catalog, optionally filtered by ?category=.
func (h *Handler) ListApps(w http.ResponseWriter, r *http.Request) {
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	apps, err := h.deps.Store.ListApps(r.Context(), category)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Could not load apps.")
		return
	}
	writeJSON(w, http.StatusOK, apps)
}

// ListCategories returns the distinct catalog categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.deps.Store.ListCategories(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Could not load categories.")
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// AppQRCode renders the tracked link of an app as a PNG.
func (h *Handler) AppQRCode(w http.ResponseWriter, r *http.Request) {
	appID := chi.URLParam(r, "id")
	if _, ok := h.loadApp(w, r, appID); !ok {
		return
	}
	png, err := utils.GenerateQRCode(h.deps.Config.SiteURL, appID, r.URL.Query().Get("mine") == "1", qrCodeSize)
	if err != nil {
		h.log.Error("AppQRCode: encode failed", zap.String("app_id", appID), zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "Could not generate QR code.")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// RecordClick records an app card activation and returns the redirect target.
func (h *Handler) RecordClick(w http.ResponseWriter, r *http.Request) {
	var req ClickRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if strings.TrimSpace(req.AppID) == "" {
		writeJSONError(w, http.StatusBadRequest, "app_id is required.")
		return
	}
	res, ok := h.record(w, r, req.AppID, req.UseOwnReferral)
	if !ok {
		return
	}
	resp := ClickResponse{RedirectURL: res.RedirectURL, Attributed: res.Attributed}
	if res.Click != nil {
		resp.ClickID = res.Click.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

// FollowLink records an activation of a tracked link and redirects to the partner.
func (h *Handler) FollowLink(w http.ResponseWriter, r *http.Request) {
	res, ok := h.record(w, r, chi.URLParam(r, "id"), r.URL.Query().Get("mine") == "1")
	if !ok {
		return
	}
	http.Redirect(w, r, res.RedirectURL, http.StatusFound)
}

// record writes the error response itself and reports false on failure.
func (h *Handler) record(w http.ResponseWriter, r *http.Request, appID string, useOwn bool) (clicks.Result, bool) {
	app, ok := h.loadApp(w, r, appID)
	if !ok {
		return clicks.Result{}, false
	}
	res, err := h.deps.Recorder.Record(r.Context(), clicks.Activation{App: app, UseOwnReferral: useOwn}, attribution.NewCookieStore(w))
	if err != nil {
		if errors.Is(err, clicks.ErrInvalidLink) {
			writeJSONError(w, http.StatusBadRequest, "This app has no referral link yet.")
			return clicks.Result{}, false
		}
		h.log.Error("record: click recorder failed", zap.String("app_id", appID), zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "Could not open referral link.")
		return clicks.Result{}, false
	}
	return res, true
}

func (h *Handler) loadApp(w http.ResponseWriter, r *http.Request, appID string) (models.App, bool) {
	app, err := h.deps.Store.GetApp(r.Context(), appID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "App not found.")
			return models.App{}, false
		}
		writeJSONError(w, http.StatusInternalServerError, "Could not load app.")
		return models.App{}, false
	}
	return app, true
}

// SyncRewards is the admin reconciliation endpoint. The admin secret is
// checked before the body is read.
func (h *Handler) SyncRewards(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Workflow.Authorize(r.Header.Get("Authorization")); err != nil {
		if errors.Is(err, rewards.ErrServerMisconfigured) {
			writeJSONError(w, http.StatusInternalServerError, "Server configuration error.")
			return
		}
		writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req rewards.Request
	if err := decodeJSONBody(w, r, &req); err != nil {
		if isBodyTooLarge(err) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "Invalid request body: too large.")
			return
		}
		writeJSONError(w, http.StatusBadRequest, "Invalid request body: malformed JSON.")
		return
	}

	res, err := h.deps.Workflow.Apply(r.Context(), req)
	if err != nil {
		status, message := reconcileErrorResponse(err, req)
		writeJSONError(w, status, message)
		return
	}
	writeJSONMessage(w, res.Message)
}

func reconcileErrorResponse(err error, req rewards.Request) (int, string) {
	switch {
	case errors.Is(err, rewards.ErrInvalidRequest):
		return http.StatusBadRequest, "Invalid request body: clickId, userId and status ('confirmed' or 'rejected') are required."
	case errors.Is(err, rewards.ErrNotFound):
		return http.StatusNotFound, fmt.Sprintf("Click not found for id: %s and user: %s", req.ClickID, req.UserID)
	case errors.Is(err, rewards.ErrConflict):
		return http.StatusConflict, fmt.Sprintf("Click %s is no longer pending.", req.ClickID)
	default:
		return http.StatusInternalServerError, "Failed to update click status."
	}
}

// UpdateUPI stores the caller's payout destination.
func (h *Handler) UpdateUPI(w http.ResponseWriter, r *http.Request) {
	userID := session.UserID(r.Context())
	var req UpdateUPIRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	upiID, err := utils.ValidateUPIID(req.UPIID)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.deps.Store.SetPayoutDestination(r.Context(), userID, upiID); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Could not update UPI ID.")
		return
	}
	h.log.Info("UpdateUPI: payout destination updated", zap.String("user_id", userID))
	writeJSONMessage(w, "UPI ID updated successfully.")
}

// Dashboard returns the caller's clicks, balance and payout settings.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := session.FromContext(ctx)
	userID := identity.UserID

	userClicks, err := h.deps.Store.ListClicksByUser(ctx, userID, dashboardClicksLimit)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Could not load your clicks.")
		return
	}
	balance, err := h.deps.Store.GetBalance(ctx, userID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		writeJSONError(w, http.StatusInternalServerError, "Could not load your balance.")
		return
	}
	upiID, err := h.deps.Store.GetPayoutDestination(ctx, userID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Could not load your profile.")
		return
	}

	threshold := h.deps.Payouts.Threshold()
	writeJSON(w, http.StatusOK, models.Dashboard{
		UserID:    userID,
		Email:     identity.Email,
		Balance:   balance,
		Threshold: threshold,
		CanClaim:  balance >= threshold,
		UPIID:     upiID,
		Clicks:    userClicks,
	})
}

// UpsertApp creates or replaces a catalog entry. A missing id is generated.
func (h *Handler) UpsertApp(w http.ResponseWriter, r *http.Request) {
	var app models.App
	if err := decodeJSONBody(w, r, &app); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if err := validateCatalogApp(&app); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.deps.Store.UpsertApp(r.Context(), app); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			writeJSONError(w, http.StatusConflict, "An app with this name already exists.")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "Could not save app.")
		return
	}
	h.log.Info("UpsertApp: catalog entry saved",
		zap.String("app_id", app.ID), zap.String("name", app.Name), zap.String("admin", session.UserID(r.Context())))
	writeJSON(w, http.StatusOK, app)
}

// validateCatalogApp normalizes a and checks its links. Links may be left
// empty or set to the placeholder; anything else must be an absolute http(s) URL.
func validateCatalogApp(a *models.App) error {
	a.ID = strings.TrimSpace(a.ID)
	a.Name = strings.TrimSpace(a.Name)
	a.Category = strings.TrimSpace(a.Category)
	a.Link = strings.TrimSpace(a.Link)
	a.MyReferralLink = strings.TrimSpace(a.MyReferralLink)
	a.IconURL = strings.TrimSpace(a.IconURL)

	if a.Name == "" {
		return errors.New("name is required.")
	}
	if a.ReferrerBonus < 0 || a.RefereeBonus < 0 {
		return errors.New("bonuses cannot be negative.")
	}
	for field, link := range map[string]string{"link": a.Link, "my_referral_link": a.MyReferralLink} {
		if utils.IsUsableLink(link) && !utils.IsAbsoluteHTTPURL(link) {
			return fmt.Errorf("%s must be an absolute http(s) URL.", field)
		}
	}
	if a.IconURL != "" && !utils.IsAbsoluteHTTPURL(a.IconURL) {
		return errors.New("icon_url must be an absolute http(s) URL.")
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// AdminClicks lists recent clicks, pending by default.
// ?status=all drops the filter.
func (h *Handler) AdminClicks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var status models.ClickStatus
	switch raw := q.Get("status"); raw {
	case "":
		status = models.ClickPending
	case "all":
	default:
		parsed, err := models.ParseClickStatus(raw)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "status must be pending, confirmed, rejected or all.")
			return
		}
		status = parsed
	}

	limit := constants.ADMIN_CLICKS_DEFAULT_LIMIT
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSONError(w, http.StatusBadRequest, "limit must be a positive integer.")
			return
		}
		limit = n
	}
	if limit > constants.ADMIN_CLICKS_MAX_LIMIT {
		limit = constants.ADMIN_CLICKS_MAX_LIMIT
	}

	list, err := h.deps.Store.ListClicks(r.Context(), status, limit)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Could not load clicks.")
		return
	}
	label := string(status)
	if label == "" {
		label = "all"
	}
	writeJSON(w, http.StatusOK, AdminClicksResponse{Status: label, Count: len(list), Clicks: list})
}

// ExportClicks streams every recent click as an xlsx workbook.
func (h *Handler) ExportClicks(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.Store.ListClicks(r.Context(), "", constants.EXPORT_CLICKS_LIMIT)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Could not load clicks.")
		return
	}
	var buf bytes.Buffer
	if err := reports.WriteClicksReport(&buf, list); err != nil {
		h.log.Error("ExportClicks: report generation failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "Could not build report.")
		return
	}
	filename := fmt.Sprintf("clicks-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
