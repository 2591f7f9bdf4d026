// Package clicks records referral link activations.
package clicks

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quickearn/internal/attribution"
	"quickearn/internal/constants"
	"quickearn/internal/metrics"
	"quickearn/internal/models"
	"quickearn/internal/session"
	"quickearn/internal/telemetry"
	"quickearn/internal/utils"
)

// ErrInvalidLink means the app has no usable destination. Nothing is recorded.
var ErrInvalidLink = errors.New("no usable referral link")

const (
	linkKindPersonal = "personal"
	linkKindDefault  = "default"
)

// ClickWriter persists new clicks.
type ClickWriter interface {
	InsertClick(ctx context.Context, c models.Click) error
}

// Activation is one press of an app's referral button.
type Activation struct {
	App            models.App
	UseOwnReferral bool
}

// Result describes a recorded activation.
type Result struct {
	Click       *models.Click // nil when the click could not be stored
	RedirectURL string
	ReferrerID  string
	Attributed  bool // referrer id written to the attribution store
}

// Recorder turns activations into pending clicks and tagged redirects.
type Recorder struct {
	clicks  ClickWriter
	sink    telemetry.Sink
	metrics *metrics.Metrics
	now     func() time.Time
	log     *zap.Logger
}

// NewRecorder builds a Recorder. sink and m may be nil.
func NewRecorder(clicks ClickWriter, sink telemetry.Sink, m *metrics.Metrics, log *zap.Logger) *Recorder {
	if sink == nil {
		sink = telemetry.Nop{}
	}
	return &Recorder{clicks: clicks, sink: sink, metrics: m, now: time.Now, log: log}
}

// ResolveLink picks the destination of an activation and reports which
// link it came from. It returns "#" when the app has no usable link.
func ResolveLink(app models.App, useOwnReferral bool) (link, kind string) {
	if useOwnReferral && utils.IsUsableLink(app.MyReferralLink) {
		return app.MyReferralLink, linkKindPersonal
	}
	if utils.IsUsableLink(app.Link) {
		return app.Link, linkKindDefault
	}
	if utils.IsUsableLink(app.MyReferralLink) {
		return app.MyReferralLink, linkKindPersonal
	}
	return constants.PLACEHOLDER_LINK, ""
}

// Record stores a pending click for the activation and returns where the
// visitor should be sent. Storage and telemetry failures are logged and
// never fail the call; only a missing link does. store may be nil.
func (r *Recorder) Record(ctx context.Context, act Activation, store attribution.Store) (Result, error) {
	link, kind := ResolveLink(act.App, act.UseOwnReferral)
	if !utils.IsUsableLink(link) {
		r.log.Warn("Record: app has no usable link", zap.String("app", act.App.Name))
		return Result{}, ErrInvalidLink
	}

	referrerID, err := attribution.ExtractReferrerID(link)
	if err != nil {
		r.log.Warn("Record: could not parse referral link", zap.String("app", act.App.Name), zap.Error(err))
		referrerID = ""
	}

	res := Result{ReferrerID: referrerID}
	identity, signedIn := session.FromContext(ctx)
	if referrerID != "" && !signedIn && store != nil {
		store.SetReferrer(referrerID)
		res.Attributed = true
	}

	click := models.Click{
		ID:        uuid.NewString(),
		UserID:    models.NewNullString(identity.UserID),
		App:       act.App.Name,
		Status:    models.ClickPending,
		Timestamp: r.now().UTC(),
	}
	if referrerID != "" {
		click.Meta = &models.ClickMeta{
			ReferrerID:     referrerID,
			UseOwnReferral: act.UseOwnReferral,
			LinkKind:       kind,
		}
	}

	if err := r.clicks.InsertClick(ctx, click); err != nil {
		r.log.Error("Record: click not stored, continuing with redirect",
			zap.String("app", act.App.Name), zap.String("user_id", identity.UserID), zap.Error(err))
		r.metrics.ClickPersistFailed()
	} else {
		res.Click = &click
		r.metrics.ClickRecorded(res.Attributed)
	}

	res.RedirectURL = TagLink(link, act.App.Name)

	attrs := map[string]string{
		"app_name":  act.App.Name,
		"link_kind": kind,
	}
	if res.Click != nil {
		attrs["click_id"] = click.ID
	}
	if referrerID != "" {
		attrs["referrer_id"] = referrerID
	}
	if identity.UserID != "" {
		attrs[telemetry.AttrUserID] = identity.UserID
	}
	r.sink.Emit(ctx, constants.EVENT_REFERRAL_CLICK, attrs)

	return res, nil
}

// TagLink appends the campaign parameters to link, keeping its query.
func TagLink(link, appName string) string {
	u, err := url.Parse(link)
	if err != nil {
		sep := "?"
		if strings.Contains(link, "?") {
			sep = "&"
		}
		return link + sep + campaignParams(appName).Encode()
	}
	q := u.Query()
	for k, v := range campaignParams(appName) {
		q[k] = v
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func campaignParams(appName string) url.Values {
	v := url.Values{}
	v.Set("utm_source", constants.UTM_SOURCE)
	v.Set("utm_medium", constants.UTM_MEDIUM)
	v.Set("utm_campaign", appName)
	return v
}
