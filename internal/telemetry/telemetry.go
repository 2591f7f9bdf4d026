// Package telemetry forwards business events to an analytics collector.
// Delivery is best-effort: emitters never see an error.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const (
	ga4Endpoint      = "https://www.google-analytics.com/mp/collect"
	ga4Timeout       = 5 * time.Second
	fallbackClientID = "server_event_client"

	// AttrUserID selects the GA4 client_id when present.
	AttrUserID = "user_id"
)

// Sink receives named events with string attributes.
type Sink interface {
	Emit(ctx context.Context, name string, attrs map[string]string)
}

// Nop drops every event.
type Nop struct{}

// Emit implements Sink.
func (Nop) Emit(context.Context, string, map[string]string) {}

// GA4 sends events through the Google Analytics 4 Measurement Protocol.
type GA4 struct {
	measurementID string
	apiSecret     string
	endpoint      string
	client        *http.Client
	log           *zap.Logger
}

// NewGA4 builds a GA4 sink. An empty endpoint selects the public collector.
func NewGA4(measurementID, apiSecret, endpoint string, log *zap.Logger) *GA4 {
	if endpoint == "" {
		endpoint = ga4Endpoint
	}
	return &GA4{
		measurementID: measurementID,
		apiSecret:     apiSecret,
		endpoint:      endpoint,
		client:        &http.Client{Timeout: ga4Timeout},
		log:           log,
	}
}

type ga4Event struct {
	Name   string            `json:"name"`
	Params map[string]string `json:"params,omitempty"`
}

type ga4Payload struct {
	ClientID string     `json:"client_id"`
	UserID   string     `json:"user_id,omitempty"`
	Events   []ga4Event `json:"events"`
}

// Emit implements Sink. Failures are logged and dropped.
func (g *GA4) Emit(ctx context.Context, name string, attrs map[string]string) {
	if err := g.send(ctx, name, attrs); err != nil {
		g.log.Warn("GA4.Emit: event not delivered", zap.String("event", name), zap.Error(err))
		return
	}
	g.log.Debug("GA4.Emit: event sent", zap.String("event", name))
}

func (g *GA4) send(ctx context.Context, name string, attrs map[string]string) error {
	payload := ga4Payload{
		ClientID: fallbackClientID,
		Events:   []ga4Event{{Name: name, Params: attrs}},
	}
	if uid := attrs[AttrUserID]; uid != "" {
		payload.ClientID = uid
		payload.UserID = uid
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	q := url.Values{}
	q.Set("measurement_id", g.measurementID)
	q.Set("api_secret", g.apiSecret)
	target := g.endpoint + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("collector answered %d", resp.StatusCode)
	}
	return nil
}
