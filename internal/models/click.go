package models

import (
	"fmt"
	"time"

	"quickearn/internal/constants"
)

// ClickStatus is the reconciliation state of a referral click.
type ClickStatus string

const (
	ClickPending   ClickStatus = constants.CLICK_STATUS_PENDING
	ClickConfirmed ClickStatus = constants.CLICK_STATUS_CONFIRMED
	ClickRejected  ClickStatus = constants.CLICK_STATUS_REJECTED
)

// ParseClickStatus accepts only the three known statuses.
func ParseClickStatus(s string) (ClickStatus, error) {
	switch ClickStatus(s) {
	case ClickPending, ClickConfirmed, ClickRejected:
		return ClickStatus(s), nil
	}
	return "", fmt.Errorf("unknown click status %q", s)
}

// IsTerminal reports whether no further transition is allowed.
func (s ClickStatus) IsTerminal() bool {
	return s == ClickConfirmed || s == ClickRejected
}

// Click is one activation of a referral link (table referral_clicks).
type Click struct {
	ID        string      `json:"id"`
	UserID    NullString  `json:"user_id"` // NULL for anonymous clicks
	App       string      `json:"app"`
	Status    ClickStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Meta      *ClickMeta  `json:"meta,omitempty"`
}

// ClickMeta is the attribution data captured at click time (column meta, JSONB).
type ClickMeta struct {
	ReferrerID     string `json:"referrer_id,omitempty"`
	UseOwnReferral bool   `json:"use_own_referral"`
	LinkKind       string `json:"link_kind,omitempty"` // "personal" or "default"
}

// ClickTransition is the outcome of a pending -> terminal status change.
type ClickTransition struct {
	Click    Click
	Credited float64 // amount added to the reward ledger, 0 on reject
}

// ClickStatusCount is one row of the per-status breakdown.
type ClickStatusCount struct {
	Status ClickStatus `json:"status"`
	Count  int         `json:"count"`
}
