package models

import "time"

// Profile holds per-user payout settings (table profiles).
type Profile struct {
	UserID    string    `json:"user_id"`
	UPIID     string    `json:"upi_id"` // payout destination, decrypted
	UpdatedAt time.Time `json:"updated_at"`
}

// RewardBalance is a user's row in the reward ledger (table rewards).
type RewardBalance struct {
	UserID    string    `json:"user_id"`
	Balance   float64   `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Dashboard is what a signed-in user sees about their own rewards.
type Dashboard struct {
	UserID    string  `json:"user_id"`
	Email     string  `json:"email,omitempty"`
	Balance   float64 `json:"balance"`
	Threshold float64 `json:"threshold"`
	CanClaim  bool    `json:"can_claim"`
	UPIID     string  `json:"upi_id"`
	Clicks    []Click `json:"clicks"`
}
