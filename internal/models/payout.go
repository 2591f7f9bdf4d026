package models

import "time"

// PayoutRecord is one payout attempt written to payout_history.
// Simulated attempts never move money.
type PayoutRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Amount      float64   `json:"amount"`
	Destination string    `json:"destination"`
	Reference   string    `json:"reference"`
	Status      string    `json:"status"`
	Simulated   bool      `json:"simulated"`
	CreatedAt   time.Time `json:"created_at"`
}
