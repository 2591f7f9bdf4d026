package rewards

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"quickearn/internal/constants"
	"quickearn/internal/db"
	"quickearn/internal/payments"
	"quickearn/internal/utils"
)

// Outcome is the result class of a payout decision.
type Outcome string

const (
	OutcomeBalanceUnverifiable Outcome = "balance_unverifiable"
	OutcomeRecordNotFound      Outcome = "record_not_found"
	OutcomeBelowThreshold      Outcome = "below_threshold"
	OutcomeDestinationMissing  Outcome = "destination_missing"
	OutcomePayoutInitiated     Outcome = "payout_initiated"
	OutcomePayoutFailed        Outcome = "payout_failed"
)

// Ledger reads reward balances. A user without a balance row yields db.ErrNotFound.
type Ledger interface {
	GetBalance(ctx context.Context, userID string) (float64, error)
}

// ProfileReader looks up a user's payout destination, "" when none is on file.
type ProfileReader interface {
	GetPayoutDestination(ctx context.Context, userID string) (string, error)
}

// Decision is the payout verdict for a freshly credited user.
type Decision struct {
	Outcome     Outcome
	Balance     float64
	Threshold   float64
	Destination string
	Message     string
	Payout      *payments.Result
}

// PayoutEngine decides whether a confirmed click makes the user eligible
// for a payout and hands eligible payouts to the Initiator.
type PayoutEngine struct {
	ledger    Ledger
	profiles  ProfileReader
	payouts   payments.Initiator
	threshold float64
	log       *zap.Logger
}

// NewPayoutEngine builds an engine. A non-positive threshold selects the
// default; a nil initiator selects the simulator without history.
func NewPayoutEngine(ledger Ledger, profiles ProfileReader, payouts payments.Initiator, threshold float64, log *zap.Logger) *PayoutEngine {
	if threshold <= 0 {
		threshold = constants.DEFAULT_PAYOUT_THRESHOLD
	}
	if payouts == nil {
		payouts = payments.NewSimulator(nil, log)
	}
	return &PayoutEngine{ledger: ledger, profiles: profiles, payouts: payouts, threshold: threshold, log: log}
}

// Threshold returns the minimum balance for a payout.
func (e *PayoutEngine) Threshold() float64 { return e.threshold }

// Decide never fails: read errors degrade into an explanatory message.
func (e *PayoutEngine) Decide(ctx context.Context, userID, appName, clickID string) Decision {
	d := Decision{Threshold: e.threshold}

	balance, err := e.ledger.GetBalance(ctx, userID)
	switch {
	case errors.Is(err, db.ErrNotFound):
		d.Outcome = OutcomeRecordNotFound
		d.Message = "Reward credited. User reward record not found or balance is zero."
		return d
	case err != nil:
		e.log.Error("PayoutEngine.Decide: balance read failed", zap.String("user_id", userID), zap.Error(err))
		d.Outcome = OutcomeBalanceUnverifiable
		d.Message = "Could not verify balance for payout."
		return d
	}
	d.Balance = balance

	if balance < e.threshold {
		d.Outcome = OutcomeBelowThreshold
		d.Message = fmt.Sprintf("Reward credited. Balance (%s) is below payout threshold (%s).",
			utils.FormatRupees(balance), utils.FormatRupees(e.threshold))
		return d
	}

	e.log.Info("PayoutEngine.Decide: balance meets threshold, attempting payout",
		zap.String("user_id", userID), zap.Float64("balance", balance))

	destination, err := e.profiles.GetPayoutDestination(ctx, userID)
	if err != nil || destination == "" {
		e.log.Warn("PayoutEngine.Decide: payout destination unavailable", zap.String("user_id", userID), zap.Error(err))
		d.Outcome = OutcomeDestinationMissing
		d.Message = "Reward credited, but payout failed: UPI ID not found on user profile."
		return d
	}
	d.Destination = destination

	res, err := e.payouts.InitiatePayout(ctx, payments.Request{
		UserID:      userID,
		Amount:      balance,
		Destination: destination,
		Narration:   fmt.Sprintf("QuickEarn reward payout for %s (click %s)", appName, clickID),
	})
	if err != nil {
		e.log.Error("PayoutEngine.Decide: payout failed", zap.String("user_id", userID), zap.Error(err))
		d.Outcome = OutcomePayoutFailed
		d.Message = "Reward credited, but payout failed: " + err.Error()
		return d
	}

	d.Outcome = OutcomePayoutInitiated
	d.Payout = &res
	if res.Simulated {
		d.Message = fmt.Sprintf("Reward credited. Payout of %s to %s would be initiated.", utils.FormatRupees(balance), destination)
	} else {
		d.Message = fmt.Sprintf("Reward credited and payout initiated (ID: %s).", res.Reference)
	}
	return d
}
