package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quickearn/internal/constants"
	"quickearn/internal/models"
)

// Request describes a payout of a user's reward balance.
type Request struct {
	UserID      string
	Amount      float64
	Destination string // UPI id
	Narration   string
}

// Result is what the payout provider reports back.
type Result struct {
	Reference string
	Status    string
	Simulated bool
}

// Initiator starts a payout. A real provider integration implements this
// without touching the reconciliation flow.
type Initiator interface {
	InitiatePayout(ctx context.Context, req Request) (Result, error)
}

// Recorder stores payout attempts.
type Recorder interface {
	RecordPayout(ctx context.Context, rec models.PayoutRecord) error
}

// Simulator logs the payout it would make and never moves money.
type Simulator struct {
	recorder Recorder
	log      *zap.Logger
	now      func() time.Time
}

// NewSimulator returns a Simulator. recorder may be nil.
func NewSimulator(recorder Recorder, log *zap.Logger) *Simulator {
	return &Simulator{recorder: recorder, log: log, now: time.Now}
}

// InitiatePayout implements Initiator.
func (s *Simulator) InitiatePayout(ctx context.Context, req Request) (Result, error) {
	if req.UserID == "" || req.Destination == "" {
		return Result{}, fmt.Errorf("payout needs a user and a destination")
	}
	if req.Amount <= 0 {
		return Result{}, fmt.Errorf("payout amount must be positive, got %v", req.Amount)
	}

	// uuid doubles as the idempotency reference a real provider would need.
	res := Result{
		Reference: constants.PAYOUT_REFERENCE_PREFIX + uuid.New().String(),
		Status:    constants.PAYOUT_STATUS_SIMULATED,
		Simulated: true,
	}

	s.log.Info("PAYOUT INITIATION (simulation)",
		zap.String("user_id", req.UserID),
		zap.Float64("amount", req.Amount),
		zap.String("destination", req.Destination),
		zap.String("reference", res.Reference),
		zap.String("narration", req.Narration))

	if s.recorder != nil {
		rec := models.PayoutRecord{
			ID:          uuid.New().String(),
			UserID:      req.UserID,
			Amount:      req.Amount,
			Destination: req.Destination,
			Reference:   res.Reference,
			Status:      res.Status,
			Simulated:   true,
			CreatedAt:   s.now().UTC(),
		}
		if err := s.recorder.RecordPayout(ctx, rec); err != nil {
			// the history row is informational, the decision stands
			s.log.Warn("Simulator.InitiatePayout: payout history not written",
				zap.String("reference", res.Reference), zap.Error(err))
		}
	}
	return res, nil
}
