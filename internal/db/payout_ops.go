package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quickearn/internal/models"
)

// RecordPayout appends a payout attempt to payout_history.
func (s *Store) RecordPayout(ctx context.Context, p models.PayoutRecord) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := s.DB.ExecContext(ctx, `
        INSERT INTO payout_history (id, user_id, amount, destination, reference, status, simulated, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.UserID, p.Amount, p.Destination, p.Reference, p.Status, p.Simulated, p.CreatedAt)
	if err != nil {
		s.log.Error("RecordPayout: insert failed", zap.String("user_id", p.UserID), zap.String("reference", p.Reference), zap.Error(err))
		return fmt.Errorf("record payout %s: %w", p.Reference, err)
	}
	return nil
}

// ListPayoutsByUser returns the user's recorded payout attempts, newest first.
func (s *Store) ListPayoutsByUser(ctx context.Context, userID string) ([]models.PayoutRecord, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT id, user_id, amount, COALESCE(destination, ''), COALESCE(reference, ''),
               COALESCE(status, ''), COALESCE(simulated, TRUE), created_at
        FROM payout_history
        WHERE user_id = $1
        ORDER BY created_at DESC`, userID)
	if err != nil {
		s.log.Error("ListPayoutsByUser: query failed", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("list payouts for %s: %w", userID, err)
	}
	defer rows.Close()

	payouts := []models.PayoutRecord{}
	for rows.Next() {
		var p models.PayoutRecord
		if err := rows.Scan(&p.ID, &p.UserID, &p.Amount, &p.Destination, &p.Reference, &p.Status, &p.Simulated, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payout: %w", err)
		}
		payouts = append(payouts, p)
	}
	return payouts, rows.Err()
}
