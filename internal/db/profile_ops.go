package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// GetPayoutDestination returns the user's UPI id, or "" when none is set.
func (s *Store) GetPayoutDestination(ctx context.Context, userID string) (string, error) {
	var stored sql.NullString
	err := s.DB.QueryRowContext(ctx, `SELECT upi_id FROM profiles WHERE user_id = $1`, userID).Scan(&stored)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		s.log.Error("GetPayoutDestination: query failed", zap.String("user_id", userID), zap.Error(err))
		return "", fmt.Errorf("get payout destination for %s: %w", userID, err)
	}
	if !stored.Valid || stored.String == "" {
		return "", nil
	}
	upiID, err := s.cipher.Decrypt(stored.String)
	if err != nil {
		s.log.Error("GetPayoutDestination: decrypt failed", zap.String("user_id", userID), zap.Error(err))
		return "", fmt.Errorf("decrypt payout destination: %w", err)
	}
	return upiID, nil
}

// SetPayoutDestination creates or replaces the user's UPI id.
func (s *Store) SetPayoutDestination(ctx context.Context, userID, upiID string) error {
	stored, err := s.cipher.Encrypt(upiID)
	if err != nil {
		s.log.Error("SetPayoutDestination: encrypt failed", zap.String("user_id", userID), zap.Error(err))
		return fmt.Errorf("encrypt payout destination: %w", err)
	}
	_, err = s.DB.ExecContext(ctx, `
        INSERT INTO profiles (user_id, upi_id, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (user_id) DO UPDATE
        SET upi_id = EXCLUDED.upi_id, updated_at = NOW()`, userID, stored)
	if err != nil {
		s.log.Error("SetPayoutDestination: upsert failed", zap.String("user_id", userID), zap.Error(err))
		return fmt.Errorf("set payout destination for %s: %w", userID, err)
	}
	s.log.Info("SetPayoutDestination: updated", zap.String("user_id", userID))
	return nil
}
