package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// GetBalance returns the user's reward balance.
// A user without a ledger row yields ErrNotFound.
func (s *Store) GetBalance(ctx context.Context, userID string) (float64, error) {
	var balance float64
	err := s.DB.QueryRowContext(ctx, `SELECT balance FROM rewards WHERE user_id = $1`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		s.log.Error("GetBalance: query failed", zap.String("user_id", userID), zap.Error(err))
		return 0, fmt.Errorf("get balance for %s: %w", userID, err)
	}
	return balance, nil
}
