package db

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// IsAdmin reports whether the user is on the admin allow-list.
func (s *Store) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	var exists bool
	err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM admin_users WHERE user_id = $1)`, userID).Scan(&exists)
	if err != nil {
		s.log.Error("IsAdmin: query failed", zap.String("user_id", userID), zap.Error(err))
		return false, fmt.Errorf("check admin %s: %w", userID, err)
	}
	return exists, nil
}

// AddAdmin puts the user on the allow-list. Adding twice is a no-op.
func (s *Store) AddAdmin(ctx context.Context, userID string) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO admin_users (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		s.log.Error("AddAdmin: insert failed", zap.String("user_id", userID), zap.Error(err))
		return fmt.Errorf("add admin %s: %w", userID, err)
	}
	return nil
}
