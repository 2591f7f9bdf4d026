package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"quickearn/internal/constants"
	"quickearn/internal/models"
)

const clickColumns = `id, user_id, app, status, timestamp, meta`

func scanClick(row rowScanner) (models.Click, error) {
	var (
		c      models.Click
		status string
		meta   models.NullClickMeta
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.App, &status, &c.Timestamp, &meta); err != nil {
		return models.Click{}, err
	}
	parsed, err := models.ParseClickStatus(status)
	if err != nil {
		return models.Click{}, fmt.Errorf("click %s: %w", c.ID, err)
	}
	c.Status = parsed
	c.Meta = meta.Meta
	return c, nil
}

// InsertClick stores a new click. An empty UserID is stored as NULL.
func (s *Store) InsertClick(ctx context.Context, c models.Click) error {
	_, err := s.DB.ExecContext(ctx, `
        INSERT INTO referral_clicks (id, user_id, app, status, timestamp, meta)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.UserID, c.App, string(c.Status), c.Timestamp, c.Meta)
	if isUniqueViolation(err) {
		return fmt.Errorf("click %s: %w", c.ID, ErrDuplicate)
	}
	if err != nil {
		s.log.Error("InsertClick: insert failed", zap.String("click_id", c.ID), zap.String("app", c.App), zap.Error(err))
		return fmt.Errorf("insert click %s: %w", c.ID, err)
	}
	return nil
}

// GetClick loads one click by id.
func (s *Store) GetClick(ctx context.Context, clickID string) (models.Click, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+clickColumns+` FROM referral_clicks WHERE id = $1`, clickID)
	c, err := scanClick(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Click{}, ErrNotFound
		}
		s.log.Error("GetClick: query failed", zap.String("click_id", clickID), zap.Error(err))
		return models.Click{}, fmt.Errorf("get click %s: %w", clickID, err)
	}
	return c, nil
}

// TransitionClick moves the click identified by (clickID, userID) from
// pending to status. When confirming, the referee bonus of the click's app
// is credited to the user's reward balance in the same transaction.
// Returns ErrNotFound for an unknown pair and ErrNotPending when the click
// was already reconciled; in both cases nothing is written.
func (s *Store) TransitionClick(ctx context.Context, clickID, userID string, status models.ClickStatus) (models.ClickTransition, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		s.log.Error("TransitionClick: begin failed", zap.Error(err))
		return models.ClickTransition{}, fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback() // Rollback if commit is not called

	row := tx.QueryRowContext(ctx, `
        UPDATE referral_clicks SET status = $1
        WHERE id = $2 AND user_id = $3 AND status = $4
        RETURNING `+clickColumns,
		string(status), clickID, userID, constants.CLICK_STATUS_PENDING)
	click, err := scanClick(row)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.log.Error("TransitionClick: update failed", zap.String("click_id", clickID), zap.Error(err))
			return models.ClickTransition{}, fmt.Errorf("update click %s: %w", clickID, err)
		}
		var current string
		errStatus := tx.QueryRowContext(ctx,
			`SELECT status FROM referral_clicks WHERE id = $1 AND user_id = $2`, clickID, userID).Scan(&current)
		switch {
		case errors.Is(errStatus, sql.ErrNoRows):
			return models.ClickTransition{}, ErrNotFound
		case errStatus != nil:
			s.log.Error("TransitionClick: status lookup failed", zap.String("click_id", clickID), zap.Error(errStatus))
			return models.ClickTransition{}, fmt.Errorf("lookup click %s: %w", clickID, errStatus)
		default:
			s.log.Info("TransitionClick: click already reconciled",
				zap.String("click_id", clickID), zap.String("current", current), zap.String("requested", string(status)))
			return models.ClickTransition{}, ErrNotPending
		}
	}

	result := models.ClickTransition{Click: click}
	if status == models.ClickConfirmed {
		credited, err := creditRefereeBonusTx(ctx, tx, userID, click.App)
		if err != nil {
			s.log.Error("TransitionClick: credit failed", zap.String("click_id", clickID), zap.String("user_id", userID), zap.Error(err))
			return models.ClickTransition{}, err
		}
		result.Credited = credited
	}

	if err = tx.Commit(); err != nil {
		s.log.Error("TransitionClick: commit failed", zap.String("click_id", clickID), zap.Error(err))
		return models.ClickTransition{}, fmt.Errorf("commit transition: %w", err)
	}
	s.log.Info("TransitionClick: click reconciled",
		zap.String("click_id", clickID), zap.String("status", string(status)), zap.Float64("credited", result.Credited))
	return result, nil
}

// creditRefereeBonusTx adds the app's referee bonus to the user's balance.
// An app missing from the catalog credits nothing.
func creditRefereeBonusTx(ctx context.Context, tx *sql.Tx, userID, appName string) (float64, error) {
	var bonus float64
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(referee_bonus, 0) FROM referstore WHERE name = $1`, appName).Scan(&bonus)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("lookup referee bonus for %q: %w", appName, err)
	}
	if bonus <= 0 {
		return 0, nil
	}
	_, err = tx.ExecContext(ctx, `
        INSERT INTO rewards (user_id, balance, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (user_id) DO UPDATE
        SET balance = rewards.balance + EXCLUDED.balance, updated_at = NOW()`, userID, bonus)
	if err != nil {
		return 0, fmt.Errorf("credit reward balance: %w", err)
	}
	return bonus, nil
}

// ListClicks returns the most recent clicks, optionally filtered by status.
func (s *Store) ListClicks(ctx context.Context, status models.ClickStatus, limit int) ([]models.Click, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT `+clickColumns+` FROM referral_clicks
        WHERE ($1::text = '' OR status = $1)
        ORDER BY timestamp DESC
        LIMIT $2`, string(status), limit)
	if err != nil {
		s.log.Error("ListClicks: query failed", zap.String("status", string(status)), zap.Error(err))
		return nil, fmt.Errorf("list clicks: %w", err)
	}
	return s.collectClicks(rows, "ListClicks")
}

// ListClicksByUser returns the user's clicks, newest first.
func (s *Store) ListClicksByUser(ctx context.Context, userID string, limit int) ([]models.Click, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT `+clickColumns+` FROM referral_clicks
        WHERE user_id = $1
        ORDER BY timestamp DESC
        LIMIT $2`, userID, limit)
	if err != nil {
		s.log.Error("ListClicksByUser: query failed", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("list clicks for user: %w", err)
	}
	return s.collectClicks(rows, "ListClicksByUser")
}

func (s *Store) collectClicks(rows *sql.Rows, op string) ([]models.Click, error) {
	defer rows.Close()
	clicks := []models.Click{}
	for rows.Next() {
		c, err := scanClick(rows)
		if err != nil {
			s.log.Error(op+": scan failed", zap.Error(err))
			return nil, fmt.Errorf("scan click: %w", err)
		}
		clicks = append(clicks, c)
	}
	if err := rows.Err(); err != nil {
		s.log.Error(op+": rows error", zap.Error(err))
		return nil, fmt.Errorf("iterate clicks: %w", err)
	}
	return clicks, nil
}

// ClickStatusCounts returns the number of clicks per status.
func (s *Store) ClickStatusCounts(ctx context.Context) ([]models.ClickStatusCount, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT status, COUNT(*) FROM referral_clicks
        GROUP BY status
        ORDER BY status`)
	if err != nil {
		s.log.Error("ClickStatusCounts: query failed", zap.Error(err))
		return nil, fmt.Errorf("count clicks: %w", err)
	}
	defer rows.Close()

	var counts []models.ClickStatusCount
	for rows.Next() {
		var sc models.ClickStatusCount
		var status string
		if err := rows.Scan(&status, &sc.Count); err != nil {
			return nil, fmt.Errorf("scan click count: %w", err)
		}
		sc.Status = models.ClickStatus(status)
		counts = append(counts, sc)
	}
	return counts, rows.Err()
}
