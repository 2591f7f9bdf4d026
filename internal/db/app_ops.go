package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"quickearn/internal/models"
)

const appColumns = `id, name, COALESCE(category, ''), COALESCE(referrer_bonus, 0), COALESCE(referee_bonus, 0),
        COALESCE(task, ''), COALESCE(link, ''), COALESCE(my_referral_link, ''), COALESCE(icon_url, '')`

func scanApp(row rowScanner) (models.App, error) {
	var a models.App
	err := row.Scan(&a.ID, &a.Name, &a.Category, &a.ReferrerBonus, &a.RefereeBonus,
		&a.Task, &a.Link, &a.MyReferralLink, &a.IconURL)
	return a, err
}

// ListApps returns the catalog, optionally restricted to one category.
func (s *Store) ListApps(ctx context.Context, category string) ([]models.App, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT `+appColumns+` FROM referstore
        WHERE ($1::text = '' OR category = $1)
        ORDER BY name`, category)
	if err != nil {
		s.log.Error("ListApps: query failed", zap.String("category", category), zap.Error(err))
		return nil, fmt.Errorf("list apps: %w", err)
	}
	defer rows.Close()

	apps := []models.App{}
	for rows.Next() {
		a, err := scanApp(rows)
		if err != nil {
			s.log.Error("ListApps: scan failed", zap.Error(err))
			return nil, fmt.Errorf("scan app: %w", err)
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

// GetApp loads one catalog entry by id.
func (s *Store) GetApp(ctx context.Context, id string) (models.App, error) {
	a, err := scanApp(s.DB.QueryRowContext(ctx, `SELECT `+appColumns+` FROM referstore WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.App{}, ErrNotFound
		}
		s.log.Error("GetApp: query failed", zap.String("app_id", id), zap.Error(err))
		return models.App{}, fmt.Errorf("get app %s: %w", id, err)
	}
	return a, nil
}

// ListCategories returns the distinct non-empty categories, sorted.
func (s *Store) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT DISTINCT category FROM referstore
        WHERE category IS NOT NULL AND category <> ''
        ORDER BY category`)
	if err != nil {
		s.log.Error("ListCategories: query failed", zap.Error(err))
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// UpsertApp inserts or replaces a catalog entry. A name already used by
// another id yields ErrDuplicate.
func (s *Store) UpsertApp(ctx context.Context, a models.App) error {
	_, err := s.DB.ExecContext(ctx, `
        INSERT INTO referstore (id, name, category, referrer_bonus, referee_bonus, task, link, my_referral_link, icon_url)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (id) DO UPDATE SET
            name = EXCLUDED.name,
            category = EXCLUDED.category,
            referrer_bonus = EXCLUDED.referrer_bonus,
            referee_bonus = EXCLUDED.referee_bonus,
            task = EXCLUDED.task,
            link = EXCLUDED.link,
            my_referral_link = EXCLUDED.my_referral_link,
            icon_url = EXCLUDED.icon_url`,
		a.ID, a.Name, a.Category, a.ReferrerBonus, a.RefereeBonus, a.Task, a.Link, a.MyReferralLink, a.IconURL)
	if isUniqueViolation(err) {
		s.log.Warn("UpsertApp: app name already used by another id", zap.String("app_id", a.ID), zap.String("name", a.Name))
		return fmt.Errorf("app name %q: %w", a.Name, ErrDuplicate)
	}
	if err != nil {
		s.log.Error("UpsertApp: upsert failed", zap.String("app_id", a.ID), zap.Error(err))
		return fmt.Errorf("upsert app %s: %w", a.ID, err)
	}
	return nil
}
