package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"quickearn/internal/utils"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("db: not found")
	// ErrNotPending is returned when a click exists but was already reconciled.
	ErrNotPending = errors.New("db: click is not pending")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("db: duplicate value")
)

// pgUniqueViolation is the SQLSTATE of unique_violation.
const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}

// Store is the Postgres-backed data layer.
type Store struct {
	DB     *sql.DB
	cipher *utils.Cipher
	log    *zap.Logger
}

// NewStore wraps an already opened handle.
func NewStore(db *sql.DB, cipher *utils.Cipher, log *zap.Logger) *Store {
	return &Store{DB: db, cipher: cipher, log: log}
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string, cipher *utils.Cipher, log *zap.Logger) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(20)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info("Connected to database")
	return NewStore(db, cipher, log), nil
}

// Migrate creates the tables and indexes if they don't exist.
func (s *Store) Migrate(ctx context.Context) (err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			s.log.Error("Migrate: rolling back", zap.Error(err))
			tx.Rollback()
		}
	}()

	createTablesSQL := `
        CREATE TABLE IF NOT EXISTS referstore (
            id TEXT PRIMARY KEY,
            name TEXT UNIQUE NOT NULL,
            category TEXT,
            referrer_bonus DOUBLE PRECISION DEFAULT 0,
            referee_bonus DOUBLE PRECISION DEFAULT 0,
            task TEXT,
            link TEXT,
            my_referral_link TEXT,
            icon_url TEXT
        );
        CREATE TABLE IF NOT EXISTS referral_clicks (
            id TEXT PRIMARY KEY,
            user_id TEXT,
            app TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'confirmed', 'rejected')),
            timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            meta JSONB
        );
        CREATE TABLE IF NOT EXISTS rewards (
            user_id TEXT PRIMARY KEY,
            balance DOUBLE PRECISION NOT NULL DEFAULT 0,
            updated_at TIMESTAMPTZ DEFAULT NOW()
        );
        CREATE TABLE IF NOT EXISTS profiles (
            user_id TEXT PRIMARY KEY,
            upi_id TEXT,
            updated_at TIMESTAMPTZ DEFAULT NOW()
        );
        CREATE TABLE IF NOT EXISTS admin_users (
            id SERIAL PRIMARY KEY,
            user_id TEXT UNIQUE NOT NULL
        );
        CREATE TABLE IF NOT EXISTS payout_history (
            id TEXT PRIMARY KEY,
            user_id TEXT NOT NULL,
            amount DOUBLE PRECISION NOT NULL,
            destination TEXT,
            reference TEXT,
            status TEXT,
            simulated BOOLEAN DEFAULT TRUE,
            created_at TIMESTAMPTZ DEFAULT NOW()
        );`
	if _, err = tx.ExecContext(ctx, createTablesSQL); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit table creation: %w", err)
	}
	s.log.Info("Tables created (if not exist)")

	createIndexesSQL := `
        CREATE INDEX IF NOT EXISTS idx_referral_clicks_user_id ON referral_clicks(user_id);
        CREATE INDEX IF NOT EXISTS idx_referral_clicks_status_timestamp ON referral_clicks(status, timestamp);
        CREATE INDEX IF NOT EXISTS idx_referstore_category ON referstore(category);
        CREATE INDEX IF NOT EXISTS idx_payout_history_user_id ON payout_history(user_id);
    `
	// One statement at a time so a failing index doesn't hide the rest.
	for _, stmt := range strings.Split(strings.TrimSpace(createIndexesSQL), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, errIdx := s.DB.ExecContext(ctx, stmt); errIdx != nil {
			s.log.Warn("Migrate: index creation failed", zap.String("statement", stmt), zap.Error(errIdx))
		}
	}

	s.log.Info("Database initialization complete")
	return nil
}

// Close closes the database handle.
func (s *Store) Close() {
	if s.DB != nil {
		s.DB.Close()
		s.log.Info("Database connection closed")
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}
