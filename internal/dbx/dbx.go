// Package dbx wraps database/sql with the connection-pool bounds, health
// checks, and transaction helpers the teacher's shared/database package
// is exercised against (see its surviving test file), backed by
// github.com/lib/pq for PostgreSQL.
package dbx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/nivocore/paycore/internal/config"
)

// DB wraps *sql.DB with paycore's pool defaults and transaction helpers.
type DB struct {
	*sql.DB
}

// NewFromConfig opens a connection pool from a loaded Config.
func NewFromConfig(cfg *config.Config) (*DB, error) {
	return NewFromURL(cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxIdleTime)
}

// NewFromURL opens a connection pool against a DSN, applying pool bounds.
func NewFromURL(dsn string, maxOpen, maxIdle int, connMaxIdleTime time.Duration) (*DB, error) {
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if maxOpen <= 0 {
		maxOpen = 25
	}
	if maxIdle <= 0 {
		maxIdle = 5
	}
	if connMaxIdleTime <= 0 {
		connMaxIdleTime = 5 * time.Minute
	}

	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &DB{DB: sqlDB}, nil
}

// HealthCheck verifies the connection is alive.
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.PingContext(ctx)
}

// Transaction runs fn inside a database transaction at the default
// isolation level, committing on success and rolling back on error or
// panic.
func (db *DB) Transaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return db.TransactionWithOptions(ctx, nil, fn)
}

// TransactionWithOptions runs fn inside a transaction opened with the
// given *sql.TxOptions (e.g. sql.LevelSerializable for the transfer
// coordinator's serializable section).
func (db *DB) TransactionWithOptions(ctx context.Context, opts *sql.TxOptions, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	var committed bool
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

// IsUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation (SQLSTATE 23505), the mechanism the Transaction Log Store
// relies on to enforce UNIQUE(idempotency_key).
func IsUniqueViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return false
	}
	return pqErr.Code == "23505"
}

// IsSerializationFailure reports whether err is a SERIALIZABLE isolation
// conflict (SQLSTATE 40001), which the transfer coordinator treats the
// same as a VersionConflict — the caller may retry with the same key.
func IsSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "40001"
}
