// Package database opens the SQL connection pool and provides transaction and
// per-user locking helpers shared by the repositories.
package database

import (
	"context"
	"database/sql"
	"slices"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"

	apperrors "github.com/heirclark/dataguard/internal/errors"
)

// Supported driver names.
const (
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
	DriverMySQL    = "mysql"
)

const defaultPingTimeout = 5 * time.Second

// Config holds the pool settings.
type Config struct {
	Driver             string
	ConnectionString   string
	MaxOpenConnections int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
	ConnMaxIdleTime    time.Duration

	// PingTimeout bounds the startup ping. Zero uses five seconds.
	PingTimeout time.Duration
}

// Connect opens the pool and pings it. An unsupported driver is ErrConfig; an
// unreachable database is ErrPersistence. The pool is closed on failure.
func Connect(ctx context.Context, cfg Config) (*sql.DB, error) {
	if !SupportedDriver(cfg.Driver) {
		return nil, apperrors.Wrapf(apperrors.ErrConfig, "unsupported database driver %q", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, cfg.ConnectionString)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrConfig, "open %s pool: %v", cfg.Driver, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, apperrors.Wrapf(apperrors.ErrPersistence, "ping %s: %v", cfg.Driver, err)
	}

	return db, nil
}

// SupportedDriver reports whether driver is one of the registered drivers.
func SupportedDriver(driver string) bool {
	return slices.Contains([]string{DriverPostgres, DriverPgx, DriverMySQL}, driver)
}

// IsPostgres reports whether driver speaks PostgreSQL. Both lib/pq and the pgx
// stdlib adapter use $n placeholders.
func IsPostgres(driver string) bool {
	return driver == DriverPostgres || driver == DriverPgx
}
