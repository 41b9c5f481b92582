// Package mariadb reads the employee roster from the HR system's MariaDB.
package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Dial and read timeouts applied when the DSN sets none.
const (
	defaultDialTimeout = 5 * time.Second
	defaultReadTimeout = 30 * time.Second
)

// Pool is a small connection pool to the HR database. Only reads are issued.
type Pool struct {
	db *sql.DB
}

// NewPool parses dsn, fills in missing timeouts and pings the server.
func NewPool(dsn string) (*Pool, error) {
	if dsn == "" {
		return nil, errors.New("HR database DSN is required")
	}

	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid HR database DSN: %w", err)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultDialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create MariaDB connector: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MariaDB at %s: %w", cfg.Addr, err)
	}

	return &Pool{db: db}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db == nil {
		return nil
	}
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("closing HR database connection: %w", err)
	}
	return nil
}
