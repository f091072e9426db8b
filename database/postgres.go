package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// OpenPostgres connects to the database at dbURL and verifies the connection.
func OpenPostgres(ctx context.Context, dbURL string) (*sql.DB, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// CreateTables creates the necessary tables if they don't exist
func CreateTables(ctx context.Context, db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS tracked_products (
			id BIGSERIAL PRIMARY KEY,
			product_url TEXT NOT NULL,
			product_name TEXT NOT NULL,
			site_name VARCHAR(64) NOT NULL,
			category VARCHAR(32) NOT NULL,
			target_price NUMERIC(12,2) NOT NULL CHECK (target_price > 0),
			current_price NUMERIC(12,2),
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			notification_sent BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_checked TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tracked_products_active_category ON tracked_products (is_active, category)`,
		`CREATE INDEX IF NOT EXISTS idx_tracked_products_last_checked ON tracked_products (last_checked) WHERE is_active = TRUE`,
	}

	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}
