package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pricehound/models"
)

const productColumns = `id, product_url, product_name, site_name, category, target_price, current_price,
	is_active, notification_sent, created_at, updated_at, last_checked`

// PostgresProductStore is a ProductStore on PostgreSQL.
type PostgresProductStore struct {
	db *sql.DB
}

// NewPostgresProductStore creates a store on db.
func NewPostgresProductStore(db *sql.DB) *PostgresProductStore {
	return &PostgresProductStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*models.TrackedProduct, error) {
	var p models.TrackedProduct
	err := row.Scan(
		&p.ID, &p.ProductURL, &p.ProductName, &p.SiteName, &p.Category,
		&p.TargetPrice, &p.CurrentPrice, &p.IsActive, &p.NotificationSent,
		&p.CreatedAt, &p.UpdatedAt, &p.LastChecked,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresProductStore) query(ctx context.Context, what, query string, args ...any) ([]models.TrackedProduct, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", what, err)
	}
	defer rows.Close()

	products := []models.TrackedProduct{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", what, err)
	}
	return products, nil
}

// Create inserts p and fills its id and timestamps.
func (s *PostgresProductStore) Create(ctx context.Context, p *models.TrackedProduct) (int64, error) {
	query := `
		INSERT INTO tracked_products (product_url, product_name, site_name, category, target_price,
			current_price, is_active, notification_sent, created_at, updated_at, last_checked)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, FALSE, $7, $7, $8)
		RETURNING id, created_at, updated_at`

	now := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		p.ProductURL, p.ProductName, p.SiteName, p.Category, p.TargetPrice,
		p.CurrentPrice, now, p.LastChecked,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to create product: %w", err)
	}
	p.IsActive = true
	p.NotificationSent = false
	return p.ID, nil
}

// Get returns the product with id, active or not.
func (s *PostgresProductStore) Get(ctx context.Context, id int64) (*models.TrackedProduct, error) {
	query := `SELECT ` + productColumns + ` FROM tracked_products WHERE id = $1`
	p, err := scanProduct(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// Update writes every mutable field of p.
func (s *PostgresProductStore) Update(ctx context.Context, p *models.TrackedProduct) (*models.TrackedProduct, error) {
	query := `
		UPDATE tracked_products
		SET product_url = $2, product_name = $3, site_name = $4, category = $5, target_price = $6,
			current_price = $7, is_active = $8, notification_sent = $9, last_checked = $10, updated_at = $11
		WHERE id = $1
		RETURNING ` + productColumns

	updated, err := scanProduct(s.db.QueryRowContext(ctx, query,
		p.ID, p.ProductURL, p.ProductName, p.SiteName, p.Category, p.TargetPrice,
		p.CurrentPrice, p.IsActive, p.NotificationSent, p.LastChecked, time.Now(),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return updated, nil
}

// ListActive returns active products, newest first.
func (s *PostgresProductStore) ListActive(ctx context.Context) ([]models.TrackedProduct, error) {
	return s.query(ctx, "active products",
		`SELECT `+productColumns+` FROM tracked_products WHERE is_active = TRUE ORDER BY created_at DESC, id DESC`)
}

// ListByCategory returns active products of category, newest first.
func (s *PostgresProductStore) ListByCategory(ctx context.Context, category models.Category) ([]models.TrackedProduct, error) {
	return s.query(ctx, "products by category",
		`SELECT `+productColumns+` FROM tracked_products WHERE is_active = TRUE AND category = $1 ORDER BY created_at DESC, id DESC`,
		category)
}

// CountByCategory counts active products of category.
func (s *PostgresProductStore) CountByCategory(ctx context.Context, category models.Category) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tracked_products WHERE is_active = TRUE AND category = $1`, category,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

// Deactivate soft deletes the product.
func (s *PostgresProductStore) Deactivate(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tracked_products SET is_active = FALSE, updated_at = $2 WHERE id = $1`, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to deactivate product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to deactivate product: %w", err)
	}
	if n == 0 {
		return models.ErrProductNotFound
	}
	return nil
}

// ListTargetReached implements ProductStore.
func (s *PostgresProductStore) ListTargetReached(ctx context.Context) ([]models.TrackedProduct, error) {
	return s.query(ctx, "products at target",
		`SELECT `+productColumns+` FROM tracked_products
		WHERE is_active = TRUE AND current_price IS NOT NULL AND current_price <= target_price
		ORDER BY updated_at DESC`)
}

// ListStale implements ProductStore.
func (s *PostgresProductStore) ListStale(ctx context.Context, cutoff time.Time) ([]models.TrackedProduct, error) {
	return s.query(ctx, "stale products",
		`SELECT `+productColumns+` FROM tracked_products
		WHERE is_active = TRUE AND notification_sent = FALSE AND (last_checked IS NULL OR last_checked < $1)
		ORDER BY last_checked ASC NULLS FIRST`,
		cutoff)
}

// DeleteInactiveBefore implements ProductStore.
func (s *PostgresProductStore) DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM tracked_products WHERE is_active = FALSE AND updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up products: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to clean up products: %w", err)
	}
	return n, nil
}
