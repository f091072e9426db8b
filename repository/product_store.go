package repository

import (
	"context"
	"time"

	"pricehound/models"
)

// ProductStore persists tracked products.
// Get, Update and Deactivate return models.ErrProductNotFound for unknown ids.
type ProductStore interface {
	Create(ctx context.Context, p *models.TrackedProduct) (int64, error)
	Get(ctx context.Context, id int64) (*models.TrackedProduct, error)
	Update(ctx context.Context, p *models.TrackedProduct) (*models.TrackedProduct, error)
	ListActive(ctx context.Context) ([]models.TrackedProduct, error)
	ListByCategory(ctx context.Context, category models.Category) ([]models.TrackedProduct, error)
	CountByCategory(ctx context.Context, category models.Category) (int64, error)
	Deactivate(ctx context.Context, id int64) error

	// ListTargetReached returns active products priced at or below their target.
	ListTargetReached(ctx context.Context) ([]models.TrackedProduct, error)
	// ListStale returns active, not yet notified products never checked or last checked before cutoff.
	ListStale(ctx context.Context, cutoff time.Time) ([]models.TrackedProduct, error)
	// DeleteInactiveBefore removes deactivated products last updated before cutoff.
	DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
