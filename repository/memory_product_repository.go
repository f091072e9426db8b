package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"pricehound/models"
)

// MemoryProductStore keeps products in process memory. Data is lost on restart.
type MemoryProductStore struct {
	mu       sync.RWMutex
	nextID   int64
	products map[int64]models.TrackedProduct
	now      func() time.Time
}

func NewMemoryProductStore() *MemoryProductStore {
	return &MemoryProductStore{
		products: make(map[int64]models.TrackedProduct),
		now:      time.Now,
	}
}

// filter returns copies of the products accepted by keep, ordered by less.
func (s *MemoryProductStore) filter(keep func(p *models.TrackedProduct) bool, less func(a, b *models.TrackedProduct) bool) []models.TrackedProduct {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.TrackedProduct{}
	for _, p := range s.products {
		if keep(&p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(&out[i], &out[j]) })
	return out
}

func newestFirstLess(a, b *models.TrackedProduct) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}

// Create implements ProductStore.
func (s *MemoryProductStore) Create(_ context.Context, p *models.TrackedProduct) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	now := s.now()
	p.ID = s.nextID
	p.IsActive = true
	p.NotificationSent = false
	p.CreatedAt, p.UpdatedAt = now, now
	s.products[p.ID] = *p
	return p.ID, nil
}

// Get implements ProductStore.
func (s *MemoryProductStore) Get(_ context.Context, id int64) (*models.TrackedProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, models.ErrProductNotFound
	}
	return &p, nil
}

// Update implements ProductStore.
func (s *MemoryProductStore) Update(_ context.Context, p *models.TrackedProduct) (*models.TrackedProduct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.products[p.ID]
	if !ok {
		return nil, models.ErrProductNotFound
	}
	updated := *p
	updated.CreatedAt = stored.CreatedAt
	updated.UpdatedAt = s.now()
	s.products[p.ID] = updated
	return &updated, nil
}

// ListActive implements ProductStore.
func (s *MemoryProductStore) ListActive(_ context.Context) ([]models.TrackedProduct, error) {
	return s.filter(func(p *models.TrackedProduct) bool { return p.IsActive }, newestFirstLess), nil
}

// ListByCategory implements ProductStore.
func (s *MemoryProductStore) ListByCategory(_ context.Context, category models.Category) ([]models.TrackedProduct, error) {
	return s.filter(func(p *models.TrackedProduct) bool {
		return p.IsActive && p.Category == category
	}, newestFirstLess), nil
}

// CountByCategory implements ProductStore.
func (s *MemoryProductStore) CountByCategory(ctx context.Context, category models.Category) (int64, error) {
	products, _ := s.ListByCategory(ctx, category)
	return int64(len(products)), nil
}

// Deactivate implements ProductStore.
func (s *MemoryProductStore) Deactivate(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return models.ErrProductNotFound
	}
	p.IsActive = false
	p.UpdatedAt = s.now()
	s.products[id] = p
	return nil
}

// ListTargetReached implements ProductStore.
func (s *MemoryProductStore) ListTargetReached(_ context.Context) ([]models.TrackedProduct, error) {
	return s.filter(func(p *models.TrackedProduct) bool {
		return p.IsActive && p.TargetReached()
	}, func(a, b *models.TrackedProduct) bool { return a.UpdatedAt.After(b.UpdatedAt) }), nil
}

// ListStale implements ProductStore.
func (s *MemoryProductStore) ListStale(_ context.Context, cutoff time.Time) ([]models.TrackedProduct, error) {
	return s.filter(func(p *models.TrackedProduct) bool {
		return p.IsActive && !p.NotificationSent && (p.LastChecked == nil || p.LastChecked.Before(cutoff))
	}, func(a, b *models.TrackedProduct) bool {
		switch {
		case a.LastChecked == nil:
			return b.LastChecked != nil || a.ID < b.ID
		case b.LastChecked == nil:
			return false
		}
		return a.LastChecked.Before(*b.LastChecked)
	}), nil
}

// DeleteInactiveBefore implements ProductStore.
func (s *MemoryProductStore) DeleteInactiveBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, p := range s.products {
		if !p.IsActive && p.UpdatedAt.Before(cutoff) {
			delete(s.products, id)
			n++
		}
	}
	return n, nil
}
