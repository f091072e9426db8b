package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pricehound/models"
	"pricehound/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingChecker struct {
	mu      sync.Mutex
	checked []int64
	fail    map[int64]bool
}

func (c *recordingChecker) CheckProduct(_ context.Context, id int64) (*models.TrackedProduct, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checked = append(c.checked, id)
	if c.fail[id] {
		return nil, errors.New("price not found")
	}
	return &models.TrackedProduct{ID: id}, nil
}

type seed struct {
	category    models.Category
	target      string
	current     string
	lastChecked time.Duration
	notified    bool
	inactive    bool
}

func seedStore(t *testing.T, now time.Time, seeds ...seed) *repository.MemoryProductStore {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryProductStore()
	for _, s := range seeds {
		p := &models.TrackedProduct{
			ProductURL:  "https://shop.test/p",
			ProductName: "Produto",
			Category:    s.category,
			TargetPrice: decimal.RequireFromString(s.target),
		}
		_, err := store.Create(ctx, p)
		require.NoError(t, err)

		if s.current != "" {
			p.ApplyPrice(decimal.RequireFromString(s.current), now.Add(-s.lastChecked))
		}
		p.NotificationSent = s.notified
		p.IsActive = !s.inactive
		_, err = store.Update(ctx, p)
		require.NoError(t, err)
	}
	return store
}

func newTestPriceChecker(store repository.ProductStore, checker ProductChecker, now time.Time) *PriceChecker {
	pc := NewPriceChecker(store, checker, zap.NewNop())
	pc.pause = 0
	pc.now = func() time.Time { return now }
	return pc
}

func TestPriceChecker_CheckStale(t *testing.T) {
	now := time.Now()
	store := seedStore(t, now,
		seed{category: models.CategoryBooks, target: "50"},
		seed{category: models.CategoryBooks, target: "50", current: "60", lastChecked: 10 * time.Minute},
		seed{category: models.CategoryBooks, target: "50", current: "60", lastChecked: time.Minute},
		seed{category: models.CategoryBooks, target: "50", current: "40", lastChecked: time.Hour, notified: true},
		seed{category: models.CategoryBooks, target: "50", inactive: true},
	)
	checker := &recordingChecker{fail: map[int64]bool{2: true}}

	n := newTestPriceChecker(store, checker, now).CheckStale(context.Background())

	assert.Equal(t, 1, n)
	assert.Equal(t, []int64{1, 2}, checker.checked)
}

func TestPriceChecker_CheckCritical(t *testing.T) {
	now := time.Now()
	store := seedStore(t, now,
		seed{category: models.CategoryElectronics, target: "1000", current: "1150", lastChecked: 5 * time.Minute},
		seed{category: models.CategoryElectronics, target: "1000", current: "1300", lastChecked: 5 * time.Minute},
		seed{category: models.CategoryElectronics, target: "1000", current: "1100", lastChecked: 30 * time.Second},
		seed{category: models.CategoryElectronics, target: "1000", current: "990", lastChecked: 5 * time.Minute},
		seed{category: models.CategoryBooks, target: "100", current: "110", lastChecked: 5 * time.Minute},
		seed{category: models.CategoryElectronics, target: "1000"},
		seed{category: models.CategoryFlights, target: "800"},
		seed{category: models.CategoryFlights, target: "800", current: "2500", lastChecked: 5 * time.Minute},
		seed{category: models.CategoryFlights, target: "800", current: "900", lastChecked: 30 * time.Second},
		seed{category: models.CategoryFlights, target: "800", current: "700", notified: true},
		seed{category: models.CategoryElectronics, target: "1000", current: "750", lastChecked: 5 * time.Minute},
	)
	checker := &recordingChecker{}

	n := newTestPriceChecker(store, checker, now).CheckCritical(context.Background())

	assert.Equal(t, 4, n)
	assert.ElementsMatch(t, []int64{1, 4, 7, 8}, checker.checked)
}

func TestPriceChecker_Cleanup(t *testing.T) {
	store := seedStore(t, time.Now(),
		seed{category: models.CategoryOther, target: "10", inactive: true},
		seed{category: models.CategoryOther, target: "10"},
	)

	pc := newTestPriceChecker(store, &recordingChecker{}, time.Now())
	assert.Zero(t, pc.Cleanup(context.Background()))

	pc.now = func() time.Time { return time.Now().Add(31 * 24 * time.Hour) }
	assert.Equal(t, 1, pc.Cleanup(context.Background()))

	_, err := store.Get(context.Background(), 1)
	assert.ErrorIs(t, err, models.ErrProductNotFound)
	_, err = store.Get(context.Background(), 2)
	assert.NoError(t, err)
}

func TestPriceChecker_CheckEachStopsOnCancel(t *testing.T) {
	now := time.Now()
	store := seedStore(t, now,
		seed{category: models.CategoryOther, target: "10"},
		seed{category: models.CategoryOther, target: "10"},
	)
	checker := &recordingChecker{}
	pc := newTestPriceChecker(store, checker, now)
	pc.pause = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, 1, pc.CheckStale(ctx))
	assert.Len(t, checker.checked, 1)
}

func TestPriceChecker_StartStop(t *testing.T) {
	pc := newTestPriceChecker(repository.NewMemoryProductStore(), &recordingChecker{}, time.Now())

	require.NoError(t, pc.Start(context.Background()))
	assert.Len(t, pc.cron.Entries(), 3)
	pc.Stop()
}
