package scheduler

import (
	"context"
	"time"

	"pricehound/models"
	"pricehound/repository"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductChecker runs one price check for a tracked product.
type ProductChecker interface {
	CheckProduct(ctx context.Context, id int64) (*models.TrackedProduct, error)
}

const (
	staleAfter     = 3 * time.Minute
	criticalRecent = time.Minute
	inactiveMaxAge = 30 * 24 * time.Hour
	itemPause      = time.Second
)

// criticalRatio is how far from target an electronics product may be to get the faster schedule.
var criticalRatio = decimal.NewFromFloat(0.20)

// PriceChecker re-checks tracked products on a cron schedule.
type PriceChecker struct {
	cron    *cron.Cron
	store   repository.ProductStore
	checker ProductChecker
	pause   time.Duration
	logger  *zap.Logger
	now     func() time.Time
	ctx     context.Context
}

func NewPriceChecker(store repository.ProductStore, checker ProductChecker, logger *zap.Logger) *PriceChecker {
	return &PriceChecker{
		cron:    cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		store:   store,
		checker: checker,
		pause:   itemPause,
		logger:  logger.Named("price-checker"),
		now:     time.Now,
		ctx:     context.Background(),
	}
}

// Start schedules the jobs. They stop running once ctx is done.
func (pc *PriceChecker) Start(ctx context.Context) error {
	pc.ctx = ctx
	jobs := []struct {
		spec string
		name string
		run  func(context.Context) int
	}{
		{"0 */5 * * * *", "stale", pc.CheckStale},
		{"0 */2 * * * *", "critical", pc.CheckCritical},
		{"0 0 * * * *", "cleanup", pc.Cleanup},
	}
	for _, job := range jobs {
		if _, err := pc.cron.AddFunc(job.spec, func() { job.run(pc.ctx) }); err != nil {
			return err
		}
		pc.logger.Info("Scheduled job", zap.String("job", job.name), zap.String("spec", job.spec))
	}
	pc.cron.Start()
	return nil
}

// Stop stops the schedule and waits for running jobs.
func (pc *PriceChecker) Stop() {
	if pc.cron != nil {
		<-pc.cron.Stop().Done()
	}
}

// CheckStale checks products that were never checked or not checked recently.
func (pc *PriceChecker) CheckStale(ctx context.Context) int {
	products, err := pc.store.ListStale(ctx, pc.now().Add(-staleAfter))
	if err != nil {
		pc.logger.Error("Failed to list stale products", zap.Error(err))
		return 0
	}
	if len(products) == 0 {
		pc.logger.Debug("No products to check")
		return 0
	}
	pc.logger.Info("Checking stale products", zap.Int("count", len(products)))
	return pc.checkEach(ctx, products)
}

// CheckCritical checks flights and electronics close to their target price more often.
func (pc *PriceChecker) CheckCritical(ctx context.Context) int {
	products, err := pc.store.ListActive(ctx)
	if err != nil {
		pc.logger.Error("Failed to list active products", zap.Error(err))
		return 0
	}

	now := pc.now()
	var critical []models.TrackedProduct
	for _, p := range products {
		if p.NotificationSent || p.CheckedWithin(criticalRecent, now) {
			continue
		}
		switch {
		case p.Category == models.CategoryFlights:
			critical = append(critical, p)
		case p.Category == models.CategoryElectronics && p.NearTarget(criticalRatio):
			critical = append(critical, p)
		}
	}
	if len(critical) == 0 {
		return 0
	}
	pc.logger.Info("Checking products near target", zap.Int("count", len(critical)))
	return pc.checkEach(ctx, critical)
}

// Cleanup deletes products deactivated more than thirty days ago.
func (pc *PriceChecker) Cleanup(ctx context.Context) int {
	n, err := pc.store.DeleteInactiveBefore(ctx, pc.now().Add(-inactiveMaxAge))
	if err != nil {
		pc.logger.Error("Failed to clean up inactive products", zap.Error(err))
		return 0
	}
	if n > 0 {
		pc.logger.Info("Removed inactive products", zap.Int64("count", n))
	}
	return int(n)
}

// checkEach checks products one by one and returns how many succeeded.
func (pc *PriceChecker) checkEach(ctx context.Context, products []models.TrackedProduct) int {
	checked := 0
	for i, p := range products {
		if i > 0 && pc.pause > 0 {
			select {
			case <-ctx.Done():
				return checked
			case <-time.After(pc.pause):
			}
		}
		if _, err := pc.checker.CheckProduct(ctx, p.ID); err != nil {
			pc.logger.Warn("Price check failed", zap.Int64("product_id", p.ID), zap.Error(err))
			continue
		}
		checked++
	}
	return checked
}
