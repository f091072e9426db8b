package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pricehound/models"
	"pricehound/notifier"
	"pricehound/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MonitorService keeps tracked products and their last known prices.
type MonitorService struct {
	discovery  Discoverer
	checker    URLChecker
	store      repository.ProductStore
	categories *CategoryService
	notifier   notifier.Notifier
	logger     *zap.Logger
	now        func() time.Time
}

// NewMonitorService creates a monitor service.
func NewMonitorService(discovery Discoverer, checker URLChecker, store repository.ProductStore, n notifier.Notifier, logger *zap.Logger) *MonitorService {
	return &MonitorService{
		discovery:  discovery,
		checker:    checker,
		store:      store,
		categories: NewCategoryService(logger),
		notifier:   n,
		logger:     logger.Named("monitor"),
		now:        time.Now,
	}
}

// CreateMonitoring discovers prices for req and tracks every ranked candidate at req's target price.
func (s *MonitorService) CreateMonitoring(ctx context.Context, req models.SearchRequest) (*models.MonitorResult, error) {
	if req.TargetPrice == nil || !req.TargetPrice.IsPositive() {
		return nil, models.ErrInvalidTargetPrice
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	discovery := s.discovery.DiscoverPrices(ctx, req)
	result := &models.MonitorResult{
		Discovery: discovery,
		Tracked:   []models.TrackedProduct{},
	}
	if discovery.Status == models.StatusError {
		result.Status = models.StatusError
		result.Message = discovery.Message
		return result, nil
	}

	checkedAt := s.now()
	for _, c := range discovery.Candidates {
		p := models.TrackedProduct{
			ProductURL:   c.URL,
			ProductName:  c.Name,
			SiteName:     c.SourceName,
			Category:     discovery.Category,
			TargetPrice:  *req.TargetPrice,
			CurrentPrice: decimal.NewNullDecimal(c.Price),
			LastChecked:  &checkedAt,
		}
		if _, err := s.store.Create(ctx, &p); err != nil {
			s.logger.Error("Failed to track candidate",
				zap.String("source", string(c.Source)),
				zap.String("url", c.URL),
				zap.Error(err))
			result.Failed++
			continue
		}
		result.Tracked = append(result.Tracked, p)
	}

	switch {
	case result.Failed == 0:
		result.Status = models.StatusSuccess
		result.Message = fmt.Sprintf("Monitoring %d products", len(result.Tracked))
	case len(result.Tracked) > 0:
		result.Status = models.StatusPartial
		result.Message = fmt.Sprintf("Monitoring %d products, %d could not be saved", len(result.Tracked), result.Failed)
	default:
		result.Status = models.StatusError
		result.Message = "Could not save any of the products found"
	}
	return result, nil
}

// TrackURL starts tracking an explicit product URL and checks its price once.
// A failed first check is logged and the product is still returned.
func (s *MonitorService) TrackURL(ctx context.Context, req models.TrackProductRequest) (*models.TrackedProduct, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.ProductName)
	category := req.Category
	if !category.Valid() {
		category = s.categories.Classify(name, req.ProductURL)
	}

	p := &models.TrackedProduct{
		ProductURL:  req.ProductURL,
		ProductName: name,
		SiteName:    models.SiteNameFromURL(req.ProductURL),
		Category:    category,
		TargetPrice: req.TargetPrice,
	}
	if _, err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("Tracking product", zap.Int64("product_id", p.ID), zap.String("url", p.ProductURL))

	checked, err := s.CheckProduct(ctx, p.ID)
	if err != nil {
		s.logger.Warn("Initial price check failed", zap.Int64("product_id", p.ID), zap.Error(err))
		return p, nil
	}
	return checked, nil
}

// CheckProduct reads the current price of one tracked product, stores it and
// sends a notification the first time the target is reached.
func (s *MonitorService) CheckProduct(ctx context.Context, id int64) (*models.TrackedProduct, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	price, err := s.checker.Check(ctx, p.ProductURL)
	if err != nil {
		return nil, fmt.Errorf("failed to check price for product %d: %w", id, err)
	}

	previous := p.CurrentPrice
	p.ApplyPrice(price.Price, s.now())
	if p.ProductName == "" && price.Title != "" {
		p.ProductName = price.Title
	}
	logPriceChange(s.logger, p, previous)

	if p.TargetReached() && !p.NotificationSent {
		if err := s.notifier.NotifyTargetReached(ctx, *p, price.Price); err != nil {
			s.logger.Error("Failed to send notification", zap.Int64("product_id", id), zap.Error(err))
		} else {
			p.NotificationSent = true
		}
	}

	return s.store.Update(ctx, p)
}

func logPriceChange(logger *zap.Logger, p *models.TrackedProduct, previous decimal.NullDecimal) {
	current := p.CurrentPrice.Decimal
	fields := []zap.Field{
		zap.Int64("product_id", p.ID),
		zap.String("price", current.StringFixed(2)),
	}
	if !previous.Valid || previous.Decimal.Equal(current) {
		logger.Info("Price checked", fields...)
		return
	}
	fields = append(fields, zap.String("previous", previous.Decimal.StringFixed(2)))
	if current.LessThan(previous.Decimal) {
		logger.Info("Price dropped", fields...)
	} else {
		logger.Info("Price increased", fields...)
	}
}

// CheckAll checks every active product one at a time and returns how many succeeded and failed.
func (s *MonitorService) CheckAll(ctx context.Context, pause time.Duration) (checked, failed int, err error) {
	products, err := s.store.ListActive(ctx)
	if err != nil {
		return 0, 0, err
	}
	for i, p := range products {
		if i > 0 && pause > 0 {
			if err := sleepContext(ctx, pause); err != nil {
				return checked, failed, err
			}
		}
		if _, err := s.CheckProduct(ctx, p.ID); err != nil {
			s.logger.Warn("Price check failed", zap.Int64("product_id", p.ID), zap.Error(err))
			failed++
			continue
		}
		checked++
	}
	return checked, failed, nil
}

// Get returns one tracked product.
func (s *MonitorService) Get(ctx context.Context, id int64) (*models.TrackedProduct, error) {
	return s.store.Get(ctx, id)
}

// ListActive returns every active tracked product.
func (s *MonitorService) ListActive(ctx context.Context) ([]models.TrackedProduct, error) {
	return s.store.ListActive(ctx)
}

// ListByCategory returns the active products of category.
func (s *MonitorService) ListByCategory(ctx context.Context, category models.Category) ([]models.TrackedProduct, error) {
	return s.store.ListByCategory(ctx, category)
}

// ListTargetReached returns the active products at or below their target.
func (s *MonitorService) ListTargetReached(ctx context.Context) ([]models.TrackedProduct, error) {
	return s.store.ListTargetReached(ctx)
}

// Update applies the fields set in req. A new target price re-arms the notification.
func (s *MonitorService) Update(ctx context.Context, id int64, req models.UpdateProductRequest) (*models.TrackedProduct, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.ProductName != nil {
		name := strings.TrimSpace(*req.ProductName)
		if name == "" {
			return nil, models.ErrEmptyProductName
		}
		p.ProductName = name
	}
	if req.TargetPrice != nil {
		if !req.TargetPrice.IsPositive() {
			return nil, models.ErrInvalidTargetPrice
		}
		if !req.TargetPrice.Equal(p.TargetPrice) {
			p.TargetPrice = *req.TargetPrice
			p.NotificationSent = false
		}
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	return s.store.Update(ctx, p)
}

// Deactivate stops tracking a product.
func (s *MonitorService) Deactivate(ctx context.Context, id int64) error {
	return s.store.Deactivate(ctx, id)
}

// Stats counts active products per category.
func (s *MonitorService) Stats(ctx context.Context) (*models.CategoryStats, error) {
	stats := &models.CategoryStats{ByCategory: make(map[models.Category]int64, len(models.AllCategories))}
	for _, category := range models.AllCategories {
		n, err := s.store.CountByCategory(ctx, category)
		if err != nil {
			return nil, err
		}
		stats.ByCategory[category] = n
		stats.Total += n
	}
	return stats, nil
}
