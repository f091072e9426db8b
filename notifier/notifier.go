package notifier

import (
	"context"

	"pricehound/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Notifier tells someone that a tracked product reached its target price.
type Notifier interface {
	NotifyTargetReached(ctx context.Context, product models.TrackedProduct, price decimal.Decimal) error
}

// LogNotifier writes target-reached events to the log.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.Named("notifier")}
}

// NotifyTargetReached implements Notifier.
func (n *LogNotifier) NotifyTargetReached(_ context.Context, product models.TrackedProduct, price decimal.Decimal) error {
	n.logger.Info("Target price reached",
		zap.Int64("product_id", product.ID),
		zap.String("product", product.ProductName),
		zap.String("price", price.StringFixed(2)),
		zap.String("target", product.TargetPrice.StringFixed(2)),
		zap.String("url", product.ProductURL))
	return nil
}
