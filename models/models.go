package models

import (
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TrackedProduct is a product URL being monitored against a target price.
type TrackedProduct struct {
	ID               int64               `json:"id"`
	ProductURL       string              `json:"product_url"`
	ProductName      string              `json:"product_name"`
	SiteName         string              `json:"site_name"`
	Category         Category            `json:"category"`
	TargetPrice      decimal.Decimal     `json:"target_price"`
	CurrentPrice     decimal.NullDecimal `json:"current_price"`
	IsActive         bool                `json:"is_active"`
	NotificationSent bool                `json:"notification_sent"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	LastChecked      *time.Time          `json:"last_checked,omitempty"`
}

// HasPrice returns true if a current price has been recorded
func (p *TrackedProduct) HasPrice() bool {
	return p.CurrentPrice.Valid
}

// TargetReached reports whether the current price is at or below the target.
func (p *TrackedProduct) TargetReached() bool {
	return p.CurrentPrice.Valid && p.CurrentPrice.Decimal.LessThanOrEqual(p.TargetPrice)
}

// CheckedWithin reports whether the product was checked less than d ago.
func (p *TrackedProduct) CheckedWithin(d time.Duration, now time.Time) bool {
	return p.LastChecked != nil && now.Sub(*p.LastChecked) < d
}

// NearTarget reports whether the current price is within ratio of the target, on either side.
func (p *TrackedProduct) NearTarget(ratio decimal.Decimal) bool {
	if !p.CurrentPrice.Valid {
		return false
	}
	diff := p.CurrentPrice.Decimal.Sub(p.TargetPrice).Abs()
	return diff.LessThanOrEqual(p.TargetPrice.Mul(ratio))
}

// ApplyPrice records a freshly checked price.
func (p *TrackedProduct) ApplyPrice(price decimal.Decimal, at time.Time) {
	p.CurrentPrice = decimal.NewNullDecimal(price)
	p.LastChecked = &at
	p.UpdatedAt = at
}

// SiteNameFromURL derives a short site label from a product URL host.
func SiteNameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch {
	case strings.Contains(host, "amazon"):
		return "Amazon"
	case strings.Contains(host, "mercadolivre"):
		return "Mercado Livre"
	case strings.Contains(host, "kabum"):
		return "KaBuM!"
	case strings.Contains(host, "netshoes"):
		return "Netshoes"
	}
	return host
}

// TrackProductRequest is the body of POST /api/v1/products
type TrackProductRequest struct {
	ProductURL  string          `json:"product_url"`
	ProductName string          `json:"product_name"`
	TargetPrice decimal.Decimal `json:"target_price"`
	Category    Category        `json:"category,omitempty"`
}

// Validate checks the product URL and target price.
func (r TrackProductRequest) Validate() error {
	u, err := url.Parse(r.ProductURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidProductURL
	}
	if !r.TargetPrice.IsPositive() {
		return ErrInvalidTargetPrice
	}
	return nil
}

// UpdateProductRequest is the body of PUT /api/v1/products/{id}
type UpdateProductRequest struct {
	ProductName *string          `json:"product_name,omitempty"`
	TargetPrice *decimal.Decimal `json:"target_price,omitempty"`
	IsActive    *bool            `json:"is_active,omitempty"`
}

// CategoryStats counts active tracked products per category.
type CategoryStats struct {
	Total      int64              `json:"total"`
	ByCategory map[Category]int64 `json:"by_category"`
}

// MonitorResult is the response of a smart monitoring request.
type MonitorResult struct {
	Discovery *AggregatedResult `json:"discovery"`
	Tracked   []TrackedProduct  `json:"tracked"`
	Failed    int               `json:"failed"`
	Status    ResultStatus      `json:"status"`
	Message   string            `json:"message"`
}
