package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"pricehound/config"
	"pricehound/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrPriceNotFound is returned when no price could be read from a product page.
var ErrPriceNotFound = errors.New("price not found")

// URLPrice is the price read from one product page.
type URLPrice struct {
	Price   decimal.Decimal  `json:"price"`
	Title   string           `json:"title,omitempty"`
	Mode    models.FetchMode `json:"mode"`
	Locator string           `json:"locator"`
}

// URLPriceChecker reads the current price of a single product page.
type URLPriceChecker struct {
	fetcher    *FallbackFetcher
	normalizer *PriceNormalizer
	rules      config.URLPriceRules
	logger     *zap.Logger
}

// NewURLPriceChecker creates a checker using the given fetch sequence and locator tables.
func NewURLPriceChecker(fetcher *FallbackFetcher, normalizer *PriceNormalizer, rules config.URLPriceRules, logger *zap.Logger) *URLPriceChecker {
	return &URLPriceChecker{
		fetcher:    fetcher,
		normalizer: normalizer,
		rules:      rules,
		logger:     logger.Named("url_price"),
	}
}

// Check fetches rawURL and returns the first positive price found.
func (c *URLPriceChecker) Check(ctx context.Context, rawURL string) (*URLPrice, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid product url %q: %w", rawURL, models.ErrInvalidProductURL)
	}

	locators := c.rules.LocatorsFor(u.Hostname())
	source := models.SourceDescriptor{
		ID:             models.SourceID(strings.ToUpper(models.SiteNameFromURL(rawURL))),
		Name:           models.SiteNameFromURL(rawURL),
		BaseURL:        u.Scheme + "://" + u.Host,
		ContentLocator: strings.Join(locators, ", "),
	}

	attempts := c.fetcher.Fetch(ctx, source, rawURL, func(doc *goquery.Document) int {
		return doc.Find(source.ContentLocator).Length()
	})
	last := Last(attempts)
	if !last.Result.OK() {
		c.logger.Warn("product page unavailable",
			zap.String("url", rawURL),
			zap.String("outcome", string(last.Result.Outcome)),
		)
		return nil, fmt.Errorf("%s fetch %s: %w", last.Result.Mode, last.Result.Outcome, ErrPriceNotFound)
	}

	doc := last.Result.Document
	value, locator, ok := c.firstPrice(doc, locators)
	if !ok {
		return nil, ErrPriceNotFound
	}

	title, _ := LocatorChain(c.rules.TitleLocators).FirstText(doc.Selection, func(s string) bool { return s != "" })
	c.logger.Debug("price found",
		zap.String("url", rawURL),
		zap.String("price", value.StringFixed(2)),
		zap.String("locator", locator),
	)
	return &URLPrice{Price: value, Title: title, Mode: last.Result.Mode, Locator: locator}, nil
}

func (c *URLPriceChecker) firstPrice(doc *goquery.Document, locators []string) (decimal.Decimal, string, bool) {
	for _, locator := range locators {
		var value decimal.Decimal
		found := false
		doc.Find(locator).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			for _, text := range []string{s.Text(), s.AttrOr("content", "")} {
				if v, err := c.normalizer.Normalize(text); err == nil && v.IsPositive() {
					value, found = v, true
					return false
				}
			}
			return true
		})
		if found {
			return value, locator, true
		}
	}
	return decimal.Decimal{}, "", false
}
