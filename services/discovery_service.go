package services

import (
	"context"
	"net/url"
	"strings"
	"time"

	"pricehound/config"
	"pricehound/models"
	"pricehound/scraper"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PageFetcher runs the fetch strategy sequence for one page.
type PageFetcher interface {
	Fetch(ctx context.Context, source models.SourceDescriptor, url string, count scraper.BlockCounter) []scraper.Attempt
}

// URLChecker reads the price of a single product page.
type URLChecker interface {
	Check(ctx context.Context, rawURL string) (*scraper.URLPrice, error)
}

// Discoverer is the price discovery entry point.
type Discoverer interface {
	DiscoverPrices(ctx context.Context, req models.SearchRequest) *models.AggregatedResult
}

// DiscoveryService finds and ranks the prices of a product across sources.
type DiscoveryService struct {
	catalog    *config.Catalog
	categories *CategoryService
	fetcher    PageFetcher
	extractor  *scraper.Extractor
	normalizer *scraper.PriceNormalizer
	relevance  *scraper.RelevanceFilter
	aggregator *Aggregator
	reference  URLChecker
	pause      time.Duration
	logger     *zap.Logger
}

// DiscoveryDeps are the collaborators of a DiscoveryService.
// Reference may be nil; reference URLs are then ignored.
type DiscoveryDeps struct {
	Catalog     *config.Catalog
	Fetcher     PageFetcher
	Reference   URLChecker
	SourcePause time.Duration
	Logger      *zap.Logger
}

// NewDiscoveryService wires the discovery pipeline.
func NewDiscoveryService(deps DiscoveryDeps) *DiscoveryService {
	normalizer := scraper.NewPriceNormalizer()
	return &DiscoveryService{
		catalog:    deps.Catalog,
		categories: NewCategoryService(deps.Logger),
		fetcher:    deps.Fetcher,
		extractor:  scraper.NewExtractor(normalizer),
		normalizer: normalizer,
		relevance:  scraper.NewRelevanceFilter(),
		aggregator: NewAggregator(),
		reference:  deps.Reference,
		pause:      deps.SourcePause,
		logger:     deps.Logger.Named("discovery"),
	}
}

// Categories exposes the classifier and source selector.
func (s *DiscoveryService) Categories() *CategoryService {
	return s.categories
}

// DiscoverPrices queries every source selected for the product, one after another.
// Failures are reported in the result, never returned.
func (s *DiscoveryService) DiscoverPrices(ctx context.Context, req models.SearchRequest) *models.AggregatedResult {
	if err := req.Validate(); err != nil {
		return &models.AggregatedResult{
			ProductName: req.ProductName,
			Candidates:  []models.RankedCandidate{},
			Status:      models.StatusError,
			Message:     err.Error(),
		}
	}

	start := time.Now()
	name := strings.TrimSpace(req.ProductName)
	category := s.categories.Classify(name, req.ReferenceURL)
	sources := s.categories.SelectSources(category)
	reference := s.referencePrice(ctx, req)

	log := s.logger.With(zap.String("product", name), zap.String("category", string(category)))
	log.Info("discovery started", zap.Int("sources", len(sources)))

	var results []models.SourceResult
	for i, id := range sources {
		if i > 0 && s.pause > 0 {
			if err := sleepContext(ctx, s.pause); err != nil {
				log.Warn("discovery interrupted", zap.Error(err))
				break
			}
		}
		source, ok := s.catalog.Source(id)
		if !ok {
			log.Warn("source not configured", zap.String("source", string(id)))
			continue
		}
		results = append(results, s.QuerySource(ctx, source, name, category))
	}

	result := s.aggregator.Aggregate(name, category, reference, results)
	log.Info("discovery finished",
		zap.String("status", string(result.Status)),
		zap.Int("candidates", len(result.Candidates)),
		zap.Duration("took", time.Since(start)),
	)
	return result
}

// QuerySource fetches the search page of source and keeps at most three relevant candidates.
func (s *DiscoveryService) QuerySource(ctx context.Context, source models.SourceDescriptor, productName string, category models.Category) models.SourceResult {
	result := models.SourceResult{
		Source:     source.ID,
		SourceName: source.Name,
		Candidates: []models.ScoredCandidate{},
	}
	log := s.logger.With(zap.String("source", string(source.ID)))

	attempts := s.fetcher.Fetch(ctx, source, BuildSearchURL(source, productName), s.extractor.CountBlocks(source))
	last := scraper.Last(attempts)
	result.Mode = last.Result.Mode
	result.Outcome = last.Result.Outcome
	result.Blocks = last.Blocks

	if !last.Result.OK() {
		log.Warn("source skipped", zap.String("outcome", string(result.Outcome)), zap.Int("attempts", len(attempts)))
		return result
	}

	for _, raw := range s.extractor.Extract(last.Result.Document, source) {
		if len(result.Candidates) >= models.MaxCandidatesPerSource {
			break
		}
		scored := s.score(raw, productName, category)
		if scored.Accepted {
			result.Candidates = append(result.Candidates, scored)
		} else {
			result.Rejected = append(result.Rejected, scored)
		}
	}

	log.Info("source done",
		zap.String("mode", string(result.Mode)),
		zap.Int("blocks", result.Blocks),
		zap.Int("accepted", len(result.Candidates)),
		zap.Int("rejected", len(result.Rejected)),
	)
	return result
}

func (s *DiscoveryService) score(raw models.RawCandidate, productName string, category models.Category) models.ScoredCandidate {
	scored := models.ScoredCandidate{RawCandidate: raw, Available: true}
	price, err := s.normalizer.Normalize(raw.PriceText)
	if err != nil {
		scored.Reason = models.RejectUnparseablePrice
		return scored
	}
	scored.Price = price

	decision := s.relevance.Evaluate(raw.Name, productName, price, category)
	scored.Accepted = decision.Accepted
	scored.Reason = decision.Reason
	scored.Overlap = decision.Overlap
	return scored
}

func (s *DiscoveryService) referencePrice(ctx context.Context, req models.SearchRequest) *decimal.Decimal {
	if req.ReferencePrice != nil {
		return req.ReferencePrice
	}
	if req.ReferenceURL == "" || s.reference == nil {
		return nil
	}
	found, err := s.reference.Check(ctx, req.ReferenceURL)
	if err != nil {
		s.logger.Warn("reference price unavailable", zap.String("url", req.ReferenceURL), zap.Error(err))
		return nil
	}
	return &found.Price
}

// BuildSearchURL fills the search template of source with the escaped product name.
func BuildSearchURL(source models.SourceDescriptor, productName string) string {
	return strings.ReplaceAll(source.SearchURL, "{query}", url.QueryEscape(strings.TrimSpace(productName)))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
