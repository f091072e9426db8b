// Package app wires the scraping pipeline shared by the server and the CLI.
package app

import (
	"pricehound/config"
	"pricehound/scraper"
	"pricehound/services"

	"go.uber.org/zap"
)

// Scraping holds the discovery pipeline and the browser it may launch.
type Scraping struct {
	Catalog    *config.Catalog
	Browser    *scraper.Browser
	Fetcher    *scraper.FallbackFetcher
	URLChecker *scraper.URLPriceChecker
	Discovery  *services.DiscoveryService
}

// NewScraping builds the fetchers, checker and discovery service from cfg.
// The browser is only created when cfg.BrowserEnabled is set and launches on first use.
func NewScraping(cfg *config.Config, logger *zap.Logger) (*Scraping, error) {
	catalog, err := config.LoadCatalog()
	if err != nil {
		return nil, err
	}

	pacer := scraper.NewPacer(cfg.SourceRate)
	direct := scraper.NewDirectFetcher(scraper.DirectFetcherOptions{
		Timeout:          cfg.DirectTimeout,
		UserAgents:       catalog.UserAgents,
		Pacer:            pacer,
		CloudflareBypass: true,
	}, logger)

	s := &Scraping{Catalog: catalog}

	var rendered scraper.Fetcher
	if cfg.BrowserEnabled {
		s.Browser = scraper.NewBrowser(cfg.BrowserBin, logger)
		rendered = scraper.NewRenderedFetcher(s.Browser, scraper.RenderedFetcherOptions{
			ContentWait: cfg.RenderWait,
			UserAgents:  catalog.UserAgents,
			Pacer:       pacer,
		}, logger)
	}

	s.Fetcher = scraper.NewFallbackFetcher(direct, rendered, logger)
	s.URLChecker = scraper.NewURLPriceChecker(s.Fetcher, scraper.NewPriceNormalizer(), catalog.URLPrice, logger)
	s.Discovery = services.NewDiscoveryService(services.DiscoveryDeps{
		Catalog:     catalog,
		Fetcher:     s.Fetcher,
		Reference:   s.URLChecker,
		SourcePause: cfg.SourcePause,
		Logger:      logger,
	})
	return s, nil
}

// Close shuts the browser down when one was created.
func (s *Scraping) Close() error {
	if s.Browser == nil {
		return nil
	}
	return s.Browser.Close()
}
