package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"pricehound/config"
	"pricehound/models"
	"pricehound/scraper"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testCatalog = `
sources:
  - id: AMAZON
    name: Amazon
    search_url: "https://amazon.test/s?k={query}"
    base_url: "https://amazon.test"
    resolve_relative: true
    block_locators: [".item"]
    name_locators: [".name"]
    price_locators: [".price"]
    url_locators: ["a"]
  - id: MERCADO_LIVRE
    name: Mercado Livre
    search_url: "https://ml.test/{query}"
    block_locators: [".item"]
    name_locators: [".name"]
    price_locators: [".price"]
    url_locators: ["a"]
  - id: KABUM
    name: KaBuM!
    search_url: "https://kabum.test/busca/{query}"
    block_locators: [".item"]
    name_locators: [".name"]
    price_locators: [".price"]
    url_locators: ["a"]
user_agents: ["test-agent"]
`

type listing struct {
	name  string
	price string
}

func resultsPage(t *testing.T, listings ...listing) *goquery.Document {
	t.Helper()
	var b strings.Builder
	b.WriteString("<html><body>")
	for i, l := range listings {
		fmt.Fprintf(&b, `<div class="item"><a href="https://loja.test/p/%d"><span class="name">%s</span></a><span class="price">%s</span></div>`, i, l.name, l.price)
	}
	b.WriteString("<p>resultados</p></body></html>")
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(b.String()))
	require.NoError(t, err)
	return doc
}

// pages maps a source to the result its fetcher of one mode returns.
type pages map[models.SourceID]scraper.FetchResult

func (p pages) fetcher(mode models.FetchMode, calls map[models.SourceID]int) scraper.FetcherFunc {
	return scraper.FetcherFunc{
		FetchMode: mode,
		Func: func(_ context.Context, source models.SourceDescriptor, _ string) scraper.FetchResult {
			if calls != nil {
				calls[source.ID]++
			}
			r, found := p[source.ID]
			if !found {
				r = scraper.FetchResult{Outcome: models.OutcomeNetworkError}
			}
			r.Mode = mode
			return r
		},
	}
}

func ok(doc *goquery.Document) scraper.FetchResult {
	return scraper.FetchResult{Outcome: models.OutcomeOK, Document: doc, StatusCode: 200}
}

func blocked() scraper.FetchResult {
	return scraper.FetchResult{Outcome: models.OutcomeBlocked, StatusCode: 403}
}

func newTestDiscovery(t *testing.T, direct, rendered pages, renderedCalls map[models.SourceID]int) *DiscoveryService {
	t.Helper()
	catalog, err := config.ParseCatalog([]byte(testCatalog))
	require.NoError(t, err)

	var renderedFetcher scraper.Fetcher
	if rendered != nil {
		renderedFetcher = rendered.fetcher(models.FetchModeRendered, renderedCalls)
	}
	fallback := scraper.NewFallbackFetcher(direct.fetcher(models.FetchModeDirect, nil), renderedFetcher, zap.NewNop())
	return NewDiscoveryService(DiscoveryDeps{
		Catalog: catalog,
		Fetcher: fallback,
		Logger:  zap.NewNop(),
	})
}

func TestDiscoveryService_AccessoryRejected(t *testing.T) {
	direct := pages{
		models.SourceAmazon:       ok(resultsPage(t, listing{"Capa para iPhone 15", "R$ 45,00"})),
		models.SourceMercadoLivre: blocked(),
		models.SourceKabum:        blocked(),
	}
	s := newTestDiscovery(t, direct, nil, nil)

	got := s.DiscoverPrices(context.Background(), models.SearchRequest{ProductName: "iPhone 15"})

	assert.Equal(t, models.CategoryElectronics, got.Category)
	require.Len(t, got.Sources, 3)
	amazon := got.Sources[0]
	assert.Equal(t, models.SourceAmazon, amazon.Source)
	assert.Empty(t, amazon.Candidates)
	require.Len(t, amazon.Rejected, 1)
	assert.Equal(t, models.RejectAccessory, amazon.Rejected[0].Reason)
	assert.Empty(t, got.Candidates)
	assert.Equal(t, models.StatusError, got.Status)
}

func TestDiscoveryService_BlockedThenRenderedEmpty(t *testing.T) {
	empty := resultsPage(t)
	phone := resultsPage(t, listing{"Apple iPhone 15 128GB Preto", "R$ 4.599,00"})

	t.Run("another source succeeds", func(t *testing.T) {
		direct := pages{
			models.SourceAmazon:       blocked(),
			models.SourceMercadoLivre: ok(phone),
			models.SourceKabum:        blocked(),
		}
		rendered := pages{
			models.SourceAmazon: ok(empty),
			models.SourceKabum:  ok(empty),
		}
		calls := map[models.SourceID]int{}
		s := newTestDiscovery(t, direct, rendered, calls)

		got := s.DiscoverPrices(context.Background(), models.SearchRequest{ProductName: "iPhone 15"})

		assert.Equal(t, 1, calls[models.SourceAmazon])
		assert.Zero(t, calls[models.SourceMercadoLivre])
		amazon := got.Sources[0]
		assert.Equal(t, models.FetchModeRendered, amazon.Mode)
		assert.Equal(t, models.OutcomeOK, amazon.Outcome)
		assert.Zero(t, amazon.Blocks)
		assert.Empty(t, amazon.Candidates)

		assert.Equal(t, models.StatusSuccess, got.Status)
		require.NotNil(t, got.Best)
		assert.Equal(t, models.SourceMercadoLivre, got.Best.Source)
		assert.Equal(t, "4599.00", got.Best.Price.StringFixed(2))
		assert.Equal(t, 1, got.SourcesWithResult)
	})

	t.Run("no source succeeds", func(t *testing.T) {
		direct := pages{
			models.SourceAmazon:       blocked(),
			models.SourceMercadoLivre: blocked(),
			models.SourceKabum:        blocked(),
		}
		rendered := pages{
			models.SourceAmazon:       ok(empty),
			models.SourceMercadoLivre: ok(empty),
			models.SourceKabum:        ok(empty),
		}
		s := newTestDiscovery(t, direct, rendered, nil)

		got := s.DiscoverPrices(context.Background(), models.SearchRequest{ProductName: "iPhone 15"})

		assert.Equal(t, models.StatusError, got.Status)
		assert.Equal(t, notFoundMessage, got.Message)
		assert.Equal(t, 3, got.SourcesQueried)
	})
}

func TestDiscoveryService_CapsCandidatesPerSource(t *testing.T) {
	page := resultsPage(t,
		listing{"Console PlayStation 5 Slim", "R$ 3.799,00"},
		listing{"Console PlayStation 5 Digital", "R$ 3.499,00"},
		listing{"Console PlayStation 5 Pro", "R$ 6.999,00"},
		listing{"Console PlayStation 5 Slim Bundle", "R$ 4.199,00"},
		listing{"Console PlayStation 5 Usado", "R$ 2.899,00"},
	)
	direct := pages{models.SourceKabum: ok(page)}
	s := newTestDiscovery(t, direct, nil, nil)

	catalog, err := config.ParseCatalog([]byte(testCatalog))
	require.NoError(t, err)
	source, found := catalog.Source(models.SourceKabum)
	require.True(t, found)

	got := s.QuerySource(context.Background(), source, "PlayStation 5", models.CategoryElectronics)

	assert.Equal(t, 5, got.Blocks)
	require.Len(t, got.Candidates, models.MaxCandidatesPerSource)
	assert.Equal(t, "Console PlayStation 5 Slim", got.Candidates[0].Name)
	assert.Equal(t, "Console PlayStation 5 Pro", got.Candidates[2].Name)
}

func TestDiscoveryService_InvalidRequest(t *testing.T) {
	s := newTestDiscovery(t, pages{}, nil, nil)

	got := s.DiscoverPrices(context.Background(), models.SearchRequest{ProductName: "   "})

	assert.Equal(t, models.StatusError, got.Status)
	assert.Equal(t, models.ErrEmptyProductName.Error(), got.Message)
	assert.Empty(t, got.Sources)
}

type fixedReference struct {
	price string
	calls int
}

func (f *fixedReference) Check(context.Context, string) (*scraper.URLPrice, error) {
	f.calls++
	return &scraper.URLPrice{Price: dec(f.price)}, nil
}

func TestDiscoveryService_ReferencePrice(t *testing.T) {
	catalog, err := config.ParseCatalog([]byte(testCatalog))
	require.NoError(t, err)
	direct := pages{models.SourceAmazon: ok(resultsPage(t, listing{"Fone JBL Tune 520BT Preto", "R$ 199,90"}))}
	ref := &fixedReference{price: "299.90"}

	s := NewDiscoveryService(DiscoveryDeps{
		Catalog:   catalog,
		Fetcher:   scraper.NewFallbackFetcher(direct.fetcher(models.FetchModeDirect, nil), nil, zap.NewNop()),
		Reference: ref,
		Logger:    zap.NewNop(),
	})

	got := s.DiscoverPrices(context.Background(), models.SearchRequest{
		ProductName:  "JBL Tune 520BT",
		ReferenceURL: "https://www.amazon.com.br/dp/B0",
	})

	assert.Equal(t, 1, ref.calls)
	require.NotNil(t, got.ReferencePrice)
	require.NotNil(t, got.Savings)
	assert.Equal(t, "100.00", got.Savings.StringFixed(2))

	explicit := decPtr("250.00")
	got = s.DiscoverPrices(context.Background(), models.SearchRequest{
		ProductName:    "JBL Tune 520BT",
		ReferenceURL:   "https://www.amazon.com.br/dp/B0",
		ReferencePrice: explicit,
	})
	assert.Equal(t, 1, ref.calls)
	assert.Equal(t, "50.10", got.Savings.StringFixed(2))
}

func TestBuildSearchURL(t *testing.T) {
	source := models.SourceDescriptor{SearchURL: "https://lista.mercadolivre.com.br/{query}"}
	assert.Equal(t, "https://lista.mercadolivre.com.br/iphone+15+pro", BuildSearchURL(source, "  iphone 15 pro "))
}
