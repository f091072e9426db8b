package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pricehound/config"
	"pricehound/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestURLChecker(t *testing.T) *URLPriceChecker {
	t.Helper()
	catalog, err := config.LoadCatalog()
	require.NoError(t, err)

	direct := newTestDirectFetcher(5 * time.Second)
	fallback := NewFallbackFetcher(direct, nil, zap.NewNop())
	return NewURLPriceChecker(fallback, NewPriceNormalizer(), catalog.URLPrice, zap.NewNop())
}

func serveHTML(t *testing.T, status int, html string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(html))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestURLPriceChecker_Check(t *testing.T) {
	url := serveHTML(t, http.StatusOK, `<html><head><title>Loja</title></head><body>
		<h1>Cafeteira Expresso Oster</h1>
		<span class="price">Indisponível</span>
		<span class="price">12x de R$ 108,33 sem juros</span>
		<span class="price">R$ 1.299,90</span>
		<span class="preco">R$ 999,00</span>
	</body></html>`)

	got, err := newTestURLChecker(t).Check(context.Background(), url)

	require.NoError(t, err)
	assert.Equal(t, "1299.90", got.Price.StringFixed(2))
	assert.Equal(t, "Cafeteira Expresso Oster", got.Title)
	assert.Equal(t, ".price", got.Locator)
	assert.Equal(t, models.FetchModeDirect, got.Mode)
}

func TestURLPriceChecker_ContentAttribute(t *testing.T) {
	url := serveHTML(t, http.StatusOK, `<html><body>
		<p>Produto</p>
		<meta class="price" itemprop="price" content="249.90">
	</body></html>`)

	got, err := newTestURLChecker(t).Check(context.Background(), url)

	require.NoError(t, err)
	assert.Equal(t, "249.90", got.Price.StringFixed(2))
}

func TestURLPriceChecker_NotFound(t *testing.T) {
	tests := []struct {
		name   string
		status int
		html   string
	}{
		{"zero price only", http.StatusOK, `<html><body><span class="valor">R$ 0,00</span></body></html>`},
		{"no price element", http.StatusOK, `<html><body><p>Produto esgotado</p></body></html>`},
		{"blocked", http.StatusForbidden, `<html><body>Access denied</body></html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := serveHTML(t, tt.status, tt.html)
			_, err := newTestURLChecker(t).Check(context.Background(), url)
			assert.ErrorIs(t, err, ErrPriceNotFound)
		})
	}
}

func TestURLPriceChecker_InvalidURL(t *testing.T) {
	_, err := newTestURLChecker(t).Check(context.Background(), "not a url")
	assert.ErrorIs(t, err, models.ErrInvalidProductURL)
}

func TestURLPriceChecker_RenderedFetchGetsOrigin(t *testing.T) {
	catalog, err := config.LoadCatalog()
	require.NoError(t, err)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><body><span class="price">R$ 3.500,00</span></body></html>`))
	require.NoError(t, err)

	var seen []models.SourceDescriptor
	direct := FetcherFunc{FetchMode: models.FetchModeDirect, Func: func(_ context.Context, s models.SourceDescriptor, _ string) FetchResult {
		seen = append(seen, s)
		return FetchResult{Outcome: models.OutcomeBlocked, StatusCode: http.StatusForbidden}
	}}
	rendered := FetcherFunc{FetchMode: models.FetchModeRendered, Func: func(_ context.Context, s models.SourceDescriptor, _ string) FetchResult {
		seen = append(seen, s)
		return FetchResult{Outcome: models.OutcomeOK, Document: doc}
	}}
	checker := NewURLPriceChecker(NewFallbackFetcher(direct, rendered, zap.NewNop()), NewPriceNormalizer(), catalog.URLPrice, zap.NewNop())

	got, err := checker.Check(context.Background(), "https://www.kabum.com.br/produto/123/console?ref=home")

	require.NoError(t, err)
	assert.Equal(t, "3500.00", got.Price.StringFixed(2))
	assert.Equal(t, models.FetchModeRendered, got.Mode)
	require.Len(t, seen, 2)
	for _, s := range seen {
		assert.Equal(t, "https://www.kabum.com.br", s.BaseURL)
	}
}
