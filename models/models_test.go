package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func priced(target, current string) *TrackedProduct {
	p := &TrackedProduct{TargetPrice: decimal.RequireFromString(target)}
	if current != "" {
		p.CurrentPrice = decimal.NewNullDecimal(decimal.RequireFromString(current))
	}
	return p
}

func TestTrackedProduct_TargetReached(t *testing.T) {
	assert.False(t, priced("100", "").TargetReached())
	assert.False(t, priced("100", "100.01").TargetReached())
	assert.True(t, priced("100", "100.00").TargetReached())
	assert.True(t, priced("100", "79.90").TargetReached())
}

func TestTrackedProduct_NearTarget(t *testing.T) {
	ratio := decimal.RequireFromString("0.2")

	tests := []struct {
		current string
		want    bool
	}{
		{"", false},
		{"79.99", false},
		{"80", true},
		{"90", true},
		{"100", true},
		{"110", true},
		{"120", true},
		{"120.01", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, priced("100", tt.current).NearTarget(ratio), tt.current)
	}
}

func TestTrackedProduct_ApplyPrice(t *testing.T) {
	now := time.Now()
	p := priced("100", "")

	p.ApplyPrice(decimal.RequireFromString("95.5"), now)

	assert.True(t, p.HasPrice())
	assert.Equal(t, "95.50", p.CurrentPrice.Decimal.StringFixed(2))
	assert.Equal(t, now, *p.LastChecked)
	assert.Equal(t, now, p.UpdatedAt)
	assert.True(t, p.CheckedWithin(time.Minute, now.Add(30*time.Second)))
	assert.False(t, p.CheckedWithin(time.Minute, now.Add(2*time.Minute)))
	assert.False(t, priced("100", "").CheckedWithin(time.Hour, now))
}

func TestSiteNameFromURL(t *testing.T) {
	tests := []struct{ raw, want string }{
		{"https://www.amazon.com.br/dp/B0", "Amazon"},
		{"https://produto.mercadolivre.com.br/MLB-1", "Mercado Livre"},
		{"https://www.kabum.com.br/produto/1", "KaBuM!"},
		{"https://www.netshoes.com.br/tenis", "Netshoes"},
		{"https://www.Magazineluiza.com.br/p/123", "magazineluiza.com.br"},
		{"not a url", "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SiteNameFromURL(tt.raw), tt.raw)
	}
}

func TestParseCategory(t *testing.T) {
	for _, in := range []string{"electronics", "ELECTRONICS", " Electronics "} {
		c, err := ParseCategory(in)
		assert.NoError(t, err, in)
		assert.Equal(t, CategoryElectronics, c)
	}

	c, err := ParseCategory("home-and-garden")
	assert.NoError(t, err)
	assert.Equal(t, CategoryHomeAndGarden, c)
	assert.Equal(t, "Casa e Jardim", c.DisplayName())

	_, err = ParseCategory("toys")
	assert.Error(t, err)
	assert.Equal(t, "TOYS", Category("TOYS").DisplayName())
}

func TestSearchRequest_Validate(t *testing.T) {
	negative := decimal.RequireFromString("-1")
	positive := decimal.RequireFromString("10")

	assert.NoError(t, SearchRequest{ProductName: "Echo Dot"}.Validate())
	assert.NoError(t, SearchRequest{ProductName: "Echo Dot", TargetPrice: &positive, ReferencePrice: &positive}.Validate())
	assert.ErrorIs(t, SearchRequest{ProductName: "\t"}.Validate(), ErrEmptyProductName)
	assert.ErrorIs(t, SearchRequest{ProductName: "Echo Dot", TargetPrice: &negative}.Validate(), ErrInvalidTargetPrice)
	assert.ErrorIs(t, SearchRequest{ProductName: "Echo Dot", ReferencePrice: &negative}.Validate(), ErrInvalidReferencePrice)
}

func TestTrackProductRequest_Validate(t *testing.T) {
	price := decimal.RequireFromString("10")

	assert.NoError(t, TrackProductRequest{ProductURL: "https://shop.test/p", TargetPrice: price}.Validate())
	assert.ErrorIs(t, TrackProductRequest{ProductURL: "ftp://shop.test/p", TargetPrice: price}.Validate(), ErrInvalidProductURL)
	assert.ErrorIs(t, TrackProductRequest{ProductURL: "https://", TargetPrice: price}.Validate(), ErrInvalidProductURL)
	assert.ErrorIs(t, TrackProductRequest{ProductURL: "https://shop.test/p"}.Validate(), ErrInvalidTargetPrice)
}

func TestDiscoveryTask_Lifecycle(t *testing.T) {
	task := NewDiscoveryTask(SearchRequest{ProductName: "Echo Dot"})
	assert.Regexp(t, `^task_\d{14}_.{8}$`, task.ID)
	assert.Equal(t, TaskStatusQueued, task.Snapshot().Status)
	assert.Zero(t, task.Duration())
	assert.False(t, task.IsCompleted())

	task.Start()
	assert.Equal(t, TaskStatusProcessing, task.Snapshot().Status)

	task.Complete(&AggregatedResult{Status: StatusPartial, Message: "Found 2 offers"})
	view := task.Snapshot()
	assert.True(t, task.IsCompleted())
	assert.Equal(t, TaskStatusCompleted, view.Status)
	assert.Equal(t, "Found 2 offers", view.Message)
	assert.GreaterOrEqual(t, task.Duration(), time.Duration(0))

	failed := NewDiscoveryTask(SearchRequest{ProductName: "Echo Dot"})
	failed.Fail("queue full")
	assert.True(t, failed.IsCompleted())
	assert.Equal(t, "queue full", failed.Snapshot().Error)
}
