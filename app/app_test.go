package app

import (
	"testing"
	"time"

	"pricehound/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewScraping_WithoutBrowser(t *testing.T) {
	cfg := &config.Config{
		DirectTimeout: time.Second,
		SourceRate:    1,
		SourcePause:   0,
	}

	s, err := NewScraping(cfg, zap.NewNop())
	require.NoError(t, err)

	assert.Nil(t, s.Browser)
	assert.NotNil(t, s.Fetcher)
	assert.NotNil(t, s.URLChecker)
	assert.NotNil(t, s.Discovery)
	assert.Len(t, s.Catalog.Sources, 4)
	assert.NoError(t, s.Close())
}

func TestNewScraping_WithBrowser(t *testing.T) {
	cfg := &config.Config{
		DirectTimeout:  time.Second,
		RenderWait:     time.Second,
		SourceRate:     1,
		BrowserEnabled: true,
	}

	s, err := NewScraping(cfg, zap.NewNop())
	require.NoError(t, err)

	// the browser is launched lazily, so nothing has started yet
	assert.NotNil(t, s.Browser)
	assert.NoError(t, s.Close())
}
