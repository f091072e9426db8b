package scraper

import (
	"bytes"
	"context"
	"errors"
	"math/rand/v2"
	"net"
	"net/http"
	"time"

	"pricehound/models"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	defaultDirectTimeout = 15 * time.Second
	maxRedirects         = 10
)

// DirectFetcherOptions configures a DirectFetcher.
type DirectFetcherOptions struct {
	Timeout    time.Duration
	UserAgents []string
	Pacer      *Pacer
	// CloudflareBypass wraps the transport with browser-like TLS settings and headers.
	CloudflareBypass bool
}

// DirectFetcher downloads the static document of a page without running its scripts.
type DirectFetcher struct {
	client     *resty.Client
	userAgents []string
	detector   *BotDetector
	pacer      *Pacer
	logger     *zap.Logger
}

// NewDirectFetcher creates a direct fetcher. UserAgents must not be empty.
func NewDirectFetcher(opts DirectFetcherOptions, logger *zap.Logger) *DirectFetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultDirectTimeout
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(maxRedirects))
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	return &DirectFetcher{
		client:     client,
		userAgents: opts.UserAgents,
		detector:   NewBotDetector(),
		pacer:      opts.Pacer,
		logger:     logger.Named("direct"),
	}
}

// Mode implements Fetcher.
func (f *DirectFetcher) Mode() models.FetchMode {
	return models.FetchModeDirect
}

// RandomUserAgent picks a user agent uniformly from the pool.
func (f *DirectFetcher) RandomUserAgent() string {
	return f.userAgents[rand.IntN(len(f.userAgents))]
}

func (f *DirectFetcher) headers() map[string]string {
	return map[string]string{
		"User-Agent":                f.RandomUserAgent(),
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language":           "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7",
		"DNT":                       "1",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
		"Cache-Control":             "max-age=0",
	}
}

// Fetch implements Fetcher.
func (f *DirectFetcher) Fetch(ctx context.Context, source models.SourceDescriptor, url string) FetchResult {
	result := FetchResult{Mode: models.FetchModeDirect}
	log := f.logger.With(zap.String("source", string(source.ID)), zap.String("url", url))

	if err := f.pacer.Wait(ctx, url); err != nil {
		result.Outcome, result.Err = outcomeForError(err), err
		return result
	}

	start := time.Now()
	resp, err := f.client.R().
		SetContext(ctx).
		SetHeaders(f.headers()).
		Get(url)
	if err != nil {
		result.Outcome, result.Err = outcomeForError(err), err
		log.Warn("direct fetch failed", zap.String("outcome", string(result.Outcome)), zap.Error(err))
		return result
	}
	result.StatusCode = resp.StatusCode()

	if result.StatusCode == http.StatusForbidden {
		result.Outcome = models.OutcomeBlocked
		log.Warn("direct fetch blocked", zap.Int("status", result.StatusCode))
		return result
	}

	body := resp.Body()
	if len(bytes.TrimSpace(body)) == 0 {
		result.Outcome = models.OutcomeEmptyBody
		return result
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		result.Outcome, result.Err = models.OutcomeNetworkError, err
		return result
	}

	outcome, reason := classifyDocument(f.detector, doc)
	if outcome == models.OutcomeOK && result.StatusCode >= http.StatusBadRequest {
		outcome = models.OutcomeNetworkError
	}
	result.Outcome = outcome
	if outcome == models.OutcomeOK {
		result.Document = doc
	}

	log.Debug("direct fetch done",
		zap.Int("status", result.StatusCode),
		zap.String("outcome", string(outcome)),
		zap.String("reason", reason),
		zap.Duration("took", time.Since(start)),
	)
	return result
}

// outcomeForError maps transport errors to fetch outcomes.
func outcomeForError(err error) models.FetchOutcome {
	if errors.Is(err, context.DeadlineExceeded) {
		return models.OutcomeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.OutcomeTimeout
	}
	return models.OutcomeNetworkError
}
