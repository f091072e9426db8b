package scraper

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"sync"
	"time"

	"pricehound/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

const (
	dockerChromium     = "/usr/bin/chromium-browser"
	navigationTimeout  = 20 * time.Second
	defaultRenderWait  = 12 * time.Second
	minHumanDelay      = 2 * time.Second
	humanDelaySpread   = 3 * time.Second
	defaultAcceptLang  = "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7"
	renderedViewWidth  = 1920
	renderedViewHeight = 1080
)

// ErrBrowserClosed is returned when a closed Browser is used.
var ErrBrowserClosed = errors.New("browser closed")

// stealthScript hides the usual automation fingerprints before any page script runs.
const stealthScript = `
	Object.defineProperty(navigator, 'webdriver', {
		get: () => undefined,
	});
	Object.defineProperty(navigator, 'plugins', {
		get: () => [1, 2, 3, 4, 5],
	});
	Object.defineProperty(navigator, 'languages', {
		get: () => ['pt-BR', 'pt', 'en-US', 'en'],
	});
	window.chrome = {
		runtime: {},
	};
	const originalQuery = window.navigator.permissions.query;
	window.navigator.permissions.query = (parameters) => (
		parameters.name === 'notifications' ?
			Promise.resolve({ state: Notification.permission }) :
			originalQuery(parameters)
	);
`

// Browser owns a single headless browser process.
// The process starts on first use and lives until Close.
type Browser struct {
	mu       sync.Mutex
	bin      string
	launcher *launcher.Launcher
	browser  *rod.Browser
	closed   bool
	logger   *zap.Logger
}

// NewBrowser creates a browser handle. bin may be empty to auto-detect Chromium.
func NewBrowser(bin string, logger *zap.Logger) *Browser {
	return &Browser{bin: bin, logger: logger.Named("browser")}
}

func (b *Browser) get() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBrowserClosed
	}
	if b.browser != nil {
		return b.browser, nil
	}

	l := launcher.New().
		Headless(true).
		NoSandbox(true).
		Leakless(false).
		Set("disable-blink-features", "AutomationControlled").
		Set("window-size", fmt.Sprintf("%d,%d", renderedViewWidth, renderedViewHeight))

	bin := b.bin
	if bin == "" {
		if _, err := os.Stat(dockerChromium); err == nil {
			bin = dockerChromium
		}
	}
	if bin != "" {
		l = l.Bin(bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	b.launcher = l
	b.browser = browser
	b.logger.Info("browser launched", zap.String("control_url", controlURL), zap.String("bin", bin))
	return browser, nil
}

// Started reports whether the browser process is running.
func (b *Browser) Started() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.browser != nil
}

// Close shuts the browser down. It is safe to call more than once.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	if b.browser == nil {
		return nil
	}

	err := b.browser.Close()
	b.launcher.Cleanup()
	b.browser, b.launcher = nil, nil
	b.logger.Info("browser closed")
	return err
}

// RenderedFetcherOptions configures a RenderedFetcher.
type RenderedFetcherOptions struct {
	// ContentWait bounds the wait for the source's content locator.
	ContentWait time.Duration
	UserAgents  []string
	Pacer       *Pacer
}

// RenderedFetcher loads pages in the shared browser and returns the rendered DOM.
type RenderedFetcher struct {
	browser     *Browser
	contentWait time.Duration
	userAgents  []string
	detector    *BotDetector
	pacer       *Pacer
	logger      *zap.Logger
}

// NewRenderedFetcher creates a fetcher that drives browser.
func NewRenderedFetcher(browser *Browser, opts RenderedFetcherOptions, logger *zap.Logger) *RenderedFetcher {
	wait := opts.ContentWait
	if wait <= 0 {
		wait = defaultRenderWait
	}
	return &RenderedFetcher{
		browser:     browser,
		contentWait: wait,
		userAgents:  opts.UserAgents,
		detector:    NewBotDetector(),
		pacer:       opts.Pacer,
		logger:      logger.Named("rendered"),
	}
}

// Mode implements Fetcher.
func (f *RenderedFetcher) Mode() models.FetchMode {
	return models.FetchModeRendered
}

// maxDuration is the hard upper bound of one rendered fetch.
func (f *RenderedFetcher) maxDuration() time.Duration {
	return 2*navigationTimeout + minHumanDelay + humanDelaySpread + f.contentWait
}

// Fetch implements Fetcher. The landing page of the source is visited first.
func (f *RenderedFetcher) Fetch(ctx context.Context, source models.SourceDescriptor, url string) FetchResult {
	result := FetchResult{Mode: models.FetchModeRendered}
	log := f.logger.With(zap.String("source", string(source.ID)), zap.String("url", url))

	browser, err := f.browser.get()
	if err != nil {
		result.Outcome, result.Err = models.OutcomeNetworkError, err
		log.Error("browser unavailable", zap.Error(err))
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, f.maxDuration())
	defer cancel()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		result.Outcome, result.Err = models.OutcomeNetworkError, err
		return result
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			log.Debug("failed to close page", zap.Error(cerr))
		}
	}()

	html, err := f.render(ctx, page.Context(ctx), source, url, log)
	if err != nil {
		result.Outcome, result.Err = outcomeForError(err), err
		log.Warn("rendered fetch failed", zap.String("outcome", string(result.Outcome)), zap.Error(err))
		return result
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		result.Outcome, result.Err = models.OutcomeNetworkError, err
		return result
	}

	outcome, reason := classifyDocument(f.detector, doc)
	result.Outcome = outcome
	if outcome == models.OutcomeOK {
		result.Document = doc
	}
	log.Debug("rendered fetch done", zap.String("outcome", string(outcome)), zap.String("reason", reason))
	return result
}

func (f *RenderedFetcher) render(ctx context.Context, page *rod.Page, source models.SourceDescriptor, target string, log *zap.Logger) (string, error) {
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             renderedViewWidth,
		Height:            renderedViewHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		return "", err
	}
	if len(f.userAgents) > 0 {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      f.userAgents[rand.IntN(len(f.userAgents))],
			AcceptLanguage: defaultAcceptLang,
		}); err != nil {
			return "", err
		}
	}
	if _, err := page.EvalOnNewDocument(stealthScript); err != nil {
		return "", err
	}

	if source.BaseURL != "" && source.BaseURL != target {
		if err := f.navigate(ctx, page, source.BaseURL); err != nil {
			return "", fmt.Errorf("landing page: %w", err)
		}
		if err := sleepContext(ctx, humanDelay()); err != nil {
			return "", err
		}
	}

	if err := f.navigate(ctx, page, target); err != nil {
		return "", fmt.Errorf("target page: %w", err)
	}

	if source.ContentLocator != "" {
		waitCtx, cancel := context.WithTimeout(ctx, f.contentWait)
		_, err := page.Context(waitCtx).Element(source.ContentLocator)
		cancel()
		if err != nil {
			// The page is still extracted; the extractor decides whether anything is there.
			log.Debug("content locator did not appear", zap.String("locator", source.ContentLocator), zap.Error(err))
		}
	}

	return page.HTML()
}

func (f *RenderedFetcher) navigate(ctx context.Context, page *rod.Page, url string) error {
	if err := f.pacer.Wait(ctx, url); err != nil {
		return err
	}
	navCtx, cancel := context.WithTimeout(ctx, navigationTimeout)
	defer cancel()
	p := page.Context(navCtx)
	if err := p.Navigate(url); err != nil {
		return err
	}
	return p.WaitLoad()
}

// humanDelay returns a random pause between 2 and 5 seconds.
func humanDelay() time.Duration {
	return minHumanDelay + rand.N(humanDelaySpread)
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
