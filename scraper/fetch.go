package scraper

import (
	"context"
	"strings"

	"pricehound/models"

	"github.com/PuerkitoBio/goquery"
)

// FetchResult is the document and typed outcome of one fetch attempt.
type FetchResult struct {
	Mode       models.FetchMode
	Outcome    models.FetchOutcome
	Document   *goquery.Document
	StatusCode int
	Err        error
}

// OK reports whether a document was retrieved.
func (r FetchResult) OK() bool {
	return r.Outcome == models.OutcomeOK && r.Document != nil
}

// Fetcher acquires the document behind a URL for a source.
type Fetcher interface {
	Fetch(ctx context.Context, source models.SourceDescriptor, url string) FetchResult
	Mode() models.FetchMode
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc struct {
	FetchMode models.FetchMode
	Func      func(ctx context.Context, source models.SourceDescriptor, url string) FetchResult
}

// Fetch calls f.Func.
func (f FetcherFunc) Fetch(ctx context.Context, source models.SourceDescriptor, url string) FetchResult {
	return f.Func(ctx, source, url)
}

// Mode returns f.FetchMode.
func (f FetcherFunc) Mode() models.FetchMode {
	return f.FetchMode
}

// visibleText returns the title and body text of doc without script and style contents.
func visibleText(doc *goquery.Document) (title, body string) {
	title = strings.TrimSpace(doc.Find("title").First().Text())
	sel := doc.Find("body").Clone()
	sel.Find("script, style, noscript").Remove()
	return title, strings.TrimSpace(sel.Text())
}

// classifyDocument turns a parsed document into ok, empty or blocked.
func classifyDocument(detector *BotDetector, doc *goquery.Document) (models.FetchOutcome, string) {
	title, body := visibleText(doc)
	if body == "" && title == "" {
		return models.OutcomeEmptyBody, ""
	}
	if blocked, reason, _ := detector.DetectBotWall(body, title); blocked {
		return models.OutcomeBlocked, reason
	}
	return models.OutcomeOK, ""
}
