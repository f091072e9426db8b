package scraper

import (
	"net/url"
	"strings"

	"pricehound/models"

	"github.com/PuerkitoBio/goquery"
)

// LocatorChain is an ordered list of CSS selectors tried until one yields a value.
type LocatorChain []string

// FirstText returns the first trimmed text that satisfies accept.
func (c LocatorChain) FirstText(sel *goquery.Selection, accept func(string) bool) (string, bool) {
	for _, locator := range c {
		var found string
		sel.Find(locator).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := cleanText(s.Text())
			if accept(text) {
				found = text
				return false
			}
			return true
		})
		if found != "" {
			return found, true
		}
	}
	return "", false
}

// FirstAttr returns the first non-empty attribute value.
// A selection matching the locator itself is considered before its descendants.
func (c LocatorChain) FirstAttr(sel *goquery.Selection, attr string) (string, bool) {
	for _, locator := range c {
		matches := sel.Filter(locator).AddSelection(sel.Find(locator))
		var found string
		matches.EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
				found = strings.TrimSpace(v)
				return false
			}
			return true
		})
		if found != "" {
			return found, true
		}
	}
	return "", false
}

// FirstMatch returns the matches of the first locator that finds anything in doc.
func (c LocatorChain) FirstMatch(doc *goquery.Selection) *goquery.Selection {
	for _, locator := range c {
		if found := doc.Find(locator); found.Length() > 0 {
			return found
		}
	}
	return doc.Slice(0, 0)
}

// Extractor pulls raw candidates out of a search results page.
type Extractor struct {
	normalizer *PriceNormalizer
}

// NewExtractor creates an extractor that keeps only prices the normalizer can parse.
func NewExtractor(normalizer *PriceNormalizer) *Extractor {
	return &Extractor{normalizer: normalizer}
}

// Blocks returns the candidate blocks of doc, at most source.MaxBlocks.
func (e *Extractor) Blocks(doc *goquery.Document, source models.SourceDescriptor) *goquery.Selection {
	blocks := LocatorChain(source.BlockLocators).FirstMatch(doc.Selection)
	if source.MaxBlocks > 0 && blocks.Length() > source.MaxBlocks {
		blocks = blocks.Slice(0, source.MaxBlocks)
	}
	return blocks
}

// CountBlocks is a BlockCounter for source.
func (e *Extractor) CountBlocks(source models.SourceDescriptor) BlockCounter {
	return func(doc *goquery.Document) int {
		return e.Blocks(doc, source).Length()
	}
}

// Extract returns one candidate per block that yields a name, a price and a link.
// Other blocks are dropped.
func (e *Extractor) Extract(doc *goquery.Document, source models.SourceDescriptor) []models.RawCandidate {
	var candidates []models.RawCandidate
	e.Blocks(doc, source).Each(func(_ int, block *goquery.Selection) {
		if c, ok := e.extractBlock(block, source); ok {
			candidates = append(candidates, c)
		}
	})
	return candidates
}

func (e *Extractor) extractBlock(block *goquery.Selection, source models.SourceDescriptor) (models.RawCandidate, bool) {
	name, ok := LocatorChain(source.NameLocators).FirstText(block, func(text string) bool {
		return len([]rune(text)) >= source.MinNameLength
	})
	if !ok {
		return models.RawCandidate{}, false
	}

	priceText, ok := LocatorChain(source.PriceLocators).FirstText(block, func(text string) bool {
		_, err := e.normalizer.Normalize(text)
		return err == nil
	})
	if !ok {
		return models.RawCandidate{}, false
	}

	href, ok := LocatorChain(source.URLLocators).FirstAttr(block, "href")
	if !ok {
		return models.RawCandidate{}, false
	}
	link, ok := resolveURL(href, source)
	if !ok {
		return models.RawCandidate{}, false
	}
	for _, pattern := range source.SkipURLPatterns {
		if strings.Contains(link, pattern) {
			return models.RawCandidate{}, false
		}
	}

	return models.RawCandidate{
		Source:    source.ID,
		Name:      name,
		PriceText: priceText,
		URL:       link,
	}, true
}

// resolveURL makes href absolute against the source base URL when the source asks for it.
func resolveURL(href string, source models.SourceDescriptor) (string, bool) {
	if strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "#") {
		return "", false
	}
	if !source.ResolveRelative {
		return href, true
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if ref.IsAbs() {
		return ref.String(), true
	}
	base, err := url.Parse(source.BaseURL)
	if err != nil {
		return "", false
	}
	return base.ResolveReference(ref).String(), true
}

// cleanText collapses runs of whitespace.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
