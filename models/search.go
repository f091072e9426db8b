package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// SourceID identifies one retail source.
type SourceID string

const (
	SourceAmazon       SourceID = "AMAZON"
	SourceMercadoLivre SourceID = "MERCADO_LIVRE"
	SourceKabum        SourceID = "KABUM"
	SourceNetshoes     SourceID = "NETSHOES"
)

// SearchRequest is the input of a price discovery.
type SearchRequest struct {
	ProductName    string           `json:"product_name"`
	ReferenceURL   string           `json:"reference_url,omitempty"`
	ReferencePrice *decimal.Decimal `json:"reference_price,omitempty"`
	TargetPrice    *decimal.Decimal `json:"target_price,omitempty"`
}

// Validate checks the required fields of the request.
func (r SearchRequest) Validate() error {
	if strings.TrimSpace(r.ProductName) == "" {
		return ErrEmptyProductName
	}
	if r.TargetPrice != nil && !r.TargetPrice.IsPositive() {
		return ErrInvalidTargetPrice
	}
	if r.ReferencePrice != nil && !r.ReferencePrice.IsPositive() {
		return ErrInvalidReferencePrice
	}
	return nil
}

// SourceDescriptor describes where candidate fields live on a source's search page.
type SourceDescriptor struct {
	ID              SourceID `yaml:"id" json:"id"`
	Name            string   `yaml:"name" json:"name"`
	SearchURL       string   `yaml:"search_url" json:"search_url"`
	BaseURL         string   `yaml:"base_url" json:"base_url"`
	ResolveRelative bool     `yaml:"resolve_relative" json:"resolve_relative"`
	MaxBlocks       int      `yaml:"max_blocks" json:"max_blocks"`
	MinNameLength   int      `yaml:"min_name_length" json:"min_name_length"`
	ContentLocator  string   `yaml:"content_locator" json:"content_locator"`
	BlockLocators   []string `yaml:"block_locators" json:"block_locators"`
	NameLocators    []string `yaml:"name_locators" json:"name_locators"`
	PriceLocators   []string `yaml:"price_locators" json:"price_locators"`
	URLLocators     []string `yaml:"url_locators" json:"url_locators"`
	// SkipURLPatterns drops candidates whose link contains any of these fragments.
	SkipURLPatterns []string `yaml:"skip_url_patterns" json:"skip_url_patterns,omitempty"`
}

// RawCandidate is one listing as extracted from a page, before normalization.
type RawCandidate struct {
	Source    SourceID `json:"source"`
	Name      string   `json:"name"`
	PriceText string   `json:"price_text"`
	URL       string   `json:"url"`
}

// RejectionReason explains why a candidate was not accepted.
type RejectionReason string

const (
	RejectNone             RejectionReason = ""
	RejectUnparseablePrice RejectionReason = "unparseable_price"
	RejectNameTooShort     RejectionReason = "name_too_short"
	RejectBoilerplateName  RejectionReason = "boilerplate_name"
	RejectMissingKeyword   RejectionReason = "missing_category_keyword"
	RejectAccessory        RejectionReason = "accessory_keyword"
	RejectPriceOutOfRange  RejectionReason = "category_price_range"
	RejectLowOverlap       RejectionReason = "low_keyword_overlap"
	RejectPriceFloor       RejectionReason = "below_price_floor"
)

// ScoredCandidate is a RawCandidate after normalization and relevance filtering.
type ScoredCandidate struct {
	RawCandidate
	Price     decimal.Decimal `json:"price"`
	Overlap   float64         `json:"overlap"`
	Accepted  bool            `json:"accepted"`
	Reason    RejectionReason `json:"reason,omitempty"`
	Available bool            `json:"available"`
}

// FetchMode names the acquisition strategy that produced a document.
type FetchMode string

const (
	FetchModeDirect   FetchMode = "direct"
	FetchModeRendered FetchMode = "rendered"
)

// FetchOutcome classifies the result of one fetch attempt.
type FetchOutcome string

const (
	OutcomeOK           FetchOutcome = "ok"
	OutcomeBlocked      FetchOutcome = "blocked"
	OutcomeTimeout      FetchOutcome = "timeout"
	OutcomeNetworkError FetchOutcome = "network_error"
	OutcomeEmptyBody    FetchOutcome = "empty_body"
	OutcomeSkipped      FetchOutcome = "skipped"
)

// MaxCandidatesPerSource caps the accepted candidates of a SourceResult.
const MaxCandidatesPerSource = 3

// SourceResult holds the accepted candidates of one source, in acceptance order.
type SourceResult struct {
	Source     SourceID          `json:"source"`
	SourceName string            `json:"source_name"`
	Mode       FetchMode         `json:"mode,omitempty"`
	Outcome    FetchOutcome      `json:"outcome"`
	Blocks     int               `json:"blocks"`
	Candidates []ScoredCandidate `json:"candidates"`
	Rejected   []ScoredCandidate `json:"rejected,omitempty"`
}

// HasCandidates reports whether at least one candidate was accepted.
func (r SourceResult) HasCandidates() bool {
	return len(r.Candidates) > 0
}

// RankedCandidate is an accepted candidate placed in the cross-source ranking.
type RankedCandidate struct {
	Source      SourceID        `json:"source"`
	SourceName  string          `json:"source_name"`
	Name        string          `json:"name"`
	URL         string          `json:"url"`
	Price       decimal.Decimal `json:"price"`
	Rank        int             `json:"rank"`
	IsBestPrice bool            `json:"is_best_price"`
}

// ResultStatus is the overall status of a discovery.
type ResultStatus string

const (
	StatusSuccess ResultStatus = "SUCCESS"
	StatusPartial ResultStatus = "PARTIAL"
	StatusError   ResultStatus = "ERROR"
)

// AggregatedResult is the response of a price discovery.
type AggregatedResult struct {
	ProductName       string            `json:"product_name"`
	Category          Category          `json:"category"`
	ReferencePrice    *decimal.Decimal  `json:"reference_price,omitempty"`
	SourcesQueried    int               `json:"sources_queried"`
	SourcesWithResult int               `json:"sources_with_result"`
	Candidates        []RankedCandidate `json:"candidates"`
	Best              *RankedCandidate  `json:"best,omitempty"`
	Savings           *decimal.Decimal  `json:"savings,omitempty"`
	SavingsPercentage *decimal.Decimal  `json:"savings_percentage,omitempty"`
	Status            ResultStatus      `json:"status"`
	Message           string            `json:"message"`
	Sources           []SourceResult    `json:"sources"`
}
