package scraper

import (
	"strings"

	"pricehound/models"

	"github.com/shopspring/decimal"
)

const (
	minCandidateNameLength = 5
	minOverlapRatio        = 0.5
	minTokenLength         = 3
)

var (
	globalPriceFloor = decimal.NewFromInt(10)

	boilerplateNames = []string{
		"deixe uma avaliação sobre o anúncio",
		"deixe uma avaliação",
		"parcele em",
		"ver mais",
		"comprar",
	}

	stopWords = map[string]bool{
		"para": true, "com": true, "de": true, "da": true,
		"do": true, "em": true, "no": true, "na": true,
	}
)

// categoryRule narrows acceptance when the searched term names a product group.
type categoryRule struct {
	name      string
	triggers  []string
	required  []string
	forbidden []string
	minPrice  *decimal.Decimal
	maxPrice  *decimal.Decimal
}

func priceOf(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

var categoryRules = []categoryRule{
	{
		name:      "consoles",
		triggers:  []string{"playstation", "xbox", "nintendo"},
		required:  []string{"console", "playstation", "xbox", "nintendo", "ps5", "ps 5"},
		forbidden: []string{"controle", "controller", "jogo", "game", "ventilador", "fan", "capa", "case", "cabo", "cable", "película", "screen protector"},
		minPrice:  priceOf(2000),
	},
	{
		name:      "smartphones",
		triggers:  []string{"iphone", "smartphone", "celular"},
		forbidden: []string{"capa", "case", "película", "screen protector", "carregador", "charger", "fone", "headphone", "cabo", "cable"},
		minPrice:  priceOf(800),
	},
	{
		name:      "notebooks",
		triggers:  []string{"notebook", "laptop"},
		forbidden: []string{"mouse", "teclado", "keyboard", "capa", "case", "mochila", "backpack"},
		minPrice:  priceOf(1200),
	},
	{
		name:      "footwear",
		triggers:  []string{"tênis", "sapato", "bota", "chinelo", "sandália"},
		forbidden: []string{"meia", "sock", "palmilha", "insole", "cadarço", "lace"},
		minPrice:  priceOf(50),
		maxPrice:  priceOf(5000),
	},
	{
		name:     "apparel",
		triggers: []string{"camiseta", "camisa", "calça", "jaqueta", "short", "bermuda"},
		minPrice: priceOf(30),
		maxPrice: priceOf(3000),
	},
}

// RelevanceDecision is the outcome of a relevance check.
type RelevanceDecision struct {
	Accepted bool
	Reason   models.RejectionReason
	Overlap  float64
	Rule     string
	Category models.Category
}

// RelevanceFilter rejects candidates that are accessories, decoys or unrelated listings.
type RelevanceFilter struct{}

// NewRelevanceFilter creates a new relevance filter
func NewRelevanceFilter() *RelevanceFilter {
	return &RelevanceFilter{}
}

// Evaluate decides whether candidateName at price matches searched.
func (f *RelevanceFilter) Evaluate(candidateName, searched string, p decimal.Decimal, category models.Category) RelevanceDecision {
	decision := RelevanceDecision{Category: category}
	name := strings.ToLower(strings.TrimSpace(candidateName))
	term := strings.ToLower(strings.TrimSpace(searched))

	if len([]rune(name)) < minCandidateNameLength {
		return decision.reject(models.RejectNameTooShort)
	}
	for _, phrase := range boilerplateNames {
		if name == phrase {
			return decision.reject(models.RejectBoilerplateName)
		}
	}

	for _, rule := range categoryRules {
		if !containsAny(term, rule.triggers) {
			continue
		}
		decision.Rule = rule.name
		if len(rule.required) > 0 && !containsAny(name, rule.required) {
			return decision.reject(models.RejectMissingKeyword)
		}
		if containsAny(name, rule.forbidden) {
			return decision.reject(models.RejectAccessory)
		}
		if rule.minPrice != nil && p.LessThan(*rule.minPrice) {
			return decision.reject(models.RejectPriceOutOfRange)
		}
		if rule.maxPrice != nil && p.GreaterThan(*rule.maxPrice) {
			return decision.reject(models.RejectPriceOutOfRange)
		}
	}

	decision.Overlap = OverlapRatio(name, term)
	if decision.Overlap < minOverlapRatio {
		return decision.reject(models.RejectLowOverlap)
	}

	if p.LessThan(globalPriceFloor) {
		return decision.reject(models.RejectPriceFloor)
	}

	decision.Accepted = true
	return decision
}

func (d RelevanceDecision) reject(reason models.RejectionReason) RelevanceDecision {
	d.Accepted = false
	d.Reason = reason
	return d
}

// OverlapRatio is the share of significant searched tokens found inside name.
// Tokens of two characters or fewer and stop words are ignored; no tokens yields 0.
func OverlapRatio(name, searched string) float64 {
	name = strings.ToLower(name)
	var total, matched int
	for _, token := range strings.Fields(strings.ToLower(searched)) {
		if len([]rune(token)) < minTokenLength || stopWords[token] {
			continue
		}
		total++
		if strings.Contains(name, token) {
			matched++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(matched) / float64(total)
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
