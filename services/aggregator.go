package services

import (
	"fmt"
	"sort"

	"pricehound/models"

	"github.com/shopspring/decimal"
)

const notFoundMessage = "Product not found in any source"

var hundred = decimal.NewFromInt(100)

// Aggregator merges per-source results into one ranked result.
type Aggregator struct{}

// NewAggregator creates a new aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Aggregate ranks every accepted candidate by ascending price. Equal prices keep source order.
// Savings are set only when reference is strictly above the best price.
func (a *Aggregator) Aggregate(productName string, category models.Category, reference *decimal.Decimal, results []models.SourceResult) *models.AggregatedResult {
	out := &models.AggregatedResult{
		ProductName:    productName,
		Category:       category,
		ReferencePrice: reference,
		SourcesQueried: len(results),
		Sources:        results,
		Candidates:     []models.RankedCandidate{},
	}

	for _, r := range results {
		if r.HasCandidates() {
			out.SourcesWithResult++
		}
		for _, c := range r.Candidates {
			if !c.Accepted || !c.Available || !c.Price.IsPositive() {
				continue
			}
			out.Candidates = append(out.Candidates, models.RankedCandidate{
				Source:     c.Source,
				SourceName: r.SourceName,
				Name:       c.Name,
				URL:        c.URL,
				Price:      c.Price,
			})
		}
	}

	sort.SliceStable(out.Candidates, func(i, j int) bool {
		return out.Candidates[i].Price.LessThan(out.Candidates[j].Price)
	})
	for i := range out.Candidates {
		out.Candidates[i].Rank = i + 1
		out.Candidates[i].IsBestPrice = i == 0
	}

	if len(out.Candidates) == 0 {
		out.Status = models.StatusError
		out.Message = notFoundMessage
		return out
	}

	best := out.Candidates[0]
	out.Best = &best
	out.Status = models.StatusSuccess
	out.Message = fmt.Sprintf("Found in %d sources. Best price: %s (R$ %s)",
		out.SourcesWithResult, best.SourceName, best.Price.StringFixed(2))

	if reference != nil && reference.IsPositive() && best.Price.LessThan(*reference) {
		savings := reference.Sub(best.Price)
		pct := savings.DivRound(*reference, 4).Mul(hundred)
		out.Savings = &savings
		out.SavingsPercentage = &pct
	}
	return out
}
