package scraper

import (
	"errors"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ErrUnparseablePrice is returned when a text does not hold a price.
var ErrUnparseablePrice = errors.New("unparseable price")

// PriceNormalizer parses Brazilian formatted price texts ("R$ 1.234,56") into exact decimals.
type PriceNormalizer struct{}

// NewPriceNormalizer creates a new price normalizer
func NewPriceNormalizer() *PriceNormalizer {
	return &PriceNormalizer{}
}

// Normalize converts raw price text into a non-negative decimal with two fractional digits.
//
// Separator rules:
//   - both '.' and ',': dots group thousands, the comma is the decimal mark
//   - only ',': always the decimal mark, even with more than two trailing digits
//   - only '.': a decimal mark when exactly one dot is followed by at most two digits,
//     otherwise thousands grouping
//   - none: every non digit rune is dropped
//
// Letters left after the currency symbols are removed make the text unparseable,
// so installment banners such as "12x de R$ 383,25" never yield a price.
func (n *PriceNormalizer) Normalize(text string) (decimal.Decimal, error) {
	cleaned := strings.TrimRight(stripCurrency(text), ",")
	if cleaned == "" || strings.IndexFunc(cleaned, unicode.IsLetter) >= 0 {
		return decimal.Decimal{}, ErrUnparseablePrice
	}

	hasDot := strings.Contains(cleaned, ".")
	hasComma := strings.Contains(cleaned, ",")

	switch {
	case hasDot && hasComma:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	case hasComma:
		// 1,234 reads as 1.234; grouping-only commas are not told apart.
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	case hasDot:
		parts := strings.Split(cleaned, ".")
		if !(len(parts) == 2 && len(parts[1]) <= 2) {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
		}
	default:
		cleaned = strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, cleaned)
	}

	if !validDecimal(cleaned) {
		return decimal.Decimal{}, ErrUnparseablePrice
	}
	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, ErrUnparseablePrice
	}
	return value.Round(2), nil
}

// stripCurrency drops the "R$" marker, currency symbols and whitespace.
func stripCurrency(text string) string {
	text = strings.ReplaceAll(text, "R$", "")
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.Is(unicode.Sc, r) {
			return -1
		}
		return r
	}, text)
}

// validDecimal accepts digits with at most one dot and at least one digit.
func validDecimal(s string) bool {
	digits, dots := 0, 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}
