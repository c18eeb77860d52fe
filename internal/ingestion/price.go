package ingestion

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	currencySymbolRe = regexp.MustCompile(`[^\d.,]+`)
	nonPriceCharsRe  = regexp.MustCompile(`[^\d,.]`)
)

// ExtractCurrencySymbol pulls the non-numeric currency marker out of a raw
// scraped price string, e.g. "$" from "$12.99" or "€" from "12,99 €".
func ExtractCurrencySymbol(raw string) string {
	return strings.TrimSpace(currencySymbolRe.FindString(raw))
}

// NormalizePriceNotation rewrites European decimal notation ("1.234,56") into
// American notation ("1234.56") and strips any currency markers.
func NormalizePriceNotation(raw string) string {
	price := nonPriceCharsRe.ReplaceAllString(raw, "")

	commaIndex := strings.LastIndex(price, ",")
	if commaIndex == -1 {
		return price
	}

	periodIndex := strings.LastIndex(price, ".")
	if periodIndex == -1 {
		return strings.ReplaceAll(price, ",", ".")
	}

	if commaIndex > periodIndex {
		price = strings.ReplaceAll(price, ".", "")
		return strings.ReplaceAll(price, ",", ".")
	}

	return strings.ReplaceAll(price, ",", "")
}

// ParsePrice normalizes and parses a raw scraped price string.
func ParsePrice(raw string) (decimal.Decimal, error) {
	return decimal.NewFromString(NormalizePriceNotation(raw))
}
