// Package filter decides whether a listing satisfies the search criteria.
package filter

import (
	"math"
	"strings"

	"github.com/aluiziolira/go-market-search/models"
	"github.com/aluiziolira/go-market-search/parser"
)

// Matches reports whether listing passes the price, keyword and discount
// checks of c. It has no side effects; any missing or unusable field counts
// as a non-match.
func Matches(listing *models.Listing, c *models.Criteria) bool {
	if listing == nil || c == nil {
		return false
	}
	return matchPrice(listing, c.PriceBounds) &&
		matchKeywords(listing.Name, c.ActiveKeywords()) &&
		matchDiscount(listing, c.Discount)
}

// matchPrice only applies to explicit bounds; preset ranges are filtered server side.
func matchPrice(listing *models.Listing, bounds *models.PriceBounds) bool {
	if bounds == nil {
		return true
	}
	price := parser.ParsePrice(listing.ShowPrice)
	return price >= bounds.Min && price <= bounds.Max
}

func matchKeywords(name string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	name = strings.ToLower(name)
	for _, kw := range keywords {
		if strings.Contains(name, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func matchDiscount(listing *models.Listing, d *models.DiscountRange) bool {
	if d == nil {
		return true
	}
	if listing.ShowPrice == nil || listing.OriginalPrice == nil {
		return false
	}
	actual, ok := Discount(parser.ParsePrice(listing.ShowPrice), parser.ParsePrice(listing.OriginalPrice))
	if !ok {
		return false
	}
	return d.Low <= actual && actual <= d.High
}

// Discount returns floor(current/original*100). ok is false when the
// original price cannot be used as a divisor.
func Discount(current, original float64) (int, bool) {
	if original <= 0 {
		return 0, false
	}
	ratio := math.Floor(current / original * 100)
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) || ratio > math.MaxInt32 || ratio < math.MinInt32 {
		return 0, false
	}
	return int(ratio), true
}
