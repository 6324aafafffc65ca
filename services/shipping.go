package services

import (
	"github.com/shopspring/decimal"

	"github.com/Hephaestack/pnoh-eshop/models"
)

// ShippingMethod is one row of the fixed shipping table. Fees are kept in
// provider minor units so they can go straight into session params.
type ShippingMethod struct {
	ID           string
	Label        string
	BaseFeeMinor int64
}

// ShippingQuoter computes shipping options from a cart subtotal. A single
// free-shipping threshold is shared by every method.
type ShippingQuoter struct {
	methods   []ShippingMethod
	threshold decimal.Decimal
}

// DefaultFreeShippingThreshold is the storefront's shared free-shipping
// cutoff, in the cart currency.
var DefaultFreeShippingThreshold = decimal.RequireFromString("150.00")

var defaultShippingMethods = []ShippingMethod{
	{ID: "courier", Label: "Geniki Taxydromiki Courier", BaseFeeMinor: 450},
	{ID: "boxnow", Label: "BOX NOW Locker", BaseFeeMinor: 290},
}

// NewShippingQuoter builds a quoter over an explicit table; used by tests.
func NewShippingQuoter(methods []ShippingMethod, threshold decimal.Decimal) *ShippingQuoter {
	return &ShippingQuoter{methods: methods, threshold: threshold}
}

// DefaultShippingQuoter builds the storefront's standard quoter.
func DefaultShippingQuoter() *ShippingQuoter {
	return NewShippingQuoter(defaultShippingMethods, DefaultFreeShippingThreshold)
}

// Threshold returns the shared free-shipping threshold.
func (q *ShippingQuoter) Threshold() decimal.Decimal {
	return q.threshold
}

// QuotesForSubtotal returns one quote per method, in table order. A subtotal
// meeting the threshold zeroes every fee; one cent below does not.
func (q *ShippingQuoter) QuotesForSubtotal(subtotal decimal.Decimal) []models.ShippingQuote {
	free := subtotal.GreaterThanOrEqual(q.threshold)

	quotes := make([]models.ShippingQuote, 0, len(q.methods))
	for _, m := range q.methods {
		amount := models.FromMinorUnits(m.BaseFeeMinor)
		if free {
			amount = decimal.Zero
		}
		quotes = append(quotes, models.ShippingQuote{
			Method:      m.ID,
			Label:       m.Label,
			Amount:      amount,
			FreeApplied: free,
		})
	}
	return quotes
}

// SelectQuote picks a quote by method id; the first quote is the default
// when no or an unknown method is requested.
func (q *ShippingQuoter) SelectQuote(quotes []models.ShippingQuote, method string) (models.ShippingQuote, bool) {
	if len(quotes) == 0 {
		return models.ShippingQuote{}, false
	}
	for _, quote := range quotes {
		if quote.Method == method {
			return quote, true
		}
	}
	return quotes[0], true
}
