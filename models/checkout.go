package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Metadata keys carried through the provider round trip. The metadata is the
// only channel by which the reconciler learns which cart a completed session
// belongs to; it is trusted for correlation, never for amounts.
const (
	metaKeyCartID         = "cart_id"
	metaKeyUserID         = "user_id"
	metaKeyGuestSessionID = "guest_session_id"
	metaKeySubtotal       = "subtotal"
	metaKeyFreeThreshold  = "free_shipping_threshold"
)

// CheckoutMetadata is the typed view of the opaque metadata attached to a
// provider checkout session. It is flattened to a string-keyed map only at
// the provider boundary.
type CheckoutMetadata struct {
	CartID            string
	UserID            string
	GuestSessionID    string
	Subtotal          decimal.Decimal
	FreeShipThreshold decimal.Decimal
}

// ToMap flattens the metadata for the provider API. Empty identity fields
// are still emitted so the reconciler can distinguish "guest" from "absent".
func (m CheckoutMetadata) ToMap() map[string]string {
	return map[string]string{
		metaKeyCartID:         m.CartID,
		metaKeyUserID:         m.UserID,
		metaKeyGuestSessionID: m.GuestSessionID,
		metaKeySubtotal:       m.Subtotal.StringFixed(2),
		metaKeyFreeThreshold:  m.FreeShipThreshold.StringFixed(2),
	}
}

// CheckoutMetadataFromMap parses provider metadata back into the typed form.
// Malformed numeric fields decode to zero; the reconciler never prices from
// metadata anyway.
func CheckoutMetadataFromMap(raw map[string]string) CheckoutMetadata {
	m := CheckoutMetadata{
		CartID:         raw[metaKeyCartID],
		UserID:         raw[metaKeyUserID],
		GuestSessionID: raw[metaKeyGuestSessionID],
	}
	if d, err := decimal.NewFromString(raw[metaKeySubtotal]); err == nil {
		m.Subtotal = d
	}
	if d, err := decimal.NewFromString(raw[metaKeyFreeThreshold]); err == nil {
		m.FreeShipThreshold = d
	}
	return m
}

// NotificationAddress is a flattened address as reported by the provider.
type NotificationAddress struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// NotificationParty is the customer or shipping contact on a notification.
type NotificationParty struct {
	Name    string              `json:"name"`
	Phone   string              `json:"phone"`
	Email   string              `json:"email"`
	Address NotificationAddress `json:"address"`
}

// CheckoutNotification is the provider-neutral payload the reconciler
// consumes. The Stripe layer maps checkout.session.completed events and
// retrieved sessions into this shape; amount fields are provider minor
// units and are only trusted for the shipping fee and the degraded path.
type CheckoutNotification struct {
	SessionID           string
	PaymentIntentID     string
	PaymentIntentStatus string
	Currency            string
	AmountTotal         int64
	ShippingAmount      int64
	Paid                bool
	CustomerDetails     NotificationParty
	ShippingDetails     NotificationParty
	Metadata            map[string]string
}

// RefundNotification reports a provider refund against a payment intent.
// Amounts are provider minor units; AmountRefunded covers the charge's
// cumulative refunds, so a partial followed by the remainder arrives as a
// full refund.
type RefundNotification struct {
	PaymentIntentID string
	AmountRefunded  int64
	AmountCharged   int64
}

// Full reports whether the charge has been refunded in its entirety.
func (r RefundNotification) Full() bool {
	return r.AmountCharged > 0 && r.AmountRefunded >= r.AmountCharged
}

// ShippingQuote is one computed shipping option for the current subtotal.
type ShippingQuote struct {
	Method      string          `json:"method"`
	Label       string          `json:"label"`
	Amount      decimal.Decimal `json:"amount"`
	FreeApplied bool            `json:"free_applied"`
}

// CartLine is one cart row joined with live catalog data. Cart totals follow
// current catalog prices; only orders snapshot prices.
type CartLine struct {
	Product   ProductSummary  `json:"product"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// CartSummary is the response shape of GET /cart.
type CartSummary struct {
	Items           []CartLine      `json:"items"`
	TotalItems      int             `json:"total_items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	ShippingOptions []ShippingQuote `json:"shipping_options,omitempty"`
	SelectedMethod  string          `json:"selected_method,omitempty"`
	ShippingAmount  decimal.Decimal `json:"shipping_amount"`
	Total           decimal.Decimal `json:"total"`
}

// OrderEvent is published to the event stream after an order is durably
// persisted. Best-effort: failures are logged, never surfaced to the buyer.
type OrderEvent struct {
	Type              string    `json:"type"`
	OrderID           string    `json:"order_id"`
	CheckoutSessionID string    `json:"checkout_session_id"`
	UserID            string    `json:"user_id,omitempty"`
	GuestSessionID    string    `json:"guest_session_id,omitempty"`
	TotalAmount       string    `json:"total_amount"`
	Currency          string    `json:"currency"`
	Timestamp         time.Time `json:"timestamp"`
}
