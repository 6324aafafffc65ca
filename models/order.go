package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusSent      OrderStatus = "sent"
	OrderStatusFulfilled OrderStatus = "fulfilled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending       PaymentStatus = "pending"
	PaymentStatusSucceeded     PaymentStatus = "succeeded"
	PaymentStatusFailed        PaymentStatus = "failed"
	PaymentStatusRefunded      PaymentStatus = "refunded"
	PaymentStatusPartialRefund PaymentStatus = "partial_refund"
)

// orderTransitions is the fulfillment state machine:
// pending -> sent -> fulfilled, cancellable from any non-terminal state,
// with paid as an alternate terminal reached on successful payment.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {OrderStatusPaid, OrderStatusSent, OrderStatusCancelled},
	OrderStatusSent:    {OrderStatusFulfilled, OrderStatusCancelled},
}

// paymentTransitions mirrors the provider's refund reporting: amounts are
// cumulative per charge, so a partial refund may later escalate to a full
// one.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:       {PaymentStatusSucceeded, PaymentStatusFailed},
	PaymentStatusSucceeded:     {PaymentStatusRefunded, PaymentStatusPartialRefund},
	PaymentStatusPartialRefund: {PaymentStatusRefunded},
}

// ValidOrderStatus reports whether s names a known order status.
func ValidOrderStatus(s string) bool {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusPaid, OrderStatusSent, OrderStatusFulfilled, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the fulfillment status may move to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, t := range orderTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the payment status may move to next.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, t := range paymentTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Order is the durable record reconciled from a completed checkout session.
// Exactly one order exists per provider checkout session id; the unique
// index is what makes concurrent webhook replays collapse to a single row.
// Addresses are flattened snapshots, not foreign keys, because the buyer may
// be a guest and addresses change after purchase.
type Order struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID         *string   `gorm:"type:varchar(128);index" json:"user_id,omitempty"`
	GuestSessionID *string   `gorm:"type:varchar(128);index" json:"guest_session_id,omitempty"`
	Email          *string   `gorm:"type:varchar(255)" json:"email,omitempty"`

	Currency       string          `gorm:"type:varchar(8);not null" json:"currency"`
	SubtotalAmount decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"subtotal_amount"`
	DiscountAmount decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"discount_amount"`
	ShippingAmount decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"shipping_amount"`
	TaxAmount      decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"tax_amount"`
	TotalAmount    decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"total_amount"`

	Status        OrderStatus   `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"payment_status"`

	CheckoutSessionID *string `gorm:"type:varchar(255);uniqueIndex" json:"checkout_session_id,omitempty"`
	PaymentIntentID   *string `gorm:"type:varchar(255);uniqueIndex" json:"payment_intent_id,omitempty"`

	ShippingName         *string `gorm:"type:varchar(255)" json:"shipping_name,omitempty"`
	ShippingPhone        *string `gorm:"type:varchar(64)" json:"shipping_phone,omitempty"`
	ShippingAddressLine1 *string `gorm:"type:varchar(255)" json:"shipping_address_line1,omitempty"`
	ShippingAddressLine2 *string `gorm:"type:varchar(255)" json:"shipping_address_line2,omitempty"`
	ShippingCity         *string `gorm:"type:varchar(128)" json:"shipping_city,omitempty"`
	ShippingState        *string `gorm:"type:varchar(128)" json:"shipping_state,omitempty"`
	ShippingPostalCode   *string `gorm:"type:varchar(32)" json:"shipping_postal_code,omitempty"`
	ShippingCountry      *string `gorm:"type:varchar(8)" json:"shipping_country,omitempty"`

	BillingName         *string `gorm:"type:varchar(255)" json:"billing_name,omitempty"`
	BillingAddressLine1 *string `gorm:"type:varchar(255)" json:"billing_address_line1,omitempty"`
	BillingAddressLine2 *string `gorm:"type:varchar(255)" json:"billing_address_line2,omitempty"`
	BillingCity         *string `gorm:"type:varchar(128)" json:"billing_city,omitempty"`
	BillingState        *string `gorm:"type:varchar(128)" json:"billing_state,omitempty"`
	BillingPostalCode   *string `gorm:"type:varchar(32)" json:"billing_postal_code,omitempty"`
	BillingCountry      *string `gorm:"type:varchar(8)" json:"billing_country,omitempty"`

	CustomerDetails map[string]string `gorm:"serializer:json" json:"customer_details,omitempty"`
	ShippingDetails map[string]string `gorm:"serializer:json" json:"shipping_details,omitempty"`
	ExtraMetadata   map[string]string `gorm:"serializer:json" json:"extra_metadata,omitempty"`

	Items     []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

// OrderItem is an immutable snapshot of one purchased line. The product
// reference is nullable so the snapshot survives catalog deletions.
type OrderItem struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID    *uuid.UUID      `gorm:"type:uuid" json:"product_id,omitempty"`
	ProductName  string          `gorm:"type:varchar(255);not null" json:"product_name"`
	ProductSKU   *string         `gorm:"type:varchar(64)" json:"product_sku,omitempty"`
	ProductImage *string         `gorm:"type:varchar(1024)" json:"product_image,omitempty"`
	UnitAmount   decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"unit_amount"`
	Quantity     int             `gorm:"not null;default:1" json:"quantity"`
	LineTotal    decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"line_total"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
}
