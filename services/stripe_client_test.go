package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Hephaestack/pnoh-eshop/errs"
	"github.com/Hephaestack/pnoh-eshop/services"
)

const completedSessionEvent = `{
	"type": "checkout.session.completed",
	"data": {
		"object": {
			"id": "cs_test_42",
			"amount_total": 4448,
			"currency": "eur",
			"payment_status": "paid",
			"payment_intent": "pi_test_42",
			"metadata": {"cart_id": "cart-1", "guest_session_id": "guest-1"},
			"shipping_cost": {"amount_total": 450},
			"customer_details": {
				"name": "Maria P",
				"email": "maria@example.com",
				"address": {"line1": "Ermou 1", "city": "Athens", "postal_code": "10563", "country": "GR"}
			},
			"shipping_details": {
				"name": "Maria P",
				"address": {"line1": "Ermou 1", "city": "Athens", "postal_code": "10563", "country": "GR"}
			}
		}
	}
}`

func TestVerifyNotification_UnsignedFallback(t *testing.T) {
	svc := services.NewStripeService("sk_test_x", "")
	assert.False(t, svc.WebhookVerificationEnabled())

	got, err := svc.VerifyNotification([]byte(completedSessionEvent), "")

	assert.NoError(t, err)
	assert.False(t, got.Verified)
	assert.Equal(t, "checkout.session.completed", got.EventType)

	n := got.Notification
	assert.NotNil(t, n)
	assert.Equal(t, "cs_test_42", n.SessionID)
	assert.Equal(t, "pi_test_42", n.PaymentIntentID)
	assert.True(t, n.Paid)
	assert.Equal(t, int64(4448), n.AmountTotal)
	assert.Equal(t, int64(450), n.ShippingAmount)
	assert.Equal(t, "cart-1", n.Metadata["cart_id"])
	assert.Equal(t, "maria@example.com", n.CustomerDetails.Email)
	assert.Equal(t, "Athens", n.ShippingDetails.Address.City)
}

func TestVerifyNotification_ExpandedPaymentIntent(t *testing.T) {
	svc := services.NewStripeService("sk_test_x", "")
	payload := `{
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_test_43",
			"payment_status": "paid",
			"payment_intent": {"id": "pi_test_43", "status": "succeeded"}
		}}
	}`

	got, err := svc.VerifyNotification([]byte(payload), "")

	assert.NoError(t, err)
	assert.Equal(t, "pi_test_43", got.Notification.PaymentIntentID)
	assert.Equal(t, "succeeded", got.Notification.PaymentIntentStatus)
}

func TestVerifyNotification_ChargeRefunded(t *testing.T) {
	svc := services.NewStripeService("sk_test_x", "")
	payload := `{
		"type": "charge.refunded",
		"data": {"object": {
			"amount": 4448,
			"amount_refunded": 1000,
			"payment_intent": "pi_test_42"
		}}
	}`

	got, err := svc.VerifyNotification([]byte(payload), "")

	assert.NoError(t, err)
	assert.Nil(t, got.Notification)
	assert.NotNil(t, got.Refund)
	assert.Equal(t, "pi_test_42", got.Refund.PaymentIntentID)
	assert.Equal(t, int64(1000), got.Refund.AmountRefunded)
	assert.Equal(t, int64(4448), got.Refund.AmountCharged)
	assert.False(t, got.Refund.Full())
}

func TestVerifyNotification_ChargeRefundedExpandedIntent(t *testing.T) {
	svc := services.NewStripeService("sk_test_x", "")
	payload := `{
		"type": "charge.refunded",
		"data": {"object": {
			"amount": 4448,
			"amount_refunded": 4448,
			"payment_intent": {"id": "pi_test_43"}
		}}
	}`

	got, err := svc.VerifyNotification([]byte(payload), "")

	assert.NoError(t, err)
	assert.Equal(t, "pi_test_43", got.Refund.PaymentIntentID)
	assert.True(t, got.Refund.Full())
}

func TestVerifyNotification_IgnoredEventType(t *testing.T) {
	svc := services.NewStripeService("sk_test_x", "")

	got, err := svc.VerifyNotification([]byte(`{"type": "payment_intent.created", "data": {"object": {}}}`), "")

	assert.NoError(t, err)
	assert.Nil(t, got.Notification)
	assert.Equal(t, "payment_intent.created", got.EventType)
}

func TestVerifyNotification_BadSignature(t *testing.T) {
	svc := services.NewStripeService("sk_test_x", "whsec_test")
	assert.True(t, svc.WebhookVerificationEnabled())

	_, err := svc.VerifyNotification([]byte(completedSessionEvent), "t=1,v1=deadbeef")

	assert.Error(t, err)
	assert.Equal(t, errs.KindAuthentication, errs.KindOf(err))
}

func TestVerifyNotification_MalformedPayload(t *testing.T) {
	svc := services.NewStripeService("sk_test_x", "")

	_, err := svc.VerifyNotification([]byte("not json"), "")

	assert.Error(t, err)
	assert.Equal(t, errs.KindAuthentication, errs.KindOf(err))
}
