package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/checkout/session"
	"github.com/stripe/stripe-go/v80/webhook"

	"github.com/Hephaestack/pnoh-eshop/errs"
	"github.com/Hephaestack/pnoh-eshop/models"
)

// CheckoutLineItem is one provider line item, priced in minor units from the
// live catalog.
type CheckoutLineItem struct {
	ProductID       string
	Name            string
	ImageURL        string
	UnitAmountMinor int64
	Quantity        int64
}

// CheckoutSessionRequest is everything needed to open a provider-hosted
// checkout session.
type CheckoutSessionRequest struct {
	Currency        string
	LineItems       []CheckoutLineItem
	ShippingOptions []models.ShippingQuote
	Metadata        map[string]string
	IdempotencyKey  string
	SuccessURL      string
	CancelURL       string
}

// CheckoutSessionResult carries the provider session id and the redirect
// target for the buyer.
type CheckoutSessionResult struct {
	ID  string
	URL string
}

// VerifiedNotification is a parsed inbound provider notification. Verified
// reports whether a signature was actually checked; the unsigned fallback is
// for local development only.
type VerifiedNotification struct {
	EventType    string
	Notification *models.CheckoutNotification
	Refund       *models.RefundNotification
	Verified     bool
}

// CheckoutProvider is the outbound payment-provider surface consumed by the
// checkout and order services.
type CheckoutProvider interface {
	CreateCheckoutSession(ctx context.Context, req *CheckoutSessionRequest) (*CheckoutSessionResult, error)
	RetrieveSession(ctx context.Context, sessionID string) (*models.CheckoutNotification, error)
}

// NotificationVerifier validates inbound webhook payloads.
type NotificationVerifier interface {
	VerifyNotification(payload []byte, signature string) (*VerifiedNotification, error)
}

const checkoutSessionCompleted = "checkout.session.completed"

const chargeRefunded = "charge.refunded"

// providerTimeout bounds outbound Stripe API calls. The SDK's own default is
// far too long to hold an HTTP request open for.
const providerTimeout = 10 * time.Second

// withProviderTimeout derives a call context for an outbound provider
// request, tightening the parent deadline only when the parent has none or a
// later one.
func withProviderTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, providerTimeout)
}

// allowedShippingCountries mirrors the storefront's delivery zone.
var allowedShippingCountries = []string{"GR", "DE", "FR", "IT", "ES", "GB"}

// StripeService implements CheckoutProvider and NotificationVerifier against
// the Stripe API. Keys are injected at construction so tests can substitute
// the whole provider.
type StripeService struct {
	secretKey     string
	webhookSecret string
}

func NewStripeService(secretKey, webhookSecret string) *StripeService {
	stripe.Key = secretKey
	return &StripeService{secretKey: secretKey, webhookSecret: webhookSecret}
}

// WebhookVerificationEnabled reports whether inbound notifications will
// actually be signature-checked.
func (s *StripeService) WebhookVerificationEnabled() bool {
	return s.webhookSecret != ""
}

func (s *StripeService) CreateCheckoutSession(ctx context.Context, req *CheckoutSessionRequest) (*CheckoutSessionResult, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:                     stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:               stripe.String(req.SuccessURL),
		CancelURL:                stripe.String(req.CancelURL),
		BillingAddressCollection: stripe.String("auto"),
		ShippingAddressCollection: &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(allowedShippingCountries),
		},
	}
	callCtx, cancel := withProviderTimeout(ctx)
	defer cancel()
	params.Context = callCtx
	params.SetIdempotencyKey(req.IdempotencyKey)
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	for _, li := range req.LineItems {
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name:     stripe.String(li.Name),
			Metadata: map[string]string{"product_id": li.ProductID},
		}
		if li.ImageURL != "" {
			productData.Images = stripe.StringSlice([]string{li.ImageURL})
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(req.Currency),
				ProductData: productData,
				UnitAmount:  stripe.Int64(li.UnitAmountMinor),
			},
			Quantity: stripe.Int64(li.Quantity),
		})
	}

	for _, q := range req.ShippingOptions {
		params.ShippingOptions = append(params.ShippingOptions, &stripe.CheckoutSessionShippingOptionParams{
			ShippingRateData: &stripe.CheckoutSessionShippingOptionShippingRateDataParams{
				Type:        stripe.String("fixed_amount"),
				DisplayName: stripe.String(q.Label),
				FixedAmount: &stripe.CheckoutSessionShippingOptionShippingRateDataFixedAmountParams{
					Amount:   stripe.Int64(models.MinorUnits(q.Amount)),
					Currency: stripe.String(req.Currency),
				},
				Metadata: map[string]string{"method": q.Method},
			},
		})
	}

	sess, err := session.New(params)
	if err != nil {
		return nil, errs.Wrap(errs.KindServiceUnavailable, "failed to create checkout session", err)
	}
	return &CheckoutSessionResult{ID: sess.ID, URL: sess.URL}, nil
}

func (s *StripeService) RetrieveSession(ctx context.Context, sessionID string) (*models.CheckoutNotification, error) {
	params := &stripe.CheckoutSessionParams{}
	callCtx, cancel := withProviderTimeout(ctx)
	defer cancel()
	params.Context = callCtx
	params.AddExpand("payment_intent")

	sess, err := session.Get(sessionID, params)
	if err != nil {
		return nil, errs.Wrap(errs.KindServiceUnavailable, "failed to retrieve checkout session", err)
	}

	n := &models.CheckoutNotification{
		SessionID:   sess.ID,
		Currency:    string(sess.Currency),
		AmountTotal: sess.AmountTotal,
		Paid:        sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		Metadata:    sess.Metadata,
	}
	if sess.PaymentIntent != nil {
		n.PaymentIntentID = sess.PaymentIntent.ID
		n.PaymentIntentStatus = string(sess.PaymentIntent.Status)
	}
	if sess.CustomerDetails != nil {
		n.CustomerDetails.Name = sess.CustomerDetails.Name
		n.CustomerDetails.Email = sess.CustomerDetails.Email
		n.CustomerDetails.Phone = sess.CustomerDetails.Phone
		if sess.CustomerDetails.Address != nil {
			n.CustomerDetails.Address = models.NotificationAddress{
				Line1:      sess.CustomerDetails.Address.Line1,
				Line2:      sess.CustomerDetails.Address.Line2,
				City:       sess.CustomerDetails.Address.City,
				State:      sess.CustomerDetails.Address.State,
				PostalCode: sess.CustomerDetails.Address.PostalCode,
				Country:    sess.CustomerDetails.Address.Country,
			}
		}
	}
	return n, nil
}

// VerifyNotification checks the webhook signature and parses the payload.
// With no secret configured the payload is trusted unsigned and flagged
// Verified=false; production configuration must always set the secret.
func (s *StripeService) VerifyNotification(payload []byte, signature string) (*VerifiedNotification, error) {
	var event stripe.Event
	verified := false

	if s.webhookSecret != "" {
		ev, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
		if err != nil {
			return nil, errs.Wrap(errs.KindAuthentication, "webhook signature verification failed", err)
		}
		event = ev
		verified = true
	} else if err := json.Unmarshal(payload, &event); err != nil {
		return nil, errs.Wrap(errs.KindAuthentication, "malformed webhook payload", err)
	}

	out := &VerifiedNotification{EventType: string(event.Type), Verified: verified}
	switch out.EventType {
	case checkoutSessionCompleted:
		notification, err := decodeSessionPayload(event.Data.Raw)
		if err != nil {
			return nil, errs.Wrap(errs.KindAuthentication, "malformed checkout session payload", err)
		}
		out.Notification = notification
	case chargeRefunded:
		refund, err := decodeChargePayload(event.Data.Raw)
		if err != nil {
			return nil, errs.Wrap(errs.KindAuthentication, "malformed charge payload", err)
		}
		out.Refund = refund
	}
	return out, nil
}

// stripeSessionPayload decodes the checkout.session object from the raw
// event JSON. Decoding by hand keeps field coverage independent of the SDK's
// struct layout and tolerates both string and expanded payment_intent forms.
type stripeSessionPayload struct {
	ID            string            `json:"id"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	PaymentStatus string            `json:"payment_status"`
	PaymentIntent json.RawMessage   `json:"payment_intent"`
	Metadata      map[string]string `json:"metadata"`
	ShippingCost  *struct {
		AmountTotal int64 `json:"amount_total"`
	} `json:"shipping_cost"`
	CustomerDetails *stripePartyPayload `json:"customer_details"`
	ShippingDetails *stripePartyPayload `json:"shipping_details"`
}

type stripePartyPayload struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address *struct {
		Line1      string `json:"line1"`
		Line2      string `json:"line2"`
		City       string `json:"city"`
		State      string `json:"state"`
		PostalCode string `json:"postal_code"`
		Country    string `json:"country"`
	} `json:"address"`
}

func (p *stripePartyPayload) toParty() models.NotificationParty {
	if p == nil {
		return models.NotificationParty{}
	}
	party := models.NotificationParty{Name: p.Name, Phone: p.Phone, Email: p.Email}
	if p.Address != nil {
		party.Address = models.NotificationAddress{
			Line1:      p.Address.Line1,
			Line2:      p.Address.Line2,
			City:       p.Address.City,
			State:      p.Address.State,
			PostalCode: p.Address.PostalCode,
			Country:    p.Address.Country,
		}
	}
	return party
}

// stripeChargePayload decodes the charge object from a charge.refunded
// event. amount_refunded is cumulative across the charge's refunds.
type stripeChargePayload struct {
	Amount         int64           `json:"amount"`
	AmountRefunded int64           `json:"amount_refunded"`
	PaymentIntent  json.RawMessage `json:"payment_intent"`
}

func decodeChargePayload(raw json.RawMessage) (*models.RefundNotification, error) {
	var payload stripeChargePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}

	r := &models.RefundNotification{
		AmountRefunded: payload.AmountRefunded,
		AmountCharged:  payload.Amount,
	}
	if len(payload.PaymentIntent) > 0 {
		var piID string
		if err := json.Unmarshal(payload.PaymentIntent, &piID); err == nil {
			r.PaymentIntentID = piID
		} else {
			var pi struct {
				ID string `json:"id"`
			}
			if err := json.Unmarshal(payload.PaymentIntent, &pi); err == nil {
				r.PaymentIntentID = pi.ID
			}
		}
	}
	return r, nil
}

func decodeSessionPayload(raw json.RawMessage) (*models.CheckoutNotification, error) {
	var payload stripeSessionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}

	n := &models.CheckoutNotification{
		SessionID:       payload.ID,
		Currency:        payload.Currency,
		AmountTotal:     payload.AmountTotal,
		Paid:            payload.PaymentStatus == "paid",
		Metadata:        payload.Metadata,
		CustomerDetails: payload.CustomerDetails.toParty(),
		ShippingDetails: payload.ShippingDetails.toParty(),
	}
	if payload.ShippingCost != nil {
		n.ShippingAmount = payload.ShippingCost.AmountTotal
	}
	if len(payload.PaymentIntent) > 0 {
		var piID string
		if err := json.Unmarshal(payload.PaymentIntent, &piID); err == nil {
			n.PaymentIntentID = piID
		} else {
			var pi struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			}
			if err := json.Unmarshal(payload.PaymentIntent, &pi); err == nil {
				n.PaymentIntentID = pi.ID
				n.PaymentIntentStatus = pi.Status
			}
		}
	}
	return n, nil
}
