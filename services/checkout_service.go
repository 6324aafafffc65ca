package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Hephaestack/pnoh-eshop/errs"
	"github.com/Hephaestack/pnoh-eshop/models"
	"github.com/Hephaestack/pnoh-eshop/repository"
)

// providerNameLimit is the provider's cap on line item display names.
const providerNameLimit = 127

// sessionURLTTL bounds how long a created session's redirect URL is reused
// for an unchanged cart.
const sessionURLTTL = 30 * time.Minute

// CheckoutService prices the cart server side and opens provider-hosted
// checkout sessions. Client-supplied amounts are never trusted.
type CheckoutService struct {
	carts       repository.CartRepository
	provider    CheckoutProvider
	cache       repository.SessionCache
	quoter      *ShippingQuoter
	frontendURL string
	currency    string
	logger      *zap.Logger
}

func NewCheckoutService(carts repository.CartRepository, provider CheckoutProvider, cache repository.SessionCache, quoter *ShippingQuoter, frontendURL, currency string, logger *zap.Logger) *CheckoutService {
	return &CheckoutService{
		carts:       carts,
		provider:    provider,
		cache:       cache,
		quoter:      quoter,
		frontendURL: frontendURL,
		currency:    currency,
		logger:      logger,
	}
}

// CreateSession builds a checkout session from the identity's cart and
// returns the provider redirect URL. Re-submitting the same unchanged cart
// reuses the previous session instead of opening a new one.
func (s *CheckoutService) CreateSession(ctx context.Context, identity models.CartIdentity) (string, error) {
	cart, err := s.carts.FindByIdentity(ctx, identity)
	if err != nil {
		return "", err
	}
	if cart == nil {
		return "", errs.New(errs.KindInvalidState, "cart not found or empty")
	}

	rows, err := s.carts.ItemsWithProducts(ctx, cart.ID)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", errs.New(errs.KindInvalidState, "cart is empty")
	}

	lineItems := make([]CheckoutLineItem, 0, len(rows))
	subtotal := decimal.Zero
	for _, row := range rows {
		qty := row.Item.Quantity
		if qty < 1 {
			qty = 1
		}

		minor := models.MinorUnits(row.Product.Price)
		if minor < 1 {
			return "", errs.New(errs.KindInvalidState,
				fmt.Sprintf("product %s has a non-positive price", row.Product.ID))
		}

		name := truncateName(row.Product.Name, providerNameLimit)

		lineItems = append(lineItems, CheckoutLineItem{
			ProductID:       row.Product.ID.String(),
			Name:            name,
			ImageURL:        NormalizeImageURL(row.Product.PrimaryImage()),
			UnitAmountMinor: minor,
			Quantity:        int64(qty),
		})
		subtotal = subtotal.Add(row.Product.Price.Mul(decimal.NewFromInt(int64(qty))))
	}
	subtotal = models.Round2(subtotal)

	key := sessionIdempotencyKey(cart.ID.String(), rows)
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("session cache read failed", zap.Error(err))
		} else if cached != "" {
			s.logger.Info("reusing checkout session for unchanged cart",
				zap.String("cart_id", cart.ID.String()))
			return cached, nil
		}
	}

	metadata := models.CheckoutMetadata{
		CartID:            cart.ID.String(),
		UserID:            identity.UserID,
		GuestSessionID:    identity.GuestSessionID,
		Subtotal:          subtotal,
		FreeShipThreshold: s.quoter.Threshold(),
	}

	req := &CheckoutSessionRequest{
		Currency:        s.currency,
		LineItems:       lineItems,
		ShippingOptions: s.quoter.QuotesForSubtotal(subtotal),
		Metadata:        metadata.ToMap(),
		IdempotencyKey:  key,
		SuccessURL:      s.frontendURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:       s.frontendURL + "/checkout/cancel",
	}

	result, err := s.provider.CreateCheckoutSession(ctx, req)
	if err != nil {
		return "", err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, result.URL, sessionURLTTL); err != nil {
			s.logger.Warn("session cache write failed", zap.Error(err))
		}
	}

	s.logger.Info("created checkout session",
		zap.String("cart_id", cart.ID.String()),
		zap.String("session_id", result.ID),
	)
	return result.URL, nil
}

// truncateName caps a line item name at limit characters. Truncation counts
// runes, not bytes; a byte slice could split a multi-byte character and hand
// the provider invalid UTF-8.
func truncateName(name string, limit int) string {
	if utf8.RuneCountInString(name) <= limit {
		return name
	}
	runes := []rune(name)
	return string(runes[:limit])
}

// sessionIdempotencyKey hashes the cart id plus its sorted product/quantity
// lines, so the same cart content always maps to the same provider session.
func sessionIdempotencyKey(cartID string, rows []repository.CartLineRow) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, fmt.Sprintf("%s:%d", row.Item.ProductID, row.Item.Quantity))
	}
	sort.Strings(lines)

	h := sha256.New()
	h.Write([]byte(cartID))
	for _, line := range lines {
		h.Write([]byte("|"))
		h.Write([]byte(line))
	}
	return "checkout_" + hex.EncodeToString(h.Sum(nil))
}
