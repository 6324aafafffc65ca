package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Hephaestack/pnoh-eshop/errs"
	"github.com/Hephaestack/pnoh-eshop/models"
	"github.com/Hephaestack/pnoh-eshop/repository"
)

// OrderEventPublisher emits order lifecycle events to the event stream.
// Publishing is best-effort; the reconciler never fails on it.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event models.OrderEvent) error
}

// OrderService reconciles completed checkout sessions into durable orders
// and serves order reads for customers and staff.
type OrderService struct {
	orders   repository.OrderRepository
	carts    repository.CartRepository
	provider CheckoutProvider
	events   OrderEventPublisher
	logger   *zap.Logger
}

func NewOrderService(orders repository.OrderRepository, carts repository.CartRepository, provider CheckoutProvider, events OrderEventPublisher, logger *zap.Logger) *OrderService {
	return &OrderService{
		orders:   orders,
		carts:    carts,
		provider: provider,
		events:   events,
		logger:   logger,
	}
}

// Reconcile turns a completed-session notification into exactly one order.
// The returned bool reports whether this call created the order; replays and
// concurrent deliveries find the existing row instead. Amounts come from the
// cart repriced against the live catalog, except the shipping fee and the
// degraded no-cart path, which use the provider's figures.
func (s *OrderService) Reconcile(ctx context.Context, n *models.CheckoutNotification) (*models.Order, bool, error) {
	if n == nil || n.SessionID == "" {
		return nil, false, errs.New(errs.KindInvalidState, "notification has no session id")
	}

	existing, err := s.orders.FindByCheckoutSessionID(ctx, n.SessionID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		s.logger.Info("order already reconciled for session",
			zap.String("session_id", n.SessionID),
			zap.String("order_id", existing.ID.String()))
		return existing, false, nil
	}

	meta := models.CheckoutMetadataFromMap(n.Metadata)

	var cart *models.Cart
	if meta.CartID != "" {
		if cartID, parseErr := uuid.Parse(meta.CartID); parseErr == nil {
			cart, err = s.carts.FindByID(ctx, cartID)
			if err != nil {
				return nil, false, err
			}
		}
	}

	order := s.buildOrder(n, meta)

	if cart == nil {
		// degraded path: the cart is gone, so the notification's totals are
		// all we have. The order keeps the money but has no line items.
		s.logger.Warn("reconciling without cart; using notification totals",
			zap.String("session_id", n.SessionID),
			zap.String("cart_id", meta.CartID))
		order.ShippingAmount = models.FromMinorUnits(n.ShippingAmount)
		order.TotalAmount = models.FromMinorUnits(n.AmountTotal)
	} else {
		rows, err := s.carts.ItemsWithProducts(ctx, cart.ID)
		if err != nil {
			return nil, false, err
		}

		subtotal := decimal.Zero
		for _, row := range rows {
			qty := row.Item.Quantity
			if qty < 1 {
				qty = 1
			}
			unit := row.Product.Price
			lineTotal := unit.Mul(decimal.NewFromInt(int64(qty)))
			subtotal = subtotal.Add(lineTotal)

			productID := row.Product.ID
			var image *string
			if img := row.Product.PrimaryImage(); img != "" {
				image = &img
			}
			order.Items = append(order.Items, models.OrderItem{
				ProductID:    &productID,
				ProductName:  row.Product.Name,
				ProductSKU:   row.Product.SKU,
				ProductImage: image,
				UnitAmount:   unit,
				Quantity:     qty,
				LineTotal:    models.Round2(lineTotal),
			})
		}

		order.SubtotalAmount = models.Round2(subtotal)
		order.ShippingAmount = models.FromMinorUnits(n.ShippingAmount)
		order.TotalAmount = models.Round2(
			order.SubtotalAmount.
				Add(order.ShippingAmount).
				Add(order.TaxAmount).
				Sub(order.DiscountAmount))
	}

	if err := s.orders.CreateWithItems(ctx, order); err != nil {
		if errs.IsConflict(err) {
			// a concurrent delivery won the insert race
			existing, findErr := s.orders.FindByCheckoutSessionID(ctx, n.SessionID)
			if findErr != nil {
				return nil, false, findErr
			}
			if existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, err
	}

	s.logger.Info("order reconciled",
		zap.String("order_id", order.ID.String()),
		zap.String("session_id", n.SessionID),
		zap.Bool("paid", n.Paid))

	// the cart is cleared only after the order is durable, and only for a
	// paid session; an unpaid completion leaves the cart recoverable
	if n.Paid && cart != nil {
		if err := s.carts.DeleteCart(ctx, cart.ID); err != nil {
			s.logger.Error("failed to clear cart after order",
				zap.String("cart_id", cart.ID.String()), zap.Error(err))
		}
	}

	s.publishEvent(ctx, order, n.Paid)
	return order, true, nil
}

func (s *OrderService) buildOrder(n *models.CheckoutNotification, meta models.CheckoutMetadata) *models.Order {
	currency := n.Currency
	if currency == "" {
		currency = "eur"
	}

	order := &models.Order{
		Currency:          currency,
		SubtotalAmount:    decimal.Zero,
		DiscountAmount:    decimal.Zero,
		ShippingAmount:    decimal.Zero,
		TaxAmount:         decimal.Zero,
		TotalAmount:       decimal.Zero,
		Status:            models.OrderStatusPending,
		PaymentStatus:     models.PaymentStatusPending,
		CheckoutSessionID: strPtr(n.SessionID),
		PaymentIntentID:   strPtr(n.PaymentIntentID),
		UserID:            strPtr(meta.UserID),
		GuestSessionID:    strPtr(meta.GuestSessionID),
		Email:             strPtr(n.CustomerDetails.Email),
		CustomerDetails:   partyToMap(n.CustomerDetails),
		ShippingDetails:   partyToMap(n.ShippingDetails),
		ExtraMetadata:     n.Metadata,
	}

	if n.Paid {
		order.Status = models.OrderStatusPaid
		order.PaymentStatus = models.PaymentStatusSucceeded
	}

	ship := n.ShippingDetails
	order.ShippingName = strPtr(ship.Name)
	order.ShippingPhone = strPtr(ship.Phone)
	order.ShippingAddressLine1 = strPtr(ship.Address.Line1)
	order.ShippingAddressLine2 = strPtr(ship.Address.Line2)
	order.ShippingCity = strPtr(ship.Address.City)
	order.ShippingState = strPtr(ship.Address.State)
	order.ShippingPostalCode = strPtr(ship.Address.PostalCode)
	order.ShippingCountry = strPtr(ship.Address.Country)

	bill := n.CustomerDetails
	order.BillingName = strPtr(bill.Name)
	order.BillingAddressLine1 = strPtr(bill.Address.Line1)
	order.BillingAddressLine2 = strPtr(bill.Address.Line2)
	order.BillingCity = strPtr(bill.Address.City)
	order.BillingState = strPtr(bill.Address.State)
	order.BillingPostalCode = strPtr(bill.Address.PostalCode)
	order.BillingCountry = strPtr(bill.Address.Country)

	return order
}

func (s *OrderService) publishEvent(ctx context.Context, order *models.Order, paid bool) {
	if s.events == nil {
		return
	}

	eventType := "order.created"
	if paid {
		eventType = "order.paid"
	}
	event := models.OrderEvent{
		Type:        eventType,
		OrderID:     order.ID.String(),
		TotalAmount: order.TotalAmount.StringFixed(2),
		Currency:    order.Currency,
		Timestamp:   time.Now().UTC(),
	}
	if order.CheckoutSessionID != nil {
		event.CheckoutSessionID = *order.CheckoutSessionID
	}
	if order.UserID != nil {
		event.UserID = *order.UserID
	}
	if order.GuestSessionID != nil {
		event.GuestSessionID = *order.GuestSessionID
	}

	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger.Error("failed to publish order event",
			zap.String("order_id", order.ID.String()), zap.Error(err))
	}
}

// ApplyRefund moves an order's payment status when the provider reports a
// refund. An unknown payment intent is absorbed (the provider retries on
// non-2xx, and a refund for an order we never materialized has nothing to
// update); a replay that finds the order already at the target status is a
// no-op.
func (s *OrderService) ApplyRefund(ctx context.Context, n *models.RefundNotification) (*models.Order, error) {
	if n == nil || n.PaymentIntentID == "" {
		return nil, errs.New(errs.KindInvalidState, "refund has no payment intent id")
	}

	order, err := s.orders.FindByPaymentIntentID(ctx, n.PaymentIntentID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		s.logger.Warn("refund for unknown payment intent",
			zap.String("payment_intent_id", n.PaymentIntentID))
		return nil, nil
	}

	target := models.PaymentStatusPartialRefund
	if n.Full() {
		target = models.PaymentStatusRefunded
	}
	if order.PaymentStatus == target {
		return order, nil
	}
	if !order.PaymentStatus.CanTransitionTo(target) {
		// a 5xx here would make the provider retry an event that can never
		// apply, so the refund is absorbed and left for the back office
		s.logger.Warn("refund ignored; payment status cannot move",
			zap.String("order_id", order.ID.String()),
			zap.String("from", string(order.PaymentStatus)),
			zap.String("to", string(target)))
		return order, nil
	}

	if err := s.orders.UpdatePaymentStatus(ctx, order.ID, target); err != nil {
		return nil, err
	}

	s.logger.Info("refund applied",
		zap.String("order_id", order.ID.String()),
		zap.String("payment_intent_id", n.PaymentIntentID),
		zap.String("payment_status", string(target)))

	order.PaymentStatus = target
	return order, nil
}

// OrderConfirmation is the response of the post-redirect confirm endpoint.
// The order id is present only once the webhook reconciliation has landed.
type OrderConfirmation struct {
	SessionID           string              `json:"session_id"`
	PaymentStatus       string              `json:"payment_status"`
	PaymentIntentStatus string              `json:"payment_intent_status,omitempty"`
	AmountTotal         decimal.Decimal     `json:"amount_total"`
	Currency            string              `json:"currency"`
	CustomerEmail       string              `json:"customer_email,omitempty"`
	OrderID             *uuid.UUID          `json:"order_id,omitempty"`
	OrderStatus         *models.OrderStatus `json:"order_status,omitempty"`
}

// ConfirmBySessionID fetches the live session state from the provider for
// the buyer's post-redirect confirmation page and links the reconciled order
// when it already exists.
func (s *OrderService) ConfirmBySessionID(ctx context.Context, sessionID string) (*OrderConfirmation, error) {
	if sessionID == "" {
		return nil, errs.New(errs.KindInvalidState, "session_id is required")
	}

	n, err := s.provider.RetrieveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	status := "unpaid"
	if n.Paid {
		status = "paid"
	}
	confirmation := &OrderConfirmation{
		SessionID:           n.SessionID,
		PaymentStatus:       status,
		PaymentIntentStatus: n.PaymentIntentStatus,
		AmountTotal:         models.FromMinorUnits(n.AmountTotal),
		Currency:            n.Currency,
		CustomerEmail:       n.CustomerDetails.Email,
	}

	order, err := s.orders.FindByCheckoutSessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if order != nil {
		confirmation.OrderID = &order.ID
		confirmation.OrderStatus = &order.Status
	}
	return confirmation, nil
}

// UpdateStatus moves an order through the fulfillment state machine,
// rejecting transitions the machine does not allow.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, next models.OrderStatus) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errs.New(errs.KindNotFound, "order not found")
	}

	if !order.Status.CanTransitionTo(next) {
		return nil, errs.New(errs.KindInvalidState,
			"cannot transition order from "+string(order.Status)+" to "+string(next))
	}

	if err := s.orders.UpdateStatus(ctx, orderID, next); err != nil {
		return nil, err
	}

	s.logger.Info("order status updated",
		zap.String("order_id", orderID.String()),
		zap.String("from", string(order.Status)),
		zap.String("to", string(next)))

	order.Status = next
	return order, nil
}

// ListForUser returns the user's orders, newest first.
func (s *OrderService) ListForUser(ctx context.Context, userID string, page, limit int) ([]models.Order, int64, error) {
	return s.orders.FindByUserID(ctx, userID, page, limit)
}

// GetForUser returns one order scoped to its owner.
func (s *OrderService) GetForUser(ctx context.Context, orderID uuid.UUID, userID string) (*models.Order, error) {
	order, err := s.orders.FindByIDAndUserID(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errs.New(errs.KindNotFound, "order not found")
	}
	return order, nil
}

// ListAll returns every order for the back office, newest first.
func (s *OrderService) ListAll(ctx context.Context, page, limit int) ([]models.Order, int64, error) {
	return s.orders.FindAll(ctx, page, limit)
}

func partyToMap(p models.NotificationParty) map[string]string {
	out := map[string]string{}
	put := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	put("name", p.Name)
	put("email", p.Email)
	put("phone", p.Phone)
	put("address_line1", p.Address.Line1)
	put("address_line2", p.Address.Line2)
	put("city", p.Address.City)
	put("state", p.Address.State)
	put("postal_code", p.Address.PostalCode)
	put("country", p.Address.Country)
	if len(out) == 0 {
		return nil
	}
	return out
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
