package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Hephaestack/pnoh-eshop/errs"
	"github.com/Hephaestack/pnoh-eshop/models"
	"github.com/Hephaestack/pnoh-eshop/repository"
)

// CartService owns the cart aggregate: add, remove, read with live catalog
// prices, and the guest-to-user merge protocol.
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	quoter   *ShippingQuoter
	logger   *zap.Logger
}

func NewCartService(carts repository.CartRepository, products repository.ProductRepository, quoter *ShippingQuoter, logger *zap.Logger) *CartService {
	return &CartService{carts: carts, products: products, quoter: quoter, logger: logger}
}

// AddItem puts quantity units of a product into the identity's cart,
// creating the cart lazily. Repeated adds accumulate, clamped at
// MaxItemQuantity.
func (s *CartService) AddItem(ctx context.Context, identity models.CartIdentity, productID uuid.UUID, quantity int) (*models.Product, error) {
	if identity.Empty() {
		return nil, errs.New(errs.KindInvalidState, "no cart identity resolved")
	}
	if quantity < 1 {
		return nil, errs.New(errs.KindInvalidState, "quantity must be at least 1")
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, errs.New(errs.KindNotFound, "product not found")
	}

	cart, err := s.carts.FindOrCreate(ctx, identity)
	if err != nil {
		return nil, err
	}

	item, err := s.carts.FindItem(ctx, cart.ID, productID)
	if err != nil {
		return nil, err
	}

	if item == nil {
		item = &models.CartItem{
			CartID:    cart.ID,
			ProductID: productID,
			Quantity:  clampQuantity(quantity),
		}
		err = s.carts.CreateItem(ctx, item)
		if errs.IsConflict(err) {
			// lost a create race; treat as "someone else just created it"
			item, err = s.carts.FindItem(ctx, cart.ID, productID)
			if err != nil {
				return nil, err
			}
			if item == nil {
				return nil, errs.New(errs.KindConflict, "cart item vanished during add")
			}
			return product, s.carts.UpdateItemQuantity(ctx, item.ID, clampQuantity(item.Quantity+quantity))
		}
		if err != nil {
			return nil, err
		}
		return product, nil
	}

	return product, s.carts.UpdateItemQuantity(ctx, item.ID, clampQuantity(item.Quantity+quantity))
}

// RemoveItem deletes one product line. Missing cart or line is NotFound,
// never a silent success.
func (s *CartService) RemoveItem(ctx context.Context, identity models.CartIdentity, productID uuid.UUID) error {
	cart, err := s.carts.FindByIdentity(ctx, identity)
	if err != nil {
		return err
	}
	if cart == nil {
		return errs.New(errs.KindNotFound, "cart not found")
	}

	deleted, err := s.carts.DeleteItem(ctx, cart.ID, productID)
	if err != nil {
		return err
	}
	if !deleted {
		return errs.New(errs.KindNotFound, "item not found in cart")
	}
	return nil
}

// GetCart returns the cart joined with live catalog data plus shipping
// quotes. An unknown identity yields an empty summary, not an error; only
// the items inside a cart distinguish "empty" from "absent".
func (s *CartService) GetCart(ctx context.Context, identity models.CartIdentity, selectedMethod string) (*models.CartSummary, error) {
	summary := &models.CartSummary{
		Items:          []models.CartLine{},
		Subtotal:       decimal.Zero,
		ShippingAmount: decimal.Zero,
		Total:          decimal.Zero,
	}

	cart, err := s.carts.FindByIdentity(ctx, identity)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return summary, nil
	}

	rows, err := s.carts.ItemsWithProducts(ctx, cart.ID)
	if err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	for _, row := range rows {
		qty := row.Item.Quantity
		if qty < 1 {
			qty = 1
		}
		lineTotal := row.Product.Price.Mul(decimal.NewFromInt(int64(qty)))
		summary.Items = append(summary.Items, models.CartLine{
			Product:   row.Product.Summary(),
			Quantity:  qty,
			LineTotal: lineTotal,
		})
		summary.TotalItems += qty
		subtotal = subtotal.Add(lineTotal)
	}
	summary.Subtotal = models.Round2(subtotal)

	quotes := s.quoter.QuotesForSubtotal(summary.Subtotal)
	summary.ShippingOptions = quotes
	if selected, ok := s.quoter.SelectQuote(quotes, selectedMethod); ok {
		summary.SelectedMethod = selected.Method
		summary.ShippingAmount = selected.Amount
	}
	summary.Total = models.Round2(summary.Subtotal.Add(summary.ShippingAmount))

	return summary, nil
}

// Merge folds the guest cart into the authenticated user's cart. Products
// the user already has keep the user's quantity; the guest duplicates are
// dropped. The guest cart is deleted afterwards. Missing guest cart is a
// no-op so the operation is idempotent.
func (s *CartService) Merge(ctx context.Context, guestSessionID string, user models.CartIdentity) error {
	if !user.Authenticated() {
		return errs.New(errs.KindUnauthorized, "login required to merge cart")
	}
	if guestSessionID == "" {
		return nil
	}

	guestCart, err := s.carts.FindByIdentity(ctx, models.GuestIdentity(guestSessionID))
	if err != nil {
		return err
	}
	if guestCart == nil {
		return nil
	}

	userCart, err := s.carts.FindOrCreate(ctx, user)
	if err != nil {
		return err
	}

	existing, err := s.carts.ProductIDs(ctx, userCart.ID)
	if err != nil {
		return err
	}

	if err := s.carts.MergeInto(ctx, guestCart.ID, userCart.ID, existing); err != nil {
		return err
	}

	s.logger.Info("merged guest cart into user cart",
		zap.String("guest_cart_id", guestCart.ID.String()),
		zap.String("user_cart_id", userCart.ID.String()),
	)
	return nil
}

func clampQuantity(q int) int {
	if q > models.MaxItemQuantity {
		return models.MaxItemQuantity
	}
	if q < 1 {
		return 1
	}
	return q
}
