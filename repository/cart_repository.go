package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Hephaestack/pnoh-eshop/errs"
	"github.com/Hephaestack/pnoh-eshop/models"
)

// CartLineRow is a cart item joined with its live catalog row.
type CartLineRow struct {
	Item    models.CartItem
	Product models.Product
}

// CartRepository defines the data access surface for carts. All find methods
// return (nil, nil) when no row exists; "no cart" is a normal state, not an
// error.
type CartRepository interface {
	FindByIdentity(ctx context.Context, identity models.CartIdentity) (*models.Cart, error)
	FindByID(ctx context.Context, cartID uuid.UUID) (*models.Cart, error)
	FindOrCreate(ctx context.Context, identity models.CartIdentity) (*models.Cart, error)
	FindItem(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error)
	CreateItem(ctx context.Context, item *models.CartItem) error
	UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error
	DeleteItem(ctx context.Context, cartID, productID uuid.UUID) (bool, error)
	ItemsWithProducts(ctx context.Context, cartID uuid.UUID) ([]CartLineRow, error)
	ProductIDs(ctx context.Context, cartID uuid.UUID) ([]uuid.UUID, error)
	MergeInto(ctx context.Context, guestCartID, userCartID uuid.UUID, skipProducts []uuid.UUID) error
	DeleteCart(ctx context.Context, cartID uuid.UUID) error
}

// GormCartRepository implements CartRepository using GORM.
type GormCartRepository struct {
	db *gorm.DB
}

func NewGormCartRepository(db *gorm.DB) CartRepository {
	return &GormCartRepository{db: db}
}

func (r *GormCartRepository) FindByIdentity(ctx context.Context, identity models.CartIdentity) (*models.Cart, error) {
	if identity.Empty() {
		return nil, nil
	}

	query := r.db.WithContext(ctx)
	if identity.Authenticated() {
		query = query.Where("user_id = ?", identity.UserID)
	} else {
		query = query.Where("guest_session_id = ?", identity.GuestSessionID)
	}

	var cart models.Cart
	if err := query.First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cart, nil
}

func (r *GormCartRepository) FindByID(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.db.WithContext(ctx).Where("id = ?", cartID).First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cart, nil
}

// FindOrCreate resolves the cart for an identity, creating it lazily. A
// concurrent create for the same identity trips the partial unique index;
// the loser re-reads the winner's row instead of failing.
func (r *GormCartRepository) FindOrCreate(ctx context.Context, identity models.CartIdentity) (*models.Cart, error) {
	cart, err := r.FindByIdentity(ctx, identity)
	if err != nil || cart != nil {
		return cart, err
	}

	cart = &models.Cart{}
	if identity.Authenticated() {
		userID := identity.UserID
		cart.UserID = &userID
	} else {
		sessionID := identity.GuestSessionID
		cart.GuestSessionID = &sessionID
	}

	if err := r.db.WithContext(ctx).Create(cart).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return r.FindByIdentity(ctx, identity)
		}
		return nil, err
	}
	return cart, nil
}

func (r *GormCartRepository) FindItem(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *GormCartRepository) CreateItem(ctx context.Context, item *models.CartItem) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.Wrap(errs.KindConflict, "cart item already exists", err)
		}
		return err
	}
	return nil
}

func (r *GormCartRepository) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", itemID).
		Update("quantity", quantity).Error
}

func (r *GormCartRepository) DeleteItem(ctx context.Context, cartID, productID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormCartRepository) ItemsWithProducts(ctx context.Context, cartID uuid.UUID) ([]CartLineRow, error) {
	var items []models.CartItem
	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}

	var products []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	rows := make([]CartLineRow, 0, len(items))
	for _, it := range items {
		p, ok := byID[it.ProductID]
		if !ok {
			// catalog row deleted underneath the cart; drop the line
			continue
		}
		rows = append(rows, CartLineRow{Item: it, Product: p})
	}
	return rows, nil
}

func (r *GormCartRepository) ProductIDs(ctx context.Context, cartID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("cart_id = ?", cartID).
		Pluck("product_id", &ids).Error
	return ids, err
}

// MergeInto moves guest items into the user cart, skipping products the user
// already has, then removes the guest cart. Runs as one transaction so a
// half-merged cart can never be observed.
func (r *GormCartRepository) MergeInto(ctx context.Context, guestCartID, userCartID uuid.UUID, skipProducts []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		move := tx.Model(&models.CartItem{}).Where("cart_id = ?", guestCartID)
		if len(skipProducts) > 0 {
			move = move.Where("product_id NOT IN ?", skipProducts)
		}
		if err := move.Update("cart_id", userCartID).Error; err != nil {
			return err
		}

		if err := tx.Where("cart_id = ?", guestCartID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", guestCartID).Delete(&models.Cart{}).Error
	})
}

// DeleteCart removes a cart and all of its items.
func (r *GormCartRepository) DeleteCart(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", cartID).Delete(&models.Cart{}).Error
	})
}
