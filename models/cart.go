package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxItemQuantity caps the per-line quantity; repeated adds accumulate and
// are clamped here instead of failing.
const MaxItemQuantity = 999

// Cart belongs to exactly one identity: an authenticated user or a guest
// browsing session. The partial unique indexes guarantee at most one cart
// per user id and one per guest session id, so a racing find-or-create
// produces a constraint violation instead of a duplicate row.
type Cart struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID         *string    `gorm:"type:varchar(128);uniqueIndex:idx_carts_user_id,where:user_id IS NOT NULL" json:"user_id,omitempty"`
	GuestSessionID *string    `gorm:"type:varchar(128);uniqueIndex:idx_carts_guest_session_id,where:guest_session_id IS NOT NULL" json:"guest_session_id,omitempty"`
	Items          []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// CartItem is one product line inside a cart. (cart_id, product_id) is
// unique; adding the same product again increments the quantity.
type CartItem struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CartID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_items_cart_product" json:"cart_id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_items_cart_product" json:"product_id"`
	Quantity  int       `gorm:"not null;default:1" json:"quantity"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// CartIdentity is the tagged identity every cart operation is keyed by:
// either an authenticated user id or a guest session token. At most one side
// is consulted per operation; the user id wins when both are present.
type CartIdentity struct {
	UserID         string
	GuestSessionID string
}

// Authenticated reports whether the acting party carries a verified user id.
func (id CartIdentity) Authenticated() bool {
	return id.UserID != ""
}

// Empty reports whether no identity at all is present.
func (id CartIdentity) Empty() bool {
	return id.UserID == "" && id.GuestSessionID == ""
}

// AuthenticatedIdentity builds the identity for a verified user.
func AuthenticatedIdentity(userID string) CartIdentity {
	return CartIdentity{UserID: userID}
}

// GuestIdentity builds the identity for an anonymous browsing session.
func GuestIdentity(sessionID string) CartIdentity {
	return CartIdentity{GuestSessionID: sessionID}
}
