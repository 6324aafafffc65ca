package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Hephaestack/pnoh-eshop/errs"
	middlewares "github.com/Hephaestack/pnoh-eshop/middleware"
	"github.com/Hephaestack/pnoh-eshop/services"
)

type CartController struct {
	Cart   *services.CartService
	Logger *zap.Logger
}

func NewCartController(cart *services.CartService, logger *zap.Logger) *CartController {
	return &CartController{Cart: cart, Logger: logger}
}

type addItemRequest struct {
	Quantity int `json:"quantity"`
}

// AddItem adds a product to the caller's cart, minting a guest session when
// the caller has no identity yet.
func (cc *CartController) AddItem(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	req := addItemRequest{Quantity: 1}
	if q := c.Query("quantity"); q != "" {
		qty, err := strconv.Atoi(q)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quantity"})
			return
		}
		req.Quantity = qty
	} else if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	identity := middlewares.EnsureGuestIdentity(c)

	product, err := cc.Cart.AddItem(c.Request.Context(), identity, productID, req.Quantity)
	if err != nil {
		cc.Logger.Error("failed to add cart item",
			zap.String("product_id", productID.String()), zap.Error(err))
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "item added to cart",
		"product": product.Summary(),
	})
}

// RemoveItem deletes a product line from the caller's cart.
func (cc *CartController) RemoveItem(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	identity := middlewares.GetIdentity(c)
	if err := cc.Cart.RemoveItem(c.Request.Context(), identity, productID); err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "item removed from cart"})
}

// GetCart returns the cart priced against the live catalog, with shipping
// quotes for the current subtotal.
func (cc *CartController) GetCart(c *gin.Context) {
	identity := middlewares.GetIdentity(c)

	summary, err := cc.Cart.GetCart(c.Request.Context(), identity, c.Query("selected_method"))
	if err != nil {
		cc.Logger.Error("failed to load cart", zap.Error(err))
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// MergeCart folds the guest cookie cart into the authenticated user's cart
// and retires the cookie.
func (cc *CartController) MergeCart(c *gin.Context) {
	identity := middlewares.GetIdentity(c)

	guestSessionID, _ := c.Cookie(middlewares.GuestCookieName)
	if err := cc.Cart.Merge(c.Request.Context(), guestSessionID, identity); err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	if guestSessionID != "" {
		c.SetCookie(middlewares.GuestCookieName, "", -1, "/", "", false, true)
	}

	summary, err := cc.Cart.GetCart(c.Request.Context(), identity, "")
	if err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "cart merged",
		"cart":    summary,
	})
}
