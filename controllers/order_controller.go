package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Hephaestack/pnoh-eshop/errs"
	middlewares "github.com/Hephaestack/pnoh-eshop/middleware"
	"github.com/Hephaestack/pnoh-eshop/models"
	"github.com/Hephaestack/pnoh-eshop/services"
)

type OrderController struct {
	Orders *services.OrderService
	Logger *zap.Logger
}

func NewOrderController(orders *services.OrderService, logger *zap.Logger) *OrderController {
	return &OrderController{Orders: orders, Logger: logger}
}

// Confirm serves the buyer's post-redirect confirmation page. It reads the
// live session state from the provider; the order link appears once the
// webhook reconciliation has landed.
func (oc *OrderController) Confirm(c *gin.Context) {
	sessionID := c.Query("session_id")

	confirmation, err := oc.Orders.ConfirmBySessionID(c.Request.Context(), sessionID)
	if err != nil {
		oc.Logger.Error("failed to confirm session",
			zap.String("session_id", sessionID), zap.Error(err))
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, confirmation)
}

// ListMine returns the authenticated user's orders, newest first.
func (oc *OrderController) ListMine(c *gin.Context) {
	identity := middlewares.GetIdentity(c)
	page, limit := pagination(c)

	orders, total, err := oc.Orders.ListForUser(c.Request.Context(), identity.UserID, page, limit)
	if err != nil {
		oc.Logger.Error("failed to list orders", zap.Error(err))
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"total":  total,
		"page":   page,
		"limit":  limit,
	})
}

// GetMine returns one order scoped to the authenticated user.
func (oc *OrderController) GetMine(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	identity := middlewares.GetIdentity(c)
	order, err := oc.Orders.GetForUser(c.Request.Context(), orderID, identity.UserID)
	if err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, order)
}

// ListAll returns every order for the back office.
func (oc *OrderController) ListAll(c *gin.Context) {
	page, limit := pagination(c)

	orders, total, err := oc.Orders.ListAll(c.Request.Context(), page, limit)
	if err != nil {
		oc.Logger.Error("failed to list all orders", zap.Error(err))
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"total":  total,
		"page":   page,
		"limit":  limit,
	})
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus moves an order through the fulfillment state machine.
func (oc *OrderController) UpdateStatus(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}
	if !models.ValidOrderStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown order status"})
		return
	}

	order, err := oc.Orders.UpdateStatus(c.Request.Context(), orderID, models.OrderStatus(req.Status))
	if err != nil {
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, order)
}

func pagination(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 10
	}
	return page, limit
}
