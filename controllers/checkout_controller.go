package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Hephaestack/pnoh-eshop/errs"
	middlewares "github.com/Hephaestack/pnoh-eshop/middleware"
	"github.com/Hephaestack/pnoh-eshop/services"
)

// maxWebhookBody bounds inbound webhook payloads.
const maxWebhookBody = 1 << 20

type CheckoutController struct {
	Checkout *services.CheckoutService
	Orders   *services.OrderService
	Verifier services.NotificationVerifier
	Logger   *zap.Logger
}

func NewCheckoutController(checkout *services.CheckoutService, orders *services.OrderService, verifier services.NotificationVerifier, logger *zap.Logger) *CheckoutController {
	return &CheckoutController{Checkout: checkout, Orders: orders, Verifier: verifier, Logger: logger}
}

// CreateSession opens a provider checkout session for the caller's cart and
// returns the redirect URL.
func (cc *CheckoutController) CreateSession(c *gin.Context) {
	identity := middlewares.GetIdentity(c)

	url, err := cc.Checkout.CreateSession(c.Request.Context(), identity)
	if err != nil {
		cc.Logger.Error("failed to create checkout session", zap.Error(err))
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// Webhook receives provider notifications. Signature failures are 400 so the
// provider gives up; persistence failures are 5xx so it retries; everything
// the reconciler absorbed, replays included, is 200.
func (cc *CheckoutController) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read payload"})
		return
	}

	verified, err := cc.Verifier.VerifyNotification(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		cc.Logger.Warn("rejected webhook", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !verified.Verified {
		cc.Logger.Warn("accepted unsigned webhook; configure the webhook secret outside development")
	}

	if verified.Refund != nil {
		order, err := cc.Orders.ApplyRefund(c.Request.Context(), verified.Refund)
		if err != nil {
			cc.Logger.Error("webhook refund failed",
				zap.String("payment_intent_id", verified.Refund.PaymentIntentID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process refund"})
			return
		}
		resp := gin.H{"received": true}
		if order != nil {
			resp["order_id"] = order.ID
		}
		c.JSON(http.StatusOK, resp)
		return
	}

	if verified.Notification == nil {
		// an event type we do not act on
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	order, created, err := cc.Orders.Reconcile(c.Request.Context(), verified.Notification)
	if err != nil {
		cc.Logger.Error("webhook reconciliation failed",
			zap.String("session_id", verified.Notification.SessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process notification"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"received": true,
		"order_id": order.ID,
		"created":  created,
	})
}
