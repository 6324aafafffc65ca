package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/Hephaestack/pnoh-eshop/controllers"
	middlewares "github.com/Hephaestack/pnoh-eshop/middleware"
	"github.com/Hephaestack/pnoh-eshop/services"
)

// Register wires every HTTP route. The webhook stays outside the identity
// middleware because the provider authenticates with a signature, not a
// session.
func Register(
	r *gin.Engine,
	verifier services.IdentityVerifier,
	adminSecret string,
	cart *controllers.CartController,
	checkout *controllers.CheckoutController,
	orders *controllers.OrderController,
	admin *controllers.AdminController,
) {
	r.POST("/checkout/webhook", checkout.Webhook)

	identified := r.Group("/")
	identified.Use(middlewares.ResolveIdentity(verifier))
	{
		identified.GET("/cart", cart.GetCart)
		identified.POST("/cart/:product_id", cart.AddItem)
		identified.DELETE("/cart/:product_id", cart.RemoveItem)
		identified.POST("/cart/merge", middlewares.RequireUser(), cart.MergeCart)

		identified.POST("/checkout/session", middlewares.RateLimitMiddleware(), checkout.CreateSession)

		identified.GET("/orders/confirm", orders.Confirm)
		identified.GET("/orders", middlewares.RequireUser(), orders.ListMine)
		identified.GET("/orders/:id", middlewares.RequireUser(), orders.GetMine)
	}

	r.POST("/admin/login", middlewares.RateLimitMiddleware(), admin.Login)

	staff := r.Group("/admin")
	staff.Use(middlewares.RequireAdmin(adminSecret))
	{
		staff.GET("/orders", orders.ListAll)
		staff.PATCH("/orders/:id/status", orders.UpdateStatus)
	}
}
