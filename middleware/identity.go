package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Hephaestack/pnoh-eshop/errs"
	"github.com/Hephaestack/pnoh-eshop/models"
	"github.com/Hephaestack/pnoh-eshop/services"
)

const (
	// GuestCookieName carries the anonymous cart identity across visits.
	GuestCookieName = "guest_session_id"

	// guestCookieMaxAge is seven days, matching how long an abandoned guest
	// cart stays recoverable.
	guestCookieMaxAge = 7 * 24 * 60 * 60

	identityKey = "cart_identity"
)

// ResolveIdentity determines who the cart belongs to. A bearer token is
// verified with the identity provider and wins over the guest cookie; an
// invalid token is rejected rather than silently downgraded to guest.
func ResolveIdentity(verifier services.IdentityVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			token := strings.TrimPrefix(header, "Bearer ")
			verified, err := verifier.Verify(c.Request.Context(), token)
			if err != nil {
				c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
				c.Abort()
				return
			}
			c.Set(identityKey, models.AuthenticatedIdentity(verified.UserID))
			c.Next()
			return
		}

		if cookie, err := c.Cookie(GuestCookieName); err == nil && cookie != "" {
			c.Set(identityKey, models.GuestIdentity(cookie))
		} else {
			c.Set(identityKey, models.CartIdentity{})
		}
		c.Next()
	}
}

// GetIdentity returns the identity resolved for this request.
func GetIdentity(c *gin.Context) models.CartIdentity {
	if v, ok := c.Get(identityKey); ok {
		if identity, ok := v.(models.CartIdentity); ok {
			return identity
		}
	}
	return models.CartIdentity{}
}

// EnsureGuestIdentity returns the resolved identity, minting a fresh guest
// session cookie when the request carries no identity at all. Only handlers
// that create cart state call this; reads never mint cookies.
func EnsureGuestIdentity(c *gin.Context) models.CartIdentity {
	identity := GetIdentity(c)
	if !identity.Empty() {
		return identity
	}

	sessionID := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(GuestCookieName, sessionID, guestCookieMaxAge, "/", "", false, true)

	identity = models.GuestIdentity(sessionID)
	c.Set(identityKey, identity)
	return identity
}

// RequireUser aborts unless the resolved identity is an authenticated user.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetIdentity(c).Authenticated() {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "login required"})
			c.Abort()
			return
		}
		c.Next()
	}
}
