package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Hephaestack/pnoh-eshop/errs"
	"github.com/Hephaestack/pnoh-eshop/services"
)

type AdminController struct {
	Auth   *services.AdminAuthService
	Logger *zap.Logger
}

func NewAdminController(auth *services.AdminAuthService, logger *zap.Logger) *AdminController {
	return &AdminController{Auth: auth, Logger: logger}
}

type adminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login exchanges staff credentials for a bearer token.
func (ac *AdminController) Login(c *gin.Context) {
	var req adminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	token, err := ac.Auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		ac.Logger.Warn("admin login failed", zap.String("username", req.Username))
		c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}
