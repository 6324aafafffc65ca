package services

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Hephaestack/pnoh-eshop/errs"
	"github.com/Hephaestack/pnoh-eshop/repository"
)

const adminTokenTTL = 12 * time.Hour

// AdminAuthService authenticates back-office staff and issues short-lived
// HS256 tokens for the admin API.
type AdminAuthService struct {
	admins repository.AdminRepository
	secret []byte
	logger *zap.Logger
}

func NewAdminAuthService(admins repository.AdminRepository, secret string, logger *zap.Logger) *AdminAuthService {
	return &AdminAuthService{admins: admins, secret: []byte(secret), logger: logger}
}

// Login verifies credentials against the stored bcrypt hash and returns a
// signed token. Unknown usernames and bad passwords are indistinguishable to
// the caller.
func (s *AdminAuthService) Login(ctx context.Context, username, password string) (string, error) {
	admin, err := s.admins.FindByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if admin == nil {
		return "", errs.New(errs.KindUnauthorized, "invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return "", errs.New(errs.KindUnauthorized, "invalid credentials")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      admin.ID.String(),
		"username": admin.Username,
		"role":     "admin",
		"iat":      now.Unix(),
		"exp":      now.Add(adminTokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", errs.Wrap(errs.KindServiceUnavailable, "failed to sign admin token", err)
	}

	s.logger.Info("admin logged in", zap.String("username", admin.Username))
	return signed, nil
}
