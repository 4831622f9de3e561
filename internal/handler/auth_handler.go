package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"usermgmt/internal/errors"
	"usermgmt/internal/model"
	"usermgmt/internal/service"
)

// Realm is the HTTP Basic realm advertised in WWW-Authenticate challenges.
const Realm = "accounts"

const accountContextKey = "account"

// AuthMiddleware guards routes with per-request HTTP Basic credentials.
type AuthMiddleware struct {
	authService service.AuthService
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(authService service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// BasicAuth authenticates the request and stores the account in the echo context.
func (m *AuthMiddleware) BasicAuth() echo.MiddlewareFunc {
	return middleware.BasicAuthWithConfig(middleware.BasicAuthConfig{
		Realm: Realm,
		Validator: func(username, password string, c echo.Context) (bool, error) {
			account, err := m.authService.Authenticate(c.Request().Context(), username, password)
			if err != nil {
				return false, respondError(err)
			}
			c.Set(accountContextKey, account)
			return true, nil
		},
	})
}

// RequireAdmin rejects authenticated accounts without admin rights.
// It must run after BasicAuth.
func (m *AuthMiddleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		account, err := CurrentAccount(c)
		if err != nil {
			return respondError(err)
		}
		if err := m.authService.RequireAdmin(account); err != nil {
			return respondError(err)
		}
		return next(c)
	}
}

// CurrentAccount returns the account authenticated for this request.
func CurrentAccount(c echo.Context) (*model.Account, error) {
	account, ok := c.Get(accountContextKey).(*model.Account)
	if !ok || account == nil {
		return nil, errors.ErrUnauthorized
	}
	return account, nil
}
