package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"merchantpay/internal/domain"
	"merchantpay/internal/pkg/response"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// Authorize decides a request against an allow list. Roles match exactly;
// an empty allow list admits any authenticated caller.
func Authorize(id domain.Identity, authenticated bool, allowed domain.RoleSet) error {
	if !authenticated {
		return ErrUnauthenticated
	}
	if allowed.Empty() {
		return nil
	}
	if !allowed.Contains(id.Role) {
		return ErrForbidden
	}
	return nil
}

// RequireRoles rejects anonymous callers with 401 and callers outside allowed with 403.
func RequireRoles(allowed domain.RoleSet) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		switch err := Authorize(id, ok, allowed); {
		case errors.Is(err, ErrUnauthenticated):
			response.Unauthenticated(c)
			return
		case errors.Is(err, ErrForbidden):
			response.Forbidden(c)
			return
		}
		c.Next()
	}
}
