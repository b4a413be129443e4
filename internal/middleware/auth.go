package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"merchantpay/internal/domain"
	"merchantpay/internal/pkg/jwt"
)

const identityKey = "identity"

// TokenVerifier is satisfied by *jwt.Service.
type TokenVerifier interface {
	Verify(token string) (*jwt.Claims, error)
}

// Authenticate attaches the caller identity when a valid bearer token is present.
// It never rejects: missing or invalid tokens leave the request anonymous and
// protected routes answer 401 through RequireRoles.
func Authenticate(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Next()
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			log.Debug().
				Err(err).
				Str("path", c.Request.URL.Path).
				Str("client_ip", c.ClientIP()).
				Msg("access token rejected")
			c.Next()
			return
		}

		SetIdentity(c, claims.Identity())
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func SetIdentity(c *gin.Context, id domain.Identity) {
	c.Set(identityKey, id)
	c.Set("user_id", id.UserID)
	c.Set("role", string(id.Role))
}

// IdentityFrom returns the identity attached by Authenticate.
func IdentityFrom(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	id, ok := v.(domain.Identity)
	return id, ok
}
