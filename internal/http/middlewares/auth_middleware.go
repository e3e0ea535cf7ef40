package middlewares

import (
	"context"
	"strings"

	"github.com/geocoder89/mediahub/internal/actorctx"
	"github.com/geocoder89/mediahub/internal/apperr"
	"github.com/geocoder89/mediahub/internal/domain/user"
	"github.com/geocoder89/mediahub/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (user.User, error)
	Authorize(u user.User, roles ...user.Role) error
}

type AuthMiddleware struct {
	gate Authenticator
}

func NewAuthMiddleware(gate Authenticator) *AuthMiddleware {
	return &AuthMiddleware{gate: gate}
}

// Protect resolves the bearer token to a live user and attaches it to both
// the gin context and the request context.
func (m *AuthMiddleware) Protect() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := m.gate.Authenticate(c.Request.Context(), bearerToken(c))
		if err != nil {
			handlers.RespondAppError(c, err)
			return
		}

		c.Set(CtxUser, u)
		c.Set(CtxUserID, u.ID)
		c.Request = c.Request.WithContext(actorctx.WithUser(c.Request.Context(), u))

		c.Next()
	}
}

// bearerToken accepts exactly "Bearer <token>". Anything else yields "",
// which the gate rejects as a missing credential.
func bearerToken(c *gin.Context) string {
	scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
	if !ok || scheme != "Bearer" || token == "" {
		return ""
	}
	if strings.ContainsAny(token, " \t\r\n") {
		return ""
	}
	return token
}

// Optional helpers so handlers don't need to know the magic keys.

func UserFromContext(c *gin.Context) (user.User, bool) {
	v, ok := c.Get(CtxUser)
	if !ok {
		return user.User{}, false
	}
	u, ok := v.(user.User)
	return u, ok
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	u, ok := UserFromContext(c)
	if !ok || u.ID == "" {
		return "", false
	}
	return u.ID, true
}

func unauthenticated() error {
	return apperr.Authentication("unauthorized", "Login to gain access")
}
