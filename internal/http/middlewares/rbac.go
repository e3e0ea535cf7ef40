package middlewares

import (
	"github.com/geocoder89/mediahub/internal/domain/user"
	"github.com/geocoder89/mediahub/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

// RestrictTo only lets principals holding one of roles through. It must run
// after Protect.
func (m *AuthMiddleware) RestrictTo(roles ...user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := UserFromContext(c)
		if !ok {
			handlers.RespondAppError(c, unauthenticated())
			return
		}

		if err := m.gate.Authorize(u, roles...); err != nil {
			handlers.RespondAppError(c, err)
			return
		}

		c.Next()
	}
}
