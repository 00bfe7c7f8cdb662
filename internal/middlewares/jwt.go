package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/reservaterrain/core/internal/identity"
	"github.com/reservaterrain/core/internal/model"
)

const principalKey = "principal"

// TokenVerifier — то, что умеет identity.Verifier.
type TokenVerifier interface {
	Verify(token string) (identity.Principal, error)
}

// JWTAuth проверяет bearer-токен и кладёт принципала и в gin.Context,
// и в context.Context запроса (сервисы читают оттуда).
func JWTAuth(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		p, err := v.Verify(strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(principalKey, p)
		c.Request = c.Request.WithContext(identity.WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}

// Principal возвращает принципала, положенного JWTAuth.
func Principal(c *gin.Context) (identity.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return identity.FromContext(c.Request.Context())
	}
	p, ok := v.(identity.Principal)
	return p, ok
}

// RequireRole пропускает запрос, если у принципала есть хотя бы одна из ролей.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := Principal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		if !p.HasAnyRole(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		c.Next()
	}
}
