package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bizcard/internal/service"
)

const sessionUserKey = "session_user_id"

// JWTAuthMiddleware valida el access token y guarda el id del usuario de la sesión en el contexto.
func JWTAuthMiddleware(jwtSvc *service.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if jwtSvc == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "jwt not configured"})
			c.Abort()
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			c.Abort()
			return
		}

		token := strings.TrimSpace(header[len("Bearer "):])
		userID, err := jwtSvc.ParseAccessToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		c.Set(sessionUserKey, userID)
		c.Next()
	}
}

// SessionUserID obtiene el id del usuario autenticado desde el contexto.
func SessionUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(sessionUserKey)
	return userID, userID != ""
}

// RequireSession devuelve el id del usuario de la sesión del request.
// Responde 401 y corta la cadena si no hay sesión.
func RequireSession(c *gin.Context) (string, bool) {
	userID, ok := SessionUserID(c)
	if !ok || strings.TrimSpace(userID) == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		c.Abort()
		return "", false
	}
	return userID, true
}
