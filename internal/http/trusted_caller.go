package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// TrustedCallerHeader lleva el secreto compartido con el servidor de autenticación.
const TrustedCallerHeader = "X-Auth-Secret"

// RequireTrustedCaller deja pasar solo requests que presentan el secreto compartido.
// Sin secreto configurado la ruta queda deshabilitada.
func RequireTrustedCaller(secret string) gin.HandlerFunc {
	expected := []byte(strings.TrimSpace(secret))
	return func(c *gin.Context) {
		if len(expected) == 0 {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "oauth sign-in disabled"})
			return
		}
		got := []byte(strings.TrimSpace(c.GetHeader(TrustedCallerHeader)))
		if subtle.ConstantTimeCompare(got, expected) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
