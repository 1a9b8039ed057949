package mw

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ClientIDHeader identifies the installation of the mobile app making the call.
const ClientIDHeader = "X-Client-ID"

const clientIDKey = "client_id"

// RequireClientID rejects requests without a client id header.
func RequireClientID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(ClientIDHeader))
		if id == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": ClientIDHeader + " header is required"})
			return
		}
		c.Set(clientIDKey, id)
		c.Next()
	}
}

// ClientID returns the id stored by RequireClientID.
func ClientID(c *gin.Context) string {
	return c.GetString(clientIDKey)
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}
