package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/godocompany/tempchat/services"
	"github.com/godocompany/tempchat/v1/utils"
)

// CheckAuth verifies the room token on the request, if there is one, and stores
// its claims on the context. Requests without a valid token pass through.
func CheckAuth(tokens *services.RoomTokensService) gin.HandlerFunc {
	return func(c *gin.Context) {

		token := bearerToken(c.GetHeader("Authorization"))
		if len(token) == 0 {
			token = c.Query("token")
		}
		if len(token) == 0 {
			c.Next()
			return
		}

		claims, err := tokens.ParseToken(token)
		if err == nil {
			utils.CtxSetRoomClaims(c, claims)
		}
		c.Next()

	}
}

// RequireRoomToken rejects requests that did not carry a valid room token
func RequireRoomToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if utils.CtxGetRoomClaims(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "a valid room token is required"})
			return
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
