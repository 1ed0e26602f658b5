package hooks

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/godocompany/tempchat/services"
)

func AppState() gin.HandlerFunc {
	return func(c *gin.Context) {

		// Return the app state, including the limits clients should enforce
		c.JSON(http.StatusOK, gin.H{
			"data": gin.H{
				"server_time":         time.Now().UTC(),
				"room_code_length":    services.RoomCodeLength,
				"max_message_length":  services.MaxMessageLength,
				"min_nickname_length": services.MinNicknameLength,
				"min_password_length": services.MinPasswordLength,
			},
		})

	}
}
