package hooks

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/godocompany/tempchat/services"
	"github.com/godocompany/tempchat/v1/utils"
)

type MessagesSendReq struct {
	Text string `json:"text"`
}

func MessagesSend(
	chatService *services.ChatService,
) gin.HandlerFunc {
	return func(c *gin.Context) {

		// Get the request body
		var req MessagesSendReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		claims := utils.CtxGetRoomClaims(c)

		// Store the message, which also pushes it to everyone subscribed to the room
		msg, err := chatService.SendMessage(
			c.Request.Context(),
			claims.RoomID,
			claims.Nickname,
			req.Text,
		)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"data": gin.H{
				"message": serializeMessage(msg),
			},
		})

	}
}
