package hooks

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/godocompany/tempchat/services"
	"github.com/godocompany/tempchat/v1/utils"
)

type MessagesDeleteReq struct {
	MessageID string `json:"message_id" binding:"required"`
}

func MessagesDelete(
	chatService *services.ChatService,
) gin.HandlerFunc {
	return func(c *gin.Context) {

		// Get the request body
		var req MessagesDeleteReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		claims := utils.CtxGetRoomClaims(c)

		// Delete the message, as long as the token holder sent it
		err := chatService.DeleteMessage(
			c.Request.Context(),
			claims.RoomID,
			req.MessageID,
			claims.Nickname,
		)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"data": gin.H{},
		})

	}
}
