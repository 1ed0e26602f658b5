package hooks

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/godocompany/tempchat/services"
	"github.com/godocompany/tempchat/v1/utils"
)

func RoomsMessages(
	chatService *services.ChatService,
) gin.HandlerFunc {
	return func(c *gin.Context) {

		claims := utils.CtxGetRoomClaims(c)

		// Get the room history
		messages, err := chatService.ListMessages(c.Request.Context(), claims.RoomID)
		if err != nil {
			abortWithError(c, err)
			return
		}

		serialized := make([]map[string]interface{}, len(messages))
		for i, msg := range messages {
			serialized[i] = serializeMessage(msg)
		}

		c.JSON(http.StatusOK, gin.H{
			"data": gin.H{
				"messages": serialized,
			},
		})

	}
}
