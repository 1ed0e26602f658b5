package hooks

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/godocompany/tempchat/services"
	"github.com/godocompany/tempchat/v1/utils"
)

func RoomsEnd(
	chatService *services.ChatService,
) gin.HandlerFunc {
	return func(c *gin.Context) {

		claims := utils.CtxGetRoomClaims(c)
		if !claims.Creator {
			abortWithError(c, services.ErrNotRoomCreator)
			return
		}

		// Mark the room as inactive
		room, err := chatService.EndSession(c.Request.Context(), claims.RoomID)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"data": gin.H{
				"room": serializeRoom(room),
			},
		})

	}
}
