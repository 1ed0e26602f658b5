package hooks

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/godocompany/tempchat/services"
)

type RoomsCreateReq struct {
	Nickname string `json:"nickname" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func RoomsCreate(
	chatService *services.ChatService,
	tokensService *services.RoomTokensService,
) gin.HandlerFunc {
	return func(c *gin.Context) {

		// Get the request body
		var req RoomsCreateReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Please fill in all fields"})
			return
		}

		// Create the room
		room, err := chatService.CreateRoom(c.Request.Context(), req.Nickname, req.Password)
		if err != nil {
			abortWithError(c, err)
			return
		}

		// The creator's token is the only one allowed to end the session
		token, err := tokensService.CreateToken(room, room.CreatedBy, true, time.Now())
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"data": gin.H{
				"room":  serializeRoom(room),
				"token": token,
			},
		})

	}
}
