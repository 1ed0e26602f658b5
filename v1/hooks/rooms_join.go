package hooks

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/godocompany/tempchat/services"
)

type RoomsJoinReq struct {
	RoomCode string `json:"room_code" binding:"required"`
	Password string `json:"password" binding:"required"`
	Nickname string `json:"nickname" binding:"required"`
}

func RoomsJoin(
	chatService *services.ChatService,
	tokensService *services.RoomTokensService,
) gin.HandlerFunc {
	return func(c *gin.Context) {

		// Get the request body
		var req RoomsJoinReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Please fill in all fields"})
			return
		}

		nickname := strings.TrimSpace(req.Nickname)
		if err := services.ValidateNickname(nickname); err != nil {
			abortWithError(c, err)
			return
		}

		// Check the code and password
		room, err := chatService.JoinRoom(c.Request.Context(), req.RoomCode, req.Password)
		if err != nil {
			abortWithError(c, err)
			return
		}

		token, err := tokensService.CreateToken(room, nickname, false, time.Now())
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
