package utils

import (
	"github.com/gin-gonic/gin"
	"github.com/godocompany/tempchat/services"
)

const ctxRoomClaimsKey = "room_claims"

// CtxSetRoomClaims stores the verified room token claims on the request
func CtxSetRoomClaims(c *gin.Context, claims *services.RoomClaims) {
	c.Set(ctxRoomClaimsKey, claims)
}

// CtxGetRoomClaims gets the room token claims of the request, or nil
func CtxGetRoomClaims(c *gin.Context) *services.RoomClaims {
	value, ok := c.Get(ctxRoomClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := value.(*services.RoomClaims)
	return claims
}
