package hooks

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/godocompany/tempchat/models"
	"github.com/godocompany/tempchat/services"
)

func serializeRoom(room *models.Room) map[string]interface{} {
	return map[string]interface{}{
		"id":         room.ID,
		"room_code":  room.RoomCode,
		"created_by": room.CreatedBy,
		"is_active":  room.IsActive,
		"created_at": room.CreatedDate,
	}
}

func serializeMessage(msg *models.Message) map[string]interface{} {
	return map[string]interface{}{
		"id":         msg.ID,
		"room_id":    msg.RoomID,
		"sender":     msg.Sender,
		"text":       msg.Text,
		"created_at": msg.CreatedDate,
	}
}

// abortWithError responds with the status matching a service error
func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidToken):
		status = http.StatusUnauthorized
	case errors.Is(err, services.ErrNotMessageSender),
		errors.Is(err, services.ErrNotRoomCreator):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrRoomNotFound),
		errors.Is(err, services.ErrMessageNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrRoomInactive):
		status = http.StatusGone
	case errors.Is(err, services.ErrMissingFields),
		errors.Is(err, services.ErrEmptyMessage),
		errors.Is(err, services.ErrMessageTooLong),
		errors.Is(err, services.ErrInvalidNickname),
		errors.Is(err, services.ErrNicknameTooLong),
		errors.Is(err, services.ErrInvalidPassword):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
