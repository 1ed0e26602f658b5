package backend

import (
	"errors"

	"github.com/godocompany/tempchat/models"
	"github.com/godocompany/tempchat/services"
	"github.com/godocompany/tempchat/session"
)

func toRoomInfo(room *models.Room) *session.RoomInfo {
	return &session.RoomInfo{
		ID:       room.ID,
		Code:     room.RoomCode,
		Creator:  room.CreatedBy,
		IsActive: room.IsActive,
	}
}

func toMessage(msg *models.Message) session.Message {
	return session.Message{
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		Sender:    msg.Sender,
		Text:      msg.Text,
		Timestamp: msg.CreatedDate,
	}
}

// errorTable pairs the errors of the chat service with the ones the session
// reports. The remote backend only sees the message, so it matches on that.
var errorTable = []struct {
	service error
	session error
}{
	{services.ErrMissingFields, session.ErrMissingFields},
	{services.ErrInvalidCredentials, session.ErrInvalidCredentials},
	{services.ErrInvalidToken, session.ErrInvalidCredentials},
	{services.ErrRoomNotFound, session.ErrNoActiveRoom},
	{services.ErrRoomInactive, session.ErrSessionEnded},
	{services.ErrMessageNotFound, session.ErrMessageNotFound},
	{services.ErrNotMessageSender, session.ErrNotMessageSender},
	{services.ErrNotRoomCreator, session.ErrNotCreator},
	{services.ErrEmptyMessage, session.ErrEmptyMessage},
	{services.ErrMessageTooLong, session.ErrMessageTooLong},
	{services.ErrInvalidNickname, session.ErrNicknameTooShort},
	{services.ErrNicknameTooLong, session.ErrNicknameTooLong},
	{services.ErrInvalidPassword, session.ErrPasswordTooShort},
}

// sessionError turns a chat service error into the matching session error
func sessionError(err error) error {
	if err == nil {
		return nil
	}
	for _, e := range errorTable {
		if errors.Is(err, e.service) {
			return e.session
		}
	}
	return err
}

// sessionErrorText turns an error message sent by the API into the matching
// session error
func sessionErrorText(text string) error {
	for _, e := range errorTable {
		if e.service.Error() == text {
			return e.session
		}
	}
	return errors.New(text)
}
