package services

import "errors"

// Errors returned by the chat services. The messages are shown to users as-is.
var (
	ErrMissingFields      = errors.New("Please fill in all fields")
	ErrInvalidCredentials = errors.New("Invalid code or password")
	ErrRoomNotFound       = errors.New("Room not found")
	ErrRoomInactive       = errors.New("This session has ended")
	ErrMessageNotFound    = errors.New("Message not found")
	ErrNotMessageSender   = errors.New("You can only delete your own messages")
	ErrNotRoomCreator     = errors.New("Only the room creator can end the session")
	ErrEmptyMessage       = errors.New("Message cannot be empty")
	ErrMessageTooLong     = errors.New("Message is too long")
	ErrInvalidNickname    = errors.New("Nickname must be at least 2 characters long")
	ErrNicknameTooLong    = errors.New("Nickname must be at most 50 characters long")
	ErrInvalidPassword    = errors.New("Password must be at least 4 characters long")
	ErrCodeExhausted      = errors.New("could not generate a unique room code")
)
