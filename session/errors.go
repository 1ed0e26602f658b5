package session

import "errors"

// Errors are shown to the user as they are
var (
	ErrNoActiveRoom       = errors.New("No active room or user")
	ErrMissingFields      = errors.New("Please fill in all fields")
	ErrNicknameTooShort   = errors.New("Nickname must be at least 2 characters long")
	ErrNicknameTooLong    = errors.New("Nickname must be at most 50 characters long")
	ErrPasswordTooShort   = errors.New("Password must be at least 4 characters long")
	ErrInvalidCode        = errors.New("Room code must be 6 letters or digits")
	ErrInvalidCredentials = errors.New("Invalid code or password")
	ErrEmptyMessage       = errors.New("Message cannot be empty")
	ErrMessageTooLong     = errors.New("Message cannot be longer than 500 characters")
	ErrSessionEnded       = errors.New("This session has ended")
	ErrMessageNotFound    = errors.New("Message not found")
	ErrNotMessageSender   = errors.New("You can only delete your own messages")
	ErrNotCreator         = errors.New("Only the room creator can end the session")
	ErrNetwork            = errors.New("Network error - please check your connection")
	ErrClosed             = errors.New("session is closed")
)
