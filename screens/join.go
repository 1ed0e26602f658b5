package screens

import (
	"context"

	"github.com/godocompany/tempchat/session"
)

// join asks for a room code, password and nickname and enters the room. It
// reports whether the user is now in the room.
func (a *App) join(ctx context.Context) bool {
	a.printf("\nJoin a room\n")

	code, ok := a.prompt(ctx, "Room code")
	if !ok {
		return false
	}
	password, ok := a.prompt(ctx, "Password")
	if !ok {
		return false
	}
	nickname, ok := a.prompt(ctx, "Nickname")
	if !ok {
		return false
	}

	a.printf("Joining %s...\n", session.NormalizeCode(code))
	if err := a.Session.Join(ctx, code, password, nickname); err != nil {
		a.alert(err)
		return false
	}
	return true
}
