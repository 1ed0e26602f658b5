package screens

import "context"

// create asks for a nickname and password and opens a new room. It reports
// whether the user is now in the room.
func (a *App) create(ctx context.Context) bool {
	a.printf("\nCreate a room\n")

	nickname, ok := a.prompt(ctx, "Nickname")
	if !ok {
		return false
	}
	password, ok := a.prompt(ctx, "Password")
	if !ok {
		return false
	}

	a.printf("Creating room...\n")
	code, err := a.Session.Create(ctx, nickname, password)
	if err != nil {
		a.alert(err)
		return false
	}

	a.printf("Room created! Share this code and the password: %s\n", code)
	return true
}
