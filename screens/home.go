package screens

import (
	"context"
	"strings"
)

func (a *App) home(ctx context.Context) (screen, error) {
	a.printf("\nTempChat\n")
	a.printf("Temporary, password-protected chat rooms\n\n")
	a.printf("  1) Create a room\n")
	a.printf("  2) Join a room\n")
	a.printf("  q) Quit\n")

	for {
		choice, ok := a.prompt(ctx, ">")
		if !ok {
			return screenQuit, ctx.Err()
		}
		switch strings.ToLower(strings.TrimSpace(choice)) {
		case "1", "create", "c":
			return screenCreate, nil
		case "2", "join", "j":
			return screenJoin, nil
		case "q", "quit", "exit":
			return screenQuit, nil
		case "":
		default:
			a.printf("Choose 1, 2 or q\n")
		}
	}
}
