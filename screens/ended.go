package screens

import "context"

// ended tells the user the session is over and waits for them to go home
func (a *App) ended(ctx context.Context) bool {
	a.printf("\nSession ended\n")
	a.printf("This chat session has ended. All messages are gone.\n")
	_, ok := a.prompt(ctx, "Press Enter to return home")
	return ok
}
