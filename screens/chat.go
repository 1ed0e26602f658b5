package screens

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/godocompany/tempchat/session"
)

const chatHelp = "Type a message and press Enter. Commands: /delete <n>, /end, /leave"

// chat shows the room and its messages and handles what the user types. It
// returns the screen to go to once the user leaves or the session ends.
func (a *App) chat(ctx context.Context) screen {
	room := a.Session.Room()
	if room == nil {
		return screenHome
	}
	a.printf("%s\n", chatHelp)
	a.renderRoom(room)

	for {
		select {
		case <-ctx.Done():
			return screenQuit

		case <-a.Session.Updates():
			if next, done := a.refresh(); done {
				return next
			}

		case line, ok := <-a.lines:
			if !ok {
				return screenQuit
			}
			if next, done := a.handleChatLine(ctx, strings.TrimRight(line, "\r")); done {
				return next
			}
			if next, done := a.refresh(); done {
				return next
			}
		}
	}
}

// refresh redraws the room, or reports where to go when it is gone or ended
func (a *App) refresh() (screen, bool) {
	room := a.Session.Room()
	if room == nil {
		return screenEnded, true
	}
	if !room.IsActive {
		if a.Session.User() == room.Creator {
			a.printf("You ended this session.\n")
		} else {
			a.printf("The room creator has ended this session.\n")
		}
		a.Session.Leave()
		return screenEnded, true
	}
	a.renderRoom(room)
	return screenChat, false
}

func (a *App) handleChatLine(ctx context.Context, line string) (screen, bool) {
	text := strings.TrimSpace(line)
	if text == "" {
		return screenChat, false
	}

	if !strings.HasPrefix(text, "/") {
		if err := a.Session.Send(ctx, text); err != nil {
			a.alert(err)
		}
		return screenChat, false
	}

	command, arg, _ := strings.Cut(text, " ")
	switch command {
	case "/delete":
		if err := a.deleteByNumber(ctx, strings.TrimSpace(arg)); err != nil {
			a.alert(err)
			return screenChat, false
		}
		a.notice("Message deleted")

	case "/end":
		room := a.Session.Room()
		if room == nil || a.Session.User() != room.Creator {
			a.alert(session.ErrNotCreator)
			return screenChat, false
		}
		if !a.confirm(ctx, "End this session for everyone? All messages will be gone.") {
			return screenChat, false
		}
		if err := a.Session.End(ctx); err != nil {
			a.alert(err)
			return screenChat, false
		}
		a.notice("Session ended for everyone")

	case "/leave":
		if !a.confirm(ctx, "Leave this room?") {
			return screenChat, false
		}
		a.Session.Leave()
		return screenHome, true

	case "/help":
		a.printf("%s\n", chatHelp)

	default:
		a.alert(fmt.Errorf("Unknown command %s", command))
	}
	return screenChat, false
}

// deleteByNumber deletes the message shown with the given number
func (a *App) deleteByNumber(ctx context.Context, arg string) error {
	room := a.Session.Room()
	if room == nil {
		return session.ErrNoActiveRoom
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(room.Messages) {
		return errors.New("Usage: /delete <message number>")
	}
	return a.Session.Delete(ctx, room.Messages[n-1].ID)
}

func (a *App) renderRoom(room *session.Room) {
	members := "member"
	if len(room.Members) != 1 {
		members = "members"
	}
	a.printf("\n--- Room %s | %d %s ---\n", room.Code, len(room.Members), members)

	if len(room.Messages) == 0 {
		a.printf("No messages yet\n")
		return
	}
	user := a.Session.User()
	for i, msg := range room.Messages {
		sender := msg.Sender
		if sender == user {
			sender += " (you)"
		}
		a.printf("[%d] %s %s: %s\n", i+1, msg.Timestamp.Local().Format("15:04"), sender, msg.Text)
	}
}
