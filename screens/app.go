package screens

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/godocompany/tempchat/session"
	"go.uber.org/zap"
)

// App walks the user through the screens of the terminal client. It only
// presents the session, all state lives there.
type App struct {
	Session *session.Session
	Out     io.Writer
	Logger  *zap.Logger

	in    io.Reader
	lines chan string
}

// NewApp creates the terminal client reading commands from in and drawing on out
func NewApp(s *session.Session, in io.Reader, out io.Writer, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		Session: s,
		Out:     out,
		Logger:  logger,
		in:      in,
	}
}

// Run shows the home screen until the user quits, the input ends or ctx is done
func (a *App) Run(ctx context.Context) error {
	a.lines = make(chan string)
	go a.scan()

	for {
		next, err := a.home(ctx)
		if err != nil || next == screenQuit {
			a.Session.Leave()
			return err
		}

		var entered bool
		switch next {
		case screenCreate:
			entered = a.create(ctx)
		case screenJoin:
			entered = a.join(ctx)
		}
		if !entered {
			continue
		}

		switch a.chat(ctx) {
		case screenEnded:
			if !a.ended(ctx) {
				return ctx.Err()
			}
		case screenQuit:
			a.Session.Leave()
			return ctx.Err()
		}
	}
}

type screen int

const (
	screenHome screen = iota
	screenCreate
	screenJoin
	screenChat
	screenEnded
	screenQuit
)

func (a *App) scan() {
	defer close(a.lines)
	scanner := bufio.NewScanner(a.in)
	for scanner.Scan() {
		a.lines <- scanner.Text()
	}
	if err := scanner.Err(); err != nil {
		a.Logger.Warn("failed to read input", zap.Error(err))
	}
}

// readLine waits for the next input line. It reports false when the input
// ended or ctx is done.
func (a *App) readLine(ctx context.Context) (string, bool) {
	select {
	case line, ok := <-a.lines:
		return strings.TrimRight(line, "\r"), ok
	case <-ctx.Done():
		return "", false
	}
}

// prompt prints a label and reads the answer
func (a *App) prompt(ctx context.Context, label string) (string, bool) {
	a.printf("%s: ", label)
	return a.readLine(ctx)
}

// confirm asks a yes/no question
func (a *App) confirm(ctx context.Context, question string) bool {
	answer, ok := a.prompt(ctx, question+" (y/n)")
	if !ok {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func (a *App) alert(err error) {
	a.printf("Error: %s\n", err.Error())
}

// notice tells the user an action went through
func (a *App) notice(text string) {
	a.printf("OK: %s\n", text)
}

func (a *App) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.Out, format, args...)
}
