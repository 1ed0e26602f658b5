package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/godocompany/tempchat/backend"
	"github.com/godocompany/tempchat/config"
	"github.com/godocompany/tempchat/logging"
	"github.com/godocompany/tempchat/screens"
	"github.com/godocompany/tempchat/services"
	"github.com/godocompany/tempchat/session"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {

	// A .env file is optional for the client
	_ = godotenv.Load()

	serverURL := flag.String("server", os.Getenv("TEMPCHAT_SERVER"), "address of the tempchat server, e.g. http://localhost:8080")
	local := flag.Bool("local", false, "run an embedded in-memory backend instead of connecting to a server")
	logLevel := flag.String("log-level", "warn", "log level (debug, info, warn, error)")
	logOutput := flag.String("log-output", "stderr", "where to write logs: stderr, stdout or a file path")
	flag.Parse()

	logger := logging.New(&logging.Config{
		Level:  *logLevel,
		Format: "console",
		Output: *logOutput,
	})

	var b session.Backend
	switch {
	case *local:
		chatService, cleanup, err := embeddedChatService(logger)
		if err != nil {
			logger.Fatal("failed to start embedded backend", zap.Error(err))
		}
		defer cleanup()
		b = &backend.Local{ChatService: chatService}
	case len(*serverURL) > 0:
		b = backend.NewRemote(*serverURL, logger.Named("remote"))
	default:
		fmt.Fprintln(os.Stderr, "Set TEMPCHAT_SERVER, pass -server, or use -local")
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess := session.New(b, session.WithLogger(logger.Named("session")))
	defer sess.Close()

	app := screens.NewApp(sess, os.Stdin, os.Stdout, logger.Named("screens"))
	if err := app.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("client stopped", zap.Error(err))
	}
	_ = logger.Sync()

}

// embeddedChatService runs the chat service in this process over an in-memory
// sqlite database
func embeddedChatService(logger *zap.Logger) (*services.ChatService, func(), error) {

	dbDriver := config.ParseDatabaseDriver("sqlite://file:tempchat?mode=memory&cache=shared")
	db, err := gorm.Open(dbDriver, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, nil, err
	}
	store, err := services.NewGormStore(db)
	if err != nil {
		return nil, nil, err
	}

	feed := services.NewMemoryFeed(logger.Named("feed"))
	chatService := &services.ChatService{
		Store:  store,
		Feed:   feed,
		Logger: logger.Named("chat"),
	}
	cleanup := func() {
		_ = feed.Close()
		_ = store.Close()
	}
	return chatService, cleanup, nil

}
