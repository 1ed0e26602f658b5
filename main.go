package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/godocompany/tempchat/config"
	"github.com/godocompany/tempchat/logging"
	"github.com/godocompany/tempchat/services"
	"github.com/godocompany/tempchat/utils"
	v1 "github.com/godocompany/tempchat/v1"
	"github.com/godocompany/tempchat/v1/middleware"
	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {

	// Load the configuration, including the .env file
	cfg, err := config.Load()
	if err != nil {
		log.Fatalln("Invalid configuration: ", err)
	}

	logger := logging.New(&logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	//================================================================================
	// Create the store and the change feed
	//================================================================================

	store, err := openStore(cfg)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}

	var feed services.Feed = services.NewMemoryFeed(logger.Named("feed"))
	if len(cfg.RedisURL) > 0 {
		feed, err = services.NewRedisFeed(context.Background(), cfg.RedisURL, logger.Named("feed"))
		if err != nil {
			logger.Fatal("failed to connect change feed", zap.Error(err))
		}
	}
	replay := services.NewReplayFeed(feed, cfg.ReplayBufferSize)

	//================================================================================
	// Create all the service instances
	//================================================================================

	metrics := services.NewMetrics()
	chatService := &services.ChatService{
		Store:   store,
		Feed:    replay,
		Metrics: metrics,
		Logger:  logger.Named("chat"),
	}
	roomTokensService := &services.RoomTokensService{
		SigningSecret: cfg.TokenSecret,
		TTL:           cfg.TokenTTL,
		Issuer:        "tempchat",
	}

	//================================================================================
	// Setup the WebSockets server
	//================================================================================

	allowedOrigins := cfg.AllowedOrigins
	socketIoServer := socketio.NewServer(&engineio.Options{
		Transports: []transport.Transport{
			&polling.Transport{
				CheckOrigin: checkOrigin(allowedOrigins),
			},
			&websocket.Transport{
				CheckOrigin: checkOrigin(allowedOrigins),
			},
		},
	})
	socketsService := &services.SocketsService{
		Server:      socketIoServer,
		ChatService: chatService,
		Tokens:      roomTokensService,
		Replay:      replay,
		Metrics:     metrics,
		Logger:      logger.Named("sockets"),
	}
	socketsService.Setup()
	go func() {
		if err := socketIoServer.Serve(); err != nil {
			logger.Error("socket.io server stopped", zap.Error(err))
		}
	}()

	//================================================================================
	// Setup the Gin HTTP router
	//================================================================================

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	if err := utils.TrustClientIP(r, cfg.TrustedPlatform, cfg.TrustedProxies); err != nil {
		logger.Fatal("invalid client IP settings", zap.Error(err))
	}
	r.Use(logging.GinMiddleware(logger.Named("http")), logging.Recovery(logger))

	// Configure CORS for the API
	corsCfg := cors.DefaultConfig()
	if len(allowedOrigins) > 0 {
		corsCfg.AllowOrigins = allowedOrigins
		corsCfg.AllowCredentials = true
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AddAllowHeaders("Accept", "User-Agent", "Authorization")
	r.Use(cors.New(corsCfg))

	// Create the API instance
	api := &v1.Server{
		ChatService:       chatService,
		RoomTokensService: roomTokensService,
		Replay:            replay,
		Metrics:           metrics,
		JoinLimiter:       middleware.NewIPRateLimiter(cfg.JoinRateLimit, cfg.JoinRateBurst),
		CheckOrigin:       checkOrigin(allowedOrigins),
		Logger:            logger.Named("api"),
	}

	// Mount the API routes
	api.Setup(r.Group("v1"))
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	// Create a mux to serve both the HTTP and Socket.IO servers
	mux := http.NewServeMux()
	mux.Handle("/socket.io/", socketIoServer)
	mux.Handle("/", r)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run the server
	go func() {
		logger.Info("listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http": func(ctx context.Context) error {
				return server.Shutdown(ctx)
			},
			"socket.io": func(ctx context.Context) error {
				return socketIoServer.Close()
			},
			"feed": func(ctx context.Context) error {
				return feed.Close()
			},
			"store": func(ctx context.Context) error {
				return store.Close()
			},
		},
	)

	exitCode := <-wait
	logger.Info("shut down", zap.Int("exit_code", exitCode))
	_ = logger.Sync()
	os.Exit(exitCode)

}

// openStore opens the store selected by the configuration
func openStore(cfg *config.Config) (services.Store, error) {

	if cfg.StoreDriver == config.StoreDriverMongo {
		return services.NewMongoStore(context.Background(), cfg.MongoURI, cfg.MongoDatabase)
	}

	// Get the database driver for the database string
	dbDriver := config.ParseDatabaseDriver(cfg.DatabaseURL)
	if dbDriver == nil {
		return nil, errors.New("failed to create database driver, check the DB_URL environment variable")
	}

	// Create the database connection
	db, err := gorm.Open(dbDriver, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}
	return services.NewGormStore(db)

}

// checkOrigin allows every origin when none are configured
func checkOrigin(allowedOrigins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if len(allowedOrigins) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		if len(origin) == 0 {
			return true
		}
		for _, allowed := range allowedOrigins {
			if allowed == origin {
				return true
			}
		}
		return false
	}
}
