package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/godocompany/tempchat/services"
	"github.com/godocompany/tempchat/v1/hooks"
	"github.com/godocompany/tempchat/v1/middleware"
	"go.uber.org/zap"
)

// Server is the API server instance
type Server struct {
	ChatService       *services.ChatService
	RoomTokensService *services.RoomTokensService
	Replay            *services.ReplayFeed
	Metrics           *services.Metrics
	JoinLimiter       *middleware.IPRateLimiter
	CheckOrigin       func(r *http.Request) bool
	Logger            *zap.Logger
}

// Setup mounts the API server to the given group
func (s *Server) Setup(g *gin.RouterGroup) {

	if s.Logger == nil {
		s.Logger = zap.NewNop()
	}
	if s.CheckOrigin == nil {
		s.CheckOrigin = func(r *http.Request) bool { return true }
	}

	// Register middleware for all routes
	g.Use(middleware.CheckAuth(s.RoomTokensService))

	// Register all of the public hooks that require no room token
	s.setupPublicHooks(g)

	// Register hooks that act inside a room
	s.setupRoomHooks(g)

}

// setupPublicHooks mounts API hooks that are publicly accessible
func (s *Server) setupPublicHooks(g *gin.RouterGroup) {

	joinHandlers := []gin.HandlerFunc{}
	if s.JoinLimiter != nil {
		joinHandlers = append(joinHandlers, middleware.RateLimit(s.JoinLimiter))
	}
	joinHandlers = append(joinHandlers, hooks.RoomsJoin(
		s.ChatService,
		s.RoomTokensService,
	))

	g.POST("/app/get-state", hooks.AppState())
	g.POST("/rooms/create", hooks.RoomsCreate(
		s.ChatService,
		s.RoomTokensService,
	))
	g.POST("/rooms/join", joinHandlers...)

}

// setupRoomHooks mounts API hooks that require a room token
func (s *Server) setupRoomHooks(g *gin.RouterGroup) {

	// Require a room token for everything after this
	g.Use(middleware.RequireRoomToken())

	g.POST("/rooms/end", hooks.RoomsEnd(
		s.ChatService,
	))
	g.POST("/rooms/messages", hooks.RoomsMessages(
		s.ChatService,
	))
	g.POST("/messages/send", hooks.MessagesSend(
		s.ChatService,
	))
	g.POST("/messages/delete", hooks.MessagesDelete(
		s.ChatService,
	))
	g.GET("/feed", hooks.FeedStream(
		s.ChatService,
		s.Replay,
		s.Metrics,
		s.CheckOrigin,
		s.Logger,
	))

}
