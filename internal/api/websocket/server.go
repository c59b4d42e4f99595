package websocket

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server exposes the tally channel on its own port. Any request path is
// accepted for the upgrade, as switcher plugins differ in what they send.
type Server struct {
	router *gin.Engine
	hub    *Hub
	logger *zap.Logger
	server *http.Server

	mu       sync.Mutex
	listener net.Listener
}

func NewServer(port int, hub *Hub, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router: gin.New(),
		hub:    hub,
		logger: logger,
	}
	s.router.Use(gin.Recovery())
	s.router.GET("/", s.serveWs)
	s.router.NoRoute(s.serveWs)

	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", port),
		Handler:     s.router,
		IdleTimeout: 60 * time.Second,
	}
	return s
}

func (s *Server) serveWs(c *gin.Context) {
	ServeWs(s.hub, c.Writer, c.Request)
}

func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}
	s.mu.Lock()
	s.listener = lis
	s.mu.Unlock()

	s.logger.Info("Starting tally socket server", zap.String("address", lis.Addr().String()))
	go func() {
		if err := s.server.Serve(lis); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Tally socket server failed", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down tally socket server")
	return s.server.Shutdown(ctx)
}
