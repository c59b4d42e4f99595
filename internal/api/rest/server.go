package rest

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/KevinKickass/OpenTallyCore/internal/interfaces"
	"github.com/KevinKickass/OpenTallyCore/internal/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Routes selects which endpoint set a server exposes. Exactly one is active
// per boot cycle.
type Routes int

const (
	RoutesProvisioning Routes = iota
	RoutesOperational
)

func (r Routes) String() string {
	if r == RoutesProvisioning {
		return "provisioning"
	}
	return "operational"
}

type Server struct {
	router   *gin.Engine
	device   interfaces.Device
	routes   Routes
	logger   *zap.Logger
	server   *http.Server
	listener net.Listener
}

func NewServer(device interfaces.Device, routes Routes, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router: gin.New(),
		device: device,
		routes: routes,
		logger: logger,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", device.Config().Server.HTTPPort),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler exposes the router for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}
	s.listener = lis

	s.logger.Info("Starting HTTP server",
		zap.String("address", lis.Addr().String()),
		zap.Stringer("routes", s.routes))
	go func() {
		if err := s.server.Serve(lis); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server failed", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	// Middleware
	s.router.Use(gin.CustomRecovery(s.recovered))
	s.router.Use(LoggerMiddleware(s.logger))

	s.router.GET("/health", s.healthCheck)

	switch s.routes {
	case RoutesProvisioning:
		s.router.GET("/settings", s.settings)
		s.router.GET("/setap", s.setAP)
		s.router.NoRoute(s.apInfo)
	case RoutesOperational:
		s.router.GET("/", s.staInfo)
		s.router.GET("/reset", s.resetSettings)
		s.router.GET("/status", s.status)
		s.router.NoRoute(s.notFound)
	}
}

func (s *Server) recovered(c *gin.Context, err any) {
	s.logger.Error("Handler panicked", zap.String("path", c.Request.URL.Path), zap.Any("panic", err))
	c.AbortWithStatusJSON(http.StatusInternalServerError,
		types.NewErrorResponse(types.CodeInternal, "internal server error", nil))
}

// Health check (public)
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"mode":      s.routes.String(),
		"timestamp": time.Now().Unix(),
	})
}
