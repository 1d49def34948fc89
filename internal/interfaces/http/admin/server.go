// Package admin serves the optional admin endpoints: health, Prometheus
// metrics and the current target state.
package admin

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/optiply/target-vendit/internal/infrastructure/logger"
)

// StateSource provides the current target state
type StateSource interface {
	Snapshot() map[string]any
}

// Server is the admin HTTP server
type Server struct {
	srv      *http.Server
	engine   *gin.Engine
	state    StateSource
	metrics  http.Handler
	logger   *zap.Logger
	started  time.Time
	listener net.Listener
}

// ServiceName names the admin server spans
const ServiceName = "target-vendit-admin"

// NewServer builds the admin server; metrics may be nil
func NewServer(addr string, state StateSource, metrics http.Handler, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(logger.Recovery(log))
	engine.Use(otelgin.Middleware(ServiceName, otelgin.WithFilter(func(r *http.Request) bool {
		return r.URL.Path != "/metrics"
	})))
	engine.Use(logger.GinMiddleware(log))

	s := &Server{
		engine:  engine,
		state:   state,
		metrics: metrics,
		logger:  log,
		started: time.Now(),
	}
	s.routes()
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.health)
	s.engine.GET("/state", s.snapshot)
	if s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.metrics))
	}
}

// Handler returns the HTTP handler (for testing)
func (s *Server) Handler() http.Handler { return s.engine }

// Start listens on the configured address and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	go func() {
		s.logger.Info("Admin server starting", zap.String("addr", ln.Addr().String()))
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Admin server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the listening address once started
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.srv.Addr
	}
	return s.listener.Addr().String()
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) snapshot(c *gin.Context) {
	if s.state == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "state not available"})
		return
	}
	c.JSON(http.StatusOK, s.state.Snapshot())
}
