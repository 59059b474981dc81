// Package httpapi serves the node's status screens and metrics over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/app/pipeline"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/ports"
)

// Status is the node overview shown on the status screen.
type Status struct {
	Node          domain.Identity             `json:"node"`
	UptimeSeconds float64                     `json:"uptime_seconds"`
	Radio         string                      `json:"radio"`
	Uplink        pipeline.UplinkStats        `json:"uplink"`
	Receive       pipeline.ReceiveStats       `json:"receive"`
	Sensors       map[string]SensorStatus     `json:"sensors"`
	Environment   *domain.EnvironmentalSample `json:"environment,omitempty"`
	Directory     DirectoryStatus             `json:"directory"`
	Journal       *ports.JournalStats         `json:"journal,omitempty"`
}

type SensorStatus struct {
	Driver   string             `json:"driver"`
	Capacity int                `json:"capacity"`
	Uplink   int                `json:"uplink_queued"`
	Journal  int                `json:"journal_queued"`
	Stats    pipeline.TaskStats `json:"stats"`
}

type DirectoryStatus struct {
	Nodes    int `json:"nodes"`
	Capacity int `json:"capacity"`
}

// Provider is the running node as seen by the API.
type Provider interface {
	Status() Status
	Nodes() []domain.Node
	RequestAnnounce() bool
	RequestTelemetry() bool
}

type Server struct {
	addr     string
	provider Provider
	metrics  http.Handler
	router   *gin.Engine
}

// NewServer wires the routes. A nil metrics handler serves the default registry.
func NewServer(addr string, provider Provider, metrics http.Handler) *Server {
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	s := &Server{
		addr:     addr,
		provider: provider,
		metrics:  metrics,
		router:   gin.Default(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	s.router.GET("/metrics", gin.WrapH(s.metrics))

	api := s.router.Group("/api/v1")
	{
		api.GET("/state", s.handleState)
		api.GET("/nodes", s.handleNodes)
		api.GET("/environment", s.handleEnvironment)
		api.POST("/announce", s.handleAnnounce)
		api.POST("/telemetry", s.handleTelemetry)
	}
}

func (s *Server) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, s.provider.Status())
}

func (s *Server) handleNodes(c *gin.Context) {
	nodes := s.provider.Nodes()
	if nodes == nil {
		nodes = []domain.Node{}
	}
	c.JSON(http.StatusOK, gin.H{
		"nodes": nodes,
		"count": len(nodes),
	})
}

func (s *Server) handleEnvironment(c *gin.Context) {
	st := s.provider.Status()
	if st.Environment == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no environmental sample yet"})
		return
	}
	c.JSON(http.StatusOK, st.Environment)
}

func (s *Server) handleAnnounce(c *gin.Context) {
	queued := s.provider.RequestAnnounce()
	c.JSON(http.StatusAccepted, gin.H{"message": "announcement requested", "queued": queued})
}

func (s *Server) handleTelemetry(c *gin.Context) {
	queued := s.provider.RequestTelemetry()
	c.JSON(http.StatusAccepted, gin.H{"message": "telemetry broadcast requested", "queued": queued})
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:    s.addr,
		Handler: s.router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
