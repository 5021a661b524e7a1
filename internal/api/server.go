// Package api serves the operational HTTP surface: health and
// readiness probes, Prometheus metrics, and a small read-only admin API
// over stored outage records.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utilitywatch/outage-sentinel/internal/domain"
	"github.com/utilitywatch/outage-sentinel/internal/store"
)

// OutageReader is the store surface the API reads from.
type OutageReader interface {
	Ping(ctx context.Context) error
	ListRecentOutages(ctx context.Context, limit int) ([]domain.OutageRecord, error)
	GetOutageStats(ctx context.Context) ([]store.OutageStats, error)
	CountActiveSubscribers(ctx context.Context) (int64, error)
	CountReceipts(ctx context.Context) (int64, error)
}

// Server wraps the HTTP server and its routes.
type Server struct {
	srv      *http.Server
	outages  OutageReader
	geocoder domain.Geocoder // nil when geocoding is disabled
	logger   *slog.Logger
}

// NewServer builds the router and the underlying http.Server. geocoder
// may be nil; the verify-address endpoint then answers 503.
func NewServer(addr string, outages OutageReader, geocoder domain.Geocoder, logger *slog.Logger) *Server {
	s := &Server{
		outages:  outages,
		geocoder: geocoder,
		logger:   logger,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", s.handleHealthz)
	router.GET("/readyz", s.handleReadyz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v0 := router.Group("/api/v0")
	v0.GET("/outages/recent", s.handleRecentOutages)
	v0.GET("/stats", s.handleStats)
	v0.GET("/verify-address", s.handleVerifyAddress)

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.srv.Addr)
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleReadyz reports ready once the database answers; the service is
// useless without it.
func (s *Server) handleReadyz(c *gin.Context) {
	if err := s.outages.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) handleRecentOutages(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer between 1 and 500"})
			return
		}
		limit = n
	}

	recs, err := s.outages.ListRecentOutages(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("list recent outages failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if recs == nil {
		recs = []domain.OutageRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"outages": recs})
}

func (s *Server) handleStats(c *gin.Context) {
	ctx := c.Request.Context()

	stats, err := s.outages.GetOutageStats(ctx)
	if err != nil {
		s.logger.Error("outage stats failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if stats == nil {
		stats = []store.OutageStats{}
	}

	subscribers, err := s.outages.CountActiveSubscribers(ctx)
	if err != nil {
		s.logger.Error("subscriber count failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	receipts, err := s.outages.CountReceipts(ctx)
	if err != nil {
		s.logger.Error("receipt count failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":               stats,
		"active_subscribers":  subscribers,
		"notifications_total": receipts,
	})
}

// handleVerifyAddress resolves a free-form address so operators can
// check how a subscriber-entered address geocodes within the service
// area.
func (s *Server) handleVerifyAddress(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	if s.geocoder == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "geocoding is disabled"})
		return
	}

	result, err := s.geocoder.Geocode(c.Request.Context(), query)
	if err != nil {
		s.logger.Error("geocode failed", "query", query, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "geocoding failed"})
		return
	}
	if !result.Found {
		c.JSON(http.StatusNotFound, gin.H{"error": "address not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"formatted_address": result.FormattedAddress,
		"lat":               result.Lat,
		"lon":               result.Lon,
		"confidence":        result.Confidence,
	})
}
