// Package inspect serves the operator HTTP API: probes, Prometheus
// metrics, message validation over HTTP or a websocket stream, and the
// known pool set.
package inspect

import (
	"context"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/tlvwire/internal/auth"
	"github.com/danmuck/tlvwire/internal/discovery"
	"github.com/danmuck/tlvwire/internal/observability"
	"github.com/danmuck/tlvwire/internal/protocol"
	"github.com/danmuck/tlvwire/internal/protocol/frame"
	"github.com/danmuck/tlvwire/internal/protocol/instrument"
	"github.com/danmuck/tlvwire/internal/validation"
)

const version = "0.1.0"

// PoolDirectory exposes resolved pool metadata, normally *discovery.Worker.
type PoolDirectory interface {
	Pools() []discovery.PoolInfo
}

type Option func(*Server)

func WithPoolDirectory(d PoolDirectory) Option {
	return func(s *Server) { s.directory = d }
}

// WithAdminToken requires "Authorization: Bearer <token>" on POST /pools.
// An empty token leaves the route open.
func WithAdminToken(token string) Option {
	return func(s *Server) {
		if token != "" {
			s.admin = auth.StaticToken{Token: token}
		}
	}
}

// WithReadiness makes /ready report 503 while check returns an error.
func WithReadiness(check func() error) Option {
	return func(s *Server) { s.ready = check }
}

type Server struct {
	ID       string
	Addr     string
	Appeared time.Time

	validator *validation.Validator
	directory PoolDirectory
	ready     func() error
	admin     auth.Validator
	router    *gin.Engine
	origins   []string
	maxBody   int64
}

func New(id, addr string, corsOrigins []string, v *validation.Validator, opts ...Option) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger, "/health", "/ready", "/metrics"))
	r.Use(observability.RequestMetricsMiddleware(id))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		ID:        id,
		Addr:      addr,
		Appeared:  time.Now(),
		validator: v,
		router:    r,
		origins:   normalizeOrigins(corsOrigins),
		maxBody:   int64(protocol.HeaderSize) + int64(frame.DefaultLimits().MaxPayloadBytes),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.ID,
			"version": version,
		})
	})

	s.router.GET("/ready", func(c *gin.Context) {
		if s.ready != nil {
			if err := s.ready(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false, "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"ready":   true,
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.ID,
			"version": version,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router.POST("/validate", s.handleValidate)
	s.router.GET("/pools", s.handleListPools)
	if s.admin != nil {
		s.router.POST("/pools", auth.RequireBearer(s.admin), s.handleAddPool)
	} else {
		s.router.POST("/pools", s.handleAddPool)
	}
	s.router.GET("/ws/validate", s.handleStream)
}

// handleValidate accepts one raw message, or hex text with ?encoding=hex.
func (s *Server) handleValidate(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, 2*s.maxBody+1))
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return
	}
	if strings.EqualFold(c.Query("encoding"), "hex") {
		clean := strings.TrimPrefix(strings.TrimSpace(string(body)), "0x")
		body, err = hex.DecodeString(clean)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid hex body: " + err.Error()})
			return
		}
	}
	if int64(len(body)) > s.maxBody {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "message exceeds frame limit"})
		return
	}
	report := s.validateFrame(body)
	status := http.StatusOK
	if !report.Valid {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, report)
}

type poolEntry struct {
	Pool   string `json:"pool"`
	Token0 string `json:"token0,omitempty"`
	Token1 string `json:"token1,omitempty"`
	Venue  string `json:"venue,omitempty"`
	FeeBps uint32 `json:"fee_bps,omitempty"`
}

func (s *Server) handleListPools(c *gin.Context) {
	known := s.validator.KnownPools()
	out := make([]string, 0, len(known))
	for _, a := range known {
		out = append(out, a.String())
	}
	var resolved []poolEntry
	if s.directory != nil {
		for _, p := range s.directory.Pools() {
			resolved = append(resolved, poolEntry{
				Pool:   p.Pool.String(),
				Token0: p.Token0.String(),
				Token1: p.Token1.String(),
				Venue:  p.Venue.String(),
				FeeBps: p.FeeBps,
			})
		}
	}
	c.JSON(http.StatusOK, gin.H{"known": out, "resolved": resolved})
}

type addPoolRequest struct {
	Pool string `json:"pool" binding:"required"`
}

func (s *Server) handleAddPool(c *gin.Context) {
	var req addPoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	addr, err := instrument.ParseAddress(req.Pool)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !s.validator.AddKnownPool(addr) {
		c.JSON(http.StatusOK, gin.H{"pool": addr.String(), "added": false})
		return
	}
	log.Info().Str("pool", addr.String()).Msg("inspect: pool marked known")
	c.JSON(http.StatusCreated, gin.H{"pool": addr.String(), "added": true})
}

// Serve runs until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
