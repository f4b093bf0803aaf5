package web

import (
	"context"
	"net/http"
	"time"

	"PesaVault/internal/adapters/postgres"
	"PesaVault/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Server exposes the operational HTTP surface: a status page with the
// bot's pairing link, a health probe and Prometheus metrics.
type Server struct {
	httpServer *http.Server
	log        zerolog.Logger
}

// NewServer wires the routes and returns an unstarted server.
func NewServer(addr string, status ports.TransportStatus, db *postgres.DB, devMode bool, baseLogger *zerolog.Logger) *Server {
	log := baseLogger.With().Str("component", "web").Logger()

	if !devMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/", func(c *gin.Context) {
		if !status.Ready() {
			c.String(http.StatusOK, "Bot is starting up, please refresh shortly.")
			return
		}
		c.String(http.StatusOK, "Bot is running.\nChat with it here: %s\n", status.PairingArtifact())
	})

	router.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.Pool().Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "transport_ready": status.Ready()})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return &Server{
		httpServer: &http.Server{Addr: addr, Handler: router},
		log:        log,
	}
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("Starting web server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down web server")
	return s.httpServer.Shutdown(ctx)
}
