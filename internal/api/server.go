package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"revforecast/internal/forecast"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const serviceName = "revenue-forecaster"

// Config holds the HTTP surface settings.
type Config struct {
	Addr        string
	Version     string
	CORSOrigins []string

	// Registry receives the HTTP collectors and is served on /metrics.
	// Nil creates a private registry.
	Registry *prometheus.Registry
}

// Server exposes the forecasting service over HTTP.
type Server struct {
	cfg     Config
	service *forecast.Service
	router  *gin.Engine
}

// NewServer builds the router and registers every route.
func NewServer(cfg Config, service *forecast.Service) *Server {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}

	s := &Server{
		cfg:     cfg,
		service: service,
		router:  gin.New(),
	}
	s.router.Use(gin.Recovery(), RequestLogger(), newHTTPMetrics(cfg.Registry).middleware(), CORS(cfg.CORSOrigins))
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.GET("/health", s.health)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.cfg.Registry, promhttp.HandlerOpts{})))

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/forecast", s.getForecast)
		v1.POST("/forecast", s.postForecast)

		forecasts := v1.Group("/forecasts")
		forecasts.GET("", s.listForecasts)
		forecasts.POST("/:id/actual", s.recordActual)
	}
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Addr).Str("version", s.cfg.Version).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
