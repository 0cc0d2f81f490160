// Package api exposes the quote cache and the feed's health over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	appconfig "github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/config"
	"github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/internal/feed"
	"github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/internal/metrics"
	"github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/logger"
)

// Server serves quote queries, historical fetches and operational
// endpoints on a single gin router.
type Server struct {
	cfg    *appconfig.Config
	feed   *feed.Service
	log    *logger.Log
	router *gin.Engine
	http   *http.Server
}

func NewServer(cfg *appconfig.Config, svc *feed.Service) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:  cfg,
		feed: svc,
		log:  logger.GetLogger(),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())

	router.GET("/", s.handleRoot)
	router.GET("/health", s.handleHealth)

	router.GET("/options", s.handleOptions)
	router.GET("/options/all", s.handleOptions)
	router.GET("/options/prefix/:prefix", s.handleOptions)
	router.GET("/options/ticker/:ticker", s.handleOptions)

	router.GET("/stocks", s.handleStocks)
	router.GET("/stocks/all", s.handleStocks)
	router.GET("/stocks/prefix/:prefix", s.handleStocks)
	router.GET("/stocks/ticker/:ticker", s.handleStocks)

	router.GET("/securities", s.handleSecurities)
	router.GET("/securities/all", s.handleSecurities)
	router.GET("/securities/ticker/:ticker", s.handleSecurities)

	router.GET("/cauciones", s.handleCauciones)

	router.GET("/historical/:symbol", s.handleHistorical)
	router.POST("/historical/batch", s.handleHistoricalBatch)
	router.GET("/intraday/:symbol", s.handleIntraday)
	router.POST("/intraday/batch", s.handleIntradayBatch)

	router.GET("/status/connection", s.handleConnectionStatus)
	router.GET("/config", s.handleConfig)
	router.POST("/reconnect", s.handleReconnect)

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	s.router = router
	return s
}

// Run starts the HTTP listener. Blocks until the server stops.
func (s *Server) Run() error {
	addr := s.cfg.Server.Address
	if addr == "" {
		addr = ":8000"
	}
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	s.log.WithComponent("api").WithField("address", addr).Info("http server listening")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) requestLogger() gin.HandlerFunc {
	log := s.log.WithComponent("api")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logger.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start).String(),
		}).Debug("request served")
	}
}
