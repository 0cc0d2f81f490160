package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

type batchRequest struct {
	Symbols    []string `json:"symbols" binding:"required"`
	Days       int      `json:"days"`
	Settlement string   `json:"settlement"`
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": s.cfg.Service.Name,
		"version": s.cfg.Service.Version,
		"status":  "running",
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	connected := s.feed.IsConnected()
	receiving := s.feed.IsReceivingData()

	state := "disconnected"
	code := http.StatusServiceUnavailable
	switch {
	case connected && receiving:
		state = "healthy"
		code = http.StatusOK
	case connected:
		state = "connected_but_stale"
		code = http.StatusOK
	}

	options, securities, repos := s.feed.Store().Counts()
	c.JSON(code, gin.H{
		"status":         state,
		"connected":      connected,
		"receiving_data": receiving,
		"cached_quotes": gin.H{
			"options":    options,
			"securities": securities,
			"cauciones":  repos,
		},
	})
}

// handleOptions serves /options, /options/all and the prefix/ticker
// variants. The bare route applies the configured default prefixes;
// /all bypasses them.
func (s *Server) handleOptions(c *gin.Context) {
	st := s.feed.Store()
	if strings.HasSuffix(c.FullPath(), "/all") {
		c.JSON(http.StatusOK, optionsJSON(st.AllOptions()))
		return
	}
	rows := st.GetOptions(pathOrQuery(c, "prefix"), pathOrQuery(c, "ticker"))
	c.JSON(http.StatusOK, optionsJSON(rows))
}

func (s *Server) handleStocks(c *gin.Context) {
	st := s.feed.Store()
	if strings.HasSuffix(c.FullPath(), "/all") {
		c.JSON(http.StatusOK, securitiesJSON(st.AllStocks()))
		return
	}
	rows := st.GetStocks(pathOrQuery(c, "prefix"), pathOrQuery(c, "ticker"))
	c.JSON(http.StatusOK, securitiesJSON(rows))
}

// pathOrQuery reads a filter from the route parameter, falling back to
// the query string so the bare routes accept ?prefix= and ?ticker=.
func pathOrQuery(c *gin.Context, name string) string {
	if v := c.Param(name); v != "" {
		return v
	}
	return c.Query(name)
}

// handleSecurities serves the raw security table. The optional ?type=
// filter restricts to rows carrying a settlement suffix.
func (s *Server) handleSecurities(c *gin.Context) {
	st := s.feed.Store()
	if strings.HasSuffix(c.FullPath(), "/all") {
		c.JSON(http.StatusOK, securitiesJSON(st.AllSecurities()))
		return
	}
	rows := st.GetSecurities(c.Param("ticker"), c.Query("type"))
	c.JSON(http.StatusOK, securitiesJSON(rows))
}

func (s *Server) handleCauciones(c *gin.Context) {
	c.JSON(http.StatusOK, reposJSON(s.feed.Store().GetCauciones()))
}

func (s *Server) handleHistorical(c *gin.Context) {
	symbol := c.Param("symbol")
	days := parseDays(c.DefaultQuery("days", "30"))
	settlement := c.DefaultQuery("settlement", "24hs")

	bars, err := s.feed.GetHistoricalData(c.Request.Context(), symbol, days, settlement)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol":     strings.ToUpper(symbol),
		"days":       days,
		"settlement": settlement,
		"bars":       barsJSON(bars),
	})
}

func (s *Server) handleHistoricalBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbols list is required"})
		return
	}
	if len(req.Symbols) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbols list is empty"})
		return
	}
	days := req.Days
	if days <= 0 {
		days = 30
	}
	settlement := req.Settlement
	if settlement == "" {
		settlement = "24hs"
	}

	results := s.feed.GetHistoricalBatch(c.Request.Context(), req.Symbols, days, settlement)
	c.JSON(http.StatusOK, gin.H{"days": days, "settlement": settlement, "data": batchJSON(results)})
}

func (s *Server) handleIntraday(c *gin.Context) {
	symbol := c.Param("symbol")
	bars, err := s.feed.GetIntradayData(c.Request.Context(), symbol)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol": strings.ToUpper(symbol),
		"bars":   barsJSON(bars),
	})
}

func (s *Server) handleIntradayBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbols list is required"})
		return
	}
	if len(req.Symbols) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbols list is empty"})
		return
	}

	results := s.feed.GetIntradayBatch(c.Request.Context(), req.Symbols)
	c.JSON(http.StatusOK, gin.H{"data": batchJSON(results)})
}

func (s *Server) handleConnectionStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.feed.Status())
}

// handleConfig reports the non-secret runtime configuration.
func (s *Server) handleConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": gin.H{
			"name":    s.cfg.Service.Name,
			"version": s.cfg.Service.Version,
		},
		"prefixes": gin.H{
			"options": s.cfg.Prefixes.Options,
			"stocks":  s.cfg.Prefixes.Stocks,
		},
		"reconnect": gin.H{
			"interval":              s.cfg.Reconnect.Interval.String(),
			"max_attempts":          s.cfg.Reconnect.MaxAttempts,
			"health_check_interval": s.cfg.Reconnect.HealthCheckInterval.String(),
			"stale_after":           s.cfg.Reconnect.StaleAfter.String(),
		},
		"history": gin.H{
			"requests_per_second": s.cfg.History.RequestsPerSecond,
			"max_days":            s.cfg.History.MaxDays,
		},
	})
}

func (s *Server) handleReconnect(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	if err := s.feed.ForceReconnect(ctx); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reconnected"})
}

func parseDays(raw string) int {
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 {
		return 30
	}
	return days
}
