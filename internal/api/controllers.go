package api

import (
	"net/http"

	"execution-core/internal/exec"
	"execution-core/internal/risk"

	"github.com/gin-gonic/gin"
)

type listQuery struct {
	Limit int `form:"limit"`
}

func (q *listQuery) normalize() {
	if q.Limit <= 0 {
		q.Limit = 100
	}
	if q.Limit > 500 {
		q.Limit = 500
	}
}

func (s *Server) getSystemStatus(c *gin.Context) {
	resp := gin.H{
		"status":  "running",
		"venue":   s.Meta.Venue,
		"dry_run": s.Meta.DryRun,
		"version": s.Meta.Version,
	}
	if s.Positions != nil {
		resp["open_positions"] = len(s.Positions.Positions())
	}
	if s.Gate != nil {
		resp["daily_pnl"] = s.Gate.DailyPnL()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getMetrics(c *gin.Context) {
	if s.Metrics == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "metrics not enabled"})
		return
	}
	c.JSON(http.StatusOK, s.Metrics.GetSnapshot())
}

func (s *Server) getPositions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"positions": s.Positions.Positions()})
}

func (s *Server) getOrders(c *gin.Context) {
	if s.DB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence not enabled"})
		return
	}
	var q listQuery
	if err := c.BindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return
	}
	q.normalize()

	orders, err := s.DB.ListRecentOrders(c.Request.Context(), q.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load orders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (s *Server) getTrades(c *gin.Context) {
	if s.DB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence not enabled"})
		return
	}
	var q listQuery
	if err := c.BindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return
	}
	q.normalize()

	trades, err := s.DB.ListRecentTrades(c.Request.Context(), q.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load trades"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (s *Server) getBalance(c *gin.Context) {
	if s.Balance == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "balance not enabled"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"available": s.Balance.Available(),
		"last_sync": s.Balance.LastSync(),
	})
}

func (s *Server) getRisk(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"config":    s.Gate.Config(),
		"daily_pnl": s.Gate.DailyPnL(),
		"stats":     s.Gate.Stats(),
	})
}

func (s *Server) updateRiskConfig(c *gin.Context) {
	var cfg risk.Config
	if err := c.BindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	if err := s.Gate.UpdateConfig(cfg); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"config": s.Gate.Config()})
}

func (s *Server) openTrade(c *gin.Context) {
	var req exec.OpenRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	out := s.Sequencer.OpenPosition(c.Request.Context(), req)
	if !out.Success {
		c.JSON(http.StatusUnprocessableEntity, out)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) closeTrade(c *gin.Context) {
	var req exec.CloseRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	out := s.Sequencer.ClosePosition(c.Request.Context(), req)
	if !out.Success {
		c.JSON(http.StatusUnprocessableEntity, out)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) refreshAssets(c *gin.Context) {
	s.Assets.Reset()
	c.JSON(http.StatusOK, gin.H{"status": "universe cache cleared"})
}
