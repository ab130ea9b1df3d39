package api

import (
	"net/http"
	"time"

	"execution-core/internal/asset"
	"execution-core/internal/balance"
	"execution-core/internal/events"
	"execution-core/internal/exec"
	"execution-core/internal/monitor"
	"execution-core/internal/risk"
	"execution-core/internal/state"
	"execution-core/pkg/db"

	"github.com/gin-gonic/gin"
)

// Server wires the HTTP surface around the execution engine.
type Server struct {
	Router    *gin.Engine
	Bus       *events.Bus
	DB        *db.Database
	Gate      *risk.Gate
	Positions *state.Manager
	Balance   *balance.Manager
	Sequencer *exec.Sequencer
	Assets    *asset.Registry
	Metrics   *monitor.Metrics
	JWTSecret string
	Operator  Credential
	Meta      SystemMeta
}

// SystemMeta describes runtime status exposed to operators.
type SystemMeta struct {
	DryRun  bool
	Venue   string
	Version string
}

// Options aggregates the server's collaborators.
type Options struct {
	Bus       *events.Bus
	DB        *db.Database
	Gate      *risk.Gate
	Positions *state.Manager
	Balance   *balance.Manager
	Sequencer *exec.Sequencer
	Assets    *asset.Registry
	Metrics   *monitor.Metrics
	JWTSecret string
	Operator  Credential
	Meta      SystemMeta
}

func NewServer(opts Options) *Server {
	r := gin.New()

	// Middleware stack (order matters!)
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger())
	r.Use(RateLimitMiddleware())
	r.Use(TimeoutMiddleware(30 * time.Second))
	r.Use(CORSMiddleware())

	s := &Server{
		Router:    r,
		Bus:       opts.Bus,
		DB:        opts.DB,
		Gate:      opts.Gate,
		Positions: opts.Positions,
		Balance:   opts.Balance,
		Sequencer: opts.Sequencer,
		Assets:    opts.Assets,
		Metrics:   opts.Metrics,
		JWTSecret: opts.JWTSecret,
		Operator:  opts.Operator,
		Meta:      opts.Meta,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/ws", s.websocket)

	api := s.Router.Group("/api")
	{
		api.GET("/system/status", s.getSystemStatus)
		api.GET("/metrics", s.getMetrics)

		api.POST("/auth/login", s.login)

		protected := api.Group("")
		protected.Use(AuthMiddleware(s.JWTSecret))
		{
			protected.GET("/positions", s.getPositions)
			protected.GET("/orders", s.getOrders)
			protected.GET("/trades", s.getTrades)
			protected.GET("/balance", s.getBalance)

			protected.GET("/risk", s.getRisk)
			protected.PUT("/risk/config", s.updateRiskConfig)

			protected.POST("/trade/open", s.openTrade)
			protected.POST("/trade/close", s.closeTrade)

			protected.POST("/assets/refresh", s.refreshAssets)
		}
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}
