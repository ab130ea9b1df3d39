package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"execution-core/internal/api"
	"execution-core/internal/asset"
	"execution-core/internal/balance"
	"execution-core/internal/events"
	"execution-core/internal/exec"
	"execution-core/internal/monitor"
	"execution-core/internal/pricing"
	"execution-core/internal/risk"
	"execution-core/internal/state"
	"execution-core/pkg/config"
	"execution-core/pkg/db"
	"execution-core/pkg/exchange"
	"execution-core/pkg/exchange/sim"
)

var buildVersion = "dev"

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Persistence
	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer database.Close()
	if err := db.ApplyMigrations(database); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	bus := events.NewBus()
	metrics := monitor.NewMetrics()

	// Venue gateway. Only the simulated venue ships here; a signed venue
	// client plugs in behind the same interface.
	if !cfg.DryRun {
		log.Println("main: no live venue client configured, forcing dry-run")
		cfg.DryRun = true
	}
	fixture := sim.DefaultFixture()
	if cfg.VenueFixture != "" {
		fixture, err = sim.LoadFixture(cfg.VenueFixture)
		if err != nil {
			log.Fatalf("venue fixture: %v", err)
		}
	}
	if fixture.Balance == 0 {
		fixture.Balance = cfg.InitialBalance
	}
	venue := sim.New(fixture)

	var gw exchange.Gateway = exchange.NewThrottled(venue, cfg.GatewayRPS, cfg.GatewayBurst)

	// Engine components
	registry := asset.NewRegistry(gw)
	pricer := pricing.NewEngine(gw, cfg.DefaultSlippage)

	gate, err := risk.New(risk.Config{
		MaxLeverage:          cfg.MaxLeverage,
		MaxPositionSizeUSD:   cfg.MaxPositionSizeUSD,
		MaxDailyLoss:         cfg.MaxDailyLoss,
		MaxDrawdownPct:       cfg.MaxDrawdownPct,
		MaxOpenPositions:     cfg.MaxOpenPositions,
		RequireStopLoss:      cfg.RequireStopLoss,
		LossProjectionFactor: cfg.LossProjectionFactor,
	}, database)
	if err != nil {
		log.Fatalf("risk: %v", err)
	}

	positions := state.NewManager(database)
	if err := positions.Load(ctx); err != nil {
		log.Fatalf("state: %v", err)
	}

	balances := balance.NewManager(venue, cfg.InitialBalance, time.Duration(cfg.BalanceSyncSecs)*time.Second)
	balances.Start(ctx)

	sequencer := exec.NewSequencer(exec.Deps{
		Gateway:   gw,
		Assets:    registry,
		Pricer:    pricer,
		Gate:      gate,
		Positions: positions,
		DB:        database,
		Bus:       bus,
		Balance:   balances,
		Metrics:   metrics,
	})

	// Fold realized PnL back into the balance cache between venue syncs.
	closedTrades, unsubTrades := bus.Subscribe(events.EventTradeClosed, 100)
	go func() {
		defer unsubTrades()
		for msg := range closedTrades {
			if payload, ok := msg.(map[string]any); ok {
				if pnl, ok := payload["pnl"].(float64); ok {
					balances.ApplyPnL(pnl)
					venue.AdjustBalance(pnl)
				}
			}
		}
	}()

	// Risk alerts to the log
	sink := monitor.LogSink{}
	watcher := &monitor.Monitor{Bus: bus, AlertFn: func(msg string) { _ = sink.Send(msg) }}
	watcher.Start(ctx)

	// Operator credential
	opHash, err := api.HashPassword(cfg.OperatorPassword)
	if err != nil {
		log.Fatalf("operator credential: %v", err)
	}

	server := api.NewServer(api.Options{
		Bus:       bus,
		DB:        database,
		Gate:      gate,
		Positions: positions,
		Balance:   balances,
		Sequencer: sequencer,
		Assets:    registry,
		Metrics:   metrics,
		JWTSecret: cfg.JWTSecret,
		Operator:  api.Credential{Username: cfg.OperatorUser, PasswordHash: opHash},
		Meta: api.SystemMeta{
			DryRun:  cfg.DryRun,
			Venue:   "sim",
			Version: buildVersion,
		},
	})
	go func() {
		if err := server.Start(":" + cfg.Port); err != nil {
			log.Fatalf("api server: %v", err)
		}
	}()
	log.Printf("main: execution core up, port=%s dry_run=%v", cfg.Port, cfg.DryRun)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("main: shutting down")
}
