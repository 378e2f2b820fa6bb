/*
Package main is the entry point for a RESC chat server.

It loads configuration, initializes the global logging system, opens the optional audit
sink, starts the relay listener, the tracker uplink and the admin HTTP surface, and
shuts everything down gracefully on SIGINT or SIGTERM.
*/
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"resc/internal/app/audit"
	"resc/internal/app/chat"
	"resc/internal/configs"
	"resc/internal/handler"
	"resc/internal/pkg/limiter"
	"resc/internal/pkg/logx"
)

const (
	// WSUpgradeRate and WSUpgradeBurst throttle WebSocket upgrades per client IP.
	WSUpgradeRate  = 0.5
	WSUpgradeBurst = 5
)

func main() {
	// Load configuration from arguments and environment variables
	cfg, err := configs.LoadConfig(configs.RoleServer, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Str("node", cfg.NodeName).
		Str("listen", cfg.ListenAddr()).
		Str("tracker", cfg.TrackerAddr).
		Str("advertise", cfg.AdvertiseAddr).
		Dur("poll_interval", cfg.PollInterval).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	var recorder audit.Recorder = audit.Nop{}
	if cfg.DatabaseDSN != "" {
		sink, pool, err := audit.Open(ctx, cfg.DatabaseDSN, cfg.NodeName)
		if err != nil {
			logx.Fatal(err, "Failed to open audit database")
		}
		defer pool.Close()

		recorder = sink
		g.Go(func() error { return sink.Run(gctx) })
	}

	server := chat.NewServer(chat.Options{
		Name:         cfg.NodeName,
		Recorder:     recorder,
		PollInterval: cfg.PollInterval,
	})

	ln, err := net.Listen("tcp", cfg.ListenAddr())
	if err != nil {
		logx.Fatal(err, "Failed to bind relay listener", "addr", cfg.ListenAddr())
	}

	g.Go(func() error { return server.Serve(gctx, ln) })

	if cfg.TrackerAddr != "" {
		uplink := chat.NewUplink(server.Registry(), cfg.TrackerAddr, cfg.AdvertiseAddr, cfg.PollInterval)
		g.Go(func() error { return uplink.Run(gctx) })
	} else {
		logx.Warn("TRACKER_ADDR not set. Running standalone without cross-server broadcasts.")
	}

	if addr := cfg.AdminAddr(); addr != "" {
		wsLimiter := limiter.NewIPRateLimiter(rate.Limit(WSUpgradeRate), WSUpgradeBurst)
		g.Go(func() error { return wsLimiter.Run(gctx) })

		router := handler.Router(&handler.AppDeps{
			Config:    cfg,
			Chat:      server,
			WSLimiter: wsLimiter,
		})
		g.Go(func() error { return handler.ListenAndServe(gctx, addr, router) })

		handler.LogDevelopmentToken(cfg)
	}

	if err := g.Wait(); err != nil {
		logx.Fatal(err, "Chat server stopped with error")
	}

	server.Wait()
	logx.Info("Chat server gracefully stopped.")
}
