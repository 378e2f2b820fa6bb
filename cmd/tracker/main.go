/*
Package main is the entry point for the RESC tracker.

It loads configuration, initializes the global logging system, opens the optional audit
sink, starts the tracker listener and the admin HTTP surface, and shuts down gracefully on
SIGINT or SIGTERM.
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

	"resc/internal/app/audit"
	"resc/internal/app/tracker"
	"resc/internal/configs"
	"resc/internal/handler"
	"resc/internal/pkg/logx"
)

func main() {
	// Load configuration from arguments and environment variables
	cfg, err := configs.LoadConfig(configs.RoleTracker, os.Args[1:])
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

	tr := tracker.New(tracker.Options{
		Recorder:     recorder,
		PollInterval: cfg.PollInterval,
	})

	ln, err := net.Listen("tcp", cfg.ListenAddr())
	if err != nil {
		logx.Fatal(err, "Failed to bind tracker listener", "addr", cfg.ListenAddr())
	}

	g.Go(func() error { return tr.Serve(gctx, ln) })

	if addr := cfg.AdminAddr(); addr != "" {
		router := handler.Router(&handler.AppDeps{
			Config:  cfg,
			Tracker: tr,
		})
		g.Go(func() error { return handler.ListenAndServe(gctx, addr, router) })

		handler.LogDevelopmentToken(cfg)
	}

	if err := g.Wait(); err != nil {
		logx.Fatal(err, "Tracker stopped with error")
	}

	logx.Info("Tracker gracefully stopped.")
}
