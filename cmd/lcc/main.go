// Package main implements the Lift Control Container entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lift-control/lcc/internal/api"
	"github.com/lift-control/lcc/internal/audit"
	"github.com/lift-control/lcc/internal/auth"
	"github.com/lift-control/lcc/internal/command"
	"github.com/lift-control/lcc/internal/config"
	"github.com/lift-control/lcc/internal/fleet"
	"github.com/lift-control/lcc/internal/logging"
	"github.com/lift-control/lcc/internal/request"
	"github.com/lift-control/lcc/internal/telemetry"
	"github.com/lift-control/lcc/internal/transport"
	"github.com/lift-control/lcc/internal/unit"
)

func main() {
	if err := run(); err != nil {
		logging.Get().Error().Err(err).Msg("Lift Control Container failed")
		_ = logging.Close()
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.Setup(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer logging.Close()
	log := *logger

	log.Info().Str("version", api.Version).Int("units", cfg.Units.Count).Int("floors", cfg.Units.Floors).
		Msg("Starting Lift Control Container")

	hub := telemetry.NewHub(cfg.Timing, log)
	defer hub.Stop()

	auditLogger, err := audit.NewLogger(cfg.Audit)
	if err != nil {
		return fmt.Errorf("failed to initialize audit logger: %w", err)
	}
	defer auditLogger.Close()

	tracker := command.NewTracker()
	units := fleet.NewManager(cfg.Units.Count, cfg.Units.Floors, cfg.Unit(), unit.Fanout{hub, tracker}, log)
	defer units.Close()

	orchestrator := command.NewOrchestrator(units, tracker, hub, auditLogger, log)
	defer orchestrator.Stop()
	hub.SetSnapshot(func() interface{} { return units.List().Items })

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stopReceivers, err := startReceivers(ctx, cfg.Network, orchestrator, log)
	if err != nil {
		return err
	}
	defer stopReceivers()

	middleware, err := newMiddleware(cfg.Auth)
	if err != nil {
		return err
	}

	var server *api.Server
	if cfg.Network.HTTPAddr != "" {
		// No write timeout: telemetry streams stay open.
		server = api.NewServer(hub, orchestrator, middleware, log, 30*time.Second, 0, 120*time.Second)
		if err := server.Start(cfg.Network.HTTPAddr); err != nil {
			return err
		}
	}

	log.Info().Msg("Lift Control Container started")
	<-ctx.Done()
	log.Info().Msg("Shutdown signal received")

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Stop(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Error stopping HTTP server")
		}
	}

	log.Info().Interface("stats", orchestrator.Stats()).Msg("Lift Control Container shutdown complete")
	return nil
}

// startReceivers starts the configured request listeners and returns a
// function that stops them.
func startReceivers(ctx context.Context, network config.NetworkConfig, orchestrator *command.Orchestrator, log zerolog.Logger) (func(), error) {
	handler := func(req *request.Request) { orchestrator.Enqueue(req) }
	var stops []func() error

	stopAll := func() {
		for i := len(stops) - 1; i >= 0; i-- {
			if err := stops[i](); err != nil {
				log.Warn().Err(err).Msg("Error stopping receiver")
			}
		}
	}

	if network.UDPAddr != "" {
		r := transport.NewUDPReceiver(network.UDPAddr, handler, log)
		if err := r.Start(ctx); err != nil {
			return nil, err
		}
		stops = append(stops, r.Stop)
	}

	if network.QUICAddr != "" {
		r := transport.NewQUICReceiver(network.QUICAddr, nil, handler, log)
		if err := r.Start(ctx); err != nil {
			stopAll()
			return nil, err
		}
		stops = append(stops, r.Stop)
	}

	return stopAll, nil
}

func newMiddleware(cfg config.AuthConfig) (*auth.Middleware, error) {
	if cfg.Disabled {
		return auth.NewMiddleware(nil), nil
	}
	verifier, err := auth.NewVerifier(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token verifier: %w", err)
	}
	return auth.NewMiddleware(verifier), nil
}
