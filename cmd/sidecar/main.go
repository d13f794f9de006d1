package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"observability/internal/config"
	"observability/internal/logging"
	"observability/internal/messaging"
	"observability/internal/metrics"
	"observability/internal/sidecar"
	"observability/internal/transfer"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Path to config file (YAML, optional)")
		printConfig = flag.Bool("print-config", false, "Print the effective configuration and exit")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *printConfig {
		out, err := config.Dump(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		os.Stdout.Write(out)
		return
	}

	logging.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger := logging.NewDefaultLogger()
	participant := cfg.Identity.ParticipantID

	logger.WithField("participant", participant).Info("Starting observability sidecar")

	registry := metrics.NewRegistry(metrics.Options{
		Namespace:         cfg.Metrics.Namespace,
		LatencyBuckets:    cfg.Metrics.LatencyBuckets,
		RuntimeCollectors: cfg.Metrics.RuntimeCollectors,
		ErrorLog:          logging.L(),
	})

	var dedupe *transfer.Deduplicator
	if cfg.Dedupe.Enabled {
		dedupe, err = transfer.NewDeduplicator(cfg.Dedupe.Size)
		if err != nil {
			logger.Fatalf("Failed to create dedupe cache: %v", err)
		}
	}
	ingestor := transfer.NewIngestor(participant, registry, dedupe, logger)

	var closers []io.Closer
	if cfg.NATS.URL != "" {
		bus, err := messaging.NewNATSBus(cfg.NATS.URL, cfg.NATS.Name, logger)
		if err != nil {
			logger.Fatalf("Failed to connect to NATS: %v", err)
		}
		sub, err := messaging.SubscribeTransfers(bus, cfg.NATS.Subject, ingestor, logger)
		if err != nil {
			logger.Fatalf("Failed to subscribe to NATS: %v", err)
		}
		closers = append(closers, sub, bus)
	}

	service := sidecar.NewService(cfg.Server, registry, ingestor, logger)
	if err := service.Start(); err != nil {
		logger.Fatalf("Failed to start sidecar: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	logger.Infof("Received %v, shutting down", sig)

	if err := service.Stop(context.Background()); err != nil {
		logger.Errorf("Shutdown error: %v", err)
	}
	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Warnf("Close error: %v", err)
		}
	}
}
