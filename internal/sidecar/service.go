package sidecar

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"observability/internal/config"
	"observability/internal/logging"
	"observability/internal/metrics"
	"observability/internal/transfer"
)

// Registry is the part of the metric registry the HTTP surface needs.
type Registry interface {
	metrics.Recorder
	Handler() http.Handler
}

type Service struct {
	participant string
	registry    Registry
	ingestor    *transfer.Ingestor
	cfg         config.ServerConfig
	logger      logging.Logger

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
}

func NewService(cfg config.ServerConfig, registry Registry, ingestor *transfer.Ingestor, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = config.DefaultServerConfig().MaxBodyBytes
	}
	return &Service{
		participant: ingestor.Participant(),
		registry:    registry,
		ingestor:    ingestor,
		cfg:         cfg,
		logger:      logger,
	}
}

// Handler returns the routed HTTP surface. Unknown paths and methods are
// answered by the mux with 404 and 405.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.HandleFunc("POST /event/transfer", s.handleTransfer)
	mux.Handle("GET /metrics", s.registry.Handler())
	return s.logRequests(mux)
}

// Start binds the listen address and serves in the background. A bind
// failure is returned to the caller.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer != nil {
		return errors.New("sidecar already started")
	}

	listener, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddr, err)
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
	}

	srv := s.httpServer
	go func() {
		s.logger.Infof("Observability sidecar for %s listening on %s", s.participant, listener.Addr())
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorf("Sidecar HTTP server error: %v", err)
		}
	}()

	return nil
}

// Addr is the bound address, useful when listening on port 0.
func (s *Service) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.listener = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("sidecar HTTP shutdown: %w", err)
	}
	return nil
}
