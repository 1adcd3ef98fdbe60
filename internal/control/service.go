package control

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tranvd/aegis/internal/api"
	"github.com/tranvd/aegis/internal/core/config"
	"github.com/tranvd/aegis/internal/core/domain"
	redisclient "github.com/tranvd/aegis/internal/infra/redis"
	"github.com/tranvd/aegis/internal/infra/storage"
	"github.com/tranvd/aegis/internal/infra/storage/memory"
	"github.com/tranvd/aegis/internal/infra/storage/postgres"
	"github.com/tranvd/aegis/internal/recovery"
)

// Service is the main application struct that wires the recovery engine to
// its sinks and the API server.
type Service struct {
	cfg         *config.AppConfig
	engine      *recovery.Engine
	apiServer   *api.Server
	db          *postgres.DB
	redisClient *redisclient.Client
	log         *slog.Logger
}

// NewService creates a Service with all dependencies initialized.
func NewService(cfg *config.AppConfig) (*Service, error) {
	log := slog.Default()

	// 1. Initialize the fault archive
	var faultRepo storage.FaultRepository
	var db *postgres.DB

	if cfg.Database.URL != "" {
		var err error
		db, err = postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		faultRepo = postgres.NewFaultRepo(db)
		slog.Info("Using PostgreSQL fault archive")
	} else {
		faultRepo = memory.NewFaultRepo()
		slog.Info("Using in-memory fault archive")
	}

	// 2. Initialize the escalation queue
	var redisClient *redisclient.Client
	var escalations recovery.EscalationSink

	if cfg.Redis.URL != "" {
		var err error
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		escalations = redisClient
		slog.Info("Escalation queue enabled")
	}

	// 3. Build the engine
	overrides := make(map[string]domain.Severity, len(cfg.Engine.SeverityOverrides))
	for kind, sev := range cfg.Engine.SeverityOverrides {
		overrides[kind] = recovery.ParseSeverity(sev)
	}

	engine := recovery.New(recovery.Options{
		MaxRetries:        cfg.Engine.MaxRetries,
		BreakerThreshold:  cfg.Engine.BreakerThreshold,
		BreakerTimeout:    time.Duration(cfg.Engine.BreakerTimeoutSeconds) * time.Second,
		HistoryCap:        cfg.Engine.HistoryCap,
		DefaultRetryDelay: time.Duration(cfg.Engine.DefaultRetryDelaySecs) * time.Second,
		SeverityOverrides: overrides,
		Logger:            log,
		Archive:           faultRepo,
		Escalations:       escalations,
	})
	recovery.RegisterDefaults(engine.Registry())

	return &Service{
		cfg:         cfg,
		engine:      engine,
		apiServer:   api.NewServer(engine, faultRepo, cfg.Server.Port),
		db:          db,
		redisClient: redisClient,
		log:         log,
	}, nil
}

// Engine exposes the recovery engine for in-process callers.
func (s *Service) Engine() *recovery.Engine {
	return s.engine
}

// Start launches the API server.
func (s *Service) Start(ctx context.Context) error {
	go func() {
		s.log.Info("API server listening", "port", s.cfg.Server.Port)
		if err := s.apiServer.Start(); err != nil && err != http.ErrServerClosed {
			s.log.Error("API server failed", "error", err)
		}
	}()
	return nil
}

// Stop shuts down the API server and closes connections.
func (s *Service) Stop(ctx context.Context) error {
	if err := s.apiServer.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop API server: %w", err)
	}
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.log.Warn("Failed to close redis client", "error", err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.log.Warn("Failed to close database", "error", err)
		}
	}
	return nil
}
