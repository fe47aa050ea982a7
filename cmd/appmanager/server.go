package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/patrickl3/openems-pf/internal/core/appmanager/planner"
	"github.com/patrickl3/openems-pf/internal/shell/aggregator"
	"github.com/patrickl3/openems-pf/internal/shell/api"
	"github.com/patrickl3/openems-pf/internal/shell/appcatalog"
	"github.com/patrickl3/openems-pf/internal/shell/i18n"
	"github.com/patrickl3/openems-pf/internal/shell/registry"
	"github.com/patrickl3/openems-pf/internal/shell/validator"
)

// Exit codes, following this codebase's convention of a distinct code per
// failing subsystem.
const (
	ExitSuccess       = 0
	ExitConfigError   = 1
	ExitDatabaseError = 2
	ExitCatalogError  = 3
	ExitHTTPError     = 4
)

// ServerError wraps a startup failure with the subsystem that failed and
// the process exit code it should produce.
type ServerError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServerError) Unwrap() error {
	return e.Err
}

// Server is the appmanager demo service.
type Server struct {
	config     *Config
	httpServer *http.Server
	catalog    *appcatalog.Store
	registry   *registry.Registry
	logger     *slog.Logger
}

// NewServer wires every shell adapter together into a Planner and an HTTP
// server ready to Start.
func NewServer(cfg *Config, logger *slog.Logger) (*Server, error) {
	catalogFile, err := os.Open(cfg.Catalog.Path)
	if err != nil {
		return nil, &ServerError{Op: "open catalog", Err: err, ExitCode: ExitCatalogError}
	}
	defer catalogFile.Close()

	defs, err := appcatalog.LoadCatalog(catalogFile)
	if err != nil {
		return nil, &ServerError{Op: "load catalog", Err: err, ExitCode: ExitCatalogError}
	}

	store, err := appcatalog.Open(cfg.Database.InstancesDSN, defs)
	if err != nil {
		return nil, &ServerError{Op: "open instance store", Err: err, ExitCode: ExitDatabaseError}
	}

	reg, err := registry.Open(cfg.Database.RegistryDSN)
	if err != nil {
		store.Close()
		return nil, &ServerError{Op: "open component registry", Err: err, ExitCode: ExitDatabaseError}
	}

	translator, err := i18n.Load()
	if err != nil {
		store.Close()
		reg.Close()
		return nil, &ServerError{Op: "load translations", Err: err, ExitCode: ExitConfigError}
	}

	facts := validator.StaticFacts{
		"relayCount":  4,
		"hasBattery":  true,
		"hasMeter":    true,
		"firmwareMin": "2024.1",
	}
	v := validator.New(facts, validator.StoreInstanceCounter{Store: store})

	tokenHash, err := aggregator.HashToken(cfg.Auth.StaticIPToken)
	if err != nil {
		store.Close()
		reg.Close()
		return nil, &ServerError{Op: "hash capability token", Err: err, ExitCode: ExitConfigError}
	}

	aggregators := planner.Aggregators{
		Components: aggregator.NewComponentAggregator(reg),
		Scheduler:  aggregator.NewSchedulerAggregator(reg),
		StaticIPs:  aggregator.NewStaticIpAggregator(aggregator.LoggingNetworkConfigurer{Logger: logger}, tokenHash),
	}

	p := planner.New(store, v, reg, translator, aggregators, logger)
	handler := api.NewHandler(p, store, logger)

	return &Server{
		config:   cfg,
		catalog:  store,
		registry: reg,
		logger:   logger,
		httpServer: &http.Server{
			Addr:    cfg.Server.Address(),
			Handler: handler.Routes(),
		},
	}, nil
}

// Start runs the HTTP server until ctx is canceled or it fails.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("appmanager listening", "address", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownErr := s.httpServer.Close()
		s.catalog.Close()
		s.registry.Close()
		return shutdownErr
	case err := <-errCh:
		s.catalog.Close()
		s.registry.Close()
		if err != nil {
			return &ServerError{Op: "serve", Err: err, ExitCode: ExitHTTPError}
		}
		return nil
	}
}
