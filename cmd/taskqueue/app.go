package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/phrazzld/taskqueue/internal/api"
	"github.com/phrazzld/taskqueue/internal/clock"
	"github.com/phrazzld/taskqueue/internal/config"
	"github.com/phrazzld/taskqueue/internal/events"
	"github.com/phrazzld/taskqueue/internal/metrics"
	"github.com/phrazzld/taskqueue/internal/task"
	"github.com/phrazzld/taskqueue/internal/work"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	clock    *clock.Zoned
	emitter  *events.InMemoryEventEmitter
	manager  *task.Manager
	catalog  *work.Catalog
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	server   *http.Server
}

// newApplication wires the task manager, metrics and HTTP API from cfg.
func newApplication(cfg *config.Config, logger *slog.Logger) (*application, error) {
	zone, err := clock.NewZoned(cfg.Queue.Timezone)
	if err != nil {
		return nil, err
	}

	policy, err := task.ParseDuplicatePolicy(cfg.Queue.DuplicatePolicy)
	if err != nil {
		return nil, err
	}

	app := &application{
		config:   cfg,
		logger:   logger,
		clock:    zone,
		emitter:  events.NewInMemoryEventEmitter(logger),
		catalog:  work.DefaultCatalog(),
		registry: prometheus.NewRegistry(),
	}

	app.manager = task.NewManager(
		task.WithLogger(logger),
		task.WithClock(zone),
		task.WithEmitter(app.emitter),
		task.WithDuplicatePolicy(policy),
	)

	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.metrics = metrics.New(app.registry, app.manager.Len)
	app.emitter.RegisterHandler(app.metrics)

	handler := api.NewTaskHandler(app.manager, app.catalog, zone, logger)
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewRouter(handler, app.registry, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return app, nil
}

// run serves HTTP on ln and drives the processing loop until ctx is done,
// then shuts both down gracefully. Waiting tasks are left queued; the task
// in progress gets until the shutdown timeout to finish before it is
// cancelled.
func (app *application) run(ctx context.Context, ln net.Listener) error {
	loopCtx, cancelLoop := context.WithCancel(context.Background())
	defer cancelLoop()

	loopErr := make(chan error, 1)
	go func() {
		loopErr <- app.manager.Run(loopCtx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		app.logger.Info("starting server", "addr", ln.Addr().String())
		if err := app.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		app.logger.Info("shutting down")
	case err := <-serverErr:
		runErr = fmt.Errorf("server failed: %w", err)
	case err := <-loopErr:
		runErr = fmt.Errorf("processing loop stopped unexpectedly: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
	defer cancel()

	if err := app.server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("server shutdown failed", "error", err)
		runErr = errors.Join(runErr, fmt.Errorf("server shutdown failed: %w", err))
	}

	if err := app.manager.Shutdown(shutdownCtx); err != nil {
		app.logger.Warn("task in progress did not finish in time, cancelling", "error", err)
		cancelLoop()
		<-loopErr
	}

	app.logger.Info("shutdown completed", "pending", app.manager.Len())
	return runErr
}
