/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package datasetrecord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gemini-hlsw/ocs-sub028/internal/exit"
	"github.com/gemini-hlsw/ocs-sub028/internal/metrics"
	"github.com/gemini-hlsw/ocs-sub028/internal/network"
	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord/db"
	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord/listener"
	typederrors "github.com/gemini-hlsw/ocs-sub028/internal/typed-errors"
)

// Metrics server config values
const (
	readTimeout  = 5 * time.Second
	writeTimeout = 10 * time.Second
	idleTimeout  = 120 * time.Second

	metricsSubsystem = "dataset_records"
)

// Connection is a service backed by the PostgreSQL databases of the configuration.
type Connection struct {
	Service  *Service
	pools    []*pgxpool.Pool
	replicas []*db.Replica
}

// Connect opens a pool for each configured database and adds the corresponding replicas to a new
// service. Databases that can't be reached are skipped; it is an error if none can be reached.
// The returned service isn't started.
func Connect(ctx context.Context, config *Config, pipeline *metrics.Pipeline) (*Connection, error) {
	result := &Connection{
		Service: NewService(pipeline),
	}
	for _, d := range config.Databases {
		pool, err := db.NewPgxPool(ctx, config.PgConfig(d))
		if err != nil {
			slog.Error("Failed to connect to database", "name", d.Name, "host", d.Host, "error", err)
			continue
		}
		replica := db.NewReplica(d.Name, pool)
		result.Service.AddDatabase(replica)
		result.pools = append(result.pools, pool)
		result.replicas = append(result.replicas, replica)
	}
	if len(result.replicas) == 0 {
		return nil, typederrors.NewUnavailableError(nil, "none of the %d configured databases is reachable",
			len(config.Databases))
	}
	return result, nil
}

// Listen starts receiving program replace events from every database. The listeners stop when
// the context is canceled.
func (c *Connection) Listen(ctx context.Context, catchUpInterval time.Duration) []*db.ListenerManager {
	managers := make([]*db.ListenerManager, len(c.replicas))
	for i, replica := range c.replicas {
		managers[i] = replica.Listen(ctx, c.pools[i], catchUpInterval)
	}
	return managers
}

// Close releases the database connections
func (c *Connection) Close() {
	slog.Info("Closing DB connections")
	for _, pool := range c.pools {
		pool.Close()
	}
}

// Serve runs the dataset record service until an exit signal is received or the context is
// canceled. Record changes are written to the given logger.
func Serve(ctx context.Context, logger *slog.Logger, config *Config) error {
	slog.Info("Starting dataset record service")

	pipeline, err := metrics.NewPipeline().
		SetSubsystem(metricsSubsystem).
		SetRegisterer(prometheus.DefaultRegisterer).
		Build()
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	handler, err := exit.NewHandler().SetLogger(logger).Build()
	if err != nil {
		return fmt.Errorf("failed to create exit handler: %w", err)
	}

	conn, err := Connect(ctx, config, pipeline)
	if err != nil {
		return err
	}
	defer conn.Close()

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if config.MetricsAddress != "" {
		metricsListener, err := network.NewListener().
			SetLogger(logger).
			SetAddress(config.MetricsAddress).
			SetTLS(config.MetricsTLS.CertFile, config.MetricsTLS.KeyFile).
			Build()
		if err != nil {
			return fmt.Errorf("failed to create metrics listener: %w", err)
		}
		router := http.NewServeMux()
		router.Handle("/metrics", metrics.Handler(prometheus.DefaultGatherer))
		srv := &http.Server{
			Addr:         config.MetricsAddress,
			Handler:      router,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  idleTimeout,
			ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
		}
		handler.AddServer(srv)
		go func() {
			slog.Info(fmt.Sprintf("Serving metrics on %s", metricsListener.Addr()))
			if err := srv.Serve(metricsListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Metrics server failed", "error", err)
				cancel()
			}
		}()
	}

	service := conn.Service
	service.AddListener(listener.NewLoggingListener(logger))
	// The bridge must be running before replace events are consumed, or they would be dropped.
	service.Start(ctx)

	listenCtx, cancelListen := context.WithCancel(ctx)
	defer cancelListen()
	managers := conn.Listen(listenCtx, config.CatchUpInterval)

	handler.AddAction(func(context.Context) error {
		slog.Info("Stopping database listeners")
		cancelListen()
		for _, manager := range managers {
			manager.Wait()
		}
		return nil
	})
	handler.AddAction(func(context.Context) error {
		service.Stop()
		service.Wait()
		return nil
	})

	return handler.Wait(serveCtx) // nolint: wrapcheck
}

// Migrate runs the schema migrations on every configured database. All the databases are tried
// even if some of them fail.
func Migrate(ctx context.Context, config *Config) error {
	var errs []error
	for _, d := range config.Databases {
		slog.Info("Migrating database", "name", d.Name, "host", d.Host)
		if err := db.StartMigration(ctx, config.PgConfig(d)); err != nil {
			errs = append(errs, fmt.Errorf("failed to migrate database '%s': %w", d.Name, err))
		}
	}
	return errors.Join(errs...)
}
