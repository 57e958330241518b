/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// MigrationsTable table created by migration lib to track state of migration
const MigrationsTable = "schema_migrations"

//go:embed migrations/*.sql
var migrations embed.FS

// MigrationSource returns the embedded schema migrations
func MigrationSource() (source.Driver, error) {
	driver, err := iofs.New(migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}
	return driver, nil
}

// MigrationHandler runs the schema migrations of one replica
type MigrationHandler struct {
	Migrate *migrate.Migrate
}

// NewMigrationHandler configures the migration of the database described by the given config
func NewMigrationHandler(pgc PgConfig, source source.Driver) (*MigrationHandler, error) {
	// https://github.com/golang-migrate/migrate/tree/master/database/pgx/v5
	connURL := pgc.URL("pgx5")
	query := connURL.Query()
	query.Set("connect_timeout", "10")
	query.Set("x-migrations-table", MigrationsTable)
	connURL.RawQuery = query.Encode()

	m, err := migrate.NewWithSourceInstance("iofs", source, connURL.String())
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	h := &MigrationHandler{
		Migrate: m,
	}
	m.Log = h
	return h, nil
}

// StartMigration runs the migrations up. The migration is stopped gracefully when the context
// is canceled.
func StartMigration(ctx context.Context, pgc PgConfig) error {
	driver, err := MigrationSource()
	if err != nil {
		return err
	}
	h, err := NewMigrationHandler(pgc, driver)
	if err != nil {
		return fmt.Errorf("failed to create migrations handler: %w", err)
	}
	defer h.close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			slog.Info("Received shutdown signal, stopping migration gracefully")
			h.Migrate.GracefulStop <- true
		case <-done:
		}
	}()

	if err := h.runMigrationUp(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Info("Migrations completed successfully", "host", pgc.Host, "database", pgc.Database)
	return nil
}

// Printf is the implementation of migrate lib's logger interface
func (h *MigrationHandler) Printf(format string, v ...interface{}) {
	slog.Debug(fmt.Sprintf(format, v...))
}

// Verbose is the implementation of migrate lib's logger interface
func (h *MigrationHandler) Verbose() bool {
	return true
}

func (h *MigrationHandler) close() {
	sourceErr, dbErr := h.Migrate.Close()
	if err := errors.Join(sourceErr, dbErr); err != nil {
		slog.Warn("Failed to close migration", "error", err)
	}
}

func timer(name string) func() {
	start := time.Now()
	return func() {
		slog.Debug(fmt.Sprintf("%s took %s", name, time.Since(start)))
	}
}

func (h *MigrationHandler) runMigrationUp() error {
	defer timer("Up")()

	if err := h.Migrate.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed up: %w", err)
	}
	return nil
}
