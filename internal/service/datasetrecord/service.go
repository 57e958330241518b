/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package datasetrecord

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gemini-hlsw/ocs-sub028/internal/metrics"
	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord/command"
	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord/engine"
	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord/functor"
	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord/listener"
	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord/models"
	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord/trigger"
	typederrors "github.com/gemini-hlsw/ocs-sub028/internal/typed-errors"
)

// Database is a record replica that also reports program replacements.
type Database interface {
	functor.Replica
	trigger.ReplaceSource
}

// Service is the dataset record service. It owns the replicas, the command queue, the notification
// bridge and the listeners, and connects them: every change applied through the service is handed
// to the listeners after it has been stored.
type Service struct {
	replicas *functor.ReplicaSet
	updater  *engine.Updater
	queue    *command.Queue
	bridge   *trigger.Bridge
	registry *listener.Registry

	mutex sync.Mutex
}

// Make sure that we implement the interface:
var _ command.RecordService = (*Service)(nil)

// NewService creates a stopped service without databases. The metrics are optional.
func NewService(pipeline *metrics.Pipeline) *Service {
	replicas := functor.NewReplicaSet()
	registry := listener.NewRegistry()
	return &Service{
		replicas: replicas,
		updater:  engine.NewUpdater(functor.NewExecutor(replicas, pipeline)),
		queue:    command.NewQueue("dataset-records", pipeline),
		bridge:   trigger.NewBridge(registry, pipeline),
		registry: registry,
	}
}

// Start starts the command queue and the notification bridge. Starting a running service does
// nothing. A service whose workers exited because the context was canceled can be started again.
func (s *Service) Start(ctx context.Context) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.running() {
		return
	}
	s.bridge.Start(ctx)
	s.queue.Start(ctx)
	slog.Info("Dataset record service started", "databases", s.replicas.Len())
}

// Stop stops the command queue and the notification bridge without waiting for them.
func (s *Service) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if !s.queue.Running() && !s.bridge.Running() {
		return
	}
	s.queue.Stop()
	s.bridge.Stop()
	slog.Info("Dataset record service stopped")
}

// Wait blocks until the workers started by the service have exited.
func (s *Service) Wait() {
	s.queue.Wait()
	s.bridge.Wait()
}

// Started returns true if both the command queue and the notification bridge are running
func (s *Service) Started() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.running()
}

func (s *Service) running() bool {
	return s.queue.Running() && s.bridge.Running()
}

// AddDatabase adds a replica and subscribes to its program replacements. It returns false if a
// database with the same name is already known.
func (s *Service) AddDatabase(db Database) bool {
	if !s.replicas.Add(db) {
		return false
	}
	s.bridge.Watch(db)
	slog.Info("Added dataset record database", "name", db.Name())
	return true
}

// RemoveDatabase removes a replica and its subscription. Executions already running keep using
// the replica until they finish.
func (s *Service) RemoveDatabase(name string) bool {
	if _, ok := s.replicas.Remove(name); !ok {
		return false
	}
	s.bridge.Unwatch(name)
	slog.Info("Removed dataset record database", "name", name)
	return true
}

// Databases returns the names of the known databases
func (s *Service) Databases() []string {
	replicas := s.replicas.Snapshot()
	names := make([]string, len(replicas))
	for i, r := range replicas {
		names[i] = r.Name()
	}
	return names
}

// UpdateRecord applies a conditional update and returns the updated record, or nil if nothing was
// updated. The change is published to the listeners once it is stored.
func (s *Service) UpdateRecord(ctx context.Context, req engine.Request) (*models.DatasetRecord, error) {
	if err := s.checkStarted(ctx); err != nil {
		return nil, err
	}
	event, err := s.updater.Update(ctx, req)
	if err != nil {
		return nil, err // nolint: wrapcheck
	}
	if event == nil {
		return nil, nil
	}
	if event.Changed() && !s.bridge.Publish(*event) {
		slog.WarnContext(ctx, "Change event not published; notification bridge stopped",
			"label", event.Label().String())
	}
	return event.New.Clone(), nil
}

// FetchRecord returns the record with the given label, or nil if no database has it.
func (s *Service) FetchRecord(ctx context.Context, label models.RecordLabel) (*models.DatasetRecord, error) {
	if err := s.checkStarted(ctx); err != nil {
		return nil, err
	}
	return s.updater.Fetch(ctx, label) // nolint: wrapcheck
}

// Submit queues a command. It returns false if the command was not scheduled.
func (s *Service) Submit(cmd command.Command) bool {
	return s.queue.Add(cmd)
}

// SubmitUpdate queues an update of the record with the given label. The returned command gives
// access to the result once it has run.
func (s *Service) SubmitUpdate(label models.RecordLabel, update models.UpdateTemplate,
	precondition *models.UpdateTemplate) (*command.UpdateCommand, bool) {
	cmd := command.NewUpdateCommand(s, engine.Request{
		Label:        label,
		Update:       update,
		Precondition: precondition,
	})
	return cmd, s.Submit(cmd)
}

// AddListener registers a listener for record changes
func (s *Service) AddListener(l listener.Listener) bool {
	return s.registry.Add(l)
}

// RemoveListener unregisters a listener
func (s *Service) RemoveListener(l listener.Listener) bool {
	return s.registry.Remove(l)
}

func (s *Service) checkStarted(ctx context.Context) error {
	if !s.Started() {
		slog.WarnContext(ctx, "Dataset record service is not started")
		return typederrors.NewUnavailableError(nil, "dataset record service is not started")
	}
	return nil
}
