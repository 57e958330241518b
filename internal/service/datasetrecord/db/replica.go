/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package db

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord/functor"
	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord/models"
	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord/trigger"
	typederrors "github.com/gemini-hlsw/ocs-sub028/internal/typed-errors"
)

// ProgramReplacedChannel is the notification channel used by the program_replace_event trigger
const ProgramReplacedChannel = "program_replaced"

// Replica is a dataset record database stored in PostgreSQL.
type Replica struct {
	name       string
	repository *Repository
	logger     *slog.Logger

	// Replace events can arrive both from LISTEN and from the catch-up loop.
	processMutex sync.Mutex

	handlersMutex sync.Mutex
	handlers      map[int]trigger.ReplaceHandler
	nextHandler   int
}

// Make sure that we implement the interfaces:
var _ functor.Replica = (*Replica)(nil)
var _ trigger.ReplaceSource = (*Replica)(nil)

// NewReplica creates a replica that uses the given connection pool
func NewReplica(name string, db DBQuery) *Replica {
	return &Replica{
		name:       name,
		repository: &Repository{Db: db},
		logger:     slog.Default().With("replica", name),
		handlers:   map[int]trigger.ReplaceHandler{},
	}
}

// Name is the implementation of the Replica interface.
func (r *Replica) Name() string {
	return r.name
}

// Lookup is the implementation of the Replica interface.
func (r *Replica) Lookup(ctx context.Context, label models.RecordLabel) (*models.DatasetRecord, error) {
	row, err := r.repository.GetDatasetRecord(ctx, label)
	if err != nil {
		return nil, classifyError(r.name, err)
	}
	if row == nil {
		return nil, typederrors.NewNotFoundError(nil, "record %s not found in replica %s", label, r.name)
	}
	return row.ToModel() // nolint: wrapcheck
}

// Modify is the implementation of the Replica interface. The record row is locked for the
// duration of the function, so concurrent modifications of the same record are serialized.
func (r *Replica) Modify(ctx context.Context, label models.RecordLabel, fn functor.ModifyFunc) error {
	err := r.repository.WithTransaction(ctx, func(tx pgx.Tx) error {
		row, err := r.repository.LockDatasetRecord(ctx, tx, label)
		if err != nil {
			return err
		}

		var current *models.DatasetRecord
		if row != nil {
			current, err = row.ToModel()
			if err != nil {
				return err
			}
		} else {
			exists, err := r.repository.ObservationExists(ctx, tx, label.ObservationID)
			if err != nil {
				return err
			}
			if !exists {
				return typederrors.NewNotFoundError(nil, "observation %s not found in replica %s",
					label.ObservationID, r.name)
			}
		}

		updated, err := fn(current)
		if err != nil || updated == nil {
			return err
		}
		if updated.Label() != label {
			return typederrors.NewInvariantError(nil, "modification of %s produced record %s",
				label, updated.Label())
		}

		if err := r.repository.UpsertDatasetRecord(ctx, tx, NewDatasetRecordRow(updated)); err != nil {
			return err
		}
		return r.repository.IncrementLogVersion(ctx, tx, label.ObservationID)
	})
	return classifyError(r.name, err)
}

// SubscribeProgramReplaced is the implementation of the ReplaceSource interface.
func (r *Replica) SubscribeProgramReplaced(handler trigger.ReplaceHandler) func() {
	r.handlersMutex.Lock()
	defer r.handlersMutex.Unlock()
	id := r.nextHandler
	r.nextHandler++
	r.handlers[id] = handler
	return func() {
		r.handlersMutex.Lock()
		defer r.handlersMutex.Unlock()
		delete(r.handlers, id)
	}
}

func (r *Replica) subscribers() []trigger.ReplaceHandler {
	r.handlersMutex.Lock()
	defer r.handlersMutex.Unlock()
	ids := slices.Sorted(maps.Keys(r.handlers))
	result := make([]trigger.ReplaceHandler, 0, len(ids))
	for _, id := range ids {
		result = append(result, r.handlers[id])
	}
	return result
}

// Listen starts receiving program replace notifications from the database. Events that were
// missed while not listening are picked up by the catch-up loop. The returned manager can be used
// to wait for the goroutines to exit after the context is canceled.
func (r *Replica) Listen(ctx context.Context, pool *pgxpool.Pool, catchUpInterval time.Duration) *ListenerManager {
	manager := NewListenerManager(pool)
	manager.RegisterListener(ProgramReplacedChannel, r.HandleNotification, r.CatchUp, catchUpInterval)
	manager.StartListeners(ctx)
	return manager
}

// HandleNotification processes the replace event named by the notification payload.
func (r *Replica) HandleNotification(ctx context.Context, notification *pgconn.Notification) error {
	id, err := uuid.Parse(notification.Payload)
	if err != nil {
		return fmt.Errorf("invalid program replace notification payload '%s': %w", notification.Payload, err)
	}

	r.processMutex.Lock()
	defer r.processMutex.Unlock()
	event, err := r.repository.GetProgramReplaceEvent(ctx, id)
	if err != nil {
		return classifyError(r.name, err)
	}
	if event == nil {
		r.logger.DebugContext(ctx, "Program replace event already processed", "event", id)
		return nil
	}
	return r.process(ctx, *event)
}

// CatchUp processes all the pending replace events.
func (r *Replica) CatchUp(ctx context.Context) error {
	r.processMutex.Lock()
	defer r.processMutex.Unlock()
	events, err := r.repository.GetProgramReplaceEvents(ctx)
	if err != nil {
		return classifyError(r.name, err)
	}
	if len(events) > 0 {
		r.logger.InfoContext(ctx, "Catching up program replace events", "count", len(events))
	}
	for _, event := range events {
		if err := r.process(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// process dispatches one event to the subscribers and then deletes it. An event that can't be
// decoded is deleted as well, so that it doesn't block the ones that follow.
func (r *Replica) process(ctx context.Context, event ProgramReplaceEvent) error {
	before, after, err := event.Snapshots()
	if err != nil {
		r.logger.ErrorContext(ctx, "Discarding program replace event", "event", event.EventID, "error", err)
	} else {
		for _, handler := range r.subscribers() {
			handler(ctx, before, after)
		}
		r.logger.DebugContext(ctx, "Program replace event dispatched",
			"event", event.EventID, "program", event.ProgramID)
	}

	if _, err := r.repository.DeleteProgramReplaceEvent(ctx, event.EventID); err != nil {
		return classifyError(r.name, err)
	}
	return nil
}
