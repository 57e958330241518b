/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package memstore

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord/functor"
	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord/models"
	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord/trigger"
	typederrors "github.com/gemini-hlsw/ocs-sub028/internal/typed-errors"
)

// observation is the stored observation log
type observation struct {
	programID string
	version   int64
	records   map[int]*models.DatasetRecord
}

// Store is an in-memory replica. It hosts the observation logs of a set of programs, reports
// program replacements and can be told to fail, which makes it useful for tests and for running
// the service without a database.
type Store struct {
	name string

	mutex        sync.Mutex
	observations map[string]*observation
	failure      error

	handlersMutex sync.Mutex
	handlers      map[int]trigger.ReplaceHandler
	nextHandler   int
}

// Make sure that we implement the interfaces:
var (
	_ functor.Replica       = (*Store)(nil)
	_ trigger.ReplaceSource = (*Store)(nil)
)

// New creates an empty store
func New(name string) *Store {
	return &Store{
		name:         name,
		observations: map[string]*observation{},
		handlers:     map[int]trigger.ReplaceHandler{},
	}
}

// Name returns the name of the replica
func (s *Store) Name() string {
	return s.name
}

// SetFailure makes every following call fail with the given error until it is called with nil.
func (s *Store) SetFailure(err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.failure = err
}

// AddObservation makes the store host an empty observation log.
func (s *Store) AddObservation(programID, observationID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.observations[observationID]; ok {
		return
	}
	s.observations[observationID] = &observation{
		programID: programID,
		records:   map[int]*models.DatasetRecord{},
	}
}

// Put stores a copy of the record. The observation must be hosted by the store.
func (s *Store) Put(record *models.DatasetRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	label := record.Label()
	obs, ok := s.observations[label.ObservationID]
	if !ok {
		return typederrors.NewNotFoundError(nil, "observation %s is not hosted by %s", label.ObservationID, s.name)
	}
	obs.records[label.Index] = record.Clone()
	obs.version++
	return nil
}

// Lookup is the implementation of the Replica interface.
func (s *Store) Lookup(ctx context.Context, label models.RecordLabel) (*models.DatasetRecord, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	obs, ok := s.observations[label.ObservationID]
	if !ok {
		return nil, typederrors.NewNotFoundError(nil, "observation %s is not hosted by %s", label.ObservationID, s.name)
	}
	record, ok := obs.records[label.Index]
	if !ok {
		return nil, typederrors.NewNotFoundError(nil, "record %s not found in %s", label, s.name)
	}
	return record.Clone(), nil
}

// Modify is the implementation of the Replica interface. The store lock is held while fn runs.
func (s *Store) Modify(ctx context.Context, label models.RecordLabel, fn functor.ModifyFunc) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	obs, ok := s.observations[label.ObservationID]
	if !ok {
		return typederrors.NewNotFoundError(nil, "observation %s is not hosted by %s", label.ObservationID, s.name)
	}

	updated, err := fn(obs.records[label.Index].Clone())
	if err != nil {
		return err
	}
	if updated == nil {
		return nil
	}
	if updated.Label() != label {
		return typederrors.NewInvariantError(nil, "record %s can't be stored as %s", updated.Label(), label)
	}
	obs.records[label.Index] = updated.Clone()
	obs.version++
	return nil
}

// Snapshot returns the current state of a program. Observations are sorted by identifier and
// records by label.
func (s *Store) Snapshot(programID string) *models.ProgramSnapshot {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.snapshot(programID)
}

func (s *Store) snapshot(programID string) *models.ProgramSnapshot {
	result := &models.ProgramSnapshot{
		ProgramID: programID,
	}
	for _, id := range slices.Sorted(maps.Keys(s.observations)) {
		obs := s.observations[id]
		if obs.programID != programID {
			continue
		}
		log := models.ObservationLog{
			ObservationID: id,
			Version:       obs.version,
		}
		for _, index := range slices.Sorted(maps.Keys(obs.records)) {
			log.Records = append(log.Records, *obs.records[index].Clone())
		}
		result.Observations = append(result.Observations, log)
	}
	return result
}

// ReplaceProgram replaces all the observation logs of a program with the ones of the snapshot and
// notifies the subscribers with the old and new versions. The versions of the snapshot are kept,
// so logs that the replacement didn't touch keep their version.
func (s *Store) ReplaceProgram(ctx context.Context, replacement *models.ProgramSnapshot) error {
	s.mutex.Lock()
	if err := s.check(ctx); err != nil {
		s.mutex.Unlock()
		return err
	}
	before := s.snapshot(replacement.ProgramID)
	maps.DeleteFunc(s.observations, func(_ string, obs *observation) bool {
		return obs.programID == replacement.ProgramID
	})
	for _, log := range replacement.Observations {
		obs := &observation{
			programID: replacement.ProgramID,
			version:   log.Version,
			records:   map[int]*models.DatasetRecord{},
		}
		for i := range log.Records {
			obs.records[log.Records[i].Label().Index] = log.Records[i].Clone()
		}
		s.observations[log.ObservationID] = obs
	}
	after := s.snapshot(replacement.ProgramID)
	s.mutex.Unlock()

	for _, handler := range s.subscribers() {
		handler(ctx, before, after)
	}
	return nil
}

// SubscribeProgramReplaced is the implementation of the ReplaceSource interface.
func (s *Store) SubscribeProgramReplaced(handler trigger.ReplaceHandler) func() {
	s.handlersMutex.Lock()
	defer s.handlersMutex.Unlock()
	id := s.nextHandler
	s.nextHandler++
	s.handlers[id] = handler
	return func() {
		s.handlersMutex.Lock()
		defer s.handlersMutex.Unlock()
		delete(s.handlers, id)
	}
}

// subscribers returns the handlers in subscription order
func (s *Store) subscribers() []trigger.ReplaceHandler {
	s.handlersMutex.Lock()
	defer s.handlersMutex.Unlock()
	ids := slices.Sorted(maps.Keys(s.handlers))
	result := make([]trigger.ReplaceHandler, 0, len(ids))
	for _, id := range ids {
		result = append(result, s.handlers[id])
	}
	return result
}

// check returns the injected failure or the context error. Must be called with the lock held.
func (s *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err // nolint: wrapcheck
	}
	return s.failure
}
