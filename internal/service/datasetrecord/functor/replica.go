/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package functor

import (
	"context"
	"slices"
	"sync"

	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord/models"
)

// ModifyFunc computes the new state of a record from its current state. The current record is nil
// when the replica hosts the observation but not the record. Returning a nil record leaves the
// replica untouched; returning an error aborts the modification and is passed back to the caller.
type ModifyFunc func(current *models.DatasetRecord) (*models.DatasetRecord, error)

// Replica is one independently reachable record database.
//
// Implementations must report a record or observation they don't host with a NotFoundError, a
// refused login with an AuthError and a connection problem with an UnavailableError so that the
// results of several replicas can be merged.
//
//go:generate mockgen -source=replica.go -destination=generated/mock_replica.generated.go -package=generated
type Replica interface {
	// Name returns the unique name of the replica
	Name() string

	// Lookup returns the record with the given label.
	Lookup(ctx context.Context, label models.RecordLabel) (*models.DatasetRecord, error)

	// Modify runs fn with the current state of the record while holding the replica's lock for
	// that record, and stores the record fn returns. Modify returns a NotFoundError without
	// calling fn when the replica does not host the observation of the label.
	Modify(ctx context.Context, label models.RecordLabel, fn ModifyFunc) error
}

// ReplicaSet is the mutable set of known replicas. Executions work on a snapshot so that adding or
// removing a replica never retargets an execution that is already running.
type ReplicaSet struct {
	mutex    sync.RWMutex
	replicas []Replica
}

// NewReplicaSet creates an empty replica set
func NewReplicaSet() *ReplicaSet {
	return &ReplicaSet{}
}

// Add registers a replica. It returns false if a replica with the same name is already known.
func (s *ReplicaSet) Add(replica Replica) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.indexOf(replica.Name()) >= 0 {
		return false
	}
	s.replicas = append(s.replicas, replica)
	return true
}

// Remove unregisters the replica with the given name and returns it.
func (s *ReplicaSet) Remove(name string) (Replica, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	i := s.indexOf(name)
	if i < 0 {
		return nil, false
	}
	replica := s.replicas[i]
	s.replicas = slices.Delete(s.replicas, i, i+1)
	return replica, true
}

// Get returns the replica with the given name
func (s *ReplicaSet) Get(name string) (Replica, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	i := s.indexOf(name)
	if i < 0 {
		return nil, false
	}
	return s.replicas[i], true
}

// Snapshot returns the replicas in registration order.
func (s *ReplicaSet) Snapshot() []Replica {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return slices.Clone(s.replicas)
}

// Len returns the number of replicas
func (s *ReplicaSet) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.replicas)
}

func (s *ReplicaSet) indexOf(name string) int {
	return slices.IndexFunc(s.replicas, func(r Replica) bool {
		return r.Name() == name
	})
}
