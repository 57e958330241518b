/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package functor

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/gemini-hlsw/ocs-sub028/internal/metrics"
	typederrors "github.com/gemini-hlsw/ocs-sub028/internal/typed-errors"
)

// Op is an operation executed against a single replica. A nil result with a nil error means the
// replica has nothing for the operation.
type Op[T any] func(ctx context.Context, replica Replica) (*T, error)

// Executor runs operations against a set of replicas and merges their outcomes.
type Executor struct {
	replicas *ReplicaSet
	metrics  *metrics.Pipeline
	logger   *slog.Logger
}

// NewExecutor creates an executor over the given replica set. The metrics are optional.
func NewExecutor(replicas *ReplicaSet, pipeline *metrics.Pipeline) *Executor {
	return &Executor{
		replicas: replicas,
		metrics:  pipeline,
		logger:   slog.Default().With("component", "functor"),
	}
}

// Replicas returns the replica set used by the executor
func (e *Executor) Replicas() *ReplicaSet {
	return e.replicas
}

// Execute runs op against the current replicas one after the other and stops at the first replica
// that produces a result. Mutating operations use it so that a record is created at most once.
func Execute[T any](ctx context.Context, e *Executor, op Op[T]) (*T, error) {
	replicas := e.replicas.Snapshot()
	m := e.newMerger(len(replicas))
	for _, replica := range replicas {
		if err := ctx.Err(); err != nil {
			return nil, err // nolint: wrapcheck
		}
		result, err := op(ctx, replica)
		if m.add(replica.Name(), result != nil, err) {
			return result, nil
		}
	}
	return nil, m.failure()
}

// ExecuteParallel runs op against all the current replicas at the same time. The outcomes are
// merged in replica order, so the result is the same one that Execute would produce.
func ExecuteParallel[T any](ctx context.Context, e *Executor, op Op[T]) (*T, error) {
	replicas := e.replicas.Snapshot()
	results := make([]*T, len(replicas))
	errs := make([]error, len(replicas))

	var g errgroup.Group
	for i, replica := range replicas {
		g.Go(func() error {
			results[i], errs[i] = op(ctx, replica)
			return nil
		})
	}
	_ = g.Wait()

	m := e.newMerger(len(replicas))
	for i, replica := range replicas {
		if m.add(replica.Name(), results[i] != nil, errs[i]) {
			return results[i], nil
		}
	}
	return nil, m.failure()
}

// merger applies the merge rule to the outcomes of the replicas, in replica order.
type merger struct {
	executor    *Executor
	total       int
	unavailable int
	other       error
}

func (e *Executor) newMerger(total int) *merger {
	return &merger{
		executor: e,
		total:    total,
	}
}

// add records the outcome of one replica and returns true if it holds the result.
func (m *merger) add(replica string, found bool, err error) bool {
	logger := m.executor.logger
	switch {
	case err == nil:
		if found {
			return true
		}
		logger.Debug("Replica has no result", "replica", replica)
	case typederrors.IsNotFoundError(err):
		logger.Debug("Record not found on replica", "replica", replica, "reason", err.Error())
	case typederrors.IsAuthError(err):
		logger.Debug("Replica refused access", "replica", replica, "reason", err.Error())
		m.executor.metrics.ReplicaFailed(replica, metrics.KindAuth)
	case typederrors.IsUnavailableError(err):
		logger.Error("Replica is unreachable", "replica", replica, "error", err.Error())
		m.executor.metrics.ReplicaFailed(replica, metrics.KindUnavailable)
		m.unavailable++
	default:
		logger.Warn("Replica operation failed", "replica", replica, "error", err.Error())
		m.executor.metrics.ReplicaFailed(replica, metrics.KindOther)
		if m.other == nil {
			m.other = err
		}
	}
	return false
}

// failure returns the error of an execution that produced no result. Authentication failures are
// expected on replicas that don't hold the record, so they never surface.
func (m *merger) failure() error {
	if m.other != nil {
		return m.other
	}
	if m.total > 0 && m.unavailable == m.total {
		return typederrors.NewUnavailableError(nil, "all %d replicas are unreachable", m.total)
	}
	return nil
}
