/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dm"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/bob/dialect/psql/um"

	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord/models"
)

// TimeNow allows test to override time.Now
var TimeNow = time.Now

// Repository implements the queries of the dataset record tables
type Repository struct {
	Db DBQuery
}

// WithTransaction runs fn inside a transaction. The transaction is committed if fn succeeds and
// rolled back otherwise.
func (r *Repository) WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.Db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
			slog.Warn("Failed to roll back transaction", "error", rollbackErr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetDatasetRecord returns the row of the record with the given label, or nil if there is none
func (r *Repository) GetDatasetRecord(ctx context.Context, label models.RecordLabel) (*DatasetRecord, error) {
	return findDatasetRecord(ctx, r.Db, label, false)
}

// LockDatasetRecord returns the row of the record with the given label and locks it until the
// end of the transaction. It returns nil if there is no such row.
func (r *Repository) LockDatasetRecord(ctx context.Context, tx pgx.Tx, label models.RecordLabel) (*DatasetRecord, error) {
	return findDatasetRecord(ctx, tx, label, true)
}

func findDatasetRecord(ctx context.Context, q DBQuery, label models.RecordLabel, lock bool) (*DatasetRecord, error) {
	m := DatasetRecord{}
	query := psql.Select(
		sm.Columns(quote(columns[DatasetRecord]())...),
		sm.From(m.TableName()),
		sm.Where(psql.Quote(m.PrimaryKey()).EQ(psql.Arg(label.String()))),
	)
	if lock {
		query.Apply(sm.ForUpdate())
	}

	sql, args, err := query.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset record %s: %w", label, err)
	}
	record, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[DatasetRecord])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get dataset record %s: %w", label, err)
	}
	return &record, nil
}

// ObservationExists checks if the observation log is hosted by this database and locks it until
// the end of the transaction.
func (r *Repository) ObservationExists(ctx context.Context, tx pgx.Tx, observationID string) (bool, error) {
	m := ObservationLog{}
	sql, args, err := psql.Select(
		sm.Columns(psql.Quote(m.PrimaryKey())),
		sm.From(m.TableName()),
		sm.Where(psql.Quote(m.PrimaryKey()).EQ(psql.Arg(observationID))),
		sm.ForUpdate(),
	).Build()
	if err != nil {
		return false, fmt.Errorf("failed to build query: %w", err)
	}

	var id string
	if err := tx.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get observation log %s: %w", observationID, err)
	}
	return true, nil
}

// UpsertDatasetRecord inserts the row or replaces the mutable columns of an existing one
func (r *Repository) UpsertDatasetRecord(ctx context.Context, tx pgx.Tx, record DatasetRecord) error {
	record.UpdatedAt = TimeNow().UTC()
	query := psql.Insert(im.Into(record.TableName()))
	query.Expression.Columns = columns[DatasetRecord]()
	query.Apply(
		im.Values(psql.Arg(
			record.Label, record.ObservationID, record.DatasetIndex,
			record.Filename, record.DatasetTime, record.QAState,
			record.QAComment, record.SyncTime, record.FileState,
			record.DataflowState, record.UpdatedAt,
		)),
		im.OnConflictOnConstraint("dataset_record_pkey").DoUpdate(
			im.SetExcluded("filename"),
			im.SetExcluded("dataset_time"),
			im.SetExcluded("qa_state"),
			im.SetExcluded("qa_comment"),
			im.SetExcluded("sync_time"),
			im.SetExcluded("file_state"),
			im.SetExcluded("dataflow_state"),
			im.SetExcluded("updated_at"),
		),
	)

	sql, params, err := query.Build()
	if err != nil {
		return fmt.Errorf("failed to build query for record upsert: %w", err)
	}

	if _, err := tx.Exec(ctx, sql, params...); err != nil {
		return fmt.Errorf("failed to execute upsert query: %w", err)
	}
	return nil
}

// IncrementLogVersion bumps the version of an observation log after one of its records changed
func (r *Repository) IncrementLogVersion(ctx context.Context, tx pgx.Tx, observationID string) error {
	m := ObservationLog{}
	sql, params, err := psql.Update(
		um.Table(m.TableName()),
		um.Set(psql.Raw("log_version = log_version + 1")),
		um.Where(psql.Quote(m.PrimaryKey()).EQ(psql.Arg(observationID))),
	).Build()
	if err != nil {
		return fmt.Errorf("failed to build query for log version update: %w", err)
	}

	result, err := tx.Exec(ctx, sql, params...)
	if err != nil {
		return fmt.Errorf("failed to update log version of %s: %w", observationID, err)
	}
	if result.RowsAffected() != 1 {
		return fmt.Errorf("expected to update 1 observation log, updated %d", result.RowsAffected())
	}
	return nil
}

// GetProgramReplaceEvents returns the events that haven't been processed yet, oldest first
func (r *Repository) GetProgramReplaceEvents(ctx context.Context) ([]ProgramReplaceEvent, error) {
	m := ProgramReplaceEvent{}
	sql, args, err := psql.Select(
		sm.Columns(quote(columns[ProgramReplaceEvent]())...),
		sm.From(m.TableName()),
		sm.OrderBy(psql.Quote("created_at")),
	).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.Db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get program replace events: %w", err)
	}
	events, err := pgx.CollectRows(rows, pgx.RowToStructByName[ProgramReplaceEvent])
	if err != nil {
		return nil, fmt.Errorf("failed to get program replace events: %w", err)
	}
	return events, nil
}

// GetProgramReplaceEvent returns the event with the given identifier, or nil if it was already
// processed
func (r *Repository) GetProgramReplaceEvent(ctx context.Context, id uuid.UUID) (*ProgramReplaceEvent, error) {
	m := ProgramReplaceEvent{}
	sql, args, err := psql.Select(
		sm.Columns(quote(columns[ProgramReplaceEvent]())...),
		sm.From(m.TableName()),
		sm.Where(psql.Quote(m.PrimaryKey()).EQ(psql.Arg(id))),
	).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.Db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get program replace event %s: %w", id, err)
	}
	event, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[ProgramReplaceEvent])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get program replace event %s: %w", id, err)
	}
	return &event, nil
}

// DeleteProgramReplaceEvent deletes a processed event
func (r *Repository) DeleteProgramReplaceEvent(ctx context.Context, id uuid.UUID) (int64, error) {
	m := ProgramReplaceEvent{}
	sql, params, err := psql.Delete(
		dm.From(m.TableName()),
		dm.Where(psql.Quote(m.PrimaryKey()).EQ(psql.Arg(id))),
	).Build()
	if err != nil {
		return 0, fmt.Errorf("failed to build delete query for '%s/%s': %w", m.TableName(), id, err)
	}

	result, err := r.Db.Exec(ctx, sql, params...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete '%s/%s': %w", m.TableName(), id, err)
	}
	return result.RowsAffected(), nil
}

func quote(names []string) []any {
	result := make([]any, len(names))
	for i, name := range names {
		result[i] = psql.Quote(name)
	}
	return result
}
