/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord/functor"
	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord/models"
	typederrors "github.com/gemini-hlsw/ocs-sub028/internal/typed-errors"
)

// Request describes a conditional update of a dataset record.
type Request struct {
	// Label of the record to update
	Label models.RecordLabel

	// Update contains the fields to write
	Update models.UpdateTemplate

	// Precondition contains the fields that must have the given values for the update to apply.
	// Nil means no precondition.
	Precondition *models.UpdateTemplate

	// Create describes the dataset of the record to create when no replica has it. Nil means the
	// record is not created.
	Create *models.Dataset
}

// Updater applies conditional updates to the records stored in a set of replicas.
type Updater struct {
	executor *functor.Executor
}

// NewUpdater creates an updater that uses the given executor to reach the replicas
func NewUpdater(executor *functor.Executor) *Updater {
	return &Updater{
		executor: executor,
	}
}

// outcome is the result of the update on the replica that holds the record. A nil event means the
// precondition didn't match.
type outcome struct {
	event *models.ChangeEvent
}

// Update applies the request and returns the resulting change. It returns nil without error when
// the record exists but the precondition doesn't match, or when the record doesn't exist and the
// request carries no creation descriptor.
//
// The replicas are searched for the record first. Only when none of them has it is the record
// created, on the first replica that hosts its observation.
func (u *Updater) Update(ctx context.Context, req Request) (*models.ChangeEvent, error) {
	if req.Create != nil && req.Create.Label != req.Label {
		return nil, typederrors.NewInvariantError(nil,
			"creation descriptor for %s can't be used to create %s", req.Create.Label, req.Label)
	}

	result, err := u.apply(ctx, req, nil)
	if err == nil && result == nil && req.Create != nil {
		result, err = u.apply(ctx, req, req.Create)
	}
	if err != nil {
		return nil, err
	}

	switch {
	case result == nil:
		slog.DebugContext(ctx, "Dataset record not found", "label", req.Label.String())
		return nil, nil
	case result.event == nil:
		slog.DebugContext(ctx, "Precondition does not match; record not updated",
			"label", req.Label.String(), "precondition", preconditionString(req.Precondition))
		return nil, nil
	}
	slog.DebugContext(ctx, "Dataset record updated", "label", req.Label.String(),
		"update", req.Update.String(), "created", result.event.IsCreate())
	return result.event, nil
}

// apply runs the update on the replicas one after the other until one of them has the record, or
// can create it from the given dataset.
func (u *Updater) apply(ctx context.Context, req Request, create *models.Dataset) (*outcome, error) {
	return functor.Execute(ctx, u.executor, func(ctx context.Context, replica functor.Replica) (*outcome, error) {
		var handled *outcome
		err := replica.Modify(ctx, req.Label, func(current *models.DatasetRecord) (*models.DatasetRecord, error) {
			handled = nil
			if current == nil {
				if create == nil {
					return nil, typederrors.NewNotFoundError(nil, "record %s not found", req.Label)
				}
				created := req.Update.ApplyTo(models.NewDatasetRecord(*create))
				event := models.NewChangeEvent(nil, created)
				handled = &outcome{event: &event}
				return created, nil
			}
			if !models.Matches(req.Precondition, current) {
				handled = &outcome{}
				return nil, nil
			}
			updated := req.Update.ApplyTo(current)
			event := models.NewChangeEvent(current, updated)
			handled = &outcome{event: &event}
			return updated, nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to update %s on %s: %w", req.Label, replica.Name(), err)
		}
		return handled, nil
	})
}

// Fetch returns the record with the given label, or nil if no replica has it.
func (u *Updater) Fetch(ctx context.Context, label models.RecordLabel) (*models.DatasetRecord, error) {
	record, err := functor.ExecuteParallel(ctx, u.executor, func(ctx context.Context, replica functor.Replica) (*models.DatasetRecord, error) {
		return replica.Lookup(ctx, label)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", label, err)
	}
	return record, nil
}

func preconditionString(precondition *models.UpdateTemplate) string {
	if precondition == nil {
		return "{}"
	}
	return precondition.String()
}
