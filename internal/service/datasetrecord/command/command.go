/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package command

import (
	"context"
	"fmt"
	"sync"

	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord/engine"
	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord/models"
)

// RecordService is the part of the record service that commands run against.
type RecordService interface {
	UpdateRecord(ctx context.Context, req engine.Request) (*models.DatasetRecord, error)
	FetchRecord(ctx context.Context, label models.RecordLabel) (*models.DatasetRecord, error)
}

// Command is a single-shot unit of work on one dataset record. The first call executes it, later
// calls return the cached result without executing it again.
type Command interface {
	// Name describes the command in logs
	Name() string

	// Label returns the label of the record the command works on
	Label() models.RecordLabel

	// Call executes the command, or returns its result if it already ran.
	Call(ctx context.Context) (*models.DatasetRecord, error)

	// Result returns the result of the command. Both values are nil before the command completes.
	Result() (*models.DatasetRecord, error)

	// Done returns a channel that is closed when the command completes.
	Done() <-chan struct{}
}

// execution holds the single-execution state shared by all the commands.
type execution struct {
	once   sync.Once
	done   chan struct{}
	mutex  sync.Mutex
	record *models.DatasetRecord
	err    error
}

func newExecution() *execution {
	return &execution{
		done: make(chan struct{}),
	}
}

// run executes fn the first time it is called and caches the result. A panic in fn becomes the
// error of the command.
func (e *execution) run(ctx context.Context, fn func(ctx context.Context) (*models.DatasetRecord, error)) (*models.DatasetRecord, error) {
	e.once.Do(func() {
		defer close(e.done)
		record, err := protect(ctx, fn)
		e.mutex.Lock()
		e.record, e.err = record, err
		e.mutex.Unlock()
	})
	return e.Result()
}

func protect(ctx context.Context, fn func(ctx context.Context) (*models.DatasetRecord, error)) (record *models.DatasetRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			record, err = nil, fmt.Errorf("command panicked: %v", r)
		}
	}()
	return fn(ctx)
}

// Result returns the cached result
func (e *execution) Result() (*models.DatasetRecord, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.record.Clone(), e.err
}

// Done returns the channel closed on completion
func (e *execution) Done() <-chan struct{} {
	return e.done
}

// UpdateCommand applies a conditional update to a record.
type UpdateCommand struct {
	*execution
	service RecordService
	request engine.Request
}

// NewUpdateCommand creates a command that runs the given update request
func NewUpdateCommand(service RecordService, request engine.Request) *UpdateCommand {
	return &UpdateCommand{
		execution: newExecution(),
		service:   service,
		request:   request,
	}
}

// Name is the implementation of the Command interface.
func (c *UpdateCommand) Name() string {
	return fmt.Sprintf("update %s %s", c.request.Label, c.request.Update)
}

// Label is the implementation of the Command interface.
func (c *UpdateCommand) Label() models.RecordLabel {
	return c.request.Label
}

// Call is the implementation of the Command interface. The result is the updated record, or nil
// when nothing changed.
func (c *UpdateCommand) Call(ctx context.Context) (*models.DatasetRecord, error) {
	return c.run(ctx, func(ctx context.Context) (*models.DatasetRecord, error) {
		return c.service.UpdateRecord(ctx, c.request)
	})
}

// FetchCommand reads a record.
type FetchCommand struct {
	*execution
	service RecordService
	label   models.RecordLabel
}

// NewFetchCommand creates a command that reads the record with the given label
func NewFetchCommand(service RecordService, label models.RecordLabel) *FetchCommand {
	return &FetchCommand{
		execution: newExecution(),
		service:   service,
		label:     label,
	}
}

// Name is the implementation of the Command interface.
func (c *FetchCommand) Name() string {
	return fmt.Sprintf("fetch %s", c.label)
}

// Label is the implementation of the Command interface.
func (c *FetchCommand) Label() models.RecordLabel {
	return c.label
}

// Call is the implementation of the Command interface.
func (c *FetchCommand) Call(ctx context.Context) (*models.DatasetRecord, error) {
	return c.run(ctx, func(ctx context.Context) (*models.DatasetRecord, error) {
		return c.service.FetchRecord(ctx, c.label)
	})
}
