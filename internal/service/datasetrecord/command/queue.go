/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package command

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gemini-hlsw/ocs-sub028/internal/logging"
	"github.com/gemini-hlsw/ocs-sub028/internal/metrics"
)

// Queue executes commands on a single worker in submission order. Ordering is global: commands
// for different labels never run in parallel.
type Queue struct {
	name    string
	metrics *metrics.Pipeline
	logger  *slog.Logger

	// mutex protects the pending commands, the watermark and the running flag
	mutex   sync.Mutex
	queue   []Command
	ready   chan struct{}
	hwm     int
	running bool

	// lifecycle serializes Start and Stop
	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewQueue creates a stopped queue. The metrics are optional.
func NewQueue(name string, pipeline *metrics.Pipeline) *Queue {
	return &Queue{
		name:    name,
		metrics: pipeline,
		logger:  slog.Default().With("queue", name),
		ready:   make(chan struct{}, 1),
	}
}

// Name returns the name of the queue
func (q *Queue) Name() string {
	return q.name
}

// Start launches the worker. Starting a running queue does nothing. If the queue was stopped,
// Start waits for the previous worker to exit first, so there is never more than one worker.
func (q *Queue) Start(ctx context.Context) {
	q.lifecycle.Lock()
	defer q.lifecycle.Unlock()

	q.mutex.Lock()
	if q.running {
		q.mutex.Unlock()
		return
	}
	q.mutex.Unlock()

	if q.done != nil {
		<-q.done
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	q.cancel = cancel
	q.done = done

	q.mutex.Lock()
	q.running = true
	if len(q.queue) > 0 {
		q.signal()
	}
	q.mutex.Unlock()

	q.logger.Info("Starting command queue")
	go q.receive(ctx, done)
}

// Stop cancels the worker context, which interrupts the command that is running. Pending commands
// are not executed and stay queued until the queue is started again. Stop doesn't wait for the
// worker; use Wait for that.
func (q *Queue) Stop() {
	q.lifecycle.Lock()
	defer q.lifecycle.Unlock()

	q.mutex.Lock()
	defer q.mutex.Unlock()
	if !q.running {
		return
	}
	q.running = false
	q.cancel()
}

// Wait blocks until the last started worker has exited.
func (q *Queue) Wait() {
	q.lifecycle.Lock()
	done := q.done
	q.lifecycle.Unlock()
	if done != nil {
		<-done
	}
}

// Running returns true if the queue accepts commands
func (q *Queue) Running() bool {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return q.running
}

// Len returns the number of commands waiting to be executed
func (q *Queue) Len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return len(q.queue)
}

// Add queues a command. It returns false if the queue is not running; the command was not
// scheduled and the caller may run it directly.
func (q *Queue) Add(cmd Command) bool {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	if !q.running {
		return false
	}
	q.queue = append(q.queue, cmd)
	count := len(q.queue)
	q.metrics.SetQueueDepth(q.name, count)
	q.signal()
	if count >= q.hwm+10 {
		// Log only when the previous watermark is passed by 10 to avoid a message per command
		q.logger.Debug("New command queue high watermark", "new", count, "old", q.hwm)
		q.hwm = count
	}
	return true
}

// signal wakes up the worker. Must be called with the mutex held.
func (q *Queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *Queue) pop() (Command, bool) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	if len(q.queue) == 0 {
		return nil, false
	}
	next := q.queue[0]
	q.queue[0] = nil
	q.queue = q.queue[1:]
	q.metrics.SetQueueDepth(q.name, len(q.queue))
	return next, true
}

// receive waits for commands and executes them until the context is canceled.
func (q *Queue) receive(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			q.logger.Info("Stopping command queue; context canceled")
			q.mutex.Lock()
			q.running = false
			q.mutex.Unlock()
			return
		case <-q.ready:
			q.executePending(ctx)
		}
	}
}

// executePending runs the queued commands one at a time until the queue is empty or the context
// is canceled.
func (q *Queue) executePending(ctx context.Context) {
	for ctx.Err() == nil {
		cmd, ok := q.pop()
		if !ok {
			return
		}
		q.execute(ctx, cmd)
	}
}

// execute runs one command. The command name is added to the context so that everything logged
// while it runs can be correlated.
func (q *Queue) execute(ctx context.Context, cmd Command) {
	ctx = logging.AppendCtx(ctx, slog.String("command", cmd.Name()))
	record, err := cmd.Call(ctx)
	switch {
	case err != nil:
		q.logger.WarnContext(ctx, "Command failed", "error", err.Error())
		q.metrics.CommandExecuted(q.name, metrics.OutcomeFailed)
	case record == nil:
		q.logger.DebugContext(ctx, "Command completed without changes")
		q.metrics.CommandExecuted(q.name, metrics.OutcomeNoChange)
	default:
		q.logger.DebugContext(ctx, "Command completed")
		q.metrics.CommandExecuted(q.name, metrics.OutcomeUpdated)
	}
}
