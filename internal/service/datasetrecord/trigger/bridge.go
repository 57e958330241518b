/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package trigger

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/gemini-hlsw/ocs-sub028/internal/metrics"
	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord/listener"
	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord/models"
)

// ReplaceHandler receives the old and new versions of a program whose tree was replaced.
type ReplaceHandler func(ctx context.Context, before, after *models.ProgramSnapshot)

// ReplaceSource is a database that reports program replacements.
type ReplaceSource interface {
	// Name returns the unique name of the source
	Name() string

	// SubscribeProgramReplaced registers a handler and returns the function that unregisters it.
	SubscribeProgramReplaced(handler ReplaceHandler) (unsubscribe func())
}

// batch is a group of events that is delivered as a whole
type batch struct {
	id     uuid.UUID
	events []models.ChangeEvent
}

// Bridge decouples the producers of change events, database triggers and program replacements,
// from the listeners. Events are queued in batches and delivered by a single worker in the order
// they were published. The queue has no bound: producers are never blocked, and under sustained
// overload the pending batches grow in memory, which is reported by the high watermark log and the
// queue depth gauge.
type Bridge struct {
	registry *listener.Registry
	metrics  *metrics.Pipeline

	// mutex protects the queue, the watermark and the running flag
	mutex   sync.Mutex
	queue   []batch
	ready   chan struct{}
	hwm     int
	running bool

	// lifecycle serializes Start and Stop
	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}

	watchMutex sync.Mutex
	watches    map[string]func()
}

// NewBridge creates a bridge that delivers events to the listeners of the registry. The metrics
// are optional.
func NewBridge(registry *listener.Registry, pipeline *metrics.Pipeline) *Bridge {
	return &Bridge{
		registry: registry,
		metrics:  pipeline,
		ready:    make(chan struct{}, 1),
		watches:  map[string]func(){},
	}
}

// Start launches the delivery worker. Starting a running bridge does nothing. If the bridge was
// stopped, Start waits for the previous worker to exit first, so there is never more than one.
func (b *Bridge) Start(ctx context.Context) {
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()

	b.mutex.Lock()
	if b.running {
		b.mutex.Unlock()
		return
	}
	b.mutex.Unlock()

	if b.done != nil {
		<-b.done
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	b.cancel = cancel
	b.done = done

	b.mutex.Lock()
	b.running = true
	if len(b.queue) > 0 {
		b.signal()
	}
	b.mutex.Unlock()

	slog.Info("Starting notification bridge")
	go b.receive(ctx, done)
}

// Stop asks the worker to exit. The batch being delivered is finished, the rest stay queued and are
// delivered if the bridge is started again. Stop doesn't wait; use Wait for that.
func (b *Bridge) Stop() {
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()

	b.mutex.Lock()
	defer b.mutex.Unlock()
	if !b.running {
		return
	}
	b.running = false
	b.cancel()
}

// Wait blocks until the last started worker has exited.
func (b *Bridge) Wait() {
	b.lifecycle.Lock()
	done := b.done
	b.lifecycle.Unlock()
	if done != nil {
		<-done
	}
}

// Running returns true if the bridge accepts events
func (b *Bridge) Running() bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.running
}

// Publish queues the events as one batch. It returns false if the bridge is not running, in which
// case the events are discarded.
func (b *Bridge) Publish(events ...models.ChangeEvent) bool {
	if len(events) == 0 {
		return true
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()
	if !b.running {
		slog.Debug("Notification bridge is not running; discarding events", "count", len(events))
		return false
	}

	b.queue = append(b.queue, batch{
		id:     uuid.New(),
		events: slices.Clone(events),
	})
	count := len(b.queue)
	b.metrics.SetEventQueueDepth(count)
	b.signal()
	if count >= b.hwm+10 {
		// Log only when the previous watermark is passed by 10 to avoid a message per event
		slog.Debug("New notification queue high watermark", "new", count, "old", b.hwm)
		b.hwm = count
	}
	return true
}

// ProgramReplaced publishes the QA changes between two versions of a program. It is the handler
// that the bridge subscribes to the watched sources.
func (b *Bridge) ProgramReplaced(ctx context.Context, before, after *models.ProgramSnapshot) {
	events := DiffProgram(before, after)
	if len(events) == 0 {
		return
	}
	programID := ""
	if after != nil {
		programID = after.ProgramID
	}
	slog.DebugContext(ctx, "Program replaced", "program", programID, "changes", len(events))
	b.Publish(events...)
}

// Watch subscribes the bridge to the program replacements of the source. It returns false if a
// source with the same name is already watched.
func (b *Bridge) Watch(source ReplaceSource) bool {
	b.watchMutex.Lock()
	defer b.watchMutex.Unlock()
	name := source.Name()
	if _, ok := b.watches[name]; ok {
		return false
	}
	b.watches[name] = source.SubscribeProgramReplaced(b.ProgramReplaced)
	return true
}

// Unwatch removes the subscription to the source with the given name.
func (b *Bridge) Unwatch(name string) bool {
	b.watchMutex.Lock()
	defer b.watchMutex.Unlock()
	unsubscribe, ok := b.watches[name]
	if !ok {
		return false
	}
	delete(b.watches, name)
	unsubscribe()
	return true
}

// signal wakes up the worker. Must be called with the mutex held.
func (b *Bridge) signal() {
	select {
	case b.ready <- struct{}{}:
	default:
	}
}

// pop removes the oldest batch from the queue.
func (b *Bridge) pop() (batch, bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if len(b.queue) == 0 {
		return batch{}, false
	}
	next := b.queue[0]
	b.queue[0] = batch{}
	b.queue = b.queue[1:]
	b.metrics.SetEventQueueDepth(len(b.queue))
	return next, true
}

// receive waits for batches and delivers them until the context is canceled.
func (b *Bridge) receive(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Stopping notification bridge; context canceled")
			b.mutex.Lock()
			b.running = false
			b.mutex.Unlock()
			return
		case <-b.ready:
			b.deliverPending(ctx)
		}
	}
}

// deliverPending delivers queued batches until the queue is empty or the context is canceled.
func (b *Bridge) deliverPending(ctx context.Context) {
	for ctx.Err() == nil {
		next, ok := b.pop()
		if !ok {
			return
		}
		failures := 0
		for _, event := range next.events {
			failures += b.registry.NotifyAll(event)
		}
		b.metrics.EventsDelivered(len(next.events))
		for i := 0; i < failures; i++ {
			b.metrics.ListenerFailed()
		}
		slog.Debug("Delivered change events", "batch", next.id.String(), "events", len(next.events),
			"failures", failures)
	}
}
