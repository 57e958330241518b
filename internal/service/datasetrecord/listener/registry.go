/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package listener

import (
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync"

	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord/models"
)

// Listener receives the dataset record change events. Callbacks always run on the notification
// worker, never on the goroutine that produced the event. Implementations must be comparable,
// usually pointers, so that they can be removed. The registry refuses listeners it can't compare.
type Listener interface {
	DatasetRecordChanged(event models.ChangeEvent)
}

// Registry is the set of listeners interested in dataset record changes. The lock is only held to
// change or copy the set, never while a callback runs.
type Registry struct {
	mutex     sync.Mutex
	listeners []Listener
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Add adds a listener. Adding a listener that is already registered, or one that isn't comparable,
// does nothing and returns false.
func (r *Registry) Add(listener Listener) bool {
	if !isComparable(listener) {
		slog.Warn("Listener rejected; type is not comparable", "listener", fmt.Sprintf("%T", listener))
		return false
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if slices.Contains(r.listeners, listener) {
		return false
	}
	r.listeners = append(r.listeners, listener)
	return true
}

// Remove removes a listener and returns false if it wasn't registered.
func (r *Registry) Remove(listener Listener) bool {
	if !isComparable(listener) {
		return false
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	i := slices.Index(r.listeners, listener)
	if i < 0 {
		return false
	}
	r.listeners = slices.Delete(r.listeners, i, i+1)
	return true
}

// Snapshot returns the registered listeners in registration order.
func (r *Registry) Snapshot() []Listener {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return slices.Clone(r.listeners)
}

// Len returns the number of registered listeners
func (r *Registry) Len() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.listeners)
}

// NotifyAll passes the event to a snapshot of the listeners. A listener that panics is logged and
// skipped, the remaining listeners still receive the event. It returns the number of listeners
// that failed.
func (r *Registry) NotifyAll(event models.ChangeEvent) int {
	failures := 0
	for _, listener := range r.Snapshot() {
		if err := notify(listener, event); err != nil {
			slog.Error("Listener failed to handle change event",
				"listener", fmt.Sprintf("%T", listener),
				"label", event.Label().String(),
				"error", err.Error())
			failures++
		}
	}
	return failures
}

// isComparable reports whether the dynamic value can be compared with == without panicking
func isComparable(listener Listener) bool {
	return listener != nil && reflect.ValueOf(listener).Comparable()
}

func notify(listener Listener, event models.ChangeEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panicked: %v", r)
		}
	}()
	listener.DatasetRecordChanged(event)
	return nil
}
