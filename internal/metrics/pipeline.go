/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

// This file contains the collectors that describe the activity of the dataset record pipeline.

package metrics

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineBuilder contains the data and logic needed to build the pipeline collectors. The
// following metrics are registered:
//
//	<subsystem>_commands_total - Number of commands executed, by queue and outcome.
//	<subsystem>_queue_depth - Number of commands waiting in a queue.
//	<subsystem>_events_delivered_total - Number of change events handed to listeners.
//	<subsystem>_event_queue_depth - Number of event batches waiting in the bridge.
//	<subsystem>_listener_failures_total - Number of listener callbacks that panicked.
//	<subsystem>_replica_failures_total - Number of failed replica calls, by replica and kind.
//
// Don't create objects of this type directly; use the NewPipeline function instead.
type PipelineBuilder struct {
	subsystem  string
	registerer prometheus.Registerer
}

// Pipeline records pipeline activity. A nil pipeline discards everything, so components can be
// created without metrics in tests.
type Pipeline struct {
	commands         *prometheus.CounterVec
	queueDepth       *prometheus.GaugeVec
	eventsDelivered  prometheus.Counter
	eventQueueDepth  prometheus.Gauge
	listenerFailures prometheus.Counter
	replicaFailures  *prometheus.CounterVec
}

// NewPipeline creates a builder that can then be used to configure and create the pipeline
// collectors.
func NewPipeline() *PipelineBuilder {
	return &PipelineBuilder{
		registerer: prometheus.DefaultRegisterer,
	}
}

// SetSubsystem sets the prefix of the metric names. This is mandatory.
func (b *PipelineBuilder) SetSubsystem(value string) *PipelineBuilder {
	b.subsystem = value
	return b
}

// SetRegisterer sets the Prometheus registerer that will be used to register the metrics. The
// default is to use the default Prometheus registerer. Unit tests use their own registry.
func (b *PipelineBuilder) SetRegisterer(value prometheus.Registerer) *PipelineBuilder {
	if value == nil {
		value = prometheus.DefaultRegisterer
	}
	b.registerer = value
	return b
}

// Build uses the information stored in the builder to create and register the collectors.
func (b *PipelineBuilder) Build() (result *Pipeline, err error) {
	if b.subsystem == "" {
		err = fmt.Errorf("subsystem is mandatory")
		return
	}

	commands, err := register(b.registerer, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: b.subsystem,
			Name:      "commands_total",
			Help:      "Number of commands executed.",
		},
		[]string{queueLabelName, outcomeLabelName},
	))
	if err != nil {
		return
	}
	queueDepth, err := register(b.registerer, prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Subsystem: b.subsystem,
			Name:      "queue_depth",
			Help:      "Number of commands waiting to be executed.",
		},
		[]string{queueLabelName},
	))
	if err != nil {
		return
	}
	eventsDelivered, err := register(b.registerer, prometheus.NewCounter(
		prometheus.CounterOpts{
			Subsystem: b.subsystem,
			Name:      "events_delivered_total",
			Help:      "Number of change events delivered to the listeners.",
		},
	))
	if err != nil {
		return
	}
	eventQueueDepth, err := register(b.registerer, prometheus.NewGauge(
		prometheus.GaugeOpts{
			Subsystem: b.subsystem,
			Name:      "event_queue_depth",
			Help:      "Number of event batches waiting to be delivered.",
		},
	))
	if err != nil {
		return
	}
	listenerFailures, err := register(b.registerer, prometheus.NewCounter(
		prometheus.CounterOpts{
			Subsystem: b.subsystem,
			Name:      "listener_failures_total",
			Help:      "Number of listener callbacks that failed.",
		},
	))
	if err != nil {
		return
	}
	replicaFailures, err := register(b.registerer, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: b.subsystem,
			Name:      "replica_failures_total",
			Help:      "Number of failed replica calls.",
		},
		[]string{replicaLabelName, kindLabelName},
	))
	if err != nil {
		return
	}

	result = &Pipeline{
		commands:         commands,
		queueDepth:       queueDepth,
		eventsDelivered:  eventsDelivered,
		eventQueueDepth:  eventQueueDepth,
		listenerFailures: listenerFailures,
		replicaFailures:  replicaFailures,
	}
	return
}

// register registers the collector, or returns the one that was registered before with the same
// descriptor.
func register[C prometheus.Collector](registerer prometheus.Registerer, collector C) (C, error) {
	err := registerer.Register(collector)
	if err != nil {
		var alreadyRegisteredError prometheus.AlreadyRegisteredError
		if errors.As(err, &alreadyRegisteredError) {
			if existing, ok := alreadyRegisteredError.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return collector, fmt.Errorf("failed to register collector: %w", err)
	}
	return collector, nil
}

// CommandExecuted counts one executed command.
func (p *Pipeline) CommandExecuted(queue, outcome string) {
	if p == nil {
		return
	}
	p.commands.WithLabelValues(queue, outcome).Inc()
}

// SetQueueDepth records the number of commands waiting in the queue.
func (p *Pipeline) SetQueueDepth(queue string, depth int) {
	if p == nil {
		return
	}
	p.queueDepth.WithLabelValues(queue).Set(float64(depth))
}

// EventsDelivered counts events handed to the listeners.
func (p *Pipeline) EventsDelivered(count int) {
	if p == nil {
		return
	}
	p.eventsDelivered.Add(float64(count))
}

// SetEventQueueDepth records the number of batches waiting in the bridge.
func (p *Pipeline) SetEventQueueDepth(depth int) {
	if p == nil {
		return
	}
	p.eventQueueDepth.Set(float64(depth))
}

// ListenerFailed counts a listener callback that panicked.
func (p *Pipeline) ListenerFailed() {
	if p == nil {
		return
	}
	p.listenerFailures.Inc()
}

// ReplicaFailed counts a failed call to a replica.
func (p *Pipeline) ReplicaFailed(replica, kind string) {
	if p == nil {
		return
	}
	p.replicaFailures.WithLabelValues(replica, kind).Inc()
}

// Handler returns the HTTP handler that serves the metrics of the given gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Names of the labels added to metrics:
const (
	queueLabelName   = "queue"
	outcomeLabelName = "outcome"
	replicaLabelName = "replica"
	kindLabelName    = "kind"
)

// Values of the outcome label:
const (
	OutcomeUpdated  = "updated"
	OutcomeNoChange = "no_change"
	OutcomeFailed   = "failed"
)

// Values of the kind label:
const (
	KindUnavailable = "unavailable"
	KindAuth        = "auth"
	KindOther       = "other"
)
