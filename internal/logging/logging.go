/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package logging

import (
	"context"
	"log/slog"
)

//
// This module includes utilities to define a slog handler that includes attributes
// that have been added to the context in order to carry info through an execution
// flow without needing to explicitly include it in all logs.
//

type loggingContextKey string

const (
	slogFields loggingContextKey = "slog_fields"
)

// LoggingContextHandler wraps a handler and adds the attributes stored in the context to each
// record.
type LoggingContextHandler struct {
	handler slog.Handler
}

// NewLoggingContextHandler wraps the given handler
func NewLoggingContextHandler(handler slog.Handler) *LoggingContextHandler {
	return &LoggingContextHandler{
		handler: handler,
	}
}

// Handle adds attributes from the context to the log record
func (h *LoggingContextHandler) Handle(ctx context.Context, record slog.Record) error {
	if attrs, ok := ctx.Value(slogFields).([]slog.Attr); ok {
		record.AddAttrs(attrs...)
	}

	return h.handler.Handle(ctx, record) // nolint: wrapcheck
}

func (h *LoggingContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *LoggingContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return &LoggingContextHandler{handler: h.handler.WithAttrs(attrs)}
}

func (h *LoggingContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &LoggingContextHandler{handler: h.handler.WithGroup(name)}
}

// AppendCtx adds an slog attribute to the provided context so that it will be
// included in any Record created with such context
func AppendCtx(ctx context.Context, attr slog.Attr) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	existing, _ := ctx.Value(slogFields).([]slog.Attr)
	attrs := make([]slog.Attr, len(existing), len(existing)+1)
	copy(attrs, existing)
	return context.WithValue(ctx, slogFields, append(attrs, attr))
}
