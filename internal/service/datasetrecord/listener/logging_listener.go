/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package listener

import (
	"log/slog"

	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord/models"
)

// LoggingListener writes every change event to the log.
type LoggingListener struct {
	logger *slog.Logger
}

// NewLoggingListener creates a listener that writes to the given logger, or to the default logger
// when it is nil.
func NewLoggingListener(logger *slog.Logger) *LoggingListener {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingListener{
		logger: logger.With("component", "record-changes"),
	}
}

// DatasetRecordChanged is the implementation of the Listener interface.
func (l *LoggingListener) DatasetRecordChanged(event models.ChangeEvent) {
	attrs := []any{
		slog.String("label", event.Label().String()),
		slog.Bool("created", event.IsCreate()),
	}
	if event.Old != nil {
		attrs = append(attrs,
			slog.String("old_qa", string(event.Old.QA.State)),
			slog.String("old_file", string(event.Old.Exec.FileState)),
			slog.String("old_dataflow", string(event.Old.Exec.DataflowState)),
		)
	}
	if event.New != nil {
		attrs = append(attrs,
			slog.String("qa", string(event.New.QA.State)),
			slog.String("file", string(event.New.Exec.FileState)),
			slog.String("dataflow", string(event.New.Exec.DataflowState)),
		)
		if event.New.Exec.SyncTime != nil {
			attrs = append(attrs, slog.Time("sync_time", *event.New.Exec.SyncTime))
		}
	}
	l.logger.Info("Dataset record changed", attrs...)
}
