/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package models

import (
	"fmt"
	"strings"
	"time"
)

// UpdateTemplate is a set of optional field assignments.  It is used both as an update (the
// fields to change) and as a precondition (the fields that must hold their current values for an
// update to apply).  A nil field is unset: it is left untouched by an update and acts as a
// wildcard in a precondition.
type UpdateTemplate struct {
	QAState       *QAState       `json:"qa_state,omitempty"`
	SyncTime      *time.Time     `json:"sync_time,omitempty"`
	FileState     *FileState     `json:"file_state,omitempty"`
	DataflowState *DataflowState `json:"dataflow_state,omitempty"`
}

// WithQAState returns a copy of the template with the QA state set
func (t UpdateTemplate) WithQAState(value QAState) UpdateTemplate {
	t.QAState = &value
	return t
}

// WithSyncTime returns a copy of the template with the sync time set
func (t UpdateTemplate) WithSyncTime(value time.Time) UpdateTemplate {
	t.SyncTime = &value
	return t
}

// WithFileState returns a copy of the template with the file state set
func (t UpdateTemplate) WithFileState(value FileState) UpdateTemplate {
	t.FileState = &value
	return t
}

// WithDataflowState returns a copy of the template with the dataflow state set
func (t UpdateTemplate) WithDataflowState(value DataflowState) UpdateTemplate {
	t.DataflowState = &value
	return t
}

// IsEmpty returns true if no field is set
func (t UpdateTemplate) IsEmpty() bool {
	return t.QAState == nil && t.SyncTime == nil && t.FileState == nil && t.DataflowState == nil
}

// Equal compares two templates field by field
func (t UpdateTemplate) Equal(other UpdateTemplate) bool {
	return ptrEqual(t.QAState, other.QAState) &&
		timesEqual(t.SyncTime, other.SyncTime) &&
		ptrEqual(t.FileState, other.FileState) &&
		ptrEqual(t.DataflowState, other.DataflowState)
}

// String renders only the fields that are set
func (t UpdateTemplate) String() string {
	var fields []string
	if t.QAState != nil {
		fields = append(fields, fmt.Sprintf("qa=%s", *t.QAState))
	}
	if t.SyncTime != nil {
		fields = append(fields, fmt.Sprintf("sync=%s", t.SyncTime.UTC().Format(time.RFC3339)))
	}
	if t.FileState != nil {
		fields = append(fields, fmt.Sprintf("file=%s", *t.FileState))
	}
	if t.DataflowState != nil {
		fields = append(fields, fmt.Sprintf("dataflow=%s", *t.DataflowState))
	}
	return "{" + strings.Join(fields, ", ") + "}"
}

// Apply returns a copy of base with every field that is set in update written over it.
func Apply(base, update UpdateTemplate) UpdateTemplate {
	result := base.clone()
	if update.QAState != nil {
		v := *update.QAState
		result.QAState = &v
	}
	if update.SyncTime != nil {
		v := *update.SyncTime
		result.SyncTime = &v
	}
	if update.FileState != nil {
		v := *update.FileState
		result.FileState = &v
	}
	if update.DataflowState != nil {
		v := *update.DataflowState
		result.DataflowState = &v
	}
	return result
}

// Matches reports whether every field set in the precondition equals the record's current value.
// A nil or empty precondition always matches.
func Matches(precondition *UpdateTemplate, record *DatasetRecord) bool {
	if precondition == nil {
		return true
	}
	if precondition.QAState != nil && *precondition.QAState != record.QA.State {
		return false
	}
	if precondition.SyncTime != nil && !timesEqual(precondition.SyncTime, record.Exec.SyncTime) {
		return false
	}
	if precondition.FileState != nil && *precondition.FileState != record.Exec.FileState {
		return false
	}
	if precondition.DataflowState != nil && *precondition.DataflowState != record.Exec.DataflowState {
		return false
	}
	return true
}

// TemplateOf returns a template with every field set to the record's current value.  The sync
// time stays unset if the record has never been synchronized.
func TemplateOf(record *DatasetRecord) UpdateTemplate {
	t := UpdateTemplate{}.
		WithQAState(record.QA.State).
		WithFileState(record.Exec.FileState).
		WithDataflowState(record.Exec.DataflowState)
	if record.Exec.SyncTime != nil {
		t = t.WithSyncTime(*record.Exec.SyncTime)
	}
	return t
}

// ApplyTo returns a copy of the record with the fields set in the template written into it.  The
// record passed in is not modified.
func (t UpdateTemplate) ApplyTo(record *DatasetRecord) *DatasetRecord {
	merged := Apply(TemplateOf(record), t)
	result := record.Clone()
	result.QA.State = *merged.QAState
	result.Exec.SyncTime = merged.SyncTime
	result.Exec.FileState = *merged.FileState
	result.Exec.DataflowState = *merged.DataflowState
	return result
}

func (t UpdateTemplate) clone() UpdateTemplate {
	return UpdateTemplate{
		QAState:       clonePtr(t.QAState),
		SyncTime:      clonePtr(t.SyncTime),
		FileState:     clonePtr(t.FileState),
		DataflowState: clonePtr(t.DataflowState),
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func ptrEqual[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
