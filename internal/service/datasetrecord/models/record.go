/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package models

import (
	"time"
)

// Dataset describes the dataset produced by a science exposure.  It is also used as the creation
// descriptor when a record must be created on the first update.
type Dataset struct {
	Label     RecordLabel `json:"label"`
	Filename  string      `json:"filename"`
	Timestamp time.Time   `json:"timestamp"`
}

// QARecord holds the quality assessment part of a dataset record
type QARecord struct {
	State   QAState `json:"state"`
	Comment string  `json:"comment,omitempty"`
}

// ExecRecord holds the execution part of a dataset record
type ExecRecord struct {
	Dataset       Dataset       `json:"dataset"`
	SyncTime      *time.Time    `json:"sync_time,omitempty"`
	FileState     FileState     `json:"file_state"`
	DataflowState DataflowState `json:"dataflow_state"`
}

// DatasetRecord is the persisted state of one dataset in an observation log.
type DatasetRecord struct {
	QA   QARecord   `json:"qa"`
	Exec ExecRecord `json:"exec"`
}

// NewDatasetRecord creates the initial record for a dataset.
func NewDatasetRecord(dataset Dataset) *DatasetRecord {
	return &DatasetRecord{
		QA: QARecord{
			State: QAUndefined,
		},
		Exec: ExecRecord{
			Dataset:       dataset,
			FileState:     FileStatePending,
			DataflowState: DataflowUnknown,
		},
	}
}

// Label returns the label of the record
func (r *DatasetRecord) Label() RecordLabel {
	return r.Exec.Dataset.Label
}

// Clone returns a deep copy of the record.  A nil record clones to nil.
func (r *DatasetRecord) Clone() *DatasetRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.Exec.SyncTime != nil {
		t := *r.Exec.SyncTime
		c.Exec.SyncTime = &t
	}
	return &c
}

// Equal compares two records field by field.  Timestamps are compared with time.Equal.
func (r *DatasetRecord) Equal(other *DatasetRecord) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.QA == other.QA &&
		r.Exec.Dataset.Label == other.Exec.Dataset.Label &&
		r.Exec.Dataset.Filename == other.Exec.Dataset.Filename &&
		r.Exec.Dataset.Timestamp.Equal(other.Exec.Dataset.Timestamp) &&
		timesEqual(r.Exec.SyncTime, other.Exec.SyncTime) &&
		r.Exec.FileState == other.Exec.FileState &&
		r.Exec.DataflowState == other.Exec.DataflowState
}

func timesEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
