/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package db

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord/models"
)

// Model is implemented by the row types
type Model interface {
	PrimaryKey() string
	TableName() string
}

// ObservationLog represents a row of the observation_log table
type ObservationLog struct {
	ObservationID string `db:"observation_id"`
	ProgramID     string `db:"program_id"`
	LogVersion    int64  `db:"log_version"`
}

// TableName returns the name of the table in the database
func (r ObservationLog) TableName() string {
	return "observation_log"
}

// PrimaryKey returns the primary key of the table
func (r ObservationLog) PrimaryKey() string {
	return "observation_id"
}

// DatasetRecord represents a row of the dataset_record table
type DatasetRecord struct {
	Label         string     `db:"label"`
	ObservationID string     `db:"observation_id"`
	DatasetIndex  int        `db:"dataset_index"`
	Filename      string     `db:"filename"`
	DatasetTime   time.Time  `db:"dataset_time"`
	QAState       string     `db:"qa_state"`
	QAComment     string     `db:"qa_comment"`
	SyncTime      *time.Time `db:"sync_time"`
	FileState     string     `db:"file_state"`
	DataflowState string     `db:"dataflow_state"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

// TableName returns the name of the table in the database
func (r DatasetRecord) TableName() string {
	return "dataset_record"
}

// PrimaryKey returns the primary key of the table
func (r DatasetRecord) PrimaryKey() string {
	return "label"
}

// NewDatasetRecordRow converts a record into its row representation
func NewDatasetRecordRow(record *models.DatasetRecord) DatasetRecord {
	label := record.Label()
	return DatasetRecord{
		Label:         label.String(),
		ObservationID: label.ObservationID,
		DatasetIndex:  label.Index,
		Filename:      record.Exec.Dataset.Filename,
		DatasetTime:   record.Exec.Dataset.Timestamp.UTC(),
		QAState:       string(record.QA.State),
		QAComment:     record.QA.Comment,
		SyncTime:      record.Exec.SyncTime,
		FileState:     string(record.Exec.FileState),
		DataflowState: string(record.Exec.DataflowState),
	}
}

// ToModel converts the row into a record. Unknown state names are reported as errors.
func (r DatasetRecord) ToModel() (*models.DatasetRecord, error) {
	qa, err := models.ParseQAState(r.QAState)
	if err != nil {
		return nil, fmt.Errorf("invalid row %s: %w", r.Label, err)
	}
	fileState, err := models.ParseFileState(r.FileState)
	if err != nil {
		return nil, fmt.Errorf("invalid row %s: %w", r.Label, err)
	}
	dataflowState, err := models.ParseDataflowState(r.DataflowState)
	if err != nil {
		return nil, fmt.Errorf("invalid row %s: %w", r.Label, err)
	}
	var syncTime *time.Time
	if r.SyncTime != nil {
		t := r.SyncTime.UTC()
		syncTime = &t
	}
	return &models.DatasetRecord{
		QA: models.QARecord{
			State:   qa,
			Comment: r.QAComment,
		},
		Exec: models.ExecRecord{
			Dataset: models.Dataset{
				Label:     models.NewRecordLabel(r.ObservationID, r.DatasetIndex),
				Filename:  r.Filename,
				Timestamp: r.DatasetTime.UTC(),
			},
			SyncTime:      syncTime,
			FileState:     fileState,
			DataflowState: dataflowState,
		},
	}, nil
}

// ProgramReplaceEvent represents a row of the program_replace_event table. The states are the
// JSON encoded program snapshots; BeforeState is empty when the program didn't exist before.
type ProgramReplaceEvent struct {
	EventID     uuid.UUID `db:"event_id"`
	ProgramID   string    `db:"program_id"`
	BeforeState []byte    `db:"before_state"`
	AfterState  []byte    `db:"after_state"`
	CreatedAt   time.Time `db:"created_at"`
}

// TableName returns the name of the table in the database
func (r ProgramReplaceEvent) TableName() string {
	return "program_replace_event"
}

// PrimaryKey returns the primary key of the table
func (r ProgramReplaceEvent) PrimaryKey() string {
	return "event_id"
}

// Snapshots decodes the before and after states of the event
func (r ProgramReplaceEvent) Snapshots() (before, after *models.ProgramSnapshot, err error) {
	before, err = decodeSnapshot(r.BeforeState)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode before state of event %s: %w", r.EventID, err)
	}
	after, err = decodeSnapshot(r.AfterState)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode after state of event %s: %w", r.EventID, err)
	}
	return before, after, nil
}

func decodeSnapshot(data []byte) (*models.ProgramSnapshot, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var snapshot models.ProgramSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err // nolint: wrapcheck
	}
	return &snapshot, nil
}

// columns returns the column names of a row type from its db tags, in field order
func columns[T Model]() []string {
	var record T
	t := reflect.TypeOf(record)
	result := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if tag, ok := t.Field(i).Tag.Lookup("db"); ok && tag != "-" {
			result = append(result, tag)
		}
	}
	return result
}
