/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package models

import (
	"fmt"
	"slices"
	"strings"
)

// QAState is the quality assessment classification of a dataset.
type QAState string

const (
	QAUndefined QAState = "UNDEFINED"
	QAPass      QAState = "PASS"
	QAUsable    QAState = "USABLE"
	QAFail      QAState = "FAIL"
	QACheck     QAState = "CHECK"
)

var qaStates = []QAState{QAUndefined, QAPass, QAUsable, QAFail, QACheck}

// FileState describes the state of the dataset file in the summit storage.
type FileState string

const (
	FileStateOK      FileState = "OK"
	FileStatePending FileState = "PENDING"
	FileStateMissing FileState = "MISSING"
	FileStateDeleted FileState = "DELETED"
)

var fileStates = []FileState{FileStateOK, FileStatePending, FileStateMissing, FileStateDeleted}

// DataflowState describes where the dataset is in the archive (GSA) ingestion dataflow.
type DataflowState string

const (
	DataflowUnknown      DataflowState = "UNKNOWN"
	DataflowPending      DataflowState = "PENDING"
	DataflowQueued       DataflowState = "QUEUED"
	DataflowTransferring DataflowState = "TRANSFERRING"
	DataflowAccepted     DataflowState = "ACCEPTED"
	DataflowRejected     DataflowState = "REJECTED"
	DataflowError        DataflowState = "ERROR"
)

var dataflowStates = []DataflowState{
	DataflowUnknown, DataflowPending, DataflowQueued, DataflowTransferring,
	DataflowAccepted, DataflowRejected, DataflowError,
}

// ParseQAState converts a case-insensitive name into a QAState
func ParseQAState(value string) (QAState, error) {
	s := QAState(strings.ToUpper(strings.TrimSpace(value)))
	if !slices.Contains(qaStates, s) {
		return "", fmt.Errorf("unknown QA state '%s'", value)
	}
	return s, nil
}

// ParseFileState converts a case-insensitive name into a FileState
func ParseFileState(value string) (FileState, error) {
	s := FileState(strings.ToUpper(strings.TrimSpace(value)))
	if !slices.Contains(fileStates, s) {
		return "", fmt.Errorf("unknown file state '%s'", value)
	}
	return s, nil
}

// ParseDataflowState converts a case-insensitive name into a DataflowState
func ParseDataflowState(value string) (DataflowState, error) {
	s := DataflowState(strings.ToUpper(strings.TrimSpace(value)))
	if !slices.Contains(dataflowStates, s) {
		return "", fmt.Errorf("unknown dataflow state '%s'", value)
	}
	return s, nil
}
