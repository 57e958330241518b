/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package models

// ChangeEvent is one detected state transition of a dataset record.  Old is nil when the record
// did not exist before.  Both records are private copies so the event never changes after it is
// created.
type ChangeEvent struct {
	Old *DatasetRecord
	New *DatasetRecord
}

// NewChangeEvent creates an event holding copies of the given records
func NewChangeEvent(before, after *DatasetRecord) ChangeEvent {
	return ChangeEvent{
		Old: before.Clone(),
		New: after.Clone(),
	}
}

// Label returns the label of the record that changed
func (e ChangeEvent) Label() RecordLabel {
	if e.New != nil {
		return e.New.Label()
	}
	if e.Old != nil {
		return e.Old.Label()
	}
	return RecordLabel{}
}

// IsCreate returns true if the event reports a record that did not previously exist
func (e ChangeEvent) IsCreate() bool {
	return e.Old == nil
}

// Changed returns true if the new record differs from the old one
func (e ChangeEvent) Changed() bool {
	return !e.Old.Equal(e.New)
}
