/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package models

// ObservationLog is the set of dataset records of one observation.  Version is the log revision;
// it changes every time one of the records is written, so two logs with the same version hold the
// same records.
type ObservationLog struct {
	ObservationID string          `json:"observation_id"`
	Version       int64           `json:"version"`
	Records       []DatasetRecord `json:"records"`
}

// ProgramSnapshot is an immutable view of the observation logs of a science program at one point
// in time.  The surrounding application produces a pair of these whenever a program tree is
// replaced wholesale.
type ProgramSnapshot struct {
	ProgramID    string           `json:"program_id"`
	Observations []ObservationLog `json:"observations"`
}

// Observation returns the log with the given identifier
func (p *ProgramSnapshot) Observation(observationID string) (*ObservationLog, bool) {
	if p == nil {
		return nil, false
	}
	for i := range p.Observations {
		if p.Observations[i].ObservationID == observationID {
			return &p.Observations[i], true
		}
	}
	return nil, false
}

// Record returns the record with the given label
func (o *ObservationLog) Record(label RecordLabel) (*DatasetRecord, bool) {
	for i := range o.Records {
		if o.Records[i].Label() == label {
			return &o.Records[i], true
		}
	}
	return nil, false
}
