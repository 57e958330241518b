/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package trigger

import (
	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord/models"
)

// DiffProgram compares two versions of a program and returns a change event for every dataset
// record of the new version whose QA state differs from the old version, or that is new. Only the
// observation logs whose version changed are compared; a log with the same version is assumed to
// hold the same records. Events follow the order of the new snapshot.
func DiffProgram(before, after *models.ProgramSnapshot) []models.ChangeEvent {
	if after == nil {
		return nil
	}

	var events []models.ChangeEvent
	for i := range after.Observations {
		current := &after.Observations[i]
		previous, ok := before.Observation(current.ObservationID)
		if ok && previous.Version == current.Version {
			continue
		}
		for j := range current.Records {
			record := &current.Records[j]
			var old *models.DatasetRecord
			if previous != nil {
				old, _ = previous.Record(record.Label())
			}
			if old != nil && old.QA.State == record.QA.State {
				continue
			}
			events = append(events, models.NewChangeEvent(old, record))
		}
	}
	return events
}
