/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package db

import (
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord/models"
)

var _ = Describe("Rows", func() {
	It("lists the columns in field order", func() {
		Expect(columns[ObservationLog]()).To(Equal([]string{"observation_id", "program_id", "log_version"}))
		Expect(columns[ProgramReplaceEvent]()).To(Equal([]string{
			"event_id", "program_id", "before_state", "after_state", "created_at",
		}))
	})

	It("converts records to rows and back", func() {
		syncTime := time.Date(2024, 3, 2, 10, 0, 0, 0, time.FixedZone("CLT", -3*3600))
		record := models.NewDatasetRecord(models.Dataset{
			Label:     models.NewRecordLabel("GS-2024A-Q-1-3", 2),
			Filename:  "S20240301S0002.fits",
			Timestamp: time.Date(2024, 3, 1, 4, 5, 6, 0, time.UTC),
		})
		record.QA.State = models.QAUsable
		record.QA.Comment = "seeing was poor"
		record.Exec.SyncTime = &syncTime

		row := NewDatasetRecordRow(record)
		Expect(row.Label).To(Equal("GS-2024A-Q-1-3-2"))
		Expect(row.ObservationID).To(Equal("GS-2024A-Q-1-3"))
		Expect(row.DatasetIndex).To(Equal(2))
		Expect(row.QAState).To(Equal("USABLE"))

		converted, err := row.ToModel()
		Expect(err).ToNot(HaveOccurred())
		Expect(converted.Equal(record)).To(BeTrue())
		Expect(converted.Exec.SyncTime.Location()).To(Equal(time.UTC))
	})

	It("rejects rows with unknown states", func() {
		row := DatasetRecord{
			Label:         "GS-2024A-Q-1-3-2",
			ObservationID: "GS-2024A-Q-1-3",
			DatasetIndex:  2,
			QAState:       "PASS",
			FileState:     "SHREDDED",
			DataflowState: "UNKNOWN",
		}
		_, err := row.ToModel()
		Expect(err).To(MatchError(ContainSubstring("GS-2024A-Q-1-3-2")))
	})

	It("decodes the snapshots of a replace event", func() {
		event := ProgramReplaceEvent{
			EventID:   uuid.New(),
			ProgramID: "GS-2024A-Q-1",
			AfterState: []byte(`{"program_id":"GS-2024A-Q-1","observations":[` +
				`{"observation_id":"GS-2024A-Q-1-3","version":4,"records":[]}]}`),
		}
		before, after, err := event.Snapshots()
		Expect(err).ToNot(HaveOccurred())
		Expect(before).To(BeNil())
		Expect(after.ProgramID).To(Equal("GS-2024A-Q-1"))
		Expect(after.Observations).To(HaveLen(1))
		Expect(after.Observations[0].Version).To(Equal(int64(4)))

		event.BeforeState = []byte("{")
		_, _, err = event.Snapshots()
		Expect(err).To(MatchError(ContainSubstring("before state")))
	})
})
