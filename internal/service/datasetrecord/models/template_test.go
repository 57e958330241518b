/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package models

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func testRecord(qa QAState) *DatasetRecord {
	record := NewDatasetRecord(Dataset{
		Label:     NewRecordLabel("GS-2024A-Q-1-3", 1),
		Filename:  "S20240301S0001.fits",
		Timestamp: time.Date(2024, 3, 1, 4, 5, 6, 0, time.UTC),
	})
	record.QA.State = qa
	return record
}

var _ = Describe("UpdateTemplate", func() {
	syncTime := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)

	templates := []UpdateTemplate{
		{},
		UpdateTemplate{}.WithQAState(QAPass),
		UpdateTemplate{}.WithSyncTime(syncTime),
		UpdateTemplate{}.WithFileState(FileStateMissing).WithDataflowState(DataflowQueued),
		UpdateTemplate{}.WithQAState(QAFail).WithSyncTime(syncTime).
			WithFileState(FileStateOK).WithDataflowState(DataflowAccepted),
	}

	Describe("Apply", func() {
		It("leaves any template unchanged when the update is empty", func() {
			for _, t := range templates {
				Expect(Apply(t, UpdateTemplate{}).Equal(t)).To(BeTrue(), t.String())
			}
		})

		It("takes set fields from the update and keeps the rest from the base", func() {
			base := UpdateTemplate{}.WithQAState(QAPass).WithFileState(FileStateOK)
			update := UpdateTemplate{}.WithQAState(QAFail).WithDataflowState(DataflowQueued)

			merged := Apply(base, update)
			Expect(*merged.QAState).To(Equal(QAFail))
			Expect(*merged.FileState).To(Equal(FileStateOK))
			Expect(*merged.DataflowState).To(Equal(DataflowQueued))
			Expect(merged.SyncTime).To(BeNil())
		})

		It("does not alias the inputs", func() {
			base := UpdateTemplate{}.WithQAState(QAPass)
			merged := Apply(base, UpdateTemplate{})
			*merged.QAState = QAFail
			Expect(*base.QAState).To(Equal(QAPass))
		})
	})

	Describe("Matches", func() {
		It("always matches an empty or nil precondition", func() {
			for _, qa := range qaStates {
				record := testRecord(qa)
				Expect(Matches(&UpdateTemplate{}, record)).To(BeTrue())
				Expect(Matches(nil, record)).To(BeTrue())
			}
		})

		DescribeTable("compares set fields with the record",
			func(precondition UpdateTemplate, expected bool) {
				record := testRecord(QAPass)
				record.Exec.SyncTime = &syncTime
				Expect(Matches(&precondition, record)).To(Equal(expected))
			},
			Entry("same QA state", UpdateTemplate{}.WithQAState(QAPass), true),
			Entry("different QA state", UpdateTemplate{}.WithQAState(QAFail), false),
			Entry("same sync time in another zone",
				UpdateTemplate{}.WithSyncTime(syncTime.In(time.FixedZone("CLT", -3*3600))), true),
			Entry("different sync time", UpdateTemplate{}.WithSyncTime(syncTime.Add(time.Second)), false),
			Entry("same file state", UpdateTemplate{}.WithFileState(FileStatePending), true),
			Entry("different dataflow state", UpdateTemplate{}.WithDataflowState(DataflowAccepted), false),
			Entry("all fields equal", TemplateOf(func() *DatasetRecord {
				r := testRecord(QAPass)
				r.Exec.SyncTime = &syncTime
				return r
			}()), true),
		)

		It("does not match a sync time precondition on a record that was never synchronized", func() {
			Expect(Matches(&UpdateTemplate{SyncTime: &syncTime}, testRecord(QAPass))).To(BeFalse())
		})
	})

	Describe("ApplyTo", func() {
		It("returns an updated copy and leaves the record alone", func() {
			record := testRecord(QAUndefined)
			updated := UpdateTemplate{}.WithQAState(QAUsable).WithSyncTime(syncTime).ApplyTo(record)

			Expect(updated.QA.State).To(Equal(QAUsable))
			Expect(updated.Exec.SyncTime.Equal(syncTime)).To(BeTrue())
			Expect(record.QA.State).To(Equal(QAUndefined))
			Expect(record.Exec.SyncTime).To(BeNil())
		})

		It("round trips through TemplateOf", func() {
			record := testRecord(QACheck)
			Expect(TemplateOf(record).ApplyTo(testRecord(QAPass)).Equal(record)).To(BeTrue())
		})

		It("produces the record described by merging the update into the record's template", func() {
			for _, record := range []*DatasetRecord{testRecord(QAUndefined), TemplateOf(testRecord(QACheck)).
				WithSyncTime(syncTime.Add(-time.Hour)).ApplyTo(testRecord(QACheck))} {
				for _, update := range templates {
					updated := update.ApplyTo(record)
					Expect(TemplateOf(updated)).To(Equal(Apply(TemplateOf(record), update)), update.String())
				}
			}
		})

		It("does not share the sync time with the template", func() {
			update := UpdateTemplate{}.WithSyncTime(syncTime)
			updated := update.ApplyTo(testRecord(QAPass))
			*update.SyncTime = syncTime.Add(time.Hour)
			Expect(updated.Exec.SyncTime.Equal(syncTime)).To(BeTrue())
		})
	})

	It("renders only the fields that are set", func() {
		Expect(UpdateTemplate{}.String()).To(Equal("{}"))
		Expect(UpdateTemplate{}.WithQAState(QAPass).WithFileState(FileStateOK).String()).
			To(Equal("{qa=PASS, file=OK}"))
	})
})

var _ = Describe("ChangeEvent", func() {
	It("keeps private copies of the records", func() {
		before := testRecord(QAUndefined)
		after := testRecord(QAPass)
		event := NewChangeEvent(before, after)

		after.QA.State = QAFail
		Expect(event.New.QA.State).To(Equal(QAPass))
		Expect(event.IsCreate()).To(BeFalse())
		Expect(event.Label()).To(Equal(NewRecordLabel("GS-2024A-Q-1-3", 1)))
	})

	It("reports creations", func() {
		event := NewChangeEvent(nil, testRecord(QAPass))
		Expect(event.IsCreate()).To(BeTrue())
		Expect(event.Changed()).To(BeTrue())
	})

	It("reports updates that left the record as it was", func() {
		Expect(NewChangeEvent(testRecord(QAPass), testRecord(QAPass)).Changed()).To(BeFalse())
		Expect(NewChangeEvent(testRecord(QAPass), testRecord(QAFail)).Changed()).To(BeTrue())
	})
})
