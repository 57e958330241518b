/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package memstore

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord/models"
	typederrors "github.com/gemini-hlsw/ocs-sub028/internal/typed-errors"
)

const (
	programID     = "GS-2024A-Q-1"
	observationID = "GS-2024A-Q-1-3"
)

func newRecord(index int, qa models.QAState) *models.DatasetRecord {
	record := models.NewDatasetRecord(models.Dataset{
		Label:     models.NewRecordLabel(observationID, index),
		Filename:  "S20240301S0001.fits",
		Timestamp: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	record.QA.State = qa
	return record
}

var _ = Describe("Store", func() {
	var (
		ctx   context.Context
		store *Store
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = New("summit")
		store.AddObservation(programID, observationID)
	})

	Describe("Lookup", func() {
		It("returns a copy of the stored record", func() {
			Expect(store.Put(newRecord(1, models.QAPass))).To(Succeed())

			record, err := store.Lookup(ctx, models.NewRecordLabel(observationID, 1))
			Expect(err).ToNot(HaveOccurred())
			Expect(record.QA.State).To(Equal(models.QAPass))

			record.QA.State = models.QAFail
			again, err := store.Lookup(ctx, models.NewRecordLabel(observationID, 1))
			Expect(err).ToNot(HaveOccurred())
			Expect(again.QA.State).To(Equal(models.QAPass))
		})

		It("reports missing records and observations as not found", func() {
			_, err := store.Lookup(ctx, models.NewRecordLabel(observationID, 9))
			Expect(typederrors.IsNotFoundError(err)).To(BeTrue())
			_, err = store.Lookup(ctx, models.NewRecordLabel("GN-2024A-Q-2-1", 1))
			Expect(typederrors.IsNotFoundError(err)).To(BeTrue())
		})

		It("fails with the injected error", func() {
			store.SetFailure(typederrors.NewUnavailableError(nil, "down"))
			_, err := store.Lookup(ctx, models.NewRecordLabel(observationID, 1))
			Expect(typederrors.IsUnavailableError(err)).To(BeTrue())

			store.SetFailure(nil)
			_, err = store.Lookup(ctx, models.NewRecordLabel(observationID, 1))
			Expect(typederrors.IsNotFoundError(err)).To(BeTrue())
		})
	})

	Describe("Modify", func() {
		It("passes nil for a record that doesn't exist yet and stores the result", func() {
			label := models.NewRecordLabel(observationID, 2)
			err := store.Modify(ctx, label, func(current *models.DatasetRecord) (*models.DatasetRecord, error) {
				Expect(current).To(BeNil())
				return newRecord(2, models.QACheck), nil
			})
			Expect(err).ToNot(HaveOccurred())

			record, err := store.Lookup(ctx, label)
			Expect(err).ToNot(HaveOccurred())
			Expect(record.QA.State).To(Equal(models.QACheck))
		})

		It("does not call the function when the observation is not hosted", func() {
			called := false
			err := store.Modify(ctx, models.NewRecordLabel("GN-2024A-Q-2-1", 1),
				func(*models.DatasetRecord) (*models.DatasetRecord, error) {
					called = true
					return nil, nil
				})
			Expect(typederrors.IsNotFoundError(err)).To(BeTrue())
			Expect(called).To(BeFalse())
		})

		It("leaves the store untouched when the function returns nothing", func() {
			Expect(store.Put(newRecord(1, models.QAPass))).To(Succeed())
			version := store.Snapshot(programID).Observations[0].Version

			err := store.Modify(ctx, models.NewRecordLabel(observationID, 1),
				func(*models.DatasetRecord) (*models.DatasetRecord, error) {
					return nil, nil
				})
			Expect(err).ToNot(HaveOccurred())
			Expect(store.Snapshot(programID).Observations[0].Version).To(Equal(version))
		})

		It("returns the error of the function", func() {
			failure := errors.New("rejected")
			err := store.Modify(ctx, models.NewRecordLabel(observationID, 1),
				func(*models.DatasetRecord) (*models.DatasetRecord, error) {
					return nil, failure
				})
			Expect(err).To(MatchError(failure))
		})

		It("refuses to store a record under another label", func() {
			err := store.Modify(ctx, models.NewRecordLabel(observationID, 1),
				func(*models.DatasetRecord) (*models.DatasetRecord, error) {
					return newRecord(2, models.QAPass), nil
				})
			Expect(typederrors.IsInvariantError(err)).To(BeTrue())
		})

		It("bumps the version of the observation log on every write", func() {
			label := models.NewRecordLabel(observationID, 1)
			write := func(*models.DatasetRecord) (*models.DatasetRecord, error) {
				return newRecord(1, models.QAPass), nil
			}
			Expect(store.Modify(ctx, label, write)).To(Succeed())
			Expect(store.Modify(ctx, label, write)).To(Succeed())
			Expect(store.Snapshot(programID).Observations[0].Version).To(BeNumerically("==", 2))
		})
	})

	Describe("ReplaceProgram", func() {
		It("notifies subscribers with the old and new versions", func() {
			Expect(store.Put(newRecord(1, models.QAUndefined))).To(Succeed())

			var before, after *models.ProgramSnapshot
			unsubscribe := store.SubscribeProgramReplaced(
				func(_ context.Context, old, updated *models.ProgramSnapshot) {
					before, after = old, updated
				})

			replacement := &models.ProgramSnapshot{
				ProgramID: programID,
				Observations: []models.ObservationLog{{
					ObservationID: observationID,
					Version:       5,
					Records:       []models.DatasetRecord{*newRecord(1, models.QAPass), *newRecord(2, models.QAUndefined)},
				}},
			}
			Expect(store.ReplaceProgram(ctx, replacement)).To(Succeed())

			Expect(before.Observations).To(HaveLen(1))
			Expect(before.Observations[0].Records[0].QA.State).To(Equal(models.QAUndefined))
			Expect(after.Observations[0].Version).To(BeNumerically("==", 5))
			Expect(after.Observations[0].Records).To(HaveLen(2))

			record, err := store.Lookup(ctx, models.NewRecordLabel(observationID, 2))
			Expect(err).ToNot(HaveOccurred())
			Expect(record.QA.State).To(Equal(models.QAUndefined))

			unsubscribe()
			before = nil
			Expect(store.ReplaceProgram(ctx, replacement)).To(Succeed())
			Expect(before).To(BeNil())
		})

		It("leaves other programs alone", func() {
			store.AddObservation("GS-2024A-Q-2", "GS-2024A-Q-2-1")
			Expect(store.ReplaceProgram(ctx, &models.ProgramSnapshot{ProgramID: programID})).To(Succeed())

			Expect(store.Snapshot(programID).Observations).To(BeEmpty())
			Expect(store.Snapshot("GS-2024A-Q-2").Observations).To(HaveLen(1))
		})
	})

	It("sorts snapshots by observation and label", func() {
		store.AddObservation(programID, "GS-2024A-Q-1-1")
		Expect(store.Put(newRecord(10, models.QAPass))).To(Succeed())
		Expect(store.Put(newRecord(2, models.QAPass))).To(Succeed())

		snapshot := store.Snapshot(programID)
		Expect(snapshot.Observations).To(HaveLen(2))
		Expect(snapshot.Observations[0].ObservationID).To(Equal("GS-2024A-Q-1-1"))
		Expect(snapshot.Observations[1].Records[0].Label().Index).To(Equal(2))
		Expect(snapshot.Observations[1].Records[1].Label().Index).To(Equal(10))
	})
})
