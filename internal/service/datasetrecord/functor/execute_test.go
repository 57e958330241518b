/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package functor_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord/functor"
	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord/functor/generated"
	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord/models"
	typederrors "github.com/gemini-hlsw/ocs-sub028/internal/typed-errors"
)

type outcome struct {
	record *models.DatasetRecord
	err    error
}

type execution func(ctx context.Context, e *functor.Executor, op functor.Op[models.DatasetRecord]) (*models.DatasetRecord, error)

var executions = []struct {
	name    string
	execute execution
}{
	{"sequential", functor.Execute[models.DatasetRecord]},
	{"parallel", functor.ExecuteParallel[models.DatasetRecord]},
}

func permutations(items []int) [][]int {
	if len(items) <= 1 {
		return [][]int{append([]int{}, items...)}
	}
	var result [][]int
	for i := range items {
		rest := append(append([]int{}, items[:i]...), items[i+1:]...)
		for _, p := range permutations(rest) {
			result = append(result, append([]int{items[i]}, p...))
		}
	}
	return result
}

var _ = Describe("Execute", func() {
	var (
		ctrl  *gomock.Controller
		ctx   context.Context
		label models.RecordLabel
		found *models.DatasetRecord
	)

	lookup := func(ctx context.Context, replica functor.Replica) (*models.DatasetRecord, error) {
		return replica.Lookup(ctx, label)
	}

	newReplica := func(name string, result outcome) *generated.MockReplica {
		replica := generated.NewMockReplica(ctrl)
		replica.EXPECT().Name().Return(name).AnyTimes()
		replica.EXPECT().Lookup(gomock.Any(), label).Return(result.record, result.err).AnyTimes()
		return replica
	}

	newExecutor := func(outcomes ...outcome) *functor.Executor {
		set := functor.NewReplicaSet()
		for i, o := range outcomes {
			Expect(set.Add(newReplica(fmt.Sprintf("replica-%d", i), o))).To(BeTrue())
		}
		return functor.NewExecutor(set, nil)
	}

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
		ctx = context.Background()
		label = models.NewRecordLabel("GS-2024A-Q-1-3", 1)
		found = models.NewDatasetRecord(models.Dataset{
			Label:     label,
			Filename:  "S20240301S0001.fits",
			Timestamp: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		})
	})

	AfterEach(func() {
		ctrl.Finish()
	})

	for _, e := range executions {
		execute := e.execute
		Context(e.name, func() {
			It("returns the record regardless of the order of the replicas", func() {
				outcomes := []outcome{
					{err: typederrors.NewAuthError(nil, "permission denied")},
					{err: typederrors.NewNotFoundError(nil, "no such record")},
					{record: found},
				}
				for _, order := range permutations([]int{0, 1, 2}) {
					executor := newExecutor(outcomes[order[0]], outcomes[order[1]], outcomes[order[2]])
					result, err := execute(ctx, executor, lookup)
					Expect(err).ToNot(HaveOccurred(), "order %v", order)
					Expect(result).To(BeIdenticalTo(found), "order %v", order)
				}
			})

			It("returns nothing when there are no replicas", func() {
				result, err := execute(ctx, newExecutor(), lookup)
				Expect(err).ToNot(HaveOccurred())
				Expect(result).To(BeNil())
			})

			It("treats authentication failures as not found", func() {
				result, err := execute(ctx, newExecutor(
					outcome{err: typederrors.NewAuthError(nil, "permission denied")},
					outcome{err: typederrors.NewNotFoundError(nil, "no such record")},
				), lookup)
				Expect(err).ToNot(HaveOccurred())
				Expect(result).To(BeNil())
			})

			It("prefers other failures to authentication failures", func() {
				failure := errors.New("disk full")
				result, err := execute(ctx, newExecutor(
					outcome{err: typederrors.NewAuthError(nil, "permission denied")},
					outcome{err: failure},
				), lookup)
				Expect(err).To(MatchError(failure))
				Expect(result).To(BeNil())
			})

			It("prefers a record to a failure", func() {
				result, err := execute(ctx, newExecutor(
					outcome{err: errors.New("disk full")},
					outcome{record: found},
				), lookup)
				Expect(err).ToNot(HaveOccurred())
				Expect(result).To(BeIdenticalTo(found))
			})

			It("skips unreachable replicas", func() {
				result, err := execute(ctx, newExecutor(
					outcome{err: typederrors.NewUnavailableError(nil, "connection refused")},
					outcome{record: found},
				), lookup)
				Expect(err).ToNot(HaveOccurred())
				Expect(result).To(BeIdenticalTo(found))

				result, err = execute(ctx, newExecutor(
					outcome{err: typederrors.NewUnavailableError(nil, "connection refused")},
					outcome{err: typederrors.NewNotFoundError(nil, "no such record")},
				), lookup)
				Expect(err).ToNot(HaveOccurred())
				Expect(result).To(BeNil())
			})

			It("reports when no replica could be reached", func() {
				result, err := execute(ctx, newExecutor(
					outcome{err: typederrors.NewUnavailableError(nil, "connection refused")},
					outcome{err: typederrors.NewUnavailableError(nil, "timeout")},
				), lookup)
				Expect(typederrors.IsUnavailableError(err)).To(BeTrue())
				Expect(result).To(BeNil())
			})
		})
	}

	It("stops at the first replica with a result when running sequentially", func() {
		first := newReplica("first", outcome{record: found})
		second := generated.NewMockReplica(ctrl)
		second.EXPECT().Name().Return("second").AnyTimes()
		second.EXPECT().Lookup(gomock.Any(), gomock.Any()).Times(0)

		set := functor.NewReplicaSet()
		set.Add(first)
		set.Add(second)
		result, err := functor.Execute(ctx, functor.NewExecutor(set, nil), lookup)
		Expect(err).ToNot(HaveOccurred())
		Expect(result).To(BeIdenticalTo(found))
	})

	It("does not start when the context is already canceled", func() {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		replica := generated.NewMockReplica(ctrl)
		replica.EXPECT().Name().Return("summit").AnyTimes()
		replica.EXPECT().Lookup(gomock.Any(), gomock.Any()).Times(0)

		set := functor.NewReplicaSet()
		set.Add(replica)
		_, err := functor.Execute(canceled, functor.NewExecutor(set, nil), lookup)
		Expect(err).To(MatchError(context.Canceled))
	})
})
