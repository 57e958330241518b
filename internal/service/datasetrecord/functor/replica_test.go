/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package functor_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord/functor"
	"github.com/gemini-hlsw/ocs-sub028/internal/service/datasetrecord/functor/generated"
)

var _ = Describe("ReplicaSet", func() {
	var (
		ctrl *gomock.Controller
		set  *functor.ReplicaSet
	)

	named := func(name string) *generated.MockReplica {
		replica := generated.NewMockReplica(ctrl)
		replica.EXPECT().Name().Return(name).AnyTimes()
		return replica
	}

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
		set = functor.NewReplicaSet()
	})

	It("keeps replicas in registration order", func() {
		summit, base := named("summit"), named("base")
		Expect(set.Add(summit)).To(BeTrue())
		Expect(set.Add(base)).To(BeTrue())
		Expect(set.Snapshot()).To(Equal([]functor.Replica{summit, base}))
		Expect(set.Len()).To(Equal(2))
	})

	It("rejects a second replica with the same name", func() {
		Expect(set.Add(named("summit"))).To(BeTrue())
		Expect(set.Add(named("summit"))).To(BeFalse())
		Expect(set.Len()).To(Equal(1))
	})

	It("finds and removes replicas by name", func() {
		summit := named("summit")
		set.Add(summit)

		found, ok := set.Get("summit")
		Expect(ok).To(BeTrue())
		Expect(found).To(BeIdenticalTo(summit))

		removed, ok := set.Remove("summit")
		Expect(ok).To(BeTrue())
		Expect(removed).To(BeIdenticalTo(summit))

		_, ok = set.Get("summit")
		Expect(ok).To(BeFalse())
		_, ok = set.Remove("summit")
		Expect(ok).To(BeFalse())
	})

	It("does not change snapshots taken before a modification", func() {
		set.Add(named("summit"))
		snapshot := set.Snapshot()

		set.Add(named("base"))
		set.Remove("summit")

		Expect(snapshot).To(HaveLen(1))
		Expect(snapshot[0].Name()).To(Equal("summit"))
		Expect(set.Snapshot()[0].Name()).To(Equal("base"))
	})
})
