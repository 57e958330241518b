/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	typederrors "github.com/gemini-hlsw/ocs-sub028/internal/typed-errors"
)

var _ = Describe("classifyError", func() {
	It("returns nil for nil", func() {
		Expect(classifyError("summit", nil)).To(Succeed())
	})

	DescribeTable("classifies server errors by code",
		func(code string, isAuth, isUnavailable bool) {
			err := classifyError("summit", fmt.Errorf("query failed: %w", &pgconn.PgError{
				Code:    code,
				Message: "server said no",
			}))
			Expect(err).To(HaveOccurred())
			Expect(typederrors.IsAuthError(err)).To(Equal(isAuth))
			Expect(typederrors.IsUnavailableError(err)).To(Equal(isUnavailable))
			Expect(err.Error()).To(ContainSubstring("summit"))
		},
		Entry("insufficient privilege", "42501", true, false),
		Entry("invalid authorization", "28000", true, false),
		Entry("invalid password", "28P01", true, false),
		Entry("connection failure", "08006", false, true),
		Entry("connection does not exist", "08003", false, true),
		Entry("admin shutdown", "57P01", false, true),
		Entry("cannot connect now", "57P03", false, true),
		Entry("unique violation", "23505", false, false),
	)

	It("reports missing rows as not found", func() {
		err := classifyError("summit", fmt.Errorf("lookup: %w", pgx.ErrNoRows))
		Expect(typederrors.IsNotFoundError(err)).To(BeTrue())
	})

	It("keeps typed and context errors", func() {
		notFound := typederrors.NewNotFoundError(nil, "observation not hosted")
		Expect(classifyError("summit", notFound)).To(Equal(notFound))
		invariant := typederrors.NewInvariantError(nil, "label mismatch")
		Expect(classifyError("summit", invariant)).To(Equal(invariant))
		Expect(errors.Is(classifyError("summit", context.Canceled), context.Canceled)).To(BeTrue())
	})

	It("wraps other errors", func() {
		cause := errors.New("boom")
		err := classifyError("base", cause)
		Expect(errors.Is(err, cause)).To(BeTrue())
		Expect(typederrors.IsUnavailableError(err)).To(BeFalse())
		Expect(err.Error()).To(Equal("replica base failed: boom"))
	})
})
