// Package cos provides common low-level types and utilities for all graphbolt packages
/*
 * Copyright (c) 2024, The Graphbolt Authors. All rights reserved.
 */
package cos_test

import (
	"io"

	"github.com/graphbolt/graphbolt/cmn/cos"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
)

var _ = Describe("Err", func() {
	Describe("ErrServerFailure", func() {
		it := cos.NewErrServerFailure("Neo.ClientError.Statement.SyntaxError", "oops")

		It("matches ErrStatementEvaluationFailed", func() {
			Expect(errors.Is(it, cos.ErrStatementEvaluationFailed)).To(BeTrue())
		})
		It("is not fatal for the session", func() {
			Expect(cos.IsErrFatal(it)).To(BeFalse())
		})
		It("survives wrapping", func() {
			wrapped := errors.Wrap(it, "RUN failed")
			Expect(cos.IsErrServerFailure(wrapped)).To(BeTrue())
			Expect(cos.IsErrFatal(wrapped)).To(BeFalse())
		})
	})

	Describe("ErrUnexpectedMessage", func() {
		it := cos.NewErrUnexpectedMessage("RECORD", "RUN", "SUCCESS")

		It("is a protocol error and fatal", func() {
			Expect(cos.IsErrProtocol(it)).To(BeTrue())
			Expect(cos.IsErrFatal(it)).To(BeTrue())
		})
	})

	Describe("predicates", func() {
		It("classifies transport errors", func() {
			Expect(cos.IsErrTransport(io.ErrUnexpectedEOF)).To(BeTrue())
			Expect(cos.IsErrTransport(cos.ErrProtocol)).To(BeFalse())
		})
		It("keeps previous-failure and reset non-fatal", func() {
			Expect(cos.IsErrFatal(cos.ErrStatementPreviousFailure)).To(BeFalse())
			Expect(cos.IsErrFatal(cos.ErrSessionReset)).To(BeFalse())
			Expect(cos.IsErrFatal(cos.ErrSessionEnded)).To(BeTrue())
		})
	})
})
