/*
 * MIT License
 *
 * Copyright (c) 2025 tunicorn authors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package errors_test

import (
	goerrors "errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	liberr "github.com/sabouaram/tunicorn/pkg/errors"
)

const testMinPkg liberr.CodeError = liberr.MinAvailable

const testCode liberr.CodeError = testMinPkg + 1

func init() {
	liberr.RegisterIdFctMessage(testMinPkg, func(code liberr.CodeError) string {
		if code == testCode {
			return "synthetic test error"
		}
		return ""
	})
}

var _ = Describe("CodeError", func() {
	It("[TC-ERR-001] carries its registered message", func() {
		e := testCode.Error(nil)
		Expect(e.Error()).To(Equal("synthetic test error"))
		Expect(e.Code()).To(Equal(testCode))
	})

	It("[TC-ERR-002] accumulates parents without discarding the first", func() {
		parent := goerrors.New("boom")
		e := testCode.Error(parent)
		Expect(e.HasParent()).To(BeTrue())
		e.Add(goerrors.New("also boom"))
		Expect(e.Parents()).To(HaveLen(2))
	})

	It("[TC-ERR-003] falls back to the unknown message for an unregistered code", func() {
		unregistered := liberr.ParseCodeError(65000)
		Expect(unregistered.Error(nil).Error()).To(Equal(liberr.UnknownMessage))
	})
})

var _ = Describe("HaltReason", func() {
	It("[TC-ERR-004] carries its reason as the error string", func() {
		h := liberr.NewHaltReason("Worker failed to boot", liberr.ExitWorkerBoot)
		Expect(h.Error()).To(Equal("Worker failed to boot"))
		Expect(h.Status).To(Equal(liberr.ExitWorkerBoot))
	})
})
