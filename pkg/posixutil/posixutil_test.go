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

package posixutil_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/tunicorn/pkg/posixutil"
)

var _ = Describe("JitterSleep", func() {
	It("[TC-PSX-001] returns immediately for a zero or negative max", func() {
		start := time.Now()
		posixutil.JitterSleep(0)
		posixutil.JitterSleep(-time.Second)
		Expect(time.Since(start)).To(BeNumerically("<", 50*time.Millisecond))
	})

	It("[TC-PSX-002] never sleeps longer than max", func() {
		const max = 20 * time.Millisecond
		start := time.Now()
		posixutil.JitterSleep(max)
		Expect(time.Since(start)).To(BeNumerically("<", max+500*time.Millisecond))
	})
})

var _ = Describe("Reseed", func() {
	It("[TC-PSX-003] does not panic", func() {
		Expect(func() { posixutil.Reseed() }).NotTo(Panic())
	})
})
