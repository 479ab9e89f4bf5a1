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

package signaler_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/tunicorn/pkg/signaler"
)

var _ = Describe("Signaler", func() {
	It("[TC-SIG-001] returns false from Next when the queue is empty", func() {
		s := signaler.New()
		_, ok := s.Next()
		Expect(ok).To(BeFalse())
	})

	It("[TC-SIG-002] delivers an enqueued name in FIFO order", func() {
		s := signaler.New()
		s.Enqueue(signaler.HUP)
		s.Enqueue(signaler.TERM)

		first, ok := s.Next()
		Expect(ok).To(BeTrue())
		Expect(first).To(Equal(signaler.HUP))

		second, ok := s.Next()
		Expect(ok).To(BeTrue())
		Expect(second).To(Equal(signaler.TERM))
	})

	It("[TC-SIG-003] bounds the queue to 5 entries, dropping the newest arrival on overflow", func() {
		s := signaler.New()
		names := []signaler.Name{signaler.HUP, signaler.QUIT, signaler.INT, signaler.TERM, signaler.TTIN, signaler.TTOU, signaler.USR1}
		for _, n := range names {
			s.Enqueue(n)
		}

		var drained []signaler.Name
		for {
			n, ok := s.Next()
			if !ok {
				break
			}
			drained = append(drained, n)
		}
		Expect(drained).To(Equal([]signaler.Name{signaler.HUP, signaler.QUIT, signaler.INT, signaler.TERM, signaler.TTIN}))
	})

	It("[TC-SIG-004] Sleep returns promptly on Wake without waiting for max", func() {
		s := signaler.New()
		done := make(chan struct{})
		go func() {
			s.Sleep(time.Minute)
			close(done)
		}()
		// give the goroutine a moment to enter Sleep before waking it.
		time.Sleep(10 * time.Millisecond)
		s.Wake()
		Eventually(done, time.Second).Should(BeClosed())
	})
})
