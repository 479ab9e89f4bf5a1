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

package worker_test

import (
	"context"
	"net"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/tunicorn/pkg/app"
	"github.com/sabouaram/tunicorn/pkg/config"
	"github.com/sabouaram/tunicorn/pkg/heartbeat"
	"github.com/sabouaram/tunicorn/pkg/logger"
	"github.com/sabouaram/tunicorn/pkg/worker"
)

var _ = Describe("Lookup", func() {
	It("[TC-WRK-001] resolves the goroutine flavor", func() {
		flv, ok := worker.Lookup(config.WorkerClassGoroutine)
		Expect(ok).To(BeTrue())
		Expect(flv).NotTo(BeNil())
	})

	It("[TC-WRK-002] reports false for an unregistered flavor", func() {
		_, ok := worker.Lookup(config.WorkerClass("thread"))
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("goroutine worker", func() {
	It("[TC-WRK-003] echoes a connection and counts the request", func() {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		defer ln.Close()

		hb, err := heartbeat.New(os.TempDir())
		Expect(err).NotTo(HaveOccurred())
		defer hb.Close()

		handle, err := app.Lookup("echo")
		Expect(err).NotTo(HaveOccurred())

		flv, _ := worker.Lookup(config.WorkerClassGoroutine)
		cfg := config.Default()
		w := flv(cfg, handle, hb, logger.New())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go func() { _ = w.Run(ctx, []net.Listener{ln}) }()

		conn, err := net.Dial("tcp", ln.Addr().String())
		Expect(err).NotTo(HaveOccurred())
		defer conn.Close()

		_, err = conn.Write([]byte("hello"))
		Expect(err).NotTo(HaveOccurred())

		buf := make([]byte, 5)
		Expect(conn.SetReadDeadline(time.Now().Add(2 * time.Second))).To(Succeed())
		_, err = conn.Read(buf)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(buf)).To(Equal("hello"))

		Eventually(w.RequestCount, time.Second).Should(BeNumerically(">=", int64(1)))
	})
})
