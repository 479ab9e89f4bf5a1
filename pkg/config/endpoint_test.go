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

package config_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/tunicorn/pkg/config"
)

var _ = Describe("ParseEndpoint", func() {
	It("[TC-CFG-001] defaults an empty address to 0.0.0.0:8000", func() {
		ep, err := config.ParseEndpoint("")
		Expect(err).NotTo(HaveOccurred())
		Expect(ep.Kind).To(Equal(config.KindTCP))
		Expect(ep.Host).To(Equal("0.0.0.0"))
		Expect(ep.Port).To(Equal(8000))
	})

	It("[TC-CFG-002] parses a unix socket path", func() {
		ep, err := config.ParseEndpoint("unix:/tmp/s.sock")
		Expect(err).NotTo(HaveOccurred())
		Expect(ep.Kind).To(Equal(config.KindUnix))
		Expect(ep.Path).To(Equal("/tmp/s.sock"))
	})

	It("[TC-CFG-003] parses a bracketed IPv6 literal with port", func() {
		ep, err := config.ParseEndpoint("[::1]:9000")
		Expect(err).NotTo(HaveOccurred())
		Expect(ep.Kind).To(Equal(config.KindTCP6))
		Expect(ep.Host).To(Equal("::1"))
		Expect(ep.Port).To(Equal(9000))
	})

	It("[TC-CFG-004] rejects a non-numeric port", func() {
		_, err := config.ParseEndpoint("host:abc")
		Expect(err).To(HaveOccurred())
	})

	It("[TC-CFG-005] round-trips the canonical form for tcp and tcp6", func() {
		for _, s := range []string{"127.0.0.1:8080", "[::1]:9000"} {
			ep, err := config.ParseEndpoint(s)
			Expect(err).NotTo(HaveOccurred())
			back, err := config.ParseEndpoint(ep.String())
			Expect(err).NotTo(HaveOccurred())
			Expect(back).To(Equal(ep))
		}
	})

	It("[TC-CFG-006] strips the tcp:// scheme prefix", func() {
		ep, err := config.ParseEndpoint("tcp://example.com:1234")
		Expect(err).NotTo(HaveOccurred())
		Expect(ep.Host).To(Equal("example.com"))
		Expect(ep.Port).To(Equal(1234))
	})
})

var _ = Describe("Config.Validate", func() {
	It("[TC-CFG-007] rejects a config with no bind address", func() {
		c := config.Default()
		c.Bind = nil
		Expect(c.Validate()).To(HaveOccurred())
	})

	It("[TC-CFG-008] rejects a worker count below 1", func() {
		c := config.Default()
		c.Workers = 0
		Expect(c.Validate()).To(HaveOccurred())
	})

	It("[TC-CFG-009] rejects an unknown worker class", func() {
		c := config.Default()
		c.WorkerClass = "thread"
		Expect(c.Validate()).To(HaveOccurred())
	})

	It("[TC-CFG-010] accepts the defaults unmodified", func() {
		Expect(config.Default().Validate()).NotTo(HaveOccurred())
	})

	It("[TC-CFG-011] accepts the sync worker class", func() {
		c := config.Default()
		c.WorkerClass = config.WorkerClassSync
		Expect(c.Validate()).NotTo(HaveOccurred())
	})
})

var _ = Describe("Default", func() {
	It("[TC-CFG-012] sets a 2048-entry listen backlog", func() {
		Expect(config.Default().Backlog).To(Equal(2048))
	})

	It("[TC-CFG-013] leaves Chdir, Env and InitGroups unset", func() {
		c := config.Default()
		Expect(c.Chdir).To(BeEmpty())
		Expect(c.Env).To(BeEmpty())
		Expect(c.InitGroups).To(BeFalse())
	})
})
