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

package listener_test

import (
	"fmt"
	"net"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/tunicorn/pkg/config"
	"github.com/sabouaram/tunicorn/pkg/listener"
)

var _ = Describe("CreateSockets", func() {
	It("[TC-LIS-001] binds an ephemeral TCP endpoint that accepts a connection", func() {
		cfg := config.Default()
		cfg.Bind = []config.Endpoint{{Kind: config.KindTCP, Host: "127.0.0.1", Port: 0}}

		ls, err := listener.CreateSockets(cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(ls).To(HaveLen(1))
		defer ls[0].Close()

		conn, err := net.Dial("tcp", ls[0].Addr().String())
		Expect(err).NotTo(HaveOccurred())
		_ = conn.Close()
	})

	It("[TC-LIS-002] binds a unix socket under a temp directory", func() {
		sock := filepath.Join(GinkgoT().TempDir(), "tunicorn-test.sock")
		cfg := config.Default()
		cfg.Bind = []config.Endpoint{{Kind: config.KindUnix, Path: sock}}

		ls, err := listener.CreateSockets(cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(ls).To(HaveLen(1))
		defer ls[0].Close()

		_, err = os.Stat(sock)
		Expect(err).NotTo(HaveOccurred())

		conn, err := net.Dial("unix", sock)
		Expect(err).NotTo(HaveOccurred())
		_ = conn.Close()
	})

	It("[TC-LIS-003] removes the unix socket file on Close", func() {
		sock := filepath.Join(GinkgoT().TempDir(), "tunicorn-test2.sock")
		cfg := config.Default()
		cfg.Bind = []config.Endpoint{{Kind: config.KindUnix, Path: sock}}

		ls, err := listener.CreateSockets(cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(ls[0].Close()).To(Succeed())

		_, err = os.Stat(sock)
		Expect(os.IsNotExist(err)).To(BeTrue())
	})
})

var _ = Describe("Export/Inherit", func() {
	It("[TC-LIS-004] returns nil, nil when no inherit spec is set", func() {
		Expect(os.Unsetenv(listener.InheritEnvVar)).To(Succeed())
		ls, err := listener.Inherit([]config.Endpoint{{Kind: config.KindTCP, Host: "127.0.0.1", Port: 0}})
		Expect(err).NotTo(HaveOccurred())
		Expect(ls).To(BeNil())
	})

	It("[TC-LIS-005] round-trips a bound listener's fd through Export/Inherit", func() {
		cfg := config.Default()
		cfg.Bind = []config.Endpoint{{Kind: config.KindTCP, Host: "127.0.0.1", Port: 0}}

		ls, err := listener.CreateSockets(cfg)
		Expect(err).NotTo(HaveOccurred())
		defer ls[0].Close()

		spec := listener.Export(ls, ls[0].Fd())
		Expect(spec).To(Equal(fmt.Sprintf("%d:1", ls[0].Fd())))

		Expect(os.Setenv(listener.InheritEnvVar, spec)).To(Succeed())
		defer os.Unsetenv(listener.InheritEnvVar)

		inherited, err := listener.Inherit(cfg.Bind)
		Expect(err).NotTo(HaveOccurred())
		Expect(inherited).To(HaveLen(1))
		Expect(inherited[0].Endpoint).To(Equal(cfg.Bind[0]))
		defer inherited[0].Close()

		conn, err := net.Dial("tcp", ls[0].Addr().String())
		Expect(err).NotTo(HaveOccurred())
		_ = conn.Close()
	})

	It("[TC-LIS-006] returns nil, nil when the inherited count doesn't match the configured binds", func() {
		Expect(os.Setenv(listener.InheritEnvVar, "3:1")).To(Succeed())
		defer os.Unsetenv(listener.InheritEnvVar)

		ls, err := listener.Inherit([]config.Endpoint{
			{Kind: config.KindTCP, Host: "127.0.0.1", Port: 0},
			{Kind: config.KindTCP, Host: "127.0.0.1", Port: 0},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(ls).To(BeNil())
	})
})
