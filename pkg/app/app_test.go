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

package app_test

import (
	"net"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/tunicorn/pkg/app"
)

var _ = Describe("Lookup", func() {
	BeforeEach(func() {
		app.Register("greeter", func(callable string) (app.Handle, error) {
			return app.HandleFunc(func(conn net.Conn) error { return nil }), nil
		})
	})

	It("[TC-APP-001] defaults the callable name to application", func() {
		var gotCallable string
		app.Register("captures", func(callable string) (app.Handle, error) {
			gotCallable = callable
			return app.HandleFunc(func(net.Conn) error { return nil }), nil
		})
		_, err := app.Lookup("captures")
		Expect(err).NotTo(HaveOccurred())
		Expect(gotCallable).To(Equal("application"))
	})

	It("[TC-APP-002] parses an explicit callable after the colon", func() {
		var gotCallable string
		app.Register("explicit", func(callable string) (app.Handle, error) {
			gotCallable = callable
			return app.HandleFunc(func(net.Conn) error { return nil }), nil
		})
		_, err := app.Lookup("explicit:handler")
		Expect(err).NotTo(HaveOccurred())
		Expect(gotCallable).To(Equal("handler"))
	})

	It("[TC-APP-003] fails for an unregistered locator", func() {
		_, err := app.Lookup("does-not-exist")
		Expect(err).To(HaveOccurred())
	})

	It("[TC-APP-004] resolves the built-in echo application", func() {
		h, err := app.Lookup("echo")
		Expect(err).NotTo(HaveOccurred())
		Expect(h).NotTo(BeNil())
	})
})
