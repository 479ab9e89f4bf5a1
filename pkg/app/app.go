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

// Package app resolves the locator string naming the application a
// worker serves into a concrete Handle, standing in for a
// "module:callable" dynamic import — Go has no runtime import, so the
// locator instead picks a name out of a compile-time registry.
package app

import (
	"net"
	"strings"

	liberr "github.com/sabouaram/tunicorn/pkg/errors"
)

const (
	ErrUnknownLocator liberr.CodeError = iota + liberr.MinPkgApp
	ErrLoadFailed
)

func init() {
	liberr.RegisterIdFctMessage(liberr.MinPkgApp, getMessage)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case ErrUnknownLocator:
		return "no application registered under this locator"
	case ErrLoadFailed:
		return "application failed to load"
	}
	return ""
}

const defaultCallable = "application"

// Handle is what a worker actually runs against each accepted
// connection, the Go shape of a WSGI/ASGI-style callable.
type Handle interface {
	// Serve handles a single accepted connection end to end.
	Serve(conn net.Conn) error
}

// Factory builds a Handle, given the callable name parsed out of the
// locator string — most registrations ignore the callable and always
// return the same Handle, but it is threaded through for parity with
// the module:callable grammar.
type Factory func(callable string) (Handle, error)

var registry = map[string]Factory{}

// Register adds an application factory under module, the left-hand side
// of a "module:callable" locator.
func Register(module string, f Factory) {
	registry[module] = f
}

// Lookup parses a locator of the form "module[:callable]" (callable
// defaults to "application") and builds the corresponding Handle.
func Lookup(locator string) (Handle, error) {
	module, callable := locator, defaultCallable
	if idx := strings.IndexByte(locator, ':'); idx >= 0 {
		module, callable = locator[:idx], locator[idx+1:]
	}

	f, ok := registry[module]
	if !ok {
		return nil, ErrUnknownLocator.Error(nil)
	}

	h, err := f(callable)
	if err != nil {
		return nil, ErrLoadFailed.Error(err)
	}
	return h, nil
}

// HandleFunc adapts a plain function to the Handle interface, the Go
// analogue of a bare WSGI callable with no surrounding object.
type HandleFunc func(conn net.Conn) error

func (f HandleFunc) Serve(conn net.Conn) error { return f(conn) }
