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

package errors

import "strings"

// Error is a code-carrying error that can accumulate parent errors, the
// way a worker-pool-wide operation (stop every listener, signal every
// worker) accumulates one failure per item without stopping early.
type Error interface {
	error
	Code() CodeError
	Add(parents ...error)
	HasParent() bool
	Parents() []error
}

type ers struct {
	code CodeError
	msg  string
	p    []error
}

// Error constructs a new Error for code, wrapping an optional parent.
func (c CodeError) Error(parent error) Error {
	e := &ers{code: c, msg: c.message()}
	if parent != nil {
		e.p = append(e.p, parent)
	}
	return e
}

func (e *ers) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return e.code.message()
}

func (e *ers) Code() CodeError { return e.code }

func (e *ers) Add(parents ...error) {
	for _, p := range parents {
		if p != nil {
			e.p = append(e.p, p)
		}
	}
}

func (e *ers) HasParent() bool { return len(e.p) > 0 }

func (e *ers) Parents() []error { return e.p }

// Join renders the error followed by every parent on a single line,
// each separated by "; ".
func Join(e Error) string {
	if e == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(e.Error())
	for _, p := range e.Parents() {
		sb.WriteString("; ")
		sb.WriteString(p.Error())
	}
	return sb.String()
}
