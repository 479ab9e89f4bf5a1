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

// Package errors provides a package-scoped error code taxonomy shared by
// every tunicorn component, modeled after a "CodeError" registry: each
// package reserves a block of codes and registers a message function for
// them in its own init().
package errors

import (
	"math"
	"strconv"
)

// CodeError is a numeric error code, uint16 wide like an HTTP status but
// scoped per-package instead of per-protocol.
type CodeError uint16

const (
	UnknownError   CodeError = 0
	UnknownMessage           = "unknown error"
)

// Per-package minimum code offsets. Each block reserves 20 codes; packages
// register messages for codes in [Min, Min+20) via RegisterIdFctMessage.
const (
	MinPkgPosixUtil CodeError = 100
	MinPkgHeartbeat CodeError = 120
	MinPkgListener  CodeError = 140
	MinPkgSignaler  CodeError = 160
	MinPkgWorker    CodeError = 180
	MinPkgArbiter   CodeError = 200
	MinPkgApp       CodeError = 220
	MinPkgConfig    CodeError = 240

	MinAvailable CodeError = 1000
)

var idMsgFct = make(map[CodeError]Message)

// Message generates a human string for a registered code.
type Message func(code CodeError) string

// RegisterIdFctMessage registers the message function for the package whose
// codes start at min. Subsequent lookups for any code >= min delegate to fn
// until the next registered boundary.
func RegisterIdFctMessage(min CodeError, fn Message) {
	idMsgFct[min] = fn
}

// ExistInMapMessage reports whether a message function is already
// registered for the package starting at min.
func ExistInMapMessage(min CodeError) bool {
	_, ok := idMsgFct[min]
	return ok
}

func (c CodeError) message() string {
	var best CodeError
	var fn Message
	for min, f := range idMsgFct {
		if c >= min && min >= best {
			best, fn = min, f
		}
	}
	if fn == nil {
		return UnknownMessage
	}
	if m := fn(c); m != "" {
		return m
	}
	return UnknownMessage
}

func (c CodeError) Uint16() uint16 { return uint16(c) }
func (c CodeError) Int() int       { return int(c) }
func (c CodeError) String() string { return strconv.Itoa(c.Int()) }

// ParseCodeError clamps an arbitrary integer into the CodeError range.
func ParseCodeError(i int64) CodeError {
	if i < 0 {
		return UnknownError
	} else if i >= int64(math.MaxUint16) {
		return CodeError(math.MaxUint16)
	}
	return CodeError(i)
}
