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

// Process exit codes returned by the arbiter and its worker children.
// ExitUnexpected is -1; POSIX only carries the low byte of an exit status,
// so os.Exit(-1) and os.Exit(255) are observationally identical — callers
// should use ExitUnexpected rather than hardcoding either literal.
const (
	ExitOK             = 0
	ExitFatalStartup   = 1
	ExitWorkerBoot     = 3
	ExitAppLoadFailure = 4
	ExitUnexpected     = -1
)

// HaltReason carries the reason and exit status of a halt condition from
// reapWorkers up to Run's halt() call — a returned error standing in for
// raising a control-flow exception up the call stack.
type HaltReason struct {
	Reason string
	Status int
}

func (h HaltReason) Error() string { return h.Reason }

// NewHaltReason constructs a HaltReason error.
func NewHaltReason(reason string, status int) HaltReason {
	return HaltReason{Reason: reason, Status: status}
}
