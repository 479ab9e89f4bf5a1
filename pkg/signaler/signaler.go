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

// Package signaler is the arbiter's self-pipe: os/signal.Notify into a
// buffered channel, drained by the control loop's select instead of
// running handler bodies on a signal-delivery stack.
package signaler

import (
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Name is the lowercased signal name used as a handler-dispatch key, e.g.
// "hup", "chld", "usr1".
type Name string

const (
	HUP   Name = "hup"
	QUIT  Name = "quit"
	INT   Name = "int"
	TERM  Name = "term"
	TTIN  Name = "ttin"
	TTOU  Name = "ttou"
	USR1  Name = "usr1"
	USR2  Name = "usr2"
	WINCH Name = "winch"
	CHLD  Name = "chld"
)

var registered = map[os.Signal]Name{
	syscall.SIGHUP:   HUP,
	syscall.SIGQUIT:  QUIT,
	syscall.SIGINT:   INT,
	syscall.SIGTERM:  TERM,
	syscall.SIGTTIN:  TTIN,
	syscall.SIGTTOU:  TTOU,
	syscall.SIGUSR1:  USR1,
	syscall.SIGUSR2:  USR2,
	syscall.SIGWINCH: WINCH,
	syscall.SIGCHLD:  CHLD,
}

// queueCapacity bounds the pending-signal queue; a burst beyond this
// drops the newest signal, keeping whatever was already pending.
const queueCapacity = 5

// Signaler multiplexes the fixed set of arbiter-relevant signals onto a
// single bounded queue, plus a zero-value wake channel nudged whenever
// something besides a signal needs the control loop's attention (a
// reaped child, a completed spawn).
type Signaler struct {
	sigCh  chan os.Signal
	queue  chan Name
	wakeCh chan struct{}
}

// New constructs a Signaler without registering it for delivery — call
// Init to start receiving.
func New() *Signaler {
	return &Signaler{
		sigCh:  make(chan os.Signal, queueCapacity),
		queue:  make(chan Name, queueCapacity),
		wakeCh: make(chan struct{}, 1),
	}
}

// Init registers the fixed signal set with signal.Notify and starts the
// goroutine that drains sigCh into the bounded Name queue. Calling Init
// again (post-fork, post-reexec) first stops the previous registration,
// so a child never inherits a stale notification against its parent's
// channel.
func (s *Signaler) Init() {
	signal.Stop(s.sigCh)

	sigs := make([]os.Signal, 0, len(registered))
	for sig := range registered {
		sigs = append(sigs, sig)
	}
	signal.Notify(s.sigCh, sigs...)

	go s.pump()
}

func (s *Signaler) pump() {
	for sig := range s.sigCh {
		name, ok := registered[sig]
		if !ok {
			continue
		}
		select {
		case s.queue <- name:
		default:
			// queue saturated at capacity 5: the incoming signal is
			// silently dropped, not the pending ones.
		}
		s.Wake()
	}
}

// Stop unregisters signal delivery, used before a full process exit.
func (s *Signaler) Stop() {
	signal.Stop(s.sigCh)
}

// Enqueue injects a synthetic signal, used by tests and by awaitExit to
// fold a reaped child's exit into the normal signal-dispatch path
// without a real kill(2).
func (s *Signaler) Enqueue(n Name) {
	select {
	case s.queue <- n:
	default:
	}
	s.Wake()
}

// Wake nudges Sleep to return immediately, without a pending signal —
// used after reaping a child or finishing a spawn so the control loop
// re-evaluates manageWorkers promptly.
func (s *Signaler) Wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

// Next returns the oldest queued signal name, or "" if none is pending.
func (s *Signaler) Next() (Name, bool) {
	select {
	case n := <-s.queue:
		return n, true
	default:
		return "", false
	}
}

// Sleep blocks until a signal arrives, Wake is called, or max elapses —
// the arbiter's run loop idle wait.
func (s *Signaler) Sleep(max time.Duration) {
	t := time.NewTimer(max)
	defer t.Stop()
	select {
	case <-s.wakeCh:
	case <-t.C:
	}
}
