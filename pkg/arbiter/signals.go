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

package arbiter

import (
	"syscall"

	"github.com/sabouaram/tunicorn/pkg/logger"
	"github.com/sabouaram/tunicorn/pkg/signaler"
)

// dispatch resolves a queued signal name to its handle<Name> method and
// invokes it, returning the loop action it produced (or an error when
// the handler surfaces a HaltReason, e.g. from handleChld's reapWorkers
// call).
func (a *Arbiter) dispatch(name signaler.Name) (loopAction, error) {
	switch name {
	case signaler.HUP:
		return a.handleHup()
	case signaler.QUIT:
		return a.handleQuit()
	case signaler.INT:
		return a.handleInt()
	case signaler.TERM:
		return a.handleTerm()
	case signaler.TTIN:
		return a.handleTtin()
	case signaler.TTOU:
		return a.handleTtou()
	case signaler.USR1:
		return a.handleUsr1()
	case signaler.USR2:
		return a.handleUsr2()
	case signaler.WINCH:
		return a.handleWinch()
	case signaler.CHLD:
		return a.handleChld()
	default:
		a.log.Warn("unrecognized signal", logger.F("signal", string(name)))
		return loopContinue, nil
	}
}

func (a *Arbiter) handleHup() (loopAction, error) {
	if err := a.Reload(); err != nil {
		a.log.Warn("HUP reload failed, keeping running configuration", logger.F("error", err.Error()))
	}
	return loopContinue, nil
}

func (a *Arbiter) handleQuit() (loopAction, error) {
	return loopShutdownImmediate, nil
}

func (a *Arbiter) handleInt() (loopAction, error) {
	return loopShutdownImmediate, nil
}

func (a *Arbiter) handleTerm() (loopAction, error) {
	return loopShutdownGraceful, nil
}

func (a *Arbiter) handleTtin() (loopAction, error) {
	a.setNumWorkers(a.getNumWorkers() + 1)
	_ = a.manageWorkers()
	return loopContinue, nil
}

func (a *Arbiter) handleTtou() (loopAction, error) {
	if a.getNumWorkers() > 1 {
		a.setNumWorkers(a.getNumWorkers() - 1)
		_ = a.manageWorkers()
	}
	return loopContinue, nil
}

// handleUsr1 fans SIGUSR1 to every worker — conventionally "reopen your
// log files", though tunicorn itself does not own worker log files.
func (a *Arbiter) handleUsr1() (loopAction, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for pid := range a.workers {
		_ = syscall.Kill(pid, syscall.SIGUSR1)
	}
	return loopContinue, nil
}

// handleUsr2 re-execs a new master generation, then drains and stops
// this generation's own workers gracefully, leaving the fresh process to
// spawn its own worker set against the same listeners.
func (a *Arbiter) handleUsr2() (loopAction, error) {
	if err := a.Reexec(); err != nil {
		a.log.Warn("USR2 re-exec failed", logger.F("error", err.Error()))
		return loopContinue, nil
	}
	return loopShutdownGraceful, nil
}

// handleWinch is daemon-mode specific; tunicorn never daemonizes
// itself, so this is a documented no-op rather than a silent drop.
func (a *Arbiter) handleWinch() (loopAction, error) {
	return loopContinue, nil
}

func (a *Arbiter) handleChld() (loopAction, error) {
	if err := a.reapWorkers(); err != nil {
		return loopContinue, err
	}
	a.sig.Wake()
	return loopContinue, nil
}
