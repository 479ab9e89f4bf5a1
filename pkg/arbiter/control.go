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
	"time"

	"github.com/sabouaram/tunicorn/pkg/logger"
)

const (
	murderPollInterval = 100 * time.Millisecond
)

// stop closes every listener (unless a re-exec or a prior master is
// active), signals every worker, then busy-waits up to the configured
// graceful timeout before escalating survivors to SIGKILL. Calling stop
// twice is a no-op the second time: listeners are only closed, and
// workers only signalled, while there is something left to act on.
func (a *Arbiter) stop(graceful bool) {
	if a.reexecPID == nil && a.parentMasterPID == nil {
		a.closeListeners()
	}

	sig := syscall.SIGTERM
	if !graceful {
		sig = syscall.SIGQUIT
	}

	a.mu.Lock()
	pids := make([]int, 0, len(a.workers))
	for pid := range a.workers {
		pids = append(pids, pid)
	}
	a.mu.Unlock()

	for _, pid := range pids {
		_ = syscall.Kill(pid, sig)
	}

	deadline := time.Now().Add(a.cfg.GracefulTime)
	for time.Now().Before(deadline) && a.workerCount() > 0 {
		_ = a.reapWorkers()
		time.Sleep(murderPollInterval)
	}

	a.mu.Lock()
	survivors := make([]int, 0, len(a.workers))
	for pid := range a.workers {
		survivors = append(survivors, pid)
	}
	a.mu.Unlock()

	for _, pid := range survivors {
		_ = syscall.Kill(pid, syscall.SIGKILL)
	}
}

func (a *Arbiter) closeListeners() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listenersClosed {
		return
	}
	for _, l := range a.listeners {
		_ = l.Close()
	}
	a.listeners = nil
	a.listenersClosed = true
}

// halt runs a graceful stop, logs, removes the pid file if configured,
// and returns the exit status for main to pass to os.Exit.
func (a *Arbiter) halt(reason string, status int) int {
	a.stop(true)
	a.log.Info("arbiter halting", logger.F("reason", reason), logger.F("status", status))
	if a.cfg.PidFile != "" && a.reexecPID == nil {
		_ = removePidFile(a.cfg.PidFile)
	}
	return status
}
