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
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	liberr "github.com/sabouaram/tunicorn/pkg/errors"
	"github.com/sabouaram/tunicorn/pkg/heartbeat"
	"github.com/sabouaram/tunicorn/pkg/logger"
	"github.com/sabouaram/tunicorn/pkg/posixutil"
)

// env vars the re-exec'd worker child reads on startup to learn its
// role; set only on the child's exec.Cmd.Env, never on the arbiter's
// own environment.
const (
	envWorkerAge       = "TUNICORN_WORKER_AGE"
	envWorkerHBPath    = "TUNICORN_WORKER_HB_PATH"
	envWorkerHBGen     = "TUNICORN_WORKER_HB_GEN"
	envWorkerClass     = "TUNICORN_WORKER_CLASS"
	envWorkerApp       = "TUNICORN_WORKER_APP"
	envWorkerMasterPID = "TUNICORN_WORKER_MASTER_PID"
)

// manageWorkers tops up to target, then trims the oldest survivors down
// to target, emitting the active-worker gauge only when the count
// actually changes.
func (a *Arbiter) manageWorkers() error {
	before := a.workerCount()

	if before < int(a.getNumWorkers()) {
		if err := a.spawnWorkers(); err != nil {
			return err
		}
	}

	a.mu.Lock()
	target := int(a.getNumWorkers())
	for len(a.workers) > target {
		oldest := a.oldestLocked()
		if oldest == nil {
			break
		}
		_ = syscall.Kill(oldest.PID, syscall.SIGTERM)
		delete(a.workers, oldest.PID)
	}
	after := len(a.workers)
	a.mu.Unlock()

	if after != before {
		a.gaugeWorkers.Set(float64(after))
		a.log.Info("worker pool converged", logger.F("active", after), logger.F("target", target))
	}
	return nil
}

func (a *Arbiter) oldestLocked() *WorkerRecord {
	var oldest *WorkerRecord
	for _, w := range a.workers {
		if oldest == nil || w.Age < oldest.Age {
			oldest = w
		}
	}
	return oldest
}

// spawnWorkers spawns serially up to target, desynchronizing each
// child's start with a jittered sleep.
func (a *Arbiter) spawnWorkers() error {
	need := int(a.getNumWorkers()) - a.workerCount()
	for i := 0; i < need; i++ {
		if err := a.spawnWorker(); err != nil {
			return err
		}
		posixutil.JitterSleep(100 * time.Millisecond)
	}
	return nil
}

// spawnWorker re-executes the current binary in place of forking, with
// the inherited listeners passed as ExtraFiles and the worker's
// identity passed via environment variables; the spawned process's own
// main() routes into RunWorkerChild instead of the arbiter.
func (a *Arbiter) spawnWorker() error {
	age := a.nextAge()

	hb, err := heartbeat.New(os.TempDir())
	if err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		_ = hb.Close()
		return err
	}

	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("%s=%d", envWorkerAge, age),
		fmt.Sprintf("%s=%s", envWorkerHBPath, hb.Path()),
		fmt.Sprintf("%s=%s", envWorkerHBGen, hb.Generation),
		fmt.Sprintf("%s=%s", envWorkerClass, string(a.cfg.WorkerClass)),
		fmt.Sprintf("%s=%s", envWorkerApp, a.appName),
		fmt.Sprintf("%s=%d", envWorkerMasterPID, a.masterPID),
	)

	extra := make([]*os.File, 0, len(a.listeners))
	for _, l := range a.listeners {
		extra = append(extra, l.File())
	}
	cmd.ExtraFiles = extra

	if err := cmd.Start(); err != nil {
		_ = hb.Close()
		return err
	}

	rec := &WorkerRecord{
		Age:    age,
		PID:    cmd.Process.Pid,
		Flavor: a.cfg.WorkerClass,
		HB:     hb,
		cmd:    cmd,
	}

	a.mu.Lock()
	a.workers[rec.PID] = rec
	a.mu.Unlock()

	a.log.Info("worker spawned", logger.F("pid", rec.PID), logger.F("age", age))

	go a.awaitExit(rec)

	return nil
}

// awaitExit blocks on the child's exit status and forwards it to
// reapCh — a channel-based substitute for a non-blocking wait-any loop,
// since os/exec gives us one Wait() per child rather than a single
// waitpid(-1, WNOHANG).
func (a *Arbiter) awaitExit(rec *WorkerRecord) {
	err := rec.cmd.Wait()
	code := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		code = exitErr.ExitCode()
	} else if err != nil {
		code = -1
	}
	a.reapCh <- exitReport{pid: rec.PID, code: code, waitErr: err}
	a.sig.Enqueue("chld")
}

// reapWorkers drains every exit report queued since the last call. An
// empty channel simply means nothing has exited since the last drain.
func (a *Arbiter) reapWorkers() error {
	for {
		select {
		case rep := <-a.reapCh:
			if err := a.reapOne(rep); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (a *Arbiter) reapOne(rep exitReport) error {
	a.mu.Lock()
	rec, ok := a.workers[rep.pid]
	if ok {
		delete(a.workers, rep.pid)
	}
	a.mu.Unlock()

	if !ok {
		return nil
	}

	_ = rec.HB.Close()

	switch rep.code {
	case liberr.ExitWorkerBoot:
		return liberr.NewHaltReason("Worker failed to boot", liberr.ExitWorkerBoot)
	case liberr.ExitAppLoadFailure:
		return liberr.NewHaltReason("App failed to load", liberr.ExitAppLoadFailure)
	default:
		a.log.Info("worker reaped", logger.F("pid", rep.pid), logger.F("code", rep.code))
		return nil
	}
}

// murderWorkers is only active when a timeout is configured, escalating
// a stuck worker from SIGABRT to SIGKILL across two consecutive
// detections.
func (a *Arbiter) murderWorkers() {
	if a.cfg.Timeout <= 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	for pid, rec := range a.workers {
		last, err := rec.HB.LastUpdate()
		if err != nil {
			continue
		}

		if now.Sub(last) <= a.cfg.Timeout {
			continue
		}

		if rec.Aborted {
			a.log.Critical("worker stuck, escalating to SIGKILL", nil, logger.F("pid", pid))
			_ = syscall.Kill(pid, syscall.SIGKILL)
		} else {
			rec.Aborted = true
			a.log.Critical("worker stuck, sending SIGABRT", nil, logger.F("pid", pid))
			_ = syscall.Kill(pid, syscall.SIGABRT)
		}
	}
}
