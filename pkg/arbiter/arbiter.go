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

// Package arbiter is the master: it owns the listeners, spawns and
// reaps workers, runs the signal-driven control loop, and enforces
// worker count and heartbeat timeouts.
//
// Go cannot fork a running multi-threaded process and keep going in the
// child; a post-fork child here would inherit a runtime scheduler
// mid-flight with no guarantee its threads survived the call. Tunicorn
// instead re-executes its own binary per worker (os/exec, ExtraFiles for
// the inherited listener fds, a TUNICORN_WORKER_AGE env var marking the
// child role) — the same technique as a socket handoff, just applied to
// the whole process instead of one fd. The observable worker lifecycle
// (age, pid, heartbeat, signal-driven shutdown) stays the same either way.
package arbiter

import (
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sabouaram/tunicorn/pkg/app"
	"github.com/sabouaram/tunicorn/pkg/config"
	liberr "github.com/sabouaram/tunicorn/pkg/errors"
	"github.com/sabouaram/tunicorn/pkg/heartbeat"
	"github.com/sabouaram/tunicorn/pkg/listener"
	"github.com/sabouaram/tunicorn/pkg/logger"
	"github.com/sabouaram/tunicorn/pkg/signaler"
)

const (
	ErrListenersExhausted liberr.CodeError = iota + liberr.MinPkgArbiter
	ErrNotImplemented
	ErrAppLocator
)

func init() {
	liberr.RegisterIdFctMessage(liberr.MinPkgArbiter, getMessage)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case ErrListenersExhausted:
		return "failed to bind listeners after retries"
	case ErrNotImplemented:
		return "feature not implemented"
	case ErrAppLocator:
		return "failed to resolve application locator"
	}
	return ""
}

// masterPidEnvVar names the process this arbiter is the replacement
// child of, across a re-exec.
const masterPidEnvVar = "TUNICORN_PID"

// pollInterval bounds the master's idle wait between control-loop
// iterations.
const pollInterval = 5 * time.Second

// WorkerRecord is the master-side bookkeeping for one live worker
// process.
type WorkerRecord struct {
	Age     uint64
	PID     int
	Flavor  config.WorkerClass
	Aborted bool
	HB      *heartbeat.Heartbeat
	cmd     exitWaiter
}

// exitWaiter is satisfied by *exec.Cmd; narrowed to keep arbiter_test
// able to fake a worker process without spawning a real one.
type exitWaiter interface {
	Wait() error
}

type exitReport struct {
	pid      int
	code     int
	waitErr  error
}

// Arbiter is the master process: it owns every listener and every
// worker record for its lifetime.
type Arbiter struct {
	mu      sync.Mutex
	workers map[int]*WorkerRecord

	listeners  []*listener.Listener
	cfg        config.Config
	configPath string
	appHandle  app.Handle
	appName    string

	age        uint64 // atomic
	numWorkers int32  // atomic

	masterPID       int
	reexecPID       *int
	parentMasterPID *int

	sig *signaler.Signaler
	log logger.Logger

	reapCh chan exitReport

	listenersClosed bool

	gaugeWorkers prometheus.Gauge
}

// New constructs an Arbiter over already-bound listeners and a resolved
// application handle; Start still needs to be called before Run.
// configPath is the file Reload re-reads cfg from; it may be empty, in
// which case Reload only re-resolves the app locator and cycles workers.
func New(cfg config.Config, configPath string, ls []*listener.Listener, appHandle app.Handle, appName string, log logger.Logger) *Arbiter {
	return &Arbiter{
		workers:    make(map[int]*WorkerRecord),
		listeners:  ls,
		cfg:        cfg,
		configPath: configPath,
		appHandle:  appHandle,
		appName:    appName,
		numWorkers: int32(cfg.Workers),
		sig:        signaler.New(),
		log:        log.WithComponent("arbiter"),
		reapCh:     make(chan exitReport, 64),
		gaugeWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tunicorn_active_workers",
			Help: "Number of currently live worker processes.",
		}),
	}
}

// Start records identity, detects a re-exec parent, installs signal
// handling, and logs readiness. Listener binding itself has already
// happened (or been inherited) by the time New is called, since
// CreateSockets/Inherit must run before any worker can be spawned.
func (a *Arbiter) Start() {
	a.masterPID = os.Getpid()

	if raw := os.Getenv(masterPidEnvVar); raw != "" {
		if pid, err := strconv.Atoi(raw); err == nil {
			a.parentMasterPID = &pid
		}
	}

	a.sig.Init()

	if a.cfg.PidFile != "" {
		if err := writePidFile(a.cfg.PidFile, a.masterPID); err != nil {
			a.log.Warn("failed to write pid file", logger.F("path", a.cfg.PidFile), logger.F("error", err.Error()))
		}
	}

	addrs := make([]string, 0, len(a.listeners))
	for _, l := range a.listeners {
		addrs = append(addrs, l.Endpoint.String())
	}
	a.log.Info("arbiter starting",
		logger.F("pid", a.masterPID),
		logger.F("listen", addrs),
		logger.F("worker_class", string(a.cfg.WorkerClass)),
		logger.F("workers", a.cfg.Workers),
	)

	if a.parentMasterPID != nil {
		a.log.Info("running as re-exec replacement", logger.F("parent_pid", *a.parentMasterPID))
	}
}

func (a *Arbiter) setNumWorkers(n int32) { atomic.StoreInt32(&a.numWorkers, n) }
func (a *Arbiter) getNumWorkers() int32  { return atomic.LoadInt32(&a.numWorkers) }
func (a *Arbiter) nextAge() uint64       { return atomic.AddUint64(&a.age, 1) }

// workerCount returns the live worker count under lock.
func (a *Arbiter) workerCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.workers)
}

// Run is the control loop: it tops up workers, blocks for the next
// pending signal or a poll timeout, and dispatches until it decides to
// halt. It returns the process exit status to pass to os.Exit.
func (a *Arbiter) Run() int {
	if err := a.manageWorkers(); err != nil {
		return a.halt(err.Error(), exitStatus(err))
	}

	for {
		name, ok := a.sig.Next()
		if !ok {
			a.sig.Sleep(pollInterval)
			a.murderWorkers()
			if err := a.manageWorkers(); err != nil {
				return a.halt(err.Error(), exitStatus(err))
			}
			continue
		}

		action, err := a.dispatch(name)
		if err != nil {
			return a.halt(err.Error(), exitStatus(err))
		}
		a.sig.Wake()

		switch action {
		case loopShutdownGraceful:
			return a.halt("received shutdown signal", liberr.ExitOK)
		case loopShutdownImmediate:
			a.stop(false)
			return liberr.ExitOK
		}
	}
}

// loopAction is what a signal handler returns to tell Run what to do
// next, instead of raising a control-flow exception past it.
type loopAction int

const (
	loopContinue loopAction = iota
	loopShutdownGraceful
	loopShutdownImmediate
)

func exitStatus(err error) int {
	if hr, ok := err.(liberr.HaltReason); ok {
		return hr.Status
	}
	return liberr.ExitUnexpected
}
