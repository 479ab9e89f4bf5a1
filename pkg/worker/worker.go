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

// Package worker holds the per-connection-model implementations a worker
// process runs: the accept/serve loop and its heartbeat cadence. Signals
// reach a flavor only as cancellation of the context passed to Run.
package worker

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/sabouaram/tunicorn/pkg/app"
	"github.com/sabouaram/tunicorn/pkg/config"
	liberr "github.com/sabouaram/tunicorn/pkg/errors"
	"github.com/sabouaram/tunicorn/pkg/heartbeat"
	"github.com/sabouaram/tunicorn/pkg/logger"
)

const (
	ErrAccept liberr.CodeError = iota + liberr.MinPkgWorker
	ErrServe
)

func init() {
	liberr.RegisterIdFctMessage(liberr.MinPkgWorker, getMessage)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case ErrAccept:
		return "worker accept failed"
	case ErrServe:
		return "worker connection handling failed"
	}
	return ""
}

// Worker is the interface every connection-model flavor implements; the
// arbiter only ever talks to a Worker, never to a flavor's concrete type.
type Worker interface {
	// Run blocks serving connections from listeners until ctx is
	// cancelled or a fatal accept error occurs.
	Run(ctx context.Context, listeners []net.Listener) error

	// RequestCount returns the number of connections handed to the
	// application so far.
	RequestCount() int64
}

// Flavor identifies a Worker constructor registered under a
// config.WorkerClass name, the Go analogue of a dynamic worker-class
// import string.
type Flavor func(cfg config.Config, app app.Handle, hb *heartbeat.Heartbeat, log logger.Logger) Worker

var flavors = map[config.WorkerClass]Flavor{}

// Register adds a worker flavor under name — called from each flavor's
// init().
func Register(name config.WorkerClass, f Flavor) {
	flavors[name] = f
}

// Lookup resolves a configured WorkerClass to its Flavor constructor.
func Lookup(name config.WorkerClass) (Flavor, bool) {
	f, ok := flavors[name]
	return f, ok
}

// goroutineWorker is the Go-native flavor: one goroutine per accepted
// connection, bounded by a weighted semaphore sized to WorkerConnections
// — the same cooperative-scheduling role a greenlet pool plays
// elsewhere, here played by the Go runtime's own scheduler plus an
// explicit admission cap.
type goroutineWorker struct {
	cfg    config.Config
	app    app.Handle
	hb     *heartbeat.Heartbeat
	log    logger.Logger
	sem    *semaphore.Weighted
	count  int64
	active int64
}

func init() {
	Register(config.WorkerClassGoroutine, newGoroutineWorker)
}

func newGoroutineWorker(cfg config.Config, a app.Handle, hb *heartbeat.Heartbeat, log logger.Logger) Worker {
	max := int64(cfg.WorkerConns)
	if max <= 0 {
		max = 1000
	}
	return &goroutineWorker{cfg: cfg, app: a, hb: hb, log: log, sem: semaphore.NewWeighted(max)}
}

func (w *goroutineWorker) RequestCount() int64 { return atomic.LoadInt64(&w.count) }

// Run accepts from every listener concurrently, each accepted
// connection gated by the semaphore and handed to the configured
// app.Handle on its own goroutine. A heartbeat Notify happens on every
// accept, in addition to the ticker-driven notify below, so a busy
// worker's liveness reflects actual traffic, not just the ticker. Once
// ctx is cancelled, Run stops accepting and calls drain before
// returning, giving in-flight connections a chance to finish.
func (w *goroutineWorker) Run(ctx context.Context, listeners []net.Listener) error {
	errCh := make(chan error, len(listeners))

	hbTicker := time.NewTicker(time.Second)
	defer hbTicker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hbTicker.C:
				if err := w.hb.Notify(); err != nil {
					w.log.Warn("heartbeat update failed", logger.F("error", err.Error()))
				}
			}
		}
	}()

	for _, ln := range listeners {
		ln := ln
		go w.acceptLoop(ctx, ln, errCh)
	}

	select {
	case <-ctx.Done():
		w.drain()
		return nil
	case err := <-errCh:
		return err
	}
}

// drain polls the in-flight connection count once a second after the
// accept loops have stopped, returning as soon as the pool empties or
// GracefulTime elapses — whichever comes first — so a stuck connection
// never holds the worker open past its configured window; the master's
// murderWorkers timeout is the backstop beyond that.
func (w *goroutineWorker) drain() {
	timeout := w.cfg.GracefulTime
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	deadline := time.Now().Add(timeout)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for atomic.LoadInt64(&w.active) > 0 {
		if time.Now().After(deadline) {
			w.log.Warn("graceful timeout exceeded, abandoning in-flight connections",
				logger.F("active", atomic.LoadInt64(&w.active)))
			return
		}
		<-ticker.C
	}
}

func (w *goroutineWorker) acceptLoop(ctx context.Context, ln net.Listener, errCh chan<- error) {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
			default:
				select {
				case errCh <- ErrAccept.Error(err):
				default:
				}
			}
			return
		}
		if err := w.sem.Acquire(ctx, 1); err != nil {
			_ = conn.Close()
			return
		}
		_ = w.hb.Notify()
		atomic.AddInt64(&w.count, 1)
		atomic.AddInt64(&w.active, 1)
		go w.serve(conn)
	}
}

func (w *goroutineWorker) serve(conn net.Conn) {
	defer atomic.AddInt64(&w.active, -1)
	defer w.sem.Release(1)
	defer conn.Close()

	if err := w.app.Serve(conn); err != nil {
		w.log.Warn("connection handling error", logger.F("error", err.Error()))
	}
}
