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

package worker

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"github.com/sabouaram/tunicorn/pkg/app"
	"github.com/sabouaram/tunicorn/pkg/config"
	"github.com/sabouaram/tunicorn/pkg/heartbeat"
	"github.com/sabouaram/tunicorn/pkg/logger"
)

// syncWorker is the "sync" flavor: at most one connection in flight at a
// time across every inherited listener, the Go shape of a worker that
// accepts and serves a single request before accepting the next one.
type syncWorker struct {
	cfg   config.Config
	app   app.Handle
	hb    *heartbeat.Heartbeat
	log   logger.Logger
	count int64
}

func init() {
	Register(config.WorkerClassSync, newSyncWorker)
}

func newSyncWorker(cfg config.Config, a app.Handle, hb *heartbeat.Heartbeat, log logger.Logger) Worker {
	return &syncWorker{cfg: cfg, app: a, hb: hb, log: log}
}

func (w *syncWorker) RequestCount() int64 { return atomic.LoadInt64(&w.count) }

// Run fans Accept out across every listener into a single channel, then
// serves connections off that channel one at a time — several sockets
// can have pending connections, but only one is ever being served.
func (w *syncWorker) Run(ctx context.Context, listeners []net.Listener) error {
	connCh := make(chan net.Conn)
	errCh := make(chan error, len(listeners))

	for _, ln := range listeners {
		ln := ln
		go func() {
			<-ctx.Done()
			_ = ln.Close()
		}()
		go w.acceptInto(ctx, ln, connCh, errCh)
	}

	hbTicker := time.NewTicker(time.Second)
	defer hbTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			return err
		case <-hbTicker.C:
			if err := w.hb.Notify(); err != nil {
				w.log.Warn("heartbeat update failed", logger.F("error", err.Error()))
			}
		case conn := <-connCh:
			w.serve(conn)
		}
	}
}

func (w *syncWorker) acceptInto(ctx context.Context, ln net.Listener, connCh chan<- net.Conn, errCh chan<- error) {
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
		select {
		case connCh <- conn:
		case <-ctx.Done():
			_ = conn.Close()
			return
		}
	}
}

func (w *syncWorker) serve(conn net.Conn) {
	defer conn.Close()

	_ = w.hb.Notify()
	atomic.AddInt64(&w.count, 1)
	if err := w.app.Serve(conn); err != nil {
		w.log.Warn("connection handling error", logger.F("error", err.Error()))
	}
}
