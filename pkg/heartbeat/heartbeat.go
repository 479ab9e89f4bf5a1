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

// Package heartbeat implements the arbiter-side liveness check of a
// worker: a temp file whose mtime the worker bumps on every iteration of
// its accept loop, and whose age the arbiter samples to detect a wedged
// child without involving a signal or an RPC.
package heartbeat

import (
	"os"
	"time"

	"github.com/google/uuid"

	liberr "github.com/sabouaram/tunicorn/pkg/errors"
)

const (
	ErrCreate liberr.CodeError = iota + liberr.MinPkgHeartbeat
	ErrNotify
)

func init() {
	liberr.RegisterIdFctMessage(liberr.MinPkgHeartbeat, getMessage)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case ErrCreate:
		return "cannot create heartbeat file"
	case ErrNotify:
		return "cannot update heartbeat file"
	}
	return ""
}

// Heartbeat is one worker's liveness marker. Generation disambiguates a
// heartbeat from a prior worker that held the same pid, since pids are
// reused and a stale mtime must never be read as a fresh one.
type Heartbeat struct {
	Generation string
	file       *os.File
	path       string
}

// New creates a heartbeat file under dir before the worker process
// exists, so the worker only has to reopen and Notify a file that is
// already there instead of racing to create one after it starts
// accepting connections.
func New(dir string) (*Heartbeat, error) {
	f, err := os.CreateTemp(dir, "tunicorn-worker-*.hb")
	if err != nil {
		return nil, ErrCreate.Error(err)
	}
	return &Heartbeat{Generation: uuid.NewString(), file: f, path: f.Name()}, nil
}

// Path returns the backing file's path, passed to the re-exec'd worker
// so it can reopen it after startup.
func (h *Heartbeat) Path() string { return h.path }

// Notify bumps the heartbeat file's mtime to now — called by the worker
// on a one-second ticker and again for every connection it takes on.
func (h *Heartbeat) Notify() error {
	now := time.Now()
	if err := os.Chtimes(h.path, now, now); err != nil {
		return ErrNotify.Error(err)
	}
	return nil
}

// LastUpdate returns the backing file's current mtime, sampled by the
// arbiter's murderWorkers pass to decide whether a worker has timed out.
func (h *Heartbeat) LastUpdate() (time.Time, error) {
	fi, err := os.Stat(h.path)
	if err != nil {
		return time.Time{}, err
	}
	return fi.ModTime(), nil
}

// Close closes and removes the heartbeat file, called once the arbiter
// has reaped the worker that owned it.
func (h *Heartbeat) Close() error {
	_ = h.file.Close()
	return os.Remove(h.path)
}

// Open reopens an existing heartbeat file by path, used by a freshly
// re-exec'd worker process that inherited only the path, not the
// *os.File.
func Open(path string, generation string) (*Heartbeat, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o600)
	if err != nil {
		return nil, ErrCreate.Error(err)
	}
	return &Heartbeat{Generation: generation, file: f, path: path}, nil
}
