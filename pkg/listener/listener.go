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

// Package listener creates and owns the sockets the arbiter binds before
// forking any worker, so every child inherits the same fd set instead of
// racing to bind its own.
package listener

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/sabouaram/tunicorn/pkg/config"
	liberr "github.com/sabouaram/tunicorn/pkg/errors"
	"github.com/sabouaram/tunicorn/pkg/posixutil"
)

const (
	ErrBind liberr.CodeError = iota + liberr.MinPkgListener
	ErrSockOpt
	ErrInherit
)

func init() {
	liberr.RegisterIdFctMessage(liberr.MinPkgListener, getMessage)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case ErrBind:
		return "cannot bind listener"
	case ErrSockOpt:
		return "cannot set socket option"
	case ErrInherit:
		return "cannot inherit listener fd"
	}
	return ""
}

// InheritEnvVar carries the inherited listener fd count across re-exec,
// the same role FD_FDS/LISTEN_FDS plays in systemd socket activation.
const InheritEnvVar = "TUNICORN_FDS"

const (
	maxBindRetries = 5
	retryDelay     = time.Second
)

// Listener pairs a bound, inheritable net.Listener with the endpoint it
// was created from.
type Listener struct {
	Endpoint config.Endpoint
	net.Listener

	file *os.File
}

// Fd returns the underlying file descriptor, used to build the
// ExtraFiles slice of a re-exec'd arbiter process.
func (l *Listener) Fd() uintptr {
	return l.file.Fd()
}

// File returns the underlying *os.File, passed via exec.Cmd.ExtraFiles
// so a re-exec'd worker inherits the listener at a predictable fd slot.
func (l *Listener) File() *os.File {
	return l.file
}

// Close closes the listener and, for unix sockets, removes the socket
// file it created.
func (l *Listener) Close() error {
	err := l.Listener.Close()
	if l.Endpoint.Kind == config.KindUnix {
		_ = os.Remove(l.Endpoint.Path)
	}
	return err
}

// CreateSockets binds one Listener per configured endpoint, retrying
// EADDRINUSE/EADDRNOTAVAIL up to maxBindRetries times with a retryDelay
// pause, and applies the umask only around Unix socket creation so a
// restrictive process umask never leaks into unrelated file creation.
func CreateSockets(cfg config.Config) ([]*Listener, error) {
	if inherited, err := Inherit(cfg.Bind); err == nil && len(inherited) == len(cfg.Bind) {
		return inherited, nil
	}

	out := make([]*Listener, 0, len(cfg.Bind))
	for _, ep := range cfg.Bind {
		l, err := bindOne(ep, cfg)
		if err != nil {
			for _, created := range out {
				_ = created.Close()
			}
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

func bindOne(ep config.Endpoint, cfg config.Config) (*Listener, error) {
	var lastErr error
	for attempt := 0; attempt < maxBindRetries; attempt++ {
		l, err := bindOnce(ep, cfg)
		if err == nil {
			return l, nil
		}
		lastErr = err
		if !isRetryable(err) {
			break
		}
		time.Sleep(retryDelay)
	}
	return nil, ErrBind.Error(lastErr)
}

func isRetryable(err error) bool {
	return strings.Contains(err.Error(), "address already in use") ||
		strings.Contains(err.Error(), "cannot assign requested address")
}

func bindOnce(ep config.Endpoint, cfg config.Config) (*Listener, error) {
	if ep.Kind == config.KindUnix {
		return bindUnix(ep, cfg)
	}
	return bindTCP(ep, cfg)
}

func bindTCP(ep config.Endpoint, cfg config.Config) (*Listener, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var opErr error
			_ = c.Control(func(fd uintptr) {
				opErr = setReuseAndNoDelay(int(fd), cfg.ReusePort)
			})
			return opErr
		},
	}
	ln, err := lc.Listen(context.Background(), ep.Network(), ep.Address())
	if err != nil {
		return nil, err
	}
	tl := ln.(*net.TCPListener)
	f, err := tl.File()
	if err != nil {
		_ = ln.Close()
		return nil, err
	}
	applyBacklog(int(f.Fd()), cfg.Backlog)
	if err := posixutil.SetNonblockCloexec(int(f.Fd())); err != nil {
		_ = ln.Close()
		return nil, err
	}
	return &Listener{Endpoint: ep, Listener: ln, file: f}, nil
}

func bindUnix(ep config.Endpoint, cfg config.Config) (*Listener, error) {
	if err := removeStaleSocket(ep.Path); err != nil {
		return nil, err
	}

	old := unix.Umask(cfg.Umask)
	ln, err := net.Listen("unix", ep.Path)
	unix.Umask(old)
	if err != nil {
		return nil, err
	}
	ul := ln.(*net.UnixListener)
	f, err := ul.File()
	if err != nil {
		_ = ln.Close()
		return nil, err
	}
	applyBacklog(int(f.Fd()), cfg.Backlog)
	if err := chownSocket(ep.Path, cfg.User, cfg.Group); err != nil {
		_ = ln.Close()
		return nil, err
	}
	if err := posixutil.SetNonblockCloexec(int(f.Fd())); err != nil {
		_ = ln.Close()
		return nil, err
	}
	return &Listener{Endpoint: ep, Listener: ln, file: f}, nil
}

// removeStaleSocket unlinks path only when it is already a socket left
// behind by a previous arbiter generation, refusing (rather than
// silently deleting) a regular file that happens to sit at a configured
// bind path.
func removeStaleSocket(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return ErrBind.Error(err)
	}
	if fi.Mode()&os.ModeSocket == 0 {
		return ErrBind.Error(fmt.Errorf("refusing to remove non-socket file at bind path %q", path))
	}
	return os.Remove(path)
}

// chownSocket applies the configured uid/gid to a freshly bound Unix
// socket; either left nil leaves that half of the ownership untouched
// (-1, per chown(2)).
func chownSocket(path string, uid, gid *int) error {
	if uid == nil && gid == nil {
		return nil
	}
	u, g := -1, -1
	if uid != nil {
		u = *uid
	}
	if gid != nil {
		g = *gid
	}
	if err := unix.Chown(path, u, g); err != nil {
		return ErrBind.Error(err)
	}
	return nil
}

// applyBacklog re-asserts the configured listen(2) backlog on an
// already-listening socket. net.ListenConfig's Control callback runs
// before bind()/listen() with Go's own backlog argument baked in, so
// there is no stdlib hook to pass Config.Backlog through the normal
// Listen path. Calling listen(2) again on a live socket is well-defined
// on Linux — it simply updates the accept queue limit in place — which
// is what this exploits instead of hand-rolling socket/bind/listen.
func applyBacklog(fd int, backlog int) {
	if backlog <= 0 {
		return
	}
	_ = unix.Listen(fd, backlog)
}

func setReuseAndNoDelay(fd int, reusePort bool) error {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return ErrSockOpt.Error(err)
	}
	if reusePort {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
			return ErrSockOpt.Error(err)
		}
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
		// not fatal: unix-domain and some platforms reject TCP_NODELAY
		// on a socket that isn't TCP yet.
		_ = err
	}
	return nil
}

// Export renders the fd numbers of ls, starting at base, into the form
// consumed by Inherit across a re-exec (TUNICORN_FDS=base:count).
func Export(ls []*Listener, base uintptr) string {
	return strconv.Itoa(int(base)) + ":" + strconv.Itoa(len(ls))
}

// Inherit reconstructs Listeners from file descriptors passed down by a
// parent arbiter across Reexec, reading the TUNICORN_FDS env var this
// process was started with.
func Inherit(binds []config.Endpoint) ([]*Listener, error) {
	spec := os.Getenv(InheritEnvVar)
	if spec == "" {
		return nil, nil
	}
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 {
		return nil, ErrInherit.Error(nil)
	}
	base, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, ErrInherit.Error(err)
	}
	count, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, ErrInherit.Error(err)
	}
	if count != len(binds) {
		return nil, nil
	}

	out := make([]*Listener, 0, count)
	for i := 0; i < count; i++ {
		fd := uintptr(base + i)
		f := os.NewFile(fd, "inherited-listener")
		ln, err := net.FileListener(f)
		if err != nil {
			return nil, ErrInherit.Error(err)
		}
		out = append(out, &Listener{Endpoint: binds[i], Listener: ln, file: f})
	}
	return out, nil
}
