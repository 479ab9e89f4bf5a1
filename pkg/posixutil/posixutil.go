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

// Package posixutil gathers the handful of POSIX-level primitives the
// arbiter and workers need outside of net.Listener/os.Process: fd flag
// mutation, privilege drop, and RNG reseeding after fork.
package posixutil

import (
	"math/rand"
	"os"
	"os/user"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	liberr "github.com/sabouaram/tunicorn/pkg/errors"
)

const (
	ErrSetNonblock liberr.CodeError = iota + liberr.MinPkgPosixUtil
	ErrSetCloexec
	ErrSetUID
	ErrSetGID
	ErrInitGroups
	ErrLookupUser
)

func init() {
	liberr.RegisterIdFctMessage(liberr.MinPkgPosixUtil, getMessage)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case ErrSetNonblock:
		return "cannot set socket non-blocking"
	case ErrSetCloexec:
		return "cannot set close-on-exec"
	case ErrSetUID:
		return "cannot switch process uid"
	case ErrSetGID:
		return "cannot switch process gid"
	case ErrInitGroups:
		return "cannot initialize supplementary groups"
	case ErrLookupUser:
		return "cannot resolve uid to username for initgroups"
	}
	return ""
}

// SetNonblockCloexec flips O_NONBLOCK on and FD_CLOEXEC off: inheritable
// listener and heartbeat fds must survive fork but still behave as
// non-blocking sockets/files in the process that owns them.
func SetNonblockCloexec(fd int) error {
	if err := unix.SetNonblock(fd, true); err != nil {
		return ErrSetNonblock.Error(err)
	}
	// clear close-on-exec: the fd must be inherited by forked children.
	if _, _, errno := unix.Syscall(unix.SYS_FCNTL, uintptr(fd), unix.F_SETFD, 0); errno != 0 {
		return ErrSetCloexec.Error(errno)
	}
	return nil
}

// SetCloexec sets FD_CLOEXEC, so the fd is closed rather than inherited
// across an exec.
func SetCloexec(fd int) error {
	if _, _, errno := unix.Syscall(unix.SYS_FCNTL, uintptr(fd), unix.F_SETFD, unix.FD_CLOEXEC); errno != 0 {
		return ErrSetCloexec.Error(errno)
	}
	return nil
}

// SwitchUser drops privileges to uid/gid, initializing supplementary
// groups first (while still privileged) when initgroups is requested and
// both uid and gid are set. If the uid does not resolve to a known
// username, it returns ErrLookupUser without switching.
func SwitchUser(uid, gid *int, initgroups bool) error {
	if gid != nil {
		if initgroups && uid != nil {
			if u, err := user.LookupId(strconv.Itoa(*uid)); err != nil {
				return ErrLookupUser.Error(err)
			} else if gids, err := u.GroupIds(); err == nil {
				groups := make([]int, 0, len(gids))
				for _, g := range gids {
					if n, err := strconv.Atoi(g); err == nil {
						groups = append(groups, n)
					}
				}
				if err := unix.Setgroups(groups); err != nil {
					return ErrInitGroups.Error(err)
				}
			}
		}
		if err := syscall.Setgid(*gid); err != nil {
			return ErrSetGID.Error(err)
		}
	}
	if uid != nil {
		if err := syscall.Setuid(*uid); err != nil {
			return ErrSetUID.Error(err)
		}
	}
	return nil
}

// Reseed reinitializes the global math/rand source after fork so sibling
// workers do not share a PRNG sequence derived from the same parent seed.
func Reseed() {
	rand.Seed(time.Now().UnixNano() ^ int64(os.Getpid()))
}

// JitterSleep sleeps for a random fraction of max, used to desynchronize
// worker boot between consecutive spawns so siblings don't all hit their
// heartbeat/accept-loop startup at exactly the same instant.
func JitterSleep(max time.Duration) {
	if max <= 0 {
		return
	}
	time.Sleep(time.Duration(rand.Int63n(int64(max))))
}
