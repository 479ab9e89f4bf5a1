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
	"context"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/sabouaram/tunicorn/pkg/app"
	"github.com/sabouaram/tunicorn/pkg/config"
	liberr "github.com/sabouaram/tunicorn/pkg/errors"
	"github.com/sabouaram/tunicorn/pkg/heartbeat"
	"github.com/sabouaram/tunicorn/pkg/logger"
	"github.com/sabouaram/tunicorn/pkg/posixutil"
	"github.com/sabouaram/tunicorn/pkg/worker"
)

// IsWorkerChild reports whether the current process was re-exec'd by
// an Arbiter as a worker, i.e. whether main() should call RunWorkerChild
// instead of building a fresh Arbiter.
func IsWorkerChild() bool {
	return os.Getenv(envWorkerAge) != ""
}

// RunWorkerChild is the entry point for a re-exec'd worker process. It
// reads its role from the environment variables spawnWorker set,
// rebuilds its inherited listeners from the fds exec.Cmd.ExtraFiles
// handed it (starting at fd 3, the first slot after
// stdin/stdout/stderr), and returns the process exit code: 0 on a
// normal return, ExitWorkerBoot if init fails before boot,
// ExitAppLoadFailure if the application locator fails to resolve,
// ExitUnexpected otherwise.
func RunWorkerChild(cfg config.Config, log logger.Logger) int {
	log = log.WithComponent("worker")

	age, _ := strconv.ParseUint(os.Getenv(envWorkerAge), 10, 64)
	hbPath := os.Getenv(envWorkerHBPath)
	hbGen := os.Getenv(envWorkerHBGen)
	flavor := config.WorkerClass(os.Getenv(envWorkerClass))
	appName := os.Getenv(envWorkerApp)

	log = log.WithField("age", age)

	hb, err := heartbeat.Open(hbPath, hbGen)
	if err != nil {
		log.Error("failed to open heartbeat", err)
		return liberr.ExitWorkerBoot
	}
	defer func() { _ = hb.Close() }()

	listeners, err := inheritedListeners(cfg)
	if err != nil {
		log.Error("failed to inherit listeners", err)
		return liberr.ExitWorkerBoot
	}

	for k, v := range cfg.Env {
		_ = os.Setenv(k, v)
	}

	if err := posixutil.SwitchUser(cfg.User, cfg.Group, cfg.InitGroups); err != nil {
		log.Error("failed to switch user", err)
		return liberr.ExitWorkerBoot
	}
	posixutil.Reseed()

	handle, err := app.Lookup(appName)
	if err != nil {
		log.Error("application failed to load", err)
		return liberr.ExitAppLoadFailure
	}

	flv, ok := worker.Lookup(flavor)
	if !ok {
		log.Error("unknown worker flavor", nil, logger.F("flavor", string(flavor)))
		return liberr.ExitWorkerBoot
	}
	w := flv(cfg, handle, hb, log)

	log.Info("worker booted", logger.F("pid", os.Getpid()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 5)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGUSR1)
	go func() {
		for sig := range sigCh {
			switch sig {
			case syscall.SIGQUIT, syscall.SIGINT, syscall.SIGTERM:
				cancel()
				return
			case syscall.SIGUSR1:
				log.Info("SIGUSR1 received")
			}
		}
	}()

	if err := w.Run(ctx, listeners); err != nil {
		log.Error("worker run loop exited with error", err)
		return liberr.ExitUnexpected
	}

	return liberr.ExitOK
}

func inheritedListeners(cfg config.Config) ([]net.Listener, error) {
	out := make([]net.Listener, 0, len(cfg.Bind))
	for i := range cfg.Bind {
		fd := uintptr(3 + i)
		f := os.NewFile(fd, "inherited-listener")
		ln, err := net.FileListener(f)
		if err != nil {
			return nil, err
		}
		out = append(out, ln)
	}
	return out, nil
}
