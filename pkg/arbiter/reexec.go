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

	"github.com/sabouaram/tunicorn/pkg/app"
	"github.com/sabouaram/tunicorn/pkg/config"
	"github.com/sabouaram/tunicorn/pkg/listener"
	"github.com/sabouaram/tunicorn/pkg/logger"
)

// Reexec re-executes the current binary as a new master generation,
// handing it the same bound listeners via ExtraFiles/TUNICORN_FDS so it
// can accept connections immediately, then returns — it does not wait
// for the new generation to boot. The caller (handleUsr2) is expected to
// drain and stop this generation's own workers afterward, leaving the
// new master to spawn a fresh set.
func (a *Arbiter) Reexec() error {
	a.mu.Lock()
	listeners := a.listeners
	a.mu.Unlock()

	if len(listeners) == 0 {
		return ErrListenersExhausted.Error(nil)
	}

	exe, err := os.Executable()
	if err != nil {
		return err
	}

	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("%s=%d", masterPidEnvVar, a.masterPID),
		fmt.Sprintf("%s=%s", listener.InheritEnvVar, listener.Export(listeners, 3)),
	)

	extra := make([]*os.File, 0, len(listeners))
	for _, l := range listeners {
		extra = append(extra, l.File())
	}
	cmd.ExtraFiles = extra

	if err := cmd.Start(); err != nil {
		return err
	}

	pid := cmd.Process.Pid
	a.mu.Lock()
	a.reexecPID = &pid
	a.mu.Unlock()

	a.log.Info("re-exec'd new master generation", logger.F("pid", pid))
	go func() { _ = cmd.Wait() }()
	return nil
}

// Reload re-reads configuration from configPath (when one was given at
// construction) and re-resolves the application locator, then cycles
// workers onto the new Config/app.Handle pair. A Config that fails to
// load or validate leaves the running Config untouched.
func (a *Arbiter) Reload() error {
	cfg := a.cfg
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			a.log.Warn("reload: failed to load configuration, keeping current", logger.F("error", err.Error()))
		} else {
			cfg = loaded
		}
	}

	appName := a.appName
	if cfg.App != "" {
		appName = cfg.App
	}
	handle, err := app.Lookup(appName)
	if err != nil {
		return ErrAppLocator.Error(err)
	}

	a.mu.Lock()
	a.cfg = cfg
	a.appHandle = handle
	a.appName = appName
	a.setNumWorkers(int32(cfg.Workers))
	a.mu.Unlock()

	a.log.Info("configuration reloaded", logger.F("app", appName))

	// spawn a full fresh set on the reloaded configuration; manageWorkers
	// then trims the surplus oldest workers, i.e. the previous set.
	for i := 0; i < int(a.getNumWorkers()); i++ {
		if err := a.spawnWorker(); err != nil {
			return err
		}
	}
	return a.manageWorkers()
}
