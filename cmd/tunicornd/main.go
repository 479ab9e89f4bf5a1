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

// Command tunicornd is the entry/config glue around the core packages:
// flag parsing, configuration loading, and wiring the Listener set, the
// Application handle and the Arbiter together.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sabouaram/tunicorn/pkg/app"
	"github.com/sabouaram/tunicorn/pkg/arbiter"
	"github.com/sabouaram/tunicorn/pkg/config"
	liberr "github.com/sabouaram/tunicorn/pkg/errors"
	"github.com/sabouaram/tunicorn/pkg/listener"
	"github.com/sabouaram/tunicorn/pkg/logger"
	"github.com/sabouaram/tunicorn/pkg/version"
)

var configPath string

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tunicornd [module[:callable]]",
		Short:   "Pre-fork network server supervisor",
		Version: version.New().String(),
		Args:    cobra.MaximumNArgs(1),
		RunE:    runRoot,
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "configuration file path")
	return cmd
}

func runRoot(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(liberr.ExitFatalStartup)
	}

	if len(args) == 1 {
		cfg.App = args[0]
	}
	if cfg.App == "" {
		cfg.App = "echo"
	}

	logger.SetLevel(cfg.LogLevel)
	log := logger.New()

	if cfg.Chdir != "" {
		if err := os.Chdir(cfg.Chdir); err != nil {
			log.Critical("failed to change working directory", err, logger.F("dir", cfg.Chdir))
			os.Exit(liberr.ExitFatalStartup)
		}
	}

	if arbiter.IsWorkerChild() {
		os.Exit(arbiter.RunWorkerChild(cfg, log))
		return nil
	}

	listeners, err := listener.CreateSockets(cfg)
	if err != nil {
		log.Critical("failed to create listeners", err)
		os.Exit(liberr.ExitFatalStartup)
	}

	handle, err := app.Lookup(cfg.App)
	if err != nil {
		log.Critical("failed to resolve application locator", err, logger.F("locator", cfg.App))
		os.Exit(liberr.ExitAppLoadFailure)
	}

	a := arbiter.New(cfg, configPath, listeners, handle, cfg.App, log)
	a.Start()
	os.Exit(a.Run())
	return nil
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(liberr.ExitUnexpected)
	}
}
