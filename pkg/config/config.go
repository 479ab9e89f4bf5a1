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

// Package config loads and validates the settings the arbiter and its
// workers run with: bind endpoints, worker counts and flavor, timeouts,
// and the locator string naming the application to serve.
package config

import (
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	liberr "github.com/sabouaram/tunicorn/pkg/errors"
)

const (
	ErrConfigRead liberr.CodeError = iota + liberr.MinPkgConfig
	ErrConfigDecode
	ErrConfigInvalid
)

func init() {
	liberr.RegisterIdFctMessage(liberr.MinPkgConfig, getMessage)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case ErrConfigRead:
		return "cannot read configuration file"
	case ErrConfigDecode:
		return "cannot decode configuration"
	case ErrConfigInvalid:
		return "invalid configuration"
	}
	return ""
}

// WorkerClass names a worker flavor registered in pkg/worker.
type WorkerClass string

const (
	WorkerClassGoroutine WorkerClass = "goroutine"
	WorkerClassSync      WorkerClass = "sync"
)

// Config is the full set of tunable knobs the arbiter and its workers run
// with.
type Config struct {
	Bind           []Endpoint        `mapstructure:"bind"`
	App            string            `mapstructure:"app"`
	Workers        int               `mapstructure:"workers"`
	WorkerClass    WorkerClass       `mapstructure:"worker_class"`
	WorkerConns    int               `mapstructure:"worker_connections"`
	Timeout        time.Duration     `mapstructure:"timeout"`
	GracefulTime   time.Duration     `mapstructure:"graceful_timeout"`
	KeepAlive      time.Duration     `mapstructure:"keepalive"`
	MaxRequests    int               `mapstructure:"max_requests"`
	MaxRequestsJit int               `mapstructure:"max_requests_jitter"`
	User           *int              `mapstructure:"user"`
	Group          *int              `mapstructure:"group"`
	InitGroups     bool              `mapstructure:"initgroups"`
	Umask          int               `mapstructure:"umask"`
	Daemon         bool              `mapstructure:"daemon"`
	PidFile        string            `mapstructure:"pidfile"`
	LogLevel       string            `mapstructure:"loglevel"`
	ReusePort      bool              `mapstructure:"reuse_port"`
	Backlog        int               `mapstructure:"backlog"`
	Chdir          string            `mapstructure:"chdir"`
	Env            map[string]string `mapstructure:"env"`
}

// Default returns a Config populated with tunicorn's documented defaults.
func Default() Config {
	return Config{
		Bind:           []Endpoint{{Kind: KindTCP, Host: "127.0.0.1", Port: defaultPort}},
		Workers:        1,
		WorkerClass:    WorkerClassGoroutine,
		WorkerConns:    1000,
		Timeout:        30 * time.Second,
		GracefulTime:   30 * time.Second,
		KeepAlive:      2 * time.Second,
		MaxRequests:    0,
		MaxRequestsJit: 0,
		Umask:          0,
		LogLevel:       "info",
		Backlog:        2048,
	}
}

// endpointDecodeHook decodes a "host:port" / "unix:path" string form field
// into an Endpoint: a single mapstructure.DecodeHookFuncType scoped to one
// custom type.
func endpointDecodeHook() mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(Endpoint{}) {
			return data, nil
		}
		if from.Kind() != reflect.String {
			return data, nil
		}
		return ParseEndpoint(data.(string))
	}
}

// Load reads a viper-backed configuration file (YAML/JSON/TOML, per
// viper's own auto-detection) overlaid on Default(), with TUNICORN_*
// environment variables taking precedence over file values.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("tunicorn")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cfg, ErrConfigRead.Error(err)
		}
	}

	decodeHook := mapstructure.ComposeDecodeHookFunc(
		endpointDecodeHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)

	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook)); err != nil {
		return cfg, ErrConfigDecode.Error(err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks the invariants a Config must satisfy before the arbiter
// boots: at least one bind endpoint, a positive worker count, and a known
// worker class.
func (c Config) Validate() error {
	if len(c.Bind) == 0 {
		return ErrConfigInvalid.Error(addrError("no bind address configured"))
	}
	if c.Workers < 1 {
		return ErrConfigInvalid.Error(addrError("workers must be >= 1"))
	}
	switch c.WorkerClass {
	case WorkerClassGoroutine, WorkerClassSync:
	default:
		return ErrConfigInvalid.Error(addrError("unknown worker_class: " + string(c.WorkerClass)))
	}
	return nil
}
