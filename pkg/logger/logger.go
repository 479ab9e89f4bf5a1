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

// Package logger wraps logrus with the fixed set of fields every tunicorn
// component tags its entries with (component, pid, worker age), so a log
// line from the arbiter and one from a worker are trivially correlated.
package logger

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Logger is the logging surface every component receives instead of a
// bare *logrus.Logger, so call sites read as structured events, not
// formatted strings.
type Logger interface {
	WithComponent(name string) Logger
	WithField(key string, value interface{}) Logger
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, err error, fields ...Field)
	Critical(msg string, err error, fields ...Field)
}

// Field is a single structured key/value pair attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
}

func F(key string, value interface{}) Field { return Field{Key: key, Value: value} }

type entry struct {
	mu  *sync.Mutex
	log *logrus.Entry
}

var base = logrus.New()

func init() {
	base.SetOutput(os.Stderr)
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	base.SetLevel(logrus.InfoLevel)
}

// New returns the root Logger, tagged with the current process id.
func New() Logger {
	return &entry{mu: &sync.Mutex{}, log: logrus.NewEntry(base).WithField("pid", os.Getpid())}
}

// SetLevel adjusts the package-wide minimum log level (debug, info, warn,
// error); an unrecognized name is ignored and the level stays unchanged.
func SetLevel(name string) {
	if lvl, err := logrus.ParseLevel(name); err == nil {
		base.SetLevel(lvl)
	}
}

func (e *entry) WithComponent(name string) Logger {
	return &entry{mu: e.mu, log: e.log.WithField("component", name)}
}

func (e *entry) WithField(key string, value interface{}) Logger {
	return &entry{mu: e.mu, log: e.log.WithField(key, value)}
}

func (e *entry) withFields(fields []Field) *logrus.Entry {
	if len(fields) == 0 {
		return e.log
	}
	data := make(logrus.Fields, len(fields))
	for _, f := range fields {
		data[f.Key] = f.Value
	}
	return e.log.WithFields(data)
}

func (e *entry) Debug(msg string, fields ...Field) { e.withFields(fields).Debug(msg) }
func (e *entry) Info(msg string, fields ...Field)  { e.withFields(fields).Info(msg) }
func (e *entry) Warn(msg string, fields ...Field)  { e.withFields(fields).Warn(msg) }

func (e *entry) Error(msg string, err error, fields ...Field) {
	le := e.withFields(fields)
	if err != nil {
		le = le.WithField("error", err.Error())
	}
	le.Error(msg)
}

func (e *entry) Critical(msg string, err error, fields ...Field) {
	le := e.withFields(fields)
	if err != nil {
		le = le.WithField("error", err.Error())
	}
	le.Error(msg)
}
