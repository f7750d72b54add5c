/*
 * Copyright 2025 Grove OS Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package kernel

import (
	"io"

	"github.com/sirupsen/logrus"
)

// LogLevel enumerates the kernel log levels in order of severity.
type LogLevel int

const (
	LogNone  LogLevel = iota // no logging
	LogError                 // errors only
	LogWarn                  // warnings and errors
	LogInfo                  // info, warnings and errors
	LogDebug                 // debug and above
	LogTrace                 // trace and above
	LogAll                   // everything
)

// logrusLevel maps a kernel log level onto the backing logrus logger.
// LogNone parks logrus at PanicLevel, which the kernel never emits at.
func (l LogLevel) logrusLevel() logrus.Level {
	switch {
	case l <= LogNone:
		return logrus.PanicLevel
	case l == LogError:
		return logrus.ErrorLevel
	case l == LogWarn:
		return logrus.WarnLevel
	case l == LogInfo:
		return logrus.InfoLevel
	case l == LogDebug:
		return logrus.DebugLevel
	default:
		return logrus.TraceLevel
	}
}

type logger struct {
	l     *logrus.Logger
	level LogLevel
}

func newLogger(out io.Writer, level LogLevel) *logger {
	l := logrus.New()
	if out != nil {
		l.SetOutput(out)
	}
	lg := &logger{l: l}
	lg.setLevel(level)
	return lg
}

func (lg *logger) setLevel(level LogLevel) LogLevel {
	if level < LogNone {
		level = LogNone
	} else if level > LogAll {
		level = LogAll
	}
	lg.level = level
	lg.l.SetLevel(level.logrusLevel())
	return lg.level
}

func (lg *logger) err(format string, args ...interface{}) {
	lg.l.Errorf(format, args...)
}

func (lg *logger) warn(format string, args ...interface{}) {
	lg.l.Warnf(format, args...)
}

func (lg *logger) info(format string, args ...interface{}) {
	lg.l.Infof(format, args...)
}

func (lg *logger) debug(format string, args ...interface{}) {
	lg.l.Debugf(format, args...)
}

func (lg *logger) trace(format string, args ...interface{}) {
	lg.l.Tracef(format, args...)
}

// LogLevel returns the current kernel log level.
func (k *Kernel) LogLevel() LogLevel {
	return k.log.level
}

// SetLogLevel clamps and applies a new log level and returns the value set.
func (k *Kernel) SetLogLevel(level LogLevel) LogLevel {
	prev := k.log.level
	next := k.log.setLevel(level)
	if prev != next {
		k.log.l.Infof("kernel log level set to %d", next)
	}
	return next
}

// Panic reports an unrecoverable kernel fault: it logs the message, triggers
// the break hook for an attached debugger, then exits with a failure code.
// Panic returns only when an installed exit hook returns.
func (k *Kernel) Panic(format string, args ...interface{}) {
	k.log.l.Errorf("panic: "+format, args...)
	if k.onBreak != nil {
		k.onBreak()
	}
	k.exit(1)
}
