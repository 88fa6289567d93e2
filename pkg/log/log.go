// Copyright 2023 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Level is the log message severity level below which we suppress messages.
type Level int32

const (
	// LevelDebug corresponds to debug messages.
	LevelDebug Level = iota
	// LevelInfo corresponds to informational messages.
	LevelInfo
	// LevelWarn corresponds to warning messages.
	LevelWarn
	// LevelError corresponds to error messages.
	LevelError
	// LevelFatal corresponds to fatal error messages.
	LevelFatal

	levelHighest = LevelFatal
)

// DefaultLevel is the default logging severity level.
const DefaultLevel = LevelInfo

// Logger is the interface for producing log messages for a source.
type Logger interface {
	// Debug formats and emits a debug message.
	Debug(format string, args ...interface{})
	// Info formats and emits an informational message.
	Info(format string, args ...interface{})
	// Warn formats and emits a warning message.
	Warn(format string, args ...interface{})
	// Error formats and emits an error message.
	Error(format string, args ...interface{})
	// Fatal formats and emits an error message and os.Exit()'s with status 1.
	Fatal(format string, args ...interface{})

	// EnableDebug enables/disables debugging, returning the previous state.
	EnableDebug(bool) bool
	// DebugEnabled checks if debugging is enabled for the source.
	DebugEnabled() bool
	// Source returns the source name of this Logger.
	Source() string
}

// logger implements Logger for a single source.
type logger struct {
	source string
}

// logging is our runtime state.
type logging struct {
	sync.RWMutex
	level   Level                // lowest unsuppressed severity
	backend map[string]BackendFn // registered backends
	active  Backend              // active backend
	debug   srcmap               // debug settings for sources
	forced  bool                 // forced full debugging
	sources map[string]*logger   // all known sources
	align   int                  // length of longest source name
}

var log = &logging{
	level:   DefaultLevel,
	backend: make(map[string]BackendFn),
	debug:   make(srcmap),
	sources: make(map[string]*logger),
}

// NewLogger returns the Logger for the given source, creating it if necessary.
func NewLogger(source string) Logger {
	return log.get(source)
}

func (log *logging) get(source string) *logger {
	source = strings.Trim(source, "[] ")

	log.Lock()
	defer log.Unlock()

	if l, ok := log.sources[source]; ok {
		return l
	}

	l := &logger{source: source}
	log.sources[source] = l
	if len(source) > log.align {
		log.align = len(source)
		if log.active != nil {
			log.active.SetSourceAlignment(log.align)
		}
	}

	return l
}

// SetLevel sets the logging severity level.
func SetLevel(level Level) {
	log.Lock()
	defer log.Unlock()
	log.level = level
}

// GetLevel returns the current logging severity level.
func GetLevel() Level {
	log.RLock()
	defer log.RUnlock()
	return log.level
}

// SetBackend activates the named registered backend.
func SetBackend(name string) error {
	log.Lock()
	defer log.Unlock()
	return log.setBackend(name)
}

func (log *logging) setBackend(name string) error {
	if log.active != nil && log.active.Name() == name {
		return nil
	}
	fn, ok := log.backend[name]
	if !ok {
		return loggerError("unknown backend '%s'", name)
	}
	if log.active != nil {
		log.active.Stop()
	}
	log.active = fn()
	log.active.SetSourceAlignment(log.align)
	return nil
}

// SetDebug enables or disables debugging for the given sources.
func SetDebug(value string) error {
	log.Lock()
	defer log.Unlock()
	return log.debug.Set(value)
}

// ForceDebug toggles full debugging for all sources, returning the previous state.
func ForceDebug(enable bool) bool {
	log.Lock()
	defer log.Unlock()
	previous := log.forced
	log.forced = enable
	return previous
}

func (log *logging) toggleForced() bool {
	log.Lock()
	defer log.Unlock()
	log.forced = !log.forced
	return log.forced
}

// Flush waits until all pending messages have been emitted.
func Flush() {
	log.RLock()
	defer log.RUnlock()
	if log.active != nil {
		log.active.Sync()
	}
}

// passthrough checks if a message of the given source and level is emitted.
func (log *logging) passthrough(source string, level Level) bool {
	if level == LevelDebug {
		return log.forced || log.level == LevelDebug || log.debug.enabled(source)
	}
	return level >= log.level
}

func (log *logging) emit(level Level, source, format string, args ...interface{}) {
	log.RLock()
	defer log.RUnlock()
	if !log.passthrough(source, level) {
		return
	}
	log.active.Log(level, source, format, args...)
}

func (l *logger) Debug(format string, args ...interface{}) {
	log.emit(LevelDebug, l.source, format, args...)
}

func (l *logger) Info(format string, args ...interface{}) {
	log.emit(LevelInfo, l.source, format, args...)
}

func (l *logger) Warn(format string, args ...interface{}) {
	log.emit(LevelWarn, l.source, format, args...)
}

func (l *logger) Error(format string, args ...interface{}) {
	log.emit(LevelError, l.source, format, args...)
}

func (l *logger) Fatal(format string, args ...interface{}) {
	log.emit(LevelFatal, l.source, format, args...)
	Flush()
	os.Exit(1)
}

func (l *logger) EnableDebug(enable bool) bool {
	log.Lock()
	defer log.Unlock()
	previous := log.debug.enabled(l.source)
	log.debug[l.source] = enable
	return previous
}

func (l *logger) DebugEnabled() bool {
	log.RLock()
	defer log.RUnlock()
	return log.passthrough(l.source, LevelDebug)
}

func (l *logger) Source() string {
	return l.source
}

// our default logger
var deflog = log.get(filepath.Base(filepath.Clean(os.Args[0])))

// Default returns the default Logger.
func Default() Logger {
	return deflog
}

// Info formats and emits an informational message.
func Info(format string, args ...interface{}) {
	deflog.Info(format, args...)
}

// Warn formats and emits a warning message.
func Warn(format string, args ...interface{}) {
	deflog.Warn(format, args...)
}

// Error formats and emits an error message.
func Error(format string, args ...interface{}) {
	deflog.Error(format, args...)
}

// Debug formats and emits a debug message.
func Debug(format string, args ...interface{}) {
	deflog.Debug(format, args...)
}

// loggerError produces a formatted logger-specific error.
func loggerError(format string, args ...interface{}) error {
	return fmt.Errorf("logger: "+format, args...)
}
