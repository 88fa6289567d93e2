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
	"io"
	"os"
	"strings"
	"sync"
)

//
// Logging backend interface and default fmt-based backend implementation.
//

// BackendFn is a functions that creates a Backend instance.
type BackendFn func() Backend

// Backend can format and emit log messages.
type Backend interface {
	// Name returns the name of this backend.
	Name() string
	// Log emits log messages with the given severity, source, and Printf-like arguments.
	Log(Level, string, string, ...interface{})
	// Sync waits for all messages to get emitted.
	Sync()
	// Stop stops the backend instance.
	Stop()
	// SetSourceAlignment sets the maximum prefix length for optional alignment.
	SetSourceAlignment(int)
}

// RegisterBackend registers a logger backend.
func RegisterBackend(name string, fn BackendFn) {
	log.Lock()
	defer log.Unlock()
	log.backend[name] = fn
}

const (
	// FmtBackendName is the name of our simple fmt-based logging backend.
	FmtBackendName = "fmt"
)

// severity tags fmtBackend uses to prefix emitted messages with.
var fmtTags = map[Level]string{
	LevelDebug: "D:",
	LevelInfo:  "I:",
	LevelWarn:  "W:",
	LevelError: "E:",
	LevelFatal: "FATAL ERROR:",
}

// fmtOutput is where fmtBackend emits messages. Standard output is
// reserved for the workload handshake protocol.
var fmtOutput io.Writer = os.Stderr

// fmtBackend is our simple, default fmt.Fprintln-based Backend.
type fmtBackend struct {
	sync.Mutex
	out   io.Writer
	align int
}

func createFmtBackend() Backend {
	return &fmtBackend{out: fmtOutput}
}

func (*fmtBackend) Name() string {
	return FmtBackendName
}

func (f *fmtBackend) Log(level Level, source, format string, args ...interface{}) {
	if level > levelHighest {
		return
	}
	msg := fmt.Sprintf(format, args...)

	f.Lock()
	defer f.Unlock()

	length := len(source)
	suflen := (f.align - length) / 2
	prelen := f.align - (length + suflen)
	src := "[" + fmt.Sprintf("%*s", prelen, "") + source + fmt.Sprintf("%*s", suflen, "") + "]"

	for _, line := range strings.Split(msg, "\n") {
		fmt.Fprintln(f.out, fmtTags[level], src, line)
	}
}

func (f *fmtBackend) Sync() {}

func (f *fmtBackend) Stop() {}

func (f *fmtBackend) SetSourceAlignment(length int) {
	f.Lock()
	defer f.Unlock()
	f.align = length
}

func init() {
	RegisterBackend(FmtBackendName, createFmtBackend)
	if err := SetBackend(FmtBackendName); err != nil {
		panic(err)
	}
}
