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

// Package handshake writes the textual protocol an external driver reads
// from a workload's standard output to synchronize with it.
package handshake

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"sync"
	"time"
)

const (
	// ReadyMarker is the line announcing that the streaming loop is about to start.
	ReadyMarker = "READY: begin streaming loop"
	// touchDisabled is appended to the populating line when pages are not pre-touched.
	touchDisabled = " (touch disabled)"
)

var (
	populatingRe = regexp.MustCompile(`^Populating memory \(0x([0-9a-f]+) - 0x([0-9a-f]+)\)\.\.\.`)
	elapsedRe    = regexp.MustCompile(`elapsed_sec=([0-9.]+)`)
)

// Writer emits handshake lines, each one flushed as soon as it is written.
type Writer struct {
	sync.Mutex
	out io.Writer
	err error
}

type flusher interface {
	Flush() error
}

// New returns a Writer emitting to out, or to os.Stdout if out is nil.
func New(out io.Writer) *Writer {
	if out == nil {
		out = os.Stdout
	}
	return &Writer{out: out}
}

// Line writes a single formatted line.
func (w *Writer) Line(format string, args ...interface{}) {
	w.Lock()
	defer w.Unlock()

	if w.err != nil {
		return
	}
	if _, err := fmt.Fprintf(w.out, format+"\n", args...); err != nil {
		w.err = err
		return
	}
	if f, ok := w.out.(flusher); ok {
		w.err = f.Flush()
	}
}

// Populating announces the mapped address range [start, end).
func (w *Writer) Populating(start, end uintptr, touched bool) {
	suffix := ""
	if !touched {
		suffix = touchDisabled
	}
	w.Line("Populating memory (0x%x - 0x%x)...%s", start, end, suffix)
}

// Starting announces the PID of the random-access workload.
func (w *Writer) Starting(pid int) {
	w.Line("Starting benchmark (PID: %d)...", pid)
}

// Ready announces that the streaming loop is about to begin.
func (w *Writer) Ready() {
	w.Line("%s", ReadyMarker)
}

// Finished writes the random-access summary line.
func (w *Writer) Finished(accesses uint64, elapsed time.Duration) {
	w.Line("Finished. Total accesses: %d elapsed_sec=%s", accesses, Seconds(elapsed))
}

// Done writes the streaming summary line.
func (w *Writer) Done(elapsed time.Duration, sink uint64) {
	w.Line("Done. elapsed_sec=%s sink=%d", Seconds(elapsed), sink)
}

// Err returns the first error encountered while writing, if any.
func (w *Writer) Err() error {
	w.Lock()
	defer w.Unlock()
	return w.err
}

// Seconds formats a duration as fractional seconds.
func Seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 6, 64)
}

// ParseRange extracts the address range from a populating line.
func ParseRange(line string) (start, end uint64, ok bool) {
	m := populatingRe.FindStringSubmatch(line)
	if m == nil {
		return 0, 0, false
	}
	start, err := strconv.ParseUint(m[1], 16, 64)
	if err != nil {
		return 0, 0, false
	}
	end, err = strconv.ParseUint(m[2], 16, 64)
	if err != nil {
		return 0, 0, false
	}
	return start, end, true
}

// ParseElapsed extracts the elapsed time from a summary line.
func ParseElapsed(line string) (time.Duration, bool) {
	m := elapsedRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	sec, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(sec * float64(time.Second)), true
}
