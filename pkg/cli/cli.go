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

// Package cli collects the command line plumbing shared by our workloads:
// logging, version and metrics flags, signal handling and exit statuses.
package cli

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"

	logger "github.com/intel/memtraffic/pkg/log"
	"github.com/intel/memtraffic/pkg/memregion"
	"github.com/intel/memtraffic/pkg/metrics"
	"github.com/intel/memtraffic/pkg/pidfile"
	"github.com/intel/memtraffic/pkg/version"
)

// Exit statuses of our workloads.
const (
	// ExitOK is returned after a completed run.
	ExitOK = 0
	// ExitUsage is returned for invalid arguments and failed runs.
	ExitUsage = 1
	// ExitMap is returned if the memory region could not be mapped.
	ExitMap = 2
)

// shutdownTimeout bounds waiting for metrics scrapes in progress at exit.
const shutdownTimeout = 2 * time.Second

// DebugToggleSignal toggles full debug logging on and off.
var DebugToggleSignal os.Signal = syscall.SIGUSR1

var log = logger.NewLogger("cli")

// Options are the settings shared by all workloads.
type Options struct {
	// MetricsAddr is the address to serve metrics on, empty to disable.
	MetricsAddr string
	// MetricsFile is the file to dump final metrics to, empty to disable.
	MetricsFile string
	// PidFile is the PID file to write once memory is mapped, empty to disable.
	PidFile string

	server *metrics.Server
}

// AddFlags registers the common flags, including logger and version ones, in fs.
func (o *Options) AddFlags(fs *flag.FlagSet) {
	logger.AddFlags(fs)
	version.AddFlag(fs)
	fs.StringVar(&o.MetricsAddr, "metrics-addr", "",
		"address to serve Prometheus metrics on, for instance localhost:8891")
	fs.StringVar(&o.MetricsFile, "metrics-file", "",
		"file to write final metrics to in Prometheus text format")
	fs.StringVar(&o.PidFile, "pidfile", "",
		"file to write our PID to once memory is mapped")
}

// PidFileOrNil returns the configured PID file, or nil if none is configured.
func (o *Options) PidFileOrNil() *pidfile.File {
	if o.PidFile == "" {
		return nil
	}
	return pidfile.New(o.PidFile)
}

// Context returns a context cancelled by SIGINT or SIGTERM. It also sets up
// the debug toggle signal. Calling the returned function releases both.
func Context() (context.Context, func()) {
	logger.SetupDebugToggleSignal(DebugToggleSignal)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx, func() {
		stop()
		logger.ClearDebugToggleSignal()
	}
}

// StartMetrics starts serving the given metrics if an address is configured.
// Failing to do so is not fatal for a workload, so it only gets logged.
func (o *Options) StartMetrics(m *metrics.Workload) {
	if o.MetricsAddr == "" {
		return
	}
	o.server = metrics.NewServer(m.Gatherer())
	if err := o.server.Start(o.MetricsAddr); err != nil {
		log.Warn("not serving metrics: %v", err)
		o.server = nil
		return
	}
	log.Info("metrics available at http://%s%s", o.server.GetAddress(), metrics.MetricsPath)
}

// Finish stops serving metrics and writes them to the metrics file if one
// is configured.
func (o *Options) Finish(m *metrics.Workload) {
	if o.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := o.server.Shutdown(ctx); err != nil {
			log.Warn("metrics server shutdown: %v", err)
		}
		cancel()
		o.server = nil
	}
	if o.MetricsFile == "" {
		return
	}
	if err := m.WriteFile(o.MetricsFile); err != nil {
		log.Error("failed to write metrics: %v", err)
	}
}

// ExitStatus returns the exit status for the result of a run.
func ExitStatus(err error) int {
	if err == nil {
		return ExitOK
	}
	var mapErr *memregion.MapError
	if errors.As(err, &mapErr) {
		return ExitMap
	}
	return ExitUsage
}

// Report logs the error of a failed run and returns the exit status for it.
func Report(err error) int {
	if err != nil {
		log.Error("%v", err)
		logger.Flush()
	}
	return ExitStatus(err)
}
