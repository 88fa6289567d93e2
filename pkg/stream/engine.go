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

// Package stream implements a STREAM-style sweep workload. Worker threads run
// read, write, copy or triad kernels over arrays laid out in one mapped region,
// optionally confined to a window of pages that moves from pass to pass.
package stream

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/intel/memtraffic/pkg/barrier"
	"github.com/intel/memtraffic/pkg/cpuaffinity"
	"github.com/intel/memtraffic/pkg/handshake"
	logger "github.com/intel/memtraffic/pkg/log"
	"github.com/intel/memtraffic/pkg/memregion"
	"github.com/intel/memtraffic/pkg/metrics"
	"github.com/intel/memtraffic/pkg/pidfile"
)

// elapsedInterval is how often the run time metric is updated.
const elapsedInterval = 100 * time.Millisecond

var log = logger.NewLogger("stream")

// Result summarizes a finished run.
type Result struct {
	// Elapsed is the time workers were running.
	Elapsed time.Duration
	// Sink is the sum of all worker accumulators.
	Sink uint64
	// Passes is the total number of passes of all workers.
	Passes uint64
}

// Engine runs the streaming workload.
type Engine struct {
	cfg     *Config
	out     *handshake.Writer
	metrics *metrics.Workload
	pidfile *pidfile.File
	ready   func(*memregion.Region, *Arrays)
}

// Option is an optional Engine setting.
type Option func(*Engine)

// WithOutput sets the handshake writer to use instead of standard output.
func WithOutput(w *handshake.Writer) Option {
	return func(e *Engine) {
		e.out = w
	}
}

// WithMetrics sets the metrics to update during the run.
func WithMetrics(m *metrics.Workload) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithPidFile sets a PID file to write once the region is mapped.
func WithPidFile(p *pidfile.File) Option {
	return func(e *Engine) {
		e.pidfile = p
	}
}

// WithReadyHook sets a function to call with the populated arrays right
// before the workers start.
func WithReadyHook(fn func(*memregion.Region, *Arrays)) Option {
	return func(e *Engine) {
		e.ready = fn
	}
}

// NewEngine creates an engine for the given configuration.
func NewEngine(cfg *Config, options ...Option) *Engine {
	e := &Engine{cfg: cfg}
	for _, o := range options {
		o(e)
	}
	if e.out == nil {
		e.out = handshake.New(os.Stdout)
	}
	if e.metrics == nil {
		e.metrics = metrics.NewWorkload("stream")
	}
	return e
}

// Metrics returns the metrics updated by the engine.
func (e *Engine) Metrics() *metrics.Workload {
	return e.metrics
}

// Run maps and populates the region, runs the workers until the deadline
// passes or ctx is done, and unmaps the region.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	cfg := e.cfg
	layout := cfg.Layout()

	e.out.Line("stream_bench pid: %d", os.Getpid())
	e.out.Line("%s", cfg)
	for _, line := range layout.Lines() {
		e.out.Line("%s", line)
	}

	region, err := memregion.Map(layout.MapBytes)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := region.Unmap(); err != nil {
			log.Error("%v", err)
		}
	}()

	if e.pidfile != nil {
		if err := e.pidfile.Write(); err != nil {
			log.Warn("%v", err)
		} else {
			defer e.pidfile.Remove()
		}
	}

	arrays, err := NewArrays(region, layout)
	if err != nil {
		return nil, err
	}

	e.metrics.SetRegion(region.Len())
	e.metrics.SetWorkers(cfg.Threads)

	e.out.Populating(region.Start(), region.End(), cfg.Touch)
	if cfg.Touch {
		region.Touch()
		arrays.Seed()
	}

	if e.ready != nil {
		e.ready(region, arrays)
	}
	e.out.Ready()

	if cfg.Warmup > 0 {
		e.out.Line("Warmup sleep: %d sec", int64(cfg.Warmup/time.Second))
		sleep(ctx, cfg.Warmup)
	}

	var bar *barrier.Barrier
	if cfg.SyncPhases && cfg.Threads > 1 {
		if bar, err = barrier.New(cfg.Threads); err != nil {
			log.Warn("failed to create phase barrier, disabling phase sync: %v", err)
			bar = nil
		} else {
			log.Debug("synchronizing phases of %d workers", bar.Parties())
		}
	}

	var (
		planner  = cfg.Planner(layout)
		plan     = cpuaffinity.Plan(cfg.CPUStart, cfg.Threads)
		pinLog   = logger.RateLimit(log, logger.Interval(time.Second))
		start    = time.Now()
		deadline = start.Add(cfg.Duration)
		sink     uint64
		passes   uint64
		wg       sync.WaitGroup
	)

	for tid := 0; tid < cfg.Threads; tid++ {
		w := &worker{
			tid:      tid,
			cpu:      -1,
			op:       cfg.Op,
			arrays:   arrays,
			planner:  planner,
			barrier:  bar,
			deadline: deadline,
			check:    cfg.PassesPerCheck,
			metrics:  e.metrics.Worker(tid),
		}
		if cfg.Windowed() {
			w.sleep = cfg.PhaseSleep
		}
		if !plan.IsEmpty() {
			w.cpu = cfg.CPUStart + tid
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if w.cpu >= 0 {
				if err := cpuaffinity.Pin(w.cpu); err != nil {
					pinLog.Debug("worker #%d running unpinned on CPUs %s: %v", w.tid,
						cpuaffinity.DescribeCurrent(), err)
				}
			}
			local, count := w.run(ctx)
			atomic.AddUint64(&sink, local)
			atomic.AddUint64(&passes, count)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	ticker := time.NewTicker(elapsedInterval)
	defer ticker.Stop()

wait:
	for {
		select {
		case <-done:
			break wait
		case <-ticker.C:
			e.metrics.SetElapsed(time.Since(start))
		}
	}

	elapsed := time.Since(start)
	e.metrics.SetElapsed(elapsed)

	result := &Result{
		Elapsed: elapsed,
		Sink:    atomic.LoadUint64(&sink),
		Passes:  atomic.LoadUint64(&passes),
	}
	e.out.Done(result.Elapsed, result.Sink)

	return result, nil
}

// worker is the private state of one worker.
type worker struct {
	tid      int
	cpu      int
	op       Op
	arrays   *Arrays
	planner  *Planner
	barrier  *barrier.Barrier
	deadline time.Time
	check    int
	sleep    time.Duration
	metrics  *metrics.Worker
}

// run executes passes until the deadline, returning the accumulator and
// the number of passes run.
func (w *worker) run(ctx context.Context) (uint64, uint64) {
	var (
		local uint64
		pass  int
	)

	for {
		p := w.planner.Pass(w.tid, pass)
		local = runPass(w.op, w.arrays, &p, local)
		pass++

		w.metrics.AddAccesses(uint64(p.Len()))
		w.metrics.AddPasses(1)

		stop := false
		if pass%w.check == 0 {
			stop = !time.Now().Before(w.deadline) || ctx.Err() != nil
		}
		if w.barrier != nil {
			stop = w.barrier.Wait(stop)
		}
		if stop {
			break
		}

		if w.sleep > 0 {
			time.Sleep(w.sleep)
		}
	}

	return local, uint64(pass)
}

// sleep sleeps for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
