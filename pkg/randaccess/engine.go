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

// Package randaccess implements a page-granular random read workload where
// pages are picked uniformly or with a scrambled Zipfian distribution.
package randaccess

import (
	"context"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/intel/memtraffic/pkg/cpuaffinity"
	"github.com/intel/memtraffic/pkg/handshake"
	logger "github.com/intel/memtraffic/pkg/log"
	"github.com/intel/memtraffic/pkg/memregion"
	"github.com/intel/memtraffic/pkg/metrics"
	"github.com/intel/memtraffic/pkg/pidfile"
)

const (
	// pollInterval is how often the launcher checks for the end of the run.
	pollInterval = 50 * time.Millisecond
	// publishBatch is the number of accesses a worker counts before publishing them.
	publishBatch = 4096
	// seedStride separates the random sources of consecutive workers.
	seedStride = 1337
)

var log = logger.NewLogger("randaccess")

// stopToken tells workers to finish. It is created fresh for every run.
type stopToken struct {
	stopped atomic.Bool
}

func (t *stopToken) Stop() {
	t.stopped.Store(true)
}

func (t *stopToken) Stopped() bool {
	return t.stopped.Load()
}

// Result summarizes a finished run.
type Result struct {
	// Accesses is the total number of page accesses of all workers.
	Accesses uint64
	// Elapsed is the time workers were running.
	Elapsed time.Duration
	// Pages is the number of pages in the region.
	Pages int
	// Sink is the sum of all bytes read.
	Sink uint64
}

// Engine runs the random-access workload.
type Engine struct {
	cfg     *Config
	out     *handshake.Writer
	metrics *metrics.Workload
	pidfile *pidfile.File
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
		e.metrics = metrics.NewWorkload("zipf")
	}
	return e
}

// Metrics returns the metrics updated by the engine.
func (e *Engine) Metrics() *metrics.Workload {
	return e.metrics
}

// Run maps the region, runs the workers until the configured duration
// elapses or ctx is done, and unmaps the region.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	cfg := e.cfg

	e.out.Line("Allocating %d MB (%d pages)...", cfg.MemMB, cfg.Pages())
	e.out.Line("Zipfian constant: %g", cfg.Skew)
	e.out.Line("Duration: %g seconds", cfg.Duration.Seconds())
	e.out.Line("Threads: %d (cpu_start=%d)", cfg.Threads, cfg.CPUStart)

	region, err := memregion.Map(cfg.Size())
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

	pages := region.Pages()
	e.metrics.SetRegion(region.Len())
	e.metrics.SetWorkers(cfg.Threads)

	e.out.Populating(region.Start(), region.End(), true)
	region.Touch()

	pickers := make([]picker, cfg.Threads)
	for id := range pickers {
		if pickers[id], err = newPicker(cfg, pages); err != nil {
			return nil, errors.Wrap(err, "failed to create page picker")
		}
	}

	e.out.Starting(os.Getpid())
	if cfg.Uniform() {
		e.out.Line("Mode: UNIFORM (sanity check)")
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	log.Debug("running %d workers on %d pages, seed %d", cfg.Threads, pages, seed)

	var (
		stop   = &stopToken{}
		wg     sync.WaitGroup
		total  uint64
		start  = time.Now()
		mem    = region.Bytes()
		plan   = cpuaffinity.Plan(cfg.CPUStart, cfg.Threads)
		sink   uint64
		pinLog = logger.RateLimit(log, logger.Interval(time.Second))
	)

	for id := 0; id < cfg.Threads; id++ {
		w := &worker{
			id:      id,
			cpu:     -1,
			mem:     mem,
			picker:  pickers[id],
			rng:     rand.New(rand.NewSource(seed + int64(id)*seedStride)),
			lines:   cfg.LinesPerPage,
			stride:  cfg.LineSize,
			metrics: e.metrics.Worker(id),
			stop:    stop,
		}
		if !plan.IsEmpty() {
			w.cpu = cfg.CPUStart + id
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if w.cpu >= 0 {
				if err := cpuaffinity.Pin(w.cpu); err != nil {
					pinLog.Debug("worker #%d running unpinned on CPUs %s: %v", w.id,
						cpuaffinity.DescribeCurrent(), err)
				}
			}
			accesses, sum := w.run()
			atomic.AddUint64(&total, accesses)
			atomic.AddUint64(&sink, sum)
		}()
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

poll:
	for time.Since(start) < cfg.Duration {
		select {
		case <-ctx.Done():
			log.Info("run interrupted: %v", ctx.Err())
			break poll
		case <-ticker.C:
			e.metrics.SetElapsed(time.Since(start))
		}
	}

	stop.Stop()
	wg.Wait()

	elapsed := time.Since(start)
	e.metrics.SetElapsed(elapsed)

	result := &Result{
		Accesses: atomic.LoadUint64(&total),
		Elapsed:  elapsed,
		Pages:    pages,
		Sink:     atomic.LoadUint64(&sink),
	}
	e.out.Finished(result.Accesses, result.Elapsed)

	return result, nil
}

// worker is the private state of one worker.
type worker struct {
	id      int
	cpu     int
	mem     []byte
	picker  picker
	rng     *rand.Rand
	lines   int
	stride  int
	metrics *metrics.Worker
	stop    *stopToken
}

// run reads lines of picked pages until stopped. It returns the number of
// pages accessed and the sum of the bytes read.
func (w *worker) run() (uint64, uint64) {
	var (
		accesses uint64
		pending  uint64
		sink     uint64
		pageSize = memregion.PageSize
	)

	for !w.stop.Stopped() {
		base := w.picker.Pick(w.rng) * pageSize
		for off := 0; off < w.lines*w.stride; off += w.stride {
			sink += uint64(w.mem[base+off])
		}
		accesses++
		if pending++; pending == publishBatch {
			w.metrics.AddAccesses(pending)
			pending = 0
		}
	}
	w.metrics.AddAccesses(pending)

	return accesses, sink
}
