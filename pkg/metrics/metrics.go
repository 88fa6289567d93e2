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

// Package metrics collects per-run workload counters into a Prometheus
// registry, exposes them over HTTP and dumps them in text format.
package metrics

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	model "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	logger "github.com/intel/memtraffic/pkg/log"
)

const (
	// Namespace prefixes all our metric names.
	Namespace = "memtraffic"

	// AccessesTotal is the name of the per-worker access counter.
	AccessesTotal = Namespace + "_accesses_total"
	// PassesTotal is the name of the per-worker pass counter.
	PassesTotal = Namespace + "_passes_total"
	// RegionBytes is the name of the mapped region size gauge.
	RegionBytes = Namespace + "_region_bytes"
	// Workers is the name of the worker count gauge.
	Workers = Namespace + "_workers"
	// ElapsedSeconds is the name of the run time gauge.
	ElapsedSeconds = Namespace + "_elapsed_seconds"
)

var log = logger.NewLogger("metrics")

// Workload collects the metrics of a single workload run in a private registry.
type Workload struct {
	registry    *prometheus.Registry
	accesses    *prometheus.CounterVec
	passes      *prometheus.CounterVec
	regionBytes prometheus.Gauge
	workers     prometheus.Gauge
	elapsed     prometheus.Gauge
}

// Worker is the set of metrics updated by one worker.
type Worker struct {
	accesses prometheus.Counter
	passes   prometheus.Counter
}

// NewWorkload creates the metrics of a run of the named workload.
func NewWorkload(workload string) *Workload {
	labels := prometheus.Labels{"workload": workload}
	w := &Workload{
		registry: prometheus.NewPedanticRegistry(),
		accesses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        AccessesTotal,
			Help:        "Number of page or element accesses performed by a worker.",
			ConstLabels: labels,
		}, []string{"worker"}),
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        PassesTotal,
			Help:        "Number of passes completed by a worker.",
			ConstLabels: labels,
		}, []string{"worker"}),
		regionBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        RegionBytes,
			Help:        "Size of the mapped memory region in bytes.",
			ConstLabels: labels,
		}),
		workers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        Workers,
			Help:        "Number of workers generating memory traffic.",
			ConstLabels: labels,
		}),
		elapsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        ElapsedSeconds,
			Help:        "Wall-clock time the workers have been running.",
			ConstLabels: labels,
		}),
	}

	w.registry.MustRegister(w.accesses, w.passes, w.regionBytes, w.workers, w.elapsed)

	return w
}

// Worker returns the metrics for worker id, creating them if necessary.
func (w *Workload) Worker(id int) *Worker {
	worker := strconv.Itoa(id)
	return &Worker{
		accesses: w.accesses.WithLabelValues(worker),
		passes:   w.passes.WithLabelValues(worker),
	}
}

// SetRegion records the size of the mapped region.
func (w *Workload) SetRegion(bytes int) {
	w.regionBytes.Set(float64(bytes))
}

// SetWorkers records the number of workers.
func (w *Workload) SetWorkers(count int) {
	w.workers.Set(float64(count))
}

// SetElapsed records the time the workers have been running.
func (w *Workload) SetElapsed(elapsed time.Duration) {
	w.elapsed.Set(elapsed.Seconds())
}

// Gatherer returns the gatherer for the collected metrics.
func (w *Workload) Gatherer() prometheus.Gatherer {
	return w.registry
}

// Total returns the sum of all samples of the named counter or gauge.
func (w *Workload) Total(name string) (float64, error) {
	families, err := w.registry.Gather()
	if err != nil {
		return 0, errors.Wrap(err, "failed to gather metrics")
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		total := 0.0
		for _, m := range f.GetMetric() {
			total += sampleValue(f.GetType(), m)
		}
		return total, nil
	}
	return 0, metricsError("no metric %q", name)
}

func sampleValue(kind model.MetricType, m *model.Metric) float64 {
	switch kind {
	case model.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case model.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	case model.MetricType_UNTYPED:
		return m.GetUntyped().GetValue()
	}
	return 0
}

// Write writes the collected metrics to out in text exposition format.
func (w *Workload) Write(out io.Writer) error {
	families, err := w.registry.Gather()
	if err != nil {
		return errors.Wrap(err, "failed to gather metrics")
	}
	enc := expfmt.NewEncoder(out, expfmt.FmtText)
	for _, f := range families {
		if err := enc.Encode(f); err != nil {
			return errors.Wrapf(err, "failed to encode metric %s", f.GetName())
		}
	}
	return nil
}

// WriteFile writes the collected metrics to the file at path.
func (w *Workload) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create metrics file")
	}
	if err := w.Write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "failed to close metrics file")
	}
	log.Info("metrics written to %s", path)
	return nil
}

// AddAccesses adds count accesses to the worker's counter.
func (w *Worker) AddAccesses(count uint64) {
	w.accesses.Add(float64(count))
}

// AddPasses adds count completed passes to the worker's counter.
func (w *Worker) AddPasses(count uint64) {
	w.passes.Add(float64(count))
}

func metricsError(format string, args ...interface{}) error {
	return fmt.Errorf("metrics: "+format, args...)
}
