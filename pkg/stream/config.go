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

package stream

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/intel/memtraffic/pkg/config"
	"github.com/intel/memtraffic/pkg/memregion"
)

// Config is the configuration of a streaming run.
type Config struct {
	// MemMB is the size of the region in MiB.
	MemMB int
	// Threads is the number of workers.
	Threads int
	// Duration is how long workers run.
	Duration time.Duration
	// Warmup is the sleep before workers start.
	Warmup time.Duration
	// CPUStart is the CPU of worker #0, negative for no pinning.
	CPUStart int
	// Pattern is the partitioning of the index space.
	Pattern Pattern
	// Op is the kernel to run.
	Op Op
	// Touch enables pre-touching and seeding the arrays.
	Touch bool
	// PhasePages is the per-pass shift of every worker's base, in pages.
	PhasePages int
	// WindowPages limits each pass to a window of this many pages, 0 for no window.
	WindowPages int
	// StepPages is the per-pass advance of the window, 0 for WindowPages.
	StepPages int
	// PhaseSleep is the sleep after every windowed pass.
	PhaseSleep time.Duration
	// SyncPhases keeps workers in lock-step with a barrier after every pass.
	SyncPhases bool
	// PassesPerCheck is the number of passes between deadline checks.
	PassesPerCheck int
}

// DefaultConfig returns the configuration used with no arguments.
func DefaultConfig() *Config {
	return &Config{
		MemMB:          1024,
		Threads:        1,
		Duration:       60 * time.Second,
		CPUStart:       0,
		Pattern:        PatternChunk,
		Op:             OpTriad,
		Touch:          true,
		PassesPerCheck: 1,
	}
}

// fileConfig is the YAML representation of Config.
type fileConfig struct {
	MemMB          int             `json:"mem-mb"`
	Threads        int             `json:"threads"`
	Duration       config.Duration `json:"duration"`
	Warmup         config.Duration `json:"warmup"`
	CPUStart       int             `json:"cpu-start"`
	Pattern        Pattern         `json:"pattern"`
	Op             Op              `json:"op"`
	Touch          bool            `json:"touch"`
	PhasePages     int             `json:"phase-pages"`
	WindowPages    int             `json:"window-pages"`
	StepPages      int             `json:"step-pages"`
	PhaseSleepUs   int64           `json:"phase-sleep-us"`
	SyncPhases     bool            `json:"sync-phases"`
	PassesPerCheck int             `json:"passes-per-check"`
}

func (c *Config) toFile() *fileConfig {
	return &fileConfig{
		MemMB:          c.MemMB,
		Threads:        c.Threads,
		Duration:       config.Duration(c.Duration),
		Warmup:         config.Duration(c.Warmup),
		CPUStart:       c.CPUStart,
		Pattern:        c.Pattern,
		Op:             c.Op,
		Touch:          c.Touch,
		PhasePages:     c.PhasePages,
		WindowPages:    c.WindowPages,
		StepPages:      c.StepPages,
		PhaseSleepUs:   c.PhaseSleep.Microseconds(),
		SyncPhases:     c.SyncPhases,
		PassesPerCheck: c.PassesPerCheck,
	}
}

func (f *fileConfig) toConfig() *Config {
	return &Config{
		MemMB:          f.MemMB,
		Threads:        f.Threads,
		Duration:       f.Duration.Std(),
		Warmup:         f.Warmup.Std(),
		CPUStart:       f.CPUStart,
		Pattern:        f.Pattern,
		Op:             f.Op,
		Touch:          f.Touch,
		PhasePages:     f.PhasePages,
		WindowPages:    f.WindowPages,
		StepPages:      f.StepPages,
		PhaseSleep:     time.Duration(f.PhaseSleepUs) * time.Microsecond,
		SyncPhases:     f.SyncPhases,
		PassesPerCheck: f.PassesPerCheck,
	}
}

// LoadConfig returns the default configuration overridden by the YAML file at path.
func LoadConfig(path string) (*Config, error) {
	f := DefaultConfig().toFile()
	if err := config.Load(path, f); err != nil {
		return nil, err
	}
	return f.toConfig(), nil
}

// intBool is a flag taking 0 or 1, or any other integer for true.
type intBool struct {
	ptr *bool
}

func (f intBool) Set(value string) error {
	v, err := strconv.Atoi(value)
	if err != nil {
		return streamError("invalid value %q, expected 0|1", value)
	}
	*f.ptr = v != 0
	return nil
}

func (f intBool) String() string {
	if f.ptr != nil && *f.ptr {
		return "1"
	}
	return "0"
}

// durationUnit is a flag taking an integer number of the given unit.
type durationUnit struct {
	ptr  *time.Duration
	unit time.Duration
}

func (f durationUnit) Set(value string) error {
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return streamError("invalid value %q, expected an integer", value)
	}
	*f.ptr = time.Duration(v) * f.unit
	return nil
}

func (f durationUnit) String() string {
	if f.ptr == nil || f.unit == 0 {
		return "0"
	}
	return strconv.FormatInt(int64(*f.ptr/f.unit), 10)
}

const configFlag = "config"

// configPath pre-scans args for the configuration file flag.
func configPath(args []string) string {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		name := strings.TrimLeft(arg, "-")
		if len(name) == len(arg) || len(arg)-len(name) > 2 {
			continue
		}
		if name == configFlag && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(name, configFlag+"=") {
			return strings.TrimPrefix(name, configFlag+"=")
		}
	}
	return ""
}

// ParseArgs registers our flags in fs, parses args and returns the resulting
// configuration. On failure the error and usage are printed to fs.Output().
func ParseArgs(fs *flag.FlagSet, args []string) (*Config, error) {
	fs.Usage = func() { PrintUsage(fs.Output(), fs) }

	fail := func(err error) (*Config, error) {
		fmt.Fprintln(fs.Output(), err)
		fs.Usage()
		return nil, err
	}

	cfg := DefaultConfig()
	if path := configPath(args); path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return fail(err)
		}
		cfg = loaded
	}

	var file string
	fs.StringVar(&file, configFlag, "", "YAML file with option defaults, overridden by the command line")
	fs.IntVar(&cfg.MemMB, "mem-mb", cfg.MemMB, "total mapping size in MB")
	fs.IntVar(&cfg.Threads, "threads", cfg.Threads, "number of worker threads")
	fs.Var(durationUnit{&cfg.Duration, time.Second}, "duration", "run duration in seconds")
	fs.Var(durationUnit{&cfg.Warmup, time.Second}, "warmup", "sleep before starting work, in seconds")
	fs.IntVar(&cfg.CPUStart, "cpu-start", cfg.CPUStart,
		"pin threads to cpu-start..cpu-start+N-1, -1 to disable pinning")
	fs.Var(&cfg.Pattern, "pattern", "access pattern (chunk|interleave)")
	fs.Var(&cfg.Op, "op", "operation (read|write|copy|triad)")
	fs.Var(intBool{&cfg.Touch}, "touch", "touch pages before run to fault them in (0|1)")
	fs.IntVar(&cfg.PhasePages, "phase-pages", cfg.PhasePages,
		"per-pass start offset in pages, 0 disables phase shifting")
	fs.IntVar(&cfg.WindowPages, "window-pages", cfg.WindowPages,
		"if >0, scan only this many pages per phase")
	fs.IntVar(&cfg.StepPages, "step-pages", cfg.StepPages, "phase step in pages (default window-pages)")
	fs.Var(durationUnit{&cfg.PhaseSleep, time.Microsecond}, "phase-sleep-us", "sleep after each phase, in microseconds")
	fs.Var(intBool{&cfg.SyncPhases}, "sync-phases", "barrier sync after each phase (0|1)")
	fs.IntVar(&cfg.PassesPerCheck, "passes-per-check", cfg.PassesPerCheck,
		"number of passes between deadline checks")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return fail(streamError("unknown argument %q", fs.Arg(0)))
	}

	cfg.clamp()
	if err := cfg.Validate(); err != nil {
		return fail(err)
	}

	return cfg, nil
}

// clamp adjusts out of range values the way the command line always has.
func (c *Config) clamp() {
	if c.Threads < 1 {
		c.Threads = 1
	}
	if c.Duration < time.Second {
		c.Duration = time.Second
	}
	if c.Warmup < 0 {
		c.Warmup = 0
	}
	if c.PhaseSleep < 0 {
		c.PhaseSleep = 0
	}
	if c.PassesPerCheck < 1 {
		c.PassesPerCheck = 1
	}
}

// Validate checks the configuration, reporting all problems found.
func (c *Config) Validate() error {
	var errs *multierror.Error

	if c.MemMB < 1 {
		errs = multierror.Append(errs, streamError("invalid memory size %d MB", c.MemMB))
	}
	if c.Threads < 1 {
		errs = multierror.Append(errs, streamError("invalid number of threads %d", c.Threads))
	}
	if _, ok := opNames[c.Op]; !ok {
		errs = multierror.Append(errs, streamError("invalid op %d", int(c.Op)))
	}
	if c.Pattern != PatternChunk && c.Pattern != PatternInterleave {
		errs = multierror.Append(errs, streamError("invalid pattern %d", int(c.Pattern)))
	}
	for name, pages := range map[string]int{
		"phase-pages":  c.PhasePages,
		"window-pages": c.WindowPages,
		"step-pages":   c.StepPages,
	} {
		if pages < 0 {
			errs = multierror.Append(errs, streamError("invalid negative %s %d", name, pages))
		}
	}
	if c.PassesPerCheck < 1 {
		errs = multierror.Append(errs, streamError("invalid passes-per-check %d", c.PassesPerCheck))
	}

	return errs.ErrorOrNil()
}

// Windowed returns true if passes are limited to a window.
func (c *Config) Windowed() bool {
	return c.WindowPages > 0
}

// String returns the configuration summary line.
func (c *Config) String() string {
	return fmt.Sprintf("Config: mem_mb=%d threads=%d duration=%d cpu_start=%d pattern=%s op=%s"+
		" touch=%d phase_pages=%d window_pages=%d step_pages=%d phase_sleep_us=%d"+
		" sync_phases=%d arrays=%d",
		c.MemMB, c.Threads, int64(c.Duration/time.Second), c.CPUStart, c.Pattern, c.Op,
		boolInt(c.Touch), c.PhasePages, c.WindowPages, c.StepPages, c.PhaseSleep.Microseconds(),
		boolInt(c.SyncPhases), c.Op.Arrays())
}

// Layout returns the layout of the arrays in the region.
func (c *Config) Layout() Layout {
	return NewLayout(c.MemMB*memregion.MiB, c.Op)
}

// PrintUsage prints usage information with the flags registered in fs.
func PrintUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, "Usage: %s [options]\n\nOptions:\n", fs.Name())
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintf(w, "\nNotes:\n"+
		"  - Uses one anonymous mmap region; arrays are laid out back-to-back.\n"+
		"  - Prints: Populating memory (0xAAA - 0xBBB)... for profiling scripts.\n")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
