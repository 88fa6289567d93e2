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

package randaccess

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/intel/memtraffic/pkg/memregion"
	"github.com/intel/memtraffic/pkg/zipf"
)

const (
	// DefaultMemMB is the default region size in MiB.
	DefaultMemMB = 1024
	// DefaultSkew is the default Zipfian constant.
	DefaultSkew = zipf.DefaultConstant
	// DefaultDuration is the default run time.
	DefaultDuration = 60 * time.Second
	// DefaultThreads is the default number of workers.
	DefaultThreads = 1
	// DefaultCPUStart is the default CPU of the first worker.
	DefaultCPUStart = 0

	// UniformThreshold is the skew below which pages are picked uniformly.
	UniformThreshold = 0.01
	// LinesPerPage is the number of cache lines read per page access.
	LinesPerPage = 64
	// LineSize is the distance between two lines read within a page.
	LineSize = 64

	// maxPositional is the number of accepted positional arguments.
	maxPositional = 5
)

// Config is the configuration of a random-access run.
type Config struct {
	// MemMB is the size of the region in MiB.
	MemMB int
	// Skew is the Zipfian constant, below UniformThreshold for uniform access.
	Skew float64
	// Duration is how long workers run.
	Duration time.Duration
	// Threads is the number of workers.
	Threads int
	// CPUStart is the CPU of worker #0, negative for no pinning.
	CPUStart int
	// Seed seeds the random sources of workers, 0 for a time-based seed.
	Seed int64
	// Sorted disables rank scrambling of Zipfian picks.
	Sorted bool
	// LinesPerPage is the number of lines read per picked page.
	LinesPerPage int
	// LineSize is the distance of lines read within a page.
	LineSize int
}

// DefaultConfig returns the configuration used with no arguments.
func DefaultConfig() *Config {
	return &Config{
		MemMB:        DefaultMemMB,
		Skew:         DefaultSkew,
		Duration:     DefaultDuration,
		Threads:      DefaultThreads,
		CPUStart:     DefaultCPUStart,
		LinesPerPage: LinesPerPage,
		LineSize:     LineSize,
	}
}

// Usage is the positional argument synopsis.
const Usage = "[options] [<mem_size_mb> [<skew> [<duration_sec> [<num_threads> [<cpu_start>]]]]]"

// ParseArgs registers our flags in fs, parses args and returns the resulting
// configuration. Flags must precede the positional arguments.
func ParseArgs(fs *flag.FlagSet, args []string) (*Config, error) {
	fs.Usage = func() { PrintUsage(fs.Output(), fs) }

	fail := func(err error) (*Config, error) {
		fmt.Fprintln(fs.Output(), err)
		fs.Usage()
		return nil, err
	}

	cfg := DefaultConfig()

	fs.Int64Var(&cfg.Seed, "seed", 0, "seed for worker random sources (0 picks one from the clock)")
	fs.BoolVar(&cfg.Sorted, "sorted", false, "do not scramble Zipfian ranks (hot pages cluster at low addresses)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	pos := fs.Args()
	if len(pos) > maxPositional {
		return fail(configError("too many arguments (%d), expected at most %d",
			len(pos), maxPositional))
	}

	var err error
	for idx, arg := range pos {
		switch idx {
		case 0:
			cfg.MemMB, err = parseInt("mem_size_mb", arg)
		case 1:
			cfg.Skew, err = parseFloat("skew", arg)
		case 2:
			var sec float64
			if sec, err = parseFloat("duration_sec", arg); err == nil {
				cfg.Duration = time.Duration(sec * float64(time.Second))
			}
		case 3:
			cfg.Threads, err = parseInt("num_threads", arg)
			if cfg.Threads < 1 {
				cfg.Threads = 1
			}
		case 4:
			cfg.CPUStart, err = parseInt("cpu_start", arg)
		}
		if err != nil {
			return fail(err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return fail(err)
	}

	return cfg, nil
}

// PrintUsage prints usage information with the flags registered in fs.
func PrintUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, "Usage: %s %s\n\n", fs.Name(), Usage)
	fmt.Fprintf(w, "Defaults: %d MB, skew %g, %g seconds, %d thread(s) from CPU %d.\n"+
		"A skew below %g picks pages uniformly, a negative cpu_start disables pinning.\n\nOptions:\n",
		DefaultMemMB, DefaultSkew, DefaultDuration.Seconds(), DefaultThreads, DefaultCPUStart, UniformThreshold)
	fs.SetOutput(w)
	fs.PrintDefaults()
}

// Validate checks the configuration, reporting all problems found.
func (c *Config) Validate() error {
	var errs *multierror.Error

	if c.MemMB < 1 {
		errs = multierror.Append(errs, configError("invalid memory size %d MB", c.MemMB))
	} else if pages := c.Pages(); pages < 2 {
		errs = multierror.Append(errs, configError("region of %d pages too small, need at least 2", pages))
	}
	if c.Skew < 0 || c.Skew >= 1 {
		errs = multierror.Append(errs, configError("invalid skew %g, must be in [0, 1)", c.Skew))
	}
	if c.Duration < 0 {
		errs = multierror.Append(errs, configError("invalid negative duration %s", c.Duration))
	}
	if c.Threads < 1 {
		errs = multierror.Append(errs, configError("invalid number of threads %d", c.Threads))
	}
	if c.LinesPerPage < 1 || c.LineSize < 1 || (c.LinesPerPage-1)*c.LineSize >= memregion.PageSize {
		errs = multierror.Append(errs, configError("%d lines %d bytes apart do not fit a %d-byte page",
			c.LinesPerPage, c.LineSize, memregion.PageSize))
	}

	return errs.ErrorOrNil()
}

// Uniform returns true if pages are picked uniformly.
func (c *Config) Uniform() bool {
	return c.Skew < UniformThreshold
}

// Size returns the size of the region in bytes.
func (c *Config) Size() int {
	return c.MemMB * memregion.MiB
}

// Pages returns the number of pages in the region.
func (c *Config) Pages() int {
	return memregion.RoundToPages(c.Size()) / memregion.PageSize
}

func parseInt(name, arg string) (int, error) {
	v, err := strconv.Atoi(arg)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s %q", name, arg)
	}
	return v, nil
}

func parseFloat(name, arg string) (float64, error) {
	v, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s %q", name, arg)
	}
	return v, nil
}

func configError(format string, args ...interface{}) error {
	return fmt.Errorf("randaccess: "+format, args...)
}
