//go:build linux
// +build linux

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

package cpuaffinity

import (
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Pin locks the calling goroutine to its OS thread and binds the thread
// to the given CPU. The goroutine stays locked even if setting affinity
// fails, so callers may ignore the error and run unpinned.
func Pin(cpu int) error {
	runtime.LockOSThread()

	if cpu < 0 {
		return errors.Errorf("invalid CPU #%d", cpu)
	}

	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	if set.Count() != 1 {
		return errors.Errorf("CPU #%d out of affinity mask range", cpu)
	}

	// pid 0 is the calling thread
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return errors.Wrapf(err, "failed to pin thread to CPU #%d", cpu)
	}
	return nil
}

// Current returns the CPUs the calling thread may run on.
func Current() ([]int, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return nil, errors.Wrap(err, "failed to get thread affinity")
	}
	cpus := []int{}
	for cpu := 0; cpu < maxCPUs; cpu++ {
		if set.IsSet(cpu) {
			cpus = append(cpus, cpu)
		}
	}
	return cpus, nil
}
