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
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/utils/cpuset"

	logger "github.com/intel/memtraffic/pkg/log"
)

const (
	// onlineCPUsPath is the sysfs entry listing online CPUs.
	onlineCPUsPath = "/sys/devices/system/cpu/online"
	// maxCPUs is the size of the CPU affinity mask we use.
	maxCPUs = 1024
)

var log = logger.NewLogger("affinity")

// Plan returns the CPUs count workers starting at start get pinned to.
// A negative start means no pinning and an empty set.
func Plan(start, count int) cpuset.CPUSet {
	if start < 0 || count < 1 {
		return cpuset.New()
	}
	cpus := make([]int, 0, count)
	for i := 0; i < count; i++ {
		cpus = append(cpus, start+i)
	}
	return cpuset.New(cpus...)
}

// Online returns the set of online CPUs.
func Online() (cpuset.CPUSet, error) {
	return readCPUList(onlineCPUsPath)
}

func readCPUList(path string) (cpuset.CPUSet, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return cpuset.New(), errors.Wrapf(err, "failed to read CPU list")
	}
	cset, err := cpuset.Parse(strings.TrimSpace(string(buf)))
	if err != nil {
		return cpuset.New(), errors.Wrapf(err, "invalid CPU list in %s", path)
	}
	return cset, nil
}

// CheckPlan warns about planned CPUs which are not online. Workers
// on such CPUs run unpinned.
func CheckPlan(plan cpuset.CPUSet) {
	if plan.IsEmpty() {
		log.Info("CPU pinning disabled")
		return
	}
	online, err := Online()
	if err != nil {
		log.Warn("can't verify CPU pinning plan %s: %v", Describe(plan), err)
		return
	}
	if missing := plan.Difference(online); !missing.IsEmpty() {
		log.Warn("CPUs %s are not online, workers on them will not be pinned",
			Describe(missing))
	}
	log.Info("pinning workers to CPUs %s", Describe(plan))
}

// DescribeCurrent formats the CPUs the calling thread is allowed to run on.
func DescribeCurrent() string {
	cpus, err := Current()
	if err != nil {
		return "unknown"
	}
	return Describe(cpuset.New(cpus...))
}

// Describe formats the CPU set, shortening strided runs to beg-end:step.
func Describe(cset cpuset.CPUSet) string {
	cpus := cset.List()
	if len(cpus) == 0 {
		return "none"
	}

	parts := []string{}
	beg, end, step := cpus[0], cpus[0], 0
	for _, id := range cpus[1:] {
		switch {
		case step == 0:
			end, step = id, id-beg
		case id-end == step:
			end = id
		default:
			parts = append(parts, mkRange(beg, end, step))
			beg, end, step = id, id, 0
		}
	}
	parts = append(parts, mkRange(beg, end, step))

	return strings.Join(parts, ",")
}

func mkRange(beg, end, step int) string {
	b, e := strconv.Itoa(beg), strconv.Itoa(end)
	switch {
	case beg == end:
		return b
	case step == 1:
		return b + "-" + e
	case beg+step == end:
		return b + "," + e
	}
	return b + "-" + e + ":" + strconv.Itoa(step)
}
