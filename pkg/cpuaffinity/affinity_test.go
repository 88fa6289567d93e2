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
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
	"k8s.io/utils/cpuset"
)

func TestPlan(t *testing.T) {
	require.True(t, Plan(-1, 4).IsEmpty())
	require.True(t, Plan(0, 0).IsEmpty())
	require.Equal(t, "0", Plan(0, 1).String())
	require.Equal(t, "2-5", Plan(2, 4).String())
}

func TestDescribe(t *testing.T) {
	tcases := []struct {
		cpus     []int
		expected string
	}{
		{cpus: nil, expected: "none"},
		{cpus: []int{3}, expected: "3"},
		{cpus: []int{0, 1, 2, 3}, expected: "0-3"},
		{cpus: []int{0, 2}, expected: "0,2"},
		{cpus: []int{0, 2, 4, 6}, expected: "0-6:2"},
		{cpus: []int{0, 1, 2, 8, 10, 12}, expected: "0-2,8-12:2"},
		{cpus: []int{1, 5, 6}, expected: "1,5,6"},
	}
	for _, tc := range tcases {
		t.Run(tc.expected, func(t *testing.T) {
			require.Equal(t, tc.expected, Describe(cpuset.New(tc.cpus...)))
		})
	}
}

func TestReadCPUList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "online")

	require.NoError(t, os.WriteFile(path, []byte("0-3,8\n"), 0644))
	cset, err := readCPUList(path)
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2, 3, 8}, cset.List())

	require.NoError(t, os.WriteFile(path, []byte("zero-three\n"), 0644))
	_, err = readCPUList(path)
	require.Error(t, err)

	_, err = readCPUList(filepath.Join(dir, "missing"))
	require.Error(t, err)
}

func TestPin(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("CPU pinning is only supported on linux")
	}

	allowed, err := Current()
	require.NoError(t, err)
	require.NotEmpty(t, allowed)

	target := allowed[len(allowed)-1]
	type result struct {
		cpus []int
		err  error
	}
	ch := make(chan result)
	go func() {
		// the locked thread is discarded when this goroutine exits
		if err := Pin(target); err != nil {
			ch <- result{err: err}
			return
		}
		cpus, err := Current()
		ch <- result{cpus: cpus, err: err}
	}()

	r := <-ch
	require.NoError(t, r.err)
	require.Equal(t, []int{target}, r.cpus)

	// pinning failures are reported, never fatal
	go func() {
		ch <- result{err: Pin(maxCPUs + 1)}
	}()
	require.Error(t, (<-ch).err)
}

func TestDescribeCurrent(t *testing.T) {
	if runtime.GOOS != "linux" {
		require.Equal(t, "unknown", DescribeCurrent())
		return
	}
	cpus, err := Current()
	require.NoError(t, err)
	require.Equal(t, Describe(cpuset.New(cpus...)), DescribeCurrent())
	require.NotEqual(t, "none", DescribeCurrent())
}
