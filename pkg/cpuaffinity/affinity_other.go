//go:build !linux
// +build !linux

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
)

// Pin locks the calling goroutine to its OS thread. Setting CPU affinity
// is not supported on this platform.
func Pin(cpu int) error {
	runtime.LockOSThread()
	return errors.Errorf("CPU pinning not supported on %s", runtime.GOOS)
}

// Current is not supported on this platform.
func Current() ([]int, error) {
	return nil, errors.Errorf("CPU affinity not supported on %s", runtime.GOOS)
}
