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

package config_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/intel/memtraffic/pkg/config"
	"github.com/stretchr/testify/require"
)

type testCfg struct {
	Threads  int             `json:"threads"`
	Op       string          `json:"op"`
	Duration config.Duration `json:"duration"`
	Sleep    config.Duration `json:"sleep,omitempty"`
}

func TestDuration(t *testing.T) {
	type testCase struct {
		name     string
		data     string
		expected time.Duration
		invalid  bool
	}
	for _, tc := range []testCase{
		{name: "string", data: `"1m30s"`, expected: 90 * time.Second},
		{name: "microseconds", data: `"200us"`, expected: 200 * time.Microsecond},
		{name: "integer seconds", data: `60`, expected: time.Minute},
		{name: "fractional seconds", data: `0.5`, expected: 500 * time.Millisecond},
		{name: "bad string", data: `"soon"`, invalid: true},
		{name: "bad number", data: `1e`, invalid: true},
		{name: "empty", data: ``, invalid: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var d config.Duration
			err := d.UnmarshalJSON([]byte(tc.data))
			if tc.invalid {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expected, d.Std())
		})
	}

	raw, err := json.Marshal(config.Duration(2 * time.Second))
	require.NoError(t, err)
	require.Equal(t, `"2s"`, string(raw))
}

func TestParse(t *testing.T) {
	cfg := &testCfg{Threads: 1, Op: "triad", Sleep: config.Duration(time.Second)}
	require.NoError(t, config.Parse([]byte("threads: 4\nduration: 10\n"), cfg))
	require.Equal(t, &testCfg{
		Threads:  4,
		Op:       "triad",
		Duration: config.Duration(10 * time.Second),
		Sleep:    config.Duration(time.Second),
	}, cfg)

	require.Error(t, config.Parse([]byte("threads: 4\nbogus: true\n"), cfg))
	require.Error(t, config.Parse([]byte("threads: many\n"), cfg))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stream.yaml")
	require.NoError(t, os.WriteFile(path, []byte("op: copy\nduration: 2m\n"), 0644))

	cfg := &testCfg{}
	require.NoError(t, config.Load(path, cfg))
	require.Equal(t, "copy", cfg.Op)
	require.Equal(t, 2*time.Minute, cfg.Duration.Std())

	require.Error(t, config.Load(filepath.Join(dir, "missing.yaml"), cfg))
}
