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
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/intel/memtraffic/pkg/testutils"
)

func parse(args ...string) (*Config, string, error) {
	buf := &bytes.Buffer{}
	fs := flag.NewFlagSet("stream-bench", flag.ContinueOnError)
	fs.SetOutput(buf)
	cfg, err := ParseArgs(fs, args)
	return cfg, buf.String(), err
}

func TestParseDefaults(t *testing.T) {
	cfg, _, err := parse()
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
	require.Equal(t, "Config: mem_mb=1024 threads=1 duration=60 cpu_start=0 pattern=chunk op=triad"+
		" touch=1 phase_pages=0 window_pages=0 step_pages=0 phase_sleep_us=0 sync_phases=0 arrays=3",
		cfg.String())
}

func TestParseFlags(t *testing.T) {
	cfg, _, err := parse(
		"--mem-mb=16", "--threads=4", "--duration=2", "--warmup=1", "--cpu-start=-1",
		"--pattern=interleave", "--op=copy", "--touch=0", "--phase-pages=3",
		"--window-pages=64", "--step-pages=32", "--phase-sleep-us=200000",
		"--sync-phases=1", "--passes-per-check=4",
	)
	require.NoError(t, err)
	require.Equal(t, &Config{
		MemMB:          16,
		Threads:        4,
		Duration:       2 * time.Second,
		Warmup:         time.Second,
		CPUStart:       -1,
		Pattern:        PatternInterleave,
		Op:             OpCopy,
		Touch:          false,
		PhasePages:     3,
		WindowPages:    64,
		StepPages:      32,
		PhaseSleep:     200 * time.Millisecond,
		SyncPhases:     true,
		PassesPerCheck: 4,
	}, cfg)
	require.True(t, cfg.Windowed())
}

func TestParseClamp(t *testing.T) {
	cfg, _, err := parse("--threads=0", "--duration=0", "--warmup=-3", "--phase-sleep-us=-1", "--passes-per-check=0")
	require.NoError(t, err)
	require.Equal(t, 1, cfg.Threads)
	require.Equal(t, time.Second, cfg.Duration)
	require.Equal(t, time.Duration(0), cfg.Warmup)
	require.Equal(t, time.Duration(0), cfg.PhaseSleep)
	require.Equal(t, 1, cfg.PassesPerCheck)
}

func TestParseErrors(t *testing.T) {
	for name, args := range map[string][]string{
		"bogus op":         {"--op=bogus"},
		"bogus pattern":    {"--pattern=diagonal"},
		"unknown flag":     {"--frobnicate=1"},
		"missing value":    {"--mem-mb"},
		"non-numeric":      {"--threads=many"},
		"non-numeric bool": {"--touch=yes"},
		"stray argument":   {"--op=read", "extra"},
		"help":             {"--help"},
		"short help":       {"-h"},
		"negative pages":   {"--window-pages=-1"},
		"zero memory":      {"--mem-mb=0"},
		"missing config":   {"--config=/no/such/file.yaml"},
	} {
		t.Run(name, func(t *testing.T) {
			cfg, out, err := parse(args...)
			require.Error(t, err)
			require.Nil(t, cfg)
			require.Contains(t, out, "Usage: stream-bench [options]")
		})
	}

	_, out, _ := parse("--op=bogus")
	require.Contains(t, out, `unknown op "bogus"`)
}

func TestValidateAll(t *testing.T) {
	c := DefaultConfig()
	c.MemMB = 0
	c.PhasePages = -1
	c.StepPages = -2
	c.Op = Op(42)
	testutils.VerifyError(t, c.Validate(), 4, []string{"memory size", "phase-pages", "step-pages", "op"})
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
mem-mb: 16
threads: 2
op: read
pattern: interleave
duration: 5s
window-pages: 8
phase-sleep-us: 1000
sync-phases: true
`), 0644))

	cfg, _, err := parse("--config="+path, "--threads=3")
	require.NoError(t, err)
	require.Equal(t, 16, cfg.MemMB)
	require.Equal(t, 3, cfg.Threads)
	require.Equal(t, OpRead, cfg.Op)
	require.Equal(t, PatternInterleave, cfg.Pattern)
	require.Equal(t, 5*time.Second, cfg.Duration)
	require.Equal(t, 8, cfg.WindowPages)
	require.Equal(t, time.Millisecond, cfg.PhaseSleep)
	require.True(t, cfg.SyncPhases)
	require.True(t, cfg.Touch)

	cfg, _, err = parse("-config", path)
	require.NoError(t, err)
	require.Equal(t, 2, cfg.Threads)

	require.NoError(t, os.WriteFile(path, []byte("op: bogus\n"), 0644))
	_, _, err = parse("--config=" + path)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("frobnicate: 1\n"), 0644))
	_, _, err = parse("--config=" + path)
	require.Error(t, err)
}

func TestConfigPath(t *testing.T) {
	require.Equal(t, "a.yaml", configPath([]string{"--threads=2", "--config=a.yaml"}))
	require.Equal(t, "b.yaml", configPath([]string{"-config", "b.yaml"}))
	require.Equal(t, "", configPath([]string{"--", "--config=c.yaml"}))
	require.Equal(t, "", configPath([]string{"---config=d.yaml"}))
	require.Equal(t, "", configPath([]string{"--configure=e"}))
}

func TestLayout(t *testing.T) {
	for _, op := range []Op{OpRead, OpWrite, OpCopy, OpTriad} {
		l := NewLayout(16<<20+100, op)
		require.Equal(t, 0, l.MapBytes%os.Getpagesize(), op.String())
		require.GreaterOrEqual(t, l.MapBytes, 16<<20+100, op.String())
		require.Equal(t, op.Arrays(), l.Arrays)
		require.LessOrEqual(t, l.ElemsPerArray*l.Arrays*8, l.MapBytes, op.String())
		require.Equal(t, l.ElemsPerArray*l.Arrays*8, l.BytesUsed)
		require.Less(t, l.MapBytes-l.BytesUsed, 8*l.Arrays, op.String())
	}
	require.Equal(t, 1, OpRead.Arrays())
	require.Equal(t, 1, OpWrite.Arrays())
	require.Equal(t, 2, OpCopy.Arrays())
	require.Equal(t, 3, OpTriad.Arrays())
}

func TestOpPatternNames(t *testing.T) {
	for _, name := range []string{"read", "write", "copy", "triad"} {
		op, err := ParseOp(name)
		require.NoError(t, err)
		require.Equal(t, name, op.String())
	}
	for _, name := range []string{"chunk", "interleave"} {
		p, err := ParsePattern(name)
		require.NoError(t, err)
		require.Equal(t, name, p.String())
	}
	_, err := ParseOp("bogus")
	require.Error(t, err)
	_, err = ParsePattern("bogus")
	require.Error(t, err)
}
