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

// stream-bench maps a memory region and streams through it with STREAM-style
// kernels, optionally confined to a moving window of pages.
package main

import (
	"flag"
	"io"
	"os"

	"github.com/intel/memtraffic/pkg/cli"
	"github.com/intel/memtraffic/pkg/cpuaffinity"
	"github.com/intel/memtraffic/pkg/handshake"
	"github.com/intel/memtraffic/pkg/stream"
)

const name = "stream-bench"

// newEngine creates the workload engine for a parsed configuration.
var newEngine = stream.NewEngine

func run(args []string, stdout, stderr io.Writer) int {
	opts := &cli.Options{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	opts.AddFlags(fs)

	cfg, err := stream.ParseArgs(fs, args)
	if err != nil {
		return cli.ExitUsage
	}

	ctx, stop := cli.Context()
	defer stop()

	cpuaffinity.CheckPlan(cpuaffinity.Plan(cfg.CPUStart, cfg.Threads))

	engine := newEngine(cfg,
		stream.WithOutput(handshake.New(stdout)),
		stream.WithPidFile(opts.PidFileOrNil()),
	)

	opts.StartMetrics(engine.Metrics())
	_, err = engine.Run(ctx)
	opts.Finish(engine.Metrics())

	return cli.Report(err)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
