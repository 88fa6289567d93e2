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

package log

import (
	"flag"
	"sort"
	"strconv"
	"strings"
)

const (
	// command-line argument prefix.
	optPrefix = "logger"
	// Flag for enabling/disabling debug logging for sources.
	optDebug = optPrefix + "-debug"
	// Flag for selecting logging level.
	optLevel = optPrefix + "-level"
	// Flag for selecting logging backend.
	optLogger = optPrefix
)

// srcmap tracks debugging settings for sources.
type srcmap map[string]bool

// ParseLevel parses the name of a logging level.
func ParseLevel(value string) (Level, error) {
	levels := map[string]Level{
		"debug":   LevelDebug,
		"info":    LevelInfo,
		"warn":    LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"fatal":   LevelFatal,
	}
	level, ok := levels[strings.ToLower(value)]
	if !ok {
		return DefaultLevel, loggerError("invalid logging level %s", value)
	}
	return level, nil
}

// String returns the name of the level.
func (l Level) String() string {
	names := map[Level]string{
		LevelDebug: "debug",
		LevelInfo:  "info",
		LevelWarn:  "warning",
		LevelError: "error",
		LevelFatal: "fatal",
	}
	if level, ok := names[l]; ok {
		return level
	}

	return names[LevelInfo]
}

// Set parses the given source map specification, for instance
// "on:stream,affinity,off:zipf-bench" or "all".
func (m srcmap) Set(value string) error {
	prev, state, src := "", "", ""
	for _, entry := range strings.Split(value, ",") {
		statesrc := strings.Split(entry, ":")
		switch len(statesrc) {
		case 2:
			state, src = statesrc[0], statesrc[1]
		case 1:
			state, src = "", statesrc[0]
		default:
			return loggerError("invalid state spec '%s' in source map", entry)
		}

		if state != "" {
			prev = state
		} else {
			state = prev
			if state == "" {
				state = "on"
			}
		}
		if src == "all" {
			src = "*"
		}

		enabled, err := parseEnabled(state)
		if err != nil {
			return loggerError("invalid state '%s' in source map", state)
		}
		m[src] = enabled
	}

	return nil
}

// String returns a string representation of the srcmap.
func (m srcmap) String() string {
	on, off := []string{}, []string{}
	for src, state := range m {
		if state {
			on = append(on, src)
		} else {
			off = append(off, src)
		}
	}
	sort.Strings(on)
	sort.Strings(off)

	switch {
	case len(off) == 0:
		return "on:" + strings.Join(on, ",")
	case len(on) == 0:
		return "off:" + strings.Join(off, ",")
	}
	return "on:" + strings.Join(on, ",") + ",off:" + strings.Join(off, ",")
}

// enabled checks if debugging is enabled for the source.
func (m srcmap) enabled(source string) bool {
	if state, ok := m[source]; ok {
		return state
	}
	return m["*"]
}

func parseEnabled(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "on", "enable", "enabled":
		return true, nil
	case "off", "disable", "disabled":
		return false, nil
	}
	return strconv.ParseBool(value)
}

// levelFlag, backendFlag and debugFlag apply flag values immediately.
type levelFlag struct{}
type backendFlag struct{}
type debugFlag struct{}

func (levelFlag) Set(value string) error {
	level, err := ParseLevel(value)
	if err != nil {
		return err
	}
	SetLevel(level)
	return nil
}

func (levelFlag) String() string {
	return GetLevel().String()
}

func (backendFlag) Set(value string) error {
	return SetBackend(value)
}

func (backendFlag) String() string {
	log.RLock()
	defer log.RUnlock()
	if log.active == nil {
		return FmtBackendName
	}
	return log.active.Name()
}

func (debugFlag) Set(value string) error {
	return SetDebug(value)
}

func (debugFlag) String() string {
	log.RLock()
	defer log.RUnlock()
	return log.debug.String()
}

// AddFlags registers the logger command line flags in the given FlagSet.
func AddFlags(fs *flag.FlagSet) {
	fs.Var(backendFlag{}, optLogger,
		"logger backend to use (fmt, klog)")
	fs.Var(levelFlag{}, optLevel,
		"lowest severity level to pass through (debug, info, warning, error)")
	fs.Var(debugFlag{}, optDebug,
		"comma-separated list of source names to enable debug messages for.\n"+
			"Specify '*' or 'all' to enable all sources.\n"+
			"Prefix a source or list with 'off:' to disable.")
}
