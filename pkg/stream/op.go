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
	"fmt"
	"strings"
)

// Op is the vector kernel run over the arrays.
type Op int

const (
	// OpRead sums a[i].
	OpRead Op = iota
	// OpWrite stores a value derived from i to a[i].
	OpWrite
	// OpCopy copies a[i] to b[i].
	OpCopy
	// OpTriad computes a[i] = b[i] + Scalar*c[i].
	OpTriad
)

// Scalar is the triad multiplier.
const Scalar = 3

var opNames = map[Op]string{
	OpRead:  "read",
	OpWrite: "write",
	OpCopy:  "copy",
	OpTriad: "triad",
}

// ParseOp parses the name of an operation.
func ParseOp(name string) (Op, error) {
	for op, n := range opNames {
		if n == name {
			return op, nil
		}
	}
	return OpTriad, streamError("unknown op %q, expected one of read|write|copy|triad", name)
}

// String returns the name of the operation.
func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("<invalid op %d>", int(op))
}

// Arrays returns the number of arrays the operation uses.
func (op Op) Arrays() int {
	switch op {
	case OpTriad:
		return 3
	case OpCopy:
		return 2
	}
	return 1
}

// MarshalText implements encoding.TextMarshaler.
func (op Op) MarshalText() ([]byte, error) {
	return []byte(op.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (op *Op) UnmarshalText(text []byte) error {
	parsed, err := ParseOp(string(text))
	if err != nil {
		return err
	}
	*op = parsed
	return nil
}

// Set implements flag.Value.
func (op *Op) Set(value string) error {
	return op.UnmarshalText([]byte(value))
}

// Pattern is the partitioning of the index space among workers.
type Pattern int

const (
	// PatternChunk gives each worker a contiguous range.
	PatternChunk Pattern = iota
	// PatternInterleave has worker i visit i, i+T, i+2T, ...
	PatternInterleave
)

// ParsePattern parses the name of a pattern.
func ParsePattern(name string) (Pattern, error) {
	switch strings.TrimSpace(name) {
	case "chunk":
		return PatternChunk, nil
	case "interleave":
		return PatternInterleave, nil
	}
	return PatternChunk, streamError("unknown pattern %q, expected chunk|interleave", name)
}

// String returns the name of the pattern.
func (p Pattern) String() string {
	switch p {
	case PatternChunk:
		return "chunk"
	case PatternInterleave:
		return "interleave"
	}
	return fmt.Sprintf("<invalid pattern %d>", int(p))
}

// MarshalText implements encoding.TextMarshaler.
func (p Pattern) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Pattern) UnmarshalText(text []byte) error {
	parsed, err := ParsePattern(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Set implements flag.Value.
func (p *Pattern) Set(value string) error {
	return p.UnmarshalText([]byte(value))
}

func streamError(format string, args ...interface{}) error {
	return fmt.Errorf("stream: "+format, args...)
}
