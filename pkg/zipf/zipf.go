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

// Package zipf implements a Zipfian key generator using the inverse-CDF
// approximation popularized by YCSB. Rank 0 is the single hottest key. By
// default generated ranks are scrambled with an FNV-1a hash so that hot keys
// are spread over the whole key space instead of clustering at low indices.
package zipf

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
)

const (
	// DefaultConstant is the customary Zipfian constant (theta).
	DefaultConstant = 0.99
)

// Generator produces Zipf-distributed key indices in [0, NumKeys()).
// A Generator is not safe for concurrent use, every worker is
// expected to own one.
type Generator struct {
	numKeys  int
	items    float64
	constant float64
	zetan    float64
	zeta2    float64
	alpha    float64
	eta      float64
	half     float64 // 1 + 0.5^constant
	sorted   bool
}

// Option is an optional setting for a Generator.
type Option func(*Generator)

// Sorted disables rank scrambling: Next returns raw ranks, so the hottest
// keys are the lowest indices. No workload in this module uses this mode.
func Sorted() Option {
	return func(g *Generator) {
		g.sorted = true
	}
}

// New creates a generator for numKeys keys with the given Zipfian constant.
func New(numKeys int, constant float64, options ...Option) (*Generator, error) {
	if numKeys < 2 {
		return nil, zipfError("need at least 2 keys, got %d", numKeys)
	}
	if !(constant > 0 && constant < 1) {
		return nil, zipfError("Zipfian constant %v out of range (0, 1)", constant)
	}

	g := &Generator{
		numKeys:  numKeys,
		items:    float64(numKeys),
		constant: constant,
	}
	for _, o := range options {
		o(g)
	}

	g.zetan = zeta(numKeys, constant)
	g.zeta2 = zeta(2, constant)
	g.alpha = 1.0 / (1.0 - constant)
	g.eta = (1 - math.Pow(2.0/g.items, 1-constant)) / (1 - g.zeta2/g.zetan)
	g.half = 1.0 + math.Pow(0.5, constant)

	return g, nil
}

// zeta computes sum(1/(i+1)^theta) for i in [0, n).
func zeta(n int, theta float64) float64 {
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += 1 / math.Pow(float64(i+1), theta)
	}
	return sum
}

// Next returns the next key index drawn using rng.
func (g *Generator) Next(rng *rand.Rand) int {
	rank := g.Rank(rng.Float64())
	if g.sorted {
		return rank
	}
	return Scramble(rank, g.numKeys)
}

// Rank maps a uniform draw u in [0, 1) to an unscrambled rank.
func (g *Generator) Rank(u float64) int {
	uz := u * g.zetan

	if uz < 1.0 {
		return 0
	}
	if uz < g.half {
		return 1
	}

	rank := int(g.items * math.Pow(g.eta*u-g.eta+1, g.alpha))
	if rank < 0 || rank >= g.numKeys {
		rank %= g.numKeys
		if rank < 0 {
			rank += g.numKeys
		}
	}
	return rank
}

// Scramble maps rank to a pseudo-random key in [0, numKeys) with FNV-1a over
// the little-endian bytes of the rank.
func Scramble(rank, numKeys int) int {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(rank))
	h := fnv.New32a()
	h.Write(buf[:])
	return int(h.Sum32() % uint32(numKeys))
}

// NumKeys returns the number of keys of the generator.
func (g *Generator) NumKeys() int {
	return g.numKeys
}

// Constant returns the Zipfian constant of the generator.
func (g *Generator) Constant() float64 {
	return g.constant
}

// ZetaN returns the normalization constant.
func (g *Generator) ZetaN() float64 {
	return g.zetan
}

// Scrambled returns true if the generator hashes ranks.
func (g *Generator) Scrambled() bool {
	return !g.sorted
}

// Probability returns the closed-form probability of the given rank.
func (g *Generator) Probability(rank int) float64 {
	if rank < 0 || rank >= g.numKeys {
		return 0
	}
	return 1 / math.Pow(float64(rank+1), g.constant) / g.zetan
}

func zipfError(format string, args ...interface{}) error {
	return fmt.Errorf("zipf: "+format, args...)
}
