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

package zipf

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPreconditions(t *testing.T) {
	tcases := []struct {
		name     string
		numKeys  int
		constant float64
		fail     bool
	}{
		{name: "zero keys", numKeys: 0, constant: 0.99, fail: true},
		{name: "one key", numKeys: 1, constant: 0.99, fail: true},
		{name: "negative keys", numKeys: -4, constant: 0.5, fail: true},
		{name: "two keys", numKeys: 2, constant: 0.99},
		{name: "constant zero", numKeys: 16, constant: 0, fail: true},
		{name: "constant one", numKeys: 16, constant: 1, fail: true},
		{name: "constant NaN", numKeys: 16, constant: math.NaN(), fail: true},
		{name: "constant 0.5", numKeys: 16, constant: 0.5},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			g, err := New(tc.numKeys, tc.constant)
			if tc.fail {
				require.Error(t, err)
				require.Nil(t, g)
			} else {
				require.NoError(t, err)
				require.Equal(t, tc.numKeys, g.NumKeys())
				require.True(t, g.Scrambled())
			}
		})
	}
}

func TestZeta(t *testing.T) {
	require.InDelta(t, 1.0, zeta(1, 0.5), 1e-12)
	require.InDelta(t, 1.0+1/math.Sqrt(2), zeta(2, 0.5), 1e-12)
	require.InDelta(t, 1.0+0.5+1.0/3, zeta(3, 1-1e-12), 1e-9)

	g, err := New(1000, 0.8)
	require.NoError(t, err)
	require.InDelta(t, zeta(1000, 0.8), g.ZetaN(), 1e-12)
}

func TestKeysInRange(t *testing.T) {
	for _, numKeys := range []int{2, 3, 17, 1000, 65536} {
		for _, constant := range []float64{0.01, 0.3, 0.5, 0.8, 0.99} {
			for _, sorted := range []bool{false, true} {
				var opts []Option
				if sorted {
					opts = append(opts, Sorted())
				}
				g, err := New(numKeys, constant, opts...)
				require.NoError(t, err)
				rng := rand.New(rand.NewSource(int64(numKeys)))
				for i := 0; i < 20000; i++ {
					key := g.Next(rng)
					if key < 0 || key >= numKeys {
						t.Fatalf("N=%d, theta=%v: key %d out of range", numKeys, constant, key)
					}
				}
			}
		}
	}
}

func TestTwoKeys(t *testing.T) {
	g, err := New(2, 0.99, Sorted())
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(2))
	seen := map[int]int{}
	for i := 0; i < 10000; i++ {
		seen[g.Next(rng)]++
	}
	require.Len(t, seen, 2)
	require.Greater(t, seen[0], seen[1])

	// the boundaries of the draw space map to one of the two ranks
	require.Equal(t, 0, g.Rank(0))
	rank := g.Rank(math.Nextafter(1, 0))
	require.True(t, rank == 0 || rank == 1)
}

func TestRankFrequencies(t *testing.T) {
	const (
		numKeys = 100
		draws   = 400000
	)

	for _, constant := range []float64{0.5, 0.99} {
		g, err := New(numKeys, constant, Sorted())
		require.NoError(t, err)

		rng := rand.New(rand.NewSource(1))
		counts := make([]int, numKeys)
		for i := 0; i < draws; i++ {
			counts[g.Next(rng)]++
		}

		// the two head ranks are exact in the inverse-CDF approximation
		for rank := 0; rank < 2; rank++ {
			seen := float64(counts[rank]) / draws
			require.InDelta(t, g.Probability(rank), seen, 0.005,
				"theta %v, rank %d", constant, rank)
		}

		// frequencies strictly decrease over the head of the distribution
		for rank := 1; rank < 6; rank++ {
			require.Less(t, counts[rank], counts[rank-1],
				"theta %v, rank %d vs. %d", constant, rank, rank-1)
		}
	}
}

func TestProbability(t *testing.T) {
	g, err := New(64, 0.7)
	require.NoError(t, err)

	sum := 0.0
	for rank := 0; rank < g.NumKeys(); rank++ {
		sum += g.Probability(rank)
	}
	require.InDelta(t, 1.0, sum, 1e-9)
	require.Equal(t, 0.0, g.Probability(-1))
	require.Equal(t, 0.0, g.Probability(64))
}

func TestScramble(t *testing.T) {
	// reference FNV-1a values of the 4 little-endian rank bytes, mod 1000
	require.Equal(t, 805, Scramble(0, 1000))
	require.Equal(t, 92, Scramble(1, 1000))
	require.Equal(t, 823, Scramble(2, 1000))
	require.Equal(t, 412, Scramble(12345, 1000))

	g, err := New(1000, 0.99)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(3))
	counts := map[int]int{}
	for i := 0; i < 100000; i++ {
		counts[g.Next(rng)]++
	}

	// the hottest key is the scrambled rank 0, not index 0
	hottest, most := -1, 0
	for key, count := range counts {
		if count > most {
			hottest, most = key, count
		}
	}
	require.Equal(t, Scramble(0, 1000), hottest)
}
