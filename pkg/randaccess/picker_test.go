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

package randaccess

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/intel/memtraffic/pkg/zipf"
)

func TestPickerPolicy(t *testing.T) {
	c := DefaultConfig()

	c.Skew = 0.005
	p, err := newPicker(c, 100)
	require.NoError(t, err)
	require.IsType(t, &uniformPicker{}, p)

	c.Skew = 0.5
	p, err = newPicker(c, 100)
	require.NoError(t, err)
	require.IsType(t, &zipfPicker{}, p)
	require.True(t, p.(*zipfPicker).gen.Scrambled())
	require.Equal(t, 0.5, p.(*zipfPicker).gen.Constant())

	c.Sorted = true
	p, err = newPicker(c, 100)
	require.NoError(t, err)
	require.False(t, p.(*zipfPicker).gen.Scrambled())

	_, err = newPicker(c, 1)
	require.Error(t, err)
}

// With 99 degrees of freedom the chi-square statistic exceeds 148.23
// with probability 0.001 for a uniform source.
const chiSquareCritical = 148.23

func TestUniformHistogram(t *testing.T) {
	const (
		keys  = 100
		draws = 200000
	)

	c := DefaultConfig()
	c.Skew = 0
	p, err := newPicker(c, keys)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	hist := make([]int, keys)
	for i := 0; i < draws; i++ {
		k := p.Pick(rng)
		require.True(t, k >= 0 && k < keys)
		hist[k]++
	}

	expected := float64(draws) / keys
	chi2 := 0.0
	for _, observed := range hist {
		d := float64(observed) - expected
		chi2 += d * d / expected
	}
	require.Less(t, chi2, chiSquareCritical)
}

func TestZipfPickerSkew(t *testing.T) {
	const (
		keys  = 1000
		draws = 100000
	)

	c := DefaultConfig()
	p, err := newPicker(c, keys)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(2))
	hist := make([]int, keys)
	for i := 0; i < draws; i++ {
		hist[p.Pick(rng)]++
	}

	// the hottest rank lands on its scrambled key
	hottest := zipf.Scramble(0, keys)
	for k, count := range hist {
		if k != hottest {
			require.Less(t, count, hist[hottest], "key %d", k)
		}
	}
}
