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

package barrier

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	_, err := New(0)
	require.Error(t, err)
	_, err = New(-1)
	require.Error(t, err)

	b, err := New(3)
	require.NoError(t, err)
	require.Equal(t, 3, b.Parties())
}

func TestSingleParty(t *testing.T) {
	b, err := New(1)
	require.NoError(t, err)
	require.False(t, b.Wait(false))
	require.True(t, b.Wait(true))
	require.False(t, b.Wait(false))
}

func TestLockStep(t *testing.T) {
	const (
		parties = 8
		rounds  = 200
	)

	b, err := New(parties)
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		arrived [rounds]int32
		bad     int32
	)
	for p := 0; p < parties; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				atomic.AddInt32(&arrived[r], 1)
				b.Wait(false)
				// nobody passes round r before everybody arrived at it
				if atomic.LoadInt32(&arrived[r]) != parties {
					atomic.AddInt32(&bad, 1)
				}
			}
		}()
	}
	wg.Wait()
	require.Zero(t, bad)
}

func TestStopVote(t *testing.T) {
	const (
		parties  = 4
		stopper  = 2
		stopAt   = 57
		maxRound = 1000
	)

	b, err := New(parties)
	require.NoError(t, err)

	stoppedAt := make([]int, parties)
	var wg sync.WaitGroup
	for p := 0; p < parties; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for r := 0; r < maxRound; r++ {
				if b.Wait(p == stopper && r == stopAt) {
					stoppedAt[p] = r
					return
				}
			}
			stoppedAt[p] = maxRound
		}(p)
	}
	wg.Wait()

	// a single vote stops every party in the same round
	for p := 0; p < parties; p++ {
		require.Equal(t, stopAt, stoppedAt[p], "party %d", p)
	}
}
