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

// Package barrier implements a reusable rendezvous point for a fixed number
// of goroutines. Besides synchronizing, every round of the barrier combines
// a stop vote from each party so that all of them agree on when to quit.
package barrier

import (
	"fmt"
	"sync"
)

// Barrier is a cyclic barrier for a fixed number of parties.
type Barrier struct {
	sync.Mutex
	cond       *sync.Cond
	parties    int    // number of parties to wait for
	waiting    int    // parties waiting in the current round
	generation uint64 // current round
	vote       bool   // combined stop votes of the current round
	result     bool   // combined stop votes of the last completed round
}

// New creates a barrier for the given number of parties.
func New(parties int) (*Barrier, error) {
	if parties < 1 {
		return nil, fmt.Errorf("barrier: invalid number of parties %d", parties)
	}
	b := &Barrier{parties: parties}
	b.cond = sync.NewCond(&b.Mutex)
	return b, nil
}

// Parties returns the number of parties the barrier waits for.
func (b *Barrier) Parties() int {
	return b.parties
}

// Wait blocks until all parties have called Wait in the current round, then
// returns true to all of them if any party voted to stop.
func (b *Barrier) Wait(stop bool) bool {
	b.Lock()
	defer b.Unlock()

	b.vote = b.vote || stop
	b.waiting++

	if b.waiting == b.parties {
		b.result = b.vote
		b.vote = false
		b.waiting = 0
		b.generation++
		b.cond.Broadcast()
		return b.result
	}

	// result can't be overwritten until we enter the next round
	generation := b.generation
	for generation == b.generation {
		b.cond.Wait()
	}
	return b.result
}
