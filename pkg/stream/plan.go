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

// Segment is the half-open index range [Start, End) visited with Stride.
type Segment struct {
	Start  int
	End    int
	Stride int
}

// Len returns the number of indices in the segment.
func (s Segment) Len() int {
	if s.End <= s.Start || s.Stride < 1 {
		return 0
	}
	return (s.End - s.Start + s.Stride - 1) / s.Stride
}

// Indices returns all indices in the segment.
func (s Segment) Indices() []int {
	idx := make([]int, 0, s.Len())
	for i := s.Start; i < s.End; i += s.Stride {
		idx = append(idx, i)
	}
	return idx
}

// Pass is the work of one worker for one pass: at most two segments, the
// second one present only if the interval wraps around the end of the array.
type Pass struct {
	segs [2]Segment
	n    int
}

// Segments returns the segments of the pass.
func (p *Pass) Segments() []Segment {
	return p.segs[:p.n]
}

// Len returns the number of indices visited in the pass.
func (p *Pass) Len() int {
	total := 0
	for _, s := range p.Segments() {
		total += s.Len()
	}
	return total
}

func (p *Pass) add(s Segment) {
	if s.Len() > 0 {
		p.segs[p.n] = s
		p.n++
	}
}

// Planner computes the index segments workers visit in every pass.
type Planner struct {
	n       int
	threads int
	pattern Pattern
	window  int
	step    int
	phase   int
}

// NewPlanner creates a planner for threads workers over arrays of n
// elements. The window, step and phase sizes are in elements. A zero
// window means full passes, in which case step is ignored.
func NewPlanner(n, threads int, pattern Pattern, window, step, phase int) *Planner {
	if threads < 1 {
		threads = 1
	}
	if window <= 0 {
		window, step = 0, 0
	}
	return &Planner{
		n:       n,
		threads: threads,
		pattern: pattern,
		window:  window,
		step:    step,
		phase:   phase,
	}
}

// Planner returns the planner for the configuration and layout.
func (c *Config) Planner(l Layout) *Planner {
	var (
		window = c.WindowPages * l.ElemsPerPage
		step   = 0
		phase  = c.PhasePages * l.ElemsPerPage
	)
	if window > 0 {
		step = c.StepPages
		if step == 0 {
			step = c.WindowPages
		}
		step *= l.ElemsPerPage
	}
	return NewPlanner(l.ElemsPerArray, c.Threads, c.Pattern, window, step, phase)
}

// Pass returns the segments worker tid visits in the given pass.
func (p *Planner) Pass(tid, pass int) Pass {
	if p.n == 0 {
		return Pass{}
	}
	if p.pattern == PatternInterleave {
		return p.interleaved(tid, pass)
	}
	return p.chunked(tid, pass)
}

// mulMod returns (a*b) mod n without overflowing for any a, b >= 0 as long
// as n*n fits an int.
func mulMod(a, b, n int) int {
	return ((a % n) * (b % n)) % n
}

// Chunk returns the home range [lo, hi) of worker tid.
func (p *Planner) Chunk(tid int) (int, int) {
	chunk := (p.n + p.threads - 1) / p.threads
	lo := min(p.n, tid*chunk)
	hi := min(p.n, lo+chunk)
	return lo, hi
}

func (p *Planner) chunked(tid, pass int) Pass {
	lo, hi := p.Chunk(tid)
	length := hi - lo
	if length == 0 {
		return Pass{}
	}

	offset := 0
	if p.window > 0 {
		if p.window < length {
			length = p.window
		}
		if p.step > 0 {
			offset = mulMod(pass, p.step%(hi-lo), hi-lo)
		}
	}
	shift := mulMod(pass, p.phase, p.n)

	return p.split((lo+offset+shift)%p.n, length, 0, 1)
}

func (p *Planner) interleaved(tid, pass int) Pass {
	var (
		base   = mulMod(pass, p.phase, p.n)
		length = p.n
	)
	if p.window > 0 {
		length = min(p.n, p.window)
		base = (mulMod(pass, p.step, p.n) + base) % p.n
	}
	return p.split(base, length, tid, p.threads)
}

// split returns the offsets first, first+stride, ... below length of the
// interval of the given length starting at start, as segments within [0, n).
func (p *Planner) split(start, length, first, stride int) Pass {
	var (
		pass    Pass
		headLen = min(length, p.n-start)
	)

	if first < headLen {
		pass.add(Segment{Start: start + first, End: start + headLen, Stride: stride})
	}

	if length > headLen {
		// continue the stride past the end of the array
		next := first
		if next < headLen {
			next += ((headLen - next + stride - 1) / stride) * stride
		}
		if next < length {
			pass.add(Segment{Start: next - headLen, End: length - headLen, Stride: stride})
		}
	}

	return pass
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
