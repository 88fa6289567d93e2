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

// runSegment runs op over the segment and returns the updated accumulator.
func runSegment(op Op, arr *Arrays, s Segment, local uint64) uint64 {
	a, b, c := arr.A, arr.B, arr.C

	switch op {
	case OpRead:
		for i := s.Start; i < s.End; i += s.Stride {
			local += a[i]
		}
	case OpWrite:
		for i := s.Start; i < s.End; i += s.Stride {
			v := uint64(i) + local
			a[i] = v
			local += v
		}
	case OpCopy:
		for i := s.Start; i < s.End; i += s.Stride {
			v := a[i]
			b[i] = v
			local += v
		}
	case OpTriad:
		for i := s.Start; i < s.End; i += s.Stride {
			v := b[i] + Scalar*c[i]
			a[i] = v
			local += v
		}
	}

	return local
}

// runPass runs op over all segments of the pass.
func runPass(op Op, arr *Arrays, p *Pass, local uint64) uint64 {
	for _, s := range p.Segments() {
		local = runSegment(op, arr, s, local)
	}
	return local
}
