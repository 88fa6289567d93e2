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
	"unsafe"

	"github.com/intel/memtraffic/pkg/memregion"
)

const elemSize = int(unsafe.Sizeof(uint64(0)))

// Layout describes how the arrays of an operation are carved out of the region.
type Layout struct {
	// MapBytes is the size of the mapping, a multiple of the page size.
	MapBytes int
	// Pages is the number of pages in the mapping.
	Pages int
	// Arrays is the number of arrays.
	Arrays int
	// ElemsPerArray is the length of each array.
	ElemsPerArray int
	// BytesUsed is the number of bytes occupied by the arrays.
	BytesUsed int
	// ElemsPerPage is the number of array elements in a page.
	ElemsPerPage int
}

// NewLayout returns the layout of op's arrays in a region of size bytes.
func NewLayout(size int, op Op) Layout {
	l := Layout{
		MapBytes:     memregion.RoundToPages(size),
		Arrays:       op.Arrays(),
		ElemsPerPage: memregion.PageSize / elemSize,
	}
	l.Pages = l.MapBytes / memregion.PageSize
	l.ElemsPerArray = l.MapBytes / elemSize / l.Arrays
	l.BytesUsed = l.ElemsPerArray * elemSize * l.Arrays
	return l
}

// Lines returns the layout summary lines.
func (l Layout) Lines() []string {
	return []string{
		fmt.Sprintf("Mapping bytes: %d (%d pages)", l.MapBytes, l.Pages),
		fmt.Sprintf("Array elements per array: %d (bytes_used=%d)", l.ElemsPerArray, l.BytesUsed),
	}
}

// Arrays are the arrays an operation works on. Unused ones are nil.
type Arrays struct {
	A, B, C []uint64
}

// NewArrays creates views of the layout's arrays in the region.
func NewArrays(r *memregion.Region, l Layout) (*Arrays, error) {
	if need := l.Arrays * l.ElemsPerArray; need > r.Uint64Capacity() {
		return nil, streamError("%d arrays of %d elements do not fit region %s",
			l.Arrays, l.ElemsPerArray, r)
	}
	views := make([][]uint64, 3)
	for i := 0; i < l.Arrays; i++ {
		v, err := r.Uint64s(i*l.ElemsPerArray, l.ElemsPerArray)
		if err != nil {
			return nil, err
		}
		views[i] = v
	}
	return &Arrays{A: views[0], B: views[1], C: views[2]}, nil
}

const (
	// seedStride is the distance of elements seeded with initial values.
	seedStride = 1024
	// seedMix is mixed into the seed values of array b.
	seedMix = 0x9e3779b97f4a7c15
	// seedOffset is added to the seed values of array c.
	seedOffset = 7
)

// Seed stores initial values sparsely so that kernels have non-zero inputs.
func (a *Arrays) Seed() {
	for i := 0; i < len(a.A); i += seedStride {
		a.A[i] = uint64(i)
		if a.B != nil {
			a.B[i] = uint64(i) ^ seedMix
		}
		if a.C != nil {
			a.C[i] = uint64(i) + seedOffset
		}
	}
}
