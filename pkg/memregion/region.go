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

// Package memregion manages anonymous private memory mappings used as
// workload regions.
package memregion

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// PageSize is the system page size.
var PageSize = os.Getpagesize()

const (
	// MiB is the number of bytes in a mebibyte.
	MiB = 1024 * 1024
	// uint64Size is the size of a single uint64 array element.
	uint64Size = int(unsafe.Sizeof(uint64(0)))
)

// Region is a single anonymous private read-write memory mapping.
type Region struct {
	mem []byte
}

// MapError is returned if creating the mapping fails.
type MapError struct {
	Size int
	Err  error
}

func (e *MapError) Error() string {
	return fmt.Sprintf("mmap of %d bytes failed: %v", e.Size, e.Err)
}

func (e *MapError) Unwrap() error {
	return e.Err
}

// RoundToPages rounds size up to the nearest multiple of the page size.
func RoundToPages(size int) int {
	return ((size + PageSize - 1) / PageSize) * PageSize
}

// Map creates a new mapping at least size bytes long. The length of the
// mapping is always a multiple of the page size.
func Map(size int) (*Region, error) {
	if size <= 0 {
		return nil, &MapError{Size: size, Err: unix.EINVAL}
	}
	length := RoundToPages(size)
	mem, err := unix.Mmap(-1, 0, length, unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, &MapError{Size: length, Err: err}
	}
	return &Region{mem: mem}, nil
}

// Unmap releases the mapping. The region must not be used afterwards.
func (r *Region) Unmap() error {
	if r.mem == nil {
		return nil
	}
	err := unix.Munmap(r.mem)
	r.mem = nil
	if err != nil {
		return errors.Wrap(err, "munmap failed")
	}
	return nil
}

// Bytes returns the mapped memory.
func (r *Region) Bytes() []byte {
	return r.mem
}

// Len returns the length of the mapping in bytes.
func (r *Region) Len() int {
	return len(r.mem)
}

// Pages returns the length of the mapping in pages.
func (r *Region) Pages() int {
	return len(r.mem) / PageSize
}

// Start returns the first address of the mapping.
func (r *Region) Start() uintptr {
	if len(r.mem) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&r.mem[0]))
}

// End returns the address right past the end of the mapping.
func (r *Region) End() uintptr {
	return r.Start() + uintptr(len(r.mem))
}

// String returns the address range of the mapping.
func (r *Region) String() string {
	return fmt.Sprintf("0x%x - 0x%x", r.Start(), r.End())
}

// Touch stores a single byte to every page, faulting the whole
// mapping into physical memory.
func (r *Region) Touch() {
	for off := 0; off < len(r.mem); off += PageSize {
		r.mem[off] = 1
	}
}

// Uint64s returns count uint64's starting at element index offset.
func (r *Region) Uint64s(offset, count int) ([]uint64, error) {
	if offset < 0 || count < 0 || (offset+count)*uint64Size > len(r.mem) {
		return nil, errors.Errorf("uint64 view [%d, %d) out of %d-byte region",
			offset, offset+count, len(r.mem))
	}
	if count == 0 {
		return []uint64{}, nil
	}
	base := unsafe.Pointer(&r.mem[offset*uint64Size])
	return unsafe.Slice((*uint64)(base), count), nil
}

// Uint64Capacity returns how many uint64's fit in the mapping.
func (r *Region) Uint64Capacity() int {
	return len(r.mem) / uint64Size
}
