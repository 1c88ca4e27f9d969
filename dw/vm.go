// Copyright 2026 go-depthwise Authors
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

package dw

import (
	"encoding/binary"
	"fmt"
)

// portableManager runs programs on an interpreter instead of committing
// machine code. It works on every GOARCH, keeps exact x86 semantics for
// the integer SIMD operations (including the 16-bit saturation of
// vpmaddubsw and vpaddsw), and serves as the reference the native
// backend is checked against.
type portableManager struct{}

func (portableManager) Commit(p *Program) (Kernel, error) {
	insts := p.Insts()
	targets := make([]int, p.labels)
	for idx := range insts {
		if insts[idx].Op == opLabel {
			targets[insts[idx].Label] = idx
		}
	}
	return func(args *Args) {
		runPortable(insts, targets, args)
	}, nil
}

// region is one addressable buffer of the interpreted machine. Pointer
// registers carry a region plus a byte offset, so interior cursors (and
// the negative offsets a padded origin produces) stay well-defined
// without real pointer arithmetic.
type region struct {
	b []byte
}

// gval is a general-purpose register value: a scalar when mem is nil,
// otherwise an offset into mem.
type gval struct {
	mem *region
	off int64
}

type machine struct {
	v    [numVecRegs][vecBytes]byte
	g    [numGpRegs]gval
	flag int64
}

func (m *machine) addr(mm Mem) (*region, int) {
	gv := m.g[mm.Base]
	if gv.mem == nil {
		panic(fmt.Sprintf("dw: %s used as address but holds scalar %d", mm.Base, gv.off))
	}
	return gv.mem, int(gv.off + int64(mm.Disp))
}

func (m *machine) scalar(g GReg) int64 {
	gv := m.g[g]
	if gv.mem != nil {
		panic(fmt.Sprintf("dw: %s used as scalar but holds an address", g))
	}
	return gv.off
}

func int32LE(s []int32) []byte {
	b := make([]byte, 4*len(s))
	for i, v := range s {
		binary.LittleEndian.PutUint32(b[4*i:], uint32(v))
	}
	return b
}

func int32FromLE(dst []int32, b []byte) {
	for i := range dst {
		dst[i] = int32(binary.LittleEndian.Uint32(b[4*i:]))
	}
}

func int8Bytes(s []int8) []byte {
	b := make([]byte, len(s))
	for i, v := range s {
		b[i] = byte(v)
	}
	return b
}

// runPortable marshals the argument buffers into machine regions,
// interprets the stream, and copies the output regions back. The output
// regions are seeded from the caller's slices so bytes the kernel never
// touches round-trip unchanged.
func runPortable(insts []Inst, targets []int, args *Args) {
	a := &region{b: args.A}
	bb := &region{b: int8Bytes(args.B)}
	c := &region{b: int32LE(args.C)}
	asum := &region{b: int32LE(args.ASum)}
	mask := &region{b: args.Mask}
	bzp := &region{b: int32LE(args.BZeroPoint)}

	var m machine
	m.g[GpA] = gval{mem: a, off: int64(args.AOffset)}
	m.g[GpB] = gval{mem: bb}
	m.g[GpC] = gval{mem: c}
	m.g[GpASum] = gval{mem: asum}
	m.g[GpH] = gval{off: int64(args.H)}
	m.g[GpW] = gval{off: int64(args.W)}
	m.g[GpCin] = gval{off: int64(args.CIn)}
	m.g[GpMask] = gval{mem: mask}
	m.g[GpAZeroPoint] = gval{off: int64(args.AZeroPoint)}
	m.g[GpBZeroPoint] = gval{mem: bzp}

	m.run(insts, targets)

	int32FromLE(args.C, c.b)
	int32FromLE(args.ASum, asum.b)
}
