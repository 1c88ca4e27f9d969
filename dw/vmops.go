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

// run interprets the stream until ret. Vector helpers take and return
// register values, so an instruction whose destination aliases a source
// still sees unmodified inputs, the same as hardware.
func (m *machine) run(insts []Inst, targets []int) {
	for pc := 0; ; pc++ {
		in := &insts[pc]
		switch in.Op {
		case opLabel:

		case opRet:
			return
		case opJMP:
			pc = targets[in.Label]
		case opJLE:
			if m.flag <= 0 {
				pc = targets[in.Label]
			}

		case opVMovUpsRR, opVMovApsRR:
			m.v[in.Dst] = m.v[in.Src1]
		case opVMovUpsLoad:
			r, off := m.addr(in.M)
			copy(m.v[in.Dst][:], r.b[off:off+vecBytes])
		case opVMovUpsStore:
			r, off := m.addr(in.M)
			copy(r.b[off:off+vecBytes], m.v[in.Src1][:])
		case opVMaskMovLoad:
			r, off := m.addr(in.M)
			mask := m.v[in.Src2]
			var out [vecBytes]byte
			for i := range out {
				if mask[i]&0x80 != 0 {
					out[i] = r.b[off+i]
				}
			}
			m.v[in.Dst] = out
		case opVMaskMovStore:
			r, off := m.addr(in.M)
			mask := m.v[in.Src2]
			src := m.v[in.Src1]
			for i := range src {
				if mask[i]&0x80 != 0 {
					r.b[off+i] = src[i]
				}
			}
		case opVPBroadcastB:
			b0 := m.v[in.Src1][0]
			for i := range m.v[in.Dst] {
				m.v[in.Dst][i] = b0
			}
		case opVPBroadcastD:
			r, off := m.addr(in.M)
			d := binary.LittleEndian.Uint32(r.b[off : off+4])
			for i := 0; i < 8; i++ {
				binary.LittleEndian.PutUint32(m.v[in.Dst][4*i:], d)
			}
		case opMovQ:
			var out [vecBytes]byte
			binary.LittleEndian.PutUint64(out[:], uint64(m.scalar(in.GSrc)))
			m.v[in.Dst] = out

		case opVPUnpckLBW:
			m.v[in.Dst] = unpackBytes(m.v[in.Src1], m.v[in.Src2], false)
		case opVPUnpckHBW:
			m.v[in.Dst] = unpackBytes(m.v[in.Src1], m.v[in.Src2], true)
		case opVPUnpckLWD:
			m.v[in.Dst] = unpackWords(m.v[in.Src1], m.v[in.Src2], false)
		case opVPUnpckHWD:
			m.v[in.Dst] = unpackWords(m.v[in.Src1], m.v[in.Src2], true)
		case opVPMAddUBSW:
			m.v[in.Dst] = maddUBSW(m.v[in.Src1], m.v[in.Src2])
		case opVPMAddUBSWLoad:
			r, off := m.addr(in.M)
			var b [vecBytes]byte
			copy(b[:], r.b[off:off+vecBytes])
			m.v[in.Dst] = maddUBSW(m.v[in.Src1], b)
		case opVPMAddWD:
			m.v[in.Dst] = maddWD(m.v[in.Src1], m.v[in.Src2])
		case opVPAddSW:
			m.v[in.Dst] = mapWords(m.v[in.Src1], m.v[in.Src2], func(a, b int16) int16 {
				return sat16(int32(a) + int32(b))
			})
		case opVPAddD:
			m.v[in.Dst] = mapDwords(m.v[in.Src1], m.v[in.Src2], func(a, b int32) int32 {
				return a + b
			})
		case opVPMullD:
			m.v[in.Dst] = mapDwords(m.v[in.Src1], m.v[in.Src2], func(a, b int32) int32 {
				return a * b
			})
		case opVPMovSXWD:
			src := m.v[in.Src1]
			var out [vecBytes]byte
			for i := 0; i < 8; i++ {
				w := int16(binary.LittleEndian.Uint16(src[2*i:]))
				binary.LittleEndian.PutUint32(out[4*i:], uint32(int32(w)))
			}
			m.v[in.Dst] = out
		case opVExtractI128:
			src := m.v[in.Src1]
			var out [vecBytes]byte
			copy(out[:16], src[16*(in.Imm&1):])
			m.v[in.Dst] = out
		case opVPerm2F128:
			a, b := m.v[in.Src1], m.v[in.Src2]
			var out [vecBytes]byte
			copy(out[:16], lane128(a, b, in.Imm&3))
			copy(out[16:], lane128(a, b, in.Imm>>4&3))
			m.v[in.Dst] = out
		case opVXorPs:
			a, b := m.v[in.Src1], m.v[in.Src2]
			var out [vecBytes]byte
			for i := range out {
				out[i] = a[i] ^ b[i]
			}
			m.v[in.Dst] = out
		case opVPCmpEqW:
			m.v[in.Dst] = mapWords(m.v[in.Src1], m.v[in.Src2], func(a, b int16) int16 {
				if a == b {
					return -1
				}
				return 0
			})
		case opVPAbsB:
			src := m.v[in.Src1]
			var out [vecBytes]byte
			for i := range out {
				v := int8(src[i])
				if v < 0 {
					v = -v // abs(-128) stays -128
				}
				out[i] = byte(v)
			}
			m.v[in.Dst] = out
		case opVPSrlWImm:
			sh := uint(in.Imm)
			src := m.v[in.Src1]
			var out [vecBytes]byte
			if sh <= 15 {
				for i := 0; i < 16; i++ {
					w := binary.LittleEndian.Uint16(src[2*i:])
					binary.LittleEndian.PutUint16(out[2*i:], w>>sh)
				}
			}
			m.v[in.Dst] = out

		case opMovGG:
			m.g[in.GDst] = m.g[in.GSrc]
		case opAddGG:
			m.g[in.GDst].off += m.scalar(in.GSrc)
		case opAddGImm:
			m.g[in.GDst].off += int64(in.Imm)
		case opSubGG:
			m.g[in.GDst].off -= m.scalar(in.GSrc)
		case opIMulGG:
			m.g[in.GDst].off = m.scalar(in.GDst) * m.scalar(in.GSrc)
		case opIMulGImm:
			m.g[in.GDst].off = m.scalar(in.GDst) * int64(in.Imm)
		case opSarGImm:
			m.g[in.GDst].off = m.scalar(in.GDst) >> uint(in.Imm)
		case opDecG:
			m.g[in.GDst].off--
			m.flag = m.scalar(in.GDst)

		default:
			panic(fmt.Sprintf("dw: interpreter cannot execute %s", in.Op))
		}
	}
}

// unpackBytes interleaves the low (or high) 8 bytes of each 128-bit lane
// of a and b.
func unpackBytes(a, b [vecBytes]byte, high bool) [vecBytes]byte {
	var out [vecBytes]byte
	sel := 0
	if high {
		sel = 8
	}
	for lane := 0; lane < vecBytes; lane += 16 {
		for i := 0; i < 8; i++ {
			out[lane+2*i] = a[lane+sel+i]
			out[lane+2*i+1] = b[lane+sel+i]
		}
	}
	return out
}

// unpackWords interleaves the low (or high) 4 words of each 128-bit lane
// of a and b.
func unpackWords(a, b [vecBytes]byte, high bool) [vecBytes]byte {
	var out [vecBytes]byte
	sel := 0
	if high {
		sel = 8
	}
	for lane := 0; lane < vecBytes; lane += 16 {
		for i := 0; i < 4; i++ {
			copy(out[lane+4*i:lane+4*i+2], a[lane+sel+2*i:])
			copy(out[lane+4*i+2:lane+4*i+4], b[lane+sel+2*i:])
		}
	}
	return out
}

func sat16(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

// maddUBSW is vpmaddubsw: unsigned bytes of a times signed bytes of b,
// adjacent products summed into a saturated signed word.
func maddUBSW(a, b [vecBytes]byte) [vecBytes]byte {
	var out [vecBytes]byte
	for i := 0; i < 16; i++ {
		p := int32(a[2*i])*int32(int8(b[2*i])) +
			int32(a[2*i+1])*int32(int8(b[2*i+1]))
		binary.LittleEndian.PutUint16(out[2*i:], uint16(sat16(p)))
	}
	return out
}

// maddWD is vpmaddwd: signed words multiplied pairwise and summed into
// signed dwords.
func maddWD(a, b [vecBytes]byte) [vecBytes]byte {
	var out [vecBytes]byte
	for i := 0; i < 8; i++ {
		a0 := int32(int16(binary.LittleEndian.Uint16(a[4*i:])))
		a1 := int32(int16(binary.LittleEndian.Uint16(a[4*i+2:])))
		b0 := int32(int16(binary.LittleEndian.Uint16(b[4*i:])))
		b1 := int32(int16(binary.LittleEndian.Uint16(b[4*i+2:])))
		binary.LittleEndian.PutUint32(out[4*i:], uint32(a0*b0+a1*b1))
	}
	return out
}

func mapWords(a, b [vecBytes]byte, f func(int16, int16) int16) [vecBytes]byte {
	var out [vecBytes]byte
	for i := 0; i < 16; i++ {
		va := int16(binary.LittleEndian.Uint16(a[2*i:]))
		vb := int16(binary.LittleEndian.Uint16(b[2*i:]))
		binary.LittleEndian.PutUint16(out[2*i:], uint16(f(va, vb)))
	}
	return out
}

func mapDwords(a, b [vecBytes]byte, f func(int32, int32) int32) [vecBytes]byte {
	var out [vecBytes]byte
	for i := 0; i < 8; i++ {
		va := int32(binary.LittleEndian.Uint32(a[4*i:]))
		vb := int32(binary.LittleEndian.Uint32(b[4*i:]))
		binary.LittleEndian.PutUint32(out[4*i:], uint32(f(va, vb)))
	}
	return out
}

// lane128 selects a 128-bit lane for vperm2f128: 0/1 pick from a, 2/3
// from b.
func lane128(a, b [vecBytes]byte, sel int32) []byte {
	if sel&2 != 0 {
		return b[16*(sel&1) : 16*(sel&1)+16]
	}
	return a[16*(sel&1) : 16*(sel&1)+16]
}
