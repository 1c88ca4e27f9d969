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

//go:build amd64

package dw

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	mmap "github.com/edsrzf/mmap-go"
)

// nativeManager encodes programs to AVX2 machine code in executable
// memory. Programs whose remainder is not a multiple of four channels
// need byte-granular masking, which AVX2 cannot express; those are
// committed through the fallback manager instead.
type nativeManager struct {
	fallback CodeManager

	mu      sync.Mutex
	regions []mmap.MMap
}

func newNativeManager(fallback CodeManager) *nativeManager {
	return &nativeManager{fallback: fallback}
}

func (n *nativeManager) Commit(p *Program) (Kernel, error) {
	code, err := encode(p)
	if err != nil {
		if errors.Is(err, ErrUnsupported) && n.fallback != nil {
			return n.fallback.Commit(p)
		}
		return nil, err
	}

	region, err := mmap.MapRegion(nil, len(code), mmap.RDWR|mmap.EXEC, mmap.ANON, 0)
	if err != nil {
		return nil, fmt.Errorf("dw: mapping %d bytes of code memory: %w", len(code), err)
	}
	copy(region, code)

	// Regions are held until process exit; kernels are cached forever
	// and there is no unmap path that could race a running call.
	n.mu.Lock()
	n.regions = append(n.regions, region)
	n.mu.Unlock()

	entry := uintptr(unsafe.Pointer(&region[0]))
	return func(args *Args) {
		callNative(entry, args)
	}, nil
}

// argBlock is the in-memory argument record the generated prologue
// reads. Field order matches the GReg argument roles.
type argBlock struct {
	a    uintptr
	b    uintptr
	c    uintptr
	aSum uintptr
	h    int64
	w    int64
	cIn  int64
	mask uintptr
	aZP  int64
	bZP  uintptr
}

func sliceAddr[T any](s []T) uintptr {
	if len(s) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(s)))
}

// callNative invokes entry as a Go function taking *argBlock. The
// generated code reads its argument from the first integer argument
// register, uses no stack, and restores the fixed-register state the
// internal ABI expects before returning.
func callNative(entry uintptr, args *Args) {
	blk := argBlock{
		a:    uintptr(int64(sliceAddr(args.A)) + int64(args.AOffset)),
		b:    sliceAddr(args.B),
		c:    sliceAddr(args.C),
		aSum: sliceAddr(args.ASum),
		h:    int64(args.H),
		w:    int64(args.W),
		cIn:  int64(args.CIn),
		mask: sliceAddr(args.Mask),
		aZP:  int64(args.AZeroPoint),
		bZP:  sliceAddr(args.BZeroPoint),
	}

	code := new(uintptr)
	*code = entry
	fn := *(*func(*argBlock))(unsafe.Pointer(&code))
	fn(&blk)

	runtime.KeepAlive(args.A)
	runtime.KeepAlive(args.B)
	runtime.KeepAlive(args.C)
	runtime.KeepAlive(args.ASum)
	runtime.KeepAlive(args.Mask)
	runtime.KeepAlive(args.BZeroPoint)
}

// gpPhys maps register roles to physical amd64 registers. RSP and R14
// (the goroutine register) stay untouched, and RAX carries the incoming
// argument pointer until the prologue has consumed it.
var gpPhys = [numGpRegs]byte{
	GpA:          7,  // rdi
	GpB:          6,  // rsi
	GpC:          2,  // rdx
	GpASum:       1,  // rcx
	GpH:          8,  // r8
	GpW:          9,  // r9
	GpCin:        10, // r10
	GpMask:       11, // r11
	GpAZeroPoint: 12, // r12
	GpBZeroPoint: 13, // r13
	GpLoop:       15, // r15
	GpASave:      3,  // rbx
}

const (
	mapOF   = 1
	mapOF38 = 2
	mapOF3A = 3

	ppNone = 0
	pp66   = 1
)

type fixup struct {
	at    int // offset of the rel32 field
	label int
}

type encoder struct {
	buf      []byte
	labelOff []int
	fixups   []fixup
}

func (e *encoder) emit(bs ...byte) {
	e.buf = append(e.buf, bs...)
}

func (e *encoder) imm32(v int32) {
	e.emit(byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

// vex3 emits a three-byte VEX prefix. No encoding here ever uses an
// index register, so the X bit is always clear.
func (e *encoder) vex3(r, b, mm, w, vvvv, l, pp byte) {
	e.emit(0xC4,
		(^r&1)<<7|1<<6|(^b&1)<<5|mm,
		w<<7|(^vvvv&0xF)<<3|l<<2|pp)
}

// vexRR emits a VEX-encoded register-register instruction.
func (e *encoder) vexRR(mm, pp, w, l, opcode, reg, vvvv, rm byte) {
	e.vex3(reg>>3, rm>>3, mm, w, vvvv, l, pp)
	e.emit(opcode, 0xC0|(reg&7)<<3|rm&7)
}

// vexRM emits a VEX-encoded instruction with a memory operand.
func (e *encoder) vexRM(mm, pp, w, l, opcode, reg, vvvv byte, m Mem) {
	base := gpPhys[m.Base]
	e.vex3(reg>>3, base>>3, mm, w, vvvv, l, pp)
	e.emit(opcode)
	e.modrmMem(reg, base, m.Disp)
}

// modrmMem emits ModRM plus displacement for [base+disp]. Bases that
// collide with the RIP-relative or SIB encodings (rbp/r13, rsp/r12) are
// never used as cursors, except r13 which takes the disp8 form.
func (e *encoder) modrmMem(reg, base byte, disp int32) {
	if base&7 == 4 {
		panic("dw: rsp-class base register")
	}
	switch {
	case disp == 0 && base&7 != 5:
		e.emit(0x00 | (reg&7)<<3 | base&7)
	case disp >= -128 && disp <= 127:
		e.emit(0x40|(reg&7)<<3|base&7, byte(disp))
	default:
		e.emit(0x80 | (reg&7)<<3 | base&7)
		e.imm32(disp)
	}
}

func (e *encoder) rex(w, reg, rm byte) {
	e.emit(0x40 | w<<3 | (reg>>3)<<2 | rm>>3)
}

// gpRR emits a REX.W two-register instruction with reg/rm taken from
// roles.
func (e *encoder) gpRR(opcode byte, reg, rm GReg) {
	r, m := gpPhys[reg], gpPhys[rm]
	e.rex(1, r, m)
	e.emit(opcode, 0xC0|(r&7)<<3|m&7)
}

func (e *encoder) label(l int) {
	for l >= len(e.labelOff) {
		e.labelOff = append(e.labelOff, -1)
	}
	e.labelOff[l] = len(e.buf)
}

func (e *encoder) jump(opcodes []byte, l int) {
	e.emit(opcodes...)
	e.fixups = append(e.fixups, fixup{at: len(e.buf), label: l})
	e.imm32(0)
}

func (e *encoder) patch() error {
	for _, f := range e.fixups {
		if f.label >= len(e.labelOff) || e.labelOff[f.label] < 0 {
			return fmt.Errorf("dw: unbound label L%d", f.label)
		}
		rel := int32(e.labelOff[f.label] - (f.at + 4))
		e.buf[f.at] = byte(rel)
		e.buf[f.at+1] = byte(rel >> 8)
		e.buf[f.at+2] = byte(rel >> 16)
		e.buf[f.at+3] = byte(rel >> 24)
	}
	return nil
}

// encode lowers a program to machine code, or reports ErrUnsupported
// when the program's masks do not land on dword boundaries.
func encode(p *Program) ([]byte, error) {
	if p.Sig.Remainder%4 != 0 {
		return nil, fmt.Errorf("dw: remainder %d needs byte-granular masking: %w",
			p.Sig.Remainder, ErrUnsupported)
	}

	e := &encoder{}

	// Prologue: spread the argument record into the role registers.
	for i := 0; i < numKernelArgs; i++ {
		dst := gpPhys[GReg(i)]
		e.rex(1, dst, 0) // base rax
		e.emit(0x8B)
		e.modrmMem(dst, 0, int32(8*i))
	}

	for _, in := range p.Insts() {
		if err := e.inst(&in); err != nil {
			return nil, err
		}
	}
	if err := e.patch(); err != nil {
		return nil, err
	}
	return e.buf, nil
}

func (e *encoder) inst(in *Inst) error {
	d, s1, s2 := byte(in.Dst), byte(in.Src1), byte(in.Src2)
	switch in.Op {
	case opLabel:
		e.label(in.Label)
	case opJLE:
		e.jump([]byte{0x0F, 0x8E}, in.Label)
	case opJMP:
		e.jump([]byte{0xE9}, in.Label)
	case opRet:
		// The internal ABI expects X15 zero and clean upper AVX state.
		e.vexRR(mapOF, ppNone, 0, 0, 0x57, 15, 15, 15) // vxorps xmm15
		e.emit(0xC5, 0xF8, 0x77)                       // vzeroupper
		e.emit(0xC3)

	case opVMovUpsRR:
		e.vexRR(mapOF, ppNone, 0, 1, 0x10, d, 0, s1)
	case opVMovApsRR:
		e.vexRR(mapOF, ppNone, 0, 1, 0x28, d, 0, s1)
	case opVMovUpsLoad:
		e.vexRM(mapOF, ppNone, 0, 1, 0x10, d, 0, in.M)
	case opVMovUpsStore:
		e.vexRM(mapOF, ppNone, 0, 1, 0x11, s1, 0, in.M)
	case opVMaskMovLoad:
		e.vexRM(mapOF38, pp66, 0, 1, 0x8C, d, s2, in.M) // vpmaskmovd
	case opVMaskMovStore:
		e.vexRM(mapOF38, pp66, 0, 1, 0x8E, s1, s2, in.M)
	case opVPBroadcastB:
		e.vexRR(mapOF38, pp66, 0, 1, 0x78, d, 0, s1)
	case opVPBroadcastD:
		e.vexRM(mapOF38, pp66, 0, 1, 0x58, d, 0, in.M)
	case opMovQ:
		src := gpPhys[in.GSrc]
		e.vex3(d>>3, src>>3, mapOF, 1, 0, 0, pp66) // vmovq xmm, r64
		e.emit(0x6E, 0xC0|(d&7)<<3|src&7)

	case opVPUnpckLBW:
		e.vexRR(mapOF, pp66, 0, 1, 0x60, d, s1, s2)
	case opVPUnpckHBW:
		e.vexRR(mapOF, pp66, 0, 1, 0x68, d, s1, s2)
	case opVPUnpckLWD:
		e.vexRR(mapOF, pp66, 0, 1, 0x61, d, s1, s2)
	case opVPUnpckHWD:
		e.vexRR(mapOF, pp66, 0, 1, 0x69, d, s1, s2)
	case opVPMAddUBSW:
		e.vexRR(mapOF38, pp66, 0, 1, 0x04, d, s1, s2)
	case opVPMAddUBSWLoad:
		e.vexRM(mapOF38, pp66, 0, 1, 0x04, d, s1, in.M)
	case opVPMAddWD:
		e.vexRR(mapOF, pp66, 0, 1, 0xF5, d, s1, s2)
	case opVPAddSW:
		e.vexRR(mapOF, pp66, 0, 1, 0xED, d, s1, s2)
	case opVPAddD:
		e.vexRR(mapOF, pp66, 0, 1, 0xFE, d, s1, s2)
	case opVPMullD:
		e.vexRR(mapOF38, pp66, 0, 1, 0x40, d, s1, s2)
	case opVPMovSXWD:
		e.vexRR(mapOF38, pp66, 0, 1, 0x23, d, 0, s1)
	case opVExtractI128:
		e.vexRR(mapOF3A, pp66, 0, 1, 0x39, s1, 0, d)
		e.emit(byte(in.Imm))
	case opVPerm2F128:
		e.vexRR(mapOF3A, pp66, 0, 1, 0x06, d, s1, s2)
		e.emit(byte(in.Imm))
	case opVXorPs:
		e.vexRR(mapOF, ppNone, 0, 1, 0x57, d, s1, s2)
	case opVPCmpEqW:
		e.vexRR(mapOF, pp66, 0, 1, 0x75, d, s1, s2)
	case opVPAbsB:
		e.vexRR(mapOF38, pp66, 0, 1, 0x1C, d, 0, s1)
	case opVPSrlWImm:
		e.vexRR(mapOF, pp66, 0, 1, 0x71, 2, d, s1) // /2, dst in vvvv
		e.emit(byte(in.Imm))

	case opMovGG:
		e.gpRR(0x89, in.GSrc, in.GDst)
	case opAddGG:
		e.gpRR(0x01, in.GSrc, in.GDst)
	case opSubGG:
		e.gpRR(0x29, in.GSrc, in.GDst)
	case opIMulGG:
		e.rex(1, gpPhys[in.GDst], gpPhys[in.GSrc])
		e.emit(0x0F, 0xAF, 0xC0|(gpPhys[in.GDst]&7)<<3|gpPhys[in.GSrc]&7)
	case opAddGImm:
		dst := gpPhys[in.GDst]
		e.rex(1, 0, dst)
		if in.Imm >= -128 && in.Imm <= 127 {
			e.emit(0x83, 0xC0|dst&7, byte(in.Imm))
		} else {
			e.emit(0x81, 0xC0|dst&7)
			e.imm32(in.Imm)
		}
	case opIMulGImm:
		dst := gpPhys[in.GDst]
		e.rex(1, dst, dst)
		if in.Imm >= -128 && in.Imm <= 127 {
			e.emit(0x6B, 0xC0|(dst&7)<<3|dst&7, byte(in.Imm))
		} else {
			e.emit(0x69, 0xC0|(dst&7)<<3|dst&7)
			e.imm32(in.Imm)
		}
	case opSarGImm:
		dst := gpPhys[in.GDst]
		e.rex(1, 0, dst)
		e.emit(0xC1, 0xF8|dst&7, byte(in.Imm))
	case opDecG:
		dst := gpPhys[in.GDst]
		e.rex(1, 0, dst)
		e.emit(0xFF, 0xC8|dst&7)

	default:
		return fmt.Errorf("dw: no encoding for %s", in.Op)
	}
	return nil
}
