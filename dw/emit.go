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

// emit builds the complete instruction stream for one specialization.
// The result depends only on the signature: all padding decisions and the
// filter-tap unrolling are resolved here, so the emitted kernel branches
// only on the channel-group loop.
//
// The channel count is a runtime argument, so the stream carries a loop:
// ceil(c_in/32)-1 full 32-channel iterations, then one straight-line tail
// iteration sized to the signature's remainder with masked loads and
// stores. Address strides are computed from the runtime h/w/c_in at the
// top of the kernel.
// Emit validates sig and generates its instruction stream without
// committing it to a backend, for tooling that wants to inspect the
// would-be kernel.
func Emit(sig Signature) (*Program, error) {
	if err := sig.validate(); err != nil {
		return nil, err
	}
	return emit(sig), nil
}

func emit(sig Signature) *Program {
	pl := buildPlan(sig)
	p := newProgram(sig)
	b := &builder{p}

	// Constants.
	if pl.hasMask {
		b.vmovupsLoad(pl.mask, Mem{Base: GpMask, Disp: loadMaskOffset(sig.Remainder)})
	}
	if pl.hasSum {
		b.vpcmpeqw(pl.one8, pl.one8, pl.one8)
		b.vpabsb(pl.one8, pl.one8)
	}
	if pl.hasOne16 {
		b.vpcmpeqw(pl.one16, pl.one16, pl.one16)
		b.vpsrlw(pl.one16, pl.one16, 15)
	}
	if !pl.recomputeZero && pl.hasPad {
		b.movq(pl.aZP, GpAZeroPoint)
		b.vpbroadcastb(pl.aZP, pl.aZP)
	}
	if pl.needZero && (!pl.recomputeZero || !pl.hasPad) {
		b.vxorps(pl.zero, pl.zero, pl.zero)
	}

	// Turn the h/w arguments into loop-carried address adjustments:
	// w becomes the step from the end of one filter row to the next row,
	// h the step from the end of one depth slice's rows to the next
	// slice.
	b.imul(GpW, GpCin)
	b.imul(GpH, GpW)
	if sig.D >= 3 {
		b.mov(GpASave, GpW)
		b.imulImm(GpASave, int32(sig.S))
		b.sub(GpH, GpASave)
	}
	b.mov(GpASave, GpCin)
	b.imulImm(GpASave, int32(sig.S))
	b.sub(GpW, GpASave)

	b.mov(GpLoop, GpCin)
	b.addImm(GpLoop, vecBytes-1)
	b.sar(GpLoop, 5)

	b.mov(GpASave, GpA)

	begin := b.newLabel()
	end := b.newLabel()

	// mainLoop == false emits the final, masked vector iteration.
	for _, mainLoop := range []bool{true, false} {
		if mainLoop {
			b.bind(begin)
			b.dec(GpLoop)
			b.jle(end)
		}

		emitGroup(b, pl, sig, mainLoop)

		if mainLoop {
			b.addImm(GpC, 4*vecBytes)
			b.addImm(GpASave, vecBytes)
			b.mov(GpA, GpASave)
			b.jmp(begin)
			b.bind(end)
		}
	}

	b.ret()
	p.freeze()
	return p
}

// emitGroup emits the body for one 32-channel group: the unrolled filter
// reduction, the accumulator stores, and the row-sum epilogue.
func emitGroup(b *builder, pl regPlan, sig Signature, mainLoop bool) {
	k := pl.taps
	remainder := vecBytes
	if !mainLoop {
		remainder = sig.Remainder
	}

	if pl.recomputeZero && pl.hasPad {
		b.movq(pl.aZP, GpAZeroPoint)
		b.vpbroadcastb(pl.aZP, pl.aZP)
	}

	ftEnd := 1
	if sig.D != 2 {
		ftEnd = sig.S
	}

	// Iterate across the reduction (filter) dimension.
	i := 0
	for ft := 0; ft < ftEnd; ft++ {
		for fh := 0; fh < sig.S; fh++ {
			for fw := 0; fw < sig.S; fw++ {
				emitTap(b, pl, sig, mainLoop, remainder, i, ft, fh, fw)
				if i != k-1 {
					b.add(GpA, GpCin)
				}
				i++
			}
			if i != k-1 {
				b.add(GpA, GpW)
			}
		}
		if sig.D >= 3 && i != k-1 {
			b.add(GpA, GpH)
		}
	}

	// Store the accumulators: full vectors, then a masked partial store
	// for a remainder that is not a multiple of 8 channels.
	fullRegs, part := 4, 0
	if !mainLoop {
		fullRegs, part = sig.Remainder/8, sig.Remainder%8
	}
	for r := 0; r < fullRegs; r++ {
		b.vmovupsStore(Mem{Base: GpC, Disp: int32(32 * r)}, pl.c[r])
	}
	if part > 0 {
		b.vmovupsLoad(pl.a[3], Mem{Base: GpMask, Disp: storeMaskOffset(part)})
		b.vmaskmovStore(Mem{Base: GpC, Disp: int32(32 * fullRegs)}, pl.a[3], pl.c[fullRegs])
	}

	if pl.hasSum {
		emitRowSum(b, pl, sig, mainLoop)
	}
}

// emitTap emits the A-side load (or zero-point substitution) for tap i
// and, at quad boundaries, the packed reduction and accumulator re-pack.
func emitTap(b *builder, pl regPlan, sig Signature, mainLoop bool, remainder, i, ft, fh, fw int) {
	k := pl.taps
	slot := pl.a[i%4]

	if sig.Padded(ft, fh, fw) {
		b.vmovups(slot, pl.aZP)
	} else if !mainLoop && sig.Remainder != vecBytes {
		b.vmaskmovLoad(slot, pl.mask, Mem{Base: GpA})
	} else {
		b.vmovupsLoad(slot, Mem{Base: GpA})
	}

	// Reduce once four taps are loaded, or at the final tap.
	if i%4 != 3 && i != k-1 {
		return
	}
	quadBase := i / 4 * 4

	// The shared zero/zero-point register flips to zero just before the
	// last quad when that quad has a 1- or 3-tap tail.
	if i == k-1 && (quadBase == k-3 || quadBase == k-1) && pl.recomputeZero && pl.hasPad {
		b.vxorps(pl.zero, pl.zero, pl.zero)
	}

	n := k - quadBase
	if n > 4 {
		n = 4
	}
	maddQuad(b, pl, n, remainder, quadBase > 0)

	if i != k-1 {
		b.addImm(GpB, 4*vecBytes)
	} else if mainLoop {
		// Advance past the tail block, rounded up to an even tap count.
		b.addImm(GpB, int32(vecBytes*((n+1)/2*2)))
	}

	// Once past the last quad with three or more taps, re-pack the
	// interleaved accumulator halves into contiguous channel order.
	if rem := k - quadBase; rem >= 3 && rem <= 6 {
		count := 4
		if !mainLoop {
			count = (sig.Remainder + 7) / 8
		}
		for r := 0; r < count; r++ {
			imm := int32(0x31)
			if r < 2 {
				imm = 0x20
			}
			b.vperm2f128(pl.a[r], pl.c[r%2*2], pl.c[r%2*2+1], imm)
		}
		for r := 0; r < count; r++ {
			b.vmovaps(pl.c[r], pl.a[r])
		}
	}
}
