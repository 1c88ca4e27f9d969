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

// maddQuad reduces the n loaded A-tile vectors (n <= 4 taps) against one
// packed weight block and accumulates into the 32-bit accumulators:
//
//	c = a0*b0 + a1*b1 + a2*b2 + a3*b3
//
// A is uint8, B is int8 and pre-interleaved, and the accumulator layout
// per 256-bit register interleaves two channel halves:
//
//	c[0]:   ch[0:4],  ch[16:20]
//	c[1]:   ch[4:8],  ch[20:24]
//	c[2]:  ch[8:12],  ch[24:28]
//	c[3]: ch[12:16],  ch[28:32]
//
// (the emitter re-packs to contiguous channel order once, at the last
// quad boundary that needs it). When n <= 2 overall, a direct
// sign-extension path skips the second interleave stage and the
// accumulators come out contiguous immediately. The quad's row-sum
// contribution is folded in here so padded taps, already substituted with
// the zero-point broadcast, count toward the sum exactly once.
func maddQuad(b *builder, pl regPlan, n, remainder int, accumulate bool) {
	// Interleave inputs. a[1] and a[3] are reused to save registers.
	a01lo, a01hi := VReg(0), VReg(1)
	a23lo, a23hi := pl.a[1], pl.a[3]

	second := pl.a[1]
	if n == 1 {
		second = pl.zero
	}
	b.vpunpcklbw(a01lo, pl.a[0], second)
	if remainder >= 8 {
		b.vpunpckhbw(a01hi, pl.a[0], second)
	}
	if n > 2 {
		fourth := pl.a[3]
		if n == 3 {
			fourth = pl.zero
		}
		b.vpunpcklbw(a23lo, pl.a[2], fourth)
		if remainder >= 8 {
			b.vpunpckhbw(a23hi, pl.a[2], fourth)
		}
	}

	// Row-wise sum of A for the quantization correction.
	if pl.hasSum {
		if accumulate {
			b.vpmaddubsw(pl.a[0], a01lo, pl.one8)
			b.vpaddsw(pl.aSum[0], pl.a[0], pl.aSum[0])
			if remainder >= 8 {
				b.vpmaddubsw(pl.a[2], a01hi, pl.one8)
				b.vpaddsw(pl.aSum[1], pl.a[2], pl.aSum[1])
			}
		} else {
			b.vpmaddubsw(pl.aSum[0], a01lo, pl.one8)
			if remainder >= 8 {
				b.vpmaddubsw(pl.aSum[1], a01hi, pl.one8)
			}
		}
		if n > 2 {
			b.vpmaddubsw(pl.a[0], a23lo, pl.one8)
			b.vpaddsw(pl.aSum[0], pl.a[0], pl.aSum[0])
			if remainder >= 8 {
				b.vpmaddubsw(pl.a[2], a23hi, pl.one8)
				b.vpaddsw(pl.aSum[1], pl.a[2], pl.aSum[1])
			}
		}
	}

	if n > 2 {
		// Second interleave stage, reusing the A-tile registers. The
		// low lanes of c[2] and c[3] carry channels 8..15, so any
		// remainder past one 8-channel chunk needs them.
		b.vpunpcklwd(pl.a[0], a01lo, a23lo)
		b.vpunpckhwd(pl.a[1], a01lo, a23lo)
		if remainder > 8 {
			b.vpunpcklwd(pl.a[2], a01hi, a23hi)
			b.vpunpckhwd(pl.a[3], a01hi, a23hi)
		}

		b.vpmaddubswLoad(pl.a[0], pl.a[0], Mem{Base: GpB})
		b.vpmaddubswLoad(pl.a[1], pl.a[1], Mem{Base: GpB, Disp: 32})
		if remainder > 8 {
			b.vpmaddubswLoad(pl.a[2], pl.a[2], Mem{Base: GpB, Disp: 64})
			b.vpmaddubswLoad(pl.a[3], pl.a[3], Mem{Base: GpB, Disp: 96})
		}

		if accumulate {
			b.vpmaddwd(pl.a[0], pl.a[0], pl.one16)
			b.vpaddd(pl.c[0], pl.c[0], pl.a[0])
			b.vpmaddwd(pl.a[1], pl.a[1], pl.one16)
			b.vpaddd(pl.c[1], pl.c[1], pl.a[1])
			if remainder > 8 {
				b.vpmaddwd(pl.a[2], pl.a[2], pl.one16)
				b.vpaddd(pl.c[2], pl.c[2], pl.a[2])
				b.vpmaddwd(pl.a[3], pl.a[3], pl.one16)
				b.vpaddd(pl.c[3], pl.c[3], pl.a[3])
			}
		} else {
			b.vpmaddwd(pl.c[0], pl.a[0], pl.one16)
			b.vpmaddwd(pl.c[1], pl.a[1], pl.one16)
			if remainder > 8 {
				b.vpmaddwd(pl.c[2], pl.a[2], pl.one16)
				b.vpmaddwd(pl.c[3], pl.a[3], pl.one16)
			}
		}
	} else {
		// One or two taps total: multiply the byte pairs directly and
		// widen by sign extension.
		b.vpmaddubswLoad(pl.a[0], a01lo, Mem{Base: GpB})
		b.vpmaddubswLoad(pl.a[1], a01hi, Mem{Base: GpB, Disp: 32})

		if accumulate {
			b.vpmovsxwd(pl.a[2], pl.a[0])
			b.vpaddd(pl.c[0], pl.c[0], pl.a[2])
			b.vpmovsxwd(pl.a[3], pl.a[1])
			b.vpaddd(pl.c[1], pl.c[1], pl.a[3])
			if remainder >= 16 {
				b.vextracti128(pl.a[0], pl.a[0], 1)
				b.vpmovsxwd(pl.a[0], pl.a[0])
				b.vpaddd(pl.c[2], pl.c[2], pl.a[0])
				b.vextracti128(pl.a[1], pl.a[1], 1)
				b.vpmovsxwd(pl.a[1], pl.a[1])
				b.vpaddd(pl.c[3], pl.c[3], pl.a[1])
			}
		} else {
			b.vpmovsxwd(pl.c[0], pl.a[0])
			b.vpmovsxwd(pl.c[1], pl.a[1])
			if remainder >= 16 {
				b.vextracti128(pl.a[0], pl.a[0], 1)
				b.vpmovsxwd(pl.c[2], pl.a[0])
				b.vextracti128(pl.a[1], pl.a[1], 1)
				b.vpmovsxwd(pl.c[3], pl.a[1])
			}
		}
	}
}
