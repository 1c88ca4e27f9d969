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

// emitRowSum emits the group epilogue of the quantization correction: the
// 16-bit activation sums accumulated during the quad reduction are
// widened to 32 bits, multiplied by the weight zero-point, and stored to
// the auxiliary output. One 8-channel sub-block per chunk:
//
//	chunk 0: low words of aSum[0]   (channels 0..7)
//	chunk 1: low words of aSum[1]   (channels 8..15)
//	chunk 2: high lane of aSum[0]   (channels 16..23)
//	chunk 3: high lane of aSum[1]   (channels 24..31)
//
// The tail iteration emits only the chunks the remainder reaches and
// masks the last one, so exactly remainder int32 values are written. The
// sums already carry the zero-point substitution for padded taps.
func emitRowSum(b *builder, pl regPlan, sig Signature, mainLoop bool) {
	storeMask := pl.a[3]
	chunks := 4
	if !mainLoop {
		chunks = (sig.Remainder + 7) / 8
	}

	for j := 0; j < chunks; j++ {
		lanes := 8
		if !mainLoop && sig.Remainder-8*j < 8 {
			lanes = sig.Remainder - 8*j
		}
		partial := lanes < 8

		// Weight zero-point for this sub-block: a per-channel vector
		// load, or one broadcast reused across chunks.
		if sig.PerChannelZeroPoint {
			m := Mem{Base: GpBZeroPoint, Disp: int32(32 * j)}
			if partial {
				b.vmaskmovLoad(pl.c[0], storeMask, m)
			} else {
				b.vmovupsLoad(pl.c[0], m)
			}
		} else if j == 0 {
			b.vpbroadcastd(pl.c[0], Mem{Base: GpBZeroPoint})
		}

		var sum VReg
		switch j {
		case 0:
			sum = pl.a[0]
			b.vpmovsxwd(sum, pl.aSum[0])
		case 1:
			sum = pl.a[1]
			b.vpmovsxwd(sum, pl.aSum[1])
		case 2:
			sum = pl.aSum[0]
			b.vextracti128(sum, sum, 1)
			b.vpmovsxwd(sum, sum)
		case 3:
			sum = pl.aSum[1]
			b.vextracti128(sum, sum, 1)
			b.vpmovsxwd(sum, sum)
		}
		b.vpmulld(sum, sum, pl.c[0])

		m := Mem{Base: GpASum, Disp: int32(32 * j)}
		if partial {
			b.vmaskmovStore(m, storeMask, sum)
		} else {
			b.vmovupsStore(m, sum)
		}
	}

	if mainLoop {
		if sig.PerChannelZeroPoint {
			b.addImm(GpBZeroPoint, 4*vecBytes)
		}
		b.addImm(GpASum, 4*vecBytes)
	}
}
