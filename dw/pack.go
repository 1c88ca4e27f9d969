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

import "fmt"

// groupStride is the packed byte footprint of one 32-channel group for a
// k-tap filter: 128 bytes per full quad of taps, then the tail rounded
// up to an even tap count.
func groupStride(k int) int {
	n := k % 4
	return 128*(k/4) + vecBytes*((n+1)/2*2)
}

// PackWeights interleaves a tap-major weight tensor w, indexed
// w[tap*cIn+channel], into the layout the generated kernels read.
//
// Channels are split into groups of 32. Within a group, each full quad
// of taps occupies four 32-byte blocks; block i carries the four tap
// bytes of channels 4i..4i+3 and 16+4i..16+4i+3, one dword per channel,
// matching the word-interleave the kernel builds from its activation
// loads. A tail of one or two taps packs as two blocks of tap pairs
// (block i carries channels 8i..8i+7 and 16+8i..16+8i+7), a tail of
// three packs as a zero-extended quad. The last group is zero-padded
// to 32 channels.
func PackWeights(w []int8, k, cIn int) []int8 {
	if k < 1 || cIn < 1 {
		panic(fmt.Sprintf("dw: PackWeights k=%d cIn=%d out of range", k, cIn))
	}
	if len(w) < k*cIn {
		panic(fmt.Sprintf("dw: PackWeights needs %d weights, got %d", k*cIn, len(w)))
	}
	groups := (cIn + 31) / 32
	stride := groupStride(k)
	out := make([]int8, groups*stride)

	at := func(t, ch int) int8 {
		if ch >= cIn {
			return 0
		}
		return w[t*cIn+ch]
	}
	for g := 0; g < groups; g++ {
		base := g * stride
		ch0 := g * 32
		q := 0
		for ; q < k/4; q++ {
			for blk := 0; blk < 4; blk++ {
				for d := 0; d < 8; d++ {
					ch := ch0 + 16*(d/4) + 4*blk + d%4
					off := base + 128*q + 32*blk + 4*d
					for t := 0; t < 4; t++ {
						out[off+t] = at(4*q+t, ch)
					}
				}
			}
		}
		tail := k % 4
		switch {
		case tail == 3:
			for blk := 0; blk < 4; blk++ {
				for d := 0; d < 8; d++ {
					ch := ch0 + 16*(d/4) + 4*blk + d%4
					off := base + 128*q + 32*blk + 4*d
					for t := 0; t < 3; t++ {
						out[off+t] = at(4*q+t, ch)
					}
				}
			}
		case tail > 0:
			for blk := 0; blk < 2; blk++ {
				for p := 0; p < 16; p++ {
					ch := ch0 + 16*(p/8) + 8*blk + p%8
					off := base + 128*q + 32*blk + 2*p
					for t := 0; t < tail; t++ {
						out[off+t] = at(4*q+t, ch)
					}
				}
			}
		}
	}
	return out
}
