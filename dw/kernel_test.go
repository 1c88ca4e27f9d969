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
	"fmt"
	"math/rand"
	"testing"
)

// refDepthwise is the scalar reference: one multiply-accumulate per tap
// per channel, with the zero-point substituted for padded taps. The
// generated kernels must match it bit for bit; the test data generator
// keeps values inside the ranges where the 16-bit intermediate math is
// exact.
func refDepthwise(sig Signature, a []uint8, aOff int, wts []int8, h, w, cIn int,
	azp uint8, bzp []int32) (c, asum []int32) {
	c = make([]int32, cIn)
	asum = make([]int32, cIn)
	ftEnd := 1
	if sig.D == 3 {
		ftEnd = sig.S
	}
	for ch := 0; ch < cIn; ch++ {
		var acc, sum int32
		i := 0
		for ft := 0; ft < ftEnd; ft++ {
			for fh := 0; fh < sig.S; fh++ {
				for fw := 0; fw < sig.S; fw++ {
					var av int32
					if sig.Padded(ft, fh, fw) {
						av = int32(azp)
					} else {
						av = int32(a[aOff+((ft*h+fh)*w+fw)*cIn+ch])
					}
					acc += av * int32(wts[i*cIn+ch])
					sum += av
					i++
				}
			}
		}
		c[ch] = acc
		z := bzp[0]
		if sig.PerChannelZeroPoint {
			z = bzp[ch]
		}
		asum[ch] = sum * z
	}
	return c, asum
}

func remainderFor(cIn int) int {
	r := cIn % vecBytes
	if r == 0 {
		r = vecBytes
	}
	return r
}

// checkKernel builds the kernel for sig on the portable backend, runs it
// on random data, and compares against the reference. The input plane is
// slightly larger than the filter window so the row and slice strides
// are exercised.
func checkKernel(t *testing.T, sig Signature, cIn int, aOff int) {
	t.Helper()
	sig.Remainder = remainderFor(cIn)

	cache := NewCache(portableManager{})
	kernel, err := cache.GetOrCreate(sig)
	if err != nil {
		t.Fatalf("GetOrCreate(%+v) = %v", sig, err)
	}

	rng := rand.New(rand.NewSource(int64(sig.Taps())*1000 + int64(cIn)))
	k := sig.Taps()
	h, w := sig.S+1, sig.S+2
	depth := 1
	if sig.D == 3 {
		depth = sig.S
	}

	// Weights stay in [-64, 63] so the u8*s8 pair sums cannot saturate
	// 16 bits; with row sums enabled the activations are bounded so the
	// running 16-bit activation sum stays exact too.
	maxA := 255
	if sig.ComputeRowSum && 255*k > 32767 {
		maxA = 32767 / k
	}
	a := make([]uint8, depth*h*w*cIn+aOff)
	for i := range a {
		a[i] = uint8(rng.Intn(maxA + 1))
	}
	wts := make([]int8, k*cIn)
	for i := range wts {
		wts[i] = int8(rng.Intn(128) - 64)
	}
	azp := uint8(rng.Intn(maxA + 1))

	bzp := []int32{3}
	if sig.PerChannelZeroPoint {
		bzp = make([]int32, cIn)
		for i := range bzp {
			bzp[i] = int32(rng.Intn(7) - 3)
		}
	}

	wantC, wantSum := refDepthwise(sig, a, aOff, wts, h, w, cIn, azp, bzp)

	c := make([]int32, cIn)
	asum := make([]int32, cIn)
	args := &Args{
		A:          a,
		AOffset:    aOff,
		B:          PackWeights(wts, k, cIn),
		C:          c,
		ASum:       asum,
		H:          h,
		W:          w,
		CIn:        cIn,
		Mask:       MaskTable(),
		AZeroPoint: azp,
		BZeroPoint: bzp,
	}
	kernel(args)

	for ch := 0; ch < cIn; ch++ {
		if c[ch] != wantC[ch] {
			t.Fatalf("c[%d] = %d, want %d (sig %+v cIn %d)", ch, c[ch], wantC[ch], sig, cIn)
		}
	}
	if sig.ComputeRowSum {
		for ch := 0; ch < cIn; ch++ {
			if asum[ch] != wantSum[ch] {
				t.Fatalf("a_sum[%d] = %d, want %d (sig %+v cIn %d)", ch, asum[ch], wantSum[ch], sig, cIn)
			}
		}
	}
}

func TestKernelMatrix(t *testing.T) {
	for _, d := range []int{2, 3} {
		for _, s := range []int{1, 3, 5, 7} {
			if d == 3 && s == 7 {
				// 343 taps: covered separately in the row-sum test.
				continue
			}
			for _, cIn := range []int{1, 8, 17, 32, 65} {
				sig := Signature{D: d, S: s}
				t.Run(fmt.Sprintf("d%d_s%d_c%d", d, s, cIn), func(t *testing.T) {
					checkKernel(t, sig, cIn, 0)
				})
			}
		}
	}
}

func TestKernelEvenFilter(t *testing.T) {
	// Even extents hit the two-tap tail path of the reduction.
	for _, s := range []int{2, 4, 6} {
		for _, cIn := range []int{5, 32, 40} {
			t.Run(fmt.Sprintf("s%d_c%d", s, cIn), func(t *testing.T) {
				checkKernel(t, Signature{D: 2, S: s}, cIn, 0)
			})
		}
	}
}

func TestKernelRowSum(t *testing.T) {
	cases := []Signature{
		{D: 2, S: 3, ComputeRowSum: true},
		{D: 2, S: 3, ComputeRowSum: true, PerChannelZeroPoint: true},
		{D: 2, S: 5, ComputeRowSum: true},
		{D: 3, S: 3, ComputeRowSum: true, PerChannelZeroPoint: true},
		{D: 3, S: 7, ComputeRowSum: true},
	}
	for _, sig := range cases {
		for _, cIn := range []int{8, 19, 32, 64, 67} {
			name := fmt.Sprintf("d%d_s%d_c%d_pc%t", sig.D, sig.S, cIn, sig.PerChannelZeroPoint)
			t.Run(name, func(t *testing.T) {
				checkKernel(t, sig, cIn, 0)
			})
		}
	}
}

func TestKernelPadding(t *testing.T) {
	cases := []Signature{
		{D: 2, S: 3, TopSkip: 1},
		{D: 2, S: 3, LeftSkip: 1, RightSkip: 1},
		{D: 2, S: 3, TopSkip: 1, BottomSkip: 1, LeftSkip: 1, RightSkip: 1},
		{D: 2, S: 5, BottomSkip: 2, RightSkip: 3},
		{D: 3, S: 3, PrevSkip: 1},
		{D: 3, S: 3, PrevSkip: 1, NextSkip: 1, TopSkip: 1, LeftSkip: 1},
		{D: 2, S: 3, TopSkip: 1, ComputeRowSum: true, PerChannelZeroPoint: true},
	}
	for _, sig := range cases {
		for _, cIn := range []int{7, 32, 50} {
			name := fmt.Sprintf("d%d_s%d_c%d_skips%d%d%d%d%d%d", sig.D, sig.S, cIn,
				sig.PrevSkip, sig.NextSkip, sig.TopSkip, sig.BottomSkip, sig.LeftSkip, sig.RightSkip)
			t.Run(name, func(t *testing.T) {
				checkKernel(t, sig, cIn, 0)
			})
		}
	}
}

// TestKernelNegativeOrigin places the filter window so the padded taps
// fall before the start of the activation buffer. They must never be
// read.
func TestKernelNegativeOrigin(t *testing.T) {
	sig := Signature{D: 2, S: 3, TopSkip: 1, LeftSkip: 1}
	for _, cIn := range []int{9, 32, 33} {
		sig.Remainder = remainderFor(cIn)
		cache := NewCache(portableManager{})
		kernel, err := cache.GetOrCreate(sig)
		if err != nil {
			t.Fatal(err)
		}

		rng := rand.New(rand.NewSource(7))
		h, w := 4, 5
		aOff := -(w + 1) * cIn
		// Only the region the unpadded taps can reach is allocated.
		a := make([]uint8, (w+2)*cIn)
		for i := range a {
			a[i] = uint8(rng.Intn(256))
		}
		wts := make([]int8, sig.Taps()*cIn)
		for i := range wts {
			wts[i] = int8(rng.Intn(128) - 64)
		}

		wantC, _ := refDepthwise(sig, a, aOff, wts, h, w, cIn, 11, []int32{0})

		c := make([]int32, cIn)
		kernel(&Args{
			A:          a,
			AOffset:    aOff,
			B:          PackWeights(wts, sig.Taps(), cIn),
			C:          c,
			H:          h,
			W:          w,
			CIn:        cIn,
			Mask:       MaskTable(),
			AZeroPoint: 11,
			BZeroPoint: []int32{0},
		})
		for ch := 0; ch < cIn; ch++ {
			if c[ch] != wantC[ch] {
				t.Fatalf("cIn=%d: c[%d] = %d, want %d", cIn, ch, c[ch], wantC[ch])
			}
		}
	}
}

// TestKernelAllPadded drives a specialization whose every tap is padded;
// the activation buffer is empty and must stay untouched.
func TestKernelAllPadded(t *testing.T) {
	sig := Signature{D: 2, S: 1, TopSkip: 1, Remainder: 3}
	cache := NewCache(portableManager{})
	kernel, err := cache.GetOrCreate(sig)
	if err != nil {
		t.Fatal(err)
	}

	cIn := 3
	wts := []int8{5, -7, 9}
	c := make([]int32, cIn)
	kernel(&Args{
		B:          PackWeights(wts, 1, cIn),
		C:          c,
		H:          1,
		W:          1,
		CIn:        cIn,
		Mask:       MaskTable(),
		AZeroPoint: 10,
		BZeroPoint: []int32{0},
	})
	for ch := 0; ch < cIn; ch++ {
		want := 10 * int32(wts[ch])
		if c[ch] != want {
			t.Fatalf("c[%d] = %d, want %d", ch, c[ch], want)
		}
	}
}

// TestKernelExactStores verifies the tail group writes exactly cIn
// outputs: sentinels directly after the live range must survive.
func TestKernelExactStores(t *testing.T) {
	for _, cIn := range []int{1, 3, 9, 17, 23, 31, 33} {
		sig := Signature{D: 2, S: 3, ComputeRowSum: true, Remainder: remainderFor(cIn)}
		cache := NewCache(portableManager{})
		kernel, err := cache.GetOrCreate(sig)
		if err != nil {
			t.Fatal(err)
		}

		rng := rand.New(rand.NewSource(int64(cIn)))
		h, w := 4, 5
		a := make([]uint8, h*w*cIn)
		for i := range a {
			a[i] = uint8(rng.Intn(90))
		}
		wts := make([]int8, 9*cIn)
		for i := range wts {
			wts[i] = int8(rng.Intn(128) - 64)
		}

		const sentinel = int32(0x5AD0BEEF)
		c := make([]int32, cIn+8)
		asum := make([]int32, cIn+8)
		for i := cIn; i < len(c); i++ {
			c[i] = sentinel
			asum[i] = sentinel
		}
		kernel(&Args{
			A:          a,
			B:          PackWeights(wts, 9, cIn),
			C:          c,
			ASum:       asum,
			H:          h,
			W:          w,
			CIn:        cIn,
			Mask:       MaskTable(),
			BZeroPoint: []int32{2},
		})
		for i := cIn; i < len(c); i++ {
			if c[i] != sentinel {
				t.Fatalf("cIn=%d: c[%d] overwritten to %d", cIn, i, c[i])
			}
			if asum[i] != sentinel {
				t.Fatalf("cIn=%d: a_sum[%d] overwritten to %d", cIn, i, asum[i])
			}
		}
	}
}

func BenchmarkKernelPortable(b *testing.B) {
	sig := Signature{D: 2, S: 3, Remainder: vecBytes}
	cache := NewCache(portableManager{})
	kernel, err := cache.GetOrCreate(sig)
	if err != nil {
		b.Fatal(err)
	}

	cIn := 64
	h, w := 4, 5
	a := make([]uint8, h*w*cIn)
	wts := make([]int8, 9*cIn)
	args := &Args{
		A:          a,
		B:          PackWeights(wts, 9, cIn),
		C:          make([]int32, cIn),
		H:          h,
		W:          w,
		CIn:        cIn,
		Mask:       MaskTable(),
		BZeroPoint: []int32{0},
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		kernel(args)
	}
}
