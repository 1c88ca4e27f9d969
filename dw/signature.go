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

// Signature identifies one kernel specialization. Two equal signatures
// share a single compiled kernel.
//
// The spatial skip counts describe how many filter taps on each edge fall
// outside the input for this invocation shape; those taps are substituted
// with the activation zero-point at generation time. PrevSkip and NextSkip
// apply to the depth axis and are meaningful only for D == 3.
type Signature struct {
	// D is the spatial rank, 2 or 3.
	D int
	// S is the filter extent per spatial axis (SxS or SxSxS taps).
	S int
	// ComputeRowSum enables the auxiliary per-channel activation sum
	// written to Args.ASum.
	ComputeRowSum bool
	// PerChannelZeroPoint selects a per-channel weight zero-point array
	// over a single broadcast scalar for the row-sum product.
	PerChannelZeroPoint bool
	// Remainder is the channel count of the final vector group, 1..32.
	Remainder int

	PrevSkip, NextSkip  int
	TopSkip, BottomSkip int
	LeftSkip, RightSkip int
}

// Taps returns the filter tap count K = S^D.
func (s Signature) Taps() int {
	k := 1
	for i := 0; i < s.D; i++ {
		k *= s.S
	}
	return k
}

// HasPadding reports whether any tap of this specialization lies in the
// padded region.
func (s Signature) HasPadding() bool {
	return s.PrevSkip > 0 || s.NextSkip > 0 || s.TopSkip > 0 ||
		s.BottomSkip > 0 || s.LeftSkip > 0 || s.RightSkip > 0
}

// Padded reports whether the tap at filter offset (ft, fh, fw) falls in
// the skip range on any axis. The decision depends only on the signature,
// never on runtime values.
func (s Signature) Padded(ft, fh, fw int) bool {
	if s.D > 2 && (ft < s.PrevSkip || ft >= s.S-s.NextSkip) {
		return true
	}
	return fh < s.TopSkip || fh >= s.S-s.BottomSkip ||
		fw < s.LeftSkip || fw >= s.S-s.RightSkip
}

func (s Signature) validate() error {
	if s.D != 2 && s.D != 3 {
		return fmt.Errorf("dw: spatial rank %d not supported", s.D)
	}
	if s.S < 1 {
		return fmt.Errorf("dw: filter extent %d not supported", s.S)
	}
	if s.Remainder < 1 || s.Remainder > vecBytes {
		return fmt.Errorf("dw: remainder %d outside 1..%d", s.Remainder, vecBytes)
	}
	if s.PrevSkip < 0 || s.NextSkip < 0 || s.TopSkip < 0 || s.BottomSkip < 0 ||
		s.LeftSkip < 0 || s.RightSkip < 0 {
		return fmt.Errorf("dw: negative skip count in %v", s)
	}
	return nil
}

// key is the canonical form used to deduplicate concurrent builds.
func (s Signature) key() string {
	return fmt.Sprintf("%d/%d/%t/%t/%d/%d.%d.%d.%d.%d.%d",
		s.D, s.S, s.ComputeRowSum, s.PerChannelZeroPoint, s.Remainder,
		s.PrevSkip, s.NextSkip, s.TopSkip, s.BottomSkip, s.LeftSkip, s.RightSkip)
}
