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

// Kernel is a compiled depthwise convolution microkernel. One call
// computes one spatial output position across all CIn channels. Kernels
// mutate no state other than the caller's output buffers, so a single
// kernel may be invoked concurrently from any number of goroutines with
// disjoint buffers.
type Kernel func(*Args)

// Args is the fixed calling convention of a generated kernel. The caller
// is responsible for sizing and consistency: buffer lengths, H/W/CIn
// agreeing with the signature's skip counts, and CIn%32 (or 32) equal to
// the signature's remainder. Padded regions are assumed, not re-checked;
// a violated precondition is undefined behavior at kernel level (the
// portable backend surfaces it as a bounds panic).
type Args struct {
	// A is the uint8 activation tensor, laid out [depth][height][width][channel].
	A []uint8
	// AOffset is the byte offset of the kernel's origin inside A: the
	// position tap (0,0,0) would read. It is negative when leading taps
	// are padded, which is safe because padded taps never touch memory.
	AOffset int
	// B is the pre-interleaved weight block produced by PackWeights.
	B []int8
	// C receives one int32 accumulator per channel.
	C []int32
	// ASum receives the per-channel zero-point correction when the
	// signature enables ComputeRowSum; may be nil otherwise.
	ASum []int32
	// H, W are the input plane height and width.
	H, W int
	// CIn is the channel count.
	CIn int
	// Mask is the remainder-mask table, normally MaskTable().
	Mask []uint8
	// AZeroPoint is the activation zero-point substituted for padded taps.
	AZeroPoint uint8
	// BZeroPoint is the weight zero-point: one element, or CIn elements
	// when the signature enables PerChannelZeroPoint.
	BZeroPoint []int32
}
