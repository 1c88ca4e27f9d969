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

// Package dw generates quantized depthwise convolution microkernels at
// runtime, specialized to a filter shape, padding pattern, and channel
// remainder.
//
// Each kernel computes one spatial output position across all channels:
// 32 uint8 channel lanes per vector group, signed 8-bit pre-interleaved
// weights, exact 32-bit accumulation, with implicit zero-point padding
// resolved at generation time so the emitted code contains no per-pixel
// branches. An optional row-sum pass produces the B_zero_point * sum(A)
// cross term needed by asymmetric requantization.
//
// Kernels are requested by Signature and memoized for the process
// lifetime:
//
//	sig := dw.Signature{D: 2, S: 3, Remainder: 32}
//	kernel, err := dw.GetOrCreate(sig)
//	if err != nil {
//		// code memory exhausted; the shape may be retried later
//	}
//	kernel(&dw.Args{
//		A: activations, B: dw.PackWeights(weights, 9, channels),
//		C: acc, H: h, W: w, CIn: channels,
//		Mask: dw.MaskTable(), AZeroPoint: aZero, BZeroPoint: bZero,
//	})
//
// Generation is split into a pure emission stage (Signature to an
// immutable instruction stream over a 256-bit AVX2-modeled virtual ISA)
// and a CodeManager that turns the stream into a callable. The portable
// manager interprets the stream and runs everywhere; on amd64 hosts with
// AVX2 an experimental native backend (enabled with DW_NATIVE=1) lowers
// the same stream to machine code in executable memory. DW_PORTABLE=1
// forces the interpreter regardless of host capabilities.
package dw
