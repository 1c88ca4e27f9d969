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

// numVecRegs is the size of the target vector register file. The planner's
// zero/zero-point sharing fallback triggers relative to this value, not to
// a hard-coded index, so retargeting to a larger register file only needs
// this constant changed.
const numVecRegs = 16

// VReg is a virtual 256-bit vector register index, 0..numVecRegs-1.
type VReg uint8

func (v VReg) String() string {
	return fmt.Sprintf("y%d", uint8(v))
}

// GReg is a symbolic general-purpose register role. The first ten roles
// carry the kernel call arguments in ABI order; backends map roles to
// physical registers.
type GReg uint8

const (
	// GpA holds the activation cursor (uint8 data, possibly interior).
	GpA GReg = iota
	// GpB holds the packed weight cursor (int8 data).
	GpB
	// GpC holds the output accumulator cursor (int32 data).
	GpC
	// GpASum holds the row-sum output cursor (int32 data).
	GpASum
	// GpH holds the input plane height, later the depth-slice adjustment.
	GpH
	// GpW holds the input plane width, later the row adjustment.
	GpW
	// GpCin holds the runtime channel count.
	GpCin
	// GpMask points at the remainder-mask table.
	GpMask
	// GpAZeroPoint holds the activation zero-point scalar.
	GpAZeroPoint
	// GpBZeroPoint points at the weight zero-point scalar or array.
	GpBZeroPoint
	// GpLoop is the channel-group loop counter.
	GpLoop
	// GpASave preserves the activation base across filter taps, and
	// doubles as a scratch register during stride precomputation.
	GpASave

	numGpRegs
)

// numKernelArgs is the count of GReg roles preloaded from the caller's
// argument list before the instruction stream runs.
const numKernelArgs = 10

var gpNames = [numGpRegs]string{
	"a", "b", "c", "a_sum", "h", "w", "c_in", "mask", "a_zp", "b_zp",
	"loop", "a_save",
}

func (g GReg) String() string {
	if int(g) < len(gpNames) {
		return gpNames[g]
	}
	return fmt.Sprintf("g%d", uint8(g))
}
