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

// regPlan is the deterministic role-to-register assignment for one
// specialization. Registers 0 and 1 are interleave temporaries inside the
// quad reduction; the remaining roles are assigned in a fixed order so
// equal signatures always produce identical plans.
type regPlan struct {
	a     [4]VReg // A-tile, one 32-channel activation vector per tap slot
	c     [4]VReg // 32-bit accumulators
	aSum  [2]VReg // 16-bit row-sum accumulators
	mask  VReg    // remainder byte mask
	one8  VReg    // 0x01 bytes, row-sum multiplicand
	one16 VReg    // 0x0001 words, horizontal reduction multiplicand
	aZP   VReg    // broadcast activation zero-point
	zero  VReg    // zero constant for quad tails of 1 or 3 taps

	hasMask  bool
	hasSum   bool
	hasOne16 bool
	hasPad   bool
	needZero bool
	// recomputeZero is the register-pressure relief: zero and the
	// zero-point broadcast share one register, and the zero-point is
	// re-broadcast at the top of every channel group instead of staying
	// live.
	recomputeZero bool

	taps int
	next int // first index never assigned; <= numVecRegs by construction
}

// buildPlan derives the register assignment from the signature alone.
// The documented signature space always fits the register file once the
// zero/zero-point sharing fallback is applied; anything else is a
// programming error, not a runtime condition.
func buildPlan(sig Signature) regPlan {
	var pl regPlan
	pl.taps = sig.Taps()
	pl.hasPad = sig.HasPadding()
	pl.hasSum = sig.ComputeRowSum

	id := VReg(2) // 0 and 1 stay reserved for interleave temporaries
	for i := range pl.a {
		pl.a[i] = id
		id++
	}
	for i := range pl.c {
		pl.c[i] = id
		id++
	}
	if sig.ComputeRowSum {
		pl.aSum[0] = id
		id++
		pl.aSum[1] = id
		id++
	}
	pl.mask = id
	if sig.Remainder != vecBytes {
		pl.hasMask = true
		id++
	}
	pl.one8 = id
	if sig.ComputeRowSum {
		id++
	}
	pl.one16 = id
	if pl.taps > 2 {
		pl.hasOne16 = true
		id++
	}

	pl.needZero = pl.taps%4 == 1 || pl.taps%4 == 3
	pl.recomputeZero = id == numVecRegs-1 && pl.needZero

	pl.aZP = id
	if id < numVecRegs-1 {
		id++
	}
	pl.zero = id
	pl.next = int(id) + 1

	if pl.next > numVecRegs {
		panic(fmt.Sprintf("dw: register plan for %+v needs %d vector registers", sig, pl.next))
	}
	return pl
}
