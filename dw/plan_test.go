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

import "testing"

func TestPlanFitsRegisterFile(t *testing.T) {
	for _, d := range []int{2, 3} {
		for s := 1; s <= 7; s++ {
			for _, rowSum := range []bool{false, true} {
				for _, rem := range []int{vecBytes, 17, 1} {
					sig := Signature{D: d, S: s, ComputeRowSum: rowSum, Remainder: rem}
					pl := buildPlan(sig)
					if pl.next > numVecRegs {
						t.Fatalf("%+v: plan needs %d registers", sig, pl.next)
					}
				}
			}
		}
	}
}

func TestPlanDistinctAssignments(t *testing.T) {
	sig := Signature{D: 2, S: 3, ComputeRowSum: true, Remainder: 17, TopSkip: 1}
	pl := buildPlan(sig)

	seen := map[VReg]string{}
	claim := func(r VReg, name string) {
		if prev, ok := seen[r]; ok {
			t.Errorf("%s and %s share y%d", prev, name, r)
		}
		seen[r] = name
	}
	for _, r := range pl.a {
		claim(r, "a")
	}
	for _, r := range pl.c {
		claim(r, "c")
	}
	claim(pl.aSum[0], "a_sum")
	claim(pl.aSum[1], "a_sum")
	claim(pl.mask, "mask")
	claim(pl.one8, "one8")
	claim(pl.one16, "one16")

	// This signature exhausts the file: the zero-point broadcast and
	// the zero constant must share the last register.
	if !pl.recomputeZero {
		t.Fatal("expected the shared zero/zero-point fallback")
	}
	if pl.aZP != pl.zero {
		t.Errorf("aZP y%d and zero y%d should coincide under the fallback", pl.aZP, pl.zero)
	}
	if pl.aZP != numVecRegs-1 {
		t.Errorf("shared register = y%d, want y%d", pl.aZP, numVecRegs-1)
	}
}

func TestPlanSeparateZeroWhenRoomy(t *testing.T) {
	// No row sums and a full remainder leave slack: zero and the
	// zero-point broadcast get distinct registers.
	sig := Signature{D: 2, S: 3, Remainder: vecBytes, TopSkip: 1}
	pl := buildPlan(sig)
	if pl.recomputeZero {
		t.Fatal("unexpected shared-register fallback")
	}
	if pl.aZP == pl.zero {
		t.Errorf("aZP and zero share y%d with registers to spare", pl.aZP)
	}
}

func TestPlanDeterministic(t *testing.T) {
	sig := Signature{D: 3, S: 5, ComputeRowSum: true, Remainder: 9}
	if buildPlan(sig) != buildPlan(sig) {
		t.Fatal("plans for equal signatures differ")
	}
}
