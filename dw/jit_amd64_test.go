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

//go:build amd64

package dw

import (
	"encoding/hex"
	"errors"
	"math/rand"
	"strings"
	"testing"
)

// prologueHex is the fixed argument-loading preamble: ten REX.W loads
// from the argument block in rax into the role registers.
const prologueHex = "488b38" + "488b7008" + "488b5010" + "488b4818" +
	"4c8b4020" + "4c8b4828" + "4c8b5030" + "4c8b5838" + "4c8b6040" + "4c8b6848"

// epilogueHex rezeroes xmm15, drops the upper AVX state, and returns.
const epilogueHex = "c4410057ff" + "c5f877" + "c3"

func encodeOne(t *testing.T, build func(b *builder)) []byte {
	t.Helper()
	p := newProgram(Signature{D: 2, S: 1, Remainder: 8})
	b := &builder{p}
	build(b)
	b.ret()
	code, err := encode(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return code
}

func TestEncodeGolden(t *testing.T) {
	cases := []struct {
		name  string
		build func(b *builder)
		want  string // body hex between prologue and epilogue
	}{
		{
			"vmovups load",
			func(b *builder) { b.vmovupsLoad(2, Mem{Base: GpA}) },
			"c4e17c1017",
		},
		{
			"vmovups store disp8",
			func(b *builder) { b.vmovupsStore(Mem{Base: GpC, Disp: 32}, 6) },
			"c4e17c117220",
		},
		{
			"vpmaskmovd load",
			func(b *builder) { b.vmaskmovLoad(3, 12, Mem{Base: GpA}) },
			"c4e21d8c1f",
		},
		{
			"vpmaddubsw mem b",
			func(b *builder) { b.vpmaddubswLoad(2, 2, Mem{Base: GpB, Disp: 64}) },
			"c4e26d045640",
		},
		{
			"vpbroadcastd from r13 base",
			func(b *builder) { b.vpbroadcastd(6, Mem{Base: GpBZeroPoint}) },
			"c4c27d587500",
		},
		{
			"movq gp to vec",
			func(b *builder) { b.movq(10, GpAZeroPoint) },
			"c4c1f96ed4",
		},
		{
			"vextracti128",
			func(b *builder) { b.vextracti128(4, 9, 1) },
			"c4637d39cc01",
		},
		{
			"vperm2f128",
			func(b *builder) { b.vperm2f128(2, 6, 7, 0x31) },
			"c4e34d06d731",
		},
		{
			"vpsrlw imm",
			func(b *builder) { b.vpsrlw(14, 14, 15) },
			"c4c10d71d60f",
		},
		{
			"scalar mix",
			func(b *builder) {
				b.imul(GpW, GpCin)
				b.addImm(GpLoop, 31)
				b.sar(GpLoop, 5)
				b.dec(GpLoop)
			},
			"4d0fafca" + "4983c71f" + "49c1ff05" + "49ffcf",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			code := encodeOne(t, c.build)
			got := hex.EncodeToString(code)
			want := prologueHex + c.want + epilogueHex
			if got != want {
				t.Errorf("encoded %q\n     want %q", got, want)
			}
		})
	}
}

func TestEncodeBranches(t *testing.T) {
	p := newProgram(Signature{D: 2, S: 1, Remainder: 8})
	b := &builder{p}
	begin := b.newLabel()
	end := b.newLabel()
	b.bind(begin)
	b.dec(GpLoop)
	b.jle(end)
	b.jmp(begin)
	b.bind(end)
	b.ret()

	code, err := encode(p)
	if err != nil {
		t.Fatal(err)
	}
	got := hex.EncodeToString(code)
	// dec r15 (3 bytes), jle +5 (6 bytes), jmp -14 (5 bytes).
	want := prologueHex + "49ffcf" + "0f8e05000000" + "e9f2ffffff" + epilogueHex
	if got != want {
		t.Errorf("encoded %q\n     want %q", got, want)
	}
}

func TestEncodeRejectsByteMasks(t *testing.T) {
	_, err := encode(emit(Signature{D: 2, S: 3, Remainder: 17}))
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
}

func TestEncodeWholeProgram(t *testing.T) {
	// Dword-aligned remainders must encode cleanly end to end.
	for _, rem := range []int{4, 8, 20, 32} {
		sig := Signature{D: 2, S: 3, ComputeRowSum: true, Remainder: rem, TopSkip: 1}
		code, err := encode(emit(sig))
		if err != nil {
			t.Fatalf("remainder %d: %v", rem, err)
		}
		if !strings.HasSuffix(hex.EncodeToString(code), epilogueHex) {
			t.Fatalf("remainder %d: missing epilogue", rem)
		}
	}
}

func TestNativeManagerFallsBack(t *testing.T) {
	mgr := newNativeManager(portableManager{})
	k, err := mgr.Commit(emit(Signature{D: 2, S: 3, Remainder: 17}))
	if err != nil {
		t.Fatalf("fallback commit: %v", err)
	}
	if k == nil {
		t.Fatal("nil kernel")
	}
}

// TestNativeMatchesPortable executes generated machine code and is
// opt-in, like the backend itself.
func TestNativeMatchesPortable(t *testing.T) {
	if !NativeAvailable() || !envFlag("DW_NATIVE") {
		t.Skip("set DW_NATIVE on an AVX2 machine to run generated code")
	}

	sig := Signature{D: 2, S: 3, ComputeRowSum: true, Remainder: 8}
	native, err := newNativeManager(nil).Commit(emit(sig))
	if err != nil {
		t.Fatal(err)
	}
	portable, err := portableManager{}.Commit(emit(sig))
	if err != nil {
		t.Fatal(err)
	}

	rng := rand.New(rand.NewSource(42))
	cIn := 40
	h, w := 4, 5
	a := make([]uint8, h*w*cIn)
	for i := range a {
		a[i] = uint8(rng.Intn(100))
	}
	wts := make([]int8, 9*cIn)
	for i := range wts {
		wts[i] = int8(rng.Intn(128) - 64)
	}
	run := func(k Kernel) ([]int32, []int32) {
		c := make([]int32, cIn)
		asum := make([]int32, cIn)
		k(&Args{
			A: a, B: PackWeights(wts, 9, cIn), C: c, ASum: asum,
			H: h, W: w, CIn: cIn,
			Mask: MaskTable(), BZeroPoint: []int32{5},
		})
		return c, asum
	}
	nc, ns := run(native)
	pc, ps := run(portable)
	for i := range nc {
		if nc[i] != pc[i] {
			t.Fatalf("c[%d]: native %d, portable %d", i, nc[i], pc[i])
		}
		if ns[i] != ps[i] {
			t.Fatalf("a_sum[%d]: native %d, portable %d", i, ns[i], ps[i])
		}
	}
}
