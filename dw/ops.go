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

// Op is a virtual machine operation. The set mirrors the AVX2 instructions
// a depthwise kernel needs, with one extension: the masked load and store
// are byte-granular and fault-suppressing on masked-off lanes (AVX2 proper
// only masks at dword granularity; backends that cannot express byte masks
// reject the affected programs instead of approximating them).
type Op uint8

const (
	opInvalid Op = iota

	// Vector moves.
	opVMovUpsRR     // Dst = Src1
	opVMovApsRR     // Dst = Src1
	opVMovUpsLoad   // Dst = [M]
	opVMovUpsStore  // [M] = Src1
	opVMaskMovLoad  // Dst = [M] under byte mask Src2; masked-off lanes zero
	opVMaskMovStore // [M] = Src1 under byte mask Src2
	opVPBroadcastB  // Dst = broadcast byte 0 of Src1
	opVPBroadcastD  // Dst = broadcast dword [M]
	opMovQ          // Dst low quadword = GSrc, upper bytes zero

	// Integer SIMD.
	opVPUnpckLBW // Dst = interleave low bytes of Src1, Src2 per 128-bit lane
	opVPUnpckHBW
	opVPUnpckLWD
	opVPUnpckHWD
	opVPMAddUBSW     // Dst = saturating u8*s8 pairwise madd of Src1, Src2
	opVPMAddUBSWLoad // Dst = saturating u8*s8 pairwise madd of Src1, [M]
	opVPMAddWD       // Dst = s16 pairwise madd of Src1, Src2 into s32
	opVPAddSW        // Dst = saturating s16 add
	opVPAddD         // Dst = wrapping s32 add
	opVPMullD        // Dst = low s32 multiply
	opVPMovSXWD      // Dst = sign-extend the low 8 words of Src1 to dwords
	opVExtractI128   // Dst = 128-bit lane Imm of Src1, upper lane zero
	opVPerm2F128     // Dst = lanes of Src1/Src2 selected by Imm
	opVXorPs         // Dst = Src1 ^ Src2
	opVPCmpEqW       // Dst = word equality mask of Src1, Src2
	opVPAbsB         // Dst = per-byte absolute value of Src1
	opVPSrlWImm      // Dst = Src1 words logically shifted right by Imm

	// Scalar.
	opMovGG    // GDst = GSrc
	opAddGG    // GDst += GSrc
	opAddGImm  // GDst += Imm
	opSubGG    // GDst -= GSrc
	opIMulGG   // GDst *= GSrc
	opIMulGImm // GDst *= Imm
	opSarGImm  // GDst >>= Imm (arithmetic)
	opDecG     // GDst--; sets the condition consumed by jle

	// Control.
	opLabel
	opJLE // jump to Label if the last opDecG result was <= 0
	opJMP
	opRet
)

var opNames = [...]string{
	opInvalid:        "invalid",
	opVMovUpsRR:      "vmovups",
	opVMovApsRR:      "vmovaps",
	opVMovUpsLoad:    "vmovups",
	opVMovUpsStore:   "vmovups",
	opVMaskMovLoad:   "vmaskmovb",
	opVMaskMovStore:  "vmaskmovb",
	opVPBroadcastB:   "vpbroadcastb",
	opVPBroadcastD:   "vpbroadcastd",
	opMovQ:           "movq",
	opVPUnpckLBW:     "vpunpcklbw",
	opVPUnpckHBW:     "vpunpckhbw",
	opVPUnpckLWD:     "vpunpcklwd",
	opVPUnpckHWD:     "vpunpckhwd",
	opVPMAddUBSW:     "vpmaddubsw",
	opVPMAddUBSWLoad: "vpmaddubsw",
	opVPMAddWD:       "vpmaddwd",
	opVPAddSW:        "vpaddsw",
	opVPAddD:         "vpaddd",
	opVPMullD:        "vpmulld",
	opVPMovSXWD:      "vpmovsxwd",
	opVExtractI128:   "vextracti128",
	opVPerm2F128:     "vperm2f128",
	opVXorPs:         "vxorps",
	opVPCmpEqW:       "vpcmpeqw",
	opVPAbsB:         "vpabsb",
	opVPSrlWImm:      "vpsrlw",
	opMovGG:          "mov",
	opAddGG:          "add",
	opAddGImm:        "add",
	opSubGG:          "sub",
	opIMulGG:         "imul",
	opIMulGImm:       "imul",
	opSarGImm:        "sar",
	opDecG:           "dec",
	opLabel:          "label",
	opJLE:            "jle",
	opJMP:            "jmp",
	opRet:            "ret",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "op?"
}

// Mem is a base-plus-displacement memory reference.
type Mem struct {
	Base GReg
	Disp int32
}

// Inst is one emitted operation. Field usage depends on Op; unused fields
// are zero.
type Inst struct {
	Op         Op
	Dst        VReg
	Src1, Src2 VReg
	GDst, GSrc GReg
	M          Mem
	Imm        int32
	Label      int
}
