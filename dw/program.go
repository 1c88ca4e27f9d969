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
	"strings"
)

// Program is the ordered instruction stream of one kernel specialization.
// It is append-only during emission and immutable after freeze; committed
// kernels keep referencing it for the process lifetime.
type Program struct {
	Sig    Signature
	insts  []Inst
	labels int
	frozen bool
}

func newProgram(sig Signature) *Program {
	return &Program{Sig: sig}
}

// Insts returns the instruction stream. Callers must not modify it.
func (p *Program) Insts() []Inst {
	return p.insts
}

func (p *Program) append(i Inst) {
	if p.frozen {
		panic("dw: append to frozen program")
	}
	p.insts = append(p.insts, i)
}

func (p *Program) freeze() {
	p.frozen = true
}

// String renders an assembler-style listing.
func (p *Program) String() string {
	var sb strings.Builder
	for _, in := range p.insts {
		switch in.Op {
		case opLabel:
			fmt.Fprintf(&sb, "L%d:\n", in.Label)
			continue
		case opJLE, opJMP:
			fmt.Fprintf(&sb, "\t%s L%d\n", in.Op, in.Label)
			continue
		case opRet:
			sb.WriteString("\tret\n")
			continue
		}
		fmt.Fprintf(&sb, "\t%s %s\n", in.Op, operandString(in))
	}
	return sb.String()
}

func operandString(in Inst) string {
	mem := func(m Mem) string {
		if m.Disp == 0 {
			return fmt.Sprintf("[%s]", m.Base)
		}
		return fmt.Sprintf("[%s+%d]", m.Base, m.Disp)
	}
	switch in.Op {
	case opVMovUpsRR, opVMovApsRR, opVPBroadcastB, opVPAbsB:
		return fmt.Sprintf("%s, %s", in.Dst, in.Src1)
	case opVMovUpsLoad, opVPBroadcastD:
		return fmt.Sprintf("%s, %s", in.Dst, mem(in.M))
	case opVMovUpsStore:
		return fmt.Sprintf("%s, %s", mem(in.M), in.Src1)
	case opVMaskMovLoad:
		return fmt.Sprintf("%s, %s, %s", in.Dst, in.Src2, mem(in.M))
	case opVMaskMovStore:
		return fmt.Sprintf("%s, %s, %s", mem(in.M), in.Src2, in.Src1)
	case opMovQ:
		return fmt.Sprintf("%s, %s", in.Dst, in.GSrc)
	case opVPUnpckLBW, opVPUnpckHBW, opVPUnpckLWD, opVPUnpckHWD,
		opVPMAddUBSW, opVPMAddWD, opVPAddSW, opVPAddD, opVPMullD,
		opVXorPs, opVPCmpEqW:
		return fmt.Sprintf("%s, %s, %s", in.Dst, in.Src1, in.Src2)
	case opVPMAddUBSWLoad:
		return fmt.Sprintf("%s, %s, %s", in.Dst, in.Src1, mem(in.M))
	case opVPMovSXWD:
		return fmt.Sprintf("%s, %s", in.Dst, in.Src1)
	case opVExtractI128:
		return fmt.Sprintf("%s, %s, %d", in.Dst, in.Src1, in.Imm)
	case opVPerm2F128:
		return fmt.Sprintf("%s, %s, %s, %#02x", in.Dst, in.Src1, in.Src2, in.Imm)
	case opVPSrlWImm:
		return fmt.Sprintf("%s, %s, %d", in.Dst, in.Src1, in.Imm)
	case opMovGG, opAddGG, opSubGG, opIMulGG:
		return fmt.Sprintf("%s, %s", in.GDst, in.GSrc)
	case opAddGImm, opIMulGImm, opSarGImm:
		return fmt.Sprintf("%s, %d", in.GDst, in.Imm)
	case opDecG:
		return in.GDst.String()
	}
	return "?"
}

// builder appends instructions to a program. Method names mirror the
// mnemonics so the emission code reads like the assembly it produces.
type builder struct {
	p *Program
}

func (b *builder) newLabel() int {
	l := b.p.labels
	b.p.labels++
	return l
}

func (b *builder) bind(label int) {
	b.p.append(Inst{Op: opLabel, Label: label})
}

func (b *builder) vmovups(dst, src VReg) {
	b.p.append(Inst{Op: opVMovUpsRR, Dst: dst, Src1: src})
}

func (b *builder) vmovaps(dst, src VReg) {
	b.p.append(Inst{Op: opVMovApsRR, Dst: dst, Src1: src})
}

func (b *builder) vmovupsLoad(dst VReg, m Mem) {
	b.p.append(Inst{Op: opVMovUpsLoad, Dst: dst, M: m})
}

func (b *builder) vmovupsStore(m Mem, src VReg) {
	b.p.append(Inst{Op: opVMovUpsStore, Src1: src, M: m})
}

func (b *builder) vmaskmovLoad(dst, mask VReg, m Mem) {
	b.p.append(Inst{Op: opVMaskMovLoad, Dst: dst, Src2: mask, M: m})
}

func (b *builder) vmaskmovStore(m Mem, mask, src VReg) {
	b.p.append(Inst{Op: opVMaskMovStore, Src1: src, Src2: mask, M: m})
}

func (b *builder) vpbroadcastb(dst, src VReg) {
	b.p.append(Inst{Op: opVPBroadcastB, Dst: dst, Src1: src})
}

func (b *builder) vpbroadcastd(dst VReg, m Mem) {
	b.p.append(Inst{Op: opVPBroadcastD, Dst: dst, M: m})
}

func (b *builder) movq(dst VReg, src GReg) {
	b.p.append(Inst{Op: opMovQ, Dst: dst, GSrc: src})
}

func (b *builder) vpunpcklbw(dst, a, c VReg) {
	b.p.append(Inst{Op: opVPUnpckLBW, Dst: dst, Src1: a, Src2: c})
}

func (b *builder) vpunpckhbw(dst, a, c VReg) {
	b.p.append(Inst{Op: opVPUnpckHBW, Dst: dst, Src1: a, Src2: c})
}

func (b *builder) vpunpcklwd(dst, a, c VReg) {
	b.p.append(Inst{Op: opVPUnpckLWD, Dst: dst, Src1: a, Src2: c})
}

func (b *builder) vpunpckhwd(dst, a, c VReg) {
	b.p.append(Inst{Op: opVPUnpckHWD, Dst: dst, Src1: a, Src2: c})
}

func (b *builder) vpmaddubsw(dst, a, c VReg) {
	b.p.append(Inst{Op: opVPMAddUBSW, Dst: dst, Src1: a, Src2: c})
}

func (b *builder) vpmaddubswLoad(dst, a VReg, m Mem) {
	b.p.append(Inst{Op: opVPMAddUBSWLoad, Dst: dst, Src1: a, M: m})
}

func (b *builder) vpmaddwd(dst, a, c VReg) {
	b.p.append(Inst{Op: opVPMAddWD, Dst: dst, Src1: a, Src2: c})
}

func (b *builder) vpaddsw(dst, a, c VReg) {
	b.p.append(Inst{Op: opVPAddSW, Dst: dst, Src1: a, Src2: c})
}

func (b *builder) vpaddd(dst, a, c VReg) {
	b.p.append(Inst{Op: opVPAddD, Dst: dst, Src1: a, Src2: c})
}

func (b *builder) vpmulld(dst, a, c VReg) {
	b.p.append(Inst{Op: opVPMullD, Dst: dst, Src1: a, Src2: c})
}

func (b *builder) vpmovsxwd(dst, src VReg) {
	b.p.append(Inst{Op: opVPMovSXWD, Dst: dst, Src1: src})
}

func (b *builder) vextracti128(dst, src VReg, lane int32) {
	b.p.append(Inst{Op: opVExtractI128, Dst: dst, Src1: src, Imm: lane})
}

func (b *builder) vperm2f128(dst, a, c VReg, imm int32) {
	b.p.append(Inst{Op: opVPerm2F128, Dst: dst, Src1: a, Src2: c, Imm: imm})
}

func (b *builder) vxorps(dst, a, c VReg) {
	b.p.append(Inst{Op: opVXorPs, Dst: dst, Src1: a, Src2: c})
}

func (b *builder) vpcmpeqw(dst, a, c VReg) {
	b.p.append(Inst{Op: opVPCmpEqW, Dst: dst, Src1: a, Src2: c})
}

func (b *builder) vpabsb(dst, src VReg) {
	b.p.append(Inst{Op: opVPAbsB, Dst: dst, Src1: src})
}

func (b *builder) vpsrlw(dst, src VReg, imm int32) {
	b.p.append(Inst{Op: opVPSrlWImm, Dst: dst, Src1: src, Imm: imm})
}

func (b *builder) mov(dst, src GReg) {
	b.p.append(Inst{Op: opMovGG, GDst: dst, GSrc: src})
}

func (b *builder) add(dst, src GReg) {
	b.p.append(Inst{Op: opAddGG, GDst: dst, GSrc: src})
}

func (b *builder) addImm(dst GReg, imm int32) {
	b.p.append(Inst{Op: opAddGImm, GDst: dst, Imm: imm})
}

func (b *builder) sub(dst, src GReg) {
	b.p.append(Inst{Op: opSubGG, GDst: dst, GSrc: src})
}

func (b *builder) imul(dst, src GReg) {
	b.p.append(Inst{Op: opIMulGG, GDst: dst, GSrc: src})
}

func (b *builder) imulImm(dst GReg, imm int32) {
	b.p.append(Inst{Op: opIMulGImm, GDst: dst, Imm: imm})
}

func (b *builder) sar(dst GReg, imm int32) {
	b.p.append(Inst{Op: opSarGImm, GDst: dst, Imm: imm})
}

func (b *builder) dec(dst GReg) {
	b.p.append(Inst{Op: opDecG, GDst: dst})
}

func (b *builder) jle(label int) {
	b.p.append(Inst{Op: opJLE, Label: label})
}

func (b *builder) jmp(label int) {
	b.p.append(Inst{Op: opJMP, Label: label})
}

func (b *builder) ret() {
	b.p.append(Inst{Op: opRet})
}
