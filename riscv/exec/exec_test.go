package exec_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32vm/riscv/exec"
	"github.com/sarchlab/rv32vm/riscv/inst"
	"github.com/sarchlab/rv32vm/riscv/machine"
)

// ret is jalr x0, ra, 0 — since ra starts at zero, this jumps to pc=0
// which is this VM's halt condition (spec.md §4.5/§9), the same "return
// through a zeroed ra" pattern the original assumes.
var ret = inst.Instruction{Kind: inst.KindJALR, Dst: 0, Base: 1, Imm: 0}

const programBase = 0x1000

// assemble loads instrs at programBase, appends ret, and returns a ready
// Executor — the hand-assembled-bytes-over-a-buffer pattern
// emu/validation_test.go uses, adapted to build RV32I words via inst.Encode
// instead of writing ARM64 bytes directly.
func assemble(instrs ...inst.Instruction) *exec.Executor {
	mem := machine.NewMemory()
	addr := uint32(programBase)
	for _, ins := range append(append([]inst.Instruction{}, instrs...), ret) {
		word, err := inst.Encode(ins)
		Expect(err).NotTo(HaveOccurred())
		mem.Write(addr, word)
		addr += 4
	}
	m := machine.New(machine.WithMemory(mem))
	return exec.New(m, programBase, exec.WithMaxSteps(10000))
}

func addi(dst, src uint8, imm int32) inst.Instruction {
	return inst.Instruction{Kind: inst.KindArithImm, Dst: dst, Src: src, Op: inst.OpAdd, Imm: imm}
}

func arith(op inst.ArithOp, dst, s1, s2 uint8) inst.Instruction {
	return inst.Instruction{Kind: inst.KindArith, Dst: dst, Src1: s1, Src2: s2, Op: op}
}

var _ = Describe("end-to-end scenarios (spec.md §8)", func() {
	It("addi a0, zero, 1; ret -> (1, 0)", func() {
		e := assemble(addi(10, 0, 1))
		ret, _, err := e.Run()
		Expect(err).NotTo(HaveOccurred())
		Expect(ret.A0).To(Equal(int32(1)))
		Expect(ret.A1).To(Equal(int32(0)))
	})

	It("addi a0, zero, -2048; ret -> (-2048, 0)", func() {
		e := assemble(addi(10, 0, -2048))
		ret, _, err := e.Run()
		Expect(err).NotTo(HaveOccurred())
		Expect(ret.A0).To(Equal(int32(-2048)))
	})

	It("addi t0,zero,10; addi t1,zero,20; add a0,t0,t1; ret -> (30, 0)", func() {
		e := assemble(
			addi(5, 0, 10),
			addi(6, 0, 20),
			arith(inst.OpAdd, 10, 5, 6),
		)
		ret, _, err := e.Run()
		Expect(err).NotTo(HaveOccurred())
		Expect(ret.A0).To(Equal(int32(30)))
	})

	It("lui+addi building i32::MAX then +1 wraps to i32::MIN", func() {
		e := assemble(
			inst.Instruction{Kind: inst.KindLUI, Dst: 5, ImmU: 0x80000000},
			addi(5, 5, -1), // x5 = 0x7FFFFFFF
			addi(10, 5, 1),
		)
		ret, _, err := e.Run()
		Expect(err).NotTo(HaveOccurred())
		Expect(ret.A0).To(Equal(int32(math.MinInt32)))
	})

	It("andi a0, a0, 0xFFF with a0 = 0xFFFFFFFF -> 0xFFFFFFFF (imm sign-extends to -1)", func() {
		e := assemble(
			addi(10, 0, -1), // a0 = 0xFFFFFFFF
			inst.Instruction{Kind: inst.KindArithImm, Dst: 10, Src: 10, Op: inst.OpAnd, Imm: 0xFFF},
		)
		ret, _, err := e.Run()
		Expect(err).NotTo(HaveOccurred())
		Expect(ret.A0).To(Equal(int32(-1)))
	})

	It("ori a0,zero,5; ori a0,a0,2 -> 7", func() {
		e := assemble(
			inst.Instruction{Kind: inst.KindArithImm, Dst: 10, Src: 0, Op: inst.OpOr, Imm: 5},
			inst.Instruction{Kind: inst.KindArithImm, Dst: 10, Src: 10, Op: inst.OpOr, Imm: 2},
		)
		ret, _, err := e.Run()
		Expect(err).NotTo(HaveOccurred())
		Expect(ret.A0).To(Equal(int32(7)))
	})
})

var _ = Describe("boundary behaviors (spec.md §8)", func() {
	It("Add of i32::MAX + 1 wraps to i32::MIN", func() {
		e := assemble(
			inst.Instruction{Kind: inst.KindLUI, Dst: 5, ImmU: 0x80000000},
			addi(5, 5, -1), // x5 = i32::MAX
			addi(6, 0, 1),
			arith(inst.OpAdd, 10, 5, 6),
		)
		ret, _, err := e.Run()
		Expect(err).NotTo(HaveOccurred())
		Expect(ret.A0).To(Equal(int32(math.MinInt32)))
	})

	It("Add of i32::MIN + (-1) wraps to i32::MAX", func() {
		e := assemble(
			inst.Instruction{Kind: inst.KindLUI, Dst: 5, ImmU: 0x80000000},
			addi(6, 0, -1),
			arith(inst.OpAdd, 10, 5, 6),
		)
		ret, _, err := e.Run()
		Expect(err).NotTo(HaveOccurred())
		Expect(ret.A0).To(Equal(int32(math.MaxInt32)))
	})

	It("SetLessThanU(-1, 1) = 0, SetLessThan(-1, 1) = 1", func() {
		e := assemble(
			addi(5, 0, -1),
			addi(6, 0, 1),
			arith(inst.OpSLTU, 10, 5, 6),
			arith(inst.OpSLT, 11, 5, 6),
		)
		ret, _, err := e.Run()
		Expect(err).NotTo(HaveOccurred())
		Expect(ret.A0).To(Equal(int32(0)))
		Expect(ret.A1).To(Equal(int32(1)))
	})

	It("ShiftLeftLogical(0xFFFFFFFF, 31) = 0x80000000", func() {
		e := assemble(
			addi(5, 0, -1),
			inst.Instruction{Kind: inst.KindArithImm, Dst: 10, Src: 5, Op: inst.OpSLL, Imm: 31},
		)
		ret, _, err := e.Run()
		Expect(err).NotTo(HaveOccurred())
		Expect(uint32(ret.A0)).To(Equal(uint32(0x80000000)))
	})

	It("ShiftRightLogical(0xFFFFFFFF, 28) = 0x0000000F", func() {
		e := assemble(
			addi(5, 0, -1),
			inst.Instruction{Kind: inst.KindArithImm, Dst: 10, Src: 5, Op: inst.OpSRL, Imm: 28},
		)
		ret, _, err := e.Run()
		Expect(err).NotTo(HaveOccurred())
		Expect(ret.A0).To(Equal(int32(0x0000000F)))
	})
})

var _ = Describe("invariants (spec.md §8)", func() {
	It("register 0 is zero after every instruction, even when targeted", func() {
		e := assemble(addi(0, 0, 42), addi(10, 0, 0))
		ret, log, err := e.Run()
		Expect(err).NotTo(HaveOccurred())
		Expect(log).NotTo(BeEmpty())
		// The write is logged (per spec.md's Execution log entry
		// definition) but must not have mutated state: copying x0 into a0
		// afterwards still yields 0. A direct write-then-read check is
		// TestRegisterZeroIsHardwired in riscv/machine.
		Expect(ret.A0).To(Equal(int32(0)))
		first := log[0]
		Expect(first.UpdatedRegisterIndex).To(Equal(uint8(0)))
		Expect(first.WroteRegister).To(BeTrue())
	})
})

var _ = Describe("memory and control flow", func() {
	It("stores then loads a word round-trip", func() {
		e := assemble(
			addi(5, 0, 100), // x5 = 100 (value)
			addi(6, 0, 0),   // x6 = base (sp-independent: use x0 relative via explicit addr)
			inst.Instruction{Kind: inst.KindStore, Src: 5, Base: 6, ImmU: 64, Width: inst.WidthWord},
			inst.Instruction{Kind: inst.KindLoad, Dst: 10, Base: 6, Imm: 64, Width: inst.WidthWord},
		)
		ret, _, err := e.Run()
		Expect(err).NotTo(HaveOccurred())
		Expect(ret.A0).To(Equal(int32(100)))
	})

	It("unmapped load is a fatal error", func() {
		e := assemble(
			addi(6, 0, 0),
			inst.Instruction{Kind: inst.KindLoad, Dst: 10, Base: 6, Imm: 0x7FF0, Width: inst.WidthWord},
		)
		_, _, err := e.Run()
		Expect(err).To(HaveOccurred())
	})

	It("sub-word widths are unimplemented", func() {
		e := assemble(
			addi(6, 0, 0),
			inst.Instruction{Kind: inst.KindLoad, Dst: 10, Base: 6, Imm: 0, Width: inst.WidthByte},
		)
		_, _, err := e.Run()
		Expect(err).To(HaveOccurred())
	})

	It("branch taken skips to the target", func() {
		e := assemble(
			addi(5, 0, 1),
			addi(6, 0, 1),
			inst.Instruction{Kind: inst.KindBranch, Src1: 5, Src2: 6, Cond: inst.CondEQ, Imm: 8}, // skip next addi
			addi(10, 0, 999),                                                                      // skipped
			addi(10, 0, 7),
		)
		ret, _, err := e.Run()
		Expect(err).NotTo(HaveOccurred())
		Expect(ret.A0).To(Equal(int32(7)))
	})
})
