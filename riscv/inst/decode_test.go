package inst_test

import (
	"testing"

	"github.com/sarchlab/rv32vm/riscv/inst"
)

func TestDecodeRoundTrip(t *testing.T) {
	cases := []inst.Instruction{
		{Kind: inst.KindArithImm, Dst: 5, Src: 6, Op: inst.OpAdd, Imm: 2047},
		{Kind: inst.KindArithImm, Dst: 5, Src: 6, Op: inst.OpAdd, Imm: -2048},
		{Kind: inst.KindArithImm, Dst: 1, Src: 0, Op: inst.OpAnd, Imm: 0xFF},
		{Kind: inst.KindArithImm, Dst: 2, Src: 3, Op: inst.OpSLL, Imm: 31},
		{Kind: inst.KindArithImm, Dst: 2, Src: 3, Op: inst.OpSRL, Imm: 7},
		{Kind: inst.KindArithImm, Dst: 2, Src: 3, Op: inst.OpSRA, Imm: 7},
		{Kind: inst.KindArith, Dst: 10, Src1: 11, Src2: 12, Op: inst.OpAdd},
		{Kind: inst.KindArith, Dst: 10, Src1: 11, Src2: 12, Op: inst.OpSub},
		{Kind: inst.KindArith, Dst: 10, Src1: 11, Src2: 12, Op: inst.OpSLT},
		{Kind: inst.KindArith, Dst: 10, Src1: 11, Src2: 12, Op: inst.OpSLTU},
		{Kind: inst.KindLoad, Dst: 5, Base: 2, Imm: 16, Width: inst.WidthWord},
		{Kind: inst.KindStore, Src: 5, Base: 2, ImmU: 0xFFFFFFF8, Width: inst.WidthWord},
		{Kind: inst.KindBranch, Src1: 1, Src2: 2, Cond: inst.CondEQ, Imm: 16},
		{Kind: inst.KindBranch, Src1: 1, Src2: 2, Cond: inst.CondLT, Imm: -16},
		{Kind: inst.KindJAL, Dst: 1, Imm: 2048},
		{Kind: inst.KindJALR, Dst: 1, Base: 2, Imm: -4},
		{Kind: inst.KindLUI, Dst: 5, ImmU: 0x7FFFF000},
		{Kind: inst.KindAUIPC, Dst: 5, ImmU: 0x1000},
	}

	for _, want := range cases {
		word, err := inst.Encode(want)
		if err != nil {
			t.Fatalf("Encode(%+v): %v", want, err)
		}
		got, err := inst.Decode(word)
		if err != nil {
			t.Fatalf("Decode(0x%08x) for %+v: %v", word, want, err)
		}
		if got != want {
			t.Fatalf("round trip mismatch: want %+v, got %+v (word=0x%08x)", want, got, word)
		}
	}
}

func TestDecodeUnknownOpcodeIsError(t *testing.T) {
	// opcode bits = 0b1111111 is not a recognized RV32I opcode.
	_, err := inst.Decode(0b1111111)
	if err == nil {
		t.Fatal("expected an error for an unrecognized opcode")
	}
	var invalid *inst.InvalidInstructionError
	if !asInvalid(err, &invalid) {
		t.Fatalf("expected *InvalidInstructionError, got %T", err)
	}
}

func asInvalid(err error, target **inst.InvalidInstructionError) bool {
	e, ok := err.(*inst.InvalidInstructionError)
	if ok {
		*target = e
	}
	return ok
}

func TestShiftAmountMaskedTo5Bits(t *testing.T) {
	// SRAI: shamt occupies bits 24..20 and bit 30 of the word is set as the
	// arithmetic-shift selector; the decoded amount must exclude that bit.
	word, err := inst.Encode(inst.Instruction{Kind: inst.KindArithImm, Dst: 1, Src: 1, Op: inst.OpSRA, Imm: 31})
	if err != nil {
		t.Fatal(err)
	}
	got, err := inst.Decode(word)
	if err != nil {
		t.Fatal(err)
	}
	if got.Imm != 31 {
		t.Fatalf("expected shift amount 31, got %d", got.Imm)
	}
}
