// Package trace builds the CPU AIR's fixed 54-column trace table from an
// executed instruction sequence, per spec.md §3/§4.6.
package trace

import (
	"github.com/sarchlab/rv32vm/riscv/exec"
	"github.com/sarchlab/rv32vm/riscv/inst"
)

// Width is the number of columns in a CPU trace row.
const Width = 54

// Column indices, named per spec.md §3's table.
const (
	ColTimestampLo = 0
	ColTimestampHi = 1
	ColPCLo        = 2
	ColPCHi        = 3
	ColRS1         = 4
	ColRS2         = 5
	ColRD          = 6
	ColWriteReg    = 7
	ColMemGE2      = 8
	ColMemEq4      = 9
	ColImmLo       = 10
	ColImmHi       = 11
	ColSigned      = 12
	ColMPSelector  = 13
	ColMulDivSel   = 14

	// One-hot instruction flags, cols 15..31.
	ColADD    = 15
	ColSUB    = 16
	ColSLT    = 17
	ColAND    = 18
	ColOR     = 19
	ColXOR    = 20
	ColSL     = 21
	ColSR     = 22
	ColJALR   = 23
	ColBEQ    = 24
	ColBLT    = 25
	ColLOAD   = 26
	ColSTORE  = 27
	ColMUL    = 28
	ColDIVREM = 29
	ColECALL  = 30
	ColEBREAK = 31

	ColNextPCLo = 32
	ColNextPCHi = 33

	ColRV1B0 = 34
	ColRV1B1 = 35
	ColRV1B2 = 36
	ColRV1B3 = 37

	ColRV2B0 = 38
	ColRV2B1 = 39
	ColRV2B2 = 40
	ColRV2B3 = 41

	ColRVDLo = 42
	ColRVDHi = 43

	ColArg2B0 = 44
	ColArg2B1 = 45
	ColArg2B2 = 46
	ColArg2B3 = 47

	ColResB0 = 48
	ColResB1 = 49
	ColResB2 = 50
	ColResB3 = 51

	ColIsEqual    = 52
	ColBranchCond = 53
)

// Row is one 54-column trace row. Field elements are kept as plain uint64
// here (air/field reduces them on evaluation); this keeps the builder free
// of any field dependency, matching spec.md §4.6's description of it as a
// pure function from steps to columns.
type Row [Width]uint64

func limb16(v uint32) (lo, hi uint64) {
	return uint64(v & 0xFFFF), uint64(v >> 16)
}

func limbs4x8(v uint32) [4]uint64 {
	return [4]uint64{
		uint64(v & 0xFF),
		uint64((v >> 8) & 0xFF),
		uint64((v >> 16) & 0xFF),
		uint64((v >> 24) & 0xFF),
	}
}

func bit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// Build populates one trace row per log entry, in order. The caller is
// responsible for padding the result to a power-of-two length with Pad
// before handing it to an AIR (spec.md §4.6).
func Build(log []exec.LogEntry) []Row {
	rows := make([]Row, len(log))
	for i, e := range log {
		rows[i] = buildRow(uint64(i), e)
	}
	return rows
}

// Pad appends neutral (all-zero) rows until length n, n assumed to already
// be the caller's chosen power of two.
func Pad(rows []Row, n int) []Row {
	if len(rows) >= n {
		return rows
	}
	out := make([]Row, n)
	copy(out, rows)
	return out
}

func buildRow(timestamp uint64, e exec.LogEntry) Row {
	var row Row

	row[ColTimestampLo] = timestamp & 0xFFFF
	row[ColTimestampHi] = timestamp >> 16

	pcLo, pcHi := limb16(e.PC)
	row[ColPCLo], row[ColPCHi] = pcLo, pcHi
	nextLo, nextHi := limb16(e.NextPC)
	row[ColNextPCLo], row[ColNextPCHi] = nextLo, nextHi

	ins := e.Instruction
	row[ColRS1] = uint64(regOrZero(ins))
	row[ColRS2] = uint64(reg2OrZero(ins))
	row[ColRD] = uint64(e.UpdatedRegisterIndex)
	row[ColWriteReg] = bit(e.WroteRegister)

	isLoad := ins.Kind == inst.KindLoad
	isStore := ins.Kind == inst.KindStore
	isMem := isLoad || isStore
	row[ColMemGE2] = bit(isMem && ins.Width != inst.WidthByte)
	row[ColMemEq4] = bit(isMem && ins.Width == inst.WidthWord)

	imm := immediateValue(ins)
	immLo, immHi := limb16(imm)
	row[ColImmLo], row[ColImmHi] = immLo, immHi

	row[ColSigned] = bit(isSigned(ins))

	setOneHot(&row, ins)

	rv1b := limbs4x8(e.RV1)
	rv2b := limbs4x8(e.RV2)
	for i := 0; i < 4; i++ {
		row[ColRV1B0+i] = rv1b[i]
		row[ColRV2B0+i] = rv2b[i]
	}

	rvdLo, rvdHi := limb16(e.UpdatedRegisterValue)
	row[ColRVDLo], row[ColRVDHi] = rvdLo, rvdHi

	arg2 := arg2Value(ins, e)
	arg2b := limbs4x8(arg2)
	for i := 0; i < 4; i++ {
		row[ColArg2B0+i] = arg2b[i]
	}

	res := resultValue(ins, e)
	resb := limbs4x8(res)
	for i := 0; i < 4; i++ {
		row[ColResB0+i] = resb[i]
	}

	row[ColIsEqual] = bit(e.RV1 == arg2)
	row[ColBranchCond] = bit(e.BranchTaken)

	return row
}

func regOrZero(i inst.Instruction) uint8 {
	switch i.Kind {
	case inst.KindArithImm, inst.KindLoad:
		return i.Src
	case inst.KindArith, inst.KindBranch:
		return i.Src1
	case inst.KindStore:
		return i.Base
	case inst.KindJALR:
		return i.Base
	default:
		return 0
	}
}

func reg2OrZero(i inst.Instruction) uint8 {
	switch i.Kind {
	case inst.KindArith, inst.KindBranch:
		return i.Src2
	case inst.KindStore:
		return i.Src
	default:
		return 0
	}
}

// immediateValue returns the raw 32-bit immediate field for columns
// 10-11, using the two's-complement bit pattern for signed immediates.
func immediateValue(i inst.Instruction) uint32 {
	switch i.Kind {
	case inst.KindArithImm, inst.KindLoad, inst.KindBranch, inst.KindJAL, inst.KindJALR:
		return uint32(i.Imm)
	case inst.KindStore, inst.KindLUI, inst.KindAUIPC:
		return i.ImmU
	default:
		return 0
	}
}

func isSigned(i inst.Instruction) bool {
	switch i.Kind {
	case inst.KindArithImm, inst.KindArith:
		switch i.Op {
		case inst.OpSRA, inst.OpSLT:
			return true
		}
		return false
	case inst.KindBranch:
		switch i.Cond {
		case inst.CondLT, inst.CondGE:
			return true
		}
		return false
	default:
		return false
	}
}

// arg2Value is the ALU right operand: the immediate for ArithImm/Load/
// Store, otherwise rv2 (spec.md §4.6).
func arg2Value(i inst.Instruction, e exec.LogEntry) uint32 {
	switch i.Kind {
	case inst.KindArithImm:
		return uint32(i.Imm)
	case inst.KindLoad:
		return uint32(i.Imm)
	case inst.KindStore:
		return i.ImmU
	default:
		return e.RV2
	}
}

// resultValue is the true 32-bit ALU output for this row, not sign
// extended (spec.md §4.6). For Load/Store this is the computed effective
// address (base+offset): the add-carry constraint checks rv1+arg2 against
// res wherever LOAD/STORE gate it (air.go's addFlags), and the
// loaded/stored value itself lives in rvd (cols 42-43), not res. For an
// equality branch (the BEQ flag) it is the difference rv1 - rv2, which the
// sub-carry constraint checks as res + arg2 = rv1.
func resultValue(i inst.Instruction, e exec.LogEntry) uint32 {
	switch i.Kind {
	case inst.KindArithImm, inst.KindArith, inst.KindLUI, inst.KindAUIPC:
		return e.UpdatedRegisterValue
	case inst.KindLoad, inst.KindStore:
		return e.RV1 + arg2Value(i, e)
	case inst.KindBranch:
		if i.Cond == inst.CondEQ || i.Cond == inst.CondNE {
			return e.RV1 - e.RV2
		}
		return 0
	case inst.KindJAL, inst.KindJALR:
		return e.UpdatedRegisterValue
	default:
		return 0
	}
}

func setOneHot(row *Row, i inst.Instruction) {
	switch i.Kind {
	case inst.KindArith, inst.KindArithImm:
		switch i.Op {
		case inst.OpAdd:
			row[ColADD] = 1
		case inst.OpSub:
			row[ColSUB] = 1
		case inst.OpSLT, inst.OpSLTU:
			row[ColSLT] = 1
		case inst.OpAnd:
			row[ColAND] = 1
		case inst.OpOr:
			row[ColOR] = 1
		case inst.OpXor:
			row[ColXOR] = 1
		case inst.OpSLL:
			row[ColSL] = 1
		case inst.OpSRL, inst.OpSRA:
			row[ColSR] = 1
		}
	case inst.KindJALR:
		row[ColJALR] = 1
	case inst.KindBranch:
		switch i.Cond {
		case inst.CondEQ, inst.CondNE:
			row[ColBEQ] = 1
		default:
			row[ColBLT] = 1
		}
	case inst.KindLoad:
		row[ColLOAD] = 1
	case inst.KindStore:
		row[ColSTORE] = 1
	}
}
