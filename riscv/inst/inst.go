// Package inst defines the RV32I instruction model and the decoder that
// maps a 32-bit word to it.
package inst

// Kind discriminates the instruction variants this VM supports.
type Kind uint8

// Instruction variants.
const (
	KindArithImm Kind = iota
	KindArith
	KindLoad
	KindStore
	KindBranch
	KindJAL
	KindJALR
	KindLUI
	KindAUIPC
)

func (k Kind) String() string {
	switch k {
	case KindArithImm:
		return "ArithImm"
	case KindArith:
		return "Arith"
	case KindLoad:
		return "Load"
	case KindStore:
		return "Store"
	case KindBranch:
		return "Branch"
	case KindJAL:
		return "JumpAndLink"
	case KindJALR:
		return "JumpAndLinkRegister"
	case KindLUI:
		return "LoadUpperImm"
	case KindAUIPC:
		return "AddUpperImmToPc"
	default:
		return "Unknown"
	}
}

// ArithOp is the ALU operation carried by ArithImm and Arith instructions.
type ArithOp uint8

// Arithmetic/logic operations.
const (
	OpAdd ArithOp = iota
	OpSub
	OpXor
	OpOr
	OpAnd
	OpSLL
	OpSRL
	OpSRA
	OpSLT
	OpSLTU
)

// Width is the access width of a Load or Store.
type Width uint8

// Access widths. Only WidthWord is implemented by the executor; Byte and
// Half decode successfully (the encoding exists in RV32I) but executing
// them fails with *exec.UnimplementedWidthError.
const (
	WidthByte Width = iota
	WidthHalf
	WidthWord
)

// BranchCond is the comparison carried by a Branch instruction.
type BranchCond uint8

// Branch conditions.
const (
	CondEQ BranchCond = iota
	CondNE
	CondLT
	CondGE
	CondLTU
	CondGEU
)

// Instruction is a decoded RV32I instruction. Only the fields relevant to
// Kind are meaningful; the rest are zero. This flat-struct-plus-discriminant
// shape keeps decode/execute dispatch a single switch on Kind instead of a
// type-per-variant hierarchy.
type Instruction struct {
	Kind Kind

	Dst, Src, Src1, Src2, Base uint8 // register indices, 0..31

	Imm  int32  // ArithImm/Load offset, Branch/JAL/JALR offset
	ImmU uint32 // Store offset, LUI/AUIPC immediate (already shifted into bits 31..12)

	Op    ArithOp
	Width Width
	Cond  BranchCond
}
