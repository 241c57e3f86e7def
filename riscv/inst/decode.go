package inst

import "fmt"

// Opcodes recognized by the decoder (low 7 bits of the instruction word).
const (
	opcodeR      = 0b0110011 // register-register arithmetic
	opcodeIArith = 0b0010011 // register-immediate arithmetic
	opcodeILoad  = 0b0000011
	opcodeIJALR  = 0b1100111
	opcodeS      = 0b0100011
	opcodeB      = 0b1100011
	opcodeJ      = 0b1101111
	opcodeLUI    = 0b0110111
	opcodeAUIPC  = 0b0010111
)

// InvalidInstructionError reports a word that does not decode to any
// recognized RV32I instruction.
type InvalidInstructionError struct {
	Word uint32
}

func (e *InvalidInstructionError) Error() string {
	return fmt.Sprintf("inst: invalid instruction word 0x%08x", e.Word)
}

func bits(word uint32, hi, lo uint) uint32 {
	mask := uint32(1)<<(hi-lo+1) - 1
	return (word >> lo) & mask
}

func signExtend(value uint32, signBit uint) int32 {
	shift := 31 - signBit
	return int32(value<<shift) >> shift
}

// Decode maps a 32-bit little-endian-loaded instruction word to its
// Instruction. It never panics: unknown encodings return
// *InvalidInstructionError.
func Decode(word uint32) (Instruction, error) {
	opcode := bits(word, 6, 0)
	funct3 := bits(word, 14, 12)
	funct7 := bits(word, 31, 25)
	rs1 := uint8(bits(word, 19, 15))
	rs2 := uint8(bits(word, 24, 20))
	rd := uint8(bits(word, 11, 7))

	switch opcode {
	case opcodeR:
		op, ok := arithOpR(funct3, funct7)
		if !ok {
			return Instruction{}, &InvalidInstructionError{Word: word}
		}
		return Instruction{Kind: KindArith, Dst: rd, Src1: rs1, Src2: rs2, Op: op}, nil

	case opcodeIArith:
		imm := signExtend(bits(word, 31, 20), 11)
		if funct3 == 0b001 || funct3 == 0b101 {
			// Shift amount is the low 5 bits; bit 30 selects arithmetic
			// vs logical right shift. Normalized here, per spec.md §4.1,
			// so the executor never has to re-mask it.
			shamt := int32(bits(word, 24, 20))
			op, ok := shiftOpI(funct3, bits(word, 30, 30))
			if !ok {
				return Instruction{}, &InvalidInstructionError{Word: word}
			}
			return Instruction{Kind: KindArithImm, Dst: rd, Src: rs1, Imm: shamt, Op: op}, nil
		}
		op, ok := arithOpI(funct3)
		if !ok {
			return Instruction{}, &InvalidInstructionError{Word: word}
		}
		return Instruction{Kind: KindArithImm, Dst: rd, Src: rs1, Imm: imm, Op: op}, nil

	case opcodeILoad:
		width, ok := loadWidth(funct3)
		if !ok {
			return Instruction{}, &InvalidInstructionError{Word: word}
		}
		imm := signExtend(bits(word, 31, 20), 11)
		return Instruction{Kind: KindLoad, Dst: rd, Base: rs1, Imm: imm, Width: width}, nil

	case opcodeIJALR:
		if funct3 != 0 {
			return Instruction{}, &InvalidInstructionError{Word: word}
		}
		imm := signExtend(bits(word, 31, 20), 11)
		return Instruction{Kind: KindJALR, Dst: rd, Base: rs1, Imm: imm}, nil

	case opcodeS:
		width, ok := storeWidth(funct3)
		if !ok {
			return Instruction{}, &InvalidInstructionError{Word: word}
		}
		immBits := bits(word, 31, 25)<<5 | bits(word, 11, 7)
		imm := signExtend(immBits, 11)
		return Instruction{Kind: KindStore, Src: rs2, Base: rs1, ImmU: uint32(imm), Width: width}, nil

	case opcodeB:
		cond, ok := branchCond(funct3)
		if !ok {
			return Instruction{}, &InvalidInstructionError{Word: word}
		}
		immBits := bits(word, 31, 31)<<12 | bits(word, 7, 7)<<11 |
			bits(word, 30, 25)<<5 | bits(word, 11, 8)<<1
		imm := signExtend(immBits, 12)
		return Instruction{Kind: KindBranch, Src1: rs1, Src2: rs2, Imm: imm, Cond: cond}, nil

	case opcodeJ:
		immBits := bits(word, 31, 31)<<20 | bits(word, 19, 12)<<12 |
			bits(word, 20, 20)<<11 | bits(word, 30, 21)<<1
		imm := signExtend(immBits, 20)
		return Instruction{Kind: KindJAL, Dst: rd, Imm: imm}, nil

	case opcodeLUI:
		imm := bits(word, 31, 12) << 12
		return Instruction{Kind: KindLUI, Dst: rd, ImmU: imm}, nil

	case opcodeAUIPC:
		imm := bits(word, 31, 12) << 12
		return Instruction{Kind: KindAUIPC, Dst: rd, ImmU: imm}, nil

	default:
		return Instruction{}, &InvalidInstructionError{Word: word}
	}
}

func arithOpR(funct3, funct7 uint32) (ArithOp, bool) {
	switch {
	case funct3 == 0b000 && funct7 == 0b0000000:
		return OpAdd, true
	case funct3 == 0b000 && funct7 == 0b0100000:
		return OpSub, true
	case funct3 == 0b100 && funct7 == 0b0000000:
		return OpXor, true
	case funct3 == 0b110 && funct7 == 0b0000000:
		return OpOr, true
	case funct3 == 0b111 && funct7 == 0b0000000:
		return OpAnd, true
	case funct3 == 0b001 && funct7 == 0b0000000:
		return OpSLL, true
	case funct3 == 0b101 && funct7 == 0b0000000:
		return OpSRL, true
	case funct3 == 0b101 && funct7 == 0b0100000:
		return OpSRA, true
	case funct3 == 0b010 && funct7 == 0b0000000:
		return OpSLT, true
	case funct3 == 0b011 && funct7 == 0b0000000:
		return OpSLTU, true
	default:
		return 0, false
	}
}

// arithOpI handles the non-shift I-arith opcodes. RISC-V has no SUBI;
// funct3 0b000 is always ADDI.
func arithOpI(funct3 uint32) (ArithOp, bool) {
	switch funct3 {
	case 0b000:
		return OpAdd, true
	case 0b100:
		return OpXor, true
	case 0b110:
		return OpOr, true
	case 0b111:
		return OpAnd, true
	case 0b010:
		return OpSLT, true
	case 0b011:
		return OpSLTU, true
	default:
		return 0, false
	}
}

func shiftOpI(funct3, bit30 uint32) (ArithOp, bool) {
	switch {
	case funct3 == 0b001 && bit30 == 0:
		return OpSLL, true
	case funct3 == 0b101 && bit30 == 0:
		return OpSRL, true
	case funct3 == 0b101 && bit30 == 1:
		return OpSRA, true
	default:
		return 0, false
	}
}

func loadWidth(funct3 uint32) (Width, bool) {
	switch funct3 {
	case 0b000, 0b100: // LB, LBU
		return WidthByte, true
	case 0b001, 0b101: // LH, LHU
		return WidthHalf, true
	case 0b010: // LW
		return WidthWord, true
	default:
		return 0, false
	}
}

func storeWidth(funct3 uint32) (Width, bool) {
	switch funct3 {
	case 0b000:
		return WidthByte, true
	case 0b001:
		return WidthHalf, true
	case 0b010:
		return WidthWord, true
	default:
		return 0, false
	}
}

func branchCond(funct3 uint32) (BranchCond, bool) {
	switch funct3 {
	case 0b000:
		return CondEQ, true
	case 0b001:
		return CondNE, true
	case 0b100:
		return CondLT, true
	case 0b101:
		return CondGE, true
	case 0b110:
		return CondLTU, true
	case 0b111:
		return CondGEU, true
	default:
		return 0, false
	}
}
