package inst

import "fmt"

// Encode assembles a word for the subset of instructions Decode can
// produce. It exists to drive the decode(encode(i)) == i round-trip
// property test; it is not a general assembler.
func Encode(i Instruction) (uint32, error) {
	switch i.Kind {
	case KindArith:
		funct3, funct7, ok := rTypeFields(i.Op)
		if !ok {
			return 0, fmt.Errorf("inst: cannot encode Arith op %v", i.Op)
		}
		return rType(opcodeR, funct3, funct7, i.Src1, i.Src2, i.Dst), nil

	case KindArithImm:
		switch i.Op {
		case OpSLL, OpSRL, OpSRA:
			funct3, bit30 := shiftFields(i.Op)
			imm12 := (bit30 << 10) | uint32(i.Imm)&0x1f
			return iType(opcodeIArith, funct3, i.Src, i.Dst, imm12), nil
		default:
			funct3, ok := iTypeFields(i.Op)
			if !ok {
				return 0, fmt.Errorf("inst: cannot encode ArithImm op %v", i.Op)
			}
			return iType(opcodeIArith, funct3, i.Src, i.Dst, uint32(i.Imm)&0xfff), nil
		}

	case KindLoad:
		funct3, ok := loadFunct3(i.Width)
		if !ok {
			return 0, fmt.Errorf("inst: cannot encode Load width %v", i.Width)
		}
		return iType(opcodeILoad, funct3, i.Base, i.Dst, uint32(i.Imm)&0xfff), nil

	case KindJALR:
		return iType(opcodeIJALR, 0, i.Base, i.Dst, uint32(i.Imm)&0xfff), nil

	case KindStore:
		funct3, ok := storeFunct3(i.Width)
		if !ok {
			return 0, fmt.Errorf("inst: cannot encode Store width %v", i.Width)
		}
		imm := i.ImmU & 0xfff
		lo := imm & 0x1f
		hi := imm >> 5
		word := uint32(opcodeS)
		word |= hi << 25
		word |= uint32(i.Src) << 20
		word |= uint32(i.Base) << 15
		word |= funct3 << 12
		word |= lo << 7
		return word, nil

	case KindBranch:
		funct3, ok := branchFunct3(i.Cond)
		if !ok {
			return 0, fmt.Errorf("inst: cannot encode Branch cond %v", i.Cond)
		}
		imm := uint32(i.Imm)
		bit12 := (imm >> 12) & 1
		bit11 := (imm >> 11) & 1
		bits10_5 := (imm >> 5) & 0x3f
		bits4_1 := (imm >> 1) & 0xf
		word := uint32(opcodeB)
		word |= bit12 << 31
		word |= bits10_5 << 25
		word |= uint32(i.Src2) << 20
		word |= uint32(i.Src1) << 15
		word |= funct3 << 12
		word |= bits4_1 << 8
		word |= bit11 << 7
		return word, nil

	case KindJAL:
		imm := uint32(i.Imm)
		bit20 := (imm >> 20) & 1
		bits10_1 := (imm >> 1) & 0x3ff
		bit11 := (imm >> 11) & 1
		bits19_12 := (imm >> 12) & 0xff
		word := uint32(opcodeJ)
		word |= bit20 << 31
		word |= bits10_1 << 21
		word |= bit11 << 20
		word |= bits19_12 << 12
		word |= uint32(i.Dst) << 7
		return word, nil

	case KindLUI:
		return uint32(opcodeLUI) | (i.ImmU & 0xfffff000) | uint32(i.Dst)<<7, nil

	case KindAUIPC:
		return uint32(opcodeAUIPC) | (i.ImmU & 0xfffff000) | uint32(i.Dst)<<7, nil

	default:
		return 0, fmt.Errorf("inst: cannot encode kind %v", i.Kind)
	}
}

func rType(opcode, funct3, funct7 uint32, rs1, rs2, rd uint8) uint32 {
	return opcode | funct7<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 | funct3<<12 | uint32(rd)<<7
}

func iType(opcode, funct3 uint32, rs1, rd uint8, imm12 uint32) uint32 {
	return opcode | imm12<<20 | uint32(rs1)<<15 | funct3<<12 | uint32(rd)<<7
}

func rTypeFields(op ArithOp) (funct3, funct7 uint32, ok bool) {
	switch op {
	case OpAdd:
		return 0b000, 0b0000000, true
	case OpSub:
		return 0b000, 0b0100000, true
	case OpXor:
		return 0b100, 0b0000000, true
	case OpOr:
		return 0b110, 0b0000000, true
	case OpAnd:
		return 0b111, 0b0000000, true
	case OpSLL:
		return 0b001, 0b0000000, true
	case OpSRL:
		return 0b101, 0b0000000, true
	case OpSRA:
		return 0b101, 0b0100000, true
	case OpSLT:
		return 0b010, 0b0000000, true
	case OpSLTU:
		return 0b011, 0b0000000, true
	default:
		return 0, 0, false
	}
}

func iTypeFields(op ArithOp) (funct3 uint32, ok bool) {
	switch op {
	case OpAdd:
		return 0b000, true
	case OpXor:
		return 0b100, true
	case OpOr:
		return 0b110, true
	case OpAnd:
		return 0b111, true
	case OpSLT:
		return 0b010, true
	case OpSLTU:
		return 0b011, true
	default:
		return 0, false
	}
}

func shiftFields(op ArithOp) (funct3, bit30 uint32) {
	switch op {
	case OpSLL:
		return 0b001, 0
	case OpSRL:
		return 0b101, 0
	case OpSRA:
		return 0b101, 1
	default:
		return 0, 0
	}
}

func loadFunct3(w Width) (uint32, bool) {
	switch w {
	case WidthByte:
		return 0b000, true
	case WidthHalf:
		return 0b001, true
	case WidthWord:
		return 0b010, true
	default:
		return 0, false
	}
}

func storeFunct3(w Width) (uint32, bool) {
	switch w {
	case WidthByte:
		return 0b000, true
	case WidthHalf:
		return 0b001, true
	case WidthWord:
		return 0b010, true
	default:
		return 0, false
	}
}

func branchFunct3(c BranchCond) (uint32, bool) {
	switch c {
	case CondEQ:
		return 0b000, true
	case CondNE:
		return 0b001, true
	case CondLT:
		return 0b100, true
	case CondGE:
		return 0b101, true
	case CondLTU:
		return 0b110, true
	case CondGEU:
		return 0b111, true
	default:
		return 0, false
	}
}
