// Package exec implements the RV32I fetch/decode/execute loop over a
// riscv/machine.Machine, producing an execution log as it runs.
package exec

import (
	"fmt"

	"github.com/sarchlab/rv32vm/riscv/inst"
	"github.com/sarchlab/rv32vm/riscv/machine"
)

// LogEntry records one executed instruction and the value (if any) written
// back to its destination register, kept to aid debugging and to drive the
// trace builder (air/trace).
type LogEntry struct {
	Instruction          inst.Instruction
	PC                   uint32
	NextPC               uint32
	UpdatedRegisterIndex uint8
	UpdatedRegisterValue uint32
	WroteRegister        bool
	RV1, RV2             uint32 // register operand values before this step
	BranchTaken          bool   // meaningful only when Instruction.Kind == inst.KindBranch
}

// Returns is the RISC-V a0/a1 calling-convention return pair.
type Returns struct {
	A0, A1 int32
}

// UnimplementedWidthError is returned when a Load or Store requests a
// sub-word width; only WidthWord is implemented (spec.md §4.4/§9).
type UnimplementedWidthError struct {
	Width inst.Width
}

func (e *UnimplementedWidthError) Error() string {
	return fmt.Sprintf("exec: unimplemented memory access width %v", e.Width)
}

// UnknownArithOpError is returned when an ArithOp value this package does
// not recognize reaches the executor (defensive: the decoder should never
// produce one).
type UnknownArithOpError struct {
	Op inst.ArithOp
}

func (e *UnknownArithOpError) Error() string {
	return fmt.Sprintf("exec: unknown arithmetic op %v", e.Op)
}

// Executor drives a machine.Machine through a program until it halts or a
// fatal error occurs.
type Executor struct {
	m        *machine.Machine
	pc       uint32
	log      []LogEntry
	maxSteps uint64 // 0 means no limit
}

// Option configures a new Executor.
type Option func(*Executor)

// WithMaxSteps caps the number of instructions executed, as a safety net
// for runaway programs in tests and the CLI. A value of 0 means no limit,
// mirroring emu.WithMaxInstructions in the teacher.
func WithMaxSteps(max uint64) Option {
	return func(e *Executor) { e.maxSteps = max }
}

// New returns an Executor over m, starting at entry.
func New(m *machine.Machine, entry uint32, opts ...Option) *Executor {
	e := &Executor{m: m, pc: entry}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the loaded program to completion: pc == 0 is a successful
// halt (spec.md §4.5/§9 — the program is expected to zero ra and jump
// through it to terminate); any decode or memory fault is fatal and
// returned as an error alongside whatever log was produced before it.
func (e *Executor) Run() (Returns, []LogEntry, error) {
	for {
		if e.pc == 0 {
			break
		}
		if e.maxSteps != 0 && uint64(len(e.log)) >= e.maxSteps {
			return Returns{}, e.log, fmt.Errorf("exec: exceeded max steps (%d)", e.maxSteps)
		}

		word, err := e.m.Mem.Read(e.pc)
		if err != nil {
			return Returns{}, e.log, fmt.Errorf("exec: fetch at pc=0x%08x: %w", e.pc, err)
		}
		ins, err := inst.Decode(word)
		if err != nil {
			return Returns{}, e.log, fmt.Errorf("exec: decode at pc=0x%08x: %w", e.pc, err)
		}

		entry, nextPC, writeIdx, writeVal, wrote, err := e.step(ins)
		if err != nil {
			return Returns{}, e.log, fmt.Errorf("exec: execute at pc=0x%08x: %w", e.pc, err)
		}
		entry.PC = e.pc
		entry.NextPC = nextPC
		entry.UpdatedRegisterIndex = writeIdx
		entry.UpdatedRegisterValue = writeVal
		entry.WroteRegister = wrote
		e.log = append(e.log, entry)

		e.pc = nextPC
		if wrote {
			e.m.Regs.Write(writeIdx, writeVal)
		}
	}

	return Returns{
		A0: int32(e.m.Regs.Read(machine.RegA0)),
		A1: int32(e.m.Regs.Read(machine.RegA1)),
	}, e.log, nil
}

// step executes one decoded instruction and reports the new pc plus any
// register write, without writing the register file itself — Run applies
// the register write after logging, matching spec.md §4.5's fetch/decode/
// execute/writeback ordering. A Store's memory write happens here.
func (e *Executor) step(ins inst.Instruction) (entry LogEntry, nextPC uint32, writeIdx uint8, writeVal uint32, wrote bool, err error) {
	entry = LogEntry{Instruction: ins}
	pc := e.pc

	switch ins.Kind {
	case inst.KindArithImm:
		rv1 := e.m.Regs.Read(ins.Src)
		entry.RV1 = rv1
		res, err := applyArith(ins.Op, int32(rv1), ins.Imm)
		if err != nil {
			return entry, 0, 0, 0, false, err
		}
		return entry, pc + 4, ins.Dst, uint32(res), true, nil

	case inst.KindArith:
		rv1 := e.m.Regs.Read(ins.Src1)
		rv2 := e.m.Regs.Read(ins.Src2)
		entry.RV1, entry.RV2 = rv1, rv2
		res, err := applyArith(ins.Op, int32(rv1), int32(rv2))
		if err != nil {
			return entry, 0, 0, 0, false, err
		}
		return entry, pc + 4, ins.Dst, uint32(res), true, nil

	case inst.KindLoad:
		if ins.Width != inst.WidthWord {
			return entry, 0, 0, 0, false, &UnimplementedWidthError{Width: ins.Width}
		}
		base := e.m.Regs.Read(ins.Base)
		entry.RV1 = base
		addr := uint32(int32(base) + ins.Imm)
		val, err := e.m.Mem.Read(addr)
		if err != nil {
			return entry, 0, 0, 0, false, err
		}
		return entry, pc + 4, ins.Dst, val, true, nil

	case inst.KindStore:
		if ins.Width != inst.WidthWord {
			return entry, 0, 0, 0, false, &UnimplementedWidthError{Width: ins.Width}
		}
		base := e.m.Regs.Read(ins.Base)
		val := e.m.Regs.Read(ins.Src)
		entry.RV1, entry.RV2 = base, val
		addr := base + ins.ImmU
		e.m.Mem.Write(addr, val)
		return entry, pc + 4, 0, 0, false, nil

	case inst.KindBranch:
		a := e.m.Regs.Read(ins.Src1)
		b := e.m.Regs.Read(ins.Src2)
		entry.RV1, entry.RV2 = a, b
		taken := evalBranch(ins.Cond, a, b)
		entry.BranchTaken = taken
		if taken {
			return entry, uint32(int32(pc) + ins.Imm), 0, 0, false, nil
		}
		return entry, pc + 4, 0, 0, false, nil

	case inst.KindJAL:
		newPC := uint32(int32(pc) + ins.Imm)
		// Link value is the address of the next instruction: pc+4, after
		// the increment already applied (spec.md §9 preserves source
		// behavior of storing the post-increment pc).
		return entry, newPC, ins.Dst, pc + 4, true, nil

	case inst.KindJALR:
		base := e.m.Regs.Read(ins.Base)
		entry.RV1 = base
		newPC := uint32(int32(base) + ins.Imm)
		return entry, newPC, ins.Dst, pc + 4, true, nil

	case inst.KindLUI:
		return entry, pc + 4, ins.Dst, ins.ImmU, true, nil

	case inst.KindAUIPC:
		return entry, pc + 4, ins.Dst, pc + ins.ImmU, true, nil

	default:
		return entry, 0, 0, 0, false, fmt.Errorf("exec: unhandled instruction kind %v", ins.Kind)
	}
}

// applyArith implements the ArithOp semantics table of spec.md §4.5. All
// arithmetic wraps at 32 bits, including Sub (spec.md §9 Open Question:
// resolved in favor of RV32I wraparound over the source's checked
// subtraction).
func applyArith(op inst.ArithOp, a, b int32) (int32, error) {
	ua, ub := uint32(a), uint32(b)
	switch op {
	case inst.OpAdd:
		return int32(ua + ub), nil
	case inst.OpSub:
		return int32(ua - ub), nil
	case inst.OpXor:
		return int32(ua ^ ub), nil
	case inst.OpOr:
		return int32(ua | ub), nil
	case inst.OpAnd:
		return int32(ua & ub), nil
	case inst.OpSLL:
		return int32(ua << (ub & 0x1f)), nil
	case inst.OpSRL:
		return int32(ua >> (ub & 0x1f)), nil
	case inst.OpSRA:
		return a >> (ub & 0x1f), nil
	case inst.OpSLT:
		if a < b {
			return 1, nil
		}
		return 0, nil
	case inst.OpSLTU:
		if ua < ub {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, &UnknownArithOpError{Op: op}
	}
}

func evalBranch(cond inst.BranchCond, a, b uint32) bool {
	switch cond {
	case inst.CondEQ:
		return a == b
	case inst.CondNE:
		return a != b
	case inst.CondLT:
		return int32(a) < int32(b)
	case inst.CondGE:
		return int32(a) >= int32(b)
	case inst.CondLTU:
		return a < b
	case inst.CondGEU:
		return a >= b
	default:
		return false
	}
}
