// Package air assembles the CPU AIR contract of spec.md §6: trace width,
// the transition-constraint list, the composition-polynomial degree bound,
// and a row evaluator usable by either a prover (base field) or a verifier
// (extension field).
package air

import (
	"github.com/sarchlab/rv32vm/air/constraints"
	"github.com/sarchlab/rv32vm/air/field"
	"github.com/sarchlab/rv32vm/air/trace"
)

// Bit-constrained columns: the decode-flag bits (write-register,
// mem->=2, mem==4, signed, multi-purpose selector, muldiv selector) plus
// the 17 one-hot instruction flags, per spec.md §4.7.
var bitColumns = []int{
	trace.ColWriteReg, trace.ColMemGE2, trace.ColMemEq4,
	trace.ColSigned, trace.ColMPSelector, trace.ColMulDivSel,
	trace.ColADD, trace.ColSUB, trace.ColSLT, trace.ColAND, trace.ColOR,
	trace.ColXOR, trace.ColSL, trace.ColSR, trace.ColJALR, trace.ColBEQ,
	trace.ColBLT, trace.ColLOAD, trace.ColSTORE, trace.ColMUL,
	trace.ColDIVREM, trace.ColECALL, trace.ColEBREAK,
}

// addFlags and subFlags are the one-hot flag sets that gate the carry
// constraints, per spec.md §4.7: {ADD, LOAD, STORE} for addition and
// {SUB, BEQ} for subtraction, matching
// original_source/prover/src/air/cpu_air.rs's
// new_add_constraint(vec![15, 26, 27], ...) call generalized to also gate
// on SUB/BEQ. Addition checks rv1 + arg2 = res; subtraction checks the
// same relation rearranged as res + arg2 = rv1.
var (
	addFlags = []int{trace.ColADD, trace.ColLOAD, trace.ColSTORE}
	subFlags = []int{trace.ColSUB, trace.ColBEQ}
)

// CPUAir is the CPU sub-AIR: trace width 54, zero auxiliary columns,
// single-row (transition offset {0}) constraints only.
type CPUAir struct {
	cs          []constraints.Constraint
	traceLength int
}

// NewCPUAir builds the full constraint list (23 bit constraints + 2 add
// carry + 2 sub carry = 27 transition constraints) for a trace of the
// given length, which the caller guarantees is a power of two.
func NewCPUAir(traceLength int) *CPUAir {
	bits := constraints.NewBitConstraints(bitColumns, 0)
	next := len(bits)

	addCarry := constraints.NewCarryConstraints(
		addFlags, trace.ColRV1B0, trace.ColArg2B0, trace.ColResB0, next)
	next += len(addCarry)

	subCarry := constraints.NewCarryConstraints(
		subFlags, trace.ColResB0, trace.ColArg2B0, trace.ColRV1B0, next)

	cs := make([]constraints.Constraint, 0, len(bits)+len(addCarry)+len(subCarry))
	cs = append(cs, bits...)
	cs = append(cs, addCarry...)
	cs = append(cs, subCarry...)

	return &CPUAir{cs: cs, traceLength: traceLength}
}

// TraceWidth is the number of main trace columns.
func (a *CPUAir) TraceWidth() int { return trace.Width }

// AuxWidth is the number of auxiliary (RAP extension) columns; this AIR
// has none.
func (a *CPUAir) AuxWidth() int { return 0 }

// TransitionOffsets are the relative row offsets this AIR's constraints
// read from; every constraint here is single-row.
func (a *CPUAir) TransitionOffsets() []int { return []int{0} }

// CompositionPolyDegreeBound is 2*traceLength, per spec.md §4.7/§6.
func (a *CPUAir) CompositionPolyDegreeBound() int { return 2 * a.traceLength }

// Constraints returns the assembled transition-constraint list, in
// construction order (so Constraint.Index() matches its position).
func (a *CPUAir) Constraints() []constraints.Constraint { return a.cs }

// NumConstraints is the total transition-constraint count.
func (a *CPUAir) NumConstraints() int { return len(a.cs) }

func toBaseRow(r trace.Row) [trace.Width]field.Base {
	var out [trace.Width]field.Base
	for i, v := range r {
		out[i] = field.NewBase(v)
	}
	return out
}

func toExtRow(r trace.Row) [trace.Width]field.Ext {
	var out [trace.Width]field.Ext
	for i, v := range r {
		out[i] = field.NewExt(field.NewBase(v))
	}
	return out
}

// EvaluateRowBase evaluates every transition constraint over row in the
// base field (the prover's evaluation context, spec.md §6).
func (a *CPUAir) EvaluateRowBase(row trace.Row) []field.Base {
	out := make([]field.Base, len(a.cs))
	br := toBaseRow(row)
	for _, c := range a.cs {
		c.Evaluate(br, out)
	}
	return out
}

// EvaluateRowExt evaluates every transition constraint over row in the
// quartic extension field (the verifier's evaluation context, spec.md §6).
func (a *CPUAir) EvaluateRowExt(row trace.Row) []field.Ext {
	out := make([]field.Ext, len(a.cs))
	er := toExtRow(row)
	for _, c := range a.cs {
		c.EvaluateExt(er, out)
	}
	return out
}

// Unsatisfied returns the indices of every constraint whose base-field
// evaluation over row is nonzero — a self-check harness for the AIR
// (cmd/rv32vm --check-air), not a full STARK prover/verifier (spec.md §1
// places that framework out of scope).
func (a *CPUAir) Unsatisfied(row trace.Row) []int {
	evals := a.EvaluateRowBase(row)
	var bad []int
	for i, e := range evals {
		if !e.IsZero() {
			bad = append(bad, i)
		}
	}
	return bad
}
