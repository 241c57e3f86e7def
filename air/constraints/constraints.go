// Package constraints implements the CPU AIR's transition constraints:
// bit-range constraints and the flag-gated two-limb carry-propagation
// constraint for 32-bit add/sub, per spec.md §4.7. Grounded on
// original_source/prover/src/air/constraints_templates.rs.
package constraints

import (
	"github.com/sarchlab/rv32vm/air/field"
	"github.com/sarchlab/rv32vm/air/trace"
)

// CarrySlot selects which of the two 16-bit carry constraints a
// CarryConstraint checks.
type CarrySlot int

// The two carry slots of a 32-bit addition split into 16-bit halves.
const (
	CarryLow CarrySlot = iota
	CarryHigh
)

// Constraint is the tagged-variant interface every transition constraint
// implements (REDESIGN FLAGS, spec.md §9: "represent as a tagged-variant
// list with a common evaluate entry point" rather than a trait-object
// chain — realized here as a closed interface with exactly two
// implementations).
type Constraint interface {
	// Degree is the polynomial degree of this constraint (2 for bit
	// constraints, 3 for carry constraints).
	Degree() int
	// Index is this constraint's position in the AIR's flat constraint
	// list, assigned at construction time (spec.md §9: "prefer assigning
	// indices by position in the final list at AIR construction time").
	Index() int
	// Evaluate writes this constraint's evaluation at out[Index()]. row is
	// the current (and, since transition_offsets = {0}, only) row this
	// constraint reads.
	Evaluate(row [trace.Width]field.Base, out []field.Base)
	// EvaluateExt is the verifier-side counterpart, over the extension
	// field row produced by lifting each base-field column.
	EvaluateExt(row [trace.Width]field.Ext, out []field.Ext)
}

// BitConstraint enforces that a single column holds a binary value:
// col * (col - 1) = 0.
type BitConstraint struct {
	Column int
	idx    int
}

func (c *BitConstraint) Degree() int { return 2 }
func (c *BitConstraint) Index() int  { return c.idx }

func (c *BitConstraint) Evaluate(row [trace.Width]field.Base, out []field.Base) {
	x := row[c.Column]
	out[c.idx] = x.Mul(x.Sub(x.One()))
}

func (c *BitConstraint) EvaluateExt(row [trace.Width]field.Ext, out []field.Ext) {
	x := row[c.Column]
	out[c.idx] = x.Mul(x.Sub(x.One()))
}

// NewBitConstraints returns one BitConstraint per column in columns,
// indices assigned sequentially starting at startIdx.
func NewBitConstraints(columns []int, startIdx int) []Constraint {
	out := make([]Constraint, len(columns))
	for i, col := range columns {
		out[i] = &BitConstraint{Column: col, idx: startIdx + i}
	}
	return out
}

// CarryConstraint enforces that the carry bit out of one 16-bit half of a
// limb-decomposed 32-bit addition (lhs + rhs = res) is binary, gated by the
// sum of a set of one-hot flag columns so the constraint is vacuous on rows
// where none of those instructions execute (spec.md §4.7).
type CarryConstraint struct {
	Slot                         CarrySlot
	FlagCols                     []int
	LHSStart, RHSStart, ResStart int
	idx                          int
}

func (c *CarryConstraint) Degree() int { return 3 }
func (c *CarryConstraint) Index() int  { return c.idx }

func (c *CarryConstraint) Evaluate(row [trace.Width]field.Base, out []field.Base) {
	out[c.idx] = evaluateCarry[field.Base](c, row)
}

func (c *CarryConstraint) EvaluateExt(row [trace.Width]field.Ext, out []field.Ext) {
	out[c.idx] = evaluateCarry[field.Ext](c, row)
}

// evaluateCarry implements flag * carry * (carry - 1) = 0 generically over
// any field.Element, so the prover (Base) and verifier (Ext) paths share
// one body (spec.md §9 REDESIGN FLAGS: "instantiate twice, rather than
// duplicating the body").
func evaluateCarry[T field.Element[T]](c *CarryConstraint, row [trace.Width]T) T {
	var zero T
	flag := zero.Zero()
	for _, f := range c.FlagCols {
		flag = flag.Add(row[f])
	}

	c256 := zero.FromU64(256)
	limbPair := func(start int) T {
		return row[start].Add(c256.Mul(row[start+1]))
	}

	lowLHS, lowRHS, lowRes := limbPair(c.LHSStart), limbPair(c.RHSStart), limbPair(c.ResStart)
	highLHS := limbPair(c.LHSStart + 2)
	highRHS := limbPair(c.RHSStart + 2)
	highRes := limbPair(c.ResStart + 2)

	invW := zero.Inv65536()
	carry0 := lowLHS.Add(lowRHS).Sub(lowRes).Mul(invW)

	var carry T
	switch c.Slot {
	case CarryLow:
		carry = carry0
	case CarryHigh:
		carry = highLHS.Add(highRHS).Sub(highRes).Add(carry0).Mul(invW)
	}

	return flag.Mul(carry.Mul(carry.Sub(zero.One())))
}

// NewCarryConstraints returns the {low, high} carry constraint pair for one
// enabled-flag set over one (lhs, rhs, res) limb group, indices assigned
// sequentially starting at startIdx.
func NewCarryConstraints(flagCols []int, lhsStart, rhsStart, resStart, startIdx int) []Constraint {
	return []Constraint{
		&CarryConstraint{Slot: CarryLow, FlagCols: flagCols, LHSStart: lhsStart, RHSStart: rhsStart, ResStart: resStart, idx: startIdx},
		&CarryConstraint{Slot: CarryHigh, FlagCols: flagCols, LHSStart: lhsStart, RHSStart: rhsStart, ResStart: resStart, idx: startIdx + 1},
	}
}
