package air_test

import (
	"testing"

	"github.com/sarchlab/rv32vm/air"
	"github.com/sarchlab/rv32vm/air/trace"
)

func TestContractShape(t *testing.T) {
	a := air.NewCPUAir(16)
	if a.TraceWidth() != 54 {
		t.Fatalf("trace width = %d, want 54", a.TraceWidth())
	}
	if a.AuxWidth() != 0 {
		t.Fatalf("aux width = %d, want 0", a.AuxWidth())
	}
	offsets := a.TransitionOffsets()
	if len(offsets) != 1 || offsets[0] != 0 {
		t.Fatalf("transition offsets = %v, want [0]", offsets)
	}
	if got, want := a.CompositionPolyDegreeBound(), 32; got != want {
		t.Fatalf("degree bound = %d, want %d", got, want)
	}
	if got, want := a.NumConstraints(), 23+2+2; got != want {
		t.Fatalf("constraint count = %d, want %d", got, want)
	}
	for i, c := range a.Constraints() {
		if c.Index() != i {
			t.Fatalf("constraint %d has Index() = %d", i, c.Index())
		}
	}
}

func TestAllZeroRowSatisfiesEveryConstraint(t *testing.T) {
	a := air.NewCPUAir(1)
	var row trace.Row
	for i, e := range a.EvaluateRowBase(row) {
		if !e.IsZero() {
			t.Fatalf("constraint %d nonzero on all-zero row", i)
		}
	}
}

func TestAddCarrySatisfiedWhenResultCorrect(t *testing.T) {
	a := air.NewCPUAir(1)
	var row trace.Row
	row[trace.ColADD] = 1
	// lhs = 0x0000FFFF, rhs = 0x00000001, res = 0x00010000.
	row[trace.ColRV1B0], row[trace.ColRV1B1], row[trace.ColRV1B2], row[trace.ColRV1B3] = 0xFF, 0xFF, 0, 0
	row[trace.ColArg2B0], row[trace.ColArg2B1], row[trace.ColArg2B2], row[trace.ColArg2B3] = 1, 0, 0, 0
	row[trace.ColResB0], row[trace.ColResB1], row[trace.ColResB2], row[trace.ColResB3] = 0, 0, 1, 0

	if bad := a.Unsatisfied(row); len(bad) != 0 {
		t.Fatalf("unexpected violations: %v", bad)
	}
}

func TestAddCarryViolatedWhenResultWrong(t *testing.T) {
	a := air.NewCPUAir(1)
	var row trace.Row
	row[trace.ColADD] = 1
	row[trace.ColRV1B0], row[trace.ColRV1B1] = 0xFF, 0xFF
	row[trace.ColArg2B0] = 1
	// Off-by-one: res should be 0x00010000, set it to 0x00010001.
	row[trace.ColResB0], row[trace.ColResB2] = 1, 1

	if bad := a.Unsatisfied(row); len(bad) == 0 {
		t.Fatal("expected at least one violated constraint")
	}
}

func TestBitConstraintViolatedOnNonBinaryColumn(t *testing.T) {
	a := air.NewCPUAir(1)
	var row trace.Row
	row[trace.ColWriteReg] = 2
	if bad := a.Unsatisfied(row); len(bad) == 0 {
		t.Fatal("expected the write-register bit constraint to fire")
	}
}
