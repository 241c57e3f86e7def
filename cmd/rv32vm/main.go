// Command rv32vm loads a 32-bit RISC-V executable, runs it to completion,
// and optionally dumps its CPU AIR trace or self-checks the AIR against
// that trace.
package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sarchlab/rv32vm/air"
	"github.com/sarchlab/rv32vm/air/trace"
	"github.com/sarchlab/rv32vm/riscv/exec"
	"github.com/sarchlab/rv32vm/riscv/loader"
	"github.com/sarchlab/rv32vm/riscv/machine"
)

var (
	tracePath string
	checkAIR  bool
	verbose   bool
	maxSteps  uint64
)

func main() {
	root := &cobra.Command{
		Use:   "rv32vm <program.elf>",
		Short: "A minimal RV32I virtual machine",
		Args:  cobra.ExactArgs(1),
		RunE:  run,
	}
	root.Flags().StringVar(&tracePath, "trace", "", "write the CPU AIR trace (54 columns) as CSV to this path")
	root.Flags().BoolVar(&checkAIR, "check-air", false, "evaluate every transition constraint over the trace and report violations")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "print entry point, image word count, and return values")
	root.Flags().Uint64Var(&maxSteps, "max-steps", 10_000_000, "abort after this many executed instructions (0 = unlimited)")

	if err := root.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

// cliError carries the exit code spec.md §4.4 prescribes: 1 for loader
// errors, 2 for executor errors.
type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string { return e.err.Error() }
func (e *cliError) Unwrap() error { return e.err }

func exitCodeFor(err error) int {
	var ce *cliError
	if ok := asCliError(err, &ce); ok {
		return ce.code
	}
	return 1
}

func asCliError(err error, target **cliError) bool {
	if ce, ok := err.(*cliError); ok {
		*target = ce
		return true
	}
	return false
}

func run(cmd *cobra.Command, args []string) error {
	path := args[0]

	prog, err := loader.Load(path)
	if err != nil {
		return &cliError{code: 1, err: fmt.Errorf("load %q: %w", path, err)}
	}

	if verbose {
		fmt.Fprintf(os.Stdout, "loaded: %s\n", path)
		fmt.Fprintf(os.Stdout, "entry point: 0x%08x\n", prog.EntryPoint)
		fmt.Fprintf(os.Stdout, "image words: %d\n", len(prog.Image))
	}

	mem := machine.NewMemory()
	for addr, word := range prog.Image {
		mem.Write(addr, word)
	}
	m := machine.New(machine.WithMemory(mem))

	opts := []exec.Option{}
	if maxSteps != 0 {
		opts = append(opts, exec.WithMaxSteps(maxSteps))
	}
	e := exec.New(m, prog.EntryPoint, opts...)

	returns, log, runErr := e.Run()
	if runErr != nil {
		return &cliError{code: 2, err: fmt.Errorf("run %q: %w", path, runErr)}
	}

	if verbose {
		fmt.Fprintf(os.Stdout, "a0=%d a1=%d\n", returns.A0, returns.A1)
	} else {
		fmt.Fprintf(os.Stdout, "%d %d\n", returns.A0, returns.A1)
	}

	rows := trace.Build(log)

	if tracePath != "" {
		if err := writeTraceCSV(tracePath, rows); err != nil {
			return &cliError{code: 2, err: fmt.Errorf("write trace: %w", err)}
		}
	}

	if checkAIR {
		padded := trace.Pad(rows, nextPowerOfTwo(len(rows)))
		cpuAir := air.NewCPUAir(len(padded))
		violations := 0
		for _, row := range padded {
			if bad := cpuAir.Unsatisfied(row); len(bad) > 0 {
				violations += len(bad)
				fmt.Fprintf(os.Stderr, "air: row violates constraints %v\n", bad)
			}
		}
		if violations > 0 {
			return &cliError{code: 2, err: fmt.Errorf("air: %d constraint violations", violations)}
		}
		fmt.Fprintf(os.Stdout, "air: %d rows, %d constraints, all satisfied\n",
			len(padded), cpuAir.NumConstraints())
	}

	return nil
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func writeTraceCSV(path string, rows []trace.Row) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := make([]string, trace.Width)
	for i := range header {
		header[i] = fmt.Sprintf("c%d", i)
	}
	if err := w.Write(header); err != nil {
		return err
	}

	record := make([]string, trace.Width)
	for _, row := range rows {
		for i, v := range row {
			record[i] = strconv.FormatUint(v, 10)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}
