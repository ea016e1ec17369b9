// Package main provides the entry point for rvemu, a functional RV64IMC
// instruction-set emulator.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/riscv-emu/rvemu/emu"
	"github.com/riscv-emu/rvemu/icache"
	"github.com/riscv-emu/rvemu/insts"
	"github.com/riscv-emu/rvemu/loader"
	"github.com/riscv-emu/rvemu/timing/latency"
)

const (
	// spRegister is x2, the stack pointer by RISC-V calling convention.
	spRegister = 2

	// defaultMemSize is the backing memory allocated for a run, enough
	// for the loaded segments plus the loader's stack reservation.
	defaultMemSize = 64 * 1024 * 1024
)

var (
	verbose         = flag.Bool("v", false, "verbose output")
	profile         = flag.Bool("profile", false, "print an estimated cycle count using the latency table")
	useICache       = flag.Bool("icache", false, "attach an instruction-cache observer and report its hit rate")
	maxInstructions = flag.Uint64("max-instructions", 1_000_000, "watchdog: stop after this many instructions")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: rvemu [options] <program.elf>\n\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	os.Exit(run(flag.Arg(0)))
}

func run(programPath string) int {
	prog, err := loader.Load(programPath, defaultMemSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading program: %v\n", err)
		return 1
	}

	if *verbose {
		fmt.Printf("loaded: %s\n", programPath)
		fmt.Printf("entry point: 0x%x\n", prog.EntryPoint)
		fmt.Printf("segments: %d\n", len(prog.Segments))
	}

	memory := emu.NewMemory(defaultMemSize)
	bus := emu.NewBus(memory)
	for _, seg := range prog.Segments {
		for i, b := range seg.Data {
			if err := bus.Write(seg.VirtAddr+uint64(i), uint64(b), 1); err != nil {
				fmt.Fprintf(os.Stderr, "error seeding segment at 0x%x: %v\n", seg.VirtAddr, err)
				return 1
			}
		}
	}

	var ic *icache.ICache
	if *useICache {
		ic = icache.New(icache.DefaultConfig())
		bus.AttachICache(ic)
	}

	hart := emu.NewHart(bus, emu.NewCsr())
	hart.PC = prog.EntryPoint
	hart.WriteReg(spRegister, prog.InitialSP)

	var table *latency.Table
	var cycles uint64
	if *profile {
		table = latency.NewTable()
	}

	decoder := insts.NewDecoder()

	var executed uint64
	var runErr error
	for ; executed < *maxInstructions; executed++ {
		if table != nil {
			cycles += estimateCycles(hart, bus, decoder, table)
		}

		if err := hart.Step(); err != nil {
			if errors.Is(err, emu.ErrBreakpoint) {
				break
			}
			runErr = err
			break
		}
	}

	if *verbose || runErr != nil {
		fmt.Printf("instructions executed: %d\n", executed)
	}
	if *profile {
		fmt.Printf("estimated cycles: %d\n", cycles)
	}
	if ic != nil {
		fmt.Printf("icache hit rate: %.2f%% (%d/%d)\n",
			100*ic.HitRate(), ic.Stats().Hits, ic.Stats().Fetches)
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", runErr)
		return 1
	}
	return 0
}

// estimateCycles decodes the instruction at the hart's current PC purely
// for its latency cost, without disturbing hart state; Step performs the
// real fetch/decode/execute immediately afterward.
func estimateCycles(hart *emu.Hart, bus *emu.Bus, decoder *insts.Decoder, table *latency.Table) uint64 {
	half, err := bus.Read(hart.PC, 2)
	if err != nil {
		return 0
	}

	if half&0x3 == 0x3 {
		word, err := bus.Read(hart.PC, 4)
		if err != nil {
			return 0
		}
		inst, ok := decoder.Decode32(uint32(word))
		if !ok {
			return 0
		}
		return table.GetLatency(&inst)
	}

	inst, ok := decoder.Decode16(uint16(half))
	if !ok {
		return 0
	}
	return table.GetLatency(&inst)
}
