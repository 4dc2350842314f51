package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/len5sim/rvsim/pkg/dmem"
	"github.com/len5sim/rvsim/pkg/sim"
	"github.com/len5sim/rvsim/pkg/trace"
	"github.com/spf13/cobra"
)

func main() {
	var (
		testName          string
		memName           string
		memDump           bool
		commitHistoryDump bool
		commitHistoryJSON bool
		robDump           bool
		maxCycles         int
		pickPolicy        string
		seed              uint64
		forwardStores     bool
		verbose           bool
		stats             bool
	)

	runCmd := &cobra.Command{
		Use:   "rvsim",
		Short: "Cycle-accurate out-of-order RISC-V backend simulator",
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

			return run(runConfig{
				testName:          testName,
				memName:           memName,
				memDump:           memDump,
				commitHistoryDump: commitHistoryDump,
				commitHistoryJSON: commitHistoryJSON,
				robDump:           robDump,
				maxCycles:         maxCycles,
				pickPolicy:        sim.PickPolicy(pickPolicy),
				seed:              seed,
				forwardStores:     forwardStores,
				stats:             stats,
			})
		},
	}

	runCmd.Flags().StringVar(&testName, "test_name", "", "Path to the pre-decoded disassembly trace (required)")
	runCmd.Flags().StringVar(&memName, "mem_name", "", "Path to the Verilog-style initial memory image")
	runCmd.Flags().BoolVar(&memDump, "mem_dump", false, "Dump data memory contents every cycle to memory.log")
	runCmd.Flags().BoolVar(&commitHistoryDump, "commit_history_dump", false, "Dump every retired instruction to commit.log")
	runCmd.Flags().BoolVar(&commitHistoryJSON, "commit_history_json", false, "Dump every retired instruction as a JSON array to commit.json")
	runCmd.Flags().BoolVar(&robDump, "rob_dump", false, "Dump the ROB contents every cycle to rob.log")
	runCmd.Flags().IntVar(&maxCycles, "max_cycles", 100_000, "Abort the run after this many cycles")
	runCmd.Flags().StringVar(&pickPolicy, "rs-pick-policy", "oldest", "Reservation-station pick policy: oldest, newest, first, last, random")
	runCmd.Flags().Uint64Var(&seed, "seed", 1, "Seed for DMEM's hit/miss RNG and the random pick policy")
	runCmd.Flags().BoolVar(&forwardStores, "forward-stores", false, "Enable store-to-load forwarding (optional, exact-address only)")
	runCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose (debug-level) logging")
	runCmd.Flags().BoolVar(&stats, "stats", false, "Print live cycle/committed-instruction counters as the run progresses")
	_ = runCmd.MarkFlagRequired("test_name")

	if err := runCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type runConfig struct {
	testName          string
	memName           string
	memDump           bool
	commitHistoryDump bool
	commitHistoryJSON bool
	robDump           bool
	maxCycles         int
	pickPolicy        sim.PickPolicy
	seed              uint64
	forwardStores     bool
	stats             bool
}

const (
	robSize    = 16
	rsEntries  = 8
	issueWidth = 1
)

func run(cfg runConfig) error {
	traceFile, err := os.Open(cfg.testName)
	if err != nil {
		return fmt.Errorf("rvsim: opening trace: %w", err)
	}
	defer traceFile.Close()

	program, err := trace.DecodeAll(traceFile)
	if err != nil {
		return fmt.Errorf("rvsim: decoding trace: %w", err)
	}
	slog.Info("loaded trace", "instructions", len(program), "path", cfg.testName)

	mem := dmem.New(dmem.Config{CacheLatency: 1, MemLatency: 2, HitRate: 0.9, Seed: cfg.seed})
	if cfg.memName != "" {
		memFile, err := os.Open(cfg.memName)
		if err != nil {
			return fmt.Errorf("rvsim: opening memory image: %w", err)
		}
		defer memFile.Close()
		if err := dmem.LoadImage(memFile, mem); err != nil {
			return fmt.Errorf("rvsim: loading memory image: %w", err)
		}
		slog.Info("loaded memory image", "path", cfg.memName)
	}

	robLog, err := createDumpFile(cfg.robDump, "rob.log")
	if err != nil {
		return err
	}
	defer closeIfOpen(robLog)
	memLog, err := createDumpFile(cfg.memDump, "memory.log")
	if err != nil {
		return err
	}
	defer closeIfOpen(memLog)

	schedCfg := sim.Config{
		ROBSize:       robSize,
		RSEntries:     rsEntries,
		IssueWidth:    issueWidth,
		MaxCycles:     cfg.maxCycles,
		Policy:        cfg.pickPolicy,
		Seed:          cfg.seed,
		ForwardStores: cfg.forwardStores,
		DMEM:          dmem.Config{CacheLatency: 1, MemLatency: 2, HitRate: 0.9, Seed: cfg.seed},
		RobDump:       cfg.robDump,
		MemDump:       cfg.memDump,
		RobDumpWriter: robLog,
		MemDumpWriter: memLog,
	}

	scheduler := sim.New(schedCfg, program, mem)

	cycle := 0
	for ; cycle < cfg.maxCycles; cycle++ {
		if err := scheduler.Step(cycle); err != nil {
			return fmt.Errorf("rvsim: %w", err)
		}
		if cfg.stats && cycle%1000 == 0 {
			slog.Info("progress", "cycle", scheduler.Stats.Cycles.Load(), "committed", scheduler.Stats.Committed.Load())
		}
		if scheduler.Done() {
			break
		}
	}
	slog.Info("simulation finished", "cycles", cycle, "committed", scheduler.Stats.Committed.Load())

	if cfg.commitHistoryDump {
		f, err := os.Create("commit.log")
		if err != nil {
			return fmt.Errorf("rvsim: creating commit.log: %w", err)
		}
		defer f.Close()
		scheduler.DumpCommitHistory(f)
	}
	if cfg.commitHistoryJSON {
		f, err := os.Create("commit.json")
		if err != nil {
			return fmt.Errorf("rvsim: creating commit.json: %w", err)
		}
		defer f.Close()
		if err := scheduler.DumpCommitHistoryJSON(f); err != nil {
			return fmt.Errorf("rvsim: encoding commit.json: %w", err)
		}
	}

	fmt.Print(scheduler.RF)
	return nil
}

func createDumpFile(enabled bool, name string) (*os.File, error) {
	if !enabled {
		return nil, nil
	}
	f, err := os.Create(name)
	if err != nil {
		return nil, fmt.Errorf("rvsim: creating %s: %w", name, err)
	}
	return f, nil
}

func closeIfOpen(f *os.File) {
	if f != nil {
		f.Close()
	}
}
