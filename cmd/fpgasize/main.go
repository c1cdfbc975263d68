// Package main provides the fpgasize CLI, which builds an FPGA tile from a
// configuration file and sizes its transistors against HSPICE.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"

	"github.com/StephenMoreOSU/rad-gen-sub000/circuit"
	"github.com/StephenMoreOSU/rad-gen-sub000/config"
	"github.com/StephenMoreOSU/rad-gen-sub000/report"
	"github.com/StephenMoreOSU/rad-gen-sub000/sizing"
	"github.com/StephenMoreOSU/rad-gen-sub000/spice"
)

var (
	configPath = flag.String("config", "", "Path to a YAML or JSON configuration file")
	outDir     = flag.String("out", "", "Output directory (overrides output.dir)")
	mode       = flag.String("mode", "", "Optimization mode: local or global")
	iterations = flag.Int("iterations", 0, "Maximum outer iterations (0 = config value)")
	quick      = flag.Bool("quick", false, "Enable quick mode")
	hspicePath = flag.String("hspice", "", "HSPICE executable (overrides spice.executable)")
	mongoURL   = flag.String("mongo", "", "MongoDB URL for archiving the run")
	cpuProfile = flag.String("cpuprofile", "", "write cpu profile to file")
	verbose    = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, newLogger()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		pprof.StopCPUProfile()
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadConfig(*configPath)
		if err != nil {
			return nil, err
		}
	}

	if *outDir != "" {
		cfg.Output.Dir = *outDir
	}
	if *mode != "" {
		cfg.Sizing.Mode = *mode
	}
	if *iterations > 0 {
		cfg.Sizing.MaxIterations = *iterations
	}
	if *quick {
		cfg.Sizing.QuickMode = true
	}
	if *hspicePath != "" {
		cfg.Spice.Executable = *hspicePath
	}
	if *mongoURL != "" {
		cfg.Output.Mongo = *mongoURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger() logr.Logger {
	verbosity := 0
	if *verbose {
		verbosity = 1
	}
	return funcr.New(func(prefix, args string) {
		fmt.Fprintln(os.Stderr, time.Now().Format("15:04:05"), prefix, args)
	}, funcr.Options{Verbosity: verbosity})
}

func run(ctx context.Context, cfg *config.Config, log logr.Logger) error {
	arena, err := circuit.Build(cfg)
	if err != nil {
		return err
	}
	log.Info("tile built", "circuits", arena.Len(), "sizable", len(arena.SizableHandles()))

	hspice := spice.NewHSPICE(
		spice.WithExecutable(cfg.Spice.Executable),
		spice.WithTimeout(cfg.Spice.Timeout),
		spice.WithLogger(log.WithName("hspice")),
	)
	if !hspice.Available() {
		return fmt.Errorf("%w: %s not found", spice.ErrSimulationUnavailable, cfg.Spice.Executable)
	}
	var sim spice.Simulator = hspice
	var cache *spice.CachedSimulator
	if cfg.Spice.CacheEntries > 0 {
		cache = spice.NewCachedSimulator(hspice, cfg.Spice.CacheEntries, cfg.Spice.CacheWays)
		sim = cache
	}

	rcfg := report.DefaultConfig()
	rcfg.Dir = cfg.Output.Dir
	rcfg.Plot = cfg.Output.Plot
	if cfg.Output.Mongo != "" {
		archive, err := report.NewMongoArchive(cfg.Output.Mongo, 10*time.Second)
		if err != nil {
			return err
		}
		defer archive.Close()
		rcfg.Archive = archive
	}
	sink, err := report.NewSink(rcfg)
	if err != nil {
		return err
	}
	defer sink.Close()
	log = log.WithValues("run", sink.RunID())

	engine, err := sizing.NewEngine(cfg, arena, sim, sizing.WithLogger(log), sizing.WithSink(sink))
	if err != nil {
		return err
	}

	start := time.Now()
	out, err := engine.Run(ctx)
	if err != nil {
		return err
	}
	log.Info("sizing finished", "elapsed", time.Since(start).Round(time.Second), "simulations", hspice.Runs())
	if cache != nil {
		st := cache.Stats()
		log.Info("simulation cache", "lookups", st.Lookups, "hits", st.Hits, "evictions", st.Evictions)
	}

	sum, err := sink.Finish(cfg, engine, out)
	if err != nil {
		return err
	}
	sink.PrintSummary(sum)
	if *verbose {
		sink.PrintIterations(out.Iterations)
	}
	return nil
}
