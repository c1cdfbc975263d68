// Package main provides a CLI tool to check that the SPICE toolchain and the
// technology setup are usable before a sizing run.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/StephenMoreOSU/rad-gen-sub000/config"
	"github.com/StephenMoreOSU/rad-gen-sub000/spice"
	"github.com/StephenMoreOSU/rad-gen-sub000/wire"
)

var configPath = flag.String("config", "", "Path to a YAML or JSON configuration file")

func main() {
	flag.Parse()

	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration invalid: %v\n", err)
		fmt.Println("0")
		os.Exit(0)
	}

	h := spice.NewHSPICE(spice.WithExecutable(cfg.Spice.Executable))
	if !h.Available() {
		fmt.Fprintf(os.Stderr, "HSPICE not available: %s not found on PATH\n", cfg.Spice.Executable)
		fmt.Println("0")
		os.Exit(0)
	}
	if _, err := os.Stat(cfg.Process.Library); err != nil {
		fmt.Fprintf(os.Stderr, "Model library missing: %v\n", err)
		fmt.Println("0")
		os.Exit(0)
	}

	fmt.Println("1")

	stack := wire.NewStack(cfg.Process.MetalStack)
	fmt.Fprintf(os.Stderr, "\nProcess: %s, Vdd %.2f V, %d metal layers\n",
		cfg.Process.Family, cfg.Process.VDD, stack.Layers())
	for i := 0; i < stack.Layers(); i++ {
		rc, err := stack.RC(1000, i)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  M%d: %v\n", i, err)
			continue
		}
		fmt.Fprintf(os.Stderr, "  M%d: %.1f ohm/um, %.3f fF/um\n", i, rc.R, rc.C*1e15)
	}
}
