// Package main provides the entry point for fpgasize.
// fpgasize sizes the transistors of an FPGA logic tile against HSPICE.
//
// For the full CLI, use: go run ./cmd/fpgasize
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("fpgasize - FPGA tile transistor sizing")
	fmt.Println("Measures every sub-circuit with HSPICE")
	fmt.Println("")
	fmt.Println("Usage: fpgasize [options]")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config    Path to architecture/process configuration (YAML or JSON)")
	fmt.Println("  -mode      Optimization mode: local or global")
	fmt.Println("  -quick     Skip sub-circuits whose cost stopped moving")
	fmt.Println("  -v         Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/fpgasize' for the full CLI.")
	fmt.Println("Run 'go run ./cmd/spicecheck' to check the HSPICE setup.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/fpgasize' instead.")
	}
}
