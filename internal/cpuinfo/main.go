// Copyright 2026 go-depthwise Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package main prints the CPU features and environment switches that
// decide which kernel backend the process-wide cache will use.
package main

import (
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sys/cpu"

	"github.com/ajroetker/go-depthwise/dw"
)

func main() {
	fmt.Printf("GOOS: %s\n", runtime.GOOS)
	fmt.Printf("GOARCH: %s\n", runtime.GOARCH)
	fmt.Printf("NumCPU: %d\n", runtime.NumCPU())
	fmt.Println()

	fmt.Printf("Native backend available: %v\n", dw.NativeAvailable())
	fmt.Printf("DW_NATIVE: %q\n", os.Getenv("DW_NATIVE"))
	fmt.Printf("DW_PORTABLE: %q\n", os.Getenv("DW_PORTABLE"))
	fmt.Println()

	if runtime.GOARCH == "amd64" {
		fmt.Println("=== golang.org/x/sys/cpu.X86 ===")
		fmt.Printf("  HasAVX:    %v\n", cpu.X86.HasAVX)
		fmt.Printf("  HasAVX2:   %v (required by the JIT backend)\n", cpu.X86.HasAVX2)
		fmt.Printf("  HasSSE2:   %v\n", cpu.X86.HasSSE2)
		fmt.Printf("  HasSSE41:  %v\n", cpu.X86.HasSSE41)
		fmt.Printf("  HasSSE42:  %v\n", cpu.X86.HasSSE42)
		fmt.Println()
	}

	// Build one representative kernel so a broken backend surfaces here
	// rather than in the application.
	sig := dw.Signature{D: 2, S: 3, ComputeRowSum: true, Remainder: 32}
	if _, err := dw.GetOrCreate(sig); err != nil {
		fmt.Printf("probe build for %+v failed: %v\n", sig, err)
		os.Exit(1)
	}
	fmt.Printf("probe build for 3x3 kernel: ok\n")
}
