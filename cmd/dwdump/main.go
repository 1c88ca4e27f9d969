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

// Command dwdump prints the virtual instruction stream generated for one
// depthwise kernel signature. Useful for inspecting how a padding
// pattern or channel remainder changes the emitted code.
//
// Usage:
//
//	dwdump -d 2 -s 3 -remainder 17 -rowsum -top 1 -left 1
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ajroetker/go-depthwise/dw"
)

func main() {
	var sig dw.Signature
	flag.IntVar(&sig.D, "d", 2, "spatial rank (2 or 3)")
	flag.IntVar(&sig.S, "s", 3, "filter extent per axis")
	flag.IntVar(&sig.Remainder, "remainder", 32, "channels in the final vector group (1..32)")
	flag.BoolVar(&sig.ComputeRowSum, "rowsum", false, "emit the activation row-sum epilogue")
	flag.BoolVar(&sig.PerChannelZeroPoint, "perchannel", false, "per-channel weight zero-points")
	flag.IntVar(&sig.PrevSkip, "prev", 0, "padded taps on the near depth edge")
	flag.IntVar(&sig.NextSkip, "next", 0, "padded taps on the far depth edge")
	flag.IntVar(&sig.TopSkip, "top", 0, "padded taps on the top edge")
	flag.IntVar(&sig.BottomSkip, "bottom", 0, "padded taps on the bottom edge")
	flag.IntVar(&sig.LeftSkip, "left", 0, "padded taps on the left edge")
	flag.IntVar(&sig.RightSkip, "right", 0, "padded taps on the right edge")
	flag.Parse()

	p, err := dw.Emit(sig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dwdump: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("; %d taps, %d instructions\n", sig.Taps(), len(p.Insts()))
	fmt.Print(p.String())
}
