// Command vp8dump prints the bitstream syntax of VP8 frames.
//
// Usage:
//
//	vp8dump info <input>         Summarize a stream
//	vp8dump headers <input>      Print every frame header
//	vp8dump macroblocks <input>  Print every macroblock header
//
// The input may be an IVF file, a WebP file or a single raw frame. Use
// "-" to read from stdin.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "vp8dump: %v\n", err)
		os.Exit(1)
	}
}
