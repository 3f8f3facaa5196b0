// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// syz-addr2line symbolizes groups of kernel return addresses, e.g. call stacks
// dumped next to memory accesses. Every group of consecutive lines starting with
// a kernel text address is symbolized separately. Usage:
//
//	syz-addr2line -vmlinux $KERNEL/vmlinux stacks.txt
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kssb/rfsynth/pkg/osutil"
	"github.com/kssb/rfsynth/pkg/symbolizer"
	"github.com/kssb/rfsynth/pkg/tool"
)

func main() {
	var (
		flagVmlinux = flag.String("vmlinux", "", "kernel binary (defaults to $KERNEL_X86_64/vmlinux)")
		flagInline  = flag.Bool("inline", true, "print inlined frames")
	)
	defer tool.Init()()
	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: syz-addr2line [flags] addresses_file\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	vmlinux := *flagVmlinux
	if vmlinux == "" {
		kernel := os.Getenv("KERNEL_X86_64")
		if kernel == "" {
			tool.Failf("specify -vmlinux or set KERNEL_X86_64")
		}
		vmlinux = filepath.Join(kernel, "vmlinux")
	}
	lines, err := osutil.ReadLines(flag.Arg(0))
	if err != nil {
		tool.Fail(err)
	}
	symb := symbolizer.NewCache(symbolizer.Make())
	defer symb.Close()
	for i, pcs := range symbolizer.Blocks(lines) {
		frames, err := symb.Symbolize(vmlinux, pcs...)
		if err != nil {
			tool.Fail(err)
		}
		if !*flagInline {
			frames = outermost(frames)
		}
		fmt.Printf("block %v:\n", i)
		if err := symbolizer.Format(os.Stdout, frames); err != nil {
			tool.Fail(err)
		}
	}
}

func outermost(frames []symbolizer.Frame) []symbolizer.Frame {
	var res []symbolizer.Frame
	for _, frame := range frames {
		if !frame.Inline {
			res = append(res, frame)
		}
	}
	return res
}
