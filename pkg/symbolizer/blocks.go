// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package symbolizer

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CallInsnLen is the length of the x86 call instruction.
// Recorded return addresses are turned into call sites by subtracting it.
const CallInsnLen = 5

const kernelTextPrefix = "ffffffff"

// Blocks splits an address listing into groups of consecutive lines that start with
// a kernel text address. Any other non-empty line ends the current group.
// Returned pcs are call sites, i.e. listed addresses minus CallInsnLen.
func Blocks(lines []string) [][]uint64 {
	var blocks [][]uint64
	var cur []uint64
	flush := func() {
		if len(cur) != 0 {
			blocks = append(blocks, cur)
			cur = nil
		}
	}
	for _, line := range lines {
		toks := strings.Fields(line)
		if len(toks) == 0 {
			continue
		}
		tok := strings.TrimPrefix(toks[0], "0x")
		if !strings.HasPrefix(tok, kernelTextPrefix) {
			flush()
			continue
		}
		pc, err := strconv.ParseUint(tok, 16, 64)
		if err != nil {
			flush()
			continue
		}
		cur = append(cur, pc-CallInsnLen)
	}
	flush()
	return blocks
}

// Format writes frames one per line, inlined frames are indented under their pc.
func Format(w io.Writer, frames []Frame) error {
	for _, frame := range frames {
		indent := ""
		if frame.Inline {
			indent = "  "
		}
		_, err := fmt.Fprintf(w, "%v0x%x %v %v:%v\n", indent, frame.PC, frame.Func, frame.File, frame.Line)
		if err != nil {
			return err
		}
	}
	return nil
}
