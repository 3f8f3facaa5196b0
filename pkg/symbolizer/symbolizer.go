// Copyright 2016 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package symbolizer maps kernel instruction addresses from memory access traces
// and reads-from pair files to functions and source lines.
package symbolizer

type Frame struct {
	PC     uint64
	Func   string
	File   string
	Line   int
	Inline bool
}

type Symbolizer interface {
	Symbolize(bin string, pcs ...uint64) ([]Frame, error)
	Close()
}

// Make returns a symbolizer backed by the addr2line binary found in PATH.
func Make() Symbolizer {
	return &addr2Line{bin: "addr2line"}
}
