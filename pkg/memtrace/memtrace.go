// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package memtrace parses memory access traces printed by the instrumented fuzzer
// into per-call ordered access sequences.
//
// The fuzzer prints its log through the standard log package with the "[FUZZER] " prefix.
// Each executed call is announced by a line ending with the call name, followed by
// one line per memory access observed while the call was running:
//
//	[FUZZER] 2022/05/01 10:00:00 executing call write
//	[FUZZER] 2022/05/01 10:00:00 ffffffff81000010 accesses ffff888000001000 (size: 8, type: 0, timestamp:1f)
package memtrace

import (
	"fmt"
	"io"
)

// Kind is the raw access type reported by the instrumentation.
// Zero is a store, any other value is a load.
type Kind uint64

const (
	Store Kind = 0
	Load  Kind = 1
)

func (k Kind) IsStore() bool {
	return k == Store
}

func (k Kind) String() string {
	if k.IsStore() {
		return "store"
	}
	return "load"
}

// LineShift is the granularity at which accesses are considered to touch the same location.
// Only the cache line key is compared, access sizes are ignored.
const LineShift = 3

type Access struct {
	Inst      uint64
	Addr      uint64
	Size      uint64
	Kind      Kind
	Timestamp uint64
}

// Line returns the cache line key of the accessed address.
func (acc Access) Line() uint64 {
	return acc.Addr >> LineShift
}

// String formats the access as a transcript line: inst, addr, size, raw type and timestamp in hex.
func (acc Access) String() string {
	return fmt.Sprintf("%x %x %x %x %x", acc.Inst, acc.Addr, acc.Size, uint64(acc.Kind), acc.Timestamp)
}

// Call holds accesses of a single syscall execution in program order.
type Call struct {
	Name     string
	Accesses []Access
}

// Stores returns the number of store accesses of the call.
func (c *Call) Stores() int {
	n := 0
	for _, acc := range c.Accesses {
		if acc.Kind.IsStore() {
			n++
		}
	}
	return n
}

type Trace struct {
	Calls []*Call
}

func (tr *Trace) Len() int {
	return len(tr.Calls)
}

// NumAccesses returns the total number of accesses across all calls.
func (tr *Trace) NumAccesses() int {
	n := 0
	for _, c := range tr.Calls {
		n += len(c.Accesses)
	}
	return n
}

// FileNames returns file name stems for all calls.
// Repeated call names get ".N" suffixes (N starting from 1 for the second occurrence)
// so that output files of different calls never collide.
func (tr *Trace) FileNames() []string {
	seen := make(map[string]int)
	names := make([]string, len(tr.Calls))
	for i, c := range tr.Calls {
		n := seen[c.Name]
		seen[c.Name] = n + 1
		if n == 0 {
			names[i] = c.Name
			continue
		}
		names[i] = fmt.Sprintf("%v.%v", c.Name, n)
	}
	return names
}

// WriteTranscript writes the normalized text form of the trace, the same text
// the parser emits into its transcript writer.
func (tr *Trace) WriteTranscript(w io.Writer) error {
	for _, c := range tr.Calls {
		if err := writeCall(w, c.Name); err != nil {
			return err
		}
		for _, acc := range c.Accesses {
			if err := writeAccess(w, acc); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeCall(w io.Writer, name string) error {
	_, err := fmt.Fprintf(w, "%v%v\n", transcriptCallPrefix, name)
	return err
}

func writeAccess(w io.Writer, acc Access) error {
	_, err := fmt.Fprintf(w, "%v\n", acc)
	return err
}
