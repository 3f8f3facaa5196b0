// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package readfrom

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Edge says that the load instruction Load may read the value written by the store instruction Store.
type Edge struct {
	Store uint64
	Load  uint64
}

func (e Edge) String() string {
	return fmt.Sprintf("%x %x", e.Store, e.Load)
}

// EdgeSet is a deduplicated set of edges.
type EdgeSet map[Edge]struct{}

func (s EdgeSet) Add(store, load uint64) {
	s[Edge{store, load}] = struct{}{}
}

func (s EdgeSet) Contains(store, load uint64) bool {
	_, ok := s[Edge{store, load}]
	return ok
}

func (s EdgeSet) Len() int {
	return len(s)
}

// Merge adds all edges of s0 to s.
func (s EdgeSet) Merge(s0 EdgeSet) {
	for e := range s0 {
		s[e] = struct{}{}
	}
}

// Diff returns edges of s0 that are not present in s.
func (s EdgeSet) Diff(s0 EdgeSet) EdgeSet {
	diff := make(EdgeSet)
	for e := range s0 {
		if _, ok := s[e]; ok {
			continue
		}
		diff[e] = struct{}{}
	}
	return diff
}

// Sorted returns the edges in ascending order of their textual form.
func (s EdgeSet) Sorted() []Edge {
	type rendered struct {
		e   Edge
		str string
	}
	tmp := make([]rendered, 0, len(s))
	for e := range s {
		tmp = append(tmp, rendered{e, e.String()})
	}
	sort.Slice(tmp, func(i, j int) bool { return tmp[i].str < tmp[j].str })
	res := make([]Edge, len(tmp))
	for i, r := range tmp {
		res[i] = r.e
	}
	return res
}

// Serialize renders the set in the pair file format: sorted "<store> <load>" lines.
func (s EdgeSet) Serialize() []byte {
	buf := new(bytes.Buffer)
	for _, e := range s.Sorted() {
		fmt.Fprintf(buf, "%v\n", e)
	}
	return buf.Bytes()
}

// ParseEdges parses the pair file format.
func ParseEdges(r io.Reader) (EdgeSet, error) {
	res := make(EdgeSet)
	s := bufio.NewScanner(r)
	for ln := 1; s.Scan(); ln++ {
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		toks := strings.Fields(line)
		if len(toks) != 2 {
			return nil, fmt.Errorf("line %v: want 2 fields, got %q", ln, line)
		}
		store, err := strconv.ParseUint(toks[0], 16, 64)
		if err != nil {
			return nil, fmt.Errorf("line %v: bad store: %w", ln, err)
		}
		load, err := strconv.ParseUint(toks[1], 16, 64)
		if err != nil {
			return nil, fmt.Errorf("line %v: bad load: %w", ln, err)
		}
		res.Add(store, load)
	}
	return res, s.Err()
}

func ReadPairFile(file string) (EdgeSet, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	edges, err := ParseEdges(f)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", file, err)
	}
	return edges, nil
}
