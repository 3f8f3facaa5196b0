// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package readfrom synthesizes candidate reads-from edges between syscalls of a memory access trace.
//
// For every pair of calls (i, j) where call i was executed before call j, a Strategy computes
// the set of (store, load) instruction pairs such that the load in call j may have read
// the value stored in call i. The result is written as one "<from>_<to>_rf.dat" file per pair
// and serves as test data for the reads-from coverage computed by the fuzzer.
package readfrom

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/kssb/rfsynth/pkg/log"
	"github.com/kssb/rfsynth/pkg/memtrace"
	"github.com/kssb/rfsynth/pkg/osutil"
	"github.com/kssb/rfsynth/pkg/stat"
	"golang.org/x/sync/errgroup"
)

var (
	statPairs = stat.New("rf pairs", "Number of written call pair files",
		stat.Console, stat.Prometheus("rfsynth_pairs"))
	statEdges = stat.New("rf edges", "Total number of written reads-from edges",
		stat.Console, stat.Prometheus("rfsynth_edges"))
	statPairEdges = stat.New("rf edges per pair", "Distribution of reads-from edges per call pair",
		stat.Console, stat.Distribution{})
)

const fileSuffix = "_rf.dat"

// PairFileName returns the name of the file that holds edges from call from to call to.
func PairFileName(from, to string) string {
	return from + "_" + to + fileSuffix
}

// Pair holds edges from call I to call J (I < J in trace order).
type Pair struct {
	I     int
	J     int
	File  string
	Edges EdgeSet
}

// NumPairs returns the number of pairs produced for a trace with n calls.
func NumPairs(n int) int {
	return n * (n - 1) / 2
}

// Synthesize computes edges for all call pairs in trace order.
func Synthesize(tr *memtrace.Trace, s Strategy) []Pair {
	names := tr.FileNames()
	res := make([]Pair, 0, NumPairs(tr.Len()))
	for i, ci := range tr.Calls {
		for j := i + 1; j < len(tr.Calls); j++ {
			res = append(res, Pair{
				I:     i,
				J:     j,
				File:  PairFileName(names[i], names[j]),
				Edges: s.ComputeEdges(ci, tr.Calls[j]),
			})
		}
	}
	return res
}

// Merge returns the union of edges of all pairs.
func Merge(pairs []Pair) EdgeSet {
	res := make(EdgeSet)
	for _, p := range pairs {
		res.Merge(p.Edges)
	}
	return res
}

type Options struct {
	// Strategy defaults to Default.
	Strategy Strategy
	// Procs limits the number of pair files computed and written in parallel.
	// Defaults to GOMAXPROCS.
	Procs int
}

// WriteDir computes edges for all call pairs and writes one file per pair into dir.
// Pairs with no edges produce empty files. Returns names of the files in trace pair order.
// The first failed write aborts the run, files written before the failure are left intact.
func WriteDir(ctx context.Context, tr *memtrace.Trace, dir string, opts Options) ([]string, error) {
	strategy := opts.Strategy
	if strategy == nil {
		strategy = Default
	}
	procs := opts.Procs
	if procs <= 0 {
		procs = runtime.GOMAXPROCS(0)
	}
	if err := osutil.MkdirAll(dir); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	log.Logf(1, "writing %v pair files to %v using %v strategy (%v procs)",
		NumPairs(tr.Len()), dir, strategy.Name(), procs)
	names := tr.FileNames()
	files := make([]string, 0, NumPairs(tr.Len()))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(procs)
loop:
	for i, ci := range tr.Calls {
		for j := i + 1; j < len(tr.Calls); j++ {
			if gctx.Err() != nil {
				break loop
			}
			cj := tr.Calls[j]
			file := PairFileName(names[i], names[j])
			files = append(files, file)
			g.Go(func() error {
				edges := strategy.ComputeEdges(ci, cj)
				if err := osutil.WriteFile(filepath.Join(dir, file), edges.Serialize()); err != nil {
					return fmt.Errorf("failed to write pair file: %w", err)
				}
				log.Logf(2, "%v: %v edges", file, edges.Len())
				statPairs.Add(1)
				statEdges.Add(edges.Len())
				statPairEdges.Add(edges.Len())
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return files, nil
}
