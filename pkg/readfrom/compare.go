// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package readfrom

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/kssb/rfsynth/pkg/memtrace"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// PairDiff describes how two strategies disagree on a single call pair.
type PairDiff struct {
	File  string
	OnlyA EdgeSet
	OnlyB EdgeSet
}

// Compare runs both strategies over the trace and returns the pairs where their results differ.
func Compare(tr *memtrace.Trace, a, b Strategy) []PairDiff {
	pairsA, pairsB := Synthesize(tr, a), Synthesize(tr, b)
	var res []PairDiff
	for i := range pairsA {
		ea, eb := pairsA[i].Edges, pairsB[i].Edges
		onlyA, onlyB := eb.Diff(ea), ea.Diff(eb)
		if onlyA.Len() == 0 && onlyB.Len() == 0 {
			continue
		}
		res = append(res, PairDiff{
			File:  pairsA[i].File,
			OnlyA: onlyA,
			OnlyB: onlyB,
		})
	}
	return res
}

// RenderDiff returns a line diff between pair files a and b.
// Removed lines are prefixed with "-", added lines with "+", common lines with " ".
func RenderDiff(a, b EdgeSet) string {
	dmp := diffmatchpatch.New()
	textA, textB, lines := dmp.DiffLinesToChars(string(a.Serialize()), string(b.Serialize()))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(textA, textB, false), lines)
	buf := new(bytes.Buffer)
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			fmt.Fprintf(buf, "%v%v", prefix, line)
		}
	}
	return buf.String()
}
