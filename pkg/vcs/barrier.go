// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package vcs

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/kssb/rfsynth/pkg/log"
	"github.com/speakeasy-api/git-diff-parser"
	"golang.org/x/sync/errgroup"
)

// BarrierAnalyzer looks for simple patches that fix a missing or misplaced memory barrier.
// A commit is interesting if it is neither a merge nor an initial commit and more than
// Threshold of its added code lines (not counting comments and empty lines) insert barriers.
// The heuristic has both false positives and false negatives.
type BarrierAnalyzer struct {
	Threshold float64
}

const DefaultBarrierThreshold = 0.3

type BarrierInfo struct {
	Barriers   int
	Insertions int
	// The message mentions memory barriers or fixing a reordering.
	MessageHint bool
	// The message contains a kernel call trace.
	CallTrace bool
}

var (
	barrierRe = regexp.MustCompile(`smp_mb|smp_wmb|smp_store_release`)
	commentRe = regexp.MustCompile(`^\s*(\*|//|/\*)`)
)

func (a *BarrierAnalyzer) Interesting(com *Commit) (*BarrierInfo, bool, error) {
	if com.IsMerge() || com.IsInitial() {
		return nil, false, nil
	}
	diff, errs := git_diff_parser.Parse(string(com.Patch))
	if len(errs) != 0 {
		return nil, false, fmt.Errorf("parsing patch of %v: %v", com.Hash, errs)
	}
	info := new(BarrierInfo)
	for _, file := range diff.FileDiff {
		for _, hunk := range file.Hunks {
			for _, change := range hunk.ChangeList {
				if change.Type != git_diff_parser.ContentChangeTypeAdd &&
					change.Type != git_diff_parser.ContentChangeTypeModify {
					continue
				}
				line := change.To
				if strings.TrimSpace(line) == "" || commentRe.MatchString(line) {
					continue
				}
				info.Insertions++
				if barrierRe.MatchString(line) {
					info.Barriers++
				}
			}
		}
	}
	threshold := a.Threshold
	if threshold == 0 {
		threshold = DefaultBarrierThreshold
	}
	if info.Barriers == 0 || float64(info.Barriers) <= float64(info.Insertions)*threshold {
		return info, false, nil
	}
	msg := com.Message()
	info.MessageHint = strings.Contains(msg, "memory barrier") ||
		strings.Contains(msg, "reordering") && strings.Contains(msg, "fixing")
	info.CallTrace = strings.Contains(msg, "Call trace")
	return info, true, nil
}

type BarrierCommit struct {
	Hash  string
	Title string
	BarrierInfo
}

type InspectOptions struct {
	Procs int
	// Inspection stops scheduling new commits after Timeout (0 means no limit).
	Timeout time.Duration
}

// InspectBarriers runs the analyzer over commits and returns the interesting ones.
// Commits with a call trace come first, then commits with a message hint,
// the rest keeps the order of commits.
func InspectBarriers(ctx context.Context, repo Repo, commits []string, a *BarrierAnalyzer,
	opts InspectOptions) ([]*BarrierCommit, error) {
	if opts.Timeout != 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	procs := opts.Procs
	if procs <= 0 {
		procs = 1
	}
	results := make([]*BarrierCommit, len(commits))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(procs)
	for i, hash := range commits {
		if gctx.Err() != nil {
			log.Logf(0, "stopping inspection after %v commits: %v", i, gctx.Err())
			break
		}
		if i%1000 == 0 {
			log.Logf(1, "inspecting %vth commit", i)
		}
		g.Go(func() error {
			com, err := repo.Commit(hash)
			if err != nil {
				return err
			}
			info, ok, err := a.Interesting(com)
			if err != nil || !ok {
				return err
			}
			log.Logf(1, "%v %v", com.Hash, com.Title)
			results[i] = &BarrierCommit{
				Hash:        com.Hash,
				Title:       com.Title,
				BarrierInfo: *info,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var res []*BarrierCommit
	for _, com := range results {
		if com != nil {
			res = append(res, com)
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		if res[i].CallTrace != res[j].CallTrace {
			return res[i].CallTrace
		}
		return res[i].MessageHint && !res[j].MessageHint
	})
	return res, nil
}
