// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// syz-barrier-patches collects kernel commits that likely fixed a bug caused by a missing
// or incorrect memory barrier. The heuristic neither finds all such commits
// nor excludes commits that fix something else. Usage:
//
//	syz-barrier-patches -kernel $KERNELS_DIR/linux -branch master
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"time"

	"github.com/kssb/rfsynth/pkg/log"
	"github.com/kssb/rfsynth/pkg/tool"
	"github.com/kssb/rfsynth/pkg/vcs"
)

func main() {
	var (
		flagKernel    = flag.String("kernel", "", "linux checkout (defaults to $KERNELS_DIR/linux)")
		flagBranch    = flag.String("branch", "master", "branch to inspect")
		flagMax       = flag.Int("max", 0, "inspect at most this many commits (0 means all)")
		flagThreshold = flag.Float64("threshold", vcs.DefaultBarrierThreshold,
			"min share of barrier insertions among added code lines")
		flagTimeout = flag.Duration("timeout", 10*time.Hour, "stop inspecting new commits after this time")
		flagProcs   = flag.Int("procs", runtime.GOMAXPROCS(0), "number of parallel git processes")
	)
	defer tool.Init()()
	kernel := *flagKernel
	if kernel == "" {
		dir := os.Getenv("KERNELS_DIR")
		if dir == "" {
			tool.Failf("specify -kernel or set KERNELS_DIR")
		}
		kernel = filepath.Join(dir, "linux")
	}
	repo, err := vcs.NewRepo(kernel)
	if err != nil {
		tool.Fail(err)
	}
	commits, err := repo.ListCommits(*flagBranch, *flagMax)
	if err != nil {
		tool.Fail(err)
	}
	log.Logf(0, "inspecting %v commits", len(commits))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	analyzer := &vcs.BarrierAnalyzer{Threshold: *flagThreshold}
	res, err := vcs.InspectBarriers(ctx, repo, commits, analyzer, vcs.InspectOptions{
		Procs:   *flagProcs,
		Timeout: *flagTimeout,
	})
	if err != nil {
		tool.Fail(err)
	}
	fmt.Printf("%-12v %-5v %-4v %-8v %v\n", "commit", "trace", "hint", "barriers", "title")
	for _, com := range res {
		fmt.Printf("%-12v %-5v %-4v %3v/%-4v %v\n", com.Hash[:12], com.CallTrace, com.MessageHint,
			com.Barriers, com.Insertions, com.Title)
	}
}
