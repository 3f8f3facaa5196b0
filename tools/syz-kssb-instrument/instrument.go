// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// syz-kssb-instrument edits kernel Makefiles to enable KSSB instrumentation
// for the files and directories listed in a recipe. Previously generated lines are removed first.
// With -reset it only removes them. Usage:
//
//	syz-kssb-instrument -kernel $KERNELS_DIR/linux -recipe $TMP_DIR/instrument
package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/kssb/rfsynth/pkg/kbuild"
	"github.com/kssb/rfsynth/pkg/log"
	"github.com/kssb/rfsynth/pkg/tool"
)

func main() {
	var (
		flagKernel = flag.String("kernel", envPath("KERNELS_DIR", "linux"), "kernel source tree")
		flagRecipe = flag.String("recipe", envPath("TMP_DIR", "instrument"), "instrumentation recipe")
		flagReset  = flag.Bool("reset", false, "only remove generated lines")
	)
	defer tool.Init()()
	if *flagKernel == "" {
		tool.Failf("specify -kernel or set KERNELS_DIR")
	}
	if *flagReset {
		changed, err := kbuild.ResetTree(*flagKernel)
		if err != nil {
			tool.Fail(err)
		}
		log.Logf(0, "reset %v makefiles", changed)
		return
	}
	if *flagRecipe == "" {
		tool.Failf("specify -recipe or set TMP_DIR")
	}
	data, err := os.ReadFile(*flagRecipe)
	if err != nil {
		tool.Failf("failed to read recipe: %v", err)
	}
	recipes, err := kbuild.ParseRecipes(data)
	if err != nil {
		tool.Fail(err)
	}
	if err := kbuild.Instrument(*flagKernel, recipes); err != nil {
		tool.Fail(err)
	}
}

func envPath(env, name string) string {
	dir := os.Getenv(env)
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, name)
}
