// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package kbuild enables KSSB memory access instrumentation for parts of a kernel tree
// by editing kbuild Makefiles.
//
// A recipe has one "<directive>: <path>" entry per line. Directive F instruments
// a single object file (path is the source file), D instruments a whole directory,
// and E additionally exports the setting to subdirectories:
//
//	F: mm/slub.c
//	DE: kernel/sched
package kbuild

import (
	"bufio"
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kssb/rfsynth/pkg/log"
	"github.com/kssb/rfsynth/pkg/osutil"
)

const (
	Makefile   = "Makefile"
	instrument = "KSSB_INSTRUMENT"
	// Lines with this comment are written by hand and survive Reset.
	forceComment = "# KSSB force"
	autoComment  = " # auto generated"
)

type Recipe struct {
	Path   string
	File   bool
	Export bool
}

func (r Recipe) String() string {
	directive := "D"
	if r.File {
		directive = "F"
	}
	if r.Export {
		directive += "E"
	}
	return directive + ": " + r.Path
}

// ParseRecipes parses a recipe file, empty lines and lines starting with # are ignored.
func ParseRecipes(data []byte) ([]Recipe, error) {
	var recipes []Recipe
	s := bufio.NewScanner(bytes.NewReader(data))
	for ln := 1; s.Scan(); ln++ {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		directive, path, ok := strings.Cut(line, ": ")
		if !ok || path == "" {
			return nil, fmt.Errorf("line %v: want <directive>: <path>, got %q", ln, line)
		}
		var r Recipe
		var dir bool
		for _, c := range directive {
			switch c {
			case 'F':
				r.File = true
			case 'D':
				dir = true
			case 'E':
				r.Export = true
			default:
				return nil, fmt.Errorf("line %v: unknown directive %q", ln, c)
			}
		}
		if r.File == dir {
			return nil, fmt.Errorf("line %v: directive %q must have exactly one of F and D", ln, directive)
		}
		r.Path = strings.TrimSuffix(path, "/")
		recipes = append(recipes, r)
	}
	return recipes, s.Err()
}

// Reset removes auto generated instrumentation lines from the makefile.
// Returns whether the makefile was changed.
func Reset(makefile string) (bool, error) {
	lines, err := osutil.ReadLines(makefile)
	if err != nil {
		return false, err
	}
	var keep []string
	for _, line := range lines {
		if !strings.Contains(line, instrument) || strings.Contains(line, forceComment) {
			keep = append(keep, line)
		}
	}
	if len(keep) == len(lines) {
		return false, nil
	}
	log.Logf(1, "resetting %v", makefile)
	return true, writeLines(makefile, keep)
}

// ResetTree resets all makefiles in the kernel tree and returns the number of changed ones.
func ResetTree(kernel string) (int, error) {
	changed := 0
	err := osutil.Walk(kernel, Makefile, func(path string) error {
		ok, err := Reset(path)
		if ok {
			changed++
		}
		return err
	})
	return changed, err
}

// Apply adds instrumentation lines for the recipe right after the leading comment block
// of the corresponding makefile. Lines that are already present are not duplicated.
// Missing makefiles and source files are reported and skipped.
func Apply(kernel string, r Recipe) (bool, error) {
	dir, lines := r.Path, []string{instrument + " := y" + autoComment}
	if r.File {
		if !osutil.IsExist(filepath.Join(kernel, r.Path)) {
			log.Errorf("source file does not exist: %v", r.Path)
			return false, nil
		}
		base := filepath.Base(r.Path)
		obj := strings.TrimSuffix(base, filepath.Ext(base)) + ".o"
		dir, lines = filepath.Dir(r.Path), []string{instrument + "_" + obj + " := y" + autoComment}
	}
	if r.Export {
		lines = append(lines, "export "+instrument+autoComment)
	}
	makefile := filepath.Join(kernel, dir, Makefile)
	if !osutil.IsExist(makefile) {
		log.Errorf("makefile does not exist: %v", makefile)
		return false, nil
	}
	old, err := osutil.ReadLines(makefile)
	if err != nil {
		return false, err
	}
	present := make(map[string]bool)
	for _, line := range old {
		present[line] = true
	}
	var add []string
	for _, line := range lines {
		if !present[line] {
			add = append(add, line)
		}
	}
	if len(add) == 0 {
		return false, nil
	}
	pos := 0
	for pos < len(old) && strings.HasPrefix(old[pos], "#") {
		pos++
	}
	res := append([]string{}, old[:pos]...)
	res = append(res, add...)
	res = append(res, old[pos:]...)
	log.Logf(1, "modifying %v", makefile)
	return true, writeLines(makefile, res)
}

// Instrument resets the kernel tree and applies all recipes.
func Instrument(kernel string, recipes []Recipe) error {
	reset, err := ResetTree(kernel)
	if err != nil {
		return err
	}
	modified := 0
	for _, r := range recipes {
		ok, err := Apply(kernel, r)
		if err != nil {
			return fmt.Errorf("%v: %w", r, err)
		}
		if ok {
			modified++
		}
	}
	log.Logf(0, "reset %v makefiles, applied %v recipes to %v makefiles", reset, len(recipes), modified)
	return nil
}

func writeLines(file string, lines []string) error {
	data := ""
	if len(lines) != 0 {
		data = strings.Join(lines, "\n") + "\n"
	}
	return osutil.WriteFile(file, []byte(data))
}
