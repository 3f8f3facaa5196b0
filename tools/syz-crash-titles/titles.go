// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// syz-crash-titles grabs titles of crashes found by all fuzzing machines over ssh
// and prints them sorted by title, skipping infrastructure failures. Usage:
//
//	syz-crash-titles -machines machines.json -all
package main

import (
	"flag"
	"fmt"

	"github.com/kssb/rfsynth/pkg/crash"
	"github.com/kssb/rfsynth/pkg/tool"
)

func main() {
	var (
		flagMachines = flag.String("machines", "machines.json", "JSON or YAML list of machines")
		flagAll      = flag.Bool("all", false, "print crashes of every machine too")
	)
	defer tool.Init()()
	machines, err := crash.LoadMachines(*flagMachines)
	if err != nil {
		tool.Fail(err)
	}
	perMachine, err := crash.GrabAll(machines)
	if err != nil {
		tool.Fail(err)
	}
	total := make(map[string]string)
	for i, crashes := range perMachine {
		if *flagAll {
			printCrashes(machines[i].Name, crashes)
		}
		crash.Merge(total, crashes)
	}
	printCrashes("total", total)
}

func printCrashes(name string, crashes map[string]string) {
	fmt.Println(name)
	for _, c := range crash.Sorted(crashes) {
		fmt.Printf("  %v    %v\n", c.ID, c.Title)
	}
}
