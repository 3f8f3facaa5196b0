// Copyright 2020 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package tool

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
)

// profiler writes a CPU profile covering the tool run and a heap profile taken at exit.
type profiler struct {
	cpu    *os.File
	memory string
}

func startProfiling(cpuprof, memprof string) (*profiler, error) {
	p := &profiler{memory: memprof}
	if cpuprof == "" {
		return p, nil
	}
	f, err := os.Create(cpuprof)
	if err != nil {
		return nil, fmt.Errorf("failed to create cpu profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to start cpu profile: %w", err)
	}
	p.cpu = f
	return p, nil
}

func (p *profiler) stop() error {
	if p.cpu != nil {
		pprof.StopCPUProfile()
		if err := p.cpu.Close(); err != nil {
			return fmt.Errorf("failed to write cpu profile: %w", err)
		}
	}
	if p.memory == "" {
		return nil
	}
	f, err := os.Create(p.memory)
	if err != nil {
		return fmt.Errorf("failed to create memory profile: %w", err)
	}
	defer f.Close()
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("failed to write memory profile: %w", err)
	}
	return f.Close()
}

func installProfiling(cpuprof, memprof string) func() {
	p, err := startProfiling(cpuprof, memprof)
	if err != nil {
		Fail(err)
	}
	return func() {
		if err := p.stop(); err != nil {
			Fail(err)
		}
	}
}
