// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package rfconfig holds the configuration of the reads-from synthesizer.
package rfconfig

type Config struct {
	// Fuzzer log with the memory access trace.
	Trace string `json:"trace" yaml:"trace"`
	// Directory that receives one "<from>_<to>_rf.dat" file per call pair.
	Outdir string `json:"outdir" yaml:"outdir"`
	// Normalized copy of all parsed calls and accesses ("accesses.dat" by default).
	// Relative paths are resolved against the current directory.
	Transcript string `json:"transcript,omitempty" yaml:"transcript,omitempty"`
	// Edge computation strategy: "store" (default) or "naive".
	Strategy string `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	// Number of pair files computed in parallel (0 means all CPUs).
	Procs int `json:"procs,omitempty" yaml:"procs,omitempty"`
	// Prefix of trace lines, other lines are ignored ("[FUZZER]" by default).
	Tag string `json:"tag,omitempty" yaml:"tag,omitempty"`
	// Token that distinguishes access lines from call lines ("accesses" by default).
	Marker string `json:"marker,omitempty" yaml:"marker,omitempty"`
	// If set, metrics are written there in Prometheus text format after the run (optional).
	Metrics string `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}
