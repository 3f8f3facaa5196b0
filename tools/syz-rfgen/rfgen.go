// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// syz-rfgen synthesizes candidate reads-from edges from a fuzzer memory access trace.
// It writes a normalized transcript of the trace and one "<from>_<to>_rf.dat" file
// per ordered pair of calls. A call name that repeats in the trace gets a ".N" suffix
// for its N-th repetition, so a trace with two write calls produces "write_write.1_rf.dat".
// The transcript is written only if the whole trace parses. Usage:
//
//	syz-rfgen -trace fuzzer.log -outdir rf
//	syz-rfgen -config rfgen.cfg -strategy naive -compare -verify
package main

import (
	"bufio"
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/kssb/rfsynth/pkg/log"
	"github.com/kssb/rfsynth/pkg/memtrace"
	"github.com/kssb/rfsynth/pkg/osutil"
	"github.com/kssb/rfsynth/pkg/readfrom"
	"github.com/kssb/rfsynth/pkg/rfconfig"
	"github.com/kssb/rfsynth/pkg/stat"
	"github.com/kssb/rfsynth/pkg/tool"
)

var (
	flagConfig     = flag.String("config", "", "config file (JSON or YAML), flags override its values")
	flagTrace      = flag.String("trace", "", "fuzzer log with the memory access trace")
	flagOutdir     = flag.String("outdir", "", "output directory for pair files")
	flagStrategy   = flag.String("strategy", "", "edge strategy: "+strings.Join(readfrom.Strategies(), ", "))
	flagTranscript = flag.String("transcript", "", "transcript file (default "+rfconfig.DefaultTranscript+")")
	flagProcs      = flag.Int("procs", 0, "number of parallel workers (0 means all CPUs)")
	flagMetrics    = flag.String("metrics", "", "write metrics in Prometheus text format to this file")
	flagCompare    = flag.Bool("compare", false, "print pairs where the other strategies disagree with the selected one")
	flagVerify     = flag.Bool("verify", false, "read back the transcript and pair files and check them against the trace")
)

type runFlags struct {
	compare bool
	verify  bool
}

func main() {
	defer tool.Init()()
	log.EnableLogCaching(1000, 1<<20)
	cfg, err := loadConfig()
	if err != nil {
		tool.Fail(err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, runFlags{compare: *flagCompare, verify: *flagVerify}, os.Stdout); err != nil {
		if !log.V(1) {
			fmt.Fprintf(os.Stderr, "recent log:\n%v", log.CachedLogOutput())
		}
		tool.Fail(err)
	}
	for _, ui := range stat.Collect(stat.Console) {
		log.Logf(0, "%-20v: %v", ui.Name, ui.Value)
	}
}

func loadConfig() (*rfconfig.Config, error) {
	cfg := rfconfig.Default()
	if *flagConfig != "" {
		var err error
		if cfg, err = rfconfig.LoadPartialFile(*flagConfig); err != nil {
			return nil, err
		}
	}
	// Only flags given explicitly override the config.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "trace":
			cfg.Trace = *flagTrace
		case "outdir":
			cfg.Outdir = *flagOutdir
		case "strategy":
			cfg.Strategy = *flagStrategy
		case "transcript":
			cfg.Transcript = *flagTranscript
		case "procs":
			cfg.Procs = *flagProcs
		case "metrics":
			cfg.Metrics = *flagMetrics
		}
	})
	if err := cfg.Complete(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *rfconfig.Config, flags runFlags, out io.Writer) error {
	tr, err := parse(cfg)
	if err != nil {
		return err
	}
	for i, name := range tr.FileNames() {
		c := tr.Calls[i]
		log.Logf(2, "%v: %v accesses, %v stores", name, len(c.Accesses), c.Stores())
	}
	opts := cfg.Options()
	files, err := readfrom.WriteDir(ctx, tr, cfg.Outdir, opts)
	if err != nil {
		return err
	}
	log.Logf(0, "wrote %v pair files for %v calls to %v", len(files), tr.Len(), cfg.Outdir)
	if flags.verify {
		if err := verify(tr, cfg, opts.Strategy); err != nil {
			return err
		}
	}
	if flags.compare {
		if err := printDiffs(tr, opts.Strategy, out); err != nil {
			return err
		}
	}
	if cfg.Metrics != "" {
		if err := writeMetrics(cfg.Metrics); err != nil {
			return err
		}
	}
	return nil
}

// parse writes the transcript into a temporary file and renames it on success,
// so a malformed trace never leaves a partial transcript behind.
func parse(cfg *rfconfig.Config) (*memtrace.Trace, error) {
	tmp := cfg.Transcript + ".tmp"
	tr, err := parseInto(cfg, tmp)
	if err != nil {
		os.Remove(tmp)
		return nil, err
	}
	if err := os.Rename(tmp, cfg.Transcript); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("failed to write transcript: %w", err)
	}
	return tr, nil
}

func parseInto(cfg *rfconfig.Config, transcript string) (*memtrace.Trace, error) {
	f, err := os.Create(transcript)
	if err != nil {
		return nil, fmt.Errorf("failed to create transcript: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	tr, err := memtrace.ParseFile(cfg.Trace, append(cfg.ParserOptions(), memtrace.WithTranscript(w))...)
	if err != nil {
		return nil, err
	}
	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("failed to write transcript: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to write transcript: %w", err)
	}
	return tr, nil
}

func verify(tr *memtrace.Trace, cfg *rfconfig.Config, strategy readfrom.Strategy) error {
	data, err := os.ReadFile(cfg.Transcript)
	if err != nil {
		return fmt.Errorf("failed to read transcript: %w", err)
	}
	written, err := memtrace.ParseTranscript(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("bad transcript %v: %w", cfg.Transcript, err)
	}
	buf := new(bytes.Buffer)
	if err := written.WriteTranscript(buf); err != nil {
		return err
	}
	if written.Len() != tr.Len() || written.NumAccesses() != tr.NumAccesses() || !bytes.Equal(buf.Bytes(), data) {
		return fmt.Errorf("transcript %v does not match the trace", cfg.Transcript)
	}
	pairs := readfrom.Synthesize(tr, strategy)
	for _, p := range pairs {
		edges, err := readfrom.ReadPairFile(filepath.Join(cfg.Outdir, p.File))
		if err != nil {
			return err
		}
		for e := range edges {
			if !p.Edges.Contains(e.Store, e.Load) {
				return fmt.Errorf("%v: unexpected edge %v", p.File, e)
			}
		}
		if edges.Len() != p.Edges.Len() {
			return fmt.Errorf("%v: has %v edges, want %v", p.File, edges.Len(), p.Edges.Len())
		}
	}
	log.Logf(0, "verified %v pair files with %v distinct edges", len(pairs), readfrom.Merge(pairs).Len())
	return nil
}

func printDiffs(tr *memtrace.Trace, selected readfrom.Strategy, out io.Writer) error {
	for _, name := range readfrom.Strategies() {
		if name == selected.Name() {
			continue
		}
		other, err := readfrom.Lookup(name)
		if err != nil {
			return err
		}
		diffs := readfrom.Compare(tr, selected, other)
		fmt.Fprintf(out, "%v vs %v: %v of %v pairs differ\n",
			selected.Name(), other.Name(), len(diffs), readfrom.NumPairs(tr.Len()))
		for _, d := range diffs {
			fmt.Fprintf(out, "--- %v\n%v", d.File, readfrom.RenderDiff(d.OnlyA, d.OnlyB))
		}
	}
	return nil
}

func writeMetrics(file string) error {
	buf := new(bytes.Buffer)
	if err := stat.WriteText(buf); err != nil {
		return err
	}
	if err := osutil.WriteFile(file, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
