// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package rfconfig

import (
	"fmt"

	"github.com/kssb/rfsynth/pkg/config"
	"github.com/kssb/rfsynth/pkg/memtrace"
	"github.com/kssb/rfsynth/pkg/readfrom"
)

const DefaultTranscript = "accesses.dat"

func LoadData(data []byte) (*Config, error) {
	cfg := Default()
	if err := config.LoadData(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Complete(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadFile(filename string) (*Config, error) {
	cfg, err := LoadPartialFile(filename)
	if err != nil {
		return nil, err
	}
	if err := cfg.Complete(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadPartialFile loads the config without validation,
// so that command line flags can fill in the missing parts before Complete.
func LoadPartialFile(filename string) (*Config, error) {
	cfg := Default()
	if err := config.LoadFile(filename, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Default() *Config {
	return &Config{
		Transcript: DefaultTranscript,
		Strategy:   readfrom.Default.Name(),
		Tag:        memtrace.DefaultTag,
		Marker:     memtrace.DefaultMarker,
	}
}

// Complete checks the config and fills in defaults for empty optional fields.
func (cfg *Config) Complete() error {
	if cfg.Trace == "" {
		return fmt.Errorf("config param trace is empty")
	}
	if cfg.Outdir == "" {
		return fmt.Errorf("config param outdir is empty")
	}
	if cfg.Procs < 0 {
		return fmt.Errorf("bad config param procs: %v, want >= 0", cfg.Procs)
	}
	if cfg.Transcript == "" {
		cfg.Transcript = DefaultTranscript
	}
	if cfg.Strategy == "" {
		cfg.Strategy = readfrom.Default.Name()
	}
	if _, err := readfrom.Lookup(cfg.Strategy); err != nil {
		return fmt.Errorf("bad config param strategy: %w", err)
	}
	if cfg.Tag == "" {
		cfg.Tag = memtrace.DefaultTag
	}
	if cfg.Marker == "" {
		cfg.Marker = memtrace.DefaultMarker
	}
	return nil
}

// ParserOptions returns memtrace options matching the config.
func (cfg *Config) ParserOptions() []memtrace.Option {
	return []memtrace.Option{
		memtrace.WithTag(cfg.Tag),
		memtrace.WithMarker(cfg.Marker),
	}
}

// Options returns synthesis options matching the config.
// The config must be completed.
func (cfg *Config) Options() readfrom.Options {
	s, err := readfrom.Lookup(cfg.Strategy)
	if err != nil {
		panic(err)
	}
	return readfrom.Options{
		Strategy: s,
		Procs:    cfg.Procs,
	}
}
