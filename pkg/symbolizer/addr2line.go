// Copyright 2016 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package symbolizer

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ianlancetaylor/demangle"
	"github.com/kssb/rfsynth/pkg/log"
	"github.com/kssb/rfsynth/pkg/osutil"
)

type addr2Line struct {
	bin      string
	interner Interner

	mu      sync.Mutex
	symbols map[string]*SymbolTable
}

const addr2LineTimeout = 10 * time.Minute

// Symbolize runs "addr2line -afi" over all pcs at once.
// Functions that addr2line cannot name are looked up in the ELF symbol table.
func (s *addr2Line) Symbolize(bin string, pcs ...uint64) ([]Frame, error) {
	if len(pcs) == 0 {
		return nil, nil
	}
	args := []string{"-afi", "-e", bin}
	for _, pc := range pcs {
		args = append(args, fmt.Sprintf("0x%x", pc))
	}
	cmd := osutil.Command(s.bin, args...)
	stdout := new(bytes.Buffer)
	cmd.Stdout = stdout
	if _, err := osutil.Run(addr2LineTimeout, cmd); err != nil {
		return nil, osutil.PrependContext("addr2line", err)
	}
	frames, err := s.parse(stdout.Bytes())
	if err != nil {
		return nil, err
	}
	for i := range frames {
		if frames[i].Func != "??" {
			continue
		}
		if name := s.findSymbol(bin, frames[i].PC); name != "" {
			frames[i].Func = name
		}
	}
	return frames, nil
}

func (s *addr2Line) Close() {}

// parse parses output of "addr2line -afi". For every input address it prints the address,
// then function and file:line pairs starting from the innermost inlined function.
func (s *addr2Line) parse(output []byte) ([]Frame, error) {
	var frames []Frame
	var pc uint64
	first := 0
	sc := bufio.NewScanner(bytes.NewReader(output))
	for sc.Scan() {
		ln := sc.Text()
		if strings.HasPrefix(ln, "0x") {
			v, err := strconv.ParseUint(ln, 0, 64)
			if err != nil {
				return nil, fmt.Errorf("failed to parse pc in addr2line output: %w", err)
			}
			markOutermost(frames, first)
			pc, first = v, len(frames)
			continue
		}
		if pc == 0 {
			return nil, fmt.Errorf("unexpected addr2line output line %q", ln)
		}
		fn := demangle.Filter(ln, demangle.NoParams)
		if !sc.Scan() {
			return nil, fmt.Errorf("no location for function %v in addr2line output", fn)
		}
		file, line := parseLocation(sc.Text())
		frames = append(frames, Frame{
			PC:     pc,
			Func:   s.interner.Do(fn),
			File:   s.interner.Do(file),
			Line:   line,
			Inline: true,
		})
	}
	markOutermost(frames, first)
	return frames, sc.Err()
}

// markOutermost marks the last frame of the pc that starts at first as the non-inlined one.
func markOutermost(frames []Frame, first int) {
	if len(frames) > first {
		frames[len(frames)-1].Inline = false
	}
}

// parseLocation parses "file:line" optionally followed by " (discriminator N)".
// Unknown locations ("??:0", "??:?") return line 0.
func parseLocation(ln string) (string, int) {
	if paren := strings.Index(ln, " ("); paren != -1 {
		ln = ln[:paren]
	}
	colon := strings.LastIndexByte(ln, ':')
	if colon == -1 {
		return ln, 0
	}
	line, err := strconv.Atoi(ln[colon+1:])
	if err != nil {
		line = 0
	}
	return ln[:colon], line
}

func (s *addr2Line) findSymbol(bin string, pc uint64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.symbols == nil {
		s.symbols = make(map[string]*SymbolTable)
	}
	tab, ok := s.symbols[bin]
	if !ok {
		var err error
		if tab, err = ReadSymbolTable(bin); err != nil {
			log.Logf(1, "failed to read symbols of %v: %v", bin, err)
		}
		s.symbols[bin] = tab
	}
	if tab == nil {
		return ""
	}
	name, off := tab.Find(pc)
	if name == "" {
		return ""
	}
	return fmt.Sprintf("%v+0x%x", name, off)
}
