// Copyright 2016 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package symbolizer

import (
	"debug/elf"
	"fmt"
	"sort"
)

type Symbol struct {
	Name string
	Addr uint64
	Size uint64
}

// SymbolTable is a sorted list of text symbols of a binary.
type SymbolTable struct {
	symbols []Symbol
}

// NewSymbolTable creates a table from the given symbols.
func NewSymbolTable(symbols []Symbol) *SymbolTable {
	sorted := append([]Symbol(nil), symbols...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Addr < sorted[j].Addr
	})
	return &SymbolTable{symbols: sorted}
}

// ReadSymbolTable reads text symbols of the ELF binary bin.
func ReadSymbolTable(bin string) (*SymbolTable, error) {
	file, err := elf.Open(bin)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file %v: %w", bin, err)
	}
	defer file.Close()
	allSymbols, err := file.Symbols()
	if err != nil {
		return nil, fmt.Errorf("failed to read ELF symbols: %w", err)
	}
	var symbols []Symbol
	for _, symb := range allSymbols {
		if symb.Value == 0 || symb.Section < 0 || int(symb.Section) >= len(file.Sections) {
			continue
		}
		sect := file.Sections[symb.Section]
		isText := sect.Type == elf.SHT_PROGBITS &&
			sect.Flags&elf.SHF_ALLOC != 0 &&
			sect.Flags&elf.SHF_EXECINSTR != 0
		if !isText {
			continue
		}
		symbols = append(symbols, Symbol{Name: symb.Name, Addr: symb.Value, Size: symb.Size})
	}
	return NewSymbolTable(symbols), nil
}

func (tab *SymbolTable) Len() int {
	return len(tab.symbols)
}

// Find returns the symbol covering pc and the offset of pc in it.
// Symbols without size are assumed to extend up to the next symbol.
func (tab *SymbolTable) Find(pc uint64) (string, uint64) {
	idx := sort.Search(len(tab.symbols), func(i int) bool {
		return tab.symbols[i].Addr > pc
	})
	if idx == 0 {
		return "", 0
	}
	s := tab.symbols[idx-1]
	limit := s.Addr + s.Size
	if s.Size == 0 {
		limit = s.Addr + 4096
		if idx < len(tab.symbols) {
			limit = tab.symbols[idx].Addr
		}
	}
	if pc >= limit {
		return "", 0
	}
	return s.Name, pc - s.Addr
}
