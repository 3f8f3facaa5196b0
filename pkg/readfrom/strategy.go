// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package readfrom

import (
	"fmt"
	"sort"

	"github.com/kssb/rfsynth/pkg/memtrace"
)

// Strategy derives candidate reads-from edges from call ci to a later call cj.
// Implementations must not modify the calls.
//
// Both strategies compare addresses at cache line granularity only (see memtrace.Access.Line),
// access sizes and partial overlaps are not modelled.
type Strategy interface {
	Name() string
	ComputeEdges(ci, cj *memtrace.Call) EdgeSet
}

const (
	NaiveName = "naive"
	StoreName = "store"
)

var strategies = map[string]Strategy{
	NaiveName: Naive{},
	StoreName: StoreTracking{},
}

// Default is the strategy used when none is requested explicitly.
var Default Strategy = StoreTracking{}

func Lookup(name string) (Strategy, error) {
	if s, ok := strategies[name]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("unknown strategy %q, known strategies: %v", name, Strategies())
}

// Strategies returns names of all strategies.
func Strategies() []string {
	var names []string
	for name := range strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Naive pairs every store of ci with every access of cj to the same cache line.
// Accesses of cj are not filtered by kind, so store-to-store pairs are reported too,
// and nothing is ever consumed.
type Naive struct{}

func (Naive) Name() string {
	return NaiveName
}

func (Naive) ComputeEdges(ci, cj *memtrace.Call) EdgeSet {
	res := make(EdgeSet)
	byLine := make(map[uint64][]uint64)
	for _, acc := range cj.Accesses {
		byLine[acc.Line()] = append(byLine[acc.Line()], acc.Inst)
	}
	for _, store := range ci.Accesses {
		if !store.Kind.IsStore() {
			continue
		}
		for _, inst := range byLine[store.Line()] {
			res.Add(store.Inst, inst)
		}
	}
	return res
}

// StoreTracking models "last writer wins" per cache line.
// Only the last store of ci to a cache line is visible to cj. Loads of cj read from it,
// while a store of cj to the same line overwrites it, so no later access of cj can read
// from ci's store anymore.
type StoreTracking struct{}

func (StoreTracking) Name() string {
	return StoreName
}

func (StoreTracking) ComputeEdges(ci, cj *memtrace.Call) EdgeSet {
	res := make(EdgeSet)
	visible := lastStores(ci)
	for _, acc := range cj.Accesses {
		store, ok := visible[acc.Line()]
		if !ok {
			continue
		}
		if acc.Kind.IsStore() {
			delete(visible, acc.Line())
			continue
		}
		res.Add(store.Inst, acc.Inst)
	}
	return res
}

// lastStores returns the last store to every cache line in program order.
// A new map is built on each call, callers are free to modify it.
func lastStores(c *memtrace.Call) map[uint64]memtrace.Access {
	res := make(map[uint64]memtrace.Access)
	for _, acc := range c.Accesses {
		if acc.Kind.IsStore() {
			res[acc.Line()] = acc
		}
	}
	return res
}
