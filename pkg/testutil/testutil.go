// Copyright 2022 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package testutil

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/kssb/rfsynth/pkg/memtrace"
)

func IterCount() int {
	iters := 1000
	if testing.Short() {
		iters /= 10
	}
	return iters
}

func RandSource(t *testing.T) rand.Source {
	seed := time.Now().UnixNano()
	if fixed := os.Getenv("RF_SEED"); fixed != "" {
		seed, _ = strconv.ParseInt(fixed, 0, 64)
	}
	if os.Getenv("CI") != "" {
		seed = 0 // required for deterministic coverage reports
	}
	t.Logf("seed=%v", seed)
	return rand.NewSource(seed)
}

// RandTrace generates a trace with the given number of calls and up to maxAccesses accesses per call.
// Addresses fall into a few cache lines, so that calls often touch the same lines.
func RandTrace(r *rand.Rand, calls, maxAccesses int) *memtrace.Trace {
	tr := new(memtrace.Trace)
	ts := uint64(0)
	for i := 0; i < calls; i++ {
		c := &memtrace.Call{Name: fmt.Sprintf("call%v", r.Intn(calls))}
		for n := r.Intn(maxAccesses + 1); n > 0; n-- {
			ts++
			c.Accesses = append(c.Accesses, memtrace.Access{
				Inst:      0xffffffff81000000 + uint64(r.Intn(64)),
				Addr:      0xffff888000001000 + uint64(r.Intn(64)),
				Size:      1 << r.Intn(4),
				Kind:      memtrace.Kind(r.Intn(3)),
				Timestamp: ts,
			})
		}
		tr.Calls = append(tr.Calls, c)
	}
	return tr
}
