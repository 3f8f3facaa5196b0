// Copyright 2016 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package log is a thin wrapper around the standard log package with verbosity levels
// and an optional in-memory ring of recent messages.
//
// Messages up to verbosity 1 are kept in the ring even when they are not printed,
// so tools can dump the recent context when they fail.
package log

import (
	"flag"
	"fmt"
	golog "log"
	"strings"
	"sync"
	"time"
)

var (
	flagV       = flag.Int("vv", 0, "verbosity")
	mu          sync.Mutex
	recent      *ring
	prependTime = true // for testing
)

// ring holds up to len(entries) messages, but no more than maxMem bytes in total.
type ring struct {
	entries []string
	pos     int
	mem     int
	maxMem  int
}

func (r *ring) add(entry string) {
	r.mem -= len(r.entries[r.pos])
	r.entries[r.pos] = entry
	r.mem += len(entry)
	r.pos = (r.pos + 1) % len(r.entries)
	// Evict the oldest entries, but always keep the last one.
	for i := 0; i < len(r.entries)-1 && r.mem > r.maxMem; i++ {
		pos := (r.pos + i) % len(r.entries)
		r.mem -= len(r.entries[pos])
		r.entries[pos] = ""
	}
	if r.mem < 0 {
		panic("log cache size underflow")
	}
}

func (r *ring) String() string {
	buf := new(strings.Builder)
	for i := range r.entries {
		entry := r.entries[(r.pos+i)%len(r.entries)]
		if entry == "" {
			continue
		}
		buf.WriteString(entry)
		buf.WriteByte('\n')
	}
	return buf.String()
}

// EnableLogCaching keeps up to maxLines recent messages, but no more than maxMem bytes.
// Cached output can later be queried with CachedLogOutput.
func EnableLogCaching(maxLines, maxMem int) {
	mu.Lock()
	defer mu.Unlock()
	if recent != nil {
		Fatalf("log caching is already enabled")
	}
	if maxLines < 1 || maxMem < 1 {
		panic("invalid maxLines/maxMem")
	}
	recent = &ring{entries: make([]string, maxLines), maxMem: maxMem}
}

// CachedLogOutput returns cached messages, oldest first.
func CachedLogOutput() string {
	mu.Lock()
	defer mu.Unlock()
	if recent == nil {
		return ""
	}
	return recent.String()
}

// V reports whether messages of verbosity v are printed.
func V(v int) bool {
	return v <= *flagV
}

// SetVerbosity overrides the -vv flag.
func SetVerbosity(v int) {
	*flagV = v
}

func Logf(v int, msg string, args ...interface{}) {
	mu.Lock()
	if recent != nil && v <= 1 {
		entry := fmt.Sprintf(msg, args...)
		if prependTime {
			entry = time.Now().Format("2006/01/02 15:04:05 ") + entry
		}
		recent.add(entry)
	}
	mu.Unlock()
	if V(v) {
		golog.Printf(msg, args...)
	}
}

// Errorf logs a non-fatal error regardless of verbosity.
func Errorf(msg string, args ...interface{}) {
	Logf(0, "ERROR: "+msg, args...)
}

func Fatalf(msg string, args ...interface{}) {
	golog.Fatalf(msg, args...)
}
