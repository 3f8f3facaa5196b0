// Copyright 2016 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRing(t *testing.T) {
	r := &ring{entries: make([]string, 4), maxMem: 20}
	tests := []struct{ str, want string }{
		{"a", "a\n"},
		{"bb", "a\nbb\n"},
		{"ccc", "a\nbb\nccc\n"},
		{"dddd", "a\nbb\nccc\ndddd\n"},
		{"eeeee", "bb\nccc\ndddd\neeeee\n"},
		{"ffffff", "ccc\ndddd\neeeee\nffffff\n"},
		{"ggggggg", "eeeee\nffffff\nggggggg\n"},
		{"hhhhhhhh", "ggggggg\nhhhhhhhh\n"},
		{"jjjjjjjjjjjjjjjjjjjjjjjjj", "jjjjjjjjjjjjjjjjjjjjjjjjj\n"},
	}
	for _, test := range tests {
		r.add(test.str)
		assert.Equal(t, test.want, r.String(), "wrote %q", test.str)
	}
}

func TestCaching(t *testing.T) {
	assert.Empty(t, CachedLogOutput())
	EnableLogCaching(4, 100)
	defer func() { recent = nil }()
	prependTime = false
	defer func() { prependTime = true }()

	// Level 1 is not printed by default, but is still cached.
	assert.False(t, V(1))
	Logf(1, "pair %v", "A_B_rf.dat")
	Logf(0, "written")
	// Verbose messages are not cached.
	Logf(2, "kkkk")
	assert.Equal(t, "pair A_B_rf.dat\nwritten\n", CachedLogOutput())
}

func TestVerbosity(t *testing.T) {
	assert.True(t, V(0), "level 0 must be always printed")
	assert.False(t, V(1), "level 1 printed with default verbosity")
	SetVerbosity(2)
	defer SetVerbosity(0)
	assert.True(t, V(2))
	assert.False(t, V(3))
}
