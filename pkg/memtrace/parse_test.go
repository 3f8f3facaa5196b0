// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package memtrace

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTrace = &Trace{Calls: []*Call{
	{
		Name: "openat",
		Accesses: []Access{
			{Inst: 0xffffffff81000010, Addr: 0xffff888000001000, Size: 8, Kind: Store, Timestamp: 0x1f},
			{Inst: 0xffffffff81000020, Addr: 0xffff888000001004, Size: 4, Kind: Load, Timestamp: 0x20},
		},
	},
	{
		Name: "write",
		Accesses: []Access{
			{Inst: 0xffffffff81000030, Addr: 0xffff888000001000, Size: 8, Kind: 2, Timestamp: 0x21},
			{Inst: 0xffffffff81000040, Addr: 0xffff888000002000, Size: 1, Kind: Store, Timestamp: 0x22},
		},
	},
	{
		Name: "write",
		Accesses: []Access{
			{Inst: 0xffffffff81000050, Addr: 0xffff888000002000, Size: 2, Kind: Load, Timestamp: 0x23},
		},
	},
}}

const testTranscript = `call: openat
ffffffff81000010 ffff888000001000 8 0 1f
ffffffff81000020 ffff888000001004 4 1 20
call: write
ffffffff81000030 ffff888000001000 8 2 21
ffffffff81000040 ffff888000002000 1 0 22
call: write
ffffffff81000050 ffff888000002000 2 1 23
`

func TestParseFile(t *testing.T) {
	transcript := new(bytes.Buffer)
	tr, err := ParseFile(filepath.Join("testdata", "trace.log"), WithTranscript(transcript))
	require.NoError(t, err)
	if diff := cmp.Diff(testTrace, tr); diff != "" {
		t.Fatal(diff)
	}
	assert.Equal(t, testTranscript, transcript.String())
	assert.Equal(t, 3, tr.Len())
	assert.Equal(t, 5, tr.NumAccesses())
	assert.Equal(t, 1, tr.Calls[0].Stores())
	assert.Equal(t, []string{"openat", "write", "write.1"}, tr.FileNames())

	_, err = ParseFile(filepath.Join("testdata", "nonexistent.log"))
	assert.Error(t, err)
}

func TestTranscript(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, testTrace.WriteTranscript(buf))
	assert.Equal(t, testTranscript, buf.String())

	tr, err := ParseTranscript(strings.NewReader(testTranscript))
	require.NoError(t, err)
	if diff := cmp.Diff(testTrace, tr); diff != "" {
		t.Fatal(diff)
	}

	for _, bad := range []string{
		"ffffffff81000010 ffff888000001000 8 0 1f\n",
		"call: read\nffffffff81000010 ffff888000001000 8 0\n",
		"call: read\nffffffff81000010 ffff888000001000 8 0 zz\n",
	} {
		_, err := ParseTranscript(strings.NewReader(bad))
		var malformed *MalformedLineError
		assert.True(t, errors.As(err, &malformed), bad)
	}
}

func TestParseOptions(t *testing.T) {
	const trace = `
KSSB: read
KSSB: cpu 1 ffffffff81000010 reads ffff888000001000 (size: 8, type: 1, timestamp:1)
[FUZZER] 2022/05/01 10:00:00 executing call ignored
`
	tr, err := Parse(strings.NewReader(trace), WithTag("KSSB:"), WithMarker("reads"))
	require.NoError(t, err)
	require.Equal(t, 1, tr.Len())
	assert.Equal(t, "read", tr.Calls[0].Name)
	assert.Equal(t, []Access{{Inst: 0xffffffff81000010, Addr: 0xffff888000001000,
		Size: 8, Kind: Load, Timestamp: 1}}, tr.Calls[0].Accesses)
}

func TestParseEmpty(t *testing.T) {
	tr, err := Parse(strings.NewReader("no trace lines\nat all\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, tr.Len())
	assert.Empty(t, tr.FileNames())

	// A call without accesses is still a call.
	tr, err = Parse(strings.NewReader("[FUZZER] 2022/05/01 10:00:00 executing call close\n"))
	require.NoError(t, err)
	require.Equal(t, 1, tr.Len())
	assert.Equal(t, "close", tr.Calls[0].Name)
	assert.Empty(t, tr.Calls[0].Accesses)
}

func TestParseMalformed(t *testing.T) {
	const call = "[FUZZER] 2022/05/01 10:00:00 executing call write\n"
	tests := []struct {
		name   string
		trace  string
		line   int
		reason string
	}{
		{
			name:   "before-call",
			trace:  "[FUZZER] 2022/05/01 10:00:00 ffffffff81000010 accesses ffff888000001000 (size: 8, type: 0, timestamp:1f)\n",
			line:   1,
			reason: "access before any call",
		},
		{
			name:   "too-few-tokens",
			trace:  call + "[FUZZER] 2022/05/01 10:00:00 ffffffff81000010 accesses ffff888000001000 (size: 8,\n",
			line:   2,
			reason: "want at least 11 tokens, got 8",
		},
		{
			name:   "bad-inst",
			trace:  call + "[FUZZER] 2022/05/01 10:00:00 xyz accesses ffff888000001000 (size: 8, type: 0, timestamp:1f)\n",
			line:   2,
			reason: "bad instruction",
		},
		{
			name:   "bad-addr",
			trace:  call + "[FUZZER] 2022/05/01 10:00:00 ffffffff81000010 accesses 0x (size: 8, type: 0, timestamp:1f)\n",
			line:   2,
			reason: "bad address",
		},
		{
			name:   "bad-size",
			trace:  call + "[FUZZER] 2022/05/01 10:00:00 ffffffff81000010 accesses ffff888000001000 (size: -8, type: 0, timestamp:1f)\n",
			line:   2,
			reason: "bad size",
		},
		{
			name:   "bad-kind",
			trace:  call + "[FUZZER] 2022/05/01 10:00:00 ffffffff81000010 accesses ffff888000001000 (size: 8, type: load, timestamp:1f)\n",
			line:   2,
			reason: "bad type",
		},
		{
			name:   "truncated-timestamp",
			trace:  call + "[FUZZER] 2022/05/01 10:00:00 ffffffff81000010 accesses ffff888000001000 (size: 8, type: 0, time:1f)\n",
			line:   2,
			reason: "truncated timestamp",
		},
		{
			name:   "bad-timestamp",
			trace:  call + "[FUZZER] 2022/05/01 10:00:00 ffffffff81000010 accesses ffff888000001000 (size: 8, type: 0, timestamp:1g)\n",
			line:   2,
			reason: "bad timestamp",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tr, err := Parse(strings.NewReader(test.trace))
			assert.Nil(t, tr)
			var malformed *MalformedLineError
			require.True(t, errors.As(err, &malformed), "got %v", err)
			assert.Equal(t, test.line, malformed.Line)
			assert.Equal(t, test.reason, malformed.Reason)
			assert.Contains(t, err.Error(), strings.Split(test.trace, "\n")[test.line-1])
		})
	}
}

func TestLine(t *testing.T) {
	a := Access{Addr: 0x1000}
	assert.Equal(t, a.Line(), Access{Addr: 0x1007}.Line())
	assert.NotEqual(t, a.Line(), Access{Addr: 0x1008}.Line())
	assert.NotEqual(t, a.Line(), Access{Addr: 0xfff}.Line())
	assert.True(t, Kind(0).IsStore())
	assert.False(t, Kind(0x2).IsStore())
	assert.Equal(t, "load", Kind(7).String())
	// Accesses print in the transcript layout, all fields in hex.
	assert.Equal(t, "ffffffff81000030 ffff888000001000 8 2 21", testTrace.Calls[1].Accesses[0].String())
	assert.Equal(t, "10 2000 10 0 1f", Access{Inst: 0x10, Addr: 0x2000, Size: 16, Timestamp: 31}.String())
}
