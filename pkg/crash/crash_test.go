// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package crash

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/kssb/rfsynth/pkg/osutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const findOutput = `/root/workdir/crashes/0a1b2c KASAN: use-after-free Read in foo
/root/workdir/crashes/3d4e5f SYZFAIL: failed to recv rpc
/root/workdir/crashes/6a7b8c WARNING in bar

/root/workdir/crashes/9d0e1f
/root/workdir/crashes/aabbcc lost connection to test machine
`

func TestParseTitles(t *testing.T) {
	crashes := ParseTitles([]byte(findOutput))
	assert.Equal(t, map[string]string{
		"0a1b2c": "KASAN: use-after-free Read in foo",
		"3d4e5f": "SYZFAIL: failed to recv rpc",
		"6a7b8c": "WARNING in bar",
		"aabbcc": "lost connection to test machine",
	}, crashes)
	assert.Equal(t, []Crash{
		{"0a1b2c", "KASAN: use-after-free Read in foo"},
		{"6a7b8c", "WARNING in bar"},
	}, Sorted(crashes))
}

func TestSuppressed(t *testing.T) {
	for title, suppressed := range map[string]bool{
		"":                            true,
		"SYZFAIL: executor failed":    true,
		"no output from test machine": true,
		"suppressed report":           true,
		"WARNING in foo":              false,
		"KASAN: SYZFAIL lookalike":    false,
	} {
		assert.Equal(t, suppressed, Suppressed(title), title)
	}
}

func TestMerge(t *testing.T) {
	total := map[string]string{"a": "WARNING in a", "b": "WARNING in b"}
	Merge(total, map[string]string{"b": "WARNING in b2", "c": "BUG in c"})
	assert.Equal(t, []Crash{
		{"c", "BUG in c"},
		{"a", "WARNING in a"},
		{"b", "WARNING in b2"},
	}, Sorted(total))
}

func TestLoadMachines(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "machines.json")
	require.NoError(t, osutil.WriteFile(file, []byte(`[
	{"name": "m1", "addr": "root@10.0.0.1", "port": "2222", "workdir": "/root/workdir"},
	{"name": "m2", "addr": "10.0.0.2", "workdir": "/root/workdir"}
]`)))
	machines, err := LoadMachines(file)
	require.NoError(t, err)
	assert.Equal(t, []Machine{
		{Name: "m1", Addr: "root@10.0.0.1", Port: "2222", Workdir: "/root/workdir"},
		{Name: "m2", Addr: "10.0.0.2", Workdir: "/root/workdir"},
	}, machines)
	assert.Equal(t, []string{"root@10.0.0.1", "-p", "2222",
		`find /root/workdir -name description -printf "%h " -exec cat {} \;`}, machines[0].sshArgs())

	require.NoError(t, osutil.WriteFile(file, []byte(`[{"name": "m1"}]`)))
	_, err = LoadMachines(file)
	assert.Error(t, err)
}

func TestGrabAll(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("needs /bin/sh")
	}
	dir := t.TempDir()
	output := filepath.Join(dir, "output")
	require.NoError(t, osutil.WriteFile(output, []byte(findOutput)))
	script := filepath.Join(dir, "ssh")
	// Fails for the "bad" host and prints canned find output otherwise.
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\n[ \"$1\" = bad ] && exit 255\ncat "+output+"\n"), 0755))
	defer func(old string) { sshBin = old }(sshBin)
	sshBin = script

	res, err := GrabAll([]Machine{
		{Name: "m1", Addr: "good", Workdir: "/root/workdir"},
		{Name: "m2", Addr: "good", Port: "22", Workdir: "/root/workdir"},
	})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Len(t, res[0], 4)
	assert.Equal(t, res[0], res[1])

	_, err = GrabAll([]Machine{{Name: "m3", Addr: "bad", Workdir: "/root/workdir"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "m3")
}
