// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package vcs

import (
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/kssb/rfsynth/pkg/osutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGitParseCommit(t *testing.T) {
	output := []byte(`2b3e9b7d2c5f3b1e6f2a0d7c4e9a8b1c3d5e7f90
0a1b2c3d4e5f60718293a4b5c6d7e8f901234567 1234567890abcdef1234567890abcdef12345678
sched: add missing barrier
author@kernel.org
Tue Mar 5 10:11:12 2019 +0100
Some long description.

Signed-off-by: Author <author@kernel.org>
` + commitSeparator + `

diff --git a/a.c b/a.c
`)
	com, err := gitParseCommit(output)
	require.NoError(t, err)
	assert.Equal(t, "2b3e9b7d2c5f3b1e6f2a0d7c4e9a8b1c3d5e7f90", com.Hash)
	assert.Equal(t, []string{"0a1b2c3d4e5f60718293a4b5c6d7e8f901234567",
		"1234567890abcdef1234567890abcdef12345678"}, com.Parents)
	assert.True(t, com.IsMerge())
	assert.Equal(t, "sched: add missing barrier", com.Title)
	assert.Equal(t, "author@kernel.org", com.Author)
	assert.Equal(t, time.Date(2019, 3, 5, 9, 11, 12, 0, time.UTC), com.Date.UTC())
	assert.Equal(t, "Some long description.\n\nSigned-off-by: Author <author@kernel.org>", com.Body)
	assert.Equal(t, "diff --git a/a.c b/a.c\n", string(com.Patch))

	for _, bad := range []string{
		"no separator",
		"short\n" + commitSeparator,
		"2b3e9b7d2c5f3b1e6f2a0d7c4e9a8b1c3d5e7fzz\n\ntitle\nauthor\nTue Mar 5 10:11:12 2019 +0100\n" + commitSeparator,
		"2b3e9b7d2c5f3b1e6f2a0d7c4e9a8b1c3d5e7f90\n\ntitle\nauthor\nyesterday\n" + commitSeparator,
	} {
		_, err := gitParseCommit([]byte(bad))
		assert.Error(t, err, bad)
	}
}

func TestCheckCommitHash(t *testing.T) {
	assert.True(t, CheckCommitHash("2b3e9b7d2c5f3b1e6f2a0d7c4e9a8b1c3d5e7f90"))
	assert.True(t, CheckCommitHash("2b3e9b7d2c5f"))
	assert.False(t, CheckCommitHash("2b3e9b7"))
	assert.False(t, CheckCommitHash("2b3e9b7d2c5g"))
}

func TestGitRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not installed")
	}
	dir := t.TempDir()
	run := func(args ...string) {
		args = append([]string{"-c", "user.name=Test", "-c", "user.email=test@rfsynth.org"}, args...)
		_, err := osutil.RunCmd(time.Minute, dir, "git", args...)
		require.NoError(t, err)
	}
	_, err := NewRepo(dir)
	assert.Error(t, err)
	run("init")
	require.NoError(t, osutil.WriteFile(filepath.Join(dir, "a.c"), []byte("int a;\n")))
	run("add", "a.c")
	run("commit", "-m", "initial")
	require.NoError(t, osutil.WriteFile(filepath.Join(dir, "a.c"), []byte("int a;\nvoid f(void) { smp_mb(); }\n")))
	run("commit", "-a", "-m", "add barrier", "-m", "Fixes a memory barrier issue.")

	repo, err := NewRepo(dir)
	require.NoError(t, err)
	commits, err := repo.ListCommits("HEAD", 0)
	require.NoError(t, err)
	require.Len(t, commits, 2)
	limited, err := repo.ListCommits("HEAD", 1)
	require.NoError(t, err)
	assert.Equal(t, commits[:1], limited)

	com, err := repo.Commit(commits[0])
	require.NoError(t, err)
	assert.Equal(t, commits[0], com.Hash)
	assert.Equal(t, []string{commits[1]}, com.Parents)
	assert.Equal(t, "add barrier", com.Title)
	assert.Equal(t, "Fixes a memory barrier issue.", com.Body)
	assert.Contains(t, string(com.Patch), "+void f(void) { smp_mb(); }")

	info, ok, err := new(BarrierAnalyzer).Interesting(com)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, info.MessageHint)

	initial, err := repo.Commit(commits[1])
	require.NoError(t, err)
	assert.True(t, initial.IsInitial())

	_, err = repo.Commit("0000000000000000000000000000000000000000")
	assert.Error(t, err)
}
