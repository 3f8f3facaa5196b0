// Copyright 2017 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package osutil

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsExist(t *testing.T) {
	if f := os.Args[0]; !IsExist(f) {
		t.Fatalf("executable %v does not exist", f)
	}
	if f := os.Args[0] + "-foo-bar-buz"; IsExist(f) {
		t.Fatalf("file %v exists", f)
	}
}

func TestReadLines(t *testing.T) {
	file := filepath.Join(t.TempDir(), "lines")
	require.NoError(t, WriteFile(file, []byte("a\n\nb c\n")))
	lines, err := ReadLines(file)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "", "b c"}, lines)
	_, err = ReadLines(file + ".missing")
	assert.Error(t, err)
}

func TestWalk(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, MkdirAll(filepath.Join(dir, "a", "b")))
	for _, f := range []string{"Makefile", "a/Makefile", "a/b/Makefile", "a/b/Kconfig"} {
		require.NoError(t, WriteFile(filepath.Join(dir, filepath.FromSlash(f)), nil))
	}
	var found []string
	err := Walk(dir, "Makefile", func(path string) error {
		rel, err := filepath.Rel(dir, path)
		found = append(found, filepath.ToSlash(rel))
		return err
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Makefile", "a/Makefile", "a/b/Makefile"}, found)
}

func TestRunCmd(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("no sh")
	}
	out, err := RunCmd(time.Minute, "", "sh", "-c", "echo foo")
	require.NoError(t, err)
	assert.Equal(t, "foo\n", string(out))

	_, err = RunCmd(time.Minute, "", "sh", "-c", "echo bar; exit 3")
	var verr *VerboseError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 3, verr.ExitCode)
	assert.Equal(t, "bar\n", string(verr.Output))

	err = PrependContext("context", err)
	assert.Contains(t, err.Error(), "context: failed to run")
}
