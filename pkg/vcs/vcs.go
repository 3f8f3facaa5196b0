// Copyright 2017 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package vcs provides read access to kernel git history
// and heuristics to find commits that fixed memory ordering bugs.
package vcs

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"time"

	"github.com/kssb/rfsynth/pkg/osutil"
)

type Repo interface {
	// ListCommits returns hashes of commits reachable from branch, newest first.
	// max <= 0 means no limit.
	ListCommits(branch string, max int) ([]string, error)
	// Commit returns commit metadata along with its patch against the first parent.
	Commit(hash string) (*Commit, error)
}

type Commit struct {
	Hash    string
	Parents []string
	Title   string
	Author  string
	Date    time.Time
	Body    string
	Patch   []byte
}

func (com *Commit) IsMerge() bool {
	return len(com.Parents) > 1
}

func (com *Commit) IsInitial() bool {
	return len(com.Parents) == 0
}

// Message returns the full commit message.
func (com *Commit) Message() string {
	if com.Body == "" {
		return com.Title
	}
	return com.Title + "\n\n" + com.Body
}

func NewRepo(dir string) (Repo, error) {
	if !osutil.IsExist(filepath.Join(dir, ".git")) {
		return nil, fmt.Errorf("%v is not a git checkout", dir)
	}
	return newGit(dir), nil
}

func CheckCommitHash(hash string) bool {
	if !gitHashRe.MatchString(hash) {
		return false
	}
	ln := len(hash)
	return ln == 8 || ln == 10 || ln == 12 || ln == 16 || ln == 20 || ln == 40
}

const gitTimeout = time.Hour

// runGit returns stdout of the git command, stderr is reported only on failure.
func runGit(dir string, args ...string) ([]byte, error) {
	cmd := osutil.Command("git", args...)
	cmd.Dir = dir
	stdout := new(bytes.Buffer)
	cmd.Stdout = stdout
	if _, err := osutil.Run(gitTimeout, cmd); err != nil {
		return nil, err
	}
	return stdout.Bytes(), nil
}

var gitHashRe = regexp.MustCompile("^[a-f0-9]+$")
