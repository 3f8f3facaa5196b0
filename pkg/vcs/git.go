// Copyright 2017 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package vcs

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type git struct {
	dir string
}

func newGit(dir string) *git {
	return &git{
		dir: dir,
	}
}

func (git *git) ListCommits(branch string, max int) ([]string, error) {
	args := []string{"rev-list"}
	if max > 0 {
		args = append(args, "--max-count", strconv.Itoa(max))
	}
	args = append(args, branch, "--")
	output, err := runGit(git.dir, args...)
	if err != nil {
		return nil, err
	}
	return strings.Fields(string(output)), nil
}

const commitSeparator = "---===rfsynth-commit-separator===---"

func (git *git) Commit(hash string) (*Commit, error) {
	output, err := runGit(git.dir, "show", "--no-color", "--first-parent", "--patch",
		"--format=%H%n%P%n%s%n%ae%n%ad%n%b%n"+commitSeparator, hash, "--")
	if err != nil {
		return nil, err
	}
	return gitParseCommit(output)
}

func gitParseCommit(output []byte) (*Commit, error) {
	header, patch, ok := bytes.Cut(output, []byte(commitSeparator))
	if !ok {
		return nil, fmt.Errorf("no commit separator in git show output: %q", output)
	}
	lines := bytes.Split(header, []byte{'\n'})
	if len(lines) < 5 || len(lines[0]) != 40 || !CheckCommitHash(string(lines[0])) {
		return nil, fmt.Errorf("unexpected git show output: %q", header)
	}
	const dateFormat = "Mon Jan 2 15:04:05 2006 -0700"
	date, err := time.Parse(dateFormat, string(lines[4]))
	if err != nil {
		return nil, fmt.Errorf("failed to parse date in git show output: %w\n%q", err, header)
	}
	com := &Commit{
		Hash:    string(lines[0]),
		Parents: strings.Fields(string(lines[1])),
		Title:   string(lines[2]),
		Author:  string(lines[3]),
		Date:    date,
		Body:    strings.TrimSpace(string(bytes.Join(lines[5:], []byte{'\n'}))),
		Patch:   bytes.TrimLeft(patch, "\n"),
	}
	return com, nil
}
