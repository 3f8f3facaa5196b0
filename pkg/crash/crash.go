// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package crash collects titles of crashes found by fuzzing machines.
// Every crash directory in a manager workdir holds a "description" file with the crash title.
package crash

import (
	"bufio"
	"bytes"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/kssb/rfsynth/pkg/config"
	"github.com/kssb/rfsynth/pkg/log"
	"github.com/kssb/rfsynth/pkg/osutil"
	"golang.org/x/sync/errgroup"
)

type Machine struct {
	Name string `json:"name" yaml:"name"`
	// Host for ssh, may include the user (user@host).
	Addr string `json:"addr" yaml:"addr"`
	// Optional ssh port.
	Port    string `json:"port,omitempty" yaml:"port,omitempty"`
	Workdir string `json:"workdir" yaml:"workdir"`
}

// LoadMachines loads a JSON or YAML list of machines.
func LoadMachines(file string) ([]Machine, error) {
	var machines []Machine
	if err := config.LoadFile(file, &machines); err != nil {
		return nil, err
	}
	for i, m := range machines {
		if m.Name == "" || m.Addr == "" || m.Workdir == "" {
			return nil, fmt.Errorf("machine #%v: name, addr and workdir are required", i)
		}
	}
	return machines, nil
}

var (
	sshBin     = "ssh"
	sshTimeout = 10 * time.Minute
)

func (m Machine) sshArgs() []string {
	args := []string{m.Addr}
	if m.Port != "" {
		args = append(args, "-p", m.Port)
	}
	find := fmt.Sprintf(`find %v -name description -printf "%%h " -exec cat {} \;`, m.Workdir)
	return append(args, find)
}

// Grab returns titles of all crashes on the machine keyed by crash id.
func Grab(m Machine) (map[string]string, error) {
	cmd := osutil.Command(sshBin, m.sshArgs()...)
	stdout := new(bytes.Buffer)
	cmd.Stdout = stdout
	if _, err := osutil.Run(sshTimeout, cmd); err != nil {
		return nil, osutil.PrependContext(m.Name, err)
	}
	crashes := ParseTitles(stdout.Bytes())
	log.Logf(1, "%v: %v crashes", m.Name, len(crashes))
	return crashes, nil
}

// GrabAll grabs crashes from all machines in parallel. The result is in the order of machines.
func GrabAll(machines []Machine) ([]map[string]string, error) {
	res := make([]map[string]string, len(machines))
	var g errgroup.Group
	for i, m := range machines {
		g.Go(func() error {
			crashes, err := Grab(m)
			res[i] = crashes
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

// ParseTitles parses "<crash dir> <title>" lines.
func ParseTitles(output []byte) map[string]string {
	crashes := make(map[string]string)
	s := bufio.NewScanner(bytes.NewReader(output))
	for s.Scan() {
		dir, title, ok := strings.Cut(strings.TrimSpace(s.Text()), " ")
		title = strings.TrimSpace(title)
		if !ok || title == "" {
			continue
		}
		crashes[path.Base(dir)] = title
	}
	return crashes
}

var suppressedPrefixes = []string{
	"SYZFAIL",
	"lost connection",
	"no output",
	"suppressed",
}

// Suppressed returns true for titles that do not denote kernel bugs.
func Suppressed(title string) bool {
	if title == "" {
		return true
	}
	for _, prefix := range suppressedPrefixes {
		if strings.HasPrefix(title, prefix) {
			return true
		}
	}
	return false
}

// Merge adds crashes from src to dst, src wins on duplicate ids.
func Merge(dst, src map[string]string) {
	for id, title := range src {
		dst[id] = title
	}
}

type Crash struct {
	ID    string
	Title string
}

// Sorted returns non-suppressed crashes sorted by title.
func Sorted(crashes map[string]string) []Crash {
	var res []Crash
	for id, title := range crashes {
		if !Suppressed(title) {
			res = append(res, Crash{id, title})
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Title != res[j].Title {
			return res[i].Title < res[j].Title
		}
		return res[i].ID < res[j].ID
	})
	return res
}
