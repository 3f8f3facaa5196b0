// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package memtrace

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kssb/rfsynth/pkg/log"
	"github.com/kssb/rfsynth/pkg/stat"
)

const (
	DefaultTag    = "[FUZZER]"
	DefaultMarker = "accesses"

	transcriptCallPrefix = "call: "
	timestampPrefixLen   = len("timestamp:")
	maxLineLen           = 1 << 20
)

// Positions of access fields in a whitespace-split access line
// (the tag, date and time take positions 0-2).
const (
	tokInst = 3
	tokAddr = 5
	tokSize = 7
	tokKind = 9
	tokTime = 10
	numToks = tokTime + 1
)

var (
	statCalls = stat.New("trace calls", "Number of parsed syscalls",
		stat.Console, stat.Prometheus("rfsynth_trace_calls"))
	statAccesses = stat.New("trace accesses", "Number of parsed memory accesses",
		stat.Console, stat.Prometheus("rfsynth_trace_accesses"))
	statCallAccesses = stat.New("accesses per call", "Distribution of accesses per syscall",
		stat.Distribution{})
)

// MalformedLineError is returned for a tagged trace line that does not match the expected layout.
// Parsing never recovers from it.
type MalformedLineError struct {
	Line   int
	Text   string
	Reason string
	Err    error
}

func (err *MalformedLineError) Error() string {
	if err.Err != nil {
		return fmt.Sprintf("malformed trace line %v: %v: %v\n%v", err.Line, err.Reason, err.Err, err.Text)
	}
	return fmt.Sprintf("malformed trace line %v: %v\n%v", err.Line, err.Reason, err.Text)
}

func (err *MalformedLineError) Unwrap() error {
	return err.Err
}

type Option func(*Parser)

// WithTag sets the prefix that marks trace lines. Lines without it are ignored.
func WithTag(tag string) Option {
	return func(p *Parser) {
		p.tag = tag
	}
}

// WithMarker sets the token that distinguishes access lines from call lines.
func WithMarker(marker string) Option {
	return func(p *Parser) {
		p.marker = marker
	}
}

// WithTranscript makes the parser echo every parsed call and access in normalized form to w.
func WithTranscript(w io.Writer) Option {
	return func(p *Parser) {
		p.transcript = w
	}
}

// Parser builds a Trace line by line.
type Parser struct {
	tag        string
	marker     string
	transcript io.Writer
	trace      *Trace
	cur        *Call
	line       int
}

func NewParser(opts ...Option) *Parser {
	p := &Parser{
		tag:    DefaultTag,
		marker: DefaultMarker,
		trace:  new(Trace),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Feed consumes the next line of the trace.
func (p *Parser) Feed(line string) error {
	p.line++
	if !strings.HasPrefix(line, p.tag) {
		return nil
	}
	if !strings.Contains(line, p.marker) {
		return p.newCall(line)
	}
	acc, err := p.parseAccess(line)
	if err != nil {
		return err
	}
	if p.cur == nil {
		return p.malformed(line, "access before any call", nil)
	}
	p.cur.Accesses = append(p.cur.Accesses, acc)
	if p.transcript != nil {
		if err := writeAccess(p.transcript, acc); err != nil {
			return fmt.Errorf("failed to write transcript: %w", err)
		}
	}
	return nil
}

// Trace returns the trace parsed so far.
func (p *Parser) Trace() *Trace {
	return p.trace
}

func (p *Parser) newCall(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	p.cur = &Call{Name: fields[len(fields)-1]}
	p.trace.Calls = append(p.trace.Calls, p.cur)
	if p.transcript != nil {
		if err := writeCall(p.transcript, p.cur.Name); err != nil {
			return fmt.Errorf("failed to write transcript: %w", err)
		}
	}
	return nil
}

func (p *Parser) parseAccess(line string) (Access, error) {
	toks := strings.Fields(strings.ReplaceAll(line, ",)", ""))
	if len(toks) < numToks {
		return Access{}, p.malformed(line, fmt.Sprintf("want at least %v tokens, got %v", numToks, len(toks)), nil)
	}
	ts := toks[tokTime]
	if len(ts) <= timestampPrefixLen {
		return Access{}, p.malformed(line, "truncated timestamp", nil)
	}
	var acc Access
	var kind uint64
	fields := []struct {
		name string
		tok  string
		val  *uint64
	}{
		{"instruction", toks[tokInst], &acc.Inst},
		{"address", toks[tokAddr], &acc.Addr},
		{"size", strings.TrimSuffix(toks[tokSize], ","), &acc.Size},
		{"type", strings.TrimSuffix(toks[tokKind], ","), &kind},
		{"timestamp", strings.TrimSuffix(ts[timestampPrefixLen:], ")"), &acc.Timestamp},
	}
	for _, f := range fields {
		v, err := parseHex(f.tok)
		if err != nil {
			return Access{}, p.malformed(line, "bad "+f.name, err)
		}
		*f.val = v
	}
	acc.Kind = Kind(kind)
	return acc, nil
}

func (p *Parser) malformed(line, reason string, err error) error {
	return &MalformedLineError{
		Line:   p.line,
		Text:   line,
		Reason: reason,
		Err:    err,
	}
}

func parseHex(tok string) (uint64, error) {
	return strconv.ParseUint(strings.TrimPrefix(tok, "0x"), 16, 64)
}

// Parse reads the whole trace from r.
func Parse(r io.Reader, opts ...Option) (*Trace, error) {
	p := NewParser(opts...)
	s := bufio.NewScanner(r)
	s.Buffer(nil, maxLineLen)
	for s.Scan() {
		if err := p.Feed(s.Text()); err != nil {
			return nil, err
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}
	tr := p.Trace()
	statCalls.Add(tr.Len())
	statAccesses.Add(tr.NumAccesses())
	for _, c := range tr.Calls {
		statCallAccesses.Add(len(c.Accesses))
	}
	log.Logf(1, "parsed trace: %v calls, %v accesses", tr.Len(), tr.NumAccesses())
	return tr, nil
}

func ParseFile(file string, opts ...Option) (*Trace, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace: %w", err)
	}
	defer f.Close()
	return Parse(f, opts...)
}

// ParseTranscript reads back the normalized text produced by WriteTranscript.
func ParseTranscript(r io.Reader) (*Trace, error) {
	tr := new(Trace)
	var cur *Call
	s := bufio.NewScanner(r)
	s.Buffer(nil, maxLineLen)
	for ln := 1; s.Scan(); ln++ {
		line := s.Text()
		if line == "" {
			continue
		}
		if name, ok := strings.CutPrefix(line, transcriptCallPrefix); ok {
			cur = &Call{Name: name}
			tr.Calls = append(tr.Calls, cur)
			continue
		}
		if cur == nil {
			return nil, &MalformedLineError{Line: ln, Text: line, Reason: "access before any call"}
		}
		toks := strings.Fields(line)
		if len(toks) != 5 {
			return nil, &MalformedLineError{Line: ln, Text: line,
				Reason: fmt.Sprintf("want 5 fields, got %v", len(toks))}
		}
		var vals [5]uint64
		for i, tok := range toks {
			v, err := parseHex(tok)
			if err != nil {
				return nil, &MalformedLineError{Line: ln, Text: line, Reason: "bad number", Err: err}
			}
			vals[i] = v
		}
		cur.Accesses = append(cur.Accesses, Access{
			Inst:      vals[0],
			Addr:      vals[1],
			Size:      vals[2],
			Kind:      Kind(vals[3]),
			Timestamp: vals[4],
		})
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}
	return tr, nil
}
