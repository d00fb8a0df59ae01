// Package split turns one input line into the multi-line payload fed to a
// subprocess: every delimiter occurrence becomes a line break.
package split

import (
	"bytes"
	"fmt"
	"regexp"
)

var newline = []byte("\n")

// Splitter expands a raw input line. Implementations must accept empty input.
type Splitter interface {
	Split(line []byte) []byte
}

type literal struct {
	delim []byte
}

// Literal returns a Splitter replacing every occurrence of delim by a line
// break. An empty delim returns the line unchanged.
func Literal(delim string) Splitter {
	return literal{delim: []byte(delim)}
}

func (l literal) Split(line []byte) []byte {
	if len(l.delim) == 0 {
		return bytes.Clone(line)
	}
	return bytes.ReplaceAll(line, l.delim, newline)
}

type pattern struct {
	re *regexp.Regexp
}

// Regexp returns a Splitter replacing every match of re by a line break.
func Regexp(re *regexp.Regexp) Splitter {
	if re == nil {
		panic("re is nil")
	}
	return pattern{re: re}
}

func (p pattern) Split(line []byte) []byte {
	return p.re.ReplaceAllLiteral(line, newline)
}

// New returns a pattern splitter when expr is not empty, a literal one otherwise.
func New(delim, expr string) (Splitter, error) {
	if expr == "" {
		return Literal(delim), nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compiling regex %q: %w", expr, err)
	}
	return Regexp(re), nil
}
