package types

import (
	"fmt"
	"strings"
)

// ErrorKind categorizes parse failures.
type ErrorKind string

const (
	// KindStructural covers documents with the wrong shape: a root that is
	// not a map, content outside any section, a field of the wrong type.
	KindStructural ErrorKind = "structural"

	// KindSyntax covers malformed tokens and underlying document syntax
	// failures.
	KindSyntax ErrorKind = "syntax"

	// KindSemantic covers well-formed documents that cannot be resolved,
	// such as circular group references.
	KindSemantic ErrorKind = "semantic"

	// KindIO covers failures to read the document at all.
	KindIO ErrorKind = "io"
)

// ParseError is the single failure type returned by inventory and
// playbook parsers. It supports errors.Is against another *ParseError
// carrying only a Kind (and optionally a Format), and errors.As.
type ParseError struct {
	// Format names the document family, e.g. "ini", "yaml", "playbook".
	Format string
	Kind   ErrorKind
	// Line is the 1-based source line, or 0 when not tied to a line.
	Line int
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	if e.Format != "" {
		b.WriteString(e.Format)
		b.WriteString(": ")
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", e.Line)
	}
	b.WriteString(string(e.Kind))
	b.WriteString(" error: ")
	b.WriteString(e.Msg)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is matches a target *ParseError whose non-empty Kind and Format fields
// equal those of e.
func (e *ParseError) Is(target error) bool {
	t, ok := target.(*ParseError)
	if !ok {
		return false
	}
	if t.Kind != "" && t.Kind != e.Kind {
		return false
	}
	if t.Format != "" && t.Format != e.Format {
		return false
	}
	return true
}
