// Package match evaluates play host selectors against inventory groups.
//
// A selector is a colon-separated list of segments. "!x" excludes, "&x"
// intersects and anything else includes; include segments may list several
// patterns separated by commas. A pattern is a literal group name, the
// literal "all", or a "*" wildcard.
//
// Intersection is a name match like inclusion, not a set intersection over
// concrete hosts, and it is only consulted when a selector has no include
// patterns.
package match

import (
	"regexp"
	"strings"

	"github.com/eniac111/plumbinv/internal/types"
)

// Selector is a compiled host selector. The zero value matches nothing.
type Selector struct {
	raw       string
	includes  []pattern
	excludes  []pattern
	intersect []pattern
}

// Compile splits expr into patterns. It never fails; segments that reduce
// to an empty pattern are dropped.
func Compile(expr string) Selector {
	s := Selector{raw: expr}
	for _, seg := range strings.Split(expr, ":") {
		seg = strings.TrimSpace(seg)
		switch {
		case strings.HasPrefix(seg, "!"):
			s.excludes = appendPattern(s.excludes, seg[1:])
		case strings.HasPrefix(seg, "&"):
			s.intersect = appendPattern(s.intersect, seg[1:])
		default:
			for _, p := range strings.Split(seg, ",") {
				s.includes = appendPattern(s.includes, p)
			}
		}
	}
	return s
}

func appendPattern(ps []pattern, text string) []pattern {
	text = strings.TrimSpace(text)
	if text == "" {
		return ps
	}
	return append(ps, newPattern(text))
}

// String returns the expression the selector was compiled from.
func (s Selector) String() string {
	return s.raw
}

// Matches reports whether g is selected. Exclusions are checked against the
// group's own name and win over everything else. Include and intersection
// patterns also match when any ancestor of g matches.
func (s Selector) Matches(g *types.HostGroup) bool {
	if g == nil {
		return false
	}
	for _, p := range s.excludes {
		if p.match(g.Name) {
			return false
		}
	}
	if len(s.includes) > 0 {
		return anyMatch(s.includes, g)
	}
	return anyMatch(s.intersect, g)
}

func anyMatch(ps []pattern, g *types.HostGroup) bool {
	for _, p := range ps {
		for cur := g; cur != nil; cur = cur.Parent {
			if p.match(cur.Name) {
				return true
			}
		}
	}
	return false
}

// IsCompatible reports whether the play's selector selects g.
func IsCompatible(pb *types.Playbook, g *types.HostGroup) bool {
	if pb == nil {
		return false
	}
	return Compile(pb.Hosts).Matches(g)
}

// CompatibleGroups returns every group in the forest selected by the play,
// depth first with parents before children.
func CompatibleGroups(pb *types.Playbook, groups []*types.HostGroup) []*types.HostGroup {
	if pb == nil {
		return nil
	}
	sel := Compile(pb.Hosts)
	inv := types.Inventory{Groups: groups}

	var out []*types.HostGroup
	inv.Walk(func(g *types.HostGroup) bool {
		if sel.Matches(g) {
			out = append(out, g)
		}
		return true
	})
	return out
}

type patternKind int

const (
	patternLiteral patternKind = iota
	patternAll
	patternContains
	patternSuffix
	patternPrefix
	patternGlob
)

// pattern is one compiled name pattern.
type pattern struct {
	kind patternKind
	text string
	re   *regexp.Regexp
}

func newPattern(text string) pattern {
	switch {
	case text == "all" || text == "*":
		return pattern{kind: patternAll, text: text}
	case !strings.Contains(text, "*"):
		return pattern{kind: patternLiteral, text: text}
	}

	inner := text[1 : len(text)-1]
	switch {
	case len(text) > 1 && text[0] == '*' && text[len(text)-1] == '*' && !strings.Contains(inner, "*"):
		return pattern{kind: patternContains, text: inner}
	case text[0] == '*' && !strings.Contains(text[1:], "*"):
		return pattern{kind: patternSuffix, text: text[1:]}
	case text[len(text)-1] == '*' && !strings.Contains(text[:len(text)-1], "*"):
		return pattern{kind: patternPrefix, text: text[:len(text)-1]}
	}

	parts := strings.Split(text, "*")
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	return pattern{kind: patternGlob, text: text, re: regexp.MustCompile("^" + strings.Join(parts, ".*") + "$")}
}

func (p pattern) match(name string) bool {
	switch p.kind {
	case patternAll:
		return true
	case patternContains:
		return strings.Contains(name, p.text)
	case patternSuffix:
		return strings.HasSuffix(name, p.text)
	case patternPrefix:
		return strings.HasPrefix(name, p.text)
	case patternGlob:
		return p.re.MatchString(name)
	default:
		return name == p.text
	}
}
