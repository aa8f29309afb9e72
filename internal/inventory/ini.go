package inventory

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/eniac111/plumbinv/internal/types"
)

const (
	allGroupName   = "all"
	varsSuffix     = ":vars"
	childrenSuffix = ":children"
)

var (
	sectionRegex = regexp.MustCompile(`^\[([^\]]+)\]$`)
	hostVarRegex = regexp.MustCompile(`^(\w+)=(\S+)$`)
	varKeyRegex  = regexp.MustCompile(`^\w+$`)
)

type sectionKind int

const (
	sectionHosts sectionKind = iota
	sectionVars
	sectionChildren
)

type section struct {
	group string
	kind  sectionKind
}

// iniState holds the tables filled while scanning an INI document.
type iniState struct {
	current *section

	// names lists every group name in first-seen order.
	names    []string
	seen     map[string]bool
	hosts    map[string][]types.Host
	vars     map[string]map[string]string
	children map[string][]string
	isChild  map[string]bool
}

func newINIState() *iniState {
	return &iniState{
		seen:     make(map[string]bool),
		hosts:    make(map[string][]types.Host),
		vars:     make(map[string]map[string]string),
		children: make(map[string][]string),
		isChild:  make(map[string]bool),
	}
}

func (s *iniState) note(name string) {
	if !s.seen[name] {
		s.seen[name] = true
		s.names = append(s.names, name)
	}
}

// INIParser reads Ansible-style INI inventories:
//
//	[web]
//	web1.example.com ansible_host=10.0.0.1
//
//	[web:vars]
//	http_port=80
//
//	[production:children]
//	web
//
// Sections may appear in any order. Content outside a section is fatal, as
// is any host token that is not key=value.
type INIParser struct {
	opts options
}

// NewINIParser returns an INI inventory parser.
func NewINIParser(opts ...Option) *INIParser {
	return &INIParser{opts: newOptions(opts)}
}

// Format implements Parser.
func (p *INIParser) Format() Format {
	return FormatINI
}

// ParseFile implements Parser.
func (p *INIParser) ParseFile(ctx context.Context, path string, env types.Environment) (*types.Inventory, error) {
	data, err := readFile(ctx, p.opts, FormatINI, path)
	if err != nil {
		return nil, err
	}
	return p.Parse(data, env)
}

// Parse implements Parser.
func (p *INIParser) Parse(content []byte, env types.Environment) (*types.Inventory, error) {
	state := newINIState()
	for i, raw := range strings.Split(string(content), "\n") {
		if err := p.parseLine(strings.TrimSpace(raw), i+1, state); err != nil {
			return nil, err
		}
	}

	inv, err := buildINIInventory(state, env)
	if err != nil {
		return nil, err
	}
	p.opts.logger.Debug("INI inventory parsed.", "groups", len(state.names), "roots", len(inv.Groups))
	return inv, nil
}

func iniError(kind types.ErrorKind, line int, format string, args ...any) *types.ParseError {
	return &types.ParseError{
		Format: string(FormatINI),
		Kind:   kind,
		Line:   line,
		Msg:    fmt.Sprintf(format, args...),
	}
}

func (p *INIParser) parseLine(line string, lineNum int, s *iniState) error {
	switch {
	case line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";"):
		return nil
	case strings.HasPrefix(line, "["):
		p.parseSection(line, lineNum, s)
		return nil
	case s.current == nil:
		return iniError(types.KindStructural, lineNum, "content outside of section: %s", line)
	}

	switch s.current.kind {
	case sectionHosts:
		return parseHostLine(line, lineNum, s)
	case sectionVars:
		return parseVarLine(line, lineNum, s)
	default:
		return parseChildLine(line, lineNum, s)
	}
}

// parseSection opens a new section. A malformed header is reported as a
// warning and leaves no section open, so following content lines fail.
func (p *INIParser) parseSection(line string, lineNum int, s *iniState) {
	match := sectionRegex.FindStringSubmatch(line)
	if match == nil {
		p.opts.logger.Warn("Invalid section header.", "line", lineNum, "text", line)
		s.current = nil
		return
	}

	name := strings.TrimSpace(match[1])
	kind := sectionHosts
	switch {
	case strings.HasSuffix(name, varsSuffix):
		name, kind = strings.TrimSuffix(name, varsSuffix), sectionVars
	case strings.HasSuffix(name, childrenSuffix):
		name, kind = strings.TrimSuffix(name, childrenSuffix), sectionChildren
	}
	if name == "" {
		p.opts.logger.Warn("Section header without group name.", "line", lineNum, "text", line)
		s.current = nil
		return
	}

	s.note(name)
	s.current = &section{group: name, kind: kind}
	if _, ok := s.vars[name]; !ok && kind == sectionVars {
		s.vars[name] = make(map[string]string)
	}
}

func parseHostLine(line string, lineNum int, s *iniState) error {
	fields := strings.Fields(line)
	host := types.Host{Name: fields[0], Variables: make(map[string]string)}

	for _, token := range fields[1:] {
		if !strings.Contains(token, "=") {
			return iniError(types.KindSyntax, lineNum, "invalid content after hostname %s: %s", host.Name, token)
		}
		m := hostVarRegex.FindStringSubmatch(token)
		if m == nil {
			return iniError(types.KindSyntax, lineNum, "invalid variable syntax: %s", token)
		}
		host.Variables[m[1]] = m[2]
	}

	group := s.current.group
	s.hosts[group] = upsertHost(s.hosts[group], host)
	return nil
}

func parseVarLine(line string, lineNum int, s *iniState) error {
	key, value, ok := strings.Cut(line, "=")
	key = strings.TrimSpace(key)
	if !ok || !varKeyRegex.MatchString(key) {
		return iniError(types.KindSyntax, lineNum, "invalid variable syntax: %s", line)
	}
	s.vars[s.current.group][key] = strings.TrimSpace(value)
	return nil
}

func parseChildLine(line string, lineNum int, s *iniState) error {
	if fields := strings.Fields(line); len(fields) != 1 {
		return iniError(types.KindSyntax, lineNum, "invalid child group name: %s", line)
	}
	parent := s.current.group
	s.note(line)
	for _, existing := range s.children[parent] {
		if existing == line {
			return nil
		}
	}
	s.children[parent] = append(s.children[parent], line)
	s.isChild[line] = true
	return nil
}

// buildINIInventory resolves the scanned tables into a group forest.
func buildINIInventory(s *iniState, env types.Environment) (*types.Inventory, error) {
	if parent, child, found := findCycle(s.names, s.children); found {
		return nil, iniError(types.KindSemantic, 0, "circular group reference: %s -> %s", parent, child)
	}

	b := &iniBuilder{state: s, built: make(map[string]*types.HostGroup)}
	inv := &types.Inventory{Environment: env}
	for _, name := range s.names {
		if !s.isChild[name] {
			inv.Groups = append(inv.Groups, b.build(name, nil))
		}
	}
	return inv, nil
}

// iniBuilder assembles groups top-down. A group shared by several parents
// is built once, under the first parent that reaches it, and the same node
// is listed in every parent's Children.
type iniBuilder struct {
	state *iniState
	built map[string]*types.HostGroup
}

func (b *iniBuilder) build(name string, parent *types.HostGroup) *types.HostGroup {
	if g, ok := b.built[name]; ok {
		return g
	}
	g := &types.HostGroup{Name: name, Parent: parent}
	b.built[name] = g

	g.Hosts = b.resolveHosts(g)
	for _, child := range b.state.children[name] {
		g.Children = append(g.Children, b.build(child, g))
	}
	return g
}

// resolveHosts applies all:vars, then each ancestor's vars from the root
// down to g, then the host's own variables.
func (b *iniBuilder) resolveHosts(g *types.HostGroup) []types.Host {
	direct := b.state.hosts[g.Name]
	if len(direct) == 0 {
		return nil
	}

	chain := []string{g.Name}
	for _, a := range g.Ancestors() {
		chain = append(chain, a.Name)
	}
	groupVars := mergeVars(b.state.vars[allGroupName])
	for i := len(chain) - 1; i >= 0; i-- {
		groupVars = mergeVars(groupVars, b.state.vars[chain[i]])
	}

	hosts := make([]types.Host, len(direct))
	for i, h := range direct {
		hosts[i] = types.Host{Name: h.Name, Variables: mergeVars(groupVars, h.Variables)}
	}
	return hosts
}
