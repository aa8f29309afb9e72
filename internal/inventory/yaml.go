package inventory

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/eniac111/plumbinv/internal/types"
	"github.com/eniac111/plumbinv/internal/yamlnode"
)

// YAMLParser reads Ansible-style YAML inventories:
//
//	all:
//	  vars:
//	    ansible_user: deploy
//	  children:
//	    web:              # inline child, scoped to its parent
//	      hosts:
//	        web1.example.com:
//	          http_port: 8080
//	    db:               # reference to the top-level group below
//	db:
//	  hosts:
//	    db1.example.com:
//
// The result always has a single root group named "all". When the document
// has no "all" key one is synthesized and every top-level group becomes its
// child.
type YAMLParser struct {
	opts options
}

// NewYAMLParser returns a YAML inventory parser.
func NewYAMLParser(opts ...Option) *YAMLParser {
	return &YAMLParser{opts: newOptions(opts)}
}

// Format implements Parser.
func (p *YAMLParser) Format() Format {
	return FormatYAML
}

// ParseFile implements Parser.
func (p *YAMLParser) ParseFile(ctx context.Context, path string, env types.Environment) (*types.Inventory, error) {
	data, err := readFile(ctx, p.opts, FormatYAML, path)
	if err != nil {
		return nil, err
	}
	return p.Parse(data, env)
}

// Parse implements Parser.
func (p *YAMLParser) Parse(content []byte, env types.Environment) (*types.Inventory, error) {
	root, err := yamlnode.Decode(content)
	if err != nil {
		return nil, &types.ParseError{
			Format: string(FormatYAML),
			Kind:   types.KindSyntax,
			Msg:    "failed to parse YAML",
			Err:    err,
		}
	}
	if !yamlnode.IsMap(root) {
		return nil, yamlError(root, "invalid YAML inventory format: root must be a map")
	}

	yc := newYAMLContext()
	if err := yc.parseRoot(root); err != nil {
		return nil, err
	}
	inv, err := yc.build(env)
	if err != nil {
		return nil, err
	}
	p.opts.logger.Debug("YAML inventory parsed.", "groups", len(yc.order), "roots", len(inv.Groups))
	return inv, nil
}

func yamlError(node *yaml.Node, format string, args ...any) *types.ParseError {
	return &types.ParseError{
		Format: string(FormatYAML),
		Kind:   types.KindStructural,
		Line:   node.Line,
		Msg:    fmt.Sprintf(format, args...),
	}
}

// yamlGroup is a group as declared, before inheritance is applied.
type yamlGroup struct {
	name  string
	hosts []types.Host
	vars  map[string]string
}

// yamlContext accumulates groups and child edges during the descent. Groups
// are keyed by their bare name, except inline children which are keyed by
// "<parent key>:<name>" so that same-named inline groups in different
// branches stay distinct.
type yamlContext struct {
	groups  map[string]*yamlGroup
	order   []string
	edges   map[string][]string
	isChild map[string]bool
}

func newYAMLContext() *yamlContext {
	return &yamlContext{
		groups:  make(map[string]*yamlGroup),
		edges:   make(map[string][]string),
		isChild: make(map[string]bool),
	}
}

func (c *yamlContext) group(key, name string) *yamlGroup {
	g, ok := c.groups[key]
	if !ok {
		g = &yamlGroup{name: name, vars: make(map[string]string)}
		c.groups[key] = g
		c.order = append(c.order, key)
	}
	return g
}

func (c *yamlContext) addChild(parent, child string) {
	for _, existing := range c.edges[parent] {
		if existing == child {
			return
		}
	}
	c.edges[parent] = append(c.edges[parent], child)
	c.isChild[child] = true
}

func (c *yamlContext) parseRoot(root *yaml.Node) error {
	if v := yamlnode.Lookup(root, allGroupName); v != nil {
		switch {
		case yamlnode.IsNull(v):
			c.group(allGroupName, allGroupName)
		case v.Kind == yaml.MappingNode:
			if err := c.parseGroup(allGroupName, allGroupName, v); err != nil {
				return err
			}
		default:
			return yamlError(v, "'%s' must be a map", allGroupName)
		}
	} else {
		c.group(allGroupName, allGroupName)
	}

	return yamlnode.EachPair(root, func(name string, value *yaml.Node) error {
		if name == allGroupName || value.Kind != yaml.MappingNode {
			return nil
		}
		if err := c.parseGroup(name, name, value); err != nil {
			return err
		}
		c.addChild(allGroupName, name)
		return nil
	})
}

func (c *yamlContext) parseGroup(key, name string, node *yaml.Node) error {
	g := c.group(key, name)
	return yamlnode.EachPair(node, func(field string, value *yaml.Node) error {
		switch field {
		case "hosts":
			return parseYAMLHosts(g, value)
		case "vars":
			return parseYAMLVars(g, value)
		case "children":
			return c.parseChildren(key, value)
		default:
			return nil
		}
	})
}

func parseYAMLHosts(g *yamlGroup, node *yaml.Node) error {
	switch {
	case yamlnode.IsNull(node):
		return nil
	case node.Kind != yaml.MappingNode:
		return yamlError(node, "'hosts' must be a map, not %s", yamlnode.KindName(node))
	}
	return yamlnode.EachPair(node, func(hostname string, value *yaml.Node) error {
		vars := make(map[string]string)
		if value.Kind == yaml.MappingNode {
			collectVars(value, vars)
		}
		g.hosts = upsertHost(g.hosts, types.Host{Name: hostname, Variables: vars})
		return nil
	})
}

func parseYAMLVars(g *yamlGroup, node *yaml.Node) error {
	switch {
	case yamlnode.IsNull(node):
		return nil
	case node.Kind != yaml.MappingNode:
		return yamlError(node, "'vars' must be a map, not %s", yamlnode.KindName(node))
	}
	collectVars(node, g.vars)
	return nil
}

func (c *yamlContext) parseChildren(parentKey string, node *yaml.Node) error {
	switch {
	case yamlnode.IsNull(node):
		return nil
	case node.Kind != yaml.MappingNode:
		return yamlError(node, "'children' must be a map, not %s", yamlnode.KindName(node))
	}
	return yamlnode.EachPair(node, func(childName string, value *yaml.Node) error {
		switch {
		case value.Kind == yaml.MappingNode:
			inlineKey := parentKey + ":" + childName
			if err := c.parseGroup(inlineKey, childName, value); err != nil {
				return err
			}
			c.addChild(parentKey, inlineKey)
		case yamlnode.IsNull(value):
			c.group(childName, childName)
			c.addChild(parentKey, childName)
		default:
			return yamlError(value, "child '%s' must be a map or null", childName)
		}
		return nil
	})
}

// build checks the edge graph for cycles, then assembles the tree from the
// roots down. Each node is created with its parent already set.
func (c *yamlContext) build(env types.Environment) (*types.Inventory, error) {
	if parent, child, found := findCycle(c.order, c.edges); found {
		return nil, &types.ParseError{
			Format: string(FormatYAML),
			Kind:   types.KindSemantic,
			Msg:    fmt.Sprintf("circular group reference: %s -> %s", c.groups[parent].name, c.groups[child].name),
		}
	}

	b := &yamlBuilder{ctx: c, built: make(map[string]*types.HostGroup)}
	inv := &types.Inventory{Environment: env}
	for _, key := range c.order {
		if !c.isChild[key] {
			inv.Groups = append(inv.Groups, b.build(key, nil, nil))
		}
	}
	return inv, nil
}

// yamlBuilder builds each context key once. A group referenced by several
// parents takes its Parent and inherited variables from the first parent
// that reaches it, and the same node is listed in every parent's Children.
type yamlBuilder struct {
	ctx   *yamlContext
	built map[string]*types.HostGroup
}

func (b *yamlBuilder) build(key string, parent *types.HostGroup, parentVars map[string]string) *types.HostGroup {
	if node, ok := b.built[key]; ok {
		return node
	}
	g := b.ctx.groups[key]
	vars := mergeVars(parentVars, g.vars)

	node := &types.HostGroup{Name: g.name, Parent: parent}
	b.built[key] = node
	for _, h := range g.hosts {
		node.Hosts = append(node.Hosts, types.Host{Name: h.Name, Variables: mergeVars(vars, h.Variables)})
	}
	for _, childKey := range b.ctx.edges[key] {
		node.Children = append(node.Children, b.build(childKey, node, vars))
	}
	return node
}

// collectVars copies the scalar-keyed entries of a mapping into dst. Null
// values are dropped and non-scalar values are rendered as flow YAML.
func collectVars(node *yaml.Node, dst map[string]string) {
	_ = yamlnode.EachPair(node, func(key string, value *yaml.Node) error {
		if s, ok := yamlnode.String(value); ok {
			dst[key] = s
		}
		return nil
	})
}
