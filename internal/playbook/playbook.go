// Package playbook reads Ansible playbooks into display-oriented
// types.Playbook values: play name, host selector and a flattened view of
// each task.
package playbook

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/eniac111/plumbinv/internal/source"
	"github.com/eniac111/plumbinv/internal/types"
	"github.com/eniac111/plumbinv/internal/yamlnode"
)

// Format is the ParseError format tag for playbook failures.
const Format = "playbook"

// reserved lists task keywords that never name a module.
var reserved = map[string]bool{
	"name":          true,
	"when":          true,
	"with_items":    true,
	"loop":          true,
	"tags":          true,
	"register":      true,
	"ignore_errors": true,
	"become":        true,
	"notify":        true,
	"delegate_to":   true,
	"run_once":      true,
	"vars":          true,
	"environment":   true,
}

// Option configures a Parser.
type Option func(*Parser)

// WithReader sets the reader used by ParseFile.
func WithReader(r source.Reader) Option {
	return func(p *Parser) {
		p.reader = r
	}
}

// WithLogger sets the logger for parser diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) {
		p.logger = l
	}
}

// Parser reads playbook documents. The zero value is not usable; call New.
type Parser struct {
	reader source.Reader
	logger *slog.Logger
}

// New returns a Parser reading the local filesystem unless WithReader is
// given.
func New(opts ...Option) *Parser {
	p := &Parser{reader: source.Local{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseFile reads path and returns its first play.
func (p *Parser) ParseFile(ctx context.Context, path string) (*types.Playbook, error) {
	data, err := p.read(ctx, path)
	if err != nil {
		return nil, err
	}
	return p.Parse(data, path)
}

// ParseAllFile reads path and returns every play.
func (p *Parser) ParseAllFile(ctx context.Context, path string) ([]*types.Playbook, error) {
	data, err := p.read(ctx, path)
	if err != nil {
		return nil, err
	}
	return p.ParseAll(data, path)
}

func (p *Parser) read(ctx context.Context, path string) ([]byte, error) {
	data, err := p.reader.ReadFile(ctx, path)
	if err != nil {
		return nil, &types.ParseError{Format: Format, Kind: types.KindIO, Msg: "cannot read " + path, Err: err}
	}
	return data, nil
}

// Parse returns the first play of a playbook. The document is either a list
// of plays or a single play map.
func (p *Parser) Parse(content []byte, path string) (*types.Playbook, error) {
	plays, err := p.parse(content, path, true)
	if err != nil {
		return nil, err
	}
	return plays[0], nil
}

// ParseAll returns every play of a playbook in document order.
func (p *Parser) ParseAll(content []byte, path string) ([]*types.Playbook, error) {
	return p.parse(content, path, false)
}

func (p *Parser) parse(content []byte, path string, firstOnly bool) ([]*types.Playbook, error) {
	root, err := yamlnode.Decode(content)
	if err != nil {
		return nil, &types.ParseError{Format: Format, Kind: types.KindSyntax, Msg: "failed to parse YAML", Err: err}
	}

	var playNodes []*yaml.Node
	switch root.Kind {
	case yaml.SequenceNode:
		if len(root.Content) == 0 {
			return nil, playError(root, "empty playbook")
		}
		playNodes = root.Content
		if firstOnly {
			playNodes = playNodes[:1]
		}
	case yaml.MappingNode:
		playNodes = []*yaml.Node{root}
	default:
		return nil, playError(root, "not a valid playbook: must be a list or map, not %s", yamlnode.KindName(root))
	}

	plays := make([]*types.Playbook, 0, len(playNodes))
	for _, n := range playNodes {
		play, err := parsePlay(yamlnode.Resolve(n), path)
		if err != nil {
			return nil, err
		}
		plays = append(plays, play)
	}
	p.logger.Debug("Playbook parsed.", "path", path, "plays", len(plays))
	return plays, nil
}

func playError(node *yaml.Node, format string, args ...any) *types.ParseError {
	return &types.ParseError{
		Format: Format,
		Kind:   types.KindStructural,
		Line:   node.Line,
		Msg:    fmt.Sprintf(format, args...),
	}
}

func parsePlay(node *yaml.Node, path string) (*types.Playbook, error) {
	if !yamlnode.IsMap(node) {
		return nil, playError(node, "invalid playbook structure: play must be a map")
	}

	name := yamlnode.Lookup(node, "name")
	if name == nil || name.Kind != yaml.ScalarNode || yamlnode.IsNull(name) {
		return nil, playError(node, "play must have a 'name' field")
	}
	hosts := yamlnode.Lookup(node, "hosts")
	if hosts == nil {
		return nil, playError(node, "play must have a 'hosts' field")
	}

	return &types.Playbook{
		Path:  path,
		Name:  name.Value,
		Hosts: selector(hosts),
		Tasks: parseTasks(yamlnode.Lookup(node, "tasks")),
	}, nil
}

// selector flattens the hosts field. A list of patterns is joined with ":".
func selector(node *yaml.Node) string {
	switch node.Kind {
	case yaml.ScalarNode:
		if yamlnode.IsNull(node) {
			return ""
		}
		return node.Value
	case yaml.SequenceNode:
		var parts []string
		for _, item := range node.Content {
			if item = yamlnode.Resolve(item); item.Kind == yaml.ScalarNode && !yamlnode.IsNull(item) {
				parts = append(parts, item.Value)
			}
		}
		return strings.Join(parts, ":")
	default:
		return ""
	}
}

func parseTasks(node *yaml.Node) []types.Task {
	if node == nil || node.Kind != yaml.SequenceNode {
		return nil
	}
	var tasks []types.Task
	for _, item := range node.Content {
		if task, ok := parseTask(yamlnode.Resolve(item)); ok {
			tasks = append(tasks, task)
		}
	}
	return tasks
}

// parseTask projects a task map. Tasks without a name or without a module
// key are skipped.
func parseTask(node *yaml.Node) (types.Task, bool) {
	if !yamlnode.IsMap(node) {
		return types.Task{}, false
	}
	name := yamlnode.Lookup(node, "name")
	if name == nil || name.Kind != yaml.ScalarNode || yamlnode.IsNull(name) {
		return types.Task{}, false
	}

	task := types.Task{Name: name.Value}
	found := false
	_ = yamlnode.EachPair(node, func(key string, value *yaml.Node) error {
		if found || reserved[key] {
			return nil
		}
		found = true
		task.Module = key
		task.Args = moduleArgs(value)
		return nil
	})
	return task, found
}

// moduleArgs flattens a module's argument value. A free-form scalar becomes
// {"cmd": value}.
func moduleArgs(node *yaml.Node) map[string]string {
	args := make(map[string]string)
	switch {
	case yamlnode.IsNull(node):
	case node.Kind == yaml.MappingNode:
		_ = yamlnode.EachPair(node, func(key string, value *yaml.Node) error {
			args[key] = argValue(value)
			return nil
		})
	default:
		args["cmd"] = argValue(node)
	}
	return args
}

// argValue flattens one argument. Lists are joined with ",", maps are
// rendered as flow YAML and null becomes "".
func argValue(node *yaml.Node) string {
	if node.Kind == yaml.SequenceNode {
		items := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			s, _ := yamlnode.String(yamlnode.Resolve(item))
			items = append(items, s)
		}
		return strings.Join(items, ",")
	}
	s, _ := yamlnode.String(node)
	return s
}
