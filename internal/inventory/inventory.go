// Package inventory turns INI and YAML inventory documents into a resolved
// forest of host groups with merged variables.
//
// Both parsers share one contract: a document either resolves into a
// complete *types.Inventory or fails with a single *types.ParseError. No
// partial inventory is ever returned. Parsers hold no mutable state and are
// safe for concurrent use.
package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/eniac111/plumbinv/internal/source"
	"github.com/eniac111/plumbinv/internal/types"
)

// Format selects the inventory parser. It is always declared by the caller;
// documents are never sniffed.
type Format string

const (
	FormatINI  Format = "ini"
	FormatYAML Format = "yaml"
)

// ParseFormat maps a format name onto a Format. "yml" is accepted as an
// alias for "yaml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ini":
		return FormatINI, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown inventory format %q", s)
	}
}

// Parser resolves inventory documents of one format.
type Parser interface {
	Format() Format
	Parse(content []byte, env types.Environment) (*types.Inventory, error)
	ParseFile(ctx context.Context, path string, env types.Environment) (*types.Inventory, error)
}

// Option configures a parser.
type Option func(*options)

type options struct {
	reader source.Reader
	logger *slog.Logger
}

// WithReader sets the reader used by ParseFile. The default reads the local
// filesystem.
func WithReader(r source.Reader) Option {
	return func(o *options) {
		o.reader = r
	}
}

// WithLogger sets the logger that receives parser diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func newOptions(opts []Option) options {
	o := options{
		reader: source.Local{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New returns the parser for format.
func New(format Format, opts ...Option) (Parser, error) {
	switch format {
	case FormatINI:
		return NewINIParser(opts...), nil
	case FormatYAML:
		return NewYAMLParser(opts...), nil
	default:
		return nil, fmt.Errorf("unknown inventory format %q", format)
	}
}

// readFile loads path through the configured reader, reporting failures as
// a ParseError so callers see one error type for every failure.
func readFile(ctx context.Context, o options, format Format, path string) ([]byte, error) {
	data, err := o.reader.ReadFile(ctx, path)
	if err != nil {
		return nil, &types.ParseError{
			Format: string(format),
			Kind:   types.KindIO,
			Msg:    "cannot read " + path,
			Err:    err,
		}
	}
	return data, nil
}

// Source is one inventory document and its declared format.
type Source struct {
	Path   string
	Format Format
}

// Load parses every source in order and merges the results into one
// inventory for env.
func Load(ctx context.Context, sources []Source, env types.Environment, opts ...Option) (*types.Inventory, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("no inventory sources for environment %s", env)
	}
	inv := &types.Inventory{Environment: env}
	for _, src := range sources {
		p, err := New(src.Format, opts...)
		if err != nil {
			return nil, err
		}
		parsed, err := p.ParseFile(ctx, src.Path, env)
		if err != nil {
			return nil, fmt.Errorf("load inventory %s: %w", src.Path, err)
		}
		inv = inv.Merge(parsed)
	}
	return inv, nil
}
