package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/eniac111/plumbinv/internal/config"
	"github.com/eniac111/plumbinv/internal/inventory"
	"github.com/eniac111/plumbinv/internal/match"
	"github.com/eniac111/plumbinv/internal/playbook"
	"github.com/eniac111/plumbinv/internal/source"
	"github.com/eniac111/plumbinv/internal/types"
)

// commonFlags are shared by every command.
type commonFlags struct {
	configPath string
	env        string
	logLevel   string
	logFormat  string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", config.DefaultPath, "settings file")
	fs.StringVar(&c.env, "env", string(types.Development), "environment: development or production")
	fs.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn or error (default from settings, else info)")
	fs.StringVar(&c.logFormat, "log-format", "", "log format: text or json (default from settings, else text)")
}

// session is the state a command runs with once its flags are parsed.
type session struct {
	settings *config.Settings
	env      types.Environment
	logger   *slog.Logger
	reader   *source.Resolver
}

func (s *session) Close() error {
	return s.reader.Close()
}

func newFlagSet(name, args string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage:\n  plumbinv %s [options] %s\n\nOptions:\n", name, args)
		fs.PrintDefaults()
	}
	return fs
}

// parseFlags parses args and reports whether the command should stop
// because help was requested.
func parseFlags(fs *flag.FlagSet, args []string) (bool, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return true, nil
		}
		return false, &ExitError{Code: 2, Message: err.Error()}
	}
	return false, nil
}

func (c *commonFlags) open(stderr io.Writer) (*session, error) {
	env, err := types.ParseEnvironment(c.env)
	if err != nil {
		return nil, usageError("%v", err)
	}
	settings, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(stderr, settings, c.logLevel, c.logFormat)
	if err != nil {
		return nil, err
	}
	logger.Debug("Session opened.", "env", env, "config", c.configPath, "config_found", settings != nil)
	return &session{
		settings: settings,
		env:      env,
		logger:   logger,
		reader:   source.NewResolver(nil, logger),
	}, nil
}

// newLogger builds the command logger. Flags win over settings.
func newLogger(w io.Writer, settings *config.Settings, level, format string) (*slog.Logger, error) {
	lvl, err := settings.LogLevel()
	if err != nil {
		return nil, err
	}
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, usageError("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
		}
	}
	if format == "" && settings != nil {
		format = settings.Log.Format
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, usageError("invalid log-format: must be 'text' or 'json'")
	}
}

// loadInventory parses the given paths, or the configured sources of the
// session environment when no paths are given.
func (s *session) loadInventory(ctx context.Context, format string, paths []string) (*types.Inventory, error) {
	var sources []inventory.Source
	if len(paths) > 0 {
		f, err := inventory.ParseFormat(format)
		if err != nil {
			return nil, usageError("%v", err)
		}
		for _, p := range paths {
			sources = append(sources, inventory.Source{Path: p, Format: f})
		}
	} else {
		if s.settings == nil {
			return nil, usageError("no inventory paths given and no settings file found")
		}
		var err error
		if sources, err = s.settings.Sources(s.env); err != nil {
			return nil, usageError("%v", err)
		}
	}
	return inventory.Load(ctx, sources, s.env, inventory.WithReader(s.reader), inventory.WithLogger(s.logger))
}

// playbookPath anchors a relative local playbook path at the configured
// playbook directory.
func (s *session) playbookPath(p string) string {
	dir := s.settings.PlaybookDir()
	if dir == "" || filepath.IsAbs(p) || strings.Contains(p, "://") {
		return p
	}
	return filepath.Join(dir, p)
}

func (s *session) playbookParser() *playbook.Parser {
	return playbook.New(playbook.WithReader(s.reader), playbook.WithLogger(s.logger))
}

func inventoryCmd(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	var common commonFlags
	fs := newFlagSet("inventory", "[path...]", stderr)
	common.register(fs)
	format := fs.String("format", string(inventory.FormatINI), "format of path arguments: ini or yaml")
	output := fs.String("output", "text", "output: text, json or yaml")
	if help, err := parseFlags(fs, args); help || err != nil {
		return err
	}

	s, err := common.open(stderr)
	if err != nil {
		return err
	}
	defer s.Close()

	inv, err := s.loadInventory(ctx, *format, fs.Args())
	if err != nil {
		return err
	}
	return writeInventory(stdout, inv, *output)
}

func playbookCmd(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	var common commonFlags
	fs := newFlagSet("playbook", "<path>", stderr)
	common.register(fs)
	all := fs.Bool("all", false, "print every play, not only the first")
	output := fs.String("output", "text", "output: text, json or yaml")
	if help, err := parseFlags(fs, args); help || err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return usageError("playbook: expected exactly one path")
	}

	s, err := common.open(stderr)
	if err != nil {
		return err
	}
	defer s.Close()

	path := s.playbookPath(fs.Arg(0))
	var plays []*types.Playbook
	if *all {
		plays, err = s.playbookParser().ParseAllFile(ctx, path)
	} else {
		var pb *types.Playbook
		pb, err = s.playbookParser().ParseFile(ctx, path)
		plays = []*types.Playbook{pb}
	}
	if err != nil {
		return err
	}
	return writePlaybooks(stdout, plays, *output)
}

func matchCmd(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	var common commonFlags
	fs := newFlagSet("match", "-playbook <path> [inventory path...]", stderr)
	common.register(fs)
	pbPath := fs.String("playbook", "", "playbook whose first play is matched")
	format := fs.String("format", string(inventory.FormatINI), "format of inventory path arguments: ini or yaml")
	hosts := fs.Bool("hosts", false, "print the hosts of the matched groups instead of the groups")
	preset := fs.String("preset", "", "print the match as a named preset in YAML")
	description := fs.String("description", "", "preset description")
	if help, err := parseFlags(fs, args); help || err != nil {
		return err
	}
	if *pbPath == "" {
		fs.Usage()
		return usageError("match: -playbook is required")
	}

	s, err := common.open(stderr)
	if err != nil {
		return err
	}
	defer s.Close()

	pb, err := s.playbookParser().ParseFile(ctx, s.playbookPath(*pbPath))
	if err != nil {
		return err
	}
	inv, err := s.loadInventory(ctx, *format, fs.Args())
	if err != nil {
		return err
	}

	groups := match.CompatibleGroups(pb, inv.Groups)
	s.logger.Info("Play matched.", "play", pb.Name, "selector", pb.Hosts, "groups", len(groups))
	switch {
	case *preset != "":
		paths := make([]string, 0, len(groups))
		for _, g := range groups {
			paths = append(paths, g.Path())
		}
		return encode(stdout, types.NewPreset(*preset, *description, s.env, pb.Path, paths), "yaml")
	case *hosts:
		return writeHostNames(stdout, groups)
	}
	return writeGroupPaths(stdout, groups)
}

func presetCmd(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	var common commonFlags
	fs := newFlagSet("preset", "-name <name> <history>", stderr)
	common.register(fs)
	name := fs.String("name", "", "preset name")
	description := fs.String("description", "", "preset description")
	force := fs.Bool("force", false, "save a preset from a run that did not succeed")
	if help, err := parseFlags(fs, args); help || err != nil {
		return err
	}
	if *name == "" || fs.NArg() != 1 {
		fs.Usage()
		return usageError("preset: -name and exactly one history record are required")
	}

	s, err := common.open(stderr)
	if err != nil {
		return err
	}
	defer s.Close()

	data, err := s.reader.ReadFile(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	var h types.ExecutionHistory
	if err := yaml.Unmarshal(data, &h); err != nil {
		return fmt.Errorf("decode history %s: %w", fs.Arg(0), err)
	}
	if !h.Succeeded() {
		if !*force {
			return fmt.Errorf("run %s did not succeed (status %s), use -force to save it anyway", h.ID, h.Status)
		}
		s.logger.Warn("Saving preset from an unsuccessful run.", "run", h.ID, "status", h.Status)
	}
	return encode(stdout, types.PresetFromHistory(h, *name, *description), "yaml")
}
