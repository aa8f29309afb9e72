// Package config loads plumbinv settings from a YAML file.
//
// A settings file maps each environment to the inventory documents that
// make it up:
//
//	log:
//	  level: info
//	  format: text
//	playbooks: playbooks
//	environments:
//	  development:
//	    sources:
//	      - path: inventories/dev/hosts.ini
//	        format: ini
//
// Relative local paths are resolved against the directory holding the
// settings file. sftp:// locations are left untouched.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/eniac111/plumbinv/internal/inventory"
	"github.com/eniac111/plumbinv/internal/types"
)

// DefaultPath is the settings file looked up when none is given.
const DefaultPath = "plumbinv.yaml"

// Settings holds plumbinv configuration.
type Settings struct {
	Log          LogSettings                    `yaml:"log"`
	Playbooks    string                         `yaml:"playbooks"`
	Environments map[string]EnvironmentSettings `yaml:"environments"`

	dir string
}

// LogSettings selects the log handler.
type LogSettings struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json
}

// EnvironmentSettings lists the inventory sources of one environment,
// merged in order.
type EnvironmentSettings struct {
	Sources []SourceSettings `yaml:"sources"`
}

// SourceSettings is one inventory document.
type SourceSettings struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"`
}

// Load reads the settings file at path.
// Returns nil (not an error) if the file does not exist.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	s.dir = filepath.Dir(path)
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings %s: %w", path, err)
	}
	return &s, nil
}

// Validate checks environment names, source formats and log options.
func (s *Settings) Validate() error {
	var errs []error
	if _, err := s.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(s.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", s.Log.Format))
	}

	declared := make(map[types.Environment]string)
	for _, name := range s.environmentNames() {
		env, err := types.ParseEnvironment(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if prev, ok := declared[env]; ok {
			errs = append(errs, fmt.Errorf("environment %s declared twice, as %q and %q", env, prev, name))
			continue
		}
		declared[env] = name
		conf := s.Environments[name]
		if len(conf.Sources) == 0 {
			errs = append(errs, fmt.Errorf("environment %s has no sources", name))
		}
		for i, src := range conf.Sources {
			if strings.TrimSpace(src.Path) == "" {
				errs = append(errs, fmt.Errorf("environment %s: source %d has no path", name, i))
			}
			if _, err := inventory.ParseFormat(src.Format); err != nil {
				errs = append(errs, fmt.Errorf("environment %s: source %d: %w", name, i, err))
			}
		}
	}
	return errors.Join(errs...)
}

// LogLevel parses Log.Level, defaulting to info.
func (s *Settings) LogLevel() (slog.Level, error) {
	var level slog.Level
	if s == nil || s.Log.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s.Log.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s.Log.Level)
	}
	return level, nil
}

// Sources returns the inventory sources configured for env, in order.
func (s *Settings) Sources(env types.Environment) ([]inventory.Source, error) {
	if s == nil {
		return nil, fmt.Errorf("no settings loaded for environment %s", env)
	}
	var conf EnvironmentSettings
	found := false
	for _, name := range s.environmentNames() {
		if parsed, err := types.ParseEnvironment(name); err == nil && parsed == env {
			conf, found = s.Environments[name], true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("environment %s is not configured", env)
	}

	sources := make([]inventory.Source, 0, len(conf.Sources))
	for _, src := range conf.Sources {
		format, err := inventory.ParseFormat(src.Format)
		if err != nil {
			return nil, err
		}
		sources = append(sources, inventory.Source{Path: s.ResolvePath(src.Path), Format: format})
	}
	return sources, nil
}

// ResolvePath anchors a relative local path at the settings directory.
func (s *Settings) ResolvePath(p string) string {
	if s == nil || s.dir == "" || p == "" || filepath.IsAbs(p) || strings.Contains(p, "://") {
		return p
	}
	return filepath.Join(s.dir, p)
}

// PlaybookDir returns the resolved playbook directory, or "" when unset.
func (s *Settings) PlaybookDir() string {
	if s == nil {
		return ""
	}
	return s.ResolvePath(s.Playbooks)
}

func (s *Settings) environmentNames() []string {
	names := make([]string, 0, len(s.Environments))
	for name := range s.Environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
