// Package config loads present.yaml, the optional configuration of a
// presenter: log level, timer policy, popup layer and per-descriptor
// overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-logr/logr"
	"go.uber.org/multierr"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/present/pkg/logging"
	"github.com/go-drift/present/pkg/presentation"
)

// FileName is the configuration file LoadOptional looks for.
const FileName = "present.yaml"

// CurrentVersion is the configuration schema version assumed when the file
// does not name one.
const CurrentVersion = "v1.0.0"

// Config represents the optional present.yaml configuration.
type Config struct {
	Version     string                      `yaml:"version,omitempty"`
	Logging     LoggingConfig               `yaml:"logging"`
	Timers      TimersConfig                `yaml:"timers"`
	PopupLayer  *int                        `yaml:"popupLayer,omitempty"`
	Descriptors map[string]DescriptorConfig `yaml:"descriptors,omitempty"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"`
}

// TimersConfig contains timer settings.
type TimersConfig struct {
	Policy string `yaml:"policy,omitempty"`
}

// DescriptorConfig overrides a registered descriptor.
type DescriptorConfig struct {
	Resource string   `yaml:"resource,omitempty"`
	Options  []string `yaml:"options,omitempty"`
}

// Resolved contains validated configuration values with defaults applied.
type Resolved struct {
	Version     string
	LogLevel    string
	TimerPolicy presentation.TimerPolicy
	PopupLayer  int
	Descriptors map[string]ResolvedDescriptor
}

// ResolvedDescriptor is a validated descriptor override.
type ResolvedDescriptor struct {
	Resource string
	Options  presentation.Options
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	return Parse(data)
}

// LoadOptional reads present.yaml from dir if present.
func LoadOptional(dir string) (*Config, error) {
	cfg, err := Load(filepath.Join(dir, FileName))
	if errors.Is(err, os.ErrNotExist) {
		return &Config{}, nil
	}
	return cfg, err
}

// Parse decodes a configuration document. Unknown fields are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// An empty document decodes as io.EOF.
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}
	return &cfg, nil
}

// Resolve loads present.yaml from dir (if present) and resolves defaults.
func Resolve(dir string) (*Resolved, error) {
	cfg, err := LoadOptional(dir)
	if err != nil {
		return nil, err
	}
	return cfg.Resolve()
}

// Resolve validates the configuration and fills in defaults. Every problem
// found is reported, not just the first.
func (c *Config) Resolve() (*Resolved, error) {
	var errs error

	version, err := resolveVersion(c.Version)
	errs = multierr.Append(errs, err)

	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = "info"
	}
	if _, err := logging.ParseLevel(level); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("logging.level: %w", err))
	}

	policy, err := ParseTimerPolicy(c.Timers.Policy)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("timers.policy: %w", err))
	}

	layer := presentation.DefaultPopupLayer
	if c.PopupLayer != nil {
		layer = *c.PopupLayer
		if layer < 0 {
			errs = multierr.Append(errs, fmt.Errorf("popupLayer: must not be negative, got %d", layer))
		}
	}

	descriptors := make(map[string]ResolvedDescriptor, len(c.Descriptors))
	for _, name := range sortedKeys(c.Descriptors) {
		dc := c.Descriptors[name]
		opts, err := presentation.ParseOptions(dc.Options...)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("descriptors.%s: %w", name, err))
			continue
		}
		if opts.Has(presentation.Child) {
			errs = multierr.Append(errs, fmt.Errorf("descriptors.%s: child is decided per present, not per descriptor", name))
			continue
		}
		descriptors[name] = ResolvedDescriptor{Resource: strings.TrimSpace(dc.Resource), Options: opts}
	}

	if errs != nil {
		return nil, errs
	}
	return &Resolved{
		Version:     version,
		LogLevel:    level,
		TimerPolicy: policy,
		PopupLayer:  layer,
		Descriptors: descriptors,
	}, nil
}

// ParseTimerPolicy converts a policy name into a TimerPolicy. The empty
// string selects the default.
func ParseTimerPolicy(name string) (presentation.TimerPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", presentation.TimersPauseWhenInactive.String():
		return presentation.TimersPauseWhenInactive, nil
	case presentation.TimersRunWhilePresented.String():
		return presentation.TimersRunWhilePresented, nil
	default:
		return 0, fmt.Errorf("unknown policy %q (want %s or %s)", name,
			presentation.TimersPauseWhenInactive, presentation.TimersRunWhilePresented)
	}
}

// Apply overrides the registered descriptors named in the configuration.
// Options listed for a descriptor replace its registered defaults.
func (r *Resolved) Apply(reg *presentation.Registry) error {
	var errs error
	for _, name := range sortedKeys(r.Descriptors) {
		d := r.Descriptors[name]
		errs = multierr.Append(errs, reg.Configure(name, d.Resource, d.Options))
	}
	return errs
}

// PresenterOptions returns the presenter options the configuration implies.
func (r *Resolved) PresenterOptions() []presentation.Option {
	return []presentation.Option{
		presentation.WithTimerPolicy(r.TimerPolicy),
		presentation.WithPopupLayer(r.PopupLayer),
	}
}

// Logger builds a logger at the configured level.
func (r *Resolved) Logger() (logr.Logger, error) {
	return logging.New(r.LogLevel)
}

func resolveVersion(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return CurrentVersion, nil
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return "", fmt.Errorf("version: %q is not a semantic version", v)
	}
	if major := semver.Major(v); major != semver.Major(CurrentVersion) {
		return "", fmt.Errorf("version: unsupported major version %s (want %s)", major, semver.Major(CurrentVersion))
	}
	return semver.Canonical(v), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
