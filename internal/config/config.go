// Package config loads and persists the daemon's user-facing settings:
// the tracked repository list, scheduling and work-hours preferences, and
// the placeholder integration credentials resolved from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"gopkg.in/yaml.v3"
)

// Config is the root of config.yaml.
type Config struct {
	Version      string       `yaml:"version"`
	Repositories []Repository `yaml:"repositories"`
	Settings     Settings     `yaml:"settings"`
	Integrations Integrations `yaml:"integrations"`
}

// Repository is one tracked Git working copy.
type Repository struct {
	Name    string   `yaml:"name"`
	Path    string   `yaml:"path"`
	Enabled bool     `yaml:"enabled"`
	Project string   `yaml:"project"`
	Ignore  []string `yaml:"ignore,omitempty"`
}

// Settings holds the scheduler and notification preferences.
type Settings struct {
	PromptInterval int                `yaml:"prompt_interval"`
	WorkHoursOnly  bool               `yaml:"work_hours_only"`
	WorkStartHour  int                `yaml:"work_start_hour"`
	WorkEndHour    int                `yaml:"work_end_hour"`
	Timezone       string             `yaml:"timezone"`
	LogLevel       string             `yaml:"log_level"`
	Notifications  NotificationConfig `yaml:"notifications"`
}

// NotificationConfig describes where trigger prompts should be reported;
// the renderer itself lives in the (out of scope) intelligence process.
type NotificationConfig struct {
	OutputType string `yaml:"output_type"` // "email", "teams", "both"
}

// Integrations carries per-tracker credentials. Fields frequently hold
// "${NAME}" placeholders that are resolved from the environment at Load
// time but never written back in resolved form.
type Integrations struct {
	AzureDevOps IntegrationConfig `yaml:"azure_devops"`
	GitHub      IntegrationConfig `yaml:"github"`
	JIRA        IntegrationConfig `yaml:"jira"`
}

// IntegrationConfig is the shared shape of one tracker's connection info.
type IntegrationConfig struct {
	Enabled bool   `yaml:"enabled"`
	Project string `yaml:"project"`
	Token   string `yaml:"token"` // often "${NAME}"
}

const (
	defaultPromptInterval = 180
	defaultWorkStartHour  = 9
	defaultWorkEndHour    = 18
)

// Default returns the configuration synthesized on first load.
func Default() *Config {
	return &Config{
		Version: "1.0.0",
		Settings: Settings{
			PromptInterval: defaultPromptInterval,
			WorkHoursOnly:  false,
			WorkStartHour:  defaultWorkStartHour,
			WorkEndHour:    defaultWorkEndHour,
			Timezone:       "Local",
			LogLevel:       "info",
			Notifications: NotificationConfig{
				OutputType: "email",
			},
		},
		Integrations: Integrations{},
	}
}

// Store reads and writes a YAML configuration file at a fixed path.
type Store struct {
	path string
}

// NewStore creates a config store rooted at the given config.yaml path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the configuration file, synthesizing and persisting a default
// one if none exists yet. "${NAME}" placeholders in string fields are
// resolved against the environment in the returned value; the on-disk file
// is never rewritten with resolved secrets.
func (s *Store) Load() (*Config, error) {
	cfg, err := s.loadRaw()
	if err != nil {
		return nil, err
	}
	resolveEnvPlaceholders(cfg)
	return cfg, nil
}

// loadRaw is Load without placeholder resolution: the returned Config
// carries "${NAME}" values exactly as stored, so it is safe to Save.
func (s *Store) loadRaw() (*Config, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		cfg := Default()
		if err := s.Save(cfg); err != nil {
			return nil, fmt.Errorf("config: save default: %w", err)
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", s.path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", s.path, err)
	}
	return cfg, nil
}

// Save writes cfg atomically: serialize to a temporary sibling file, then
// rename over the target. The caller's Config must carry unresolved
// "${NAME}" placeholders, not resolved secrets (Load never returns a value
// safe to feed back into Save).
func (s *Store) Save(cfg *Config) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: mkdir %s: %w", dir, err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.yaml.tmp")
	if err != nil {
		return fmt.Errorf("config: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("config: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("config: close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("config: rename into place: %w", err)
	}
	return nil
}

// AddRepository appends a tracked repository, failing with ErrInvalidRepo
// if path is not a Git working copy.
func (s *Store) AddRepository(name, path, project string) error {
	cfg, err := s.loadRaw()
	if err != nil {
		return err
	}

	if !isGitWorkingCopy(path) {
		return fmt.Errorf("%w: %s", ErrInvalidRepo, path)
	}

	for _, r := range cfg.Repositories {
		if r.Path == path {
			return fmt.Errorf("%w: %s already tracked", ErrInvalidRepo, path)
		}
	}

	cfg.Repositories = append(cfg.Repositories, Repository{
		Name:    name,
		Path:    path,
		Enabled: true,
		Project: project,
	})

	return s.Save(cfg)
}

// RemoveRepository drops a tracked repository by path; it is a no-op if
// the path was never tracked.
func (s *Store) RemoveRepository(path string) error {
	cfg, err := s.loadRaw()
	if err != nil {
		return err
	}

	out := cfg.Repositories[:0]
	for _, r := range cfg.Repositories {
		if r.Path != path {
			out = append(out, r)
		}
	}
	cfg.Repositories = out

	return s.Save(cfg)
}

// EnabledRepositories returns the currently tracked, enabled repositories.
func (s *Store) EnabledRepositories() ([]Repository, error) {
	cfg, err := s.Load()
	if err != nil {
		return nil, err
	}

	var enabled []Repository
	for _, r := range cfg.Repositories {
		if r.Enabled {
			enabled = append(enabled, r)
		}
	}
	return enabled, nil
}

func isGitWorkingCopy(path string) bool {
	info, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil && info.IsDir()
}

// resolveEnvPlaceholders walks string fields and replaces any exact
// "${NAME}" value with the environment variable NAME, leaving the field
// untouched if NAME is unset. Only exact-match placeholders are resolved
// (partial interpolation is out of scope; these fields hold whole secrets).
func resolveEnvPlaceholders(cfg *Config) {
	v := reflect.ValueOf(cfg).Elem()
	walkStrings(v, func(s string) string {
		if name, ok := placeholderName(s); ok {
			if resolved, found := os.LookupEnv(name); found {
				return resolved
			}
		}
		return s
	})
}

func placeholderName(s string) (string, bool) {
	if len(s) > 3 && s[0] == '$' && s[1] == '{' && s[len(s)-1] == '}' {
		return s[2 : len(s)-1], true
	}
	return "", false
}

func walkStrings(v reflect.Value, fn func(string) string) {
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			walkStrings(v.Field(i), fn)
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			walkStrings(v.Index(i), fn)
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(fn(v.String()))
		}
	}
}
