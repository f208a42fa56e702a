// Package config loads and persists appscope settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// ConfigDirName is the per-user (or per-project) settings directory.
const ConfigDirName = ".appscope"

// settingsFileName is the settings file inside ConfigDirName.
const settingsFileName = "config.yaml"

// Settings is the configuration surface the tree engine reads.
type Settings struct {
	// Tenant is the directory tenant id or domain. Display only; the
	// token decides what we can actually see.
	Tenant string `yaml:"tenant,omitempty"`

	// TokenEnv names an environment variable holding the bearer token.
	// TokenFile points at a token file written by the external login CLI.
	// TokenEnv wins when both are set.
	TokenEnv  string `yaml:"token_env,omitempty"`
	TokenFile string `yaml:"token_file,omitempty"`

	// UseEventualConsistency selects the query path that supports
	// server-side filtering, counting and ordering at the cost of
	// immediate consistency.
	UseEventualConsistency bool `yaml:"use_eventual_consistency"`

	// ShowApplicationCountWarning enables the count advisory before each
	// rebuild.
	ShowApplicationCountWarning bool `yaml:"show_application_count_warning"`

	// ShowOwnedApplicationsOnly restricts listings and counts to
	// applications owned by the signed-in user.
	ShowOwnedApplicationsOnly bool `yaml:"show_owned_applications_only"`

	// ShowDeletedApplications appends recently deleted applications to
	// the tree.
	ShowDeletedApplications bool `yaml:"show_deleted_applications"`

	// MaximumApplicationsShown caps the root node count client-side.
	MaximumApplicationsShown int `yaml:"maximum_applications_shown"`

	// MaximumQueryApps caps how many objects one eventually-consistent
	// query requests from the server.
	MaximumQueryApps int `yaml:"maximum_query_apps"`

	// SuppressCountAdvisory records the "don't show again" resolution of
	// the count advisory.
	SuppressCountAdvisory bool `yaml:"suppress_count_advisory,omitempty"`
}

// DefaultSettings returns the defaults applied under a missing or sparse
// settings file.
func DefaultSettings() Settings {
	return Settings{
		TokenEnv:                    "APPSCOPE_TOKEN",
		UseEventualConsistency:      true,
		ShowApplicationCountWarning: true,
		MaximumApplicationsShown:    50,
		MaximumQueryApps:            100,
	}
}

// SettingsPath returns the settings file inside dir.
func SettingsPath(dir string) string {
	return filepath.Join(dir, settingsFileName)
}

// Discover finds the settings directory: an explicit override wins, then an
// upward walk from the working directory looking for ConfigDirName, then the
// home fallback (~/.appscope). The directory is not created here.
func Discover(override string) string {
	if override != "" {
		return override
	}
	if cwd, err := os.Getwd(); err == nil {
		if found, ok := findConfigRoot(cwd); ok {
			return filepath.Join(found, ConfigDirName)
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ConfigDirName
	}
	return filepath.Join(home, ConfigDirName)
}

// findConfigRoot walks up from dir looking for a ConfigDirName directory.
func findConfigRoot(dir string) (string, bool) {
	home, _ := os.UserHomeDir()

	for {
		candidate := filepath.Join(dir, ConfigDirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return dir, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		if home != "" && dir == home {
			break
		}
		dir = parent
	}
	return "", false
}

// Store owns the settings file: load once, mutate through setters, persist.
// Safe for concurrent use; the engine applies advisory intents through it
// from rebuild goroutines.
type Store struct {
	mu       sync.RWMutex
	dir      string
	settings Settings
}

// Open loads settings from dir, applying defaults for anything unset. A
// missing file is first run, not an error.
func Open(dir string) (*Store, error) {
	s := &Store{dir: dir, settings: DefaultSettings()}

	data, err := os.ReadFile(SettingsPath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &s.settings); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", SettingsPath(dir), err)
	}
	s.applyFloors()
	return s, nil
}

// applyFloors keeps hand-edited files from zeroing the query limits.
func (s *Store) applyFloors() {
	if s.settings.MaximumApplicationsShown <= 0 {
		s.settings.MaximumApplicationsShown = DefaultSettings().MaximumApplicationsShown
	}
	if s.settings.MaximumQueryApps <= 0 {
		s.settings.MaximumQueryApps = DefaultSettings().MaximumQueryApps
	}
}

// Dir returns the settings directory.
func (s *Store) Dir() string {
	return s.dir
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Reload re-reads the settings file in place (config watcher path).
func (s *Store) Reload() error {
	fresh, err := Open(s.dir)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.settings = fresh.settings
	s.mu.Unlock()
	return nil
}

// SetUseEventualConsistency flips the query mode and persists.
func (s *Store) SetUseEventualConsistency(v bool) error {
	s.mu.Lock()
	s.settings.UseEventualConsistency = v
	s.mu.Unlock()
	return s.save()
}

// SetSuppressCountAdvisory records the "don't show again" resolution.
func (s *Store) SetSuppressCountAdvisory(v bool) error {
	s.mu.Lock()
	s.settings.SuppressCountAdvisory = v
	s.mu.Unlock()
	return s.save()
}

// SetShowOwnedApplicationsOnly flips the listing scope and persists.
func (s *Store) SetShowOwnedApplicationsOnly(v bool) error {
	s.mu.Lock()
	s.settings.ShowOwnedApplicationsOnly = v
	s.mu.Unlock()
	return s.save()
}

// SetShowDeletedApplications flips deleted-app visibility and persists.
func (s *Store) SetShowDeletedApplications(v bool) error {
	s.mu.Lock()
	s.settings.ShowDeletedApplications = v
	s.mu.Unlock()
	return s.save()
}

func (s *Store) save() error {
	s.mu.RLock()
	data, err := yaml.Marshal(s.settings)
	dir := s.dir
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}
	if err := os.WriteFile(SettingsPath(dir), data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
