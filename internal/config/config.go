package config

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"renderhook/internal/events"
)

//go:embed sample_config.toml
var sampleConfig string

// Webhook contains the notification endpoint and one path per render event.
// Paths are appended to URL verbatim; no slash handling is performed.
type Webhook struct {
	URL                string `toml:"url"`
	RenderStartPath    string `toml:"render_start_path"`
	RenderProgressPath string `toml:"render_progress_path"`
	RenderCompletePath string `toml:"render_complete_path"`
	RenderCancelPath   string `toml:"render_cancel_path"`
	RenderErrorPath    string `toml:"render_error_path"`
	RequestTimeout     int    `toml:"request_timeout"`
	Async              bool   `toml:"async"`
	UserAgent          string `toml:"user_agent"`
}

// Paths contains directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// History contains configuration for the delivery journal.
type History struct {
	Enabled       bool   `toml:"enabled"`
	Path          string `toml:"path"`
	RetentionDays int    `toml:"retention_days"`
}

// Render contains defaults for `renderhook run`.
type Render struct {
	Binary     string `toml:"binary"`
	FrameStart int    `toml:"frame_start"`
	FrameEnd   int    `toml:"frame_end"`
	Timeout    int    `toml:"timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for renderhook.
//
// Configuration sections by subsystem:
//   - Webhook: endpoint base URL, per-event paths, request timeout
//   - Paths: state and log directories
//   - History: optional sqlite delivery journal
//   - Render: renderer binary and default frame range for `renderhook run`
//   - Logging: log format and level
type Config struct {
	Webhook Webhook `toml:"webhook"`
	Paths   Paths   `toml:"paths"`
	History History `toml:"history"`
	Render  Render  `toml:"render"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPathValue)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPathValue)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigFileName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories. The history
// database directory is created only when the journal is enabled.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.History.Enabled && strings.TrimSpace(c.History.Path) != "" {
		dir := filepath.Dir(c.History.Path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}
	return nil
}

// EventPaths returns the path suffix configured for every render event.
func (c *Config) EventPaths() map[events.Kind]string {
	return map[events.Kind]string{
		events.Start:    c.Webhook.RenderStartPath,
		events.Progress: c.Webhook.RenderProgressPath,
		events.Complete: c.Webhook.RenderCompletePath,
		events.Cancel:   c.Webhook.RenderCancelPath,
		events.Error:    c.Webhook.RenderErrorPath,
	}
}

// LockPath returns the lock file guarding concurrent runs of one project. The
// name combines the file name with a digest of the absolute path, so projects
// sharing a file name in different directories do not block each other.
func (c *Config) LockPath(project string) string {
	project = strings.TrimSpace(project)
	name := filepath.Base(project)
	if project == "" || name == "." || name == string(filepath.Separator) {
		return filepath.Join(c.Paths.StateDir, "locks", "render.lock")
	}
	if abs, err := filepath.Abs(project); err == nil {
		project = abs
	}
	sum := sha256.Sum256([]byte(project))
	return filepath.Join(c.Paths.StateDir, "locks", fmt.Sprintf("%s-%s.lock", name, hex.EncodeToString(sum[:6])))
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
