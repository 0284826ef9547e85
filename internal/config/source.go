package config

import (
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/tidwall/gjson"

	apperrors "github.com/ctagard/launchfile/internal/errors"
	"github.com/ctagard/launchfile/internal/jsonc"
)

// Source provides settings for one invocation. Implementations re-read their
// backing files on every call.
type Source interface {
	Load(workspaceFolder string) (*Config, error)
}

// FileSource loads settings from an optional settings file and the
// workspace's .vscode/settings.json.
type FileSource struct {
	// Path is the settings file. Empty means defaults only.
	Path string
}

// Load reads the settings fresh. Failures are SETTINGS_INVALID errors.
func (s FileSource) Load(workspaceFolder string) (*Config, error) {
	cfg := DefaultConfig()
	if s.Path != "" {
		if err := cfg.loadFromFile(s.Path); err != nil {
			return nil, apperrors.SettingsInvalid(s.Path, err)
		}
	}
	if workspaceFolder != "" {
		path := WorkspaceSettingsPath(workspaceFolder)
		if err := cfg.loadFromWorkspace(path); err != nil {
			return nil, apperrors.SettingsInvalid(path, err)
		}
	}
	cfg.applyDefaults()
	cfg.loadFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, apperrors.SettingsInvalid(s.describe(), err)
	}
	return cfg, nil
}

func (s FileSource) describe() string {
	if s.Path == "" {
		return "defaults"
	}
	return s.Path
}

// Static serves a fixed configuration. Each Load returns a copy.
type Static struct {
	Config *Config
}

// Load returns a copy of the static configuration.
func (s Static) Load(string) (*Config, error) {
	if s.Config == nil {
		return DefaultConfig(), nil
	}
	cfg := *s.Config
	cfg.ShellArgs = append([]string(nil), s.Config.ShellArgs...)
	return &cfg, nil
}

// WorkspaceSettingsPath returns the .vscode/settings.json path of a workspace folder.
func WorkspaceSettingsPath(workspaceFolder string) string {
	return filepath.Join(workspaceFolder, ".vscode", "settings.json")
}

// loadFromWorkspace applies "launchfile.*" keys of a VS Code settings file.
// A missing file is not an error.
func (c *Config) loadFromWorkspace(path string) error {
	doc, err := jsonc.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	get := func(key string) gjson.Result {
		return gjson.GetBytes(doc, gjson.Escape(WorkspaceSettingsPrefix+key))
	}

	if v := get("debugSuffix"); v.Type == gjson.String && v.Str != "" {
		c.DebugSuffix = v.Str
	}
	if v := get("strategy"); v.Type == gjson.String && v.Str != "" {
		c.Strategy = Strategy(v.Str)
	}
	if v := get("abortOnBuildFailure"); v.IsBool() {
		c.AbortOnBuildFailure = v.Bool()
	}
	return nil
}
