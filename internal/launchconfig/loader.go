package launchconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/tidwall/gjson"

	apperrors "github.com/ctagard/launchfile/internal/errors"
	"github.com/ctagard/launchfile/internal/jsonc"
)

const (
	// LaunchJSONFileName is the standard name for VS Code launch configuration file.
	LaunchJSONFileName = "launch.json"
	// VSCodeDirName is the VS Code configuration directory name.
	VSCodeDirName = ".vscode"
)

// Path returns the launch.json location for a workspace folder.
func Path(workspaceFolder string) string {
	return filepath.Join(workspaceFolder, VSCodeDirName, LaunchJSONFileName)
}

// Load reads the launch.json of a workspace folder. A missing file yields a
// LAUNCH_CONFIG_NOT_FOUND error, an unparsable one CONFIG_INVALID.
func Load(workspaceFolder string) (*LaunchJSON, error) {
	path := Path(workspaceFolder)
	lj, err := LoadFromPath(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.LaunchConfigNotFound(path).WithCause(err)
		}
		return nil, apperrors.ConfigInvalid(path, err)
	}
	return lj, nil
}

// LoadFromPath loads a launch.json file from an explicit path.
func LoadFromPath(path string) (*LaunchJSON, error) {
	doc, err := jsonc.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read launch.json: %w", err)
	}
	return Parse(doc), nil
}

// Parse builds a LaunchJSON from a standardized JSON document. Configuration
// objects keep their document order; entries without a string name are kept
// with an empty Name so positions stay meaningful.
func Parse(doc []byte) *LaunchJSON {
	lj := &LaunchJSON{
		Version: jsonc.String(gjson.ParseBytes(doc), "version"),
	}
	for _, obj := range jsonc.Objects(doc, "configurations") {
		lj.Configurations = append(lj.Configurations, DebugConfiguration{
			Name:          jsonc.String(obj, "name"),
			PreLaunchTask: jsonc.String(obj, "preLaunchTask"),
			Raw:           []byte(obj.Raw),
		})
	}
	return lj
}

// FindConfiguration finds a configuration by exact name. The first match wins.
func FindConfiguration(lj *LaunchJSON, name string) (*DebugConfiguration, error) {
	for i := range lj.Configurations {
		if lj.Configurations[i].Name == name {
			return &lj.Configurations[i], nil
		}
	}
	return nil, fmt.Errorf("configuration %q not found", name)
}

// FindFirst returns the first configuration whose name satisfies match, or nil.
func FindFirst(lj *LaunchJSON, match func(name string) bool) *DebugConfiguration {
	for i := range lj.Configurations {
		if match(lj.Configurations[i].Name) {
			return &lj.Configurations[i]
		}
	}
	return nil
}

// ListConfigurationNames returns a list of all configuration names.
func ListConfigurationNames(lj *LaunchJSON) []string {
	names := make([]string, len(lj.Configurations))
	for i, cfg := range lj.Configurations {
		names[i] = cfg.Name
	}
	return names
}

// ConfigurationInfo provides summary information about a configuration.
type ConfigurationInfo struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	Request       string `json:"request"`
	PreLaunchTask string `json:"preLaunchTask,omitempty"`
}

// ListConfigurations returns summary information about all configurations.
func ListConfigurations(lj *LaunchJSON) []ConfigurationInfo {
	infos := make([]ConfigurationInfo, len(lj.Configurations))
	for i := range lj.Configurations {
		cfg := &lj.Configurations[i]
		infos[i] = ConfigurationInfo{
			Name:          cfg.Name,
			Type:          cfg.Type(),
			Request:       cfg.Request(),
			PreLaunchTask: cfg.PreLaunchTask,
		}
	}
	return infos
}
