package resolve

import (
	"github.com/ctagard/launchfile/internal/config"
	apperrors "github.com/ctagard/launchfile/internal/errors"
	"github.com/ctagard/launchfile/internal/launchconfig"
	"github.com/ctagard/launchfile/internal/taskconfig"
)

// Catalog lists what the two stores hold and which entries the current
// naming conventions match for a tag.
type Catalog struct {
	Strategy       config.Strategy                  `json:"strategy"`
	DebugSuffix    string                           `json:"debugSuffix"`
	LaunchPath     string                           `json:"launchPath"`
	TasksPath      string                           `json:"tasksPath"`
	Configurations []launchconfig.ConfigurationInfo `json:"configurations"`
	Tasks          []string                         `json:"tasks"`
	Match          *CatalogMatch                    `json:"match,omitempty"`
	Warnings       []string                         `json:"warnings,omitempty"`
}

// CatalogMatch holds the entries matching a file-type tag.
type CatalogMatch struct {
	FileType       string   `json:"fileType"`
	Configurations []string `json:"configurations"`
	Tasks          []string `json:"tasks"`
}

// List builds the catalog of a workspace. A missing tasks.json is reported
// as a warning since a plan may not need one. tag may be empty.
func List(folder, tag string, cfg *config.Config) (*Catalog, error) {
	if folder == "" {
		return nil, apperrors.NoWorkspace()
	}

	lj, err := launchconfig.Load(folder)
	if err != nil {
		return nil, err
	}

	c := &Catalog{
		Strategy:       cfg.Strategy,
		DebugSuffix:    cfg.EffectiveDebugSuffix(),
		LaunchPath:     launchconfig.Path(folder),
		TasksPath:      taskconfig.Path(folder),
		Configurations: launchconfig.ListConfigurations(lj),
		Tasks:          []string{},
	}

	tf, err := taskconfig.Load(folder)
	switch {
	case err == nil:
		c.Tasks = taskconfig.ListLabels(tf)
	case apperrors.Is(err, apperrors.CodeTasksConfigNotFound):
		c.Warnings = append(c.Warnings, apperrors.FromError(err).Message)
	default:
		return nil, err
	}

	if tag == "" {
		return c, nil
	}

	debugConv := Convention{Prefix: tag, Suffix: c.DebugSuffix}
	buildConv := Convention{Prefix: tag, Suffix: config.BuildSuffix}
	c.Match = &CatalogMatch{FileType: tag, Configurations: []string{}, Tasks: []string{}}
	for _, info := range c.Configurations {
		if debugConv.Matches(info.Name) {
			c.Match.Configurations = append(c.Match.Configurations, info.Name)
		}
	}
	for _, label := range c.Tasks {
		if buildConv.Matches(label) {
			c.Match.Tasks = append(c.Match.Tasks, label)
		}
	}
	return c, nil
}
