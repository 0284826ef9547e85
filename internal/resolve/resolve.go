// Package resolve derives a build-then-debug plan from a file-type tag.
//
// Two strategies exist. The link strategy finds the debug configuration by
// naming convention and follows its preLaunchTask to the build task; a broken
// link degrades into a debug run without a build. The convention strategy
// finds both the build task and the debug configuration by name and refuses
// to produce a partial plan.
//
// Every resolution reads settings, launch.json and tasks.json from disk.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ctagard/launchfile/internal/config"
	apperrors "github.com/ctagard/launchfile/internal/errors"
	applog "github.com/ctagard/launchfile/internal/log"
	"github.com/ctagard/launchfile/internal/workspace"
	"github.com/ctagard/launchfile/pkg/types"
)

// Convention is a prefix/suffix naming rule. Any text may sit between the two.
type Convention struct {
	Prefix string
	Suffix string
}

// Matches reports whether name starts with the prefix and ends with the suffix.
func (c Convention) Matches(name string) bool {
	return strings.HasPrefix(name, c.Prefix) && strings.HasSuffix(name, c.Suffix)
}

// Plan is the outcome of a successful resolution.
type Plan struct {
	FileType string
	Strategy config.Strategy

	// DebugConfigID is the name of the debug configuration to launch.
	DebugConfigID string
	// BuildStepID is the label of the build task to run first, or "" for none.
	BuildStepID string
}

// HasBuildStep reports whether a build task runs before the debug launch.
func (p *Plan) HasBuildStep() bool {
	return p.BuildStepID != ""
}

// StrictBuild reports whether a build task the task engine cannot find
// aborts the run instead of being skipped.
func (p *Plan) StrictBuild() bool {
	return p.Strategy == config.StrategyConvention
}

// Info converts the plan for reporting.
func (p *Plan) Info() types.PlanInfo {
	return types.PlanInfo{
		FileType:      p.FileType,
		Strategy:      string(p.Strategy),
		DebugConfigID: p.DebugConfigID,
		BuildStepID:   p.BuildStepID,
	}
}

// Resolver turns a file-type tag into a plan.
type Resolver interface {
	Resolve(ctx context.Context, wctx workspace.Context, tag string) (*Plan, error)
}

// Strategy is one way of locating the build task and debug configuration.
type Strategy interface {
	Name() config.Strategy
	Resolve(ctx context.Context, folder, tag string, cfg *config.Config) (*Plan, error)
}

// ConfigResolver resolves with the strategy selected by the current settings.
type ConfigResolver struct {
	settings config.Source
	logger   *slog.Logger
}

// NewConfigResolver creates a resolver reading settings from src.
func NewConfigResolver(src config.Source, logger *slog.Logger) *ConfigResolver {
	if src == nil {
		src = config.FileSource{}
	}
	return &ConfigResolver{
		settings: src,
		logger:   applog.WithComponent(logger, "resolver"),
	}
}

// Resolve checks the workspace, reloads settings and runs the configured strategy.
func (r *ConfigResolver) Resolve(ctx context.Context, wctx workspace.Context, tag string) (*Plan, error) {
	if !wctx.HasFolder() {
		return nil, apperrors.NoWorkspace()
	}
	// An empty prefix would match every configuration ending in the suffix.
	if tag == "" {
		var path string
		if wctx.HasDocument() {
			path = wctx.Document.Path
		}
		return nil, apperrors.UnknownFileType(path)
	}

	cfg, err := r.settings.Load(wctx.Folder)
	if err != nil {
		return nil, err
	}

	strategy, err := New(cfg.Strategy, r.logger)
	if err != nil {
		return nil, err
	}

	plan, err := strategy.Resolve(ctx, wctx.Folder, tag, cfg)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("resolved plan",
		applog.FileTypeKey, tag,
		"strategy", plan.Strategy,
		applog.ConfigKey, plan.DebugConfigID,
		applog.TaskKey, plan.BuildStepID,
	)
	return plan, nil
}

// New returns the strategy registered under name.
func New(name config.Strategy, logger *slog.Logger) (Strategy, error) {
	switch name {
	case config.StrategyLink, "":
		return &LinkStrategy{logger: applog.OrDiscard(logger)}, nil
	case config.StrategyConvention:
		return &ConventionStrategy{}, nil
	}
	return nil, apperrors.SettingsInvalid("strategy", fmt.Errorf("unknown strategy %q", name))
}
