package resolve

import (
	"context"
	"log/slog"

	"github.com/ctagard/launchfile/internal/config"
	apperrors "github.com/ctagard/launchfile/internal/errors"
	"github.com/ctagard/launchfile/internal/launchconfig"
	applog "github.com/ctagard/launchfile/internal/log"
	"github.com/ctagard/launchfile/internal/taskconfig"
)

// LinkStrategy finds the debug configuration by the configured suffix and
// follows its preLaunchTask to a task with exactly that label.
type LinkStrategy struct {
	logger *slog.Logger
}

// Name returns config.StrategyLink.
func (s *LinkStrategy) Name() config.Strategy { return config.StrategyLink }

// Resolve implements Strategy.
func (s *LinkStrategy) Resolve(_ context.Context, folder, tag string, cfg *config.Config) (*Plan, error) {
	lj, err := launchconfig.Load(folder)
	if err != nil {
		return nil, err
	}

	conv := Convention{Prefix: tag, Suffix: cfg.DebugSuffix}
	debugCfg := launchconfig.FindFirst(lj, conv.Matches)
	if debugCfg == nil {
		return nil, apperrors.NoDebugConfig(tag, cfg.DebugSuffix)
	}

	plan := &Plan{
		FileType:      tag,
		Strategy:      config.StrategyLink,
		DebugConfigID: debugCfg.Name,
	}
	if debugCfg.PreLaunchTask == "" {
		return plan, nil
	}

	tf, err := taskconfig.Load(folder)
	if err != nil {
		return nil, err
	}
	if task := taskconfig.FindTask(tf, debugCfg.PreLaunchTask); task != nil {
		plan.BuildStepID = task.Label
		return plan, nil
	}

	miss := apperrors.BuildStepLinkMissing(debugCfg.Name, debugCfg.PreLaunchTask)
	s.logger.Warn("build step skipped", applog.Error(miss), applog.FileTypeKey, tag)
	return plan, nil
}

// ConventionStrategy finds the build task by the fixed "_Build" suffix and
// the debug configuration by the fixed "_Debug" suffix. Both must exist.
type ConventionStrategy struct{}

// Name returns config.StrategyConvention.
func (s *ConventionStrategy) Name() config.Strategy { return config.StrategyConvention }

// Resolve implements Strategy.
func (s *ConventionStrategy) Resolve(_ context.Context, folder, tag string, _ *config.Config) (*Plan, error) {
	lj, err := launchconfig.Load(folder)
	if err != nil {
		return nil, err
	}
	tf, err := taskconfig.Load(folder)
	if err != nil {
		return nil, err
	}

	buildConv := Convention{Prefix: tag, Suffix: config.BuildSuffix}
	debugConv := Convention{Prefix: tag, Suffix: config.ConventionDebugSuffix}

	// Both lookups happen before either result is acted on.
	task := taskconfig.FindFirst(tf, buildConv.Matches)
	debugCfg := launchconfig.FindFirst(lj, debugConv.Matches)

	if debugCfg == nil {
		return nil, apperrors.NoDebugConfig(tag, debugConv.Suffix)
	}
	if task == nil {
		return nil, apperrors.NoBuildStep(tag, buildConv.Suffix)
	}

	return &Plan{
		FileType:      tag,
		Strategy:      config.StrategyConvention,
		DebugConfigID: debugCfg.Name,
		BuildStepID:   task.Label,
	}, nil
}
