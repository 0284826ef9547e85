// Package pipeline sequences one build-then-debug invocation: resolve a
// plan, run its build task and wait for that task's end, then start the
// debug configuration.
package pipeline

import (
	"context"
	"log/slog"

	apperrors "github.com/ctagard/launchfile/internal/errors"
	applog "github.com/ctagard/launchfile/internal/log"
	"github.com/ctagard/launchfile/internal/resolve"
	"github.com/ctagard/launchfile/internal/tasks"
	"github.com/ctagard/launchfile/pkg/types"
)

// LaunchRequest is what the orchestrator hands to the launcher.
type LaunchRequest struct {
	DebugConfigID string
	FileType      string

	// Build describes the build step, nil when the plan had none.
	Build *types.BuildInfo
}

// Orchestrator runs a plan's build step through a task engine.
type Orchestrator struct {
	engine              tasks.Engine
	abortOnBuildFailure bool
	logger              *slog.Logger
}

// NewOrchestrator creates an orchestrator. With abortOnBuildFailure set, a
// build task that exits non-zero aborts the run.
func NewOrchestrator(engine tasks.Engine, abortOnBuildFailure bool, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		engine:              engine,
		abortOnBuildFailure: abortOnBuildFailure,
		logger:              applog.WithComponent(logger, "orchestrator"),
	}
}

// Run executes the build step, if any, and returns once its process has
// ended. The wait has no timeout; cancelling ctx ends it and kills the task.
func (o *Orchestrator) Run(ctx context.Context, plan *resolve.Plan) (*LaunchRequest, error) {
	req := &LaunchRequest{
		DebugConfigID: plan.DebugConfigID,
		FileType:      plan.FileType,
	}
	if !plan.HasBuildStep() {
		return req, nil
	}

	label := plan.BuildStepID
	logger := o.logger.With(applog.TaskKey, label, applog.FileTypeKey, plan.FileType)

	available, err := o.engine.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	task := tasks.Find(available, label)
	if task == nil {
		if plan.StrictBuild() {
			return nil, apperrors.TaskNotAvailable(label)
		}
		logger.Warn("build task not available, debugging without a build")
		req.Build = &types.BuildInfo{Label: label, Skipped: true}
		return req, nil
	}

	exec, ended, err := tasks.ExecuteAndWait(ctx, o.engine, *task)
	if err != nil {
		return nil, err
	}

	req.Build = &types.BuildInfo{
		Label:       label,
		ExecutionID: exec.ID,
		ExitCode:    ended.ExitCode,
		Duration:    exec.Duration(),
	}
	logger.Info("build task ended",
		applog.ExecutionIDKey, exec.ID,
		"exit_code", ended.ExitCode,
	)

	if ended.ExitCode != 0 && o.abortOnBuildFailure {
		return nil, apperrors.BuildFailed(label, ended.ExitCode)
	}
	return req, nil
}
