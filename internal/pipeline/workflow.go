package pipeline

import (
	"context"
	"io"
	"log/slog"

	"github.com/ctagard/launchfile/internal/config"
	"github.com/ctagard/launchfile/internal/debug"
	apperrors "github.com/ctagard/launchfile/internal/errors"
	applog "github.com/ctagard/launchfile/internal/log"
	"github.com/ctagard/launchfile/internal/notify"
	"github.com/ctagard/launchfile/internal/resolve"
	"github.com/ctagard/launchfile/internal/tasks"
	"github.com/ctagard/launchfile/internal/workspace"
	"github.com/ctagard/launchfile/pkg/types"
)

// EngineFactory creates the task engine for one invocation.
type EngineFactory func(wctx workspace.Context, cfg *config.Config) tasks.Engine

// ExecutorEngines returns an EngineFactory running tasks as local processes
// with their output written to out.
func ExecutorEngines(out io.Writer, logger *slog.Logger) EngineFactory {
	return func(wctx workspace.Context, cfg *config.Config) tasks.Engine {
		return tasks.NewExecutor(tasks.ExecutorConfig{
			WorkspaceFolder: wctx.Folder,
			Shell:           cfg.Shell,
			ShellArgs:       cfg.ShellArgs,
			Variables:       wctx.Variables(),
			Output:          out,
			Logger:          logger,
		})
	}
}

// WorkflowConfig wires a Workflow.
type WorkflowConfig struct {
	Settings config.Source
	Engines  EngineFactory
	Starter  debug.Starter
	Notifier notify.Notifier
	Logger   *slog.Logger

	// Resolver defaults to a resolve.ConfigResolver over Settings.
	Resolver resolve.Resolver
}

// Workflow is the user-facing build-then-debug action.
type Workflow struct {
	settings config.Source
	resolver resolve.Resolver
	engines  EngineFactory
	launcher *Launcher
	notifier notify.Notifier
	logger   *slog.Logger
}

// NewWorkflow creates a workflow.
func NewWorkflow(cfg WorkflowConfig) *Workflow {
	if cfg.Settings == nil {
		cfg.Settings = config.FileSource{}
	}
	if cfg.Resolver == nil {
		cfg.Resolver = resolve.NewConfigResolver(cfg.Settings, cfg.Logger)
	}
	if cfg.Engines == nil {
		cfg.Engines = ExecutorEngines(io.Discard, cfg.Logger)
	}
	return &Workflow{
		settings: cfg.Settings,
		resolver: cfg.Resolver,
		engines:  cfg.Engines,
		launcher: NewLauncher(cfg.Starter, cfg.Logger),
		notifier: cfg.Notifier,
		logger:   applog.WithComponent(cfg.Logger, "workflow"),
	}
}

// Resolve derives the plan for the active document without running it.
func (w *Workflow) Resolve(ctx context.Context, wctx workspace.Context) (*resolve.Plan, error) {
	plan, err := w.resolve(ctx, wctx)
	if err != nil {
		return nil, w.fail(err)
	}
	return plan, nil
}

func (w *Workflow) resolve(ctx context.Context, wctx workspace.Context) (*resolve.Plan, error) {
	if !wctx.HasDocument() {
		return nil, apperrors.NoActiveDocument()
	}
	return w.resolver.Resolve(ctx, wctx, wctx.Document.Tag())
}

// Run resolves the active document's plan, runs its build step and starts
// the debug session. Every failure is reported through the notifier once
// and returned. The result holds whatever completed before a failure.
func (w *Workflow) Run(ctx context.Context, wctx workspace.Context) (*types.RunResult, error) {
	plan, err := w.resolve(ctx, wctx)
	if err != nil {
		return nil, w.fail(err)
	}
	result := &types.RunResult{Plan: plan.Info()}

	settings, err := w.settings.Load(wctx.Folder)
	if err != nil {
		return result, w.fail(err)
	}

	orchestrator := NewOrchestrator(w.engines(wctx, settings), settings.AbortOnBuildFailure, w.logger)
	req, err := orchestrator.Run(ctx, plan)
	if err != nil {
		return result, w.fail(err)
	}
	result.Build = req.Build

	session, err := w.launcher.Launch(ctx, wctx, req)
	if err != nil {
		return result, w.fail(err)
	}
	result.Session = &session
	return result, nil
}

func (w *Workflow) fail(err error) error {
	w.logger.Debug("workflow stopped", applog.Error(err))
	notify.Error(w.notifier, err)
	return err
}
