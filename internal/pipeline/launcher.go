package pipeline

import (
	"context"
	"log/slog"

	"github.com/ctagard/launchfile/internal/debug"
	apperrors "github.com/ctagard/launchfile/internal/errors"
	"github.com/ctagard/launchfile/internal/launchconfig"
	applog "github.com/ctagard/launchfile/internal/log"
	"github.com/ctagard/launchfile/internal/workspace"
	"github.com/ctagard/launchfile/pkg/types"
)

// Launcher starts the debug configuration named by a launch request.
type Launcher struct {
	starter debug.Starter
	logger  *slog.Logger
}

// NewLauncher creates a launcher that starts sessions through starter.
func NewLauncher(starter debug.Starter, logger *slog.Logger) *Launcher {
	return &Launcher{
		starter: starter,
		logger:  applog.WithComponent(logger, "launcher"),
	}
}

// Launch reads launch.json again and starts the configuration whose name is
// exactly req.DebugConfigID. The debuggee's own outcome is not awaited.
func (l *Launcher) Launch(ctx context.Context, wctx workspace.Context, req *LaunchRequest) (types.SessionInfo, error) {
	lj, err := launchconfig.Load(wctx.Folder)
	if err != nil {
		return types.SessionInfo{}, err
	}

	// The build may have rewritten launch.json.
	cfg, err := launchconfig.FindConfiguration(lj, req.DebugConfigID)
	if err != nil {
		return types.SessionInfo{}, apperrors.ConfigNotFound(req.FileType, req.DebugConfigID)
	}

	l.logger.Debug("starting debug configuration",
		applog.ConfigKey, cfg.Name,
		applog.FileTypeKey, req.FileType,
	)
	return l.starter.Start(ctx, debug.Target{
		Configuration: cfg,
		Variables:     wctx.Variables(),
	})
}
