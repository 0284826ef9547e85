// Package debug starts debug sessions from launch.json configurations.
//
// A Starter receives the whole configuration object. DAPStarter resolves
// ${...} variables in it, spawns the adapter that serves its "type", runs
// the DAP handshake and registers the session with a dap.SessionManager.
package debug

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	godap "github.com/google/go-dap"

	"github.com/ctagard/launchfile/internal/adapters"
	"github.com/ctagard/launchfile/internal/dap"
	apperrors "github.com/ctagard/launchfile/internal/errors"
	"github.com/ctagard/launchfile/internal/launchconfig"
	applog "github.com/ctagard/launchfile/internal/log"
	"github.com/ctagard/launchfile/internal/variables"
	"github.com/ctagard/launchfile/pkg/types"
)

const (
	// initializedTimeout bounds the wait for the adapter's initialized event.
	initializedTimeout = 10 * time.Second

	// launchTimeout bounds the wait for the launch or attach response.
	launchTimeout = 10 * time.Second
)

// Target is one request to start debugging.
type Target struct {
	// Configuration is the launch.json object, passed through whole.
	Configuration *launchconfig.DebugConfiguration

	// Variables resolves ${...} references inside the configuration.
	Variables *variables.Context
}

// Starter starts a debug session for a configuration.
type Starter interface {
	Start(ctx context.Context, target Target) (types.SessionInfo, error)
}

// DAPStarter starts sessions by spawning a DAP adapter.
type DAPStarter struct {
	registry *adapters.Registry
	sessions *dap.SessionManager
	logger   *slog.Logger
}

// NewDAPStarter creates a starter that registers sessions with sessions.
func NewDAPStarter(registry *adapters.Registry, sessions *dap.SessionManager, logger *slog.Logger) *DAPStarter {
	return &DAPStarter{
		registry: registry,
		sessions: sessions,
		logger:   applog.WithComponent(logger, "debug"),
	}
}

// Start implements Starter. It returns once the adapter has accepted the
// launch or attach request; the session then runs on its own.
func (s *DAPStarter) Start(ctx context.Context, target Target) (types.SessionInfo, error) {
	cfg := target.Configuration
	if cfg == nil {
		return types.SessionInfo{}, fmt.Errorf("no debug configuration")
	}

	args, err := resolveArguments(cfg, target.Variables)
	if err != nil {
		return types.SessionInfo{}, apperrors.DAPLaunchFailed(cfg.Name, err)
	}

	adapter, err := s.registry.ForConfiguration(cfg)
	if err != nil {
		return types.SessionInfo{}, err
	}

	program, _ := args["program"].(string)
	session, err := s.sessions.CreateSession(cfg.Name, cfg.Language(), adapter.Debugger(), program)
	if err != nil {
		return types.SessionInfo{}, err
	}
	logger := s.logger.With(applog.SessionIDKey, session.ID, applog.ConfigKey, cfg.Name)

	info, err := s.handshake(ctx, session, adapter, cfg, args, logger)
	if err != nil {
		if termErr := s.sessions.TerminateSession(session.ID, true); termErr != nil && !apperrors.Is(termErr, apperrors.CodeSessionNotFound) {
			logger.Warn("failed to clean up session", applog.Error(termErr))
		}
		return types.SessionInfo{}, err
	}

	logger.Info("debug session started",
		"debugger", info.Debugger,
		"pid", info.PID,
	)
	return info, nil
}

func (s *DAPStarter) handshake(
	ctx context.Context,
	session *dap.Session,
	adapter adapters.Adapter,
	cfg *launchconfig.DebugConfiguration,
	args map[string]interface{},
	logger *slog.Logger,
) (types.SessionInfo, error) {
	// The adapter outlives this call, so it runs under the manager's context.
	client, cmd, err := adapters.SpawnAndConnect(s.sessions.Context(), adapter, args, logger)
	if err != nil {
		return types.SessionInfo{}, apperrors.AdapterSpawnFailed(string(cfg.Language()), err)
	}
	if cmd != nil && cmd.Process != nil {
		_ = s.sessions.SetSessionProcess(session.ID, cmd, cmd.Process.Pid)
	}
	if err := s.sessions.SetSessionClient(session.ID, client); err != nil {
		_ = client.Close()
		return types.SessionInfo{}, err
	}

	if _, err := client.Initialize(ctx, adapter.AdapterID()); err != nil {
		return types.SessionInfo{}, apperrors.DAPInitFailed(err)
	}

	// Adapters such as debugpy answer launch only after configurationDone,
	// so the request is sent first and its response collected last.
	var respCh chan godap.Message
	if cfg.IsAttachRequest() {
		respCh, err = client.AttachAsync(adapter.BuildAttachArgs(args))
	} else {
		respCh, err = client.LaunchAsync(adapter.BuildLaunchArgs(args))
	}
	if err != nil {
		return types.SessionInfo{}, apperrors.DAPLaunchFailed(cfg.Name, err)
	}

	if err := client.WaitInitialized(ctx, initializedTimeout); err != nil {
		return types.SessionInfo{}, apperrors.DAPLaunchFailed(cfg.Name, err)
	}
	if err := client.ConfigurationDone(ctx); err != nil {
		return types.SessionInfo{}, apperrors.DAPLaunchFailed(cfg.Name, err)
	}
	if _, err := client.WaitForResponse(ctx, respCh, launchTimeout); err != nil {
		return types.SessionInfo{}, apperrors.DAPLaunchFailed(cfg.Name, err)
	}

	if err := s.sessions.UpdateSessionStatus(session.ID, types.SessionStatusRunning); err != nil {
		// the debuggee already ended and the session was cleaned up
		logger.Debug("session ended during launch", applog.Error(err))
	}
	return session.GetInfo(), nil
}

// resolveArguments decodes the configuration and substitutes ${...}
// variables in every string value.
func resolveArguments(cfg *launchconfig.DebugConfiguration, vars *variables.Context) (map[string]interface{}, error) {
	raw, err := cfg.Map()
	if err != nil {
		return nil, err
	}
	if vars == nil {
		return raw, nil
	}
	resolved, err := variables.ResolveTree(raw, vars)
	if err != nil {
		return nil, err
	}
	args, ok := resolved.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("configuration %q did not resolve to an object", cfg.Name)
	}
	return args, nil
}
