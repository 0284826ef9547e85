package dap

import (
	"context"
	"log/slog"
	"os/exec"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/ctagard/launchfile/internal/errors"
	applog "github.com/ctagard/launchfile/internal/log"
	"github.com/ctagard/launchfile/pkg/types"
)

// Session represents a debug session started from a launch configuration
type Session struct {
	ID         string
	ConfigName string
	Language   types.Language
	Debugger   types.Debugger
	Program    string
	CreatedAt  time.Time

	mu      sync.RWMutex
	status  types.SessionStatus
	client  *Client
	process *exec.Cmd
	pid     int

	done     chan struct{}
	doneOnce sync.Once
}

// Status returns the current session status
func (s *Session) Status() types.SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Client returns the DAP client, nil until the adapter is connected
func (s *Session) Client() *Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

// Done is closed once the session has been removed from its manager.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// GetInfo returns a snapshot of the session
func (s *Session) GetInfo() types.SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return types.SessionInfo{
		SessionID:  s.ID,
		ConfigName: s.ConfigName,
		Language:   s.Language,
		Debugger:   s.Debugger,
		Status:     s.status,
		PID:        s.pid,
		Program:    s.Program,
		CreatedAt:  s.CreatedAt,
	}
}

// SessionManager manages multiple debug sessions
type SessionManager struct {
	sessions map[string]*Session
	mu       sync.RWMutex

	maxSessions int
	logger      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSessionManager creates a new session manager. A maxSessions of zero or
// less means no limit.
func NewSessionManager(maxSessions int, logger *slog.Logger) *SessionManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &SessionManager{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
		logger:      applog.WithComponent(logger, "sessions"),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Context is cancelled when the manager is closed. Adapter processes are
// started under it so they do not outlive the manager.
func (sm *SessionManager) Context() context.Context {
	return sm.ctx
}

// CreateSession registers a new session in the initializing state
func (sm *SessionManager) CreateSession(configName string, language types.Language, debugger types.Debugger, program string) (*Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.maxSessions > 0 && len(sm.sessions) >= sm.maxSessions {
		return nil, apperrors.SessionLimitReached(sm.maxSessions)
	}

	session := &Session{
		ID:         uuid.New().String(),
		ConfigName: configName,
		Language:   language,
		Debugger:   debugger,
		Program:    program,
		CreatedAt:  time.Now(),
		status:     types.SessionStatusInitializing,
		done:       make(chan struct{}),
	}
	sm.sessions[session.ID] = session

	sm.logger.Debug("session created",
		applog.SessionIDKey, session.ID,
		applog.ConfigKey, configName,
	)
	return session, nil
}

// GetSession retrieves a session by ID
func (sm *SessionManager) GetSession(id string) (*Session, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, ok := sm.sessions[id]
	if !ok {
		return nil, apperrors.SessionNotFound(id)
	}
	return session, nil
}

// ListSessions returns all sessions, oldest first
func (sm *SessionManager) ListSessions() []*Session {
	sm.mu.RLock()
	sessions := make([]*Session, 0, len(sm.sessions))
	for _, session := range sm.sessions {
		sessions = append(sessions, session)
	}
	sm.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions
}

// SetSessionClient attaches the DAP client. When the adapter reports the
// session over, the session is removed and its adapter process killed.
func (sm *SessionManager) SetSessionClient(id string, client *Client) error {
	session, err := sm.GetSession(id)
	if err != nil {
		return err
	}

	session.mu.Lock()
	session.client = client
	session.mu.Unlock()

	go sm.watch(session, client)
	return nil
}

func (sm *SessionManager) watch(session *Session, client *Client) {
	select {
	case <-client.Done():
	case <-session.done:
		return
	case <-sm.ctx.Done():
		return
	}

	attrs := []any{applog.SessionIDKey, session.ID}
	if code, ok := client.ExitCode(); ok {
		attrs = append(attrs, "exit_code", code)
	}
	sm.logger.Info("debug session ended", attrs...)

	if s := sm.remove(session.ID); s != nil {
		sm.cleanup(s, false, false)
	}
}

// SetSessionProcess records the spawned adapter process
func (sm *SessionManager) SetSessionProcess(id string, cmd *exec.Cmd, pid int) error {
	session, err := sm.GetSession(id)
	if err != nil {
		return err
	}

	session.mu.Lock()
	session.process = cmd
	session.pid = pid
	session.mu.Unlock()
	return nil
}

// UpdateSessionStatus updates the status of a session
func (sm *SessionManager) UpdateSessionStatus(id string, status types.SessionStatus) error {
	session, err := sm.GetSession(id)
	if err != nil {
		return err
	}

	session.mu.Lock()
	session.status = status
	session.mu.Unlock()
	return nil
}

// TerminateSession disconnects from the adapter and kills its process
func (sm *SessionManager) TerminateSession(id string, terminateDebuggee bool) error {
	session := sm.remove(id)
	if session == nil {
		return apperrors.SessionNotFound(id)
	}
	sm.cleanup(session, true, terminateDebuggee)
	return nil
}

func (sm *SessionManager) remove(id string) *Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, ok := sm.sessions[id]
	if !ok {
		return nil
	}
	delete(sm.sessions, id)
	return session
}

// cleanup releases a session that is no longer registered
func (sm *SessionManager) cleanup(session *Session, disconnect, terminateDebuggee bool) {
	session.mu.Lock()
	client, process, pid := session.client, session.process, session.pid
	session.status = types.SessionStatusTerminated
	session.mu.Unlock()

	logger := sm.logger.With(applog.SessionIDKey, session.ID)

	if client != nil {
		if disconnect {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := client.Disconnect(ctx, terminateDebuggee); err != nil {
				logger.Warn("failed to disconnect session, continuing cleanup", applog.Error(err))
			}
			cancel()
		}
		if err := client.Close(); err != nil {
			logger.Debug("failed to close DAP client", applog.Error(err))
		}
	}

	if err := killProcessGroup(pid, process); err != nil {
		logger.Warn("failed to kill adapter process", "pid", pid, applog.Error(err))
	}

	session.doneOnce.Do(func() {
		close(session.done)
	})
}

// Close shuts down the session manager and all sessions
func (sm *SessionManager) Close() {
	sm.cancel()

	sm.mu.Lock()
	sessions := make([]*Session, 0, len(sm.sessions))
	for id, session := range sm.sessions {
		sessions = append(sessions, session)
		delete(sm.sessions, id)
	}
	sm.mu.Unlock()

	for _, session := range sessions {
		sm.cleanup(session, true, true)
	}
}
