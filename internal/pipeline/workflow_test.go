package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctagard/launchfile/internal/config"
	"github.com/ctagard/launchfile/internal/debug"
	apperrors "github.com/ctagard/launchfile/internal/errors"
	"github.com/ctagard/launchfile/internal/notify"
	"github.com/ctagard/launchfile/internal/resolve"
	"github.com/ctagard/launchfile/internal/tasks"
	"github.com/ctagard/launchfile/internal/workspace"
	"github.com/ctagard/launchfile/pkg/types"
)

const launchJSON = `{
  // scenario workspace
  "version": "0.2.0",
  "configurations": [
    {"name": "cpp_Debug", "type": "cppdbg", "request": "launch", "program": "${workspaceFolder}/a.out", "preLaunchTask": "cpp_Build"},
    {"name": "py_Debug", "type": "debugpy", "request": "launch", "program": "${file}"},
  ]
}`

const tasksJSON = `{
  "version": "2.0.0",
  "tasks": [
    {"label": "cpp_Build", "type": "shell", "command": "make"},
  ]
}`

// trace records the order of engine and starter events across goroutines.
type trace struct {
	mu     sync.Mutex
	events []string
}

func (t *trace) add(format string, args ...interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, fmt.Sprintf(format, args...))
}

func (t *trace) list() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.events...)
}

// fakeEngine ends every execution asynchronously with exitCode.
type fakeEngine struct {
	tasks.Listeners
	trace    *trace
	names    []string
	exitCode int
	// before runs inside Execute, before the process "ends"
	before func()
	// noise publishes an unrelated end event first
	noise bool

	mu         sync.Mutex
	executions int
}

func (e *fakeEngine) FetchAll(context.Context) ([]tasks.Descriptor, error) {
	out := make([]tasks.Descriptor, 0, len(e.names))
	for _, n := range e.names {
		out = append(out, tasks.Descriptor{Name: n, Source: "fake"})
	}
	return out, nil
}

func (e *fakeEngine) Execute(_ context.Context, d tasks.Descriptor) (*tasks.Execution, error) {
	e.mu.Lock()
	e.executions++
	n := e.executions
	e.mu.Unlock()

	exec := tasks.NewExecution(fmt.Sprintf("exec-%d", n), d)
	e.trace.add("execute %s", d.Name)
	if e.before != nil {
		e.before()
	}
	go func() {
		if e.noise {
			other := tasks.NewExecution("other", d)
			e.Publish(tasks.ProcessEnded{Execution: other, ExitCode: 99})
		}
		time.Sleep(20 * time.Millisecond)
		exec.Finish(e.exitCode, nil)
		e.trace.add("ended %s", d.Name)
		e.Publish(tasks.ProcessEnded{Execution: exec, ExitCode: e.exitCode})
	}()
	return exec, nil
}

func (e *fakeEngine) Executions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.executions
}

type fakeStarter struct {
	trace *trace
	err   error

	mu      sync.Mutex
	targets []debug.Target
}

func (s *fakeStarter) Start(_ context.Context, target debug.Target) (types.SessionInfo, error) {
	s.trace.add("start %s", target.Configuration.Name)
	s.mu.Lock()
	s.targets = append(s.targets, target)
	s.mu.Unlock()
	if s.err != nil {
		return types.SessionInfo{}, s.err
	}
	return types.SessionInfo{
		SessionID:  "session-1",
		ConfigName: target.Configuration.Name,
		Status:     types.SessionStatusRunning,
	}, nil
}

func (s *fakeStarter) Starts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.targets)
}

type harness struct {
	t        *testing.T
	folder   string
	settings *config.Config
	trace    *trace
	engine   *fakeEngine
	starter  *fakeStarter
	notes    *notify.Recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	folder := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(folder, ".vscode"), 0755))
	tr := &trace{}
	h := &harness{
		t:        t,
		folder:   folder,
		settings: config.DefaultConfig(),
		trace:    tr,
		engine:   &fakeEngine{trace: tr, names: []string{"cpp_Build"}},
		starter:  &fakeStarter{trace: tr},
		notes:    &notify.Recorder{},
	}
	h.write("launch.json", launchJSON)
	h.write("tasks.json", tasksJSON)
	return h
}

func (h *harness) write(name, content string) {
	h.t.Helper()
	require.NoError(h.t, os.WriteFile(filepath.Join(h.folder, ".vscode", name), []byte(content), 0644))
}

func (h *harness) workflow() *Workflow {
	return NewWorkflow(WorkflowConfig{
		Settings: config.Static{Config: h.settings},
		Engines: func(workspace.Context, *config.Config) tasks.Engine {
			return h.engine
		},
		Starter:  h.starter,
		Notifier: h.notes,
	})
}

func (h *harness) wctx(file, language string) workspace.Context {
	return workspace.Context{
		Folder:   h.folder,
		Document: &workspace.Document{Path: filepath.Join(h.folder, file), LanguageID: language},
	}
}

func TestRunBuildsThenDebugs(t *testing.T) {
	h := newHarness(t)

	result, err := h.workflow().Run(context.Background(), h.wctx("main.cpp", "cpp"))
	require.NoError(t, err)

	assert.Equal(t, []string{"execute cpp_Build", "ended cpp_Build", "start cpp_Debug"}, h.trace.list())
	assert.Equal(t, 1, h.engine.Executions())
	assert.Equal(t, 0, h.engine.Len(), "build listener detached")

	assert.Equal(t, "cpp_Build", result.Plan.BuildStepID)
	require.NotNil(t, result.Build)
	assert.Equal(t, "exec-1", result.Build.ExecutionID)
	assert.Equal(t, 0, result.Build.ExitCode)
	require.NotNil(t, result.Session)
	assert.Equal(t, "cpp_Debug", result.Session.ConfigName)
	assert.Empty(t, h.notes.Messages())

	// the whole configuration object reaches the starter
	target := h.starter.targets[0]
	assert.Equal(t, "cppdbg", target.Configuration.Type())
	assert.Equal(t, filepath.Join(h.folder, "main.cpp"), target.Variables.CurrentFile)
}

func TestRunStandaloneDebug(t *testing.T) {
	h := newHarness(t)

	result, err := h.workflow().Run(context.Background(), h.wctx("main.py", "py"))
	require.NoError(t, err)

	assert.Equal(t, 0, h.engine.Executions())
	assert.Equal(t, []string{"start py_Debug"}, h.trace.list())
	assert.Nil(t, result.Build)
	assert.Equal(t, "py_Debug", result.Session.ConfigName)
}

func TestRunNoMatchingConfiguration(t *testing.T) {
	h := newHarness(t)

	result, err := h.workflow().Run(context.Background(), h.wctx("main.rs", "rs"))
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, apperrors.Is(err, apperrors.CodeNoDebugConfig))

	assert.Equal(t, 0, h.engine.Executions())
	assert.Equal(t, 0, h.starter.Starts())

	msgs := h.notes.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, notify.LevelError, msgs[0].Level)
	assert.Contains(t, msgs[0].Text, "rs")
}

func TestRunWithoutDocument(t *testing.T) {
	h := newHarness(t)

	_, err := h.workflow().Run(context.Background(), workspace.Context{Folder: h.folder})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeNoActiveDocument))
	assert.Len(t, h.notes.Errors(), 1)
	assert.Equal(t, 0, h.starter.Starts())
}

func TestRunFileWithoutTypeStartsNothing(t *testing.T) {
	h := newHarness(t)

	result, err := h.workflow().Run(context.Background(), h.wctx("Makefile", ""))
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, apperrors.Is(err, apperrors.CodeUnknownFileType))

	assert.Equal(t, 0, h.engine.Executions())
	assert.Equal(t, 0, h.starter.Starts())
	msgs := h.notes.Errors()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "Makefile")
}

func TestRunWithoutWorkspace(t *testing.T) {
	h := newHarness(t)

	_, err := h.workflow().Run(context.Background(), workspace.Context{Document: &workspace.Document{Path: "/tmp/x.cpp"}})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindEnvironment, apperrors.KindOf(err))
	assert.Len(t, h.notes.Errors(), 1)
}

func TestRunWaitsForItsOwnExecution(t *testing.T) {
	h := newHarness(t)
	h.engine.noise = true

	_, err := h.workflow().Run(context.Background(), h.wctx("main.cpp", "cpp"))
	require.NoError(t, err)
	assert.Equal(t, []string{"execute cpp_Build", "ended cpp_Build", "start cpp_Debug"}, h.trace.list())
}

func TestRunUnknownTaskUnderLinkSkipsBuild(t *testing.T) {
	h := newHarness(t)
	h.engine.names = nil

	result, err := h.workflow().Run(context.Background(), h.wctx("main.cpp", "cpp"))
	require.NoError(t, err)

	assert.Equal(t, 0, h.engine.Executions())
	assert.Equal(t, 1, h.starter.Starts())
	require.NotNil(t, result.Build)
	assert.True(t, result.Build.Skipped)
}

func TestRunUnknownTaskUnderConventionAborts(t *testing.T) {
	h := newHarness(t)
	h.settings.Strategy = config.StrategyConvention
	h.engine.names = nil

	_, err := h.workflow().Run(context.Background(), h.wctx("main.cpp", "cpp"))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeTaskNotAvailable))
	assert.Equal(t, 0, h.engine.Executions())
	assert.Equal(t, 0, h.starter.Starts())
	assert.Len(t, h.notes.Errors(), 1)
}

func TestRunBuildFailure(t *testing.T) {
	tests := []struct {
		name   string
		abort  bool
		starts int
	}{
		{"proceeds by default", false, 1},
		{"aborts when configured", true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.engine.exitCode = 2
			h.settings.AbortOnBuildFailure = tt.abort

			result, err := h.workflow().Run(context.Background(), h.wctx("main.cpp", "cpp"))
			assert.Equal(t, tt.starts, h.starter.Starts())
			require.NotNil(t, result)
			if tt.abort {
				require.Error(t, err)
				assert.True(t, apperrors.Is(err, apperrors.CodeBuildFailed))
				assert.Len(t, h.notes.Errors(), 1)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 2, result.Build.ExitCode)
		})
	}
}

func TestRunConfigurationRemovedDuringBuild(t *testing.T) {
	h := newHarness(t)
	h.engine.before = func() {
		h.write("launch.json", `{"configurations": [{"name": "py_Debug", "type": "debugpy"}]}`)
	}

	_, err := h.workflow().Run(context.Background(), h.wctx("main.cpp", "cpp"))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeConfigNotFound))
	assert.Contains(t, err.Error(), "cpp")
	assert.Equal(t, 1, h.engine.Executions())
	assert.Equal(t, 0, h.starter.Starts())
}

func TestRunStarterErrorIsNotifiedOnce(t *testing.T) {
	h := newHarness(t)
	h.starter.err = apperrors.DAPInitFailed(errors.New("adapter crashed"))

	result, err := h.workflow().Run(context.Background(), h.wctx("main.py", "py"))
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Nil(t, result.Session)

	msgs := h.notes.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, apperrors.CodeDAPInitFailed, msgs[0].Code)
}

func TestRunCancelledDuringBuild(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	h.engine.before = cancel

	_, err := h.workflow().Run(ctx, h.wctx("main.cpp", "cpp"))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, h.starter.Starts())
}

func TestResolveDoesNotRun(t *testing.T) {
	h := newHarness(t)

	plan, err := h.workflow().Resolve(context.Background(), h.wctx("main.cpp", "cpp"))
	require.NoError(t, err)
	assert.Equal(t, &resolve.Plan{
		FileType:      "cpp",
		Strategy:      config.StrategyLink,
		DebugConfigID: "cpp_Debug",
		BuildStepID:   "cpp_Build",
	}, plan)
	assert.Equal(t, 0, h.engine.Executions())
	assert.Equal(t, 0, h.starter.Starts())
}

func TestOrchestratorWithoutBuildStep(t *testing.T) {
	engine := &fakeEngine{trace: &trace{}}
	o := NewOrchestrator(engine, true, nil)

	req, err := o.Run(context.Background(), &resolve.Plan{FileType: "py", DebugConfigID: "py_Debug"})
	require.NoError(t, err)
	assert.Equal(t, &LaunchRequest{DebugConfigID: "py_Debug", FileType: "py"}, req)
	assert.Equal(t, 0, engine.Executions())
}
