package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	osexec "os/exec"
	"sort"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/ctagard/launchfile/internal/errors"
	applog "github.com/ctagard/launchfile/internal/log"
	"github.com/ctagard/launchfile/internal/taskconfig"
	"github.com/ctagard/launchfile/internal/variables"
)

// SourceWorkspace marks tasks read from the workspace's tasks.json.
const SourceWorkspace = "workspace"

// ExecutorConfig configures the task executor.
type ExecutorConfig struct {
	// WorkspaceFolder holds .vscode/tasks.json and is the default working directory.
	WorkspaceFolder string

	// Shell and ShellArgs run shell tasks: Shell ShellArgs... "command args".
	Shell     string
	ShellArgs []string

	// Env is added to the environment of every task.
	Env map[string]string

	// Variables resolves ${...} in commands, args, cwd and env.
	Variables *variables.Context

	// Output receives the combined stdout and stderr of tasks. Nil discards.
	Output io.Writer

	Logger *slog.Logger
}

// Executor is the Engine that runs tasks.json tasks as local processes.
type Executor struct {
	config    ExecutorConfig
	listeners Listeners
	logger    *slog.Logger
}

// NewExecutor creates a new task executor.
func NewExecutor(config ExecutorConfig) *Executor {
	if config.Shell == "" {
		config.Shell = os.Getenv("SHELL")
		if config.Shell == "" {
			config.Shell = "/bin/sh"
		}
		if len(config.ShellArgs) == 0 {
			config.ShellArgs = []string{"-c"}
		}
	}
	if config.Output == nil {
		config.Output = io.Discard
	}
	if config.Variables == nil {
		config.Variables = &variables.Context{WorkspaceFolder: config.WorkspaceFolder}
	}
	return &Executor{
		config: config,
		logger: applog.WithComponent(config.Logger, "tasks"),
	}
}

// FetchAll reads tasks.json fresh and returns its tasks in document order.
func (e *Executor) FetchAll(_ context.Context) ([]Descriptor, error) {
	tf, err := taskconfig.Load(e.config.WorkspaceFolder)
	if err != nil {
		return nil, err
	}
	out := make([]Descriptor, 0, len(tf.Tasks))
	for _, t := range tf.Tasks {
		if t.Label == "" {
			continue
		}
		out = append(out, Descriptor{Name: t.Label, Source: SourceWorkspace, Definition: t})
	}
	return out, nil
}

// Subscribe implements Engine.
func (e *Executor) Subscribe(fn func(ProcessEnded)) func() {
	return e.listeners.Subscribe(fn)
}

// Execute starts the task process. A process that cannot be started is a
// TASK_START_FAILED error and publishes no event.
func (e *Executor) Execute(ctx context.Context, d Descriptor) (*Execution, error) {
	cmd, err := e.buildCommand(ctx, &d.Definition)
	if err != nil {
		return nil, apperrors.TaskStartFailed(d.Name, err)
	}

	exec := NewExecution(uuid.New().String(), d)
	if err := cmd.Start(); err != nil {
		return nil, apperrors.TaskStartFailed(d.Name, err)
	}

	e.logger.Info("task started",
		applog.TaskKey, d.Name,
		applog.ExecutionIDKey, exec.ID,
		"pid", cmd.Process.Pid,
	)

	go e.wait(exec, cmd)
	return exec, nil
}

func (e *Executor) wait(exec *Execution, cmd *osexec.Cmd) {
	err := cmd.Wait()

	exitCode := 0
	if err != nil {
		exitCode = -1
		var exitErr *osexec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
	}
	exec.Finish(exitCode, err)

	e.logger.Debug("task process ended",
		applog.TaskKey, exec.Task.Name,
		applog.ExecutionIDKey, exec.ID,
		"exit_code", exitCode,
		"duration", exec.Duration(),
	)
	e.listeners.Publish(ProcessEnded{Execution: exec, ExitCode: exitCode})
}

// buildCommand creates the osexec.Cmd for a task.
func (e *Executor) buildCommand(ctx context.Context, task *taskconfig.TaskDefinition) (*osexec.Cmd, error) {
	vars := e.config.Variables

	command, err := variables.Resolve(task.Command, vars)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(command) == "" {
		return nil, fmt.Errorf("task %q has no command", task.Label)
	}
	args, err := variables.ResolveSlice(task.Args, vars)
	if err != nil {
		return nil, err
	}

	var cmd *osexec.Cmd
	switch task.Type {
	case taskconfig.TaskTypeProcess:
		cmd = osexec.CommandContext(ctx, command, args...)
	default:
		shell, shellArgs := e.config.Shell, e.config.ShellArgs
		if s := task.Options.Shell; s != nil && s.Executable != "" {
			shell, shellArgs = s.Executable, s.Args
		}
		// The command line is passed through as written; args are quoted.
		line := command
		for _, arg := range args {
			line += " " + shellEscape(arg)
		}
		cmd = osexec.CommandContext(ctx, shell, append(append([]string(nil), shellArgs...), line)...)
	}

	cwd := task.Options.Cwd
	if cwd == "" {
		cwd = e.config.WorkspaceFolder
	}
	if cwd != "" {
		if cwd, err = variables.Resolve(cwd, vars); err != nil {
			return nil, err
		}
		cmd.Dir = cwd
	}

	env, err := e.buildEnvironment(task)
	if err != nil {
		return nil, err
	}
	cmd.Env = env
	cmd.Stdout = e.config.Output
	cmd.Stderr = e.config.Output

	setProcAttr(cmd)
	cmd.Cancel = func() error {
		return killProcessGroup(cmd)
	}
	return cmd, nil
}

// buildEnvironment creates the environment for a task.
// Precedence (highest to lowest): task env > executor env > os.Environ()
func (e *Executor) buildEnvironment(task *taskconfig.TaskDefinition) ([]string, error) {
	envMap := make(map[string]string)
	for _, kv := range os.Environ() {
		if idx := strings.Index(kv, "="); idx > 0 {
			envMap[kv[:idx]] = kv[idx+1:]
		}
	}

	extra, err := variables.ResolveMap(e.config.Env, e.config.Variables)
	if err != nil {
		return nil, err
	}
	for k, v := range extra {
		envMap[k] = v
	}

	taskEnv, err := variables.ResolveMap(task.Options.Env, e.config.Variables)
	if err != nil {
		return nil, err
	}
	for k, v := range taskEnv {
		envMap[k] = v
	}

	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(envMap))
	for _, k := range keys {
		env = append(env, k+"="+envMap[k])
	}
	return env, nil
}

// shellEscape wraps arguments containing special characters in single quotes.
func shellEscape(s string) string {
	if s == "" {
		return "''"
	}

	safe := true
	for _, c := range s {
		if !isShellSafe(c) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}

	var result strings.Builder
	result.WriteByte('\'')
	for _, c := range s {
		if c == '\'' {
			result.WriteString("'\\''")
		} else {
			result.WriteRune(c)
		}
	}
	result.WriteByte('\'')
	return result.String()
}

func isShellSafe(c rune) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_' || c == '.' || c == '/' || c == '=' || c == ','
}
