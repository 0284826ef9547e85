// Package tasks runs build tasks and reports when their processes end.
//
// An Engine lists runnable tasks, starts them, and publishes a ProcessEnded
// event to every subscriber when a started process exits. Callers correlate
// events with the *Execution handle Execute returned; ExecuteAndWait does
// that correlation for the common run-and-wait case.
package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/ctagard/launchfile/internal/taskconfig"
)

// Descriptor identifies a runnable task.
type Descriptor struct {
	// Name is the task label.
	Name string
	// Source names where the task was defined, e.g. "workspace".
	Source string
	// Definition is the task as read from tasks.json.
	Definition taskconfig.TaskDefinition
}

// ProcessEnded is published when the process of an execution exits.
type ProcessEnded struct {
	Execution *Execution
	ExitCode  int
}

// Engine is the task-execution interface the orchestrator drives.
type Engine interface {
	// FetchAll returns the tasks currently known to the engine.
	FetchAll(ctx context.Context) ([]Descriptor, error)
	// Execute starts d and returns its handle. The process-ended event for
	// the handle is published after Execute is called, possibly before it returns.
	Execute(ctx context.Context, d Descriptor) (*Execution, error)
	// Subscribe registers fn for process-ended events. The returned function
	// removes the subscription; fn may call it from inside the callback.
	Subscribe(fn func(ProcessEnded)) (unsubscribe func())
}

// Execution is the handle of one started task.
type Execution struct {
	ID        string
	Task      Descriptor
	StartTime time.Time

	mu       sync.RWMutex
	endTime  time.Time
	exitCode int
	err      error

	done     chan struct{}
	doneOnce sync.Once
}

// NewExecution creates a handle for a task that is about to start.
// Engines other than Executor use it to hand out handles.
func NewExecution(id string, d Descriptor) *Execution {
	return &Execution{
		ID:        id,
		Task:      d,
		StartTime: time.Now(),
		exitCode:  -1,
		done:      make(chan struct{}),
	}
}

// Finish records the outcome and closes Done. Only the first call counts.
func (e *Execution) Finish(exitCode int, err error) {
	e.doneOnce.Do(func() {
		e.mu.Lock()
		e.endTime = time.Now()
		e.exitCode = exitCode
		e.err = err
		e.mu.Unlock()
		close(e.done)
	})
}

// Done is closed when the process has exited.
func (e *Execution) Done() <-chan struct{} {
	return e.done
}

// ExitCode returns the process exit code, or -1 while running.
func (e *Execution) ExitCode() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.exitCode
}

// Err returns the wait error of a process that did not exit cleanly.
func (e *Execution) Err() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.err
}

// Duration returns how long the process ran, or has been running.
func (e *Execution) Duration() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.endTime.IsZero() {
		return time.Since(e.StartTime)
	}
	return e.endTime.Sub(e.StartTime)
}

// Find returns the descriptor named name, or nil. The first match wins.
func Find(tasks []Descriptor, name string) *Descriptor {
	for i := range tasks {
		if tasks[i].Name == name {
			return &tasks[i]
		}
	}
	return nil
}

// Listeners is a subscriber set for ProcessEnded events, safe for
// concurrent use. Publish calls listeners outside the lock.
type Listeners struct {
	mu     sync.Mutex
	nextID int
	fns    map[int]func(ProcessEnded)
}

// Subscribe adds fn and returns an idempotent unsubscribe function.
func (l *Listeners) Subscribe(fn func(ProcessEnded)) func() {
	l.mu.Lock()
	if l.fns == nil {
		l.fns = make(map[int]func(ProcessEnded))
	}
	id := l.nextID
	l.nextID++
	l.fns[id] = fn
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.fns, id)
			l.mu.Unlock()
		})
	}
}

// Publish delivers ev to every current subscriber.
func (l *Listeners) Publish(ev ProcessEnded) {
	l.mu.Lock()
	fns := make([]func(ProcessEnded), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Len returns the number of subscribers.
func (l *Listeners) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.fns)
}

// ExecuteAndWait starts d and blocks until the engine publishes the
// ProcessEnded event for that very execution. There is no timeout; only ctx
// ends the wait early. The subscription is made before the task starts and
// is removed after the first matching event.
func ExecuteAndWait(ctx context.Context, engine Engine, d Descriptor) (*Execution, ProcessEnded, error) {
	w := &waiter{matched: make(chan ProcessEnded, 1)}
	w.detach = engine.Subscribe(w.observe)
	defer w.detach()

	exec, err := engine.Execute(ctx, d)
	if err != nil {
		return nil, ProcessEnded{}, err
	}
	w.arm(exec)

	select {
	case ev := <-w.matched:
		return exec, ev, nil
	case <-ctx.Done():
		return exec, ProcessEnded{}, ctx.Err()
	}
}

// waiter buffers events seen before the handle is known.
type waiter struct {
	mu      sync.Mutex
	target  *Execution
	early   []ProcessEnded
	fired   bool
	matched chan ProcessEnded
	detach  func()
}

func (w *waiter) observe(ev ProcessEnded) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.fired {
		return
	}
	if w.target == nil {
		w.early = append(w.early, ev)
		return
	}
	if ev.Execution == w.target {
		w.fire(ev)
	}
}

func (w *waiter) arm(target *Execution) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.target = target
	for _, ev := range w.early {
		if ev.Execution == target {
			w.fire(ev)
			break
		}
	}
	w.early = nil
}

// fire must be called with mu held.
func (w *waiter) fire(ev ProcessEnded) {
	w.fired = true
	w.matched <- ev
	w.detach()
}
