package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedEngine publishes events according to a per-test hook.
type scriptedEngine struct {
	Listeners
	onExecute func(exec *Execution)
	execErr   error

	mu    sync.Mutex
	execs []*Execution
}

func (e *scriptedEngine) FetchAll(context.Context) ([]Descriptor, error) {
	return []Descriptor{{Name: "cpp_Build"}}, nil
}

func (e *scriptedEngine) Execute(_ context.Context, d Descriptor) (*Execution, error) {
	if e.execErr != nil {
		return nil, e.execErr
	}
	exec := NewExecution("id-"+d.Name, d)
	e.mu.Lock()
	e.execs = append(e.execs, exec)
	e.mu.Unlock()
	if e.onExecute != nil {
		e.onExecute(exec)
	}
	return exec, nil
}

func TestExecuteAndWaitEventBeforeHandleReturned(t *testing.T) {
	engine := &scriptedEngine{}
	engine.onExecute = func(exec *Execution) {
		exec.Finish(0, nil)
		engine.Publish(ProcessEnded{Execution: exec, ExitCode: 0})
	}

	exec, ev, err := ExecuteAndWait(context.Background(), engine, Descriptor{Name: "cpp_Build"})
	require.NoError(t, err)
	assert.Same(t, exec, ev.Execution)
	assert.Equal(t, 0, engine.Len(), "listener must be detached")
}

func TestExecuteAndWaitIgnoresOtherExecutions(t *testing.T) {
	engine := &scriptedEngine{}
	other := NewExecution("other", Descriptor{Name: "cpp_Build"})
	release := make(chan struct{})

	engine.onExecute = func(exec *Execution) {
		// same task name and id shape, different handle
		engine.Publish(ProcessEnded{Execution: other, ExitCode: 9})
		go func() {
			<-release
			engine.Publish(ProcessEnded{Execution: other, ExitCode: 8})
			engine.Publish(ProcessEnded{Execution: exec, ExitCode: 3})
		}()
	}

	done := make(chan ProcessEnded, 1)
	go func() {
		_, ev, err := ExecuteAndWait(context.Background(), engine, Descriptor{Name: "cpp_Build"})
		assert.NoError(t, err)
		done <- ev
	}()

	select {
	case <-done:
		t.Fatal("returned before the matching event")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case ev := <-done:
		assert.Equal(t, 3, ev.ExitCode)
		assert.NotSame(t, other, ev.Execution)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for matching event")
	}
	assert.Equal(t, 0, engine.Len())
}

func TestExecuteAndWaitDetachesAfterFirstMatch(t *testing.T) {
	engine := &scriptedEngine{}
	var target *Execution
	engine.onExecute = func(exec *Execution) {
		target = exec
		engine.Publish(ProcessEnded{Execution: exec, ExitCode: 1})
	}

	_, ev, err := ExecuteAndWait(context.Background(), engine, Descriptor{Name: "cpp_Build"})
	require.NoError(t, err)
	assert.Equal(t, 1, ev.ExitCode)

	// a duplicate event after the match reaches nobody
	engine.Publish(ProcessEnded{Execution: target, ExitCode: 2})
	assert.Equal(t, 0, engine.Len())
}

func TestExecuteAndWaitContextCancel(t *testing.T) {
	engine := &scriptedEngine{}
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	exec, _, err := ExecuteAndWait(ctx, engine, Descriptor{Name: "cpp_Build"})
	require.ErrorIs(t, err, context.Canceled)
	assert.NotNil(t, exec)
	assert.Equal(t, 0, engine.Len())
}

func TestExecuteAndWaitExecuteError(t *testing.T) {
	engine := &scriptedEngine{execErr: errors.New("cannot start")}

	exec, _, err := ExecuteAndWait(context.Background(), engine, Descriptor{Name: "cpp_Build"})
	require.Error(t, err)
	assert.Nil(t, exec)
	assert.Equal(t, 0, engine.Len())
}

func TestListenersUnsubscribeIsIdempotent(t *testing.T) {
	var l Listeners
	calls := 0
	unsub := l.Subscribe(func(ProcessEnded) { calls++ })
	l.Publish(ProcessEnded{})
	unsub()
	unsub()
	l.Publish(ProcessEnded{})
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, l.Len())
}

func TestExecutionFinishOnce(t *testing.T) {
	exec := NewExecution("x", Descriptor{Name: "t"})
	assert.Equal(t, -1, exec.ExitCode())

	exec.Finish(2, errors.New("exit status 2"))
	exec.Finish(0, nil)

	<-exec.Done()
	assert.Equal(t, 2, exec.ExitCode())
	assert.Error(t, exec.Err())
	assert.GreaterOrEqual(t, exec.Duration(), time.Duration(0))
}

func TestFind(t *testing.T) {
	list := []Descriptor{{Name: "a"}, {Name: "b", Source: "first"}, {Name: "b", Source: "second"}}
	assert.Equal(t, "first", Find(list, "b").Source)
	assert.Nil(t, Find(list, "c"))
}
