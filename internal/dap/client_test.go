package dap

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/google/go-dap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ctagard/launchfile/internal/errors"
	applog "github.com/ctagard/launchfile/internal/log"
	"github.com/ctagard/launchfile/pkg/types"
)

// fakeAdapter answers DAP requests on the server end of a pipe.
type fakeAdapter struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
	w    *bufio.Writer
	wmu  sync.Mutex
	seq  int

	// failLaunch makes the launch response unsuccessful
	failLaunch bool

	mu       sync.Mutex
	requests []string
	launch   json.RawMessage
}

func newPipeClient(t *testing.T) (*Client, *fakeAdapter) {
	t.Helper()
	clientConn, serverConn := net.Pipe()
	adapter := &fakeAdapter{
		t:    t,
		conn: serverConn,
		r:    bufio.NewReader(serverConn),
		w:    bufio.NewWriter(serverConn),
	}
	client := NewClient(NewTransport(clientConn), applog.Discard())
	t.Cleanup(func() {
		_ = client.Close()
		_ = serverConn.Close()
	})
	return client, adapter
}

func (a *fakeAdapter) send(msg dap.Message) {
	a.wmu.Lock()
	defer a.wmu.Unlock()
	_ = dap.WriteProtocolMessage(a.w, msg)
	_ = a.w.Flush()
}

func (a *fakeAdapter) nextSeq() int {
	a.wmu.Lock()
	defer a.wmu.Unlock()
	a.seq++
	return a.seq
}

func (a *fakeAdapter) response(req *dap.Request, success bool, message string) dap.Response {
	return dap.Response{
		ProtocolMessage: dap.ProtocolMessage{Seq: a.nextSeq(), Type: "response"},
		Command:         req.Command,
		RequestSeq:      req.Seq,
		Success:         success,
		Message:         message,
	}
}

func (a *fakeAdapter) event(name string) dap.Event {
	return dap.Event{
		ProtocolMessage: dap.ProtocolMessage{Seq: a.nextSeq(), Type: "event"},
		Event:           name,
	}
}

func (a *fakeAdapter) Requests() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.requests...)
}

// serve handles requests the way debugpy does: the launch response is held
// back until configurationDone.
func (a *fakeAdapter) serve() {
	var pendingLaunch *dap.Request
	for {
		msg, err := dap.ReadProtocolMessage(a.r)
		if err != nil {
			return
		}
		req, ok := msg.(dap.RequestMessage)
		if !ok {
			continue
		}
		r := req.GetRequest()
		a.mu.Lock()
		a.requests = append(a.requests, r.Command)
		a.mu.Unlock()

		switch m := msg.(type) {
		case *dap.InitializeRequest:
			a.send(&dap.InitializeResponse{
				Response: a.response(r, true, ""),
				Body:     dap.Capabilities{SupportsConfigurationDoneRequest: true},
			})
			a.send(&dap.InitializedEvent{Event: a.event("initialized")})
		case *dap.LaunchRequest:
			a.mu.Lock()
			a.launch = m.Arguments
			a.mu.Unlock()
			copied := *r
			pendingLaunch = &copied
		case *dap.ConfigurationDoneRequest:
			a.send(&dap.ConfigurationDoneResponse{Response: a.response(r, true, "")})
			if pendingLaunch != nil {
				if a.failLaunch {
					a.send(&dap.ErrorResponse{
						Response: a.response(pendingLaunch, false, "launch failed"),
						Body:     dap.ErrorResponseBody{Error: &dap.ErrorMessage{Format: "program not found"}},
					})
				} else {
					a.send(&dap.LaunchResponse{Response: a.response(pendingLaunch, true, "")})
				}
			}
		case *dap.DisconnectRequest:
			a.send(&dap.DisconnectResponse{Response: a.response(r, true, "")})
			a.send(&dap.ExitedEvent{Event: a.event("exited"), Body: dap.ExitedEventBody{ExitCode: 3}})
			a.send(&dap.TerminatedEvent{Event: a.event("terminated")})
		}
	}
}

func handshake(t *testing.T, client *Client) (dap.Message, error) {
	t.Helper()
	ctx := context.Background()

	_, err := client.Initialize(ctx, "go")
	require.NoError(t, err)

	respCh, err := client.LaunchAsync(map[string]interface{}{"program": "/tmp/app", "stopOnEntry": true})
	require.NoError(t, err)
	require.NoError(t, client.WaitInitialized(ctx, 2*time.Second))
	require.NoError(t, client.ConfigurationDone(ctx))

	return client.WaitForResponse(ctx, respCh, 2*time.Second)
}

func TestClientHandshake(t *testing.T) {
	client, adapter := newPipeClient(t)
	go adapter.serve()

	resp, err := handshake(t, client)
	require.NoError(t, err)
	assert.IsType(t, &dap.LaunchResponse{}, resp)
	assert.True(t, client.Capabilities().SupportsConfigurationDoneRequest)
	assert.Equal(t, []string{"initialize", "launch", "configurationDone"}, adapter.Requests())

	var args map[string]interface{}
	require.NoError(t, json.Unmarshal(adapter.launch, &args))
	assert.Equal(t, "/tmp/app", args["program"])
	assert.Equal(t, true, args["stopOnEntry"])
}

func TestClientLaunchFailure(t *testing.T) {
	client, adapter := newPipeClient(t)
	adapter.failLaunch = true
	go adapter.serve()

	_, err := handshake(t, client)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "program not found")
}

func TestClientDoneOnTerminatedEvent(t *testing.T) {
	client, adapter := newPipeClient(t)
	go adapter.serve()

	_, err := handshake(t, client)
	require.NoError(t, err)

	_, ok := client.ExitCode()
	assert.False(t, ok)

	require.NoError(t, client.Disconnect(context.Background(), true))
	select {
	case <-client.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("client not done after terminated event")
	}

	code, ok := client.ExitCode()
	assert.True(t, ok)
	assert.Equal(t, 3, code)
}

func TestClientDoneWhenConnectionCloses(t *testing.T) {
	client, adapter := newPipeClient(t)
	_ = adapter.conn.Close()

	select {
	case <-client.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("client not done after connection closed")
	}

	err := client.WaitInitialized(context.Background(), time.Second)
	assert.Error(t, err)
}

func TestClientRequestContextCancel(t *testing.T) {
	client, adapter := newPipeClient(t)
	// read requests but never answer
	go func() {
		for {
			if _, err := dap.ReadProtocolMessage(adapter.r); err != nil {
				return
			}
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Initialize(ctx, "go")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSessionManagerLifecycle(t *testing.T) {
	sm := NewSessionManager(2, applog.Discard())
	defer sm.Close()

	first, err := sm.CreateSession("cpp_Debug", types.LanguageCpp, types.DebuggerLLDB, "/tmp/a.out")
	require.NoError(t, err)
	assert.Equal(t, types.SessionStatusInitializing, first.Status())

	time.Sleep(time.Millisecond)
	second, err := sm.CreateSession("py_Debug", types.LanguagePython, types.DebuggerDebugpy, "main.py")
	require.NoError(t, err)

	_, err = sm.CreateSession("rs_Debug", types.LanguageRust, types.DebuggerLLDB, "")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeSessionLimitReached))

	list := sm.ListSessions()
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	require.NoError(t, sm.UpdateSessionStatus(first.ID, types.SessionStatusRunning))
	info := first.GetInfo()
	assert.Equal(t, types.SessionStatusRunning, info.Status)
	assert.Equal(t, "cpp_Debug", info.ConfigName)
	assert.Equal(t, types.DebuggerLLDB, info.Debugger)

	require.NoError(t, sm.TerminateSession(first.ID, true))
	<-first.Done()
	assert.Equal(t, types.SessionStatusTerminated, first.Status())

	_, err = sm.GetSession(first.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeSessionNotFound))
	assert.Error(t, sm.TerminateSession(first.ID, true))
}

func TestSessionRemovedWhenAdapterTerminates(t *testing.T) {
	sm := NewSessionManager(0, applog.Discard())
	defer sm.Close()

	client, adapter := newPipeClient(t)
	go adapter.serve()
	_, err := handshake(t, client)
	require.NoError(t, err)

	session, err := sm.CreateSession("go_Debug", types.LanguageGo, types.DebuggerDelve, "")
	require.NoError(t, err)
	require.NoError(t, sm.SetSessionClient(session.ID, client))

	// the debuggee ends on its own
	adapter.send(&dap.TerminatedEvent{Event: adapter.event("terminated")})

	select {
	case <-session.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session was not cleaned up")
	}
	assert.Empty(t, sm.ListSessions())
}
