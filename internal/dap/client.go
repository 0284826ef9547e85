package dap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/go-dap"

	applog "github.com/ctagard/launchfile/internal/log"
)

// ClientID is sent as clientID in the initialize request.
const ClientID = "launchfile"

// Client provides the DAP requests used to start and end a debug session
type Client struct {
	transport *Transport
	logger    *slog.Logger

	// Response handling
	pendingRequests map[int]chan dap.Message
	mu              sync.Mutex

	// Event handling
	eventHandler func(dap.Message)
	handlerMu    sync.RWMutex

	capabilities dap.Capabilities

	initialized     chan struct{}
	initializedOnce sync.Once

	// terminated is closed on a terminated event or when the connection ends
	terminated     chan struct{}
	terminatedOnce sync.Once
	exitCode       *int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewClient creates a new DAP client with the given transport and starts reading.
func NewClient(transport *Transport, logger *slog.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		transport:       transport,
		logger:          applog.WithComponent(logger, "dap"),
		pendingRequests: make(map[int]chan dap.Message),
		initialized:     make(chan struct{}),
		terminated:      make(chan struct{}),
		ctx:             ctx,
		cancel:          cancel,
	}

	c.wg.Add(1)
	go c.readLoop()

	return c
}

// SetEventHandler sets the handler for DAP events
func (c *Client) SetEventHandler(handler func(dap.Message)) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.eventHandler = handler
}

func (c *Client) dispatchEvent(msg dap.Message) {
	c.handlerMu.RLock()
	handler := c.eventHandler
	c.handlerMu.RUnlock()
	if handler != nil {
		handler(msg)
	}
}

// readLoop continuously reads messages from the transport
func (c *Client) readLoop() {
	defer c.wg.Done()
	defer c.markTerminated()

	consecutiveErrors := 0
	const maxConsecutiveErrors = 5

	for {
		msg, err := c.transport.Receive()
		if err != nil {
			select {
			case <-c.ctx.Done():
				return
			default:
			}
			if isClosed(err) {
				c.logger.Debug("DAP connection closed", applog.Error(err))
				return
			}

			consecutiveErrors++
			c.logger.Warn("DAP transport error",
				"attempt", consecutiveErrors,
				"max", maxConsecutiveErrors,
				applog.Error(err),
			)
			if consecutiveErrors >= maxConsecutiveErrors {
				c.logger.Error("DAP transport: too many consecutive errors, stopping read loop")
				return
			}
			continue
		}

		consecutiveErrors = 0
		c.handleMessage(msg)
	}
}

func isClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, os.ErrClosed)
}

// handleMessage routes incoming messages to the appropriate handler
func (c *Client) handleMessage(msg dap.Message) {
	if resp, ok := msg.(dap.ResponseMessage); ok {
		seq := resp.GetResponse().RequestSeq
		c.mu.Lock()
		ch, ok := c.pendingRequests[seq]
		delete(c.pendingRequests, seq)
		c.mu.Unlock()
		if ok {
			ch <- msg
		}
		return
	}

	switch m := msg.(type) {
	case *dap.InitializedEvent:
		c.initializedOnce.Do(func() {
			close(c.initialized)
		})
	case *dap.ExitedEvent:
		code := m.Body.ExitCode
		c.mu.Lock()
		c.exitCode = &code
		c.mu.Unlock()
	case *dap.TerminatedEvent:
		c.markTerminated()
	}

	if _, ok := msg.(dap.EventMessage); ok {
		c.dispatchEvent(msg)
	}
}

func (c *Client) markTerminated() {
	c.terminatedOnce.Do(func() {
		close(c.terminated)
	})
}

// register assigns a sequence number to req and registers its response channel.
func (c *Client) register(req dap.RequestMessage) (int, chan dap.Message) {
	seq := c.transport.NextSeq()
	r := req.GetRequest()
	r.Seq = seq
	r.Type = "request"

	respCh := make(chan dap.Message, 1)
	c.mu.Lock()
	c.pendingRequests[seq] = respCh
	c.mu.Unlock()
	return seq, respCh
}

func (c *Client) unregister(seq int) {
	c.mu.Lock()
	delete(c.pendingRequests, seq)
	c.mu.Unlock()
}

// sendAsync sends a request and returns the channel its response arrives on.
func (c *Client) sendAsync(req dap.RequestMessage) (chan dap.Message, error) {
	seq, respCh := c.register(req)
	if err := c.transport.Send(req); err != nil {
		c.unregister(seq)
		return nil, err
	}
	return respCh, nil
}

// sendRequest sends a request and waits for its response
func (c *Client) sendRequest(ctx context.Context, req dap.RequestMessage, timeout time.Duration) (dap.Message, error) {
	respCh, err := c.sendAsync(req)
	if err != nil {
		return nil, err
	}
	return c.WaitForResponse(ctx, respCh, timeout)
}

// WaitForResponse waits for a response on respCh. Unsuccessful responses
// are returned as errors carrying the adapter's message.
func (c *Client) WaitForResponse(ctx context.Context, respCh chan dap.Message, timeout time.Duration) (dap.Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-respCh:
		return msg, responseError(msg)
	case <-timer.C:
		return nil, fmt.Errorf("request timeout after %s", timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.terminated:
		return nil, fmt.Errorf("debug adapter terminated")
	case <-c.ctx.Done():
		return nil, c.ctx.Err()
	}
}

func responseError(msg dap.Message) error {
	resp, ok := msg.(dap.ResponseMessage)
	if !ok {
		return fmt.Errorf("unexpected message type: %T", msg)
	}
	r := resp.GetResponse()
	if r.Success {
		return nil
	}
	detail := r.Message
	if er, ok := msg.(*dap.ErrorResponse); ok && er.Body.Error != nil && er.Body.Error.Format != "" {
		detail = er.Body.Error.Format
	}
	return fmt.Errorf("%s failed: %s", r.Command, detail)
}

// Initialize sends the initialize request
func (c *Client) Initialize(ctx context.Context, adapterID string) (*dap.InitializeResponse, error) {
	req := &dap.InitializeRequest{
		Request: dap.Request{Command: "initialize"},
		Arguments: dap.InitializeRequestArguments{
			ClientID:                     ClientID,
			ClientName:                   "launchfile",
			AdapterID:                    adapterID,
			Locale:                       "en-US",
			LinesStartAt1:                true,
			ColumnsStartAt1:              true,
			PathFormat:                   "path",
			SupportsVariableType:         true,
			SupportsRunInTerminalRequest: false,
		},
	}

	resp, err := c.sendRequest(ctx, req, 10*time.Second)
	if err != nil {
		return nil, err
	}
	initResp, ok := resp.(*dap.InitializeResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type: %T", resp)
	}

	c.mu.Lock()
	c.capabilities = initResp.Body
	c.mu.Unlock()
	return initResp, nil
}

// Capabilities returns the capabilities from the initialize response
func (c *Client) Capabilities() dap.Capabilities {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capabilities
}

// WaitInitialized waits for the initialized event
func (c *Client) WaitInitialized(ctx context.Context, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-c.initialized:
		return nil
	case <-timer.C:
		return fmt.Errorf("timeout waiting for initialized event")
	case <-ctx.Done():
		return ctx.Err()
	case <-c.terminated:
		return fmt.Errorf("debug adapter terminated before initialization")
	}
}

// LaunchAsync sends a launch request without waiting for its response.
// Adapters such as debugpy only answer after configurationDone.
func (c *Client) LaunchAsync(args map[string]interface{}) (chan dap.Message, error) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal launch args: %w", err)
	}
	return c.sendAsync(&dap.LaunchRequest{
		Request:   dap.Request{Command: "launch"},
		Arguments: argsJSON,
	})
}

// AttachAsync sends an attach request without waiting for its response.
func (c *Client) AttachAsync(args map[string]interface{}) (chan dap.Message, error) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal attach args: %w", err)
	}
	return c.sendAsync(&dap.AttachRequest{
		Request:   dap.Request{Command: "attach"},
		Arguments: argsJSON,
	})
}

// ConfigurationDone signals that configuration is complete
func (c *Client) ConfigurationDone(ctx context.Context) error {
	_, err := c.sendRequest(ctx, &dap.ConfigurationDoneRequest{
		Request: dap.Request{Command: "configurationDone"},
	}, 10*time.Second)
	return err
}

// Disconnect ends the debug session
func (c *Client) Disconnect(ctx context.Context, terminateDebuggee bool) error {
	_, err := c.sendRequest(ctx, &dap.DisconnectRequest{
		Request:   dap.Request{Command: "disconnect"},
		Arguments: &dap.DisconnectArguments{TerminateDebuggee: terminateDebuggee},
	}, 5*time.Second)
	return err
}

// Done is closed when the adapter reports the session terminated or the
// connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.terminated
}

// ExitCode returns the debuggee exit code reported by an exited event.
func (c *Client) ExitCode() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.exitCode == nil {
		return 0, false
	}
	return *c.exitCode, true
}

// Close shuts down the client
func (c *Client) Close() error {
	c.cancel()
	err := c.transport.Close()
	c.wg.Wait()
	return err
}
