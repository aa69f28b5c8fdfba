// Package upstream implements the upstream session manager: one long-lived
// connection to the vendor's tool server, with lazy connect, a single retry
// on transport failure, health tracking, and token-cache invalidation.
//
// The source models this as a dedicated asyncio event-loop thread that the
// synchronous caller submits coroutines to and waits on with a timeout. Go
// has no asyncio equivalent and needs none: the same "one thread owns the
// transport, callers block on a future" shape is reproduced with a single
// goroutine draining a task channel, which also gives call serialization
// for free — calls against a session are effectively guarded by a
// process-wide re-entrant lock — without a separate mutex.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/oh-my-linear/gateway/internal/apperr"
)

const defaultReadTimeout = 30 * time.Second

// Config constructs a SessionManager. Transport must be TransportStdio or
// TransportHTTP; any other value is a construction-time fatal error.
type Config struct {
	Transport   string
	URL         string
	Headers     map[string]string
	Command     string
	Args        []string
	Env         map[string]string
	Cwd         string
	ReadTimeout time.Duration
}

func (c Config) validate() error {
	if c.Transport != TransportStdio && c.Transport != TransportHTTP {
		return fmt.Errorf("invalid transport %q: must be %q or %q", c.Transport, TransportStdio, TransportHTTP)
	}
	return nil
}

type task struct {
	ctx    context.Context
	req    request
	result chan taskResult
}

type taskResult struct {
	resp response
	err  error
}

// SessionManager owns exactly one live session to the upstream tool
// server.
type SessionManager struct {
	cfg     Config
	limiter *rate.Limiter

	taskCh   chan task
	stopCh   chan struct{}
	loopOnce sync.Once

	mu              sync.Mutex
	tr              transport
	connected       bool
	lastConnectedAt time.Time
	failureCount    int
	lastError       string
	lastFailureAt   time.Time
}

// New validates cfg and returns a SessionManager; the transport is not
// opened until the first call (lazy connect).
func New(cfg Config) (*SessionManager, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	return &SessionManager{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(5), 10),
		taskCh:  make(chan task),
		stopCh:  make(chan struct{}),
	}, nil
}

func (m *SessionManager) ensureLoop() {
	m.loopOnce.Do(func() {
		go m.loop()
	})
}

// loop is the dedicated goroutine that owns the transport; every call flows
// through it, one at a time.
func (m *SessionManager) loop() {
	for {
		select {
		case t := <-m.taskCh:
			resp, err := m.dispatch(t.ctx, t.req)
			t.result <- taskResult{resp: resp, err: err}
		case <-m.stopCh:
			return
		}
	}
}

// dispatch runs on the loop goroutine only: connect if needed, then call.
func (m *SessionManager) dispatch(ctx context.Context, req request) (response, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return response{}, err
	}
	if err := m.ensureConnected(ctx); err != nil {
		return response{}, err
	}
	m.mu.Lock()
	tr := m.tr
	m.mu.Unlock()
	return tr.call(ctx, req)
}

// ensureConnected opens the transport and sends the initialize handshake if
// not already connected. Must only be called from the loop goroutine.
func (m *SessionManager) ensureConnected(ctx context.Context) error {
	m.mu.Lock()
	if m.connected {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	var tr transport
	switch m.cfg.Transport {
	case TransportStdio:
		tr = newStdioTransport(m.cfg.Command, m.cfg.Args, m.cfg.Env, m.cfg.Cwd)
	case TransportHTTP:
		tr = newHTTPTransport(m.cfg.URL, m.cfg.Headers, m.cfg.ReadTimeout+10*time.Second)
	}

	if err := tr.connect(ctx); err != nil {
		return fmt.Errorf("connect upstream session: %w", err)
	}

	var initParams initializeParams
	initParams.ClientInfo.Name = "oh-my-linear-gateway"
	initParams.ClientInfo.Version = "1.0"
	_, err := tr.call(ctx, request{JSONRPC: "2.0", ID: uuid.NewString(), Method: "initialize", Params: initParams})
	if err != nil {
		tr.close()
		return fmt.Errorf("initialize upstream session: %w", err)
	}

	m.mu.Lock()
	m.tr = tr
	m.connected = true
	m.lastConnectedAt = time.Now()
	m.mu.Unlock()
	return nil
}

// disconnect tears down the transport; best-effort, failures are logged at
// warning level.
func (m *SessionManager) disconnect() {
	m.mu.Lock()
	tr := m.tr
	m.tr = nil
	m.connected = false
	m.mu.Unlock()

	if tr == nil {
		return
	}
	if err := tr.close(); err != nil {
		if strings.Contains(err.Error(), "exit cancel scope in a different task") {
			log.Printf("[official] cleanup noise on disconnect: %v", err)
		} else {
			log.Printf("[official] WARNING: disconnect cleanup failed: %v", err)
		}
	}
}

// submit hands req to the loop goroutine and blocks for a result, bounded
// by read_timeout + 10s.
func (m *SessionManager) submit(ctx context.Context, req request) (response, error) {
	m.ensureLoop()

	ctx, cancel := context.WithTimeout(ctx, m.cfg.ReadTimeout+10*time.Second)
	defer cancel()

	result := make(chan taskResult, 1)
	select {
	case m.taskCh <- task{ctx: ctx, req: req, result: result}:
	case <-ctx.Done():
		return response{}, ctx.Err()
	}

	select {
	case r := <-result:
		return r.resp, r.err
	case <-ctx.Done():
		return response{}, ctx.Err()
	}
}

func (m *SessionManager) recordFailure(err error) {
	m.mu.Lock()
	m.failureCount++
	m.lastError = err.Error()
	m.lastFailureAt = time.Now()
	m.mu.Unlock()
}

func (m *SessionManager) recordSuccess() {
	m.mu.Lock()
	m.lastError = ""
	m.mu.Unlock()
}

// CallTool calls name with args and returns the normalized result.
// Semantic tool errors (isError=true) are never retried. Any other failure
// gets exactly one retry after tearing the session down; on the second
// failure it becomes official_unavailable.
func (m *SessionManager) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	req := request{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  "tools/call",
		Params:  toolCallParams{Name: name, Arguments: args},
	}

	value, semErr, transportErr := m.attemptCall(ctx, req)
	if semErr != nil {
		return nil, semErr
	}
	if transportErr == nil {
		m.recordSuccess()
		return value, nil
	}

	m.recordFailure(transportErr)
	m.disconnect()

	value, semErr, transportErr = m.attemptCall(ctx, req)
	if semErr != nil {
		return nil, semErr
	}
	if transportErr != nil {
		m.recordFailure(transportErr)
		return nil, apperr.NewUnavailable(transportErr.Error())
	}
	m.recordSuccess()
	return value, nil
}

// attemptCall returns exactly one of (value, nil, nil) on success,
// (nil, semanticErr, nil) on a semantic tool error, or (nil, nil,
// transportErr) on any other failure.
func (m *SessionManager) attemptCall(ctx context.Context, req request) (any, *apperr.OfficialToolError, error) {
	resp, err := m.submit(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	if resp.Error != nil {
		return nil, nil, fmt.Errorf("upstream rpc error %d: %s", resp.Error.Code, resp.Error.Message)
	}

	var result toolCallResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, nil, fmt.Errorf("decode tool result: %w", err)
	}

	if result.IsError {
		return nil, apperr.NewToolError(extractText(result.Content)), nil
	}

	if len(result.StructuredContent) > 0 {
		var v any
		if err := json.Unmarshal(result.StructuredContent, &v); err == nil {
			return v, nil, nil
		}
	}

	if len(result.Content) > 0 {
		text := extractText(result.Content)
		var v any
		if err := json.Unmarshal([]byte(text), &v); err == nil {
			return v, nil, nil
		}
		return map[string]any{"text": text}, nil, nil
	}

	var raw any
	_ = json.Unmarshal(resp.Result, &raw)
	return raw, nil, nil
}

func extractText(blocks []contentBlock) string {
	var b strings.Builder
	for _, c := range blocks {
		if c.Type == "text" {
			b.WriteString(c.Text)
		}
	}
	return b.String()
}

// ListTools lists the names of every tool the upstream server exposes.
func (m *SessionManager) ListTools(ctx context.Context) ([]string, error) {
	req := request{JSONRPC: "2.0", ID: uuid.NewString(), Method: "tools/list"}
	resp, err := m.submit(ctx, req)
	if err != nil {
		return nil, apperr.NewUnavailable(err.Error())
	}
	if resp.Error != nil {
		return nil, apperr.NewUnavailable(resp.Error.Message)
	}
	var result listToolsResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, apperr.NewUnavailable(err.Error())
	}
	names := make([]string, 0, len(result.Tools))
	for _, t := range result.Tools {
		names = append(names, t.Name)
	}
	return names, nil
}

// Close tears down the session and stops the loop goroutine.
func (m *SessionManager) Close() error {
	m.disconnect()
	close(m.stopCh)
	return nil
}

// Health is the upstream session manager's get_health() payload.
type Health struct {
	Transport       string
	URL             string
	Command         string
	Connected       bool
	FailureCount    int
	LastError       string
	LastFailureAt   time.Time
	LastConnectedAt time.Time
}

func (m *SessionManager) GetHealth() Health {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Health{
		Transport:       m.cfg.Transport,
		URL:             m.cfg.URL,
		Command:         m.cfg.Command,
		Connected:       m.connected,
		FailureCount:    m.failureCount,
		LastError:       m.lastError,
		LastFailureAt:   m.lastFailureAt,
		LastConnectedAt: m.lastConnectedAt,
	}
}
