package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/oresand/toolbridge/internal/logging"
	"github.com/oresand/toolbridge/internal/tool"
	"github.com/oresand/toolbridge/internal/version"
)

var (
	// ErrNoHost is returned when a tool operation runs with no host
	// application connected.
	ErrNoHost = errors.New("bridge: no host connected")

	// ErrHostClosed is returned for requests whose host connection
	// dropped before answering.
	ErrHostClosed = errors.New("bridge: host connection closed")
)

const (
	handshakeTimeout = 10 * time.Second
	requestTimeout   = 60 * time.Second
	maxPayloadBytes  = 4 * 1024 * 1024
)

// Config tunes the bridge server.
type Config struct {
	Addr  string
	Token string
}

// Server accepts one host connection over WebSocket and exposes its
// tools to the rest of the process. It implements tool.Executor,
// tool.Navigator, and tool.Source.
type Server struct {
	cfg      Config
	log      *logging.Logger
	upgrader websocket.Upgrader

	httpServer *http.Server
	listenAddr atomic.Value

	mu        sync.Mutex
	host      *hostConn
	pending   map[string]chan Frame
	onChanged []func(tool.Set)

	// Navigation latch. Set by the context.ready event, consumed by
	// AwaitContextReady. The latch form tolerates the event arriving
	// before the waiter does.
	readyCh chan struct{}
	ready   bool
}

// New creates a bridge server. Token, when set, must match the value
// the host presents in its connect request.
func New(cfg Config, log *logging.Logger) *Server {
	return &Server{
		cfg:     cfg,
		log:     log.Sub("bridge"),
		pending: make(map[string]chan Frame),
		readyCh: make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Start begins listening for the host connection. It blocks until the
// context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)

	s.httpServer = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(l net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	s.listenAddr.Store(ln.Addr().String())

	s.log.Info().Str("addr", ln.Addr().String()).Msg("bridge server starting")

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down bridge server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.closeHost()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the bound listen address, or empty before Start.
func (s *Server) Addr() string {
	if v := s.listenAddr.Load(); v != nil {
		return v.(string)
	}
	return ""
}

// Connected reports whether a host is currently attached.
func (s *Server) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.host != nil
}

// handleWebSocket upgrades HTTP to WebSocket and runs the connection
// loop. A new host replaces any prior one.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxPayloadBytes)

	s.log.Debug().Str("remote", r.RemoteAddr).Msg("new websocket connection")

	host, err := s.handshake(conn)
	if err != nil {
		s.log.Warn().Err(err).Msg("handshake failed")
		conn.Close()
		return
	}

	s.attach(host)
	defer s.detach(host)

	s.readLoop(host)
}

// handshake reads and validates the host's connect request, then
// answers with the bridge's capabilities.
func (s *Server) handshake(conn *websocket.Conn) (*hostConn, error) {
	conn.SetReadDeadline(time.Now().Add(handshakeTimeout))

	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("reading connect: %w", err)
	}

	var frame Frame
	if err := json.Unmarshal(msg, &frame); err != nil {
		return nil, fmt.Errorf("parsing connect frame: %w", err)
	}
	if frame.Type != FrameTypeRequest || frame.Method != "connect" {
		sendErrorAndClose(conn, frame.ID, "protocol_error", "expected connect request")
		return nil, fmt.Errorf("expected connect request, got type=%s method=%s", frame.Type, frame.Method)
	}

	var params HelloParams
	if err := json.Unmarshal(frame.Params, &params); err != nil {
		sendErrorAndClose(conn, frame.ID, "invalid_params", "invalid connect params")
		return nil, fmt.Errorf("parsing connect params: %w", err)
	}

	if s.cfg.Token != "" && params.Token != s.cfg.Token {
		sendErrorAndClose(conn, frame.ID, "unauthorized", "bad token")
		return nil, errors.New("connect token mismatch")
	}

	conn.SetReadDeadline(time.Time{})

	host := newHostConn(conn, params.Host, s.log.Sub("ws"))

	hello := HelloOK{
		Protocol: ProtocolVersion,
		Version:  version.Version,
		ConnID:   host.ConnID,
		Methods:  []string{MethodListTools, MethodExecuteTool, MethodCrossDocumentResult},
		Events:   []string{EventToolsChanged, EventContextReady},
	}
	resp, err := NewResponse(frame.ID, hello)
	if err != nil {
		return nil, fmt.Errorf("creating hello response: %w", err)
	}
	if err := host.Send(resp); err != nil {
		return nil, fmt.Errorf("sending hello: %w", err)
	}

	s.log.Info().
		Str("connId", host.ConnID).
		Str("hostId", params.Host.ID).
		Str("hostVersion", params.Host.Version).
		Msg("host connected")

	return host, nil
}

// attach installs a host connection, displacing any previous one.
// Pending requests against the old host fail with ErrHostClosed.
func (s *Server) attach(host *hostConn) {
	s.mu.Lock()
	old := s.host
	s.host = host
	s.failPendingLocked()
	s.mu.Unlock()

	if old != nil {
		s.log.Warn().Str("connId", old.ConnID).Msg("replacing existing host connection")
		old.Close()
	}
}

func (s *Server) detach(host *hostConn) {
	s.mu.Lock()
	if s.host == host {
		s.host = nil
		s.failPendingLocked()
	}
	s.mu.Unlock()
	host.Close()
	s.log.Info().Str("connId", host.ConnID).Msg("host disconnected")
}

func (s *Server) closeHost() {
	s.mu.Lock()
	host := s.host
	s.host = nil
	s.failPendingLocked()
	s.mu.Unlock()
	if host != nil {
		host.Close()
	}
}

// failPendingLocked drops every in-flight request. Callers hold s.mu.
func (s *Server) failPendingLocked() {
	for id, ch := range s.pending {
		close(ch)
		delete(s.pending, id)
	}
}

// readLoop processes incoming frames from the host.
func (s *Server) readLoop(host *hostConn) {
	for {
		frame, err := host.ReadFrame()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Str("connId", host.ConnID).Msg("host closed connection")
			} else {
				s.log.Warn().Err(err).Str("connId", host.ConnID).Msg("read error")
			}
			return
		}

		switch frame.Type {
		case FrameTypeResponse:
			s.deliver(frame)
		case FrameTypeEvent:
			s.handleEvent(frame)
		default:
			s.log.Debug().Str("type", frame.Type).Msg("ignoring unexpected frame")
		}
	}
}

// deliver routes a response frame to its waiting caller.
func (s *Server) deliver(frame Frame) {
	s.mu.Lock()
	ch, ok := s.pending[frame.ID]
	if ok {
		delete(s.pending, frame.ID)
	}
	s.mu.Unlock()
	if !ok {
		s.log.Debug().Str("id", frame.ID).Msg("response for unknown request")
		return
	}
	ch <- frame
	close(ch)
}

func (s *Server) handleEvent(frame Frame) {
	switch frame.Event {
	case EventToolsChanged:
		var listing ToolListing
		if err := json.Unmarshal(frame.Payload, &listing); err != nil {
			s.log.Warn().Err(err).Msg("bad tools.changed payload")
			return
		}
		set := toSet(listing)
		s.log.Info().Int("tools", len(set)).Msg("tool set changed")

		s.mu.Lock()
		callbacks := make([]func(tool.Set), len(s.onChanged))
		copy(callbacks, s.onChanged)
		s.mu.Unlock()
		for _, fn := range callbacks {
			fn(set)
		}

	case EventContextReady:
		s.log.Debug().Msg("context ready")
		s.mu.Lock()
		if !s.ready {
			s.ready = true
			close(s.readyCh)
		}
		s.mu.Unlock()

	default:
		s.log.Debug().Str("event", frame.Event).Msg("ignoring unknown event")
	}
}

// call sends one request to the host and waits for its response.
func (s *Server) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	s.mu.Lock()
	host := s.host
	if host == nil {
		s.mu.Unlock()
		return nil, ErrNoHost
	}
	id := uuid.New().String()
	ch := make(chan Frame, 1)
	s.pending[id] = ch
	s.mu.Unlock()

	frame, err := NewRequest(id, method, params)
	if err != nil {
		s.abandon(id)
		return nil, err
	}
	if err := host.Send(frame); err != nil {
		s.abandon(id)
		return nil, err
	}

	timer := time.NewTimer(requestTimeout)
	defer timer.Stop()

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, ErrHostClosed
		}
		if resp.OK == nil || !*resp.OK {
			if resp.Error != nil {
				return nil, fmt.Errorf("host error %s: %s", resp.Error.Code, resp.Error.Message)
			}
			return nil, errors.New("host returned failure without error detail")
		}
		return resp.Payload, nil
	case <-timer.C:
		s.abandon(id)
		return nil, fmt.Errorf("host did not answer %s within %s", method, requestTimeout)
	case <-ctx.Done():
		s.abandon(id)
		return nil, ctx.Err()
	}
}

func (s *Server) abandon(id string) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

// Execute implements tool.Executor over the host boundary.
func (s *Server) Execute(ctx context.Context, name, argsJSON string) (string, error) {
	payload, err := s.call(ctx, MethodExecuteTool, ExecuteParams{Name: name, Args: argsJSON})
	if err != nil {
		return "", err
	}
	var result ExecuteResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return "", fmt.Errorf("bad execute payload: %w", err)
	}
	if result.Pending {
		return "", tool.ErrResultPending
	}
	return result.Result, nil
}

// AwaitContextReady implements tool.Navigator. It blocks until the
// host signals that the post-navigation context is loaded. The latch
// is consumed on return, so an event that beat the waiter still counts
// once and only once.
func (s *Server) AwaitContextReady(ctx context.Context) error {
	s.mu.Lock()
	if s.ready {
		s.consumeReadyLocked()
		s.mu.Unlock()
		return nil
	}
	ready := s.readyCh
	s.mu.Unlock()

	select {
	case <-ready:
		s.mu.Lock()
		s.consumeReadyLocked()
		s.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// consumeReadyLocked resets the navigation latch. Callers hold s.mu.
func (s *Server) consumeReadyLocked() {
	s.ready = false
	s.readyCh = make(chan struct{})
}

// CrossDocumentResult implements tool.Navigator. It fetches the result
// carried over from the execution that navigated the context.
func (s *Server) CrossDocumentResult(ctx context.Context) (string, error) {
	payload, err := s.call(ctx, MethodCrossDocumentResult, struct{}{})
	if err != nil {
		return "", err
	}
	var result ExecuteResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return "", fmt.Errorf("bad cross-document payload: %w", err)
	}
	return result.Result, nil
}

// List implements tool.Source. It queries the host for its current
// tool listing.
func (s *Server) List(ctx context.Context) (tool.Set, error) {
	payload, err := s.call(ctx, MethodListTools, struct{}{})
	if err != nil {
		return nil, err
	}
	var listing ToolListing
	if err := json.Unmarshal(payload, &listing); err != nil {
		return nil, fmt.Errorf("bad tool listing: %w", err)
	}
	return toSet(listing), nil
}

// OnChanged implements tool.Source.
func (s *Server) OnChanged(fn func(tool.Set)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChanged = append(s.onChanged, fn)
}

func toSet(listing ToolListing) tool.Set {
	set := make(tool.Set, 0, len(listing.Tools))
	for _, t := range listing.Tools {
		set = append(set, tool.Descriptor{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: string(t.InputSchema),
		})
	}
	return set
}

// sendErrorAndClose sends an error response and closes the connection.
func sendErrorAndClose(conn *websocket.Conn, reqID, code, message string) {
	errFrame := NewErrorResponse(reqID, ErrorShape{
		Code:    code,
		Message: message,
	})
	conn.WriteJSON(errFrame)
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, message))
}
