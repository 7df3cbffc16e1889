package live

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lukasdemani/searcher-app/internal/model"
	"github.com/lukasdemani/searcher-app/internal/platform/errs"
	"github.com/lukasdemani/searcher-app/internal/platform/metrics"
)

// UpdateBufferSize is the capacity of a live source's update channel.
const UpdateBufferSize = 64

// MaxReconnectMessage is the persistent error message once reconnection gives up.
const MaxReconnectMessage = "Max reconnection attempts reached."

// State is the connection state of the push Transport.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Status is a point-in-time view of the Transport.
type Status struct {
	State     State
	Connected bool
	Attempts  int
	Err       error
}

type TransportSettings struct {
	URL                  string
	Header               http.Header
	ReconnectInterval    time.Duration
	MaxReconnectAttempts int
	HandshakeTimeout     time.Duration
	WriteTimeout         time.Duration

	// Dialer overrides the websocket dialer. HandshakeTimeout is ignored when set.
	Dialer *websocket.Dialer
}

func DefaultTransportSettings() *TransportSettings {
	return &TransportSettings{
		URL:                  "ws://localhost:8080/ws",
		ReconnectInterval:    5 * time.Second,
		MaxReconnectAttempts: 5,
		HandshakeTimeout:     5 * time.Second,
		WriteTimeout:         5 * time.Second,
	}
}

// Transport is the reconnecting push channel. It delivers decoded push
// events on Updates and signals connection state changes on Changed.
type Transport struct {
	settings *TransportSettings
	logger   *slog.Logger

	updates chan model.Update
	changed chan struct{}

	mu       sync.Mutex
	state    State
	attempts int
	err      error
	conn     *websocket.Conn
	cancel   context.CancelFunc
	done     chan struct{}

	writeMu sync.Mutex
}

func NewTransport(settings *TransportSettings, logger *slog.Logger) *Transport {
	if settings == nil {
		settings = DefaultTransportSettings()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Transport{
		settings: settings,
		logger:   logger.With("component", "transport"),
		updates:  make(chan model.Update, UpdateBufferSize),
		changed:  make(chan struct{}, 1),
	}
}

// Updates returns the stream of push events, in arrival order.
func (t *Transport) Updates() <-chan model.Update {
	return t.updates
}

// Changed receives a value whenever the connection state changes.
// Signals are coalesced; read Status for the current state.
func (t *Transport) Changed() <-chan struct{} {
	return t.changed
}

func (t *Transport) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Status{
		State:     t.state,
		Connected: t.state == StateConnected,
		Attempts:  t.attempts,
		Err:       t.err,
	}
}

// Connected reports whether the channel is currently open.
func (t *Transport) Connected() bool {
	return t.Status().Connected
}

// Connect starts the connection loop. It is a no-op while a loop is
// already running. After Disconnect or a Failed state it starts afresh
// with a zeroed attempt counter.
func (t *Transport) Connect(ctx context.Context) {
	t.mu.Lock()
	if t.done != nil {
		select {
		case <-t.done:
		default:
			t.mu.Unlock()
			return
		}
	}

	if t.cancel != nil {
		t.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	t.cancel = cancel
	t.done = done
	t.attempts = 0
	t.err = nil
	t.mu.Unlock()

	go t.run(runCtx, done)
}

// Disconnect closes the channel with the normal closure code and cancels any
// pending reconnect. It is idempotent.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel = nil
	if cancel != nil {
		// Cancel under the lock so a concurrent open sees it.
		cancel()
	}
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	<-done

	t.mu.Lock()
	changed := t.state != StateDisconnected
	t.state = StateDisconnected
	t.mu.Unlock()
	if changed {
		t.notify()
	}
	metrics.Connected.Set(0)
}

// Send writes v as a JSON text frame. When the channel is not open the
// message is dropped with a warning.
func (t *Transport) Send(v any) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		t.logger.Warn("push channel not connected, message dropped")
		return nil
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(t.settings.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

func (t *Transport) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		if ctx.Err() != nil {
			t.setState(StateDisconnected)
		}
	}()

	for {
		t.setState(StateConnecting)

		conn, err := t.dial(ctx)
		if err == nil {
			if !t.opened(ctx, conn) {
				return
			}
			var intentional bool
			intentional, err = t.readLoop(ctx, conn)
			t.closed()
			if ctx.Err() != nil {
				return
			}
			if intentional {
				t.logger.Info("push channel closed by server")
				t.setState(StateDisconnected)
				return
			}
		}
		if ctx.Err() != nil {
			return
		}

		if !t.scheduleReconnect(err) {
			return
		}

		timer := time.NewTimer(t.settings.ReconnectInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (t *Transport) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := t.settings.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: t.settings.HandshakeTimeout,
		}
	}
	conn, _, err := dialer.DialContext(ctx, t.settings.URL, t.settings.Header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", t.settings.URL, err)
	}
	return conn, nil
}

// opened records a successful open. It reports false if the transport was
// disconnected while dialing.
func (t *Transport) opened(ctx context.Context, conn *websocket.Conn) bool {
	t.mu.Lock()
	if ctx.Err() != nil {
		t.mu.Unlock()
		_ = conn.Close()
		return false
	}
	t.conn = conn
	t.state = StateConnected
	t.attempts = 0
	t.err = nil
	t.mu.Unlock()

	t.logger.Info("push channel connected", "url", t.settings.URL)
	metrics.Connected.Set(1)
	t.notify()
	return true
}

func (t *Transport) closed() {
	t.mu.Lock()
	t.conn = nil
	t.mu.Unlock()
	metrics.Connected.Set(0)
}

// readLoop reads frames until the connection ends. It reports whether the
// close was intentional: a local Disconnect or a normal closure from the server.
func (t *Transport) readLoop(ctx context.Context, conn *websocket.Conn) (bool, error) {
	stop := context.AfterFunc(ctx, func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "Manual disconnect")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(t.settings.WriteTimeout))
		_ = conn.Close()
	})
	defer stop()
	defer func() { _ = conn.Close() }()

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return true, nil
			}
			return false, err
		}

		if messageType != websocket.TextMessage {
			t.logger.Debug("non-text frame ignored", "type", messageType)
			continue
		}
		t.handleFrame(ctx, message)
	}
}

func (t *Transport) handleFrame(ctx context.Context, message []byte) {
	event, reason, err := DecodeFrame(message)
	if err != nil {
		t.logger.Warn("malformed push frame dropped", "error", err)
		metrics.FramesDroppedTotal.WithLabelValues(reason).Inc()
		return
	}
	if reason != "" {
		t.logger.Debug("push frame ignored", "reason", reason)
		metrics.FramesDroppedTotal.WithLabelValues(reason).Inc()
		return
	}

	select {
	case <-ctx.Done():
	case t.updates <- model.Update{Event: &event}:
	}
}

// scheduleReconnect counts an abnormal close. It reports false once the
// attempt ceiling is reached and the transport has failed.
func (t *Transport) scheduleReconnect(cause error) bool {
	t.mu.Lock()
	t.attempts++
	attempts := t.attempts
	if attempts >= t.settings.MaxReconnectAttempts {
		t.state = StateFailed
		t.err = &errs.AppError{Kind: errs.ReconnectExhausted, Message: MaxReconnectMessage}
		t.mu.Unlock()

		t.logger.Error("push channel gave up reconnecting", "attempts", attempts, "error", cause)
		t.notify()
		return false
	}
	t.state = StateReconnecting
	t.err = &errs.AppError{Kind: errs.Transport, Message: "WebSocket connection error", Cause: cause}
	t.mu.Unlock()

	t.logger.Info("push channel reconnecting",
		"attempt", attempts,
		"max", t.settings.MaxReconnectAttempts,
		"in", t.settings.ReconnectInterval.String(),
		"error", cause,
	)
	metrics.ReconnectAttemptsTotal.Inc()
	t.notify()
	return true
}

func (t *Transport) setState(s State) {
	t.mu.Lock()
	changed := t.state != s
	t.state = s
	t.mu.Unlock()
	if changed {
		t.notify()
	}
}

func (t *Transport) notify() {
	select {
	case t.changed <- struct{}{}:
	default:
	}
}
