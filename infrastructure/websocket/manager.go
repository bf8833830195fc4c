// Package websocket owns the client side of the wire connection: one
// logical socket to the backend, reconnection with staleness protection,
// outbound queuing and typed message routing.
package websocket

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"sessiongraph/domain/protocol"
	"sessiongraph/pkg/clock"
	pkgerrors "sessiongraph/pkg/errors"
	"sessiongraph/pkg/observability"
)

// Options configures a Manager.
type Options struct {
	// URL is the backend websocket endpoint.
	URL string

	// SessionID is appended to the URL as a query parameter.
	SessionID string

	// ReconnectDelay is the fixed delay before an unintentional close is
	// followed by a new connection attempt.
	ReconnectDelay time.Duration

	// FlushRetryDelay is the single delayed flush attempt granted to
	// messages queued while disconnected.
	FlushRetryDelay time.Duration

	// WriteTimeout bounds every socket write. A peer that stops reading
	// fails the write instead of blocking the manager's lock.
	WriteTimeout time.Duration

	// PongTimeout is how long the socket may go without a pong before
	// its read fails and the reconnect path takes over.
	PongTimeout time.Duration

	// PingInterval is how often the manager pings the backend to keep
	// the read deadline moving. Must be shorter than PongTimeout.
	PingInterval time.Duration
}

type subscription struct {
	id      int
	handler func(protocol.Message)
}

// Manager is the single source of truth for the connection's lifecycle
// and message routing. Stale sockets are suppressed with a generation
// token: every socket goroutine and timer captures the generation it was
// created under and becomes a no-op once a newer connection supersedes
// it. That comparison, not best-effort cancellation, is what guarantees a
// slow-closing old socket can never deliver messages or trigger a
// reconnect after a newer connection exists.
type Manager struct {
	opts    Options
	dialer  Dialer
	clock   clock.Clock
	logger  *zap.Logger
	metrics *observability.Collector

	mu             sync.Mutex
	generation     int
	conn           Conn
	open           bool
	intentional    bool
	reconnectTimer clock.Timer
	flushTimer     clock.Timer
	pingTicker     clock.Ticker
	queue          [][]byte
	subscribers    map[protocol.Type][]subscription
	nextSubID      int
}

// NewManager creates a manager. Instances are independent; tests can run
// several side by side without shared state.
func NewManager(opts Options, dialer Dialer, clk clock.Clock, logger *zap.Logger, metrics *observability.Collector) *Manager {
	return &Manager{
		opts:        opts,
		dialer:      dialer,
		clock:       clk,
		logger:      logger.With(zap.String("component", "connection")),
		metrics:     metrics,
		subscribers: make(map[protocol.Type][]subscription),
	}
}

// Connect establishes a new connection generation. Any pending reconnect
// timer is canceled and any previous socket is closed; its in-flight
// events fail the generation check from here on. On success the outbound
// queue is flushed oldest first.
func (m *Manager) Connect() {
	m.mu.Lock()
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
	if m.pingTicker != nil {
		m.pingTicker.Stop()
		m.pingTicker = nil
	}
	m.generation++
	gen := m.generation
	m.intentional = false
	if old := m.conn; old != nil {
		m.conn = nil
		m.open = false
		old.Close()
	}
	target := m.targetURL()
	m.mu.Unlock()

	conn, err := m.dialer.Dial(context.Background(), target)

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		if err == nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		m.logger.Warn("Dial failed",
			zap.String("url", target),
			zap.Error(err),
		)
		m.scheduleReconnectLocked(gen)
		m.mu.Unlock()
		return
	}

	m.conn = conn
	m.open = true
	conn.SetReadDeadline(m.clock.Now().Add(m.opts.PongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(m.clock.Now().Add(m.opts.PongTimeout))
	})
	m.pingTicker = m.clock.NewTicker(m.opts.PingInterval, func() { m.ping(gen, conn) })
	m.logger.Info("Connected",
		zap.String("url", target),
		zap.Int("generation", gen),
	)
	m.flushQueueLocked()
	m.mu.Unlock()

	go m.readLoop(gen, conn)
}

// Disconnect closes the connection intentionally: timers are canceled,
// the queue is cleared and no reconnection occurs until Connect is called
// again.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
	if m.flushTimer != nil {
		m.flushTimer.Stop()
		m.flushTimer = nil
	}
	if m.pingTicker != nil {
		m.pingTicker.Stop()
		m.pingTicker = nil
	}
	m.queue = nil
	m.setQueueDepthLocked()
	m.intentional = true
	m.generation++
	conn := m.conn
	m.conn = nil
	m.open = false
	m.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	m.logger.Info("Disconnected")
}

// Send transmits a message immediately when the socket is open. While
// disconnected the message is queued with a single delayed flush attempt;
// if the socket is still closed when that attempt fires, the message is
// dropped loudly via a delivery_failed notification.
func (m *Manager) Send(msg protocol.Message) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.open && m.conn != nil {
		err := m.writeLocked(m.conn, websocket.TextMessage, data)
		m.mu.Unlock()
		if err != nil {
			return pkgerrors.NewTransport("write failed", err)
		}
		return nil
	}

	m.queue = append(m.queue, data)
	if m.metrics != nil {
		m.metrics.SendsQueued.Inc()
	}
	m.setQueueDepthLocked()
	m.scheduleFlushLocked()
	m.mu.Unlock()

	m.logger.Debug("Message queued while disconnected",
		zap.String("type", string(msg.MessageType())),
	)
	return nil
}

// Subscribe registers a handler for one message type, or for every
// message via protocol.Wildcard. Handlers run in subscription order. The
// returned function removes the subscription.
func (m *Manager) Subscribe(t protocol.Type, handler func(protocol.Message)) func() {
	m.mu.Lock()
	m.nextSubID++
	id := m.nextSubID
	m.subscribers[t] = append(m.subscribers[t], subscription{id: id, handler: handler})
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		subs := m.subscribers[t]
		for i, s := range subs {
			if s.id == id {
				m.subscribers[t] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// readLoop pumps frames from one socket generation until it errors out.
func (m *Manager) readLoop(gen int, conn Conn) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			m.handleClose(gen, err)
			return
		}
		if messageType != websocket.TextMessage {
			m.logger.Warn("Binary messages not supported")
			continue
		}
		m.handleFrame(gen, data)
	}
}

// handleFrame decodes one frame and dispatches it to subscribers. A
// decode failure is logged and dropped; one bad message never stops the
// ones behind it.
func (m *Manager) handleFrame(gen int, data []byte) {
	msg, err := protocol.Decode(data)

	m.mu.Lock()
	if gen != m.generation {
		// Stale socket delivery: expected, suppressed silently.
		m.mu.Unlock()
		return
	}
	if err != nil {
		m.mu.Unlock()
		if m.metrics != nil {
			m.metrics.DecodeFailures.Inc()
		}
		m.logger.Error("Dropping undecodable frame", zap.Error(err))
		return
	}
	handlers := m.handlersLocked(msg.MessageType())
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.MessagesReceived.WithLabelValues(string(msg.MessageType())).Inc()
	}
	for _, h := range handlers {
		h(msg)
	}
}

// handleClose reacts to a socket teardown. Intentional closes end here;
// anything else schedules a reconnect after the configured delay.
func (m *Manager) handleClose(gen int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation {
		return
	}
	m.open = false
	m.conn = nil
	if m.pingTicker != nil {
		m.pingTicker.Stop()
		m.pingTicker = nil
	}
	if m.intentional {
		return
	}
	m.logger.Warn("Connection lost",
		zap.Error(err),
		zap.Duration("reconnectIn", m.opts.ReconnectDelay),
	)
	m.scheduleReconnectLocked(gen)
}

// scheduleReconnectLocked arms the reconnect timer for the current
// generation. Caller holds the lock.
func (m *Manager) scheduleReconnectLocked(gen int) {
	if m.metrics != nil {
		m.metrics.Reconnects.Inc()
	}
	m.reconnectTimer = m.clock.AfterFunc(m.opts.ReconnectDelay, func() {
		m.mu.Lock()
		stale := gen != m.generation
		if !stale {
			m.reconnectTimer = nil
		}
		m.mu.Unlock()
		if stale {
			return
		}
		m.Connect()
	})
}

// scheduleFlushLocked arms the single delayed flush attempt for queued
// messages. Caller holds the lock.
func (m *Manager) scheduleFlushLocked() {
	if m.flushTimer != nil {
		return
	}
	m.flushTimer = m.clock.AfterFunc(m.opts.FlushRetryDelay, func() {
		m.mu.Lock()
		m.flushTimer = nil
		if m.open && m.conn != nil {
			m.flushQueueLocked()
			m.mu.Unlock()
			return
		}
		dropped := m.queue
		m.queue = nil
		m.setQueueDepthLocked()
		if m.metrics != nil {
			m.metrics.SendsDropped.Add(float64(len(dropped)))
		}
		handlers := m.handlersLocked(protocol.TypeDeliveryFailed)
		m.mu.Unlock()

		dropErr := pkgerrors.NewDroppedSend("socket not open after retry")
		for _, data := range dropped {
			m.logger.Error("Outbound message dropped",
				zap.Error(dropErr),
				zap.ByteString("payload", data),
			)
			failed := protocol.NewDeliveryFailed(dropErr.Error(), data)
			for _, h := range handlers {
				h(failed)
			}
		}
	})
}

// flushQueueLocked drains the outbound queue oldest first. On a write
// error the remaining messages stay queued; the read loop will notice
// the dying socket and drive the reconnect. Caller holds the lock.
func (m *Manager) flushQueueLocked() {
	for len(m.queue) > 0 {
		data := m.queue[0]
		if err := m.writeLocked(m.conn, websocket.TextMessage, data); err != nil {
			m.logger.Error("Flush write failed", zap.Error(err))
			break
		}
		m.queue = m.queue[1:]
	}
	if len(m.queue) == 0 {
		m.queue = nil
	}
	m.setQueueDepthLocked()
}

// writeLocked writes one frame with the write deadline applied, so a
// peer that stops reading fails the write instead of holding the lock
// indefinitely. Caller holds the lock.
func (m *Manager) writeLocked(conn Conn, messageType int, data []byte) error {
	conn.SetWriteDeadline(m.clock.Now().Add(m.opts.WriteTimeout))
	return conn.WriteMessage(messageType, data)
}

// ping keeps the socket's read deadline moving: the backend answers each
// ping with a pong, which pushes the deadline forward. A socket that went
// quiet fails its read within PongTimeout and drives the reconnect.
func (m *Manager) ping(gen int, conn Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation {
		return
	}
	if err := m.writeLocked(conn, websocket.PingMessage, nil); err != nil {
		m.logger.Warn("Ping failed", zap.Error(err))
	}
}

// handlersLocked snapshots the handlers for one type plus the wildcard
// subscribers, preserving subscription order. Caller holds the lock.
func (m *Manager) handlersLocked(t protocol.Type) []func(protocol.Message) {
	subs := m.subscribers[t]
	wild := m.subscribers[protocol.Wildcard]
	out := make([]func(protocol.Message), 0, len(subs)+len(wild))
	for _, s := range subs {
		out = append(out, s.handler)
	}
	for _, s := range wild {
		out = append(out, s.handler)
	}
	return out
}

func (m *Manager) setQueueDepthLocked() {
	if m.metrics != nil {
		m.metrics.QueueDepth.Set(float64(len(m.queue)))
	}
}

func (m *Manager) targetURL() string {
	sep := "?"
	if strings.Contains(m.opts.URL, "?") {
		sep = "&"
	}
	return m.opts.URL + sep + "session=" + m.opts.SessionID
}
