package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/workspace"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// Time allowed to write a message to the host
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the host
	pongWait = 60 * time.Second

	// Send pings to the host with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from the host
	maxMessageSize = 1 << 20

	sendBufferSize  = 64
	eventBufferSize = 256
)

var (
	ErrNotConnected = errors.New("workspace bridge not connected")
	ErrClosed       = errors.New("workspace bridge closed")
)

// Config configures a Bridge
type Config struct {
	URL            string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
}

// Bridge is a workspace.Provider that talks to the host over a WebSocket.
// Requests are correlated by id; events and lifecycle messages are handed to
// handlers one at a time on a dedicated goroutine.
type Bridge struct {
	cfg    Config
	dialer *websocket.Dialer
	logger zerolog.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	events   chan func()
	pending  map[string]chan ResponseMsg
	topics   map[string][]func(json.RawMessage)
	handlers workspace.Handlers
	clients  workspace.ClientSet
	created  bool
	closing  bool
	timer    *time.Timer
}

// New creates a bridge for the host at cfg.URL (ws://, wss://, http:// or https://)
func New(cfg Config, logger zerolog.Logger) *Bridge {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Second
	}
	return &Bridge{
		cfg:     cfg,
		dialer:  websocket.DefaultDialer,
		logger:  logger.With().Str("component", "workspace_bridge").Logger(),
		pending: make(map[string]chan ResponseMsg),
		topics:  make(map[string][]func(json.RawMessage)),
	}
}

func wsURL(raw string) string {
	if strings.HasPrefix(raw, "http") {
		return "ws" + raw[4:]
	}
	return raw
}

// Connect dials the host and starts the pumps. OnCreate fires when the host
// accepts the app; if that does not happen within ConnectTimeout, OnError
// receives workspaceConnectTimeout.
func (b *Bridge) Connect(ctx context.Context, h workspace.Handlers) error {
	b.mu.Lock()
	if b.conn != nil {
		b.mu.Unlock()
		return errors.New("workspace bridge already connected")
	}
	b.mu.Unlock()

	conn, _, err := b.dialer.DialContext(ctx, wsURL(b.cfg.URL), nil)
	if err != nil {
		return fmt.Errorf("failed to dial workspace host: %w", err)
	}

	b.mu.Lock()
	b.conn = conn
	b.send = make(chan []byte, sendBufferSize)
	b.done = make(chan struct{})
	b.events = make(chan func(), eventBufferSize)
	b.handlers = h
	b.created = false
	b.closing = false
	b.clients = workspace.ClientSet{}
	b.timer = time.AfterFunc(b.cfg.ConnectTimeout, b.connectTimedOut)
	done, events, send := b.done, b.events, b.send
	b.mu.Unlock()

	b.logger.Info().Str("url", b.cfg.URL).Msg("connected to workspace host")

	go b.dispatchLoop(done, events)
	go b.writePump(conn, send, done)
	go b.readPump(conn, done)
	return nil
}

func (b *Bridge) connectTimedOut() {
	b.mu.Lock()
	if b.created || b.closing {
		b.mu.Unlock()
		return
	}
	h := b.handlers
	b.mu.Unlock()

	b.logger.Warn().Dur("timeout", b.cfg.ConnectTimeout).Msg("workspace host did not create the app")
	b.enqueue(func() {
		if h.OnError != nil {
			h.OnError(&workspace.Error{Key: workspace.ErrKeyConnectTimeout, Message: "no create from workspace host"})
		}
	})
}

// Clients returns the clients built on create
func (b *Bridge) Clients() workspace.ClientSet {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.clients
}

// SendError reports an app error to the host
func (b *Bridge) SendError(ctx context.Context, message string, fatal bool) error {
	data, err := json.Marshal(AppErrorMsg{Type: TypeAppError, Message: message, Fatal: fatal})
	if err != nil {
		return err
	}
	return b.write(ctx, data)
}

// Close shuts the connection down. Pending requests fail with connectionLost
// and no lifecycle handler runs. The bridge may be connected again afterwards.
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.conn == nil {
		b.mu.Unlock()
		return nil
	}
	b.closing = true
	conn := b.conn
	pending := b.reset()
	b.mu.Unlock()

	failPending(pending)

	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return conn.Close()
}

// reset drops the connection state and returns the requests still waiting.
// Caller holds mu.
func (b *Bridge) reset() map[string]chan ResponseMsg {
	pending := b.pending
	b.pending = make(map[string]chan ResponseMsg)
	b.topics = make(map[string][]func(json.RawMessage))
	b.conn = nil
	b.clients = workspace.ClientSet{}
	b.created = false
	if b.timer != nil {
		b.timer.Stop()
	}
	return pending
}

func failPending(pending map[string]chan ResponseMsg) {
	for id, ch := range pending {
		ch <- ResponseMsg{ID: id, Error: &workspace.Error{Key: workspace.ErrKeyConnectionLost}}
	}
}

// enqueue hands fn to the dispatch goroutine, dropping it when the buffer is full
func (b *Bridge) enqueue(fn func()) {
	b.mu.Lock()
	events := b.events
	b.mu.Unlock()
	if events == nil {
		return
	}
	select {
	case events <- fn:
	default:
		b.logger.Warn().Msg("event buffer full, dropping event")
	}
}

func (b *Bridge) dispatchLoop(done <-chan struct{}, events <-chan func()) {
	for {
		select {
		case fn := <-events:
			fn()
		case <-done:
			// Drain whatever was queued before the connection went away
			for {
				select {
				case fn := <-events:
					fn()
				default:
					return
				}
			}
		}
	}
}

// writePump pumps messages from the send channel to the websocket connection
func (b *Bridge) writePump(conn *websocket.Conn, send <-chan []byte, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				b.logger.Debug().Err(err).Msg("write error")
				conn.Close()
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}

		case <-done:
			return
		}
	}
}

// readPump reads frames from the host until the connection fails
func (b *Bridge) readPump(conn *websocket.Conn, done chan struct{}) {
	defer b.connectionLost(conn, done)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				b.logger.Warn().Err(err).Msg("workspace connection error")
			}
			return
		}
		b.handleMessage(message)
	}
}

func (b *Bridge) connectionLost(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	conn.Close()

	b.mu.Lock()
	if b.conn != conn {
		// closed by Close, or already replaced by a newer connection
		b.mu.Unlock()
		b.logger.Info().Msg("workspace connection closed")
		return
	}
	wasCreated := b.created
	h := b.handlers
	pending := b.reset()
	b.mu.Unlock()

	failPending(pending)

	b.logger.Warn().Bool("created", wasCreated).Msg("workspace connection lost")
	b.enqueue(func() {
		switch {
		case wasCreated && h.OnDestroy != nil:
			h.OnDestroy()
		case !wasCreated && h.OnError != nil:
			h.OnError(&workspace.Error{Key: workspace.ErrKeyConnectionLost})
		}
	})
}

// handleMessage processes one frame from the host
func (b *Bridge) handleMessage(message []byte) {
	var env Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		b.logger.Warn().Err(err).Msg("invalid frame from workspace host")
		return
	}

	switch env.Type {
	case TypeResponse:
		var resp ResponseMsg
		if err := json.Unmarshal(message, &resp); err != nil {
			b.logger.Warn().Err(err).Msg("invalid response frame")
			return
		}
		b.mu.Lock()
		ch, ok := b.pending[resp.ID]
		delete(b.pending, resp.ID)
		b.mu.Unlock()
		if !ok {
			b.logger.Debug().Str("id", resp.ID).Msg("response for unknown request")
			return
		}
		ch <- resp

	case TypeEvent:
		var ev EventMsg
		if err := json.Unmarshal(message, &ev); err != nil {
			b.logger.Warn().Err(err).Msg("invalid event frame")
			return
		}
		b.mu.Lock()
		fns := append([]func(json.RawMessage){}, b.topics[ev.Topic]...)
		b.mu.Unlock()
		b.enqueue(func() {
			for _, fn := range fns {
				fn(ev.Data)
			}
		})

	case TypeLifecycle:
		var lc LifecycleMsg
		if err := json.Unmarshal(message, &lc); err != nil {
			b.logger.Warn().Err(err).Msg("invalid lifecycle frame")
			return
		}
		b.handleLifecycle(lc)

	case TypeError:
		var em ErrorMsg
		if err := json.Unmarshal(message, &em); err != nil {
			return
		}
		b.mu.Lock()
		h := b.handlers
		b.mu.Unlock()
		b.enqueue(func() {
			if h.OnError != nil {
				h.OnError(&workspace.Error{Key: em.Key, Message: em.Message})
			}
		})

	default:
		b.logger.Debug().Str("type", env.Type).Msg("unknown frame type")
	}
}

func (b *Bridge) handleLifecycle(lc LifecycleMsg) {
	switch lc.Stage {
	case StageCreate:
		b.mu.Lock()
		if b.timer != nil {
			b.timer.Stop()
		}
		b.created = true
		b.clients = b.buildClients(lc.Features)
		h := b.handlers
		b.mu.Unlock()

		b.logger.Info().
			Str("app_instance_id", lc.AppInstanceID).
			Strs("features", lc.Features).
			Msg("app created by workspace host")

		ev := workspace.CreateEvent{AppInstanceID: lc.AppInstanceID, Features: lc.Features}
		b.enqueue(func() {
			if h.OnCreate != nil {
				h.OnCreate(ev)
			}
		})

	case StageDestroy:
		b.mu.Lock()
		b.created = false
		b.clients = workspace.ClientSet{}
		b.topics = make(map[string][]func(json.RawMessage))
		h := b.handlers
		b.mu.Unlock()

		b.logger.Info().Msg("app destroyed by workspace host")
		b.enqueue(func() {
			if h.OnDestroy != nil {
				h.OnDestroy()
			}
		})
	}
}

// buildClients creates the core clients plus the optional ones the host
// announced. Caller holds mu.
func (b *Bridge) buildClients(features []string) workspace.ClientSet {
	has := make(map[string]bool, len(features))
	for _, f := range features {
		has[f] = true
	}

	set := workspace.ClientSet{
		Agent:   &agentClient{b: b},
		Contact: &contactClient{b: b},
		Voice:   &voiceClient{b: b},
		Email:   &emailClient{b: b},
	}
	if has[FeatureFile] {
		set.File = &fileClient{b: b}
	}
	if has[FeatureTemplate] {
		set.Template = &templateClient{b: b}
	}
	if has[FeatureQuickResponses] {
		set.QuickResponses = &quickResponsesClient{b: b}
	}
	if has[FeatureSettings] {
		set.Settings = &settingsClient{b: b}
	}
	return set
}

// write queues a frame for the write pump
func (b *Bridge) write(ctx context.Context, data []byte) error {
	b.mu.Lock()
	send, done := b.send, b.done
	connected := b.conn != nil
	b.mu.Unlock()

	if !connected {
		return ErrNotConnected
	}

	select {
	case send <- data:
		return nil
	case <-done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// subscribe registers fn for topic and asks the host to publish it
func (b *Bridge) subscribe(topic string, fn func(json.RawMessage)) {
	b.mu.Lock()
	first := len(b.topics[topic]) == 0
	b.topics[topic] = append(b.topics[topic], fn)
	b.mu.Unlock()

	if !first {
		return
	}
	data, err := json.Marshal(SubscribeMsg{Type: TypeSubscribe, Topic: topic})
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	if err := b.write(ctx, data); err != nil {
		b.logger.Warn().Err(err).Str("topic", topic).Msg("failed to subscribe")
	}
}

// call sends a request and decodes the result into out (which may be nil)
func (b *Bridge) call(ctx context.Context, method string, params, out interface{}) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.RequestTimeout)
		defer cancel()
	}

	req := RequestMsg{Type: TypeRequest, ID: uuid.NewString(), Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("failed to encode %s params: %w", method, err)
		}
		req.Params = raw
	}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	ch := make(chan ResponseMsg, 1)
	b.mu.Lock()
	b.pending[req.ID] = ch
	b.mu.Unlock()

	forget := func() {
		b.mu.Lock()
		delete(b.pending, req.ID)
		b.mu.Unlock()
	}

	if err := b.write(ctx, data); err != nil {
		forget()
		return fmt.Errorf("%s: %w", method, err)
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return fmt.Errorf("%s: %w", method, resp.Error)
		}
		if out != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, out); err != nil {
				return fmt.Errorf("failed to decode %s result: %w", method, err)
			}
		}
		return nil
	case <-ctx.Done():
		forget()
		return fmt.Errorf("%s: %w", method, ctx.Err())
	}
}
