package icl

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/gorilla/websocket"
)

// DefaultURI is the ICL's default WebSocket endpoint.
const DefaultURI = "ws://127.0.0.1:25010"

// DefaultRequestTimeout is used by RequestWithResponse callers that don't
// need a longer budget (e.g. homing or wavelength moves, which use their
// own, longer timeouts — see icl/device).
const DefaultRequestTimeout = 5 * time.Second

// binaryQueueCapacity bounds the telemetry-plane queue so a slow consumer
// cannot grow memory without bound. When the queue is full, further frames
// are logged and dropped rather than blocking the reader, so JSON
// demultiplexing is never stalled.
const binaryQueueCapacity = 64

// BinaryCallback receives binary telemetry frames in strict FIFO order.
type BinaryCallback func(BinaryFrame)

// Transport owns a single WebSocket connection to the ICL. It demultiplexes
// inbound messages into JSON Responses, correlated to their Command by ID,
// and binary telemetry frames, delivered to an optional callback. Only one
// reader ever consumes the socket; only RequestWithResponse/Send ever write
// to it.
type Transport struct {
	uri string

	connMu sync.Mutex
	conn   *websocket.Conn

	pendingMu sync.Mutex
	pending   map[int64]chan *Response

	binaryMu       sync.Mutex
	binaryCallback BinaryCallback
	binaryQueue    chan BinaryFrame

	writeMu sync.Mutex

	readerDone chan struct{}
	workerDone chan struct{}

	logger *slog.Logger
	Stats  *StatsRegistry
}

// NewTransport constructs a Transport bound to uri. The connection is not
// opened until Open is called.
func NewTransport(uri string, logger *slog.Logger) *Transport {
	if uri == "" {
		uri = DefaultURI
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{
		uri:     uri,
		pending: make(map[int64]chan *Response),
		logger:  logger,
		Stats:   NewStatsRegistry(),
	}
}

// Open connects to the ICL and starts the reader goroutine. It returns
// ErrAlreadyOpen if already connected, or a *ConnectFailedError wrapping
// the dial failure.
func (t *Transport) Open(ctx context.Context) error {
	t.connMu.Lock()
	if t.conn != nil {
		t.connMu.Unlock()
		return ErrAlreadyOpen
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, t.uri, nil)
	if err != nil {
		t.connMu.Unlock()
		return &ConnectFailedError{URI: t.uri, Cause: err}
	}

	t.conn = conn
	t.readerDone = make(chan struct{})
	t.workerDone = make(chan struct{})
	t.binaryQueue = make(chan BinaryFrame, binaryQueueCapacity)
	t.connMu.Unlock()

	go t.binaryWorker(t.binaryQueue, t.workerDone)
	go t.readPump()

	t.logger.Debug("icl: transport opened", "uri", t.uri)
	return nil
}

// Close requests a graceful WebSocket close, stops the reader, fails any
// pending requests with ErrClosed, flushes the binary queue and drops the
// socket. Returns ErrNotOpen if never opened or already closed.
func (t *Transport) Close() error {
	t.connMu.Lock()
	conn := t.conn
	if conn == nil {
		t.connMu.Unlock()
		return ErrNotOpen
	}
	t.conn = nil
	t.connMu.Unlock()

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	err := conn.Close()

	<-t.readerDone

	t.binaryMu.Lock()
	if t.binaryQueue != nil {
		close(t.binaryQueue)
	}
	t.binaryCallback = nil
	t.binaryMu.Unlock()
	<-t.workerDone

	t.failAllPending(ErrClosed)

	t.logger.Debug("icl: transport closed")
	return err
}

// Send JSON-serialises and transmits command without waiting for a
// response.
func (t *Transport) Send(cmd *Command) error {
	t.connMu.Lock()
	conn := t.conn
	t.connMu.Unlock()
	if conn == nil {
		return ErrNotOpen
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return nil
}

// RequestWithResponse sends cmd and waits at most timeout for the Response
// whose ID matches cmd.ID. The waiter is registered before the command is
// sent, closing the race between transmission and an immediate reply.
func (t *Transport) RequestWithResponse(ctx context.Context, cmd *Command, timeout time.Duration) (*Response, error) {
	waiter := make(chan *Response, 1)

	t.pendingMu.Lock()
	t.pending[cmd.ID] = waiter
	t.pendingMu.Unlock()

	cleanup := func() {
		t.pendingMu.Lock()
		delete(t.pending, cmd.ID)
		t.pendingMu.Unlock()
	}

	start := time.Now()
	if err := t.Send(cmd); err != nil {
		cleanup()
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp, ok := <-waiter:
		if !ok || resp == nil {
			return nil, ErrClosed
		}
		t.Stats.Sample(cmd.Name, time.Since(start))
		return resp, nil
	case <-timer.C:
		cleanup()
		return nil, ErrTimeout
	case <-ctx.Done():
		cleanup()
		return nil, ErrCancelled
	}
}

// RegisterBinaryCallback installs the single sink for binary telemetry
// frames. Returns ErrCallbackAlreadyRegistered if one is already set; the
// callback is cleared by Close.
func (t *Transport) RegisterBinaryCallback(fn BinaryCallback) error {
	t.binaryMu.Lock()
	defer t.binaryMu.Unlock()
	if t.binaryCallback != nil {
		return ErrCallbackAlreadyRegistered
	}
	t.binaryCallback = fn
	return nil
}

// Opened reports whether the transport currently holds a live connection.
func (t *Transport) Opened() bool {
	t.connMu.Lock()
	defer t.connMu.Unlock()
	return t.conn != nil
}

// String renders diagnostic state for logging, in the style of the
// correlator clients this package is modeled on.
func (t *Transport) String() string {
	t.pendingMu.Lock()
	pending := len(t.pending)
	t.pendingMu.Unlock()

	return spew.Sprintf("icl.Transport(uri: %v, opened: %v, pending: %v)",
		t.uri, t.Opened(), pending)
}

// readPump is the sole consumer of the WebSocket connection. It runs until
// the connection is closed, either by the peer or by Close.
func (t *Transport) readPump() {
	defer close(t.readerDone)

	t.connMu.Lock()
	conn := t.conn
	t.connMu.Unlock()
	if conn == nil {
		return
	}

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			t.logger.Debug("icl: read pump exiting", "error", err)
			t.failAllPending(ErrClosed)
			return
		}

		switch messageType {
		case websocket.TextMessage:
			t.handleText(data)
		case websocket.BinaryMessage:
			t.handleBinary(data)
		default:
			t.logger.Warn("icl: unrecognised websocket message class", "type", messageType)
		}
	}
}

func (t *Transport) handleText(data []byte) {
	resp, err := parseResponse(data)
	if err != nil {
		t.logger.Warn("icl: dropping malformed response", "error", err, "raw", string(data))
		return
	}

	t.pendingMu.Lock()
	waiter, ok := t.pending[resp.ID]
	if ok {
		delete(t.pending, resp.ID)
	}
	t.pendingMu.Unlock()

	if !ok {
		t.logger.Debug("icl: discarding response with no waiter", "id", resp.ID, "command", resp.Command)
		return
	}

	// Buffered with capacity 1; this never blocks the reader.
	waiter <- resp
}

func (t *Transport) handleBinary(data []byte) {
	frame, err := ParseBinaryFrame(data)
	if err != nil {
		t.logger.Warn("icl: dropping malformed binary frame", "error", err, "length", len(data))
		return
	}

	t.binaryMu.Lock()
	queue := t.binaryQueue
	hasCallback := t.binaryCallback != nil
	t.binaryMu.Unlock()

	if !hasCallback || queue == nil {
		return
	}

	select {
	case queue <- frame:
	default:
		t.logger.Warn("icl: binary queue full, dropping frame")
	}
}

// binaryWorker drains the binary queue and dispatches frames to the
// registered callback, strictly FIFO. It runs independently of readPump so
// a slow callback never stalls JSON demultiplexing.
func (t *Transport) binaryWorker(queue chan BinaryFrame, done chan struct{}) {
	defer close(done)
	for frame := range queue {
		t.binaryMu.Lock()
		cb := t.binaryCallback
		t.binaryMu.Unlock()
		if cb != nil {
			cb(frame)
		}
	}
}

// failAllPending delivers err-as-closed semantics to every pending waiter
// by closing their channels, and clears the map.
func (t *Transport) failAllPending(_ error) {
	t.pendingMu.Lock()
	defer t.pendingMu.Unlock()
	for id, waiter := range t.pending {
		close(waiter)
		delete(t.pending, id)
	}
}
