// Package faketest provides an in-process fake ICL WebSocket server for
// driving the seed scenarios in icl's test suite, mirroring the upgrade
// pattern used by this codebase's device-manager teacher code.
package faketest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gorilla/websocket"
)

// Server is a minimal ICL stand-in: it accepts one WebSocket connection
// and lets the test drive replies directly, rather than modelling real
// device state.
type Server struct {
	httpServer *httptest.Server
	upgrader   websocket.Upgrader

	mu      sync.Mutex
	conn    *websocket.Conn
	handler func(s *Server, raw map[string]any)
}

// SetHandler installs the callback invoked with each decoded incoming
// JSON message. It is the test's responsibility to write replies via
// SendJSON/SendBinary from within the handler or concurrently.
func (s *Server) SetHandler(h func(s *Server, raw map[string]any)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

func (s *Server) currentHandler() func(s *Server, raw map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handler
}

// NewServer starts the fake server and returns it along with its ws://
// URL.
func NewServer() (*Server, string) {
	s := &Server{upgrader: websocket.Upgrader{}}
	s.httpServer = httptest.NewServer(http.HandlerFunc(s.handleConn))
	url := "ws" + s.httpServer.URL[len("http"):]
	return s, url
}

func (s *Server) handleConn(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg map[string]any
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		if h := s.currentHandler(); h != nil {
			h(s, msg)
		}
	}
}

// SendJSON writes a JSON text frame to the connected client.
func (s *Server) SendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return websocket.ErrCloseSent
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// SendBinary writes a raw binary frame to the connected client.
func (s *Server) SendBinary(data []byte) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return websocket.ErrCloseSent
	}
	return conn.WriteMessage(websocket.BinaryMessage, data)
}

// Close tears down the underlying httptest server.
func (s *Server) Close() {
	s.httpServer.Close()
}
