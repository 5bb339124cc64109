package dj

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Socket is one duplex message connection to the broadcast backend.
type Socket interface {
	// ReadMessage blocks for the next inbound payload.
	ReadMessage() ([]byte, error)
	WriteJSON(v any) error
	WriteBinary(p []byte) error
	Close() error
}

// Dialer opens sockets; swapped for a fake in tests.
type Dialer interface {
	Dial(ctx context.Context, url string, header http.Header) (Socket, error)
}

// WebSocketDialer dials the backend over a real WebSocket.
type WebSocketDialer struct {
	HandshakeTimeout time.Duration
}

func (d WebSocketDialer) Dial(ctx context.Context, url string, header http.Header) (Socket, error) {
	wd := websocket.Dialer{HandshakeTimeout: d.HandshakeTimeout}
	if wd.HandshakeTimeout == 0 {
		wd.HandshakeTimeout = 10 * time.Second
	}
	conn, _, err := wd.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}
	return &gorillaSocket{conn: conn}, nil
}

// gorillaSocket adapts *websocket.Conn. Writes are mutex-guarded because
// gorilla permits only one concurrent writer.
type gorillaSocket struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

func (s *gorillaSocket) ReadMessage() ([]byte, error) {
	_, data, err := s.conn.ReadMessage()
	return data, err
}

func (s *gorillaSocket) WriteJSON(v any) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *gorillaSocket) WriteBinary(p []byte) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return s.conn.WriteMessage(websocket.BinaryMessage, p)
}

func (s *gorillaSocket) Close() error {
	s.wmu.Lock()
	// Best-effort close handshake; the hard close below is what matters.
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	s.wmu.Unlock()
	return s.conn.Close()
}
