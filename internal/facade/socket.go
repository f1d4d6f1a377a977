// Package facade exposes the Hub Registry over HTTP: the websocket upgrade
// endpoint clients speak the wire protocol over, and the local /state query
// endpoint (spec.md §6.2).
package facade

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 70 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 64
)

// wsSocket adapts a gorilla/websocket connection to hub.Socket, grounded on
// the teacher's Client/SafeSend/writePump/readPump trio in
// internal/dashboard/hub.go.
type wsSocket struct {
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	closed    atomic.Bool
}

func newWSSocket(conn *websocket.Conn) *wsSocket {
	return &wsSocket{conn: conn, send: make(chan []byte, sendBufferSize)}
}

// Send implements hub.Socket. It never panics on a closed channel and never
// blocks the caller.
func (s *wsSocket) Send(data []byte) (sent bool) {
	defer func() {
		if r := recover(); r != nil {
			sent = false
		}
	}()
	if s.closed.Load() {
		return false
	}
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

// Close implements hub.Socket, closing the send channel exactly once.
func (s *wsSocket) Close(reason string) {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.send)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason),
			time.Now().Add(writeWait))
	})
}

func (s *wsSocket) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case data, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads frames until the connection errors or closes, invoking
// onMessage for each and onClose exactly once at the end.
func (s *wsSocket) readPump(onMessage func([]byte), onClose func()) {
	defer onClose()
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		onMessage(data)
	}
}
