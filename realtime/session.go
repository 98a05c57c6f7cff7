package realtime

import (
	"sync"
	"time"

	"kinsluv/models"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 256
)

// Session is one live connection's state: the socket, its outbound queue,
// and the user it authenticated as. The user stays nil until a join
// succeeds; a session is bound at most once.
type Session struct {
	conn    *websocket.Conn
	send    chan []byte
	handler *Handler
	addr    string

	mu   sync.RWMutex
	user *models.User

	closeOnce sync.Once
}

func newSession(conn *websocket.Conn, handler *Handler, addr string) *Session {
	conn.SetReadLimit(maxMessageSize)
	return &Session{
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		handler: handler,
		addr:    addr,
	}
}

// User returns the bound user, or nil while the session is anonymous.
// The record is a join-time snapshot; ban state and balance are re-read from
// storage by every gated operation.
func (s *Session) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Session) bind(user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

// trySend queues a frame without blocking. A false return means the session
// is too slow or already closed and should be dropped by the caller.
func (s *Session) trySend(frame []byte) bool {
	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

// sendFrame encodes and queues a targeted frame, best-effort.
func (s *Session) sendFrame(frameType string, payload any) {
	if frame := encodeFrame(frameType, payload); frame != nil {
		s.trySend(frame)
	}
}

func (s *Session) sendError(message string) {
	s.sendFrame(TypeError, ErrorPayload{Message: message})
}

// close shuts the underlying connection; the read pump then unwinds and
// runs the disconnect hook. Safe to call more than once.
func (s *Session) close() {
	s.closeOnce.Do(func() {
		if s.conn == nil {
			return
		}
		if err := s.conn.Close(); err != nil {
			log.WithFields(log.Fields{
				"addr":  s.addr,
				"error": err,
			}).Debug("Error closing connection")
		}
	})
}

// readPump consumes client frames until the connection dies, then runs the
// disconnect hook exactly once.
func (s *Session) readPump() {
	defer func() {
		s.handler.handleDisconnect(s)
		s.close()
	}()

	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.WithField("addr", s.addr).WithError(err).Debug("Failed to set read deadline")
	}
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				log.WithFields(log.Fields{
					"addr":  s.addr,
					"error": err,
				}).Debug("Unexpected close")
			}
			return
		}
		s.handler.dispatch(s, raw)
	}
}

// writePump drains the send queue and keeps the connection alive with pings.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.close()
	}()

	for {
		select {
		case frame, ok := <-s.send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
