// internal/httpserver/ws.go
//
// GET /session/events upgrades to a WebSocket and streams the device's
// session events (ticks, accepted/rejected words, expiry, locks) as JSON.
// The stream starts with a "hello" message carrying the current snapshot.
// It ends when the client disconnects or the session is closed.

package httpserver

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordripple/internal/game"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames.
	maxMessageSize = 512
)

// eventHello is the first message on every stream.
const eventHello game.EventType = "hello"

// checkOrigin accepts same-host requests and the configured client origin.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || origin == s.cfg.ClientOrigin {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && u.Host == r.Host
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	dev := deviceFromRequest(r)
	if dev == "" {
		http.Error(w, `{"error":"no_device"}`, http.StatusBadRequest)
		return
	}
	sess, err := s.deps.Sessions.Get(r.Context(), dev)
	if err != nil {
		http.Error(w, `{"error":"no_session"}`, http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("device", dev).Msg("websocket upgrade failed")
		return
	}
	events, unsubscribe := sess.Subscribe()
	log.Debug().Str("session", sess.ID()).Msg("event stream connected")

	c := &eventStream{conn: conn, events: events, hello: game.Event{Type: eventHello, Snapshot: sess.Snapshot()}}
	go c.writePump()
	c.readPump()

	unsubscribe()
	log.Debug().Str("session", sess.ID()).Msg("event stream closed")
}

type eventStream struct {
	conn   *websocket.Conn
	events <-chan game.Event
	hello  game.Event
}

// readPump discards client frames and returns when the peer goes away.
func (c *eventStream) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("websocket read error")
			}
			return
		}
	}
}

// writePump is the only writer on the connection.
func (c *eventStream) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(c.hello); err != nil {
		return
	}
	for {
		select {
		case ev, ok := <-c.events:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
