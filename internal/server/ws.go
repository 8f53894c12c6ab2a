package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"notibridge/internal/eventbus"
	logx "notibridge/pkg/logx"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The bridge binds to loopback; the UI webview is the only expected peer.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

// handleEvents upgrades to a websocket and streams bus events as JSON until
// the peer goes away. This is how UI listeners "fire" on each push.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", logx.Err(err))
		return
	}
	defer conn.Close()

	events, unsubscribe := s.bus.Subscribe(64)
	defer unsubscribe()

	// Reader goroutine: we never expect client frames, but reading is what
	// detects the close handshake.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				s.log.Debug("event stream closed", logx.Err(err))
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) publishCleared() {
	s.bus.Publish(eventbus.Event{Type: eventbus.EventHistoryCleared})
}
