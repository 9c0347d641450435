package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/michaelbrown/sshmcp/internal/audit"
)

const (
	feedBuffer   = 64
	writeTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // read-only feed; exposure is controlled by http.addr
	},
}

// wsOutgoing is a message to the client.
type wsOutgoing struct {
	Type  string       `json:"type"`
	Entry *audit.Entry `json:"entry,omitempty"`
}

// handleWebSocket streams newly recorded invocations until the client goes away.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	entries, unsubscribe := s.feed.Subscribe(feedBuffer)
	defer unsubscribe()

	// The feed is one-way; the read loop only notices disconnects.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := s.wsWrite(conn, wsOutgoing{Type: "ready"}); err != nil {
		return
	}

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case e, ok := <-entries:
			if !ok {
				return
			}
			if err := s.wsWrite(conn, wsOutgoing{Type: "invocation", Entry: &e}); err != nil {
				return
			}
		}
	}
}

func (s *Server) wsWrite(conn *websocket.Conn, v wsOutgoing) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(v); err != nil {
		if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			s.logger.Warn().Err(err).Msg("websocket write")
		}
		return err
	}
	return nil
}
