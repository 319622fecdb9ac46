package api

import (
	"net/http"
	"sync"

	"github.com/Desarso/chatsync/feed"
	"github.com/Desarso/chatsync/stores"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsWriter serializes frame writes; the pump and the close path both touch
// the connection.
type wsWriter struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (w *wsWriter) WriteJSON(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(v)
}

type subscribeRequest struct {
	Kind  string `json:"kind"`
	Scope string `json:"scope"`
}

// handleSubscribe upgrades to a websocket and pushes a materialized
// snapshot for the requested scope on every underlying change: the initial
// result set first, then one refreshed set per change signal. Clients never
// see raw diffs.
func (s *Server) handleSubscribe(c *gin.Context) {
	userID := c.GetString(userIDKey)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Printf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	writer := &wsWriter{conn: conn}

	var req subscribeRequest
	if err := conn.ReadJSON(&req); err != nil {
		s.Logger.Printf("failed to read subscribe frame: %v", err)
		return
	}

	// Scope checks mirror the REST handlers: a user may follow their own
	// chat list and the messages of chats they own, nothing else.
	switch req.Kind {
	case stores.KindChats:
		if req.Scope != userID {
			writer.WriteJSON(gin.H{"error": "access denied"})
			return
		}
	case stores.KindMessages:
		chat, err := s.Store.GetChat(req.Scope)
		if err != nil || chat.UserID != userID {
			s.Logger.Printf("policy violation: user %s attempted subscription to chat %s", userID, req.Scope)
			writer.WriteJSON(gin.H{"error": "access denied"})
			return
		}
	default:
		writer.WriteJSON(gin.H{"error": "unknown entity kind"})
		return
	}

	signals, cancel := s.Notifier.Subscribe(req.Kind, req.Scope)
	defer cancel()

	fetcher := &feed.StoreFetcher{Store: s.Store}
	push := func() bool {
		snap, err := fetcher.Fetch(req.Kind, req.Scope)
		if err != nil {
			s.Logger.Printf("failed to fetch %s/%s: %v", req.Kind, req.Scope, err)
			return false
		}
		if err := writer.WriteJSON(snap); err != nil {
			return false
		}
		return true
	}

	if !push() {
		return
	}

	// Reader goroutine: its only job is noticing the client going away.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case _, ok := <-signals:
			if !ok {
				return
			}
			if !push() {
				return
			}
		case <-clientGone:
			return
		}
	}
}
