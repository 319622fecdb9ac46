package feed

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// subscribeRequest is the first frame a client sends after dialing.
type subscribeRequest struct {
	Kind  string `json:"kind"`
	Scope string `json:"scope"`
}

// WebSocketSource is a SnapshotSource over a websocket endpoint that pushes
// materialized result sets (the api package serves the matching endpoint).
// Reconnection is the adapter's job; the source only reports the drop by
// closing its channel.
type WebSocketSource struct {
	URL    string
	Header http.Header

	// Dialer overrides websocket.DefaultDialer, mainly for tests.
	Dialer *websocket.Dialer
}

// Open dials the endpoint, sends the subscribe frame and starts the reader.
func (w *WebSocketSource) Open(kind, scope string) (<-chan Snapshot, func(), error) {
	dialer := w.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, _, err := dialer.Dial(w.URL, w.Header)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial %s: %w", w.URL, err)
	}

	if err := conn.WriteJSON(subscribeRequest{Kind: kind, Scope: scope}); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to send subscribe frame: %w", err)
	}

	ch := make(chan Snapshot)
	stop := make(chan struct{})
	var once sync.Once
	closeFn := func() {
		once.Do(func() {
			close(stop)
			conn.Close()
		})
	}

	go func() {
		defer close(ch)
		for {
			var snap Snapshot
			if err := conn.ReadJSON(&snap); err != nil {
				return
			}
			select {
			case ch <- snap:
			case <-stop:
				return
			}
		}
	}()

	return ch, closeFn, nil
}
