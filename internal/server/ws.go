package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/lectern-app/lectern/internal/event"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsTransport adapts a websocket connection to the session transport. Writes
// are serialized because the worker goroutine and the control handler can
// both push frames.
type wsTransport struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (t *wsTransport) Send(payload []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn.WriteMessage(websocket.TextMessage, payload)
}

type controlMessage struct {
	Type string `json:"type"`
}

func registerWSRoute(mux *http.ServeMux, ctrl SessionControl) {
	mux.HandleFunc("GET /ws/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("id")
		if !validSessionID(sessionID) {
			writeJSONError(w, http.StatusForbidden, "invalid session id")
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("ws upgrade error: %v", err)
			return
		}
		defer func() { _ = conn.Close() }()

		transport := &wsTransport{conn: conn}
		ctrl.Connect(sessionID, transport)
		defer ctrl.Disconnect(sessionID, transport)

		sendEvent(transport, event.NewConnectionConfirmed())

		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}

			var msg controlMessage
			if err := json.Unmarshal(payload, &msg); err != nil {
				log.Printf("ws control decode error: session=%s err=%v", sessionID, err)
				continue
			}

			switch msg.Type {
			case "start_recording":
				sendEvent(transport, event.NewRecordingStarted())
			case "stop_recording":
				// Run off the read loop: stop waits out the upload grace
				// period before enqueueing. An accepted stop must finish
				// even if the client closes the socket during that wait.
				go func() {
					if err := ctrl.StopRecording(context.WithoutCancel(r.Context()), sessionID); err != nil {
						log.Printf("stop recording error: session=%s err=%v", sessionID, err)
					}
				}()
			case "request_final_synthesis":
				go func() {
					if err := ctrl.RequestFinal(context.WithoutCancel(r.Context()), sessionID); err != nil {
						log.Printf("request final error: session=%s err=%v", sessionID, err)
					}
				}()
			default:
				log.Printf("ws unknown control message: session=%s type=%q", sessionID, msg.Type)
			}
		}
	})
}

func sendEvent(t *wsTransport, evt any) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return
	}
	_ = t.Send(payload)
}
