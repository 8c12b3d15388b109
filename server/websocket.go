package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/tailored-agentic-units/therapy/observability"
	"github.com/tailored-agentic-units/therapy/therapist"
)

const maxFrameBytes = 64 << 10

// Inbound is a client frame on the WebSocket endpoint.
type Inbound struct {
	Text string `json:"text"`
}

// Outbound is a server frame on the WebSocket endpoint. The first frame
// of every connection carries only SessionID.
type Outbound struct {
	Reply     string `json:"reply,omitempty"`
	Success   bool   `json:"success"`
	SessionID string `json:"session_id,omitempty"`
	Farewell  bool   `json:"farewell,omitempty"`
	Error     string `json:"error,omitempty"`
}

// serveWebSocket handles /ws?user_id=&session_id=. A missing session_id
// starts a new session for the user.
func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = s.identity.CreateSession(userID)
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	tr := s.retain(sessionID)
	defer s.release(sessionID, tr, true)
	conn.SetReadLimit(maxFrameBytes)

	ctx := r.Context()
	s.emit(ctx, EventSocketOpen, observability.LevelInfo, map[string]any{
		"user_id":    userID,
		"session_id": sessionID,
	})

	if err := conn.WriteJSON(Outbound{Success: true, SessionID: sessionID}); err != nil {
		return
	}

	err = s.converse(ctx, conn, userID, sessionID)

	data := map[string]any{"session_id": sessionID}
	if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		data["error"] = err.Error()
		s.emit(ctx, EventSocketError, observability.LevelWarning, data)
	}
	s.emit(ctx, EventSocketClose, observability.LevelInfo, data)
}

func (s *Server) converse(ctx context.Context, conn *websocket.Conn, userID, sessionID string) error {
	for {
		var in Inbound
		if err := conn.ReadJSON(&in); err != nil {
			return err
		}

		text := strings.TrimSpace(in.Text)
		if text == "" {
			if err := conn.WriteJSON(Outbound{SessionID: sessionID, Error: "text is required"}); err != nil {
				return err
			}
			continue
		}

		if therapist.IsFarewell(text) {
			if err := conn.WriteJSON(Outbound{
				Reply:     therapist.Farewell,
				Success:   true,
				SessionID: sessionID,
				Farewell:  true,
			}); err != nil {
				return err
			}
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "farewell")
			conn.WriteMessage(websocket.CloseMessage, msg)
			return nil
		}

		result := s.respond(ctx, text, userID, sessionID)
		if err := conn.WriteJSON(Outbound{
			Reply:     result.Reply,
			Success:   result.Success,
			SessionID: sessionID,
		}); err != nil {
			return err
		}
	}
}
