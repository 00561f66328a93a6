package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ziadkadry99/docqa/internal/qa"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// chatRequest is the incoming WebSocket message format.
type chatRequest struct {
	DocumentID string `json:"document_id"`
	UserID     string `json:"user_id"`
	Question   string `json:"question"`
}

// chatResponse is the outgoing WebSocket message format.
type chatResponse struct {
	Type       string    `json:"type"` // "answer" or "error"
	DocumentID string    `json:"document_id,omitempty"`
	Question   string    `json:"question,omitempty"`
	Answer     string    `json:"answer,omitempty"`
	Failed     bool      `json:"failed,omitempty"`
	Timestamp  time.Time `json:"timestamp,omitzero"`
	Error      string    `json:"error,omitempty"`
}

// handleChat answers questions over a WebSocket, one reply per message,
// until the client disconnects.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read", zap.Error(err))
			}
			return
		}

		var req chatRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.send(conn, chatResponse{Type: "error", Error: "invalid message format"})
			continue
		}
		if req.DocumentID == "" {
			s.send(conn, chatResponse{Type: "error", Error: "document_id is required"})
			continue
		}

		resp, err := s.svc.Ask(r.Context(), qa.AskRequest{
			DocumentID: req.DocumentID,
			UserID:     req.UserID,
			Question:   req.Question,
		})
		if err != nil {
			s.send(conn, chatResponse{Type: "error", DocumentID: req.DocumentID, Error: err.Error()})
			continue
		}
		s.send(conn, chatResponse{
			Type:       "answer",
			DocumentID: req.DocumentID,
			Question:   resp.Question,
			Answer:     resp.Answer,
			Failed:     resp.Failed,
			Timestamp:  resp.Timestamp,
		})
	}
}

func (s *Server) send(conn *websocket.Conn, resp chatResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		s.logger.Warn("websocket write", zap.Error(err))
	}
}
