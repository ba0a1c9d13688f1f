package worker

import (
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The worker binds locally; cross-origin browser clients are expected.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsMessage is the envelope for every inbound chat-socket frame.
type wsMessage struct {
	Type     string         `json:"type"`
	Text     string         `json:"text,omitempty"`
	AudioRef string         `json:"audio_ref,omitempty"`
	EEGData  map[string]any `json:"eeg_data,omitempty"`
}

// handleChatSocket runs one websocket chat connection. Each connection
// owns a dedicated session, created on connect and ended on disconnect,
// unless the client pins an existing one via ?session_id=.
func (s *Service) handleChatSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	sessionID := r.URL.Query().Get("session_id")
	ownsSession := sessionID == "" || !s.sessions.Has(sessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if ownsSession {
		s.sessions.Create(sessionID)
		if s.store != nil {
			if err := s.store.CreateSession(sessionID); err != nil {
				log.Error().Err(err).Str("sessionID", sessionID).Msg("Failed to journal session create")
			}
		}
	}
	defer func() {
		if ownsSession {
			s.stopReplay(sessionID)
			s.sessions.End(sessionID)
		}
	}()

	welcome := map[string]any{
		"type":       "welcome",
		"message":    "Connected to emostream therapy chat",
		"session_id": sessionID,
		"capabilities": map[string]bool{
			"eeg_integration":     true,
			"emotional_awareness": true,
			"text_chat":           true,
		},
	}
	if err := conn.WriteJSON(welcome); err != nil {
		return
	}
	log.Info().Str("sessionID", sessionID).Msg("Chat socket connected")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Str("sessionID", sessionID).Msg("Chat socket closed")
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.wsError(conn, "invalid message")
			continue
		}

		switch msg.Type {
		case "text":
			s.wsHandleText(r, conn, sessionID, msg)
		case "eeg", "eeg_data":
			s.wsHandleEEG(conn, sessionID, msg)
		default:
			s.wsError(conn, "unknown message type: "+msg.Type)
		}
	}
}

func (s *Service) wsHandleText(r *http.Request, conn *websocket.Conn, sessionID string, msg wsMessage) {
	if msg.Text == "" {
		s.wsError(conn, "text is required")
		return
	}
	if !s.sessions.AppendMessage(sessionID, msg.Text, msg.AudioRef) {
		s.wsError(conn, "session not found")
		return
	}

	resp := s.sessions.GenerateResponse(r.Context(), sessionID)
	if resp == nil {
		s.wsError(conn, "failed to generate response")
		return
	}

	_ = conn.WriteJSON(map[string]any{
		"type":      "text_response",
		"text":      resp.Text,
		"eeg_state": resp.State,
		"fallback":  resp.Fallback,
	})
}

func (s *Service) wsHandleEEG(conn *websocket.Conn, sessionID string, msg wsMessage) {
	ev, ok := s.sessions.UpdateMetrics(sessionID, msg.EEGData)
	if !ok {
		_ = conn.WriteJSON(map[string]any{
			"type":    "eeg_error",
			"message": "failed to process EEG data",
		})
		return
	}

	s.broadcaster.Publish(ev)
	if s.store != nil {
		if err := s.store.AppendEvent(sessionID, ev); err != nil {
			log.Error().Err(err).Str("sessionID", sessionID).Msg("Failed to journal emotion event")
		}
	}

	status, _ := s.sessions.EEGStatus(sessionID)
	_ = conn.WriteJSON(map[string]any{
		"type":       "eeg_processed",
		"eeg_status": status,
	})
}

func (s *Service) wsError(conn *websocket.Conn, message string) {
	_ = conn.WriteJSON(map[string]string{
		"type":    "error",
		"message": message,
	})
}
