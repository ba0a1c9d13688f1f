package worker

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/emostream-io/emostream/internal/replay"
)

func (s *Service) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/api/stream", s.broadcaster.HandleSSE)
	s.router.Get("/ws/chat", s.handleChatSocket)
	s.router.Get("/api/recordings", s.handleListRecordings)

	s.router.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Post("/metrics", s.handleUpdateMetrics)
			r.Post("/message", s.handleAppendMessage)
			r.Post("/respond", s.handleRespond)
			r.Get("/summary", s.handleSummary)
			r.Get("/eeg/status", s.handleEEGStatus)
			r.Post("/replay", s.handleStartReplay)
			r.Delete("/", s.handleEndSession)
		})
	})
}

// writeJSON encodes v as the response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if !s.ready.Load() {
		status = "starting"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         status,
		"version":        s.version,
		"uptime_seconds": int(time.Since(s.startTime).Seconds()),
		"sessions":       s.sessions.Count(),
		"stream_clients": s.broadcaster.ClientCount(),
	})
}

func (s *Service) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SessionID string `json:"session_id"`
	}
	// Empty body is fine; the id is generated.
	_ = json.NewDecoder(r.Body).Decode(&body)

	id := body.SessionID
	if id == "" {
		id = uuid.NewString()
	}

	s.sessions.Create(id)
	if s.store != nil {
		if err := s.store.CreateSession(id); err != nil {
			log.Error().Err(err).Str("sessionID", id).Msg("Failed to journal session create")
		}
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"session_id": id,
		"status":     "created",
	})
}

func (s *Service) handleUpdateMetrics(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid metrics payload")
		return
	}

	ev, ok := s.sessions.UpdateMetrics(id, raw)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	s.broadcaster.Publish(ev)
	if s.store != nil {
		if err := s.store.AppendEvent(id, ev); err != nil {
			log.Error().Err(err).Str("sessionID", id).Msg("Failed to journal emotion event")
		}
	}

	status, _ := s.sessions.EEGStatus(id)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "updated",
		"event":      ev,
		"eeg_status": status,
	})
}

func (s *Service) handleAppendMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	var body struct {
		Text     string `json:"text"`
		AudioRef string `json:"audio_ref"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	if !s.sessions.AppendMessage(id, body.Text, body.AudioRef) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) handleRespond(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	resp := s.sessions.GenerateResponse(r.Context(), id)
	if resp == nil {
		if !s.sessions.Has(id) {
			writeError(w, http.StatusNotFound, "session not found")
		} else {
			writeError(w, http.StatusBadRequest, "no user message to respond to")
		}
		return
	}

	if s.store != nil {
		note := "Response generated"
		if resp.Fallback {
			note = "Fallback response generated"
		}
		if err := s.store.AddNote(id, note); err != nil {
			log.Error().Err(err).Str("sessionID", id).Msg("Failed to journal note")
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Service) handleSummary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	summary, ok := s.sessions.Summary(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Service) handleEEGStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	status, ok := s.sessions.EEGStatus(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Service) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	s.stopReplay(id)

	summary, _ := s.sessions.Summary(id)
	status, _ := s.sessions.EEGStatus(id)
	if !s.sessions.End(id) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	if s.store != nil {
		if err := s.store.EndSession(id, summary.UserMessages, status.HistoryLength); err != nil {
			log.Error().Err(err).Str("sessionID", id).Msg("Failed to journal session end")
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ended"})
}

func (s *Service) handleListRecordings(w http.ResponseWriter, r *http.Request) {
	names := s.Recordings()
	writeJSON(w, http.StatusOK, map[string]any{
		"recordings": names,
		"count":      len(names),
	})
}

func (s *Service) handleStartReplay(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if !s.sessions.Has(id) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	var body struct {
		File        string  `json:"file"`
		Speed       float64 `json:"speed"`
		StartOffset float64 `json:"start_offset"`
		EndOffset   float64 `json:"end_offset"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.File == "" {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}

	// The file must come from the indexed recordings directory.
	name := filepath.Base(body.File)
	if !s.hasRecording(name) {
		writeError(w, http.StatusNotFound, "recording not found")
		return
	}

	rec, err := replay.LoadRecording(filepath.Join(s.config.RecordingsDir, name))
	if err != nil {
		log.Error().Err(err).Str("file", name).Msg("Failed to load recording")
		writeError(w, http.StatusUnprocessableEntity, "recording could not be parsed")
		return
	}

	// One replay per session; a new start supersedes the old run.
	s.stopReplay(id)
	replayCtx, cancel := context.WithCancel(s.ctx)
	s.replayMu.Lock()
	s.replays[id] = cancel
	s.replayMu.Unlock()

	opts := replay.Options{
		Speed:       body.Speed,
		StartOffset: body.StartOffset,
		EndOffset:   body.EndOffset,
	}
	go s.runReplay(replayCtx, id, rec, opts)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":  "replay_started",
		"file":    name,
		"summary": rec.Summary(),
	})
}

// runReplay feeds replayed events into the stream and the journal until
// the recording ends or the replay is cancelled.
func (s *Service) runReplay(ctx context.Context, sessionID string, rec *replay.Recording, opts replay.Options) {
	defer s.stopReplay(sessionID)

	count := 0
	for ev := range replay.NewEngine(rec).Replay(ctx, opts) {
		s.broadcaster.Publish(ev)
		if s.store != nil {
			if err := s.store.AppendEvent(sessionID, ev); err != nil {
				log.Error().Err(err).Str("sessionID", sessionID).Msg("Failed to journal replayed event")
			}
		}
		count++
	}

	log.Info().
		Str("sessionID", sessionID).
		Str("file", filepath.Base(rec.Path)).
		Int("events", count).
		Msg("Replay finished")
}
