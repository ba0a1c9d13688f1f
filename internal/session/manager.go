// Package session owns the live therapy sessions: conversation segments,
// the rolling emotional state per session, and response generation with a
// rule-based fallback when the external responder is unavailable.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/emostream-io/emostream/internal/emotion"
	"github.com/emostream-io/emostream/internal/metrics"
	"github.com/emostream-io/emostream/pkg/models"
)

// historyCap bounds the per-session emotional state history.
const historyCap = 100

// Responder generates a therapist reply from the assembled conversation
// context. Implementations talk to an external model; errors route the
// manager onto the fallback path.
type Responder interface {
	Respond(ctx context.Context, persona []models.Segment, eegContext string, history []models.Segment, userText string) (string, error)
}

// Session is one live therapeutic conversation. All access goes through
// the Manager, which holds the lock.
type Session struct {
	ID        string
	StartedAt time.Time

	segments []models.Segment
	notes    []string

	current  *models.EmotionEvent
	history  []models.EmotionalState
	smoother *emotion.Smoother
}

// Manager is the registry of active sessions. A single classifier is
// shared across sessions; each session owns its smoother so one user's
// stream never biases another's.
type Manager struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	classifier *emotion.Classifier
	smoothCfg  emotion.SmootherConfig
	responder  Responder
}

// NewManager creates a session manager. responder may be nil, in which
// case every response takes the rule-based fallback path.
func NewManager(classifier *emotion.Classifier, smoothCfg emotion.SmootherConfig, responder Responder) *Manager {
	if classifier == nil {
		classifier = emotion.NewClassifier()
	}
	return &Manager{
		sessions:   make(map[string]*Session),
		classifier: classifier,
		smoothCfg:  smoothCfg,
		responder:  responder,
	}
}

// personaSegments returns the therapist persona preamble installed into
// every new session.
func personaSegments() []models.Segment {
	return []models.Segment{
		{
			Speaker: models.SpeakerTherapist,
			Text: "I am a compassionate AI therapist trained in cognitive behavioral therapy, " +
				"mindfulness, and empathetic listening. I provide a safe, non-judgmental space " +
				"for you to explore your thoughts and feelings.",
		},
		{
			Speaker: models.SpeakerTherapist,
			Text: "I can sense your emotional state through physiological monitoring and adapt " +
				"my responses accordingly. What would you like to talk about today?",
		},
	}
}

// Create registers a new session under id, replacing any existing session
// with that id.
func (m *Manager) Create(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &Session{
		ID:        id,
		StartedAt: time.Now(),
		segments:  personaSegments(),
		smoother:  emotion.NewSmoother(m.smoothCfg),
	}
	m.sessions[id] = s

	log.Info().Str("sessionID", id).Msg("Created therapy session")
	return s
}

// Count returns the number of active sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Has reports whether a session with the given id exists.
func (m *Manager) Has(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sessions[id]
	return ok
}

// UpdateMetrics ingests a raw device payload for the session: normalize,
// classify, smooth, store. Returns the smoothed event and false when the
// session does not exist.
func (m *Manager) UpdateMetrics(id string, raw map[string]any) (models.EmotionEvent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		log.Warn().Str("sessionID", id).Msg("Metrics update for unknown session")
		return models.EmotionEvent{}, false
	}

	vec, ts := metrics.NormalizeWithTimestamp(raw)
	if ts == 0 {
		ts = float64(time.Now().UnixNano()) / float64(time.Second)
	}

	ev := s.smoother.Observe(m.classifier.Classify(vec, ts))
	s.current = &ev
	s.history = append(s.history, models.StateFromEvent(ev))
	if len(s.history) > historyCap {
		s.history = s.history[len(s.history)-historyCap:]
	}

	log.Debug().
		Str("sessionID", id).
		Str("emotion", ev.Emotion).
		Float64("confidence", ev.Confidence).
		Msg("Updated session emotional state")

	return ev, true
}

// AppendMessage records a user turn. Returns false when the session does
// not exist.
func (m *Manager) AppendMessage(id, text, audioRef string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		log.Warn().Str("sessionID", id).Msg("Message for unknown session")
		return false
	}

	s.segments = append(s.segments, models.Segment{
		Speaker:  models.SpeakerUser,
		Text:     text,
		AudioRef: audioRef,
	})
	return true
}

// GenerateResponse produces the therapist's reply to the session's latest
// user message. Responder failures never surface to the caller; the
// rule-based fallback answers instead, flagged on the Response. Returns
// nil only when the session does not exist or holds no user message.
func (m *Manager) GenerateResponse(ctx context.Context, id string) *models.Response {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		log.Warn().Str("sessionID", id).Msg("Response requested for unknown session")
		return nil
	}

	userText := ""
	for i := len(s.segments) - 1; i >= 0; i-- {
		if s.segments[i].Speaker == models.SpeakerUser {
			userText = s.segments[i].Text
			break
		}
	}
	if userText == "" {
		m.mu.Unlock()
		return nil
	}

	var state *models.EmotionalState
	if s.current != nil {
		st := models.StateFromEvent(*s.current)
		state = &st
	}
	persona := personaSegments()
	history := make([]models.Segment, 0, len(s.segments))
	history = append(history, s.segments[len(persona):]...)
	m.mu.Unlock()

	text, fallback := m.respond(ctx, persona, state, history, userText)

	m.mu.Lock()
	defer m.mu.Unlock()
	// Session may have ended while the responder call was in flight.
	if s, ok = m.sessions[id]; ok {
		s.segments = append(s.segments, models.Segment{
			Speaker: models.SpeakerTherapist,
			Text:    text,
		})
		note := "Response generated"
		if state != nil {
			note += fmt.Sprintf(" [EEG: %s, stress=%.2f]", state.DominantEmotion, state.StressLevel)
		}
		s.notes = append(s.notes, note)
	}

	return &models.Response{
		Text:     text,
		Speaker:  models.SpeakerTherapist,
		State:    state,
		Fallback: fallback,
	}
}

// respond runs the external responder when configured and healthy, the
// rule-based fallback otherwise. Called without the manager lock held.
func (m *Manager) respond(ctx context.Context, persona []models.Segment, state *models.EmotionalState, history []models.Segment, userText string) (string, bool) {
	if m.responder == nil {
		return FallbackResponse(userText, state), true
	}

	eegContext := ""
	if state != nil {
		eegContext = FormatEEGContext(*state)
	}

	text, err := m.responder.Respond(ctx, persona, eegContext, history, userText)
	if err != nil || strings.TrimSpace(text) == "" {
		log.Error().Err(err).Msg("Responder failed, using fallback")
		return FallbackResponse(userText, state), true
	}
	return text, false
}

// Summary returns the session read model, or false for an unknown id.
func (m *Manager) Summary(id string) (models.SessionSummary, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return models.SessionSummary{}, false
	}

	var userTexts, therapistTexts []string
	for _, seg := range s.segments {
		switch seg.Speaker {
		case models.SpeakerUser:
			userTexts = append(userTexts, seg.Text)
		case models.SpeakerTherapist:
			therapistTexts = append(therapistTexts, seg.Text)
		}
	}

	summary := models.SessionSummary{
		SessionID:          id,
		TotalSegments:      len(s.segments),
		UserMessages:       len(userTexts),
		TherapistMessages:  len(therapistTexts),
		RecentUserTexts:    lastN(userTexts, 3),
		RecentTherapyTexts: lastN(therapistTexts, 3),
		Notes:              lastN(s.notes, 5),
		StartedAt:          s.StartedAt,
	}
	if s.current != nil {
		st := models.StateFromEvent(*s.current)
		summary.CurrentState = &st
		trend := s.smoother.Trend(0)
		summary.Trend = &trend
	}
	return summary, true
}

// EEGStatus returns the session's physiological status, or false for an
// unknown id. A session that never received metrics reports no_eeg_data.
func (m *Manager) EEGStatus(id string) (models.EEGStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return models.EEGStatus{}, false
	}
	if s.current == nil {
		return models.EEGStatus{Status: models.EEGStatusNoData}, true
	}

	st := models.StateFromEvent(*s.current)
	trend := s.smoother.Trend(0)
	return models.EEGStatus{
		Status:        models.EEGStatusActive,
		CurrentState:  &st,
		Trend:         &trend,
		HistoryLength: len(s.history),
		Confidence:    s.current.Confidence,
	}, true
}

// End removes the session. Returns false for an unknown id.
func (m *Manager) End(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return false
	}

	userMessages := 0
	for _, seg := range s.segments {
		if seg.Speaker == models.SpeakerUser {
			userMessages++
		}
	}
	log.Info().
		Str("sessionID", id).
		Int("userMessages", userMessages).
		Int("eegStates", len(s.history)).
		Msg("Ended therapy session")

	delete(m.sessions, id)
	return true
}

// FormatEEGContext renders the emotional state as the bracketed context
// string injected ahead of the conversation history, including a guidance
// hint when the state warrants one.
func FormatEEGContext(state models.EmotionalState) string {
	parts := []string{
		fmt.Sprintf("[EMOTIONAL_STATE: %s]", state.DominantEmotion),
		fmt.Sprintf("[AROUSAL: %.2f]", state.ArousalLevel),
		fmt.Sprintf("[VALENCE: %.2f]", state.Valence),
		fmt.Sprintf("[STRESS: %.2f]", state.StressLevel),
		fmt.Sprintf("[COGNITIVE_LOAD: %.2f]", state.CognitiveLoad),
	}

	switch {
	case state.StressLevel > 0.7:
		parts = append(parts, "[GUIDANCE: User shows high stress - use calming, grounding techniques]")
	case state.ArousalLevel < 0.3:
		parts = append(parts, "[GUIDANCE: User seems low energy - gentle encouragement needed]")
	case state.Valence < -0.5:
		parts = append(parts, "[GUIDANCE: User experiencing negative emotions - empathetic validation needed]")
	}

	return strings.Join(parts, " ")
}

func lastN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}
