package models

import "time"

// Speaker identifiers for conversation segments.
const (
	SpeakerUser      = 0
	SpeakerTherapist = 1
	SpeakerContext   = 2
)

// Segment is one turn of a therapeutic conversation. AudioRef points at an
// externally stored audio payload when the transport supplied one.
type Segment struct {
	Speaker  int    `json:"speaker"`
	Text     string `json:"text"`
	AudioRef string `json:"audio_ref,omitempty"`
}

// SessionSummary is the read model returned by the session query interface.
type SessionSummary struct {
	SessionID          string          `json:"session_id"`
	TotalSegments      int             `json:"total_segments"`
	UserMessages       int             `json:"user_messages"`
	TherapistMessages  int             `json:"therapist_messages"`
	RecentUserTexts    []string        `json:"recent_user_messages"`
	RecentTherapyTexts []string        `json:"recent_therapist_messages"`
	CurrentState       *EmotionalState `json:"current_emotional_state,omitempty"`
	Trend              *TrendReport    `json:"eeg_trend_analysis,omitempty"`
	Notes              []string        `json:"therapeutic_notes"`
	StartedAt          time.Time       `json:"started_at"`
}

// EEGStatus values.
const (
	EEGStatusActive = "active"
	EEGStatusNoData = "no_eeg_data"
)

// EEGStatus is the read model for a session's physiological state.
type EEGStatus struct {
	Status        string          `json:"status"`
	CurrentState  *EmotionalState `json:"current_state,omitempty"`
	Trend         *TrendReport    `json:"trend_analysis,omitempty"`
	HistoryLength int             `json:"history_length"`
	Confidence    float64         `json:"confidence"`
}

// Response is the session manager's answer to a generate-response request.
// Fallback is true when the external responder was unavailable and a
// rule-based reply was substituted.
type Response struct {
	Text     string          `json:"text"`
	Speaker  int             `json:"speaker"`
	State    *EmotionalState `json:"eeg_state,omitempty"`
	Fallback bool            `json:"fallback,omitempty"`
}
