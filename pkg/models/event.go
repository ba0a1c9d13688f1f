package models

// TherapyIndicators carries the therapy-specific scalars derived from a
// classified sample.
type TherapyIndicators struct {
	CrisisLevel       float64 `json:"crisis_level"`
	IsNegative        bool    `json:"is_negative"`
	Severity          float64 `json:"severity"`
	NeedsIntervention bool    `json:"needs_intervention"`
}

// EmotionEvent is the classifier's output for one timestamped sample.
// Immutable once created; ordered by timestamp, duplicates permitted.
//
// Arousal, valence and cognitive load feed the reduced EmotionalState used
// by the conversation layer and are not part of the wire representation.
type EmotionEvent struct {
	Timestamp  float64           `json:"timestamp"`
	Emotion    string            `json:"emotion"`
	Confidence float64           `json:"confidence"`
	Metrics    MetricSnapshot    `json:"metrics"`
	Therapy    TherapyIndicators `json:"therapy_indicators"`
	Status     string            `json:"status,omitempty"`

	Arousal       float64 `json:"-"`
	Valence       float64 `json:"-"`
	CognitiveLoad float64 `json:"-"`
}

// StatusStaleData marks a synthetic event emitted when no fresh sample has
// arrived within the stream's stale timeout.
const StatusStaleData = "stale_data"

// EmotionalState is the reduced emotional summary consumed by the
// conversation layer. Decoupled from EmotionEvent so the responder never
// sees raw metrics.
type EmotionalState struct {
	DominantEmotion string  `json:"dominant_emotion"`
	ArousalLevel    float64 `json:"arousal_level"`
	Valence         float64 `json:"valence"`
	StressLevel     float64 `json:"stress_level"`
	CognitiveLoad   float64 `json:"cognitive_load"`
	Confidence      float64 `json:"confidence"`
}

// StateFromEvent reduces a classified event to its public emotional summary.
func StateFromEvent(ev EmotionEvent) EmotionalState {
	return EmotionalState{
		DominantEmotion: ev.Emotion,
		ArousalLevel:    ev.Arousal,
		Valence:         ev.Valence,
		StressLevel:     ev.Metrics.Stress,
		CognitiveLoad:   ev.CognitiveLoad,
		Confidence:      ev.Confidence,
	}
}

// TrendDirection values reported by trend analysis.
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendImproving  = "improving"
	TrendDeclining  = "declining"
	TrendStable     = "stable"
)

// TrendStatus values for TrendReport.Status.
const (
	TrendStatusOK           = "ok"
	TrendStatusInsufficient = "insufficient_data"
)

// TrendReport summarizes signal direction over a recent window of
// emotional states.
type TrendReport struct {
	Status            string   `json:"status"`
	StressTrend       string   `json:"stress_trend,omitempty"`
	ArousalTrend      string   `json:"arousal_trend,omitempty"`
	ValenceTrend      string   `json:"valence_trend,omitempty"`
	DominantEmotions  []string `json:"dominant_emotions,omitempty"`
	AverageConfidence float64  `json:"average_confidence,omitempty"`
}
