package emotion

import (
	"github.com/emostream-io/emostream/pkg/models"
)

// SmootherConfig tunes the temporal smoothing windows.
type SmootherConfig struct {
	// HistorySize bounds the rolling window of stored classifications.
	HistorySize int
	// NumericWindow is the number of recent entries averaged for numeric
	// smoothing and consulted for majority-label voting.
	NumericWindow int
	// TrendWindow is the number of recent entries used by Trend.
	TrendWindow int
	// MinChangeDelta is the confidence shift required before a label
	// change is accepted (hysteresis against noise-driven flips).
	MinChangeDelta float64
}

// DefaultSmootherConfig mirrors the reference tuning.
func DefaultSmootherConfig() SmootherConfig {
	return SmootherConfig{
		HistorySize:    10,
		NumericWindow:  3,
		TrendWindow:    5,
		MinChangeDelta: 0.2,
	}
}

// slopeDeadZone is the OLS slope magnitude below which a signal is
// reported as stable.
const slopeDeadZone = 0.02

// Smoother maintains a bounded history of recent classifications and
// stabilizes the emotion stream: hysteresis on label changes, moving
// averages on the numeric signals, and majority voting on the label.
//
// One Smoother per session; it is not safe for concurrent use.
type Smoother struct {
	cfg     SmootherConfig
	history []models.EmotionEvent

	prevLabel      string
	prevConfidence float64
}

// NewSmoother creates a smoother with the given config. Zero window values
// fall back to defaults.
func NewSmoother(cfg SmootherConfig) *Smoother {
	def := DefaultSmootherConfig()
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = def.HistorySize
	}
	if cfg.NumericWindow <= 0 {
		cfg.NumericWindow = def.NumericWindow
	}
	if cfg.TrendWindow <= 0 {
		cfg.TrendWindow = def.TrendWindow
	}
	if cfg.MinChangeDelta <= 0 {
		cfg.MinChangeDelta = def.MinChangeDelta
	}
	return &Smoother{cfg: cfg}
}

// Len returns the number of stored classifications.
func (s *Smoother) Len() int {
	return len(s.history)
}

// Reset clears all state.
func (s *Smoother) Reset() {
	s.history = nil
	s.prevLabel = ""
	s.prevConfidence = 0
}

// Observe ingests a raw classification and returns the smoothed event.
//
// Hysteresis runs first, on the raw classification: a label that differs
// from the previously stored one reverts unless the confidence moved by at
// least MinChangeDelta. The post-hysteresis event is stored, then the
// numeric fields are replaced by means over the recent window and the
// label by the window's majority when that majority appears more than
// once. A genuinely novel single reading keeps its own label.
func (s *Smoother) Observe(ev models.EmotionEvent) models.EmotionEvent {
	if s.prevLabel != "" && ev.Emotion != s.prevLabel {
		delta := ev.Confidence - s.prevConfidence
		if delta < 0 {
			delta = -delta
		}
		if delta < s.cfg.MinChangeDelta {
			ev.Emotion = s.prevLabel
			ev.Therapy.IsNegative = IsNegative(ev.Emotion)
			ev.Therapy.Severity = round3(severityOf(ev.Metrics.Vector(), ev.Emotion))
		}
	}

	s.prevLabel = ev.Emotion
	s.prevConfidence = ev.Confidence

	s.history = append(s.history, ev)
	if len(s.history) > s.cfg.HistorySize {
		s.history = s.history[len(s.history)-s.cfg.HistorySize:]
	}

	recent := s.recent(s.cfg.NumericWindow)
	out := ev
	out.Arousal = meanOf(recent, func(e models.EmotionEvent) float64 { return e.Arousal })
	out.Valence = meanOf(recent, func(e models.EmotionEvent) float64 { return e.Valence })
	out.CognitiveLoad = meanOf(recent, func(e models.EmotionEvent) float64 { return e.CognitiveLoad })
	out.Metrics.Stress = round3(meanOf(recent, func(e models.EmotionEvent) float64 { return e.Metrics.Stress }))

	if label, count := majorityLabel(recent); count > 1 {
		out.Emotion = label
		out.Therapy.IsNegative = IsNegative(label)
	}

	return out
}

// History returns a copy of the stored classifications, oldest first.
func (s *Smoother) History() []models.EmotionEvent {
	out := make([]models.EmotionEvent, len(s.history))
	copy(out, s.history)
	return out
}

// Trend reports per-signal direction over the most recent window entries
// via an ordinary least-squares fit of value against sample index. Fewer
// than 3 samples yields an insufficient-data report.
func (s *Smoother) Trend(window int) models.TrendReport {
	if window <= 0 {
		window = s.cfg.TrendWindow
	}
	if len(s.history) < 3 {
		return models.TrendReport{Status: models.TrendStatusInsufficient}
	}

	recent := s.recent(window)
	emotions := make([]string, len(recent))
	for i, ev := range recent {
		emotions[i] = ev.Emotion
	}

	stressSlope := olsSlope(recent, func(e models.EmotionEvent) float64 { return e.Metrics.Stress })
	arousalSlope := olsSlope(recent, func(e models.EmotionEvent) float64 { return e.Arousal })
	valenceSlope := olsSlope(recent, func(e models.EmotionEvent) float64 { return e.Valence })

	return models.TrendReport{
		Status:            models.TrendStatusOK,
		StressTrend:       direction(stressSlope, models.TrendIncreasing, models.TrendDecreasing),
		ArousalTrend:      direction(arousalSlope, models.TrendIncreasing, models.TrendDecreasing),
		ValenceTrend:      direction(valenceSlope, models.TrendImproving, models.TrendDeclining),
		DominantEmotions:  emotions,
		AverageConfidence: meanOf(recent, func(e models.EmotionEvent) float64 { return e.Confidence }),
	}
}

// recent returns up to n most recent entries, oldest first.
func (s *Smoother) recent(n int) []models.EmotionEvent {
	if len(s.history) <= n {
		return s.history
	}
	return s.history[len(s.history)-n:]
}

func direction(slope float64, up, down string) string {
	switch {
	case slope > slopeDeadZone:
		return up
	case slope < -slopeDeadZone:
		return down
	default:
		return models.TrendStable
	}
}

func meanOf(events []models.EmotionEvent, field func(models.EmotionEvent) float64) float64 {
	if len(events) == 0 {
		return 0
	}
	sum := 0.0
	for _, ev := range events {
		sum += field(ev)
	}
	return sum / float64(len(events))
}

// majorityLabel returns the most frequent label in the window and its
// count. Earlier entries win count ties, matching stored order.
func majorityLabel(events []models.EmotionEvent) (string, int) {
	counts := make(map[string]int, len(events))
	best, bestCount := "", 0
	for _, ev := range events {
		counts[ev.Emotion]++
		if counts[ev.Emotion] > bestCount {
			best = ev.Emotion
			bestCount = counts[ev.Emotion]
		}
	}
	return best, bestCount
}

// olsSlope computes the least-squares slope of the field over the sample
// index axis.
func olsSlope(events []models.EmotionEvent, field func(models.EmotionEvent) float64) float64 {
	n := float64(len(events))
	if n < 2 {
		return 0
	}

	meanX := (n - 1) / 2
	meanY := meanOf(events, field)

	num, den := 0.0, 0.0
	for i, ev := range events {
		dx := float64(i) - meanX
		num += dx * (field(ev) - meanY)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}
