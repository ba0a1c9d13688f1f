package replay

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/emostream-io/emostream/internal/emotion"
	"github.com/emostream-io/emostream/pkg/models"
)

// Pacing bounds for paced replay. The gap between consecutive rows,
// divided by the speed factor, is clamped into this range so duplicate
// timestamps still advance and sparse recordings stay responsive.
const (
	MinStepDelay = 100 * time.Millisecond
	MaxStepDelay = 2 * time.Second
)

// Options controls a replay run.
type Options struct {
	// Speed is the playback multiplier; values <= 0 mean real time (1.0).
	Speed float64
	// StartOffset and EndOffset bound the replayed window in seconds
	// relative to the first valid row. A zero EndOffset means play to the
	// end.
	StartOffset float64
	EndOffset   float64
}

// Engine replays a loaded recording through the classification pipeline.
// Each Replay or Batch run uses a fresh smoother so runs are independent
// and repeatable.
type Engine struct {
	rec        *Recording
	classifier *emotion.Classifier
	smoothCfg  emotion.SmootherConfig
}

// NewEngine creates an engine over the recording with the default
// prototype catalog.
func NewEngine(rec *Recording) *Engine {
	return NewEngineWith(rec, emotion.NewClassifier(), emotion.DefaultSmootherConfig())
}

// NewEngineWith creates an engine with an explicit classifier and
// smoothing configuration.
func NewEngineWith(rec *Recording, classifier *emotion.Classifier, cfg emotion.SmootherConfig) *Engine {
	return &Engine{rec: rec, classifier: classifier, smoothCfg: cfg}
}

// Recording returns the engine's loaded recording.
func (e *Engine) Recording() *Recording {
	return e.rec
}

// window returns the rows selected by the offset options.
func (e *Engine) window(opts Options) []Row {
	rows := e.rec.Rows
	if len(rows) == 0 {
		return nil
	}
	base := rows[0].Timestamp

	start := 0
	for start < len(rows) && rows[start].Timestamp-base < opts.StartOffset {
		start++
	}
	end := len(rows)
	if opts.EndOffset > 0 {
		for end > start && rows[end-1].Timestamp-base > opts.EndOffset {
			end--
		}
	}
	return rows[start:end]
}

// StepDelay returns the paced wait between two consecutive rows at the
// given speed, clamped to [MinStepDelay, MaxStepDelay].
func StepDelay(cur, next, speed float64) time.Duration {
	if speed <= 0 {
		speed = 1
	}
	gap := next - cur
	if gap < 0 {
		gap = 0
	}
	d := time.Duration(gap / speed * float64(time.Second))
	if d < MinStepDelay {
		return MinStepDelay
	}
	if d > MaxStepDelay {
		return MaxStepDelay
	}
	return d
}

// Replay streams smoothed events on the returned channel, pacing each
// step against the recorded timestamps scaled by opts.Speed. The channel
// closes when the window is exhausted or ctx is cancelled.
func (e *Engine) Replay(ctx context.Context, opts Options) <-chan models.EmotionEvent {
	out := make(chan models.EmotionEvent)
	rows := e.window(opts)

	go func() {
		defer close(out)

		smoother := emotion.NewSmoother(e.smoothCfg)
		timer := time.NewTimer(0)
		defer timer.Stop()
		if !timer.Stop() {
			<-timer.C
		}

		log.Info().
			Str("path", e.rec.Path).
			Int("rows", len(rows)).
			Float64("speed", opts.Speed).
			Msg("Starting replay")

		for i, row := range rows {
			ev := smoother.Observe(e.classifier.Classify(row.Metrics, row.Timestamp))

			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}

			if i+1 >= len(rows) {
				break
			}
			timer.Reset(StepDelay(row.Timestamp, rows[i+1].Timestamp, opts.Speed))
			select {
			case <-timer.C:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// Batch classifies every row in the window without pacing, then runs a
// centered moving-window pass: each event's label becomes the window's
// modal label and its numeric fields become window means. The derived
// therapy indicators are recomputed from the averaged metrics so each
// event stays internally consistent.
func (e *Engine) Batch(opts Options, windowSize int) []models.EmotionEvent {
	rows := e.window(opts)
	if len(rows) == 0 {
		return nil
	}
	if windowSize < 1 {
		windowSize = 1
	}

	raw := make([]models.EmotionEvent, len(rows))
	for i, row := range rows {
		raw[i] = e.classifier.Classify(row.Metrics, row.Timestamp)
	}
	if windowSize == 1 {
		return raw
	}

	radius := windowSize / 2
	out := make([]models.EmotionEvent, len(raw))
	for i := range raw {
		lo := i - radius
		if lo < 0 {
			lo = 0
		}
		hi := i + radius + 1
		if hi > len(raw) {
			hi = len(raw)
		}
		out[i] = smoothWindow(e.classifier, raw[i], raw[lo:hi])
	}
	return out
}

// smoothWindow rebuilds the center event from the window: mean metrics
// reclassified for consistent derived values, then modal label and mean
// confidence applied on top.
func smoothWindow(classifier *emotion.Classifier, center models.EmotionEvent, window []models.EmotionEvent) models.EmotionEvent {
	mean := models.MetricSnapshot{}
	conf := 0.0
	counts := make(map[string]int, len(window))
	modal, modalCount := center.Emotion, 0
	for _, ev := range window {
		mean.Engagement += ev.Metrics.Engagement
		mean.Excitement += ev.Metrics.Excitement
		mean.Stress += ev.Metrics.Stress
		mean.Relaxation += ev.Metrics.Relaxation
		mean.Interest += ev.Metrics.Interest
		mean.Attention += ev.Metrics.Attention
		conf += ev.Confidence
		counts[ev.Emotion]++
		if counts[ev.Emotion] > modalCount {
			modal = ev.Emotion
			modalCount = counts[ev.Emotion]
		}
	}
	n := float64(len(window))
	mean.Engagement /= n
	mean.Excitement /= n
	mean.Stress /= n
	mean.Relaxation /= n
	mean.Interest /= n
	mean.Attention /= n

	out := classifier.Classify(mean.Vector(), center.Timestamp)
	out.Emotion = modal
	out.Confidence = conf / n
	out.Therapy.IsNegative = emotion.IsNegative(modal)
	return out
}
