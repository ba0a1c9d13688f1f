package emotion

import (
	"math"

	"github.com/emostream-io/emostream/pkg/models"
)

// CrisisInterventionThreshold is the crisis level above which a sample is
// flagged for intervention.
const CrisisInterventionThreshold = 0.7

// fallbackConfidence is assigned when the input vector carries no signal.
const fallbackConfidence = 0.1

// Classifier maps normalized metric vectors to discrete emotion labels via
// nearest-prototype similarity. Stateless and safe for concurrent use;
// temporal smoothing lives in Smoother.
type Classifier struct {
	prototypes []Prototype
}

// NewClassifier creates a classifier over the built-in prototype catalog.
func NewClassifier() *Classifier {
	return &Classifier{prototypes: BuiltinPrototypes()}
}

// NewClassifierWith creates a classifier over a custom prototype catalog.
// Declaration order in protos is the tie-break.
func NewClassifierWith(protos []Prototype) *Classifier {
	return &Classifier{prototypes: protos}
}

// Prototypes returns the active catalog.
func (c *Classifier) Prototypes() []Prototype {
	return c.prototypes
}

// Classify scores the vector against every prototype and returns the
// emotion event for one sample. It never fails: an empty or all-zero
// vector yields a low-confidence neutral event.
func (c *Classifier) Classify(vec models.MetricVector, timestamp float64) models.EmotionEvent {
	label, confidence := c.dominantEmotion(vec)

	arousal := arousalOf(vec)
	valence := valenceOf(vec)
	load := cognitiveLoadOf(vec)
	crisis := crisisLevelOf(vec)
	negative := IsNegative(label)

	return models.EmotionEvent{
		Timestamp:  timestamp,
		Emotion:    label,
		Confidence: round3(confidence),
		Metrics:    models.SnapshotOf(vec),
		Therapy: models.TherapyIndicators{
			CrisisLevel:       round3(crisis),
			IsNegative:        negative,
			Severity:          round3(severityOf(vec, label)),
			NeedsIntervention: crisis > CrisisInterventionThreshold,
		},
		Arousal:       arousal,
		Valence:       valence,
		CognitiveLoad: load,
	}
}

// dominantEmotion returns the best-matching label and its similarity
// score. Similarity per prototype is the mean of 1-|a-b| over the metric
// keys the input vector shares with the prototype; the first declared
// prototype wins ties.
func (c *Classifier) dominantEmotion(vec models.MetricVector) (string, float64) {
	if vec.IsZero() {
		return EmotionNeutral, fallbackConfidence
	}

	best := EmotionNeutral
	bestScore := -1.0
	for _, p := range c.prototypes {
		sum, count := 0.0, 0
		for key, target := range p.Vector {
			if !vec.Has(key) {
				continue
			}
			sum += 1 - math.Abs(vec.Get(key)-target)
			count++
		}
		if count == 0 {
			continue
		}
		if score := sum / float64(count); score > bestScore {
			best = p.Name
			bestScore = score
		}
	}

	if bestScore < 0 {
		return EmotionNeutral, fallbackConfidence
	}
	return best, bestScore
}

// arousalOf computes the activation level from excitement, engagement,
// beta power and inverse relaxation.
func arousalOf(v models.MetricVector) float64 {
	return models.Clamp01(
		0.4*v.Get(models.MetricExcitement) +
			0.3*v.Get(models.MetricEngagement) +
			0.2*v.Get(models.MetricBeta) +
			0.1*(1-v.Get(models.MetricRelaxation)))
}

// valenceOf computes emotional tone in roughly [-1,1]: positive indicators
// minus negative indicators. Excitement beyond 0.8 counts against valence.
func valenceOf(v models.MetricVector) float64 {
	positive := 0.4*v.Get(models.MetricRelaxation) +
		0.3*v.Get(models.MetricAlpha) +
		0.3*(1-v.Get(models.MetricStress))
	negative := 0.5*v.Get(models.MetricStress) +
		0.3*(1-v.Get(models.MetricInterest)) +
		0.2*math.Max(0, v.Get(models.MetricExcitement)-0.8)
	return positive - negative
}

func cognitiveLoadOf(v models.MetricVector) float64 {
	return models.Clamp01(
		0.4*v.Get(models.MetricAttention) +
			0.3*v.Get(models.MetricBeta) +
			0.2*v.Get(models.MetricEngagement) +
			0.1*v.Get(models.MetricGamma))
}

// crisisLevelOf flags acute distress: high stress combined with low
// relaxation.
func crisisLevelOf(v models.MetricVector) float64 {
	return models.Clamp01(
		0.7*v.Get(models.MetricStress) + 0.3*(1-v.Get(models.MetricRelaxation)))
}

// severityOf blends metric intensity per emotion class. Non-negative
// emotions report a neutral 0.5.
func severityOf(v models.MetricVector, label string) float64 {
	stress := v.Get(models.MetricStress)
	switch label {
	case "depressed", "hopeless", "lonely":
		return 0.5*(1-v.Get(models.MetricEngagement)) + 0.5*stress
	case "anxious", "fearful", "overwhelmed":
		return 0.6*stress + 0.4*v.Get(models.MetricExcitement)
	case "angry", "frustrated":
		return (stress + v.Get(models.MetricExcitement) + (1 - v.Get(models.MetricRelaxation))) / 3
	default:
		return 0.5
	}
}

// round3 rounds to three decimals for stable wire output.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
