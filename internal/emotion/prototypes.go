// Package emotion classifies normalized metric vectors into discrete
// emotional states and smooths the resulting stream over time.
package emotion

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/emostream-io/emostream/pkg/models"
)

// Prototype pairs an emotion label with its reference metric signature.
// Prototypes are static and loaded once at process start; declaration
// order is the documented tie-break for classification.
type Prototype struct {
	Name        string
	Vector      models.MetricVector
	Description string
}

// proto builds a prototype over the six core metrics in canonical order.
func proto(name string, eng, exc, str, rel, intr, att float64, desc string) Prototype {
	return Prototype{
		Name: name,
		Vector: models.MetricVector{
			models.MetricEngagement: eng,
			models.MetricExcitement: exc,
			models.MetricStress:     str,
			models.MetricRelaxation: rel,
			models.MetricInterest:   intr,
			models.MetricAttention:  att,
		},
		Description: desc,
	}
}

// BuiltinPrototypes returns the built-in emotion catalog. Order is fixed:
// ties resolve to the first declared prototype.
func BuiltinPrototypes() []Prototype {
	return []Prototype{
		// Positive states
		proto("excited", 0.85, 0.85, 0.25, 0.30, 0.75, 0.80,
			"High arousal, positive valence - energetic and enthusiastic state"),
		proto("focused", 0.90, 0.50, 0.20, 0.65, 0.70, 0.95,
			"High cognitive engagement with low stress - concentrated attention"),
		proto("calm", 0.40, 0.20, 0.15, 0.85, 0.45, 0.60,
			"Low arousal, positive valence - peaceful and relaxed state"),
		proto("interested", 0.80, 0.70, 0.20, 0.55, 0.95, 0.85,
			"Curious and engaged with sustained attention"),
		proto("relaxed", 0.35, 0.25, 0.10, 0.90, 0.40, 0.50,
			"Low arousal, positive valence - comfortable and at ease"),
		proto("alert", 0.85, 0.65, 0.30, 0.50, 0.80, 0.90,
			"High attention with moderate arousal - ready and responsive"),

		// Negative states for therapy
		proto("stressed", 0.70, 0.60, 0.90, 0.15, 0.30, 0.75,
			"High arousal, negative valence - tense and anxious state"),
		proto("anxious", 0.65, 0.75, 0.85, 0.20, 0.40, 0.70,
			"High arousal, negative valence - worried and uneasy"),
		proto("depressed", 0.20, 0.10, 0.75, 0.25, 0.15, 0.30,
			"Low arousal, negative valence - sad and disengaged state"),
		proto("overwhelmed", 0.55, 0.80, 0.95, 0.05, 0.25, 0.85,
			"Very high arousal with cognitive overload - unable to cope"),
		proto("frustrated", 0.75, 0.85, 0.80, 0.10, 0.60, 0.90,
			"High arousal with blocked goals - annoyed and irritated"),
		proto("hopeless", 0.15, 0.05, 0.85, 0.10, 0.05, 0.20,
			"Low arousal, negative valence - despair and loss of hope"),
		proto("lonely", 0.25, 0.15, 0.65, 0.35, 0.20, 0.40,
			"Low social engagement with negative affect - isolated feeling"),
		proto("guilty", 0.45, 0.30, 0.90, 0.15, 0.35, 0.55,
			"Self-directed negative emotion with high stress - remorseful"),
		proto("ashamed", 0.35, 0.25, 0.80, 0.20, 0.25, 0.45,
			"Self-conscious negative emotion with social anxiety - embarrassed"),
		proto("angry", 0.80, 0.95, 0.90, 0.05, 0.70, 0.85,
			"High arousal, negative valence - hostile and aggressive state"),
		proto("disgusted", 0.60, 0.70, 0.85, 0.10, 0.50, 0.75,
			"Aversive reaction to stimuli - repulsion and distaste"),
		proto("fearful", 0.70, 0.90, 0.95, 0.05, 0.65, 0.95,
			"High arousal, negative valence - afraid and threatened"),

		// Neutral/baseline
		proto("neutral", 0.50, 0.50, 0.50, 0.50, 0.50, 0.50,
			"Baseline state with balanced metrics"),
		proto("bored", 0.20, 0.15, 0.25, 0.60, 0.15, 0.25,
			"Low arousal, negative valence - disengaged and uninterested"),
	}
}

// EmotionNeutral is the fallback label for unclassifiable input.
const EmotionNeutral = "neutral"

// negativeEmotions is the fixed set of labels treated as negative states
// requiring therapeutic attention.
var negativeEmotions = map[string]bool{
	"stressed": true, "anxious": true, "depressed": true, "overwhelmed": true,
	"frustrated": true, "hopeless": true, "lonely": true, "guilty": true,
	"ashamed": true, "angry": true, "disgusted": true, "fearful": true,
}

// IsNegative reports whether the label belongs to the negative-emotion set.
func IsNegative(label string) bool {
	return negativeEmotions[label]
}

// prototypeFile is the YAML shape for prototype overrides.
type prototypeFile struct {
	Prototypes []struct {
		Name        string             `yaml:"name"`
		Description string             `yaml:"description"`
		Metrics     map[string]float64 `yaml:"metrics"`
	} `yaml:"prototypes"`
}

// LoadPrototypes merges YAML-defined prototypes over the built-in catalog.
// An entry whose name matches a built-in replaces it in place (preserving
// declaration order); new names append after the built-ins. Metric values
// are clamped to [0,1].
func LoadPrototypes(path string) ([]Prototype, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file prototypeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse prototypes: %w", err)
	}

	protos := BuiltinPrototypes()
	index := make(map[string]int, len(protos))
	for i, p := range protos {
		index[p.Name] = i
	}

	for _, entry := range file.Prototypes {
		if entry.Name == "" || len(entry.Metrics) == 0 {
			continue
		}
		vec := make(models.MetricVector, len(entry.Metrics))
		for k, v := range entry.Metrics {
			vec[k] = models.Clamp01(v)
		}
		p := Prototype{Name: entry.Name, Vector: vec, Description: entry.Description}
		if i, ok := index[entry.Name]; ok {
			protos[i] = p
		} else {
			index[entry.Name] = len(protos)
			protos = append(protos, p)
		}
	}

	return protos, nil
}
