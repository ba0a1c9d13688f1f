// Package models contains domain models for emostream.
package models

// Canonical performance-metric names. Prototype vectors and classifier
// similarity are defined over these keys.
const (
	MetricEngagement = "engagement"
	MetricExcitement = "excitement"
	MetricStress     = "stress"
	MetricRelaxation = "relaxation"
	MetricInterest   = "interest"
	MetricAttention  = "attention"
)

// Band-power metric names (pre-computed scalars, not spectral analysis).
const (
	MetricTheta = "theta"
	MetricAlpha = "alpha"
	MetricBeta  = "beta"
	MetricGamma = "gamma"
)

// Device status metric names.
const (
	MetricBatteryLevel  = "battery_level"
	MetricSignalQuality = "signal_quality"
)

// CoreMetrics lists the six performance metrics in canonical order.
var CoreMetrics = []string{
	MetricEngagement, MetricExcitement, MetricStress,
	MetricRelaxation, MetricInterest, MetricAttention,
}

// MetricVector is a set of named metrics, each clamped to [0,1] on
// ingestion. Key presence is significant: classification similarity is
// computed over the keys a vector actually carries, while derived scalars
// treat missing keys as 0.
type MetricVector map[string]float64

// Get returns the value for a metric, or 0 if absent.
func (v MetricVector) Get(name string) float64 {
	return v[name]
}

// Has reports whether the metric was present on ingestion.
func (v MetricVector) Has(name string) bool {
	_, ok := v[name]
	return ok
}

// IsZero reports whether the vector is empty or all-zero.
func (v MetricVector) IsZero() bool {
	for _, val := range v {
		if val != 0 {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the vector.
func (v MetricVector) Clone() MetricVector {
	out := make(MetricVector, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Clamp01 bounds a value to the canonical [0,1] metric range.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// MetricSnapshot is the fixed six-metric view carried on every emitted
// emotion event.
type MetricSnapshot struct {
	Engagement float64 `json:"engagement"`
	Excitement float64 `json:"excitement"`
	Stress     float64 `json:"stress"`
	Relaxation float64 `json:"relaxation"`
	Interest   float64 `json:"interest"`
	Attention  float64 `json:"attention"`
}

// SnapshotOf reduces a vector to the six core metrics.
func SnapshotOf(v MetricVector) MetricSnapshot {
	return MetricSnapshot{
		Engagement: v.Get(MetricEngagement),
		Excitement: v.Get(MetricExcitement),
		Stress:     v.Get(MetricStress),
		Relaxation: v.Get(MetricRelaxation),
		Interest:   v.Get(MetricInterest),
		Attention:  v.Get(MetricAttention),
	}
}

// Vector expands a snapshot back into a full metric vector.
func (s MetricSnapshot) Vector() MetricVector {
	return MetricVector{
		MetricEngagement: s.Engagement,
		MetricExcitement: s.Excitement,
		MetricStress:     s.Stress,
		MetricRelaxation: s.Relaxation,
		MetricInterest:   s.Interest,
		MetricAttention:  s.Attention,
	}
}
