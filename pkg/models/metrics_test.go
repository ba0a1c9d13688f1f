package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp01(t *testing.T) {
	tests := []struct {
		name     string
		in       float64
		expected float64
	}{
		{"below range", -0.5, 0},
		{"lower bound", 0, 0},
		{"in range", 0.42, 0.42},
		{"upper bound", 1, 1},
		{"above range", 1.7, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Clamp01(tt.in))
		})
	}
}

func TestMetricVector_Presence(t *testing.T) {
	v := MetricVector{MetricStress: 0, MetricRelaxation: 0.8}

	assert.True(t, v.Has(MetricStress))
	assert.False(t, v.Has(MetricAttention))
	assert.Equal(t, 0.0, v.Get(MetricAttention))
	assert.False(t, v.IsZero())

	assert.True(t, MetricVector{}.IsZero())
	assert.True(t, MetricVector{MetricStress: 0}.IsZero())
}

func TestMetricVector_CloneIsIndependent(t *testing.T) {
	v := MetricVector{MetricStress: 0.3}
	c := v.Clone()
	c[MetricStress] = 0.9

	assert.Equal(t, 0.3, v.Get(MetricStress))
	assert.Equal(t, 0.9, c.Get(MetricStress))
}

func TestSnapshotRoundTrip(t *testing.T) {
	v := MetricVector{
		MetricEngagement: 0.1,
		MetricExcitement: 0.2,
		MetricStress:     0.3,
		MetricRelaxation: 0.4,
		MetricInterest:   0.5,
		MetricAttention:  0.6,
		MetricAlpha:      0.7, // dropped by the snapshot
	}

	snap := SnapshotOf(v)
	assert.Equal(t, 0.3, snap.Stress)
	assert.Equal(t, 0.6, snap.Attention)

	back := snap.Vector()
	assert.Len(t, back, len(CoreMetrics))
	assert.False(t, back.Has(MetricAlpha))
	assert.Equal(t, 0.4, back.Get(MetricRelaxation))
}

func TestStateFromEvent(t *testing.T) {
	ev := EmotionEvent{
		Emotion:       "stressed",
		Confidence:    0.87,
		Metrics:       MetricSnapshot{Stress: 0.9},
		Arousal:       0.65,
		Valence:       -0.4,
		CognitiveLoad: 0.55,
	}

	state := StateFromEvent(ev)
	assert.Equal(t, "stressed", state.DominantEmotion)
	assert.Equal(t, 0.65, state.ArousalLevel)
	assert.Equal(t, -0.4, state.Valence)
	assert.Equal(t, 0.9, state.StressLevel)
	assert.Equal(t, 0.55, state.CognitiveLoad)
	assert.Equal(t, 0.87, state.Confidence)
}
