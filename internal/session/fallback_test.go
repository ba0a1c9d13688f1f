package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/emostream-io/emostream/pkg/models"
)

func TestFallbackResponse_KeywordBuckets(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"sadness keywords", "I've been feeling so down lately", "difficult time"},
		{"anxiety keywords", "everything makes me nervous", "anxiety"},
		{"anger keywords", "I'm furious at my brother", "frustration"},
		{"work keywords", "my boss keeps piling it on", "Work-related stress"},
		{"greeting", "hey, are you there?", "glad you're here"},
		{"no keyword match", "the weather has been odd", "your feelings and experiences matter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, FallbackResponse(tt.text, nil), tt.expected)
		})
	}
}

func TestFallbackResponse_BucketOrderIsFixed(t *testing.T) {
	// "sad" and "worried" both match; the distress bucket is checked first.
	out := FallbackResponse("I'm sad and worried", nil)
	assert.Contains(t, out, "difficult time")
	assert.NotContains(t, out, "anxiety")
}

func TestFallbackResponse_StatePrefixes(t *testing.T) {
	tests := []struct {
		name   string
		state  *models.EmotionalState
		prefix string
	}{
		{"no state", nil, ""},
		{
			"high stress",
			&models.EmotionalState{StressLevel: 0.8, ArousalLevel: 0.6},
			"I can sense you're feeling quite stressed. ",
		},
		{
			"low energy",
			&models.EmotionalState{StressLevel: 0.2, ArousalLevel: 0.1},
			"I notice your energy seems low right now. ",
		},
		{
			"negative valence",
			&models.EmotionalState{StressLevel: 0.4, ArousalLevel: 0.5, Valence: -0.7},
			"I can tell you're experiencing some difficult feelings. ",
		},
		{
			"high stress wins over low energy",
			&models.EmotionalState{StressLevel: 0.9, ArousalLevel: 0.1, Valence: -0.9},
			"I can sense you're feeling quite stressed. ",
		},
		{
			"balanced state has no prefix",
			&models.EmotionalState{StressLevel: 0.4, ArousalLevel: 0.5, Valence: 0.2},
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := FallbackResponse("tell me about today", tt.state)
			assert.Equal(t, tt.prefix+defaultFallbackReply, out)
		})
	}
}
