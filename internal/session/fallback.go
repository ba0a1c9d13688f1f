package session

import (
	"strings"

	"github.com/emostream-io/emostream/pkg/models"
)

// fallbackBucket pairs trigger keywords with a canned therapeutic reply.
type fallbackBucket struct {
	keywords []string
	reply    string
}

// Buckets are checked in order; the first keyword hit wins.
var fallbackBuckets = []fallbackBucket{
	{
		keywords: []string{"sad", "depressed", "down", "crying", "hurt"},
		reply: "I can hear that you're going through a difficult time. Your feelings are " +
			"completely valid, and it takes courage to share them. Can you tell me more " +
			"about what's contributing to these feelings?",
	},
	{
		keywords: []string{"anxious", "worried", "nervous", "panic", "overwhelmed"},
		reply: "It sounds like you're experiencing anxiety right now. That can feel really " +
			"overwhelming. Let's take this one step at a time - what's on your mind that's " +
			"causing you to feel this way?",
	},
	{
		keywords: []string{"angry", "mad", "frustrated", "furious"},
		reply: "I can sense your frustration. Anger often signals something important to us. " +
			"What's behind these feelings for you?",
	},
	{
		keywords: []string{"work", "job", "boss", "deadline", "pressure"},
		reply: "Work-related stress can really impact our wellbeing. What's been most " +
			"challenging for you in your work situation lately?",
	},
	{
		keywords: []string{"hello", "hi", "hey"},
		reply: "Hello, I'm glad you're here. This is a safe space where you can share " +
			"whatever is on your mind. How are you feeling today?",
	},
}

const defaultFallbackReply = "I hear you, and I want you to know that your feelings and " +
	"experiences matter. I'm here to listen and support you. Can you tell me more about " +
	"what you're going through?"

// FallbackResponse builds a rule-based therapeutic reply when the external
// responder is unavailable. The optional state adds an acknowledgment
// prefix; high stress takes precedence over low energy and negative
// valence.
func FallbackResponse(userText string, state *models.EmotionalState) string {
	prefix := ""
	if state != nil {
		switch {
		case state.StressLevel > 0.7:
			prefix = "I can sense you're feeling quite stressed. "
		case state.ArousalLevel < 0.3:
			prefix = "I notice your energy seems low right now. "
		case state.Valence < -0.5:
			prefix = "I can tell you're experiencing some difficult feelings. "
		}
	}

	lower := strings.ToLower(userText)
	for _, bucket := range fallbackBuckets {
		for _, kw := range bucket.keywords {
			if strings.Contains(lower, kw) {
				return prefix + bucket.reply
			}
		}
	}
	return prefix + defaultFallbackReply
}
