package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/emostream-io/emostream/internal/emotion"
	"github.com/emostream-io/emostream/pkg/models"
)

// stubResponder returns a canned reply or error.
type stubResponder struct {
	reply string
	err   error
	calls int
}

func (r *stubResponder) Respond(ctx context.Context, persona []models.Segment, eegContext string, history []models.Segment, userText string) (string, error) {
	r.calls++
	return r.reply, r.err
}

type ManagerSuite struct {
	suite.Suite
	mgr *Manager
}

func (s *ManagerSuite) SetupTest() {
	s.mgr = NewManager(emotion.NewClassifier(), emotion.DefaultSmootherConfig(), nil)
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

// stressPayload builds a flat metrics payload dominated by stress.
func stressPayload(ts float64) map[string]any {
	return map[string]any{
		"engagement": 0.7,
		"excitement": 0.6,
		"stress":     0.9,
		"relaxation": 0.15,
		"interest":   0.3,
		"attention":  0.75,
		"timestamp":  ts,
	}
}

func (s *ManagerSuite) TestCreateInstallsPersona() {
	s.mgr.Create("sess-1")
	s.True(s.mgr.Has("sess-1"))
	s.Equal(1, s.mgr.Count())

	summary, ok := s.mgr.Summary("sess-1")
	s.Require().True(ok)
	s.Equal(2, summary.TotalSegments)
	s.Equal(2, summary.TherapistMessages)
	s.Equal(0, summary.UserMessages)
	s.Nil(summary.CurrentState)
}

func (s *ManagerSuite) TestUnknownSessionOperations() {
	_, ok := s.mgr.UpdateMetrics("missing", stressPayload(1))
	s.False(ok)
	s.False(s.mgr.AppendMessage("missing", "hello", ""))
	s.Nil(s.mgr.GenerateResponse(context.Background(), "missing"))
	_, ok = s.mgr.Summary("missing")
	s.False(ok)
	_, ok = s.mgr.EEGStatus("missing")
	s.False(ok)
	s.False(s.mgr.End("missing"))
}

func (s *ManagerSuite) TestUpdateMetricsClassifies() {
	s.mgr.Create("sess-1")

	ev, ok := s.mgr.UpdateMetrics("sess-1", stressPayload(100))
	s.Require().True(ok)
	s.Equal("stressed", ev.Emotion)
	s.Equal(100.0, ev.Timestamp)
	s.True(ev.Therapy.IsNegative)

	status, ok := s.mgr.EEGStatus("sess-1")
	s.Require().True(ok)
	s.Equal(models.EEGStatusActive, status.Status)
	s.Equal(1, status.HistoryLength)
	s.Require().NotNil(status.CurrentState)
	s.Equal("stressed", status.CurrentState.DominantEmotion)
}

func (s *ManagerSuite) TestEEGStatusWithoutData() {
	s.mgr.Create("sess-1")

	status, ok := s.mgr.EEGStatus("sess-1")
	s.Require().True(ok)
	s.Equal(models.EEGStatusNoData, status.Status)
	s.Nil(status.CurrentState)
}

func (s *ManagerSuite) TestHistoryIsCapped() {
	s.mgr.Create("sess-1")

	for i := 0; i < historyCap+20; i++ {
		_, ok := s.mgr.UpdateMetrics("sess-1", stressPayload(float64(i)))
		s.Require().True(ok)
	}

	status, ok := s.mgr.EEGStatus("sess-1")
	s.Require().True(ok)
	s.Equal(historyCap, status.HistoryLength)
}

func (s *ManagerSuite) TestGenerateResponseRequiresUserMessage() {
	s.mgr.Create("sess-1")
	s.Nil(s.mgr.GenerateResponse(context.Background(), "sess-1"))
}

func (s *ManagerSuite) TestGenerateResponseFallbackWithoutResponder() {
	s.mgr.Create("sess-1")
	s.True(s.mgr.AppendMessage("sess-1", "hello there", ""))

	resp := s.mgr.GenerateResponse(context.Background(), "sess-1")
	s.Require().NotNil(resp)
	s.True(resp.Fallback)
	s.Equal(models.SpeakerTherapist, resp.Speaker)
	s.Contains(resp.Text, "glad you're here")

	summary, ok := s.mgr.Summary("sess-1")
	s.Require().True(ok)
	s.Equal(1, summary.UserMessages)
	s.Equal(3, summary.TherapistMessages)
	s.Len(summary.Notes, 1)
}

func (s *ManagerSuite) TestGenerateResponseUsesResponder() {
	responder := &stubResponder{reply: "How does that make you feel?"}
	mgr := NewManager(nil, emotion.DefaultSmootherConfig(), responder)
	mgr.Create("sess-1")
	mgr.AppendMessage("sess-1", "I had a strange dream", "")

	resp := mgr.GenerateResponse(context.Background(), "sess-1")
	s.Require().NotNil(resp)
	s.False(resp.Fallback)
	s.Equal("How does that make you feel?", resp.Text)
	s.Equal(1, responder.calls)
}

func (s *ManagerSuite) TestGenerateResponseResponderFailureFallsBack() {
	responder := &stubResponder{err: fmt.Errorf("upstream down")}
	mgr := NewManager(nil, emotion.DefaultSmootherConfig(), responder)
	mgr.Create("sess-1")
	mgr.AppendMessage("sess-1", "I feel anxious about everything", "")

	resp := mgr.GenerateResponse(context.Background(), "sess-1")
	s.Require().NotNil(resp)
	s.True(resp.Fallback)
	s.Contains(resp.Text, "anxiety")
}

func (s *ManagerSuite) TestResponseCarriesEmotionalState() {
	s.mgr.Create("sess-1")
	_, ok := s.mgr.UpdateMetrics("sess-1", stressPayload(1))
	s.Require().True(ok)
	s.mgr.AppendMessage("sess-1", "rough day", "")

	resp := s.mgr.GenerateResponse(context.Background(), "sess-1")
	s.Require().NotNil(resp)
	s.Require().NotNil(resp.State)
	s.Equal("stressed", resp.State.DominantEmotion)
	// The high-stress acknowledgment leads the fallback reply.
	s.Contains(resp.Text, "quite stressed")
}

func (s *ManagerSuite) TestEndRemovesSession() {
	s.mgr.Create("sess-1")
	s.True(s.mgr.End("sess-1"))
	s.False(s.mgr.End("sess-1"))
	s.Equal(0, s.mgr.Count())
}

func TestFormatEEGContext(t *testing.T) {
	tests := []struct {
		name     string
		state    models.EmotionalState
		guidance string
	}{
		{
			name: "high stress guidance",
			state: models.EmotionalState{
				DominantEmotion: "stressed", StressLevel: 0.8, ArousalLevel: 0.6,
			},
			guidance: "calming, grounding techniques",
		},
		{
			name: "low energy guidance",
			state: models.EmotionalState{
				DominantEmotion: "bored", StressLevel: 0.2, ArousalLevel: 0.1,
			},
			guidance: "gentle encouragement",
		},
		{
			name: "negative valence guidance",
			state: models.EmotionalState{
				DominantEmotion: "depressed", StressLevel: 0.4, ArousalLevel: 0.5, Valence: -0.7,
			},
			guidance: "empathetic validation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := FormatEEGContext(tt.state)
			assert.Contains(t, out, "[EMOTIONAL_STATE: "+tt.state.DominantEmotion+"]")
			assert.Contains(t, out, tt.guidance)
		})
	}

	// Balanced state carries no guidance tag.
	out := FormatEEGContext(models.EmotionalState{DominantEmotion: "calm", StressLevel: 0.3, ArousalLevel: 0.5})
	assert.NotContains(t, out, "GUIDANCE")
}
