// Package worker provides the HTTP service for emostream.
package worker

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/emostream-io/emostream/internal/config"
	"github.com/emostream-io/emostream/internal/db/sqlite"
	"github.com/emostream-io/emostream/internal/emotion"
	"github.com/emostream-io/emostream/internal/session"
	"github.com/emostream-io/emostream/internal/worker/stream"
)

// testService creates a Service backed by a temp database and an empty
// recordings directory.
func testService(t *testing.T) *Service {
	t.Helper()

	dir := t.TempDir()
	store, err := sqlite.NewStore(sqlite.Config{
		Path:     filepath.Join(dir, "test.db"),
		LogLevel: logger.Silent,
	})
	require.NoError(t, err)

	cfg := config.Default()
	cfg.RecordingsDir = filepath.Join(dir, "recordings")
	require.NoError(t, os.MkdirAll(cfg.RecordingsDir, 0750))

	sessions := session.NewManager(emotion.NewClassifier(), emotion.DefaultSmootherConfig(), nil)
	broadcaster := stream.NewBroadcaster(0)

	svc := New(cfg, store, sessions, broadcaster, "test-version")
	t.Cleanup(func() {
		svc.Stop()
		store.Close()
	})
	return svc
}

func doJSON(t *testing.T, svc *Service, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	svc.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func createSession(t *testing.T, svc *Service) string {
	t.Helper()
	rec := doJSON(t, svc, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	id, _ := body["session_id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestHandleHealth(t *testing.T) {
	svc := testService(t)

	rec := doJSON(t, svc, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test-version", body["version"])
}

func TestCreateSession_WithExplicitID(t *testing.T) {
	svc := testService(t)

	rec := doJSON(t, svc, http.MethodPost, "/api/sessions", map[string]string{"session_id": "my-session"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "my-session", decodeBody(t, rec)["session_id"])
}

func TestUpdateMetrics_FullFlow(t *testing.T) {
	svc := testService(t)
	id := createSession(t, svc)

	payload := map[string]any{
		"engagement": 0.9,
		"excitement": 0.5,
		"stress":     0.2,
		"relaxation": 0.65,
		"interest":   0.7,
		"attention":  0.95,
		"timestamp":  100.0,
	}
	rec := doJSON(t, svc, http.MethodPost, "/api/sessions/"+id+"/metrics", payload)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	event, ok := body["event"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "focused", event["emotion"])

	// The event was journaled.
	events, err := svc.store.RecentEvents(id, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "focused", events[0].Emotion)

	// The EEG status reflects the sample.
	rec = doJSON(t, svc, http.MethodGet, "/api/sessions/"+id+"/eeg/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "active", decodeBody(t, rec)["status"])
}

func TestUpdateMetrics_UnknownSession(t *testing.T) {
	svc := testService(t)

	rec := doJSON(t, svc, http.MethodPost, "/api/sessions/ghost/metrics", map[string]any{"stress": 0.5})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMessageAndRespond(t *testing.T) {
	svc := testService(t)
	id := createSession(t, svc)

	rec := doJSON(t, svc, http.MethodPost, "/api/sessions/"+id+"/message", map[string]string{"text": "hello"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, svc, http.MethodPost, "/api/sessions/"+id+"/respond", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["fallback"])
	assert.NotEmpty(t, body["text"])
}

func TestRespond_NoUserMessage(t *testing.T) {
	svc := testService(t)
	id := createSession(t, svc)

	rec := doJSON(t, svc, http.MethodPost, "/api/sessions/"+id+"/respond", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMessage_RequiresText(t *testing.T) {
	svc := testService(t)
	id := createSession(t, svc)

	rec := doJSON(t, svc, http.MethodPost, "/api/sessions/"+id+"/message", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSummary(t *testing.T) {
	svc := testService(t)
	id := createSession(t, svc)

	doJSON(t, svc, http.MethodPost, "/api/sessions/"+id+"/message", map[string]string{"text": "hi there"})

	rec := doJSON(t, svc, http.MethodGet, "/api/sessions/"+id+"/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, id, body["session_id"])
	assert.Equal(t, float64(1), body["user_messages"])
}

func TestEndSession(t *testing.T) {
	svc := testService(t)
	id := createSession(t, svc)

	rec := doJSON(t, svc, http.MethodDelete, "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, svc, http.MethodGet, "/api/sessions/"+id+"/summary", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, svc, http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListRecordings(t *testing.T) {
	svc := testService(t)

	rec := doJSON(t, svc, http.MethodGet, "/api/recordings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decodeBody(t, rec)["count"])

	// A new file appears after a refresh.
	path := filepath.Join(svc.config.RecordingsDir, "session.csv")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0600))
	require.NoError(t, svc.RefreshRecordings())

	rec = doJSON(t, svc, http.MethodGet, "/api/recordings", nil)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["count"])
}

func TestStartReplay_UnknownRecording(t *testing.T) {
	svc := testService(t)
	id := createSession(t, svc)

	rec := doJSON(t, svc, http.MethodPost, "/api/sessions/"+id+"/replay", map[string]any{"file": "absent.csv"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartReplay_AcceptsKnownRecording(t *testing.T) {
	svc := testService(t)
	id := createSession(t, svc)

	content := "sampling rate:pm_2,start timestamp:100\n" +
		"Timestamp,PM.Engagement.Scaled,PM.Excitement.Scaled,PM.Stress.Scaled,PM.Relaxation.Scaled,PM.Interest.Scaled\n" +
		"100.0,0.4,0.2,0.15,0.85,0.45\n" +
		"100.1,0.4,0.2,0.15,0.85,0.45\n"
	path := filepath.Join(svc.config.RecordingsDir, "calm.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	require.NoError(t, svc.RefreshRecordings())

	rec := doJSON(t, svc, http.MethodPost, "/api/sessions/"+id+"/replay", map[string]any{
		"file":  "calm.csv",
		"speed": 10.0,
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "replay_started", body["status"])
	assert.Equal(t, "calm.csv", body["file"])
}
