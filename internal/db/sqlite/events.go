package sqlite

import (
	"fmt"
	"time"

	"github.com/emostream-io/emostream/pkg/models"
)

// CreateSession inserts the lifecycle row for a new session.
func (s *Store) CreateSession(sessionID string) error {
	rec := SessionRecord{SessionID: sessionID, Status: "active"}
	if err := s.DB.Create(&rec).Error; err != nil {
		return fmt.Errorf("create session record: %w", err)
	}
	return nil
}

// EndSession closes the lifecycle row and stores the final counters.
func (s *Store) EndSession(sessionID string, userMessages, eegStates int) error {
	now := time.Now()
	res := s.DB.Model(&SessionRecord{}).
		Where("session_id = ? AND status = ?", sessionID, "active").
		Updates(map[string]any{
			"status":         "ended",
			"user_messages":  userMessages,
			"eeg_states":     eegStates,
			"ended_at":       now.Format(time.RFC3339),
			"ended_at_epoch": now.UnixMilli(),
		})
	if res.Error != nil {
		return fmt.Errorf("end session record: %w", res.Error)
	}
	return nil
}

// AppendEvent journals one smoothed event. Raw SQL keeps the per-sample
// hot path off GORM's reflection machinery.
func (s *Store) AppendEvent(sessionID string, ev models.EmotionEvent) error {
	status := any(nil)
	if ev.Status != "" {
		status = ev.Status
	}
	_, err := s.sqlDB.Exec(`
		INSERT INTO emotion_events (
			session_id, timestamp, emotion, confidence, status,
			engagement, excitement, stress, relaxation, interest, attention,
			crisis_level, is_negative, severity, needs_intervention,
			created_at_epoch
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, ev.Timestamp, ev.Emotion, ev.Confidence, status,
		ev.Metrics.Engagement, ev.Metrics.Excitement, ev.Metrics.Stress,
		ev.Metrics.Relaxation, ev.Metrics.Interest, ev.Metrics.Attention,
		ev.Therapy.CrisisLevel, boolToInt(ev.Therapy.IsNegative),
		ev.Therapy.Severity, boolToInt(ev.Therapy.NeedsIntervention),
		time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("append emotion event: %w", err)
	}
	return nil
}

// RecentEvents returns up to limit most recent journaled events for the
// session, newest first.
func (s *Store) RecentEvents(sessionID string, limit int) ([]models.EmotionEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.sqlDB.Query(`
		SELECT timestamp, emotion, confidence, COALESCE(status, ''),
			engagement, excitement, stress, relaxation, interest, attention,
			crisis_level, is_negative, severity, needs_intervention
		FROM emotion_events
		WHERE session_id = ?
		ORDER BY timestamp DESC
		LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent events: %w", err)
	}
	defer rows.Close()

	var events []models.EmotionEvent
	for rows.Next() {
		var ev models.EmotionEvent
		var negative, intervention int
		if err := rows.Scan(
			&ev.Timestamp, &ev.Emotion, &ev.Confidence, &ev.Status,
			&ev.Metrics.Engagement, &ev.Metrics.Excitement, &ev.Metrics.Stress,
			&ev.Metrics.Relaxation, &ev.Metrics.Interest, &ev.Metrics.Attention,
			&ev.Therapy.CrisisLevel, &negative, &ev.Therapy.Severity, &intervention,
		); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		ev.Therapy.IsNegative = negative != 0
		ev.Therapy.NeedsIntervention = intervention != 0
		events = append(events, ev)
	}
	return events, rows.Err()
}

// AddNote journals one therapeutic note.
func (s *Store) AddNote(sessionID, note string) error {
	rec := SessionNote{
		SessionID:      sessionID,
		Note:           note,
		CreatedAtEpoch: time.Now().UnixMilli(),
	}
	if err := s.DB.Create(&rec).Error; err != nil {
		return fmt.Errorf("add session note: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
