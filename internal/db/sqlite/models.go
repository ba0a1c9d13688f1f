package sqlite

import (
	"database/sql"
	"time"

	"gorm.io/gorm"
)

// SessionRecord is the lifecycle row for one therapy session.
type SessionRecord struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	SessionID      string `gorm:"uniqueIndex;not null"`
	Status         string `gorm:"type:text;check:status IN ('active', 'ended');default:'active';index"`
	UserMessages   int    `gorm:"default:0"`
	EEGStates      int    `gorm:"default:0"`
	StartedAt      string `gorm:"not null"`
	StartedAtEpoch int64  `gorm:"index:idx_sessions_started,sort:desc;not null"`
	EndedAt        sql.NullString
	EndedAtEpoch   sql.NullInt64
}

func (SessionRecord) TableName() string { return "sessions" }

func (r *SessionRecord) BeforeCreate(tx *gorm.DB) error {
	if r.StartedAtEpoch == 0 {
		r.StartedAtEpoch = time.Now().UnixMilli()
	}
	if r.StartedAt == "" {
		r.StartedAt = time.Now().Format(time.RFC3339)
	}
	return nil
}

// EmotionEventRecord journals one smoothed emotional state.
type EmotionEventRecord struct {
	ID        int64   `gorm:"primaryKey;autoIncrement"`
	SessionID string  `gorm:"index:idx_events_session_ts,priority:1;not null"`
	Timestamp float64 `gorm:"index:idx_events_session_ts,priority:2;not null"`

	Emotion    string  `gorm:"type:text;not null"`
	Confidence float64 `gorm:"type:real"`
	Status     sql.NullString

	Engagement float64 `gorm:"type:real"`
	Excitement float64 `gorm:"type:real"`
	Stress     float64 `gorm:"type:real"`
	Relaxation float64 `gorm:"type:real"`
	Interest   float64 `gorm:"type:real"`
	Attention  float64 `gorm:"type:real"`

	CrisisLevel       float64 `gorm:"type:real"`
	IsNegative        int     `gorm:"default:0"`
	Severity          float64 `gorm:"type:real"`
	NeedsIntervention int     `gorm:"default:0;index"`

	CreatedAtEpoch int64 `gorm:"not null"`
}

func (EmotionEventRecord) TableName() string { return "emotion_events" }

// SessionNote is one therapeutic note attached to a session.
type SessionNote struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	SessionID      string `gorm:"index;not null"`
	Note           string `gorm:"type:text;not null"`
	CreatedAtEpoch int64  `gorm:"not null"`
}

func (SessionNote) TableName() string { return "session_notes" }
