package sqlite

import (
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// runMigrations runs all database migrations using gormigrate.
func runMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "001_core_tables",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&SessionRecord{}); err != nil {
					return err
				}
				return tx.AutoMigrate(&EmotionEventRecord{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("sessions", "emotion_events")
			},
		},
		{
			ID: "002_session_notes",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&SessionNote{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("session_notes")
			},
		},
	})

	if err := m.Migrate(); err != nil {
		return fmt.Errorf("run gormigrate migrations: %w", err)
	}
	return nil
}
