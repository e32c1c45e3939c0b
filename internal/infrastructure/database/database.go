package database

import (
	"learnhub-backend/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open opens a GORM DB from DSN. PreferSimpleProtocol disables prepared
// statement caching to avoid 42P05 ("prepared statement already exists")
// behind connection poolers (PgBouncer, Supabase, Render).
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{TranslateError: true})
}

// AutoMigrate runs migrations for all subsystem models. The (user, group)
// unique indexes on memberships and group_scores are the concurrency guard
// for duplicate joins.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.Group{},
		&domain.Membership{},
		&domain.Invite{},
		&domain.GroupScore{},
		&domain.Score{},
		&domain.CourseProgress{},
		&domain.ProjectProgress{},
		&domain.NotificationEvent{},
	)
}
