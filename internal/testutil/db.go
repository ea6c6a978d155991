// Package testutil provides an in-memory SQLite database and seed helpers
// for package tests.
package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"github.com/anonto42/volunteer-hub/backend/internal/repositories"
	"github.com/anonto42/volunteer-hub/backend/pkg/config"
	"gorm.io/gorm"
)

var userSeq atomic.Int64

// NewDB opens a migrated in-memory database that is closed when the test
// ends.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := config.OpenSQL("sqlite", "", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repositories.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// SeedUser inserts a user with the given role.
func SeedUser(t testing.TB, db *gorm.DB, role models.Role) *models.User {
	t.Helper()

	n := userSeq.Add(1)
	user := &models.User{
		Name:  fmt.Sprintf("user-%d", n),
		Email: fmt.Sprintf("user-%d@example.com", n),
		Role:  role,
	}
	if err := repositories.NewPostgresUserRepository(db).CreateUser(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// SeedEvent inserts an approved event owned by authorID.
func SeedEvent(t testing.TB, db *gorm.DB, authorID uint, maxParticipants int, startTime time.Time) *models.Event {
	t.Helper()

	event := &models.Event{
		Title:           "Beach clean-up",
		Content:         "Bring gloves",
		Address:         "North pier",
		StartTime:       startTime,
		EndTime:         startTime.Add(3 * time.Hour),
		MaxParticipants: maxParticipants,
		AuthorID:        authorID,
	}
	repo := repositories.NewPostgresEventRepository(db)
	if err := repo.Create(context.Background(), event); err != nil {
		t.Fatalf("seed event: %v", err)
	}
	if _, err := repo.TransitionStatus(context.Background(), event.ID, []models.EventStatus{models.EventPending}, models.EventApproved); err != nil {
		t.Fatalf("approve seeded event: %v", err)
	}
	event.Status = models.EventApproved
	return event
}

// ReloadEvent reads the event back from the database.
func ReloadEvent(t testing.TB, db *gorm.DB, id uint) *models.Event {
	t.Helper()

	event, err := repositories.NewPostgresEventRepository(db).GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("reload event %d: %v", id, err)
	}
	return event
}
