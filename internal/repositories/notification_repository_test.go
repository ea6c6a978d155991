package repositories_test

import (
	"context"
	"testing"
	"time"

	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"github.com/anonto42/volunteer-hub/backend/internal/repositories"
	"github.com/anonto42/volunteer-hub/backend/internal/testutil"
)

func TestNotificationsAreScopedToReceiver(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	owner := testutil.SeedUser(t, db, models.RoleUser)
	other := testutil.SeedUser(t, db, models.RoleUser)
	repo := repositories.NewPostgresNotificationRepository(db)
	ctx := context.Background()

	var mine []*models.Notification
	for i := 0; i < 3; i++ {
		n := &models.Notification{ReceiverID: owner.ID, Title: "t", Message: "m", Type: models.NotificationGeneral}
		if err := repo.CreateNotification(ctx, n); err != nil {
			t.Fatal(err)
		}
		mine = append(mine, n)
	}
	foreign := &models.Notification{ReceiverID: other.ID, Title: "t", Message: "m", Type: models.NotificationGeneral}
	if err := repo.CreateNotification(ctx, foreign); err != nil {
		t.Fatal(err)
	}

	page, total, err := repo.GetByReceiverID(ctx, owner.ID, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(page) != 2 {
		t.Fatalf("page = %d items of %d, want 2 of 3", len(page), total)
	}

	if ok, err := repo.MarkAsRead(ctx, foreign.ID, owner.ID); err != nil || ok {
		t.Fatalf("marking someone else's notification: ok=%v err=%v", ok, err)
	}
	if ok, err := repo.MarkAsRead(ctx, mine[0].ID, owner.ID); err != nil || !ok {
		t.Fatalf("mark read: ok=%v err=%v", ok, err)
	}
	if n, _ := repo.GetUnreadCount(ctx, owner.ID); n != 2 {
		t.Fatalf("unread = %d, want 2", n)
	}
	if n, err := repo.MarkAllAsRead(ctx, owner.ID); err != nil || n != 2 {
		t.Fatalf("mark all: n=%d err=%v", n, err)
	}
	if n, _ := repo.GetUnreadCount(ctx, other.ID); n != 1 {
		t.Fatalf("other user's unread = %d, want 1", n)
	}

	if ok, err := repo.Delete(ctx, mine[1].ID, other.ID); err != nil || ok {
		t.Fatalf("delete by non-owner: ok=%v err=%v", ok, err)
	}
	if ok, err := repo.Delete(ctx, mine[1].ID, owner.ID); err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	if _, total, _ := repo.GetByReceiverID(ctx, owner.ID, 1, 10); total != 2 {
		t.Fatalf("after delete total = %d, want 2", total)
	}
}

func TestNotificationsGroupedByDay(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	user := testutil.SeedUser(t, db, models.RoleUser)
	repo := repositories.NewPostgresNotificationRepository(db)
	ctx := context.Background()

	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	for _, at := range []time.Time{
		now.Add(-time.Hour),
		now.AddDate(0, 0, -1),
		now.AddDate(0, 0, -4),
		now.AddDate(0, 0, -30),
	} {
		n := &models.Notification{ReceiverID: user.ID, Title: "t", Message: "m", Type: models.NotificationGeneral, CreatedAt: at}
		if err := repo.CreateNotification(ctx, n); err != nil {
			t.Fatal(err)
		}
	}

	today, yesterday, week, older, err := repo.GetGrouped(ctx, user.ID, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(today) != 1 || len(yesterday) != 1 || len(week) != 1 || len(older) != 1 {
		t.Fatalf("groups = %d/%d/%d/%d, want 1/1/1/1", len(today), len(yesterday), len(week), len(older))
	}
}
