package repositories_test

import (
	"context"
	"testing"
	"time"

	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"github.com/anonto42/volunteer-hub/backend/internal/repositories"
	"github.com/anonto42/volunteer-hub/backend/internal/testutil"
)

func TestRegistrationUniquePerUserAndEvent(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	author := testutil.SeedUser(t, db, models.RoleManager)
	user := testutil.SeedUser(t, db, models.RoleUser)
	event := testutil.SeedEvent(t, db, author.ID, 5, time.Now().Add(time.Hour))
	repo := repositories.NewPostgresRegistrationRepository(db)
	ctx := context.Background()

	first := &models.Registration{UserID: user.ID, EventID: event.ID, Status: models.RegistrationPending}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := &models.Registration{UserID: user.ID, EventID: event.ID, Status: models.RegistrationPending}
	err := repo.Create(ctx, dup)
	if err == nil {
		t.Fatal("expected unique violation")
	}
	if !repositories.IsUniqueViolation(err) {
		t.Fatalf("error %v not recognised as unique violation", err)
	}
}

func TestTransitionIsConditional(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	author := testutil.SeedUser(t, db, models.RoleManager)
	user := testutil.SeedUser(t, db, models.RoleUser)
	event := testutil.SeedEvent(t, db, author.ID, 5, time.Now().Add(time.Hour))
	repo := repositories.NewPostgresRegistrationRepository(db)
	ctx := context.Background()

	reg := &models.Registration{UserID: user.ID, EventID: event.ID, Status: models.RegistrationPending}
	if err := repo.Create(ctx, reg); err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	pending := []models.RegistrationStatus{models.RegistrationPending}
	ok, err := repo.Transition(ctx, reg.ID, pending, models.RegistrationAccepted, &now)
	if err != nil || !ok {
		t.Fatalf("first transition ok=%v err=%v", ok, err)
	}
	ok, err = repo.Transition(ctx, reg.ID, pending, models.RegistrationRejected, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("second transition from pending should not apply")
	}

	got, err := repo.GetByID(ctx, reg.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.RegistrationAccepted || got.JoinedAt == nil {
		t.Fatalf("registration = %+v", got)
	}
}

func TestListByUserNewestFirstWithEvent(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	author := testutil.SeedUser(t, db, models.RoleManager)
	user := testutil.SeedUser(t, db, models.RoleUser)
	older := testutil.SeedEvent(t, db, author.ID, 5, time.Now().Add(time.Hour))
	newer := testutil.SeedEvent(t, db, author.ID, 5, time.Now().Add(2*time.Hour))
	repo := repositories.NewPostgresRegistrationRepository(db)
	ctx := context.Background()

	r1 := &models.Registration{UserID: user.ID, EventID: older.ID, Status: models.RegistrationPending, CreatedAt: time.Now().Add(-time.Hour)}
	r2 := &models.Registration{UserID: user.ID, EventID: newer.ID, Status: models.RegistrationPending, CreatedAt: time.Now()}
	for _, r := range []*models.Registration{r1, r2} {
		if err := repo.Create(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	rows, err := repo.ListByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows", len(rows))
	}
	if rows[0].ID != r2.ID || rows[1].ID != r1.ID {
		t.Fatalf("order = %d,%d", rows[0].ID, rows[1].ID)
	}
	if rows[0].EventTitle != newer.Title || rows[0].EventStatus != models.EventApproved {
		t.Fatalf("event summary not joined: %+v", rows[0])
	}
}

func TestListByEventPendingFirst(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	author := testutil.SeedUser(t, db, models.RoleManager)
	event := testutil.SeedEvent(t, db, author.ID, 5, time.Now().Add(time.Hour))
	repo := repositories.NewPostgresRegistrationRepository(db)
	ctx := context.Background()

	statuses := []models.RegistrationStatus{models.RegistrationRejected, models.RegistrationAccepted, models.RegistrationPending}
	for _, s := range statuses {
		u := testutil.SeedUser(t, db, models.RoleUser)
		if err := repo.Create(ctx, &models.Registration{UserID: u.ID, EventID: event.ID, Status: s}); err != nil {
			t.Fatal(err)
		}
	}

	rows, err := repo.ListByEvent(ctx, event.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := []models.RegistrationStatus{models.RegistrationPending, models.RegistrationAccepted, models.RegistrationRejected}
	for i, s := range want {
		if rows[i].Status != s {
			t.Fatalf("row %d status = %s, want %s", i, rows[i].Status, s)
		}
		if rows[i].UserEmail == "" {
			t.Fatalf("row %d missing user join", i)
		}
	}
}

func TestExpireForStartedEvents(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	author := testutil.SeedUser(t, db, models.RoleManager)
	user := testutil.SeedUser(t, db, models.RoleUser)
	started := testutil.SeedEvent(t, db, author.ID, 5, time.Now().Add(-time.Hour))
	upcoming := testutil.SeedEvent(t, db, author.ID, 5, time.Now().Add(time.Hour))
	repo := repositories.NewPostgresRegistrationRepository(db)
	ctx := context.Background()

	a := &models.Registration{UserID: user.ID, EventID: started.ID, Status: models.RegistrationPending}
	b := &models.Registration{UserID: user.ID, EventID: upcoming.ID, Status: models.RegistrationPending}
	for _, r := range []*models.Registration{a, b} {
		if err := repo.Create(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	n, err := repo.ExpireForStartedEvents(ctx, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expired %d, want 1", n)
	}
	got, _ := repo.GetByID(ctx, a.ID)
	if got.Status != models.RegistrationExpired {
		t.Fatalf("started event registration = %s", got.Status)
	}
	got, _ = repo.GetByID(ctx, b.ID)
	if got.Status != models.RegistrationPending {
		t.Fatalf("upcoming event registration = %s", got.Status)
	}
}
