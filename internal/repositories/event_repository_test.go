package repositories_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"github.com/anonto42/volunteer-hub/backend/internal/repositories"
	"github.com/anonto42/volunteer-hub/backend/internal/testutil"
)

func TestIncrementParticipantsStopsAtCapacity(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	author := testutil.SeedUser(t, db, models.RoleManager)
	event := testutil.SeedEvent(t, db, author.ID, 3, time.Now().Add(24*time.Hour))
	repo := repositories.NewPostgresEventRepository(db)
	ctx := context.Background()

	const workers = 20
	var taken atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.IncrementParticipants(ctx, event.ID)
			if err != nil {
				t.Errorf("increment: %v", err)
				return
			}
			if ok {
				taken.Add(1)
			}
		}()
	}
	wg.Wait()

	if taken.Load() != 3 {
		t.Fatalf("seats taken = %d, want 3", taken.Load())
	}
	if got := testutil.ReloadEvent(t, db, event.ID).CurrentParticipants; got != 3 {
		t.Fatalf("current_participants = %d, want 3", got)
	}
}

func TestDecrementParticipantsNeverNegative(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	author := testutil.SeedUser(t, db, models.RoleManager)
	event := testutil.SeedEvent(t, db, author.ID, 2, time.Now().Add(time.Hour))
	repo := repositories.NewPostgresEventRepository(db)

	ok, err := repo.DecrementParticipants(context.Background(), event.ID)
	if err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if ok {
		t.Fatal("decrement on empty event should not apply")
	}
	if got := testutil.ReloadEvent(t, db, event.ID).CurrentParticipants; got != 0 {
		t.Fatalf("current_participants = %d, want 0", got)
	}
}

func TestUpdateDetailsRejectsMaxBelowTaken(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	author := testutil.SeedUser(t, db, models.RoleManager)
	event := testutil.SeedEvent(t, db, author.ID, 5, time.Now().Add(time.Hour))
	repo := repositories.NewPostgresEventRepository(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := repo.IncrementParticipants(ctx, event.ID); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}

	ok, err := repo.UpdateDetails(ctx, event.ID, map[string]interface{}{"max_participants": 2})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if ok {
		t.Fatal("max_participants below current_participants must not apply")
	}

	ok, err = repo.UpdateDetails(ctx, event.ID, map[string]interface{}{"max_participants": 3, "title": "Renamed"})
	if err != nil || !ok {
		t.Fatalf("update to 3: ok=%v err=%v", ok, err)
	}
	got := testutil.ReloadEvent(t, db, event.ID)
	if got.MaxParticipants != 3 || got.Title != "Renamed" {
		t.Fatalf("event = %+v", got)
	}
}

func TestListTrendingOrdersByLikesThenRecency(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	author := testutil.SeedUser(t, db, models.RoleManager)
	repo := repositories.NewPostgresEventRepository(db)
	likes := repositories.NewPostgresLikeRepository(db)
	ctx := context.Background()

	start := time.Now().Add(48 * time.Hour)
	a := testutil.SeedEvent(t, db, author.ID, 10, start)
	b := testutil.SeedEvent(t, db, author.ID, 10, start)
	c := testutil.SeedEvent(t, db, author.ID, 10, start)
	old := testutil.SeedEvent(t, db, author.ID, 10, start)
	rejected := testutil.SeedEvent(t, db, author.ID, 10, start)

	for i := 0; i < 2; i++ {
		if err := likes.AdjustCounter(ctx, models.LikeTargetEvent, b.ID, 1); err != nil {
			t.Fatal(err)
		}
	}
	if err := likes.AdjustCounter(ctx, models.LikeTargetEvent, rejected.ID, 5); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.TransitionStatus(ctx, rejected.ID, []models.EventStatus{models.EventApproved}, models.EventRejected); err != nil {
		t.Fatal(err)
	}
	// a and c tie on likes; c is newer.
	if err := db.Model(&models.Event{}).Where("id = ?", a.ID).Update("created_at", time.Now().Add(-2*time.Hour)).Error; err != nil {
		t.Fatal(err)
	}
	if err := db.Model(&models.Event{}).Where("id = ?", old.ID).Update("created_at", time.Now().AddDate(0, 0, -10)).Error; err != nil {
		t.Fatal(err)
	}

	events, err := repo.ListTrending(ctx, time.Now().AddDate(0, 0, -7), 10)
	if err != nil {
		t.Fatalf("trending: %v", err)
	}
	want := []uint{b.ID, c.ID, a.ID}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i, id := range want {
		if events[i].ID != id {
			t.Fatalf("position %d = event %d, want %d", i, events[i].ID, id)
		}
	}

	limited, err := repo.ListTrending(ctx, time.Now().AddDate(0, 0, -7), 1)
	if err != nil || len(limited) != 1 || limited[0].ID != b.ID {
		t.Fatalf("limit 1: %+v err=%v", limited, err)
	}
}

func TestStaffMembership(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	author := testutil.SeedUser(t, db, models.RoleManager)
	comanager := testutil.SeedUser(t, db, models.RoleManager)
	outsider := testutil.SeedUser(t, db, models.RoleUser)
	event := testutil.SeedEvent(t, db, author.ID, 5, time.Now().Add(time.Hour))
	repo := repositories.NewPostgresEventRepository(db)
	ctx := context.Background()

	if err := repo.AddManagers(ctx, event.ID, []uint{comanager.ID}); err != nil {
		t.Fatalf("add managers: %v", err)
	}

	for _, tt := range []struct {
		user uint
		want bool
	}{{author.ID, true}, {comanager.ID, true}, {outsider.ID, false}} {
		got, err := repo.IsStaff(ctx, event.ID, tt.user)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("IsStaff(%d) = %v, want %v", tt.user, got, tt.want)
		}
	}

	ids, err := repo.ListStaffIDs(ctx, event.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != author.ID || ids[1] != comanager.ID {
		t.Fatalf("staff ids = %v", ids)
	}

	managed, err := repo.ListByStaff(ctx, comanager.ID)
	if err != nil || len(managed) != 1 || managed[0].ID != event.ID {
		t.Fatalf("ListByStaff = %+v err=%v", managed, err)
	}
}

func TestExpirePending(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	author := testutil.SeedUser(t, db, models.RoleManager)
	repo := repositories.NewPostgresEventRepository(db)
	ctx := context.Background()

	stale := &models.Event{Title: "Stale", StartTime: time.Now().Add(-5 * time.Hour), EndTime: time.Now().Add(-time.Hour), MaxParticipants: 1, AuthorID: author.ID}
	fresh := &models.Event{Title: "Fresh", StartTime: time.Now().Add(time.Hour), EndTime: time.Now().Add(2 * time.Hour), MaxParticipants: 1, AuthorID: author.ID}
	for _, e := range []*models.Event{stale, fresh} {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	n, err := repo.ExpirePending(ctx, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expired = %d, want 1", n)
	}
	if got := testutil.ReloadEvent(t, db, stale.ID).Status; got != models.EventExpired {
		t.Fatalf("stale status = %s", got)
	}
	if got := testutil.ReloadEvent(t, db, fresh.ID).Status; got != models.EventPending {
		t.Fatalf("fresh status = %s", got)
	}
}
