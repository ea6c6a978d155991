package repositories_test

import (
	"context"
	"testing"

	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"github.com/anonto42/volunteer-hub/backend/internal/repositories"
	"github.com/anonto42/volunteer-hub/backend/internal/testutil"
)

func TestUpsertRebindsEndpoint(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	alice := testutil.SeedUser(t, db, models.RoleUser)
	bob := testutil.SeedUser(t, db, models.RoleUser)
	repo := repositories.NewPostgresPushSubscriptionRepository(db)
	ctx := context.Background()

	endpoint := "https://push.example.com/abc"
	first := &models.PushSubscription{UserID: alice.ID, Endpoint: endpoint, P256dh: "k1", Auth: "a1", DeviceName: "laptop"}
	if err := repo.Upsert(ctx, first); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	second := &models.PushSubscription{UserID: bob.ID, Endpoint: endpoint, P256dh: "k2", Auth: "a2", DeviceName: "phone"}
	if err := repo.Upsert(ctx, second); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}

	if second.ID != first.ID {
		t.Fatalf("upsert created a second row: %d vs %d", second.ID, first.ID)
	}
	stored, err := repo.GetByEndpoint(ctx, endpoint)
	if err != nil {
		t.Fatal(err)
	}
	if stored.UserID != bob.ID || stored.P256dh != "k2" || stored.DeviceName != "phone" {
		t.Fatalf("stored = %+v", stored)
	}
	if stored.Provider != models.PushProviderWebPush {
		t.Fatalf("provider = %q", stored.Provider)
	}

	aliceSubs, _ := repo.ListByUser(ctx, alice.ID)
	if len(aliceSubs) != 0 {
		t.Fatalf("alice still has %d subscriptions", len(aliceSubs))
	}
}

func TestDeleteByUserAndEndpointScopesToOwner(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	alice := testutil.SeedUser(t, db, models.RoleUser)
	mallory := testutil.SeedUser(t, db, models.RoleUser)
	repo := repositories.NewPostgresPushSubscriptionRepository(db)
	ctx := context.Background()

	sub := &models.PushSubscription{UserID: alice.ID, Endpoint: "https://push.example.com/x", P256dh: "k", Auth: "a"}
	if err := repo.Upsert(ctx, sub); err != nil {
		t.Fatal(err)
	}

	n, err := repo.DeleteByUserAndEndpoint(ctx, mallory.ID, sub.Endpoint)
	if err != nil || n != 0 {
		t.Fatalf("foreign delete n=%d err=%v", n, err)
	}
	exists, _ := repo.ExistsForUser(ctx, alice.ID, sub.Endpoint)
	if !exists {
		t.Fatal("subscription removed by another user")
	}

	n, err = repo.DeleteAllByUser(ctx, alice.ID)
	if err != nil || n != 1 {
		t.Fatalf("delete all n=%d err=%v", n, err)
	}
}
