package services

import (
	"context"
	"testing"
	"time"

	"github.com/anonto42/volunteer-hub/backend/internal/apperrors"
	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"github.com/anonto42/volunteer-hub/backend/internal/repositories"
	"github.com/anonto42/volunteer-hub/backend/internal/testutil"
	"go.uber.org/zap"
)

func TestToggleLikeIsIdempotentPerPair(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	ctx := context.Background()
	author := testutil.SeedUser(t, db, models.RoleManager)
	alice := testutil.SeedUser(t, db, models.RoleUser)
	bob := testutil.SeedUser(t, db, models.RoleUser)
	event := testutil.SeedEvent(t, db, author.ID, 5, time.Now().Add(time.Hour))
	svc := NewLikeService(db, repositories.NewPostgresLikeRepository(db), zap.NewNop())

	steps := []struct {
		user      uint
		wantLiked bool
		wantCount int
	}{
		{alice.ID, true, 1},
		{bob.ID, true, 2},
		{alice.ID, false, 1},
		{alice.ID, true, 2},
		{bob.ID, false, 1},
		{alice.ID, false, 0},
	}
	for i, step := range steps {
		got, err := svc.Toggle(ctx, step.user, models.LikeTargetEvent, event.ID)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if got.Liked != step.wantLiked || got.Count != step.wantCount {
			t.Fatalf("step %d: got %+v, want liked=%v count=%d", i, got, step.wantLiked, step.wantCount)
		}
	}
	if n := testutil.ReloadEvent(t, db, event.ID).Likes; n != 0 {
		t.Fatalf("event likes = %d", n)
	}
}

func TestToggleLikeOnPost(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, db, models.RoleUser)
	posts := repositories.NewPostgresPostRepository(db)
	post := &models.Post{AuthorID: user.ID, Content: "Thanks everyone who came out"}
	if err := posts.CreatePost(ctx, post); err != nil {
		t.Fatal(err)
	}
	svc := NewLikeService(db, repositories.NewPostgresLikeRepository(db), zap.NewNop())

	got, err := svc.Toggle(ctx, user.ID, models.LikeTargetPost, post.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Liked || got.Count != 1 {
		t.Fatalf("got %+v", got)
	}
	stored, err := posts.GetPostByID(ctx, post.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.LikeCount != 1 {
		t.Fatalf("like_count = %d", stored.LikeCount)
	}
}

func TestToggleLikeErrors(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	user := testutil.SeedUser(t, db, models.RoleUser)
	svc := NewLikeService(db, repositories.NewPostgresLikeRepository(db), zap.NewNop())

	_, err := svc.Toggle(context.Background(), user.ID, models.LikeTargetEvent, 404)
	wantKind(t, err, apperrors.KindNotFound)

	_, err = svc.Toggle(context.Background(), user.ID, "comment", 1)
	wantKind(t, err, apperrors.KindValidation)
}
