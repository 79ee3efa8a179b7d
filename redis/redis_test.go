package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"

	"github.com/edgeee/activityfeed/feed"
)

func newTestRedis(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	r, err := Connect(context.Background(), mr.Addr(), ttl)
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r, mr
}

func TestConnect_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	if _, err := Connect(context.Background(), addr, 0); err == nil {
		t.Error("Connect() expected error")
	}
}

func TestRedis_Comments(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRedis(t, 0)

	if _, ok, err := r.Comments(ctx, "A1"); err != nil || ok {
		t.Fatalf("Comments() on empty cache = %v, %v", ok, err)
	}

	page := feed.CommentPage{
		Comments: []feed.Comment{
			{ID: "c2", ActivityID: "A1", UserID: "u2", Content: "second", CreatedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)},
			{ID: "c1", ActivityID: "A1", UserID: "u1", Content: "first"},
		},
		TotalComments: 5,
	}
	if err := r.SetComments(ctx, "A1", page); err != nil {
		t.Fatalf("SetComments() error: %v", err)
	}

	got, ok, err := r.Comments(ctx, "A1")
	if err != nil || !ok {
		t.Fatalf("Comments() = %v, %v", ok, err)
	}
	if diff := cmp.Diff(page, got); diff != "" {
		t.Errorf("Page mismatch (-want +got):\n%s", diff)
	}

	// Replacing drops items that are gone.
	smaller := feed.CommentPage{
		Comments:      []feed.Comment{{ID: "c3", ActivityID: "A1", Content: "only"}},
		TotalComments: 1,
	}
	if err := r.SetComments(ctx, "A1", smaller); err != nil {
		t.Fatal(err)
	}
	got, _, _ = r.Comments(ctx, "A1")
	if diff := cmp.Diff(smaller, got); diff != "" {
		t.Errorf("Page mismatch (-want +got):\n%s", diff)
	}
	if n, _ := r.cli.Exists(ctx, itemKey("A1", kindComments, "c1")).Result(); n != 0 {
		t.Error("Replaced comment hash still stored")
	}
}

func TestRedis_EmptyPage(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRedis(t, 0)

	if err := r.SetReactions(ctx, "A1", feed.ReactionPage{}); err != nil {
		t.Fatal(err)
	}
	got, ok, err := r.Reactions(ctx, "A1")
	if err != nil || !ok {
		t.Fatalf("Reactions() = %v, %v", ok, err)
	}
	if got.TotalReactions != 0 || len(got.Reactions) != 0 {
		t.Errorf("Got page %+v", got)
	}
	if _, ok, _ := r.Comments(ctx, "A1"); ok {
		t.Error("Comments cached without being set")
	}
}

func TestRedis_Reactions(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRedis(t, 0)

	page := feed.ReactionPage{
		Reactions: []feed.Reaction{
			{ID: "r1", ActivityID: "A1", UserID: "u1", Type: feed.ReactionLike},
			{ID: "r2", ActivityID: "A1", UserID: "u2", Type: feed.ReactionAngry},
		},
		TotalReactions: 2,
	}
	if err := r.SetReactions(ctx, "A1", page); err != nil {
		t.Fatalf("SetReactions() error: %v", err)
	}
	got, ok, err := r.Reactions(ctx, "A1")
	if err != nil || !ok {
		t.Fatalf("Reactions() = %v, %v", ok, err)
	}
	if diff := cmp.Diff(page, got); diff != "" {
		t.Errorf("Page mismatch (-want +got):\n%s", diff)
	}
}

func TestRedis_Invalidate(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRedis(t, 0)

	_ = r.SetComments(ctx, "A1", feed.CommentPage{Comments: []feed.Comment{{ID: "c1"}}, TotalComments: 1})
	_ = r.SetReactions(ctx, "A1", feed.ReactionPage{Reactions: []feed.Reaction{{ID: "r1"}}, TotalReactions: 1})
	_ = r.SetComments(ctx, "A2", feed.CommentPage{TotalComments: 0})

	if err := r.Invalidate(ctx, "A1"); err != nil {
		t.Fatalf("Invalidate() error: %v", err)
	}
	if _, ok, _ := r.Comments(ctx, "A1"); ok {
		t.Error("Comments still cached")
	}
	if _, ok, _ := r.Reactions(ctx, "A1"); ok {
		t.Error("Reactions still cached")
	}
	if _, ok, _ := r.Comments(ctx, "A2"); !ok {
		t.Error("Other activity was invalidated")
	}
	if keys := mr.Keys(); len(keys) != 1 {
		t.Errorf("Got keys %v, want only the A2 comment total", keys)
	}
}

func TestRedis_TTL(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRedis(t, time.Minute)

	_ = r.SetComments(ctx, "A1", feed.CommentPage{Comments: []feed.Comment{{ID: "c1"}}, TotalComments: 1})
	if _, ok, _ := r.Comments(ctx, "A1"); !ok {
		t.Fatal("Comments not cached")
	}

	mr.FastForward(2 * time.Minute)
	if _, ok, _ := r.Comments(ctx, "A1"); ok {
		t.Error("Comments still cached after the TTL")
	}
}

func TestRedis_TTLPerPage(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRedis(t, time.Minute)

	_ = r.SetComments(ctx, "A1", feed.CommentPage{Comments: []feed.Comment{{ID: "c1"}}, TotalComments: 1})
	mr.FastForward(50 * time.Second)
	_ = r.SetReactions(ctx, "A1", feed.ReactionPage{Reactions: []feed.Reaction{{ID: "r1"}}, TotalReactions: 1})
	mr.FastForward(20 * time.Second)

	if page, ok, err := r.Comments(ctx, "A1"); err != nil || ok {
		t.Errorf("Comments() after expiry = %+v, %v, %v; want a miss", page, ok, err)
	}
	if _, ok, err := r.Reactions(ctx, "A1"); err != nil || !ok {
		t.Errorf("Reactions() = %v, %v; want the newer page", ok, err)
	}
}
