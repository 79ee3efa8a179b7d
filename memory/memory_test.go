package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/edgeee/activityfeed/feed"
)

func newTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	c, err := New(100, ttl)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestCache_Pages(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, time.Minute)

	if _, ok, err := c.Comments(ctx, "A1"); ok || err != nil {
		t.Fatalf("Comments() on empty cache = %v, %v", ok, err)
	}

	comments := feed.CommentPage{
		Comments: []feed.Comment{
			{ID: "c1", ActivityID: "A1", UserID: "u1", Content: "hello", CreatedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)},
		},
		TotalComments: 3,
	}
	reactions := feed.ReactionPage{
		Reactions:      []feed.Reaction{{ID: "r1", ActivityID: "A1", UserID: "u1", Type: feed.ReactionWow}},
		TotalReactions: 1,
	}
	if err := c.SetComments(ctx, "A1", comments); err != nil {
		t.Fatalf("SetComments() error: %v", err)
	}
	if err := c.SetReactions(ctx, "A1", reactions); err != nil {
		t.Fatalf("SetReactions() error: %v", err)
	}

	gotC, ok, err := c.Comments(ctx, "A1")
	if err != nil || !ok {
		t.Fatalf("Comments() = %v, %v", ok, err)
	}
	if diff := cmp.Diff(comments, gotC); diff != "" {
		t.Errorf("Comments mismatch (-want +got):\n%s", diff)
	}
	gotR, ok, err := c.Reactions(ctx, "A1")
	if err != nil || !ok {
		t.Fatalf("Reactions() = %v, %v", ok, err)
	}
	if diff := cmp.Diff(reactions, gotR); diff != "" {
		t.Errorf("Reactions mismatch (-want +got):\n%s", diff)
	}

	// The cache holds a copy.
	gotC.Comments[0].Content = "changed"
	again, _, _ := c.Comments(ctx, "A1")
	if again.Comments[0].Content != "hello" {
		t.Error("Cached page shares memory with the caller")
	}
}

func TestCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, 0)

	_ = c.SetComments(ctx, "A1", feed.CommentPage{TotalComments: 1})
	_ = c.SetReactions(ctx, "A1", feed.ReactionPage{TotalReactions: 1})
	_ = c.SetComments(ctx, "A2", feed.CommentPage{TotalComments: 2})

	if err := c.Invalidate(ctx, "A1"); err != nil {
		t.Fatalf("Invalidate() error: %v", err)
	}
	if _, ok, _ := c.Comments(ctx, "A1"); ok {
		t.Error("Comments still cached")
	}
	if _, ok, _ := c.Reactions(ctx, "A1"); ok {
		t.Error("Reactions still cached")
	}
	if p, ok, _ := c.Comments(ctx, "A2"); !ok || p.TotalComments != 2 {
		t.Error("Other activity was invalidated")
	}
}

func TestCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, 50*time.Millisecond)

	_ = c.SetComments(ctx, "A1", feed.CommentPage{TotalComments: 1})
	time.Sleep(100 * time.Millisecond)

	if _, ok, _ := c.Comments(ctx, "A1"); ok {
		t.Error("Comments still cached after the TTL")
	}
}

func TestCache_CorruptValue(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, 0)

	// 0xc1 is never a valid msgpack byte.
	c.rc.Set(commentsKey("A1"), []byte{0xc1}, 1)
	c.rc.Set(reactionsKey("A1"), []byte{0xc1}, 1)
	c.rc.Wait()

	if _, ok, err := c.Comments(ctx, "A1"); ok || err == nil {
		t.Errorf("Comments() on a corrupt value = %v, %v; want an error", ok, err)
	}
	if _, ok, err := c.Reactions(ctx, "A1"); ok || err == nil {
		t.Errorf("Reactions() on a corrupt value = %v, %v; want an error", ok, err)
	}
	if _, ok, err := c.Reactions(ctx, "A2"); ok || err != nil {
		t.Errorf("Reactions() on an absent key = %v, %v; want a miss", ok, err)
	}
}
