package feed

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
)

// testgateway is an in-memory Gateway. Setting one of the func fields
// replaces the stored behavior of that call, for error injection.
type testgateway struct {
	mu        sync.Mutex
	seq       int
	activity  map[string]Activity
	comments  map[string][]Comment
	reactions map[string][]Reaction
	calls     map[string]int
	created   []NewReaction
	deleted   []string
	comment   []NewComment

	activityFunc         func(id string) (Activity, error)
	commentsFunc         func(id string) (CommentPage, error)
	reactionsFunc        func(id string) (ReactionPage, error)
	createCommentFunc    func(in NewComment) (Comment, error)
	createReactionFunc   func(in NewReaction) (Reaction, error)
	deleteReactionFunc   func(id string) error
	updateShareCountFunc func(id string) (int, error)

	// beforeCreateReaction runs ahead of the stored createReaction behavior.
	beforeCreateReaction func(in NewReaction)
}

func newTestGateway(acts ...Activity) *testgateway {
	g := &testgateway{
		activity:  make(map[string]Activity),
		comments:  make(map[string][]Comment),
		reactions: make(map[string][]Reaction),
		calls:     make(map[string]int),
	}
	for _, a := range acts {
		g.activity[a.ID] = a
	}
	return g
}

func (g *testgateway) called(op string) {
	g.mu.Lock()
	g.calls[op]++
	g.mu.Unlock()
}

func (g *testgateway) count(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[op]
}

func (g *testgateway) nextID(prefix string) string {
	g.seq++
	return fmt.Sprintf("%s%d", prefix, g.seq)
}

func (g *testgateway) Activities(ctx context.Context) ([]Activity, error) {
	g.called("activities")
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Activity, 0, len(g.activity))
	for _, a := range g.activity {
		out = append(out, a)
	}
	return out, nil
}

func (g *testgateway) Activity(ctx context.Context, id string) (Activity, error) {
	g.called("activity")
	if g.activityFunc != nil {
		return g.activityFunc(id)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	a, ok := g.activity[id]
	if !ok {
		return Activity{}, ErrNotFound
	}
	return a, nil
}

func (g *testgateway) CommentsByActivity(ctx context.Context, id string) (CommentPage, error) {
	g.called("commentsByActivity")
	if g.commentsFunc != nil {
		return g.commentsFunc(id)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	cs := append([]Comment(nil), g.comments[id]...)
	return CommentPage{Comments: cs, TotalComments: len(cs)}, nil
}

func (g *testgateway) ReactionsByActivity(ctx context.Context, id string) (ReactionPage, error) {
	g.called("reactionsByActivity")
	if g.reactionsFunc != nil {
		return g.reactionsFunc(id)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	rs := append([]Reaction(nil), g.reactions[id]...)
	return ReactionPage{Reactions: rs, TotalReactions: len(rs)}, nil
}

func (g *testgateway) ShareCount(ctx context.Context, id string) (int, error) {
	g.called("shareCount")
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.activity[id].ShareCount, nil
}

func (g *testgateway) CreateActivity(ctx context.Context, in NewActivity) (Activity, error) {
	g.called("createActivity")
	g.mu.Lock()
	defer g.mu.Unlock()
	a := Activity{
		ID:          g.nextID("a"),
		UserID:      in.UserID,
		Title:       in.Title,
		Description: in.Description,
		ImgURLs:     in.ImgURLs,
		Files:       in.Files,
	}
	g.activity[a.ID] = a
	return a, nil
}

func (g *testgateway) UpdateActivity(ctx context.Context, in ActivityEdit) (string, error) {
	g.called("updateActivity")
	g.mu.Lock()
	defer g.mu.Unlock()
	a, ok := g.activity[in.ID]
	if !ok {
		return "", ErrNotFound
	}
	a.Title, a.Description = in.Title, in.Description
	g.activity[in.ID] = a
	return a.ID, nil
}

func (g *testgateway) DeleteActivity(ctx context.Context, id string) (string, error) {
	g.called("deleteActivity")
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.activity[id]; !ok {
		return "", ErrNotFound
	}
	delete(g.activity, id)
	return id, nil
}

func (g *testgateway) CreateComment(ctx context.Context, in NewComment) (Comment, error) {
	g.called("createComment")
	g.mu.Lock()
	g.comment = append(g.comment, in)
	g.mu.Unlock()
	if g.createCommentFunc != nil {
		return g.createCommentFunc(in)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	cm := Comment{
		ID:         g.nextID("c"),
		ActivityID: in.ActivityID,
		UserID:     in.UserID,
		Content:    in.Content,
		CreatedAt:  time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	g.comments[in.ActivityID] = append(g.comments[in.ActivityID], cm)
	return cm, nil
}

func (g *testgateway) CreateReaction(ctx context.Context, in NewReaction) (Reaction, error) {
	g.called("createReaction")
	g.mu.Lock()
	g.created = append(g.created, in)
	g.mu.Unlock()
	if g.createReactionFunc != nil {
		return g.createReactionFunc(in)
	}
	if g.beforeCreateReaction != nil {
		g.beforeCreateReaction(in)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	r := Reaction{ID: g.nextID("r"), ActivityID: in.ActivityID, UserID: in.UserID, Type: in.Type}
	g.reactions[in.ActivityID] = append(g.reactions[in.ActivityID], r)
	return r, nil
}

func (g *testgateway) DeleteReaction(ctx context.Context, id string) error {
	g.called("deleteReaction")
	g.mu.Lock()
	g.deleted = append(g.deleted, id)
	g.mu.Unlock()
	if g.deleteReactionFunc != nil {
		return g.deleteReactionFunc(id)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for aid, rs := range g.reactions {
		for i, r := range rs {
			if r.ID == id {
				g.reactions[aid] = append(rs[:i:i], rs[i+1:]...)
				return nil
			}
		}
	}
	return ErrNotDeleted
}

func (g *testgateway) UpdateShareCount(ctx context.Context, id string) (int, error) {
	g.called("updateShareCount")
	if g.updateShareCountFunc != nil {
		return g.updateShareCountFunc(id)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	a := g.activity[id]
	a.ShareCount++
	g.activity[id] = a
	return a.ShareCount, nil
}

// userReactions returns the reactions userID has on activityID.
func (g *testgateway) userReactions(activityID, userID string) []Reaction {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []Reaction
	for _, r := range g.reactions[activityID] {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out
}

// testcache is a Cache with func fields; unset fields behave like NopCache.
type testcache struct {
	commentsFunc     func(id string) (CommentPage, bool, error)
	setCommentsFunc  func(id string, page CommentPage) error
	reactionsFunc    func(id string) (ReactionPage, bool, error)
	setReactionsFunc func(id string, page ReactionPage) error
	invalidateFunc   func(id string) error
}

func (c *testcache) Comments(ctx context.Context, id string) (CommentPage, bool, error) {
	if c.commentsFunc == nil {
		return CommentPage{}, false, nil
	}
	return c.commentsFunc(id)
}

func (c *testcache) SetComments(ctx context.Context, id string, page CommentPage) error {
	if c.setCommentsFunc == nil {
		return nil
	}
	return c.setCommentsFunc(id, page)
}

func (c *testcache) Reactions(ctx context.Context, id string) (ReactionPage, bool, error) {
	if c.reactionsFunc == nil {
		return ReactionPage{}, false, nil
	}
	return c.reactionsFunc(id)
}

func (c *testcache) SetReactions(ctx context.Context, id string, page ReactionPage) error {
	if c.setReactionsFunc == nil {
		return nil
	}
	return c.setReactionsFunc(id, page)
}

func (c *testcache) Invalidate(ctx context.Context, id string) error {
	if c.invalidateFunc == nil {
		return nil
	}
	return c.invalidateFunc(id)
}

type testclipboard struct {
	mu   sync.Mutex
	text string
	err  error
}

func (c *testclipboard) Copy(ctx context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.text = text
	return nil
}

type testshortener func(longURL string) (string, error)

func (f testshortener) Shorten(ctx context.Context, longURL string) (string, error) {
	return f(longURL)
}

type testuploader func(files []Attachment) ([]string, error)

func (f testuploader) Upload(ctx context.Context, files []Attachment) ([]string, error) {
	return f(files)
}

// testclock is a settable clock for notice expiry and pruning.
type testclock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testclock {
	return &testclock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testclock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testclock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestFeed(t *testing.T, g *testgateway) *Feed {
	t.Helper()
	f := &Feed{
		Logger:      slogt.New(t),
		Gateway:     g,
		ShareOrigin: "https://feed.example.com",
	}
	t.Cleanup(f.Close)
	return f
}

// checkLog checks that the log output contains every wanted line.
func checkLog(t *testing.T, got string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(got, w) {
			t.Errorf("Log does not contain %q:\n%s", w, got)
		}
	}
}
