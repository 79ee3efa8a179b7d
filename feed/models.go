package feed

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

var (
	// ErrNotFound is returned when the gateway has no record for an id.
	ErrNotFound = errors.New("not found")
	// ErrNotDeleted is returned when the gateway reports that a delete did nothing.
	ErrNotDeleted = errors.New("not deleted")
	// ErrInvalidReactionType is returned for reaction types outside the closed set.
	ErrInvalidReactionType = errors.New("invalid reaction type")
	// ErrCardClosed is returned by operations on a card that has been closed.
	ErrCardClosed = errors.New("card closed")
	// ErrInvalidPanelAction is returned for an action a panel does not support.
	ErrInvalidPanelAction = errors.New("invalid panel action")
)

// A ReactionType is one of the emotive responses a user can attach to an activity.
type ReactionType string

const (
	ReactionLike  ReactionType = "LIKE"
	ReactionLove  ReactionType = "LOVE"
	ReactionWow   ReactionType = "WOW"
	ReactionAngry ReactionType = "ANGRY"
)

// ReactionTypes lists every reaction type in display order.
var ReactionTypes = []ReactionType{ReactionLike, ReactionLove, ReactionWow, ReactionAngry}

// ParseReactionType parses s case-insensitively.
func ParseReactionType(s string) (ReactionType, error) {
	t := ReactionType(strings.ToUpper(strings.TrimSpace(s)))
	if !lo.Contains(ReactionTypes, t) {
		return "", fmt.Errorf("%w: %q", ErrInvalidReactionType, s)
	}
	return t, nil
}

// An Activity is a user-authored feed post.
type Activity struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	ImgURLs     []string  `json:"img_urls"`
	Files       []string  `json:"files"`
	ShareCount  int       `json:"share_count"`
}

// A Comment is a text response to an activity.
type Comment struct {
	ID         string    `json:"id"`
	ActivityID string    `json:"activity_id"`
	UserID     string    `json:"user_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// A Reaction is a typed response from one user to one activity.
type Reaction struct {
	ID         string       `json:"id"`
	ActivityID string       `json:"activity_id"`
	UserID     string       `json:"user_id"`
	Type       ReactionType `json:"type"`
}

// CommentPage is the result of a commentsByActivity query.
type CommentPage struct {
	Comments      []Comment `json:"comments"`
	TotalComments int       `json:"total_comments"`
}

// ReactionPage is the result of a reactionsByActivity query.
type ReactionPage struct {
	Reactions      []Reaction `json:"reactions"`
	TotalReactions int        `json:"total_reactions"`
}

// ByUser returns the reaction userID left on the page, if any.
func (p ReactionPage) ByUser(userID string) (Reaction, bool) {
	return lo.Find(p.Reactions, func(r Reaction) bool {
		return r.UserID == userID
	})
}

// ReactionCount is the number of reactions of one type.
type ReactionCount struct {
	Type  ReactionType `json:"type"`
	Count int          `json:"count"`
}

// Summary counts the reactions on the page per type. Types nobody used are
// left out.
func (p ReactionPage) Summary() []ReactionCount {
	counts := lo.CountValuesBy(p.Reactions, func(r Reaction) ReactionType {
		return r.Type
	})
	out := make([]ReactionCount, 0, len(counts))
	for _, t := range ReactionTypes {
		if n := counts[t]; n > 0 {
			out = append(out, ReactionCount{Type: t, Count: n})
		}
	}
	return out
}

// NewActivity holds the fields needed to create an activity.
type NewActivity struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description" validate:"required"`
	UserID      string   `json:"user_id" validate:"required"`
	ImgURLs     []string `json:"img_urls"`
	Files       []string `json:"files"`
}

// ActivityEdit holds the editable fields of an activity.
type ActivityEdit struct {
	ID          string `json:"id" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
}

// NewComment holds the fields needed to create a comment.
type NewComment struct {
	Content    string `json:"content" validate:"required"`
	UserID     string `json:"user_id" validate:"required"`
	ActivityID string `json:"activity_id" validate:"required"`
}

// NewReaction holds the fields needed to create a reaction.
type NewReaction struct {
	UserID     string       `json:"user_id" validate:"required"`
	ActivityID string       `json:"activity_id" validate:"required"`
	Type       ReactionType `json:"type" validate:"required,reaction"`
}
