package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/edgeee/activityfeed/feed"
)

type activity struct {
	ID          string    `json:"_id"`
	UserID      string    `json:"userId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   timestamp `json:"createdAt"`
	ImgURLs     []string  `json:"imgUrls"`
	Files       []string  `json:"files"`
	ShareCount  *int      `json:"shareCount"`
}

func (a activity) toFeed() feed.Activity {
	out := feed.Activity{
		ID:          a.ID,
		UserID:      a.UserID,
		Title:       a.Title,
		Description: a.Description,
		CreatedAt:   time.Time(a.CreatedAt),
		ImgURLs:     nonNil(a.ImgURLs),
		Files:       nonNil(a.Files),
	}
	if a.ShareCount != nil {
		out.ShareCount = *a.ShareCount
	}
	return out
}

type comment struct {
	ID         string    `json:"_id"`
	UserID     string    `json:"userId"`
	ActivityID string    `json:"activityId"`
	Content    string    `json:"content"`
	CreatedAt  timestamp `json:"createdAt"`
}

func (c comment) toFeed() feed.Comment {
	return feed.Comment{
		ID:         c.ID,
		ActivityID: c.ActivityID,
		UserID:     c.UserID,
		Content:    c.Content,
		CreatedAt:  time.Time(c.CreatedAt),
	}
}

type reaction struct {
	ID         string `json:"_id"`
	UserID     string `json:"userId"`
	ActivityID string `json:"activityId"`
	Type       string `json:"type"`
}

func (r reaction) toFeed() feed.Reaction {
	return feed.Reaction{
		ID:         r.ID,
		ActivityID: r.ActivityID,
		UserID:     r.UserID,
		Type:       feed.ReactionType(r.Type),
	}
}

// timestamp decodes createdAt, which the API sends as an RFC 3339 string
// or as epoch milliseconds, either as a number or a numeric string.
type timestamp time.Time

func (t *timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*t = timestamp{}
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var ms json.Number
		if err := json.Unmarshal(b, &ms); err != nil {
			return fmt.Errorf("decode timestamp %s: %w", b, err)
		}
		s = ms.String()
	}
	if s == "" {
		*t = timestamp{}
		return nil
	}

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*t = timestamp(time.UnixMilli(ms).UTC())
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*t = timestamp(time.UnixMilli(int64(f)).UTC())
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("decode timestamp %q: %w", s, err)
	}
	*t = timestamp(parsed)
	return nil
}

// deleted decodes the deleteReaction result: a boolean, the deleted id or null.
type deleted bool

func (d *deleted) UnmarshalJSON(b []byte) error {
	switch {
	case bytes.Equal(b, []byte("null")), bytes.Equal(b, []byte("false")), bytes.Equal(b, []byte(`""`)):
		*d = false
	case bytes.Equal(b, []byte("true")):
		*d = true
	default:
		var id string
		if err := json.Unmarshal(b, &id); err != nil {
			return fmt.Errorf("decode deleteReaction result %s: %w", b, err)
		}
		*d = true
	}
	return nil
}

const queryActivities = `
  query Activities {
    activities {
      _id
      userId
      title
      description
      createdAt
      imgUrls
      files
      shareCount
    }
  }
`

const queryActivity = `
  query GetActivity($activityId: String!) {
    activity(id: $activityId) {
      _id
      userId
      title
      description
      createdAt
      imgUrls
      files
      shareCount
    }
  }
`

const queryComments = `
  query CommentsByActivity($activityId: String!) {
    commentsByActivity(activityId: $activityId) {
      comments {
        _id
        userId
        activityId
        content
        createdAt
      }
      totalComments
    }
  }
`

const queryReactions = `
  query ReactionsByActivity($activityId: String!) {
    reactionsByActivity(activityId: $activityId) {
      reactions {
        _id
        userId
        activityId
        type
      }
      totalReactions
    }
  }
`

const queryShareCount = `
  query ShareCount($activityId: String!) {
    shareCount(activityId: $activityId)
  }
`

const mutationCreateActivity = `
  mutation CreateActivity($title: String!, $description: String!, $userId: String!, $imgUrls: [String!], $files: [String!]) {
    createActivity(title: $title, description: $description, userId: $userId, imgUrls: $imgUrls, files: $files) {
      _id
      userId
      title
      description
      createdAt
      imgUrls
      files
      shareCount
    }
  }
`

const mutationUpdateActivity = `
  mutation UpdateActivity($activityId: String!, $title: String!, $description: String!) {
    updateActivity(activityId: $activityId, title: $title, description: $description) {
      _id
    }
  }
`

const mutationDeleteActivity = `
  mutation DeleteActivity($activityId: String!) {
    deleteActivity(activityId: $activityId) {
      _id
    }
  }
`

const mutationCreateComment = `
  mutation CreateComment($content: String!, $userId: String!, $activityId: String!) {
    createComment(content: $content, userId: $userId, activityId: $activityId) {
      _id
      content
      userId
      activityId
      createdAt
    }
  }
`

const mutationCreateReaction = `
  mutation CreateReaction($userId: String!, $activityId: String!, $type: String!) {
    createReaction(userId: $userId, activityId: $activityId, type: $type) {
      _id
      userId
      activityId
      type
    }
  }
`

const mutationDeleteReaction = `
  mutation DeleteReaction($reactionId: String!) {
    deleteReaction(reactionId: $reactionId)
  }
`

const mutationUpdateShareCount = `
  mutation UpdateShareCount($activityId: String!) {
    updateShareCount(activityId: $activityId) {
      _id
      shareCount
    }
  }
`
