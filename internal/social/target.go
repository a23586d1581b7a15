package social

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/zfogg/circle/internal/models"
)

// Target is the entity a relationship points at, tagged with its type
type Target struct {
	Type models.TargetType `json:"type"`
	ID   string            `json:"id"`
}

// UserTarget returns a Target for a user
func UserTarget(id string) Target {
	return Target{Type: models.TargetUser, ID: id}
}

// PostTarget returns a Target for a post
func PostTarget(id string) Target {
	return Target{Type: models.TargetPost, ID: id}
}

// CommentTarget returns a Target for a comment
func CommentTarget(id string) Target {
	return Target{Type: models.TargetComment, ID: id}
}

func (t Target) String() string {
	return fmt.Sprintf("%s:%s", t.Type, t.ID)
}

func (t Target) canonical() Target {
	t.ID = canonicalID(t.ID)
	return t
}

// canonicalID rewrites a UUID in any accepted spelling (upper case, braces,
// urn prefix) to the lower-case hyphenated form ids are stored in. Other
// strings are returned unchanged and fail resolution later.
func canonicalID(id string) string {
	if u, err := uuid.Parse(id); err == nil {
		return u.String()
	}
	return id
}

// Kind is a user-facing relationship verb
type Kind string

const (
	Follow   Kind = "follow"
	Like     Kind = "like"
	Bookmark Kind = "bookmark"
)

// State is the relationship state reported after a toggle
type State string

const (
	Followed     State = "followed"
	Unfollowed   State = "unfollowed"
	Liked        State = "liked"
	Unliked      State = "unliked"
	Bookmarked   State = "bookmarked"
	Unbookmarked State = "unbookmarked"
	Shared       State = "shared"
)
