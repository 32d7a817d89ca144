// Package workout holds the entities of the workout tracker, their storage
// and the Service that serves cached reads and invalidating writes.
package workout

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Sternrassler/workout-api/pkg/cache"
	"github.com/Sternrassler/workout-api/pkg/records"
)

// Field limits.
const (
	maxNameLength    = 64
	maxBioLength     = 500
	maxTitleLength   = 200
	maxCommentLength = 2000
	maxKindLength    = 32
)

// User is an athlete.
type User struct {
	ID        string    `json:"id" bson:"-"`
	Name      string    `json:"name" bson:"name"`
	Bio       string    `json:"bio,omitempty" bson:"bio,omitempty"`
	Private   bool      `json:"private" bson:"private"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

// Validate checks the user fields a client can set.
func (u User) Validate() error {
	name := strings.TrimSpace(u.Name)
	if name == "" {
		return invalidf("name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return invalidf("name exceeds %d characters", maxNameLength)
	}
	if utf8.RuneCountInString(u.Bio) > maxBioLength {
		return invalidf("bio exceeds %d characters", maxBioLength)
	}
	return nil
}

// UserUpdate is a partial user change. Nil fields are left untouched.
type UserUpdate struct {
	Name    *string `json:"name,omitempty"`
	Bio     *string `json:"bio,omitempty"`
	Private *bool   `json:"private,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u UserUpdate) Empty() bool {
	return u.Name == nil && u.Bio == nil && u.Private == nil
}

// Apply returns user with the update applied.
func (u UserUpdate) Apply(user User) User {
	if u.Name != nil {
		user.Name = strings.TrimSpace(*u.Name)
	}
	if u.Bio != nil {
		user.Bio = *u.Bio
	}
	if u.Private != nil {
		user.Private = *u.Private
	}
	return user
}

// Seance is one logged workout session.
type Seance struct {
	ID        string    `json:"id" bson:"-"`
	UserID    string    `json:"userId" bson:"user_id"`
	Title     string    `json:"title,omitempty" bson:"title,omitempty"`
	Date      time.Time `json:"date" bson:"date"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

// Validate checks a seance before creation.
func (s Seance) Validate() error {
	if s.UserID == "" {
		return invalidf("userId is required")
	}
	if s.Date.IsZero() {
		return invalidf("date is required")
	}
	if utf8.RuneCountInString(s.Title) > maxTitleLength {
		return invalidf("title exceeds %d characters", maxTitleLength)
	}
	return nil
}

// SeanceSet is a set as stored: the performance plus the verdict it
// earned when it was recorded.
type SeanceSet struct {
	records.Set `bson:",inline"`
	Verdict     records.Verdict `json:"verdict,omitempty" bson:"verdict,omitempty"`
}

// Comment is a remark on a seance, optionally answering another comment.
type Comment struct {
	ID        string    `json:"id" bson:"-"`
	SeanceID  string    `json:"seanceId" bson:"seance_id"`
	UserID    string    `json:"userId" bson:"user_id"`
	ParentID  string    `json:"parentId,omitempty" bson:"parent_id,omitempty"`
	Text      string    `json:"text" bson:"text"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

// Validate checks a comment before creation.
func (c Comment) Validate() error {
	if c.SeanceID == "" {
		return invalidf("seanceId is required")
	}
	if c.UserID == "" {
		return invalidf("userId is required")
	}
	text := strings.TrimSpace(c.Text)
	if text == "" {
		return invalidf("text is required")
	}
	if utf8.RuneCountInString(text) > maxCommentLength {
		return invalidf("text exceeds %d characters", maxCommentLength)
	}
	return nil
}

// Reaction is a short reaction to a seance or to one of its comments.
type Reaction struct {
	ID        string    `json:"id" bson:"-"`
	SeanceID  string    `json:"seanceId" bson:"seance_id"`
	CommentID string    `json:"commentId,omitempty" bson:"comment_id,omitempty"`
	UserID    string    `json:"userId" bson:"user_id"`
	Kind      string    `json:"kind" bson:"kind"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

// Validate checks a reaction before creation.
func (r Reaction) Validate() error {
	if r.SeanceID == "" {
		return invalidf("seanceId is required")
	}
	if r.UserID == "" {
		return invalidf("userId is required")
	}
	if r.Kind == "" {
		return invalidf("kind is required")
	}
	if utf8.RuneCountInString(r.Kind) > maxKindLength {
		return invalidf("kind exceeds %d characters", maxKindLength)
	}
	return nil
}

// Follow links a follower to the user they follow.
type Follow struct {
	FollowerID string    `json:"followerId" bson:"follower_id"`
	FolloweeID string    `json:"followeeId" bson:"followee_id"`
	CreatedAt  time.Time `json:"createdAt" bson:"created_at"`
}

// Validate checks a follow before creation.
func (f Follow) Validate() error {
	if f.FollowerID == "" || f.FolloweeID == "" {
		return invalidf("follower and followee are required")
	}
	if f.FollowerID == f.FolloweeID {
		return invalidf("a user cannot follow themselves")
	}
	return nil
}

// NotificationKind is what triggered a notification.
type NotificationKind string

const (
	NotifyComment  NotificationKind = "comment"
	NotifyReply    NotificationKind = "reply"
	NotifyReaction NotificationKind = "reaction"
	NotifyFollow   NotificationKind = "follow"
)

// Notification tells UserID that ActorID interacted with them.
type Notification struct {
	ID        string           `json:"id" bson:"-"`
	UserID    string           `json:"userId" bson:"user_id"`
	ActorID   string           `json:"actorId" bson:"actor_id"`
	Kind      NotificationKind `json:"kind" bson:"kind"`
	SeanceID  string           `json:"seanceId,omitempty" bson:"seance_id,omitempty"`
	CommentID string           `json:"commentId,omitempty" bson:"comment_id,omitempty"`
	Read      bool             `json:"read" bson:"read"`
	CreatedAt time.Time        `json:"createdAt" bson:"created_at"`
}

// SetFilter selects sets. Zero fields do not filter.
type SetFilter struct {
	UserID     string
	ExerciseID string

	// Format matches the exercise and variation combination, see FormatOf.
	Format string

	Category records.Category
	Unit     records.Unit

	// From and To bound the set date, both inclusive.
	From time.Time
	To   time.Time

	ExcludeSeanceID string
}

// Validate rejects filters that can never match. Reads are scoped to one
// user, so UserID is required.
func (f SetFilter) Validate() error {
	if f.UserID == "" {
		return invalidf("userId is required")
	}
	if f.Category != "" && !f.Category.Valid() {
		return invalidf("unknown category %q", f.Category)
	}
	if f.Unit != "" && !f.Unit.Valid() {
		return invalidf("unknown unit %q", f.Unit)
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return invalidf("to is before from")
	}
	return nil
}

// Matches reports whether s passes every filter.
func (f SetFilter) Matches(s records.Set) bool {
	switch {
	case f.UserID != "" && s.UserID != f.UserID:
		return false
	case f.ExerciseID != "" && s.ExerciseID != f.ExerciseID:
		return false
	case f.Format != "" && FormatOf(s) != f.Format:
		return false
	case f.Unit != "" && s.Unit != f.Unit:
		return false
	case !f.From.IsZero() && s.Date.Before(f.From):
		return false
	case !f.To.IsZero() && s.Date.After(f.To):
		return false
	case f.ExcludeSeanceID != "" && s.SeanceID == f.ExcludeSeanceID:
		return false
	}
	if f.Category != "" {
		c, ok := records.Classify(s.Unit, s.Value)
		if !ok || c != f.Category {
			return false
		}
	}
	return true
}

// params lists every filter input for cache keys. The user is the key
// scope, so it is not repeated here.
func (f SetFilter) params() []cache.Param {
	return []cache.Param{
		cache.P("exercise", f.ExerciseID),
		cache.P("format", f.Format),
		cache.P("category", string(f.Category)),
		cache.P("unit", string(f.Unit)),
		cache.P("from", f.From),
		cache.P("to", f.To),
		cache.P("exclude", f.ExcludeSeanceID),
	}
}

// FormatOf returns the canonical exercise and variation combination of s,
// e.g. "pullup" or "pullup/lsit,weighted". Variation order is irrelevant.
func FormatOf(s records.Set) string {
	if len(s.VariationIDs) == 0 {
		return s.ExerciseID
	}
	vars := append([]string(nil), s.VariationIDs...)
	sort.Strings(vars)
	return s.ExerciseID + "/" + strings.Join(vars, ",")
}

// ExerciseCount is how often an exercise was performed.
type ExerciseCount struct {
	ExerciseID string `json:"exerciseId"`
	Count      int    `json:"count"`
}

// FormatCount is how often an exercise and variation combination was
// performed.
type FormatCount struct {
	Format       string   `json:"format"`
	ExerciseID   string   `json:"exerciseId"`
	VariationIDs []string `json:"variationIds,omitempty"`
	Count        int      `json:"count"`
}

// Stats aggregates the activity of one user.
type Stats struct {
	Sets      int `json:"sets"`
	Seances   int `json:"seances"`
	Exercises int `json:"exercises"`

	// TotalVolume is the sum of value times weight over weighted sets.
	TotalVolume float64 `json:"totalVolume"`

	LastSetAt *time.Time `json:"lastSetAt,omitempty"`
}
