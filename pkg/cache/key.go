package cache

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Family names a read shape. It is the first segment of every key and the
// unit of prefix invalidation.
type Family string

// Read families. User-scoped families carry a UserID, seance-scoped ones a
// SeanceID; the scope is fixed per family so prefixes stay predictable.
const (
	FamilySets          Family = "sets"          // user
	FamilyPRs           Family = "prs"           // user
	FamilyTopExercises  Family = "top_exercises" // user
	FamilyTopFormats    Family = "top_formats"   // user
	FamilyStats         Family = "stats"         // user
	FamilySeances       Family = "seances"       // user
	FamilyUser          Family = "user"          // user
	FamilyFollowers     Family = "followers"     // user
	FamilyFollowing     Family = "following"     // user
	FamilyNotifications Family = "notifications" // user
	FamilySeance        Family = "seance"        // seance
	FamilyComments      Family = "comments"      // seance
	FamilyReactions     Family = "reactions"     // seance
)

// Param is one named input of a cached computation.
type Param struct {
	Name  string
	Value any
}

// P builds a Param.
func P(name string, value any) Param {
	return Param{Name: name, Value: value}
}

// CacheKey identifies a cached computation result.
type CacheKey struct {
	// Family is the read shape (e.g. "sets").
	Family Family

	// UserID scopes user-owned families.
	UserID string

	// SeanceID scopes seance-owned families.
	SeanceID string

	// Params are every other input that affects the result, in the order the
	// read path declares them. Missing values render as empty strings.
	Params []Param

	// Labels are extra invalidation tags attached on write.
	Labels []string
}

// String renders the key deterministically.
// Format: family_user=<id>:seance=<id>:name=value:...
//
// Example:
//
//	sets_user=42:seance=:exercise=squat:unit=:page=1:limit=20
func (k CacheKey) String() string {
	var b strings.Builder
	b.WriteString(k.ScopePrefix())
	for i, p := range k.Params {
		if i > 0 {
			b.WriteByte(':')
		}
		b.WriteString(p.Name)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(formatValue(p.Value)))
	}
	return b.String()
}

// FamilyPrefix is the prefix shared by every key of the family.
func (k CacheKey) FamilyPrefix() string {
	return string(k.Family) + "_"
}

// ScopePrefix is the prefix shared by every key of the family with the same
// user and seance scope.
func (k CacheKey) ScopePrefix() string {
	return k.FamilyPrefix() +
		"user=" + url.QueryEscape(k.UserID) +
		":seance=" + url.QueryEscape(k.SeanceID) + ":"
}

// Tags returns the invalidation groups the entry is registered under.
func (k CacheKey) Tags() []string {
	tags := []string{FamilyTag(k.Family)}
	if k.UserID != "" {
		tags = append(tags, UserTag(k.Family, k.UserID))
	}
	if k.SeanceID != "" {
		tags = append(tags, SeanceTag(k.SeanceID))
	}
	return append(tags, k.Labels...)
}

// FamilyTag groups every entry of a family.
func FamilyTag(f Family) string {
	return "family:" + string(f)
}

// UserTag groups the entries of a family owned by one user.
func UserTag(f Family, userID string) string {
	return "family:" + string(f) + ":user:" + userID
}

// SeanceTag groups every entry scoped to one seance.
func SeanceTag(seanceID string) string {
	return "seance:" + seanceID
}

// CommentTag groups entries that depend on one comment.
func CommentTag(commentID string) string {
	return "comment:" + commentID
}

// formatValue renders a parameter without locale or pointer identity.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case *string:
		if x == nil {
			return ""
		}
		return *x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case *float64:
		if x == nil {
			return ""
		}
		return strconv.FormatFloat(*x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if x == nil {
			return ""
		}
		return formatValue(*x)
	case []string:
		return strings.Join(x, ",")
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
