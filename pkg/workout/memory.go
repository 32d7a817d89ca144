package workout

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepository keeps every entity in process. It backs tests and
// single-node deployments without a database.
type MemoryRepository struct {
	mu            sync.RWMutex
	users         map[string]User
	seances       map[string]Seance
	sets          []SeanceSet
	comments      []Comment
	reactions     []Reaction
	follows       []Follow
	notifications []Notification
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:   make(map[string]User),
		seances: make(map[string]Seance),
	}
}

var _ Repository = (*MemoryRepository)(nil)

func newID() string {
	return uuid.NewString()
}

// CreateUser implements Repository.
func (r *MemoryRepository) CreateUser(_ context.Context, u User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u.ID = newID()
	r.users[u.ID] = u
	return u, nil
}

// GetUser implements Repository.
func (r *MemoryRepository) GetUser(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return User{}, notFound("user", id)
	}
	return u, nil
}

// UpdateUser implements Repository.
func (r *MemoryRepository) UpdateUser(_ context.Context, id string, upd UserUpdate) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return User{}, notFound("user", id)
	}
	u = upd.Apply(u)
	r.users[id] = u
	return u, nil
}

// CreateSeance implements Repository.
func (r *MemoryRepository) CreateSeance(_ context.Context, s Seance) (Seance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s.ID = newID()
	r.seances[s.ID] = s
	return s, nil
}

// GetSeance implements Repository.
func (r *MemoryRepository) GetSeance(_ context.Context, id string) (Seance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.seances[id]
	if !ok {
		return Seance{}, notFound("seance", id)
	}
	return s, nil
}

// ListSeances implements Repository.
func (r *MemoryRepository) ListSeances(_ context.Context, userID string) ([]Seance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Seance, 0)
	for _, s := range r.seances {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// DeleteSeance implements Repository.
func (r *MemoryRepository) DeleteSeance(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.seances[id]; !ok {
		return notFound("seance", id)
	}
	delete(r.seances, id)
	return nil
}

// CreateSet implements Repository.
func (r *MemoryRepository) CreateSet(_ context.Context, s SeanceSet) (SeanceSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s = copySet(s)
	s.ID = newID()
	r.sets = append(r.sets, s)
	return copySet(s), nil
}

// ListSets implements Repository. Sets with equal dates keep insertion
// order.
func (r *MemoryRepository) ListSets(_ context.Context, f SetFilter) ([]SeanceSet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]SeanceSet, 0)
	for _, s := range r.sets {
		if f.Matches(s.Set) {
			out = append(out, copySet(s))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

// DeleteSetsBySeance implements Repository.
func (r *MemoryRepository) DeleteSetsBySeance(_ context.Context, seanceID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int
	r.sets, removed = deleteWhere(r.sets, func(s SeanceSet) bool { return s.SeanceID == seanceID })
	return removed, nil
}

// CreateComment implements Repository.
func (r *MemoryRepository) CreateComment(_ context.Context, c Comment) (Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c.ID = newID()
	r.comments = append(r.comments, c)
	return c, nil
}

// ListComments implements Repository.
func (r *MemoryRepository) ListComments(_ context.Context, seanceID string) ([]Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Comment, 0)
	for _, c := range r.comments {
		if c.SeanceID == seanceID {
			out = append(out, c)
		}
	}
	return out, nil
}

// CreateReaction implements Repository.
func (r *MemoryRepository) CreateReaction(_ context.Context, re Reaction) (Reaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	re.ID = newID()
	r.reactions = append(r.reactions, re)
	return re, nil
}

// ListReactions implements Repository.
func (r *MemoryRepository) ListReactions(_ context.Context, seanceID, commentID string) ([]Reaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Reaction, 0)
	for _, re := range r.reactions {
		if re.SeanceID != seanceID {
			continue
		}
		if commentID != "" && re.CommentID != commentID {
			continue
		}
		out = append(out, re)
	}
	return out, nil
}

// DeleteCommentsBySeance implements Repository.
func (r *MemoryRepository) DeleteCommentsBySeance(_ context.Context, seanceID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int
	r.comments, removed = deleteWhere(r.comments, func(c Comment) bool { return c.SeanceID == seanceID })
	return removed, nil
}

// DeleteReactionsBySeance implements Repository.
func (r *MemoryRepository) DeleteReactionsBySeance(_ context.Context, seanceID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int
	r.reactions, removed = deleteWhere(r.reactions, func(re Reaction) bool { return re.SeanceID == seanceID })
	return removed, nil
}

// CreateFollow implements Repository.
func (r *MemoryRepository) CreateFollow(_ context.Context, f Follow) (Follow, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.follows {
		if existing.FollowerID == f.FollowerID && existing.FolloweeID == f.FolloweeID {
			return existing, false, nil
		}
	}
	r.follows = append(r.follows, f)
	return f, true, nil
}

// DeleteFollow implements Repository.
func (r *MemoryRepository) DeleteFollow(_ context.Context, followerID, followeeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int
	r.follows, removed = deleteWhere(r.follows, func(f Follow) bool {
		return f.FollowerID == followerID && f.FolloweeID == followeeID
	})
	if removed == 0 {
		return notFound("follow", followerID+"->"+followeeID)
	}
	return nil
}

// ListFollowers implements Repository.
func (r *MemoryRepository) ListFollowers(_ context.Context, userID string) ([]Follow, error) {
	return r.listFollows(func(f Follow) bool { return f.FolloweeID == userID }), nil
}

// ListFollowing implements Repository.
func (r *MemoryRepository) ListFollowing(_ context.Context, userID string) ([]Follow, error) {
	return r.listFollows(func(f Follow) bool { return f.FollowerID == userID }), nil
}

func (r *MemoryRepository) listFollows(match func(Follow) bool) []Follow {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Follow, 0)
	for i := len(r.follows) - 1; i >= 0; i-- {
		if match(r.follows[i]) {
			out = append(out, r.follows[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// CreateNotification implements Repository.
func (r *MemoryRepository) CreateNotification(_ context.Context, n Notification) (Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n.ID = newID()
	r.notifications = append(r.notifications, n)
	return n, nil
}

// ListNotifications implements Repository. Notifications created at the
// same instant are returned in reverse insertion order.
func (r *MemoryRepository) ListNotifications(_ context.Context, userID string) ([]Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Notification, 0)
	for i := len(r.notifications) - 1; i >= 0; i-- {
		if r.notifications[i].UserID == userID {
			out = append(out, r.notifications[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// MarkNotificationRead implements Repository.
func (r *MemoryRepository) MarkNotificationRead(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.notifications {
		if r.notifications[i].ID == id && r.notifications[i].UserID == userID {
			r.notifications[i].Read = true
			return nil
		}
	}
	return notFound("notification", id)
}

// DeleteNotificationsBySeance implements Repository.
func (r *MemoryRepository) DeleteNotificationsBySeance(_ context.Context, seanceID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool)
	recipients := make([]string, 0)
	for _, n := range r.notifications {
		if n.SeanceID == seanceID && !seen[n.UserID] {
			seen[n.UserID] = true
			recipients = append(recipients, n.UserID)
		}
	}
	r.notifications, _ = deleteWhere(r.notifications, func(n Notification) bool { return n.SeanceID == seanceID })
	sort.Strings(recipients)
	return recipients, nil
}

// Ping implements Repository.
func (r *MemoryRepository) Ping(context.Context) error {
	return nil
}

// copySet deep-copies the pointer fields of s.
func copySet(s SeanceSet) SeanceSet {
	if s.WeightLoad != nil {
		w := *s.WeightLoad
		s.WeightLoad = &w
	}
	if s.Elastic != nil {
		e := *s.Elastic
		s.Elastic = &e
	}
	if s.VariationIDs != nil {
		s.VariationIDs = append([]string(nil), s.VariationIDs...)
	}
	return s
}

// deleteWhere filters items in place and returns how many were dropped.
func deleteWhere[T any](items []T, drop func(T) bool) ([]T, int) {
	kept := items[:0]
	for _, it := range items {
		if !drop(it) {
			kept = append(kept, it)
		}
	}
	removed := len(items) - len(kept)
	clear(items[len(kept):])
	return kept, removed
}
