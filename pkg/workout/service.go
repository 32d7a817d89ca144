package workout

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/workout-api/pkg/cache"
	"github.com/Sternrassler/workout-api/pkg/pagination"
	"github.com/Sternrassler/workout-api/pkg/records"
	"github.com/rs/zerolog"
)

const (
	// DefaultTopLimit is the number of entries a top list returns by default.
	DefaultTopLimit = 10

	// MaxTopLimit caps top lists.
	MaxTopLimit = 50
)

// Service serves the workout use cases. Reads go through the cache; writes
// hit the repository and then invalidate what they changed.
type Service struct {
	repo        Repository
	cache       *cache.Cache
	invalidator *cache.Invalidator
	logger      zerolog.Logger
	now         func() time.Time
}

// NewService creates a service on repo and c.
func NewService(repo Repository, c *cache.Cache, logger zerolog.Logger) *Service {
	if repo == nil {
		panic("workout repository cannot be nil")
	}
	if c == nil {
		panic("cache cannot be nil")
	}
	return &Service{
		repo:        repo,
		cache:       c,
		invalidator: cache.NewInvalidator(c, logger),
		logger:      logger,
		now:         time.Now,
	}
}

// Ping checks the repository and the cache store.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository: %w", err)
	}
	if err := s.cache.Store().Ping(ctx); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}

// ClearCache drops every cached read.
func (s *Service) ClearCache(ctx context.Context) error {
	return s.cache.Clear(ctx)
}

// Users

// CreateUser registers a user.
func (s *Service) CreateUser(ctx context.Context, u User) (User, error) {
	if err := u.Validate(); err != nil {
		return User{}, err
	}
	u.ID = ""
	u.CreatedAt = s.now().UTC()

	created, err := s.repo.CreateUser(ctx, u)
	if err != nil {
		return User{}, err
	}
	s.logger.Info().Str("user_id", created.ID).Msg("User created")
	return created, nil
}

// GetUser returns one user.
func (s *Service) GetUser(ctx context.Context, id string) (User, error) {
	key := cache.CacheKey{Family: cache.FamilyUser, UserID: id}
	return cache.GetOrSet(ctx, s.cache, key, func(ctx context.Context) (User, error) {
		return s.repo.GetUser(ctx, id)
	})
}

// UpdateUser changes a user profile.
func (s *Service) UpdateUser(ctx context.Context, id string, upd UserUpdate) (User, error) {
	current, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	if err := upd.Apply(current).Validate(); err != nil {
		return User{}, err
	}

	updated, err := s.repo.UpdateUser(ctx, id, upd)
	if err != nil {
		return User{}, err
	}
	s.invalidator.User(ctx, id)

	s.logger.Info().Str("user_id", id).Msg("User updated")
	return updated, nil
}

// Seances

// CreateSeance logs a session for an existing user. A zero date means now.
func (s *Service) CreateSeance(ctx context.Context, se Seance) (Seance, error) {
	if se.Date.IsZero() {
		se.Date = s.now().UTC()
	}
	if err := se.Validate(); err != nil {
		return Seance{}, err
	}
	if _, err := s.repo.GetUser(ctx, se.UserID); err != nil {
		return Seance{}, err
	}
	se.ID = ""
	se.CreatedAt = s.now().UTC()

	created, err := s.repo.CreateSeance(ctx, se)
	if err != nil {
		return Seance{}, err
	}
	s.invalidator.Seance(ctx, created.UserID, created.ID)

	s.logger.Info().
		Str("user_id", created.UserID).
		Str("seance_id", created.ID).
		Msg("Seance created")
	return created, nil
}

// GetSeance returns one seance.
func (s *Service) GetSeance(ctx context.Context, id string) (Seance, error) {
	key := cache.CacheKey{Family: cache.FamilySeance, SeanceID: id}
	return cache.GetOrSet(ctx, s.cache, key, func(ctx context.Context) (Seance, error) {
		return s.repo.GetSeance(ctx, id)
	})
}

// ListSeances returns one page of the seances of userID, most recent first.
func (s *Service) ListSeances(ctx context.Context, userID string, p pagination.Params) (pagination.Page[Seance], error) {
	p = p.Normalize()
	key := cache.CacheKey{
		Family: cache.FamilySeances,
		UserID: userID,
		Params: []cache.Param{cache.P("page", p.Page), cache.P("limit", p.Limit)},
	}
	return cache.GetOrSet(ctx, s.cache, key, func(ctx context.Context) (pagination.Page[Seance], error) {
		seances, err := s.repo.ListSeances(ctx, userID)
		if err != nil {
			return pagination.Page[Seance]{}, err
		}
		return pagination.Apply(seances, p), nil
	})
}

// DeleteSeance removes a seance together with its sets, comments,
// reactions and the notifications about it.
func (s *Service) DeleteSeance(ctx context.Context, id string) error {
	se, err := s.repo.GetSeance(ctx, id)
	if err != nil {
		return err
	}

	removed, err := s.repo.DeleteSetsBySeance(ctx, id)
	if err != nil {
		return err
	}
	comments, err := s.repo.DeleteCommentsBySeance(ctx, id)
	if err != nil {
		return err
	}
	reactions, err := s.repo.DeleteReactionsBySeance(ctx, id)
	if err != nil {
		return err
	}
	recipients, err := s.repo.DeleteNotificationsBySeance(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteSeance(ctx, id); err != nil {
		return err
	}
	s.invalidator.Seance(ctx, se.UserID, id)
	s.invalidator.Notifications(ctx, recipients...)

	s.logger.Info().
		Str("user_id", se.UserID).
		Str("seance_id", id).
		Int("sets", removed).
		Int("comments", comments).
		Int("reactions", reactions).
		Msg("Seance deleted")
	return nil
}

// Sets

// RecordSet adds a set to a seance and returns it with its verdict. The
// verdict compares the set against every earlier set of the same user and
// format outside this seance.
func (s *Service) RecordSet(ctx context.Context, seanceID string, set records.Set) (SeanceSet, error) {
	se, err := s.repo.GetSeance(ctx, seanceID)
	if err != nil {
		return SeanceSet{}, err
	}

	set.ID = ""
	set.UserID = se.UserID
	set.SeanceID = se.ID
	if set.Date.IsZero() {
		set.Date = se.Date
	}
	if set.ExerciseID == "" {
		return SeanceSet{}, invalidf("exerciseId is required")
	}
	if !set.Valid() {
		return SeanceSet{}, invalidf("set is malformed: unit, value, weight or elastic out of range")
	}

	history, err := s.repo.ListSets(ctx, SetFilter{
		UserID:          se.UserID,
		Format:          FormatOf(set),
		Unit:            set.Unit,
		ExcludeSeanceID: se.ID,
	})
	if err != nil {
		return SeanceSet{}, fmt.Errorf("load history: %w", err)
	}
	verdict := records.IsPersonalRecord(set, plainSets(history))

	created, err := s.repo.CreateSet(ctx, SeanceSet{Set: set, Verdict: verdict})
	if err != nil {
		return SeanceSet{}, err
	}
	s.invalidator.Sets(ctx, se.UserID)

	s.logger.Info().
		Str("user_id", se.UserID).
		Str("seance_id", se.ID).
		Str("exercise_id", set.ExerciseID).
		Str("verdict", string(verdict)).
		Msg("Set recorded")
	return created, nil
}

// ListSets returns one page of the sets matching f, oldest first.
func (s *Service) ListSets(ctx context.Context, f SetFilter, p pagination.Params) (pagination.Page[SeanceSet], error) {
	if err := f.Validate(); err != nil {
		return pagination.Page[SeanceSet]{}, err
	}
	p = p.Normalize()
	key := cache.CacheKey{
		Family: cache.FamilySets,
		UserID: f.UserID,
		Params: append(f.params(), cache.P("page", p.Page), cache.P("limit", p.Limit)),
	}
	return cache.GetOrSet(ctx, s.cache, key, func(ctx context.Context) (pagination.Page[SeanceSet], error) {
		sets, err := s.repo.ListSets(ctx, f)
		if err != nil {
			return pagination.Page[SeanceSet]{}, err
		}
		return pagination.Apply(sets, p), nil
	})
}

// PersonalRecords returns the dominant sets per category of the sets
// matching f.
func (s *Service) PersonalRecords(ctx context.Context, f SetFilter) (records.Summary, error) {
	if err := f.Validate(); err != nil {
		return records.Summary{}, err
	}
	key := cache.CacheKey{Family: cache.FamilyPRs, UserID: f.UserID, Params: f.params()}
	return cache.GetOrSet(ctx, s.cache, key, func(ctx context.Context) (records.Summary, error) {
		sets, err := s.repo.ListSets(ctx, f)
		if err != nil {
			return records.Summary{}, err
		}
		summary := records.Compute(plainSets(sets))
		if summary.Skipped > 0 {
			s.logger.Warn().
				Str("user_id", f.UserID).
				Int("skipped", summary.Skipped).
				Msg("Malformed sets ignored while computing records")
		}
		return summary, nil
	})
}

// TopExercises returns the exercises userID performed most.
func (s *Service) TopExercises(ctx context.Context, userID string, limit int) ([]ExerciseCount, error) {
	limit = clampTop(limit)
	key := cache.CacheKey{Family: cache.FamilyTopExercises, UserID: userID, Params: []cache.Param{cache.P("limit", limit)}}
	return cache.GetOrSet(ctx, s.cache, key, func(ctx context.Context) ([]ExerciseCount, error) {
		sets, err := s.repo.ListSets(ctx, SetFilter{UserID: userID})
		if err != nil {
			return nil, err
		}
		return topExercises(sets, limit), nil
	})
}

// TopFormats returns the exercise and variation combinations userID
// performed most.
func (s *Service) TopFormats(ctx context.Context, userID string, limit int) ([]FormatCount, error) {
	limit = clampTop(limit)
	key := cache.CacheKey{Family: cache.FamilyTopFormats, UserID: userID, Params: []cache.Param{cache.P("limit", limit)}}
	return cache.GetOrSet(ctx, s.cache, key, func(ctx context.Context) ([]FormatCount, error) {
		sets, err := s.repo.ListSets(ctx, SetFilter{UserID: userID})
		if err != nil {
			return nil, err
		}
		return topFormats(sets, limit), nil
	})
}

// Stats aggregates the activity of userID.
func (s *Service) Stats(ctx context.Context, userID string) (Stats, error) {
	key := cache.CacheKey{Family: cache.FamilyStats, UserID: userID}
	return cache.GetOrSet(ctx, s.cache, key, func(ctx context.Context) (Stats, error) {
		sets, err := s.repo.ListSets(ctx, SetFilter{UserID: userID})
		if err != nil {
			return Stats{}, err
		}
		seances, err := s.repo.ListSeances(ctx, userID)
		if err != nil {
			return Stats{}, err
		}
		return computeStats(sets, len(seances)), nil
	})
}

// Comments and reactions

// AddComment comments a seance. A reply must answer a comment of the same
// seance. The seance owner is notified, and so is the parent author for a
// reply.
func (s *Service) AddComment(ctx context.Context, c Comment) (Comment, error) {
	if err := c.Validate(); err != nil {
		return Comment{}, err
	}
	se, err := s.repo.GetSeance(ctx, c.SeanceID)
	if err != nil {
		return Comment{}, err
	}
	var parent Comment
	if c.ParentID != "" {
		if parent, err = s.findComment(ctx, c.SeanceID, c.ParentID); err != nil {
			return Comment{}, err
		}
	}
	c.ID = ""
	c.CreatedAt = s.now().UTC()

	created, err := s.repo.CreateComment(ctx, c)
	if err != nil {
		return Comment{}, err
	}
	s.invalidator.CommentsAndReactions(ctx, c.SeanceID, c.ParentID)

	about := Notification{ActorID: c.UserID, SeanceID: c.SeanceID, CommentID: created.ID}
	if parent.ID != "" {
		s.notify(ctx, about, parent.UserID, NotifyReply)
	}
	if se.UserID != parent.UserID {
		s.notify(ctx, about, se.UserID, NotifyComment)
	}

	s.logger.Info().Str("seance_id", c.SeanceID).Str("comment_id", created.ID).Msg("Comment added")
	return created, nil
}

// ListComments returns the comments of a seance, oldest first.
func (s *Service) ListComments(ctx context.Context, seanceID string) ([]Comment, error) {
	key := cache.CacheKey{Family: cache.FamilyComments, SeanceID: seanceID}
	return cache.GetOrSet(ctx, s.cache, key, func(ctx context.Context) ([]Comment, error) {
		if _, err := s.repo.GetSeance(ctx, seanceID); err != nil {
			return nil, err
		}
		return s.repo.ListComments(ctx, seanceID)
	})
}

// AddReaction reacts to a seance, or to one of its comments when CommentID
// is set. The author of the target is notified.
func (s *Service) AddReaction(ctx context.Context, r Reaction) (Reaction, error) {
	if err := r.Validate(); err != nil {
		return Reaction{}, err
	}
	se, err := s.repo.GetSeance(ctx, r.SeanceID)
	if err != nil {
		return Reaction{}, err
	}
	recipient := se.UserID
	if r.CommentID != "" {
		target, err := s.findComment(ctx, r.SeanceID, r.CommentID)
		if err != nil {
			return Reaction{}, err
		}
		recipient = target.UserID
	}
	r.ID = ""
	r.CreatedAt = s.now().UTC()

	created, err := s.repo.CreateReaction(ctx, r)
	if err != nil {
		return Reaction{}, err
	}
	s.invalidator.CommentsAndReactions(ctx, r.SeanceID, r.CommentID)
	s.notify(ctx, Notification{ActorID: r.UserID, SeanceID: r.SeanceID, CommentID: r.CommentID}, recipient, NotifyReaction)

	s.logger.Info().Str("seance_id", r.SeanceID).Str("reaction_id", created.ID).Msg("Reaction added")
	return created, nil
}

// ListReactions returns the reactions of a seance, or of one of its
// comments.
func (s *Service) ListReactions(ctx context.Context, seanceID, commentID string) ([]Reaction, error) {
	key := cache.CacheKey{
		Family:   cache.FamilyReactions,
		SeanceID: seanceID,
		Params:   []cache.Param{cache.P("comment", commentID)},
	}
	if commentID != "" {
		key.Labels = []string{cache.CommentTag(commentID)}
	}
	return cache.GetOrSet(ctx, s.cache, key, func(ctx context.Context) ([]Reaction, error) {
		if _, err := s.repo.GetSeance(ctx, seanceID); err != nil {
			return nil, err
		}
		return s.repo.ListReactions(ctx, seanceID, commentID)
	})
}

func (s *Service) findComment(ctx context.Context, seanceID, commentID string) (Comment, error) {
	comments, err := s.repo.ListComments(ctx, seanceID)
	if err != nil {
		return Comment{}, err
	}
	for _, c := range comments {
		if c.ID == commentID {
			return c, nil
		}
	}
	return Comment{}, fmt.Errorf("comment %q on seance %q: %w", commentID, seanceID, ErrNotFound)
}

func clampTop(limit int) int {
	switch {
	case limit <= 0:
		return DefaultTopLimit
	case limit > MaxTopLimit:
		return MaxTopLimit
	default:
		return limit
	}
}
