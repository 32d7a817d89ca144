package cache

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// setFamilies are the user-scoped read shapes derived from recorded sets.
var setFamilies = []Family{FamilySets, FamilyPRs, FamilyTopExercises, FamilyTopFormats, FamilyStats}

// Invalidator groups the invalidations of one write event behind one call,
// so mutation code never lists read shapes by hand.
//
// Every event removes entries both by scope prefix and by tag. Failures are
// logged and swallowed: a failed invalidation only leaves entries until
// their TTL runs out.
type Invalidator struct {
	cache   *Cache
	logger  zerolog.Logger
	timeout time.Duration
}

// NewInvalidator creates an invalidator for c.
func NewInvalidator(c *Cache, logger zerolog.Logger) *Invalidator {
	return &Invalidator{
		cache:   c,
		logger:  logger,
		timeout: 5 * time.Second,
	}
}

// Sets invalidates every read derived from the sets of userID: set lists,
// personal records, top exercises, top formats and statistics.
func (i *Invalidator) Sets(ctx context.Context, userID string) {
	i.run(ctx, "sets", i.userScopes(userID, setFamilies...))
}

// Seance invalidates what a seance change touches: the set-derived reads of
// its owner, the owner's seance lists and everything scoped to the seance.
func (i *Invalidator) Seance(ctx context.Context, userID, seanceID string) {
	scopes := i.userScopes(userID, append([]Family{FamilySeances}, setFamilies...)...)
	if seanceID != "" {
		scopes = append(scopes, i.seanceScopes(seanceID, FamilySeance, FamilyComments, FamilyReactions)...)
		scopes = append(scopes, scope{tag: SeanceTag(seanceID)})
	}
	i.run(ctx, "seance", scopes)
}

// User invalidates the profile of userID, their seance lists and every
// set-derived read.
func (i *Invalidator) User(ctx context.Context, userID string) {
	i.run(ctx, "user", i.userScopes(userID, append([]Family{FamilyUser, FamilySeances}, setFamilies...)...))
}

// CommentsAndReactions invalidates the comments and reactions of a seance,
// and the reads depending on commentID when one is given.
func (i *Invalidator) CommentsAndReactions(ctx context.Context, seanceID, commentID string) {
	scopes := i.seanceScopes(seanceID, FamilyComments, FamilyReactions)
	if commentID != "" {
		scopes = append(scopes, scope{tag: CommentTag(commentID)})
	}
	i.run(ctx, "comments_reactions", scopes)
}

// Follow invalidates the follow lists a follow or unfollow changes, and the
// notifications of the followed user.
func (i *Invalidator) Follow(ctx context.Context, followerID, followeeID string) {
	scopes := i.userScopes(followerID, FamilyFollowing)
	scopes = append(scopes, i.userScopes(followeeID, FamilyFollowers, FamilyNotifications)...)
	i.run(ctx, "follow", scopes)
}

// Notifications invalidates the notification lists of every recipient.
func (i *Invalidator) Notifications(ctx context.Context, userIDs ...string) {
	if len(userIDs) == 0 {
		return
	}
	var scopes []scope
	for _, id := range userIDs {
		scopes = append(scopes, i.userScopes(id, FamilyNotifications)...)
	}
	i.run(ctx, "notifications", scopes)
}

// scope is one prefix and/or one tag to invalidate.
type scope struct {
	prefix string
	tag    string
}

func (i *Invalidator) userScopes(userID string, families ...Family) []scope {
	scopes := make([]scope, 0, len(families))
	for _, f := range families {
		scopes = append(scopes, scope{
			prefix: CacheKey{Family: f, UserID: userID}.ScopePrefix(),
			tag:    UserTag(f, userID),
		})
	}
	return scopes
}

func (i *Invalidator) seanceScopes(seanceID string, families ...Family) []scope {
	scopes := make([]scope, 0, len(families))
	for _, f := range families {
		scopes = append(scopes, scope{
			prefix: CacheKey{Family: f, SeanceID: seanceID}.ScopePrefix(),
		})
	}
	return scopes
}

func (i *Invalidator) run(ctx context.Context, event string, scopes []scope) {
	// The mutation already committed; its caller going away must not leave
	// stale entries behind.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), i.timeout)
	defer cancel()

	var errs []error
	for _, s := range scopes {
		if s.prefix != "" {
			if err := i.cache.InvalidatePrefix(ctx, s.prefix); err != nil {
				errs = append(errs, err)
			}
		}
		if s.tag != "" {
			if err := i.cache.InvalidateTags(ctx, s.tag); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if err := errors.Join(errs...); err != nil {
		i.logger.Warn().Err(err).Str("event", event).Msg("Cache invalidation failed, entries stay until TTL")
		return
	}
	i.logger.Debug().Str("event", event).Int("scopes", len(scopes)).Msg("Cache invalidated")
}
