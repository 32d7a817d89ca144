package workout

import (
	"context"

	"github.com/Sternrassler/workout-api/pkg/cache"
	"github.com/Sternrassler/workout-api/pkg/pagination"
)

// Follow makes followerID follow followeeID. Following twice is a no-op
// that returns the existing follow. Only a new follow notifies the
// followee.
func (s *Service) Follow(ctx context.Context, followerID, followeeID string) (Follow, error) {
	f := Follow{FollowerID: followerID, FolloweeID: followeeID, CreatedAt: s.now().UTC()}
	if err := f.Validate(); err != nil {
		return Follow{}, err
	}
	for _, id := range []string{followerID, followeeID} {
		if _, err := s.repo.GetUser(ctx, id); err != nil {
			return Follow{}, err
		}
	}

	stored, created, err := s.repo.CreateFollow(ctx, f)
	if err != nil {
		return Follow{}, err
	}
	if !created {
		return stored, nil
	}
	s.invalidator.Follow(ctx, followerID, followeeID)
	s.notify(ctx, Notification{ActorID: followerID}, followeeID, NotifyFollow)

	s.logger.Info().Str("follower_id", followerID).Str("followee_id", followeeID).Msg("User followed")
	return stored, nil
}

// Unfollow removes a follow. It returns ErrNotFound when followerID does
// not follow followeeID.
func (s *Service) Unfollow(ctx context.Context, followerID, followeeID string) error {
	if err := s.repo.DeleteFollow(ctx, followerID, followeeID); err != nil {
		return err
	}
	s.invalidator.Follow(ctx, followerID, followeeID)

	s.logger.Info().Str("follower_id", followerID).Str("followee_id", followeeID).Msg("User unfollowed")
	return nil
}

// ListFollowers returns who follows userID, newest first.
func (s *Service) ListFollowers(ctx context.Context, userID string) ([]Follow, error) {
	key := cache.CacheKey{Family: cache.FamilyFollowers, UserID: userID}
	return cache.GetOrSet(ctx, s.cache, key, func(ctx context.Context) ([]Follow, error) {
		if _, err := s.repo.GetUser(ctx, userID); err != nil {
			return nil, err
		}
		return s.repo.ListFollowers(ctx, userID)
	})
}

// ListFollowing returns who userID follows, newest first.
func (s *Service) ListFollowing(ctx context.Context, userID string) ([]Follow, error) {
	key := cache.CacheKey{Family: cache.FamilyFollowing, UserID: userID}
	return cache.GetOrSet(ctx, s.cache, key, func(ctx context.Context) ([]Follow, error) {
		if _, err := s.repo.GetUser(ctx, userID); err != nil {
			return nil, err
		}
		return s.repo.ListFollowing(ctx, userID)
	})
}

// ListNotifications returns one page of the notifications of userID,
// newest first.
func (s *Service) ListNotifications(ctx context.Context, userID string, p pagination.Params) (pagination.Page[Notification], error) {
	p = p.Normalize()
	key := cache.CacheKey{
		Family: cache.FamilyNotifications,
		UserID: userID,
		Params: []cache.Param{cache.P("page", p.Page), cache.P("limit", p.Limit)},
	}
	return cache.GetOrSet(ctx, s.cache, key, func(ctx context.Context) (pagination.Page[Notification], error) {
		if _, err := s.repo.GetUser(ctx, userID); err != nil {
			return pagination.Page[Notification]{}, err
		}
		notifications, err := s.repo.ListNotifications(ctx, userID)
		if err != nil {
			return pagination.Page[Notification]{}, err
		}
		return pagination.Apply(notifications, p), nil
	})
}

// MarkNotificationRead flags one notification of userID as read.
func (s *Service) MarkNotificationRead(ctx context.Context, userID, id string) error {
	if err := s.repo.MarkNotificationRead(ctx, userID, id); err != nil {
		return err
	}
	s.invalidator.Notifications(ctx, userID)
	return nil
}

// notify stores a notification of kind for recipient. Nobody is notified
// of their own actions. The triggering write already succeeded, so a
// failure is logged and dropped.
func (s *Service) notify(ctx context.Context, n Notification, recipient string, kind NotificationKind) {
	if recipient == "" || recipient == n.ActorID {
		return
	}
	n.ID = ""
	n.UserID = recipient
	n.Kind = kind
	n.CreatedAt = s.now().UTC()

	if _, err := s.repo.CreateNotification(ctx, n); err != nil {
		s.logger.Warn().Err(err).
			Str("user_id", recipient).
			Str("kind", string(kind)).
			Msg("Notification dropped")
		return
	}
	s.invalidator.Notifications(ctx, recipient)
}
