package workout

import "context"

// Repository persists workout entities.
//
// Implementations return ErrNotFound for unknown ids, including ids that
// are malformed for the backend. Returned values never alias internal
// state.
type Repository interface {
	CreateUser(ctx context.Context, u User) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	UpdateUser(ctx context.Context, id string, upd UserUpdate) (User, error)

	CreateSeance(ctx context.Context, s Seance) (Seance, error)
	GetSeance(ctx context.Context, id string) (Seance, error)
	// ListSeances returns the seances of userID, most recent first.
	ListSeances(ctx context.Context, userID string) ([]Seance, error)
	DeleteSeance(ctx context.Context, id string) error

	CreateSet(ctx context.Context, s SeanceSet) (SeanceSet, error)
	// ListSets returns the matching sets sorted by ascending date.
	ListSets(ctx context.Context, f SetFilter) ([]SeanceSet, error)
	// DeleteSetsBySeance removes the sets of a seance and returns how many
	// were removed.
	DeleteSetsBySeance(ctx context.Context, seanceID string) (int, error)

	CreateComment(ctx context.Context, c Comment) (Comment, error)
	// ListComments returns the comments of a seance, oldest first.
	ListComments(ctx context.Context, seanceID string) ([]Comment, error)
	DeleteCommentsBySeance(ctx context.Context, seanceID string) (int, error)

	CreateReaction(ctx context.Context, r Reaction) (Reaction, error)
	// ListReactions returns the reactions of a seance, restricted to one
	// comment when commentID is not empty.
	ListReactions(ctx context.Context, seanceID, commentID string) ([]Reaction, error)
	DeleteReactionsBySeance(ctx context.Context, seanceID string) (int, error)

	// CreateFollow stores f unless the pair already exists. created is
	// false for an existing pair, which is left untouched.
	CreateFollow(ctx context.Context, f Follow) (stored Follow, created bool, err error)
	DeleteFollow(ctx context.Context, followerID, followeeID string) error
	// ListFollowers returns the follows targeting userID, newest first.
	ListFollowers(ctx context.Context, userID string) ([]Follow, error)
	// ListFollowing returns the follows made by userID, newest first.
	ListFollowing(ctx context.Context, userID string) ([]Follow, error)

	CreateNotification(ctx context.Context, n Notification) (Notification, error)
	// ListNotifications returns the notifications of userID, newest first.
	ListNotifications(ctx context.Context, userID string) ([]Notification, error)
	// MarkNotificationRead returns ErrNotFound when id does not belong to
	// userID.
	MarkNotificationRead(ctx context.Context, userID, id string) error
	// DeleteNotificationsBySeance removes the notifications about a seance
	// and returns their distinct recipients.
	DeleteNotificationsBySeance(ctx context.Context, seanceID string) ([]string, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}
