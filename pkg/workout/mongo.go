package workout

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Sternrassler/workout-api/pkg/records"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names.
const (
	collUsers         = "users"
	collSeances       = "seances"
	collSets          = "sets"
	collComments      = "comments"
	collReactions     = "reactions"
	collFollows       = "follows"
	collNotifications = "notifications"
)

// MongoRepository stores entities in MongoDB. Ids are ObjectID hex strings.
type MongoRepository struct {
	db            *mongo.Database
	users         *mongo.Collection
	seances       *mongo.Collection
	sets          *mongo.Collection
	comments      *mongo.Collection
	reactions     *mongo.Collection
	follows       *mongo.Collection
	notifications *mongo.Collection
}

// NewMongoRepository creates a repository on db.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	if db == nil {
		panic("mongo database cannot be nil")
	}
	return &MongoRepository{
		db:            db,
		users:         db.Collection(collUsers),
		seances:       db.Collection(collSeances),
		sets:          db.Collection(collSets),
		comments:      db.Collection(collComments),
		reactions:     db.Collection(collReactions),
		follows:       db.Collection(collFollows),
		notifications: db.Collection(collNotifications),
	}
}

var _ Repository = (*MongoRepository)(nil)

// document pairs an entity with its ObjectID.
type document[T any] struct {
	ID     primitive.ObjectID `bson:"_id,omitempty"`
	Entity T                  `bson:",inline"`
}

// setDocument adds the derived fields ListSets filters on server side.
type setDocument struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	Set      SeanceSet          `bson:",inline"`
	Format   string             `bson:"format"`
	Category records.Category   `bson:"category,omitempty"`
}

// EnsureIndexes creates the indexes backing the list queries.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	indexes := map[*mongo.Collection][]mongo.IndexModel{
		r.seances: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: -1}}},
		},
		r.sets: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: 1}}},
			{Keys: bson.D{{Key: "seance_id", Value: 1}}},
		},
		r.comments: {
			{Keys: bson.D{{Key: "seance_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		r.reactions: {
			{Keys: bson.D{{Key: "seance_id", Value: 1}, {Key: "comment_id", Value: 1}}},
		},
		r.follows: {
			{
				Keys:    bson.D{{Key: "follower_id", Value: 1}, {Key: "followee_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "followee_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		r.notifications: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "seance_id", Value: 1}}},
		},
	}
	for coll, models := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

// objectID parses id. Malformed ids cannot exist, so they are not found.
func objectID(kind, id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, notFound(kind, id)
	}
	return oid, nil
}

func insert[T any](ctx context.Context, coll *mongo.Collection, entity T) (string, error) {
	res, err := coll.InsertOne(ctx, document[T]{Entity: entity})
	if err != nil {
		return "", fmt.Errorf("insert into %s: %w", coll.Name(), err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("insert into %s: unexpected id type %T", coll.Name(), res.InsertedID)
	}
	return oid.Hex(), nil
}

func findByID[T any](ctx context.Context, coll *mongo.Collection, kind, id string) (T, error) {
	var doc document[T]
	oid, err := objectID(kind, id)
	if err != nil {
		return doc.Entity, err
	}
	if err := coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return doc.Entity, notFound(kind, id)
		}
		return doc.Entity, fmt.Errorf("find %s: %w", kind, err)
	}
	return doc.Entity, nil
}

// findAll decodes every matching document and hands each to withID so the
// caller can set the entity id.
func findAll[T any](ctx context.Context, coll *mongo.Collection, filter any, opts *options.FindOptions, withID func(T, string) T) ([]T, error) {
	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", coll.Name(), err)
	}
	defer cur.Close(ctx)

	out := make([]T, 0)
	for cur.Next(ctx) {
		var doc document[T]
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", coll.Name(), err)
		}
		out = append(out, withID(doc.Entity, doc.ID.Hex()))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", coll.Name(), err)
	}
	return out, nil
}

// CreateUser implements Repository.
func (r *MongoRepository) CreateUser(ctx context.Context, u User) (User, error) {
	id, err := insert(ctx, r.users, u)
	if err != nil {
		return User{}, err
	}
	u.ID = id
	return u, nil
}

// GetUser implements Repository.
func (r *MongoRepository) GetUser(ctx context.Context, id string) (User, error) {
	u, err := findByID[User](ctx, r.users, "user", id)
	if err != nil {
		return User{}, err
	}
	u.ID = id
	return u, nil
}

// UpdateUser implements Repository.
func (r *MongoRepository) UpdateUser(ctx context.Context, id string, upd UserUpdate) (User, error) {
	if upd.Empty() {
		return r.GetUser(ctx, id)
	}
	oid, err := objectID("user", id)
	if err != nil {
		return User{}, err
	}

	set := bson.M{}
	if upd.Name != nil {
		set["name"] = upd.Apply(User{}).Name
	}
	if upd.Bio != nil {
		set["bio"] = *upd.Bio
	}
	if upd.Private != nil {
		set["private"] = *upd.Private
	}

	var doc document[User]
	err = r.users.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return User{}, notFound("user", id)
		}
		return User{}, fmt.Errorf("update user: %w", err)
	}
	doc.Entity.ID = id
	return doc.Entity, nil
}

// CreateSeance implements Repository.
func (r *MongoRepository) CreateSeance(ctx context.Context, s Seance) (Seance, error) {
	id, err := insert(ctx, r.seances, s)
	if err != nil {
		return Seance{}, err
	}
	s.ID = id
	return s, nil
}

// GetSeance implements Repository.
func (r *MongoRepository) GetSeance(ctx context.Context, id string) (Seance, error) {
	s, err := findByID[Seance](ctx, r.seances, "seance", id)
	if err != nil {
		return Seance{}, err
	}
	s.ID = id
	return s, nil
}

// ListSeances implements Repository.
func (r *MongoRepository) ListSeances(ctx context.Context, userID string) ([]Seance, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: 1}})
	return findAll(ctx, r.seances, bson.M{"user_id": userID}, opts, func(s Seance, id string) Seance {
		s.ID = id
		return s
	})
}

// DeleteSeance implements Repository.
func (r *MongoRepository) DeleteSeance(ctx context.Context, id string) error {
	oid, err := objectID("seance", id)
	if err != nil {
		return err
	}
	res, err := r.seances.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete seance: %w", err)
	}
	if res.DeletedCount == 0 {
		return notFound("seance", id)
	}
	return nil
}

// CreateSet implements Repository.
func (r *MongoRepository) CreateSet(ctx context.Context, s SeanceSet) (SeanceSet, error) {
	doc := setDocument{Set: s, Format: FormatOf(s.Set)}
	if c, ok := records.Classify(s.Unit, s.Value); ok {
		doc.Category = c
	}

	res, err := r.sets.InsertOne(ctx, doc)
	if err != nil {
		return SeanceSet{}, fmt.Errorf("insert set: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return SeanceSet{}, fmt.Errorf("insert set: unexpected id type %T", res.InsertedID)
	}
	s.ID = oid.Hex()
	return s, nil
}

// setQuery translates f into a MongoDB filter.
func setQuery(f SetFilter) bson.M {
	q := bson.M{}
	if f.UserID != "" {
		q["user_id"] = f.UserID
	}
	if f.ExerciseID != "" {
		q["exercise_id"] = f.ExerciseID
	}
	if f.Format != "" {
		q["format"] = f.Format
	}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.Unit != "" {
		q["unit"] = f.Unit
	}
	if !f.From.IsZero() || !f.To.IsZero() {
		date := bson.M{}
		if !f.From.IsZero() {
			date["$gte"] = f.From
		}
		if !f.To.IsZero() {
			date["$lte"] = f.To
		}
		q["date"] = date
	}
	if f.ExcludeSeanceID != "" {
		q["seance_id"] = bson.M{"$ne": f.ExcludeSeanceID}
	}
	return q
}

// ListSets implements Repository.
func (r *MongoRepository) ListSets(ctx context.Context, f SetFilter) ([]SeanceSet, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.sets.Find(ctx, setQuery(f), opts)
	if err != nil {
		return nil, fmt.Errorf("find sets: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]SeanceSet, 0)
	for cur.Next(ctx) {
		var doc setDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode set: %w", err)
		}
		doc.Set.ID = doc.ID.Hex()
		out = append(out, doc.Set)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate sets: %w", err)
	}
	return out, nil
}

// DeleteSetsBySeance implements Repository.
func (r *MongoRepository) DeleteSetsBySeance(ctx context.Context, seanceID string) (int, error) {
	res, err := r.sets.DeleteMany(ctx, bson.M{"seance_id": seanceID})
	if err != nil {
		return 0, fmt.Errorf("delete sets: %w", err)
	}
	return int(res.DeletedCount), nil
}

// CreateComment implements Repository.
func (r *MongoRepository) CreateComment(ctx context.Context, c Comment) (Comment, error) {
	id, err := insert(ctx, r.comments, c)
	if err != nil {
		return Comment{}, err
	}
	c.ID = id
	return c, nil
}

// ListComments implements Repository.
func (r *MongoRepository) ListComments(ctx context.Context, seanceID string) ([]Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	return findAll(ctx, r.comments, bson.M{"seance_id": seanceID}, opts, func(c Comment, id string) Comment {
		c.ID = id
		return c
	})
}

// CreateReaction implements Repository.
func (r *MongoRepository) CreateReaction(ctx context.Context, re Reaction) (Reaction, error) {
	id, err := insert(ctx, r.reactions, re)
	if err != nil {
		return Reaction{}, err
	}
	re.ID = id
	return re, nil
}

// ListReactions implements Repository.
func (r *MongoRepository) ListReactions(ctx context.Context, seanceID, commentID string) ([]Reaction, error) {
	q := bson.M{"seance_id": seanceID}
	if commentID != "" {
		q["comment_id"] = commentID
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	return findAll(ctx, r.reactions, q, opts, func(re Reaction, id string) Reaction {
		re.ID = id
		return re
	})
}

// DeleteCommentsBySeance implements Repository.
func (r *MongoRepository) DeleteCommentsBySeance(ctx context.Context, seanceID string) (int, error) {
	res, err := r.comments.DeleteMany(ctx, bson.M{"seance_id": seanceID})
	if err != nil {
		return 0, fmt.Errorf("delete comments: %w", err)
	}
	return int(res.DeletedCount), nil
}

// DeleteReactionsBySeance implements Repository.
func (r *MongoRepository) DeleteReactionsBySeance(ctx context.Context, seanceID string) (int, error) {
	res, err := r.reactions.DeleteMany(ctx, bson.M{"seance_id": seanceID})
	if err != nil {
		return 0, fmt.Errorf("delete reactions: %w", err)
	}
	return int(res.DeletedCount), nil
}

func followPair(followerID, followeeID string) bson.M {
	return bson.M{"follower_id": followerID, "followee_id": followeeID}
}

// CreateFollow implements Repository. The unique pair index makes the
// upsert idempotent.
func (r *MongoRepository) CreateFollow(ctx context.Context, f Follow) (Follow, bool, error) {
	res, err := r.follows.UpdateOne(ctx,
		followPair(f.FollowerID, f.FolloweeID),
		bson.M{"$setOnInsert": bson.M{"created_at": f.CreatedAt}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return Follow{}, false, fmt.Errorf("upsert follow: %w", err)
	}
	if res.UpsertedCount > 0 {
		return f, true, nil
	}

	var doc document[Follow]
	if err := r.follows.FindOne(ctx, followPair(f.FollowerID, f.FolloweeID)).Decode(&doc); err != nil {
		return Follow{}, false, fmt.Errorf("find follow: %w", err)
	}
	return doc.Entity, false, nil
}

// DeleteFollow implements Repository.
func (r *MongoRepository) DeleteFollow(ctx context.Context, followerID, followeeID string) error {
	res, err := r.follows.DeleteOne(ctx, followPair(followerID, followeeID))
	if err != nil {
		return fmt.Errorf("delete follow: %w", err)
	}
	if res.DeletedCount == 0 {
		return notFound("follow", followerID+"->"+followeeID)
	}
	return nil
}

var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

// ListFollowers implements Repository.
func (r *MongoRepository) ListFollowers(ctx context.Context, userID string) ([]Follow, error) {
	return findAll(ctx, r.follows, bson.M{"followee_id": userID}, options.Find().SetSort(newestFirst), keepFollow)
}

// ListFollowing implements Repository.
func (r *MongoRepository) ListFollowing(ctx context.Context, userID string) ([]Follow, error) {
	return findAll(ctx, r.follows, bson.M{"follower_id": userID}, options.Find().SetSort(newestFirst), keepFollow)
}

// keepFollow drops the document id; a follow is identified by its pair.
func keepFollow(f Follow, _ string) Follow { return f }

// CreateNotification implements Repository.
func (r *MongoRepository) CreateNotification(ctx context.Context, n Notification) (Notification, error) {
	id, err := insert(ctx, r.notifications, n)
	if err != nil {
		return Notification{}, err
	}
	n.ID = id
	return n, nil
}

// ListNotifications implements Repository.
func (r *MongoRepository) ListNotifications(ctx context.Context, userID string) ([]Notification, error) {
	opts := options.Find().SetSort(newestFirst)
	return findAll(ctx, r.notifications, bson.M{"user_id": userID}, opts, func(n Notification, id string) Notification {
		n.ID = id
		return n
	})
}

// MarkNotificationRead implements Repository.
func (r *MongoRepository) MarkNotificationRead(ctx context.Context, userID, id string) error {
	oid, err := objectID("notification", id)
	if err != nil {
		return err
	}
	res, err := r.notifications.UpdateOne(ctx,
		bson.M{"_id": oid, "user_id": userID},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if res.MatchedCount == 0 {
		return notFound("notification", id)
	}
	return nil
}

// DeleteNotificationsBySeance implements Repository.
func (r *MongoRepository) DeleteNotificationsBySeance(ctx context.Context, seanceID string) ([]string, error) {
	filter := bson.M{"seance_id": seanceID}
	values, err := r.notifications.Distinct(ctx, "user_id", filter)
	if err != nil {
		return nil, fmt.Errorf("list notification recipients: %w", err)
	}
	if _, err := r.notifications.DeleteMany(ctx, filter); err != nil {
		return nil, fmt.Errorf("delete notifications: %w", err)
	}

	recipients := make([]string, 0, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok {
			recipients = append(recipients, id)
		}
	}
	sort.Strings(recipients)
	return recipients, nil
}

// Ping implements Repository.
func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.db.Client().Ping(ctx, readpref.Primary())
}
