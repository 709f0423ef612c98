package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/jupiterclapton/socialfeed/internal/core/domain"
	"github.com/jupiterclapton/socialfeed/internal/core/ports"
)

const postsCollection = "posts"

// DTO interne : les tags bson restent hors du domaine.
type mongoComment struct {
	Username string `bson:"username"`
	Text     string `bson:"text"`
}

type mongoPost struct {
	ID        bson.ObjectID  `bson:"_id,omitempty"`
	Username  string         `bson:"username"`
	Content   string         `bson:"content"`
	Song      string         `bson:"song,omitempty"`
	Image     string         `bson:"image,omitempty"`
	Likes     []string       `bson:"likes"`
	Comments  []mongoComment `bson:"comments"`
	CreatedAt time.Time      `bson:"createdAt"`
	UpdatedAt time.Time      `bson:"updatedAt"`
}

// feedSort : plus récent d'abord, ordre d'insertion inverse à égalité (l'ObjectID est croissant).
var feedSort = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

type MongoPostRepo struct {
	coll *mongo.Collection
}

func NewMongoPostRepo(db *mongo.Database) *MongoPostRepo {
	return &MongoPostRepo{coll: db.Collection(postsCollection)}
}

var _ ports.PostRepository = (*MongoPostRepo)(nil)

// EnsureIndexes crée l'index qui sert le tri du feed.
func (r *MongoPostRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    feedSort,
		Options: options.Index().SetName("feed_order"),
	})
	if err != nil {
		return fmt.Errorf("mongo: create index: %w", err)
	}
	return nil
}

func (r *MongoPostRepo) Save(ctx context.Context, post *domain.Post) error {
	doc := toMongoPost(post)
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("mongo: insert post: %w", err)
	}
	oid, ok := res.InsertedID.(bson.ObjectID)
	if !ok {
		return fmt.Errorf("mongo: unexpected inserted id %T", res.InsertedID)
	}
	post.ID = oid.Hex()
	return nil
}

func (r *MongoPostRepo) FindByID(ctx context.Context, postID string) (*domain.Post, error) {
	oid, err := bson.ObjectIDFromHex(postID)
	if err != nil {
		// Un id mal formé ne peut désigner aucun post
		return nil, domain.ErrPostNotFound
	}

	var doc mongoPost
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrPostNotFound
		}
		return nil, fmt.Errorf("mongo: find post: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *MongoPostRepo) List(ctx context.Context, offset, limit int) ([]*domain.Post, error) {
	if offset < 0 || limit <= 0 {
		return []*domain.Post{}, nil
	}
	opts := options.Find().
		SetSort(feedSort).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: list posts: %w", err)
	}
	var docs []mongoPost
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: decode posts: %w", err)
	}

	posts := make([]*domain.Post, 0, len(docs))
	for i := range docs {
		posts = append(posts, docs[i].toDomain())
	}
	return posts, nil
}

// AppendComment : $push atomique, l'ordre d'insertion est l'ordre d'affichage.
func (r *MongoPostRepo) AppendComment(ctx context.Context, postID string, c domain.Comment) (*domain.Post, error) {
	oid, err := bson.ObjectIDFromHex(postID)
	if err != nil {
		return nil, domain.ErrPostNotFound
	}

	update := bson.M{
		"$push": bson.M{"comments": mongoComment{Username: c.Username, Text: c.Text}},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc mongoPost
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrPostNotFound
		}
		return nil, fmt.Errorf("mongo: push comment: %w", err)
	}
	return doc.toDomain(), nil
}

// SetLike : $addToSet / $pull, idempotent et commutatif.
// On lit le document AVANT la mise à jour pour savoir si l'état a changé.
func (r *MongoPostRepo) SetLike(ctx context.Context, postID, username string, liked bool) (*domain.Post, bool, error) {
	oid, err := bson.ObjectIDFromHex(postID)
	if err != nil {
		return nil, false, domain.ErrPostNotFound
	}

	op := "$pull"
	if liked {
		op = "$addToSet"
	}
	update := bson.M{
		op:     bson.M{"likes": username},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var doc mongoPost
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, domain.ErrPostNotFound
		}
		return nil, false, fmt.Errorf("mongo: set like: %w", err)
	}

	post := doc.toDomain()
	changed := post.SetLike(username, liked)
	return post, changed, nil
}

// MigrateLegacySchema aligne les anciens documents sur le schéma courant :
//   - likes numérique -> [] (valeur conservée dans legacyLikes, non attribuable)
//   - likes/comments absents -> []
//   - comments[].user -> comments[].username
func (r *MongoPostRepo) MigrateLegacySchema(ctx context.Context) error {
	steps := []struct {
		name   string
		filter bson.M
		update mongo.Pipeline
	}{
		{
			name:   "numeric likes",
			filter: bson.M{"likes": bson.M{"$type": "number"}},
			update: mongo.Pipeline{
				{{Key: "$set", Value: bson.M{"legacyLikes": "$likes", "likes": bson.M{"$literal": bson.A{}}}}},
			},
		},
		{
			name:   "missing likes",
			filter: bson.M{"likes": bson.M{"$exists": false}},
			update: mongo.Pipeline{
				{{Key: "$set", Value: bson.M{"likes": bson.M{"$literal": bson.A{}}}}},
			},
		},
		{
			name:   "missing comments",
			filter: bson.M{"comments": bson.M{"$exists": false}},
			update: mongo.Pipeline{
				{{Key: "$set", Value: bson.M{"comments": bson.M{"$literal": bson.A{}}}}},
			},
		},
		{
			name:   "comment author key",
			filter: bson.M{"comments.user": bson.M{"$exists": true}},
			update: mongo.Pipeline{
				{{Key: "$set", Value: bson.M{"comments": bson.M{"$map": bson.M{
					"input": "$comments",
					"as":    "c",
					"in": bson.M{
						"username": bson.M{"$ifNull": bson.A{"$$c.username", "$$c.user"}},
						"text":     "$$c.text",
					},
				}}}}},
			},
		},
	}

	for _, st := range steps {
		res, err := r.coll.UpdateMany(ctx, st.filter, st.update)
		if err != nil {
			return fmt.Errorf("mongo: migrate %s: %w", st.name, err)
		}
		if res.ModifiedCount > 0 {
			slog.InfoContext(ctx, "🔧 Legacy posts migrated", "step", st.name, "count", res.ModifiedCount)
		}
	}
	return nil
}

// --- Mapping ---

func toMongoPost(p *domain.Post) *mongoPost {
	doc := &mongoPost{
		Username:  p.Username,
		Content:   p.Content,
		Song:      p.Song,
		Image:     p.Image,
		Likes:     p.Likes,
		Comments:  make([]mongoComment, len(p.Comments)),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if doc.Likes == nil {
		doc.Likes = []string{}
	}
	for i, c := range p.Comments {
		doc.Comments[i] = mongoComment{Username: c.Username, Text: c.Text}
	}
	if p.ID != "" {
		if oid, err := bson.ObjectIDFromHex(p.ID); err == nil {
			doc.ID = oid
		}
	}
	return doc
}

func (d *mongoPost) toDomain() *domain.Post {
	p := &domain.Post{
		ID:        d.ID.Hex(),
		Username:  d.Username,
		Content:   d.Content,
		Song:      d.Song,
		Image:     d.Image,
		Likes:     d.Likes,
		Comments:  make([]domain.Comment, len(d.Comments)),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if p.Likes == nil {
		p.Likes = []string{}
	}
	for i, c := range d.Comments {
		p.Comments[i] = domain.Comment{Username: c.Username, Text: c.Text}
	}
	return p
}
