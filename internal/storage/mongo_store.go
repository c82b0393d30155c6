package storage

import (
	"context"
	"crypto/tls"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const opTimeout = 10 * time.Second

// MongoStore implements Store on a single MongoDB database.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	log    *zap.Logger

	users      *mongo.Collection
	badges     *mongo.Collection
	questions  *mongo.Collection
	answers    *mongo.Collection
	bookmarks  *mongo.Collection
	reports    *mongo.Collection
	activities *mongo.Collection
	flags      *mongo.Collection
	meetups    *mongo.Collection
}

func NewMongoStore(ctx context.Context, mongoURI, dbName string, log *zap.Logger) (*MongoStore, error) {
	if mongoURI == "" || dbName == "" {
		return nil, errors.New("storage: mongo uri and database name are required")
	}

	// Atlas occasionally fails TLS negotiation in some environments unless we force TLS 1.2.
	tlsCfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS12,
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI).SetTLSConfig(tlsCfg))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	db := client.Database(dbName)
	s := &MongoStore{
		client:     client,
		db:         db,
		log:        log,
		users:      db.Collection("users"),
		badges:     db.Collection("badges"),
		questions:  db.Collection("questions"),
		answers:    db.Collection("answers"),
		bookmarks:  db.Collection("bookmarks"),
		reports:    db.Collection("reports"),
		activities: db.Collection("activities"),
		flags:      db.Collection("user_flags"),
		meetups:    db.Collection("meetups"),
	}
	s.ensureIndexes(ctx)

	log.Info("mongodb connected", zap.String("db", dbName))
	return s, nil
}

// ensureIndexes is best-effort; a failed index build is logged, not fatal.
func (s *MongoStore) ensureIndexes(ctx context.Context) {
	caseInsensitive := &options.Collation{Locale: "en", Strength: 2}

	specs := map[*mongo.Collection][]mongo.IndexModel{
		s.users: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetCollation(caseInsensitive)},
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetCollation(caseInsensitive)},
			{Keys: bson.D{{Key: "firebase_uid", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
			{Keys: bson.D{{Key: "points", Value: -1}, {Key: "created_at", Value: 1}}},
		},
		s.badges: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true).SetCollation(caseInsensitive)},
		},
		s.questions: {
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
			{Keys: bson.D{{Key: "tags", Value: 1}}},
			{Keys: bson.D{{Key: "title", Value: "text"}, {Key: "description", Value: "text"}}},
		},
		s.answers: {
			{Keys: bson.D{{Key: "question_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
		},
		s.bookmarks: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "question_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "question_id", Value: 1}}},
		},
		s.reports: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "question_id", Value: 1}}},
			{Keys: bson.D{{Key: "answer_id", Value: 1}}},
			{Keys: bson.D{{Key: "reporter_id", Value: 1}}},
		},
		s.activities: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		s.flags: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		s.meetups: {
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
			{Keys: bson.D{{Key: "latitude", Value: 1}, {Key: "longitude", Value: 1}}},
			{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
			{Keys: bson.D{{Key: "title", Value: "text"}, {Key: "description", Value: "text"}, {Key: "address", Value: "text"}}},
		},
	}

	for col, idx := range specs {
		if _, err := col.Indexes().CreateMany(ctx, idx); err != nil {
			s.log.Warn("index creation failed", zap.String("collection", col.Name()), zap.Error(err))
		}
	}
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping reports whether the database is reachable.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// notFound maps the driver's no-documents error onto ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func duplicate(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func findOptions(sort bson.D, limit int) *options.FindOptions {
	return options.Find().SetSort(sort).SetLimit(int64(clampLimit(limit)))
}

// decodeAll drains a cursor into a slice of pointers, never returning nil.
func decodeAll[T any](ctx context.Context, cur *mongo.Cursor) ([]*T, error) {
	defer cur.Close(ctx)

	out := make([]*T, 0)
	for cur.Next(ctx) {
		var v T
		if err := cur.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
