package storage

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/asktopedia/backend/internal/models"
)

func (s *MongoStore) CreateUser(ctx context.Context, u *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if u.Badges == nil {
		u.Badges = []string{}
	}
	_, err := s.users.InsertOne(ctx, u)
	return duplicate(err)
}

func (s *MongoStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var u models.User
	if err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var u models.User
	if err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *MongoStore) GetUserByFirebaseUID(ctx context.Context, uid string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var u models.User
	if err := s.users.FindOne(ctx, bson.M{"firebase_uid": uid}).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *MongoStore) LinkFirebaseUID(ctx context.Context, id, uid string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{
		"_id": id,
		"$or": bson.A{
			bson.M{"firebase_uid": bson.M{"$exists": false}},
			bson.M{"firebase_uid": uid},
		},
	}
	return s.updateUser(ctx, filter, bson.M{"$set": bson.M{"firebase_uid": uid, "updated_at": time.Now().UTC()}})
}

func (s *MongoStore) ListUsers(ctx context.Context, limit int) ([]*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cur, err := s.users.Find(ctx, bson.M{}, findOptions(bson.D{{Key: "created_at", Value: -1}}, limit))
	if err != nil {
		return nil, err
	}
	return decodeAll[models.User](ctx, cur)
}

func (s *MongoStore) UpdateUser(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Username != nil {
		set["username"] = *upd.Username
	}
	if upd.Bio != nil {
		set["bio"] = *upd.Bio
	}
	if upd.PhotoURL != nil {
		set["photo_url"] = *upd.PhotoURL
	}
	if upd.Role != nil {
		set["role"] = *upd.Role
	}
	if upd.Banned != nil {
		set["banned"] = *upd.Banned
	}

	return s.updateUser(ctx, bson.M{"_id": id}, bson.M{"$set": set})
}

func (s *MongoStore) updateUser(ctx context.Context, filter bson.M, update interface{}) (*models.User, error) {
	var u models.User
	err := s.users.FindOneAndUpdate(
		ctx,
		filter,
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		return nil, duplicate(notFound(err))
	}
	return &u, nil
}

func (s *MongoStore) ReplacePhotoURL(ctx context.Context, oldURL, newURL string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.users.UpdateMany(ctx,
		bson.M{"photo_url": oldURL},
		bson.M{"$set": bson.M{"photo_url": newURL, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (s *MongoStore) DeleteUser(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.users.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) CountUsers(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return s.users.CountDocuments(ctx, bson.M{})
}

func (s *MongoStore) AddPoints(ctx context.Context, id string, delta int) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	// Pipeline update so the add and the clamp happen in one document write.
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "points", Value: bson.D{{Key: "$max", Value: bson.A{
				0,
				bson.D{{Key: "$add", Value: bson.A{
					bson.D{{Key: "$ifNull", Value: bson.A{"$points", 0}}},
					delta,
				}}},
			}}}},
			{Key: "updated_at", Value: time.Now().UTC()},
		}}},
	}
	return s.updateUser(ctx, bson.M{"_id": id}, update)
}

func (s *MongoStore) IncrementCounter(ctx context.Context, id string, counter models.Counter, delta int) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	update := bson.M{
		"$inc": bson.M{string(counter): delta},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	return s.updateUser(ctx, bson.M{"_id": id}, update)
}

func (s *MongoStore) AddBadges(ctx context.Context, id string, badgeIDs []string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	update := bson.M{"$addToSet": bson.M{"badges": bson.M{"$each": badgeIDs}}}
	return s.updateUser(ctx, bson.M{"_id": id}, update)
}

func (s *MongoStore) TopUsers(ctx context.Context, limit int) ([]*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cur, err := s.users.Find(
		ctx,
		bson.M{"banned": bson.M{"$ne": true}},
		findOptions(bson.D{{Key: "points", Value: -1}, {Key: "created_at", Value: 1}}, limit),
	)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.User](ctx, cur)
}

func (s *MongoStore) CreateBadge(ctx context.Context, b *models.Badge) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := s.badges.InsertOne(ctx, b)
	return duplicate(err)
}

var badgeSort = bson.D{{Key: "points_required", Value: 1}, {Key: "name", Value: 1}}

func (s *MongoStore) ListBadges(ctx context.Context) ([]*models.Badge, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cur, err := s.badges.Find(ctx, bson.M{}, options.Find().SetSort(badgeSort))
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Badge](ctx, cur)
}

func (s *MongoStore) GetBadgesByIDs(ctx context.Context, ids []string) ([]*models.Badge, error) {
	if len(ids) == 0 {
		return []*models.Badge{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cur, err := s.badges.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetSort(badgeSort))
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Badge](ctx, cur)
}
