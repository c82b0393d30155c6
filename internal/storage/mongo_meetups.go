package storage

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/asktopedia/backend/internal/models"
)

const earthRadiusMiles = 3959.0

type mongoGeoPoint struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"` // [lng, lat]
}

func geoPoint(lat, lng float64) mongoGeoPoint {
	return mongoGeoPoint{Type: "Point", Coordinates: []float64{lng, lat}}
}

// mongoMeetupDoc adds the GeoJSON location the 2dsphere index needs.
type mongoMeetupDoc struct {
	ID          string        `bson:"_id"`
	UserID      string        `bson:"user_id"`
	Title       string        `bson:"title"`
	Description string        `bson:"description"`
	Address     string        `bson:"address"`
	Latitude    float64       `bson:"latitude"`
	Longitude   float64       `bson:"longitude"`
	StartDate   time.Time     `bson:"start_date"`
	EndDate     time.Time     `bson:"end_date"`
	Attendees   []string      `bson:"attendees"`
	CreatedAt   time.Time     `bson:"created_at"`
	Location    mongoGeoPoint `bson:"location"`
}

func meetupDocToModel(d *mongoMeetupDoc) *models.Meetup {
	attendees := d.Attendees
	if attendees == nil {
		attendees = []string{}
	}
	return &models.Meetup{
		ID:          d.ID,
		UserID:      d.UserID,
		Title:       d.Title,
		Description: d.Description,
		Address:     d.Address,
		Latitude:    d.Latitude,
		Longitude:   d.Longitude,
		StartDate:   d.StartDate,
		EndDate:     d.EndDate,
		Attendees:   attendees,
		CreatedAt:   d.CreatedAt,
	}
}

func (s *MongoStore) CreateMeetup(ctx context.Context, m *models.Meetup) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	attendees := m.Attendees
	if attendees == nil {
		attendees = []string{}
	}
	doc := mongoMeetupDoc{
		ID:          m.ID,
		UserID:      m.UserID,
		Title:       m.Title,
		Description: m.Description,
		Address:     m.Address,
		Latitude:    m.Latitude,
		Longitude:   m.Longitude,
		StartDate:   m.StartDate,
		EndDate:     m.EndDate,
		Attendees:   attendees,
		CreatedAt:   m.CreatedAt,
		Location:    geoPoint(m.Latitude, m.Longitude),
	}
	_, err := s.meetups.InsertOne(ctx, doc)
	return err
}

func (s *MongoStore) GetMeetup(ctx context.Context, id string) (*models.Meetup, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var d mongoMeetupDoc
	if err := s.meetups.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return nil, notFound(err)
	}
	return meetupDocToModel(&d), nil
}

func (s *MongoStore) updateMeetup(ctx context.Context, id string, update bson.M) (*models.Meetup, error) {
	var d mongoMeetupDoc
	err := s.meetups.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if err != nil {
		return nil, notFound(err)
	}
	return meetupDocToModel(&d), nil
}

func (s *MongoStore) UpdateMeetup(ctx context.Context, id string, req *models.UpdateMeetupRequest) (*models.Meetup, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return s.updateMeetup(ctx, id, bson.M{
		"$set": bson.M{
			"title":       req.Title,
			"description": req.Description,
			"address":     req.Address,
			"latitude":    req.Latitude,
			"longitude":   req.Longitude,
			"start_date":  req.StartDate,
			"end_date":    req.EndDate,
			"location":    geoPoint(req.Latitude, req.Longitude),
		},
	})
}

func (s *MongoStore) SetAttendance(ctx context.Context, id, userID string, attending bool) (*models.Meetup, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	op := "$pull"
	if attending {
		op = "$addToSet"
	}
	return s.updateMeetup(ctx, id, bson.M{op: bson.M{"attendees": userID}})
}

func (s *MongoStore) DeleteMeetup(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.meetups.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteMeetupsByUser(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := s.meetups.DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}

func (s *MongoStore) findMeetups(ctx context.Context, filter bson.M, limit int) ([]*models.Meetup, error) {
	cur, err := s.meetups.Find(ctx, filter, findOptions(bson.D{{Key: "created_at", Value: -1}}, limit))
	if err != nil {
		return nil, err
	}
	docs, err := decodeAll[mongoMeetupDoc](ctx, cur)
	if err != nil {
		return nil, err
	}

	out := make([]*models.Meetup, 0, len(docs))
	for _, d := range docs {
		out = append(out, meetupDocToModel(d))
	}
	return out, nil
}

// withinRadius builds a $centerSphere filter; Mongo expects the radius in radians.
func withinRadius(lat, lng, radiusMi float64) bson.M {
	return bson.M{
		"location": bson.M{
			"$geoWithin": bson.M{
				"$centerSphere": bson.A{
					bson.A{lng, lat},
					radiusMi / earthRadiusMiles,
				},
			},
		},
	}
}

func (s *MongoStore) ListMeetupsNearby(ctx context.Context, lat, lng, radiusMi float64, limit int) ([]*models.Meetup, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	out, err := s.findMeetups(ctx, withinRadius(lat, lng, radiusMi), limit)
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MongoStore) ListMeetupsByBounds(ctx context.Context, b models.Bounds, limit int) ([]*models.Meetup, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return s.findMeetups(ctx, bson.M{
		"latitude":  bson.M{"$gte": b.MinLat, "$lte": b.MaxLat},
		"longitude": bson.M{"$gte": b.MinLng, "$lte": b.MaxLng},
	}, limit)
}

func (s *MongoStore) SearchMeetupsNearby(ctx context.Context, lat, lng, radiusMi float64, q string, limit int) ([]*models.Meetup, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []*models.Meetup{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return s.findMeetups(ctx, bson.M{
		"$and": bson.A{
			withinRadius(lat, lng, radiusMi),
			bson.M{"$text": bson.M{"$search": q}},
		},
	}, limit)
}

func (s *MongoStore) ListMeetupsByUser(ctx context.Context, userID string, limit int) ([]*models.Meetup, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return s.findMeetups(ctx, bson.M{"user_id": userID}, limit)
}

var (
	_ Store = (*MongoStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
