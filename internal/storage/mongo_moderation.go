package storage

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/asktopedia/backend/internal/models"
)

func (s *MongoStore) CreateReport(ctx context.Context, r *models.Report) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := s.reports.InsertOne(ctx, r)
	return err
}

func (s *MongoStore) GetReport(ctx context.Context, id string) (*models.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var r models.Report
	if err := s.reports.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func statusFilter(status models.ReportStatus) bson.M {
	if status == "" {
		return bson.M{}
	}
	return bson.M{"status": status}
}

func (s *MongoStore) ListReports(ctx context.Context, status models.ReportStatus) ([]*models.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cur, err := s.reports.Find(
		ctx,
		statusFilter(status),
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(MaxListLimit),
	)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Report](ctx, cur)
}

func (s *MongoStore) UpdateReportStatus(ctx context.Context, id string, status models.ReportStatus) (*models.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var r models.Report
	err := s.reports.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&r)
	if err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func (s *MongoStore) DeleteReport(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.reports.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteReportsForContent(ctx context.Context, questionID string, answerIDs []string) error {
	or := bson.A{}
	if questionID != "" {
		or = append(or, bson.M{"question_id": questionID})
	}
	if len(answerIDs) > 0 {
		or = append(or, bson.M{"answer_id": bson.M{"$in": answerIDs}})
	}
	if len(or) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := s.reports.DeleteMany(ctx, bson.M{"$or": or})
	return err
}

func (s *MongoStore) DeleteReportsByReporter(ctx context.Context, reporterID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := s.reports.DeleteMany(ctx, bson.M{"reporter_id": reporterID})
	return err
}

func (s *MongoStore) CountReports(ctx context.Context, status models.ReportStatus) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return s.reports.CountDocuments(ctx, statusFilter(status))
}

// ---- activities ----

func (s *MongoStore) CreateActivity(ctx context.Context, a *models.Activity) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := s.activities.InsertOne(ctx, a)
	return err
}

func (s *MongoStore) ListActivities(ctx context.Context, userID string) ([]*models.Activity, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cur, err := s.activities.Find(
		ctx,
		bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(MaxListLimit),
	)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Activity](ctx, cur)
}

func (s *MongoStore) MarkActivityRead(ctx context.Context, userID, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.activities.UpdateOne(ctx,
		bson.M{"_id": id, "user_id": userID},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteActivitiesForUser(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := s.activities.DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}

// ---- flags ----

func (s *MongoStore) AddStrike(ctx context.Context, userID string) (*models.UserFlag, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := time.Now().UTC()
	update := bson.M{
		"$inc": bson.M{"strikes": 1},
		"$set": bson.M{"last_strike_at": now, "updated_at": now},
	}

	var out models.UserFlag
	err := s.flags.FindOneAndUpdate(
		ctx,
		bson.M{"user_id": userID},
		update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *MongoStore) GetFlag(ctx context.Context, userID string) (*models.UserFlag, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var out models.UserFlag
	if err := s.flags.FindOne(ctx, bson.M{"user_id": userID}).Decode(&out); err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}

func (s *MongoStore) DeleteFlag(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := s.flags.DeleteOne(ctx, bson.M{"user_id": userID})
	return err
}
