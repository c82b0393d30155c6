package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/asktopedia/backend/internal/models"
)

// ---- questions ----

func (s *MongoStore) CreateQuestion(ctx context.Context, q *models.Question) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if q.AnswerIDs == nil {
		q.AnswerIDs = []string{}
	}
	if q.Voters == nil {
		q.Voters = []string{}
	}
	_, err := s.questions.InsertOne(ctx, q)
	return err
}

func (s *MongoStore) GetQuestion(ctx context.Context, id string) (*models.Question, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var q models.Question
	if err := s.questions.FindOne(ctx, bson.M{"_id": id}).Decode(&q); err != nil {
		return nil, notFound(err)
	}
	return &q, nil
}

func (s *MongoStore) ListQuestions(ctx context.Context, f models.QuestionFilter) ([]*models.Question, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{}
	if f.UserID != "" {
		filter["user_id"] = f.UserID
	}
	if tag := strings.ToLower(strings.TrimSpace(f.Tag)); tag != "" {
		filter["tags"] = tag
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		filter["$text"] = bson.M{"$search": q}
	}

	opts := findOptions(bson.D{{Key: "created_at", Value: -1}}, f.Limit)
	if f.Skip > 0 {
		opts.SetSkip(int64(f.Skip))
	}

	cur, err := s.questions.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Question](ctx, cur)
}

func (s *MongoStore) DeleteQuestion(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.questions.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) CountQuestions(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{}
	if userID != "" {
		filter["user_id"] = userID
	}
	return s.questions.CountDocuments(ctx, filter)
}

func voteUpdate(userID string, dir models.VoteDirection) bson.M {
	field := "downvotes"
	if dir == models.VoteUp {
		field = "upvotes"
	}
	return bson.M{
		"$addToSet": bson.M{"voters": userID},
		"$inc":      bson.M{field: 1},
	}
}

// castVote applies the vote only when userID is not yet among the voters.
// On no match it looks the document up again to tell a missing document from
// a repeated vote.
func castVote(ctx context.Context, col *mongo.Collection, id, userID string, dir models.VoteDirection, out interface{}) error {
	err := col.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id, "voters": bson.M{"$ne": userID}},
		voteUpdate(userID, dir),
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(out)
	if err == nil {
		return nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	}

	n, err := col.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrAlreadyVoted
}

func (s *MongoStore) VoteQuestion(ctx context.Context, id, userID string, dir models.VoteDirection) (*models.Question, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var q models.Question
	if err := castVote(ctx, s.questions, id, userID, dir, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *MongoStore) AttachAnswer(ctx context.Context, questionID, answerID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.questions.UpdateOne(ctx,
		bson.M{"_id": questionID},
		bson.M{"$addToSet": bson.M{"answer_ids": answerID}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DetachAnswer(ctx context.Context, questionID, answerID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.questions.UpdateOne(ctx,
		bson.M{"_id": questionID},
		bson.M{"$pull": bson.M{"answer_ids": answerID}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- answers ----

// Accepted answer first, then oldest first.
var answerSort = bson.D{{Key: "is_accepted", Value: -1}, {Key: "created_at", Value: 1}}

func (s *MongoStore) CreateAnswer(ctx context.Context, a *models.Answer) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if a.Voters == nil {
		a.Voters = []string{}
	}
	_, err := s.answers.InsertOne(ctx, a)
	return err
}

func (s *MongoStore) GetAnswer(ctx context.Context, id string) (*models.Answer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var a models.Answer
	if err := s.answers.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (s *MongoStore) ListAnswersByQuestion(ctx context.Context, questionID string) ([]*models.Answer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cur, err := s.answers.Find(ctx, bson.M{"question_id": questionID}, options.Find().SetSort(answerSort))
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Answer](ctx, cur)
}

func (s *MongoStore) ListAnswersByUser(ctx context.Context, userID string) ([]*models.Answer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cur, err := s.answers.Find(ctx, bson.M{"user_id": userID}, options.Find().SetSort(answerSort))
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Answer](ctx, cur)
}

func (s *MongoStore) DeleteAnswer(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.answers.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteAnswersByQuestion(ctx context.Context, questionID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cur, err := s.answers.Find(ctx,
		bson.M{"question_id": questionID},
		options.Find().SetProjection(bson.M{"_id": 1}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	ids := make([]string, 0)
	for cur.Next(ctx) {
		var d struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		ids = append(ids, d.ID)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}

	if _, err := s.answers.DeleteMany(ctx, bson.M{"question_id": questionID}); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *MongoStore) CountAnswers(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{}
	if userID != "" {
		filter["user_id"] = userID
	}
	return s.answers.CountDocuments(ctx, filter)
}

func (s *MongoStore) VoteAnswer(ctx context.Context, id, userID string, dir models.VoteDirection) (*models.Answer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var a models.Answer
	if err := castVote(ctx, s.answers, id, userID, dir, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// AcceptAnswer sets the target first and clears the others afterwards. With
// that order two concurrent accepts on one question can end with no accepted
// answer, but never with two.
func (s *MongoStore) AcceptAnswer(ctx context.Context, questionID, answerID string) (*models.Answer, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	// ReturnDocument Before tells us whether this call did the accepting.
	var before models.Answer
	err := s.answers.FindOneAndUpdate(
		ctx,
		bson.M{"_id": answerID, "question_id": questionID},
		bson.M{"$set": bson.M{"is_accepted": true}},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&before)
	if err != nil {
		return nil, false, notFound(err)
	}

	if _, err := s.answers.UpdateMany(ctx,
		bson.M{"question_id": questionID, "_id": bson.M{"$ne": answerID}, "is_accepted": true},
		bson.M{"$set": bson.M{"is_accepted": false}},
	); err != nil {
		return nil, false, err
	}

	was := before.IsAccepted
	before.IsAccepted = true
	return &before, was, nil
}

// ---- bookmarks ----

func (s *MongoStore) ToggleBookmark(ctx context.Context, userID, questionID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.bookmarks.DeleteOne(ctx, bson.M{"user_id": userID, "question_id": questionID})
	if err != nil {
		return false, err
	}
	if res.DeletedCount > 0 {
		return false, nil
	}

	b := &models.Bookmark{
		ID:         uuid.New().String(),
		UserID:     userID,
		QuestionID: questionID,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := s.bookmarks.InsertOne(ctx, b); err != nil {
		// A concurrent toggle inserted it first; the bookmark exists either way.
		if mongo.IsDuplicateKeyError(err) {
			return true, nil
		}
		return false, err
	}
	return true, nil
}

func (s *MongoStore) ListBookmarks(ctx context.Context, userID string) ([]*models.Bookmark, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cur, err := s.bookmarks.Find(
		ctx,
		bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Bookmark](ctx, cur)
}

func (s *MongoStore) DeleteBookmarksForQuestion(ctx context.Context, questionID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := s.bookmarks.DeleteMany(ctx, bson.M{"question_id": questionID})
	return err
}

func (s *MongoStore) DeleteBookmarksForUser(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := s.bookmarks.DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}
