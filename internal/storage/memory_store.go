package storage

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/asktopedia/backend/internal/models"
)

// MemoryStore keeps everything in process memory behind one lock.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[string]*models.User
	badges     map[string]*models.Badge
	questions  map[string]*models.Question
	answers    map[string]*models.Answer
	bookmarks  map[string]*models.Bookmark // bookmarkID -> bookmark
	reports    map[string]*models.Report
	activities map[string]*models.Activity
	flags      map[string]*models.UserFlag // userID -> flag
	meetups    map[string]*models.Meetup
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]*models.User),
		badges:     make(map[string]*models.Badge),
		questions:  make(map[string]*models.Question),
		answers:    make(map[string]*models.Answer),
		bookmarks:  make(map[string]*models.Bookmark),
		reports:    make(map[string]*models.Report),
		activities: make(map[string]*models.Activity),
		flags:      make(map[string]*models.UserFlag),
		meetups:    make(map[string]*models.Meetup),
	}
}

func (s *MemoryStore) Close(ctx context.Context) error { return nil }

// ---- users ----

func copyUser(u *models.User) *models.User {
	c := *u
	c.Badges = append([]string{}, u.Badges...)
	return &c
}

func (s *MemoryStore) CreateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) || strings.EqualFold(existing.Username, u.Username) {
			return ErrDuplicate
		}
	}
	if u.Badges == nil {
		u.Badges = []string{}
	}
	s.users[u.ID] = copyUser(u)
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return copyUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetUserByFirebaseUID(ctx context.Context, uid string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if uid != "" && u.FirebaseUID == uid {
			return copyUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) LinkFirebaseUID(ctx context.Context, id, uid string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok || (u.FirebaseUID != "" && u.FirebaseUID != uid) {
		return nil, ErrNotFound
	}
	for _, other := range s.users {
		if other.ID != id && other.FirebaseUID == uid {
			return nil, ErrDuplicate
		}
	}
	u.FirebaseUID = uid
	u.UpdatedAt = time.Now().UTC()
	return copyUser(u), nil
}

func (s *MemoryStore) ListUsers(ctx context.Context, limit int) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, copyUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return truncate(out, clampLimit(limit)), nil
}

func (s *MemoryStore) UpdateUser(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Username != nil {
		for _, other := range s.users {
			if other.ID != id && strings.EqualFold(other.Username, *upd.Username) {
				return nil, ErrDuplicate
			}
		}
		u.Username = *upd.Username
	}
	if upd.Bio != nil {
		u.Bio = *upd.Bio
	}
	if upd.PhotoURL != nil {
		u.PhotoURL = *upd.PhotoURL
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.Banned != nil {
		u.Banned = *upd.Banned
	}
	u.UpdatedAt = time.Now().UTC()
	return copyUser(u), nil
}

func (s *MemoryStore) ReplacePhotoURL(ctx context.Context, oldURL, newURL string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	now := time.Now().UTC()
	for _, u := range s.users {
		if u.PhotoURL == oldURL {
			u.PhotoURL = newURL
			u.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *MemoryStore) CountUsers(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.users)), nil
}

func (s *MemoryStore) AddPoints(ctx context.Context, id string, delta int) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	u.Points += delta
	if u.Points < 0 {
		u.Points = 0
	}
	u.UpdatedAt = time.Now().UTC()
	return copyUser(u), nil
}

func (s *MemoryStore) IncrementCounter(ctx context.Context, id string, counter models.Counter, delta int) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	switch counter {
	case models.CounterQuestionsAsked:
		u.QuestionsAsked += delta
	case models.CounterAnswersAccepted:
		u.AnswersAccepted += delta
	}
	u.UpdatedAt = time.Now().UTC()
	return copyUser(u), nil
}

func (s *MemoryStore) AddBadges(ctx context.Context, id string, badgeIDs []string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	for _, b := range badgeIDs {
		if !u.HasBadge(b) {
			u.Badges = append(u.Badges, b)
		}
	}
	return copyUser(u), nil
}

func (s *MemoryStore) TopUsers(ctx context.Context, limit int) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		if u.Banned {
			continue
		}
		out = append(out, copyUser(u))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return truncate(out, clampLimit(limit)), nil
}

// ---- badges ----

func (s *MemoryStore) CreateBadge(ctx context.Context, b *models.Badge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.badges {
		if strings.EqualFold(existing.Name, b.Name) {
			return ErrDuplicate
		}
	}
	c := *b
	s.badges[b.ID] = &c
	return nil
}

func (s *MemoryStore) ListBadges(ctx context.Context) ([]*models.Badge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Badge, 0, len(s.badges))
	for _, b := range s.badges {
		c := *b
		out = append(out, &c)
	}
	sortBadges(out)
	return out, nil
}

func (s *MemoryStore) GetBadgesByIDs(ctx context.Context, ids []string) ([]*models.Badge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Badge, 0, len(ids))
	for _, id := range ids {
		if b, ok := s.badges[id]; ok {
			c := *b
			out = append(out, &c)
		}
	}
	sortBadges(out)
	return out, nil
}

func sortBadges(list []*models.Badge) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].PointsRequired != list[j].PointsRequired {
			return list[i].PointsRequired < list[j].PointsRequired
		}
		return list[i].Name < list[j].Name
	})
}

// ---- questions ----

func copyQuestion(q *models.Question) *models.Question {
	c := *q
	c.Tags = append([]string{}, q.Tags...)
	c.AnswerIDs = append([]string{}, q.AnswerIDs...)
	c.Voters = append([]string{}, q.Voters...)
	return &c
}

func (s *MemoryStore) CreateQuestion(ctx context.Context, q *models.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[q.ID] = copyQuestion(q)
	return nil
}

func (s *MemoryStore) GetQuestion(ctx context.Context, id string) (*models.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.questions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyQuestion(q), nil
}

func (s *MemoryStore) ListQuestions(ctx context.Context, f models.QuestionFilter) ([]*models.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(f.Search))
	tag := strings.ToLower(strings.TrimSpace(f.Tag))

	out := make([]*models.Question, 0)
	for _, q := range s.questions {
		if f.UserID != "" && q.UserID != f.UserID {
			continue
		}
		if tag != "" && !containsFold(q.Tags, tag) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(q.Title), search) &&
			!strings.Contains(strings.ToLower(q.Description), search) {
			continue
		}
		out = append(out, copyQuestion(q))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if f.Skip > 0 {
		if f.Skip >= len(out) {
			return []*models.Question{}, nil
		}
		out = out[f.Skip:]
	}
	return truncate(out, clampLimit(f.Limit)), nil
}

func (s *MemoryStore) DeleteQuestion(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.questions[id]; !ok {
		return ErrNotFound
	}
	delete(s.questions, id)
	return nil
}

func (s *MemoryStore) CountQuestions(ctx context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, q := range s.questions {
		if userID == "" || q.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) VoteQuestion(ctx context.Context, id, userID string, dir models.VoteDirection) (*models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.questions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if q.HasVoter(userID) {
		return nil, ErrAlreadyVoted
	}
	q.Voters = append(q.Voters, userID)
	if dir == models.VoteUp {
		q.Upvotes++
	} else {
		q.Downvotes++
	}
	return copyQuestion(q), nil
}

func (s *MemoryStore) AttachAnswer(ctx context.Context, questionID, answerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.questions[questionID]
	if !ok {
		return ErrNotFound
	}
	for _, id := range q.AnswerIDs {
		if id == answerID {
			return nil
		}
	}
	q.AnswerIDs = append(q.AnswerIDs, answerID)
	return nil
}

func (s *MemoryStore) DetachAnswer(ctx context.Context, questionID, answerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.questions[questionID]
	if !ok {
		return ErrNotFound
	}
	kept := q.AnswerIDs[:0]
	for _, id := range q.AnswerIDs {
		if id != answerID {
			kept = append(kept, id)
		}
	}
	q.AnswerIDs = kept
	return nil
}

// ---- answers ----

func copyAnswer(a *models.Answer) *models.Answer {
	c := *a
	c.Voters = append([]string{}, a.Voters...)
	return &c
}

func (s *MemoryStore) CreateAnswer(ctx context.Context, a *models.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers[a.ID] = copyAnswer(a)
	return nil
}

func (s *MemoryStore) GetAnswer(ctx context.Context, id string) (*models.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.answers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyAnswer(a), nil
}

func (s *MemoryStore) listAnswers(match func(*models.Answer) bool) []*models.Answer {
	out := make([]*models.Answer, 0)
	for _, a := range s.answers {
		if match(a) {
			out = append(out, copyAnswer(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsAccepted != out[j].IsAccepted {
			return out[i].IsAccepted
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *MemoryStore) ListAnswersByQuestion(ctx context.Context, questionID string) ([]*models.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listAnswers(func(a *models.Answer) bool { return a.QuestionID == questionID }), nil
}

func (s *MemoryStore) ListAnswersByUser(ctx context.Context, userID string) ([]*models.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listAnswers(func(a *models.Answer) bool { return a.UserID == userID }), nil
}

func (s *MemoryStore) DeleteAnswer(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.answers[id]; !ok {
		return ErrNotFound
	}
	delete(s.answers, id)
	return nil
}

func (s *MemoryStore) DeleteAnswersByQuestion(ctx context.Context, questionID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0)
	for id, a := range s.answers {
		if a.QuestionID == questionID {
			ids = append(ids, id)
			delete(s.answers, id)
		}
	}
	return ids, nil
}

func (s *MemoryStore) CountAnswers(ctx context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, a := range s.answers {
		if userID == "" || a.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) VoteAnswer(ctx context.Context, id, userID string, dir models.VoteDirection) (*models.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.answers[id]
	if !ok {
		return nil, ErrNotFound
	}
	if a.HasVoter(userID) {
		return nil, ErrAlreadyVoted
	}
	a.Voters = append(a.Voters, userID)
	if dir == models.VoteUp {
		a.Upvotes++
	} else {
		a.Downvotes++
	}
	return copyAnswer(a), nil
}

func (s *MemoryStore) AcceptAnswer(ctx context.Context, questionID, answerID string) (*models.Answer, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.answers[answerID]
	if !ok || target.QuestionID != questionID {
		return nil, false, ErrNotFound
	}
	for _, a := range s.answers {
		if a.QuestionID == questionID && a.ID != answerID {
			a.IsAccepted = false
		}
	}
	was := target.IsAccepted
	target.IsAccepted = true
	return copyAnswer(target), was, nil
}

// ---- bookmarks ----

func (s *MemoryStore) ToggleBookmark(ctx context.Context, userID, questionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, b := range s.bookmarks {
		if b.UserID == userID && b.QuestionID == questionID {
			delete(s.bookmarks, id)
			return false, nil
		}
	}
	b := &models.Bookmark{
		ID:         uuid.New().String(),
		UserID:     userID,
		QuestionID: questionID,
		CreatedAt:  time.Now().UTC(),
	}
	s.bookmarks[b.ID] = b
	return true, nil
}

func (s *MemoryStore) ListBookmarks(ctx context.Context, userID string) ([]*models.Bookmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Bookmark, 0)
	for _, b := range s.bookmarks {
		if b.UserID == userID {
			c := *b
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) DeleteBookmarksForQuestion(ctx context.Context, questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, b := range s.bookmarks {
		if b.QuestionID == questionID {
			delete(s.bookmarks, id)
		}
	}
	return nil
}

func (s *MemoryStore) DeleteBookmarksForUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, b := range s.bookmarks {
		if b.UserID == userID {
			delete(s.bookmarks, id)
		}
	}
	return nil
}

// ---- reports ----

func (s *MemoryStore) CreateReport(ctx context.Context, r *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *r
	s.reports[r.ID] = &c
	return nil
}

func (s *MemoryStore) GetReport(ctx context.Context, id string) (*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *r
	return &c, nil
}

func (s *MemoryStore) ListReports(ctx context.Context, status models.ReportStatus) ([]*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Report, 0)
	for _, r := range s.reports {
		if status != "" && r.Status != status {
			continue
		}
		c := *r
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) UpdateReportStatus(ctx context.Context, id string, status models.ReportStatus) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	r.Status = status
	r.UpdatedAt = time.Now().UTC()
	c := *r
	return &c, nil
}

func (s *MemoryStore) DeleteReport(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reports[id]; !ok {
		return ErrNotFound
	}
	delete(s.reports, id)
	return nil
}

func (s *MemoryStore) DeleteReportsForContent(ctx context.Context, questionID string, answerIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, r := range s.reports {
		if (questionID != "" && r.QuestionID == questionID) || (r.AnswerID != "" && containsFold(answerIDs, r.AnswerID)) {
			delete(s.reports, id)
		}
	}
	return nil
}

func (s *MemoryStore) DeleteReportsByReporter(ctx context.Context, reporterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, r := range s.reports {
		if r.ReporterID == reporterID {
			delete(s.reports, id)
		}
	}
	return nil
}

func (s *MemoryStore) CountReports(ctx context.Context, status models.ReportStatus) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, r := range s.reports {
		if status == "" || r.Status == status {
			n++
		}
	}
	return n, nil
}

// ---- activities ----

func (s *MemoryStore) CreateActivity(ctx context.Context, a *models.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *a
	s.activities[a.ID] = &c
	return nil
}

func (s *MemoryStore) ListActivities(ctx context.Context, userID string) ([]*models.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Activity, 0)
	for _, a := range s.activities {
		if a.UserID == userID {
			c := *a
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) MarkActivityRead(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.activities[id]
	if !ok || a.UserID != userID {
		return ErrNotFound
	}
	a.Read = true
	return nil
}

func (s *MemoryStore) DeleteActivitiesForUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, a := range s.activities {
		if a.UserID == userID {
			delete(s.activities, id)
		}
	}
	return nil
}

// ---- flags ----

func (s *MemoryStore) AddStrike(ctx context.Context, userID string) (*models.UserFlag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	f, ok := s.flags[userID]
	if !ok {
		f = &models.UserFlag{UserID: userID}
		s.flags[userID] = f
	}
	f.Strikes++
	f.LastStrikeAt = now
	f.UpdatedAt = now
	c := *f
	return &c, nil
}

func (s *MemoryStore) GetFlag(ctx context.Context, userID string) (*models.UserFlag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.flags[userID]
	if !ok {
		return nil, ErrNotFound
	}
	c := *f
	return &c, nil
}

func (s *MemoryStore) DeleteFlag(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flags, userID)
	return nil
}

// ---- meetups ----

func copyMeetup(m *models.Meetup) *models.Meetup {
	c := *m
	c.Attendees = append([]string{}, m.Attendees...)
	return &c
}

func (s *MemoryStore) CreateMeetup(ctx context.Context, m *models.Meetup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meetups[m.ID] = copyMeetup(m)
	return nil
}

func (s *MemoryStore) GetMeetup(ctx context.Context, id string) (*models.Meetup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.meetups[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyMeetup(m), nil
}

func (s *MemoryStore) UpdateMeetup(ctx context.Context, id string, req *models.UpdateMeetupRequest) (*models.Meetup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.meetups[id]
	if !ok {
		return nil, ErrNotFound
	}
	m.Title = req.Title
	m.Description = req.Description
	m.Address = req.Address
	m.Latitude = req.Latitude
	m.Longitude = req.Longitude
	m.StartDate = req.StartDate
	m.EndDate = req.EndDate
	return copyMeetup(m), nil
}

func (s *MemoryStore) DeleteMeetup(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.meetups[id]; !ok {
		return ErrNotFound
	}
	delete(s.meetups, id)
	return nil
}

func (s *MemoryStore) DeleteMeetupsByUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, m := range s.meetups {
		if m.UserID == userID {
			delete(s.meetups, id)
		}
	}
	return nil
}

func (s *MemoryStore) filterMeetups(match func(*models.Meetup) bool, limit int) []*models.Meetup {
	out := make([]*models.Meetup, 0)
	for _, m := range s.meetups {
		if match(m) {
			out = append(out, copyMeetup(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return truncate(out, clampLimit(limit))
}

func (s *MemoryStore) ListMeetupsNearby(ctx context.Context, lat, lng, radiusMi float64, limit int) ([]*models.Meetup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.filterMeetups(func(m *models.Meetup) bool {
		return haversineDistance(lat, lng, m.Latitude, m.Longitude) <= radiusMi
	}, limit), nil
}

func (s *MemoryStore) ListMeetupsByBounds(ctx context.Context, b models.Bounds, limit int) ([]*models.Meetup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.filterMeetups(func(m *models.Meetup) bool {
		return m.Latitude >= b.MinLat && m.Latitude <= b.MaxLat &&
			m.Longitude >= b.MinLng && m.Longitude <= b.MaxLng
	}, limit), nil
}

func (s *MemoryStore) SearchMeetupsNearby(ctx context.Context, lat, lng, radiusMi float64, q string, limit int) ([]*models.Meetup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return []*models.Meetup{}, nil
	}
	return s.filterMeetups(func(m *models.Meetup) bool {
		if haversineDistance(lat, lng, m.Latitude, m.Longitude) > radiusMi {
			return false
		}
		return strings.Contains(strings.ToLower(m.Title), q) ||
			strings.Contains(strings.ToLower(m.Description), q) ||
			strings.Contains(strings.ToLower(m.Address), q)
	}, limit), nil
}

func (s *MemoryStore) ListMeetupsByUser(ctx context.Context, userID string, limit int) ([]*models.Meetup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.filterMeetups(func(m *models.Meetup) bool { return m.UserID == userID }, limit), nil
}

func (s *MemoryStore) SetAttendance(ctx context.Context, id, userID string, attending bool) (*models.Meetup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.meetups[id]
	if !ok {
		return nil, ErrNotFound
	}
	kept := make([]string, 0, len(m.Attendees)+1)
	for _, a := range m.Attendees {
		if a != userID {
			kept = append(kept, a)
		}
	}
	if attending {
		kept = append(kept, userID)
	}
	m.Attendees = kept
	return copyMeetup(m), nil
}

// ---- helpers ----

func truncate[T any](list []T, n int) []T {
	if len(list) > n {
		return list[:n]
	}
	return list
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// haversineDistance calculates distance between two points in miles
func haversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMiles * c
}
