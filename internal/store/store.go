package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"crosspoll/internal/models"
	"crosspoll/internal/utils"

	"gorm.io/gorm"
)

const (
	pollCacheSize = 500
	pollCacheTTL  = time.Minute
)

// Store owns all entity access. Other components receive copies and
// projections and never touch the *gorm.DB directly.
type Store struct {
	db *gorm.DB

	// Poll rows and their answers are immutable after creation, so cached
	// reads can never go stale.
	polls *utils.Cache
}

func New(db *gorm.DB) *Store {
	cache, err := utils.NewCache(pollCacheSize)
	if err != nil {
		// lru.New only fails on a non-positive size.
		panic(fmt.Sprintf("store: create poll cache: %v", err))
	}
	return &Store{db: db, polls: cache}
}

func pollCacheKey(id uint) string {
	return fmt.Sprintf("poll:%d", id)
}

// GetPollWithAnswers loads a poll and its answers. Returns
// gorm.ErrRecordNotFound when the poll does not exist.
func (s *Store) GetPollWithAnswers(id uint) (*models.Poll, error) {
	if cached := s.polls.Get(pollCacheKey(id)); cached != nil {
		if poll, ok := cached.(*models.Poll); ok {
			return poll, nil
		}
	}

	var poll models.Poll
	if err := s.db.Preload("Answers").First(&poll, id).Error; err != nil {
		return nil, err
	}

	s.polls.Set(pollCacheKey(id), &poll, pollCacheTTL)
	return &poll, nil
}

func (s *Store) GetUser(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser creates a user. Both fields may be nil; an identity with a nil
// email is anonymous.
func (s *Store) CreateUser(email, name *string) (*models.User, error) {
	const op = "store.CreateUser"

	user := models.User{Email: email, Name: name}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, nil
}

func (s *Store) UpdateUser(user *models.User) error {
	const op = "store.UpdateUser"

	if err := s.db.Save(user).Error; err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CreatePollWithAnswers persists a poll and all its answers as one
// transaction. A poll without its full answer set is never observable.
func (s *Store) CreatePollWithAnswers(authorID uint, question string, answerTexts []string) (*models.Poll, error) {
	const op = "store.CreatePollWithAnswers"

	poll := models.Poll{
		UserID:   authorID,
		Question: question,
	}
	for _, text := range answerTexts {
		poll.Answers = append(poll.Answers, models.Answer{Text: text})
	}

	// gorm saves the associated answers inside the same transaction as the
	// poll row.
	if err := s.db.Create(&poll).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.polls.Set(pollCacheKey(poll.ID), &poll, pollCacheTTL)
	return &poll, nil
}

// CreateVoteIfAbsent inserts a vote for (userID, pollID). The unique index on
// (poll_id, user_id) resolves concurrent racers: losers observe the winner's
// vote with created=false instead of an error.
func (s *Store) CreateVoteIfAbsent(userID, pollID, answerID uint) (vote *models.Vote, created bool, err error) {
	const op = "store.CreateVoteIfAbsent"

	v := models.Vote{PollID: pollID, AnswerID: answerID, UserID: userID}
	insertErr := s.db.Create(&v).Error
	if insertErr == nil {
		return &v, true, nil
	}

	if errors.Is(insertErr, gorm.ErrDuplicatedKey) {
		existing, findErr := s.FindUserVote(userID, pollID)
		if findErr != nil {
			return nil, false, fmt.Errorf("%s: %w", op, findErr)
		}
		if existing != nil {
			return existing, false, nil
		}
	}

	return nil, false, fmt.Errorf("%s: %w", op, insertErr)
}

// FindUserVote returns the user's vote on a poll, or nil when absent. The
// uniqueness invariant guarantees at most one row.
func (s *Store) FindUserVote(userID, pollID uint) (*models.Vote, error) {
	const op = "store.FindUserVote"

	var vote models.Vote
	err := s.db.Where("user_id = ? AND poll_id = ?", userID, pollID).First(&vote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &vote, nil
}

// FindUserVotes returns the user's votes across the given polls, keyed by
// poll id. Used to decorate listings in one query instead of one per poll.
func (s *Store) FindUserVotes(userID uint, pollIDs []uint) (map[uint]models.Vote, error) {
	const op = "store.FindUserVotes"

	if len(pollIDs) == 0 {
		return map[uint]models.Vote{}, nil
	}

	var votes []models.Vote
	if err := s.db.Where("user_id = ? AND poll_id IN ?", userID, pollIDs).Find(&votes).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	byPoll := make(map[uint]models.Vote, len(votes))
	for _, v := range votes {
		byPoll[v.PollID] = v
	}
	return byPoll, nil
}

type answerCount struct {
	AnswerID uint
	N        int
}

// CountVotesByAnswer counts a poll's votes grouped by answer. Answers with no
// votes are absent from the map.
func (s *Store) CountVotesByAnswer(pollID uint) (map[uint]int, error) {
	const op = "store.CountVotesByAnswer"

	var rows []answerCount
	err := s.db.Model(&models.Vote{}).
		Select("answer_id, COUNT(*) AS n").
		Where("poll_id = ?", pollID).
		Group("answer_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return countsToMap(rows), nil
}

// CountVotesByAnswerBatch counts votes for several polls at once, keyed first
// by poll id then by answer id.
func (s *Store) CountVotesByAnswerBatch(pollIDs []uint) (map[uint]map[uint]int, error) {
	const op = "store.CountVotesByAnswerBatch"

	if len(pollIDs) == 0 {
		return map[uint]map[uint]int{}, nil
	}

	type pollAnswerCount struct {
		PollID   uint
		AnswerID uint
		N        int
	}
	var rows []pollAnswerCount
	err := s.db.Model(&models.Vote{}).
		Select("poll_id, answer_id, COUNT(*) AS n").
		Where("poll_id IN ?", pollIDs).
		Group("poll_id, answer_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	byPoll := make(map[uint]map[uint]int, len(pollIDs))
	for _, r := range rows {
		if byPoll[r.PollID] == nil {
			byPoll[r.PollID] = make(map[uint]int)
		}
		byPoll[r.PollID][r.AnswerID] = r.N
	}
	return byPoll, nil
}

// CountVotesByAnswerForCohort counts the base poll's votes restricted to
// users who voted refAnswerID on refPollID. The cohort stays a subquery so
// the whole computation is a single join on user_id in the database.
func (s *Store) CountVotesByAnswerForCohort(basePollID, refPollID, refAnswerID uint) (map[uint]int, error) {
	const op = "store.CountVotesByAnswerForCohort"

	cohort := s.db.Model(&models.Vote{}).
		Select("user_id").
		Where("poll_id = ? AND answer_id = ?", refPollID, refAnswerID)

	var rows []answerCount
	err := s.db.Model(&models.Vote{}).
		Select("answer_id, COUNT(*) AS n").
		Where("poll_id = ? AND user_id IN (?)", basePollID, cohort).
		Group("answer_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return countsToMap(rows), nil
}

func countsToMap(rows []answerCount) map[uint]int {
	counts := make(map[uint]int, len(rows))
	for _, r := range rows {
		counts[r.AnswerID] = r.N
	}
	return counts
}

// PollFilter describes a poll listing query. Zero values mean "no filter".
type PollFilter struct {
	Query      string // case-folded substring match on the question
	AuthorID   uint
	VoterID    uint
	ExcludeIDs []uint
	Sort       string // "newest" (default) or "oldest"
	Limit      int
	Offset     int
}

// QueryPolls returns one page of polls matching the filter plus the total
// match count. Exclusions are set-membership in the query, not post-hoc.
func (s *Store) QueryPolls(f PollFilter) ([]models.Poll, int64, error) {
	const op = "store.QueryPolls"

	var total int64
	if err := s.filteredPolls(f).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	order := "created_at DESC, id DESC"
	if f.Sort == "oldest" {
		order = "created_at ASC, id ASC"
	}

	var polls []models.Poll
	err := s.filteredPolls(f).
		Preload("Answers").
		Preload("User").
		Order(order).
		Limit(f.Limit).
		Offset(f.Offset).
		Find(&polls).Error
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return polls, total, nil
}

func (s *Store) filteredPolls(f PollFilter) *gorm.DB {
	q := s.db.Model(&models.Poll{})

	if f.Query != "" {
		pattern := "%" + strings.ToLower(f.Query) + "%"
		q = q.Where("LOWER(question) LIKE ?", pattern)
	}
	if f.AuthorID != 0 {
		q = q.Where("user_id = ?", f.AuthorID)
	}
	if f.VoterID != 0 {
		voted := s.db.Model(&models.Vote{}).
			Select("poll_id").
			Where("user_id = ?", f.VoterID)
		q = q.Where("id IN (?)", voted)
	}
	if len(f.ExcludeIDs) > 0 {
		q = q.Where("id NOT IN ?", f.ExcludeIDs)
	}

	return q
}
