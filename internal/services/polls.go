package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"crosspoll/internal/models"
	"crosspoll/internal/store"

	"gorm.io/gorm"
)

// PollService implements the poll read and write paths over the store.
type PollService struct {
	store *store.Store
}

func NewPollService(st *store.Store) *PollService {
	return &PollService{store: st}
}

// Author is the poll owner projection exposed in responses.
type Author struct {
	ID   uint    `json:"id"`
	Name *string `json:"name"`
}

// UserVoteView is the requesting identity's own vote on a poll.
type UserVoteView struct {
	AnswerID uint `json:"answer_id"`
}

// PollView is the decorated poll document: the same shape serves the single
// poll detail and each entry of a listing.
type PollView struct {
	ID              uint             `json:"id"`
	Question        string           `json:"question"`
	CreatedAt       time.Time        `json:"created_at"`
	Answers         []models.Answer  `json:"answers"`
	Author          Author           `json:"author"`
	VoteCounts      VoteCounts       `json:"vote_counts"`
	UserVote        *UserVoteView    `json:"user_vote"`
	CrossReferences []CrossReference `json:"cross_references,omitempty"`
}

// CreatePoll validates and persists a poll with its answers as one atomic
// unit. The answer-count bounds are enforced before any write.
func (s *PollService) CreatePoll(authorID uint, question string, answerTexts []string) (*PollView, error) {
	if strings.TrimSpace(question) == "" {
		return nil, &ValidationError{Msg: "question must not be blank"}
	}
	if len(answerTexts) < models.MinAnswers || len(answerTexts) > models.MaxAnswers {
		return nil, &ValidationError{Msg: fmt.Sprintf("a poll needs between %d and %d answers", models.MinAnswers, models.MaxAnswers)}
	}
	for _, text := range answerTexts {
		if strings.TrimSpace(text) == "" {
			return nil, &ValidationError{Msg: "answers must not be blank"}
		}
	}

	poll, err := s.store.CreatePollWithAnswers(authorID, question, answerTexts)
	if err != nil {
		return nil, err
	}

	author, err := s.store.GetUser(authorID)
	if err != nil {
		return nil, err
	}

	view := newPollView(poll, author)
	return &view, nil
}

// GetPoll composes the poll detail: answers, author, vote counts, the
// viewer's own vote, and the cross-reference breakdowns for the given pairs.
func (s *PollService) GetPoll(pollID, viewerID uint, pairs []RefPair) (*PollView, error) {
	poll, err := s.store.GetPollWithAnswers(pollID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	author, err := s.store.GetUser(poll.UserID)
	if err != nil {
		return nil, err
	}

	counts, err := s.CountVotes(pollID)
	if err != nil {
		return nil, err
	}

	view := newPollView(poll, author)
	view.VoteCounts = counts

	if viewerID != 0 {
		vote, err := s.UserVote(viewerID, pollID)
		if err != nil {
			return nil, err
		}
		if vote != nil {
			view.UserVote = &UserVoteView{AnswerID: vote.AnswerID}
		}
	}

	refs, err := s.CrossReference(pollID, pairs)
	if err != nil {
		return nil, err
	}
	view.CrossReferences = refs

	return &view, nil
}

// CastVote records userID's vote on a poll. Failure modes, in order: the poll
// does not exist, the answer does not belong to the poll, the user already
// voted (with the existing vote attached). Success returns the vote plus the
// refreshed counts so callers never need a second round trip.
func (s *PollService) CastVote(userID, pollID, answerID uint) (*models.Vote, VoteCounts, error) {
	poll, err := s.store.GetPollWithAnswers(pollID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	belongs := false
	for _, a := range poll.Answers {
		if a.ID == answerID {
			belongs = true
			break
		}
	}
	if !belongs {
		return nil, nil, ErrInvalidAnswer
	}

	vote, created, err := s.store.CreateVoteIfAbsent(userID, pollID, answerID)
	if err != nil {
		return nil, nil, err
	}
	if !created {
		return nil, nil, &AlreadyVotedError{Existing: *vote}
	}

	counts, err := s.CountVotes(pollID)
	if err != nil {
		return nil, nil, err
	}

	return vote, counts, nil
}

func newPollView(poll *models.Poll, author *models.User) PollView {
	answers := poll.Answers
	if answers == nil {
		answers = []models.Answer{}
	}
	return PollView{
		ID:         poll.ID,
		Question:   poll.Question,
		CreatedAt:  poll.CreatedAt,
		Answers:    answers,
		Author:     Author{ID: author.ID, Name: author.Name},
		VoteCounts: VoteCounts{},
	}
}
