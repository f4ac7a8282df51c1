package services

import (
	"errors"
	"time"

	"crosspoll/internal/models"
	"crosspoll/internal/store"

	"gorm.io/gorm"
)

const (
	MinLimit     = 1
	MaxLimit     = 50
	DefaultLimit = 20

	SortNewest = "newest"
	SortOldest = "oldest"
)

// ListParams describes one page of a poll listing.
type ListParams struct {
	Limit    int
	Offset   int
	Sort     string // newest (default) or oldest
	Query    string
	AuthorID uint // restrict to polls created by this user
	VoterID  uint // restrict to polls this user has voted on
}

// PollList is one decorated, paginated page of polls.
type PollList struct {
	Polls   []PollView `json:"polls"`
	Total   int64      `json:"total"`
	HasMore bool       `json:"has_more"`
}

// ListPolls returns a decorated page of polls. Each entry carries the same
// decoration as the single-poll detail view, minus cross-references.
func (s *PollService) ListPolls(p ListParams, viewerID uint) (*PollList, error) {
	if p.Sort == "" {
		p.Sort = SortNewest
	}
	if p.Sort != SortNewest && p.Sort != SortOldest {
		return nil, &InvalidParameterError{Param: "sort", Msg: "must be newest or oldest"}
	}
	if p.Limit < MinLimit || p.Limit > MaxLimit {
		return nil, &InvalidParameterError{Param: "limit", Msg: "must be between 1 and 50"}
	}
	if p.Offset < 0 {
		return nil, &InvalidParameterError{Param: "offset", Msg: "must not be negative"}
	}

	polls, total, err := s.store.QueryPolls(store.PollFilter{
		Query:    p.Query,
		AuthorID: p.AuthorID,
		VoterID:  p.VoterID,
		Sort:     p.Sort,
		Limit:    p.Limit,
		Offset:   p.Offset,
	})
	if err != nil {
		return nil, err
	}

	views, err := s.decoratePolls(polls, viewerID)
	if err != nil {
		return nil, err
	}

	return &PollList{
		Polls:   views,
		Total:   total,
		HasMore: int64(p.Offset+p.Limit) < total,
	}, nil
}

// CandidateParams narrows the candidate search for a new cross-reference.
type CandidateParams struct {
	Query      string
	ExcludeIDs []uint // polls already referenced
	Limit      int    // defaults to DefaultLimit
	Offset     int
}

// Candidate is a poll eligible to become a cross-reference target.
type Candidate struct {
	ID        uint            `json:"id"`
	Question  string          `json:"question"`
	CreatedAt time.Time       `json:"created_at"`
	Answers   []models.Answer `json:"answers"`
}

// CandidateList is one page of cross-reference candidates.
type CandidateList struct {
	Polls   []Candidate `json:"polls"`
	Total   int64       `json:"total"`
	HasMore bool        `json:"has_more"`
}

// FindCandidates lists polls eligible for cross-referencing against the base
// poll, newest first. The base poll itself is always excluded, in the query,
// alongside any caller-supplied exclusions.
func (s *PollService) FindCandidates(basePollID uint, p CandidateParams) (*CandidateList, error) {
	if _, err := s.store.GetPollWithAnswers(basePollID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if p.Limit == 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit < MinLimit || p.Limit > MaxLimit {
		return nil, &InvalidParameterError{Param: "limit", Msg: "must be between 1 and 50"}
	}
	if p.Offset < 0 {
		return nil, &InvalidParameterError{Param: "offset", Msg: "must not be negative"}
	}

	exclude := append([]uint{basePollID}, p.ExcludeIDs...)
	polls, total, err := s.store.QueryPolls(store.PollFilter{
		Query:      p.Query,
		ExcludeIDs: exclude,
		Sort:       SortNewest,
		Limit:      p.Limit,
		Offset:     p.Offset,
	})
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(polls))
	for _, poll := range polls {
		answers := poll.Answers
		if answers == nil {
			answers = []models.Answer{}
		}
		candidates = append(candidates, Candidate{
			ID:        poll.ID,
			Question:  poll.Question,
			CreatedAt: poll.CreatedAt,
			Answers:   answers,
		})
	}

	return &CandidateList{
		Polls:   candidates,
		Total:   total,
		HasMore: int64(p.Offset+p.Limit) < total,
	}, nil
}

// decoratePolls builds poll views with batched count and own-vote queries,
// one per page rather than one per poll.
func (s *PollService) decoratePolls(polls []models.Poll, viewerID uint) ([]PollView, error) {
	views := make([]PollView, 0, len(polls))
	if len(polls) == 0 {
		return views, nil
	}

	pollIDs := make([]uint, len(polls))
	for i, p := range polls {
		pollIDs[i] = p.ID
	}

	countsByPoll, err := s.store.CountVotesByAnswerBatch(pollIDs)
	if err != nil {
		return nil, err
	}

	votesByPoll := map[uint]models.Vote{}
	if viewerID != 0 {
		votesByPoll, err = s.store.FindUserVotes(viewerID, pollIDs)
		if err != nil {
			return nil, err
		}
	}

	for i := range polls {
		poll := &polls[i]
		view := newPollView(poll, &poll.User)
		if counts, ok := countsByPoll[poll.ID]; ok {
			view.VoteCounts = VoteCounts(counts)
		}
		if vote, ok := votesByPoll[poll.ID]; ok {
			view.UserVote = &UserVoteView{AnswerID: vote.AnswerID}
		}
		views = append(views, view)
	}

	return views, nil
}
