package services

import (
	"crosspoll/internal/models"
)

// VoteCounts maps answer id to vote count. Answers nobody voted for are
// absent from the map, never present with value zero; Count makes that
// convention explicit for callers.
type VoteCounts map[uint]int

// Count returns the vote count for an answer, zero when absent.
func (vc VoteCounts) Count(answerID uint) int {
	return vc[answerID]
}

// Total returns the number of votes across all answers.
func (vc VoteCounts) Total() int {
	total := 0
	for _, n := range vc {
		total += n
	}
	return total
}

// CountVotes returns the unconditional vote breakdown for a poll. Pure read,
// no side effects.
func (s *PollService) CountVotes(pollID uint) (VoteCounts, error) {
	counts, err := s.store.CountVotesByAnswer(pollID)
	if err != nil {
		return nil, err
	}
	return VoteCounts(counts), nil
}

// UserVote returns the user's vote on a poll, or nil when the user has not
// voted. At most one vote exists per (poll, user) pair.
func (s *PollService) UserVote(userID, pollID uint) (*models.Vote, error) {
	return s.store.FindUserVote(userID, pollID)
}
