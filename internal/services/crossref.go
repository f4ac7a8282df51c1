package services

import (
	"errors"

	"gorm.io/gorm"
)

// RefPair is one requested cross-reference: restrict the base poll's votes to
// users who chose AnswerID on PollID. Pairs arrive already well-formed; the
// transport layer drops pairs with a missing half before they reach here.
type RefPair struct {
	PollID   uint
	AnswerID uint
}

// RefPoll and RefAnswer identify the reference poll and answer in responses.
type RefPoll struct {
	ID       uint   `json:"id"`
	Question string `json:"question"`
}

type RefAnswer struct {
	ID   uint   `json:"id"`
	Text string `json:"text"`
}

// CrossReference is the vote breakdown of the base poll restricted to one
// reference cohort.
type CrossReference struct {
	PollID     uint       `json:"poll_id"`
	AnswerID   uint       `json:"answer_id"`
	Poll       RefPoll    `json:"poll"`
	Answer     RefAnswer  `json:"answer"`
	VoteCounts VoteCounts `json:"vote_counts"`
}

// CrossReference evaluates each pair independently against the base poll:
// cohorts are not intersected across pairs. The first invalid pair aborts the
// whole computation with InvalidCrossRefError; no partial results are
// returned. A nil result means no pairs were requested.
func (s *PollService) CrossReference(basePollID uint, pairs []RefPair) ([]CrossReference, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	out := make([]CrossReference, 0, len(pairs))
	for _, pair := range pairs {
		ref, err := s.resolvePair(basePollID, pair)
		if err != nil {
			return nil, err
		}
		out = append(out, *ref)
	}
	return out, nil
}

func (s *PollService) resolvePair(basePollID uint, pair RefPair) (*CrossReference, error) {
	refPoll, err := s.store.GetPollWithAnswers(pair.PollID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &InvalidCrossRefError{Reason: "poll not found"}
	}
	if err != nil {
		return nil, err
	}

	var refAnswer *RefAnswer
	for _, a := range refPoll.Answers {
		if a.ID == pair.AnswerID {
			refAnswer = &RefAnswer{ID: a.ID, Text: a.Text}
			break
		}
	}
	if refAnswer == nil {
		return nil, &InvalidCrossRefError{Reason: "answer does not belong to poll"}
	}

	// One join on user_id between the base poll's votes and the cohort's
	// votes; an empty cohort yields an empty map, not an error.
	counts, err := s.store.CountVotesByAnswerForCohort(basePollID, pair.PollID, pair.AnswerID)
	if err != nil {
		return nil, err
	}

	return &CrossReference{
		PollID:     pair.PollID,
		AnswerID:   pair.AnswerID,
		Poll:       RefPoll{ID: refPoll.ID, Question: refPoll.Question},
		Answer:     *refAnswer,
		VoteCounts: VoteCounts(counts),
	}, nil
}
