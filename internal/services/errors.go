package services

import (
	"errors"
	"fmt"

	"crosspoll/internal/models"
)

// ErrNotFound marks a valid-shaped reference to an entity that does not
// exist, distinct from malformed input.
var ErrNotFound = errors.New("not found")

// ErrInvalidAnswer marks a vote for an answer that does not belong to the
// target poll.
var ErrInvalidAnswer = errors.New("answer does not belong to poll")

// ValidationError is bad poll or answer shape. Never retried, never fatal.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// InvalidParameterError is malformed pagination, sort, or id input.
type InvalidParameterError struct {
	Param string
	Msg   string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Param, e.Msg)
}

// InvalidCrossRefError aborts the whole cross-reference computation for the
// request. The base poll's own data is unaffected.
type InvalidCrossRefError struct {
	Reason string
}

func (e *InvalidCrossRefError) Error() string {
	return "invalid cross reference: " + e.Reason
}

// AlreadyVotedError is a business rule, not a system failure. It carries the
// existing vote so clients can reconcile without a follow-up fetch.
type AlreadyVotedError struct {
	Existing models.Vote
}

func (e *AlreadyVotedError) Error() string {
	return fmt.Sprintf("already voted on poll %d", e.Existing.PollID)
}
