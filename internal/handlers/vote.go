package handlers

import (
	"net/http"

	"crosspoll/internal/middleware"
	"crosspoll/internal/services"
	"crosspoll/internal/utils"

	"github.com/gin-gonic/gin"
)

type VoteHandler struct {
	polls *services.PollService
}

func NewVoteHandler(polls *services.PollService) *VoteHandler {
	return &VoteHandler{polls: polls}
}

type castVoteRequest struct {
	AnswerID uint `json:"answer_id"`
}

// Cast handles POST /api/polls/:id/votes. Requires an authenticated identity;
// a second vote on the same poll returns 409 with the existing vote attached.
func (h *VoteHandler) Cast(c *gin.Context) {
	pollID, ok := utils.ParseUint(c.Param("id"))
	if !ok {
		JSONError(c, &services.InvalidParameterError{Param: "id", Msg: "must be a positive number"})
		return
	}

	var req castVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AnswerID == 0 {
		JSONError(c, &services.ValidationError{Msg: "answer_id is required"})
		return
	}

	user := middleware.CurrentUser(c)
	vote, counts, err := h.polls.CastVote(user.ID, pollID, req.AnswerID)
	if err != nil {
		JSONError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"vote":        vote,
		"vote_counts": counts,
	})
}
