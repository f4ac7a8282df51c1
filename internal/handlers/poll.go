package handlers

import (
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strconv"

	"crosspoll/internal/middleware"
	"crosspoll/internal/services"
	"crosspoll/internal/utils"

	"github.com/gin-gonic/gin"
)

type PollHandler struct {
	polls *services.PollService
}

func NewPollHandler(polls *services.PollService) *PollHandler {
	return &PollHandler{polls: polls}
}

// viewerID returns the requesting identity's user id, zero when the request
// carries no identity at all.
func viewerID(c *gin.Context) uint {
	if user := middleware.CurrentUser(c); user != nil {
		return user.ID
	}
	return 0
}

// List handles GET /api/polls.
func (h *PollHandler) List(c *gin.Context) {
	params := services.ListParams{
		Limit: services.DefaultLimit,
		Sort:  c.Query("sort"),
		Query: c.Query("q"),
	}

	if raw, ok := c.GetQuery("limit"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			JSONError(c, &services.InvalidParameterError{Param: "limit", Msg: "must be a number"})
			return
		}
		params.Limit = n
	}
	if raw, ok := c.GetQuery("offset"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			JSONError(c, &services.InvalidParameterError{Param: "offset", Msg: "must be a number"})
			return
		}
		params.Offset = n
	}
	if raw, ok := c.GetQuery("author_id"); ok {
		id, ok := utils.ParseUint(raw)
		if !ok {
			JSONError(c, &services.InvalidParameterError{Param: "author_id", Msg: "must be a positive number"})
			return
		}
		params.AuthorID = id
	}
	if raw, ok := c.GetQuery("voter_id"); ok {
		id, ok := utils.ParseUint(raw)
		if !ok {
			JSONError(c, &services.InvalidParameterError{Param: "voter_id", Msg: "must be a positive number"})
			return
		}
		params.VoterID = id
	}

	list, err := h.polls.ListPolls(params, viewerID(c))
	if err != nil {
		JSONError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

var refPollParam = regexp.MustCompile(`^ref_poll_(\d+)$`)

// parseRefPairs reads the positionally indexed ref_poll_k / ref_answer_k
// query pairs into an ordered list. A pair with either half missing is
// silently dropped; a present half that is not a valid id is rejected.
func parseRefPairs(c *gin.Context) ([]services.RefPair, error) {
	query := c.Request.URL.Query()

	var indexes []int
	for key := range query {
		if m := refPollParam.FindStringSubmatch(key); m != nil {
			if k, err := strconv.Atoi(m[1]); err == nil {
				indexes = append(indexes, k)
			}
		}
	}
	sort.Ints(indexes)

	pairs := make([]services.RefPair, 0, len(indexes))
	for _, k := range indexes {
		pollRaw := query.Get(fmt.Sprintf("ref_poll_%d", k))
		answerRaw := query.Get(fmt.Sprintf("ref_answer_%d", k))
		if pollRaw == "" || answerRaw == "" {
			// Incomplete pair: graceful degradation, not an error.
			continue
		}

		pollID, ok := utils.ParseUint(pollRaw)
		if !ok {
			return nil, &services.InvalidParameterError{Param: fmt.Sprintf("ref_poll_%d", k), Msg: "must be a positive number"}
		}
		answerID, ok := utils.ParseUint(answerRaw)
		if !ok {
			return nil, &services.InvalidParameterError{Param: fmt.Sprintf("ref_answer_%d", k), Msg: "must be a positive number"}
		}

		pairs = append(pairs, services.RefPair{PollID: pollID, AnswerID: answerID})
	}
	return pairs, nil
}

// Detail handles GET /api/polls/:id, with optional cross-reference pairs.
func (h *PollHandler) Detail(c *gin.Context) {
	pollID, ok := utils.ParseUint(c.Param("id"))
	if !ok {
		JSONError(c, &services.InvalidParameterError{Param: "id", Msg: "must be a positive number"})
		return
	}

	pairs, err := parseRefPairs(c)
	if err != nil {
		JSONError(c, err)
		return
	}

	view, err := h.polls.GetPoll(pollID, viewerID(c), pairs)
	if err != nil {
		JSONError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type createPollRequest struct {
	Question string   `json:"question"`
	Answers  []string `json:"answers"`
}

// Create handles POST /api/polls. Requires an authenticated identity.
func (h *PollHandler) Create(c *gin.Context) {
	var req createPollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		JSONError(c, &services.ValidationError{Msg: "invalid JSON body"})
		return
	}

	user := middleware.CurrentUser(c)
	view, err := h.polls.CreatePoll(user.ID, req.Question, req.Answers)
	if err != nil {
		JSONError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// Candidates handles GET /api/polls/:id/candidates: polls eligible to become
// a new cross-reference target for the base poll.
func (h *PollHandler) Candidates(c *gin.Context) {
	pollID, ok := utils.ParseUint(c.Param("id"))
	if !ok {
		JSONError(c, &services.InvalidParameterError{Param: "id", Msg: "must be a positive number"})
		return
	}

	params := services.CandidateParams{Query: c.Query("q")}

	for _, raw := range c.QueryArray("exclude") {
		id, ok := utils.ParseUint(raw)
		if !ok {
			JSONError(c, &services.InvalidParameterError{Param: "exclude", Msg: "must be a positive number"})
			return
		}
		params.ExcludeIDs = append(params.ExcludeIDs, id)
	}
	if raw, ok := c.GetQuery("limit"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			JSONError(c, &services.InvalidParameterError{Param: "limit", Msg: "must be a number"})
			return
		}
		params.Limit = n
	}
	if raw, ok := c.GetQuery("offset"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			JSONError(c, &services.InvalidParameterError{Param: "offset", Msg: "must be a number"})
			return
		}
		params.Offset = n
	}

	list, err := h.polls.FindCandidates(pollID, params)
	if err != nil {
		JSONError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
