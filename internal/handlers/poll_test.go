package handlers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"crosspoll/internal/models"
	"crosspoll/internal/store"
	"crosspoll/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type errorBody struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
	Param string `json:"param"`
	Vote  *struct {
		PollID   uint `json:"poll_id"`
		AnswerID uint `json:"answer_id"`
	} `json:"vote"`
}

func TestAnonymousIdentityPersistsAcrossRequests(t *testing.T) {
	st := testutil.OpenStore(t)
	r := testutil.NewRouter(t, st)

	w := testutil.Do(t, r, http.MethodGet, "/api/me", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var me struct {
		UserID          uint `json:"user_id"`
		IsAuthenticated bool `json:"is_authenticated"`
	}
	testutil.DecodeJSON(t, w, &me)
	assert.False(t, me.IsAuthenticated)
	assert.NotZero(t, me.UserID)

	// The session cookie pins the same identity on the next request.
	cookies := w.Result().Cookies()
	w = testutil.Do(t, r, http.MethodGet, "/api/me", nil, cookies)
	var again struct {
		UserID uint `json:"user_id"`
	}
	testutil.DecodeJSON(t, w, &again)
	assert.Equal(t, me.UserID, again.UserID)
}

func TestCreatePollRequiresAuthentication(t *testing.T) {
	st := testutil.OpenStore(t)
	r := testutil.NewRouter(t, st)

	body := map[string]interface{}{"question": "Cats or Dogs?", "answers": []string{"Cats", "Dogs"}}
	w := testutil.Do(t, r, http.MethodPost, "/api/polls", body, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	var resp errorBody
	testutil.DecodeJSON(t, w, &resp)
	assert.Equal(t, "authentication_required", resp.Kind)
}

func TestCreatePoll(t *testing.T) {
	st := testutil.OpenStore(t)
	r := testutil.NewRouter(t, st)
	user := testutil.CreateUser(t, st, "ada@example.com", "Ada")
	cookies := testutil.Login(t, r, user.ID)

	body := map[string]interface{}{"question": "Cats or Dogs?", "answers": []string{"Cats", "Dogs"}}
	w := testutil.Do(t, r, http.MethodPost, "/api/polls", body, cookies)
	require.Equal(t, http.StatusCreated, w.Code)

	var view struct {
		ID      uint `json:"id"`
		Answers []models.Answer
		Author  struct {
			ID uint `json:"id"`
		} `json:"author"`
	}
	testutil.DecodeJSON(t, w, &view)
	assert.NotZero(t, view.ID)
	assert.Len(t, view.Answers, 2)
	assert.Equal(t, user.ID, view.Author.ID)

	// Shape violations surface as validation errors.
	bad := map[string]interface{}{"question": "Only one?", "answers": []string{"A"}}
	w = testutil.Do(t, r, http.MethodPost, "/api/polls", bad, cookies)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp errorBody
	testutil.DecodeJSON(t, w, &resp)
	assert.Equal(t, "validation_error", resp.Kind)
}

func TestCastVoteEndpoint(t *testing.T) {
	st := testutil.OpenStore(t)
	r := testutil.NewRouter(t, st)
	author := testutil.CreateUser(t, st, "ada@example.com", "Ada")
	voter := testutil.CreateUser(t, st, "bob@example.com", "Bob")
	poll := testutil.CreatePoll(t, st, author.ID, "Cats or Dogs?", "Cats", "Dogs")
	cats := poll.Answers[0].ID

	cookies := testutil.Login(t, r, voter.ID)
	path := fmt.Sprintf("/api/polls/%d/votes", poll.ID)

	w := testutil.Do(t, r, http.MethodPost, path, map[string]uint{"answer_id": cats}, cookies)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Vote       models.Vote  `json:"vote"`
		VoteCounts map[uint]int `json:"vote_counts"`
	}
	testutil.DecodeJSON(t, w, &resp)
	assert.Equal(t, cats, resp.Vote.AnswerID)
	assert.Equal(t, 1, resp.VoteCounts[cats])

	// A repeat vote is a conflict that carries the existing vote.
	w = testutil.Do(t, r, http.MethodPost, path, map[string]uint{"answer_id": poll.Answers[1].ID}, cookies)
	require.Equal(t, http.StatusConflict, w.Code)
	var conflict errorBody
	testutil.DecodeJSON(t, w, &conflict)
	assert.Equal(t, "already_voted", conflict.Kind)
	require.NotNil(t, conflict.Vote)
	assert.Equal(t, cats, conflict.Vote.AnswerID)

	// Unknown poll.
	w = testutil.Do(t, r, http.MethodPost, "/api/polls/9999/votes", map[string]uint{"answer_id": cats}, cookies)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func seedCrossRef(t *testing.T, st *store.Store) (base, ref *models.Poll) {
	t.Helper()
	author := testutil.CreateUser(t, st, "ada@example.com", "Ada")
	base = testutil.CreatePoll(t, st, author.ID, "Cats or Dogs?", "Cats", "Dogs")
	ref = testutil.CreatePoll(t, st, author.ID, "Morning or Night?", "Morning", "Night")

	u := testutil.CreateAnonymousUser(t, st)
	testutil.CastVote(t, st, u.ID, base.ID, base.Answers[0].ID)
	testutil.CastVote(t, st, u.ID, ref.ID, ref.Answers[0].ID)
	return base, ref
}

func TestPollDetailCrossReferences(t *testing.T) {
	st := testutil.OpenStore(t)
	r := testutil.NewRouter(t, st)
	base, ref := seedCrossRef(t, st)

	path := fmt.Sprintf("/api/polls/%d?ref_poll_1=%d&ref_answer_1=%d", base.ID, ref.ID, ref.Answers[0].ID)
	w := testutil.Do(t, r, http.MethodGet, path, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var view struct {
		CrossReferences []struct {
			PollID uint `json:"poll_id"`
			Poll   struct {
				Question string `json:"question"`
			} `json:"poll"`
			VoteCounts map[uint]int `json:"vote_counts"`
		} `json:"cross_references"`
	}
	testutil.DecodeJSON(t, w, &view)
	require.Len(t, view.CrossReferences, 1)
	assert.Equal(t, ref.ID, view.CrossReferences[0].PollID)
	assert.Equal(t, "Morning or Night?", view.CrossReferences[0].Poll.Question)
	assert.Equal(t, 1, view.CrossReferences[0].VoteCounts[base.Answers[0].ID])
}

func TestPollDetailSkipVsAbort(t *testing.T) {
	st := testutil.OpenStore(t)
	r := testutil.NewRouter(t, st)
	base, ref := seedCrossRef(t, st)

	// Half a pair is silently dropped: no cross_references field at all.
	path := fmt.Sprintf("/api/polls/%d?ref_poll_1=%d", base.ID, ref.ID)
	w := testutil.Do(t, r, http.MethodGet, path, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var raw map[string]json.RawMessage
	testutil.DecodeJSON(t, w, &raw)
	_, present := raw["cross_references"]
	assert.False(t, present)

	// A complete pair with a nonexistent poll fails the whole request.
	path = fmt.Sprintf("/api/polls/%d?ref_poll_1=9999&ref_answer_1=%d", base.ID, ref.Answers[0].ID)
	w = testutil.Do(t, r, http.MethodGet, path, nil, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp errorBody
	testutil.DecodeJSON(t, w, &resp)
	assert.Equal(t, "invalid_cross_reference", resp.Kind)
}

func TestPollDetailLaterPairSurvivesEarlierIncompleteOne(t *testing.T) {
	st := testutil.OpenStore(t)
	r := testutil.NewRouter(t, st)
	base, ref := seedCrossRef(t, st)

	// Pair 1 is incomplete and dropped; pair 2 still resolves.
	path := fmt.Sprintf("/api/polls/%d?ref_poll_1=%d&ref_poll_2=%d&ref_answer_2=%d",
		base.ID, ref.ID, ref.ID, ref.Answers[0].ID)
	w := testutil.Do(t, r, http.MethodGet, path, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var view struct {
		CrossReferences []struct {
			AnswerID uint `json:"answer_id"`
		} `json:"cross_references"`
	}
	testutil.DecodeJSON(t, w, &view)
	require.Len(t, view.CrossReferences, 1)
	assert.Equal(t, ref.Answers[0].ID, view.CrossReferences[0].AnswerID)
}

func TestListPollsEndpoint(t *testing.T) {
	st := testutil.OpenStore(t)
	r := testutil.NewRouter(t, st)
	author := testutil.CreateUser(t, st, "ada@example.com", "Ada")
	testutil.CreatePoll(t, st, author.ID, "Cats or Dogs?", "Cats", "Dogs")

	w := testutil.Do(t, r, http.MethodGet, "/api/polls", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Polls   []json.RawMessage `json:"polls"`
		Total   int64             `json:"total"`
		HasMore bool              `json:"has_more"`
	}
	testutil.DecodeJSON(t, w, &list)
	assert.EqualValues(t, 1, list.Total)
	assert.Len(t, list.Polls, 1)
	assert.False(t, list.HasMore)

	// Malformed and out-of-range pagination input.
	for _, path := range []string{
		"/api/polls?limit=abc",
		"/api/polls?limit=51",
		"/api/polls?offset=-1",
		"/api/polls?sort=best",
	} {
		w = testutil.Do(t, r, http.MethodGet, path, nil, nil)
		require.Equalf(t, http.StatusBadRequest, w.Code, "path %s", path)
		var resp errorBody
		testutil.DecodeJSON(t, w, &resp)
		assert.Equal(t, "invalid_parameter", resp.Kind)
	}
}

func TestCandidatesEndpoint(t *testing.T) {
	st := testutil.OpenStore(t)
	r := testutil.NewRouter(t, st)
	author := testutil.CreateUser(t, st, "ada@example.com", "Ada")

	base := testutil.CreatePoll(t, st, author.ID, "Base?", "Yes", "No")
	taken := testutil.CreatePoll(t, st, author.ID, "Taken?", "Yes", "No")
	open := testutil.CreatePoll(t, st, author.ID, "Open?", "Yes", "No")

	path := fmt.Sprintf("/api/polls/%d/candidates?exclude=%d", base.ID, taken.ID)
	w := testutil.Do(t, r, http.MethodGet, path, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Polls []struct {
			ID uint `json:"id"`
		} `json:"polls"`
		Total int64 `json:"total"`
	}
	testutil.DecodeJSON(t, w, &list)
	assert.EqualValues(t, 1, list.Total)
	require.Len(t, list.Polls, 1)
	assert.Equal(t, open.ID, list.Polls[0].ID)
}
