package services_test

import (
	"testing"

	"crosspoll/internal/models"
	"crosspoll/internal/services"
	"crosspoll/internal/store"
	"crosspoll/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// crossRefFixture builds the cats/dogs vs morning/night scenario: three users
// vote Cats and Morning, three vote Dogs and Night.
type crossRefFixture struct {
	svc            *services.PollService
	base, ref      *models.Poll
	cats, dogs     uint
	morning, night uint
}

func newCrossRefFixture(t *testing.T, st *store.Store) crossRefFixture {
	t.Helper()

	author := testutil.CreateUser(t, st, "ada@example.com", "Ada")
	base := testutil.CreatePoll(t, st, author.ID, "Cats or Dogs?", "Cats", "Dogs")
	ref := testutil.CreatePoll(t, st, author.ID, "Morning or Night?", "Morning", "Night")

	f := crossRefFixture{
		svc:     services.NewPollService(st),
		base:    base,
		ref:     ref,
		cats:    base.Answers[0].ID,
		dogs:    base.Answers[1].ID,
		morning: ref.Answers[0].ID,
		night:   ref.Answers[1].ID,
	}

	for i := 0; i < 3; i++ {
		u := testutil.CreateAnonymousUser(t, st)
		testutil.CastVote(t, st, u.ID, base.ID, f.cats)
		testutil.CastVote(t, st, u.ID, ref.ID, f.morning)
	}
	for i := 0; i < 3; i++ {
		u := testutil.CreateAnonymousUser(t, st)
		testutil.CastVote(t, st, u.ID, base.ID, f.dogs)
		testutil.CastVote(t, st, u.ID, ref.ID, f.night)
	}

	return f
}

func TestCrossReferenceBreakdown(t *testing.T) {
	st := testutil.OpenStore(t)
	f := newCrossRefFixture(t, st)

	refs, err := f.svc.CrossReference(f.base.ID, []services.RefPair{{PollID: f.ref.ID, AnswerID: f.morning}})
	require.NoError(t, err)
	require.Len(t, refs, 1)

	got := refs[0]
	assert.Equal(t, f.ref.ID, got.PollID)
	assert.Equal(t, f.morning, got.AnswerID)
	assert.Equal(t, "Morning or Night?", got.Poll.Question)
	assert.Equal(t, "Morning", got.Answer.Text)
	assert.Equal(t, services.VoteCounts{f.cats: 3}, got.VoteCounts)

	// The Dogs voters all said Night.
	refs, err = f.svc.CrossReference(f.base.ID, []services.RefPair{{PollID: f.ref.ID, AnswerID: f.night}})
	require.NoError(t, err)
	assert.Equal(t, services.VoteCounts{f.dogs: 3}, refs[0].VoteCounts)
}

func TestCrossReferenceEmptyCohort(t *testing.T) {
	st := testutil.OpenStore(t)
	author := testutil.CreateUser(t, st, "ada@example.com", "Ada")
	svc := services.NewPollService(st)

	base := testutil.CreatePoll(t, st, author.ID, "Cats or Dogs?", "Cats", "Dogs")
	ref := testutil.CreatePoll(t, st, author.ID, "Morning or Night?", "Morning", "Night")

	// Nobody voted the reference answer: empty counts, not an error.
	refs, err := svc.CrossReference(base.ID, []services.RefPair{{PollID: ref.ID, AnswerID: ref.Answers[1].ID}})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Empty(t, refs[0].VoteCounts)
	assert.Zero(t, refs[0].VoteCounts.Count(base.Answers[0].ID))
}

func TestCrossReferenceInvalidPairAborts(t *testing.T) {
	st := testutil.OpenStore(t)
	f := newCrossRefFixture(t, st)

	var crossRefErr *services.InvalidCrossRefError

	// Nonexistent reference poll.
	refs, err := f.svc.CrossReference(f.base.ID, []services.RefPair{
		{PollID: f.ref.ID, AnswerID: f.morning},
		{PollID: 9999, AnswerID: f.morning},
	})
	require.ErrorAs(t, err, &crossRefErr)
	assert.Equal(t, "poll not found", crossRefErr.Reason)

	// No partial results survive the abort.
	assert.Nil(t, refs)

	// Answer that belongs to a different poll.
	_, err = f.svc.CrossReference(f.base.ID, []services.RefPair{
		{PollID: f.ref.ID, AnswerID: f.cats},
	})
	require.ErrorAs(t, err, &crossRefErr)
	assert.Equal(t, "answer does not belong to poll", crossRefErr.Reason)
}

func TestCrossReferencePairsAreIndependent(t *testing.T) {
	st := testutil.OpenStore(t)
	f := newCrossRefFixture(t, st)

	// Each pair is evaluated against the base poll on its own; cohorts are
	// not intersected across pairs.
	refs, err := f.svc.CrossReference(f.base.ID, []services.RefPair{
		{PollID: f.ref.ID, AnswerID: f.morning},
		{PollID: f.ref.ID, AnswerID: f.night},
	})
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, services.VoteCounts{f.cats: 3}, refs[0].VoteCounts)
	assert.Equal(t, services.VoteCounts{f.dogs: 3}, refs[1].VoteCounts)
}

func TestCrossReferenceNoPairs(t *testing.T) {
	st := testutil.OpenStore(t)
	f := newCrossRefFixture(t, st)

	refs, err := f.svc.CrossReference(f.base.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, refs)
}

func TestGetPollWithCrossReferences(t *testing.T) {
	st := testutil.OpenStore(t)
	f := newCrossRefFixture(t, st)

	view, err := f.svc.GetPoll(f.base.ID, 0, []services.RefPair{{PollID: f.ref.ID, AnswerID: f.morning}})
	require.NoError(t, err)
	require.Len(t, view.CrossReferences, 1)
	assert.Equal(t, 3, view.VoteCounts.Count(f.cats))
	assert.Equal(t, 3, view.VoteCounts.Count(f.dogs))
	assert.Equal(t, services.VoteCounts{f.cats: 3}, view.CrossReferences[0].VoteCounts)
}
