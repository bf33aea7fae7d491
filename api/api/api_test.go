/* api_test.go
 * Contains unit tests for api.go - testing all public API methods
 * Authors: Zachary Bower
 */

package api

import (
	"context"
	"errors"
	"ladder-bot/api/ladder"
	"ladder-bot/api/shared"
	"ladder-bot/api/store"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// player returns the user who registered team in newTestAPI
func player(team string) shared.User {
	return shared.User{UserID: "id-" + team, Username: team + "Captain"}
}

// newTestAPI creates an API over a mock store with the named teams registered in order
func newTestAPI(t *testing.T, names ...string) (*API, *store.MockStore) {
	t.Helper()
	s := store.NewMockStore()
	a, err := NewAPI(context.Background(), s, nil)
	require.NoError(t, err)
	for _, name := range names {
		_, err := a.Register(context.Background(), player(name), name, nil)
		require.NoError(t, err)
	}
	return a, s
}

func newStartedAPI(t *testing.T, names ...string) (*API, *store.MockStore) {
	t.Helper()
	a, s := newTestAPI(t, names...)
	_, err := a.Start(context.Background())
	require.NoError(t, err)
	return a, s
}

// region NewAPI tests

func TestNewAPI_RequiresStore(t *testing.T) {
	_, err := NewAPI(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNewAPI_LoadsExistingState(t *testing.T) {
	s := store.NewMockStore()
	s.Teams = []shared.Team{{Name: "Alpha", Members: []string{"u1"}, Rank: shared.IntPtr(1)}}
	s.State = shared.LadderState{Running: true}

	a, err := NewAPI(context.Background(), s, nil)
	require.NoError(t, err)

	assert.True(t, a.Ladder.State().Running)
	assert.Contains(t, a.ListStandings(), "1. Alpha (0-0)")
}

func TestClose_ClosesStore(t *testing.T) {
	s := store.NewMockStore()
	a, err := NewAPI(context.Background(), s, nil)
	require.NoError(t, err)

	require.NoError(t, a.Close(context.Background()))
	assert.True(t, s.Closed)

	s.CloseError = errors.New("still busy")
	assert.EqualError(t, a.Close(context.Background()), "still busy")
}

func TestNewAPI_LoadFailure(t *testing.T) {
	s := store.NewMockStore()
	s.LoadTeamsError = errors.New("disk on fire")

	_, err := NewAPI(context.Background(), s, nil)
	assert.ErrorIs(t, err, ladder.ErrIO)
}

// endregion

// region Register and Remove tests

func TestRegister_DefaultsToCaller(t *testing.T) {
	a, s := newTestAPI(t)

	res, err := a.Register(context.Background(), player("Alpha"), "Alpha", nil)
	require.NoError(t, err)

	assert.Equal(t, "Team 'Alpha' registered at rank 1 with members <@id-Alpha>", res)
	require.Len(t, s.Teams, 1)
	assert.Equal(t, []string{"id-Alpha"}, s.Teams[0].Members)
}

func TestRegister_StripsQuotes(t *testing.T) {
	a, _ := newTestAPI(t)

	_, err := a.Register(context.Background(), player("x"), "“Red Dragons”", []string{"a", "b"})
	require.NoError(t, err)

	team, err := a.Ladder.Team("Red Dragons")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, team.Members)
}

func TestRegister_EmptyName(t *testing.T) {
	a, _ := newTestAPI(t)

	_, err := a.Register(context.Background(), player("x"), "  ", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRegister_Duplicate(t *testing.T) {
	a, _ := newTestAPI(t, "Alpha")

	_, err := a.Register(context.Background(), player("x"), "Alpha", nil)
	assert.ErrorIs(t, err, ladder.ErrAlreadyExists)
}

func TestRemove_SuggestsCloseName(t *testing.T) {
	a, _ := newTestAPI(t, "Alpha", "Beta")

	_, err := a.Remove(context.Background(), "alpha")
	require.ErrorIs(t, err, ladder.ErrNotFound)
	assert.Contains(t, err.Error(), "did you mean 'Alpha'?")
}

func TestRemove_Success(t *testing.T) {
	a, _ := newTestAPI(t, "Alpha", "Beta")

	res, err := a.Remove(context.Background(), "Alpha")
	require.NoError(t, err)

	assert.Contains(t, res, "'Alpha' has been removed")
	assert.Equal(t, []string{"Beta"}, a.Ladder.TeamNames())
}

// endregion

// region Start and End tests

func TestStart_ShowsStandings(t *testing.T) {
	a, _ := newTestAPI(t, "Alpha", "Beta")

	res, err := a.Start(context.Background())
	require.NoError(t, err)

	assert.Contains(t, res, "The ladder has started")
	assert.Contains(t, res, "2. Beta (0-0)")

	_, err = a.Start(context.Background())
	assert.ErrorIs(t, err, ladder.ErrInvalidState)
}

func TestEnd_ReportsPlacements(t *testing.T) {
	a, s := newStartedAPI(t, "Alpha", "Beta")

	res, err := a.End(context.Background())
	require.NoError(t, err)

	assert.Contains(t, res, "1st: Alpha")
	assert.Contains(t, res, "2nd: Beta")
	assert.Contains(t, res, "3rd: No team")
	assert.Empty(t, s.Teams)
	assert.False(t, s.State.Running)
}

func TestEnd_NotRunning(t *testing.T) {
	a, _ := newTestAPI(t, "Alpha")

	_, err := a.End(context.Background())
	assert.ErrorIs(t, err, ladder.ErrInvalidState)
}

// endregion

// region Challenge tests

func TestChallenge_Success(t *testing.T) {
	a, s := newStartedAPI(t, "Alpha", "Beta")

	res, err := a.Challenge(context.Background(), player("Beta"), "Beta", "Alpha")
	require.NoError(t, err)

	assert.Equal(t, "'Beta' has challenged 'Alpha'! Report the result with $report_win once the match is played", res)
	require.Len(t, s.Matches, 1)
	assert.Contains(t, a.ListChallenges(), "- Beta (rank 2) vs Alpha (rank 1) [pending]")
}

func TestChallenge_NotMember(t *testing.T) {
	a, _ := newStartedAPI(t, "Alpha", "Beta")

	_, err := a.Challenge(context.Background(), player("Alpha"), "Beta", "Alpha")
	assert.ErrorIs(t, err, ladder.ErrForbidden)
}

func TestAdminChallenge_SkipsMembership(t *testing.T) {
	a, _ := newStartedAPI(t, "Alpha", "Beta")

	_, err := a.AdminChallenge(context.Background(), player("Admin"), "Beta", "Alpha")
	assert.NoError(t, err)
}

func TestChallenge_MissingArgument(t *testing.T) {
	a, _ := newStartedAPI(t, "Alpha", "Beta")

	_, err := a.Challenge(context.Background(), player("Beta"), "Beta", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestChallenge_TypoSuggestion(t *testing.T) {
	a, _ := newStartedAPI(t, "Alpha", "Beta")

	_, err := a.Challenge(context.Background(), player("Beta"), "Beta", "Alhpa")
	require.ErrorIs(t, err, ladder.ErrNotFound)
	assert.Contains(t, err.Error(), "did you mean 'Alpha'?")
}

func TestCancelChallenge(t *testing.T) {
	a, s := newStartedAPI(t, "Alpha", "Beta")
	_, err := a.Challenge(context.Background(), player("Beta"), "Beta", "Alpha")
	require.NoError(t, err)

	_, err = a.CancelChallenge(context.Background(), player("Alpha"), "Beta")
	assert.ErrorIs(t, err, ladder.ErrForbidden)

	res, err := a.CancelChallenge(context.Background(), player("Beta"), "Beta")
	require.NoError(t, err)
	assert.Equal(t, "The challenge from 'Beta' to 'Alpha' has been cancelled", res)
	assert.Empty(t, s.Matches)
}

func TestAdminCancelChallenge(t *testing.T) {
	a, _ := newStartedAPI(t, "Alpha", "Beta")
	_, err := a.Challenge(context.Background(), player("Beta"), "Beta", "Alpha")
	require.NoError(t, err)

	_, err = a.AdminCancelChallenge(context.Background(), player("Admin"), "Beta")
	assert.NoError(t, err)
	assert.Equal(t, "There are no active challenges.", a.ListChallenges())
}

// endregion

// region ReportWin tests

func TestReportWin_ChallengerClimbs(t *testing.T) {
	a, _ := newStartedAPI(t, "Alpha", "Beta", "Gamma")
	_, err := a.Challenge(context.Background(), player("Gamma"), "Gamma", "Beta")
	require.NoError(t, err)

	res, err := a.ReportWin(context.Background(), player("Beta"), "Gamma")
	require.NoError(t, err)

	assert.Equal(t, "'Gamma' defeated 'Beta' and climbs to rank 2!", res)
	standings := a.ListStandings()
	assert.Contains(t, standings, "1. Alpha (0-0)")
	assert.Contains(t, standings, "2. Gamma (1-0)")
	assert.Contains(t, standings, "3. Beta (0-1)")
}

func TestReportWin_Defended(t *testing.T) {
	a, _ := newStartedAPI(t, "Alpha", "Beta")
	_, err := a.Challenge(context.Background(), player("Beta"), "Beta", "Alpha")
	require.NoError(t, err)

	res, err := a.AdminReportWin(context.Background(), player("Admin"), "Alpha")
	require.NoError(t, err)

	assert.Equal(t, "'Alpha' defended its rank against 'Beta'", res)
	assert.Contains(t, a.ListStandings(), "1. Alpha (1-0)")
}

func TestReportWin_Outsider(t *testing.T) {
	a, _ := newStartedAPI(t, "Alpha", "Beta", "Gamma")
	_, err := a.Challenge(context.Background(), player("Beta"), "Beta", "Alpha")
	require.NoError(t, err)

	_, err = a.ReportWin(context.Background(), player("Gamma"), "Beta")
	assert.ErrorIs(t, err, ladder.ErrForbidden)
}

func TestReportWin_NoMatch(t *testing.T) {
	a, _ := newStartedAPI(t, "Alpha", "Beta")

	_, err := a.ReportWin(context.Background(), player("Alpha"), "Alpha")
	assert.ErrorIs(t, err, ladder.ErrNotFound)
}

// endregion

// region SetRank and record tests

func TestSetRank(t *testing.T) {
	a, _ := newTestAPI(t, "Alpha", "Beta", "Gamma", "Delta")

	res, err := a.SetRank(context.Background(), "Delta", "1")
	require.NoError(t, err)
	assert.Equal(t, "'Delta' is now rank 1", res)
	assert.Contains(t, a.ListStandings(), "2. Alpha")

	res, err = a.SetRank(context.Background(), "Delta", "1")
	require.NoError(t, err)
	assert.Equal(t, "'Delta' is already rank 1", res)
}

func TestSetRank_BadInput(t *testing.T) {
	a, _ := newTestAPI(t, "Alpha", "Beta")

	_, err := a.SetRank(context.Background(), "Alpha", "first")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = a.SetRank(context.Background(), "Alpha", "3")
	assert.ErrorIs(t, err, ladder.ErrOutOfRange)
}

func TestAdjustRecord(t *testing.T) {
	a, _ := newTestAPI(t, "Alpha")

	res, err := a.AdjustWin(context.Background(), "Alpha", 1)
	require.NoError(t, err)
	assert.Equal(t, "'Alpha' record is now 1-0", res)

	res, err = a.AdjustLoss(context.Background(), "Alpha", 2)
	require.NoError(t, err)
	assert.Equal(t, "'Alpha' record is now 1-2", res)

	_, err = a.AdjustWin(context.Background(), "Alpha", -2)
	assert.ErrorIs(t, err, ladder.ErrUnderflow)
}

func TestAdjustRecord_SaveFailure(t *testing.T) {
	a, s := newTestAPI(t, "Alpha")
	s.SaveTeamsError = errors.New("read-only")

	_, err := a.AdjustWin(context.Background(), "Alpha", 1)
	assert.ErrorIs(t, err, ladder.ErrIO)
	assert.Contains(t, a.ListStandings(), "1. Alpha (0-0)")
}

// endregion

// region Channel tests

func TestSetStandingsChannel(t *testing.T) {
	a, s := newTestAPI(t)

	res, err := a.SetStandingsChannel(context.Background(), shared.StringPtr("42"))
	require.NoError(t, err)
	assert.Equal(t, "The standings will be posted in <#42>", res)
	require.NotNil(t, s.State.StandingsChannelID)
	assert.Equal(t, "42", *s.State.StandingsChannelID)

	res, err = a.SetStandingsChannel(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "The standings channel has been cleared", res)
	assert.Nil(t, s.State.StandingsChannelID)
}

func TestSetChallengesChannel(t *testing.T) {
	a, s := newTestAPI(t)

	_, err := a.SetChallengesChannel(context.Background(), shared.StringPtr("  "))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = a.SetChallengesChannel(context.Background(), shared.StringPtr("7"))
	require.NoError(t, err)
	require.NotNil(t, s.State.ChallengesChannelID)
	assert.Equal(t, "7", *s.State.ChallengesChannelID)
}

// endregion
