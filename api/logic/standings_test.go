/* standings_test.go
 * Contains unit tests for standings.go functions
 * Authors: Zachary Bower
 */

package logic

import (
	"ladder-bot/api/shared"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// region FormatStandings tests

func TestFormatStandings_RankedAndUnranked(t *testing.T) {
	teams := []shared.Team{
		{Name: "Alpha", Rank: shared.IntPtr(1), Wins: 3, Losses: 1},
		{Name: "Beta", Rank: shared.IntPtr(2)},
		{Name: "Ghost", Losses: 2},
	}

	res := FormatStandings(teams)

	assert.Contains(t, res, "Ladder Standings")
	assert.Contains(t, res, "1. Alpha (3-1)\n")
	assert.Contains(t, res, "2. Beta (0-0)\n")
	assert.Contains(t, res, "-. Ghost (0-2) [unranked]\n")
	assert.Less(t, strings.Index(res, "Alpha"), strings.Index(res, "Beta"))
}

func TestFormatStandings_Empty(t *testing.T) {
	assert.Equal(t, "No teams are registered on the ladder.", FormatStandings(nil))
}

// endregion

// region FormatChallenges tests

func TestFormatChallenges_ShowsRanks(t *testing.T) {
	teams := []shared.Team{
		{Name: "Alpha", Rank: shared.IntPtr(1)},
		{Name: "Beta", Rank: shared.IntPtr(2)},
	}
	challenges := []shared.Challenge{{Challenger: "Beta", Challenged: "Alpha", Status: shared.StatusPending}}

	res := FormatChallenges(challenges, teams)

	assert.Contains(t, res, "- Beta (rank 2) vs Alpha (rank 1) [pending]")
}

func TestFormatChallenges_Empty(t *testing.T) {
	assert.Equal(t, "There are no active challenges.", FormatChallenges(nil, nil))
}

// endregion

// region FormatPlacements and Ordinal tests

func TestFormatPlacements(t *testing.T) {
	res := FormatPlacements([3]string{"Alpha", "Beta", "No team"})

	assert.Contains(t, res, "1st: Alpha\n")
	assert.Contains(t, res, "2nd: Beta\n")
	assert.Contains(t, res, "3rd: No team\n")
}

func TestOrdinal(t *testing.T) {
	cases := map[int]string{1: "1st", 2: "2nd", 3: "3rd", 4: "4th", 11: "11th", 12: "12th", 13: "13th", 21: "21st", 102: "102nd"}
	for n, want := range cases {
		assert.Equal(t, want, Ordinal(n))
	}
}

// endregion
