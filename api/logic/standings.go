/* standings.go
 * Contains the logic for turning ladder state into the text posted to Discord: standings, open challenges and the
 * final placements once a ladder ends
 * Authors: Zachary Bower
 */

package logic

import (
	"fmt"
	"ladder-bot/api/shared"
	"strings"
)

// FormatStandings renders teams (already ordered by rank) as a numbered list with win/loss records
// Preconditions: Receives teams ordered by rank, unranked teams last
// Postconditions: Returns the standings message, or a short notice when there are no teams
func FormatStandings(teams []shared.Team) string {
	if len(teams) == 0 {
		return "No teams are registered on the ladder."
	}

	var res strings.Builder
	res.WriteString("**Ladder Standings**\n")
	for _, team := range teams {
		if team.IsRanked() {
			res.WriteString(fmt.Sprintf("%d. %s (%d-%d)\n", *team.Rank, team.Name, team.Wins, team.Losses))
		} else {
			res.WriteString(fmt.Sprintf("-. %s (%d-%d) [unranked]\n", team.Name, team.Wins, team.Losses))
		}
	}
	return res.String()
}

// FormatChallenges renders the open challenges with the current rank of each side
func FormatChallenges(challenges []shared.Challenge, teams []shared.Team) string {
	if len(challenges) == 0 {
		return "There are no active challenges."
	}

	ranks := make(map[string]int, len(teams))
	for _, team := range teams {
		ranks[team.Name] = team.RankValue()
	}

	var res strings.Builder
	res.WriteString("**Active Challenges**\n")
	for _, c := range challenges {
		res.WriteString(fmt.Sprintf("- %s (rank %d) vs %s (rank %d) [%s]\n",
			c.Challenger, ranks[c.Challenger], c.Challenged, ranks[c.Challenged], c.Status))
	}
	return res.String()
}

// FormatPlacements renders the top three of a finished ladder
func FormatPlacements(placements [3]string) string {
	var res strings.Builder
	res.WriteString("**Final Placements**\n")
	for i, name := range placements {
		res.WriteString(fmt.Sprintf("%s: %s\n", Ordinal(i+1), name))
	}
	return res.String()
}

// Ordinal returns 1st, 2nd, 3rd, 4th, ... 11th, 12th, 13th, 21st
func Ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
