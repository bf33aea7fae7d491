/* team_names.go
 * Contains the logic for matching team names typed by users against the registered teams. Team names are exact,
 * case-sensitive keys, so matching is only used to suggest the team the user probably meant
 * Authors: Zachary Bower
 */

package logic

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// SuggestTeamName finds the registered team closest to a name that did not match exactly.
// Preconditions: receives the user's input and the list of registered team names
// Postconditions: returns the best candidate and true, or "" and false if nothing is close enough
func SuggestTeamName(input string, validTeams []string) (string, bool) {
	input = strings.TrimSpace(input)
	if input == "" || len(validTeams) == 0 {
		return "", false
	}

	// Case-insensitive exact match wins outright
	for _, name := range validTeams {
		if strings.EqualFold(name, input) {
			return name, true
		}
	}

	// Input appears (in order) inside a team name, e.g. "navi" in "Natus Vincere" style abbreviations
	ranks := fuzzy.RankFindFold(input, validTeams)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target, true
	}

	// Fall back to edit distance for typos
	best, bestDistance := "", -1
	lowerInput := strings.ToLower(input)
	for _, name := range validTeams {
		d := fuzzy.LevenshteinDistance(lowerInput, strings.ToLower(name))
		if bestDistance == -1 || d < bestDistance {
			best, bestDistance = name, d
		}
	}
	if bestDistance <= maxTypoDistance(input) {
		return best, true
	}
	return "", false
}

// maxTypoDistance allows roughly one mistake per three characters, and at least two
func maxTypoDistance(input string) int {
	d := len([]rune(input)) / 3
	if d < 2 {
		return 2
	}
	return d
}
