/* api.go
 * This file contains the public methods for interacting with the ladder. The Discord dispatcher and the web server
 * should only call the functions in this file, not the ladder, logic and store packages directly. Each method turns
 * a command into a ladder operation and returns the text to reply with
 * Authors: Zachary Bower
 */

package api

import (
	"context"
	"errors"
	"fmt"
	"ladder-bot/api/ladder"
	"ladder-bot/api/logic"
	"ladder-bot/api/shared"
	"ladder-bot/api/store"
	"slices"
	"strconv"
	"strings"
)

// API provides methods for interacting with the ladder bot data layer
type API struct {
	Ladder *ladder.Ladder
	Store  store.Interface
}

// NewAPI creates a ladder on top of s and loads whatever s already holds
// Preconditions: Receives an open store and an optional notifier (nil discards events)
// Postconditions: Returns a ready API, or an error if the stored state could not be loaded
func NewAPI(ctx context.Context, s store.Interface, n ladder.Notifier) (*API, error) {
	if s == nil {
		return nil, fmt.Errorf("a store is required: %w", ErrInvalidInput)
	}

	l := ladder.New(s, n)
	if err := l.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load ladder: %w", err)
	}

	return &API{
		Ladder: l,
		Store:  s,
	}, nil
}

// Close releases the store. The API must not be used afterwards.
func (a *API) Close(ctx context.Context) error {
	return a.Store.Close(ctx)
}

// Register adds a team in last place. With no members the caller is the only member.
// Preconditions: Receives the calling user, the team name and the user ids of the members
// Postconditions: Returns a confirmation message, or an error if the name is empty or already taken
func (a *API) Register(ctx context.Context, caller shared.User, name string, members []string) (string, error) {
	name = cleanName(name)
	if name == "" {
		return "", fmt.Errorf("a team name is required: %w", ErrInvalidInput)
	}

	team, err := a.Ladder.RegisterTeam(ctx, caller, name, members)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Team '%s' registered at rank %d with members %s", team.Name, team.RankValue(), mentionAll(team.Members)), nil
}

// Remove deletes a team and any challenge it is part of
func (a *API) Remove(ctx context.Context, name string) (string, error) {
	name = cleanName(name)
	if name == "" {
		return "", fmt.Errorf("a team name is required: %w", ErrInvalidInput)
	}

	if err := a.Ladder.RemoveTeam(ctx, name); err != nil {
		return "", a.explain(err, name)
	}
	return fmt.Sprintf("Team '%s' has been removed from the ladder", name), nil
}

// Start opens the ladder for challenges
func (a *API) Start(ctx context.Context) (string, error) {
	if err := a.Ladder.Start(ctx); err != nil {
		return "", err
	}
	return "The ladder has started! Challenges are now open.\n" + a.ListStandings(), nil
}

// End closes the ladder and reports the final standings and placements. All teams and challenges are cleared.
func (a *API) End(ctx context.Context) (string, error) {
	result, err := a.Ladder.End(ctx)
	if err != nil {
		return "", err
	}

	var response strings.Builder
	response.WriteString("The ladder has ended!\n")
	response.WriteString(logic.FormatPlacements(result.Placements))
	response.WriteString("\n")
	response.WriteString(logic.FormatStandings(result.Standings))
	return response.String(), nil
}

// Challenge issues a challenge on behalf of a member of the challenger team
func (a *API) Challenge(ctx context.Context, caller shared.User, challenger string, challenged string) (string, error) {
	return a.challenge(ctx, caller, challenger, challenged, false)
}

// AdminChallenge issues a challenge without checking that the caller is a member of the challenger team
func (a *API) AdminChallenge(ctx context.Context, caller shared.User, challenger string, challenged string) (string, error) {
	return a.challenge(ctx, caller, challenger, challenged, true)
}

func (a *API) challenge(ctx context.Context, caller shared.User, challenger string, challenged string, admin bool) (string, error) {
	challenger, challenged = cleanName(challenger), cleanName(challenged)
	if challenger == "" || challenged == "" {
		return "", fmt.Errorf("both a challenger and a challenged team are required: %w", ErrInvalidInput)
	}

	c, err := a.Ladder.Challenge(ctx, caller, challenger, challenged, admin)
	if err != nil {
		return "", a.explain(err, challenger, challenged)
	}
	return fmt.Sprintf("'%s' has challenged '%s'! Report the result with $report_win once the match is played", c.Challenger, c.Challenged), nil
}

// CancelChallenge withdraws the challenge issued by team, the caller must be a member of team
func (a *API) CancelChallenge(ctx context.Context, caller shared.User, team string) (string, error) {
	return a.cancelChallenge(ctx, caller, team, false)
}

// AdminCancelChallenge withdraws the challenge issued by team regardless of who asks
func (a *API) AdminCancelChallenge(ctx context.Context, caller shared.User, team string) (string, error) {
	return a.cancelChallenge(ctx, caller, team, true)
}

func (a *API) cancelChallenge(ctx context.Context, caller shared.User, team string, admin bool) (string, error) {
	team = cleanName(team)
	if team == "" {
		return "", fmt.Errorf("a team name is required: %w", ErrInvalidInput)
	}

	c, err := a.Ladder.CancelChallenge(ctx, caller, team, admin)
	if err != nil {
		return "", a.explain(err, team)
	}
	return fmt.Sprintf("The challenge from '%s' to '%s' has been cancelled", c.Challenger, c.Challenged), nil
}

// ReportWin records that winner won its open match. The caller must be a member of either team.
func (a *API) ReportWin(ctx context.Context, caller shared.User, winner string) (string, error) {
	return a.reportWin(ctx, caller, winner, false)
}

// AdminReportWin records a result for any open match
func (a *API) AdminReportWin(ctx context.Context, caller shared.User, winner string) (string, error) {
	return a.reportWin(ctx, caller, winner, true)
}

func (a *API) reportWin(ctx context.Context, caller shared.User, winner string, admin bool) (string, error) {
	winner = cleanName(winner)
	if winner == "" {
		return "", fmt.Errorf("the winning team is required: %w", ErrInvalidInput)
	}

	res, err := a.Ladder.ReportWin(ctx, caller, winner, admin)
	if err != nil {
		return "", a.explain(err, winner)
	}

	if !res.WinnerWasChallenger {
		return fmt.Sprintf("'%s' defended its rank against '%s'", res.Winner, res.Loser), nil
	}
	team, err := a.Ladder.Team(res.Winner)
	if err != nil {
		return fmt.Sprintf("'%s' defeated '%s'", res.Winner, res.Loser), nil
	}
	return fmt.Sprintf("'%s' defeated '%s' and climbs to rank %d!", res.Winner, res.Loser, team.RankValue()), nil
}

// SetRank moves a team to rank, shifting the teams in between
// Preconditions: Receives the team name and the rank as typed by the user
// Postconditions: Returns a confirmation message, or an error if the rank is not a number or out of range
func (a *API) SetRank(ctx context.Context, name string, rank string) (string, error) {
	name = cleanName(name)
	if name == "" {
		return "", fmt.Errorf("a team name is required: %w", ErrInvalidInput)
	}
	newRank, err := strconv.Atoi(strings.TrimSpace(rank))
	if err != nil {
		return "", fmt.Errorf("'%s' is not a rank: %w", rank, ErrInvalidInput)
	}

	changed, err := a.Ladder.SetRank(ctx, name, newRank)
	if err != nil {
		return "", a.explain(err, name)
	}
	if !changed {
		return fmt.Sprintf("'%s' is already rank %d", name, newRank), nil
	}
	return fmt.Sprintf("'%s' is now rank %d", name, newRank), nil
}

// AdjustWin adds delta (which may be negative) to a team's wins
func (a *API) AdjustWin(ctx context.Context, name string, delta int) (string, error) {
	return a.adjust(ctx, name, ladder.FieldWins, delta)
}

// AdjustLoss adds delta (which may be negative) to a team's losses
func (a *API) AdjustLoss(ctx context.Context, name string, delta int) (string, error) {
	return a.adjust(ctx, name, ladder.FieldLosses, delta)
}

func (a *API) adjust(ctx context.Context, name string, field ladder.RecordField, delta int) (string, error) {
	name = cleanName(name)
	if name == "" {
		return "", fmt.Errorf("a team name is required: %w", ErrInvalidInput)
	}

	team, err := a.Ladder.AdjustRecord(ctx, name, field, delta)
	if err != nil {
		return "", a.explain(err, name)
	}
	return fmt.Sprintf("'%s' record is now %d-%d", team.Name, team.Wins, team.Losses), nil
}

// ListStandings returns the current standings message
func (a *API) ListStandings() string {
	return logic.FormatStandings(a.Ladder.Standings())
}

// ListChallenges returns the open challenges message
func (a *API) ListChallenges() string {
	return logic.FormatChallenges(a.Ladder.Challenges(), a.Ladder.Standings())
}

// SetStandingsChannel sets the channel the standings are published to. nil clears it.
func (a *API) SetStandingsChannel(ctx context.Context, channelID *string) (string, error) {
	return a.setChannel(ctx, ladder.ChannelStandings, channelID)
}

// SetChallengesChannel sets the channel the open challenges are published to. nil clears it.
func (a *API) SetChallengesChannel(ctx context.Context, channelID *string) (string, error) {
	return a.setChannel(ctx, ladder.ChannelChallenges, channelID)
}

func (a *API) setChannel(ctx context.Context, kind ladder.ChannelKind, channelID *string) (string, error) {
	if channelID != nil && strings.TrimSpace(*channelID) == "" {
		return "", fmt.Errorf("channel id is empty: %w", ErrInvalidInput)
	}
	if err := a.Ladder.SetChannel(ctx, kind, channelID); err != nil {
		return "", err
	}
	if channelID == nil {
		return fmt.Sprintf("The %s channel has been cleared", kind), nil
	}
	return fmt.Sprintf("The %s will be posted in <#%s>", kind, *channelID), nil
}

// explain adds a "did you mean" hint to a not found error when one of names is not a registered team but is close
// to one that is
func (a *API) explain(err error, names ...string) error {
	if !errors.Is(err, ladder.ErrNotFound) {
		return err
	}

	validTeams := a.Ladder.TeamNames()
	for _, name := range names {
		if slices.Contains(validTeams, name) {
			continue
		}
		if suggestion, ok := logic.SuggestTeamName(name, validTeams); ok {
			return fmt.Errorf("%w, did you mean '%s'?", err, suggestion)
		}
	}
	return err
}
