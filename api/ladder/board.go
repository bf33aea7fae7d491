/* board.go
 * Contains the Board: the open challenges on the ladder and the rules deciding whether a new challenge is admitted.
 * Challenges live in an arena keyed by generated id, with indices by challenger and by involved team so a team can
 * be part of at most one open challenge
 * Authors: Zachary Bower
 */

package ladder

import (
	"fmt"
	"ladder-bot/api/shared"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// ChallengeWindow is how many places above itself a team may challenge
const ChallengeWindow = 2

// Board owns the open challenges. Like Registry it relies on the Ladder for synchronisation.
type Board struct {
	matches      map[string]shared.Challenge
	order        []string          // insertion order of ids
	byChallenger map[string]string // challenger team -> id
	byTeam       map[string]string // either side -> id
}

// Resolution describes the outcome of a reported win before it is applied
type Resolution struct {
	Match               shared.Challenge
	Winner              string
	Loser               string
	WinnerWasChallenger bool
}

// NewBoard returns an empty board
func NewBoard() *Board {
	return &Board{
		matches:      make(map[string]shared.Challenge),
		byChallenger: make(map[string]string),
		byTeam:       make(map[string]string),
	}
}

// LoadBoard rebuilds a board and its indices from persisted challenges.
// Preconditions: Receives the stored challenges in their stored order
// Postconditions: Returns the board and the challenges that were skipped because they broke the one-challenge-per-team rule
func LoadBoard(challenges []shared.Challenge) (*Board, []shared.Challenge) {
	b := NewBoard()
	var skipped []shared.Challenge
	for _, c := range challenges {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if c.Status == "" {
			c.Status = shared.StatusPending
		}
		if c.Challenger == c.Challenged || b.involved(c.Challenger) || b.involved(c.Challenged) {
			skipped = append(skipped, c)
			continue
		}
		if _, dup := b.matches[c.ID]; dup {
			skipped = append(skipped, c)
			continue
		}
		b.insert(c)
	}
	return b, skipped
}

// Clone returns an independent copy of the board
func (b *Board) Clone() *Board {
	return &Board{
		matches:      maps.Clone(b.matches),
		order:        slices.Clone(b.order),
		byChallenger: maps.Clone(b.byChallenger),
		byTeam:       maps.Clone(b.byTeam),
	}
}

// Admissible reports whether a team ranked cr may challenge a team ranked hr: the target must sit at most
// ChallengeWindow places above
func Admissible(cr int, hr int) bool {
	return hr <= cr && hr > cr-(ChallengeWindow+1)
}

// Open records a new pending challenge.
// Preconditions: Receives both team names and their current ranks. Existence, membership and lifecycle checks are the caller's job
// Postconditions: Returns the new challenge, or ErrConflict if the rank window is violated or either team is already in a challenge
func (b *Board) Open(challenger string, challenged string, cr int, hr int, now time.Time) (shared.Challenge, error) {
	if challenger == challenged {
		return shared.Challenge{}, fmt.Errorf("team %s cannot challenge itself: %w", challenger, ErrConflict)
	}
	if !Admissible(cr, hr) {
		return shared.Challenge{}, fmt.Errorf("%s (rank %d) may only challenge up to %d ranks above, %s is rank %d: %w",
			challenger, cr, ChallengeWindow, challenged, hr, ErrConflict)
	}
	if b.involved(challenger) {
		return shared.Challenge{}, fmt.Errorf("team %s already has an open challenge: %w", challenger, ErrConflict)
	}
	if b.involved(challenged) {
		return shared.Challenge{}, fmt.Errorf("team %s already has an open challenge: %w", challenged, ErrConflict)
	}

	c := shared.Challenge{
		ID:         uuid.NewString(),
		Challenger: challenger,
		Challenged: challenged,
		Status:     shared.StatusPending,
		CreatedAt:  now.UTC().Truncate(time.Millisecond),
	}
	b.insert(c)
	return c, nil
}

// ByChallenger returns the open challenge issued by team
func (b *Board) ByChallenger(team string) (shared.Challenge, bool) {
	id, ok := b.byChallenger[team]
	if !ok {
		return shared.Challenge{}, false
	}
	return b.matches[id], true
}

// Involving returns the open challenge that team is on either side of
func (b *Board) Involving(team string) (shared.Challenge, bool) {
	id, ok := b.byTeam[team]
	if !ok {
		return shared.Challenge{}, false
	}
	return b.matches[id], true
}

// Cancel removes the challenge issued by team
func (b *Board) Cancel(team string) (shared.Challenge, error) {
	c, ok := b.ByChallenger(team)
	if !ok {
		return shared.Challenge{}, fmt.Errorf("no open challenge issued by %s: %w", team, ErrNotFound)
	}
	b.Delete(c.ID)
	return c, nil
}

// Resolve finds the match winner is part of and works out the loser. It does not modify the board.
func (b *Board) Resolve(winner string) (Resolution, error) {
	c, ok := b.Involving(winner)
	if !ok {
		return Resolution{}, fmt.Errorf("no active match involving %s: %w", winner, ErrNotFound)
	}
	return Resolution{
		Match:               c,
		Winner:              winner,
		Loser:               c.Opponent(winner),
		WinnerWasChallenger: c.Challenger == winner,
	}, nil
}

// Delete removes a challenge by id. Unknown ids are ignored.
func (b *Board) Delete(id string) {
	c, ok := b.matches[id]
	if !ok {
		return
	}
	delete(b.matches, id)
	delete(b.byChallenger, c.Challenger)
	delete(b.byTeam, c.Challenger)
	delete(b.byTeam, c.Challenged)
	b.order = slices.DeleteFunc(b.order, func(o string) bool { return o == id })
}

// DropTeam removes any challenge referencing team and reports whether one was removed
func (b *Board) DropTeam(team string) bool {
	c, ok := b.Involving(team)
	if !ok {
		return false
	}
	b.Delete(c.ID)
	return true
}

// Clear removes every challenge
func (b *Board) Clear() {
	*b = *NewBoard()
}

// List returns the open challenges in the order they were issued
func (b *Board) List() []shared.Challenge {
	list := make([]shared.Challenge, 0, len(b.order))
	for _, id := range b.order {
		list = append(list, b.matches[id])
	}
	return list
}

// Len returns the number of open challenges
func (b *Board) Len() int {
	return len(b.matches)
}

func (b *Board) involved(team string) bool {
	_, ok := b.byTeam[team]
	return ok
}

func (b *Board) insert(c shared.Challenge) {
	b.matches[c.ID] = c
	b.order = append(b.order, c.ID)
	b.byChallenger[c.Challenger] = c.ID
	b.byTeam[c.Challenger] = c.ID
	b.byTeam[c.Challenged] = c.ID
}
