/* registry.go
 * Contains the Registry: the set of teams on the ladder, their members, rank and win/loss record. Ranks among the
 * ranked teams always form a dense permutation of 1..N once an operation returns
 * Authors: Zachary Bower
 */

package ladder

import (
	"fmt"
	"ladder-bot/api/shared"
	"slices"
	"sort"
)

// RecordField names the counter adjusted by AdjustRecord
type RecordField string

const (
	FieldWins   RecordField = "wins"
	FieldLosses RecordField = "losses"
)

// Registry owns the teams. It is not safe for concurrent use, the Ladder serialises access to it.
type Registry struct {
	teams map[string]*shared.Team
	order []string // registration order, used as the tie breaker when normalizing
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{teams: make(map[string]*shared.Team)}
}

// LoadRegistry builds a registry from persisted teams, keeping their stored order
// Preconditions: Receives the slice of teams returned by the store
// Postconditions: Returns a registry with normalized ranks, or an error if two teams share a name
func LoadRegistry(teams []shared.Team) (*Registry, error) {
	r := NewRegistry()
	for _, t := range teams {
		if _, ok := r.teams[t.Name]; ok {
			return nil, fmt.Errorf("duplicate team %q in stored teams: %w", t.Name, ErrAlreadyExists)
		}
		c := t.Clone()
		r.teams[t.Name] = &c
		r.order = append(r.order, t.Name)
	}
	r.Normalize()
	return r, nil
}

// Clone returns a deep copy of the registry
func (r *Registry) Clone() *Registry {
	c := &Registry{
		teams: make(map[string]*shared.Team, len(r.teams)),
		order: slices.Clone(r.order),
	}
	for name, t := range r.teams {
		tc := t.Clone()
		c.teams[name] = &tc
	}
	return c
}

// Register adds a new team in last place
// Preconditions: Receives a team name and its members. An empty member list is replaced by the caller
// Postconditions: Returns the registered team, or ErrAlreadyExists if the name is taken
func (r *Registry) Register(name string, members []string, caller string) (shared.Team, error) {
	if _, ok := r.teams[name]; ok {
		return shared.Team{}, fmt.Errorf("team %s: %w", name, ErrAlreadyExists)
	}
	if len(members) == 0 {
		members = []string{caller}
	}

	// Drop duplicate mentions while keeping the order they were given in
	var unique []string
	for _, m := range members {
		if !slices.Contains(unique, m) {
			unique = append(unique, m)
		}
	}

	t := &shared.Team{
		Name:    name,
		Members: unique,
		Rank:    shared.IntPtr(len(r.teams) + 1),
	}
	r.teams[name] = t
	r.order = append(r.order, name)
	r.Normalize()
	return t.Clone(), nil
}

// Remove deletes a team and closes the gap it leaves in the ranks
func (r *Registry) Remove(name string) error {
	if _, ok := r.teams[name]; !ok {
		return fmt.Errorf("team %s: %w", name, ErrNotFound)
	}
	delete(r.teams, name)
	r.order = slices.DeleteFunc(r.order, func(n string) bool { return n == name })
	r.Normalize()
	return nil
}

// SetRank moves a team to newRank, shifting every team between its old and new slot by one place.
// Preconditions: newRank must be within 1..N, where N counts ranked teams (N+1 when the team is currently unranked)
// Postconditions: Returns true if ranks changed, false for a no-op, or ErrNotFound / ErrOutOfRange
func (r *Registry) SetRank(name string, newRank int) (bool, error) {
	t, ok := r.teams[name]
	if !ok {
		return false, fmt.Errorf("team %s: %w", name, ErrNotFound)
	}

	upper := r.RankedCount()
	if !t.IsRanked() {
		upper++
	}
	if newRank < 1 || newRank > upper {
		return false, fmt.Errorf("rank %d is outside 1..%d: %w", newRank, upper, ErrOutOfRange)
	}

	if t.IsRanked() && *t.Rank == newRank {
		return false, nil
	}

	for _, other := range r.teams {
		if other.Name == name || !other.IsRanked() {
			continue
		}
		rank := *other.Rank
		switch {
		case !t.IsRanked():
			// an unranked team is inserted, so everyone from the slot down moves back one place
			if rank >= newRank {
				*other.Rank = rank + 1
			}
		case newRank < *t.Rank:
			if rank >= newRank && rank < *t.Rank {
				*other.Rank = rank + 1
			}
		default:
			if rank > *t.Rank && rank <= newRank {
				*other.Rank = rank - 1
			}
		}
	}
	t.Rank = shared.IntPtr(newRank)
	r.Normalize()
	return true, nil
}

// AdjustRecord adds delta to a team's wins or losses. A result below zero is rejected rather than clamped
func (r *Registry) AdjustRecord(name string, field RecordField, delta int) (shared.Team, error) {
	t, ok := r.teams[name]
	if !ok {
		return shared.Team{}, fmt.Errorf("team %s: %w", name, ErrNotFound)
	}

	var counter *int
	switch field {
	case FieldWins:
		counter = &t.Wins
	case FieldLosses:
		counter = &t.Losses
	default:
		return shared.Team{}, fmt.Errorf("record field %q: %w", field, ErrNotFound)
	}

	if *counter+delta < 0 {
		return shared.Team{}, fmt.Errorf("team %s has %d %s: %w", name, *counter, field, ErrUnderflow)
	}
	*counter += delta
	return t.Clone(), nil
}

// Normalize reassigns ranks 1..N to the ranked teams in their current rank order. Ties keep registration order and
// unranked teams are left unranked.
func (r *Registry) Normalize() {
	ranked := make([]*shared.Team, 0, len(r.order))
	for _, name := range r.order {
		if t := r.teams[name]; t.IsRanked() {
			ranked = append(ranked, t)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return *ranked[i].Rank < *ranked[j].Rank
	})
	for i, t := range ranked {
		t.Rank = shared.IntPtr(i + 1)
	}
}

// Clear removes every team
func (r *Registry) Clear() {
	r.teams = make(map[string]*shared.Team)
	r.order = nil
}

// Get returns a copy of the named team
func (r *Registry) Get(name string) (shared.Team, bool) {
	t, ok := r.teams[name]
	if !ok {
		return shared.Team{}, false
	}
	return t.Clone(), true
}

// IsMember reports whether userID belongs to the named team
func (r *Registry) IsMember(name string, userID string) bool {
	t, ok := r.teams[name]
	return ok && t.HasMember(userID)
}

// Len returns the number of registered teams
func (r *Registry) Len() int {
	return len(r.teams)
}

// RankedCount returns the number of teams holding a rank
func (r *Registry) RankedCount() int {
	n := 0
	for _, t := range r.teams {
		if t.IsRanked() {
			n++
		}
	}
	return n
}

// Names returns team names in registration order
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// Snapshot returns copies of every team in registration order. This is the persisted layout.
func (r *Registry) Snapshot() []shared.Team {
	teams := make([]shared.Team, 0, len(r.order))
	for _, name := range r.order {
		teams = append(teams, r.teams[name].Clone())
	}
	return teams
}

// Standings returns copies of every team ordered by rank, unranked teams last in registration order
func (r *Registry) Standings() []shared.Team {
	teams := r.Snapshot()
	sort.SliceStable(teams, func(i, j int) bool {
		a, b := teams[i], teams[j]
		if a.IsRanked() != b.IsRanked() {
			return a.IsRanked()
		}
		if !a.IsRanked() {
			return false
		}
		return *a.Rank < *b.Rank
	})
	return teams
}

// team returns the live record for in-package mutation
func (r *Registry) team(name string) (*shared.Team, bool) {
	t, ok := r.teams[name]
	return t, ok
}
