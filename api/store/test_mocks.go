/* test_mocks.go
 * Contains an in-memory implementation of the store Interface with error injection, for testing packages that sit
 * on top of the store
 * Authors: Zachary Bower
 */

package store

import (
	"context"
	"ladder-bot/api/shared"
	"slices"
	"sync"
)

// MockStore implements the store Interface in memory for testing
type MockStore struct {
	mu sync.Mutex

	Teams   []shared.Team
	Matches []shared.Challenge
	State   shared.LadderState

	// Error injection for testing error paths
	LoadTeamsError   error
	SaveTeamsError   error
	LoadMatchesError error
	SaveMatchesError error
	LoadStateError   error
	SaveStateError   error
	CloseError       error

	// Number of successful saves per collection
	TeamSaves  int
	MatchSaves int
	StateSaves int

	Closed bool
}

// NewMockStore creates an empty MockStore
func NewMockStore() *MockStore {
	return &MockStore{}
}

// LoadTeams mock implementation
func (m *MockStore) LoadTeams(ctx context.Context) ([]shared.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadTeamsError != nil {
		return nil, m.LoadTeamsError
	}
	return cloneTeams(m.Teams), nil
}

// SaveTeams mock implementation
func (m *MockStore) SaveTeams(ctx context.Context, teams []shared.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveTeamsError != nil {
		return m.SaveTeamsError
	}
	m.Teams = cloneTeams(teams)
	m.TeamSaves++
	return nil
}

// LoadMatches mock implementation
func (m *MockStore) LoadMatches(ctx context.Context) ([]shared.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadMatchesError != nil {
		return nil, m.LoadMatchesError
	}
	return slices.Clone(m.Matches), nil
}

// SaveMatches mock implementation
func (m *MockStore) SaveMatches(ctx context.Context, matches []shared.Challenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveMatchesError != nil {
		return m.SaveMatchesError
	}
	m.Matches = slices.Clone(matches)
	m.MatchSaves++
	return nil
}

// LoadState mock implementation
func (m *MockStore) LoadState(ctx context.Context) (shared.LadderState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadStateError != nil {
		return shared.LadderState{}, m.LoadStateError
	}
	return m.State.Clone(), nil
}

// SaveState mock implementation
func (m *MockStore) SaveState(ctx context.Context, state shared.LadderState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveStateError != nil {
		return m.SaveStateError
	}
	m.State = state.Clone()
	m.StateSaves++
	return nil
}

// Close mock implementation
func (m *MockStore) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CloseError != nil {
		return m.CloseError
	}
	m.Closed = true
	return nil
}

func cloneTeams(teams []shared.Team) []shared.Team {
	if teams == nil {
		return nil
	}
	out := make([]shared.Team, len(teams))
	for i, t := range teams {
		out[i] = t.Clone()
	}
	return out
}
