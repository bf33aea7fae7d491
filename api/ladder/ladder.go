/* ladder.go
 * Contains the Ladder controller. It owns the Registry, Board and lifecycle state behind a single lock and exposes
 * the operations the dispatcher calls. Every mutation works on a copy of the state, writes the copy to the store and
 * only then swaps it in, so a failed write never leaves memory and storage disagreeing
 * Authors: Zachary Bower
 */

package ladder

import (
	"context"
	"fmt"
	"ladder-bot/api/shared"
	"ladder-bot/api/store"
	"log/slog"
	"sync"
	"time"
)

// NoTeam fills the placements of a finished ladder that had fewer than three teams
const NoTeam = "No team"

// Channel kinds whose last posted message the ladder remembers
type ChannelKind string

const (
	ChannelStandings  ChannelKind = "standings"
	ChannelChallenges ChannelKind = "challenges"
)

// Notifier receives events after they are committed. Implementations must not block the caller for long and must
// swallow their own delivery failures.
type Notifier interface {
	ChallengeIssued(ctx context.Context, challenge shared.Challenge, challengedMembers []string)
	MatchResolved(ctx context.Context, res Resolution, members []string)
	StandingsChanged(ctx context.Context)
	LadderEnded(ctx context.Context, result FinalResult)
}

// FinalResult is what the ladder looked like when it ended
type FinalResult struct {
	Standings  []shared.Team
	Placements [3]string
}

// Ladder is the single owner of ladder state
type Ladder struct {
	mu       sync.RWMutex
	store    store.Interface
	notifier Notifier
	now      func() time.Time

	registry *Registry
	board    *Board
	state    shared.LadderState
}

// New creates an empty ladder backed by s. A nil notifier discards events.
func New(s store.Interface, n Notifier) *Ladder {
	if n == nil {
		n = NopNotifier{}
	}
	return &Ladder{
		store:    s,
		notifier: n,
		now:      time.Now,
		registry: NewRegistry(),
		board:    NewBoard(),
	}
}

// SetNotifier replaces the event receiver. Used when the notifier needs the ladder to be constructed first.
func (l *Ladder) SetNotifier(n Notifier) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n == nil {
		n = NopNotifier{}
	}
	l.notifier = n
}

// Load replaces in-memory state with everything in the store
// Preconditions: Receives a context for the store reads
// Postconditions: Registry, board and lifecycle state reflect the store, or an error wrapping ErrIO is returned
func (l *Ladder) Load(ctx context.Context) error {
	teams, err := l.store.LoadTeams(ctx)
	if err != nil {
		return fmt.Errorf("failed to load teams: %w: %w", ErrIO, err)
	}
	matches, err := l.store.LoadMatches(ctx)
	if err != nil {
		return fmt.Errorf("failed to load matches: %w: %w", ErrIO, err)
	}
	state, err := l.store.LoadState(ctx)
	if err != nil {
		return fmt.Errorf("failed to load state: %w: %w", ErrIO, err)
	}

	registry, err := LoadRegistry(teams)
	if err != nil {
		return err
	}
	board, skipped := LoadBoard(matches)
	for _, c := range skipped {
		slog.Warn("Dropping stored challenge", "challenger", c.Challenger, "challenged", c.Challenged)
	}
	// challenges referencing teams that no longer exist are dropped too
	for _, c := range board.List() {
		if _, ok := registry.Get(c.Challenger); !ok {
			board.Delete(c.ID)
			continue
		}
		if _, ok := registry.Get(c.Challenged); !ok {
			board.Delete(c.ID)
		}
	}

	l.mu.Lock()
	l.registry = registry
	l.board = board
	l.state = state
	l.mu.Unlock()

	slog.Info("Ladder loaded", "teams", registry.Len(), "challenges", board.Len(), "running", state.Running)
	return nil
}

// txn is a working copy of the ladder state. Flags record which collections need writing on commit.
type txn struct {
	registry *Registry
	board    *Board
	state    shared.LadderState

	teams, matches, lifecycle bool
}

// begin copies the current state. Callers hold l.mu for writing.
func (l *Ladder) begin() *txn {
	return &txn{
		registry: l.registry.Clone(),
		board:    l.board.Clone(),
		state:    l.state.Clone(),
	}
}

// commit writes the touched collections and swaps the working copy in. Callers hold l.mu for writing.
// On a failed write, collections that were already written are restored to their previous contents on a best-effort
// basis and the in-memory state is left untouched.
func (l *Ladder) commit(ctx context.Context, tx *txn) error {
	var undo []func() error

	if tx.teams {
		if err := l.store.SaveTeams(ctx, tx.registry.Snapshot()); err != nil {
			return fmt.Errorf("failed to save teams: %w: %w", ErrIO, err)
		}
		prev := l.registry.Snapshot()
		undo = append(undo, func() error { return l.store.SaveTeams(ctx, prev) })
	}
	if tx.matches {
		if err := l.store.SaveMatches(ctx, tx.board.List()); err != nil {
			l.rollback(undo)
			return fmt.Errorf("failed to save matches: %w: %w", ErrIO, err)
		}
		prev := l.board.List()
		undo = append(undo, func() error { return l.store.SaveMatches(ctx, prev) })
	}
	if tx.lifecycle {
		if err := l.store.SaveState(ctx, tx.state); err != nil {
			l.rollback(undo)
			return fmt.Errorf("failed to save state: %w: %w", ErrIO, err)
		}
	}

	l.registry = tx.registry
	l.board = tx.board
	l.state = tx.state
	return nil
}

func (l *Ladder) rollback(undo []func() error) {
	for i := len(undo) - 1; i >= 0; i-- {
		if err := undo[i](); err != nil {
			slog.Error("Failed to restore stored collection after a failed write", "error", err)
		}
	}
}

// RegisterTeam adds a team in last place. With no members the caller becomes the only member.
func (l *Ladder) RegisterTeam(ctx context.Context, caller shared.User, name string, members []string) (shared.Team, error) {
	l.mu.Lock()
	tx := l.begin()
	team, err := tx.registry.Register(name, members, caller.UserID)
	if err != nil {
		l.mu.Unlock()
		return shared.Team{}, err
	}
	tx.teams = true
	err = l.commit(ctx, tx)
	n := l.notifier
	l.mu.Unlock()
	if err != nil {
		return shared.Team{}, err
	}

	slog.Info("Team registered", "team", name, "rank", team.RankValue(), "by", caller.UserID)
	n.StandingsChanged(ctx)
	return team, nil
}

// RemoveTeam deletes a team, drops any challenge it was part of and renormalizes ranks
func (l *Ladder) RemoveTeam(ctx context.Context, name string) error {
	l.mu.Lock()
	tx := l.begin()
	if err := tx.registry.Remove(name); err != nil {
		l.mu.Unlock()
		return err
	}
	tx.teams = true
	tx.matches = tx.board.DropTeam(name)
	err := l.commit(ctx, tx)
	n := l.notifier
	l.mu.Unlock()
	if err != nil {
		return err
	}

	slog.Info("Team removed", "team", name)
	n.StandingsChanged(ctx)
	return nil
}

// Start begins the ladder. Fails with ErrInvalidState when it is already running.
func (l *Ladder) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.state.Running {
		l.mu.Unlock()
		return fmt.Errorf("the ladder is already running: %w", ErrInvalidState)
	}
	tx := l.begin()
	tx.state.Running = true
	tx.registry.Normalize()
	tx.teams, tx.lifecycle = true, true
	err := l.commit(ctx, tx)
	n := l.notifier
	l.mu.Unlock()
	if err != nil {
		return err
	}

	slog.Info("Ladder started")
	n.StandingsChanged(ctx)
	return nil
}

// End stops the ladder, reports final standings and placements, then clears every team and challenge.
// Preconditions: The ladder is running
// Postconditions: Returns the final result and leaves the registry and board empty in memory and in the store
func (l *Ladder) End(ctx context.Context) (FinalResult, error) {
	l.mu.Lock()
	if !l.state.Running {
		l.mu.Unlock()
		return FinalResult{}, fmt.Errorf("the ladder is not running: %w", ErrInvalidState)
	}
	tx := l.begin()
	result := finalResult(tx.registry)
	tx.state.Running = false
	tx.registry.Clear()
	tx.board.Clear()
	tx.teams, tx.matches, tx.lifecycle = true, true, true
	err := l.commit(ctx, tx)
	n := l.notifier
	l.mu.Unlock()
	if err != nil {
		return FinalResult{}, err
	}

	slog.Info("Ladder ended", "teams", len(result.Standings), "first", result.Placements[0])
	n.LadderEnded(ctx, result)
	return result, nil
}

func finalResult(r *Registry) FinalResult {
	result := FinalResult{Standings: r.Standings()}
	for i := range result.Placements {
		result.Placements[i] = NoTeam
		if i < len(result.Standings) && result.Standings[i].IsRanked() {
			result.Placements[i] = result.Standings[i].Name
		}
	}
	return result
}

// Challenge opens a challenge from challenger to challenged. admin skips the membership check.
// Preconditions: The ladder is running, both teams exist and are ranked, the caller is a member of challenger
// Postconditions: Returns the new challenge and notifies the challenged team's members, or returns one of
// ErrInvalidState, ErrNotFound, ErrForbidden, ErrConflict, ErrIO
func (l *Ladder) Challenge(ctx context.Context, caller shared.User, challenger string, challenged string, admin bool) (shared.Challenge, error) {
	l.mu.Lock()
	c, members, err := l.challenge(ctx, caller, challenger, challenged, admin)
	n := l.notifier
	l.mu.Unlock()
	if err != nil {
		return shared.Challenge{}, err
	}

	slog.Info("Challenge issued", "challenger", challenger, "challenged", challenged, "admin", admin)
	n.ChallengeIssued(ctx, c, members)
	return c, nil
}

func (l *Ladder) challenge(ctx context.Context, caller shared.User, challenger string, challenged string, admin bool) (shared.Challenge, []string, error) {
	if !l.state.Running {
		return shared.Challenge{}, nil, fmt.Errorf("the ladder is not running: %w", ErrInvalidState)
	}
	ct, ok := l.registry.Get(challenger)
	if !ok {
		return shared.Challenge{}, nil, fmt.Errorf("team %s: %w", challenger, ErrNotFound)
	}
	ht, ok := l.registry.Get(challenged)
	if !ok {
		return shared.Challenge{}, nil, fmt.Errorf("team %s: %w", challenged, ErrNotFound)
	}
	if !admin && !ct.HasMember(caller.UserID) {
		return shared.Challenge{}, nil, fmt.Errorf("%s is not a member of %s: %w", caller.Username, challenger, ErrForbidden)
	}
	if !ct.IsRanked() || !ht.IsRanked() {
		return shared.Challenge{}, nil, fmt.Errorf("both teams must be ranked to play a challenge: %w", ErrConflict)
	}

	tx := l.begin()
	c, err := tx.board.Open(challenger, challenged, *ct.Rank, *ht.Rank, l.now())
	if err != nil {
		return shared.Challenge{}, nil, err
	}
	tx.matches = true
	if err := l.commit(ctx, tx); err != nil {
		return shared.Challenge{}, nil, err
	}
	return c, ht.Members, nil
}

// CancelChallenge withdraws the challenge team issued. Unless admin, the caller must be a member of team.
func (l *Ladder) CancelChallenge(ctx context.Context, caller shared.User, team string, admin bool) (shared.Challenge, error) {
	l.mu.Lock()
	c, err := l.cancelChallenge(ctx, caller, team, admin)
	n := l.notifier
	l.mu.Unlock()
	if err != nil {
		return shared.Challenge{}, err
	}

	slog.Info("Challenge cancelled", "challenger", c.Challenger, "challenged", c.Challenged, "admin", admin)
	n.StandingsChanged(ctx)
	return c, nil
}

func (l *Ladder) cancelChallenge(ctx context.Context, caller shared.User, team string, admin bool) (shared.Challenge, error) {
	c, ok := l.board.ByChallenger(team)
	if !ok {
		return shared.Challenge{}, fmt.Errorf("no open challenge issued by %s: %w", team, ErrNotFound)
	}
	if !admin && !l.registry.IsMember(team, caller.UserID) {
		return shared.Challenge{}, fmt.Errorf("%s is not a member of %s: %w", caller.Username, team, ErrForbidden)
	}

	tx := l.begin()
	if _, err := tx.board.Cancel(team); err != nil {
		return shared.Challenge{}, err
	}
	tx.matches = true
	if err := l.commit(ctx, tx); err != nil {
		return shared.Challenge{}, err
	}
	return c, nil
}

// ReportWin resolves the match winner is part of. When the challenger wins it takes the loser's rank, the loser
// drops one place and every other team from there down moves back one place. A defending winner keeps its rank.
// Either way the winner gains a win, the loser a loss, and the match is removed.
// Preconditions: winner is in an open match and, unless admin, the caller is a member of either side
// Postconditions: Returns the resolution, or ErrNotFound / ErrForbidden / ErrIO
func (l *Ladder) ReportWin(ctx context.Context, caller shared.User, winner string, admin bool) (Resolution, error) {
	l.mu.Lock()
	res, members, err := l.reportWin(ctx, caller, winner, admin)
	n := l.notifier
	l.mu.Unlock()
	if err != nil {
		return Resolution{}, err
	}

	slog.Info("Match resolved", "winner", res.Winner, "loser", res.Loser, "upset", res.WinnerWasChallenger, "admin", admin)
	n.MatchResolved(ctx, res, members)
	n.StandingsChanged(ctx)
	return res, nil
}

func (l *Ladder) reportWin(ctx context.Context, caller shared.User, winner string, admin bool) (Resolution, []string, error) {
	res, err := l.board.Resolve(winner)
	if err != nil {
		return Resolution{}, nil, err
	}
	if !admin && !l.registry.IsMember(res.Winner, caller.UserID) && !l.registry.IsMember(res.Loser, caller.UserID) {
		return Resolution{}, nil, fmt.Errorf("%s is not a member of %s or %s: %w", caller.Username, res.Winner, res.Loser, ErrForbidden)
	}

	tx := l.begin()
	w, ok := tx.registry.team(res.Winner)
	if !ok {
		return Resolution{}, nil, fmt.Errorf("team %s: %w", res.Winner, ErrNotFound)
	}
	lo, ok := tx.registry.team(res.Loser)
	if !ok {
		return Resolution{}, nil, fmt.Errorf("team %s: %w", res.Loser, ErrNotFound)
	}

	if res.WinnerWasChallenger && lo.IsRanked() {
		shiftRanks(tx.registry, w, lo)
	}
	w.Wins++
	lo.Losses++
	tx.board.Delete(res.Match.ID)
	tx.teams, tx.matches = true, true

	if err := l.commit(ctx, tx); err != nil {
		return Resolution{}, nil, err
	}

	members := append(append([]string{}, w.Members...), lo.Members...)
	return res, members, nil
}

// shiftRanks moves winner into the slot loser held. The loser drops one place and every other ranked team at or
// below the loser's new rank drops one place too, then ranks are normalized which closes the slot winner left.
func shiftRanks(r *Registry, winner *shared.Team, loser *shared.Team) {
	losingRank := *loser.Rank
	winner.Rank = shared.IntPtr(losingRank)
	loser.Rank = shared.IntPtr(losingRank + 1)
	for _, t := range r.teams {
		if t == winner || t == loser || !t.IsRanked() {
			continue
		}
		if *t.Rank >= *loser.Rank {
			*t.Rank++
		}
	}
	r.Normalize()
}

// SetRank moves a team to rank, see Registry.SetRank. A no-op move is not written to the store.
func (l *Ladder) SetRank(ctx context.Context, name string, rank int) (bool, error) {
	l.mu.Lock()
	tx := l.begin()
	changed, err := tx.registry.SetRank(name, rank)
	if err != nil || !changed {
		l.mu.Unlock()
		return changed, err
	}
	tx.teams = true
	err = l.commit(ctx, tx)
	n := l.notifier
	l.mu.Unlock()
	if err != nil {
		return false, err
	}

	slog.Info("Rank set", "team", name, "rank", rank)
	n.StandingsChanged(ctx)
	return true, nil
}

// AdjustRecord adds delta to a team's wins or losses
func (l *Ladder) AdjustRecord(ctx context.Context, name string, field RecordField, delta int) (shared.Team, error) {
	l.mu.Lock()
	tx := l.begin()
	team, err := tx.registry.AdjustRecord(name, field, delta)
	if err != nil {
		l.mu.Unlock()
		return shared.Team{}, err
	}
	tx.teams = true
	err = l.commit(ctx, tx)
	n := l.notifier
	l.mu.Unlock()
	if err != nil {
		return shared.Team{}, err
	}

	slog.Info("Record adjusted", "team", name, "field", field, "delta", delta)
	n.StandingsChanged(ctx)
	return team, nil
}

// SetChannel assigns (or clears, with nil) the channel standings or challenges are published to. Changing the
// channel forgets the message previously posted in the old one.
func (l *Ladder) SetChannel(ctx context.Context, kind ChannelKind, channelID *string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx := l.begin()
	channel, message := channelRefs(&tx.state, kind)
	if channel == nil {
		return fmt.Errorf("channel kind %q: %w", kind, ErrNotFound)
	}
	*channel = channelID
	*message = nil
	tx.lifecycle = true
	return l.commit(ctx, tx)
}

// RememberMessage stores the id of the message last posted to the channel of the given kind so the next refresh
// edits it instead of posting again
func (l *Ladder) RememberMessage(ctx context.Context, kind ChannelKind, messageID *string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx := l.begin()
	_, message := channelRefs(&tx.state, kind)
	if message == nil {
		return fmt.Errorf("channel kind %q: %w", kind, ErrNotFound)
	}
	*message = messageID
	tx.lifecycle = true
	return l.commit(ctx, tx)
}

// channelRefs returns pointers to the channel and message fields for kind, or nils for an unknown kind
func channelRefs(s *shared.LadderState, kind ChannelKind) (**string, **string) {
	switch kind {
	case ChannelStandings:
		return &s.StandingsChannelID, &s.StandingsMessageID
	case ChannelChallenges:
		return &s.ChallengesChannelID, &s.ChallengesMessageID
	}
	return nil, nil
}

// Standings returns every team ordered by rank
func (l *Ladder) Standings() []shared.Team {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.registry.Standings()
}

// Challenges returns the open challenges in the order they were issued
func (l *Ladder) Challenges() []shared.Challenge {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.board.List()
}

// State returns a copy of the lifecycle state
func (l *Ladder) State() shared.LadderState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Clone()
}

// Team returns a copy of the named team
func (l *Ladder) Team(name string) (shared.Team, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.registry.Get(name)
	if !ok {
		return shared.Team{}, fmt.Errorf("team %s: %w", name, ErrNotFound)
	}
	return t, nil
}

// TeamNames returns every registered team name in registration order
func (l *Ladder) TeamNames() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.registry.Names()
}

// NopNotifier discards every event
type NopNotifier struct{}

func (NopNotifier) ChallengeIssued(context.Context, shared.Challenge, []string) {}
func (NopNotifier) MatchResolved(context.Context, Resolution, []string)         {}
func (NopNotifier) StandingsChanged(context.Context)                            {}
func (NopNotifier) LadderEnded(context.Context, FinalResult)                    {}
