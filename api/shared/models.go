/* models.go
 * This file contain the structs and helper functions that are shared between sub packages: the caller identity, and
 * the Team, Challenge and LadderState records that are persisted by the store and mutated by the ladder
 * Authors: Zachary Bower
 */

package shared

import (
	"slices"
	"time"
)

// User identifies the caller of a ladder operation
type User struct {
	UserID   string
	Username string
}

// Team is a registered team on the ladder. A nil Rank means the team is unranked.
type Team struct {
	Name    string   `json:"name" bson:"name"`
	Members []string `json:"members" bson:"members"`
	Rank    *int     `json:"rank" bson:"rank"`
	Wins    int      `json:"wins" bson:"wins"`
	Losses  int      `json:"losses" bson:"losses"`
}

// HasMember reports whether userID is on the team
func (t Team) HasMember(userID string) bool {
	return slices.Contains(t.Members, userID)
}

// IsRanked reports whether the team currently holds a rank
func (t Team) IsRanked() bool {
	return t.Rank != nil
}

// RankValue returns the team's rank, or 0 when unranked
func (t Team) RankValue() int {
	if t.Rank == nil {
		return 0
	}
	return *t.Rank
}

// Clone returns a deep copy so callers never share the members slice or rank pointer
func (t Team) Clone() Team {
	c := t
	c.Members = slices.Clone(t.Members)
	if t.Rank != nil {
		r := *t.Rank
		c.Rank = &r
	}
	return c
}

// IntPtr is a small helper for building optional ranks
func IntPtr(v int) *int {
	return &v
}

// StatusPending is the only status a challenge ever holds while it is open
const StatusPending = "pending"

// Challenge is an open match between a challenger and the team it challenged
type Challenge struct {
	ID         string    `json:"id" bson:"id"`
	Challenger string    `json:"challenger" bson:"challenger"`
	Challenged string    `json:"challenged" bson:"challenged"`
	Status     string    `json:"status" bson:"status"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}

// Involves reports whether team is either side of the challenge
func (c Challenge) Involves(team string) bool {
	return c.Challenger == team || c.Challenged == team
}

// Opponent returns the other side of the challenge from team
func (c Challenge) Opponent(team string) string {
	if c.Challenger == team {
		return c.Challenged
	}
	return c.Challenger
}

// LadderState is the process-wide lifecycle record
type LadderState struct {
	Running             bool    `json:"running" bson:"running"`
	StandingsChannelID  *string `json:"standings_channel_id" bson:"standings_channel_id"`
	ChallengesChannelID *string `json:"challenges_channel_id" bson:"challenges_channel_id"`
	StandingsMessageID  *string `json:"standings_message_id" bson:"standings_message_id"`
	ChallengesMessageID *string `json:"challenges_message_id" bson:"challenges_message_id"`
}

// Clone returns a deep copy of the state
func (s LadderState) Clone() LadderState {
	return LadderState{
		Running:             s.Running,
		StandingsChannelID:  cloneString(s.StandingsChannelID),
		ChallengesChannelID: cloneString(s.ChallengesChannelID),
		StandingsMessageID:  cloneString(s.StandingsMessageID),
		ChallengesMessageID: cloneString(s.ChallengesMessageID),
	}
}

// StringPtr is a small helper for building optional channel and message references
func StringPtr(v string) *string {
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
