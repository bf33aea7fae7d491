/* store_interface.go
 * Contains the Store interface for dependency injection and testing. Each collection is loaded and saved as a whole:
 * a save replaces everything previously stored for that collection
 * Authors: Zachary Bower
 */

package store

import (
	"context"
	"ladder-bot/api/shared"
)

// Interface defines the methods that every ladder store implements.
// This allows for mocking in tests.
type Interface interface {
	LoadTeams(ctx context.Context) ([]shared.Team, error)
	SaveTeams(ctx context.Context, teams []shared.Team) error
	LoadMatches(ctx context.Context) ([]shared.Challenge, error)
	SaveMatches(ctx context.Context, matches []shared.Challenge) error
	LoadState(ctx context.Context) (shared.LadderState, error)
	SaveState(ctx context.Context, state shared.LadderState) error
	Close(ctx context.Context) error
}

// Ensure both backends implement Interface
var (
	_ Interface = (*FileStore)(nil)
	_ Interface = (*MongoStore)(nil)
)
