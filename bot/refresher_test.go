/* refresher_test.go
 * Contains unit tests for refresher.go
 * Authors: Zachary Bower
 */

package bot

import (
	"context"
	"errors"
	"ladder-bot/api/api"
	"ladder-bot/api/shared"
	"ladder-bot/api/store"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRefresher creates a refresher over a ladder with one team and both channels configured
func newTestRefresher(t *testing.T, running bool) (*Refresher, *MockDiscordSession, *store.MockStore) {
	t.Helper()
	s := store.NewMockStore()
	s.Teams = []shared.Team{{Name: "Alpha", Members: []string{"u1"}, Rank: shared.IntPtr(1)}}
	s.State = shared.LadderState{
		Running:             running,
		StandingsChannelID:  shared.StringPtr("standings"),
		ChallengesChannelID: shared.StringPtr("challenges"),
	}
	a, err := api.NewAPI(context.Background(), s, nil)
	require.NoError(t, err)

	mockSession := NewMockDiscordSession()
	r := NewRefresher(mockSession, a, time.Hour)
	r.now = func() time.Time { return time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC) }
	return r, mockSession, s
}

// region Refresh tests

func TestRefresh_PostsThenEdits(t *testing.T) {
	r, mockSession, s := newTestRefresher(t, true)

	r.Refresh(context.Background())

	standings := mockSession.MessagesTo("standings")
	require.Len(t, standings, 1)
	assert.Contains(t, standings[0].Content, "1. Alpha (0-0)")
	assert.Contains(t, standings[0].Content, "_Last updated: 2024-05-01 12:30 UTC_")
	challenges := mockSession.MessagesTo("challenges")
	require.Len(t, challenges, 1)
	assert.Contains(t, challenges[0].Content, "There are no active challenges.")

	require.NotNil(t, s.State.StandingsMessageID)
	assert.Equal(t, standings[0].MessageID, *s.State.StandingsMessageID)
	require.NotNil(t, s.State.ChallengesMessageID)
	assert.Equal(t, challenges[0].MessageID, *s.State.ChallengesMessageID)

	// second refresh edits in place
	r.Refresh(context.Background())

	assert.Len(t, mockSession.SentMessages, 2)
	require.Len(t, mockSession.EditedMessages, 2)
	assert.Equal(t, standings[0].MessageID, mockSession.EditedMessages[0].MessageID)
}

func TestRefresh_NoChannelsConfigured(t *testing.T) {
	r, mockSession, _ := newTestRefresher(t, true)
	_, err := r.api.SetStandingsChannel(context.Background(), nil)
	require.NoError(t, err)
	_, err = r.api.SetChallengesChannel(context.Background(), nil)
	require.NoError(t, err)

	r.Refresh(context.Background())

	assert.Empty(t, mockSession.SentMessages)
}

func TestRefresh_MissingChannelIsSkipped(t *testing.T) {
	r, mockSession, s := newTestRefresher(t, true)
	mockSession.ErrorToReturn = restError(http.StatusNotFound, discordgo.ErrCodeUnknownChannel)

	r.Refresh(context.Background())

	assert.Empty(t, mockSession.SentMessages)
	assert.Nil(t, s.State.StandingsMessageID)
}

func TestRefresh_DeletedMessageIsReposted(t *testing.T) {
	r, mockSession, s := newTestRefresher(t, true)
	r.Refresh(context.Background())
	old := *s.State.StandingsMessageID

	mockSession.EditErrorToReturn = restError(http.StatusNotFound, discordgo.ErrCodeUnknownMessage)
	r.Refresh(context.Background())

	standings := mockSession.MessagesTo("standings")
	require.Len(t, standings, 2)
	require.NotNil(t, s.State.StandingsMessageID)
	assert.NotEqual(t, old, *s.State.StandingsMessageID)
	assert.Equal(t, standings[1].MessageID, *s.State.StandingsMessageID)
}

func TestRefresh_EditFailureKeepsMessage(t *testing.T) {
	r, mockSession, s := newTestRefresher(t, true)
	r.Refresh(context.Background())
	old := *s.State.StandingsMessageID

	mockSession.EditErrorToReturn = errors.New("gateway timeout")
	r.Refresh(context.Background())

	assert.Len(t, mockSession.MessagesTo("standings"), 1)
	assert.Equal(t, old, *s.State.StandingsMessageID)
}

func TestPostFinal(t *testing.T) {
	r, mockSession, s := newTestRefresher(t, false)
	r.Refresh(context.Background())
	require.NotNil(t, s.State.StandingsMessageID)

	r.PostFinal(context.Background(), "final")

	assert.Equal(t, "final", mockSession.GetLastMessage().Content)
	assert.Equal(t, "standings", mockSession.GetLastMessage().ChannelID)
	assert.Nil(t, s.State.StandingsMessageID)
}

// endregion

// region loop tests

func TestStart_RefreshesWhileRunning(t *testing.T) {
	r, mockSession, _ := newTestRefresher(t, true)
	r.interval = 10 * time.Millisecond

	r.Start(context.Background())
	defer r.Stop()

	assert.True(t, r.Running())
	assert.Eventually(t, func() bool {
		mockSession.mu.Lock()
		defer mockSession.mu.Unlock()
		return len(mockSession.EditedMessages) >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestStart_IdleWhenLadderStopped(t *testing.T) {
	r, mockSession, _ := newTestRefresher(t, false)
	r.interval = 5 * time.Millisecond

	r.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	r.Stop()

	assert.Empty(t, mockSession.SentMessages)
}

func TestStart_RestartReplacesLoop(t *testing.T) {
	r, _, _ := newTestRefresher(t, false)

	r.Start(context.Background())
	first := r.done
	r.Start(context.Background())

	select {
	case <-first:
	default:
		t.Fatal("first loop should have exited")
	}
	assert.True(t, r.Running())

	r.Stop()
	assert.False(t, r.Running())
	r.Stop()
}

func TestStart_StopsWithContext(t *testing.T) {
	r, _, _ := newTestRefresher(t, false)
	ctx, cancel := context.WithCancel(context.Background())

	r.Start(ctx)
	cancel()

	assert.Eventually(t, func() bool { return !r.Running() }, time.Second, 5*time.Millisecond)
	r.Stop()
}

// endregion

func TestNewRefresher_DefaultInterval(t *testing.T) {
	r := NewRefresher(NewMockDiscordSession(), nil, 0)
	assert.Equal(t, DefaultRefreshInterval, r.interval)
}
