/* notifier_test.go
 * Contains unit tests for notifier.go
 * Authors: Zachary Bower
 */

package bot

import (
	"context"
	"errors"
	"ladder-bot/api/api"
	"ladder-bot/api/ladder"
	"ladder-bot/api/shared"
	"ladder-bot/api/store"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestNotifier creates a notifier without a refresher that retries quickly
func newTestNotifier(session DiscordSession) *Notifier {
	n := NewNotifier(session, 1000, nil)
	n.delay = time.Millisecond
	return n
}

// blockingSession holds every direct message channel request until release is closed
type blockingSession struct {
	*MockDiscordSession
	release chan struct{}
	started atomic.Int32
}

func (s *blockingSession) UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	s.started.Add(1)
	<-s.release
	return s.MockDiscordSession.UserChannelCreate(recipientID, options...)
}

func restError(status int, code int) error {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: status, Status: http.StatusText(status)},
		Message:  &discordgo.APIErrorMessage{Code: code, Message: http.StatusText(status)},
	}
}

func TestNotifyUsers_SendsToEveryUser(t *testing.T) {
	mockSession := NewMockDiscordSession()
	n := newTestNotifier(mockSession)

	n.NotifyUsers(context.Background(), []string{"u1", "u2", "u3"}, "hello")
	n.Wait()

	for _, id := range []string{"u1", "u2", "u3"} {
		msgs := mockSession.MessagesTo("dm-" + id)
		require.Len(t, msgs, 1, id)
		assert.Equal(t, "hello", msgs[0].Content)
	}
}

func TestNotifyUsers_NoUsers(t *testing.T) {
	mockSession := NewMockDiscordSession()
	n := newTestNotifier(mockSession)

	n.NotifyUsers(context.Background(), nil, "hello")
	n.Wait()

	assert.Empty(t, mockSession.SentMessages)
}

func TestNotifyUsers_RetriesTransientFailures(t *testing.T) {
	mockSession := NewMockDiscordSession()
	mockSession.SendFailures = 2
	n := newTestNotifier(mockSession)

	n.NotifyUsers(context.Background(), []string{"u1"}, "hello")
	n.Wait()

	assert.Len(t, mockSession.MessagesTo("dm-u1"), 1)
}

func TestNotifyUsers_OneFailureDoesNotStopOthers(t *testing.T) {
	mockSession := NewMockDiscordSession()
	mockSession.DMErrors["blocked"] = restError(http.StatusForbidden, 50007)
	n := newTestNotifier(mockSession)

	n.NotifyUsers(context.Background(), []string{"blocked", "u2"}, "hello")
	n.Wait()

	assert.Empty(t, mockSession.MessagesTo("dm-blocked"))
	assert.Len(t, mockSession.MessagesTo("dm-u2"), 1)
}

func TestNotifyUsers_OutlivesCallerContext(t *testing.T) {
	mockSession := NewMockDiscordSession()
	n := newTestNotifier(mockSession)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n.NotifyUsers(ctx, []string{"u1"}, "hello")
	n.Wait()

	assert.Len(t, mockSession.MessagesTo("dm-u1"), 1)
}

func TestNotifyUsers_ReturnsBeforeDelivery(t *testing.T) {
	session := &blockingSession{MockDiscordSession: NewMockDiscordSession(), release: make(chan struct{})}
	n := newTestNotifier(session)

	n.NotifyUsers(context.Background(), []string{"u1"}, "hello")

	assert.Eventually(t, func() bool { return session.started.Load() == 1 }, time.Second, time.Millisecond)
	assert.Empty(t, session.MessagesTo("dm-u1"))

	close(session.release)
	n.Wait()
	assert.Len(t, session.MessagesTo("dm-u1"), 1)
}

func TestNotifyUsers_GivesUpAfterTimeout(t *testing.T) {
	mockSession := NewMockDiscordSession()
	mockSession.DMErrors["u1"] = restError(http.StatusBadGateway, 0)
	n := newTestNotifier(mockSession)
	n.attempts = 0
	n.timeout = 20 * time.Millisecond

	n.NotifyUsers(context.Background(), []string{"u1"}, "hello")

	done := make(chan struct{})
	go func() {
		n.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("delivery should stop once its timeout passes")
	}
	assert.Empty(t, mockSession.MessagesTo("dm-u1"))
}

func TestNotifyUsers_DroppedAfterClose(t *testing.T) {
	mockSession := NewMockDiscordSession()
	n := newTestNotifier(mockSession)
	n.NotifyUsers(context.Background(), []string{"u1"}, "before")

	n.Close()
	n.NotifyUsers(context.Background(), []string{"u2"}, "after")
	n.Wait()

	assert.Len(t, mockSession.MessagesTo("dm-u1"), 1)
	assert.Empty(t, mockSession.MessagesTo("dm-u2"))
}

func TestChallenge_ReturnsBeforeDirectMessagesAreSent(t *testing.T) {
	s := store.NewMockStore()
	s.Teams = []shared.Team{
		{Name: "Alpha", Members: []string{"u1"}, Rank: shared.IntPtr(1)},
		{Name: "Beta", Members: []string{"u2"}, Rank: shared.IntPtr(2)},
	}
	s.State = shared.LadderState{Running: true}
	a, err := api.NewAPI(context.Background(), s, nil)
	require.NoError(t, err)
	session := &blockingSession{MockDiscordSession: NewMockDiscordSession(), release: make(chan struct{})}
	n := newTestNotifier(session)
	a.Ladder.SetNotifier(n)

	returned := make(chan error, 1)
	go func() {
		_, err := a.AdminChallenge(context.Background(), shared.User{UserID: "admin"}, "Beta", "Alpha")
		returned <- err
	}()

	select {
	case err := <-returned:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("challenge should not wait for direct messages")
	}
	assert.Empty(t, session.MessagesTo("dm-u1"))

	close(session.release)
	n.Wait()
	assert.Len(t, session.MessagesTo("dm-u1"), 1)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(errors.New("connection reset")))
	assert.True(t, isRetryable(restError(http.StatusTooManyRequests, 0)))
	assert.True(t, isRetryable(restError(http.StatusBadGateway, 0)))
	assert.False(t, isRetryable(restError(http.StatusForbidden, 50007)))
	assert.False(t, isRetryable(restError(http.StatusNotFound, discordgo.ErrCodeUnknownChannel)))
}

func TestMatchResolved_Text(t *testing.T) {
	mockSession := NewMockDiscordSession()
	n := newTestNotifier(mockSession)

	n.MatchResolved(context.Background(), ladder.Resolution{Winner: "Alpha", Loser: "Beta"}, []string{"u1"})
	n.Wait()

	msgs := mockSession.MessagesTo("dm-u1")
	require.Len(t, msgs, 1)
	assert.Equal(t, "Match result: **Alpha** defended its rank against **Beta**.", msgs[0].Content)
}

func TestLadderEnded_WithoutRefresher(t *testing.T) {
	mockSession := NewMockDiscordSession()
	n := newTestNotifier(mockSession)

	n.LadderEnded(context.Background(), ladder.FinalResult{Placements: [3]string{"A", "B", "C"}})
	n.StandingsChanged(context.Background())

	assert.Empty(t, mockSession.SentMessages)
}
