/* refresher.go
 * Contains the Refresher, which keeps the standings and challenges messages in their configured channels up to date.
 * It republishes on every ladder change and on a fixed interval while the ladder is running, editing the message it
 * posted last time rather than posting a new one
 * Authors: Zachary Bower
 */

package bot

import (
	"context"
	"errors"
	"fmt"
	"ladder-bot/api/api"
	"ladder-bot/api/ladder"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// DefaultRefreshInterval is how often the published messages are refreshed while the ladder is running
const DefaultRefreshInterval = 10 * time.Minute

// Refresher publishes standings and challenges. Only one refresh loop runs at a time.
type Refresher struct {
	session  DiscordSession
	api      *api.API
	interval time.Duration
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	publishMu sync.Mutex
}

// NewRefresher creates a refresher. A non-positive interval uses DefaultRefreshInterval.
func NewRefresher(session DiscordSession, a *api.API, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Refresher{
		session:  session,
		api:      a,
		interval: interval,
		now:      time.Now,
	}
}

// Start launches the refresh loop, stopping any loop already running
// Preconditions: Receives a context that bounds the lifetime of the loop
// Postconditions: Exactly one loop is running until Stop is called or ctx is cancelled
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopLocked()

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.cancel, r.done = cancel, done
	go r.loop(loopCtx, done)

	slog.Info("Standings refresher started", "interval", r.interval)
}

// Stop ends the refresh loop and waits for it to exit. Stopping a stopped refresher does nothing.
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

// Running reports whether a refresh loop is active
func (r *Refresher) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done == nil {
		return false
	}
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}

func (r *Refresher) stopLocked() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.cancel, r.done = nil, nil
	slog.Info("Standings refresher stopped")
}

func (r *Refresher) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	if r.api.Ladder.State().Running {
		r.Refresh(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if r.api.Ladder.State().Running {
				r.Refresh(ctx)
			}
		}
	}
}

// Refresh publishes the current standings and challenges to their channels, if configured
func (r *Refresher) Refresh(ctx context.Context) {
	r.publishMu.Lock()
	defer r.publishMu.Unlock()

	state := r.api.Ladder.State()
	stamp := fmt.Sprintf("\n_Last updated: %s_", r.now().UTC().Format("2006-01-02 15:04 MST"))

	if state.StandingsChannelID != nil {
		r.editOrPost(ctx, ladder.ChannelStandings, *state.StandingsChannelID, state.StandingsMessageID, r.api.ListStandings()+stamp)
	}
	if state.ChallengesChannelID != nil {
		r.editOrPost(ctx, ladder.ChannelChallenges, *state.ChallengesChannelID, state.ChallengesMessageID, r.api.ListChallenges()+stamp)
	}
}

// PostFinal posts text as a new message in the standings channel and forgets the remembered standings message
func (r *Refresher) PostFinal(ctx context.Context, text string) {
	r.publishMu.Lock()
	defer r.publishMu.Unlock()

	state := r.api.Ladder.State()
	if state.StandingsChannelID == nil {
		return
	}
	if _, err := r.session.ChannelMessageSend(*state.StandingsChannelID, text); err != nil {
		logPublishError("Failed to post final standings", *state.StandingsChannelID, err)
		return
	}
	if err := r.api.Ladder.RememberMessage(ctx, ladder.ChannelStandings, nil); err != nil {
		slog.Error("Failed to forget standings message", "error", err)
	}
}

// editOrPost edits the remembered message, or posts a new one and remembers it when there is none or it was deleted
func (r *Refresher) editOrPost(ctx context.Context, kind ladder.ChannelKind, channelID string, messageID *string, content string) {
	if messageID != nil {
		_, err := r.session.ChannelMessageEdit(channelID, *messageID, content)
		if err == nil {
			return
		}
		if !isRESTCode(err, discordgo.ErrCodeUnknownMessage) {
			logPublishError("Failed to edit published message", channelID, err)
			return
		}
		slog.Info("Published message was deleted, posting a new one", "kind", kind, "channel", channelID)
	}

	msg, err := r.session.ChannelMessageSend(channelID, content)
	if err != nil {
		logPublishError("Failed to publish message", channelID, err)
		return
	}
	if err := r.api.Ladder.RememberMessage(ctx, kind, &msg.ID); err != nil {
		slog.Error("Failed to remember published message", "kind", kind, "error", err)
	}
}

// logPublishError logs a missing channel as a warning and anything else as an error
func logPublishError(msg string, channelID string, err error) {
	if isNotFound(err) {
		slog.Warn(msg+", channel not found", "channel", channelID)
		return
	}
	slog.Error(msg, "channel", channelID, "error", err)
}

func isNotFound(err error) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}

func isRESTCode(err error, code int) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Message != nil && restErr.Message.Code == code
}
