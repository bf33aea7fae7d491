/* notifier.go
 * Contains the Notifier, which turns committed ladder events into Discord messages: direct messages to the members
 * of the teams involved, and a refresh of the published standings. Delivery is best-effort, failures are logged and
 * never reach the command that caused them
 * Authors: Zachary Bower
 */

package bot

import (
	"context"
	"errors"
	"fmt"
	"ladder-bot/api/ladder"
	"ladder-bot/api/logic"
	"ladder-bot/api/shared"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/bwmarrin/discordgo"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/time/rate"
)

const (
	defaultDMAttempts    = 3
	defaultDMDelay       = 500 * time.Millisecond
	defaultDMConcurrency = 4
	defaultDMTimeout     = 2 * time.Minute
)

// Notifier delivers ladder events to Discord. It implements ladder.Notifier.
type Notifier struct {
	session   DiscordSession
	refresher *Refresher
	limiter   *rate.Limiter

	attempts    uint
	delay       time.Duration
	concurrency int
	timeout     time.Duration

	// deliveries tracks direct messages still being sent in the background
	deliveries conc.WaitGroup
	mu         sync.Mutex
	closed     bool
}

var _ ladder.Notifier = (*Notifier)(nil)

// NewNotifier creates a notifier that sends at most ratePerSecond direct messages per second. refresher may be nil,
// in which case standings are never republished.
func NewNotifier(session DiscordSession, ratePerSecond float64, refresher *Refresher) *Notifier {
	return &Notifier{
		session:     session,
		refresher:   refresher,
		limiter:     rate.NewLimiter(rate.Limit(ratePerSecond), 1),
		attempts:    defaultDMAttempts,
		delay:       defaultDMDelay,
		concurrency: defaultDMConcurrency,
		timeout:     defaultDMTimeout,
	}
}

// ChallengeIssued tells the members of the challenged team who challenged them
func (n *Notifier) ChallengeIssued(ctx context.Context, challenge shared.Challenge, challengedMembers []string) {
	text := fmt.Sprintf("Your team **%s** has been challenged by **%s**! Play the match, then report the winner with `$report_win <team>`.",
		challenge.Challenged, challenge.Challenger)
	n.NotifyUsers(ctx, challengedMembers, text)
	n.refresh(ctx)
}

// MatchResolved tells the members of both teams how the match was recorded
func (n *Notifier) MatchResolved(ctx context.Context, res ladder.Resolution, members []string) {
	var text string
	if res.WinnerWasChallenger {
		text = fmt.Sprintf("Match result: **%s** defeated **%s** and takes their place on the ladder.", res.Winner, res.Loser)
	} else {
		text = fmt.Sprintf("Match result: **%s** defended its rank against **%s**.", res.Winner, res.Loser)
	}
	n.NotifyUsers(ctx, members, text)
}

// StandingsChanged republishes the standings and challenges
func (n *Notifier) StandingsChanged(ctx context.Context) {
	n.refresh(ctx)
}

// LadderEnded posts the final placements and standings to the standings channel
func (n *Notifier) LadderEnded(ctx context.Context, result ladder.FinalResult) {
	if n.refresher == nil {
		return
	}
	text := logic.FormatPlacements(result.Placements) + "\n" + logic.FormatStandings(result.Standings)
	n.refresher.PostFinal(ctx, text)
}

// NotifyUsers queues text as a direct message to each user and returns immediately. Deliveries run in the
// background on a context detached from ctx, are throttled and retried, and give up after the notifier's timeout.
// Preconditions: Receives user ids and the message to send
// Postconditions: Every user will be attempted unless the notifier is closed; failures are logged
func (n *Notifier) NotifyUsers(ctx context.Context, userIDs []string, text string) {
	if len(userIDs) == 0 {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		slog.Warn("Notifier closed, dropping direct messages", "users", len(userIDs))
		return
	}

	ids := append([]string(nil), userIDs...)
	n.deliveries.Go(func() {
		deliverCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()
		n.deliver(deliverCtx, ids, text)
	})
}

// Wait blocks until every queued direct message has been attempted
func (n *Notifier) Wait() {
	n.deliveries.Wait()
}

// Close stops accepting new direct messages and waits for the queued ones to finish
func (n *Notifier) Close() {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()
	n.Wait()
}

func (n *Notifier) deliver(ctx context.Context, userIDs []string, text string) {
	p := pool.New().WithMaxGoroutines(n.concurrency)
	for _, userID := range userIDs {
		p.Go(func() {
			if err := n.sendDM(ctx, userID, text); err != nil {
				slog.Warn("Failed to deliver direct message", "user", userID, "error", err)
			}
		})
	}
	p.Wait()
}

func (n *Notifier) sendDM(ctx context.Context, userID string, text string) error {
	return retry.Do(
		func() error {
			if err := n.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(err)
			}
			channel, err := n.session.UserChannelCreate(userID)
			if err != nil {
				return err
			}
			_, err = n.session.ChannelMessageSend(channel.ID, text)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(n.attempts),
		retry.Delay(n.delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
	)
}

func (n *Notifier) refresh(ctx context.Context) {
	if n.refresher != nil {
		n.refresher.Refresh(ctx)
	}
}

// isRetryable reports whether a Discord error could succeed on another attempt. Client errors other than rate
// limiting (e.g. the user blocks DMs) will not.
func isRetryable(err error) bool {
	if !retry.IsRecoverable(err) {
		return false
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		status := restErr.Response.StatusCode
		if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
			return false
		}
	}
	return true
}
