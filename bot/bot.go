/* bot.go
 * Contains the Bot type and helpers shared by the command handlers. Requires a discord bot token and APIPtr, both of
 * which are passed in from main.go
 * Authors: Zachary Bower
 */

package bot

import (
	"context"
	"fmt"
	"ladder-bot/api/api"
	"ladder-bot/api/shared"
	"strings"
	"time"

	"github.com/go-andiamo/splitter"
)

// Bot connects the Discord gateway to the ladder API
type Bot struct {
	BotToken string
	APIPtr   *api.API

	// RefreshInterval is how often published standings are refreshed while the ladder runs
	RefreshInterval time.Duration
	// NotifyRatePerSecond caps how many direct messages are sent per second
	NotifyRatePerSecond float64

	// Set by Run once a session exists
	Refresher *Refresher
	Notifier  *Notifier

	// runCtx bounds background work started by handlers, it is cancelled when Run returns
	runCtx context.Context
}

// NewBot creates a bot with the default refresh interval and notification rate
// Preconditions: Receives a non-empty bot token and the API the handlers call
// Postconditions: Returns the bot, or an error if the token is empty
func NewBot(botToken string, apiPtr *api.API) (*Bot, error) {
	if botToken == "" {
		return nil, fmt.Errorf("botToken is required but none was provided")
	}
	if apiPtr == nil {
		return nil, fmt.Errorf("apiPtr is required but none was provided")
	}

	return &Bot{
		BotToken:            botToken,
		APIPtr:              apiPtr,
		RefreshInterval:     DefaultRefreshInterval,
		NotifyRatePerSecond: 5,
	}, nil
}

// attach wires a notifier and refresher using session into the ladder
func (b *Bot) attach(session DiscordSession) {
	b.Refresher = NewRefresher(session, b.APIPtr, b.RefreshInterval)
	b.Notifier = NewNotifier(session, b.NotifyRatePerSecond, b.Refresher)
	b.APIPtr.Ladder.SetNotifier(b.Notifier)
}

// runContext returns the context Run was called with, or the background context before Run
func (b *Bot) runContext() context.Context {
	if b.runCtx == nil {
		return context.Background()
	}
	return b.runCtx
}

// hasPublishChannel reports whether standings or challenges have a channel to be published in
func hasPublishChannel(state shared.LadderState) bool {
	return state.StandingsChannelID != nil || state.ChallengesChannelID != nil
}

// parseArgs splits a message into its command and arguments, dropping empty parts left by repeated spaces
// Preconditions: Receives the raw message content
// Postconditions: Returns the parts of the message, or an error if a quote is left open
func parseArgs(content string) ([]string, error) {
	// splitter keeps "quoted team names" with spaces together as one argument
	spaceSplitter, err := splitter.NewSplitter(' ', splitter.DoubleQuotes, splitter.LeftRightDoubleDoubleQuotes)
	if err != nil {
		return nil, err
	}
	parts, err := spaceSplitter.Split(strings.TrimSpace(content))
	if err != nil {
		return nil, err
	}
	args := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			args = append(args, part)
		}
	}
	return args, nil
}

// parseChannelMention returns the channel id from a <#id> mention, or the argument unchanged if it is a bare id
func parseChannelMention(arg string) string {
	arg = strings.TrimSpace(arg)
	if strings.HasPrefix(arg, "<#") && strings.HasSuffix(arg, ">") {
		return arg[2 : len(arg)-1]
	}
	return arg
}

// Helper function to check if a string starts with a given substring
// Preconditions: Recieves an input string and a substring
// Postconditions: Returns true if the substring is at the start of the string, else returns false
func startsWith(inputString string, substring string) bool {
	if len(substring) > len(inputString) {
		return false
	}
	return inputString[:len(substring)] == substring
}
