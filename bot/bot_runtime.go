//go:build !test

/* bot_runtime.go
 * Contains runtime-only Discord bot methods that use *discordgo.Session directly.
 * Delegates to testable handlers in handlers.go to avoid code duplication.
 * Authors: Zachary Bower
 */

package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// Run connects to Discord and serves commands until ctx is cancelled
// Preconditions: Receives a context that is cancelled on shutdown
// Postconditions: The refresher is stopped and queued direct messages are sent before the session is closed
func (b *Bot) Run(ctx context.Context) error {
	b.runCtx = ctx

	// create a session
	discord, err := discordgo.New("Bot " + b.BotToken)
	if err != nil {
		return fmt.Errorf("failed to create discord session: %w", err)
	}
	discord.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent | discordgo.IntentsGuilds

	b.attach(discord)

	// add a event handler
	discord.AddHandler(b.newMessage)
	discord.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		slog.Info("Logged in", "user", r.User.Username)
	})

	// open session
	if err := discord.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	defer discord.Close() // close session, after function termination
	// queued direct messages are sent before the session closes
	defer b.Notifier.Close()

	if hasPublishChannel(b.APIPtr.Ladder.State()) {
		b.Refresher.Start(ctx)
	}
	defer b.Refresher.Stop()

	slog.Info("Ladder Bot started", "running", b.APIPtr.Ladder.State().Running)
	<-ctx.Done()
	return nil
}

// newMessage delegates to the testable newMessageHandler
// *discordgo.Session implements DiscordSession interface
func (b *Bot) newMessage(discord *discordgo.Session, message *discordgo.MessageCreate) {
	b.newMessageHandler(discord, message, discord.State.User.ID)
}
