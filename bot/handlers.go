/* handlers.go
 * Contains testable handler methods that accept the DiscordSession interface. newMessageHandler parses a message
 * and routes it to the handler for its command; handlers call the API and reply in the channel the command came from
 * Authors: Zachary Bower
 */

package bot

import (
	"context"
	"errors"
	"fmt"
	"ladder-bot/api/api"
	"ladder-bot/api/ladder"
	"ladder-bot/api/shared"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// commandTimeout bounds the store writes a single command can make
const commandTimeout = 30 * time.Second

// helpMessageHandler handles the $help command
func (b *Bot) helpMessageHandler(session DiscordSession, message *discordgo.MessageCreate) {
	var res strings.Builder
	res.WriteString("Ladder Bot v1.0\n")
	res.WriteString("Team names that contain spaces need to be wrapped in \" (e.g. \"Red Dragons\")\n")
	res.WriteString("`$register_team <name> [@members...]`: registers a team in last place. Without mentions you are the only member\n")
	res.WriteString("`$challenge <your team> <team>`: challenges a team up to two ranks above yours\n")
	res.WriteString("`$cancel_challenge <your team>`: withdraws the challenge your team issued\n")
	res.WriteString("`$report_win <team>`: reports that a team won its match\n")
	res.WriteString("`$show_standings`: shows the ladder standings\n")
	res.WriteString("`$show_challenges`: shows the open challenges\n")
	res.WriteString("Admin commands:\n")
	res.WriteString("`$start_ladder`, `$end_ladder`: starts or ends the ladder. Ending it posts the final placements and clears every team\n")
	res.WriteString("`$remove_team <name>`: removes a team and its challenge\n")
	res.WriteString("`$admin_challenge <challenger> <team>`, `$admin_cancel_challenge <team>`, `$admin_report_win <team>`: act on behalf of any team\n")
	res.WriteString("`$set_rank <team> <rank>`: moves a team to a rank\n")
	res.WriteString("`$add_win`, `$subtract_win`, `$add_loss`, `$subtract_loss <team> [count]`: corrects a team's record\n")
	res.WriteString("`$set_standings_channel [#channel]`, `$set_challenges_channel [#channel]`: publishes standings or challenges in a channel (defaults to this one)\n")
	res.WriteString("`$clear_standings_channel`, `$clear_challenges_channel`: stops publishing\n")
	reply(session, message, res.String())
}

// registerTeamHandler handles $register_team <name> [@members...]
func (b *Bot) registerTeamHandler(ctx context.Context, session DiscordSession, message *discordgo.MessageCreate, args []string) {
	if len(args) < 2 {
		reply(session, message, "Usage: `$register_team <name> [@members...]`")
		return
	}

	var members []string
	for _, user := range message.Mentions {
		members = append(members, user.ID)
	}

	res, err := b.APIPtr.Register(ctx, caller(message), args[1], members)
	respond(session, message, res, err)
}

// removeTeamHandler handles $remove_team <name>
func (b *Bot) removeTeamHandler(ctx context.Context, session DiscordSession, message *discordgo.MessageCreate, args []string) {
	if len(args) < 2 {
		reply(session, message, "Usage: `$remove_team <name>`")
		return
	}
	res, err := b.APIPtr.Remove(ctx, args[1])
	respond(session, message, res, err)
}

// startLadderHandler handles $start_ladder
func (b *Bot) startLadderHandler(ctx context.Context, session DiscordSession, message *discordgo.MessageCreate) {
	res, err := b.APIPtr.Start(ctx)
	respond(session, message, res, err)
}

// endLadderHandler handles $end_ladder
func (b *Bot) endLadderHandler(ctx context.Context, session DiscordSession, message *discordgo.MessageCreate) {
	res, err := b.APIPtr.End(ctx)
	respond(session, message, res, err)
}

// challengeHandler handles $challenge and $admin_challenge
func (b *Bot) challengeHandler(ctx context.Context, session DiscordSession, message *discordgo.MessageCreate, args []string, admin bool) {
	if len(args) < 3 {
		reply(session, message, fmt.Sprintf("Usage: `%s <challenger> <team to challenge>`", args[0]))
		return
	}

	var res string
	var err error
	if admin {
		res, err = b.APIPtr.AdminChallenge(ctx, caller(message), args[1], args[2])
	} else {
		res, err = b.APIPtr.Challenge(ctx, caller(message), args[1], args[2])
	}
	respond(session, message, res, err)
}

// cancelChallengeHandler handles $cancel_challenge and $admin_cancel_challenge
func (b *Bot) cancelChallengeHandler(ctx context.Context, session DiscordSession, message *discordgo.MessageCreate, args []string, admin bool) {
	if len(args) < 2 {
		reply(session, message, fmt.Sprintf("Usage: `%s <challenging team>`", args[0]))
		return
	}

	var res string
	var err error
	if admin {
		res, err = b.APIPtr.AdminCancelChallenge(ctx, caller(message), args[1])
	} else {
		res, err = b.APIPtr.CancelChallenge(ctx, caller(message), args[1])
	}
	respond(session, message, res, err)
}

// reportWinHandler handles $report_win and $admin_report_win
func (b *Bot) reportWinHandler(ctx context.Context, session DiscordSession, message *discordgo.MessageCreate, args []string, admin bool) {
	if len(args) < 2 {
		reply(session, message, fmt.Sprintf("Usage: `%s <winning team>`", args[0]))
		return
	}

	var res string
	var err error
	if admin {
		res, err = b.APIPtr.AdminReportWin(ctx, caller(message), args[1])
	} else {
		res, err = b.APIPtr.ReportWin(ctx, caller(message), args[1])
	}
	respond(session, message, res, err)
}

// setRankHandler handles $set_rank <team> <rank>
func (b *Bot) setRankHandler(ctx context.Context, session DiscordSession, message *discordgo.MessageCreate, args []string) {
	if len(args) < 3 {
		reply(session, message, "Usage: `$set_rank <team> <rank>`")
		return
	}
	res, err := b.APIPtr.SetRank(ctx, args[1], args[2])
	respond(session, message, res, err)
}

// adjustRecordHandler handles $add_win, $subtract_win, $add_loss and $subtract_loss <team> [count]
func (b *Bot) adjustRecordHandler(ctx context.Context, session DiscordSession, message *discordgo.MessageCreate, args []string, field ladder.RecordField, sign int) {
	if len(args) < 2 {
		reply(session, message, fmt.Sprintf("Usage: `%s <team> [count]`", args[0]))
		return
	}

	count := 1
	if len(args) > 2 {
		n, err := strconv.Atoi(args[2])
		if err != nil || n < 1 {
			reply(session, message, fmt.Sprintf("'%s' is not a positive whole number", args[2]))
			return
		}
		count = n
	}

	var res string
	var err error
	if field == ladder.FieldWins {
		res, err = b.APIPtr.AdjustWin(ctx, args[1], sign*count)
	} else {
		res, err = b.APIPtr.AdjustLoss(ctx, args[1], sign*count)
	}
	respond(session, message, res, err)
}

// setChannelHandler handles the $set_*_channel and $clear_*_channel commands. Setting without an argument uses the
// channel the command was sent in. Setting a channel restarts the refresh loop, clearing the last one stops it.
func (b *Bot) setChannelHandler(ctx context.Context, session DiscordSession, message *discordgo.MessageCreate, args []string, kind ladder.ChannelKind, unset bool) {
	var channelID *string
	if !unset {
		id := message.ChannelID
		if len(args) > 1 {
			id = parseChannelMention(args[1])
		}
		channelID = &id
	}

	var res string
	var err error
	if kind == ladder.ChannelStandings {
		res, err = b.APIPtr.SetStandingsChannel(ctx, channelID)
	} else {
		res, err = b.APIPtr.SetChallengesChannel(ctx, channelID)
	}
	respond(session, message, res, err)
	if err != nil || b.Refresher == nil {
		return
	}

	if unset {
		if !hasPublishChannel(b.APIPtr.Ladder.State()) {
			b.Refresher.Stop()
		}
		return
	}
	// a new channel restarts the refresh interval from now
	b.Refresher.Start(b.runContext())
	b.Refresher.Refresh(ctx)
}

// newMessageHandler routes messages to appropriate handlers with a DiscordSession interface
// botUserID is the bot's user ID to prevent self-responses
func (b *Bot) newMessageHandler(session DiscordSession, message *discordgo.MessageCreate, botUserID string) {
	// Prevent bot from responding to its own messages
	if message.Author == nil || message.Author.ID == botUserID {
		return
	}
	if !startsWith(message.Content, "$") {
		return
	}

	args, err := parseArgs(message.Content)
	if err != nil {
		reply(session, message, "Could not read that command, check that every \" is closed")
		return
	}
	if len(args) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	// Route to appropriate handler
	switch command := strings.ToLower(args[0]); command {
	case "$help":
		b.helpMessageHandler(session, message)

	case "$register_team":
		b.registerTeamHandler(ctx, session, message, args)

	case "$challenge":
		b.challengeHandler(ctx, session, message, args, false)

	case "$cancel_challenge":
		b.cancelChallengeHandler(ctx, session, message, args, false)

	case "$report_win":
		b.reportWinHandler(ctx, session, message, args, false)

	case "$show_standings":
		reply(session, message, b.APIPtr.ListStandings())

	case "$show_challenges":
		reply(session, message, b.APIPtr.ListChallenges())

	case "$remove_team", "$start_ladder", "$end_ladder", "$admin_challenge", "$admin_cancel_challenge",
		"$admin_report_win", "$set_rank", "$add_win", "$subtract_win", "$add_loss", "$subtract_loss",
		"$set_standings_channel", "$clear_standings_channel", "$set_challenges_channel", "$clear_challenges_channel":
		if !b.isAdmin(session, message) {
			reply(session, message, "You need to be a server administrator to use this command")
			return
		}
		b.adminCommandHandler(ctx, session, message, command, args)
	}
}

// adminCommandHandler routes commands that require the Administrator permission
func (b *Bot) adminCommandHandler(ctx context.Context, session DiscordSession, message *discordgo.MessageCreate, command string, args []string) {
	switch command {
	case "$remove_team":
		b.removeTeamHandler(ctx, session, message, args)
	case "$start_ladder":
		b.startLadderHandler(ctx, session, message)
	case "$end_ladder":
		b.endLadderHandler(ctx, session, message)
	case "$admin_challenge":
		b.challengeHandler(ctx, session, message, args, true)
	case "$admin_cancel_challenge":
		b.cancelChallengeHandler(ctx, session, message, args, true)
	case "$admin_report_win":
		b.reportWinHandler(ctx, session, message, args, true)
	case "$set_rank":
		b.setRankHandler(ctx, session, message, args)
	case "$add_win":
		b.adjustRecordHandler(ctx, session, message, args, ladder.FieldWins, 1)
	case "$subtract_win":
		b.adjustRecordHandler(ctx, session, message, args, ladder.FieldWins, -1)
	case "$add_loss":
		b.adjustRecordHandler(ctx, session, message, args, ladder.FieldLosses, 1)
	case "$subtract_loss":
		b.adjustRecordHandler(ctx, session, message, args, ladder.FieldLosses, -1)
	case "$set_standings_channel":
		b.setChannelHandler(ctx, session, message, args, ladder.ChannelStandings, false)
	case "$clear_standings_channel":
		b.setChannelHandler(ctx, session, message, args, ladder.ChannelStandings, true)
	case "$set_challenges_channel":
		b.setChannelHandler(ctx, session, message, args, ladder.ChannelChallenges, false)
	case "$clear_challenges_channel":
		b.setChannelHandler(ctx, session, message, args, ladder.ChannelChallenges, true)
	}
}

// isAdmin reports whether the author of message has the Administrator permission in the channel it was sent in
func (b *Bot) isAdmin(session DiscordSession, message *discordgo.MessageCreate) bool {
	perms, err := session.UserChannelPermissions(message.Author.ID, message.ChannelID)
	if err != nil {
		slog.Warn("Failed to read channel permissions", "user", message.Author.ID, "channel", message.ChannelID, "error", err)
		return false
	}
	return perms&discordgo.PermissionAdministrator != 0
}

// caller converts the author of a message into a ladder user
func caller(message *discordgo.MessageCreate) shared.User {
	return shared.User{UserID: message.Author.ID, Username: message.Author.Username}
}

// respond replies with res, or with a description of err if the command failed
func respond(session DiscordSession, message *discordgo.MessageCreate, res string, err error) {
	if err != nil {
		reply(session, message, errorResponse(err))
		return
	}
	reply(session, message, res)
}

// errorResponse turns a command error into the text shown to the user. Storage failures are logged and hidden.
func errorResponse(err error) string {
	switch {
	case errors.Is(err, ladder.ErrIO):
		slog.Error("Failed to save ladder", "error", err)
		return "An unexpected error occurred saving the ladder, nothing was changed"
	case errors.Is(err, ladder.ErrForbidden):
		return "You are not allowed to do that: " + err.Error()
	case errors.Is(err, api.ErrInvalidInput):
		return "Invalid command: " + err.Error()
	default:
		return "Error: " + err.Error()
	}
}

func reply(session DiscordSession, message *discordgo.MessageCreate, content string) {
	if _, err := session.ChannelMessageSend(message.ChannelID, content); err != nil {
		slog.Error("Failed to send reply", "channel", message.ChannelID, "error", err)
	}
}
