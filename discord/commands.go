package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/vanderwood/midgard/game"
)

func commandDefinitions() []*discordgo.ApplicationCommand {
	var minPoints float64 = 1
	return []*discordgo.ApplicationCommand{
		{
			Name:        "link-channel",
			Description: "Link this Discord server to a Twitch channel's game",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "channel",
					Description: "Twitch channel name",
					Required:    true,
				},
			},
		},
		{
			Name:        "add-points",
			Description: "Give points to a player",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "player",
					Description: "Twitch username",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "points",
					Description: "Points to add",
					Required:    true,
					MinValue:    &minPoints,
				},
			},
		},
		{
			Name:        "remove-points",
			Description: "Take points from a player",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "player",
					Description: "Twitch username",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "points",
					Description: "Points to remove",
					Required:    true,
					MinValue:    &minPoints,
				},
			},
		},
		{
			Name:        "start-season",
			Description: "Start a new season",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "name",
					Description: "Season name",
					Required:    true,
				},
			},
		},
		{
			Name:        "end-season",
			Description: "End the active season",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "end-date",
					Description: "Announced end date, DD/MM/YYYY",
					Required:    false,
				},
			},
		},
		{
			Name:        "start-session",
			Description: "Start a stream session",
		},
		{
			Name:        "end-session",
			Description: "End the stream session",
		},
		{
			Name:        "standings",
			Description: "Show the clan standings",
		},
		{
			Name:        "leaderboard",
			Description: "Show the top players this season",
		},
	}
}

func (b *Bot) registerCommands() error {
	defs := commandDefinitions()
	registered := make([]*discordgo.ApplicationCommand, 0, len(defs))
	for _, cmd := range defs {
		r, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, "", cmd)
		if err != nil {
			return fmt.Errorf("failed to register command %s: %w", cmd.Name, err)
		}
		registered = append(registered, r)
	}
	b.commands = registered
	slog.Info("slash commands registered", slog.Int("count", len(registered)))
	return nil
}

func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	data := i.ApplicationCommandData()

	if data.Name == "link-channel" {
		b.respond(s, i, b.handleLink(ctx, i, data))
		return
	}

	channel, err := b.svc.ChannelForDiscordServer(ctx, i.GuildID)
	if err != nil {
		if errors.Is(err, game.ErrChannelNotRegistered) {
			b.respond(s, i, "This server isn't linked to a channel yet. Use /link-channel first.")
			return
		}
		slog.Error("guild lookup failed", slog.Any("err", err))
		b.respond(s, i, "Something went wrong.")
		return
	}

	var reply string
	switch data.Name {
	case "add-points":
		reply = b.handleAdjustPoints(ctx, channel, data, true)
	case "remove-points":
		reply = b.handleAdjustPoints(ctx, channel, data, false)
	case "start-season":
		reply = b.handleStartSeason(ctx, channel, data)
	case "end-season":
		reply = b.handleEndSeason(ctx, channel, data)
	case "start-session":
		if _, err := b.svc.StartSession(ctx, channel); err != nil {
			reply = errorReply(err)
		} else {
			reply = "Session started."
		}
	case "end-session":
		if err := b.svc.EndSession(ctx, channel); err != nil {
			reply = errorReply(err)
		} else {
			reply = "Session ended."
		}
	case "standings":
		reply = b.handleStandings(ctx, channel)
	case "leaderboard":
		reply = b.handleLeaderboard(ctx, channel)
	default:
		return
	}
	b.respond(s, i, reply)
}

func (b *Bot) handleLink(ctx context.Context, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) string {
	channel := strings.ToLower(data.Options[0].StringValue())
	if err := b.svc.LinkDiscordServer(ctx, channel, i.GuildID); err != nil {
		if errors.Is(err, game.ErrChannelNotRegistered) {
			return fmt.Sprintf("Channel `%s` isn't registered in the game.", channel)
		}
		slog.Error("link channel failed", slog.Any("err", err))
		return "Failed to link the channel."
	}
	return fmt.Sprintf("Linked this server to `%s`.", channel)
}

func (b *Bot) handleAdjustPoints(ctx context.Context, channel string, data discordgo.ApplicationCommandInteractionData, add bool) string {
	player := strings.ToLower(data.Options[0].StringValue())
	points := int(data.Options[1].IntValue())
	if add {
		if err := b.svc.AwardPoints(ctx, channel, player, points); err != nil {
			return errorReply(err)
		}
		return fmt.Sprintf("Gave **%d** points to `%s`.", points, player)
	}
	if err := b.svc.DeductPoints(ctx, channel, player, points); err != nil {
		return errorReply(err)
	}
	return fmt.Sprintf("Took **%d** points from `%s`.", points, player)
}

func (b *Bot) handleStartSeason(ctx context.Context, channel string, data discordgo.ApplicationCommandInteractionData) string {
	season, err := b.svc.StartSeason(ctx, channel, data.Options[0].StringValue())
	if err != nil {
		return errorReply(err)
	}
	return fmt.Sprintf("**%s** has begun!", season.Name)
}

func (b *Bot) handleEndSeason(ctx context.Context, channel string, data discordgo.ApplicationCommandInteractionData) string {
	endDate := ""
	if len(data.Options) > 0 {
		endDate = data.Options[0].StringValue()
	}
	season, err := b.svc.EndSeason(ctx, channel, endDate)
	if err != nil {
		return errorReply(err)
	}
	return fmt.Sprintf("**%s** is over.", season.Name)
}

func (b *Bot) handleStandings(ctx context.Context, channel string) string {
	season, standings, err := b.svc.Standings(ctx, channel)
	if err != nil {
		return errorReply(err)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s standings**\n", season.Name)
	for i, st := range standings {
		fmt.Fprintf(&sb, "%d. %s [%s]: %d points\n", i+1, st.Clan.Name, st.Clan.Tag, st.Points)
	}
	return sb.String()
}

func (b *Bot) handleLeaderboard(ctx context.Context, channel string) string {
	season, top, err := b.svc.Leaderboard(ctx, channel, 10)
	if err != nil {
		return errorReply(err)
	}
	if len(top) == 0 {
		return "No one has scored yet this season."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s top players**\n", season.Name)
	for i, p := range top {
		tag := ""
		if p.ClanTag.Valid {
			tag = " [" + p.ClanTag.String + "]"
		}
		fmt.Fprintf(&sb, "%d. %s%s: %d points\n", i+1, p.Name, tag, p.Points)
	}
	return sb.String()
}

func (b *Bot) respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	if content == "" {
		return
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	})
	if err != nil {
		slog.Error("failed to respond to interaction", slog.Any("err", err))
	}
}

func errorReply(err error) string {
	switch {
	case errors.Is(err, game.ErrNoActiveSeason):
		return "No season is running."
	case errors.Is(err, game.ErrSeasonActive):
		return "A season is already running."
	case errors.Is(err, game.ErrNoActiveSession):
		return "No session is running."
	case errors.Is(err, game.ErrSessionActive):
		return "A session is already running."
	case errors.Is(err, game.ErrSessionInProgress):
		return "End the session before ending the season."
	case errors.Is(err, game.ErrNotEnrolled):
		return "That player isn't enrolled."
	case errors.Is(err, game.ErrPlayerDisabled):
		return "That player is disabled."
	case errors.Is(err, game.ErrInvalidDate):
		return "Dates look like DD/MM/YYYY."
	default:
		slog.Error("slash command failed", slog.Any("err", err))
		return "Something went wrong."
	}
}
